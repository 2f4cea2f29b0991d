package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Ereklebazanovi/lifeStore-sub001/internal/config"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/datamodels/order"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/payment"
)

const paySecret = "payment-test-secret"

func newPaymentFixture() (*PaymentService, *fakeOrderRepo, *fakeGateway) {
	repo := newFakeOrderRepo()
	gw := &fakeGateway{}
	cfg := &config.PaymentConfig{
		MerchantID:  "M-1",
		Secret:      paySecret,
		CallbackURL: "https://shop.example.com/api/payment/callback",
		Currency:    "USD",
	}
	return NewPaymentService(repo, gw, cfg), repo, gw
}

func TestCreatePaymentValidation(t *testing.T) {
	svc, _, _ := newPaymentFixture()

	if _, err := svc.CreatePayment(context.Background(), "", 10, "USD", ""); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("missing order number: got %v", err)
	}
	if _, err := svc.CreatePayment(context.Background(), "SO1", 0, "USD", ""); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("zero amount: got %v", err)
	}
	if _, err := svc.CreatePayment(context.Background(), "SO1", -5, "USD", ""); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("negative amount: got %v", err)
	}
}

func TestCreatePaymentUnknownOrder(t *testing.T) {
	svc, _, _ := newPaymentFixture()
	if _, err := svc.CreatePayment(context.Background(), "NOPE", 10, "USD", ""); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("got %v, want ErrOrderNotFound", err)
	}
}

func TestCreatePaymentMinorUnits(t *testing.T) {
	svc, repo, gw := newPaymentFixture()
	repo.addOrder(&order.Order{
		OrderNumber:   "SO1",
		Currency:      "USD",
		PaymentStatus: order.PaymentPending,
		OrderStatus:   order.StatusPending,
		CreatedAt:     time.Now(),
	})

	resp, err := svc.CreatePayment(context.Background(), "SO1", 19.99, "USD", "buyer@example.com")
	if err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}
	if resp.CheckoutURL == "" || resp.PaymentID == "" {
		t.Fatalf("gateway response must pass through: %+v", resp)
	}

	// 金额转最小单位整数，绝不上送小数
	if got := gw.lastParams["amount"]; got != "1999" {
		t.Errorf("amount = %q, want \"1999\"", got)
	}
	if got := gw.lastParams["customer_email"]; got != "buyer@example.com" {
		t.Errorf("customer_email = %q", got)
	}
	if got := gw.lastParams["merchant_id"]; got != "M-1" {
		t.Errorf("merchant_id = %q", got)
	}
	if got := gw.lastParams["order_id"]; got != "SO1" {
		t.Errorf("order_id = %q", got)
	}
}

func TestCreatePaymentRounding(t *testing.T) {
	svc, repo, gw := newPaymentFixture()
	repo.addOrder(&order.Order{OrderNumber: "SO1", PaymentStatus: order.PaymentPending})

	// 10.555 * 100 = 1055.5，四舍五入到 1056
	if _, err := svc.CreatePayment(context.Background(), "SO1", 10.555, "USD", ""); err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}
	if got := gw.lastParams["amount"]; got != "1056" {
		t.Errorf("amount = %q, want \"1056\"", got)
	}
}

func TestCreatePaymentSignatureVerifiable(t *testing.T) {
	svc, repo, gw := newPaymentFixture()
	repo.addOrder(&order.Order{OrderNumber: "SO1", Currency: "USD", PaymentStatus: order.PaymentPending})

	if _, err := svc.CreatePayment(context.Background(), "SO1", 100, "USD", ""); err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}

	// 上送参数必须能用同一套编解码验签通过，
	// 发起侧和校验侧共用一条规范序列化路径
	params := make(map[string]any, len(gw.lastParams))
	for k, v := range gw.lastParams {
		params[k] = v
	}
	if !payment.Verify(params, paySecret) {
		t.Fatal("signed request must verify against the same codec")
	}
}

func TestCreatePaymentCurrencyFallback(t *testing.T) {
	svc, repo, gw := newPaymentFixture()
	repo.addOrder(&order.Order{OrderNumber: "SO1", Currency: "GEL", PaymentStatus: order.PaymentPending})

	if _, err := svc.CreatePayment(context.Background(), "SO1", 10, "", ""); err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}
	if got := gw.lastParams["currency"]; got != "GEL" {
		t.Errorf("currency = %q, want order currency GEL", got)
	}
}

func TestCreatePaymentGatewayError(t *testing.T) {
	svc, repo, gw := newPaymentFixture()
	repo.addOrder(&order.Order{OrderNumber: "SO1", PaymentStatus: order.PaymentPending})
	gw.err = &payment.GatewayError{Message: "insufficient merchant balance"}

	_, err := svc.CreatePayment(context.Background(), "SO1", 10, "USD", "")
	var gwErr *payment.GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("gateway error must surface typed, got %v", err)
	}
	if gwErr.Message != "insufficient merchant balance" {
		t.Errorf("message = %q", gwErr.Message)
	}
}

func TestCreatePaymentDoesNotMutateOrder(t *testing.T) {
	svc, repo, _ := newPaymentFixture()
	repo.addOrder(&order.Order{OrderNumber: "SO1", PaymentStatus: order.PaymentPending, OrderStatus: order.StatusPending})

	if _, err := svc.CreatePayment(context.Background(), "SO1", 10, "USD", ""); err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}
	o, _ := repo.GetByOrderNumber(context.Background(), "SO1")
	if o.PaymentStatus != order.PaymentPending {
		t.Fatalf("initiation must not touch order state, got %s", o.PaymentStatus)
	}
}
