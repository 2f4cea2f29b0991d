package service

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"go.uber.org/zap"

	"github.com/Ereklebazanovi/lifeStore-sub001/internal/config"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/datamodels/order"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/payment"
)

// PaymentService 支付下单服务。
// 所有调用方共用这一份参数集和这一个签名入口，
// 杜绝两条下单路径序列化不一致导致的验签失败。
type PaymentService struct {
	orderRepo order.Repository
	gateway   payment.Gateway
	cfg       *config.PaymentConfig
}

// NewPaymentService 创建支付服务
func NewPaymentService(orderRepo order.Repository, gateway payment.Gateway, cfg *config.PaymentConfig) *PaymentService {
	return &PaymentService{
		orderRepo: orderRepo,
		gateway:   gateway,
		cfg:       cfg,
	}
}

// CreatePayment 发起支付：构造参数集、签名、请求网关，返回收银台地址。
// amount 为主货币单位（元/美元），上送网关前统一转为最小单位整数，
// 绝不上送小数金额。本方法不改动订单状态，只有回调落账才会。
func (s *PaymentService) CreatePayment(ctx context.Context, orderNumber string, amount float64, currency, customerEmail string) (*payment.CreateResponse, error) {
	GetMonitor().RecordPaymentRequest()

	if orderNumber == "" {
		return nil, fmt.Errorf("%w: 缺少订单号", ErrInvalidRequest)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: 金额必须大于 0", ErrInvalidRequest)
	}

	o, err := s.orderRepo.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderNumber)
	}

	if currency == "" {
		currency = o.Currency
	}
	if currency == "" {
		currency = s.cfg.Currency
	}

	// 转最小货币单位，四舍五入
	minorUnits := int64(math.Round(amount * 100))

	params := map[string]any{
		"merchant_id":  s.cfg.MerchantID,
		"order_id":     o.OrderNumber,
		"description":  fmt.Sprintf("lifeStore 订单 %s", o.OrderNumber),
		"amount":       minorUnits,
		"currency":     currency,
		"callback_url": s.cfg.CallbackURL,
	}
	if customerEmail != "" {
		params["customer_email"] = customerEmail
	}

	sig := payment.Sign(params, s.cfg.Secret)

	// 上送的都是字符串，金额的渲染必须与签名时一致
	form := make(map[string]string, len(params)+1)
	for k, v := range params {
		switch t := v.(type) {
		case string:
			form[k] = t
		case int64:
			form[k] = strconv.FormatInt(t, 10)
		default:
			form[k] = fmt.Sprint(t)
		}
	}
	form[payment.FieldSignature] = sig

	resp, err := s.gateway.Create(ctx, form)
	if err != nil {
		GetMonitor().RecordGatewayError()
		zap.L().Warn("支付网关下单失败",
			zap.String("order_number", orderNumber),
			zap.Error(err))
		return nil, err
	}

	GetMonitor().RecordPaymentCreated()
	zap.L().Info("支付下单成功",
		zap.String("order_number", orderNumber),
		zap.String("payment_id", resp.PaymentID),
		zap.Int64("amount_minor", minorUnits),
		zap.String("currency", currency))
	return resp, nil
}
