package service

import (
	"context"
	"sync"
	"time"

	"github.com/Ereklebazanovi/lifeStore-sub001/internal/datamodels/order"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/payment"
)

// fakeProduct 内存商品，只维护测试需要的库存
type fakeProduct struct {
	stock    int64
	variants map[string]int64
}

// fakeOrderRepo 内存订单仓储，状态流转走真实的 Transition，
// 保证幂等/条件写语义与生产实现一致
type fakeOrderRepo struct {
	mu       sync.Mutex
	orders   map[string]*order.Order // key: orderNumber
	products map[string]*fakeProduct

	finalizeErr error            // 模拟回调落账时的数据库故障
	cancelErr   map[string]error // 按订单号模拟取消失败
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:    make(map[string]*order.Order),
		products:  make(map[string]*fakeProduct),
		cancelErr: make(map[string]error),
	}
}

func (r *fakeOrderRepo) addOrder(o *order.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.OrderNumber] = o
}

func (r *fakeOrderRepo) addProduct(id string, stock int64, variants map[string]int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[id] = &fakeProduct{stock: stock, variants: variants}
}

func (r *fakeOrderRepo) Create(ctx context.Context, o *order.Order) error {
	r.addOrder(o)
	return nil
}

func (r *fakeOrderRepo) GetByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderNumber]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (r *fakeOrderRepo) ListByUser(ctx context.Context, userID int64) ([]*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*order.Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) ListRecent(ctx context.Context, limit int) ([]*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*order.Order
	for _, o := range r.orders {
		out = append(out, o)
	}
	return out, nil
}

func (r *fakeOrderRepo) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*order.Order
	for _, o := range r.orders {
		if len(out) >= limit {
			break
		}
		if o.PaymentStatus == order.PaymentPending && !o.CreatedAt.After(cutoff) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) Finalize(ctx context.Context, orderNumber string, to order.PaymentStatus, paymentID string, now time.Time) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalizeErr != nil {
		return nil, r.finalizeErr
	}
	o, ok := r.orders[orderNumber]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if err := o.Transition(to, now); err != nil {
		return nil, err
	}
	if paymentID != "" {
		o.PaymentID = paymentID
	}
	return o, nil
}

func (r *fakeOrderRepo) CancelExpired(ctx context.Context, o *order.Order, reason string, restock []order.StockAdjustment, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.cancelErr[o.OrderNumber]; err != nil {
		return err
	}
	cur, ok := r.orders[o.OrderNumber]
	if !ok {
		return ErrOrderNotFound
	}
	if err := cur.Transition(order.PaymentCancelled, now); err != nil {
		return err
	}
	cur.CancellationReason = reason
	for _, adj := range restock {
		p, ok := r.products[adj.ProductID]
		if !ok {
			// 商品不存在时跳过该行，与生产实现一致
			continue
		}
		if adj.VariantID != "" {
			p.variants[adj.VariantID] += adj.Quantity
		}
		p.stock += adj.Quantity
	}
	return nil
}

// fakeGateway 记录收到的参数并返回预设结果
type fakeGateway struct {
	lastParams map[string]string
	resp       *payment.CreateResponse
	err        error
}

func (g *fakeGateway) Create(ctx context.Context, params map[string]string) (*payment.CreateResponse, error) {
	g.lastParams = params
	if g.err != nil {
		return nil, g.err
	}
	if g.resp != nil {
		return g.resp, nil
	}
	return &payment.CreateResponse{CheckoutURL: "https://pay.example.com/c/abc", PaymentID: "PAY-1"}, nil
}
