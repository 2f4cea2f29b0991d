package order

import (
	"context"
	"errors"
	"time"
)

// PaymentStatus 支付状态
type PaymentStatus string

// OrderStatus 订单状态，与支付状态分字段维护但必须保持同步
type OrderStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"

	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusCancelled OrderStatus = "cancelled"
)

var (
	// ErrAlreadyFinal 订单已处于终态，重复投递的回调/清理写入会命中这里
	ErrAlreadyFinal = errors.New("订单已处于终态")
	// ErrInvalidTransition 非法状态流转（如终态回退到 pending）
	ErrInvalidTransition = errors.New("非法的订单状态流转")
)

// Terminal 是否为终态（终态之后不再自动流转）
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentPaid, PaymentFailed, PaymentCancelled:
		return true
	}
	return false
}

// Order 订单模型
type Order struct {
	ID          int64  `gorm:"primaryKey"`
	OrderNumber string `gorm:"uniqueIndex;size:64;not null"` // 对外订单号，网关回调用它定位订单
	UserID      int64  `gorm:"index;not null"`
	// TotalAmount 单位为最小货币单位（分）
	TotalAmount int64  `gorm:"not null"`
	Currency    string `gorm:"size:8;not null"`

	PaymentStatus PaymentStatus `gorm:"size:16;index;not null"`
	OrderStatus   OrderStatus   `gorm:"size:16;index;not null"`

	// PaymentID 网关侧的支付单号，回调成功后回填
	PaymentID          string `gorm:"size:64"`
	CustomerEmail      string `gorm:"size:128"`
	CancellationReason string `gorm:"size:255"`

	Items []Item `gorm:"foreignKey:OrderID"`

	CreatedAt   time.Time `gorm:"index"`
	UpdatedAt   time.Time
	PaidAt      *time.Time
	CancelledAt *time.Time
}

// Item 订单行，商品信息按下单时快照保存
type Item struct {
	ID        int64  `gorm:"primaryKey"`
	OrderID   int64  `gorm:"index;not null"`
	ProductID string `gorm:"size:64;index;not null"`
	// VariantID 为空表示购买的是不分规格的简单商品
	VariantID string `gorm:"size:64"`
	Quantity  int64  `gorm:"not null"`
	// UnitPrice 单位为分
	UnitPrice int64 `gorm:"not null"`
}

// StockAdjustment 取消订单时需要回补的库存增量
type StockAdjustment struct {
	ProductID string
	VariantID string
	Quantity  int64
}

// Transition 应用一次状态流转。
// 只允许 pending -> 终态；订单已是终态时返回 ErrAlreadyFinal，
// 调用方据此跳过副作用（幂等保证在这里结构化兜底，而不是靠约定）。
func (o *Order) Transition(to PaymentStatus, now time.Time) error {
	if o.PaymentStatus.Terminal() {
		return ErrAlreadyFinal
	}
	switch to {
	case PaymentPaid:
		o.PaymentStatus = PaymentPaid
		o.OrderStatus = StatusConfirmed
		o.PaidAt = &now
	case PaymentFailed:
		// 支付失败只改支付状态，订单仍停留在 pending，允许用户重新发起支付
		o.PaymentStatus = PaymentFailed
	case PaymentCancelled:
		o.PaymentStatus = PaymentCancelled
		o.OrderStatus = StatusCancelled
		o.CancelledAt = &now
	default:
		return ErrInvalidTransition
	}
	o.UpdatedAt = now
	return nil
}

// Repository 订单仓储接口
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)
	ListByUser(ctx context.Context, userID int64) ([]*Order, error)
	ListRecent(ctx context.Context, limit int) ([]*Order, error)
	// ListExpiredPending 查出创建时间早于 cutoff 且仍在 pending 的订单，最多 limit 条
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]*Order, error)
	// Finalize 在单个事务里锁行并应用状态流转（回调落账路径）。
	// 订单已终态返回 ErrAlreadyFinal，不存在返回底层 not found。
	Finalize(ctx context.Context, orderNumber string, to PaymentStatus, paymentID string, now time.Time) (*Order, error)
	// CancelExpired 在单个事务里完成：校验订单仍为 pending、置为取消、按 restock 回补库存。
	// 写入时必须重查支付状态（条件写），与回调落账竞争时保证后者不被覆盖。
	CancelExpired(ctx context.Context, o *Order, reason string, restock []StockAdjustment, now time.Time) error
}
