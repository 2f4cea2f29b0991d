package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Ereklebazanovi/lifeStore-sub001/internal/datamodels/order"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/datamodels/product"
)

// CheckoutItem 下单请求里的一行
type CheckoutItem struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Quantity  int64  `json:"quantity"`
}

// OrderService 订单服务：下单（扣库存+建单）与查询。
// 库存在下单时扣减，之后由回调确认或由清理任务取消并回补。
type OrderService struct {
	db        *gorm.DB
	orderRepo order.Repository
}

// NewOrderService 创建订单服务
func NewOrderService(db *gorm.DB, orderRepo order.Repository) *OrderService {
	return &OrderService{db: db, orderRepo: orderRepo}
}

// newOrderNumber 生成对外订单号：时间戳 + 随机后缀
func newOrderNumber(now time.Time) string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("SO%s%s", now.Format("20060102150405"), hex.EncodeToString(buf))
}

// CreateOrder 创建订单：锁定商品行、校验并扣减库存、建单（pending）。
// 整个过程在一个事务里，失败则全部回滚。
func (s *OrderService) CreateOrder(ctx context.Context, userID int64, email, currency string, items []CheckoutItem) (*order.Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: 订单至少需要一件商品", ErrInvalidRequest)
	}
	for _, it := range items {
		if it.ProductID == "" || it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: 商品行非法", ErrInvalidRequest)
		}
	}
	if currency == "" {
		currency = "USD"
	}

	now := time.Now()
	var resultOrder *order.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var total int64
		orderItems := make([]order.Item, 0, len(items))

		for _, it := range items {
			// 人工补录行不对应真实商品，跳过库存处理，单价按 0 计
			if strings.HasPrefix(it.ProductID, manualProductPrefix) {
				orderItems = append(orderItems, order.Item{
					ProductID: it.ProductID,
					VariantID: it.VariantID,
					Quantity:  it.Quantity,
				})
				continue
			}

			// 1) 锁定商品行
			var p product.Product
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ?", it.ProductID).
				First(&p).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: %s", ErrProductNotFound, it.ProductID)
				}
				return err
			}
			if p.Status != 1 {
				return fmt.Errorf("商品 %s 已下线", it.ProductID)
			}

			// 2) 扣减库存：有规格时先扣规格，再同步总库存
			if it.VariantID != "" {
				var v product.Variant
				if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
					Where("id = ? AND product_id = ?", it.VariantID, it.ProductID).
					First(&v).Error; err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return fmt.Errorf("%w: 规格 %s", ErrProductNotFound, it.VariantID)
					}
					return err
				}
				if v.Stock < it.Quantity {
					return fmt.Errorf("%w: %s/%s", ErrInsufficientStock, p.Name, v.Name)
				}
				v.Stock -= it.Quantity
				if err := tx.Save(&v).Error; err != nil {
					return err
				}
			}
			if p.Stock < it.Quantity {
				return fmt.Errorf("%w: %s", ErrInsufficientStock, p.Name)
			}
			p.Stock -= it.Quantity
			if err := tx.Save(&p).Error; err != nil {
				return err
			}

			total += p.Price * it.Quantity
			orderItems = append(orderItems, order.Item{
				ProductID: it.ProductID,
				VariantID: it.VariantID,
				Quantity:  it.Quantity,
				UnitPrice: p.Price,
			})
		}

		// 3) 创建订单（pending，等回调或清理把它推进到终态）
		o := order.Order{
			OrderNumber:   newOrderNumber(now),
			UserID:        userID,
			TotalAmount:   total,
			Currency:      currency,
			PaymentStatus: order.PaymentPending,
			OrderStatus:   order.StatusPending,
			CustomerEmail: email,
			Items:         orderItems,
		}
		if err := tx.Create(&o).Error; err != nil {
			return err
		}
		resultOrder = &o
		return nil
	})

	return resultOrder, err
}

// GetByOrderNumber 按订单号查询
func (s *OrderService) GetByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	return s.orderRepo.GetByOrderNumber(ctx, orderNumber)
}

// ListByUser 查询用户订单
func (s *OrderService) ListByUser(ctx context.Context, userID int64) ([]*order.Order, error) {
	return s.orderRepo.ListByUser(ctx, userID)
}

// ListRecent 最近订单（后台用）
func (s *OrderService) ListRecent(ctx context.Context, limit int) ([]*order.Order, error) {
	return s.orderRepo.ListRecent(ctx, limit)
}
