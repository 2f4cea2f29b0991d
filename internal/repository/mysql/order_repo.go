package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Ereklebazanovi/lifeStore-sub001/internal/datamodels/order"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/datamodels/product"
)

type orderRepo struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) order.Repository {
	return &orderRepo{db: db}
}

func (r *orderRepo) Create(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *orderRepo) GetByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_number = ?", orderNumber).
		First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) ListByUser(ctx context.Context, userID int64) ([]*order.Order, error) {
	var list []*order.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *orderRepo) ListRecent(ctx context.Context, limit int) ([]*order.Order, error) {
	if limit <= 0 {
		limit = 20
	}
	var list []*order.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Order("id DESC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *orderRepo) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]*order.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var list []*order.Order
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("payment_status = ? AND created_at <= ?", order.PaymentPending, cutoff).
		Order("id ASC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Finalize 回调落账：锁行后走状态机流转，幂等由 Transition 保证。
// 终态订单返回 order.ErrAlreadyFinal，调用方不得重复施加副作用。
func (r *orderRepo) Finalize(ctx context.Context, orderNumber string, to order.PaymentStatus, paymentID string, now time.Time) (*order.Order, error) {
	var o order.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1) 锁定订单行，串行化与清理任务的竞争
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_number = ?", orderNumber).
			First(&o).Error; err != nil {
			return err
		}

		// 2) 状态机流转（终态直接拒绝）
		if err := o.Transition(to, now); err != nil {
			return err
		}
		if paymentID != "" {
			o.PaymentID = paymentID
		}

		// 3) 落库
		return tx.Save(&o).Error
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// CancelExpired 清理超时订单：锁行、重查 pending（条件写）、取消并回补库存。
// 选中之后写入之前如果回调已把订单落为已支付，这里会命中 ErrAlreadyFinal，
// 取消被跳过，绝不能用过期的取消覆盖一笔刚确认的支付。
func (r *orderRepo) CancelExpired(ctx context.Context, o *order.Order, reason string, restock []order.StockAdjustment, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1) 重新锁定并加载订单，不能信任查询阶段的快照
		var cur order.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&cur, o.ID).Error; err != nil {
			return err
		}

		// 2) 条件写：仍在 pending 才允许取消
		if err := cur.Transition(order.PaymentCancelled, now); err != nil {
			return err
		}
		cur.CancellationReason = reason
		if err := tx.Save(&cur).Error; err != nil {
			return err
		}

		// 3) 回补库存。商品记录不存在按 NotFound 处理：记日志跳过该行，
		// 不让单个脏数据拖垮整单取消。
		for _, adj := range restock {
			if err := applyRestock(tx, adj); err != nil {
				return err
			}
		}
		return nil
	})
}

func applyRestock(tx *gorm.DB, adj order.StockAdjustment) error {
	if adj.VariantID != "" {
		res := tx.Model(&product.Variant{}).
			Where("id = ? AND product_id = ?", adj.VariantID, adj.ProductID).
			UpdateColumn("stock", gorm.Expr("stock + ?", adj.Quantity))
		if res.Error != nil {
			return fmt.Errorf("回补规格库存失败: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			// 规格不存在，跳过该行
			return nil
		}
	}
	res := tx.Model(&product.Product{}).
		Where("id = ?", adj.ProductID).
		UpdateColumn("stock", gorm.Expr("stock + ?", adj.Quantity))
	if res.Error != nil && !errors.Is(res.Error, gorm.ErrRecordNotFound) {
		return fmt.Errorf("回补商品库存失败: %w", res.Error)
	}
	return nil
}
