package service

import (
	"context"
	"errors"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Ereklebazanovi/lifeStore-sub001/internal/config"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/datamodels/order"
)

// manualProductPrefix 人工补录商品行的 ID 前缀，这类行不参与库存回补
const manualProductPrefix = "manual_"

// cancelReasonExpired 清理任务写入的取消原因
const cancelReasonExpired = "支付超时自动取消"

// SweepResult 单次清理的统计
type SweepResult struct {
	Processed int `json:"processedCount"`
	Errors    int `json:"errorCount"`
}

// SweepService 超时订单清理服务。
// 与回调落账竞争同一批订单行，取消必须是"仍为 pending 才写"的条件写，
// 仓储层的 CancelExpired 在事务内重查状态。
type SweepService struct {
	orderRepo order.Repository
	mqConn    *amqp.Connection // 可为 nil
	cfg       *config.PaymentConfig
}

// NewSweepService 创建清理服务
func NewSweepService(orderRepo order.Repository, mqConn *amqp.Connection, cfg *config.PaymentConfig) *SweepService {
	return &SweepService{
		orderRepo: orderRepo,
		mqConn:    mqConn,
		cfg:       cfg,
	}
}

// restockPlan 由订单行算出库存回补清单：
// 跳过 manual_ 前缀的虚拟商品行和非法数量。
func restockPlan(items []order.Item) []order.StockAdjustment {
	out := make([]order.StockAdjustment, 0, len(items))
	for _, it := range items {
		if strings.HasPrefix(it.ProductID, manualProductPrefix) {
			continue
		}
		if it.Quantity <= 0 {
			continue
		}
		out = append(out, order.StockAdjustment{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
		})
	}
	return out
}

// Sweep 扫描并取消创建时间早于 cutoff 且仍未支付的订单。
// 单个订单的取消+回补在一个事务里原子完成；单笔失败只计数，
// 不中断整批。任务可安全重跑：漏掉的订单下一轮仍会被选中。
func (s *SweepService) Sweep(ctx context.Context, cutoff time.Time) (*SweepResult, error) {
	batch := s.cfg.BatchSize()

	list, err := s.orderRepo.ListExpiredPending(ctx, cutoff, batch)
	if err != nil {
		GetMonitor().RecordDBError()
		return nil, err
	}

	result := &SweepResult{}
	for _, o := range list {
		now := time.Now()
		err := s.orderRepo.CancelExpired(ctx, o, cancelReasonExpired, restockPlan(o.Items), now)
		switch {
		case errors.Is(err, order.ErrAlreadyFinal):
			// 选中之后回调先一步落了账，跳过即可，不算错误
			zap.L().Info("订单在清理前已终态，跳过",
				zap.String("order_number", o.OrderNumber))
			continue
		case err != nil:
			result.Errors++
			GetMonitor().RecordDBError()
			zap.L().Error("取消超时订单失败",
				zap.String("order_number", o.OrderNumber),
				zap.Error(err))
			continue
		}

		result.Processed++
		zap.L().Info("超时订单已取消",
			zap.String("order_number", o.OrderNumber),
			zap.Time("created_at", o.CreatedAt))

		ev := &OrderEvent{
			Event:       EventOrderCancelled,
			OrderNumber: o.OrderNumber,
			Email:       o.CustomerEmail,
			Amount:      o.TotalAmount,
			Currency:    o.Currency,
			Reason:      cancelReasonExpired,
			OccurredAt:  now,
		}
		if err := publishOrderEvent(ctx, s.mqConn, ev); err != nil {
			GetMonitor().RecordMQError()
			zap.L().Warn("取消事件发布失败",
				zap.String("order_number", o.OrderNumber),
				zap.Error(err))
		}
	}

	GetMonitor().RecordSweepRun(result.Processed, result.Errors)
	return result, nil
}
