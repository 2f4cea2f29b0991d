package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	radix "github.com/mediocregopher/radix/v3"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Ereklebazanovi/lifeStore-sub001/internal/config"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/datamodels/order"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/payment"
)

// 回调处理结果分类。除了参数硬错误（缺 order_id），
// 传输层一律应答成功，防止网关重试风暴；分类只用于日志与指标。
const (
	OutcomePaid      = "paid"      // 验签通过，订单落为已支付
	OutcomeFailed    = "failed"    // 验签通过，支付失败
	OutcomeRejected  = "rejected"  // 验签失败，疑似伪造，未落任何状态
	OutcomeDuplicate = "duplicate" // 订单已终态，重复投递，副作用未重复施加
	OutcomeIgnored   = "ignored"   // 订单不存在，无事可做
	OutcomeError     = "error"     // 内部错误（如数据库写失败），已记日志/指标
)

// CallbackResult 单次回调的处理结论
type CallbackResult struct {
	Outcome     string
	OrderNumber string
}

// CallbackService 支付回调落账服务。
// 回调来自不可信网络输入，必须先验签再动订单；
// 状态流转的幂等由订单状态机兜底，Redis 去重标记只是加一道保险。
type CallbackService struct {
	orderRepo order.Repository
	redis     radix.Client     // 可为 nil
	mqConn    *amqp.Connection // 可为 nil
	cfg       *config.PaymentConfig
}

// NewCallbackService 创建回调服务
func NewCallbackService(orderRepo order.Repository, redisClient radix.Client, mqConn *amqp.Connection, cfg *config.PaymentConfig) *CallbackService {
	return &CallbackService{
		orderRepo: orderRepo,
		redis:     redisClient,
		mqConn:    mqConn,
		cfg:       cfg,
	}
}

// classifyCallback 成功的充要条件：order_status=approved 且 response_status=success，
// 其余任何组合一律按支付失败处理
func classifyCallback(orderStatus, responseStatus string) bool {
	return orderStatus == "approved" && responseStatus == "success"
}

// HandleCallback 处理一次网关异步回调。
// 返回 ErrInvalidRequest 时传输层应答 4xx；其余情况一律应答 200。
func (s *CallbackService) HandleCallback(ctx context.Context, payload map[string]string) (*CallbackResult, error) {
	GetMonitor().RecordCallbackReceived()

	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: 回调载荷为空", ErrInvalidRequest)
	}

	// 1. 验签。失败即疑似伪造：记日志和指标后直接返回，
	// 绝不带着未认证的数据去改订单。
	params := make(map[string]any, len(payload))
	for k, v := range payload {
		params[k] = v
	}
	if !payment.Verify(params, s.cfg.Secret) {
		GetMonitor().RecordSignatureReject()
		zap.L().Warn("回调验签失败，疑似伪造",
			zap.String("order_id", payload["order_id"]),
			zap.String("payment_id", payload["payment_id"]))
		return &CallbackResult{Outcome: OutcomeRejected, OrderNumber: payload["order_id"]}, nil
	}

	// 2. 提取字段。缺 order_id 是硬错误，无从定位订单。
	orderNumber := payload["order_id"]
	if orderNumber == "" {
		return nil, fmt.Errorf("%w: 回调缺少 order_id", ErrInvalidRequest)
	}
	paymentID := payload["payment_id"]

	// 3. 分类成败
	success := classifyCallback(payload["order_status"], payload["response_status"])
	to := order.PaymentFailed
	event := EventOrderPaymentFailed
	outcome := OutcomeFailed
	if success {
		to = order.PaymentPaid
		event = EventOrderPaid
		outcome = OutcomePaid
	}

	// 4. 条件写入：仓储在事务内锁行后走状态机，
	// 已终态返回 ErrAlreadyFinal，不重复施加任何副作用。
	now := time.Now()
	o, err := s.orderRepo.Finalize(ctx, orderNumber, to, paymentID, now)
	switch {
	case errors.Is(err, order.ErrAlreadyFinal):
		GetMonitor().RecordCallbackDuplicate()
		zap.L().Info("回调重复投递，订单已终态",
			zap.String("order_number", orderNumber),
			zap.String("payment_id", paymentID))
		return &CallbackResult{Outcome: OutcomeDuplicate, OrderNumber: orderNumber}, nil
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, ErrOrderNotFound):
		zap.L().Warn("回调指向的订单不存在",
			zap.String("order_number", orderNumber))
		return &CallbackResult{Outcome: OutcomeIgnored, OrderNumber: orderNumber}, nil
	case err != nil:
		// 写库失败也要对网关应答成功（它不会替我们重试出正确结果），
		// 但必须留下可观测的痕迹。
		GetMonitor().RecordDBError()
		zap.L().Error("回调落账失败",
			zap.String("order_number", orderNumber),
			zap.Error(err))
		return &CallbackResult{Outcome: OutcomeError, OrderNumber: orderNumber}, nil
	}

	GetMonitor().RecordCallbackApplied()
	zap.L().Info("回调落账成功",
		zap.String("order_number", orderNumber),
		zap.String("payment_id", paymentID),
		zap.Bool("success", success))

	// 5. 事务提交后的副作用：通知事件最多发一次
	s.publishOnce(ctx, o, event, paymentID)

	return &CallbackResult{Outcome: outcome, OrderNumber: orderNumber}, nil
}

// publishOnce 按 payment_id 去重后发布订单事件。
// Redis 不可用时退化为直接发布，真正的幂等由状态机保证，
// 这里只是避免同一回调的邮件被发两遍。
func (s *CallbackService) publishOnce(ctx context.Context, o *order.Order, event, paymentID string) {
	if s.redis != nil && paymentID != "" {
		key := fmt.Sprintf("lifestore:payment:cb:%s", paymentID)
		var set int
		if err := s.redis.Do(radix.Cmd(&set, "SETNX", key, "1")); err != nil {
			GetMonitor().RecordRedisError()
			zap.L().Warn("回调去重标记写入失败", zap.Error(err))
		} else if set == 0 {
			// 已处理过，跳过通知
			return
		} else {
			_ = s.redis.Do(radix.Cmd(nil, "EXPIRE", key, "86400"))
		}
	}

	ev := &OrderEvent{
		Event:       event,
		OrderNumber: o.OrderNumber,
		PaymentID:   paymentID,
		Email:       o.CustomerEmail,
		Amount:      o.TotalAmount,
		Currency:    o.Currency,
		OccurredAt:  time.Now(),
	}
	if err := publishOrderEvent(ctx, s.mqConn, ev); err != nil {
		GetMonitor().RecordMQError()
		zap.L().Warn("订单事件发布失败",
			zap.String("order_number", o.OrderNumber),
			zap.String("event", event),
			zap.Error(err))
	}
}
