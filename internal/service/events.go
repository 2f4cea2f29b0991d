package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// OrderEventsQueue 订单事件队列，notify-worker 消费后发送邮件
	OrderEventsQueue = "order_events"

	EventOrderPaid          = "order.paid"
	EventOrderPaymentFailed = "order.payment_failed"
	EventOrderCancelled     = "order.cancelled"
)

// OrderEvent 订单生命周期事件
type OrderEvent struct {
	Event       string    `json:"event"`
	OrderNumber string    `json:"order_number"`
	PaymentID   string    `json:"payment_id,omitempty"`
	Email       string    `json:"email,omitempty"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency"`
	Reason      string    `json:"reason,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// publishOrderEvent 将事件写入 MQ。conn 为空时静默跳过（单测/降级场景）。
func publishOrderEvent(ctx context.Context, conn *amqp.Connection, ev *OrderEvent) error {
	if conn == nil {
		return nil
	}
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if _, err = ch.QueueDeclare(OrderEventsQueue, true, false, false, false, nil); err != nil {
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	return ch.PublishWithContext(
		ctx,
		"",
		OrderEventsQueue,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}
