package main

import (
	"encoding/json"
	"fmt"
	"log"

	radix "github.com/mediocregopher/radix/v3"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Ereklebazanovi/lifeStore-sub001/internal/config"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/infra/mq"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/infra/redis"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/logger"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/service"
)

const sentMarkExpireSeconds = 86400 // 发送标记 24 小时有效期

func main() {
	cfg, err := config.Load("./config")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger.Init()

	mqConn := mq.Init(&cfg.RabbitMQ)
	if mqConn == nil {
		log.Fatal("rabbitmq is required for the notify worker")
	}
	redisClient := redis.Init(&cfg.Redis)

	ch, err := mqConn.Channel()
	if err != nil {
		log.Fatalf("failed to open channel: %v", err)
	}
	defer ch.Close()

	if _, err = ch.QueueDeclare(service.OrderEventsQueue, true, false, false, false, nil); err != nil {
		log.Fatalf("failed to declare queue: %v", err)
	}

	// 手动确认模式（auto-ack=false）
	msgs, err := ch.Consume(service.OrderEventsQueue, "", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("failed to consume: %v", err)
	}

	log.Println("notify worker started, waiting for order events...")

	for d := range msgs {
		var ev service.OrderEvent
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			log.Printf("invalid event: %v", err)
			// 消息格式错误，拒绝并丢弃
			_ = d.Nack(false, false)
			continue
		}
		handleEvent(redisClient, &ev, d)
	}
}

func handleEvent(redisClient radix.Client, ev *service.OrderEvent, d amqp.Delivery) {
	// MQ 可能重复投递，按 订单号+事件 打发送标记，邮件最多发一次。
	// redis 缺席时跳过去重，宁可重发也不丢通知
	if redisClient != nil {
		markKey := fmt.Sprintf("lifestore:notify:sent:%s:%s", ev.OrderNumber, ev.Event)
		var set int
		if err := redisClient.Do(radix.Cmd(&set, "SETNX", markKey, "1")); err != nil {
			log.Printf("failed to set sent mark: %v", err)
			// Redis 暂时不可用时重新入队，等恢复后再发
			_ = d.Nack(false, true)
			return
		}
		if set == 0 {
			log.Printf("event already notified, skip: order=%s event=%s", ev.OrderNumber, ev.Event)
			_ = d.Ack(false)
			return
		}
		_ = redisClient.Do(radix.FlatCmd(nil, "EXPIRE", markKey, sentMarkExpireSeconds))
	}

	to := ev.Email
	if to == "" {
		to = "(no email on order)"
	}

	switch ev.Event {
	case service.EventOrderPaid:
		log.Printf("sending payment confirmation: order=%s to=%s amount=%d %s",
			ev.OrderNumber, to, ev.Amount, ev.Currency)
	case service.EventOrderPaymentFailed:
		log.Printf("sending payment failure notice: order=%s to=%s", ev.OrderNumber, to)
	case service.EventOrderCancelled:
		log.Printf("sending cancellation notice: order=%s to=%s reason=%q",
			ev.OrderNumber, to, ev.Reason)
	default:
		log.Printf("unknown event type %q, dropping: order=%s", ev.Event, ev.OrderNumber)
	}

	if err := d.Ack(false); err != nil {
		log.Printf("failed to ack message: %v", err)
	}
}
