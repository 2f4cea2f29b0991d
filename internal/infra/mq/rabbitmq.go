package mq

import (
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Ereklebazanovi/lifeStore-sub001/internal/config"
)

var (
	conn *amqp.Connection
	once sync.Once
)

// Init 初始化 RabbitMQ 连接。订单事件属于事后通知，
// 连不上时返回 nil，下单与回调主链路照常工作
func Init(cfg *config.RabbitMQConfig) *amqp.Connection {
	once.Do(func() {
		c, err := amqp.Dial(cfg.URL)
		if err != nil {
			// URL 带凭据，不进日志
			zap.L().Warn("rabbitmq 连接失败，订单事件通知停用", zap.Error(err))
			return
		}
		conn = c
	})
	return conn
}

// Conn 获取 MQ 连接，可能为 nil
func Conn() *amqp.Connection {
	return conn
}
