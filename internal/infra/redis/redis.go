package redis

import (
	"sync"

	radix "github.com/mediocregopher/radix/v3"
	"go.uber.org/zap"

	"github.com/Ereklebazanovi/lifeStore-sub001/internal/config"
)

var (
	client radix.Client
	once   sync.Once
)

// Init 初始化 Redis 连接池。商城只拿 redis 做缓存和幂等标记，
// 连不上时返回 nil，调用方按降级路径运行而不是拒绝启动
func Init(cfg *config.RedisConfig) radix.Client {
	once.Do(func() {
		pool, err := radix.NewPool("tcp", cfg.Addr, cfg.Pool())
		if err != nil {
			zap.L().Warn("redis 连接失败，进入降级模式",
				zap.String("addr", cfg.Addr), zap.Error(err))
			return
		}
		client = pool
	})
	return client
}

// Client 获取 Redis 客户端，可能为 nil
func Client() radix.Client {
	return client
}
