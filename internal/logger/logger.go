package logger

import (
	"sync"

	"go.uber.org/zap"
)

var once sync.Once

// Init 初始化全局 zap 日志器，重复调用只生效一次。
// 服务端代码统一使用 zap.L() 获取。
func Init() {
	once.Do(func() {
		l, err := zap.NewProduction()
		if err != nil {
			// 生产配置构建失败时退回无操作日志器，不影响启动
			l = zap.NewNop()
		}
		zap.ReplaceGlobals(l)
	})
}
