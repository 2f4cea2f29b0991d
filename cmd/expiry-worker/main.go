package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Ereklebazanovi/lifeStore-sub001/internal/config"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/infra/mq"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/logger"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/repository/mysql"
	"github.com/Ereklebazanovi/lifeStore-sub001/internal/service"
)

func main() {
	cfg, err := config.Load("./config")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger.Init()

	db := mysql.Init(&cfg.MySQL)
	mqConn := mq.Init(&cfg.RabbitMQ)

	orderRepo := mysql.NewOrderRepository(db)
	sweepSvc := service.NewSweepService(orderRepo, mqConn, &cfg.Payment)

	interval := cfg.Payment.SweepInterval()
	log.Printf("expiry worker started, interval=%s timeout=%s batch=%d",
		interval, cfg.Payment.PendingTimeout(), cfg.Payment.BatchSize())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// 启动先跑一轮，进程重启不会把积压的超时订单多拖一个周期
	runSweep(sweepSvc, cfg)

	for {
		select {
		case <-ticker.C:
			runSweep(sweepSvc, cfg)
		case sig := <-stop:
			// 批次之间退出即可：每单的取消+回补各自成事务，
			// 没跑完的下一次调度会重新选中
			log.Printf("received %s, exiting", sig)
			return
		}
	}
}

func runSweep(svc *service.SweepService, cfg *config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-cfg.Payment.PendingTimeout())
	result, err := svc.Sweep(ctx, cutoff)
	if err != nil {
		zap.L().Error("清理任务运行失败", zap.Error(err))
		return
	}
	if result.Processed > 0 || result.Errors > 0 {
		zap.L().Info("清理任务完成",
			zap.Int("processed", result.Processed),
			zap.Int("errors", result.Errors))
	}
}
