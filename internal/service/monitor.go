package service

import (
	"sync"
	"time"
)

// Monitor 监控服务，用于统计错误和性能指标
type Monitor struct {
	mu sync.RWMutex

	// 错误统计
	RedisErrors   int64
	MQErrors      int64
	DBErrors      int64
	GatewayErrors int64

	// 支付下单
	PaymentRequests int64
	PaymentCreated  int64

	// 回调
	CallbacksReceived  int64
	CallbacksApplied   int64
	CallbackDuplicates int64
	SignatureRejects   int64

	// 清理任务
	SweepRuns      int64
	SweepProcessed int64
	SweepErrors    int64

	// 时间统计
	LastRedisError     time.Time
	LastMQError        time.Time
	LastDBError        time.Time
	LastCallbackTime   time.Time
	LastForgeryAttempt time.Time
	LastSweepTime      time.Time
}

var globalMonitor = &Monitor{}

// GetMonitor 获取全局监控实例
func GetMonitor() *Monitor {
	return globalMonitor
}

// RecordRedisError 记录Redis错误
func (m *Monitor) RecordRedisError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RedisErrors++
	m.LastRedisError = time.Now()
}

// RecordMQError 记录MQ错误
func (m *Monitor) RecordMQError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MQErrors++
	m.LastMQError = time.Now()
}

// RecordDBError 记录数据库错误
func (m *Monitor) RecordDBError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DBErrors++
	m.LastDBError = time.Now()
}

// RecordGatewayError 记录网关错误
func (m *Monitor) RecordGatewayError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GatewayErrors++
}

// RecordPaymentRequest 记录一次支付下单请求
func (m *Monitor) RecordPaymentRequest() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PaymentRequests++
}

// RecordPaymentCreated 记录下单成功
func (m *Monitor) RecordPaymentCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PaymentCreated++
}

// RecordCallbackReceived 记录收到回调
func (m *Monitor) RecordCallbackReceived() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallbacksReceived++
	m.LastCallbackTime = time.Now()
}

// RecordCallbackApplied 记录回调成功落账
func (m *Monitor) RecordCallbackApplied() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallbacksApplied++
}

// RecordCallbackDuplicate 记录重复投递的回调
func (m *Monitor) RecordCallbackDuplicate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallbackDuplicates++
}

// RecordSignatureReject 记录验签失败（疑似伪造）
func (m *Monitor) RecordSignatureReject() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SignatureRejects++
	m.LastForgeryAttempt = time.Now()
}

// RecordSweepRun 记录一次清理任务运行
func (m *Monitor) RecordSweepRun(processed, errs int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SweepRuns++
	m.SweepProcessed += int64(processed)
	m.SweepErrors += int64(errs)
	m.LastSweepTime = time.Now()
}

// GetStats 获取统计信息
func (m *Monitor) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	callbackApplyRate := float64(0)
	if m.CallbacksReceived > 0 {
		callbackApplyRate = float64(m.CallbacksApplied) / float64(m.CallbacksReceived) * 100
	}

	return map[string]interface{}{
		"errors": map[string]interface{}{
			"redis":   m.RedisErrors,
			"mq":      m.MQErrors,
			"db":      m.DBErrors,
			"gateway": m.GatewayErrors,
		},
		"payment": map[string]interface{}{
			"requests": m.PaymentRequests,
			"created":  m.PaymentCreated,
		},
		"callback": map[string]interface{}{
			"received":          m.CallbacksReceived,
			"applied":           m.CallbacksApplied,
			"duplicates":        m.CallbackDuplicates,
			"signature_rejects": m.SignatureRejects,
			"apply_rate":        callbackApplyRate,
		},
		"sweep": map[string]interface{}{
			"runs":      m.SweepRuns,
			"processed": m.SweepProcessed,
			"errors":    m.SweepErrors,
		},
		"last_events": map[string]interface{}{
			"redis_error":     m.LastRedisError,
			"mq_error":        m.LastMQError,
			"db_error":        m.LastDBError,
			"callback":        m.LastCallbackTime,
			"forgery_attempt": m.LastForgeryAttempt,
			"sweep":           m.LastSweepTime,
		},
	}
}

// Reset 重置统计（用于测试或定期清理）
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RedisErrors = 0
	m.MQErrors = 0
	m.DBErrors = 0
	m.GatewayErrors = 0
	m.PaymentRequests = 0
	m.PaymentCreated = 0
	m.CallbacksReceived = 0
	m.CallbacksApplied = 0
	m.CallbackDuplicates = 0
	m.SignatureRejects = 0
	m.SweepRuns = 0
	m.SweepProcessed = 0
	m.SweepErrors = 0
}
