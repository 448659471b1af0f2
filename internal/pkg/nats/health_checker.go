package nats

import (
	"context"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"tsu-tactics/internal/pkg/log"
)

// ConnStatus 被检查的连接，*nats.Conn 满足该接口
type ConnStatus interface {
	Status() nats.Status
}

// HealthChecker 周期性检查 NATS 连接状态，供 /health 上报
// 战斗事件广播在连接断开时静默丢弃，这里只负责让运维看到
type HealthChecker struct {
	conn     ConnStatus
	interval time.Duration
	logger   log.Logger

	mu      sync.RWMutex
	status  nats.Status
	healthy bool

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewHealthChecker 创建健康检查器，interval <= 0 时每 10 秒检查一次
func NewHealthChecker(conn ConnStatus, interval time.Duration, logger log.Logger) *HealthChecker {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = log.GetLogger()
	}
	hc := &HealthChecker{
		conn:     conn,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
	hc.check()
	return hc
}

// Start 阻塞运行，直到 ctx 取消或 Stop
func (hc *HealthChecker) Start(ctx context.Context) {
	ticker := time.NewTicker(hc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-hc.stopCh:
			return
		case <-ticker.C:
			hc.check()
		}
	}
}

// Stop 停止检查，可重复调用
func (hc *HealthChecker) Stop() {
	hc.stopOnce.Do(func() { close(hc.stopCh) })
}

// IsHealthy 最近一次检查时连接是否可用
func (hc *HealthChecker) IsHealthy() bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.healthy
}

// Status 最近一次检查到的连接状态
func (hc *HealthChecker) Status() nats.Status {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.status
}

func (hc *HealthChecker) check() {
	status := hc.conn.Status()
	healthy := status == nats.CONNECTED

	hc.mu.Lock()
	prev, wasHealthy := hc.status, hc.healthy
	hc.status, hc.healthy = status, healthy
	hc.mu.Unlock()

	if prev == status {
		return
	}
	switch {
	case healthy && !wasHealthy:
		hc.logger.Info("【NATS】连接已恢复", "status", status.String())
	case !healthy:
		hc.logger.Warn("【NATS】连接不可用，战斗事件广播将被丢弃", "status", status.String())
	}
}
