package tasks

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"tsu-tactics/internal/pkg/log"
)

// IdleSessionMaintainer 闲置会话处理和活跃数统计
type IdleSessionMaintainer interface {
	AbandonIdleSessions(ctx context.Context, idleFor time.Duration) (int, error)
	RefreshActiveGauge(ctx context.Context) (int, error)
}

// IdleSessionTask 闲置会话定时任务
// 每 10 分钟结束超过 idleFor 没有写入的进行中会话，每分钟刷新进行中会话数指标
type IdleSessionTask struct {
	maintainer IdleSessionMaintainer
	idleFor    time.Duration
	logger     log.Logger
	cron       *cron.Cron
}

// NewIdleSessionTask 创建闲置会话任务实例
func NewIdleSessionTask(maintainer IdleSessionMaintainer, idleFor time.Duration, logger log.Logger) *IdleSessionTask {
	return &IdleSessionTask{
		maintainer: maintainer,
		idleFor:    idleFor,
		logger:     logger,
	}
}

// Start 启动定时任务
func (t *IdleSessionTask) Start() {
	t.cron = cron.New(cron.WithSeconds())

	// Cron 表达式: 秒 分 时 日 月 周
	if _, err := t.cron.AddFunc("0 */10 * * * *", t.abandonIdle); err != nil {
		t.logger.Error("【战斗定时任务】添加闲置会话任务失败", err)
		return
	}
	if _, err := t.cron.AddFunc("0 * * * * *", t.refreshGauge); err != nil {
		t.logger.Error("【战斗定时任务】添加活跃会话统计任务失败", err)
		return
	}

	t.cron.Start()
	t.logger.Info("【战斗定时任务】闲置会话任务已启动 - 每10分钟执行一次", "idle_for", t.idleFor.String())
}

// abandonIdle 结束闲置会话
func (t *IdleSessionTask) abandonIdle() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	n, err := t.maintainer.AbandonIdleSessions(ctx, t.idleFor)
	if err != nil {
		t.logger.Error("【战斗定时任务】结束闲置会话失败", err)
		return
	}
	if n > 0 {
		t.logger.Info("【战斗定时任务】闲置会话已结束",
			"abandoned_count", n,
			"timestamp", time.Now().Format("2006-01-02 15:04:05"))
	} else {
		t.logger.Debug("【战斗定时任务】没有闲置会话")
	}
}

func (t *IdleSessionTask) refreshGauge() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := t.maintainer.RefreshActiveGauge(ctx); err != nil {
		t.logger.Error("【战斗定时任务】统计进行中会话失败", err)
	}
}

// Stop 停止定时任务（优雅关闭）
func (t *IdleSessionTask) Stop() {
	if t.cron != nil {
		t.logger.Info("【战斗定时任务】正在停止闲置会话任务...")
		ctx := t.cron.Stop()
		<-ctx.Done()
		t.logger.Info("【战斗定时任务】闲置会话任务已停止")
	}
}
