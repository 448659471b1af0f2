package tasks

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"tsu-tactics/internal/pkg/log"
)

// SessionArchiver 归档已结束的会话
type SessionArchiver interface {
	ArchiveEndedSessions(ctx context.Context, retention time.Duration) (int64, error)
}

// ArchiveTask 会话归档定时任务，每天凌晨3点执行
type ArchiveTask struct {
	archiver  SessionArchiver
	retention time.Duration
	logger    log.Logger
	cron      *cron.Cron
}

// NewArchiveTask 创建归档任务实例
func NewArchiveTask(archiver SessionArchiver, retention time.Duration, logger log.Logger) *ArchiveTask {
	return &ArchiveTask{
		archiver:  archiver,
		retention: retention,
		logger:    logger,
	}
}

// Start 启动定时任务
func (t *ArchiveTask) Start() {
	t.cron = cron.New(cron.WithSeconds())

	_, err := t.cron.AddFunc("0 0 3 * * *", func() {
		t.logger.Info("【战斗定时任务】开始归档已结束的会话")
		t.archive()
		t.logger.Info("【战斗定时任务】会话归档完成")
	})
	if err != nil {
		t.logger.Error("【战斗定时任务】添加归档任务失败", err)
		return
	}

	t.cron.Start()
	t.logger.Info("【战斗定时任务】归档任务已启动 - 每天凌晨3点执行", "retention", t.retention.String())
}

// archive 归档结束超过保留时间的会话
func (t *ArchiveTask) archive() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	n, err := t.archiver.ArchiveEndedSessions(ctx, t.retention)
	if err != nil {
		t.logger.Error("【战斗定时任务】归档会话失败", err)
		return
	}
	t.logger.Info("【战斗定时任务】会话归档成功", "archived_count", n)
}

// Stop 停止定时任务（优雅关闭）
func (t *ArchiveTask) Stop() {
	if t.cron != nil {
		t.logger.Info("【战斗定时任务】正在停止归档任务...")
		ctx := t.cron.Stop()
		<-ctx.Done()
		t.logger.Info("【战斗定时任务】归档任务已停止")
	}
}
