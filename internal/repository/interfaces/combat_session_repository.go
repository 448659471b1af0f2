package interfaces

import (
	"context"
	"time"

	"github.com/aarondl/sqlboiler/v4/boil"

	"tsu-tactics/internal/domain/combat"
)

// CombatSessionRepository 战斗会话与回合顺序仓储接口
type CombatSessionRepository interface {
	// Create 创建会话及其回合顺序
	Create(ctx context.Context, execer boil.ContextExecutor, session *combat.Session, turnOrder []string) error

	// GetForUpdate 锁定会话行，同一会话的并发请求在此串行化
	GetForUpdate(ctx context.Context, execer boil.ContextExecutor, campaignID, sessionID string) (*combat.Session, error)

	// Get 只读查询
	Get(ctx context.Context, campaignID, sessionID string) (*combat.Session, error)

	// Update 写回状态、回合计数、结果和结束时间
	Update(ctx context.Context, execer boil.ContextExecutor, session *combat.Session) error

	// GetTurnOrder 查询回合顺序
	GetTurnOrder(ctx context.Context, execer boil.ContextExecutor, sessionID string) ([]string, error)

	// ListIdleActive 查询在 before 之前就没有更新过的进行中会话
	ListIdleActive(ctx context.Context, before time.Time, limit int) ([]*combat.Session, error)

	// ArchiveEnded 标记在 before 之前结束的会话为已归档，返回影响行数
	ArchiveEnded(ctx context.Context, before time.Time) (int64, error)

	// CountActive 进行中的会话数量
	CountActive(ctx context.Context) (int, error)
}
