package interfaces

import (
	"context"

	"github.com/aarondl/sqlboiler/v4/boil"

	"tsu-tactics/internal/domain/combat"
)

// BossInstanceRepository boss 实例与阶段模板仓储接口
type BossInstanceRepository interface {
	// Create 关联会话中的 boss 单位和阶段模板
	Create(ctx context.Context, execer boil.ContextExecutor, boss *combat.BossInstance, templateID string) error

	// ListBySession 查询会话内全部 boss，阶段表已加载
	ListBySession(ctx context.Context, execer boil.ContextExecutor, sessionID string) ([]*combat.BossInstance, error)

	// UpdatePhase 只允许阶段前进
	UpdatePhase(ctx context.Context, execer boil.ContextExecutor, boss *combat.BossInstance) error

	// ListTemplatePhases 查询阶段模板
	ListTemplatePhases(ctx context.Context, execer boil.ContextExecutor, templateID string) ([]combat.BossPhase, error)
}
