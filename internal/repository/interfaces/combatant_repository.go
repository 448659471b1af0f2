package interfaces

import (
	"context"

	"github.com/aarondl/sqlboiler/v4/boil"

	"tsu-tactics/internal/domain/combat"
)

// CombatantRepository 参战单位仓储接口
type CombatantRepository interface {
	// CreateBatch 开战时批量写入
	CreateBatch(ctx context.Context, execer boil.ContextExecutor, combatants []*combat.Combatant) error

	// ListBySession 按 ID 排序返回会话内全部单位
	ListBySession(ctx context.Context, execer boil.ContextExecutor, sessionID string) ([]*combat.Combatant, error)

	// Update 按 (id, combat_session_id) 更新一行
	Update(ctx context.Context, execer boil.ContextExecutor, combatant *combat.Combatant) error
}
