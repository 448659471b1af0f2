package interfaces

import (
	"context"

	"github.com/aarondl/sqlboiler/v4/boil"

	"tsu-tactics/internal/domain/combat"
)

// CombatSkillRepository 技能定义仓储接口
type CombatSkillRepository interface {
	// GetByID 查询技能，效果已解码为 combat.Effect
	GetByID(ctx context.Context, execer boil.ContextExecutor, skillID string) (*combat.Skill, error)

	// ListNPCSkillsByKeys 查询 boss 技能池引用的 NPC 技能（character_id 为空）
	ListNPCSkillsByKeys(ctx context.Context, execer boil.ContextExecutor, keys []string) ([]*combat.Skill, error)
}
