package interfaces

import (
	"context"

	"github.com/aarondl/sqlboiler/v4/boil"

	"tsu-tactics/internal/domain/combat"
)

// RewardRepository 经验、物品、背包和掉落记录
type RewardRepository interface {
	// AddCharacterXP 给角色累加经验
	AddCharacterXP(ctx context.Context, execer boil.ContextExecutor, grant combat.XPGrant) error

	// CreateLoot 创建物品、放入背包并记录掉落，返回物品 ID
	CreateLoot(ctx context.Context, execer boil.ContextExecutor, sessionID string, grant combat.LootGrant) (string, error)
}
