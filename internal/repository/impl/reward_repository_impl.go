package impl

import (
	"context"
	"database/sql"

	"github.com/aarondl/sqlboiler/v4/boil"
	"github.com/friendsofgo/errors"
	"github.com/google/uuid"

	"tsu-tactics/internal/domain/combat"
	"tsu-tactics/internal/repository/interfaces"
)

type rewardRepositoryImpl struct {
	db *sql.DB
}

// NewRewardRepository 创建奖励仓储
func NewRewardRepository(db *sql.DB) interfaces.RewardRepository {
	return &rewardRepositoryImpl{db: db}
}

func (r *rewardRepositoryImpl) execer(execer boil.ContextExecutor) boil.ContextExecutor {
	if execer == nil {
		return r.db
	}
	return execer
}

func (r *rewardRepositoryImpl) AddCharacterXP(ctx context.Context, execer boil.ContextExecutor, grant combat.XPGrant) error {
	// 没有角色卡的玩家单位（临时单位）只记事件，不落经验
	if grant.CharacterID == "" || grant.XP <= 0 {
		return nil
	}
	res, err := r.execer(execer).ExecContext(ctx,
		`UPDATE combat.characters SET xp = xp + $2 WHERE id = $1`,
		grant.CharacterID, grant.XP,
	)
	if err != nil {
		return errors.Wrap(err, "累加角色经验失败")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return interfaces.ErrCharacterNotFound
	}
	return nil
}

func (r *rewardRepositoryImpl) CreateLoot(ctx context.Context, execer boil.ContextExecutor, sessionID string, grant combat.LootGrant) (string, error) {
	exec := r.execer(execer)
	itemID := uuid.NewString()

	stats, err := marshalJSON(grant.Stats, "{}")
	if err != nil {
		return "", err
	}

	if _, err := exec.ExecContext(ctx, `
		INSERT INTO combat.items (id, owner_user_id, character_id, name, tier, stats)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		itemID, grant.PlayerID, nullString(grant.CharacterID), grant.Name, string(grant.Tier), stats,
	); err != nil {
		return "", errors.Wrap(err, "创建掉落物品失败")
	}

	if _, err := exec.ExecContext(ctx,
		`INSERT INTO combat.inventory_entries (owner_user_id, item_id) VALUES ($1, $2)`,
		grant.PlayerID, itemID,
	); err != nil {
		return "", errors.Wrap(err, "放入背包失败")
	}

	if _, err := exec.ExecContext(ctx, `
		INSERT INTO combat.loot_drops (id, combat_session_id, player_user_id, item_id, tier)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.NewString(), sessionID, grant.PlayerID, itemID, string(grant.Tier),
	); err != nil {
		return "", errors.Wrap(err, "记录掉落失败")
	}
	return itemID, nil
}
