package impl

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/aarondl/null/v8"
	"github.com/aarondl/sqlboiler/v4/boil"
	"github.com/aarondl/sqlboiler/v4/queries"
	"github.com/aarondl/sqlboiler/v4/types"
	"github.com/friendsofgo/errors"
	"github.com/lib/pq"

	"tsu-tactics/internal/domain/combat"
	"tsu-tactics/internal/repository/interfaces"
)

type combatSkillRow struct {
	ID            string      `boil:"id"`
	CharacterID   null.String `boil:"character_id"`
	Key           string      `boil:"key"`
	Name          string      `boil:"name"`
	Kind          string      `boil:"kind"`
	Targeting     string      `boil:"targeting"`
	Params        types.JSON  `boil:"params"`
	RangeTiles    int         `boil:"range_tiles"`
	CooldownTurns int         `boil:"cooldown_turns"`
	Cost          int         `boil:"cost"`
	Effects       types.JSON  `boil:"effects"`
}

func (row *combatSkillRow) toDomain() (*combat.Skill, error) {
	s := &combat.Skill{
		ID:            row.ID,
		Key:           row.Key,
		Name:          row.Name,
		CharacterID:   row.CharacterID.String,
		Kind:          combat.SkillKind(row.Kind),
		Targeting:     combat.TargetingMode(row.Targeting),
		RangeTiles:    row.RangeTiles,
		CooldownTurns: row.CooldownTurns,
		Cost:          row.Cost,
	}
	if len(row.Params) > 0 {
		if err := json.Unmarshal(row.Params, &s.Params); err != nil {
			return nil, errors.Wrapf(err, "解析技能 %s 的目标参数失败", row.ID)
		}
	}
	effects, err := combat.DecodeEffects(row.Effects)
	if err != nil {
		return nil, errors.Wrapf(err, "解析技能 %s 的效果失败", row.ID)
	}
	s.Effects = effects
	return s, nil
}

const combatSkillColumns = `id, character_id, key, name, kind, targeting, params,
	range_tiles, cooldown_turns, cost, effects`

type combatSkillRepositoryImpl struct {
	db *sql.DB
}

// NewCombatSkillRepository 创建技能定义仓储实例
func NewCombatSkillRepository(db *sql.DB) interfaces.CombatSkillRepository {
	return &combatSkillRepositoryImpl{db: db}
}

func (r *combatSkillRepositoryImpl) execer(execer boil.ContextExecutor) boil.ContextExecutor {
	if execer == nil {
		return r.db
	}
	return execer
}

func (r *combatSkillRepositoryImpl) GetByID(ctx context.Context, execer boil.ContextExecutor, skillID string) (*combat.Skill, error) {
	var row combatSkillRow
	err := queries.Raw(`SELECT `+combatSkillColumns+` FROM combat.skills WHERE id = $1`, skillID).
		Bind(ctx, r.execer(execer), &row)
	if isNoRows(err) {
		return nil, interfaces.ErrCombatSkillNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "查询技能失败")
	}
	return row.toDomain()
}

func (r *combatSkillRepositoryImpl) ListNPCSkillsByKeys(ctx context.Context, execer boil.ContextExecutor, keys []string) ([]*combat.Skill, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	var rows []*combatSkillRow
	err := queries.Raw(`SELECT `+combatSkillColumns+`
		FROM combat.skills
		WHERE character_id IS NULL AND key = ANY($1)`, pq.Array(keys),
	).Bind(ctx, r.execer(execer), &rows)
	if err != nil {
		return nil, errors.Wrap(err, "查询 NPC 技能失败")
	}

	skills := make([]*combat.Skill, 0, len(rows))
	for _, row := range rows {
		s, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		skills = append(skills, s)
	}
	return skills, nil
}
