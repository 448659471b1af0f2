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

	"tsu-tactics/internal/domain/combat"
	"tsu-tactics/internal/repository/interfaces"
)

type combatantRow struct {
	ID              string      `boil:"id"`
	CombatSessionID string      `boil:"combat_session_id"`
	Name            string      `boil:"name"`
	EntityType      string      `boil:"entity_type"`
	OwnerPlayerID   null.String `boil:"owner_player_id"`
	CharacterID     null.String `boil:"character_id"`
	Level           int         `boil:"level"`
	Offense         int         `boil:"offense"`
	Defense         int         `boil:"defense"`
	Control         int         `boil:"control"`
	Support         int         `boil:"support"`
	Mobility        int         `boil:"mobility"`
	Utility         int         `boil:"utility"`
	WeaponPower     int         `boil:"weapon_power"`
	Armor           int         `boil:"armor"`
	Resist          int         `boil:"resist"`
	HP              int         `boil:"hp"`
	HPMax           int         `boil:"hp_max"`
	Power           int         `boil:"power"`
	PowerMax        int         `boil:"power_max"`
	PosX            int         `boil:"pos_x"`
	PosY            int         `boil:"pos_y"`
	IsAlive         bool        `boil:"is_alive"`
	Statuses        types.JSON  `boil:"statuses"`
}

func (row *combatantRow) toDomain() (*combat.Combatant, error) {
	c := &combat.Combatant{
		ID:            row.ID,
		SessionID:     row.CombatSessionID,
		Name:          row.Name,
		EntityType:    combat.EntityType(row.EntityType),
		OwnerPlayerID: row.OwnerPlayerID.String,
		CharacterID:   row.CharacterID.String,
		Level:         row.Level,
		Stats: combat.Stats{
			Offense:  row.Offense,
			Defense:  row.Defense,
			Control:  row.Control,
			Support:  row.Support,
			Mobility: row.Mobility,
			Utility:  row.Utility,
		},
		WeaponPower: row.WeaponPower,
		Armor:       row.Armor,
		Resist:      row.Resist,
		HP:          row.HP,
		HPMax:       row.HPMax,
		Power:       row.Power,
		PowerMax:    row.PowerMax,
		Pos:         combat.Position{X: row.PosX, Y: row.PosY},
		IsAlive:     row.IsAlive,
	}
	if len(row.Statuses) > 0 {
		if err := json.Unmarshal(row.Statuses, &c.Statuses); err != nil {
			return nil, errors.Wrapf(err, "解析单位 %s 的状态失败", row.ID)
		}
	}
	if c.Statuses == nil {
		c.Statuses = []combat.StatusEntry{}
	}
	return c, nil
}

type combatantRepositoryImpl struct {
	db *sql.DB
}

// NewCombatantRepository 创建参战单位仓储实例
func NewCombatantRepository(db *sql.DB) interfaces.CombatantRepository {
	return &combatantRepositoryImpl{db: db}
}

func (r *combatantRepositoryImpl) execer(execer boil.ContextExecutor) boil.ContextExecutor {
	if execer == nil {
		return r.db
	}
	return execer
}

func (r *combatantRepositoryImpl) CreateBatch(ctx context.Context, execer boil.ContextExecutor, combatants []*combat.Combatant) error {
	exec := r.execer(execer)
	for _, c := range combatants {
		statuses, err := marshalJSON(c.Statuses, "[]")
		if err != nil {
			return err
		}
		if c.Statuses == nil {
			statuses = types.JSON("[]")
		}
		_, err = exec.ExecContext(ctx, `
			INSERT INTO combat.combatants (
				id, combat_session_id, name, entity_type, owner_player_id, character_id, level,
				offense, defense, control, support, mobility, utility,
				weapon_power, armor, resist, hp, hp_max, power, power_max,
				pos_x, pos_y, is_alive, statuses
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)`,
			c.ID, c.SessionID, c.Name, string(c.EntityType), nullString(c.OwnerPlayerID), nullString(c.CharacterID), c.Level,
			c.Stats.Offense, c.Stats.Defense, c.Stats.Control, c.Stats.Support, c.Stats.Mobility, c.Stats.Utility,
			c.WeaponPower, c.Armor, c.Resist, c.HP, c.HPMax, c.Power, c.PowerMax,
			c.Pos.X, c.Pos.Y, c.IsAlive, statuses,
		)
		if err != nil {
			return errors.Wrapf(err, "写入参战单位 %s 失败", c.ID)
		}
	}
	return nil
}

func (r *combatantRepositoryImpl) ListBySession(ctx context.Context, execer boil.ContextExecutor, sessionID string) ([]*combat.Combatant, error) {
	var rows []*combatantRow
	err := queries.Raw(`
		SELECT id, combat_session_id, name, entity_type, owner_player_id, character_id, level,
		       offense, defense, control, support, mobility, utility,
		       weapon_power, armor, resist, hp, hp_max, power, power_max,
		       pos_x, pos_y, is_alive, statuses
		FROM combat.combatants
		WHERE combat_session_id = $1
		ORDER BY id`, sessionID,
	).Bind(ctx, r.execer(execer), &rows)
	if err != nil {
		return nil, errors.Wrap(err, "查询参战单位失败")
	}

	combatants := make([]*combat.Combatant, 0, len(rows))
	for _, row := range rows {
		c, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		combatants = append(combatants, c)
	}
	return combatants, nil
}

func (r *combatantRepositoryImpl) Update(ctx context.Context, execer boil.ContextExecutor, c *combat.Combatant) error {
	statuses, err := marshalJSON(c.Statuses, "[]")
	if err != nil {
		return err
	}
	if c.Statuses == nil {
		statuses = types.JSON("[]")
	}
	res, err := r.execer(execer).ExecContext(ctx, `
		UPDATE combat.combatants
		SET armor = $3, hp = $4, power = $5, pos_x = $6, pos_y = $7, is_alive = $8, statuses = $9
		WHERE id = $1 AND combat_session_id = $2`,
		c.ID, c.SessionID, c.Armor, c.HP, c.Power, c.Pos.X, c.Pos.Y, c.IsAlive, statuses,
	)
	if err != nil {
		return errors.Wrapf(err, "更新参战单位 %s 失败", c.ID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.Errorf("参战单位 %s 不属于会话 %s", c.ID, c.SessionID)
	}
	return nil
}
