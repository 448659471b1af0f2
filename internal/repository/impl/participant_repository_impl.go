package impl

import (
	"context"
	"database/sql"

	"github.com/aarondl/null/v8"
	"github.com/aarondl/sqlboiler/v4/boil"
	"github.com/aarondl/sqlboiler/v4/queries"
	"github.com/friendsofgo/errors"

	"tsu-tactics/internal/domain/combat"
	"tsu-tactics/internal/repository/interfaces"
)

// sheetColumns 角色卡与 NPC 模板共有的数值列
type sheetColumns struct {
	Offense     int `boil:"offense"`
	Defense     int `boil:"defense"`
	Control     int `boil:"control"`
	Support     int `boil:"support"`
	Mobility    int `boil:"mobility"`
	Utility     int `boil:"utility"`
	WeaponPower int `boil:"weapon_power"`
	Armor       int `boil:"armor"`
	Resist      int `boil:"resist"`
	HPMax       int `boil:"hp_max"`
	PowerMax    int `boil:"power_max"`
}

func (s sheetColumns) stats() combat.Stats {
	return combat.Stats{
		Offense:  s.Offense,
		Defense:  s.Defense,
		Control:  s.Control,
		Support:  s.Support,
		Mobility: s.Mobility,
		Utility:  s.Utility,
	}
}

type characterRow struct {
	ID           string `boil:"id"`
	CampaignID   string `boil:"campaign_id"`
	PlayerUserID string `boil:"player_user_id"`
	Name         string `boil:"name"`
	Level        int    `boil:"level"`
	sheetColumns `boil:",bind"`
}

type npcTemplateRow struct {
	ID             string      `boil:"id"`
	CampaignID     string      `boil:"campaign_id"`
	Name           string      `boil:"name"`
	Level          int         `boil:"level"`
	BossTemplateID null.String `boil:"boss_template_id"`
	sheetColumns   `boil:",bind"`
}

const sheetSelect = `offense, defense, control, support, mobility, utility,
	weapon_power, armor, resist, hp_max, power_max`

type participantRepositoryImpl struct {
	db *sql.DB
}

// NewParticipantRepository 创建参战者来源仓储
func NewParticipantRepository(db *sql.DB) interfaces.ParticipantRepository {
	return &participantRepositoryImpl{db: db}
}

func (r *participantRepositoryImpl) execer(execer boil.ContextExecutor) boil.ContextExecutor {
	if execer == nil {
		return r.db
	}
	return execer
}

func (r *participantRepositoryImpl) GetCharacter(ctx context.Context, execer boil.ContextExecutor, campaignID, characterID string) (*interfaces.CharacterSheet, error) {
	var row characterRow
	err := queries.Raw(`
		SELECT id, campaign_id, player_user_id, name, level, `+sheetSelect+`
		FROM combat.characters
		WHERE id = $1 AND campaign_id = $2`, characterID, campaignID,
	).Bind(ctx, r.execer(execer), &row)
	if isNoRows(err) {
		return nil, interfaces.ErrCharacterNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "查询角色失败")
	}

	return &interfaces.CharacterSheet{
		ID:           row.ID,
		CampaignID:   row.CampaignID,
		PlayerUserID: row.PlayerUserID,
		Name:         row.Name,
		Level:        row.Level,
		Stats:        row.stats(),
		WeaponPower:  row.WeaponPower,
		Armor:        row.Armor,
		Resist:       row.Resist,
		HPMax:        row.HPMax,
		PowerMax:     row.PowerMax,
	}, nil
}

func (r *participantRepositoryImpl) GetNPCTemplate(ctx context.Context, execer boil.ContextExecutor, campaignID, templateID string) (*interfaces.NPCTemplate, error) {
	var row npcTemplateRow
	err := queries.Raw(`
		SELECT id, campaign_id, name, level, boss_template_id, `+sheetSelect+`
		FROM combat.npc_templates
		WHERE id = $1 AND campaign_id = $2`, templateID, campaignID,
	).Bind(ctx, r.execer(execer), &row)
	if isNoRows(err) {
		return nil, interfaces.ErrNPCTemplateNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "查询 NPC 模板失败")
	}

	return &interfaces.NPCTemplate{
		ID:             row.ID,
		CampaignID:     row.CampaignID,
		Name:           row.Name,
		Level:          row.Level,
		Stats:          row.stats(),
		WeaponPower:    row.WeaponPower,
		Armor:          row.Armor,
		Resist:         row.Resist,
		HPMax:          row.HPMax,
		PowerMax:       row.PowerMax,
		BossTemplateID: row.BossTemplateID.String,
	}, nil
}
