package interfaces

import (
	"context"

	"github.com/aarondl/sqlboiler/v4/boil"

	"tsu-tactics/internal/domain/combat"
)

// CharacterSheet 玩家角色卡中参战需要的字段
type CharacterSheet struct {
	ID           string
	CampaignID   string
	PlayerUserID string
	Name         string
	Level        int
	Stats        combat.Stats
	WeaponPower  int
	Armor        int
	Resist       int
	HPMax        int
	PowerMax     int
}

// NPCTemplate NPC 模板，BossTemplateID 非空时生成 boss 实例
type NPCTemplate struct {
	ID             string
	CampaignID     string
	Name           string
	Level          int
	Stats          combat.Stats
	WeaponPower    int
	Armor          int
	Resist         int
	HPMax          int
	PowerMax       int
	BossTemplateID string
}

// ParticipantRepository 开战时读取角色卡和 NPC 模板
type ParticipantRepository interface {
	GetCharacter(ctx context.Context, execer boil.ContextExecutor, campaignID, characterID string) (*CharacterSheet, error)
	GetNPCTemplate(ctx context.Context, execer boil.ContextExecutor, campaignID, templateID string) (*NPCTemplate, error)
}
