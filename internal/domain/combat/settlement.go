package combat

import (
	"fmt"
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// LootTier 掉落品质
type LootTier string

const (
	TierCommon    LootTier = "common"
	TierUncommon  LootTier = "uncommon"
	TierRare      LootTier = "rare"
	TierEpic      LootTier = "epic"
	TierLegendary LootTier = "legendary"
)

// XPPerLevel 每击倒一个敌对单位获得 level * XPPerLevel 经验
const XPPerLevel = 25

// 阵营声望变化
const (
	ReputationOnVictory = 5
	ReputationOnDefeat  = -2
)

// LootTierForXP 根据经验值决定掉落品质
func LootTierForXP(xp int) LootTier {
	switch {
	case xp < 100:
		return TierCommon
	case xp < 250:
		return TierUncommon
	case xp < 500:
		return TierRare
	case xp < 1000:
		return TierEpic
	default:
		return TierLegendary
	}
}

var tierStatRange = map[LootTier][2]int{
	TierCommon:    {1, 3},
	TierUncommon:  {2, 5},
	TierRare:      {4, 8},
	TierEpic:      {6, 12},
	TierLegendary: {10, 18},
}

// LootGrant 发给一名玩家的掉落
type LootGrant struct {
	PlayerID    string         `json:"player_id"`
	CombatantID string         `json:"combatant_id"`
	CharacterID string         `json:"character_id,omitempty"`
	Tier        LootTier       `json:"tier"`
	Name        string         `json:"name"`
	Stats       map[string]int `json:"stats"`
}

// XPGrant 发给一名玩家的经验
type XPGrant struct {
	PlayerID    string `json:"player_id"`
	CombatantID string `json:"combatant_id"`
	CharacterID string `json:"character_id,omitempty"`
	XP          int    `json:"xp"`
}

// Settlement 结算结果。引擎只负责计算，奖励/声望/记忆/地图的写入由调用方完成
type Settlement struct {
	SessionID       string
	CampaignID      string
	Outcome         Outcome
	XP              []XPGrant
	Loot            []LootGrant
	FactionID       string
	ReputationDelta int
	PreviousBoardID string
	CombatBoardID   string
	Summary         string
}

// Settle 计算结算并追加 xp_awarded / loot_awarded / board_transition 事件
func (b *Battle) Settle() Settlement {
	s := Settlement{
		SessionID:       b.Session.ID,
		CampaignID:      b.Session.CampaignID,
		Outcome:         b.Session.Outcome,
		FactionID:       b.Session.FactionID,
		PreviousBoardID: b.Session.PreviousBoardID,
		CombatBoardID:   b.Session.BoardID,
	}
	turn := b.turn()

	defeated := 0
	xp := 0
	for _, c := range b.Roster.All() {
		if c.Side() == SideHostile && !c.IsAlive {
			defeated++
			xp += c.Level * XPPerLevel
		}
	}

	if s.Outcome == OutcomeVictory {
		var survivors []*Combatant
		for _, c := range b.Roster.All() {
			if c.IsAlive && c.IsPlayerControlled() && c.OwnerPlayerID != "" {
				survivors = append(survivors, c)
			}
		}
		sort.Slice(survivors, func(i, j int) bool { return survivors[i].ID < survivors[j].ID })

		tier := LootTierForXP(xp)
		for n, c := range survivors {
			grantXP := XPGrant{PlayerID: c.OwnerPlayerID, CombatantID: c.ID, CharacterID: c.CharacterID, XP: xp}
			s.XP = append(s.XP, grantXP)
			b.Events.Append(turn, EventXPAwarded, c.ID, map[string]any{
				"player_id": c.OwnerPlayerID,
				"xp":        xp,
			})

			loot := b.rollLoot(c, tier, n)
			s.Loot = append(s.Loot, loot)
			b.Events.Append(turn, EventLootAwarded, c.ID, map[string]any{
				"player_id": c.OwnerPlayerID,
				"tier":      string(loot.Tier),
				"name":      loot.Name,
				"stats":     loot.Stats,
			})
		}
	}

	if s.FactionID != "" {
		switch s.Outcome {
		case OutcomeVictory:
			s.ReputationDelta = ReputationOnVictory
		case OutcomeDefeat:
			s.ReputationDelta = ReputationOnDefeat
		}
	}

	s.Summary = fmt.Sprintf("combat %s ended in %s after %d turns; %d hostile(s) defeated, %d party member(s) standing",
		b.Session.ID, s.Outcome, turn+1, defeated, b.Roster.LivingCount(SideParty))

	if s.PreviousBoardID != "" {
		b.Events.Append(turn, EventBoardTransition, "", map[string]any{
			"from_board_id": s.CombatBoardID,
			"to_board_id":   s.PreviousBoardID,
		})
	}
	return s
}

func (b *Battle) rollLoot(c *Combatant, tier LootTier, n int) LootGrant {
	label := fmt.Sprintf("loot:%s:%s:%d", b.Session.ID, c.OwnerPlayerID, n)
	bounds := tierStatRange[tier]
	stats := map[string]int{
		"offense": b.rng.Intn(label+":offense", bounds[0], bounds[1]),
		"defense": b.rng.Intn(label+":defense", bounds[0], bounds[1]),
		"utility": b.rng.Intn(label+":utility", bounds[0], bounds[1]),
	}
	kinds := []string{"Blade", "Charm", "Mantle", "Sigil"}
	kind, _ := Pick(b.rng, label+":kind", kinds)
	return LootGrant{
		PlayerID:    c.OwnerPlayerID,
		CombatantID: c.ID,
		CharacterID: c.CharacterID,
		Tier:        tier,
		Name:        cases.Title(language.English).String(string(tier)) + " " + kind,
		Stats:       stats,
	}
}
