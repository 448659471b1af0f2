package service

import (
	"sort"

	"tsu-tactics/internal/domain/combat"
)

// ParticipantKind 开战时的参战者来源
type ParticipantKind string

const (
	ParticipantCharacter ParticipantKind = "character"
	ParticipantNPC       ParticipantKind = "npc"
)

// ParticipantInput 一个参战者及其初始位置
type ParticipantInput struct {
	Kind  ParticipantKind
	RefID string // 角色 ID 或 NPC 模板 ID
	Name  string // 为空时使用角色卡/模板名称
	X     int
	Y     int
}

// StartCombatRequest 开始战斗
type StartCombatRequest struct {
	CampaignID   string
	UserID       string
	BoardID      string
	FactionID    string
	Seed         *int64
	Participants []ParticipantInput
}

// TickRequest 推进 NPC 回合
type TickRequest struct {
	CampaignID string
	SessionID  string
	UserID     string
	MaxSteps   int
}

// TickResponse tick 结果
type TickResponse struct {
	OK                   bool   `json:"ok"`
	Ticks                int    `json:"ticks"`
	Ended                bool   `json:"ended"`
	Outcome              string `json:"outcome,omitempty"`
	RequiresPlayerAction bool   `json:"requires_player_action"`
	CurrentTurnIndex     int    `json:"current_turn_index"`
	NextActorCombatantID string `json:"next_actor_combatant_id"`
}

// UseSkillRequest 施放技能
type UseSkillRequest struct {
	CampaignID string
	SessionID  string
	UserID     string
	ActorID    string
	SkillID    string
	Target     combat.TargetRequest
}

// UseSkillResponse 施放结果。战斗结束时只有 ended 和 outcome
type UseSkillResponse struct {
	OK                   bool   `json:"ok"`
	NextTurnIndex        *int   `json:"next_turn_index,omitempty"`
	NextActorCombatantID string `json:"next_actor_combatant_id,omitempty"`
	Ended                bool   `json:"ended,omitempty"`
	Outcome              string `json:"outcome,omitempty"`
}

// CombatantView 参战单位快照
type CombatantView struct {
	ID            string               `json:"id"`
	Name          string               `json:"name"`
	EntityType    string               `json:"entity_type"`
	Side          string               `json:"side"`
	OwnerPlayerID string               `json:"owner_player_id,omitempty"`
	CharacterID   string               `json:"character_id,omitempty"`
	Level         int                  `json:"level"`
	Stats         combat.Stats         `json:"stats"`
	HP            int                  `json:"hp"`
	HPMax         int                  `json:"hp_max"`
	Armor         int                  `json:"armor"`
	Power         int                  `json:"power"`
	PowerMax      int                  `json:"power_max"`
	X             int                  `json:"x"`
	Y             int                  `json:"y"`
	IsAlive       bool                 `json:"is_alive"`
	Statuses      []combat.StatusEntry `json:"statuses"`
}

// BossView boss 当前阶段
type BossView struct {
	CombatantID  string `json:"combatant_id"`
	CurrentPhase int    `json:"current_phase"`
}

// CombatState 会话状态快照
type CombatState struct {
	SessionID        string          `json:"combat_session_id"`
	CampaignID       string          `json:"campaign_id"`
	Status           string          `json:"status"`
	Outcome          string          `json:"outcome,omitempty"`
	Seed             int64           `json:"seed"`
	BoardID          string          `json:"board_id"`
	CurrentTurnIndex int             `json:"current_turn_index"`
	CurrentActorID   string          `json:"current_actor_combatant_id,omitempty"`
	TurnOrder        []string        `json:"turn_order"`
	Combatants       []CombatantView `json:"combatants"`
	Bosses           []BossView      `json:"bosses,omitempty"`
}

// EventPage 事件分页，NextAfter 作为下一页的 after 参数
type EventPage struct {
	Events    []combat.Event `json:"events"`
	NextAfter int64          `json:"next_after"`
}

func newCombatantView(c *combat.Combatant) CombatantView {
	statuses := c.Statuses
	if statuses == nil {
		statuses = []combat.StatusEntry{}
	}
	return CombatantView{
		ID:            c.ID,
		Name:          c.Name,
		EntityType:    string(c.EntityType),
		Side:          string(c.Side()),
		OwnerPlayerID: c.OwnerPlayerID,
		CharacterID:   c.CharacterID,
		Level:         c.Level,
		Stats:         c.Stats,
		HP:            c.HP,
		HPMax:         c.HPMax,
		Armor:         c.Armor,
		Power:         c.Power,
		PowerMax:      c.PowerMax,
		X:             c.Pos.X,
		Y:             c.Pos.Y,
		IsAlive:       c.IsAlive,
		Statuses:      statuses,
	}
}

// newCombatState 由 Battle 组装快照
func newCombatState(b *combat.Battle) *CombatState {
	state := &CombatState{
		SessionID:        b.Session.ID,
		CampaignID:       b.Session.CampaignID,
		Status:           string(b.Session.Status),
		Outcome:          string(b.Session.Outcome),
		Seed:             b.Session.Seed,
		BoardID:          b.Session.BoardID,
		CurrentTurnIndex: b.Session.CurrentTurnIndex,
		TurnOrder:        b.TurnOrder,
	}
	if b.Session.Active() {
		if actor, ok := b.CurrentActor(); ok {
			state.CurrentActorID = actor.ID
		}
	}
	for _, c := range b.Roster.All() {
		state.Combatants = append(state.Combatants, newCombatantView(c))
	}
	for _, boss := range b.Bosses {
		state.Bosses = append(state.Bosses, BossView{CombatantID: boss.CombatantID, CurrentPhase: boss.CurrentPhase})
	}
	sort.Slice(state.Bosses, func(i, j int) bool { return state.Bosses[i].CombatantID < state.Bosses[j].CombatantID })
	return state
}
