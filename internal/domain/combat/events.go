package combat

// EventType 战斗事件类型
type EventType string

const (
	EventSkillUsed       EventType = "skill_used"
	EventMoved           EventType = "moved"
	EventTeleport        EventType = "teleport"
	EventPull            EventType = "pull"
	EventPush            EventType = "push"
	EventBarrier         EventType = "barrier"
	EventDamage          EventType = "damage"
	EventDeath           EventType = "death"
	EventStatusApplied   EventType = "status_applied"
	EventStatusRoll      EventType = "status_roll"
	EventStatusExpired   EventType = "status_expired"
	EventHealed          EventType = "healed"
	EventCleanse         EventType = "cleanse"
	EventRevive          EventType = "revive"
	EventPowerDrain      EventType = "power_drain"
	EventPowerGain       EventType = "power_gain"
	EventArmorShred      EventType = "armor_shred"
	EventTurnStart       EventType = "turn_start"
	EventTurnEnd         EventType = "turn_end"
	EventTurnSkipped     EventType = "turn_skipped"
	EventPhaseShift      EventType = "phase_shift"
	EventCombatEnd       EventType = "combat_end"
	EventXPAwarded       EventType = "xp_awarded"
	EventLootAwarded     EventType = "loot_awarded"
	EventBoardTransition EventType = "board_transition"
)

// Event 只追加的战斗事件，按 (turn_index, sequence) 排序
type Event struct {
	SessionID string         `json:"combat_session_id"`
	TurnIndex int            `json:"turn_index"`
	Sequence  int64          `json:"sequence"`
	Type      EventType      `json:"event_type"`
	ActorID   string         `json:"actor_id,omitempty"`
	Payload   map[string]any `json:"payload"`
}

// EventLog 本次请求产生的事件。sequence 在会话内单调递增，从已持久化的最大值之后继续
type EventLog struct {
	sessionID string
	lastSeq   int64
	events    []Event
}

// NewEventLog lastSeq 为已持久化事件的最大 sequence
func NewEventLog(sessionID string, lastSeq int64) *EventLog {
	return &EventLog{sessionID: sessionID, lastSeq: lastSeq}
}

// Append 追加一条事件
func (l *EventLog) Append(turn int, typ EventType, actorID string, payload map[string]any) Event {
	if payload == nil {
		payload = map[string]any{}
	}
	l.lastSeq++
	ev := Event{
		SessionID: l.sessionID,
		TurnIndex: turn,
		Sequence:  l.lastSeq,
		Type:      typ,
		ActorID:   actorID,
		Payload:   payload,
	}
	l.events = append(l.events, ev)
	return ev
}

// Events 本次追加的事件
func (l *EventLog) Events() []Event {
	return l.events
}

// LastSequence 当前最大 sequence
func (l *EventLog) LastSequence() int64 {
	return l.lastSeq
}

// OfType 过滤指定类型（测试和结算使用）
func (l *EventLog) OfType(typ EventType) []Event {
	var out []Event
	for _, e := range l.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
