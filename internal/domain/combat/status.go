package combat

import "strings"

// 保留的状态 ID
const (
	CooldownPrefix = "cd:"
	BarrierPrefix  = "barrier:"
	CritBonusID    = "crit_bonus"
)

// 状态 payload 中引擎识别的键
const (
	DataDot    = "dot"    // 回合开始时造成的伤害
	DataHot    = "hot"    // 回合开始时恢复的生命
	DataStun   = "stun"   // 为 true 时跳过行动
	DataArmor  = "armor"  // 护盾来源记录的剩余护盾量
	DataAmount = "amount" // 暴击加成数值
)

// StatusEntry 状态账本中的一条记录
type StatusEntry struct {
	ID          string         `json:"id"`
	ExpiresTurn *int           `json:"expires_turn"` // nil 表示直到被移除
	Stacks      int            `json:"stacks"`
	Data        map[string]any `json:"data,omitempty"`
}

func (s StatusEntry) clone() StatusEntry {
	cp := s
	if s.ExpiresTurn != nil {
		v := *s.ExpiresTurn
		cp.ExpiresTurn = &v
	}
	if s.Data != nil {
		cp.Data = make(map[string]any, len(s.Data))
		for k, v := range s.Data {
			cp.Data[k] = v
		}
	}
	return cp
}

// Expired expires_turn <= turn 即视为过期
func (s StatusEntry) Expired(turn int) bool {
	return s.ExpiresTurn != nil && *s.ExpiresTurn <= turn
}

// IsCooldown 冷却条目
func (s StatusEntry) IsCooldown() bool {
	return strings.HasPrefix(s.ID, CooldownPrefix)
}

// Int 读取 payload 中的整数值，JSON 反序列化得到的 float64 也能识别
func (s StatusEntry) Int(key string) int {
	switch v := s.Data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Bool 读取 payload 中的布尔值
func (s StatusEntry) Bool(key string) bool {
	v, _ := s.Data[key].(bool)
	return v
}

// CooldownID 技能冷却条目 ID
func CooldownID(skillID string) string {
	return CooldownPrefix + skillID
}

// BarrierID 护盾来源条目 ID
func BarrierID(skillID string) string {
	return BarrierPrefix + skillID
}

// NormalizeStatusID 统一状态 ID 的写法（"Burning Ground" → "burning_ground"）
func NormalizeStatusID(id string) string {
	if strings.Contains(id, ":") {
		return id
	}
	return normalizeKey(id)
}

var keyReplacer = strings.NewReplacer(" ", "_", "-", "_")

// normalizeKey 小写并把空格、连字符统一为下划线
func normalizeKey(s string) string {
	return keyReplacer.Replace(strings.ToLower(strings.TrimSpace(s)))
}

// ExpiresAt 把持续回合数换算为过期回合，duration <= 0 表示永久
func ExpiresAt(turn, duration int) *int {
	if duration <= 0 {
		return nil
	}
	v := turn + duration
	return &v
}

// FindStatus 查找状态
func (c *Combatant) FindStatus(id string) (StatusEntry, bool) {
	for _, s := range c.Statuses {
		if s.ID == id {
			return s, true
		}
	}
	return StatusEntry{}, false
}

// ApplyStatus 同 ID 的条目会被整体替换，不做隐式叠加
func (c *Combatant) ApplyStatus(entry StatusEntry) {
	if entry.Stacks <= 0 {
		entry.Stacks = 1
	}
	for i, s := range c.Statuses {
		if s.ID == entry.ID {
			c.Statuses[i] = entry
			return
		}
	}
	c.Statuses = append(c.Statuses, entry)
}

// RemoveStatus 移除指定状态
func (c *Combatant) RemoveStatus(id string) (StatusEntry, bool) {
	for i, s := range c.Statuses {
		if s.ID == id {
			c.Statuses = append(c.Statuses[:i], c.Statuses[i+1:]...)
			return s, true
		}
	}
	return StatusEntry{}, false
}

// Cleanse ids 为 nil 时移除除冷却外的全部状态；否则只移除列出的 ID。
// 冷却条目在两种情况下都不会被移除。
func (c *Combatant) Cleanse(ids []string) []string {
	var want map[string]bool
	if ids != nil {
		want = make(map[string]bool, len(ids))
		for _, id := range ids {
			want[NormalizeStatusID(id)] = true
		}
	}

	var removed []string
	kept := c.Statuses[:0]
	for _, s := range c.Statuses {
		if s.IsCooldown() || (want != nil && !want[s.ID]) {
			kept = append(kept, s)
			continue
		}
		removed = append(removed, s.ID)
		c.dropBarrierArmor(s)
	}
	c.Statuses = kept
	return removed
}

// CooldownRemaining 技能剩余冷却回合，0 表示可用
func (c *Combatant) CooldownRemaining(skillID string, turn int) int {
	s, ok := c.FindStatus(CooldownID(skillID))
	if !ok || s.Expired(turn) {
		return 0
	}
	if s.ExpiresTurn == nil {
		return 1
	}
	return *s.ExpiresTurn - turn
}

// SetCooldown 记录冷却，cooldownTurns <= 0 不写入
func (c *Combatant) SetCooldown(skillID string, turn, cooldownTurns int) {
	if cooldownTurns <= 0 {
		return
	}
	c.ApplyStatus(StatusEntry{ID: CooldownID(skillID), ExpiresTurn: ExpiresAt(turn, cooldownTurns)})
}

// ConsumeCritBonus 取出并移除暴击加成，只作用于一次伤害结算
func (c *Combatant) ConsumeCritBonus(turn int) int {
	s, ok := c.FindStatus(CritBonusID)
	if !ok {
		return 0
	}
	c.RemoveStatus(CritBonusID)
	if s.Expired(turn) {
		return 0
	}
	return s.Int(DataAmount)
}

// IsStunned 存在未过期的眩晕状态
func (c *Combatant) IsStunned(turn int) bool {
	for _, s := range c.Statuses {
		if !s.Expired(turn) && s.Bool(DataStun) {
			return true
		}
	}
	return false
}

// ExpireStatuses 移除所有已过期条目并返回它们
func (c *Combatant) ExpireStatuses(turn int) []StatusEntry {
	var expired []StatusEntry
	kept := c.Statuses[:0]
	for _, s := range c.Statuses {
		if s.Expired(turn) {
			expired = append(expired, s)
			c.dropBarrierArmor(s)
			continue
		}
		kept = append(kept, s)
	}
	c.Statuses = kept
	return expired
}

// dropBarrierArmor 护盾来源被移除时扣掉剩余的护盾量
func (c *Combatant) dropBarrierArmor(s StatusEntry) {
	if !strings.HasPrefix(s.ID, BarrierPrefix) {
		return
	}
	c.Armor -= min(s.Int(DataArmor), c.Armor)
}

// absorbBarrier 护盾吸收伤害后同步减少各来源记录的剩余量
func (c *Combatant) absorbBarrier(absorbed int) {
	for i := range c.Statuses {
		if absorbed <= 0 {
			return
		}
		s := &c.Statuses[i]
		if !strings.HasPrefix(s.ID, BarrierPrefix) {
			continue
		}
		left := s.Int(DataArmor)
		take := min(left, absorbed)
		if s.Data == nil {
			s.Data = map[string]any{}
		}
		s.Data[DataArmor] = left - take
		absorbed -= take
	}
}
