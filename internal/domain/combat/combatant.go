// Package combat 回合制战术战斗引擎。
//
// 引擎是纯内存计算：服务层在一个事务内加载会话、参战单位、地图和技能，
// 通过 Battle 完成一次 tick 或 use-skill，再把变化的单位、会话和新追加的事件写回。
package combat

import (
	"reflect"
	"sort"
)

// EntityType 参战单位类型
type EntityType string

const (
	EntityPlayer EntityType = "player"
	EntityNPC    EntityType = "npc"
	EntitySummon EntityType = "summon"
)

// Side 阵营
type Side string

const (
	SideParty   Side = "party"
	SideHostile Side = "hostile"
)

// Stats 六项核心属性
type Stats struct {
	Offense  int `json:"offense"`
	Defense  int `json:"defense"`
	Control  int `json:"control"`
	Support  int `json:"support"`
	Mobility int `json:"mobility"`
	Utility  int `json:"utility"`
}

// Combatant 参战单位
type Combatant struct {
	ID            string
	SessionID     string
	Name          string
	EntityType    EntityType
	OwnerPlayerID string // 玩家或玩家召唤物的所属用户，NPC 为空
	CharacterID   string
	Level         int
	Stats         Stats
	WeaponPower   int
	Armor         int // 护盾，先于 HP 吸收伤害
	Resist        int
	HP            int
	HPMax         int
	Power         int
	PowerMax      int
	Pos           Position
	IsAlive       bool
	Statuses      []StatusEntry
}

// Side 玩家和玩家拥有的召唤物属于 party，其余属于 hostile
func (c *Combatant) Side() Side {
	switch c.EntityType {
	case EntityPlayer:
		return SideParty
	case EntitySummon:
		if c.OwnerPlayerID != "" {
			return SideParty
		}
	}
	return SideHostile
}

// IsPlayerControlled 只有玩家角色需要等待玩家操作，召唤物由 tick 自动行动
func (c *Combatant) IsPlayerControlled() bool {
	return c.EntityType == EntityPlayer
}

// Clone 深拷贝
func (c *Combatant) Clone() *Combatant {
	cp := *c
	if c.Statuses != nil {
		cp.Statuses = make([]StatusEntry, len(c.Statuses))
		for i, s := range c.Statuses {
			cp.Statuses[i] = s.clone()
		}
	}
	return &cp
}

// Roster 当前会话的全部参战单位
type Roster struct {
	list     []*Combatant
	byID     map[string]*Combatant
	snapshot map[string]*Combatant
}

// NewRoster 构造 Roster 并记录快照，用于之后计算哪些单位发生了变化
func NewRoster(combatants []*Combatant) *Roster {
	r := &Roster{
		list:     combatants,
		byID:     make(map[string]*Combatant, len(combatants)),
		snapshot: make(map[string]*Combatant, len(combatants)),
	}
	for _, c := range combatants {
		r.byID[c.ID] = c
		r.snapshot[c.ID] = c.Clone()
	}
	return r
}

// Get 按 ID 查找
func (r *Roster) Get(id string) (*Combatant, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// All 全部单位（保持加载顺序）
func (r *Roster) All() []*Combatant {
	return r.list
}

// At 返回站在 p 上的存活单位
func (r *Roster) At(p Position) (*Combatant, bool) {
	for _, c := range r.list {
		if c.IsAlive && c.Pos == p {
			return c, true
		}
	}
	return nil, false
}

// DeadAt 返回倒在 p 上的单位（复活技能使用）
func (r *Roster) DeadAt(p Position) (*Combatant, bool) {
	for _, c := range r.list {
		if !c.IsAlive && c.Pos == p {
			return c, true
		}
	}
	return nil, false
}

// Occupied 格子上是否有存活单位
func (r *Roster) Occupied(p Position) bool {
	_, ok := r.At(p)
	return ok
}

// LivingOpponents 与 actor 敌对的存活单位，按 ID 排序保证确定性
func (r *Roster) LivingOpponents(actor *Combatant) []*Combatant {
	var out []*Combatant
	for _, c := range r.list {
		if c.IsAlive && c.Side() != actor.Side() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Allies 与 actor 同阵营、存活状态为 alive 的单位（含 actor 本身），按 ID 排序
func (r *Roster) Allies(actor *Combatant, alive bool) []*Combatant {
	var out []*Combatant
	for _, c := range r.list {
		if c.IsAlive == alive && c.Side() == actor.Side() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LivingCount 某阵营存活数量
func (r *Roster) LivingCount(side Side) int {
	n := 0
	for _, c := range r.list {
		if c.IsAlive && c.Side() == side {
			n++
		}
	}
	return n
}

// Changed 与加载时快照相比发生变化的单位
func (r *Roster) Changed() []*Combatant {
	var out []*Combatant
	for _, c := range r.list {
		if before, ok := r.snapshot[c.ID]; !ok || !reflect.DeepEqual(before, c) {
			out = append(out, c)
		}
	}
	return out
}

// InitiativeOrder 先攻顺序：机动高者优先，相同则按 ID
func InitiativeOrder(combatants []*Combatant) []string {
	sorted := make([]*Combatant, len(combatants))
	copy(sorted, combatants)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Stats.Mobility != sorted[j].Stats.Mobility {
			return sorted[i].Stats.Mobility > sorted[j].Stats.Mobility
		}
		return sorted[i].ID < sorted[j].ID
	})
	order := make([]string, len(sorted))
	for i, c := range sorted {
		order[i] = c.ID
	}
	return order
}
