package combat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// EffectKind 效果类型，同时决定结算顺序
type EffectKind int

const (
	KindMove EffectKind = iota
	KindTeleport
	KindPull
	KindPush
	KindBarrier
	KindSelfDebuff
	KindBonus
	KindArmorShred
	KindDamage
	KindStatus
	KindPowerDrain
	KindHeal
	KindCleanse
	KindRevive
	KindPowerGain
)

var effectKindNames = [...]string{
	"move", "teleport", "pull", "push", "barrier", "self_debuff", "bonus", "armor_shred",
	"damage", "status", "power_drain", "heal", "cleanse", "revive", "power_gain",
}

func (k EffectKind) String() string {
	if int(k) < len(effectKindNames) {
		return effectKindNames[k]
	}
	return fmt.Sprintf("effect(%d)", int(k))
}

// Effect 技能效果。只有本包内的类型能实现该接口，新增效果必须同时补上结算逻辑
type Effect interface {
	Kind() EffectKind
	sealed()
}

// MoveEffect 朝目标点冲刺
type MoveEffect struct {
	Tiles int `json:"tiles"`
}

// TeleportEffect 传送到目标格
type TeleportEffect struct{}

// PullEffect 把目标拉向施法者
type PullEffect struct {
	Tiles int `json:"tiles"`
}

// PushEffect 把目标推离施法者
type PushEffect struct {
	Tiles int `json:"tiles"`
}

// BarrierEffect 增加护盾并记录来源
type BarrierEffect struct {
	Amount   int `json:"amount"`
	Duration int `json:"duration"`
}

// SelfDebuffEffect 施法者付出的代价
type SelfDebuffEffect struct {
	StatusID string         `json:"status_id"`
	Duration int            `json:"duration"`
	Stacks   int            `json:"stacks,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// BonusEffect 暴击加成，只作用于下一次伤害结算。
// Duration 按施法者自己的回合计，0 表示直到被消耗
type BonusEffect struct {
	CritBonus int `json:"crit_bonus"`
	Duration  int `json:"duration"`
}

type ArmorShredEffect struct {
	Amount int `json:"amount"`
}

type DamageEffect struct {
	Multiplier float64 `json:"multiplier"`
}

// StatusEffect 按概率对每个目标施加状态
type StatusEffect struct {
	StatusID string         `json:"status_id"`
	Duration int            `json:"duration"`
	Chance   float64        `json:"chance,omitempty"`
	Stacks   int            `json:"stacks,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

type PowerDrainEffect struct {
	Amount int `json:"amount"`
}

// HealEffect 治疗量 = amount + support * multiplier
type HealEffect struct {
	Amount     int     `json:"amount"`
	Multiplier float64 `json:"multiplier,omitempty"`
}

// CleanseEffect IDs 为 nil 时移除全部（冷却除外）
type CleanseEffect struct {
	IDs []string `json:"ids"`
}

// ReviveEffect 复活后的 HP 取 hp_floor 与 hp_max*pct 中较大者
type ReviveEffect struct {
	HPFloor int     `json:"hp_floor"`
	Pct     float64 `json:"pct,omitempty"`
}

type PowerGainEffect struct {
	Amount int `json:"amount"`
}

func (*MoveEffect) Kind() EffectKind       { return KindMove }
func (*TeleportEffect) Kind() EffectKind   { return KindTeleport }
func (*PullEffect) Kind() EffectKind       { return KindPull }
func (*PushEffect) Kind() EffectKind       { return KindPush }
func (*BarrierEffect) Kind() EffectKind    { return KindBarrier }
func (*SelfDebuffEffect) Kind() EffectKind { return KindSelfDebuff }
func (*BonusEffect) Kind() EffectKind      { return KindBonus }
func (*ArmorShredEffect) Kind() EffectKind { return KindArmorShred }
func (*DamageEffect) Kind() EffectKind     { return KindDamage }
func (*StatusEffect) Kind() EffectKind     { return KindStatus }
func (*PowerDrainEffect) Kind() EffectKind { return KindPowerDrain }
func (*HealEffect) Kind() EffectKind       { return KindHeal }
func (*CleanseEffect) Kind() EffectKind    { return KindCleanse }
func (*ReviveEffect) Kind() EffectKind     { return KindRevive }
func (*PowerGainEffect) Kind() EffectKind  { return KindPowerGain }

func (*MoveEffect) sealed()       {}
func (*TeleportEffect) sealed()   {}
func (*PullEffect) sealed()       {}
func (*PushEffect) sealed()       {}
func (*BarrierEffect) sealed()    {}
func (*SelfDebuffEffect) sealed() {}
func (*BonusEffect) sealed()      {}
func (*ArmorShredEffect) sealed() {}
func (*DamageEffect) sealed()     {}
func (*StatusEffect) sealed()     {}
func (*PowerDrainEffect) sealed() {}
func (*HealEffect) sealed()       {}
func (*CleanseEffect) sealed()    {}
func (*ReviveEffect) sealed()     {}
func (*PowerGainEffect) sealed()  {}

// effectBag 存储层的 JSON 形态：每种效果一个可选字段
type effectBag struct {
	Move       *MoveEffect       `json:"move,omitempty"`
	Teleport   *TeleportEffect   `json:"teleport,omitempty"`
	Pull       *PullEffect       `json:"pull,omitempty"`
	Push       *PushEffect       `json:"push,omitempty"`
	Barrier    *BarrierEffect    `json:"barrier,omitempty"`
	SelfDebuff *SelfDebuffEffect `json:"self_debuff,omitempty"`
	Bonus      *BonusEffect      `json:"bonus,omitempty"`
	ArmorShred *ArmorShredEffect `json:"armor_shred,omitempty"`
	Damage     *DamageEffect     `json:"damage,omitempty"`
	Status     *StatusEffect     `json:"status,omitempty"`
	PowerDrain *PowerDrainEffect `json:"power_drain,omitempty"`
	Heal       *HealEffect       `json:"heal,omitempty"`
	Cleanse    *CleanseEffect    `json:"cleanse,omitempty"`
	Revive     *ReviveEffect     `json:"revive,omitempty"`
	PowerGain  *PowerGainEffect  `json:"power_gain,omitempty"`
}

// DecodeEffects 解析效果 JSON，未知字段直接报错
func DecodeEffects(raw []byte) ([]Effect, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var bag effectBag
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&bag); err != nil {
		return nil, fmt.Errorf("decode skill effects: %w", err)
	}

	candidates := []Effect{
		bag.Move, bag.Teleport, bag.Pull, bag.Push, bag.Barrier, bag.SelfDebuff, bag.Bonus,
		bag.ArmorShred, bag.Damage, bag.Status, bag.PowerDrain, bag.Heal, bag.Cleanse,
		bag.Revive, bag.PowerGain,
	}
	var effects []Effect
	for _, e := range candidates {
		if isNilEffect(e) {
			continue
		}
		effects = append(effects, e)
	}

	for _, e := range effects {
		switch v := e.(type) {
		case *StatusEffect:
			if v.StatusID == "" {
				return nil, fmt.Errorf("decode skill effects: status.status_id is required")
			}
			v.StatusID = NormalizeStatusID(v.StatusID)
		case *SelfDebuffEffect:
			if v.StatusID == "" {
				return nil, fmt.Errorf("decode skill effects: self_debuff.status_id is required")
			}
			v.StatusID = NormalizeStatusID(v.StatusID)
		}
	}
	return effects, nil
}

// EncodeEffects 序列化回存储形态
func EncodeEffects(effects []Effect) ([]byte, error) {
	var bag effectBag
	for _, e := range effects {
		switch v := e.(type) {
		case *MoveEffect:
			bag.Move = v
		case *TeleportEffect:
			bag.Teleport = v
		case *PullEffect:
			bag.Pull = v
		case *PushEffect:
			bag.Push = v
		case *BarrierEffect:
			bag.Barrier = v
		case *SelfDebuffEffect:
			bag.SelfDebuff = v
		case *BonusEffect:
			bag.Bonus = v
		case *ArmorShredEffect:
			bag.ArmorShred = v
		case *DamageEffect:
			bag.Damage = v
		case *StatusEffect:
			bag.Status = v
		case *PowerDrainEffect:
			bag.PowerDrain = v
		case *HealEffect:
			bag.Heal = v
		case *CleanseEffect:
			bag.Cleanse = v
		case *ReviveEffect:
			bag.Revive = v
		case *PowerGainEffect:
			bag.PowerGain = v
		}
	}
	return json.Marshal(bag)
}

// orderedEffects 按固定结算顺序返回效果副本
func orderedEffects(effects []Effect) []Effect {
	out := make([]Effect, 0, len(effects))
	for _, e := range effects {
		if !isNilEffect(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Kind() < out[j].Kind() })
	return out
}

func findEffect[T Effect](effects []Effect) (T, bool) {
	for _, e := range effects {
		if v, ok := e.(T); ok && !isNilEffect(e) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// isNilEffect 过滤装进接口的 nil 指针
func isNilEffect(e Effect) bool {
	if e == nil {
		return true
	}
	switch v := e.(type) {
	case *MoveEffect:
		return v == nil
	case *TeleportEffect:
		return v == nil
	case *PullEffect:
		return v == nil
	case *PushEffect:
		return v == nil
	case *BarrierEffect:
		return v == nil
	case *SelfDebuffEffect:
		return v == nil
	case *BonusEffect:
		return v == nil
	case *ArmorShredEffect:
		return v == nil
	case *DamageEffect:
		return v == nil
	case *StatusEffect:
		return v == nil
	case *PowerDrainEffect:
		return v == nil
	case *HealEffect:
		return v == nil
	case *CleanseEffect:
		return v == nil
	case *ReviveEffect:
		return v == nil
	case *PowerGainEffect:
		return v == nil
	}
	return false
}
