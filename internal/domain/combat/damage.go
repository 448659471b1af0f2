package combat

import "math"

// 伤害公式参数
const (
	VarianceSpread     = 0.10
	BaseCritChance     = 0.05
	CritChancePerPoint = 0.01
	MaxCritChance      = 0.5
	CritMultiplier     = 1.5
	ResistFactor       = 5.0

	DefaultStatusChance = 0.5
	StatusChancePerPt   = 0.02
	MinStatusChance     = 0.05
	MaxStatusChance     = 0.95
)

// DamageRoll 一次伤害结算的全部中间量，写入事件供前端播放
type DamageRoll struct {
	Label      string  `json:"label"`
	Attack     float64 `json:"attack"`
	Multiplier float64 `json:"multiplier"`
	Base       float64 `json:"base"`
	Variance   float64 `json:"variance"`
	CritChance float64 `json:"crit_chance"`
	CritRoll   float64 `json:"crit_roll"`
	Crit       bool    `json:"crit"`
	Mitigation float64 `json:"mitigation"`
	Final      int     `json:"final"`
}

// AttackPower 攻击力
func AttackPower(actor *Combatant) float64 {
	return float64(actor.Level)*2 +
		float64(actor.Stats.Offense)*1.5 +
		float64(actor.WeaponPower) +
		float64(actor.Stats.Mobility)*0.25
}

// ResolveDamage 计算伤害数值，不修改任何单位
func ResolveDamage(rng RNG, label string, actor, target *Combatant, multiplier float64, critBonus int) DamageRoll {
	if multiplier <= 0 {
		multiplier = 1
	}
	roll := DamageRoll{Label: label, Multiplier: multiplier}
	roll.Attack = AttackPower(actor)
	roll.Base = roll.Attack * multiplier
	roll.Variance = (rng.Float(label+":var")*2 - 1) * VarianceSpread

	roll.CritChance = clamp(BaseCritChance+float64(actor.Stats.Utility+critBonus)*CritChancePerPoint, 0, MaxCritChance)
	roll.CritRoll = rng.Float(label + ":crit")
	roll.Crit = roll.CritRoll < roll.CritChance
	critMult := 1.0
	if roll.Crit {
		critMult = CritMultiplier
	}

	roll.Mitigation = 100 / (100 + float64(max(target.Resist, 0))*ResistFactor)
	roll.Final = max(1, int(math.Round(roll.Base*(1+roll.Variance)*critMult*roll.Mitigation)))
	return roll
}

// Absorption 护盾吸收结果
type Absorption struct {
	Absorbed int  `json:"absorbed"`
	HPLoss   int  `json:"hp_loss"`
	Killed   bool `json:"killed"`
}

// TakeDamage 护盾先吸收，剩余部分扣 HP；HP <= 0 时标记死亡
func (c *Combatant) TakeDamage(amount int) Absorption {
	if amount <= 0 || !c.IsAlive {
		return Absorption{}
	}
	absorbed := min(c.Armor, amount)
	c.Armor -= absorbed
	c.absorbBarrier(absorbed)

	loss := amount - absorbed
	c.HP -= loss
	res := Absorption{Absorbed: absorbed, HPLoss: loss}
	if c.HP <= 0 {
		c.HP = 0
		c.IsAlive = false
		res.Killed = true
	}
	return res
}

// Heal 恢复生命，返回实际恢复量
func (c *Combatant) Heal(amount int) int {
	if amount <= 0 || !c.IsAlive {
		return 0
	}
	healed := min(amount, c.HPMax-c.HP)
	c.HP += healed
	return healed
}

// StatusChance 状态命中率
func StatusChance(base float64, actor, target *Combatant) float64 {
	if base <= 0 {
		base = DefaultStatusChance
	}
	delta := float64(actor.Stats.Control+actor.Stats.Utility-target.Resist) * StatusChancePerPt
	return clamp(base+delta, MinStatusChance, MaxStatusChance)
}

// RollStatus 每个 (label, status, target) 掷一次
func RollStatus(rng RNG, baseLabel, statusID, targetID string, chance float64) (float64, bool) {
	roll := rng.Float("status:" + baseLabel + ":" + statusID + ":" + targetID)
	return roll, roll < chance
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
