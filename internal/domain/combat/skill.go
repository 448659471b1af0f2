package combat

// SkillKind 技能类型
type SkillKind string

const (
	SkillPassive  SkillKind = "passive"
	SkillActive   SkillKind = "active"
	SkillUltimate SkillKind = "ultimate"
)

// TargetingMode 技能声明的目标方式
type TargetingMode string

const (
	TargetSelf   TargetingMode = "self"
	TargetSingle TargetingMode = "single"
	TargetTile   TargetingMode = "tile"
	TargetArea   TargetingMode = "area"
	TargetLine   TargetingMode = "line"
	TargetCone   TargetingMode = "cone"
)

// Affects AOE 影响的阵营
type Affects string

const (
	AffectsHostile Affects = "hostile"
	AffectsAllies  Affects = "allies"
	AffectsAll     Affects = "all"
)

// 保留的技能 key
const (
	SkillKeyBasicAttack = "basic_attack"
	SkillKeyExecute     = "execute"
	SkillKeyCleave      = "cleave"
)

// 处决技能在目标 HP 低于该比例时伤害翻三倍
const (
	ExecuteThreshold  = 0.30
	ExecuteMultiplier = 3.0
)

// TargetingParams 目标参数
type TargetingParams struct {
	Shape         TargetingMode `json:"shape,omitempty"` // 为空时与 mode 相同
	Metric        Metric        `json:"metric,omitempty"`
	Radius        int           `json:"radius,omitempty"`
	Length        int           `json:"length,omitempty"`
	Width         int           `json:"width,omitempty"`
	RequiresLOS   bool          `json:"requires_los,omitempty"`
	BlocksOnWalls bool          `json:"blocks_on_walls,omitempty"`
	FriendlyFire  bool          `json:"friendly_fire,omitempty"`
	IncludeSelf   bool          `json:"include_self,omitempty"`
	Affects       Affects       `json:"affects,omitempty"`
}

// Skill 技能定义
type Skill struct {
	ID            string
	Key           string
	Name          string
	CharacterID   string // NPC 技能为空
	Kind          SkillKind
	Targeting     TargetingMode
	Params        TargetingParams
	RangeTiles    int
	CooldownTurns int
	Cost          int
	Effects       []Effect
}

// Usable 只有主动和终极技能可以在战斗中使用
func (s *Skill) Usable() bool {
	return s.Kind == SkillActive || s.Kind == SkillUltimate
}

// Shape 实际的范围形状
func (s *Skill) Shape() TargetingMode {
	if s.Params.Shape != "" {
		return s.Params.Shape
	}
	return s.Targeting
}

// Metric 距离度量，默认 chebyshev
func (s *Skill) Metric() Metric {
	if s.Params.Metric == "" {
		return MetricChebyshev
	}
	return s.Params.Metric
}

// Affects friendly_fire 等同于 all
func (s *Skill) Affects() Affects {
	if s.Params.FriendlyFire {
		return AffectsAll
	}
	if s.Params.Affects == "" {
		return AffectsHostile
	}
	return s.Params.Affects
}

// Revives 复活技能以倒下的单位为目标
func (s *Skill) Revives() bool {
	_, ok := findEffect[*ReviveEffect](s.Effects)
	return ok
}

// NeedsTargets 存在作用于目标的效果时，范围内没有目标视为冲突
func (s *Skill) NeedsTargets() bool {
	for _, e := range s.Effects {
		switch e.(type) {
		case *DamageEffect, *StatusEffect, *PowerDrainEffect, *HealEffect,
			*CleanseEffect, *ReviveEffect, *ArmorShredEffect, *PullEffect, *PushEffect:
			return true
		}
	}
	return false
}

// BasicAttack NPC 没有可用技能时的普通攻击
func BasicAttack() *Skill {
	return &Skill{
		ID:         SkillKeyBasicAttack,
		Key:        SkillKeyBasicAttack,
		Name:       "Basic Attack",
		Kind:       SkillActive,
		Targeting:  TargetSingle,
		RangeTiles: 1,
		Effects:    []Effect{&DamageEffect{Multiplier: 1.0}},
	}
}

// BuiltinSkill 技能目录中缺失保留 key 时使用的默认定义
func BuiltinSkill(key string) (*Skill, bool) {
	switch key {
	case SkillKeyBasicAttack:
		return BasicAttack(), true
	case SkillKeyExecute:
		s := BasicAttack()
		s.ID, s.Key, s.Name = SkillKeyExecute, SkillKeyExecute, "Execute"
		return s, true
	case SkillKeyCleave:
		s := BasicAttack()
		s.ID, s.Key, s.Name = SkillKeyCleave, SkillKeyCleave, "Cleave"
		s.Targeting = TargetArea
		return s, true
	}
	return nil, false
}
