package combat

import "sort"

// BossPhase 阶段定义：HP 比例 <= HPBelowPct 时进入该阶段
type BossPhase struct {
	Phase      int
	HPBelowPct float64
	SkillPool  []string
}

// BossInstance 会话中的一个 boss
type BossInstance struct {
	SessionID    string
	CombatantID  string
	CurrentPhase int
	Phases       []BossPhase
}

// NewBossInstance 阶段按编号排序，初始阶段不低于最小编号
func NewBossInstance(sessionID, combatantID string, current int, phases []BossPhase) *BossInstance {
	sorted := make([]BossPhase, len(phases))
	copy(sorted, phases)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Phase < sorted[j].Phase })
	if len(sorted) > 0 && current < sorted[0].Phase {
		current = sorted[0].Phase
	}
	return &BossInstance{SessionID: sessionID, CombatantID: combatantID, CurrentPhase: current, Phases: sorted}
}

// Evaluate 进入满足阈值的最高阶段，阶段只增不减
func (b *BossInstance) Evaluate(hp, hpMax int) (int, bool) {
	if hpMax <= 0 {
		return b.CurrentPhase, false
	}
	frac := float64(hp) / float64(hpMax)
	target := b.CurrentPhase
	for _, p := range b.Phases {
		if p.Phase > target && frac <= p.HPBelowPct {
			target = p.Phase
		}
	}
	if target == b.CurrentPhase {
		return target, false
	}
	b.CurrentPhase = target
	return target, true
}

// SkillPool 当前阶段的技能池；当前阶段没有配置时沿用更早阶段
func (b *BossInstance) SkillPool() []string {
	var pool []string
	for _, p := range b.Phases {
		if p.Phase > b.CurrentPhase {
			break
		}
		if len(p.SkillPool) > 0 {
			pool = p.SkillPool
		}
	}
	return pool
}
