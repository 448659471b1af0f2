package combat

import (
	"context"
	"fmt"
	"time"

	"tsu-tactics/internal/pkg/xerrors"

	"github.com/looplab/fsm"
)

// Battle 一次请求内加载的完整战斗状态
type Battle struct {
	Session   *Session
	Board     *Board
	Roster    *Roster
	TurnOrder []string
	Bosses    map[string]*BossInstance
	// NPCSkills boss 技能池引用的技能定义，按 key 索引
	NPCSkills map[string]*Skill
	Events    *EventLog

	rng       RNG
	lifecycle *fsm.FSM
	// phaseChanged 本次请求中阶段发生变化的 boss
	phaseChanged map[string]bool
}

// NewBattle 组装 Battle
func NewBattle(session *Session, board *Board, roster *Roster, order []string, events *EventLog) *Battle {
	if board == nil {
		board = NewBoard("", 0, 0, nil)
	}
	if events == nil {
		events = NewEventLog(session.ID, 0)
	}
	return &Battle{
		Session:      session,
		Board:        board,
		Roster:       roster,
		TurnOrder:    order,
		Bosses:       make(map[string]*BossInstance),
		NPCSkills:    make(map[string]*Skill),
		Events:       events,
		rng:          RNG{Seed: session.Seed},
		lifecycle:    newLifecycle(session, time.Now),
		phaseChanged: make(map[string]bool),
	}
}

// AddBoss 关联 boss 数据
func (b *Battle) AddBoss(boss *BossInstance) {
	b.Bosses[boss.CombatantID] = boss
}

// ChangedBosses 本次请求中阶段发生变化的 boss
func (b *Battle) ChangedBosses() []*BossInstance {
	var out []*BossInstance
	for id := range b.phaseChanged {
		out = append(out, b.Bosses[id])
	}
	return out
}

// RNG 会话随机源
func (b *Battle) RNG() RNG {
	return b.rng
}

func (b *Battle) turn() int {
	return b.Session.CurrentTurnIndex
}

func (b *Battle) slot(idx int) string {
	n := len(b.TurnOrder)
	return b.TurnOrder[((idx%n)+n)%n]
}

// CurrentActor 当前回合的单位
func (b *Battle) CurrentActor() (*Combatant, bool) {
	if len(b.TurnOrder) == 0 {
		return nil, false
	}
	return b.Roster.Get(b.slot(b.turn()))
}

// TurnResult use-skill 的结果
type TurnResult struct {
	NextTurnIndex int
	NextActorID   string
	Ended         bool
	Outcome       Outcome
}

// TickResult tick 的结果
type TickResult struct {
	Ticks                int
	Ended                bool
	Outcome              Outcome
	RequiresPlayerAction bool
	CurrentTurnIndex     int
	NextActorID          string
}

// Begin 开始战斗：进入第一个存活单位的回合
func (b *Battle) Begin(ctx context.Context) error {
	if len(b.TurnOrder) == 0 {
		return xerrors.FromCode(xerrors.CodeNoValidTargets).WithMetadata("reason", "empty turn order")
	}
	if actor, ok := b.CurrentActor(); ok && actor.IsAlive {
		b.beginTurn(actor)
		if actor.IsAlive {
			return nil
		}
	}
	if outcome, ended := b.checkEnd(); ended {
		return b.End(ctx, outcome)
	}
	return b.advance(ctx)
}

// ValidateCast 施法前的全部检查，不修改任何状态
func (b *Battle) ValidateCast(actor *Combatant, skill *Skill, req TargetRequest) (*Resolution, error) {
	turn := b.turn()
	if actor.IsStunned(turn) {
		return nil, xerrors.FromCode(xerrors.CodeSkillInvalidUse).WithMetadata("reason", "stunned")
	}
	if !skill.Usable() {
		return nil, xerrors.FromCode(xerrors.CodeSkillInvalidUse).
			WithMetadata("skill_id", skill.ID).
			WithMetadata("kind", string(skill.Kind))
	}
	if remaining := actor.CooldownRemaining(skill.ID, turn); remaining > 0 {
		return nil, xerrors.NewSkillCooldownError(skill.ID, remaining)
	}
	if skill.Cost > actor.Power {
		return nil, xerrors.NewInsufficientPowerError(skill.Cost, actor.Power)
	}
	return ResolveTargets(actor, skill, req, b.Roster, b.Board)
}

// UseSkill 指定单位在自己的回合施放技能，然后推进一个回合
func (b *Battle) UseSkill(ctx context.Context, actorID string, skill *Skill, req TargetRequest) (*TurnResult, error) {
	if !b.Session.Active() {
		return nil, xerrors.FromCode(xerrors.CodeCombatNotActive)
	}
	actor, ok := b.Roster.Get(actorID)
	if !ok {
		return nil, xerrors.NewCombatantNotFoundError(actorID)
	}
	current, ok := b.CurrentActor()
	if !ok || current.ID != actor.ID || !actor.IsAlive {
		expected := ""
		if current != nil {
			expected = current.ID
		}
		return nil, xerrors.NewNotYourTurnError(actorID, expected)
	}

	res, err := b.ValidateCast(actor, skill, req)
	if err != nil {
		return nil, err
	}

	b.applySkill(actor, skill, res)
	if err := b.finishTurn(ctx, actor); err != nil {
		return nil, err
	}
	return b.turnResult(), nil
}

// Tick 自动推进 NPC/召唤物回合，最多 maxSteps 步，轮到玩家时停下
func (b *Battle) Tick(ctx context.Context, maxSteps int) (*TickResult, error) {
	if !b.Session.Active() {
		return nil, xerrors.FromCode(xerrors.CodeCombatNotActive)
	}
	if maxSteps <= 0 {
		maxSteps = 1
	}

	result := &TickResult{}
	for result.Ticks < maxSteps && b.Session.Active() {
		if outcome, ended := b.checkEnd(); ended {
			if err := b.End(ctx, outcome); err != nil {
				return nil, err
			}
			break
		}

		actor, ok := b.CurrentActor()
		if !ok {
			break
		}
		if !actor.IsAlive {
			if err := b.advance(ctx); err != nil {
				return nil, err
			}
			continue
		}

		stunned := actor.IsStunned(b.turn())
		if actor.IsPlayerControlled() && !stunned {
			break
		}
		if stunned {
			b.Events.Append(b.turn(), EventTurnSkipped, actor.ID, map[string]any{"reason": "stunned"})
		} else {
			b.npcAct(actor)
		}
		result.Ticks++
		if err := b.finishTurn(ctx, actor); err != nil {
			return nil, err
		}
	}

	if b.Session.Active() {
		if actor, ok := b.CurrentActor(); ok && actor.IsPlayerControlled() && !actor.IsStunned(b.turn()) {
			result.RequiresPlayerAction = true
		}
	}
	tr := b.turnResult()
	result.Ended = tr.Ended
	result.Outcome = tr.Outcome
	result.CurrentTurnIndex = tr.NextTurnIndex
	result.NextActorID = tr.NextActorID
	return result, nil
}

// End 结束会话。已结束的会话返回冲突错误
func (b *Battle) End(ctx context.Context, outcome Outcome) error {
	if err := b.lifecycle.Event(ctx, eventEnd, outcome); err != nil {
		return xerrors.NewWithError(xerrors.CodeCombatNotActive, "战斗已结束", err)
	}
	b.Events.Append(b.turn(), EventCombatEnd, "", map[string]any{
		"outcome":       string(outcome),
		"party_alive":   b.Roster.LivingCount(SideParty),
		"hostile_alive": b.Roster.LivingCount(SideHostile),
	})
	return nil
}

func (b *Battle) turnResult() *TurnResult {
	res := &TurnResult{NextTurnIndex: b.turn()}
	if !b.Session.Active() {
		res.Ended = true
		res.Outcome = b.Session.Outcome
		return res
	}
	if actor, ok := b.CurrentActor(); ok {
		res.NextActorID = actor.ID
	}
	return res
}

// checkEnd 任一阵营全灭即结束
func (b *Battle) checkEnd() (Outcome, bool) {
	party := b.Roster.LivingCount(SideParty)
	hostile := b.Roster.LivingCount(SideHostile)
	switch {
	case party == 0:
		return OutcomeDefeat, true
	case hostile == 0:
		return OutcomeVictory, true
	default:
		return "", false
	}
}

func (b *Battle) finishTurn(ctx context.Context, actor *Combatant) error {
	b.endTurn(actor)
	b.Events.Append(b.turn(), EventTurnEnd, actor.ID, nil)
	if outcome, ended := b.checkEnd(); ended {
		return b.End(ctx, outcome)
	}
	return b.advance(ctx)
}

// endTurn 回合结束结算：行动者身上撑不到下一回合的状态在此移除
func (b *Battle) endTurn(actor *Combatant) {
	if !actor.IsAlive {
		return
	}
	turn := b.turn()
	for _, s := range actor.ExpireStatuses(turn + 1) {
		if s.IsCooldown() {
			continue
		}
		b.Events.Append(turn, EventStatusExpired, actor.ID, map[string]any{"status_id": s.ID})
	}
}

// advance 前进到下一个存活单位并执行其回合开始结算；
// 如果该单位在回合开始时被持续伤害击倒，继续前进
func (b *Battle) advance(ctx context.Context) error {
	n := len(b.TurnOrder)
	for i := 1; i <= n; i++ {
		idx := b.turn() + i
		c, ok := b.Roster.Get(b.slot(idx))
		if !ok || !c.IsAlive {
			continue
		}
		b.Session.CurrentTurnIndex = idx
		b.beginTurn(c)
		if c.IsAlive {
			return nil
		}
		if outcome, ended := b.checkEnd(); ended {
			return b.End(ctx, outcome)
		}
		return b.advance(ctx)
	}
	return nil
}

// beginTurn 回合开始：清理所有单位的过期状态，然后结算当前单位的持续伤害/治疗
func (b *Battle) beginTurn(actor *Combatant) {
	turn := b.turn()
	b.Events.Append(turn, EventTurnStart, actor.ID, map[string]any{"turn_index": turn})

	for _, c := range b.Roster.All() {
		if !c.IsAlive {
			continue
		}
		for _, s := range c.ExpireStatuses(turn) {
			if s.IsCooldown() {
				continue
			}
			b.Events.Append(turn, EventStatusExpired, c.ID, map[string]any{"status_id": s.ID})
		}
	}

	statuses := make([]StatusEntry, len(actor.Statuses))
	copy(statuses, actor.Statuses)
	for _, s := range statuses {
		stacks := max(s.Stacks, 1)
		if dot := s.Int(DataDot) * stacks; dot > 0 && actor.IsAlive {
			abs := actor.TakeDamage(dot)
			b.Events.Append(turn, EventDamage, actor.ID, map[string]any{
				"target_id": actor.ID,
				"source":    s.ID,
				"amount":    dot,
				"absorbed":  abs.Absorbed,
				"hp_loss":   abs.HPLoss,
				"hp":        actor.HP,
				"armor":     actor.Armor,
			})
			b.afterDamage(actor, actor, abs)
		}
		if hot := s.Int(DataHot) * stacks; hot > 0 && actor.IsAlive {
			healed := actor.Heal(hot)
			b.Events.Append(turn, EventHealed, actor.ID, map[string]any{
				"target_id": actor.ID,
				"source":    s.ID,
				"amount":    healed,
				"hp":        actor.HP,
			})
		}
	}
}

// npcAct NPC/召唤物行动：boss 从阶段技能池中选技能，其他单位使用普通攻击。
// 目标按技能的目标模式选取，找不到合适目标时退回普通攻击
func (b *Battle) npcAct(actor *Combatant) {
	opponents := b.Roster.LivingOpponents(actor)
	if len(opponents) == 0 {
		return
	}
	prefix := fmt.Sprintf("%s:%d:%s", b.Session.ID, b.turn(), actor.ID)
	skill := b.npcSkill(actor, prefix)
	res, ok := b.npcTargets(actor, skill, prefix, opponents)
	if !ok {
		skill = BasicAttack()
		res, _ = b.npcTargets(actor, skill, prefix, opponents)
	}
	b.applySkill(actor, skill, res)
}

// npcTargets 自身技能作用于自己，友方技能在己方单位中选取，复活技能在己方倒下单位中选取，
// 其余技能在敌对单位中随机选取。NPC 回合不校验距离
func (b *Battle) npcTargets(actor *Combatant, skill *Skill, prefix string, opponents []*Combatant) (*Resolution, bool) {
	label := "npc-target:" + prefix
	var primary *Combatant
	switch {
	case skill.Targeting == TargetSelf || skill.Shape() == TargetSelf:
		primary = actor
	case skill.Revives():
		primary, _ = Pick(b.rng, label, b.Roster.Allies(actor, false))
	case skill.Affects() == AffectsAllies:
		primary, _ = Pick(b.rng, label, b.Roster.Allies(actor, true))
	default:
		primary, _ = Pick(b.rng, label, opponents)
	}
	if primary == nil {
		return nil, false
	}

	res := &Resolution{
		Point:    primary.Pos,
		Primary:  primary,
		Distance: skill.Metric().Distance(actor.Pos, primary.Pos),
	}
	if skill.Key == SkillKeyCleave {
		res.Targets = opponents
	} else {
		res.Targets = expandShape(actor, skill, res, b.Roster, b.Board)
	}
	if skill.NeedsTargets() && len(res.Targets) == 0 {
		return nil, false
	}
	return res, true
}

func (b *Battle) npcSkill(actor *Combatant, prefix string) *Skill {
	boss, ok := b.Bosses[actor.ID]
	if !ok {
		return BasicAttack()
	}
	var candidates []*Skill
	for _, key := range boss.SkillPool() {
		skill, ok := b.NPCSkills[key]
		if !ok {
			if skill, ok = BuiltinSkill(key); !ok {
				continue
			}
		}
		if actor.CooldownRemaining(skill.ID, b.turn()) > 0 || skill.Cost > actor.Power {
			continue
		}
		candidates = append(candidates, skill)
	}
	if skill, ok := Pick(b.rng, "boss-skill:"+prefix, candidates); ok {
		return skill
	}
	return BasicAttack()
}

// afterDamage 处理死亡事件和 boss 阶段变化
func (b *Battle) afterDamage(actor, target *Combatant, abs Absorption) {
	turn := b.turn()
	if abs.Killed {
		b.Events.Append(turn, EventDeath, actor.ID, map[string]any{"target_id": target.ID})
	}
	boss, ok := b.Bosses[target.ID]
	if !ok || !target.IsAlive {
		return
	}
	from := boss.CurrentPhase
	if phase, changed := boss.Evaluate(target.HP, target.HPMax); changed {
		b.phaseChanged[boss.CombatantID] = true
		b.Events.Append(turn, EventPhaseShift, target.ID, map[string]any{
			"from_phase": from,
			"to_phase":   phase,
			"hp":         target.HP,
			"hp_max":     target.HPMax,
		})
	}
}
