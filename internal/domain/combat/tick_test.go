package combat

import (
	"context"
	"testing"

	"tsu-tactics/internal/pkg/xerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTick_StopsAtPlayerTurn(t *testing.T) {
	ctx := context.Background()
	n1 := weakUnit("n1", EntityNPC, "", Position{1, 0})
	p1 := weakUnit("p1", EntityPlayer, "u1", Position{0, 0})
	b := newTestBattle(nil, n1, p1)

	res, err := b.Tick(ctx, 5)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Ticks)
	assert.True(t, res.RequiresPlayerAction)
	assert.False(t, res.Ended)
	assert.Equal(t, 1, res.CurrentTurnIndex)
	assert.Equal(t, "p1", res.NextActorID)
	assert.Less(t, p1.HP, 30, "NPC 使用普通攻击")

	used := b.Events.OfType(EventSkillUsed)
	require.Len(t, used, 1)
	assert.Equal(t, SkillKeyBasicAttack, used[0].Payload["skill_key"])

	again, err := b.Tick(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Ticks, "玩家回合不会被自动推进")
	assert.True(t, again.RequiresPlayerAction)
}

func TestTick_Deterministic(t *testing.T) {
	run := func() (*TickResult, []Event) {
		n1 := weakUnit("n1", EntityNPC, "", Position{1, 0})
		n2 := weakUnit("n2", EntityNPC, "", Position{1, 1})
		p1 := weakUnit("p1", EntityPlayer, "u1", Position{0, 0})
		p2 := weakUnit("p2", EntityPlayer, "u2", Position{0, 1})
		b := newTestBattle(nil, n1, n2, p1, p2)
		res, err := b.Tick(context.Background(), 10)
		require.NoError(t, err)
		return res, b.Events.Events()
	}

	first, firstEvents := run()
	second, secondEvents := run()
	assert.Equal(t, first, second)
	assert.Equal(t, firstEvents, secondEvents)
	assert.Equal(t, 2, first.Ticks)
}

func TestTick_StunnedActorSkips(t *testing.T) {
	ctx := context.Background()
	n1 := weakUnit("n1", EntityNPC, "", Position{1, 0})
	n1.Statuses = []StatusEntry{{ID: "stun", ExpiresTurn: ExpiresAt(0, 3), Stacks: 1, Data: map[string]any{DataStun: true}}}
	p1 := weakUnit("p1", EntityPlayer, "u1", Position{0, 0})
	b := newTestBattle(nil, n1, p1)

	res, err := b.Tick(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Ticks)
	assert.Equal(t, 30, p1.HP)
	require.Len(t, b.Events.OfType(EventTurnSkipped), 1)

	_, err = b.UseSkill(ctx, "p1", strike(1), TargetRequest{Kind: TargetKindCombatant, CombatantID: "n1"})
	require.NoError(t, err)

	p1.ApplyStatus(StatusEntry{ID: "stun", ExpiresTurn: ExpiresAt(b.Session.CurrentTurnIndex, 5), Data: map[string]any{DataStun: true}})
	res, err = b.Tick(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, b.Events.OfType(EventTurnSkipped), 3, "眩晕的玩家回合也会被跳过")
	assert.Equal(t, 3, res.Ticks)
}

func TestTick_DamageOverTimeAtTurnStart(t *testing.T) {
	ctx := context.Background()
	p1 := weakUnit("p1", EntityPlayer, "u1", Position{0, 0})
	n1 := weakUnit("n1", EntityNPC, "", Position{5, 5})
	n1.HP = 3
	n1.Statuses = []StatusEntry{{ID: "poison", Stacks: 2, ExpiresTurn: ExpiresAt(0, 5), Data: map[string]any{DataDot: 2}}}
	b := newTestBattle(nil, p1, n1)

	wait := &Skill{ID: "focus", Kind: SkillActive, Targeting: TargetSelf, Effects: []Effect{&PowerGainEffect{Amount: 1}}}
	res, err := b.UseSkill(ctx, "p1", wait, TargetRequest{Kind: TargetKindSelf})
	require.NoError(t, err)

	assert.False(t, n1.IsAlive, "回合开始时的持续伤害击倒目标")
	assert.True(t, res.Ended)
	assert.Equal(t, OutcomeVictory, res.Outcome)
	require.Len(t, b.Events.OfType(EventDeath), 1)
}

func TestTick_EndsImmediatelyWhenSideDefeated(t *testing.T) {
	ctx := context.Background()
	n1 := weakUnit("n1", EntityNPC, "", Position{1, 0})
	n1.IsAlive = false
	n1.HP = 0
	p1 := weakUnit("p1", EntityPlayer, "u1", Position{0, 0})
	b := newTestBattle(nil, n1, p1)

	res, err := b.Tick(ctx, 1)
	require.NoError(t, err)
	assert.True(t, res.Ended)
	assert.Equal(t, 0, res.Ticks)
	assert.Equal(t, OutcomeVictory, res.Outcome)
	assert.Equal(t, SessionEnded, b.Session.Status)
	require.Len(t, b.Events.OfType(EventCombatEnd), 1)

	_, err = b.Tick(ctx, 1)
	assert.True(t, xerrors.HasCode(err, xerrors.CodeCombatNotActive))
}

func TestTick_SkipsDeadSlots(t *testing.T) {
	ctx := context.Background()
	p1 := weakUnit("p1", EntityPlayer, "u1", Position{0, 0})
	dead := weakUnit("dead", EntityNPC, "", Position{3, 3})
	dead.IsAlive = false
	n1 := weakUnit("n1", EntityNPC, "", Position{1, 0})
	b := newTestBattle(nil, p1, dead, n1)

	res, err := b.UseSkill(ctx, "p1", strike(1), TargetRequest{Kind: TargetKindCombatant, CombatantID: "n1"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.NextTurnIndex)
	assert.Equal(t, "n1", res.NextActorID)

	for _, e := range b.Events.OfType(EventTurnStart) {
		assert.NotEqual(t, "dead", e.ActorID, "不会选中倒下的单位")
	}
}

func TestVictory_SettlementAndBoardTransition(t *testing.T) {
	ctx := context.Background()
	p1 := weakUnit("p1", EntityPlayer, "u1", Position{0, 0})
	p1.CharacterID = "char-1"
	n1 := weakUnit("n1", EntityNPC, "", Position{1, 0})
	n1.Level = 3
	n1.HP = 1
	b := newTestBattle(nil, p1, n1)
	b.Session.PreviousBoardID = "town"
	b.Session.FactionID = "guild"

	res, err := b.UseSkill(ctx, "p1", strike(1), TargetRequest{Kind: TargetKindCombatant, CombatantID: "n1"})
	require.NoError(t, err)
	require.True(t, res.Ended)
	assert.Equal(t, OutcomeVictory, res.Outcome)
	assert.Equal(t, SessionEnded, b.Session.Status)
	assert.NotNil(t, b.Session.EndedAt)
	require.Len(t, b.Events.OfType(EventCombatEnd), 1)

	settlement := b.Settle()
	require.Len(t, settlement.XP, 1)
	assert.Equal(t, 75, settlement.XP[0].XP)
	assert.Equal(t, "u1", settlement.XP[0].PlayerID)
	require.Len(t, settlement.Loot, 1)
	assert.Equal(t, TierCommon, settlement.Loot[0].Tier)
	assert.Equal(t, "char-1", settlement.Loot[0].CharacterID)
	assert.Equal(t, ReputationOnVictory, settlement.ReputationDelta)
	assert.Equal(t, "town", settlement.PreviousBoardID)

	assert.Len(t, b.Events.OfType(EventXPAwarded), 1)
	assert.Len(t, b.Events.OfType(EventLootAwarded), 1)
	transition := b.Events.OfType(EventBoardTransition)
	require.Len(t, transition, 1)
	assert.Equal(t, "town", transition[0].Payload["to_board_id"])

	replay := newTestBattle(nil, p1.Clone())
	assert.Equal(t, settlement.Loot[0].Stats, replay.rollLoot(p1, TierCommon, 0).Stats, "掉落属性由种子决定")
}

func TestDefeat_NoRewards(t *testing.T) {
	ctx := context.Background()
	n1 := weakUnit("n1", EntityNPC, "", Position{1, 0})
	p1 := weakUnit("p1", EntityPlayer, "u1", Position{0, 0})
	p1.HP = 1
	b := newTestBattle(nil, n1, p1)
	b.Session.FactionID = "guild"

	res, err := b.Tick(ctx, 1)
	require.NoError(t, err)
	require.True(t, res.Ended)
	assert.Equal(t, OutcomeDefeat, res.Outcome)

	settlement := b.Settle()
	assert.Empty(t, settlement.XP)
	assert.Empty(t, settlement.Loot)
	assert.Equal(t, ReputationOnDefeat, settlement.ReputationDelta)
	assert.Empty(t, b.Events.OfType(EventBoardTransition), "没有前一张地图时不切换")
}

func TestBoss_PhaseShiftAndPool(t *testing.T) {
	ctx := context.Background()
	p1 := weakUnit("p1", EntityPlayer, "u1", Position{0, 0})
	p1.Stats.Offense = 25
	p1.HP, p1.HPMax = 200, 200
	p2 := weakUnit("p2", EntityPlayer, "u2", Position{0, 1})
	p2.HP, p2.HPMax = 200, 200
	boss := weakUnit("boss", EntityNPC, "", Position{1, 0})
	boss.HP, boss.HPMax = 100, 100
	b := newTestBattle(nil, p1, boss, p2)
	b.AddBoss(NewBossInstance("s1", "boss", 1, []BossPhase{
		{Phase: 1, HPBelowPct: 1.0, SkillPool: []string{SkillKeyBasicAttack}},
		{Phase: 2, HPBelowPct: 0.7, SkillPool: []string{SkillKeyCleave}},
	}))

	_, err := b.UseSkill(ctx, "p1", strike(1), TargetRequest{Kind: TargetKindCombatant, CombatantID: "boss"})
	require.NoError(t, err)
	require.Less(t, boss.HP, 70, "一次攻击足以进入阶段二")

	shifts := b.Events.OfType(EventPhaseShift)
	require.Len(t, shifts, 1)
	assert.Equal(t, 2, shifts[0].Payload["to_phase"])
	require.Len(t, b.ChangedBosses(), 1)

	boss.Heal(100)
	_, changed := b.Bosses["boss"].Evaluate(boss.HP, boss.HPMax)
	assert.False(t, changed)
	assert.Equal(t, 2, b.Bosses["boss"].CurrentPhase, "治疗不会让阶段回退")

	res, err := b.Tick(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Ticks)
	used := b.Events.OfType(EventSkillUsed)
	assert.Equal(t, SkillKeyCleave, used[len(used)-1].Payload["skill_key"])
	assert.Less(t, p1.HP, 200)
	assert.Less(t, p2.HP, 200, "横扫命中所有敌对单位")
}

func TestExecute_TriplesDamageBelowThreshold(t *testing.T) {
	rng := RNG{Seed: 5}
	actor := weakUnit("a", EntityNPC, "", Position{0, 0})
	target := weakUnit("t", EntityPlayer, "u1", Position{1, 0})
	target.HP, target.HPMax = 100, 100

	b := newTestBattle(nil, actor, target)
	b.rng = rng
	execute, _ := BuiltinSkill(SkillKeyExecute)

	healthy := ResolveDamage(rng, "dmg:s1:0:a:execute:t", actor, target, 1.0, 0)
	b.applySkill(actor, execute, &Resolution{Point: target.Pos, Primary: target, Targets: []*Combatant{target}})
	assert.Equal(t, 100-healthy.Final, target.HP)

	target.HP = 20
	b.Session.CurrentTurnIndex = 1
	low := ResolveDamage(rng, "dmg:s1:1:a:execute:t", actor, target, ExecuteMultiplier, 0)
	b.applySkill(actor, execute, &Resolution{Point: target.Pos, Primary: target, Targets: []*Combatant{target}})
	assert.Equal(t, max(20-low.Final, 0), target.HP)
}

func TestBegin_FirstActorTurnStart(t *testing.T) {
	p1 := weakUnit("p1", EntityPlayer, "u1", Position{0, 0})
	n1 := weakUnit("n1", EntityNPC, "", Position{1, 0})
	b := newTestBattle(nil, p1, n1)

	require.NoError(t, b.Begin(context.Background()))
	starts := b.Events.OfType(EventTurnStart)
	require.Len(t, starts, 1)
	assert.Equal(t, "p1", starts[0].ActorID)

	assert.Equal(t, []string{"n1", "p1"}, InitiativeOrder([]*Combatant{p1, n1}), "机动相同按 ID 升序")
	p1.Stats.Mobility = 9
	assert.Equal(t, []string{"p1", "n1"}, InitiativeOrder([]*Combatant{n1, p1}), "机动高者优先")
}

func TestTick_BossSkillTargetsBySkillMode(t *testing.T) {
	t.Run("自身治疗技能只作用于 boss", func(t *testing.T) {
		boss := weakUnit("boss", EntityNPC, "", Position{1, 0})
		boss.HP = 5
		p1 := weakUnit("p1", EntityPlayer, "u1", Position{0, 0})
		p1.HP = 10
		b := newTestBattle(nil, boss, p1)
		b.AddBoss(NewBossInstance("s1", "boss", 1, []BossPhase{{Phase: 1, HPBelowPct: 1.0, SkillPool: []string{"mend"}}}))
		b.NPCSkills["mend"] = &Skill{
			ID: "mend", Key: "mend", Kind: SkillActive, Targeting: TargetSelf,
			Effects: []Effect{&HealEffect{Amount: 15}},
		}

		res, err := b.Tick(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Ticks)
		assert.Equal(t, 20, boss.HP)
		assert.Equal(t, 10, p1.HP, "玩家不会被治疗")

		healed := b.Events.OfType(EventHealed)
		require.Len(t, healed, 1)
		assert.Equal(t, "boss", healed[0].Payload["target_id"])
	})

	t.Run("友方治疗技能在己方单位中选目标", func(t *testing.T) {
		boss := weakUnit("boss", EntityNPC, "", Position{1, 0})
		boss.HP = 10
		minion := weakUnit("minion", EntityNPC, "", Position{2, 0})
		minion.HP = 10
		p1 := weakUnit("p1", EntityPlayer, "u1", Position{0, 0})
		p1.HP = 10
		b := newTestBattle(nil, boss, minion, p1)
		b.AddBoss(NewBossInstance("s1", "boss", 1, []BossPhase{{Phase: 1, HPBelowPct: 1.0, SkillPool: []string{"rally"}}}))
		b.NPCSkills["rally"] = &Skill{
			ID: "rally", Key: "rally", Kind: SkillActive, Targeting: TargetSingle, RangeTiles: 3,
			Params:  TargetingParams{Affects: AffectsAllies},
			Effects: []Effect{&HealEffect{Amount: 5}},
		}

		_, err := b.Tick(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, 10, p1.HP)
		assert.Equal(t, 25, boss.HP+minion.HP, "恰好治疗一个己方单位")
		healed := b.Events.OfType(EventHealed)
		require.Len(t, healed, 1)
		assert.Contains(t, []any{"boss", "minion"}, healed[0].Payload["target_id"])
	})

	t.Run("没有倒下的友方时复活技能退回普通攻击", func(t *testing.T) {
		boss := weakUnit("boss", EntityNPC, "", Position{1, 0})
		p1 := weakUnit("p1", EntityPlayer, "u1", Position{0, 0})
		b := newTestBattle(nil, boss, p1)
		b.AddBoss(NewBossInstance("s1", "boss", 1, []BossPhase{{Phase: 1, HPBelowPct: 1.0, SkillPool: []string{"raise"}}}))
		b.NPCSkills["raise"] = &Skill{
			ID: "raise", Key: "raise", Kind: SkillActive, Targeting: TargetSingle, RangeTiles: 3,
			Effects: []Effect{&ReviveEffect{HPFloor: 5}},
		}

		_, err := b.Tick(context.Background(), 1)
		require.NoError(t, err)
		used := b.Events.OfType(EventSkillUsed)
		require.Len(t, used, 1)
		assert.Equal(t, SkillKeyBasicAttack, used[0].Payload["skill_key"])
		assert.Less(t, p1.HP, 30)
	})
}

func TestCritBonus_CarriesToCastersNextTurn(t *testing.T) {
	ctx := context.Background()
	focus := func(duration int) *Skill {
		return &Skill{
			ID: "focus", Key: "focus", Kind: SkillActive, Targeting: TargetSelf,
			Effects: []Effect{&BonusEffect{CritBonus: 40, Duration: duration}},
		}
	}

	t.Run("下一次伤害结算使用加成后消耗", func(t *testing.T) {
		p1 := weakUnit("p1", EntityPlayer, "u1", Position{0, 0})
		n1 := weakUnit("n1", EntityNPC, "", Position{1, 0})
		n1.HP, n1.HPMax = 300, 300
		b := newTestBattle(nil, p1, n1)

		_, err := b.UseSkill(ctx, "p1", focus(0), TargetRequest{Kind: TargetKindSelf})
		require.NoError(t, err)
		_, err = b.Tick(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, 2, b.Session.CurrentTurnIndex)
		_, ok := p1.FindStatus(CritBonusID)
		require.True(t, ok, "轮到施法者时加成仍在")

		_, err = b.UseSkill(ctx, "p1", strike(1), TargetRequest{Kind: TargetKindCombatant, CombatantID: "n1"})
		require.NoError(t, err)
		damage := b.Events.OfType(EventDamage)
		last := damage[len(damage)-1]
		assert.Equal(t, "n1", last.Payload["target_id"])
		roll := last.Payload["roll"].(DamageRoll)
		assert.InDelta(t, BaseCritChance+40*CritChancePerPoint, roll.CritChance, 1e-9)

		_, ok = p1.FindStatus(CritBonusID)
		assert.False(t, ok, "只作用一次")
	})

	t.Run("持续一轮时在施法者下一回合结束后过期", func(t *testing.T) {
		p1 := weakUnit("p1", EntityPlayer, "u1", Position{0, 0})
		n1 := weakUnit("n1", EntityNPC, "", Position{5, 5})
		b := newTestBattle(nil, p1, n1)
		rest := &Skill{ID: "rest", Key: "rest", Kind: SkillActive, Targeting: TargetSelf, Effects: []Effect{&PowerGainEffect{Amount: 1}}}

		_, err := b.UseSkill(ctx, "p1", focus(1), TargetRequest{Kind: TargetKindSelf})
		require.NoError(t, err)
		_, err = b.Tick(ctx, 1)
		require.NoError(t, err)
		_, ok := p1.FindStatus(CritBonusID)
		require.True(t, ok)

		_, err = b.UseSkill(ctx, "p1", rest, TargetRequest{Kind: TargetKindSelf})
		require.NoError(t, err)
		_, ok = p1.FindStatus(CritBonusID)
		assert.False(t, ok)
	})
}

func TestFinishTurn_EndOfTurnExpiry(t *testing.T) {
	ctx := context.Background()
	p1 := weakUnit("p1", EntityPlayer, "u1", Position{0, 0})
	n1 := weakUnit("n1", EntityNPC, "", Position{5, 5})
	b := newTestBattle(nil, p1, n1)
	brace := &Skill{
		ID: "brace", Key: "brace", Kind: SkillActive, Targeting: TargetSelf, CooldownTurns: 1,
		Effects: []Effect{&SelfDebuffEffect{StatusID: "winded", Duration: 1}},
	}

	_, err := b.UseSkill(ctx, "p1", brace, TargetRequest{Kind: TargetKindSelf})
	require.NoError(t, err)

	_, ok := p1.FindStatus("winded")
	assert.False(t, ok, "撑不到下一回合的状态在回合结束时移除")

	var order []EventType
	for _, e := range b.Events.Events() {
		order = append(order, e.Type)
	}
	assert.Equal(t, []EventType{
		EventSkillUsed, EventStatusApplied, EventStatusExpired, EventTurnEnd, EventTurnStart,
	}, order, "冷却条目过期不记录事件")
	expired := b.Events.OfType(EventStatusExpired)
	assert.Equal(t, "winded", expired[0].Payload["status_id"])
	assert.Equal(t, 0, expired[0].TurnIndex)
}
