package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTakeDamage_ArmorAbsorbsFirst(t *testing.T) {
	tests := []struct {
		name      string
		armor     int
		incoming  int
		wantArmor int
		wantLoss  int
	}{
		{name: "护盾不足", armor: 10, incoming: 15, wantArmor: 0, wantLoss: 5},
		{name: "护盾完全吸收", armor: 20, incoming: 15, wantArmor: 5, wantLoss: 0},
		{name: "没有护盾", armor: 0, incoming: 7, wantArmor: 0, wantLoss: 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Combatant{ID: "t", HP: 30, HPMax: 30, Armor: tt.armor, IsAlive: true}
			res := c.TakeDamage(tt.incoming)
			assert.Equal(t, tt.wantArmor, c.Armor)
			assert.Equal(t, tt.wantLoss, res.HPLoss)
			assert.Equal(t, 30-tt.wantLoss, c.HP)
			assert.False(t, res.Killed)
		})
	}
}

func TestTakeDamage_Death(t *testing.T) {
	c := &Combatant{ID: "t", HP: 5, HPMax: 30, IsAlive: true}
	res := c.TakeDamage(9)
	assert.True(t, res.Killed)
	assert.False(t, c.IsAlive)
	assert.Equal(t, 0, c.HP)

	assert.Equal(t, Absorption{}, c.TakeDamage(3), "倒下的单位不再受到伤害")
}

func TestResolveDamage(t *testing.T) {
	rng := RNG{Seed: 99}
	actor := &Combatant{ID: "a", Level: 5, Stats: Stats{Offense: 10, Mobility: 4, Utility: 3}, WeaponPower: 6}
	target := &Combatant{ID: "t", Resist: 4}

	first := ResolveDamage(rng, "dmg:s:0:a:k:t", actor, target, 1.2, 0)
	assert.Equal(t, first, ResolveDamage(rng, "dmg:s:0:a:k:t", actor, target, 1.2, 0), "同一标签结果一致")

	assert.InDelta(t, 32.0, first.Attack, 1e-9)
	assert.InDelta(t, 38.4, first.Base, 1e-9)
	assert.InDelta(t, 0.08, first.CritChance, 1e-9)
	assert.InDelta(t, 100.0/120.0, first.Mitigation, 1e-9)
	assert.LessOrEqual(t, first.Variance, VarianceSpread)
	assert.GreaterOrEqual(t, first.Variance, -VarianceSpread)
	assert.Equal(t, first.CritRoll < first.CritChance, first.Crit)

	weak := &Combatant{ID: "w"}
	assert.Equal(t, 1, ResolveDamage(rng, "dmg:weak", weak, target, 1, 0).Final, "伤害至少为 1")

	capped := ResolveDamage(rng, "dmg:s:0:a:k:t", actor, target, 1.2, 1000)
	assert.Equal(t, MaxCritChance, capped.CritChance)
}

func TestStatusChance(t *testing.T) {
	tests := []struct {
		name   string
		base   float64
		actor  Stats
		resist int
		want   float64
	}{
		{name: "默认基础概率", base: 0, actor: Stats{}, resist: 0, want: 0.5},
		{name: "控制和辅助提升概率", base: 0.5, actor: Stats{Control: 10, Utility: 10}, resist: 0, want: 0.9},
		{name: "下限", base: 0.5, actor: Stats{}, resist: 100, want: MinStatusChance},
		{name: "上限", base: 0.5, actor: Stats{Control: 50}, resist: 0, want: MaxStatusChance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StatusChance(tt.base, &Combatant{Stats: tt.actor}, &Combatant{Resist: tt.resist})
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	roll, applied := RollStatus(RNG{Seed: 1}, "base", "poison", "t", 1.0)
	assert.True(t, applied)
	again, _ := RollStatus(RNG{Seed: 1}, "base", "poison", "t", 1.0)
	assert.Equal(t, roll, again)
}
