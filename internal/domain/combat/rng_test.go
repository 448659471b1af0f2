package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRNG_Deterministic(t *testing.T) {
	r := RNG{Seed: 1234}

	tests := []struct {
		name  string
		label string
	}{
		{name: "伤害标签", label: "dmg:s1:0:a:fireball:b"},
		{name: "空标签", label: ""},
		{name: "掉落标签", label: "loot:s1:u1:0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := r.Float(tt.label)
			assert.Equal(t, first, r.Float(tt.label))
			assert.Equal(t, first, RNG{Seed: 1234}.Float(tt.label))
			assert.GreaterOrEqual(t, first, 0.0)
			assert.Less(t, first, 1.0)
		})
	}
}

func TestRNG_IntnAndPick(t *testing.T) {
	r := RNG{Seed: 7}
	for i := 0; i < 200; i++ {
		label := string(rune('a' + i%26)) + string(rune('0'+i/26))
		n := r.Intn(label, 3, 6)
		assert.GreaterOrEqual(t, n, 3)
		assert.LessOrEqual(t, n, 6)
		assert.Equal(t, n, r.Intn(label, 3, 6))
	}
	assert.Equal(t, 5, r.Intn("x", 5, 5), "区间退化时返回下界")

	items := []string{"a", "b", "c"}
	picked, ok := Pick(r, "pick", items)
	assert.True(t, ok)
	again, _ := Pick(r, "pick", items)
	assert.Equal(t, picked, again)

	_, ok = Pick(r, "pick", []string{})
	assert.False(t, ok)
}
