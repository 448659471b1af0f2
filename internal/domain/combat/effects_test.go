package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEffects_FixedOrder(t *testing.T) {
	raw := []byte(`{
		"status": {"status_id": "poison", "duration": 2, "data": {"dot": 3}},
		"damage": {"multiplier": 1.2},
		"move": {"tiles": 2},
		"cleanse": {"ids": null}
	}`)

	effects, err := DecodeEffects(raw)
	require.NoError(t, err)
	require.Len(t, effects, 4)

	kinds := make([]EffectKind, len(effects))
	for i, e := range effects {
		kinds[i] = e.Kind()
	}
	assert.Equal(t, []EffectKind{KindMove, KindDamage, KindStatus, KindCleanse}, kinds)

	cleanse, ok := findEffect[*CleanseEffect](effects)
	require.True(t, ok)
	assert.Nil(t, cleanse.IDs, "null 表示清除全部")
	assert.Equal(t, "damage", KindDamage.String())
}

func TestDecodeEffects_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "未知效果", raw: `{"explode": {"radius": 2}}`},
		{name: "未知字段", raw: `{"damage": {"multiplier": 1, "element": "fire"}}`},
		{name: "状态缺少 ID", raw: `{"status": {"duration": 2}}`},
		{name: "类型错误", raw: `{"heal": {"amount": "lots"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEffects([]byte(tt.raw))
			assert.Error(t, err)
		})
	}

	effects, err := DecodeEffects([]byte("null"))
	assert.NoError(t, err)
	assert.Empty(t, effects)
}

func TestEncodeEffects(t *testing.T) {
	raw, err := EncodeEffects([]Effect{&HealEffect{Amount: 5}, &BarrierEffect{Amount: 10, Duration: 2}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"heal":{"amount":5},"barrier":{"amount":10,"duration":2}}`, string(raw))
}

func TestOrderedEffects(t *testing.T) {
	var nilDamage *DamageEffect
	out := orderedEffects([]Effect{&PowerGainEffect{Amount: 1}, nilDamage, &PushEffect{Tiles: 1}, &BarrierEffect{}})
	require.Len(t, out, 3)
	assert.Equal(t, KindPush, out[0].Kind())
	assert.Equal(t, KindBarrier, out[1].Kind())
	assert.Equal(t, KindPowerGain, out[2].Kind())
}
