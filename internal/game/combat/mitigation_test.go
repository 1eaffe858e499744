package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/udisondev/combatcore/internal/model"
)

func TestArmorReduction_BoundedAndMonotone(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		level := rapid.Int32Range(1, 80).Draw(t, "level")
		a := rapid.Int32Range(0, 100000).Draw(t, "a")
		b := rapid.Int32Range(a, 100000).Draw(t, "b")

		ra, rb := armorReduction(a, level), armorReduction(b, level)
		if ra < 0 || rb > maxArmorReduction {
			t.Fatalf("reduction out of bounds: %v %v", ra, rb)
		}
		if rb < ra {
			t.Fatalf("more armor reduced less: %d->%v, %d->%v", a, ra, b, rb)
		}
		dmg := rapid.Int32Range(1, 100000).Draw(t, "dmg")
		if got := applyArmor(dmg, b, level); got < 1 || got > dmg {
			t.Fatalf("applyArmor(%d) = %d", dmg, got)
		}
	})
}

func TestApplyArmor(t *testing.T) {
	assert.Equal(t, int32(100), applyArmor(100, 0, 60))
	assert.Equal(t, int32(85), applyArmor(100, 1000, 60))
	assert.Equal(t, int32(1), applyArmor(1, 1000000, 1), "a hit always deals at least one point")
	assert.Equal(t, int32(0), applyArmor(0, 1000, 60))
}

func TestResistQuarters(t *testing.T) {
	tests := []struct {
		p    float64
		ran  int
		want int
	}{
		{0, 0, 0},
		{0, 100, 0},
		{0.75, 0, 0},
		{0.75, 1, 1},
		{0.75, 10, 2},
		{0.75, 50, 3},
		{0.75, 100, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resistQuarters(tt.p, tt.ran), "p=%v ran=%d", tt.p, tt.ran)
	}
}

func TestResistanceChance_Clamped(t *testing.T) {
	assert.Equal(t, 0.0, resistanceChance(-50, 60))
	assert.Equal(t, maxResistChance, resistanceChance(100000, 60))
	assert.InDelta(t, 0.75, resistanceChance(300, 60), 1e-9)
}

func TestPartialResist_PeriodicKeepsOnePoint(t *testing.T) {
	h := newHarness(t, nil)
	a := h.spawn(t, 1, model.KindCreature, 60, 1000)
	v := h.spawn(t, 2, model.KindCreature, 60, 1000)
	v.Stats.Resistance[model.SchoolFire] = 300

	direct := &DamageInfo{Schools: model.MaskFire}
	h.src.push(100)
	assert.Equal(t, int32(100), h.partialResist(a, v, direct, 100))

	dot := &DamageInfo{Schools: model.MaskFire, Periodic: true}
	h.src.push(100)
	assert.Equal(t, int32(99), h.partialResist(a, v, dot, 100))

	h.src.push(50)
	assert.Equal(t, int32(75), h.partialResist(a, v, direct, 100))
}

func TestGlancingFactor_Range(t *testing.T) {
	h := newHarness(t, nil)
	a := h.spawn(t, 1, model.KindPlayer, 60, 1000)
	v := h.spawn(t, 2, model.KindCreature, 63, 1000)

	h.src.push(0)
	low := h.glancingFactor(a, v)
	h.src.push(1000)
	high := h.glancingFactor(a, v)

	assert.InDelta(t, 0.55, low, 1e-9)
	assert.InDelta(t, 0.75, high, 1e-9)
}

func TestResilienceReduction_Capped(t *testing.T) {
	c := model.NewCombatant(1, "u", model.KindPlayer, 70, 100)
	c.Stats.Resilience = 10
	assert.Equal(t, 20.0, resilienceReductionPct(c))
	c.Stats.Resilience = 40
	assert.Equal(t, 33.0, resilienceReductionPct(c))
}
