package data

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/combatcore/internal/model"
)

const sampleTemplates = `
templates:
  - id: 100
    name: Fireball
    rank: 1
    family: 10
    schools: [fire]
    class: magic
    cast_ms: 3000
    speed: 24
    interrupt: [damage, pushback]
    sp_coef: 1.0
    effects:
      - effect: school_damage
        base: 100
        die: 20
      - effect: apply_aura
        aura: periodic_damage
        base: 10
        amplitude_ms: 2000
    duration_ms: 8000
  - id: 200
    name: Ice Barrier
    schools: [frost]
    class: magic
    attributes: [positive]
    duration_ms: 60000
    effects:
      - effect: apply_aura
        aura: school_absorb
        base: 500
        misc_schools: [all]
  - id: 300
    name: Devotion
    class: none
    attributes: [passive, positive]
    effects:
      - effect: apply_aura
        aura: mod_resistance
        misc_schools: [magic]
        base: 50
`

func TestParse(t *testing.T) {
	s, err := Parse([]byte(sampleTemplates))
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())

	fb, ok := s.Get(100)
	require.True(t, ok)
	assert.Equal(t, "Fireball", fb.Name)
	assert.Equal(t, model.MaskFire, fb.Schools)
	assert.Equal(t, ClassMagic, fb.DmgClass)
	assert.Equal(t, InterruptOnDamage|InterruptPushback, fb.Interrupt)
	assert.Equal(t, int32(8000), fb.DurationMs)
	assert.True(t, fb.Effects[1].IsPeriodic())
	assert.True(t, fb.IsAura())
	assert.True(t, fb.HasAura(AuraPeriodicDamage))

	barrier, _ := s.Get(200)
	assert.Equal(t, int32(model.MaskAll), barrier.Effects[0].MiscValue)
	assert.True(t, barrier.IsPositive())

	devotion, _ := s.Get(300)
	assert.True(t, devotion.IsPermanent(), "omitted duration means permanent")
	assert.Equal(t, model.MaskNormal, devotion.Schools, "no schools defaults to physical")

	_, ok = s.Get(999)
	assert.False(t, ok)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown attribute", "templates:\n  - id: 1\n    attributes: [bogus]\n"},
		{"unknown aura", "templates:\n  - id: 1\n    effects:\n      - effect: apply_aura\n        aura: bogus\n"},
		{"unknown school", "templates:\n  - id: 1\n    schools: [plasma]\n"},
		{"zero id", "templates:\n  - name: nameless\n"},
		{"family policy without family", "templates:\n  - id: 1\n    specific: per_family\n"},
		{"too many effects", "templates:\n  - id: 1\n    effects: [{effect: heal}, {effect: heal}, {effect: heal}, {effect: heal}]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestNewStore_Duplicate(t *testing.T) {
	_, err := NewStore(&Template{ID: 1}, &Template{ID: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateTemplate))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTemplates), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEffectDef_Amount(t *testing.T) {
	e := EffectDef{BasePoints: 100, DieSides: 20}
	assert.Equal(t, int32(100), e.Amount(func(int) int { return 0 }))
	assert.Equal(t, int32(120), e.Amount(func(n int) int { return n - 1 }))
	assert.Equal(t, int32(100), EffectDef{BasePoints: 100}.Amount(nil))
}

func TestLoad_SampleCatalog(t *testing.T) {
	s, err := Load(filepath.Join("..", "..", "config", "templates.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 6, s.Len())

	tc, ok := s.Get(1010)
	require.True(t, ok)
	assert.True(t, tc.Has(AttrArea))
	assert.InDelta(t, 8, tc.Radius, 0.001)
}
