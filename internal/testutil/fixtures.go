package testutil

import (
	"testing"

	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/rules"
)

// Template ids of the fixture catalog.
const (
	FixtureFireball   data.TemplateID = 1001
	FixtureRenew      data.TemplateID = 1003
	FixtureShield     data.TemplateID = 1004
	FixtureCorruption data.TemplateID = 1006
	FixtureGuardian   data.TemplateID = 1008
)

// FixtureTemplates is a small template catalog in the store's YAML format.
const FixtureTemplates = `
templates:
  - id: 1001
    name: Fireball
    schools: [fire]
    class: magic
    cast_ms: 2500
    cost: 120
    duration_ms: 8000
    effects:
      - {effect: school_damage, base: 180, die: 40}
      - {effect: apply_aura, aura: periodic_damage, base: 6, amplitude_ms: 2000}
  - id: 1003
    name: Renew
    schools: [holy]
    class: magic
    attributes: [positive]
    duration_ms: 15000
    cost: 80
    effects:
      - {effect: apply_aura, aura: periodic_heal, base: 40, amplitude_ms: 3000}
  - id: 1004
    name: Shield
    schools: [holy]
    class: magic
    attributes: [positive]
    dispel: magic
    duration_ms: 30000
    effects:
      - {effect: apply_aura, aura: school_absorb, base: 300, misc_schools: [all]}
  - id: 1006
    name: Corruption
    schools: [shadow]
    class: magic
    dispel: magic
    duration_ms: 18000
    effects:
      - {effect: apply_aura, aura: periodic_damage, base: 30, amplitude_ms: 3000}
  - id: 1008
    name: Guardian Spirit
    schools: [holy]
    class: magic
    attributes: [positive]
    duration_ms: 10000
    effects:
      - {effect: apply_aura, aura: prevent_death}
`

// FixtureRules attaches rules to the fixture catalog.
const FixtureRules = `
rules:
  - template: 1001
    damage_bonus: {percent: 10}
  - template: 1008
    death_prevention: {chance: 100, health_percent: 10}
`

// FixtureStore parses FixtureTemplates.
func FixtureStore(tb testing.TB) *data.Store {
	tb.Helper()
	s, err := data.Parse([]byte(FixtureTemplates))
	if err != nil {
		tb.Fatalf("parsing fixture templates: %v", err)
	}
	return s
}

// FixtureRuleTable parses FixtureRules.
func FixtureRuleTable(tb testing.TB) *rules.Table {
	tb.Helper()
	t, err := rules.Parse([]byte(FixtureRules))
	if err != nil {
		tb.Fatalf("parsing fixture rules: %v", err)
	}
	return t
}
