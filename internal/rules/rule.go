// Package rules holds the per-template special cases of the combat core as
// data: a template id maps to a Rule whose hooks the engine consults at fixed
// points of the registry and damage pipeline.
package rules

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/model"
)

// BoostSource selects the caster stat a post-apply boost scales from.
type BoostSource uint8

const (
	FromSpellPower BoostSource = iota
	FromAttackPower
)

// Boost raises the amount of one sub-effect after the holder is applied.
type Boost struct {
	Effect  int         `yaml:"effect"`
	Source  BoostSource `yaml:"-"`
	From    string      `yaml:"from"`
	Percent float64     `yaml:"percent"`
}

// DispelRetaliation turns the magnitude left on a dispelled holder into a
// cast from the holder's caster onto the dispeller.
type DispelRetaliation struct {
	Template   data.TemplateID `yaml:"template"`
	Multiplier float64         `yaml:"multiplier"`
}

// AbsorbRetaliation redirects a share of absorbed damage back at the source.
type AbsorbRetaliation struct {
	Template data.TemplateID `yaml:"template"`
	Percent  float64         `yaml:"percent"`
}

// DamageBonus is a fixed caster-side bonus applied to the template's damage.
type DamageBonus struct {
	Flat    float64 `yaml:"flat"`
	Percent float64 `yaml:"percent"`
}

// PowerScaling adds up to MaxPercent damage as the caster's pool fills.
type PowerScaling struct {
	Power      model.Power `yaml:"-"`
	Pool       string      `yaml:"pool"`
	MaxPercent float64     `yaml:"max_percent"`
}

// DeathPrevention stops a lethal hit. Chance 100 is the guaranteed variant.
type DeathPrevention struct {
	Chance        float64         `yaml:"chance"`
	HealthPercent float64         `yaml:"health_percent"`
	Convert       data.TemplateID `yaml:"convert"`
}

// Guaranteed reports whether the prevention always triggers.
func (d *DeathPrevention) Guaranteed() bool { return d.Chance >= 100 }

// Revival aborts a death at the sequencer and restores health.
type Revival struct {
	HealthPercent float64 `yaml:"health_percent"`
}

// Rule is the set of special behaviours attached to one template.
type Rule struct {
	Template          data.TemplateID    `yaml:"template"`
	FoldPeriodic      bool               `yaml:"fold_periodic"`
	DispelRetaliation *DispelRetaliation `yaml:"dispel_retaliation"`
	AbsorbRetaliation *AbsorbRetaliation `yaml:"absorb_retaliation"`
	PostApply         []Boost            `yaml:"post_apply"`
	DamageBonus       DamageBonus        `yaml:"damage_bonus"`
	PowerScaling      *PowerScaling      `yaml:"power_scaling"`
	Coexist           []data.TemplateID  `yaml:"coexist"`
	DeathPrevention   *DeathPrevention   `yaml:"death_prevention"`
	Revival           *Revival           `yaml:"revival"`
	Script            string             `yaml:"script"`

	proto *lua.FunctionProto
}

// HasScript reports whether the rule carries a compiled bonus script.
func (r *Rule) HasScript() bool { return r != nil && r.proto != nil }
