package data

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/combatcore/internal/model"
)

// ErrDuplicateTemplate is returned when two templates share an id.
var ErrDuplicateTemplate = errors.New("duplicate template id")

// Store is the read-only template table. It is built once at startup and
// shared by reference between shards.
type Store struct {
	templates map[TemplateID]*Template
}

// NewStore validates the templates and builds a store.
func NewStore(templates ...*Template) (*Store, error) {
	s := &Store{templates: make(map[TemplateID]*Template, len(templates))}
	for _, t := range templates {
		if err := validate(t); err != nil {
			return nil, err
		}
		if _, dup := s.templates[t.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateTemplate, t.ID)
		}
		s.templates[t.ID] = t
	}
	return s, nil
}

// MustStore is NewStore for fixed template sets; it panics on invalid input.
func MustStore(templates ...*Template) *Store {
	s, err := NewStore(templates...)
	if err != nil {
		panic(err)
	}
	return s
}

// Get returns the template with the given id.
func (s *Store) Get(id TemplateID) (*Template, bool) {
	t, ok := s.templates[id]
	return t, ok
}

// Len returns the number of templates.
func (s *Store) Len() int { return len(s.templates) }

func validate(t *Template) error {
	if t == nil {
		return errors.New("nil template")
	}
	if t.ID == 0 {
		return fmt.Errorf("template %q: id must be non-zero", t.Name)
	}
	if t.StackAmount < 0 {
		return fmt.Errorf("template %d: negative stack amount", t.ID)
	}
	if t.Specific == SpecificPerFamily && t.Family == 0 {
		return fmt.Errorf("template %d: per-family uniqueness without a family", t.ID)
	}
	for i, e := range t.Effects {
		if e.Kind != EffectApplyAura && e.Aura != AuraNone {
			return fmt.Errorf("template %d effect %d: aura type on non-aura effect", t.ID, i)
		}
		if e.Aura >= AuraTypeCount {
			return fmt.Errorf("template %d effect %d: unknown aura type %d", t.ID, i, e.Aura)
		}
	}
	return nil
}

type effectYAML struct {
	Effect      string   `yaml:"effect"`
	Aura        string   `yaml:"aura"`
	Base        int32    `yaml:"base"`
	Die         int32    `yaml:"die"`
	AmplitudeMs int32    `yaml:"amplitude_ms"`
	Misc        int32    `yaml:"misc"`
	MiscSchools []string `yaml:"misc_schools"`
	Multiple    float64  `yaml:"multiple"`
	Trigger     uint32   `yaml:"trigger"`
}

type templateYAML struct {
	ID               uint32       `yaml:"id"`
	Name             string       `yaml:"name"`
	Rank             int32        `yaml:"rank"`
	Family           uint32       `yaml:"family"`
	Schools          []string     `yaml:"schools"`
	Class            string       `yaml:"class"`
	Mechanic         string       `yaml:"mechanic"`
	Dispel           string       `yaml:"dispel"`
	Attributes       []string     `yaml:"attributes"`
	Specific         string       `yaml:"specific"`
	SpecificGroup    uint32       `yaml:"specific_group"`
	Stack            int32        `yaml:"stack"`
	DurationMs       *int32       `yaml:"duration_ms"`
	CastMs           int32        `yaml:"cast_ms"`
	Speed            float64      `yaml:"speed"`
	Radius           float64      `yaml:"radius"`
	Interrupt        []string     `yaml:"interrupt"`
	ChannelInterrupt []string     `yaml:"channel_interrupt"`
	AuraInterrupt    []string     `yaml:"aura_interrupt"`
	Charges          int32        `yaml:"charges"`
	SpellPowerCoef   float64      `yaml:"sp_coef"`
	AttackPowerCoef  float64      `yaml:"ap_coef"`
	Cost             int32        `yaml:"cost"`
	Power            string       `yaml:"power"`
	Effects          []effectYAML `yaml:"effects"`
}

type fileYAML struct {
	Templates []templateYAML `yaml:"templates"`
}

// Load reads templates from a YAML file.
func Load(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading templates %s: %w", path, err)
	}
	s, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing templates %s: %w", path, err)
	}
	slog.Info("loaded templates", "path", path, "count", s.Len())
	return s, nil
}

// Parse builds a store from YAML bytes.
func Parse(raw []byte) (*Store, error) {
	var f fileYAML
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	templates := make([]*Template, 0, len(f.Templates))
	for i := range f.Templates {
		t, err := f.Templates[i].build()
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return NewStore(templates...)
}

func (y *templateYAML) build() (*Template, error) {
	t := &Template{
		ID:              TemplateID(y.ID),
		Name:            y.Name,
		Rank:            y.Rank,
		Family:          y.Family,
		SpecificGroup:   y.SpecificGroup,
		StackAmount:     y.Stack,
		DurationMs:      -1,
		CastTimeMs:      y.CastMs,
		Speed:           y.Speed,
		Radius:          y.Radius,
		ProcCharges:     y.Charges,
		SpellPowerCoef:  y.SpellPowerCoef,
		AttackPowerCoef: y.AttackPowerCoef,
		PowerCost:       y.Cost,
	}
	if y.DurationMs != nil {
		t.DurationMs = *y.DurationMs
	}
	fail := func(what, v string) error {
		return fmt.Errorf("template %d: unknown %s %q", y.ID, what, v)
	}

	var err error
	if t.Schools, err = parseSchools(y.Schools); err != nil {
		return nil, fmt.Errorf("template %d: %w", y.ID, err)
	}
	if t.Schools == 0 {
		t.Schools = model.MaskNormal
	}

	var ok bool
	if t.DmgClass, ok = lookup(classNames, y.Class, ClassNone); !ok {
		return nil, fail("class", y.Class)
	}
	if t.Specific, ok = lookup(specificNames, y.Specific, SpecificNone); !ok {
		return nil, fail("specific", y.Specific)
	}
	if y.Mechanic != "" {
		if t.Mechanic, ok = model.ParseMechanic(y.Mechanic); !ok {
			return nil, fail("mechanic", y.Mechanic)
		}
	}
	if y.Dispel != "" {
		if t.Dispel, ok = model.ParseDispelType(y.Dispel); !ok {
			return nil, fail("dispel", y.Dispel)
		}
	}
	if t.PowerType, ok = lookup(powerNames, y.Power, model.PowerMana); !ok {
		return nil, fail("power", y.Power)
	}
	if t.Attributes, err = parseFlags(attrNames, y.Attributes); err != nil {
		return nil, fmt.Errorf("template %d: %w", y.ID, err)
	}
	if t.Interrupt, err = parseFlags(interruptNames, y.Interrupt); err != nil {
		return nil, fmt.Errorf("template %d: %w", y.ID, err)
	}
	if t.ChannelInterrupt, err = parseFlags(channelInterruptNames, y.ChannelInterrupt); err != nil {
		return nil, fmt.Errorf("template %d: %w", y.ID, err)
	}
	if t.AuraInterrupt, err = parseFlags(auraInterruptNames, y.AuraInterrupt); err != nil {
		return nil, fmt.Errorf("template %d: %w", y.ID, err)
	}

	if len(y.Effects) > MaxEffects {
		return nil, fmt.Errorf("template %d: %d effects, max %d", y.ID, len(y.Effects), MaxEffects)
	}
	for i, ey := range y.Effects {
		e := EffectDef{
			BasePoints:  ey.Base,
			DieSides:    ey.Die,
			AmplitudeMs: ey.AmplitudeMs,
			MiscValue:   ey.Misc,
			Multiple:    ey.Multiple,
			Trigger:     TemplateID(ey.Trigger),
		}
		if e.Kind, ok = lookup(effectNames, ey.Effect, EffectNone); !ok {
			return nil, fail("effect", ey.Effect)
		}
		if ey.Aura != "" {
			if e.Aura, ok = parseAura(ey.Aura); !ok {
				return nil, fail("aura", ey.Aura)
			}
		}
		if len(ey.MiscSchools) > 0 {
			mask, err := parseSchools(ey.MiscSchools)
			if err != nil {
				return nil, fmt.Errorf("template %d effect %d: %w", y.ID, i, err)
			}
			e.MiscValue = int32(mask)
		}
		t.Effects[i] = e
	}
	return t, nil
}

var classNames = map[string]DamageClass{
	"none": ClassNone, "magic": ClassMagic, "melee": ClassMelee, "ranged": ClassRanged,
}

var specificNames = map[string]Specific{
	"none": SpecificNone, "per_target": SpecificPerTarget,
	"per_caster": SpecificPerCaster, "per_family": SpecificPerFamily,
}

var powerNames = map[string]model.Power{
	"mana": model.PowerMana, "rage": model.PowerRage,
	"focus": model.PowerFocus, "energy": model.PowerEnergy,
}

var effectNames = map[string]EffectKind{
	"none":             EffectNone,
	"school_damage":    EffectSchoolDamage,
	"weapon_damage":    EffectWeaponDamage,
	"heal":             EffectHeal,
	"apply_aura":       EffectApplyAura,
	"dispel":           EffectDispel,
	"steal_beneficial": EffectStealBeneficial,
	"trigger_spell":    EffectTriggerSpell,
	"interrupt_cast":   EffectInterruptCast,
	"power_burn":       EffectPowerBurn,
}

var attrNames = map[string]Attr{
	"passive":                      AttrPassive,
	"positive":                     AttrPositive,
	"channeled":                    AttrChanneled,
	"auto_repeat":                  AttrAutoRepeat,
	"indefinite_repeat":            AttrIndefiniteRepeat,
	"on_next_swing":                AttrOnNextSwing,
	"death_persistent":             AttrDeathPersistent,
	"death_only":                   AttrDeathOnly,
	"persistent":                   AttrPersistent,
	"area":                         AttrArea,
	"cant_reflect":                 AttrCantReflect,
	"ignore_invulnerability":       AttrIgnoreInvulnerability,
	"ignore_armor":                 AttrIgnoreArmor,
	"binary":                       AttrBinary,
	"impossible_dodge_parry_block": AttrImpossibleDodgeParryBlock,
	"cant_crit":                    AttrCantCrit,
	"deflectable":                  AttrDeflectable,
	"single_target":                AttrSingleTarget,
	"no_threat":                    AttrNoThreat,
	"stack_for_different_casters":  AttrStackForDifferentCasters,
	"dispel_penalty":               AttrDispelPenalty,
	"attacker_behind_only":         AttrAttackerBehindOnly,
}

var interruptNames = map[string]InterruptFlags{
	"damage": InterruptOnDamage, "pushback": InterruptPushback,
}

var channelInterruptNames = map[string]ChannelInterruptFlags{
	"damage": ChannelInterruptOnDamage, "delay": ChannelDelay,
}

var auraInterruptNames = map[string]AuraInterruptFlags{
	"damage": AuraInterruptOnDamage, "cast": AuraInterruptOnCast,
	"melee": AuraInterruptOnMelee, "stand_up": AuraInterruptOnStandUp,
}

func parseAura(name string) (AuraType, bool) {
	for i, n := range auraNames {
		if n == name {
			return AuraType(i), true
		}
	}
	return AuraNone, false
}

func parseSchools(names []string) (model.SchoolMask, error) {
	var mask model.SchoolMask
	for _, n := range names {
		switch n {
		case "magic":
			mask |= model.MaskMagic
		case "all":
			mask |= model.MaskAll
		default:
			s, ok := model.ParseSchool(n)
			if !ok {
				return 0, fmt.Errorf("unknown school %q", n)
			}
			mask |= s.Mask()
		}
	}
	return mask, nil
}

func lookup[T any](table map[string]T, name string, def T) (T, bool) {
	if name == "" {
		return def, true
	}
	v, ok := table[name]
	return v, ok
}

func parseFlags[T ~uint8 | ~uint16 | ~uint32 | ~uint64](table map[string]T, names []string) (T, error) {
	var out T
	for _, n := range names {
		v, ok := table[n]
		if !ok {
			return 0, fmt.Errorf("unknown flag %q", n)
		}
		out |= v
	}
	return out, nil
}
