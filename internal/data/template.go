package data

import (
	"github.com/udisondev/combatcore/internal/model"
)

// TemplateID identifies an ability/effect template.
type TemplateID uint32

// MaxEffects is the fixed number of sub-effect slots per template.
const MaxEffects = 3

// DamageClass selects the outcome table used for a template.
type DamageClass uint8

const (
	ClassNone DamageClass = iota
	ClassMagic
	ClassMelee
	ClassRanged
)

// Attr is the template attribute bit set.
type Attr uint64

const (
	AttrPassive Attr = 1 << iota
	AttrPositive
	AttrChanneled
	AttrAutoRepeat
	AttrIndefiniteRepeat // autorepeat that survives generic casts (wand/auto shot)
	AttrOnNextSwing
	AttrDeathPersistent
	AttrDeathOnly
	AttrPersistent // exempt from same-template stacking checks
	AttrArea
	AttrCantReflect
	AttrIgnoreInvulnerability
	AttrIgnoreArmor
	AttrBinary // all-or-nothing spells skip partial resist
	AttrImpossibleDodgeParryBlock
	AttrCantCrit
	AttrDeflectable
	AttrSingleTarget // tracked as the one target of its caster
	AttrNoThreat
	AttrStackForDifferentCasters
	AttrDispelPenalty // resisted by the target's dispel resistance
	AttrAttackerBehindOnly
)

// Has reports whether every bit of a is set.
func (t *Template) Has(a Attr) bool { return t.Attributes&a == a }

// Specific is the uniqueness policy of a template on one target.
type Specific uint8

const (
	SpecificNone Specific = iota
	SpecificPerTarget
	SpecificPerCaster
	SpecificPerFamily
)

// InterruptFlags control what damage does to the victim's in-progress cast.
type InterruptFlags uint8

const (
	InterruptOnDamage InterruptFlags = 1 << iota // hard interrupt
	InterruptPushback                            // delay the cast
)

// ChannelInterruptFlags control what damage does to an in-progress channel.
type ChannelInterruptFlags uint8

const (
	ChannelInterruptOnDamage ChannelInterruptFlags = 1 << iota
	ChannelDelay
)

// AuraInterruptFlags list events that strip the aura from its target.
type AuraInterruptFlags uint16

const (
	AuraInterruptOnDamage AuraInterruptFlags = 1 << iota
	AuraInterruptOnCast
	AuraInterruptOnMelee
	AuraInterruptOnStandUp
)

// EffectKind is the instant effect of one sub-effect slot.
type EffectKind uint8

const (
	EffectNone EffectKind = iota
	EffectSchoolDamage
	EffectWeaponDamage
	EffectHeal
	EffectApplyAura
	EffectDispel
	EffectStealBeneficial
	EffectTriggerSpell
	EffectInterruptCast
	EffectPowerBurn
)

// AuraType is the typed modifier carried by an aura sub-effect.
type AuraType uint16

const (
	AuraNone AuraType = iota
	AuraDummy
	AuraPeriodicDamage
	AuraPeriodicHeal
	AuraPeriodicTriggerSpell
	AuraModStun
	AuraModRoot
	AuraModConfuse
	AuraModFear
	AuraSchoolImmunity      // misc: school mask
	AuraMechanicImmunity    // misc: mechanic
	AuraDispelImmunity      // misc: dispel type
	AuraEffectImmunity      // misc: aura type
	AuraSchoolAbsorb        // misc: school mask
	AuraManaShield          // misc: school mask, multiple: mana per point
	AuraSplitDamagePct      // misc: school mask
	AuraReflectSpells       // amount: chance %
	AuraReflectSpellsSchool // misc: school mask
	AuraModDamageDone       // misc: school mask
	AuraModDamagePercentDone
	AuraModDamageTaken
	AuraModDamagePercentTaken
	AuraModAoeAvoidance
	AuraModMechanicDamageTakenPct // misc: mechanic
	AuraModDamageDoneVersus       // misc: creature type mask
	AuraModDamagePctDoneVersus
	AuraModCritDamageBonus // misc: school mask
	AuraModHitChance
	AuraModSpellHitChance
	AuraModAttackerMeleeHitChance
	AuraModAttackerSpellHitChance
	AuraModResistHitChance // misc: school mask, magic hit taken
	AuraModDodgePercent
	AuraModParryPercent
	AuraModBlockPercent
	AuraModCritPercent
	AuraModExpertise
	AuraModDispelResist
	AuraModResistance // misc: school mask
	AuraModAttackPower
	AuraModSpellPower
	AuraModPossess
	AuraControlVehicle
	AuraPreventDeath
	AuraTypeCount
)

var auraNames = [AuraTypeCount]string{
	"none", "dummy", "periodic_damage", "periodic_heal", "periodic_trigger_spell",
	"mod_stun", "mod_root", "mod_confuse", "mod_fear",
	"school_immunity", "mechanic_immunity", "dispel_immunity", "effect_immunity",
	"school_absorb", "mana_shield", "split_damage_pct",
	"reflect_spells", "reflect_spells_school",
	"mod_damage_done", "mod_damage_percent_done", "mod_damage_taken", "mod_damage_percent_taken",
	"mod_aoe_avoidance", "mod_mechanic_damage_taken_pct",
	"mod_damage_done_versus", "mod_damage_pct_done_versus", "mod_crit_damage_bonus",
	"mod_hit_chance", "mod_spell_hit_chance", "mod_attacker_melee_hit_chance",
	"mod_attacker_spell_hit_chance", "mod_resist_hit_chance",
	"mod_dodge_percent", "mod_parry_percent", "mod_block_percent", "mod_crit_percent",
	"mod_expertise", "mod_dispel_resist", "mod_resistance",
	"mod_attack_power", "mod_spell_power",
	"mod_possess", "control_vehicle", "prevent_death",
}

func (a AuraType) String() string {
	if a < AuraTypeCount {
		return auraNames[a]
	}
	return "unknown"
}

// EffectDef is the static definition of one sub-effect slot.
type EffectDef struct {
	Kind        EffectKind
	Aura        AuraType
	BasePoints  int32
	DieSides    int32
	AmplitudeMs int32
	MiscValue   int32
	// Multiple is a per-effect ratio: mana per absorbed point for mana
	// shields, damage per tick fraction for folds.
	Multiple float64
	Trigger  TemplateID
}

// Amount returns the effect magnitude: BasePoints plus a roll in [0, DieSides].
// roll(n) must return a value in [0, n).
func (e EffectDef) Amount(roll func(n int) int) int32 {
	if e.DieSides <= 0 || roll == nil {
		return e.BasePoints
	}
	return e.BasePoints + int32(roll(int(e.DieSides)+1))
}

// IsPeriodic reports whether the sub-effect ticks on an amplitude timer.
func (e EffectDef) IsPeriodic() bool {
	return e.AmplitudeMs > 0 && (e.Aura == AuraPeriodicDamage || e.Aura == AuraPeriodicHeal || e.Aura == AuraPeriodicTriggerSpell)
}

// Template is the immutable definition of an ability or effect.
type Template struct {
	ID         TemplateID
	Name       string
	Rank       int32
	Family     uint32
	Schools    model.SchoolMask
	DmgClass   DamageClass
	Mechanic   model.Mechanic
	Dispel     model.DispelType
	Attributes Attr

	Specific      Specific
	SpecificGroup uint32

	StackAmount int32
	DurationMs  int32 // -1 permanent
	CastTimeMs  int32
	Speed       float64 // projectile units per second, 0 instant
	Radius      float64 // area templates: spread around the target

	Interrupt        InterruptFlags
	ChannelInterrupt ChannelInterruptFlags
	AuraInterrupt    AuraInterruptFlags

	ProcCharges     int32
	SpellPowerCoef  float64
	AttackPowerCoef float64
	PowerCost       int32
	PowerType       model.Power

	Effects [MaxEffects]EffectDef
}

// HasAura reports whether any sub-effect applies the given aura type.
func (t *Template) HasAura(a AuraType) bool {
	for i := range t.Effects {
		if t.Effects[i].Kind == EffectApplyAura && t.Effects[i].Aura == a {
			return true
		}
	}
	return false
}

// HasEffect reports whether any sub-effect has the given instant kind.
func (t *Template) HasEffect(k EffectKind) bool {
	for i := range t.Effects {
		if t.Effects[i].Kind == k {
			return true
		}
	}
	return false
}

// IsAura reports whether applying the template creates an effect holder.
func (t *Template) IsAura() bool { return t.HasEffect(EffectApplyAura) }

// IsPositive reports whether the template is purely beneficial.
func (t *Template) IsPositive() bool { return t.Has(AttrPositive) }

// IsPermanent reports whether holders of the template never expire.
func (t *Template) IsPermanent() bool { return t.DurationMs < 0 || t.Has(AttrPassive) }

// IsStackable reports whether multiple applications merge into stacks.
func (t *Template) IsStackable() bool { return t.StackAmount > 1 }

// SameFamily reports whether both templates are ranks of one family.
func (t *Template) SameFamily(o *Template) bool {
	return t.Family != 0 && t.Family == o.Family
}
