package combat

import (
	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/model"
)

// Outcome is the categorical result of one attack or spell attempt.
type Outcome uint8

const (
	OutcomeEvade Outcome = iota
	OutcomeImmune
	OutcomeReflect
	OutcomeResist
	OutcomeMiss
	OutcomeDodge
	OutcomeParry
	OutcomeGlancing
	OutcomeBlock
	OutcomeCrit
	OutcomeCrushing
	OutcomeNormal
)

var outcomeNames = [...]string{
	"evade", "immune", "reflect", "resist", "miss", "dodge", "parry",
	"glancing", "block", "crit", "crushing", "normal",
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// Lands reports whether the attempt connects and its effects apply.
func (o Outcome) Lands() bool {
	switch o {
	case OutcomeNormal, OutcomeCrit, OutcomeGlancing, OutcomeCrushing:
		return true
	}
	return false
}

// Resolution is the resolver's verdict.
type Resolution struct {
	Outcome Outcome
	// ReflectProc is set when the victim's reflect effect fired and owes a
	// proc charge.
	ReflectProc bool
}

const (
	basisPoints = 10000
	// maxMeleeMissBP caps the melee miss chance at 60%.
	maxMeleeMissBP = 6000
	// dualWieldMissPct is the white-swing miss penalty when dual wielding.
	dualWieldMissPct = 19
)

// Resolve produces exactly one outcome tag for attacker hitting victim with
// tpl. tpl is nil for white weapon swings; at selects the weapon hand.
func (e *Engine) Resolve(attacker, victim *Unit, tpl *data.Template, at model.AttackType) Resolution {
	return e.resolve(attacker, victim, tpl, at, true)
}

func (e *Engine) resolve(attacker, victim *Unit, tpl *data.Template, at model.AttackType, canReflect bool) Resolution {
	if victim.HasState(model.StateEvading) || victim.HasState(model.StateUntargetable) {
		return Resolution{Outcome: OutcomeEvade}
	}

	schools := model.MaskNormal
	if tpl != nil {
		schools = tpl.Schools
	}
	if tpl == nil || !tpl.Has(data.AttrIgnoreInvulnerability) {
		im := victim.Immunities()
		if im.SchoolImmune(schools) || (tpl != nil && !tpl.IsPositive() && im.MechanicImmune(tpl.Mechanic)) {
			return Resolution{Outcome: OutcomeImmune}
		}
	}

	if tpl != nil && tpl.IsPositive() {
		return Resolution{Outcome: OutcomeNormal}
	}

	if canReflect && reflectable(tpl) {
		chance := victim.Auras.TotalModifier(data.AuraReflectSpells) +
			victim.Auras.TotalModifierByMiscMask(data.AuraReflectSpellsSchool, int32(schools))
		if chance > 0 && e.rnd.IntN(100) < int(chance) {
			return Resolution{Outcome: OutcomeReflect, ReflectProc: true}
		}
	}

	if tpl == nil || tpl.DmgClass == data.ClassMelee || tpl.DmgClass == data.ClassRanged {
		return Resolution{Outcome: e.meleeOutcome(attacker, victim, tpl, at)}
	}
	if tpl.DmgClass == data.ClassMagic {
		return Resolution{Outcome: e.magicOutcome(attacker, victim, tpl)}
	}
	return Resolution{Outcome: OutcomeNormal}
}

func reflectable(tpl *data.Template) bool {
	return tpl != nil && tpl.DmgClass == data.ClassMagic &&
		!tpl.Has(data.AttrCantReflect) && !tpl.Has(data.AttrPassive) &&
		!tpl.Has(data.AttrIgnoreInvulnerability)
}

// reachable reports whether the victim faces the attacker, or is able to
// defend against attacks from behind.
func reachable(attacker, victim *Unit) bool {
	if victim.Flags&model.CanBlockBehind != 0 {
		return true
	}
	return model.RelativePosition(attacker.Location(), victim.Location()) != model.PositionBack
}

// magicHitChance returns the spell hit chance in percent before clamping.
func magicHitChance(attacker, victim *Unit, tpl *data.Template) float64 {
	lchance := int32(11)
	if victim.IsPlayer() {
		lchance = 7
	}
	diff := victim.Level() - attacker.Level()
	var hit int32
	if diff < 3 {
		hit = 96 - diff
	} else {
		hit = 94 - (diff-2)*lchance
	}

	mask := int32(tpl.Schools)
	hit += attacker.Auras.TotalModifierByMiscMask(data.AuraModSpellHitChance, mask)
	hit += victim.Auras.TotalModifierByMiscMask(data.AuraModAttackerSpellHitChance, mask)
	hit -= victim.Auras.TotalModifierByMiscMask(data.AuraModResistHitChance, mask)
	if tpl.Has(data.AttrDispelPenalty) || tpl.HasEffect(data.EffectDispel) {
		hit -= victim.Auras.TotalModifier(data.AuraModDispelResist)
	}
	return float64(hit) + attacker.Stats.SpellHitChance
}

// magicOutcome resolves a magic-class attempt. A miss is reported as Resist
// and a deflect as Parry.
func (e *Engine) magicOutcome(attacker, victim *Unit, tpl *data.Template) Outcome {
	hitBP := clampInt(int(magicHitChance(attacker, victim, tpl)*100), 100, basisPoints)
	roll := e.rnd.IntN(basisPoints)

	sum := basisPoints - hitBP
	if roll < sum {
		return OutcomeResist
	}

	if tpl.Has(data.AttrDeflectable) && victim.CanParry() && reachable(attacker, victim) {
		sum += pctToBP(parryPct(victim))
		if roll < sum {
			return OutcomeParry
		}
	}

	if !tpl.Has(data.AttrCantCrit) {
		sum += pctToBP(spellCritPct(attacker))
		if roll < sum {
			return OutcomeCrit
		}
	}
	return OutcomeNormal
}

// meleeMissBP returns the melee or ranged miss chance in basis points.
func meleeMissBP(attacker, victim *Unit, tpl *data.Template, at model.AttackType) int {
	skillDiff := float64(weaponSkill(attacker) - victim.Stats.DefenseSkill)
	var hit float64
	switch {
	case victim.IsPlayer():
		hit = 95 + skillDiff*0.04
	case skillDiff < -10:
		hit = 93 + (skillDiff+10)*0.4
	default:
		hit = 95 + skillDiff*0.1
	}
	hit += float64(victim.Auras.TotalModifier(data.AuraModAttackerMeleeHitChance))

	miss := 100 - hit
	miss -= attacker.Stats.HitChance + float64(attacker.Auras.TotalModifier(data.AuraModHitChance))
	if tpl == nil && at != model.RangedAttack && attacker.DualWield() {
		miss += dualWieldMissPct
	}
	return clampInt(pctToBP(miss), 0, maxMeleeMissBP)
}

// meleeOutcome walks the one-roll attack table. Thresholds accumulate in
// basis points and the first one exceeded wins.
func (e *Engine) meleeOutcome(attacker, victim *Unit, tpl *data.Template, at model.AttackType) Outcome {
	ability := tpl != nil
	noDefense := ability && tpl.Has(data.AttrImpossibleDodgeParryBlock)
	canCrit := !ability || !tpl.Has(data.AttrCantCrit)
	front := reachable(attacker, victim)
	ranged := at == model.RangedAttack

	skillBonus := 4 * int(weaponSkill(attacker)-maxSkillForLevel(victim))
	expertise := int(attacker.Stats.Expertise+attacker.Auras.TotalModifier(data.AuraModExpertise)) * 25

	critBP := 0
	if canCrit {
		critBP = pctToBP(critPct(attacker)) + skillBonus
	}

	roll := e.rnd.IntN(basisPoints)
	sum := 0

	if miss := meleeMissBP(attacker, victim, tpl, at); miss > 0 {
		sum += miss
		if roll < sum {
			return OutcomeMiss
		}
	}

	if victim.IsPlayer() && victim.StandState() != model.StandStanding && canCrit && critPct(attacker) > 0 {
		return OutcomeCrit
	}

	if !noDefense && !ranged && victim.CanDodge() && (front || !victim.IsPlayer()) {
		dodge := pctToBP(dodgePct(victim)) - skillBonus - expertise
		if dodge > 0 {
			sum += dodge
			if roll < sum {
				return OutcomeDodge
			}
		}
	}

	if !noDefense && !ranged && front && victim.CanParry() {
		parry := pctToBP(parryPct(victim)) - skillBonus - expertise
		if parry > 0 {
			sum += parry
			if roll < sum {
				return OutcomeParry
			}
		}
	}

	if glancingAllowed(attacker, victim, tpl, at) {
		skill := min(weaponSkill(attacker), maxSkillForLevel(attacker))
		glance := min((10+int(victim.Stats.DefenseSkill-skill))*100, pctToBP(e.opts.GlancingCapPct))
		if glance > 0 {
			sum += glance
			if roll < sum {
				return OutcomeGlancing
			}
		}
	}

	if !noDefense && front && victim.CanBlock() {
		block := pctToBP(blockPct(victim)) - skillBonus
		if block > 0 {
			sum += block
			if roll < sum {
				return OutcomeBlock
			}
		}
	}

	if critBP > 0 {
		sum += critBP
		if roll < sum {
			return OutcomeCrit
		}
	}

	if crush := crushingBP(attacker, victim); crush > 0 {
		sum += crush
		if roll < sum {
			return OutcomeCrushing
		}
	}
	return OutcomeNormal
}

// glancingAllowed reports whether a white swing can glance: players and
// pets hitting a higher-level creature.
func glancingAllowed(attacker, victim *Unit, tpl *data.Template, at model.AttackType) bool {
	if tpl != nil || at == model.RangedAttack {
		return false
	}
	if !attacker.IsPlayer() && !attacker.IsPet() {
		return false
	}
	if victim.IsPlayer() || victim.IsPet() {
		return false
	}
	return attacker.Level() < victim.Level()
}

// crushingBP returns the crushing blow chance. Only non-pet creatures that
// outlevel the victim by four or more and lead its capped defense by at
// least 15 skill points crush.
func crushingBP(attacker, victim *Unit) int {
	if attacker.IsPlayer() || attacker.IsPet() || attacker.Flags&model.NoCrush != 0 {
		return 0
	}
	if attacker.Level() < victim.Level()+4 {
		return 0
	}
	def := min(victim.Stats.DefenseSkill, maxSkillForLevel(victim))
	diff := int(maxSkillForLevel(attacker) - def)
	if diff < 15 {
		return 0
	}
	return diff*200 - 1500
}

func maxSkillForLevel(u *Unit) int32 { return u.Level() * 5 }

func weaponSkill(u *Unit) int32 { return u.Stats.WeaponSkill }

func critPct(u *Unit) float64 {
	return u.Stats.CritChance + float64(u.Auras.TotalModifier(data.AuraModCritPercent))
}

func spellCritPct(u *Unit) float64 {
	return u.Stats.SpellCritChance + float64(u.Auras.TotalModifier(data.AuraModCritPercent))
}

func dodgePct(u *Unit) float64 {
	return u.Stats.DodgeChance + float64(u.Auras.TotalModifier(data.AuraModDodgePercent))
}

func parryPct(u *Unit) float64 {
	return u.Stats.ParryChance + float64(u.Auras.TotalModifier(data.AuraModParryPercent))
}

func blockPct(u *Unit) float64 {
	return u.Stats.BlockChance + float64(u.Auras.TotalModifier(data.AuraModBlockPercent))
}

func pctToBP(pct float64) int { return int(pct * 100) }

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
