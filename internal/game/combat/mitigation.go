package combat

import (
	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/model"
)

const (
	maxArmorReduction = 0.75
	maxResistChance   = 0.75
	resistBuckets     = 4
)

// armorReduction returns the fraction of physical damage armor absorbs
// against an attacker of the given level.
func armorReduction(armor, attackerLevel int32) float64 {
	levelMod := float64(attackerLevel)
	if attackerLevel > 59 {
		levelMod += 4.5 * float64(attackerLevel-59)
	}
	tmp := 0.1 * float64(armor) / (8.5*levelMod + 40)
	return min(max(tmp/(1+tmp), 0), maxArmorReduction)
}

// applyArmor reduces physical damage by the victim's armor. A positive
// amount never drops below 1.
func applyArmor(dmg, armor, attackerLevel int32) int32 {
	if dmg <= 0 {
		return dmg
	}
	reduced := int32(float64(dmg) * (1 - armorReduction(armor, attackerLevel)))
	return max(reduced, 1)
}

// resistanceChance converts the victim's resistance into the per-bucket
// probability of the partial resist distribution.
func resistanceChance(resistance, attackerLevel int32) float64 {
	if attackerLevel <= 0 {
		attackerLevel = 1
	}
	p := float64(resistance) * 0.15 / float64(attackerLevel)
	return min(max(p, 0), maxResistChance)
}

var binomialFactorial = [resistBuckets]float64{24, 6, 4, 6}

// resistQuarters picks how many quarters of the damage are resisted. ran is
// a uniform draw in [0, 100]; the buckets follow a binomial distribution
// over four trials of probability p.
func resistQuarters(p float64, ran int) int {
	m := 0
	binom := 0.0
	for i := range resistBuckets {
		term := 1.0
		for range i {
			term *= p
		}
		for range resistBuckets - i {
			term *= 1 - p
		}
		binom += 2400 * term / binomialFactorial[i]
		if float64(ran) > binom {
			m++
		} else {
			break
		}
	}
	return m
}

// partialResist returns how much of a magic amount the victim resists.
func (e *Engine) partialResist(attacker, victim *Unit, d *DamageInfo, dmg int32) int32 {
	if dmg <= 0 {
		return 0
	}
	if d.Template != nil && d.Template.Has(data.AttrBinary) {
		return 0
	}
	school := d.Schools.First()
	resistance := victim.Stats.Resistance[school] +
		victim.Auras.TotalModifierByMiscMask(data.AuraModResistance, int32(school.Mask()))
	p := resistanceChance(resistance, attacker.Level())
	if p <= 0 {
		return 0
	}
	m := resistQuarters(p, e.rnd.IntN(101))
	if d.Periodic && m == resistBuckets {
		return dmg - 1
	}
	return dmg * int32(m) / resistBuckets
}

// mitigate applies armor to physical damage and partial resist to magic.
func (e *Engine) mitigate(attacker, victim *Unit, d *DamageInfo, dmg int32) int32 {
	if dmg <= 0 {
		return dmg
	}
	if d.Schools.IsPhysical() {
		if d.Template != nil && d.Template.Has(data.AttrIgnoreArmor) {
			return dmg
		}
		return applyArmor(dmg, victim.Stats.Armor, attacker.Level())
	}
	resisted := e.partialResist(attacker, victim, d, dmg)
	d.Resisted += resisted
	return dmg - resisted
}

// glancingFactor rolls the damage multiplier of a glancing blow.
func (e *Engine) glancingFactor(attacker, victim *Unit) float64 {
	diff := float64(victim.Stats.DefenseSkill - attacker.Stats.WeaponSkill)
	low := min(max(1.3-0.05*diff, 0.01), 0.91)
	high := min(max(1.2-0.03*diff, 0.2), 0.99)
	if low > high {
		low = high
	}
	return low + (high-low)*float64(e.rnd.IntN(1001))/1000
}

// resilienceReductionPct is the crit damage reduction granted by resilience.
func resilienceReductionPct(victim *model.Combatant) float64 {
	return min(victim.Stats.Resilience*2, 33)
}
