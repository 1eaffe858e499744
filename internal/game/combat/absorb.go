package combat

import (
	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/game/aura"
	"github.com/udisondev/combatcore/internal/model"
	"github.com/udisondev/combatcore/internal/rules"
)

type retaliation struct {
	tpl    *data.Template
	amount int32
}

// absorb consumes the victim's school absorb shields in registration order,
// then its mana shields. Emptied shields are removed after the pass and
// absorb retaliations fire last.
func (e *Engine) absorb(attacker, victim *Unit, d *DamageInfo, dmg int32) int32 {
	if dmg <= 0 {
		return dmg
	}
	mask := int32(d.Schools)
	remaining := dmg
	var spent []*aura.Holder
	var owed []retaliation

	take := func(se *aura.SubEffect, limit int32) {
		n := min(se.Amount(), remaining, limit)
		if n <= 0 {
			return
		}
		se.SetAmount(se.Amount() - n)
		remaining -= n
		if se.Amount() <= 0 {
			spent = append(spent, se.Holder())
		}
		if r := e.rules.Get(se.Holder().Template().ID); r != nil && r.AbsorbRetaliation != nil {
			if tpl := e.template(r.AbsorbRetaliation.Template); tpl != nil {
				owed = append(owed, retaliation{tpl: tpl, amount: int32(float64(n) * r.AbsorbRetaliation.Percent / 100)})
			}
		}
	}

	for _, se := range victim.Auras.Effects(data.AuraSchoolAbsorb) {
		if remaining <= 0 {
			break
		}
		if se.Holder().IsRemoved() || se.Misc()&mask == 0 {
			continue
		}
		take(se, remaining)
	}

	for _, se := range victim.Auras.Effects(data.AuraManaShield) {
		if remaining <= 0 {
			break
		}
		if se.Holder().IsRemoved() || se.Misc()&mask == 0 {
			continue
		}
		mult := se.Def().Multiple
		if mult <= 0 {
			take(se, remaining)
			continue
		}
		before := remaining
		take(se, int32(float64(victim.Power(model.PowerMana))/mult))
		victim.ModifyPower(model.PowerMana, -int32(float64(before-remaining)*mult))
	}

	for _, h := range spent {
		victim.Auras.RemoveEffect(h, aura.RemoveDefault)
	}
	d.Absorbed += dmg - remaining

	for _, r := range owed {
		if r.amount > 0 && attacker != victim && attacker.IsAlive() {
			e.castTriggered(victim, attacker, r.tpl, r.amount)
		}
	}
	return remaining
}

// split redirects a share of the damage to the casters of the victim's
// split-damage effects. Redirected damage never splits again.
func (e *Engine) split(attacker, victim *Unit, d *DamageInfo, dmg int32) int32 {
	if d.Shared || dmg <= 0 || attacker == victim {
		return dmg
	}
	mask := int32(d.Schools)
	for _, se := range victim.Auras.Effects(data.AuraSplitDamagePct) {
		if dmg <= 0 {
			break
		}
		h := se.Holder()
		if h.IsRemoved() || se.Misc()&mask == 0 {
			continue
		}
		caster := e.units[h.CasterID()]
		if caster == nil || caster == victim || !caster.IsAlive() {
			continue
		}
		share := min(int32(float64(dmg)*float64(se.Amount())/100), dmg)
		if share <= 0 {
			continue
		}
		dmg -= share
		e.DamageShared(attacker, caster, d.Template, d.Schools, share)
	}
	return dmg
}

// findDeathPrevention returns the holder that stops a lethal hit. Guaranteed
// variants win; chance variants roll in registration order.
func (e *Engine) findDeathPrevention(victim *Unit) (*aura.Holder, *rules.DeathPrevention) {
	type candidate struct {
		h  *aura.Holder
		dp *rules.DeathPrevention
	}
	var chance []candidate
	for _, se := range victim.Auras.Effects(data.AuraPreventDeath) {
		h := se.Holder()
		if h.IsRemoved() {
			continue
		}
		r := e.rules.Get(h.Template().ID)
		if r == nil || r.DeathPrevention == nil {
			continue
		}
		if r.DeathPrevention.Guaranteed() {
			return h, r.DeathPrevention
		}
		chance = append(chance, candidate{h, r.DeathPrevention})
	}
	for _, c := range chance {
		if float64(e.rnd.IntN(100)) < c.dp.Chance {
			return c.h, c.dp
		}
	}
	return nil, nil
}
