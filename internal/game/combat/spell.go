package combat

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/game/aura"
	"github.com/udisondev/combatcore/internal/game/cast"
	"github.com/udisondev/combatcore/internal/model"
)

// CastSpell starts casting template id from caster at target. Passive
// templates apply to the caster at once. A caster or target that already
// left the simulation makes the call a no-op.
func (e *Engine) CastSpell(casterID, targetID model.ObjectID, id data.TemplateID) error {
	tpl := e.template(id)
	if tpl == nil {
		slog.Warn("cast of unknown template",
			"caster", casterID,
			"template", id)
		return fmt.Errorf("casting %d: %w", id, ErrUnknownTemplate)
	}
	caster := e.units[casterID]
	if caster == nil {
		return nil
	}
	if !caster.IsAlive() {
		return fmt.Errorf("casting %d: %w", id, ErrCasterDead)
	}
	if tpl.Has(data.AttrPassive) {
		caster.Auras.AddEffect(aura.NewHolder(tpl, casterID, casterID, e.roll))
		return nil
	}
	if tpl.PowerCost > 0 && caster.Power(tpl.PowerType) < tpl.PowerCost {
		return fmt.Errorf("casting %d: %w", id, ErrNotEnoughPower)
	}
	target := e.units[targetID]
	if target == nil {
		return nil
	}
	if target != caster && !e.collab.Scheduler.InLineOfSight(casterID, targetID) {
		return fmt.Errorf("casting %d at %d: %w", id, targetID, ErrNotInSight)
	}

	var travel int32
	if tpl.Speed > 0 && target != caster {
		dist := math.Sqrt(float64(caster.Location().DistanceSquared(target.Location())))
		travel = int32(dist / tpl.Speed * 1000)
	}

	a := cast.NewAction(tpl, casterID, targetID, travel, cast.Hooks{
		Cast:   e.onCast,
		Launch: e.onLaunch,
		Done:   e.onDone,
	})
	caster.Actions.Start(a)
	return nil
}

// onCast pays the cost and strips the caster's break-on-cast effects.
func (e *Engine) onCast(a *cast.Action) {
	caster := e.units[a.CasterID()]
	if caster == nil {
		return
	}
	tpl := a.Template()
	if tpl.PowerCost > 0 {
		caster.ModifyPower(tpl.PowerType, -tpl.PowerCost)
	}
	caster.Auras.RemoveWithInterruptFlag(data.AuraInterruptOnCast, tpl.ID)
}

func (e *Engine) onLaunch(a *cast.Action) {
	caster, target := e.units[a.CasterID()], e.units[a.TargetID()]
	if caster == nil || target == nil {
		return
	}
	tpl := a.Template()
	e.applySpell(caster, target, tpl, 0, true)
	if tpl.Has(data.AttrArea) && tpl.Radius > 0 {
		e.spread(caster, target, tpl)
	}
}

// spread applies an area template to the units around its primary target.
// Hostile areas spare the caster; every unit must be visible from the
// target.
func (e *Engine) spread(caster, target *Unit, tpl *data.Template) {
	for _, id := range e.collab.Scheduler.Nearby(target.ID(), tpl.Radius) {
		u := e.units[id]
		if u == nil || !u.IsAlive() || !u.Targetable() {
			continue
		}
		if u == caster && !tpl.IsPositive() {
			continue
		}
		if !e.collab.Scheduler.InLineOfSight(target.ID(), id) {
			continue
		}
		e.applySpell(caster, u, tpl, 0, true)
	}
}

// onDone removes the channeled holder when its channel is cut short.
func (e *Engine) onDone(a *cast.Action, ok bool) {
	tpl := a.Template()
	if ok || a.Category() != cast.CategoryChanneled {
		return
	}
	target := e.units[a.TargetID()]
	if target == nil {
		return
	}
	if h := target.Auras.Find(tpl.ID, a.CasterID()); h != nil {
		target.Auras.RemoveEffect(h, aura.RemoveInterrupt)
	}
}

// castTriggered applies tpl immediately, outside the caster's action slots.
// fixed overrides the amount of the first damage or heal effect when
// positive.
func (e *Engine) castTriggered(caster, target *Unit, tpl *data.Template, fixed int32) {
	if e.depth >= maxTriggerDepth {
		slog.Warn("triggered cast chain too deep",
			"caster", caster.ID(),
			"template", tpl.ID)
		return
	}
	e.depth++
	defer func() { e.depth-- }()
	e.applySpell(caster, target, tpl, fixed, true)
}

// applySpell resolves tpl against target and applies its effects.
func (e *Engine) applySpell(caster, target *Unit, tpl *data.Template, fixed int32, canReflect bool) {
	at := attackTypeFor(tpl)
	res := e.resolve(caster, target, tpl, at, canReflect)

	if res.Outcome == OutcomeReflect {
		if res.ReflectProc && !target.Auras.ConsumeProcCharge(data.AuraReflectSpells) {
			target.Auras.ConsumeProcCharge(data.AuraReflectSpellsSchool)
		}
		e.record(Entry{
			Kind:     EntrySpell,
			Source:   caster.ID(),
			Target:   target.ID(),
			Template: tpl.ID,
			Outcome:  OutcomeReflect,
			Schools:  tpl.Schools,
		})
		e.applySpell(target, caster, tpl, fixed, false)
		return
	}

	if !tpl.IsPositive() && caster != target && res.Outcome != OutcomeEvade {
		e.engage(caster, target)
	}

	if !res.Outcome.Lands() && !hasDamageEffect(tpl) {
		e.record(Entry{
			Kind:     EntrySpell,
			Source:   caster.ID(),
			Target:   target.ID(),
			Template: tpl.ID,
			Outcome:  res.Outcome,
			Schools:  tpl.Schools,
		})
		return
	}

	applyAura := false
	for i := range tpl.Effects {
		def := &tpl.Effects[i]
		if def.Kind == data.EffectNone {
			continue
		}
		if !target.IsAlive() && !tpl.Has(data.AttrDeathOnly) {
			break
		}
		amount := def.Amount(e.roll)
		if fixed > 0 && (def.Kind == data.EffectSchoolDamage || def.Kind == data.EffectHeal || def.Kind == data.EffectWeaponDamage) {
			amount, fixed = fixed, 0
		}

		switch def.Kind {
		case data.EffectSchoolDamage:
			d := newDamage(caster, target, tpl, res.Outcome)
			d.Raw = amount
			e.dealDamage(caster, target, d)
		case data.EffectWeaponDamage:
			d := newDamage(caster, target, tpl, res.Outcome)
			d.Raw = e.weaponRoll(caster, at) + amount
			e.dealDamage(caster, target, d)
		}

		if !res.Outcome.Lands() {
			continue
		}
		switch def.Kind {
		case data.EffectHeal:
			e.heal(caster, target, tpl, amount, 0)
		case data.EffectApplyAura:
			applyAura = true
		case data.EffectDispel:
			e.dispel(caster, target, tpl, def, amount)
		case data.EffectStealBeneficial:
			e.steal(caster, target, def, amount)
		case data.EffectTriggerSpell:
			if trig := e.template(def.Trigger); trig != nil {
				e.castTriggered(caster, target, trig, 0)
			} else {
				slog.Warn("trigger of unknown template",
					"template", tpl.ID,
					"trigger", def.Trigger)
			}
		case data.EffectInterruptCast:
			target.Actions.InterruptNonMelee(false)
		case data.EffectPowerBurn:
			burned := -target.ModifyPower(model.PowerMana, -amount)
			if burned > 0 {
				d := newDamage(caster, target, tpl, res.Outcome)
				mult := def.Multiple
				if mult <= 0 {
					mult = 1
				}
				d.Raw = int32(float64(burned) * mult)
				e.dealDamage(caster, target, d)
			}
		}
	}

	if applyAura && target.IsAlive() {
		h := aura.NewHolder(tpl, caster.ID(), target.ID(), e.roll)
		added := target.Auras.AddEffect(h)
		outcome := res.Outcome
		if !added {
			outcome = OutcomeImmune
		}
		e.record(Entry{
			Kind:     EntryAura,
			Source:   caster.ID(),
			Target:   target.ID(),
			Template: tpl.ID,
			Outcome:  outcome,
			Schools:  tpl.Schools,
		})
	}
}

// dispel removes effects of the template's dispel type from target. A
// beneficial template cleanses harmful effects; a harmful one purges
// beneficial effects.
func (e *Engine) dispel(caster, target *Unit, tpl *data.Template, def *data.EffectDef, amount int32) {
	dt := model.DispelType(def.MiscValue)
	removed := target.Auras.DispelByType(dt, !tpl.IsPositive(), caster.ID(), max(amount, 1))
	slog.Debug("dispel",
		"caster", caster.ID(),
		"target", target.ID(),
		"type", dt,
		"removed", removed)
}

// steal moves up to amount beneficial holders of the given dispel type
// from target onto caster.
func (e *Engine) steal(caster, target *Unit, def *data.EffectDef, amount int32) {
	dt := model.DispelType(def.MiscValue)
	for range max(amount, 1) {
		var pick *aura.Holder
		for _, h := range target.Auras.Holders() {
			t := h.Template()
			if !h.IsRemoved() && t.IsPositive() && !t.Has(data.AttrPassive) && t.Dispel == dt {
				pick = h
				break
			}
		}
		if pick == nil || !target.Auras.Steal(pick, caster.Auras) {
			return
		}
	}
}

func hasDamageEffect(tpl *data.Template) bool {
	return tpl.HasEffect(data.EffectSchoolDamage) || tpl.HasEffect(data.EffectWeaponDamage)
}
