package combat

import (
	"log/slog"
	"math"

	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/game/aura"
	"github.com/udisondev/combatcore/internal/game/cast"
	"github.com/udisondev/combatcore/internal/model"
	"github.com/udisondev/combatcore/internal/rules"
)

// DamageInfo is the transient record of one damage event as it moves
// through the pipeline.
type DamageInfo struct {
	Attacker   model.ObjectID
	Victim     model.ObjectID
	Template   *data.Template // nil for white swings
	Schools    model.SchoolMask
	AttackType model.AttackType
	Outcome    Outcome
	Periodic   bool
	// Shared marks redirected damage: it skips bonuses, mitigation,
	// absorption and never splits again.
	Shared bool

	Raw      int32 // base amount before any modifier
	Done     int32 // after caster bonuses
	Taken    int32 // after victim modifiers and the outcome adjustment
	Absorbed int32
	Resisted int32
	Blocked  int32
	Clean    int32 // avoided by dodge, parry or block
	Damage   int32 // committed to health
	Overkill int32
	Killed   bool
	Revived  bool

	ticks  int32
	stacks int32
}

func newDamage(attacker, victim *Unit, tpl *data.Template, outcome Outcome) *DamageInfo {
	d := &DamageInfo{
		Attacker: attacker.ID(),
		Victim:   victim.ID(),
		Template: tpl,
		Schools:  model.MaskNormal,
		Outcome:  outcome,
	}
	if tpl != nil {
		d.Schools = tpl.Schools
		d.AttackType = attackTypeFor(tpl)
	}
	return d
}

func (d *DamageInfo) templateID() data.TemplateID {
	if d.Template == nil {
		return 0
	}
	return d.Template.ID
}

func (d *DamageInfo) entryKind() EntryKind {
	switch {
	case d.Periodic:
		return EntryPeriodic
	case d.Template == nil:
		return EntryMelee
	}
	return EntrySpell
}

// DealDamage runs an externally sourced damage event through the pipeline.
// When either side has left the shard nothing happens and the returned
// record carries zero amounts.
func (e *Engine) DealDamage(attackerID, victimID model.ObjectID, tpl *data.Template, raw int32, outcome Outcome) *DamageInfo {
	attacker, victim := e.units[attackerID], e.units[victimID]
	if attacker == nil || victim == nil {
		return &DamageInfo{Attacker: attackerID, Victim: victimID, Template: tpl, Outcome: outcome}
	}
	d := newDamage(attacker, victim, tpl, outcome)
	d.Raw = raw
	e.dealDamage(attacker, victim, d)
	return d
}

// DamageShared redirects amount to victim as already-mitigated damage.
func (e *Engine) DamageShared(attacker, victim *Unit, tpl *data.Template, schools model.SchoolMask, amount int32) *DamageInfo {
	d := newDamage(attacker, victim, tpl, OutcomeNormal)
	d.Schools = schools
	d.Shared = true
	d.Raw = amount
	e.dealDamage(attacker, victim, d)
	return d
}

// dealDamage runs one damage event through the pipeline and commits it.
func (e *Engine) dealDamage(attacker, victim *Unit, d *DamageInfo) {
	if !victim.IsAlive() || !victim.Targetable() {
		d.Absorbed = d.Raw
		return
	}

	amount := float64(max(d.Raw, 0))
	if !d.Shared {
		amount = e.casterBonus(attacker, victim, d, amount)
	}
	d.Done = round32(amount)

	if !d.Shared {
		amount = victimModifiers(victim, d, amount)
	}
	amount = e.applyOutcome(attacker, victim, d, amount)
	d.Taken = round32(amount)

	dmg := d.Taken
	if !d.Shared {
		dmg = e.mitigate(attacker, victim, d, dmg)
		dmg = e.absorb(attacker, victim, d, dmg)
		dmg = e.split(attacker, victim, d, dmg)
	}
	dmg = e.preventDeath(victim, d, dmg)
	e.commit(attacker, victim, d, dmg)
}

// casterBonus adds the attacker's power coefficients and flat bonuses, then
// applies the multiplicative ones.
func (e *Engine) casterBonus(attacker, victim *Unit, d *DamageInfo, amount float64) float64 {
	tpl := d.Template
	mask := int32(d.Schools)
	familyMask := int32(1) << victim.Family()

	flat := float64(attacker.Auras.TotalModifierByMiscMask(data.AuraModDamageDone, mask))
	flat += float64(attacker.Auras.TotalModifierByMiscMask(data.AuraModDamageDoneVersus, familyMask))
	pct := 1.0

	if tpl != nil {
		ticks := float64(max(d.ticks, 1))
		if tpl.SpellPowerCoef > 0 {
			sp := attacker.Stats.SpellPower + attacker.Auras.TotalModifier(data.AuraModSpellPower)
			flat += float64(sp) * tpl.SpellPowerCoef / ticks
		}
		if tpl.AttackPowerCoef > 0 {
			flat += float64(attackPower(attacker, d.AttackType)) * tpl.AttackPowerCoef / ticks
		}
		if r := e.rules.Get(tpl.ID); r != nil {
			flat += r.DamageBonus.Flat
			pct *= 1 + r.DamageBonus.Percent/100
			if ps := r.PowerScaling; ps != nil {
				if full := attacker.MaxPower(ps.Power); full > 0 {
					pct *= 1 + ps.MaxPercent*float64(attacker.Power(ps.Power))/float64(full)/100
				}
			}
			if r.HasScript() {
				sf, sp, err := e.vm.Bonus(r, e.bonusInput(attacker, victim, d, amount))
				if err != nil {
					slog.Warn("bonus script failed",
						"template", tpl.ID,
						"error", err)
				} else {
					flat += sf
					pct *= 1 + sp/100
				}
			}
		}
	}

	amount += flat
	amount *= attacker.Auras.TotalMultiplierByMiscMask(data.AuraModDamagePercentDone, mask)
	amount *= attacker.Auras.TotalMultiplierByMiscMask(data.AuraModDamagePctDoneVersus, familyMask)
	amount *= pct
	return max(amount, 0)
}

func (e *Engine) bonusInput(attacker, victim *Unit, d *DamageInfo, amount float64) rules.BonusInput {
	in := rules.BonusInput{
		Amount:          amount,
		CasterLevel:     attacker.Level(),
		VictimLevel:     victim.Level(),
		CasterHealthPct: attacker.HealthPct(),
		VictimHealthPct: victim.HealthPct(),
		Stacks:          max(d.stacks, 1),
		Periodic:        d.Periodic,
	}
	pt := attacker.PowerType()
	if full := attacker.MaxPower(pt); full > 0 {
		in.CasterPowerPct = float64(attacker.Power(pt)) * 100 / float64(full)
	}
	return in
}

// victimModifiers applies the victim's damage-taken auras.
func victimModifiers(victim *Unit, d *DamageInfo, amount float64) float64 {
	mask := int32(d.Schools)
	amount += float64(victim.Auras.TotalModifierByMiscMask(data.AuraModDamageTaken, mask))
	amount *= victim.Auras.TotalMultiplierByMiscMask(data.AuraModDamagePercentTaken, mask)
	if tpl := d.Template; tpl != nil {
		if tpl.Mechanic != model.MechanicNone {
			amount *= float64(100+victim.Auras.TotalModifierByMiscValue(data.AuraModMechanicDamageTakenPct, int32(tpl.Mechanic))) / 100
		}
		if tpl.Has(data.AttrArea) {
			amount *= float64(max(100-victim.Auras.TotalModifier(data.AuraModAoeAvoidance), 0)) / 100
		}
	}
	return max(amount, 0)
}

// applyOutcome scales the amount by the resolved outcome. Avoided attacks
// move their amount into the matching bucket and deal nothing.
func (e *Engine) applyOutcome(attacker, victim *Unit, d *DamageInfo, amount float64) float64 {
	switch d.Outcome {
	case OutcomeNormal:
		return amount
	case OutcomeCrit:
		amount *= 2
		bonus := attacker.Auras.TotalModifierByMiscMask(data.AuraModCritDamageBonus, int32(d.Schools))
		amount = amount * float64(100+bonus) / 100
		return amount * (100 - resilienceReductionPct(victim.Combatant)) / 100
	case OutcomeGlancing:
		return amount * e.glancingFactor(attacker, victim)
	case OutcomeCrushing:
		return amount * 1.5
	case OutcomeBlock:
		d.Blocked = round32(amount)
		d.Clean = d.Blocked
	case OutcomeDodge, OutcomeParry:
		d.Clean = round32(amount)
	case OutcomeResist:
		d.Resisted = round32(amount)
	}
	return 0
}

// preventDeath lets a death-prevention holder on the victim stop a lethal
// amount, keeping the victim at a share of its maximum health.
func (e *Engine) preventDeath(victim *Unit, d *DamageInfo, dmg int32) int32 {
	if dmg < victim.Health() {
		return dmg
	}
	h, dp := e.findDeathPrevention(victim)
	if h == nil {
		return dmg
	}
	keep := max(int32(float64(victim.MaxHealth())*dp.HealthPercent/100), 1)
	prevented := dmg
	dmg = max(victim.Health()-keep, 0)
	d.Absorbed += prevented - dmg

	slog.Debug("death prevented",
		"unit", victim.ID(),
		"template", h.Template().ID,
		"kept", keep)

	victim.Auras.RemoveEffect(h, aura.RemoveDefault)
	if dp.Convert != 0 {
		if tpl := e.template(dp.Convert); tpl != nil {
			e.castTriggered(victim, victim, tpl, 0)
		}
	}
	return dmg
}

// commit writes the final amount to the victim's health and runs the
// consequences: the kill sequence, or combat notifications and interrupts.
func (e *Engine) commit(attacker, victim *Unit, d *DamageInfo, dmg int32) {
	dmg = max(dmg, 0)
	if health := victim.Health(); dmg > health {
		d.Overkill = dmg - health
	}
	d.Damage = -victim.ModifyHealth(-dmg)
	if d.Damage > 0 && attacker != victim {
		victim.SetLastDamager(attacker.ID(), e.tick)
	}

	e.record(Entry{
		Kind:     d.entryKind(),
		Source:   d.Attacker,
		Target:   d.Victim,
		Template: d.templateID(),
		Outcome:  d.Outcome,
		Schools:  d.Schools,
		Amount:   d.Damage,
		Absorbed: d.Absorbed,
		Resisted: d.Resisted,
		Blocked:  d.Blocked,
		Clean:    d.Clean,
		Overkill: d.Overkill,
	})

	if d.Damage > 0 {
		e.collab.Rewarder.DamageDone(attacker.ID(), victim.ID(), d.Damage)
		e.collab.AI.DamageDeal(attacker.ID(), victim.ID(), d.Damage)
		e.collab.AI.DamageTaken(victim.ID(), attacker.ID(), d.Damage)
	}

	if victim.Health() == 0 {
		e.kill(attacker, victim, d)
		return
	}

	if attacker != victim && (d.Template == nil || !d.Template.Has(data.AttrNoThreat)) {
		e.engage(attacker, victim)
		e.collab.AI.AttackedBy(victim.ID(), attacker.ID())
		e.collab.Engagement.AddThreat(victim.ID(), attacker.ID(), float64(d.Damage),
			d.Outcome == OutcomeCrit, d.Schools, d.Template)
	}

	if d.Damage <= 0 {
		return
	}
	victim.Auras.RemoveWithInterruptFlag(data.AuraInterruptOnDamage, d.templateID())
	if victim.StandState() != model.StandStanding {
		victim.SetStandState(model.StandStanding)
		victim.Auras.RemoveWithInterruptFlag(data.AuraInterruptOnStandUp, 0)
	}
	e.interruptOnDamage(attacker, victim, d)
}

// interruptOnDamage applies damage to the victim's in-progress cast and
// channel according to their interrupt flags.
func (e *Engine) interruptOnDamage(attacker, victim *Unit, d *DamageInfo) {
	ctrl := victim.Actions
	if !d.Periodic {
		if a := ctrl.Current(cast.CategoryGeneric); a != nil && a.State() == cast.StatePreparing {
			switch flags := a.Template().Interrupt; {
			case flags&data.InterruptOnDamage != 0:
				ctrl.Interrupt(cast.CategoryGeneric, false, true)
			case flags&data.InterruptPushback != 0:
				ctrl.DelayCast()
			}
		}
	}
	if a := ctrl.Current(cast.CategoryChanneled); a != nil && a.State() == cast.StateChanneling {
		switch flags := a.Template().ChannelInterrupt; {
		case flags&data.ChannelDelay != 0:
			if attacker != victim {
				ctrl.DelayChannel()
			}
		case flags&data.ChannelInterruptOnDamage != 0:
			ctrl.Interrupt(cast.CategoryChanneled, true, true)
		}
	}
}

// Heal restores health on target from healer through tpl.
func (e *Engine) Heal(healerID, targetID model.ObjectID, tpl *data.Template, amount int32) int32 {
	healer, target := e.units[healerID], e.units[targetID]
	if healer == nil || target == nil {
		return 0
	}
	return e.heal(healer, target, tpl, amount, 0)
}

// heal applies a heal. ticks is the total tick count of a periodic heal and
// zero for direct heals, which may crit.
func (e *Engine) heal(healer, target *Unit, tpl *data.Template, base int32, ticks int32) int32 {
	if !target.IsAlive() || base <= 0 {
		return 0
	}
	amount := float64(base)
	if tpl != nil && tpl.SpellPowerCoef > 0 {
		sp := healer.Stats.SpellPower + healer.Auras.TotalModifier(data.AuraModSpellPower)
		amount += float64(sp) * tpl.SpellPowerCoef / float64(max(ticks, 1))
	}
	outcome := OutcomeNormal
	if ticks == 0 && (tpl == nil || !tpl.Has(data.AttrCantCrit)) &&
		e.rnd.IntN(basisPoints) < pctToBP(spellCritPct(healer)) {
		outcome = OutcomeCrit
		amount *= 1.5
	}

	healed := target.ModifyHealth(round32(amount))
	var tplID data.TemplateID
	if tpl != nil {
		tplID = tpl.ID
	}
	e.record(Entry{
		Kind:     EntryHeal,
		Source:   healer.ID(),
		Target:   target.ID(),
		Template: tplID,
		Outcome:  outcome,
		Amount:   healed,
		Overkill: round32(amount) - healed,
	})
	if healed > 0 {
		e.collab.AI.HealedBy(target.ID(), healer.ID(), healed)
		e.collab.Rewarder.HealDone(healer.ID(), target.ID(), healed)
	}
	if healer != target && target.HasState(model.StateInCombat) {
		e.collab.Engagement.SetInCombatWith(healer.ID(), target.ID())
		if !healer.HasState(model.StateInCombat) {
			healer.AddState(model.StateInCombat)
		}
		e.stances.AddAttackStance(healer.ID())
	}
	return healed
}

// engage puts both sides in combat with each other.
func (e *Engine) engage(attacker, victim *Unit) {
	if attacker == nil || victim == nil || attacker == victim {
		return
	}
	for _, pair := range [2][2]*Unit{{attacker, victim}, {victim, attacker}} {
		u, enemy := pair[0], pair[1]
		if !u.HasState(model.StateInCombat) {
			u.AddState(model.StateInCombat)
			e.collab.AI.EnterCombat(u.ID(), enemy.ID())
		}
		e.stances.AddAttackStance(u.ID())
	}
	e.collab.Engagement.SetInCombatWith(attacker.ID(), victim.ID())
}

// leaveCombat runs when a unit's combat stance lapses.
func (e *Engine) leaveCombat(id model.ObjectID) {
	u := e.units[id]
	if u == nil {
		return
	}
	u.ClearState(model.StateInCombat)
	e.collab.Engagement.ClearInCombat(id)
}

func attackPower(u *Unit, at model.AttackType) int32 {
	ap := u.Stats.AttackPower
	if at == model.RangedAttack {
		ap = u.Stats.RangedAttackPower
	}
	return ap + u.Auras.TotalModifier(data.AuraModAttackPower)
}

func attackTypeFor(tpl *data.Template) model.AttackType {
	if tpl != nil && tpl.DmgClass == data.ClassRanged {
		return model.RangedAttack
	}
	return model.BaseAttack
}

func round32(v float64) int32 {
	if v >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int32(math.Round(v))
}
