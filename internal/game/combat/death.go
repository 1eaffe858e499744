package combat

import (
	"log/slog"

	"github.com/udisondev/combatcore/internal/game/aura"
	"github.com/udisondev/combatcore/internal/model"
)

// kill runs the death sequence after a lethal commit. Hooks fire in a fixed
// order; a revival effect may abort the death after teardown.
func (e *Engine) kill(attacker, victim *Unit, d *DamageInfo) {
	victim.SetDeathState(model.DeadPending)

	var killer model.ObjectID
	if attacker != nil && attacker != victim {
		killer = attacker.ID()
	}

	e.collab.AI.JustDied(victim.ID(), killer)
	if owner := victim.OwnerID(); owner != 0 {
		e.collab.Summons.SummonDied(owner, victim.ID())
	}
	e.collab.Instance.UnitKilled(killer, victim.Combatant)
	if killer != 0 {
		e.collab.AI.KilledUnit(killer, victim.ID())
		for _, pet := range e.petsOf(killer) {
			e.collab.AI.OwnerKilledUnit(pet, victim.ID())
		}
	}

	victim.looters = e.lootRecipients(victim, killer)
	e.collab.Rewarder.KillReward(victim.Combatant, victim.looters)

	e.teardown(victim)

	if e.revive(victim) {
		d.Revived = true
		slog.Debug("death aborted by revival", "unit", victim.ID())
		return
	}

	victim.SetDeathState(model.JustDied)
	victim.Auras.RemoveAllOnDeath()
	d.Killed = true

	e.record(Entry{
		Kind:     EntryDeath,
		Source:   killer,
		Target:   victim.ID(),
		Template: d.templateID(),
		Outcome:  d.Outcome,
		Schools:  d.Schools,
		Amount:   d.Damage,
		Overkill: d.Overkill,
	})
	slog.Debug("unit died",
		"unit", victim.ID(),
		"killer", killer,
		"overkill", d.Overkill)
}

// lootRecipients credits the last damager, expanded to its group.
func (e *Engine) lootRecipients(victim *Unit, killer model.ObjectID) []model.ObjectID {
	id, _ := victim.LastDamager()
	if id == 0 {
		id = killer
	}
	if id == 0 {
		return nil
	}
	if group := e.collab.Groups.Group(id); len(group) > 0 {
		return group
	}
	return []model.ObjectID{id}
}

// teardown drops the victim out of combat and cancels what it was doing.
func (e *Engine) teardown(victim *Unit) {
	victim.Actions.InterruptAll()
	victim.victim = 0
	for _, u := range e.units {
		if u.victim == victim.ID() {
			u.victim = 0
		}
	}
	e.stances.RemoveAttackStance(victim.ID())
	victim.ClearState(model.StateInCombat)
	e.collab.Engagement.ClearInCombat(victim.ID())
}

// revive consumes the first revival holder on the victim and brings it back
// with a share of its maximum health.
func (e *Engine) revive(victim *Unit) bool {
	for _, h := range victim.Auras.Holders() {
		if h.IsRemoved() {
			continue
		}
		r := e.rules.Get(h.Template().ID)
		if r == nil || r.Revival == nil {
			continue
		}
		victim.Auras.RemoveEffect(h, aura.RemoveDefault)
		victim.SetHealth(max(int32(float64(victim.MaxHealth())*r.Revival.HealthPercent/100), 1))
		victim.SetDeathState(model.Alive)
		return true
	}
	return false
}

func (e *Engine) petsOf(owner model.ObjectID) []model.ObjectID {
	var pets []model.ObjectID
	for _, id := range e.order {
		if u := e.units[id]; u != nil && u.OwnerID() == owner {
			pets = append(pets, id)
		}
	}
	return pets
}
