package aura

import (
	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/model"
)

// handler holds the apply/un-apply hooks of one aura type.
// always marks hooks that still run under forced removal.
type handler struct {
	apply  func(r *Registry, e *SubEffect)
	remove func(r *Registry, e *SubEffect)
	always bool
}

// handlers maps aura type → hooks. Populated by init().
var handlers [data.AuraTypeCount]*handler

// registerHandler installs the hooks of an aura type.
func registerHandler(t data.AuraType, h *handler) {
	handlers[t] = h
}

func init() {
	registerHandler(data.AuraModStun, stateHandler(data.AuraModStun, model.StateStunned, true))
	registerHandler(data.AuraModRoot, stateHandler(data.AuraModRoot, model.StateRooted, false))
	registerHandler(data.AuraModConfuse, stateHandler(data.AuraModConfuse, model.StateConfused, true))
	registerHandler(data.AuraModFear, stateHandler(data.AuraModFear, model.StateFleeing, true))
	registerHandler(data.AuraModPossess, &handler{
		apply:  setState(model.StatePossessed),
		remove: clearState(data.AuraModPossess, model.StatePossessed),
		always: true,
	})
	registerHandler(data.AuraControlVehicle, &handler{
		apply:  setState(model.StateControlled),
		remove: clearState(data.AuraControlVehicle, model.StateControlled),
		always: true,
	})
	registerHandler(data.AuraSchoolImmunity, &handler{apply: applySchoolImmunity, remove: removeImmunity(model.ImmuneSchool)})
	registerHandler(data.AuraMechanicImmunity, &handler{apply: applyMechanicImmunity, remove: removeImmunity(model.ImmuneMechanic)})
	registerHandler(data.AuraDispelImmunity, &handler{apply: applyDispelImmunity, remove: removeImmunity(model.ImmuneDispel)})
	registerHandler(data.AuraEffectImmunity, &handler{apply: applyEffectImmunity, remove: removeImmunity(model.ImmuneAura)})
}

func stateHandler(t data.AuraType, state model.UnitState, losesControl bool) *handler {
	return &handler{
		apply: func(r *Registry, _ *SubEffect) {
			r.owner.AddState(state)
			if losesControl {
				r.host.ControlLost(r.owner.ID())
			}
		},
		remove: clearState(t, state),
	}
}

func setState(state model.UnitState) func(*Registry, *SubEffect) {
	return func(r *Registry, _ *SubEffect) { r.owner.AddState(state) }
}

// clearState drops the state unless another holder still carries the aura.
func clearState(t data.AuraType, state model.UnitState) func(*Registry, *SubEffect) {
	return func(r *Registry, _ *SubEffect) {
		if !r.HasAuraType(t) {
			r.owner.ClearState(state)
		}
	}
}

func applySchoolImmunity(r *Registry, e *SubEffect) {
	mask := model.SchoolMask(e.Misc())
	r.owner.Immunities().Add(model.ImmuneSchool, uint32(mask), e.holder.handle.Key())
	self := e.holder
	r.RemoveIf(func(h *Holder) bool {
		return h != self && !h.tpl.IsPositive() && !h.tpl.Has(data.AttrIgnoreInvulnerability) &&
			h.flags&FlagPassive == 0 && h.tpl.Schools&mask == h.tpl.Schools
	}, RemoveDefault)
}

func applyMechanicImmunity(r *Registry, e *SubEffect) {
	mech := model.Mechanic(e.Misc())
	r.owner.Immunities().Add(model.ImmuneMechanic, uint32(mech), e.holder.handle.Key())
	self := e.holder
	r.RemoveIf(func(h *Holder) bool {
		return h != self && h.tpl.Mechanic == mech && !h.tpl.IsPositive()
	}, RemoveDefault)
}

func applyDispelImmunity(r *Registry, e *SubEffect) {
	dt := model.DispelType(e.Misc())
	r.owner.Immunities().Add(model.ImmuneDispel, uint32(dt), e.holder.handle.Key())
	self := e.holder
	r.RemoveIf(func(h *Holder) bool {
		return h != self && h.tpl.Dispel == dt && !h.tpl.IsPositive()
	}, RemoveDefault)
}

func applyEffectImmunity(r *Registry, e *SubEffect) {
	r.owner.Immunities().Add(model.ImmuneAura, uint32(e.Misc()), e.holder.handle.Key())
}

func removeImmunity(kind model.ImmunityKind) func(*Registry, *SubEffect) {
	return func(r *Registry, e *SubEffect) {
		r.owner.Immunities().Remove(kind, uint32(e.Misc()), e.holder.handle.Key())
	}
}
