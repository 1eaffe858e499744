package aura

import (
	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/model"
)

// Len returns the number of holders on the owner.
func (r *Registry) Len() int { return len(r.holders) }

// Holders returns a snapshot of the holders in registration order.
func (r *Registry) Holders() []*Holder {
	out := make([]*Holder, len(r.holders))
	copy(out, r.holders)
	return out
}

// Effects returns a snapshot of the sub-effects of type t in registration order.
func (r *Registry) Effects(t data.AuraType) []*SubEffect {
	list := r.byType[t]
	if len(list) == 0 {
		return nil
	}
	out := make([]*SubEffect, len(list))
	copy(out, list)
	return out
}

// HasAuraType reports whether any holder carries an aura of type t.
func (r *Registry) HasAuraType(t data.AuraType) bool { return len(r.byType[t]) > 0 }

// Find returns the holder of template id cast by caster; zero caster
// matches any caster.
func (r *Registry) Find(id data.TemplateID, caster model.ObjectID) *Holder {
	for _, h := range r.holders {
		if h.tpl.ID == id && (caster == 0 || h.caster == caster) {
			return h
		}
	}
	return nil
}

// Count returns the number of holders of template id.
func (r *Registry) Count(id data.TemplateID) int {
	n := 0
	for _, h := range r.holders {
		if h.tpl.ID == id {
			n++
		}
	}
	return n
}

// Tracked returns the single-target holder this owner cast under group.
func (r *Registry) Tracked(group uint32) *Holder {
	return r.arena.Resolve(r.tracked[group])
}

// TotalModifier sums the amounts of every aura of type t.
func (r *Registry) TotalModifier(t data.AuraType) int32 {
	var sum int32
	for _, e := range r.byType[t] {
		sum += e.amount
	}
	return sum
}

// TotalModifierByMiscMask sums auras of type t whose misc value shares a
// bit with mask.
func (r *Registry) TotalModifierByMiscMask(t data.AuraType, mask int32) int32 {
	var sum int32
	for _, e := range r.byType[t] {
		if e.Misc()&mask != 0 {
			sum += e.amount
		}
	}
	return sum
}

// TotalModifierByMiscValue sums auras of type t whose misc value equals v.
func (r *Registry) TotalModifierByMiscValue(t data.AuraType, v int32) int32 {
	var sum int32
	for _, e := range r.byType[t] {
		if e.Misc() == v {
			sum += e.amount
		}
	}
	return sum
}

// TotalMultiplierByMiscMask multiplies (100+amount)/100 over auras of type
// t whose misc value shares a bit with mask.
func (r *Registry) TotalMultiplierByMiscMask(t data.AuraType, mask int32) float64 {
	mul := 1.0
	for _, e := range r.byType[t] {
		if e.Misc()&mask != 0 {
			mul *= (100 + float64(e.amount)) / 100
		}
	}
	return mul
}

// TotalMultiplier multiplies (100+amount)/100 over every aura of type t.
func (r *Registry) TotalMultiplier(t data.AuraType) float64 {
	mul := 1.0
	for _, e := range r.byType[t] {
		mul *= (100 + float64(e.amount)) / 100
	}
	return mul
}
