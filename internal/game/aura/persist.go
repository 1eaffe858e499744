package aura

import (
	"errors"
	"fmt"

	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/model"
)

// Saved is the persisted form of one holder.
type Saved struct {
	Template    data.TemplateID
	Caster      model.ObjectID
	Stacks      int32
	Remaining   int32
	MaxDuration int32
	Charges     int32
	Amounts     [data.MaxEffects]int32
}

// Snapshot returns the holders worth saving, in registration order. Passive
// and area holders are rebuilt from their sources and are skipped.
func (r *Registry) Snapshot() []Saved {
	out := make([]Saved, 0, len(r.holders))
	for _, h := range r.holders {
		if h.removed || h.flags&(FlagPassive|FlagArea) != 0 {
			continue
		}
		s := Saved{
			Template:    h.tpl.ID,
			Caster:      h.caster,
			Stacks:      h.stacks,
			Remaining:   h.duration,
			MaxDuration: h.maxDuration,
			Charges:     h.charges,
		}
		for i, e := range h.effects {
			if e != nil {
				s.Amounts[i] = e.amount
			}
		}
		out = append(out, s)
	}
	return out
}

// Restore re-applies saved holders in reload mode, so a dead owner accepts
// them. Unknown templates are skipped and reported together. Returns the
// number of holders restored.
func (r *Registry) Restore(store *data.Store, saved []Saved) (int, error) {
	r.BeginLoad()
	defer r.EndLoad()

	var errs []error
	n := 0
	for _, s := range saved {
		tpl, ok := store.Get(s.Template)
		if !ok {
			errs = append(errs, fmt.Errorf("restoring template %d: unknown template", s.Template))
			continue
		}
		h := NewHolder(tpl, s.Caster, r.owner.ID(), nil)
		h.SetStacks(s.Stacks)
		if !h.IsPermanent() {
			h.SetDuration(s.Remaining, s.MaxDuration)
		}
		h.charges = s.Charges
		if !r.AddEffect(h) || h.removed {
			continue
		}
		for i, e := range h.effects {
			if e == nil {
				continue
			}
			e.amount = s.Amounts[i]
			e.base = s.Amounts[i] / max(h.stacks, 1)
			if amp := e.def.AmplitudeMs; amp > 0 && s.MaxDuration > 0 {
				e.tickNumber = min((s.MaxDuration-s.Remaining)/amp, e.totalTicks)
			}
		}
		n++
	}
	return n, errors.Join(errs...)
}
