package aura

import (
	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/model"
)

// RemoveMode is the reason a holder leaves its target.
type RemoveMode uint8

const (
	RemoveDefault RemoveMode = iota // cancel or generic removal
	RemoveExpire
	RemoveDispel
	RemoveSteal
	RemoveByStack // replaced by a conflicting application
	RemoveDeath
	RemoveInterrupt
	RemoveForced // teardown: only "always" hooks run
)

var removeModeNames = [...]string{"default", "expire", "dispel", "steal", "stack", "death", "interrupt", "forced"}

func (m RemoveMode) String() string {
	if int(m) < len(removeModeNames) {
		return removeModeNames[m]
	}
	return "unknown"
}

// Flags describe how a holder behaves inside the registry.
type Flags uint8

const (
	FlagPassive Flags = 1 << iota
	FlagPersistent
	FlagArea
	FlagDeathPersistent
	FlagSingleTarget // registered in the caster's tracking index
	FlagNoTrack      // never tracked even if the template is single-target
)

// SubEffect is one typed modifier inside a holder.
type SubEffect struct {
	holder *Holder
	index  int
	def    *data.EffectDef

	base   int32 // per stack
	amount int32

	periodicTimer int32
	tickNumber    int32
	totalTicks    int32
}

func (e *SubEffect) Holder() *Holder      { return e.holder }
func (e *SubEffect) Index() int           { return e.index }
func (e *SubEffect) Type() data.AuraType  { return e.def.Aura }
func (e *SubEffect) Misc() int32          { return e.def.MiscValue }
func (e *SubEffect) Def() *data.EffectDef { return e.def }
func (e *SubEffect) Amount() int32        { return e.amount }
func (e *SubEffect) BaseAmount() int32    { return e.base }
func (e *SubEffect) TickNumber() int32    { return e.tickNumber }
func (e *SubEffect) TotalTicks() int32    { return e.totalTicks }
func (e *SubEffect) IsPeriodic() bool     { return e.def.IsPeriodic() }

// SetAmount overrides the current magnitude (absorb shields consume it).
func (e *SubEffect) SetAmount(v int32) { e.amount = v }

// RemainingPeriodic returns the magnitude still scheduled on future ticks.
func (e *SubEffect) RemainingPeriodic() int32 {
	if !e.IsPeriodic() || e.totalTicks <= e.tickNumber {
		return 0
	}
	return (e.totalTicks - e.tickNumber) * e.amount
}

func (e *SubEffect) resetPeriodic(durationMs int32) {
	amp := e.def.AmplitudeMs
	if amp <= 0 {
		return
	}
	e.periodicTimer = amp
	e.tickNumber = 0
	if durationMs > 0 {
		e.totalTicks = durationMs / amp
	} else {
		e.totalTicks = 0 // unbounded
	}
}

// Holder is one application of a template to a target.
type Holder struct {
	handle Handle
	tpl    *data.Template
	caster model.ObjectID
	target model.ObjectID

	stacks      int32
	duration    int32
	maxDuration int32
	charges     int32
	flags       Flags
	effects     [data.MaxEffects]*SubEffect

	seq   uint64
	epoch uint64
	inUse int32

	removed    bool
	reclaimed  bool
	removeMode RemoveMode
}

// NewHolder builds an unregistered holder with one stack. roll(n) supplies
// the die rolls of the sub-effect amounts and may be nil for base values.
func NewHolder(tpl *data.Template, caster, target model.ObjectID, roll func(n int) int) *Holder {
	h := &Holder{
		tpl:         tpl,
		caster:      caster,
		target:      target,
		stacks:      1,
		duration:    tpl.DurationMs,
		maxDuration: tpl.DurationMs,
		charges:     tpl.ProcCharges,
	}
	if tpl.Has(data.AttrPassive) {
		h.flags |= FlagPassive
		h.duration, h.maxDuration = -1, -1
	}
	if tpl.Has(data.AttrPersistent) {
		h.flags |= FlagPersistent
	}
	if tpl.Has(data.AttrArea) {
		h.flags |= FlagArea
	}
	if tpl.Has(data.AttrDeathPersistent) {
		h.flags |= FlagDeathPersistent
	}
	for i := range tpl.Effects {
		def := &tpl.Effects[i]
		if def.Kind != data.EffectApplyAura {
			continue
		}
		amount := def.Amount(roll)
		e := &SubEffect{holder: h, index: i, def: def, base: amount, amount: amount}
		e.resetPeriodic(h.duration)
		h.effects[i] = e
	}
	return h
}

func (h *Holder) Handle() Handle           { return h.handle }
func (h *Holder) Template() *data.Template { return h.tpl }
func (h *Holder) CasterID() model.ObjectID { return h.caster }
func (h *Holder) TargetID() model.ObjectID { return h.target }
func (h *Holder) Stacks() int32            { return h.stacks }
func (h *Holder) Duration() int32          { return h.duration }
func (h *Holder) MaxDuration() int32       { return h.maxDuration }
func (h *Holder) Charges() int32           { return h.charges }
func (h *Holder) Flags() Flags             { return h.flags }
func (h *Holder) Seq() uint64              { return h.seq }
func (h *Holder) IsRemoved() bool          { return h.removed }
func (h *Holder) RemoveMode() RemoveMode   { return h.removeMode }
func (h *Holder) InUse() bool              { return h.inUse > 0 }
func (h *Holder) IsPermanent() bool        { return h.duration < 0 }

// Effect returns the sub-effect in slot i, nil if the slot is empty.
func (h *Holder) Effect(i int) *SubEffect {
	if i < 0 || i >= data.MaxEffects {
		return nil
	}
	return h.effects[i]
}

// SetDuration overrides remaining and maximum duration (state reload, steal).
func (h *Holder) SetDuration(remaining, maxDuration int32) {
	h.duration = remaining
	h.maxDuration = maxDuration
	for _, e := range h.effects {
		if e != nil {
			e.resetPeriodic(maxDuration)
		}
	}
}

// SetCharges overrides the proc charges.
func (h *Holder) SetCharges(n int32) { h.charges = n }

// Acquire marks the holder in use by the current frame. While in use a
// removed holder is not reclaimed.
func (h *Holder) Acquire() { h.inUse++ }

// Release undoes Acquire.
func (h *Holder) Release() {
	if h.inUse > 0 {
		h.inUse--
	}
}

// setStacks changes the stack count and rescales every sub-effect.
func (h *Holder) setStacks(n int32) {
	h.stacks = n
	for _, e := range h.effects {
		if e != nil {
			e.amount = e.base * n
		}
	}
}

// SetStacks is setStacks for state reload.
func (h *Holder) SetStacks(n int32) {
	if n < 1 {
		n = 1
	}
	h.setStacks(n)
}

func (h *Holder) refresh() {
	h.duration = h.maxDuration
	h.charges = h.tpl.ProcCharges
	for _, e := range h.effects {
		if e != nil {
			e.resetPeriodic(h.maxDuration)
		}
	}
}

func (h *Holder) trackKey() uint32 {
	if h.tpl.SpecificGroup != 0 {
		return h.tpl.SpecificGroup
	}
	return uint32(h.tpl.ID)
}
