package aura

import (
	"fmt"
	"log/slog"

	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/model"
	"github.com/udisondev/combatcore/internal/rules"
)

// DefaultStealDurationCap is the longest duration a stolen holder keeps.
const DefaultStealDurationCap = 2 * 60 * 1000

// Host is the shard-side environment of a registry.
type Host interface {
	// Registry returns the registry of another combatant, nil if it left.
	Registry(id model.ObjectID) *Registry
	Rules() *rules.Table
	// Periodic runs one tick of a periodic sub-effect.
	Periodic(h *Holder, e *SubEffect)
	// ChannelBroken interrupts the caster's channel of tpl.
	ChannelBroken(caster model.ObjectID, tpl *data.Template)
	// ControlLost interrupts the in-progress casts of a unit that got stunned.
	ControlLost(id model.ObjectID)
	// Retaliate casts tpl from caster onto target with a fixed amount.
	Retaliate(caster, target model.ObjectID, tpl data.TemplateID, amount int32)
}

// Options tune a registry.
type Options struct {
	StealDurationCap int32
}

// Registry owns the holders applied to one combatant.
//
// Not safe for concurrent use: the owning shard serialises every call. Any
// call may re-enter the registry through hooks and the host.
type Registry struct {
	owner *model.Combatant
	host  Host
	arena *Arena
	opts  Options

	holders []*Holder
	byType  map[data.AuraType][]*SubEffect
	// tracked maps a tracking group to the single-target holder this
	// combatant cast, wherever it lives.
	tracked map[uint32]Handle

	seq       uint64
	version   uint64
	epoch     uint64
	loading   bool
	destroyed bool
}

// NewRegistry creates the registry of owner.
func NewRegistry(owner *model.Combatant, host Host, arena *Arena, opts Options) *Registry {
	if opts.StealDurationCap <= 0 {
		opts.StealDurationCap = DefaultStealDurationCap
	}
	return &Registry{
		owner:   owner,
		host:    host,
		arena:   arena,
		opts:    opts,
		holders: make([]*Holder, 0, 16),
		byType:  make(map[data.AuraType][]*SubEffect),
		tracked: make(map[uint32]Handle),
	}
}

// Owner returns the combatant the registry belongs to.
func (r *Registry) Owner() *model.Combatant { return r.owner }

// Arena returns the shard arena.
func (r *Registry) Arena() *Arena { return r.arena }

// BeginLoad enters state-reload mode: dead owners accept holders.
func (r *Registry) BeginLoad() { r.loading = true }

// EndLoad leaves state-reload mode.
func (r *Registry) EndLoad() { r.loading = false }

// AddEffect registers h on the owner. It returns false and discards h when
// the application is rejected. Merging into an existing stack counts as
// accepted; h itself is discarded in that case too.
func (r *Registry) AddEffect(h *Holder) bool {
	tpl := h.tpl
	if r.destroyed || h.removed {
		return false
	}
	if h.target != r.owner.ID() {
		slog.Warn("aura target mismatch",
			"template", tpl.ID,
			"target", h.target,
			"registry", r.owner.ID())
		return r.reject(h)
	}
	if !r.owner.IsAlive() && !r.loading &&
		!tpl.Has(data.AttrDeathPersistent) && !tpl.Has(data.AttrDeathOnly) {
		return r.reject(h)
	}
	if !tpl.IsPositive() && !tpl.Has(data.AttrIgnoreInvulnerability) {
		im := r.owner.Immunities()
		if im.MechanicImmune(tpl.Mechanic) || im.DispelImmune(tpl.Dispel) {
			return r.reject(h)
		}
		for _, e := range h.effects {
			if e != nil && im.AuraImmune(uint32(e.def.Aura)) {
				return r.reject(h)
			}
		}
	}

	if h.flags&(FlagPassive|FlagPersistent) == 0 {
		if existing := r.sameApplication(h); existing != nil {
			r.merge(existing, h)
			return true
		}
	}

	if !r.resolveConflicts(h) {
		return r.reject(h)
	}

	if tpl.Has(data.AttrSingleTarget) && h.flags&FlagNoTrack == 0 {
		r.track(h)
	}

	r.insert(h)

	h.Acquire()
	for _, e := range h.effects {
		if e == nil {
			continue
		}
		if hd := handlers[e.def.Aura]; hd != nil && hd.apply != nil {
			hd.apply(r, e)
		}
		if h.removed {
			break
		}
	}
	h.Release()
	if h.removed {
		return true
	}

	r.postApply(h)
	return true
}

func (r *Registry) reject(h *Holder) bool {
	h.removed = true
	return false
}

// sameApplication finds a holder of the same template the new application
// merges into: same caster, or any caster for templates that stack across
// casters.
func (r *Registry) sameApplication(h *Holder) *Holder {
	for _, ex := range r.holders {
		if ex.tpl.ID != h.tpl.ID || ex.flags&FlagPassive != 0 {
			continue
		}
		if ex.caster == h.caster || h.tpl.Has(data.AttrStackForDifferentCasters) {
			return ex
		}
	}
	return nil
}

func (r *Registry) merge(ex, h *Holder) {
	rule := r.host.Rules().Get(ex.tpl.ID)

	var folded [data.MaxEffects]int32
	if rule != nil && rule.FoldPeriodic {
		for i, e := range ex.effects {
			if e != nil && e.def.Aura == data.AuraPeriodicDamage {
				folded[i] = e.RemainingPeriodic()
			}
		}
	}

	stacks := ex.stacks
	if ex.tpl.IsStackable() {
		stacks = min(ex.stacks+h.stacks, ex.tpl.StackAmount)
	}
	ex.setStacks(stacks)
	ex.refresh()

	for i, e := range ex.effects {
		if e == nil || folded[i] == 0 || e.totalTicks == 0 {
			continue
		}
		e.amount += folded[i] / e.totalTicks
	}

	h.removed = true
	r.version++
}

// resolveConflicts applies the template's uniqueness policy. It returns
// false when the new holder must be refused.
func (r *Registry) resolveConflicts(h *Holder) bool {
	tbl := r.host.Rules()
	for i := 0; i < len(r.holders); {
		ex := r.holders[i]
		if !conflicts(ex, h) || tbl.Coexist(ex.tpl.ID, h.tpl.ID) {
			i++
			continue
		}
		if h.tpl.SameFamily(ex.tpl) && h.tpl.Rank < ex.tpl.Rank {
			return false
		}
		r.RemoveEffect(ex, RemoveByStack)
		i = 0
	}
	return true
}

func conflicts(ex, h *Holder) bool {
	a, b := ex.tpl, h.tpl
	if ex.flags&FlagPassive != 0 || h.flags&FlagPassive != 0 {
		return false
	}
	// Another rank of the same family from the same caster.
	if a.ID != b.ID && a.SameFamily(b) && ex.caster == h.caster {
		return true
	}
	if b.Specific == data.SpecificNone || a.Specific != b.Specific {
		return false
	}
	switch b.Specific {
	case data.SpecificPerTarget:
		return sameGroup(a, b)
	case data.SpecificPerCaster:
		return sameGroup(a, b) && ex.caster == h.caster
	case data.SpecificPerFamily:
		return a.SameFamily(b)
	}
	return false
}

func sameGroup(a, b *data.Template) bool {
	if a.SpecificGroup != 0 {
		return a.SpecificGroup == b.SpecificGroup
	}
	return a.ID == b.ID
}

// track records h in its caster's tracking index and evicts the holder the
// caster previously tracked under the same group.
func (r *Registry) track(h *Holder) {
	cr := r.host.Registry(h.caster)
	if cr == nil {
		return
	}
	key := h.trackKey()
	if old := r.arena.Resolve(cr.tracked[key]); old != nil && old != h {
		if tr := r.host.Registry(old.target); tr != nil {
			tr.RemoveEffect(old, RemoveDefault)
		}
	}
	h.flags |= FlagSingleTarget
	if h.handle.IsZero() {
		r.arena.alloc(h)
	}
	cr.tracked[key] = h.handle
}

func (r *Registry) untrack(h *Holder) {
	if h.flags&FlagSingleTarget == 0 {
		return
	}
	cr := r.host.Registry(h.caster)
	if cr == nil {
		return
	}
	key := h.trackKey()
	if cr.tracked[key] == h.handle {
		delete(cr.tracked, key)
	}
}

func (r *Registry) insert(h *Holder) {
	if h.handle.IsZero() {
		r.arena.alloc(h)
	}
	r.seq++
	h.seq = r.seq
	h.epoch = r.epoch // holders added mid-sweep wait for the next tick
	r.holders = append(r.holders, h)
	for _, e := range h.effects {
		if e != nil {
			r.byType[e.def.Aura] = append(r.byType[e.def.Aura], e)
		}
	}
	r.version++
}

func (r *Registry) unindex(h *Holder) {
	for i, x := range r.holders {
		if x == h {
			r.holders = append(r.holders[:i], r.holders[i+1:]...)
			break
		}
	}
	for _, e := range h.effects {
		if e == nil {
			continue
		}
		list := r.byType[e.def.Aura]
		for i, x := range list {
			if x == e {
				list = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(list) == 0 {
			delete(r.byType, e.def.Aura)
		} else {
			r.byType[e.def.Aura] = list
		}
	}
	r.version++
}

func (r *Registry) postApply(h *Holder) {
	rule := r.host.Rules().Get(h.tpl.ID)
	if rule == nil || len(rule.PostApply) == 0 {
		return
	}
	cr := r.host.Registry(h.caster)
	if cr == nil {
		return
	}
	stats := cr.owner.Stats
	for _, b := range rule.PostApply {
		e := h.effects[b.Effect]
		if e == nil {
			continue
		}
		var stat int32
		switch b.Source {
		case rules.FromSpellPower:
			stat = stats.SpellPower + cr.TotalModifier(data.AuraModSpellPower)
		case rules.FromAttackPower:
			stat = stats.AttackPower + cr.TotalModifier(data.AuraModAttackPower)
		}
		bonus := int32(float64(stat) * b.Percent / 100)
		e.base += bonus
		e.amount += bonus * h.stacks
	}
}

// RemoveEffect takes h off the owner. Un-apply hooks run in reverse slot
// order; in forced mode only hooks marked always run. Reclamation is deferred
// while h is in use.
func (r *Registry) RemoveEffect(h *Holder, mode RemoveMode) {
	if h == nil || h.removed || h.target != r.owner.ID() {
		return
	}
	h.removed = true
	h.removeMode = mode
	r.unindex(h)
	r.untrack(h)

	h.Acquire()
	for i := data.MaxEffects - 1; i >= 0; i-- {
		e := h.effects[i]
		if e == nil {
			continue
		}
		hd := handlers[e.def.Aura]
		if hd == nil || hd.remove == nil {
			continue
		}
		if mode == RemoveForced && !hd.always {
			continue
		}
		hd.remove(r, e)
	}
	h.Release()

	if mode != RemoveExpire && h.tpl.Has(data.AttrChanneled) && h.caster != r.owner.ID() {
		r.host.ChannelBroken(h.caster, h.tpl)
	}

	r.arena.release(h)
}

// Dispel removes count stacks of the holder of tplID cast by caster (any
// caster when zero). It returns the number of stacks removed.
func (r *Registry) Dispel(tplID data.TemplateID, caster, dispeller model.ObjectID, count int32) int32 {
	h := r.Find(tplID, caster)
	if h == nil || count <= 0 {
		return 0
	}
	return r.dispelHolder(h, dispeller, count)
}

func (r *Registry) dispelHolder(h *Holder, dispeller model.ObjectID, count int32) int32 {
	if rule := r.host.Rules().Get(h.tpl.ID); rule != nil && rule.DispelRetaliation != nil {
		if e := h.effects[0]; e != nil {
			rt := rule.DispelRetaliation
			amount := int32(float64(e.amount) * rt.Multiplier)
			h.Acquire()
			r.host.Retaliate(h.caster, dispeller, rt.Template, amount)
			h.Release()
		}
		if h.removed {
			return 0
		}
	}

	removed := min(count, h.stacks)
	if h.stacks-removed <= 0 {
		r.RemoveEffect(h, RemoveDispel)
	} else {
		h.setStacks(h.stacks - removed)
	}
	return removed
}

// DispelByType removes up to count stacks of holders with the dispel type.
// positive selects beneficial (offensive dispel) or harmful (cleanse)
// holders. Returns the stacks removed.
func (r *Registry) DispelByType(dt model.DispelType, positive bool, dispeller model.ObjectID, count int32) int32 {
	var total int32
	for total < count {
		var target *Holder
		for _, h := range r.holders {
			if h.flags&FlagPassive == 0 && h.tpl.Dispel == dt && h.tpl.IsPositive() == positive {
				target = h
				break
			}
		}
		if target == nil {
			break
		}
		n := r.dispelHolder(target, dispeller, 1)
		if n == 0 && !target.removed {
			break
		}
		total += n
	}
	return total
}

// Steal moves one stack of h onto the stealer. The stolen copy has its
// duration capped, carries a per-stack share of each magnitude and is never
// tracked as a single-target effect.
func (r *Registry) Steal(h *Holder, stealer *Registry) bool {
	if h == nil || h.removed || stealer == nil || h.target != r.owner.ID() {
		return false
	}

	dur := h.duration
	if dur < 0 || dur > r.opts.StealDurationCap {
		dur = r.opts.StealDurationCap
	}

	stolen := NewHolder(h.tpl, stealer.owner.ID(), stealer.owner.ID(), nil)
	stolen.flags |= FlagNoTrack
	stolen.flags &^= FlagPassive
	stolen.duration, stolen.maxDuration = dur, dur
	for i, e := range h.effects {
		ne := stolen.effects[i]
		if e == nil || ne == nil {
			continue
		}
		share := e.amount / max(h.stacks, 1)
		ne.base, ne.amount = share, share
		ne.resetPeriodic(dur)
	}

	if !stealer.AddEffect(stolen) {
		return false
	}
	if h.removed {
		return true
	}
	if h.stacks <= 1 {
		r.RemoveEffect(h, RemoveSteal)
	} else {
		h.setStacks(h.stacks - 1)
	}
	return true
}

// Update advances every holder by deltaMs: periodic ticks first, then the
// expiry check. Holders already updated in this epoch are skipped, so the
// sweep can restart from the front after any mutation without double ticks.
func (r *Registry) Update(deltaMs int32, epoch uint64) {
	r.epoch = epoch
	for i := 0; i < len(r.holders); {
		h := r.holders[i]
		i++
		if h.epoch == epoch {
			continue
		}
		h.epoch = epoch
		version := r.version

		h.Acquire()
		r.updateHolder(h, deltaMs)
		h.Release()

		if r.version != version {
			i = 0
		}
	}
}

func (r *Registry) updateHolder(h *Holder, deltaMs int32) {
	if !h.IsPermanent() {
		h.duration = max(h.duration-deltaMs, 0)
	}
	for _, e := range h.effects {
		if e == nil || !e.IsPeriodic() {
			continue
		}
		e.periodicTimer -= deltaMs
		for e.periodicTimer <= 0 && !h.removed {
			if e.totalTicks > 0 && e.tickNumber >= e.totalTicks {
				break
			}
			e.periodicTimer += e.def.AmplitudeMs
			e.tickNumber++
			r.host.Periodic(h, e)
		}
		if h.removed {
			return
		}
	}
	if !h.IsPermanent() && h.duration == 0 {
		r.RemoveEffect(h, RemoveExpire)
	}
}

// ConsumeProcCharge spends one charge of the first holder carrying an aura
// of type t. A holder is removed when its last charge is spent. Holders
// without charges are unaffected.
func (r *Registry) ConsumeProcCharge(t data.AuraType) bool {
	for _, e := range r.byType[t] {
		h := e.holder
		if h.charges <= 0 {
			continue
		}
		h.charges--
		if h.charges == 0 {
			r.RemoveEffect(h, RemoveDefault)
		}
		return true
	}
	return false
}

// RemoveIf removes every holder matching pred, restarting the scan after
// each removal. Returns the number removed.
func (r *Registry) RemoveIf(pred func(*Holder) bool, mode RemoveMode) int {
	n := 0
	for i := 0; i < len(r.holders); {
		h := r.holders[i]
		if !pred(h) {
			i++
			continue
		}
		r.RemoveEffect(h, mode)
		n++
		i = 0
	}
	return n
}

// RemoveAllOnDeath removes every holder that does not survive death.
func (r *Registry) RemoveAllOnDeath() int {
	return r.RemoveIf(func(h *Holder) bool {
		return h.flags&(FlagPassive|FlagDeathPersistent) == 0
	}, RemoveDeath)
}

// RemoveWithInterruptFlag strips holders that break on the given event,
// except the holder of template except (the source of the event).
func (r *Registry) RemoveWithInterruptFlag(flag data.AuraInterruptFlags, except data.TemplateID) int {
	return r.RemoveIf(func(h *Holder) bool {
		return h.tpl.AuraInterrupt&flag != 0 && h.tpl.ID != except
	}, RemoveInterrupt)
}

// RemoveAll removes every holder.
func (r *Registry) RemoveAll(mode RemoveMode) int {
	return r.RemoveIf(func(*Holder) bool { return true }, mode)
}

// RemoveTrackedCasts removes the single-target holders this combatant cast
// on other combatants.
func (r *Registry) RemoveTrackedCasts() {
	for len(r.tracked) > 0 {
		var key uint32
		var hd Handle
		for key, hd = range r.tracked {
			break
		}
		delete(r.tracked, key)
		h := r.arena.Resolve(hd)
		if h == nil {
			continue
		}
		if tr := r.host.Registry(h.target); tr != nil {
			tr.RemoveEffect(h, RemoveDefault)
		}
	}
}

// Destroy tears the registry down when the owner leaves the simulation.
// It panics if hooks left transient entries behind, since that means a
// collaborator kept mutating a combatant that is being destroyed.
func (r *Registry) Destroy() {
	r.RemoveAll(RemoveForced)
	r.RemoveTrackedCasts()
	r.destroyed = true
	if len(r.holders) != 0 || len(r.byType) != 0 || len(r.tracked) != 0 {
		panic(fmt.Sprintf("aura registry of %d destroyed with %d holders, %d indexed types, %d tracked casts",
			r.owner.ID(), len(r.holders), len(r.byType), len(r.tracked)))
	}
}
