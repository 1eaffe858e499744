// Package combat resolves attacks, runs the damage pipeline and sequences
// deaths for one shard. Every call happens on the shard's tick goroutine.
package combat

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"

	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/game/aura"
	"github.com/udisondev/combatcore/internal/game/cast"
	"github.com/udisondev/combatcore/internal/model"
	"github.com/udisondev/combatcore/internal/rules"
)

var (
	ErrUnknownTemplate = errors.New("unknown template")
	ErrUnknownUnit     = errors.New("unknown unit")
	ErrDuplicateUnit   = errors.New("unit already spawned")
	ErrCasterDead      = errors.New("caster is dead")
	ErrNotEnoughPower  = errors.New("not enough power")
	ErrInvalidTarget   = errors.New("invalid target")
	ErrNotInSight      = errors.New("target not in line of sight")
)

// DefaultGlancingCapPct caps the glancing blow chance.
const DefaultGlancingCapPct = 25

// maxTriggerDepth bounds chains of triggered casts within one event.
const maxTriggerDepth = 8

// Source is the random source of a shard. *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

// NewSource returns a deterministic source for seed.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Options tune the engine.
type Options struct {
	StealDurationCapMs     int32
	RangedRearmMs          int32
	PushbackMs             int32
	MaxPushbacks           int32
	GlancingCapPct         float64
	CombatTimeMs           int32
	ScriptInstructionLimit int
}

func (o Options) withDefaults() Options {
	if o.GlancingCapPct <= 0 {
		o.GlancingCapPct = DefaultGlancingCapPct
	}
	if o.CombatTimeMs <= 0 {
		o.CombatTimeMs = DefaultCombatTimeMs
	}
	return o
}

// Unit is a spawned combatant with its effect registry and action slots.
type Unit struct {
	*model.Combatant
	Auras   *aura.Registry
	Actions *cast.Controller

	victim  model.ObjectID
	looters []model.ObjectID
}

// Victim returns the auto-attack target, zero when idle.
func (u *Unit) Victim() model.ObjectID { return u.victim }

// LootRecipients returns who was credited with the unit's death.
func (u *Unit) LootRecipients() []model.ObjectID { return u.looters }

// Engine is the combat core of one shard.
//
// Not safe for concurrent use.
type Engine struct {
	store   *data.Store
	rules   *rules.Table
	vm      *rules.VM
	arena   *aura.Arena
	rnd     Source
	collab  Collaborators
	opts    Options
	stances *AttackStanceManager

	units map[model.ObjectID]*Unit
	order []model.ObjectID
	tick  uint64
	depth int
}

// NewEngine creates an engine. rnd may be nil for a randomly seeded source.
func NewEngine(store *data.Store, tbl *rules.Table, rnd Source, collab Collaborators, opts Options) *Engine {
	if rnd == nil {
		rnd = NewSource(rand.Uint64())
	}
	e := &Engine{
		store:  store,
		rules:  tbl,
		vm:     rules.NewVM(opts.ScriptInstructionLimit),
		arena:  aura.NewArena(),
		rnd:    rnd,
		collab: collab.withDefaults(),
		opts:   opts.withDefaults(),
		units:  make(map[model.ObjectID]*Unit),
	}
	e.stances = NewAttackStanceManager(e.opts.CombatTimeMs, e.leaveCombat)
	return e
}

// Close releases the script VM.
func (e *Engine) Close() {
	e.vm.Close()
}

// Tick returns the number of completed updates.
func (e *Engine) Tick() uint64 { return e.tick }

// Arena returns the shard's holder arena.
func (e *Engine) Arena() *aura.Arena { return e.arena }

// Stances returns the combat stance tracker.
func (e *Engine) Stances() *AttackStanceManager { return e.stances }

// Spawn adds c to the simulation.
func (e *Engine) Spawn(c *model.Combatant) (*Unit, error) {
	if _, ok := e.units[c.ID()]; ok {
		return nil, fmt.Errorf("spawning %d: %w", c.ID(), ErrDuplicateUnit)
	}
	u := &Unit{Combatant: c}
	u.Auras = aura.NewRegistry(c, e, e.arena, aura.Options{StealDurationCap: e.opts.StealDurationCapMs})
	u.Actions = cast.NewController(c, e.collab.Client, cast.Options{
		RangedRearmMs: e.opts.RangedRearmMs,
		PushbackMs:    e.opts.PushbackMs,
		MaxPushbacks:  e.opts.MaxPushbacks,
	})
	e.units[c.ID()] = u
	e.order = append(e.order, c.ID())
	return u, nil
}

// Unit returns a spawned unit, nil when absent.
func (e *Engine) Unit(id model.ObjectID) *Unit { return e.units[id] }

// Units returns the spawned units in spawn order.
func (e *Engine) Units() []*Unit {
	out := make([]*Unit, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.units[id])
	}
	return out
}

// IsAlive reports whether id is spawned and alive.
func (e *Engine) IsAlive(id model.ObjectID) bool {
	u := e.units[id]
	return u != nil && u.IsAlive()
}

// SnapshotAuras returns the savable holders on id.
func (e *Engine) SnapshotAuras(id model.ObjectID) []aura.Saved {
	u := e.units[id]
	if u == nil {
		return nil
	}
	return u.Auras.Snapshot()
}

// RestoreAuras re-applies saved holders onto id.
func (e *Engine) RestoreAuras(id model.ObjectID, saved []aura.Saved) (int, error) {
	u := e.units[id]
	if u == nil {
		return 0, fmt.Errorf("restoring auras of %d: %w", id, ErrUnknownUnit)
	}
	return u.Auras.Restore(e.store, saved)
}

// Despawn removes a unit, cancelling its actions and destroying its effects.
func (e *Engine) Despawn(id model.ObjectID) error {
	u := e.units[id]
	if u == nil {
		return fmt.Errorf("despawning %d: %w", id, ErrUnknownUnit)
	}
	u.Actions.InterruptAll()
	u.Auras.Destroy()
	e.stances.RemoveAttackStance(id)
	delete(e.units, id)
	e.order = slices.DeleteFunc(e.order, func(o model.ObjectID) bool { return o == id })
	return nil
}

// Update advances the shard by deltaMs: per unit the action slots, the
// effect registry and the swing timers, then combat stances. Holders removed
// during the tick are reclaimed at the end.
func (e *Engine) Update(deltaMs int32) {
	e.tick++
	for _, id := range slices.Clone(e.order) {
		u := e.units[id]
		if u == nil {
			continue
		}
		u.Actions.Update(deltaMs)
		u.Auras.Update(deltaMs, e.tick)
		e.updateSwings(u, deltaMs)
	}
	e.stances.Update(deltaMs)
	e.arena.Drain()
}

func (e *Engine) roll(n int) int { return e.rnd.IntN(n) }

func (e *Engine) template(id data.TemplateID) *data.Template {
	tpl, ok := e.store.Get(id)
	if !ok {
		return nil
	}
	return tpl
}

// Registry implements aura.Host.
func (e *Engine) Registry(id model.ObjectID) *aura.Registry {
	if u := e.units[id]; u != nil {
		return u.Auras
	}
	return nil
}

// Rules implements aura.Host.
func (e *Engine) Rules() *rules.Table { return e.rules }

// Periodic implements aura.Host.
func (e *Engine) Periodic(h *aura.Holder, se *aura.SubEffect) {
	caster := e.units[h.CasterID()]
	target := e.units[h.TargetID()]
	if caster == nil || target == nil {
		return
	}
	tpl := h.Template()
	switch se.Type() {
	case data.AuraPeriodicDamage:
		d := newDamage(caster, target, tpl, OutcomeNormal)
		d.Periodic = true
		d.Raw = se.Amount()
		d.ticks = se.TotalTicks()
		d.stacks = h.Stacks()
		e.dealDamage(caster, target, d)
	case data.AuraPeriodicHeal:
		e.heal(caster, target, tpl, se.Amount(), max(se.TotalTicks(), 1))
	case data.AuraPeriodicTriggerSpell:
		if trig := e.template(se.Def().Trigger); trig != nil {
			e.castTriggered(caster, target, trig, 0)
		} else {
			slog.Warn("periodic trigger of unknown template",
				"template", tpl.ID,
				"trigger", se.Def().Trigger)
		}
	}
}

// ChannelBroken implements aura.Host.
func (e *Engine) ChannelBroken(caster model.ObjectID, tpl *data.Template) {
	if u := e.units[caster]; u != nil {
		u.Actions.InterruptChannelOf(tpl.ID)
	}
}

// ControlLost implements aura.Host.
func (e *Engine) ControlLost(id model.ObjectID) {
	if u := e.units[id]; u != nil {
		u.Actions.InterruptNonMelee(false)
	}
}

// Retaliate implements aura.Host.
func (e *Engine) Retaliate(casterID, targetID model.ObjectID, id data.TemplateID, amount int32) {
	caster, target := e.units[casterID], e.units[targetID]
	tpl := e.template(id)
	if caster == nil || target == nil || tpl == nil {
		return
	}
	e.castTriggered(caster, target, tpl, amount)
}

func (e *Engine) record(en Entry) {
	en.Tick = e.tick
	e.collab.Log.Record(en)
}
