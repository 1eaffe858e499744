package cast

import (
	"log/slog"
	"slices"

	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/model"
)

// Default tunables.
const (
	DefaultRangedRearmMs = 500
	DefaultPushbackMs    = 500
	DefaultMaxPushbacks  = 2
)

// Options tune a controller.
type Options struct {
	// RangedRearmMs is the minimum ranged swing timer after an autorepeat
	// action takes its slot.
	RangedRearmMs int32
	PushbackMs    int32
	MaxPushbacks  int32
}

func (o Options) withDefaults() Options {
	if o.RangedRearmMs <= 0 {
		o.RangedRearmMs = DefaultRangedRearmMs
	}
	if o.PushbackMs <= 0 {
		o.PushbackMs = DefaultPushbackMs
	}
	if o.MaxPushbacks <= 0 {
		o.MaxPushbacks = DefaultMaxPushbacks
	}
	return o
}

// Notifier receives client-facing notices.
type Notifier interface {
	AutoRepeatCancelled(unit model.ObjectID, tpl data.TemplateID)
}

// Controller owns the four action slots of one combatant. At most one
// action occupies each slot.
//
// Not safe for concurrent use; hooks may re-enter the controller.
type Controller struct {
	owner    *model.Combatant
	opts     Options
	notifier Notifier
	slots    [CategoryCount]*Action

	// inFlight holds delayed actions displaced from their slot by a newer
	// action of the same category. They still land.
	inFlight []*Action
}

// NewController creates the controller of owner. notifier may be nil.
func NewController(owner *model.Combatant, notifier Notifier, opts Options) *Controller {
	return &Controller{
		owner:    owner,
		opts:     opts.withDefaults(),
		notifier: notifier,
	}
}

// Current returns the occupant of a slot, nil when empty.
func (c *Controller) Current(cat Category) *Action {
	if cat >= CategoryCount {
		return nil
	}
	return c.slots[cat]
}

// Start puts a into its slot and, for instant generic and channeled
// actions, casts it right away.
func (c *Controller) Start(a *Action) {
	c.SetCurrent(a)
	if c.slots[a.category] != a {
		return
	}
	if (a.category == CategoryGeneric || a.category == CategoryChanneled) && a.castTime == 0 {
		a.cast()
	}
}

// SetCurrent makes a the occupant of its slot, interrupting the previous
// occupant and the actions of other slots that a breaks.
func (c *Controller) SetCurrent(a *Action) {
	cat := a.category
	if c.slots[cat] == a {
		return
	}

	c.Interrupt(cat, false, true)

	switch cat {
	case CategoryGeneric:
		c.Interrupt(CategoryChanneled, false, true)
		if ar := c.slots[CategoryAutorepeat]; ar != nil && !ar.IsIndefiniteRepeat() {
			c.Interrupt(CategoryAutorepeat, true, true)
		}
	case CategoryChanneled:
		c.Interrupt(CategoryGeneric, false, true)
		c.Interrupt(CategoryChanneled, true, true)
		if ar := c.slots[CategoryAutorepeat]; ar != nil && !ar.IsIndefiniteRepeat() {
			c.Interrupt(CategoryAutorepeat, true, true)
		}
	case CategoryAutorepeat:
		if !a.IsIndefiniteRepeat() {
			c.Interrupt(CategoryGeneric, false, true)
			c.Interrupt(CategoryChanneled, false, true)
			if c.owner.AttackTimer(model.RangedAttack) < c.opts.RangedRearmMs {
				c.owner.SetAttackTimer(model.RangedAttack, c.opts.RangedRearmMs)
			}
		}
	}

	if old := c.slots[cat]; old != nil && old.state == StateDelayed {
		c.inFlight = append(c.inFlight, old)
	}
	a.ctrl = c
	c.slots[cat] = a
}

// InFlight returns the displaced projectiles that have not landed yet.
func (c *Controller) InFlight() []*Action { return c.inFlight }

// Interrupt cancels the occupant of a slot. A delayed occupant survives
// unless withDelayed is set, which also cancels the displaced projectiles
// of that category. The client is told only when the indefinite autorepeat
// action is cancelled.
func (c *Controller) Interrupt(cat Category, withDelayed, notifyClient bool) {
	if withDelayed {
		c.cancelInFlight(cat)
	}
	a := c.Current(cat)
	if a == nil {
		return
	}
	if !withDelayed && a.state == StateDelayed {
		return
	}
	if cat == CategoryAutorepeat && notifyClient && a.IsIndefiniteRepeat() && c.notifier != nil {
		c.notifier.AutoRepeatCancelled(c.owner.ID(), a.tpl.ID)
	}

	slog.Debug("action interrupted",
		"unit", c.owner.ID(),
		"category", cat,
		"template", a.tpl.ID,
		"state", a.state)

	if a.state != StateFinished {
		a.complete(false)
	}
	if c.slots[cat] == a {
		c.slots[cat] = nil
	}
}

func (c *Controller) cancelInFlight(cat Category) {
	for _, a := range slices.Clone(c.inFlight) {
		if a.category == cat && a.state != StateFinished {
			a.complete(false)
		}
	}
	c.pruneInFlight()
}

func (c *Controller) pruneInFlight() {
	c.inFlight = slices.DeleteFunc(c.inFlight, (*Action).IsFinished)
}

// Finish completes the occupant of a slot. The slot is cleared after the
// Done hook returns, and only if the hook did not install another action.
func (c *Controller) Finish(cat Category, ok bool) {
	a := c.Current(cat)
	if a == nil {
		return
	}
	a.complete(ok)
	if c.slots[cat] == a {
		c.slots[cat] = nil
	}
}

// IsNonMeleeCasting reports whether the owner is busy with an action that
// blocks movement or defense. Melee-swing actions never count. A delayed
// generic action counts only withDelayed; channeled and autorepeat actions
// count unless skipped.
func (c *Controller) IsNonMeleeCasting(withDelayed, skipChanneled, skipAutorepeat bool) bool {
	if a := c.slots[CategoryGeneric]; a != nil && a.state != StateFinished &&
		(withDelayed || a.state != StateDelayed) {
		return true
	}
	if withDelayed {
		for _, a := range c.inFlight {
			if a.category == CategoryGeneric && a.state != StateFinished {
				return true
			}
		}
	}
	if a := c.slots[CategoryChanneled]; !skipChanneled && a != nil && a.state != StateFinished {
		return true
	}
	return !skipAutorepeat && c.slots[CategoryAutorepeat] != nil
}

// InterruptNonMelee cancels the generic, channeled and autorepeat slots.
func (c *Controller) InterruptNonMelee(withDelayed bool) {
	c.Interrupt(CategoryGeneric, withDelayed, true)
	c.Interrupt(CategoryChanneled, true, true)
	c.Interrupt(CategoryAutorepeat, true, true)
}

// InterruptAll cancels every slot including delayed projectiles.
func (c *Controller) InterruptAll() {
	for cat := range CategoryCount {
		c.Interrupt(cat, true, false)
	}
}

// DelayCast pushes back the preparing generic cast.
func (c *Controller) DelayCast() bool {
	a := c.slots[CategoryGeneric]
	return a != nil && a.Delay(c.opts.PushbackMs, c.opts.MaxPushbacks)
}

// DelayChannel shortens the running channel.
func (c *Controller) DelayChannel() bool {
	a := c.slots[CategoryChanneled]
	return a != nil && a.DelayChannel(c.opts.MaxPushbacks)
}

// InterruptChannelOf cancels the channel of tpl, if that is what runs.
func (c *Controller) InterruptChannelOf(tpl data.TemplateID) {
	if a := c.slots[CategoryChanneled]; a != nil && a.tpl.ID == tpl {
		c.Interrupt(CategoryChanneled, true, true)
	}
}

// Update advances every occupied slot and the displaced projectiles, then
// fires the autorepeat action when the ranged swing timer is ready and
// nothing else is being cast.
func (c *Controller) Update(deltaMs int32) {
	if len(c.inFlight) > 0 {
		for _, a := range slices.Clone(c.inFlight) {
			a.Update(deltaMs)
		}
		c.pruneInFlight()
	}
	for cat := range CategoryCount {
		if a := c.slots[cat]; a != nil {
			a.Update(deltaMs)
		}
	}

	ar := c.slots[CategoryAutorepeat]
	if ar == nil || c.IsNonMeleeCasting(false, true, true) {
		return
	}
	if c.owner.AttackTimer(model.RangedAttack) > 0 {
		return
	}
	ar.castHook()
	ar.launch()
	c.owner.ResetAttackTimer(model.RangedAttack)
}

// FireNextSwing launches the pending melee-swing action in place of a
// regular swing. Returns false when the slot is empty.
func (c *Controller) FireNextSwing() bool {
	a := c.slots[CategoryMeleeSwing]
	if a == nil || a.state != StatePreparing {
		return false
	}
	a.state = StateCasting
	a.castHook()
	a.launch()
	c.Finish(CategoryMeleeSwing, true)
	return true
}
