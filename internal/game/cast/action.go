package cast

import (
	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/model"
)

// Category is the slot an action occupies on its caster.
type Category uint8

const (
	CategoryGeneric Category = iota
	CategoryChanneled
	CategoryAutorepeat
	CategoryMeleeSwing
	CategoryCount
)

var categoryNames = [CategoryCount]string{"generic", "channeled", "autorepeat", "melee"}

func (c Category) String() string {
	if c < CategoryCount {
		return categoryNames[c]
	}
	return "unknown"
}

// CategoryFor returns the slot a template is cast into.
func CategoryFor(tpl *data.Template) Category {
	switch {
	case tpl.Has(data.AttrOnNextSwing):
		return CategoryMeleeSwing
	case tpl.Has(data.AttrAutoRepeat):
		return CategoryAutorepeat
	case tpl.Has(data.AttrChanneled):
		return CategoryChanneled
	}
	return CategoryGeneric
}

// State is the lifecycle state of an action.
type State uint8

const (
	StatePreparing  State = iota // cast bar running or waiting for a swing
	StateCasting                 // effect being launched
	StateChanneling              // channel running after launch
	StateDelayed                 // projectile in flight, cost already paid
	StateFinished
)

var stateNames = [...]string{"preparing", "casting", "channeling", "delayed", "finished"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Hooks are the callbacks an action runs. Both may re-enter the controller.
type Hooks struct {
	// Cast runs when the cast completes, before any projectile flight.
	Cast func(a *Action)
	// Launch commits the effect. Projectiles run it on arrival; autorepeat
	// and melee-swing actions run it on every shot they fire.
	Launch func(a *Action)
	// Done runs exactly once, when the action finishes or is cancelled; ok is
	// false on cancel.
	Done func(a *Action, ok bool)
}

// Action is one cast or swing in flight.
type Action struct {
	tpl      *data.Template
	caster   model.ObjectID
	target   model.ObjectID
	category Category
	state    State
	hooks    Hooks

	timer     int32
	castTime  int32
	channelMs int32
	travelMs  int32
	pushbacks int32

	ctrl *Controller
	done bool
}

// NewAction builds an action for tpl. travelMs is the projectile flight
// time; zero launches on cast completion.
func NewAction(tpl *data.Template, caster, target model.ObjectID, travelMs int32, hooks Hooks) *Action {
	a := &Action{
		tpl:      tpl,
		caster:   caster,
		target:   target,
		category: CategoryFor(tpl),
		hooks:    hooks,
		castTime: max(tpl.CastTimeMs, 0),
		travelMs: max(travelMs, 0),
	}
	if a.category == CategoryChanneled && tpl.DurationMs > 0 {
		a.channelMs = tpl.DurationMs
	}
	a.timer = a.castTime
	return a
}

func (a *Action) Template() *data.Template { return a.tpl }
func (a *Action) CasterID() model.ObjectID { return a.caster }
func (a *Action) TargetID() model.ObjectID { return a.target }
func (a *Action) Category() Category       { return a.category }
func (a *Action) State() State             { return a.state }
func (a *Action) Timer() int32             { return a.timer }
func (a *Action) Pushbacks() int32         { return a.pushbacks }
func (a *Action) IsFinished() bool         { return a.state == StateFinished }

// IsIndefiniteRepeat reports the autorepeat action other casts leave alone.
func (a *Action) IsIndefiniteRepeat() bool {
	return a.category == CategoryAutorepeat && a.tpl.Has(data.AttrIndefiniteRepeat)
}

// Update advances the action's own timers. Autorepeat and melee-swing
// actions are driven by the caster's swing timers instead.
func (a *Action) Update(deltaMs int32) {
	switch a.state {
	case StatePreparing:
		if a.category == CategoryAutorepeat || a.category == CategoryMeleeSwing {
			return
		}
		a.timer -= deltaMs
		if a.timer <= 0 {
			a.cast()
		}
	case StateChanneling:
		a.timer -= deltaMs
		if a.timer <= 0 {
			a.finish(true)
		}
	case StateDelayed:
		a.timer -= deltaMs
		if a.timer <= 0 {
			a.launch()
			if a.state != StateFinished {
				a.finish(true)
			}
		}
	}
}

// cast completes the cast bar.
func (a *Action) cast() {
	a.state = StateCasting
	a.castHook()
	if a.state == StateFinished {
		return
	}
	if a.travelMs > 0 {
		a.state = StateDelayed
		a.timer = a.travelMs
		return
	}
	a.launch()
	if a.state == StateFinished {
		return
	}
	if a.category == CategoryChanneled && a.channelMs > 0 {
		a.state = StateChanneling
		a.timer = a.channelMs
		return
	}
	a.finish(true)
}

func (a *Action) castHook() {
	if a.hooks.Cast != nil {
		a.hooks.Cast(a)
	}
}

func (a *Action) launch() {
	if a.hooks.Launch != nil {
		a.hooks.Launch(a)
	}
}

func (a *Action) finish(ok bool) {
	if a.ctrl != nil && a.ctrl.slots[a.category] == a {
		a.ctrl.Finish(a.category, ok)
		return
	}
	a.complete(ok)
}

// complete moves the action to Finished and runs Done once.
func (a *Action) complete(ok bool) {
	a.state = StateFinished
	if a.done {
		return
	}
	a.done = true
	if a.hooks.Done != nil {
		a.hooks.Done(a, ok)
	}
}

// Delay pushes a preparing cast back by pushbackMs, never past its full
// cast time. Returns false once maxPushbacks have been spent.
func (a *Action) Delay(pushbackMs, maxPushbacks int32) bool {
	if a.state != StatePreparing || a.castTime == 0 || a.pushbacks >= maxPushbacks {
		return false
	}
	a.pushbacks++
	a.timer = min(a.timer+pushbackMs, a.castTime)
	return true
}

// DelayChannel shortens a running channel by a quarter of its full
// duration. Returns false once maxPushbacks have been spent.
func (a *Action) DelayChannel(maxPushbacks int32) bool {
	if a.state != StateChanneling || a.pushbacks >= maxPushbacks {
		return false
	}
	a.pushbacks++
	a.timer -= min(a.channelMs/4, a.timer)
	if a.timer <= 0 {
		a.finish(true)
	}
	return true
}
