package cast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/model"
)

type recorder struct {
	launched []data.TemplateID
	done     map[data.TemplateID][]bool
}

func newRecorder() *recorder {
	return &recorder{done: make(map[data.TemplateID][]bool)}
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		Launch: func(a *Action) { r.launched = append(r.launched, a.Template().ID) },
		Done:   func(a *Action, ok bool) { r.done[a.Template().ID] = append(r.done[a.Template().ID], ok) },
	}
}

type cancelNotices struct {
	got []data.TemplateID
}

func (n *cancelNotices) AutoRepeatCancelled(_ model.ObjectID, tpl data.TemplateID) {
	n.got = append(n.got, tpl)
}

func tpl(id data.TemplateID, attrs data.Attr, castMs, durationMs int32) *data.Template {
	return &data.Template{ID: id, Name: "action", Attributes: attrs, CastTimeMs: castMs, DurationMs: durationMs}
}

func newTestController(t *testing.T) (*Controller, *model.Combatant, *cancelNotices) {
	t.Helper()
	owner := model.NewCombatant(1, "caster", model.KindPlayer, 60, 1000)
	owner.Weapons[model.RangedAttack] = model.Weapon{MinDamage: 10, MaxDamage: 20, SpeedMs: 2000}
	n := &cancelNotices{}
	return NewController(owner, n, Options{}), owner, n
}

func TestCategoryFor(t *testing.T) {
	tests := []struct {
		name  string
		attrs data.Attr
		want  Category
	}{
		{"plain cast", 0, CategoryGeneric},
		{"channel", data.AttrChanneled, CategoryChanneled},
		{"autorepeat", data.AttrAutoRepeat, CategoryAutorepeat},
		{"next swing", data.AttrOnNextSwing, CategoryMeleeSwing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CategoryFor(tpl(1, tt.attrs, 0, 0)))
		})
	}
}

func TestGenericCast_Lifecycle(t *testing.T) {
	c, _, _ := newTestController(t)
	rec := newRecorder()
	a := NewAction(tpl(10, 0, 1500, 0), 1, 2, 0, rec.hooks())

	c.Start(a)
	assert.Equal(t, StatePreparing, a.State())
	assert.Same(t, a, c.Current(CategoryGeneric))

	c.Update(1000)
	assert.Empty(t, rec.launched)
	c.Update(500)

	assert.Equal(t, []data.TemplateID{10}, rec.launched)
	assert.Equal(t, []bool{true}, rec.done[10])
	assert.Equal(t, StateFinished, a.State())
	assert.Nil(t, c.Current(CategoryGeneric))
}

func TestInstantCast_LaunchesOnStart(t *testing.T) {
	c, _, _ := newTestController(t)
	rec := newRecorder()
	c.Start(NewAction(tpl(10, 0, 0, 0), 1, 2, 0, rec.hooks()))

	assert.Equal(t, []data.TemplateID{10}, rec.launched)
	assert.Nil(t, c.Current(CategoryGeneric))
}

func TestProjectile_DelayedSurvivesSoftInterrupt(t *testing.T) {
	c, _, _ := newTestController(t)
	rec := newRecorder()
	a := NewAction(tpl(10, 0, 0, 0), 1, 2, 800, rec.hooks())

	c.Start(a)
	require.Equal(t, StateDelayed, a.State())
	assert.Empty(t, rec.launched, "effect lands on arrival")
	assert.True(t, c.IsNonMeleeCasting(true, false, false))
	assert.False(t, c.IsNonMeleeCasting(false, false, false))

	c.Interrupt(CategoryGeneric, false, true)
	assert.Same(t, a, c.Current(CategoryGeneric), "delayed action is exempt")

	c.Update(800)
	assert.Equal(t, []data.TemplateID{10}, rec.launched)
	assert.Equal(t, []bool{true}, rec.done[10])
	assert.Nil(t, c.Current(CategoryGeneric))
}

func TestProjectile_LandsAfterNewCastTakesSlot(t *testing.T) {
	c, _, _ := newTestController(t)
	rec := newRecorder()
	bolt := NewAction(tpl(10, 0, 0, 0), 1, 2, 2000, rec.hooks())
	next := NewAction(tpl(11, 0, 5000, 0), 1, 2, 0, rec.hooks())

	c.Start(bolt)
	require.Equal(t, StateDelayed, bolt.State())
	c.Start(next)
	assert.Same(t, next, c.Current(CategoryGeneric))
	assert.Equal(t, []*Action{bolt}, c.InFlight())
	assert.Empty(t, rec.done[10], "displacing a projectile does not cancel it")

	for range 30 {
		c.Update(100)
	}
	assert.Equal(t, []data.TemplateID{10}, rec.launched)
	assert.Equal(t, []bool{true}, rec.done[10])
	assert.Empty(t, c.InFlight())
	assert.Same(t, next, c.Current(CategoryGeneric), "the newer cast keeps running")
	assert.Equal(t, StatePreparing, next.State())
}

func TestProjectile_InFlightCancelledByInterruptAll(t *testing.T) {
	c, _, _ := newTestController(t)
	rec := newRecorder()
	bolt := NewAction(tpl(10, 0, 0, 0), 1, 2, 2000, rec.hooks())

	c.Start(bolt)
	c.Start(NewAction(tpl(11, 0, 5000, 0), 1, 2, 0, rec.hooks()))
	require.Len(t, c.InFlight(), 1)
	assert.True(t, c.IsNonMeleeCasting(true, true, true))

	c.InterruptAll()
	assert.Equal(t, []bool{false}, rec.done[10])
	assert.Equal(t, []bool{false}, rec.done[11])
	assert.Empty(t, c.InFlight())

	c.Update(3000)
	assert.Empty(t, rec.launched)
}

func TestChannel_InterruptsGeneric(t *testing.T) {
	c, _, _ := newTestController(t)
	rec := newRecorder()
	gen := NewAction(tpl(10, 0, 2000, 0), 1, 2, 0, rec.hooks())
	ch := NewAction(tpl(20, data.AttrChanneled, 0, 5000), 1, 2, 0, rec.hooks())

	c.Start(gen)
	c.Start(ch)

	assert.Nil(t, c.Current(CategoryGeneric))
	assert.Same(t, ch, c.Current(CategoryChanneled))
	assert.Equal(t, []bool{false}, rec.done[10])
	assert.Equal(t, StateChanneling, ch.State())

	c.Update(5000)
	assert.Nil(t, c.Current(CategoryChanneled))
	assert.Equal(t, []bool{true}, rec.done[20])
}

func TestGeneric_InterruptsChannelAndAutorepeat(t *testing.T) {
	c, _, notices := newTestController(t)
	rec := newRecorder()
	ch := NewAction(tpl(20, data.AttrChanneled, 0, 5000), 1, 2, 0, rec.hooks())
	wand := NewAction(tpl(30, data.AttrAutoRepeat, 0, 0), 1, 2, 0, rec.hooks())

	c.Start(ch)
	c.SetCurrent(wand)
	require.Nil(t, c.Current(CategoryChanneled), "autorepeat breaks the channel")

	c.Start(NewAction(tpl(10, 0, 1000, 0), 1, 2, 0, rec.hooks()))
	assert.Nil(t, c.Current(CategoryAutorepeat))
	assert.Empty(t, notices.got, "only the indefinite autorepeat notifies")
}

func TestIndefiniteAutorepeat(t *testing.T) {
	c, owner, notices := newTestController(t)
	rec := newRecorder()
	shot := NewAction(tpl(40, data.AttrAutoRepeat|data.AttrIndefiniteRepeat, 0, 0), 1, 2, 0, rec.hooks())

	c.SetCurrent(shot)
	assert.Zero(t, owner.AttackTimer(model.RangedAttack), "exempt action leaves the swing timer alone")

	c.Start(NewAction(tpl(10, 0, 1000, 0), 1, 2, 0, rec.hooks()))
	assert.Same(t, shot, c.Current(CategoryAutorepeat), "generic casts leave it running")

	c.Interrupt(CategoryAutorepeat, true, true)
	assert.Equal(t, []data.TemplateID{40}, notices.got)
}

func TestAutorepeat_RaisesRangedTimer(t *testing.T) {
	c, owner, _ := newTestController(t)
	owner.SetAttackTimer(model.RangedAttack, 100)

	c.SetCurrent(NewAction(tpl(30, data.AttrAutoRepeat, 0, 0), 1, 2, 0, Hooks{}))
	assert.Equal(t, int32(DefaultRangedRearmMs), owner.AttackTimer(model.RangedAttack))

	owner.SetAttackTimer(model.RangedAttack, 1500)
	c.SetCurrent(NewAction(tpl(31, data.AttrAutoRepeat, 0, 0), 1, 2, 0, Hooks{}))
	assert.Equal(t, int32(1500), owner.AttackTimer(model.RangedAttack), "higher timers are kept")
}

func TestAutorepeat_FiresWhenTimerReady(t *testing.T) {
	c, owner, _ := newTestController(t)
	rec := newRecorder()
	shot := NewAction(tpl(40, data.AttrAutoRepeat|data.AttrIndefiniteRepeat, 0, 0), 1, 2, 0, rec.hooks())
	c.SetCurrent(shot)

	c.Update(0)
	assert.Equal(t, []data.TemplateID{40}, rec.launched)
	assert.Equal(t, int32(2000), owner.AttackTimer(model.RangedAttack))

	c.Start(NewAction(tpl(10, 0, 1000, 0), 1, 2, 0, Hooks{}))
	owner.SetAttackTimer(model.RangedAttack, 0)
	c.Update(0)
	assert.Len(t, rec.launched, 1, "waits while a generic cast runs")
}

func TestFinish_HookMayInstallNextAction(t *testing.T) {
	c, _, _ := newTestController(t)
	next := NewAction(tpl(11, 0, 1000, 0), 1, 2, 0, Hooks{})
	first := NewAction(tpl(10, 0, 1000, 0), 1, 2, 0, Hooks{
		Done: func(a *Action, ok bool) {
			if ok {
				c.Start(next)
			}
		},
	})

	c.Start(first)
	c.Update(1000)

	assert.Same(t, next, c.Current(CategoryGeneric), "slot keeps the action installed by the hook")
}

func TestInterrupt_ReentrantCancelRunsDoneOnce(t *testing.T) {
	c, _, _ := newTestController(t)
	calls := 0
	ch := NewAction(tpl(20, data.AttrChanneled, 0, 5000), 1, 2, 0, Hooks{
		Done: func(*Action, bool) {
			calls++
			c.InterruptChannelOf(20)
		},
	})

	c.Start(ch)
	c.Interrupt(CategoryChanneled, true, true)
	assert.Equal(t, 1, calls)
	assert.Nil(t, c.Current(CategoryChanneled))
}

func TestDelayCast_Pushback(t *testing.T) {
	c, _, _ := newTestController(t)
	a := NewAction(tpl(10, 0, 2000, 0), 1, 2, 0, Hooks{})
	c.Start(a)

	c.Update(1200)
	require.True(t, c.DelayCast())
	assert.Equal(t, int32(1300), a.Timer())

	c.Update(100)
	require.True(t, c.DelayCast())
	assert.Equal(t, int32(1700), a.Timer())
	assert.False(t, c.DelayCast(), "pushbacks are bounded")

	c.Update(1000)
	assert.False(t, c.DelayCast())
	assert.Equal(t, int32(700), a.Timer())
}

func TestDelayCast_NeverExceedsCastTime(t *testing.T) {
	c, _, _ := newTestController(t)
	a := NewAction(tpl(10, 0, 2000, 0), 1, 2, 0, Hooks{})
	c.Start(a)
	c.Update(200)

	require.True(t, c.DelayCast())
	assert.Equal(t, int32(2000), a.Timer())
}

func TestDelayChannel(t *testing.T) {
	c, _, _ := newTestController(t)
	ch := NewAction(tpl(20, data.AttrChanneled, 0, 8000), 1, 2, 0, Hooks{})
	c.Start(ch)

	require.True(t, c.DelayChannel())
	assert.Equal(t, int32(6000), ch.Timer())
	require.True(t, c.DelayChannel())
	assert.Equal(t, int32(4000), ch.Timer())
	assert.False(t, c.DelayChannel())
}

func TestFireNextSwing(t *testing.T) {
	c, _, _ := newTestController(t)
	rec := newRecorder()
	assert.False(t, c.FireNextSwing())

	c.SetCurrent(NewAction(tpl(50, data.AttrOnNextSwing, 0, 0), 1, 2, 0, rec.hooks()))
	c.Update(10000)
	assert.Empty(t, rec.launched, "waits for the swing")

	assert.True(t, c.FireNextSwing())
	assert.Equal(t, []data.TemplateID{50}, rec.launched)
	assert.Nil(t, c.Current(CategoryMeleeSwing))
	assert.False(t, c.IsNonMeleeCasting(true, false, false))
}

func TestInterruptNonMelee(t *testing.T) {
	c, _, _ := newTestController(t)
	c.SetCurrent(NewAction(tpl(50, data.AttrOnNextSwing, 0, 0), 1, 2, 0, Hooks{}))
	c.Start(NewAction(tpl(20, data.AttrChanneled, 0, 5000), 1, 2, 0, Hooks{}))

	c.InterruptNonMelee(true)
	assert.False(t, c.IsNonMeleeCasting(true, false, false))
	assert.NotNil(t, c.Current(CategoryMeleeSwing))

	c.InterruptAll()
	assert.Nil(t, c.Current(CategoryMeleeSwing))
}
