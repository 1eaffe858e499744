package aura

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/model"
	"github.com/udisondev/combatcore/internal/rules"
)

type tickCall struct {
	tpl    data.TemplateID
	amount int32
}

type retaliation struct {
	caster, target model.ObjectID
	tpl            data.TemplateID
	amount         int32
}

type fakeHost struct {
	arena         *Arena
	regs          map[model.ObjectID]*Registry
	rules         *rules.Table
	ticks         []tickCall
	channelBroken []data.TemplateID
	controlLost   []model.ObjectID
	retaliations  []retaliation
}

func newFakeHost(rs ...*rules.Rule) *fakeHost {
	tbl, err := rules.NewTable(rs...)
	if err != nil {
		panic(err)
	}
	return &fakeHost{arena: NewArena(), regs: make(map[model.ObjectID]*Registry), rules: tbl}
}

func (f *fakeHost) spawn(id model.ObjectID) *Registry {
	c := model.NewCombatant(id, "unit", model.KindCreature, 60, 1000)
	r := NewRegistry(c, f, f.arena, Options{})
	f.regs[id] = r
	return r
}

func (f *fakeHost) Registry(id model.ObjectID) *Registry { return f.regs[id] }
func (f *fakeHost) Rules() *rules.Table                  { return f.rules }
func (f *fakeHost) Periodic(h *Holder, e *SubEffect) {
	f.ticks = append(f.ticks, tickCall{tpl: h.Template().ID, amount: e.Amount()})
}
func (f *fakeHost) ChannelBroken(_ model.ObjectID, tpl *data.Template) {
	f.channelBroken = append(f.channelBroken, tpl.ID)
}
func (f *fakeHost) ControlLost(id model.ObjectID) { f.controlLost = append(f.controlLost, id) }
func (f *fakeHost) Retaliate(caster, target model.ObjectID, tpl data.TemplateID, amount int32) {
	f.retaliations = append(f.retaliations, retaliation{caster, target, tpl, amount})
}

func auraTemplate(id data.TemplateID, aura data.AuraType, amount int32) *data.Template {
	t := &data.Template{
		ID:         id,
		Name:       "test aura",
		Schools:    model.MaskShadow,
		DmgClass:   data.ClassMagic,
		DurationMs: 10000,
	}
	t.Effects[0] = data.EffectDef{Kind: data.EffectApplyAura, Aura: aura, BasePoints: amount}
	return t
}

func dotTemplate(id data.TemplateID, perTick int32) *data.Template {
	t := auraTemplate(id, data.AuraPeriodicDamage, perTick)
	t.Effects[0].AmplitudeMs = 2000
	return t
}

const (
	casterA model.ObjectID = 1
	casterB model.ObjectID = 2
	victim  model.ObjectID = 10
)

func TestAddEffect_SameCasterMergesIntoStack(t *testing.T) {
	host := newFakeHost()
	host.spawn(casterA)
	v := host.spawn(victim)

	tpl := auraTemplate(100, data.AuraModDamagePercentTaken, 5)
	tpl.StackAmount = 5

	for range 3 {
		require.True(t, v.AddEffect(NewHolder(tpl, casterA, victim, nil)))
	}

	assert.Equal(t, 1, v.Count(100), "never three holders")
	h := v.Find(100, casterA)
	require.NotNil(t, h)
	assert.Equal(t, int32(3), h.Stacks())
	assert.Equal(t, int32(15), v.TotalModifier(data.AuraModDamagePercentTaken))
}

func TestAddEffect_StackCountProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		maxStack := rapid.Int32Range(1, 10).Draw(rt, "max")
		n := rapid.IntRange(1, 25).Draw(rt, "applications")

		host := newFakeHost()
		host.spawn(casterA)
		v := host.spawn(victim)
		tpl := auraTemplate(100, data.AuraDummy, 1)
		tpl.StackAmount = maxStack

		for range n {
			v.AddEffect(NewHolder(tpl, casterA, victim, nil))
		}

		if v.Count(100) != 1 {
			rt.Fatalf("expected one holder, got %d", v.Count(100))
		}
		want := min(int32(n), max(maxStack, 1))
		if got := v.Find(100, 0).Stacks(); got != want {
			rt.Fatalf("stacks = %d, want %d", got, want)
		}
	})
}

func TestAddEffect_DifferentCastersKeepSeparateHolders(t *testing.T) {
	host := newFakeHost()
	host.spawn(casterA)
	host.spawn(casterB)
	v := host.spawn(victim)

	tpl := dotTemplate(100, 10)
	require.True(t, v.AddEffect(NewHolder(tpl, casterA, victim, nil)))
	require.True(t, v.AddEffect(NewHolder(tpl, casterB, victim, nil)))
	assert.Equal(t, 2, v.Count(100))
}

func TestAddEffect_HigherRankReplacesLower(t *testing.T) {
	host := newFakeHost()
	host.spawn(casterA)
	v := host.spawn(victim)

	rank1 := auraTemplate(101, data.AuraModResistance, 10)
	rank1.Family, rank1.Rank = 7, 1
	rank2 := auraTemplate(102, data.AuraModResistance, 20)
	rank2.Family, rank2.Rank = 7, 2

	require.True(t, v.AddEffect(NewHolder(rank1, casterA, victim, nil)))
	require.True(t, v.AddEffect(NewHolder(rank2, casterA, victim, nil)))

	assert.Nil(t, v.Find(101, 0), "rank 1 evicted")
	assert.NotNil(t, v.Find(102, 0))
	assert.Equal(t, 1, v.Len())

	assert.False(t, v.AddEffect(NewHolder(rank1, casterA, victim, nil)), "lower rank refused")
	assert.NotNil(t, v.Find(102, 0))
}

func TestAddEffect_SpecificPolicies(t *testing.T) {
	tests := []struct {
		name      string
		specific  data.Specific
		wantCount int
	}{
		{"per target: one across casters", data.SpecificPerTarget, 1},
		{"per caster: one per caster", data.SpecificPerCaster, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host := newFakeHost()
			host.spawn(casterA)
			host.spawn(casterB)
			v := host.spawn(victim)

			a := auraTemplate(200, data.AuraDummy, 1)
			a.Specific, a.SpecificGroup = tt.specific, 9
			b := auraTemplate(201, data.AuraDummy, 1)
			b.Specific, b.SpecificGroup = tt.specific, 9

			require.True(t, v.AddEffect(NewHolder(a, casterA, victim, nil)))
			require.True(t, v.AddEffect(NewHolder(b, casterB, victim, nil)))
			assert.Equal(t, tt.wantCount, v.Len())
			assert.NotNil(t, v.Find(201, casterB), "newest application survives")
		})
	}
}

func TestAddEffect_CoexistPairsAreNotEvicted(t *testing.T) {
	host := newFakeHost(&rules.Rule{Template: 300, Coexist: []data.TemplateID{301}})
	host.spawn(casterA)
	v := host.spawn(victim)

	a := auraTemplate(300, data.AuraDummy, 1)
	a.Specific, a.SpecificGroup = data.SpecificPerTarget, 4
	b := auraTemplate(301, data.AuraDummy, 1)
	b.Specific, b.SpecificGroup = data.SpecificPerTarget, 4

	require.True(t, v.AddEffect(NewHolder(a, casterA, victim, nil)))
	require.True(t, v.AddEffect(NewHolder(b, casterA, victim, nil)))
	assert.Equal(t, 2, v.Len())
}

func TestAddEffect_Rejections(t *testing.T) {
	host := newFakeHost()
	host.spawn(casterA)
	v := host.spawn(victim)
	tpl := auraTemplate(100, data.AuraDummy, 1)

	h := NewHolder(tpl, casterA, casterA, nil)
	assert.False(t, v.AddEffect(h), "declared target must be the owner")
	assert.True(t, h.IsRemoved())

	v.Owner().SetDeathState(model.JustDied)
	assert.False(t, v.AddEffect(NewHolder(tpl, casterA, victim, nil)), "dead targets refuse effects")

	persistent := auraTemplate(101, data.AuraDummy, 1)
	persistent.Attributes = data.AttrDeathPersistent
	assert.True(t, v.AddEffect(NewHolder(persistent, casterA, victim, nil)))

	v.BeginLoad()
	assert.True(t, v.AddEffect(NewHolder(tpl, casterA, victim, nil)), "state reload accepts any holder")
	v.EndLoad()
}

func TestAddEffect_FoldsRemainingPeriodicDamage(t *testing.T) {
	host := newFakeHost(&rules.Rule{Template: 100, FoldPeriodic: true})
	host.spawn(casterA)
	v := host.spawn(victim)
	tpl := dotTemplate(100, 10)

	require.True(t, v.AddEffect(NewHolder(tpl, casterA, victim, nil)))
	v.Update(2000, 1)
	v.Update(2000, 2)
	require.Len(t, host.ticks, 2)

	require.True(t, v.AddEffect(NewHolder(tpl, casterA, victim, nil)))
	e := v.Find(100, casterA).Effect(0)
	assert.Equal(t, int32(0), e.TickNumber())
	assert.Equal(t, int32(10+30/5), e.Amount(), "three remaining ticks of 10 spread over five")
}

func TestUpdate_PeriodicTicksThenExpires(t *testing.T) {
	host := newFakeHost()
	host.spawn(casterA)
	v := host.spawn(victim)

	tpl := dotTemplate(100, 25)
	tpl.Attributes = data.AttrChanneled
	require.True(t, v.AddEffect(NewHolder(tpl, casterA, victim, nil)))
	h := v.Find(100, 0)

	for i := range 5 {
		v.Update(2000, uint64(i+1))
	}

	assert.Len(t, host.ticks, 5)
	assert.True(t, h.IsRemoved())
	assert.Equal(t, RemoveExpire, h.RemoveMode())
	assert.Empty(t, host.channelBroken, "expiry never breaks the channel")
}

func TestUpdate_SameEpochIsIgnored(t *testing.T) {
	host := newFakeHost()
	host.spawn(casterA)
	v := host.spawn(victim)
	require.True(t, v.AddEffect(NewHolder(dotTemplate(100, 25), casterA, victim, nil)))

	v.Update(2000, 1)
	v.Update(2000, 1)
	assert.Len(t, host.ticks, 1)
	assert.Equal(t, int32(8000), v.Find(100, 0).Duration())
}

func TestRemoveEffect_ChanneledBreaksCasterChannel(t *testing.T) {
	host := newFakeHost()
	host.spawn(casterA)
	v := host.spawn(victim)

	tpl := dotTemplate(100, 25)
	tpl.Attributes = data.AttrChanneled
	require.True(t, v.AddEffect(NewHolder(tpl, casterA, victim, nil)))

	v.RemoveEffect(v.Find(100, 0), RemoveDefault)
	assert.Equal(t, []data.TemplateID{100}, host.channelBroken)
}

func TestRemoveEffect_DeferredWhileInUse(t *testing.T) {
	host := newFakeHost()
	host.spawn(casterA)
	v := host.spawn(victim)
	require.True(t, v.AddEffect(NewHolder(auraTemplate(100, data.AuraDummy, 1), casterA, victim, nil)))

	h := v.Find(100, 0)
	hd := h.Handle()
	live := host.arena.Live()

	h.Acquire()
	v.RemoveEffect(h, RemoveDefault)
	assert.Nil(t, host.arena.Resolve(hd), "removed holders no longer resolve")
	assert.Equal(t, 1, host.arena.Pending())
	assert.Equal(t, live, host.arena.Live(), "slot kept while in use")

	assert.Zero(t, host.arena.Drain(), "still in use")
	h.Release()
	assert.Equal(t, 1, host.arena.Drain())
	assert.Equal(t, live-1, host.arena.Live())
	assert.Zero(t, host.arena.Pending())
}

func TestDispel(t *testing.T) {
	host := newFakeHost()
	host.spawn(casterA)
	v := host.spawn(victim)
	tpl := auraTemplate(100, data.AuraDummy, 4)
	tpl.StackAmount = 5
	for range 3 {
		v.AddEffect(NewHolder(tpl, casterA, victim, nil))
	}

	assert.Equal(t, int32(2), v.Dispel(100, casterA, casterB, 2))
	h := v.Find(100, 0)
	require.NotNil(t, h)
	assert.Equal(t, int32(1), h.Stacks())

	assert.Equal(t, int32(1), v.Dispel(100, 0, casterB, 5))
	assert.True(t, h.IsRemoved())
	assert.Equal(t, RemoveDispel, h.RemoveMode())
}

func TestDispel_Retaliation(t *testing.T) {
	host := newFakeHost(&rules.Rule{
		Template:          100,
		DispelRetaliation: &rules.DispelRetaliation{Template: 900, Multiplier: 9},
	})
	host.spawn(casterA)
	v := host.spawn(victim)
	require.True(t, v.AddEffect(NewHolder(dotTemplate(100, 20), casterA, victim, nil)))

	v.Dispel(100, 0, casterB, 1)
	require.Len(t, host.retaliations, 1)
	assert.Equal(t, retaliation{casterA, casterB, 900, 180}, host.retaliations[0])
	assert.Zero(t, v.Len())
}

func TestDispelByType(t *testing.T) {
	host := newFakeHost()
	host.spawn(casterA)
	v := host.spawn(victim)

	curse := auraTemplate(100, data.AuraDummy, 1)
	curse.Dispel = model.DispelCurse
	buff := auraTemplate(101, data.AuraDummy, 1)
	buff.Dispel = model.DispelCurse
	buff.Attributes = data.AttrPositive
	v.AddEffect(NewHolder(curse, casterA, victim, nil))
	v.AddEffect(NewHolder(buff, casterA, victim, nil))

	assert.Equal(t, int32(1), v.DispelByType(model.DispelCurse, false, casterB, 3))
	assert.Nil(t, v.Find(100, 0))
	assert.NotNil(t, v.Find(101, 0), "cleanse keeps beneficial effects")
}

func TestSteal(t *testing.T) {
	host := newFakeHost()
	host.spawn(casterA)
	thief := host.spawn(casterB)
	v := host.spawn(victim)

	tpl := auraTemplate(100, data.AuraModSpellPower, 30)
	tpl.DurationMs = 30 * 60 * 1000
	tpl.StackAmount = 3
	tpl.Attributes = data.AttrPositive | data.AttrSingleTarget
	for range 3 {
		v.AddEffect(NewHolder(tpl, casterA, victim, nil))
	}
	orig := v.Find(100, 0)
	require.Equal(t, int32(3), orig.Stacks())

	require.True(t, v.Steal(orig, thief))
	assert.Equal(t, int32(2), orig.Stacks())

	stolen := thief.Find(100, 0)
	require.NotNil(t, stolen)
	assert.Equal(t, int32(DefaultStealDurationCap), stolen.Duration())
	assert.Equal(t, int32(30), stolen.Effect(0).Amount(), "one stack worth of magnitude")
	assert.Zero(t, stolen.Flags()&FlagSingleTarget, "stolen copies are never tracked")
	assert.Nil(t, thief.Tracked(uint32(100)))
}

func TestSteal_RefusedCopyKeepsStack(t *testing.T) {
	host := newFakeHost()
	host.spawn(casterA)
	thief := host.spawn(casterB)
	v := host.spawn(victim)

	tpl := auraTemplate(100, data.AuraModSpellPower, 30)
	tpl.DurationMs = 60000
	tpl.StackAmount = 3
	tpl.Attributes = data.AttrPositive
	for range 2 {
		v.AddEffect(NewHolder(tpl, casterA, victim, nil))
	}
	single := auraTemplate(101, data.AuraModSpellPower, 10)
	single.DurationMs = 60000
	single.Attributes = data.AttrPositive
	v.AddEffect(NewHolder(single, casterA, victim, nil))

	thief.Owner().SetDeathState(model.JustDied)

	orig := v.Find(100, 0)
	assert.False(t, v.Steal(orig, thief))
	assert.Equal(t, int32(2), orig.Stacks(), "a refused copy costs no stack")

	last := v.Find(101, 0)
	assert.False(t, v.Steal(last, thief))
	assert.Same(t, last, v.Find(101, 0), "a single stack is not removed either")
	assert.Nil(t, thief.Find(100, 0))
}

func TestSingleTargetTracking(t *testing.T) {
	host := newFakeHost()
	caster := host.spawn(casterA)
	v1 := host.spawn(victim)
	v2 := host.spawn(victim + 1)

	tpl := auraTemplate(100, data.AuraDummy, 1)
	tpl.Attributes = data.AttrSingleTarget

	require.True(t, v1.AddEffect(NewHolder(tpl, casterA, victim, nil)))
	assert.Same(t, v1.Find(100, 0), caster.Tracked(100))

	require.True(t, v2.AddEffect(NewHolder(tpl, casterA, victim+1, nil)))
	assert.Zero(t, v1.Len(), "previous target loses the effect")
	assert.Same(t, v2.Find(100, 0), caster.Tracked(100))

	caster.RemoveTrackedCasts()
	assert.Zero(t, v2.Len())
}

func TestSchoolImmunity_RemovesHarmfulEffects(t *testing.T) {
	host := newFakeHost()
	host.spawn(casterA)
	v := host.spawn(victim)

	v.AddEffect(NewHolder(dotTemplate(100, 5), casterA, victim, nil))
	v.AddEffect(NewHolder(dotTemplate(101, 5), casterA, victim, nil))

	shield := auraTemplate(200, data.AuraSchoolImmunity, 0)
	shield.Attributes = data.AttrPositive
	shield.Effects[0].MiscValue = int32(model.MaskAll)
	require.True(t, v.AddEffect(NewHolder(shield, victim, victim, nil)))

	assert.Equal(t, 1, v.Len(), "both shadow effects removed from inside the apply hook")
	assert.True(t, v.Owner().Immunities().SchoolImmune(model.MaskShadow))

	v.RemoveEffect(v.Find(200, 0), RemoveDefault)
	assert.False(t, v.Owner().Immunities().SchoolImmune(model.MaskShadow))
}

func TestMechanicImmunity_RefusesNewEffects(t *testing.T) {
	host := newFakeHost()
	host.spawn(casterA)
	v := host.spawn(victim)

	imm := auraTemplate(200, data.AuraMechanicImmunity, 0)
	imm.Attributes = data.AttrPositive
	imm.Effects[0].MiscValue = int32(model.MechanicStun)
	require.True(t, v.AddEffect(NewHolder(imm, victim, victim, nil)))

	stun := auraTemplate(300, data.AuraModStun, 0)
	stun.Mechanic = model.MechanicStun
	assert.False(t, v.AddEffect(NewHolder(stun, casterA, victim, nil)))
}

func TestStun_SetsAndClearsState(t *testing.T) {
	host := newFakeHost()
	host.spawn(casterA)
	v := host.spawn(victim)

	stun := auraTemplate(300, data.AuraModStun, 0)
	require.True(t, v.AddEffect(NewHolder(stun, casterA, victim, nil)))
	assert.True(t, v.Owner().HasState(model.StateStunned))
	assert.Equal(t, []model.ObjectID{victim}, host.controlLost)

	v.RemoveEffect(v.Find(300, 0), RemoveDefault)
	assert.False(t, v.Owner().HasState(model.StateStunned))
}

func TestForcedRemoval_RunsOnlyAlwaysHooks(t *testing.T) {
	host := newFakeHost()
	host.spawn(casterA)
	v := host.spawn(victim)

	v.AddEffect(NewHolder(auraTemplate(300, data.AuraModStun, 0), casterA, victim, nil))
	v.AddEffect(NewHolder(auraTemplate(301, data.AuraModPossess, 0), casterA, victim, nil))
	require.True(t, v.Owner().HasState(model.StatePossessed))

	v.RemoveAll(RemoveForced)
	assert.False(t, v.Owner().HasState(model.StatePossessed), "possession hook always runs")
	assert.True(t, v.Owner().HasState(model.StateStunned), "regular hooks are skipped")
}

func TestRemoveAllOnDeath(t *testing.T) {
	host := newFakeHost()
	host.spawn(casterA)
	v := host.spawn(victim)

	keep := auraTemplate(100, data.AuraDummy, 1)
	keep.Attributes = data.AttrDeathPersistent
	passive := auraTemplate(101, data.AuraDummy, 1)
	passive.Attributes = data.AttrPassive
	v.AddEffect(NewHolder(keep, casterA, victim, nil))
	v.AddEffect(NewHolder(passive, victim, victim, nil))
	v.AddEffect(NewHolder(auraTemplate(102, data.AuraDummy, 1), casterA, victim, nil))

	assert.Equal(t, 1, v.RemoveAllOnDeath())
	assert.Equal(t, 2, v.Len())
}

func TestConsumeProcCharge(t *testing.T) {
	host := newFakeHost()
	host.spawn(casterA)
	v := host.spawn(victim)

	tpl := auraTemplate(100, data.AuraReflectSpells, 100)
	tpl.ProcCharges = 2
	v.AddEffect(NewHolder(tpl, victim, victim, nil))

	assert.True(t, v.ConsumeProcCharge(data.AuraReflectSpells))
	assert.Equal(t, 1, v.Len())
	assert.True(t, v.ConsumeProcCharge(data.AuraReflectSpells))
	assert.Zero(t, v.Len(), "last charge removes the holder")
	assert.False(t, v.ConsumeProcCharge(data.AuraReflectSpells))
}

func TestDestroy(t *testing.T) {
	host := newFakeHost()
	caster := host.spawn(casterA)
	v := host.spawn(victim)

	st := auraTemplate(100, data.AuraDummy, 1)
	st.Attributes = data.AttrSingleTarget
	v.AddEffect(NewHolder(st, casterA, victim, nil))
	caster.AddEffect(NewHolder(auraTemplate(101, data.AuraDummy, 1), casterA, casterA, nil))

	assert.NotPanics(t, caster.Destroy)
	assert.Zero(t, caster.Len())
	assert.Zero(t, v.Len(), "tracked casts on other units are cleaned up")
	assert.False(t, caster.AddEffect(NewHolder(auraTemplate(102, data.AuraDummy, 1), casterA, casterA, nil)))
}

func TestDestroy_PanicsOnLeftovers(t *testing.T) {
	host := newFakeHost()
	caster := host.spawn(casterA)
	v := host.spawn(victim)

	saved := handlers[data.AuraDummy]
	defer func() { handlers[data.AuraDummy] = saved }()

	// A buggy hook that re-applies an effect to the departing caster while
	// its tracked casts are being cleaned up.
	registerHandler(data.AuraDummy, &handler{
		remove: func(r *Registry, e *SubEffect) {
			if r.Owner().ID() != victim {
				return
			}
			leak := auraTemplate(500, data.AuraModRoot, 0)
			caster.AddEffect(NewHolder(leak, casterA, casterA, nil))
		},
	})

	st := auraTemplate(100, data.AuraDummy, 1)
	st.Attributes = data.AttrSingleTarget
	require.True(t, v.AddEffect(NewHolder(st, casterA, victim, nil)))

	assert.Panics(t, caster.Destroy)
}
