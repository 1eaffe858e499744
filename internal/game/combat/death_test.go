package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/model"
	"github.com/udisondev/combatcore/internal/rules"
)

func TestKill_HookOrder(t *testing.T) {
	h := newHarness(t, nil)
	h.spawn(t, 1, model.KindPlayer, 60, 1000)
	victim := h.spawn(t, 2, model.KindCreature, 60, 100)
	pet := h.spawn(t, 3, model.KindCreature, 60, 500)
	pet.SetOwnerID(1)
	victim.SetOwnerID(9)

	d := h.DealDamage(1, 2, nil, 500, OutcomeNormal)
	require.True(t, d.Killed)

	assert.Equal(t, []string{
		"died 2 1",
		"summon 9 2",
		"instance 1 2",
		"killed 1 2",
		"owner-killed 3 2",
		"reward 2",
	}, h.rec.only("died", "summon", "instance", "killed", "owner-killed", "reward"))
	assert.Equal(t, model.JustDied, victim.DeathState())
}

func TestKill_LootRecipientsExpandToGroup(t *testing.T) {
	h := newHarness(t, nil)
	h.spawn(t, 1, model.KindPlayer, 60, 1000)
	h.spawn(t, 4, model.KindPlayer, 60, 1000)
	victim := h.spawn(t, 2, model.KindCreature, 60, 100)
	h.rec.groups[1] = []model.ObjectID{1, 4}

	h.DealDamage(1, 2, nil, 500, OutcomeNormal)

	assert.Equal(t, []model.ObjectID{1, 4}, victim.LootRecipients())
	assert.Equal(t, []model.ObjectID{1, 4}, h.rec.reward)
}

func TestKill_RemovesEffectsExceptDeathPersistent(t *testing.T) {
	buff := buffTemplate(60, data.AuraModDamageDone, 5, int32(model.MaskAll))
	keep := buffTemplate(61, data.AuraDummy, 0, 0)
	keep.Attributes |= data.AttrDeathPersistent
	h := newHarness(t, []*data.Template{buff, keep})
	h.spawn(t, 1, model.KindCreature, 60, 1000)
	victim := h.spawn(t, 2, model.KindCreature, 60, 100)
	h.apply(t, 2, 2, 60)
	h.apply(t, 2, 2, 61)

	h.DealDamage(1, 2, nil, 500, OutcomeNormal)

	assert.Nil(t, victim.Auras.Find(60, 0))
	assert.NotNil(t, victim.Auras.Find(61, 0))
	require.Len(t, h.log.Filter(EntryDeath), 1)
}

func TestKill_TeardownStopsAttackers(t *testing.T) {
	h := newHarness(t, nil)
	a := h.spawn(t, 1, model.KindCreature, 60, 1000)
	victim := h.spawn(t, 2, model.KindCreature, 60, 100)
	require.NoError(t, h.Attack(1, 2))
	h.DealDamage(1, 2, nil, 10, OutcomeNormal)
	require.True(t, victim.HasState(model.StateInCombat))
	require.Equal(t, model.ObjectID(1), h.threat.MostHated(2))

	h.DealDamage(1, 2, nil, 500, OutcomeNormal)

	assert.Zero(t, a.Victim())
	assert.False(t, victim.HasState(model.StateInCombat))
	assert.Nil(t, h.threat.List(2))
	assert.False(t, h.Stances().HasAttackStance(2))
}

func TestKill_Revival(t *testing.T) {
	rebirth := buffTemplate(62, data.AuraDummy, 0, 0)
	h := newHarness(t, []*data.Template{rebirth},
		&rules.Rule{Template: 62, Revival: &rules.Revival{HealthPercent: 50}})
	h.spawn(t, 1, model.KindCreature, 60, 1000)
	victim := h.spawn(t, 2, model.KindCreature, 60, 1000)
	h.apply(t, 2, 2, 62)

	d := h.DealDamage(1, 2, nil, 5000, OutcomeNormal)

	assert.True(t, d.Revived)
	assert.False(t, d.Killed)
	assert.True(t, victim.IsAlive())
	assert.Equal(t, int32(500), victim.Health())
	assert.Nil(t, victim.Auras.Find(62, 0), "the revival is consumed")
	assert.Empty(t, h.log.Filter(EntryDeath))
	assert.Equal(t, []string{"died 2 1"}, h.rec.only("died"), "death hooks ran before the revival")

	d = h.DealDamage(1, 2, nil, 5000, OutcomeNormal)
	assert.True(t, d.Killed)
}

func TestKill_SelfDamageHasNoKiller(t *testing.T) {
	h := newHarness(t, nil)
	h.spawn(t, 2, model.KindCreature, 60, 100)

	h.DealDamage(2, 2, nil, 500, OutcomeNormal)

	assert.Equal(t, []string{"died 2 0", "instance 0 2"}, h.rec.only("died", "instance", "killed"))
}
