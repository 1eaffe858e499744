package combat

import (
	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/model"
)

// Scheduler answers spatial questions for the shard.
type Scheduler interface {
	Nearby(center model.ObjectID, radius float64) []model.ObjectID
	InLineOfSight(a, b model.ObjectID) bool
}

// AIHooks are invoked on the unit's AI at fixed points of resolution.
type AIHooks interface {
	EnterCombat(self, enemy model.ObjectID)
	AttackedBy(self, attacker model.ObjectID)
	DamageDeal(self, victim model.ObjectID, amount int32)
	DamageTaken(self, attacker model.ObjectID, amount int32)
	KilledUnit(self, victim model.ObjectID)
	JustDied(self, killer model.ObjectID)
	// OwnerKilledUnit runs on every pet whose owner just killed victim.
	OwnerKilledUnit(pet, victim model.ObjectID)
	HealedBy(self, healer model.ObjectID, amount int32)
}

// Engagement is the threat and combat-flag bookkeeping. The core notifies;
// it does not own threat ordering.
type Engagement interface {
	AddThreat(victim, attacker model.ObjectID, amount float64, crit bool, schools model.SchoolMask, tpl *data.Template)
	SetInCombatWith(a, b model.ObjectID)
	ClearInCombat(id model.ObjectID)
}

// Rewarder is told about kill, damage and heal milestones.
type Rewarder interface {
	KillReward(victim *model.Combatant, recipients []model.ObjectID)
	DamageDone(attacker, victim model.ObjectID, amount int32)
	HealDone(healer, target model.ObjectID, amount int32)
}

// Instance receives kill credit for encounter bookkeeping.
type Instance interface {
	UnitKilled(killer model.ObjectID, victim *model.Combatant)
}

// Summons is told when a pet or summon dies.
type Summons interface {
	SummonDied(owner, summon model.ObjectID)
}

// GroupResolver returns the members sharing loot with a unit, nil when solo.
type GroupResolver interface {
	Group(id model.ObjectID) []model.ObjectID
}

// Client receives notices for the player behind a unit.
type Client interface {
	AutoRepeatCancelled(unit model.ObjectID, tpl data.TemplateID)
}

// Collaborators bundles the external hooks. Nil fields get no-op defaults.
type Collaborators struct {
	Scheduler  Scheduler
	AI         AIHooks
	Engagement Engagement
	Rewarder   Rewarder
	Instance   Instance
	Summons    Summons
	Groups     GroupResolver
	Client     Client
	Log        CombatLog
}

func (c Collaborators) withDefaults() Collaborators {
	if c.Scheduler == nil {
		c.Scheduler = nopScheduler{}
	}
	if c.AI == nil {
		c.AI = NopAI{}
	}
	if c.Engagement == nil {
		c.Engagement = nopEngagement{}
	}
	if c.Rewarder == nil {
		c.Rewarder = nopRewarder{}
	}
	if c.Instance == nil {
		c.Instance = nopInstance{}
	}
	if c.Summons == nil {
		c.Summons = nopSummons{}
	}
	if c.Groups == nil {
		c.Groups = nopGroups{}
	}
	if c.Client == nil {
		c.Client = nopClient{}
	}
	if c.Log == nil {
		c.Log = nopLog{}
	}
	return c
}

type nopScheduler struct{}

func (nopScheduler) Nearby(model.ObjectID, float64) []model.ObjectID   { return nil }
func (nopScheduler) InLineOfSight(model.ObjectID, model.ObjectID) bool { return true }

// NopAI ignores every hook. Embed it to implement a subset.
type NopAI struct{}

func (NopAI) EnterCombat(model.ObjectID, model.ObjectID)        {}
func (NopAI) AttackedBy(model.ObjectID, model.ObjectID)         {}
func (NopAI) DamageDeal(model.ObjectID, model.ObjectID, int32)  {}
func (NopAI) DamageTaken(model.ObjectID, model.ObjectID, int32) {}
func (NopAI) KilledUnit(model.ObjectID, model.ObjectID)         {}
func (NopAI) JustDied(model.ObjectID, model.ObjectID)           {}
func (NopAI) OwnerKilledUnit(model.ObjectID, model.ObjectID)    {}
func (NopAI) HealedBy(model.ObjectID, model.ObjectID, int32)    {}

type nopEngagement struct{}

func (nopEngagement) AddThreat(model.ObjectID, model.ObjectID, float64, bool, model.SchoolMask, *data.Template) {
}
func (nopEngagement) SetInCombatWith(model.ObjectID, model.ObjectID) {}
func (nopEngagement) ClearInCombat(model.ObjectID)                   {}

type nopRewarder struct{}

func (nopRewarder) KillReward(*model.Combatant, []model.ObjectID)    {}
func (nopRewarder) DamageDone(model.ObjectID, model.ObjectID, int32) {}
func (nopRewarder) HealDone(model.ObjectID, model.ObjectID, int32)   {}

type nopInstance struct{}

func (nopInstance) UnitKilled(model.ObjectID, *model.Combatant) {}

type nopSummons struct{}

func (nopSummons) SummonDied(model.ObjectID, model.ObjectID) {}

type nopGroups struct{}

func (nopGroups) Group(model.ObjectID) []model.ObjectID { return nil }

type nopClient struct{}

func (nopClient) AutoRepeatCancelled(model.ObjectID, data.TemplateID) {}

type nopLog struct{}

func (nopLog) Record(Entry) {}
