// Package ai drives non-player units between engine ticks. Controllers
// react to the combat hooks and act back through the engine's public
// operations.
package ai

import (
	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/model"
)

// Controller is the AI of one unit.
type Controller interface {
	Start()
	Stop()
	SetIntention(intention model.Intention)
	CurrentIntention() model.Intention

	// Tick advances the controller by deltaMs.
	Tick(deltaMs int32)

	// NotifyAttacked runs when attacker hit the unit.
	NotifyAttacked(attacker model.ObjectID)
	// NotifyDied runs when the unit died.
	NotifyDied(killer model.ObjectID)
	// NotifyKilled runs when the unit, or its owner, killed victim.
	NotifyKilled(victim model.ObjectID)
}

// Actions is the part of the combat engine an AI drives.
type Actions interface {
	Attack(attacker, victim model.ObjectID) error
	StopAttack(attacker model.ObjectID)
	CastSpell(caster, target model.ObjectID, id data.TemplateID) error
	IsAlive(id model.ObjectID) bool
}

// HateSource ranks the enemies of a unit.
type HateSource interface {
	MostHated(victim model.ObjectID) model.ObjectID
}
