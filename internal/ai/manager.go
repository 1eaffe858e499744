package ai

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/udisondev/combatcore/internal/game/combat"
	"github.com/udisondev/combatcore/internal/model"
)

var (
	_ combat.AIHooks = (*TickManager)(nil)
	_ combat.Summons = (*TickManager)(nil)
)

// TickManager owns the controllers of one shard. It is the engine's AI and
// summon collaborator and forwards each hook to the controller of the unit
// concerned.
//
// Not safe for concurrent use: it runs on the shard goroutine.
type TickManager struct {
	combat.NopAI

	controllers map[model.ObjectID]Controller
	order       []model.ObjectID // sorted
}

// NewTickManager creates an empty manager.
func NewTickManager() *TickManager {
	return &TickManager{controllers: make(map[model.ObjectID]Controller)}
}

// Register starts controller and attaches it to unit id, replacing any
// previous controller.
func (m *TickManager) Register(id model.ObjectID, controller Controller) {
	if old, ok := m.controllers[id]; ok {
		old.Stop()
	} else {
		i, _ := slices.BinarySearch(m.order, id)
		m.order = slices.Insert(m.order, i, id)
	}
	m.controllers[id] = controller
	controller.Start()

	slog.Debug("AI controller registered",
		"unit", id,
		"intention", controller.CurrentIntention())
}

// Unregister stops and detaches the controller of id.
func (m *TickManager) Unregister(id model.ObjectID) {
	c, ok := m.controllers[id]
	if !ok {
		return
	}
	delete(m.controllers, id)
	if i, found := slices.BinarySearch(m.order, id); found {
		m.order = slices.Delete(m.order, i, i+1)
	}
	c.Stop()

	slog.Debug("AI controller unregistered", "unit", id)
}

// Tick advances every controller in unit id order.
func (m *TickManager) Tick(deltaMs int32) {
	for _, id := range slices.Clone(m.order) {
		if c, ok := m.controllers[id]; ok {
			c.Tick(deltaMs)
		}
	}
	if len(m.order) > 0 && IsDebugEnabled() {
		slog.Debug("AI tick completed", "controllers", len(m.order))
	}
}

// Count returns the number of registered controllers.
func (m *TickManager) Count() int { return len(m.controllers) }

// GetController returns the controller of id.
func (m *TickManager) GetController(id model.ObjectID) (Controller, error) {
	c, ok := m.controllers[id]
	if !ok {
		return nil, fmt.Errorf("controller not found for unit %d", id)
	}
	return c, nil
}

// AttackedBy implements combat.AIHooks. Summons of the victim defend it.
func (m *TickManager) AttackedBy(self, attacker model.ObjectID) {
	if c, ok := m.controllers[self]; ok {
		c.NotifyAttacked(attacker)
	}
	for _, id := range m.order {
		if s, ok := m.controllers[id].(*SummonAI); ok && s.Owner() == self {
			s.DefendOwner(attacker)
		}
	}
}

// JustDied implements combat.AIHooks.
func (m *TickManager) JustDied(self, killer model.ObjectID) {
	if c, ok := m.controllers[self]; ok {
		c.NotifyDied(killer)
	}
}

// KilledUnit implements combat.AIHooks.
func (m *TickManager) KilledUnit(self, victim model.ObjectID) {
	if c, ok := m.controllers[self]; ok {
		c.NotifyKilled(victim)
	}
}

// OwnerKilledUnit implements combat.AIHooks.
func (m *TickManager) OwnerKilledUnit(pet, victim model.ObjectID) {
	if c, ok := m.controllers[pet]; ok {
		c.NotifyKilled(victim)
	}
}

// SummonDied implements combat.Summons. A dead summon loses its controller.
func (m *TickManager) SummonDied(owner, summon model.ObjectID) {
	slog.Debug("summon died", "owner", owner, "summon", summon)
	m.Unregister(summon)
}
