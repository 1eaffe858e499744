package combat

import (
	"log/slog"
	"slices"

	"github.com/udisondev/combatcore/internal/model"
)

// DefaultCombatTimeMs is how long a unit keeps its combat stance after its
// last hostile action.
const DefaultCombatTimeMs = 15000

// AttackStanceManager tracks which units are in combat. A unit enters combat
// when it attacks or is attacked and leaves after CombatTime of inactivity.
//
// Driven by the shard tick; not safe for concurrent use.
type AttackStanceManager struct {
	combatTime int32
	remaining  map[model.ObjectID]int32
	onExpire   func(id model.ObjectID)
}

// NewAttackStanceManager creates a manager. onExpire runs for every unit whose
// stance lapses, in ascending id order.
func NewAttackStanceManager(combatTimeMs int32, onExpire func(model.ObjectID)) *AttackStanceManager {
	if combatTimeMs <= 0 {
		combatTimeMs = DefaultCombatTimeMs
	}
	return &AttackStanceManager{
		combatTime: combatTimeMs,
		remaining:  make(map[model.ObjectID]int32),
		onExpire:   onExpire,
	}
}

// AddAttackStance puts id in combat or extends its stance.
func (m *AttackStanceManager) AddAttackStance(id model.ObjectID) {
	m.remaining[id] = m.combatTime
}

// RemoveAttackStance drops id without running the expiry callback.
func (m *AttackStanceManager) RemoveAttackStance(id model.ObjectID) {
	delete(m.remaining, id)
}

// HasAttackStance reports whether id is in combat.
func (m *AttackStanceManager) HasAttackStance(id model.ObjectID) bool {
	_, ok := m.remaining[id]
	return ok
}

// Len returns the number of units in combat.
func (m *AttackStanceManager) Len() int { return len(m.remaining) }

// Update counts every stance down by deltaMs and expires the lapsed ones.
func (m *AttackStanceManager) Update(deltaMs int32) {
	var expired []model.ObjectID
	for id, left := range m.remaining {
		left -= deltaMs
		if left > 0 {
			m.remaining[id] = left
			continue
		}
		expired = append(expired, id)
	}
	if len(expired) == 0 {
		return
	}
	slices.Sort(expired)
	for _, id := range expired {
		delete(m.remaining, id)
		slog.Debug("combat stance expired", "unit", id)
		if m.onExpire != nil {
			m.onExpire(id)
		}
	}
}
