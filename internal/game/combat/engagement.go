package combat

import (
	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/model"
)

// ThreatTracker is the default Engagement collaborator: one hate list per
// victim. Damage adds hate one to one; crits add no extra.
type ThreatTracker struct {
	lists map[model.ObjectID]*model.AggroList
}

// NewThreatTracker creates an empty tracker.
func NewThreatTracker() *ThreatTracker {
	return &ThreatTracker{lists: make(map[model.ObjectID]*model.AggroList)}
}

// AddThreat implements Engagement.
func (t *ThreatTracker) AddThreat(victim, attacker model.ObjectID, amount float64, _ bool, _ model.SchoolMask, _ *data.Template) {
	l := t.list(victim)
	l.AddHate(attacker, amount)
	l.AddDamage(attacker, int64(amount))
}

// SetInCombatWith implements Engagement. Both sides register on each
// other's list even before any damage lands.
func (t *ThreatTracker) SetInCombatWith(a, b model.ObjectID) {
	t.list(a).AddHate(b, 0)
	t.list(b).AddHate(a, 0)
}

// ClearInCombat implements Engagement.
func (t *ThreatTracker) ClearInCombat(id model.ObjectID) {
	delete(t.lists, id)
	for victim, l := range t.lists {
		l.Remove(id)
		if l.IsEmpty() {
			delete(t.lists, victim)
		}
	}
}

// MostHated returns the top of victim's list, 0 when it has none.
func (t *ThreatTracker) MostHated(victim model.ObjectID) model.ObjectID {
	if l := t.lists[victim]; l != nil {
		return l.MostHated()
	}
	return 0
}

// List returns victim's hate list, nil when it has none.
func (t *ThreatTracker) List(victim model.ObjectID) *model.AggroList { return t.lists[victim] }

func (t *ThreatTracker) list(victim model.ObjectID) *model.AggroList {
	l, ok := t.lists[victim]
	if !ok {
		l = model.NewAggroList()
		t.lists[victim] = l
	}
	return l
}
