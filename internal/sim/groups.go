package sim

import "github.com/udisondev/combatcore/internal/model"

// Groups maps each grouped unit to the members it shares loot with.
type Groups map[model.ObjectID][]model.ObjectID

// Join adds id to the group holding leader, or starts one.
func (g Groups) Join(leader, id model.ObjectID) {
	members := g[leader]
	if len(members) == 0 {
		members = []model.ObjectID{leader}
	}
	if leader != id {
		members = append(members, id)
	}
	for _, m := range members {
		g[m] = members
	}
}

// Group implements combat.GroupResolver.
func (g Groups) Group(id model.ObjectID) []model.ObjectID { return g[id] }
