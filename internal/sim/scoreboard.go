package sim

import (
	"maps"
	"slices"

	"github.com/udisondev/combatcore/internal/model"
)

// Score is what one unit achieved during a run.
type Score struct {
	Damage  int64
	Healing int64
	Kills   int
	Deaths  int
}

// Scoreboard tallies damage, healing and kills. It is the shard's reward
// collaborator.
type Scoreboard struct {
	scores map[model.ObjectID]*Score
}

// NewScoreboard creates an empty scoreboard.
func NewScoreboard() *Scoreboard {
	return &Scoreboard{scores: make(map[model.ObjectID]*Score)}
}

func (b *Scoreboard) score(id model.ObjectID) *Score {
	s := b.scores[id]
	if s == nil {
		s = &Score{}
		b.scores[id] = s
	}
	return s
}

// KillReward credits every recipient with the kill.
func (b *Scoreboard) KillReward(victim *model.Combatant, recipients []model.ObjectID) {
	b.score(victim.ID()).Deaths++
	for _, id := range recipients {
		b.score(id).Kills++
	}
}

// DamageDone adds to the attacker's damage.
func (b *Scoreboard) DamageDone(attacker, _ model.ObjectID, amount int32) {
	b.score(attacker).Damage += int64(amount)
}

// HealDone adds to the healer's healing.
func (b *Scoreboard) HealDone(healer, _ model.ObjectID, amount int32) {
	b.score(healer).Healing += int64(amount)
}

// Get returns the score of id.
func (b *Scoreboard) Get(id model.ObjectID) Score {
	if s := b.scores[id]; s != nil {
		return *s
	}
	return Score{}
}

// Units returns the scored units in id order.
func (b *Scoreboard) Units() []model.ObjectID {
	return slices.Sorted(maps.Keys(b.scores))
}
