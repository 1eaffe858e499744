package world

import (
	"sync/atomic"

	"github.com/udisondev/combatcore/internal/model"
)

// ObjectIDGenerator hands out unit ids unique across all shards.
//
// ID ranges (convention):
//
//	0x00000000 - 0x0FFFFFFF: Reserved (0 = no unit)
//	0x10000000 - 0x1FFFFFFF: Players
//	0x20000000 - 0x2FFFFFFF: Creatures, pets and summons
type ObjectIDGenerator struct {
	nextPlayerID   atomic.Uint32
	nextCreatureID atomic.Uint32
}

// NewObjectIDGenerator creates a new ID generator.
func NewObjectIDGenerator() *ObjectIDGenerator {
	gen := &ObjectIDGenerator{}
	gen.nextPlayerID.Store(0x10000000)
	gen.nextCreatureID.Store(0x20000000)
	return gen
}

// Next returns the next id for a unit of kind. Safe for concurrent use.
func (g *ObjectIDGenerator) Next(kind model.UnitKind) model.ObjectID {
	if kind == model.KindPlayer {
		return model.ObjectID(g.nextPlayerID.Add(1))
	}
	return model.ObjectID(g.nextCreatureID.Add(1))
}
