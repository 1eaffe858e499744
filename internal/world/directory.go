// Package world places the units of a shard. It answers the engine's spatial
// questions from a region-bucketed directory and a set of blocked cells.
package world

import (
	"errors"
	"fmt"
	"slices"

	"github.com/udisondev/combatcore/internal/model"
)

var ErrUnknownObject = errors.New("unknown object")

// Directory is the position index of one shard.
//
// Not safe for concurrent use: it runs on the shard goroutine.
type Directory struct {
	positions map[model.ObjectID]model.Location
	regions   map[regionKey]map[model.ObjectID]struct{}
	blocked   map[cell]struct{}
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		positions: make(map[model.ObjectID]model.Location),
		regions:   make(map[regionKey]map[model.ObjectID]struct{}),
		blocked:   make(map[cell]struct{}),
	}
}

// Add places id at loc, moving it when already present.
func (d *Directory) Add(id model.ObjectID, loc model.Location) {
	if old, ok := d.positions[id]; ok {
		d.leave(id, regionOf(old))
	}
	d.positions[id] = loc
	key := regionOf(loc)
	r := d.regions[key]
	if r == nil {
		r = make(map[model.ObjectID]struct{})
		d.regions[key] = r
	}
	r[id] = struct{}{}
}

// Move updates the position of a placed object.
func (d *Directory) Move(id model.ObjectID, loc model.Location) error {
	if _, ok := d.positions[id]; !ok {
		return fmt.Errorf("moving object %d: %w", id, ErrUnknownObject)
	}
	d.Add(id, loc)
	return nil
}

// Remove forgets id.
func (d *Directory) Remove(id model.ObjectID) {
	loc, ok := d.positions[id]
	if !ok {
		return
	}
	delete(d.positions, id)
	d.leave(id, regionOf(loc))
}

func (d *Directory) leave(id model.ObjectID, key regionKey) {
	r := d.regions[key]
	delete(r, id)
	if len(r) == 0 {
		delete(d.regions, key)
	}
}

// Location returns where id stands.
func (d *Directory) Location(id model.ObjectID) (model.Location, bool) {
	loc, ok := d.positions[id]
	return loc, ok
}

// Len returns the number of placed objects.
func (d *Directory) Len() int { return len(d.positions) }

// Nearby returns the objects within radius of center, excluding center,
// in id order.
func (d *Directory) Nearby(center model.ObjectID, radius float64) []model.ObjectID {
	c, ok := d.positions[center]
	if !ok || radius < 0 {
		return nil
	}
	r := int32(radius)
	lo := regionOf(model.Location{X: c.X - r, Y: c.Y - r})
	hi := regionOf(model.Location{X: c.X + r, Y: c.Y + r})
	limit := int64(radius * radius)

	var out []model.ObjectID
	for rx := lo.rx; rx <= hi.rx; rx++ {
		for ry := lo.ry; ry <= hi.ry; ry++ {
			for id := range d.regions[regionKey{rx, ry}] {
				if id != center && c.DistanceSquared(d.positions[id]) <= limit {
					out = append(out, id)
				}
			}
		}
	}
	slices.Sort(out)
	return out
}

// Block marks the cell containing (x, y) as opaque.
func (d *Directory) Block(x, y int32) {
	d.blocked[cellOf(x, y)] = struct{}{}
}

// InLineOfSight reports whether no blocked cell lies between a and b.
// Unknown objects are never in sight.
func (d *Directory) InLineOfSight(a, b model.ObjectID) bool {
	la, okA := d.positions[a]
	lb, okB := d.positions[b]
	if !okA || !okB {
		return false
	}
	if len(d.blocked) == 0 {
		return true
	}
	from, to := cellOf(la.X, la.Y), cellOf(lb.X, lb.Y)
	it := newLineIterator(from.cx, from.cy, to.cx, to.cy)
	for it.Next() {
		if _, ok := d.blocked[it.cell()]; ok {
			return false
		}
	}
	return true
}
