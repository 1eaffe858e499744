package world

import "github.com/udisondev/combatcore/internal/model"

const (
	// RegionShift buckets positions into 2^RegionShift wide regions for
	// nearby queries.
	RegionShift = 8
	// CellShift sizes the line of sight cells, 2^CellShift units wide.
	CellShift = 4
)

type regionKey struct{ rx, ry int32 }

type cell struct{ cx, cy int32 }

func regionOf(l model.Location) regionKey {
	return regionKey{l.X >> RegionShift, l.Y >> RegionShift}
}

func cellOf(x, y int32) cell {
	return cell{x >> CellShift, y >> CellShift}
}
