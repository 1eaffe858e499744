package model

import "math"

// Location представляет координаты в игровом мире.
// Value type, передаётся по значению (immutable).
type Location struct {
	X       int32
	Y       int32
	Z       int32
	Heading uint16 // 0-65535, 0 = facing +X
}

// NewLocation создаёт Location с указанными координатами.
func NewLocation(x, y, z int32, heading uint16) Location {
	return Location{X: x, Y: y, Z: z, Heading: heading}
}

// WithHeading возвращает новый Location с обновлённым направлением (immutable pattern).
func (l Location) WithHeading(heading uint16) Location {
	l.Heading = heading
	return l
}

// DistanceSquared возвращает квадрат расстояния до другой точки (без sqrt для производительности).
func (l Location) DistanceSquared(other Location) int64 {
	dx := int64(l.X - other.X)
	dy := int64(l.Y - other.Y)
	dz := int64(l.Z - other.Z)
	return dx*dx + dy*dy + dz*dz
}

// Position is where an attacker stands relative to the victim's facing.
type Position uint8

const (
	PositionFront Position = iota
	PositionSide
	PositionBack
)

// RelativePosition classifies attacker 'from' against victim 'to' using the
// victim's heading.
//
//  1. Heading from attacker toward victim: atan2(dy, dx) mapped to uint16.
//  2. Difference against the victim's heading.
//  3. SIDE: [0x2000, 0x6000] or [0xA000, 0xE000]; FRONT: rest of [0x2000, 0xE000];
//     BACK: everything else.
func RelativePosition(from, to Location) Position {
	dx := float64(to.X - from.X)
	dy := float64(to.Y - from.Y)
	headingTo := int(math.Floor(math.Atan2(dy, dx) * 65535.0 / (2.0 * math.Pi)))

	heading := int(to.Heading) - headingTo
	if heading < 0 {
		heading = -heading
	}
	heading &= 0xFFFF

	if (heading >= 0x2000 && heading <= 0x6000) || (heading >= 0xA000 && heading <= 0xE000) {
		return PositionSide
	}
	if heading >= 0x2000 && heading <= 0xE000 {
		return PositionFront
	}
	return PositionBack
}
