package world

// lineIterator walks the cells of a 2D Bresenham line from start to end,
// both included.
type lineIterator struct {
	curX, curY   int32
	endX, endY   int32
	dx, dy       int32
	stepX, stepY int32
	err          int32
	xDominant    bool
	started      bool
}

func newLineIterator(sx, sy, ex, ey int32) *lineIterator {
	it := &lineIterator{
		curX: sx, curY: sy,
		endX: ex, endY: ey,
		dx: abs32(ex - sx), dy: abs32(ey - sy),
		stepX: 1, stepY: 1,
	}
	if ex < sx {
		it.stepX = -1
	}
	if ey < sy {
		it.stepY = -1
	}
	it.xDominant = it.dx >= it.dy
	if it.xDominant {
		it.err = it.dx / 2
	} else {
		it.err = it.dy / 2
	}
	return it
}

// Next advances to the next cell. Returns false past the end.
func (it *lineIterator) Next() bool {
	if !it.started {
		it.started = true
		return true
	}
	if it.curX == it.endX && it.curY == it.endY {
		return false
	}
	if it.xDominant {
		it.curX += it.stepX
		it.err += it.dy
		if it.err >= it.dx {
			it.curY += it.stepY
			it.err -= it.dx
		}
	} else {
		it.curY += it.stepY
		it.err += it.dx
		if it.err >= it.dy {
			it.curX += it.stepX
			it.err -= it.dy
		}
	}
	return true
}

func (it *lineIterator) cell() cell { return cell{it.curX, it.curY} }

func abs32(x int32) int32 {
	if x < 0 {
		return -x
	}
	return x
}
