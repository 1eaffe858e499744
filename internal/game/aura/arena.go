package aura

// Handle is a weak reference to a holder. It resolves only while the holder
// it was issued for is still allocated; reclaimed slots bump the generation.
type Handle struct {
	idx uint32
	gen uint32
}

// IsZero reports whether the handle was never issued.
func (h Handle) IsZero() bool { return h.gen == 0 }

// Key packs the handle into an immunity source key.
func (h Handle) Key() uint64 { return uint64(h.idx)<<32 | uint64(h.gen) }

type slot struct {
	holder *Holder
	gen    uint32
}

// Arena owns every holder of one shard. Holders that are removed while in
// use stay allocated until Drain runs at the end of the tick.
type Arena struct {
	slots    []slot
	free     []uint32
	deferred []*Holder
	live     int
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{slots: make([]slot, 0, 64)}
}

func (a *Arena) alloc(h *Holder) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, slot{})
	}
	s := &a.slots[idx]
	s.gen++
	s.holder = h
	a.live++
	h.handle = Handle{idx: idx, gen: s.gen}
	return h.handle
}

// Resolve returns the holder behind the handle, or nil when it was reclaimed
// or has already been removed from its target.
func (a *Arena) Resolve(hd Handle) *Holder {
	if hd.IsZero() || int(hd.idx) >= len(a.slots) {
		return nil
	}
	s := a.slots[hd.idx]
	if s.gen != hd.gen || s.holder == nil || s.holder.removed {
		return nil
	}
	return s.holder
}

// release reclaims a removed holder now, or defers it while it is in use.
func (a *Arena) release(h *Holder) {
	if h.handle.IsZero() {
		return
	}
	if h.inUse > 0 {
		a.deferred = append(a.deferred, h)
		return
	}
	a.reclaim(h)
}

func (a *Arena) reclaim(h *Holder) {
	s := &a.slots[h.handle.idx]
	if s.gen != h.handle.gen || s.holder != h {
		return
	}
	s.holder = nil
	s.gen++
	a.free = append(a.free, h.handle.idx)
	a.live--
	h.reclaimed = true
}

// Drain reclaims deferred holders whose in-use count dropped to zero.
// Called once per tick after every nested call has returned.
func (a *Arena) Drain() int {
	n := 0
	keep := a.deferred[:0]
	for _, h := range a.deferred {
		if h.inUse > 0 {
			keep = append(keep, h)
			continue
		}
		a.reclaim(h)
		n++
	}
	clear(a.deferred[len(keep):])
	a.deferred = keep
	return n
}

// Live returns the number of allocated holders, deferred ones included.
func (a *Arena) Live() int { return a.live }

// Pending returns the number of holders waiting for Drain.
func (a *Arena) Pending() int { return len(a.deferred) }
