package inkstore

// Handle is a stable generational reference to a stroke: a slot index paired
// with the generation the slot had when the stroke was inserted. A handle is
// valid if and only if the slot's current generation equals the handle's.
// Raw slot indices are never exposed; handles are the only way to reference
// a stroke across mutation, undo and redo.
//
// The zero Handle is never issued and is always invalid.
type Handle struct {
	index uint32
	gen   uint32
}

// IsZero reports whether h is the zero (never-issued) handle.
func (h Handle) IsZero() bool { return h.gen == 0 }

// arenaSlot tracks one storage slot.
//
// gen is the slot's current generation; a handle carrying a different
// generation is stale. peak is a high-water mark of every generation the
// slot has ever reached. It is never lowered — not even when a history
// restore revives a slot at an older generation — so a freed slot is always
// reissued above peak and no (index, generation) pair is ever allocated
// twice, including pairs from redo timelines discarded after an undo.
type arenaSlot struct {
	gen  uint32
	peak uint32
	live bool
}

// Arena is a generational slot allocator. It hands out Handles, reuses freed
// slots LIFO, and detects stale handles in O(1).
//
// Arena is not safe for concurrent use; the owning Store serializes access.
type Arena struct {
	slots []arenaSlot
	free  []uint32
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Allocate returns a handle for a fresh slot, reusing a freed slot if one is
// available and growing the arena otherwise.
func (a *Arena) Allocate() Handle {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.live = true
		return Handle{index: idx, gen: s.gen}
	}
	idx := uint32(len(a.slots))
	// Generations start at 1 so the zero Handle stays invalid forever.
	a.slots = append(a.slots, arenaSlot{gen: 1, peak: 1, live: true})
	return Handle{index: idx, gen: 1}
}

// Free releases the slot referenced by h. It fails with ErrInvalidHandle if
// the handle is stale or already freed. On success the slot's generation is
// bumped past its high-water mark and the slot joins the free list.
func (a *Arena) Free(h Handle) error {
	if !a.IsValid(h) {
		return ErrInvalidHandle
	}
	s := &a.slots[h.index]
	s.live = false
	s.gen = s.peak + 1
	s.peak = s.gen
	a.free = append(a.free, h.index)
	return nil
}

// IsValid reports whether h references a live slot at its current generation.
func (a *Arena) IsValid(h Handle) bool {
	if h.IsZero() || int(h.index) >= len(a.slots) {
		return false
	}
	s := a.slots[h.index]
	return s.live && s.gen == h.gen
}

// Len returns the number of live slots.
func (a *Arena) Len() int {
	return len(a.slots) - len(a.free)
}

// Cap returns the total number of slots ever allocated.
func (a *Arena) Cap() int {
	return len(a.slots)
}

// adopt revives the slot referenced by h at h's recorded generation. Used by
// history restoration: a snapshot may reference handles whose slots have
// since been freed; adopting rolls the visible generation back to the
// snapshot's while peak keeps future reuse unique.
//
// adopt grows the arena as needed so snapshots can also be adopted into a
// fresh arena (document import).
func (a *Arena) adopt(h Handle) {
	if h.IsZero() {
		return
	}
	for int(h.index) >= len(a.slots) {
		a.slots = append(a.slots, arenaSlot{})
	}
	s := &a.slots[h.index]
	s.gen = h.gen
	if s.peak < h.gen {
		s.peak = h.gen
	}
	s.live = true
}

// beginAdopt marks every slot dead ahead of a batch of adopt calls, then
// endAdopt rebuilds the free list from the slots that stayed dead. Together
// they resynchronize the arena with a restored snapshot's handle set.
func (a *Arena) beginAdopt() {
	for i := range a.slots {
		a.slots[i].live = false
	}
	a.free = a.free[:0]
}

func (a *Arena) endAdopt() {
	for i := range a.slots {
		if !a.slots[i].live {
			// Reissue dead slots above everything they ever reached.
			if a.slots[i].gen <= a.slots[i].peak {
				a.slots[i].gen = a.slots[i].peak + 1
				a.slots[i].peak = a.slots[i].gen
			}
			a.free = append(a.free, uint32(i))
		}
	}
}
