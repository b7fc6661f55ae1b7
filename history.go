package inkstore

// DefaultHistoryDepth is the maximum number of history snapshots kept per
// document before the oldest are evicted.
const DefaultHistoryDepth = 100

// histSnapshot is one recorded document state: the persistent component map
// roots plus the document metadata. Because the maps are persistent,
// a snapshot costs a handful of pointers; buckets untouched since the
// previous snapshot are shared with it.
type histSnapshot struct {
	comps components
	doc   DocumentMeta
}

// history is the undo/redo stack: a bounded deque of snapshots with a live
// index pointing at the current state. Undo moves the index back, redo
// forward; recording a new state truncates everything past the index.
//
// history always holds at least one entry (the initial state), so the
// current state can always be addressed.
type history struct {
	entries []histSnapshot
	live    int
	depth   int
}

func newHistory(initial histSnapshot, depth int) *history {
	if depth < 2 {
		depth = 2
	}
	return &history{entries: []histSnapshot{initial}, depth: depth}
}

// record pushes state as the new live snapshot, discarding any redo future
// and evicting the oldest entries past the depth limit. It reports whether
// anything was recorded; a state sharing all storage with the live snapshot
// is skipped.
func (hi *history) record(state histSnapshot) bool {
	cur := hi.entries[hi.live]
	if state.comps.sharesStorageWith(cur.comps) && state.doc == cur.doc {
		return false
	}
	// As soon as a new state is recorded, the future is gone.
	hi.entries = append(hi.entries[:hi.live+1], state)
	hi.live++

	for len(hi.entries) > hi.depth {
		// Evicted snapshots release whatever buckets they held the last
		// reference to.
		copy(hi.entries, hi.entries[1:])
		hi.entries = hi.entries[:len(hi.entries)-1]
		hi.live--
	}
	return true
}

func (hi *history) canUndo() bool { return hi.live > 0 }
func (hi *history) canRedo() bool { return hi.live < len(hi.entries)-1 }

// peekUndo returns the snapshot undo would restore, without moving.
func (hi *history) peekUndo() (histSnapshot, bool) {
	if !hi.canUndo() {
		return histSnapshot{}, false
	}
	return hi.entries[hi.live-1], true
}

// peekRedo returns the snapshot redo would restore, without moving.
func (hi *history) peekRedo() (histSnapshot, bool) {
	if !hi.canRedo() {
		return histSnapshot{}, false
	}
	return hi.entries[hi.live+1], true
}

// committedUndo moves the live index back after a successful restore.
func (hi *history) committedUndo() { hi.live-- }

// committedRedo moves the live index forward after a successful restore.
func (hi *history) committedRedo() { hi.live++ }

// reset drops everything and starts over from initial. Used when importing
// a document snapshot: the imported state is the new floor.
func (hi *history) reset(initial histSnapshot) {
	hi.entries = hi.entries[:0]
	hi.entries = append(hi.entries, initial)
	hi.live = 0
}

// len returns the number of stored snapshots.
func (hi *history) len() int { return len(hi.entries) }
