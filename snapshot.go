package inkstore

// Persistence boundary. The core never parses document file bytes: an
// external codec serializes DocumentSnapshot values and migrates old
// schemas to the current one before handing them back to ImportSnapshot.

// HandleFrom reconstructs a handle from its raw parts. For codecs only;
// application code should never synthesize handles.
func HandleFrom(index, generation uint32) Handle {
	return Handle{index: index, gen: generation}
}

// Index returns the handle's slot index, for serialization.
func (h Handle) Index() uint32 { return h.index }

// Generation returns the handle's generation, for serialization.
func (h Handle) Generation() uint32 { return h.gen }

// StrokeRecord is one stroke as it appears in a document snapshot.
type StrokeRecord struct {
	Handle  Handle
	Stroke  *Stroke
	Trashed bool
	// Tick is the stroke's chronological z-order tick.
	Tick uint64
}

// DocumentSnapshot is a whole-document state for the persistence boundary.
type DocumentSnapshot struct {
	Meta          DocumentMeta
	Strokes       []StrokeRecord
	ChronoCounter uint64
}

// ExportSnapshot captures the current document state. The returned value
// shares stroke pointers with the store (strokes are immutable), so it is
// cheap and safe to hold while the document keeps changing.
func (st *Store) ExportSnapshot() *DocumentSnapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()

	snap := &DocumentSnapshot{
		Meta:          st.doc,
		ChronoCounter: st.comps.chronoCounter,
		Strokes:       make([]StrokeRecord, 0, st.comps.strokes.Len()),
	}
	itr := st.comps.strokes.Iterator()
	for !itr.Done() {
		h, s, _ := itr.Next()
		tick, _ := st.comps.chrono.Get(h)
		snap.Strokes = append(snap.Strokes, StrokeRecord{
			Handle:  h,
			Stroke:  s,
			Trashed: st.comps.trashed(h),
			Tick:    tick,
		})
	}
	return snap
}

// ImportSnapshot replaces the document with the snapshot's state: tables
// and indexes are rebuilt, the selection is cleared, all rendering is
// dirty, and history restarts from the imported state. A snapshot that
// fails validation is refused with ErrCorruptSnapshot and the current
// state is left untouched.
func (st *Store) ImportSnapshot(snap *DocumentSnapshot) error {
	if snap == nil {
		return ErrCorruptSnapshot
	}
	comps := newComponents()
	seen := make(map[uint32]struct{}, len(snap.Strokes))
	for _, rec := range snap.Strokes {
		if rec.Stroke == nil || rec.Handle.IsZero() || rec.Tick > snap.ChronoCounter {
			return ErrCorruptSnapshot
		}
		// Keyed by slot index, not full handle: the arena can hold one
		// generation per slot, so two records sharing an index would leave
		// one of them adopted away and unresolvable.
		if _, dup := seen[rec.Handle.index]; dup {
			return ErrCorruptSnapshot
		}
		seen[rec.Handle.index] = struct{}{}
		comps.strokes = comps.strokes.Set(rec.Handle, rec.Stroke)
		comps.trash = comps.trash.Set(rec.Handle, rec.Trashed)
		comps.chrono = comps.chrono.Set(rec.Handle, rec.Tick)
	}
	comps.chronoCounter = snap.ChronoCounter

	st.mu.Lock()
	orphaned := st.comps.handles()
	clear(st.selection)
	clear(st.render)
	st.applySnapshotLocked(histSnapshot{comps: comps, doc: snap.Meta})
	st.hist.reset(histSnapshot{comps: st.comps, doc: st.doc})
	fn := st.invalidate
	st.mu.Unlock()

	st.notifyInvalid(orphaned, fn)
	return nil
}
