package inkstore

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/gopaper/inkstore/spatial"
)

// Store is the sole mutation gateway of a document: it owns the identity
// arena, the component tables, the spatial index and the selection as one
// consistent unit, and records history snapshots on commit.
//
// Mutation is single-writer by design: one goroutine per open document
// drives all mutating calls and history traversal. Read-only queries take a
// read lock and may run concurrently with render-result installs, which is
// the only write that originates off the owner goroutine.
//
// Multiple open documents are multiple independent Store instances; nothing
// is shared between them.
type Store struct {
	mu    sync.RWMutex
	arena *Arena
	comps components
	doc   DocumentMeta

	// index holds non-trashed strokes, trashedIndex the trashed ones.
	// Keeping them apart means queries on live strokes never pay for
	// filtering out trash after the fact.
	index        *spatial.Index[Handle]
	trashedIndex *spatial.Index[Handle]

	selection map[Handle]struct{}
	render    map[Handle]*renderComponent

	hist *history

	// invalidate, when set, is called (outside the lock) with handles whose
	// in-flight render jobs should be cancelled: removed, trashed, or
	// orphaned by a history restore. The install-time version check remains
	// the safety net if no hook is registered.
	invalidate func([]Handle)
}

// NewStore creates an empty document store.
func NewStore(opts ...StoreOption) *Store {
	o := defaultStoreOptions()
	for _, opt := range opts {
		opt(&o)
	}
	comps := newComponents()
	return &Store{
		arena:        NewArena(),
		comps:        comps,
		doc:          o.doc,
		index:        spatial.New[Handle](),
		trashedIndex: spatial.New[Handle](),
		selection:    make(map[Handle]struct{}),
		render:       make(map[Handle]*renderComponent),
		hist:         newHistory(histSnapshot{comps: comps, doc: o.doc}, o.historyDepth),
	}
}

// SetRenderInvalidation registers the cancellation hook described on Store.
// Pass nil to unregister. The hook must not call back into the store.
func (st *Store) SetRenderInvalidation(fn func([]Handle)) {
	st.mu.Lock()
	st.invalidate = fn
	st.mu.Unlock()
}

func (st *Store) notifyInvalid(handles []Handle, fn func([]Handle)) {
	if fn != nil && len(handles) > 0 {
		fn(handles)
	}
}

// InsertStroke allocates a handle for the stroke and installs it in the
// tables, the spatial index and the z-order. It never fails for a valid
// stroke.
func (st *Store) InsertStroke(s *Stroke) Handle {
	st.mu.Lock()
	defer st.mu.Unlock()

	h := st.arena.Allocate()
	st.comps.chronoCounter++
	st.comps.strokes = st.comps.strokes.Set(h, s)
	st.comps.trash = st.comps.trash.Set(h, false)
	st.comps.chrono = st.comps.chrono.Set(h, st.comps.chronoCounter)
	st.render[h] = &renderComponent{state: RenderDirty, version: 1}
	st.index.Insert(h, rectToBox(s.Bounds()))
	return h
}

// Stroke returns the stroke for h, or false for a stale or absent handle.
func (st *Store) Stroke(h Handle) (*Stroke, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if !st.arena.IsValid(h) {
		return nil, false
	}
	return st.comps.strokes.Get(h)
}

// UpdateStroke replaces the stroke under h with the mutator's result,
// recomputes its bounds in the spatial index, bumps its content version and
// marks its rendering dirty. The mutator receives the current stroke and
// must return the replacement (strokes are immutable; derive a copy via
// Translated, WithTransform, or a constructor).
func (st *Store) UpdateStroke(h Handle, mutate func(*Stroke) *Stroke) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if !st.arena.IsValid(h) {
		return ErrInvalidHandle
	}
	old, ok := st.comps.strokes.Get(h)
	if !ok {
		return ErrInvalidHandle
	}
	next := mutate(old)
	if next == nil || next == old {
		return nil
	}
	st.comps.strokes = st.comps.strokes.Set(h, next)
	st.bumpVersionLocked(h)
	box := rectToBox(next.Bounds())
	if st.comps.trashed(h) {
		st.trashedIndex.Update(h, box)
	} else {
		st.index.Update(h, box)
	}
	return nil
}

// RemoveStroke permanently removes the stroke under h and returns it.
// The handle is freed in the arena last, so an intermediate failure can
// never leave a freed-but-still-indexed slot. The stale handle is
// detectably invalid in every subsequent call.
func (st *Store) RemoveStroke(h Handle) (*Stroke, error) {
	st.mu.Lock()
	if !st.arena.IsValid(h) {
		st.mu.Unlock()
		return nil, ErrInvalidHandle
	}
	s, ok := st.comps.strokes.Get(h)
	if !ok {
		st.mu.Unlock()
		return nil, ErrInvalidHandle
	}
	st.comps.strokes = st.comps.strokes.Delete(h)
	st.comps.trash = st.comps.trash.Delete(h)
	st.comps.chrono = st.comps.chrono.Delete(h)
	st.index.Remove(h)
	st.trashedIndex.Remove(h)
	delete(st.selection, h)
	delete(st.render, h)
	if err := st.arena.Free(h); err != nil {
		// Unreachable: validity was checked above under the same lock.
		st.mu.Unlock()
		return nil, err
	}
	fn := st.invalidate
	st.mu.Unlock()

	st.notifyInvalid([]Handle{h}, fn)
	return s, nil
}

// IsValid reports whether h currently references a live stroke.
func (st *Store) IsValid(h Handle) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.arena.IsValid(h)
}

// Len returns the number of live strokes, trashed ones included.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.comps.strokes.Len()
}

// Handles returns all live handles in unspecified order.
func (st *Store) Handles() []Handle {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.comps.handles()
}

// StrokesInViewport returns the non-trashed strokes whose bounds intersect
// rect, in unspecified order. Callers needing draw order apply SortByZOrder.
// Safe to call concurrently with render-result installs.
func (st *Store) StrokesInViewport(rect Rect) []Handle {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.index.SearchRect(rectToBox(rect))
}

// StrokesContainedIn returns the non-trashed strokes entirely inside rect.
// Used by rectangle selection.
func (st *Store) StrokesContainedIn(rect Rect) []Handle {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.index.SearchContained(rectToBox(rect))
}

// HitTest returns the top-most stroke within tolerance of p. The spatial
// index supplies coarse bbox candidates in ascending box distance; each is
// refined against the exact stroke geometry, and the scan stops once no
// remaining box can beat the best exact hit. Ties on distance go to the
// stroke drawn on top.
func (st *Store) HitTest(p Point, tolerance float64) (Handle, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var (
		best     Handle
		bestDist = tolerance
		found    bool
	)
	st.index.NearbyWithin(p.X, p.Y, tolerance, func(h Handle, boxDist float64) bool {
		// Box distance lower-bounds exact distance, so a farther box cannot
		// produce a closer hit or a tie.
		if found && boxDist > bestDist {
			return false
		}
		s, ok := st.comps.strokes.Get(h)
		if !ok {
			return true
		}
		d := s.HitDistance(p)
		if d > tolerance {
			return true
		}
		switch {
		case !found, d < bestDist:
			best, bestDist, found = h, d, true
		case d == bestDist && st.zLessLocked(best, h):
			best = h
		}
		return true
	})
	return best, found
}

// SortByZOrder sorts handles in place into draw order: layer-major,
// chronological tick within a layer. Unknown handles sort first.
func (st *Store) SortByZOrder(handles []Handle) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	sort.SliceStable(handles, func(i, j int) bool {
		return st.zLessLocked(handles[i], handles[j])
	})
}

// zLessLocked reports whether a draws before (below) b.
func (st *Store) zLessLocked(a, b Handle) bool {
	sa, aok := st.comps.strokes.Get(a)
	sb, bok := st.comps.strokes.Get(b)
	if !aok || !bok {
		return !aok && bok
	}
	if sa.Layer() != sb.Layer() {
		return sa.Layer() < sb.Layer()
	}
	ta, _ := st.comps.chrono.Get(a)
	tb, _ := st.comps.chrono.Get(b)
	return ta < tb
}

// DocumentMeta returns the current page layout and background.
func (st *Store) DocumentMeta() DocumentMeta {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.doc
}

// SetDocumentMeta replaces the page layout and background. Recorded in
// history like any other edit (commit to make it undoable).
func (st *Store) SetDocumentMeta(doc DocumentMeta) {
	st.mu.Lock()
	st.doc = doc
	st.mu.Unlock()
}

// DocumentBounds returns the region the document occupies: the fixed page
// for LayoutFixed unioned with the content, or just the content bounds for
// LayoutInfinite.
func (st *Store) DocumentBounds() Rect {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var content Rect
	if b, ok := st.index.Bounds(); ok {
		content = boxToRect(b)
	}
	if st.doc.Layout == LayoutFixed {
		return content.Union(Rect{Max: st.doc.PageSize})
	}
	return content
}

// Commit records the current state as a new history snapshot and clears the
// redo future. It reports whether a snapshot was recorded; committing an
// unchanged state is a no-op. Call once per completed gesture, not per
// micro-mutation.
func (st *Store) Commit() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	recorded := st.hist.record(histSnapshot{comps: st.comps, doc: st.doc})
	if recorded {
		Logger().Debug("inkstore: committed history snapshot",
			slog.Int("depth", st.hist.len()))
	}
	return recorded
}

// CanUndo reports whether an undo step is available.
func (st *Store) CanUndo() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.hist.canUndo()
}

// CanRedo reports whether a redo step is available.
func (st *Store) CanRedo() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.hist.canRedo()
}

// Undo restores the previous history snapshot. It returns (false, nil) when
// there is nothing to undo, and (false, ErrCorruptSnapshot) when the target
// snapshot fails validation — the current state is left untouched and other
// snapshots remain usable.
func (st *Store) Undo() (bool, error) {
	st.mu.Lock()
	snap, ok := st.hist.peekUndo()
	if !ok {
		st.mu.Unlock()
		return false, nil
	}
	if err := snap.comps.validate(); err != nil {
		st.mu.Unlock()
		Logger().Warn("inkstore: refusing to restore corrupt snapshot")
		return false, err
	}
	orphaned := st.applySnapshotLocked(snap)
	st.hist.committedUndo()
	fn := st.invalidate
	st.mu.Unlock()

	st.notifyInvalid(orphaned, fn)
	return true, nil
}

// Redo restores the next history snapshot; symmetric to Undo.
func (st *Store) Redo() (bool, error) {
	st.mu.Lock()
	snap, ok := st.hist.peekRedo()
	if !ok {
		st.mu.Unlock()
		return false, nil
	}
	if err := snap.comps.validate(); err != nil {
		st.mu.Unlock()
		Logger().Warn("inkstore: refusing to restore corrupt snapshot")
		return false, err
	}
	orphaned := st.applySnapshotLocked(snap)
	st.hist.committedRedo()
	fn := st.invalidate
	st.mu.Unlock()

	st.notifyInvalid(orphaned, fn)
	return true, nil
}

// applySnapshotLocked replaces the current state with snap: re-adopts the
// snapshot's handles into the arena, rebuilds both spatial indexes, prunes
// the selection, and re-keys the render components — entries for surviving
// handles are kept (the previous frame stays paintable while re-rendering)
// but marked dirty with a bumped version so in-flight installs from before
// the restore are rejected as stale. Returns the handles that did not
// survive, for render-job cancellation.
func (st *Store) applySnapshotLocked(snap histSnapshot) []Handle {
	st.comps = snap.comps
	st.doc = snap.doc

	st.arena.beginAdopt()
	handles := st.comps.handles()
	for _, h := range handles {
		st.arena.adopt(h)
	}
	st.arena.endAdopt()

	st.index.Clear()
	st.trashedIndex.Clear()
	for _, h := range handles {
		s, _ := st.comps.strokes.Get(h)
		box := rectToBox(s.Bounds())
		if st.comps.trashed(h) {
			st.trashedIndex.Insert(h, box)
		} else {
			st.index.Insert(h, box)
		}
	}

	for h := range st.selection {
		if _, ok := st.comps.strokes.Get(h); !ok || st.comps.trashed(h) {
			delete(st.selection, h)
		}
	}

	var orphaned []Handle
	for h, rc := range st.render {
		if _, ok := st.comps.strokes.Get(h); !ok {
			orphaned = append(orphaned, h)
			delete(st.render, h)
			continue
		}
		rc.state = RenderDirty
		rc.version++
	}
	for _, h := range handles {
		if _, ok := st.render[h]; !ok {
			st.render[h] = &renderComponent{state: RenderDirty, version: 1}
		}
	}
	return orphaned
}

// Clear removes every stroke, resets the metadata to its current value and
// restarts history from the empty state.
func (st *Store) Clear() {
	st.mu.Lock()
	orphaned := st.comps.handles()
	st.comps = newComponents()
	st.arena.beginAdopt()
	st.arena.endAdopt()
	st.index.Clear()
	st.trashedIndex.Clear()
	clear(st.selection)
	clear(st.render)
	st.hist.reset(histSnapshot{comps: st.comps, doc: st.doc})
	fn := st.invalidate
	st.mu.Unlock()

	st.notifyInvalid(orphaned, fn)
}

// bumpVersionLocked marks h dirty and advances its content version.
func (st *Store) bumpVersionLocked(h Handle) {
	rc, ok := st.render[h]
	if !ok {
		rc = &renderComponent{}
		st.render[h] = rc
	}
	rc.version++
	rc.state = RenderDirty
}

func rectToBox(r Rect) spatial.Box {
	return spatial.Box{MinX: r.Min.X, MinY: r.Min.Y, MaxX: r.Max.X, MaxY: r.Max.Y}
}

func boxToRect(b spatial.Box) Rect {
	return R(b.MinX, b.MinY, b.MaxX, b.MaxY)
}
