package inkstore

// Selection system. Membership is orthogonal to stroke content and lives
// outside history: undoing a delete restores strokes unselected, and the
// set is pruned whenever referenced strokes are removed, trashed, or do not
// survive a restore.

// Select marks the stroke under h as selected. Trashed strokes cannot be
// selected.
func (st *Store) Select(h Handle) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.arena.IsValid(h) || st.comps.trashed(h) {
		return ErrInvalidHandle
	}
	st.selection[h] = struct{}{}
	return nil
}

// Deselect removes h from the selection. Deselecting a stroke that is not
// selected is not an error; passing a stale handle is.
func (st *Store) Deselect(h Handle) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.arena.IsValid(h) {
		return ErrInvalidHandle
	}
	delete(st.selection, h)
	return nil
}

// Selected reports whether h is in the selection.
func (st *Store) Selected(h Handle) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	_, ok := st.selection[h]
	return ok
}

// SelectedHandles returns the selection in unspecified order.
func (st *Store) SelectedHandles() []Handle {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]Handle, 0, len(st.selection))
	for h := range st.selection {
		out = append(out, h)
	}
	return out
}

// ClearSelection empties the selection.
func (st *Store) ClearSelection() {
	st.mu.Lock()
	clear(st.selection)
	st.mu.Unlock()
}

// SelectInRect replaces the selection with the non-trashed strokes entirely
// contained in rect and returns them.
func (st *Store) SelectInRect(rect Rect) []Handle {
	st.mu.Lock()
	defer st.mu.Unlock()
	clear(st.selection)
	hits := st.index.SearchContained(rectToBox(rect))
	for _, h := range hits {
		st.selection[h] = struct{}{}
	}
	return hits
}

// TranslateSelection shifts every selected stroke by delta, updating bounds,
// the spatial index and render state per stroke. Returns the handles moved.
func (st *Store) TranslateSelection(delta Point) []Handle {
	st.mu.Lock()
	defer st.mu.Unlock()

	moved := make([]Handle, 0, len(st.selection))
	for h := range st.selection {
		s, ok := st.comps.strokes.Get(h)
		if !ok {
			// Selection invariant slipped; prune rather than fail the batch.
			delete(st.selection, h)
			continue
		}
		next := s.Translated(delta)
		st.comps.strokes = st.comps.strokes.Set(h, next)
		st.bumpVersionLocked(h)
		st.index.Update(h, rectToBox(next.Bounds()))
		moved = append(moved, h)
	}
	return moved
}

// TrashSelection trashes every selected stroke and returns the handles.
// The selection is empty afterwards.
func (st *Store) TrashSelection() []Handle {
	st.mu.Lock()
	trashed := make([]Handle, 0, len(st.selection))
	for h := range st.selection {
		s, ok := st.comps.strokes.Get(h)
		if !ok {
			continue
		}
		st.comps.trash = st.comps.trash.Set(h, true)
		st.index.Remove(h)
		st.trashedIndex.Insert(h, rectToBox(s.Bounds()))
		trashed = append(trashed, h)
	}
	clear(st.selection)
	fn := st.invalidate
	st.mu.Unlock()

	st.notifyInvalid(trashed, fn)
	return trashed
}
