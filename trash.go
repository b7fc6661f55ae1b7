package inkstore

// Trash system: soft deletion. A trashed stroke leaves the live spatial
// index, stops rendering and disappears from queries, but stays in the
// component tables so undo and recovery work. Permanent removal happens
// only through RemoveStroke or EmptyTrash.

// TrashStroke marks the stroke under h as trashed. The stroke moves to the
// trashed index, leaves the selection, and its in-flight renders are
// invalidated.
func (st *Store) TrashStroke(h Handle) error {
	st.mu.Lock()
	if !st.arena.IsValid(h) {
		st.mu.Unlock()
		return ErrInvalidHandle
	}
	if st.comps.trashed(h) {
		st.mu.Unlock()
		return nil
	}
	s, ok := st.comps.strokes.Get(h)
	if !ok {
		st.mu.Unlock()
		return ErrInvalidHandle
	}
	st.comps.trash = st.comps.trash.Set(h, true)
	st.index.Remove(h)
	st.trashedIndex.Insert(h, rectToBox(s.Bounds()))
	delete(st.selection, h)
	fn := st.invalidate
	st.mu.Unlock()

	st.notifyInvalid([]Handle{h}, fn)
	return nil
}

// RecoverStroke moves a trashed stroke back into the live document and
// marks its rendering dirty.
func (st *Store) RecoverStroke(h Handle) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.arena.IsValid(h) {
		return ErrInvalidHandle
	}
	if !st.comps.trashed(h) {
		return nil
	}
	s, ok := st.comps.strokes.Get(h)
	if !ok {
		return ErrInvalidHandle
	}
	st.comps.trash = st.comps.trash.Set(h, false)
	st.trashedIndex.Remove(h)
	st.index.Insert(h, rectToBox(s.Bounds()))
	if rc, ok := st.render[h]; ok {
		rc.state = RenderDirty
	}
	return nil
}

// Trashed reports the trash flag for h.
func (st *Store) Trashed(h Handle) (bool, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if !st.arena.IsValid(h) {
		return false, ErrInvalidHandle
	}
	return st.comps.trashed(h), nil
}

// TrashedHandles returns the handles of all trashed strokes.
func (st *Store) TrashedHandles() []Handle {
	st.mu.RLock()
	defer st.mu.RUnlock()
	var out []Handle
	itr := st.comps.trash.Iterator()
	for !itr.Done() {
		h, trashed, _ := itr.Next()
		if trashed {
			out = append(out, h)
		}
	}
	return out
}

// EmptyTrash permanently removes every trashed stroke and returns the
// removed handles, all of which are stale afterwards.
func (st *Store) EmptyTrash() []Handle {
	st.mu.Lock()
	var removed []Handle
	itr := st.comps.trash.Iterator()
	for !itr.Done() {
		h, trashed, _ := itr.Next()
		if trashed {
			removed = append(removed, h)
		}
	}
	for _, h := range removed {
		st.comps.strokes = st.comps.strokes.Delete(h)
		st.comps.trash = st.comps.trash.Delete(h)
		st.comps.chrono = st.comps.chrono.Delete(h)
		st.trashedIndex.Remove(h)
		delete(st.render, h)
		// Validity was implied by table membership; Free cannot fail here.
		_ = st.arena.Free(h)
	}
	fn := st.invalidate
	st.mu.Unlock()

	st.notifyInvalid(removed, fn)
	return removed
}
