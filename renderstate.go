package inkstore

import "log/slog"

// Render-cache system: the store-side half of the render pipeline. The
// render.Dispatcher claims work through RenderCandidates, rasterizes off
// the owner goroutine, and merges results back through InstallRendering,
// which is the only mutation that may originate on a worker. Everything is
// guarded by the per-entry content version: a result from a superseded or
// reordered job can never replace a newer one.

const (
	// ViewportMarginFactor extends the requested viewport by this fraction
	// of its extents before rasterizing, so small scrolls stay within the
	// already-rendered region.
	ViewportMarginFactor = 0.4

	// viewportRerenderThreshold is applied on top of the margin factor when
	// checking whether previously rendered tiles still cover the viewport;
	// re-rendering starts a little before the edge is reached.
	viewportRerenderThreshold = 0.7

	// RenderScaleTolerance is the relative zoom difference below which
	// installed tiles are considered up to date for a new zoom.
	RenderScaleTolerance = 0.01
)

// RenderCandidate is one claimed unit of rasterization work: the immutable
// stroke snapshot and the content version it was claimed at.
type RenderCandidate struct {
	Handle  Handle
	Stroke  *Stroke
	Version uint64
}

// StrokeVersion returns the content version of the stroke under h.
func (st *Store) StrokeVersion(h Handle) (uint64, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	rc, ok := st.render[h]
	if !ok || !st.arena.IsValid(h) {
		return 0, false
	}
	return rc.version, true
}

// RenderStateOf returns the render cache state of the stroke under h.
func (st *Store) RenderStateOf(h Handle) (RenderState, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	rc, ok := st.render[h]
	if !ok {
		return 0, false
	}
	return rc.state, true
}

// RenderTiles returns the installed tiles for h together with the zoom they
// were rasterized at. The tiles are shared, not copied; callers must treat
// them as read-only.
func (st *Store) RenderTiles(h Handle) (tiles []RenderTile, zoom float64, ok bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	rc, found := st.render[h]
	if !found || len(rc.tiles) == 0 {
		return nil, 0, false
	}
	return rc.tiles, rc.zoom, true
}

// MarkRenderDirty forces the stroke's cache entry back to dirty without a
// content change (used when the painter's requirements change externally).
func (st *Store) MarkRenderDirty(h Handle) {
	st.mu.Lock()
	if rc, ok := st.render[h]; ok {
		rc.state = RenderDirty
	}
	st.mu.Unlock()
}

// RenderCandidates claims rasterization work for the given viewport and
// zoom: every non-trashed stroke intersecting the margin-extended viewport
// whose cache entry is dirty, rendered at a sufficiently different scale,
// or rendered for a viewport that no longer covers the requested one.
// Claimed entries transition to pending, so concurrent or repeated requests
// for the same stroke are deduplicated rather than re-queued. With force
// set, failed and clean entries are reclaimed too.
//
// Entries for strokes outside the extended viewport have their tiles
// released and re-enter dirty, bounding cache memory the way the original
// viewport-partial rendering does.
func (st *Store) RenderCandidates(viewport Rect, zoom float64, force bool) []RenderCandidate {
	st.mu.Lock()
	defer st.mu.Unlock()

	extended := viewport.ExpandByFactor(ViewportMarginFactor)
	coverCheck := viewport.ExpandByFactor(ViewportMarginFactor * viewportRerenderThreshold)

	var out []RenderCandidate
	itr := st.comps.strokes.Iterator()
	for !itr.Done() {
		h, s, _ := itr.Next()
		rc, ok := st.render[h]
		if !ok {
			continue
		}
		if st.comps.trashed(h) {
			continue
		}
		if !extended.Intersects(s.Bounds()) {
			if len(rc.tiles) > 0 {
				rc.tiles = nil
				rc.state = RenderDirty
			}
			continue
		}
		if rc.state == RenderPending {
			continue
		}
		if !force {
			switch rc.state {
			case RenderFailed:
				continue
			case RenderClean:
				if !scaleDiffers(rc.zoom, zoom) && (rc.full || rc.viewport.Contains(coverCheck)) {
					continue
				}
			}
		}
		rc.state = RenderPending
		out = append(out, RenderCandidate{Handle: h, Stroke: s, Version: rc.version})
	}
	return out
}

// InstallRendering merges a completed rasterization back into the cache
// entry for h, all-or-nothing. The result is rejected with ErrStaleRender
// if the stroke has been mutated since the job was claimed or if a newer
// result is already installed, and with ErrInvalidHandle if the stroke is
// gone; rejected entries re-enter dirty so the next request re-renders.
func (st *Store) InstallRendering(h Handle, version uint64, zoom float64, viewport Rect, full bool, tiles []RenderTile) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	rc, ok := st.render[h]
	if !ok || !st.arena.IsValid(h) {
		return ErrInvalidHandle
	}
	if version != rc.version || version < rc.installedVersion {
		// Demote only a claim for this same version. A pending entry at a
		// newer version belongs to a job that is still in flight; knocking it
		// back to dirty would let a second claim race the first.
		if version == rc.version && rc.state == RenderPending {
			rc.state = RenderDirty
		}
		Logger().Debug("inkstore: discarding stale render result",
			slog.Uint64("got", version), slog.Uint64("want", rc.version))
		return ErrStaleRender
	}
	rc.tiles = tiles
	rc.zoom = zoom
	rc.viewport = viewport
	rc.full = full
	rc.installedVersion = version
	rc.state = RenderClean
	return nil
}

// MarkRenderFailed records a failed rasterization (for example a malformed
// embedded image). Ignored if the stroke was mutated since the job was
// claimed — the newer content gets a fresh chance.
func (st *Store) MarkRenderFailed(h Handle, version uint64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	rc, ok := st.render[h]
	if !ok || version != rc.version {
		return
	}
	rc.tiles = nil
	rc.state = RenderFailed
}

// ReleaseRender returns a claimed entry to dirty without a result, used
// when a job is cancelled before completion.
func (st *Store) ReleaseRender(h Handle, version uint64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	rc, ok := st.render[h]
	if !ok || version != rc.version {
		return
	}
	if rc.state == RenderPending {
		rc.state = RenderDirty
	}
}

// scaleDiffers reports whether two zoom factors differ beyond the render
// scale tolerance.
func scaleDiffers(a, b float64) bool {
	if b == 0 {
		return a != 0
	}
	d := a/b - 1
	if d < 0 {
		d = -d
	}
	return d > RenderScaleTolerance
}
