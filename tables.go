package inkstore

import (
	"image"

	"github.com/benbjohnson/immutable"
)

// handleHasher hashes Handles for the persistent component maps.
// Index and generation are mixed into one word; the multiplier spreads
// sequential indices across buckets (FNV-style, as the cache hashers do).
type handleHasher struct{}

func (handleHasher) Hash(h Handle) uint32 {
	x := uint64(h.index)<<32 | uint64(h.gen)
	x *= 0x100000001b3
	return uint32(x>>32) ^ uint32(x)
}

func (handleHasher) Equal(a, b Handle) bool { return a == b }

// components is the snapshot-shared part of the document state: everything
// history needs to restore. All three maps are persistent (HAMT), so copying
// a components value is O(1) and unmodified buckets are structurally shared
// between history snapshots — the copy-on-write backbone of undo/redo.
//
// Render state and the selection live outside: they are rebuilt or pruned on
// restore rather than rolled back.
type components struct {
	// strokes is the primary map; a handle is present here iff it is live.
	strokes *immutable.Map[Handle, *Stroke]
	// trash marks soft-deleted strokes. Trashed strokes leave queries and
	// rendering but stay restorable until the trash is emptied.
	trash *immutable.Map[Handle, bool]
	// chrono orders strokes chronologically within their layer.
	chrono *immutable.Map[Handle, uint64]
	// chronoCounter equals the tick of the newest inserted or touched stroke.
	chronoCounter uint64
}

func newComponents() components {
	return components{
		strokes: immutable.NewMap[Handle, *Stroke](handleHasher{}),
		trash:   immutable.NewMap[Handle, bool](handleHasher{}),
		chrono:  immutable.NewMap[Handle, uint64](handleHasher{}),
	}
}

// sharesStorageWith reports whether both values point at the same map roots.
// Used to skip no-op history commits (the pointer-equality check rnote does
// on its Arc'd components).
func (c components) sharesStorageWith(o components) bool {
	return c.strokes == o.strokes &&
		c.trash == o.trash &&
		c.chrono == o.chrono &&
		c.chronoCounter == o.chronoCounter
}

// validate checks the structural invariants a snapshot must satisfy before
// it may be restored: secondary maps reference only live strokes and the
// chrono counter dominates every tick.
func (c components) validate() error {
	if c.strokes == nil || c.trash == nil || c.chrono == nil {
		return ErrCorruptSnapshot
	}
	itr := c.trash.Iterator()
	for !itr.Done() {
		h, _, _ := itr.Next()
		if _, ok := c.strokes.Get(h); !ok {
			return ErrCorruptSnapshot
		}
	}
	citr := c.chrono.Iterator()
	for !citr.Done() {
		h, tick, _ := citr.Next()
		if _, ok := c.strokes.Get(h); !ok {
			return ErrCorruptSnapshot
		}
		if tick > c.chronoCounter {
			return ErrCorruptSnapshot
		}
	}
	return nil
}

// handles returns all live handles in unspecified order.
func (c components) handles() []Handle {
	out := make([]Handle, 0, c.strokes.Len())
	itr := c.strokes.Iterator()
	for !itr.Done() {
		h, _, _ := itr.Next()
		out = append(out, h)
	}
	return out
}

// trashed reports the trash flag for h (false when h is unknown).
func (c components) trashed(h Handle) bool {
	t, _ := c.trash.Get(h)
	return t
}

// RenderState is the lifecycle of a stroke's cached rasterization.
type RenderState uint8

const (
	// RenderDirty means the cache does not match the stroke's content and
	// no job has been queued yet. The initial state of every stroke.
	RenderDirty RenderState = iota
	// RenderPending means a rasterization job is queued or running.
	RenderPending
	// RenderClean means the installed tiles match the stroke's version
	// (for the viewport and zoom they were generated for).
	RenderClean
	// RenderFailed means the last job failed (for example a malformed
	// embedded image). Distinct from dirty so the painter can show a
	// placeholder instead of re-queueing the same failure every frame.
	RenderFailed
)

// String returns the state name for logging.
func (s RenderState) String() string {
	switch s {
	case RenderDirty:
		return "dirty"
	case RenderPending:
		return "pending"
	case RenderClean:
		return "clean"
	case RenderFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RenderTile is one rasterized piece of a stroke at a specific zoom.
type RenderTile struct {
	// Rect is the document-space region the tile covers.
	Rect Rect
	// Image is the rasterized pixel data.
	Image *image.RGBA
}

// renderComponent is the per-stroke render cache entry. It lives outside
// history: restores keep entries for surviving handles (so the old frame
// can still be painted while re-rendering) but mark them dirty.
type renderComponent struct {
	state RenderState
	tiles []RenderTile
	// zoom is the scale the tiles were rasterized at.
	zoom float64
	// viewport is the extended viewport the tiles cover; only meaningful
	// when full is false.
	viewport Rect
	// full reports whether the tiles cover the entire stroke.
	full bool
	// version counts content mutations of the stroke. Bumped by the store
	// on every update; render jobs carry the version they rasterized.
	version uint64
	// installedVersion is the version of the currently installed tiles.
	// Installs are rejected unless they are at least as new, which keeps
	// installed results monotonic under concurrent job completion.
	installedVersion uint64
}
