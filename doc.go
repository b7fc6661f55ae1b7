// Package inkstore is the document core of a vector drawing and annotation
// application: it owns every drawable element ("stroke") in a document,
// tracks per-stroke render state, provides undo/redo over arbitrarily large
// documents, and answers fast spatial queries for an interactive canvas.
//
// # Overview
//
// The core is built from a small set of cooperating pieces:
//
//   - Handle / Arena: generational identity. Every stroke is referenced by a
//     (index, generation) pair; a stale handle from before a removal is
//     detectably invalid at every subsequent call.
//   - Store: the sole mutation gateway. It combines the arena, the component
//     tables, the spatial index and the selection into one consistent unit.
//   - History: copy-on-write snapshots. Component tables are persistent maps,
//     so a snapshot is an O(1) copy of a few map roots; unmodified buckets
//     are shared between snapshots.
//   - render.Dispatcher (subpackage): asynchronous, cancellable rasterization
//     off the interactive thread, merging results back into the render cache.
//
// # Quick Start
//
//	st := inkstore.NewStore()
//
//	h := st.InsertStroke(inkstore.NewInkStroke(inkstore.NewInkPath(points, style)))
//	st.Commit()
//
//	visible := st.StrokesInViewport(inkstore.R(0, 0, 1920, 1080))
//	hit, ok := st.HitTest(inkstore.Pt(120, 80), 4.0)
//
//	st.Undo()
//	st.Redo()
//
// # Concurrency
//
// All mutation and history traversal is single-writer: one goroutine per open
// document drives the store. Render jobs run on a worker pool and only read
// immutable geometry snapshots taken at enqueue time; completed images are
// installed back through the store under a per-entry version check, so a
// result from a superseded job is always discarded.
//
// # External boundaries
//
// The GUI widget tree, the on-disk file codec, and schema migration are
// external collaborators. The core consumes already-decoded edit intents
// (see Session) and exposes whole-document snapshots (see ExportSnapshot);
// it never parses document file bytes itself.
package inkstore
