// Package render is the asynchronous rasterization half of the document
// core. A Dispatcher claims dirty strokes from a store, rasterizes them to
// RGBA tiles on a work-stealing worker pool, and installs the results back
// under the store's version check, so a result from a superseded job can
// never overwrite newer content.
//
// Rasterization is CPU-side: ink ribbons through golang.org/x/image/vector,
// imported bitmaps through golang.org/x/image/draw, text through
// golang.org/x/image/font/opentype. Completed work is announced through a
// subscriber callback so the UI layer knows when to repaint.
package render
