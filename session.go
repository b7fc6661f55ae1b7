package inkstore

import (
	"bytes"
	"errors"
	"image"

	// Registered for image.DecodeConfig so imported image intents can read
	// intrinsic sizes. Pixel decoding still happens inside render jobs.
	_ "image/jpeg"
	_ "image/png"
)

var (
	// ErrGestureActive indicates a BeginStroke while a stroke is already
	// in progress.
	ErrGestureActive = errors.New("inkstore: stroke gesture already active")

	// ErrNoGesture indicates an AppendPoint or EndStroke without a
	// preceding BeginStroke.
	ErrNoGesture = errors.New("inkstore: no active stroke gesture")
)

// Session is the input boundary: it consumes the discrete edit intents the
// upstream event layer produces (pen down, pen move, pen up, move/delete
// selection, image import) and maps them to store mutations plus exactly
// one history commit per completed gesture.
//
// The coalescing boundary is explicit per intent: AppendPoint never
// commits, EndStroke always does. An in-progress stroke is visible in the
// store (so it renders while being drawn) but becomes undoable only when
// its gesture completes.
//
// A Session drives exactly one Store and must be used from the store's
// owner goroutine.
type Session struct {
	store *Store

	active  bool
	pending Handle
	points  []InkPoint
	style   InkStyle
}

// NewSession creates a session over the given store.
func NewSession(store *Store) *Session {
	return &Session{store: store}
}

// Store returns the underlying document store.
func (se *Session) Store() *Store { return se.store }

// BeginStroke starts a freehand stroke gesture at the given point.
// The stroke is inserted immediately so it can render while being drawn.
func (se *Session) BeginStroke(pt InkPoint, style InkStyle) (Handle, error) {
	if se.active {
		return Handle{}, ErrGestureActive
	}
	se.active = true
	se.style = style
	se.points = append(se.points[:0], pt)
	se.pending = se.store.InsertStroke(NewInkStroke(NewInkPath(se.clonePoints(), style)))
	return se.pending, nil
}

// AppendPoint extends the active stroke gesture. The stroke in the store is
// replaced with the grown path; no history snapshot is taken.
func (se *Session) AppendPoint(pt InkPoint) error {
	if !se.active {
		return ErrNoGesture
	}
	se.points = append(se.points, pt)
	path := NewInkPath(se.clonePoints(), se.style)
	return se.store.UpdateStroke(se.pending, func(s *Stroke) *Stroke {
		return NewInkStroke(path).WithLayer(s.Layer())
	})
}

// EndStroke completes the active gesture and commits it to history.
func (se *Session) EndStroke() (Handle, error) {
	if !se.active {
		return Handle{}, ErrNoGesture
	}
	h := se.pending
	se.active = false
	se.points = se.points[:0]
	se.pending = Handle{}
	se.store.Commit()
	return h, nil
}

// CancelStroke abandons the active gesture and removes its stroke without
// touching history.
func (se *Session) CancelStroke() error {
	if !se.active {
		return ErrNoGesture
	}
	h := se.pending
	se.active = false
	se.points = se.points[:0]
	se.pending = Handle{}
	_, err := se.store.RemoveStroke(h)
	return err
}

// MoveSelection shifts the selected strokes by delta as one gesture.
func (se *Session) MoveSelection(delta Point) []Handle {
	moved := se.store.TranslateSelection(delta)
	if len(moved) > 0 {
		se.store.Commit()
	}
	return moved
}

// DeleteSelection trashes the selected strokes as one gesture.
func (se *Session) DeleteSelection() []Handle {
	trashed := se.store.TrashSelection()
	if len(trashed) > 0 {
		se.store.Commit()
	}
	return trashed
}

// ImportImage inserts an encoded raster image (PNG or JPEG) with its
// top-left corner at pos, as one gesture. Only the header is read here;
// pixel decoding is deferred to render jobs, where a malformed payload
// fails that stroke's rendering instead of the import.
func (se *Session) ImportImage(data []byte, pos Point) (Handle, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Handle{}, err
	}
	img := NewBitmapImage(data, Pt(float64(cfg.Width), float64(cfg.Height)))
	tf := IdentityTransform()
	tf.Translation = pos
	h := se.store.InsertStroke(NewBitmapStroke(img, tf))
	se.store.Commit()
	return h, nil
}

// clonePoints copies the accumulated gesture points so every stroke value
// stays immutable while the gesture keeps appending.
func (se *Session) clonePoints() []InkPoint {
	out := make([]InkPoint, len(se.points))
	copy(out, se.points)
	return out
}
