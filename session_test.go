package inkstore

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func penPoint(x, y float64) InkPoint {
	return InkPoint{Pos: Pt(x, y), Pressure: 0.8}
}

func TestSessionStrokeGestureCommitsOnce(t *testing.T) {
	st := NewStore()
	se := NewSession(st)

	style := InkStyle{Width: 3, Color: color.RGBA{A: 255}}
	h, err := se.BeginStroke(penPoint(0, 0), style)
	if err != nil {
		t.Fatalf("BeginStroke: %v", err)
	}
	if !st.IsValid(h) {
		t.Fatal("in-progress stroke should be visible in the store")
	}
	if st.CanUndo() {
		t.Fatal("in-progress stroke must not be committed yet")
	}

	for i := 1; i <= 5; i++ {
		if err := se.AppendPoint(penPoint(float64(i)*10, 0)); err != nil {
			t.Fatalf("AppendPoint: %v", err)
		}
	}
	s, _ := st.Stroke(h)
	if got := len(s.Ink().Points); got != 6 {
		t.Fatalf("point count = %d, want 6", got)
	}

	done, err := se.EndStroke()
	if err != nil || done != h {
		t.Fatalf("EndStroke = %v, %v", done, err)
	}
	if !st.CanUndo() {
		t.Fatal("completed gesture must be undoable")
	}

	// Exactly one undo step for the whole gesture.
	if ok, _ := st.Undo(); !ok {
		t.Fatal("Undo failed")
	}
	if st.Len() != 0 {
		t.Fatalf("Len after undo = %d, want 0", st.Len())
	}
	if st.CanUndo() {
		t.Fatal("gesture produced more than one history step")
	}
}

func TestSessionGestureStateErrors(t *testing.T) {
	st := NewStore()
	se := NewSession(st)

	if err := se.AppendPoint(penPoint(0, 0)); !errors.Is(err, ErrNoGesture) {
		t.Fatalf("AppendPoint without gesture: err = %v, want ErrNoGesture", err)
	}
	if _, err := se.EndStroke(); !errors.Is(err, ErrNoGesture) {
		t.Fatalf("EndStroke without gesture: err = %v, want ErrNoGesture", err)
	}

	if _, err := se.BeginStroke(penPoint(0, 0), InkStyle{Width: 1}); err != nil {
		t.Fatalf("BeginStroke: %v", err)
	}
	if _, err := se.BeginStroke(penPoint(1, 1), InkStyle{Width: 1}); !errors.Is(err, ErrGestureActive) {
		t.Fatalf("nested BeginStroke: err = %v, want ErrGestureActive", err)
	}
}

func TestSessionCancelStrokeLeavesNoTrace(t *testing.T) {
	st := NewStore()
	se := NewSession(st)

	h, err := se.BeginStroke(penPoint(0, 0), InkStyle{Width: 1})
	if err != nil {
		t.Fatalf("BeginStroke: %v", err)
	}
	if err := se.CancelStroke(); err != nil {
		t.Fatalf("CancelStroke: %v", err)
	}
	if st.IsValid(h) {
		t.Fatal("cancelled stroke still in the store")
	}
	if st.CanUndo() {
		t.Fatal("cancelled gesture recorded history")
	}
}

func TestSessionMoveAndDeleteSelection(t *testing.T) {
	st := NewStore()
	se := NewSession(st)

	h := st.InsertStroke(inkStroke(10, 10))
	st.Commit()
	if err := st.Select(h); err != nil {
		t.Fatalf("Select: %v", err)
	}

	moved := se.MoveSelection(Pt(100, 0))
	if len(moved) != 1 {
		t.Fatalf("MoveSelection = %v, want one handle", moved)
	}
	s, _ := st.Stroke(h)
	if s.Bounds().Min.X < 100 {
		t.Fatalf("stroke did not move: bounds %+v", s.Bounds())
	}

	if err := st.Select(h); err != nil {
		t.Fatalf("Select: %v", err)
	}
	deleted := se.DeleteSelection()
	if len(deleted) != 1 {
		t.Fatalf("DeleteSelection = %v, want one handle", deleted)
	}
	if trashed, _ := st.Trashed(h); !trashed {
		t.Fatal("deleted stroke should be trashed")
	}

	// Each gesture is one undo step: delete, then move, then insert.
	for i, check := range []func() bool{
		func() bool { trashed, _ := st.Trashed(h); return !trashed },
		func() bool { s, _ := st.Stroke(h); return s.Bounds().Min.X < 100 },
		func() bool { return st.Len() == 0 },
	} {
		if ok, err := st.Undo(); !ok || err != nil {
			t.Fatalf("Undo #%d: ok=%v err=%v", i, ok, err)
		}
		if !check() {
			t.Fatalf("state wrong after undo #%d", i)
		}
	}
}

func TestSessionMoveEmptySelectionRecordsNothing(t *testing.T) {
	st := NewStore()
	se := NewSession(st)
	if moved := se.MoveSelection(Pt(10, 10)); len(moved) != 0 {
		t.Fatalf("MoveSelection on empty selection = %v", moved)
	}
	if st.CanUndo() {
		t.Fatal("empty move recorded history")
	}
}

func TestSessionImportImage(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 32, 16))); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}

	st := NewStore()
	se := NewSession(st)
	h, err := se.ImportImage(buf.Bytes(), Pt(50, 60))
	if err != nil {
		t.Fatalf("ImportImage: %v", err)
	}

	s, ok := st.Stroke(h)
	if !ok {
		t.Fatal("imported stroke missing")
	}
	if s.Kind() != KindBitmapImage {
		t.Fatalf("kind = %v, want bitmap", s.Kind())
	}
	if got := s.Bitmap().Size; got != Pt(32, 16) {
		t.Fatalf("intrinsic size = %v, want (32,16)", got)
	}
	if b := s.Bounds(); b.Min != Pt(50, 60) {
		t.Fatalf("bounds min = %v, want (50,60)", b.Min)
	}
	if s.Layer() != LayerImage {
		t.Fatalf("layer = %v, want image layer", s.Layer())
	}
	if !st.CanUndo() {
		t.Fatal("import must commit")
	}
}

func TestSessionImportImageRejectsGarbage(t *testing.T) {
	st := NewStore()
	se := NewSession(st)
	if _, err := se.ImportImage([]byte("not an image"), Pt(0, 0)); err == nil {
		t.Fatal("expected decode error for garbage bytes")
	}
	if st.Len() != 0 {
		t.Fatal("failed import left a stroke behind")
	}
}
