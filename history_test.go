package inkstore

import (
	"errors"
	"image/color"
	"testing"
)

func inkStroke(x, y float64) *Stroke {
	return NewInkStroke(NewInkPath([]InkPoint{
		{Pos: Pt(x, y), Pressure: 1},
		{Pos: Pt(x+10, y+10), Pressure: 1},
	}, InkStyle{Width: 2, Color: color.RGBA{A: 255}}))
}

func TestUndoRedoLinearTimeline(t *testing.T) {
	st := NewStore()

	a := st.InsertStroke(inkStroke(0, 0))
	st.Commit()
	b := st.InsertStroke(inkStroke(100, 0))
	st.Commit()
	c := st.InsertStroke(inkStroke(200, 0))
	st.Commit()

	if st.Len() != 3 {
		t.Fatalf("Len = %d, want 3", st.Len())
	}

	// Undo back to just {a}.
	for i := 0; i < 2; i++ {
		ok, err := st.Undo()
		if err != nil || !ok {
			t.Fatalf("Undo #%d: ok=%v err=%v", i, ok, err)
		}
	}
	if st.Len() != 1 {
		t.Fatalf("after undo x2: Len = %d, want 1", st.Len())
	}
	if !st.IsValid(a) {
		t.Fatal("a should survive the undos")
	}
	if st.IsValid(b) || st.IsValid(c) {
		t.Fatal("b and c should be invalid after undo")
	}

	// Redo restores b at the same handle.
	ok, err := st.Redo()
	if err != nil || !ok {
		t.Fatalf("Redo: ok=%v err=%v", ok, err)
	}
	if !st.IsValid(b) {
		t.Fatal("b should be valid again after redo")
	}
	if st.IsValid(c) {
		t.Fatal("c should still be invalid")
	}

	// A new commit discards the rest of the future.
	d := st.InsertStroke(inkStroke(300, 0))
	st.Commit()
	if st.CanRedo() {
		t.Fatal("redo future should be gone after a new commit")
	}
	if st.IsValid(c) {
		t.Fatal("c belongs to a discarded timeline")
	}
	if !st.IsValid(d) {
		t.Fatal("d should be valid")
	}
}

func TestUndoRedoRoundTripIsIdentity(t *testing.T) {
	st := NewStore()
	a := st.InsertStroke(inkStroke(0, 0))
	st.Commit()
	st.InsertStroke(inkStroke(50, 50))
	st.Commit()

	before := st.ExportSnapshot()

	if ok, err := st.Undo(); !ok || err != nil {
		t.Fatalf("Undo: ok=%v err=%v", ok, err)
	}
	if ok, err := st.Redo(); !ok || err != nil {
		t.Fatalf("Redo: ok=%v err=%v", ok, err)
	}

	after := st.ExportSnapshot()
	if len(before.Strokes) != len(after.Strokes) {
		t.Fatalf("stroke count changed: %d -> %d", len(before.Strokes), len(after.Strokes))
	}
	if before.ChronoCounter != after.ChronoCounter {
		t.Fatalf("chrono counter changed: %d -> %d", before.ChronoCounter, after.ChronoCounter)
	}
	if !st.IsValid(a) {
		t.Fatal("handle a lost by undo/redo round trip")
	}
}

func TestUndoAtFloorIsNoop(t *testing.T) {
	st := NewStore()
	if ok, err := st.Undo(); ok || err != nil {
		t.Fatalf("Undo on empty history: ok=%v err=%v, want false,nil", ok, err)
	}
	if ok, err := st.Redo(); ok || err != nil {
		t.Fatalf("Redo on empty history: ok=%v err=%v, want false,nil", ok, err)
	}
}

func TestCommitWithoutChangesIsSkipped(t *testing.T) {
	st := NewStore()
	st.InsertStroke(inkStroke(0, 0))
	if !st.Commit() {
		t.Fatal("first commit should record")
	}
	if st.Commit() {
		t.Fatal("commit without changes should be skipped")
	}
	if st.Commit() {
		t.Fatal("repeated empty commit should stay skipped")
	}
}

func TestHistoryDepthEvictsOldest(t *testing.T) {
	st := NewStore(WithHistoryDepth(4))
	for i := 0; i < 10; i++ {
		st.InsertStroke(inkStroke(float64(i)*20, 0))
		st.Commit()
	}

	// Only depth-1 undo steps remain.
	undos := 0
	for {
		ok, err := st.Undo()
		if err != nil {
			t.Fatalf("Undo: %v", err)
		}
		if !ok {
			break
		}
		undos++
	}
	if undos != 3 {
		t.Fatalf("undo steps = %d, want 3 with depth 4", undos)
	}
}

func TestUndoSkipsNothingAfterSelectionChanges(t *testing.T) {
	// Selection is not part of history: selecting between commits must not
	// create undo steps, and undo restores strokes unselected.
	st := NewStore()
	h := st.InsertStroke(inkStroke(0, 0))
	st.Commit()

	if err := st.Select(h); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if st.Commit() {
		t.Fatal("selection change alone must not record history")
	}

	st.TrashSelection()
	st.Commit()
	if ok, err := st.Undo(); !ok || err != nil {
		t.Fatalf("Undo: ok=%v err=%v", ok, err)
	}
	if trashed, err := st.Trashed(h); err != nil || trashed {
		t.Fatalf("stroke should be live again: trashed=%v err=%v", trashed, err)
	}
	if st.Selected(h) {
		t.Fatal("restored stroke must come back unselected")
	}
}

func TestImportRefusesCorruptSnapshot(t *testing.T) {
	st := NewStore()
	st.InsertStroke(inkStroke(0, 0))
	st.Commit()
	want := st.Len()

	tests := []struct {
		name string
		snap *DocumentSnapshot
	}{
		{"nil snapshot", nil},
		{"nil stroke", &DocumentSnapshot{
			Strokes:       []StrokeRecord{{Handle: HandleFrom(0, 1), Stroke: nil}},
			ChronoCounter: 1,
		}},
		{"zero handle", &DocumentSnapshot{
			Strokes:       []StrokeRecord{{Handle: Handle{}, Stroke: inkStroke(0, 0), Tick: 1}},
			ChronoCounter: 1,
		}},
		{"tick beyond counter", &DocumentSnapshot{
			Strokes:       []StrokeRecord{{Handle: HandleFrom(0, 1), Stroke: inkStroke(0, 0), Tick: 9}},
			ChronoCounter: 1,
		}},
		{"duplicate handle", &DocumentSnapshot{
			Strokes: []StrokeRecord{
				{Handle: HandleFrom(0, 1), Stroke: inkStroke(0, 0), Tick: 1},
				{Handle: HandleFrom(0, 1), Stroke: inkStroke(5, 5), Tick: 1},
			},
			ChronoCounter: 2,
		}},
		{"same slot at different generations", &DocumentSnapshot{
			Strokes: []StrokeRecord{
				{Handle: HandleFrom(0, 1), Stroke: inkStroke(0, 0), Tick: 1},
				{Handle: HandleFrom(0, 2), Stroke: inkStroke(5, 5), Tick: 2},
			},
			ChronoCounter: 2,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := st.ImportSnapshot(tt.snap)
			if !errors.Is(err, ErrCorruptSnapshot) {
				t.Fatalf("err = %v, want ErrCorruptSnapshot", err)
			}
			if st.Len() != want {
				t.Fatalf("refused import modified the store: Len = %d, want %d", st.Len(), want)
			}
		})
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	src := NewStore()
	a := src.InsertStroke(inkStroke(0, 0))
	b := src.InsertStroke(inkStroke(100, 100))
	src.Commit()
	if err := src.TrashStroke(b); err != nil {
		t.Fatalf("TrashStroke: %v", err)
	}
	src.Commit()

	snap := src.ExportSnapshot()

	dst := NewStore()
	if err := dst.ImportSnapshot(snap); err != nil {
		t.Fatalf("ImportSnapshot: %v", err)
	}
	if dst.Len() != 2 {
		t.Fatalf("Len = %d, want 2", dst.Len())
	}
	if !dst.IsValid(a) || !dst.IsValid(b) {
		t.Fatal("imported handles should be valid in the new store")
	}
	if trashed, _ := dst.Trashed(b); !trashed {
		t.Fatal("trash flag lost in round trip")
	}
	if dst.CanUndo() {
		t.Fatal("import must restart history")
	}

	// Z-order survives.
	handles := dst.Handles()
	dst.SortByZOrder(handles)
	if handles[0] != a {
		t.Fatal("z-order lost in round trip")
	}
}
