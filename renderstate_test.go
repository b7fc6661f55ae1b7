package inkstore

import (
	"errors"
	"image"
	"testing"
)

func tileFor(s *Stroke) []RenderTile {
	b := s.Bounds()
	return []RenderTile{{
		Rect:  b,
		Image: image.NewRGBA(image.Rect(0, 0, int(b.Width())+1, int(b.Height())+1)),
	}}
}

func claimOne(t *testing.T, st *Store, vp Rect) RenderCandidate {
	t.Helper()
	cands := st.RenderCandidates(vp, 1, false)
	if len(cands) != 1 {
		t.Fatalf("claimed %d candidates, want 1", len(cands))
	}
	return cands[0]
}

func TestRenderClaimAndInstall(t *testing.T) {
	st := NewStore()
	h := st.InsertStroke(inkStroke(10, 10))
	vp := R(0, 0, 200, 200)

	cand := claimOne(t, st, vp)
	if cand.Handle != h {
		t.Fatalf("claimed %v, want %v", cand.Handle, h)
	}
	if state, _ := st.RenderStateOf(h); state != RenderPending {
		t.Fatalf("state = %v, want pending after claim", state)
	}

	// A second request must not re-claim the pending stroke.
	if again := st.RenderCandidates(vp, 1, false); len(again) != 0 {
		t.Fatalf("pending stroke re-claimed: %v", again)
	}

	if err := st.InstallRendering(h, cand.Version, 1, vp, true, tileFor(cand.Stroke)); err != nil {
		t.Fatalf("InstallRendering: %v", err)
	}
	if state, _ := st.RenderStateOf(h); state != RenderClean {
		t.Fatalf("state = %v, want clean after install", state)
	}
	if tiles, zoom, ok := st.RenderTiles(h); !ok || len(tiles) != 1 || zoom != 1 {
		t.Fatalf("RenderTiles = %v tiles zoom=%v ok=%v", len(tiles), zoom, ok)
	}

	// Clean at the same zoom: nothing to do.
	if again := st.RenderCandidates(vp, 1, false); len(again) != 0 {
		t.Fatalf("clean stroke re-claimed: %v", again)
	}
}

func TestRenderInstallRejectsSupersededJob(t *testing.T) {
	st := NewStore()
	h := st.InsertStroke(inkStroke(10, 10))
	vp := R(0, 0, 200, 200)

	cand := claimOne(t, st, vp)

	// The stroke mutates while the job is in flight.
	if err := st.UpdateStroke(h, func(s *Stroke) *Stroke { return s.Translated(Pt(1, 1)) }); err != nil {
		t.Fatalf("UpdateStroke: %v", err)
	}

	err := st.InstallRendering(h, cand.Version, 1, vp, true, tileFor(cand.Stroke))
	if !errors.Is(err, ErrStaleRender) {
		t.Fatalf("install of superseded job: err = %v, want ErrStaleRender", err)
	}
	if state, _ := st.RenderStateOf(h); state != RenderDirty {
		t.Fatalf("state = %v, want dirty after rejected install", state)
	}

	// The re-claimed job installs fine.
	cand = claimOne(t, st, vp)
	if err := st.InstallRendering(h, cand.Version, 1, vp, true, tileFor(cand.Stroke)); err != nil {
		t.Fatalf("install of current job: %v", err)
	}
}

func TestRenderRejectedInstallKeepsSupersedingClaim(t *testing.T) {
	st := NewStore()
	h := st.InsertStroke(inkStroke(10, 10))
	vp := R(0, 0, 200, 200)

	old := claimOne(t, st, vp)

	// Mutation supersedes the first job, and a second job claims the new
	// content before the first one reports back.
	if err := st.UpdateStroke(h, func(s *Stroke) *Stroke { return s.Translated(Pt(1, 1)) }); err != nil {
		t.Fatalf("UpdateStroke: %v", err)
	}
	cur := claimOne(t, st, vp)

	// The old job's rejection must not disturb the newer claim.
	err := st.InstallRendering(h, old.Version, 1, vp, true, tileFor(old.Stroke))
	if !errors.Is(err, ErrStaleRender) {
		t.Fatalf("install of superseded job: err = %v, want ErrStaleRender", err)
	}
	if state, _ := st.RenderStateOf(h); state != RenderPending {
		t.Fatalf("state = %v, want pending while the newer job is in flight", state)
	}
	if dup := st.RenderCandidates(vp, 1, false); len(dup) != 0 {
		t.Fatalf("in-flight stroke re-claimed after rejected install: %v", dup)
	}

	if err := st.InstallRendering(h, cur.Version, 1, vp, true, tileFor(cur.Stroke)); err != nil {
		t.Fatalf("install of current job: %v", err)
	}
	if state, _ := st.RenderStateOf(h); state != RenderClean {
		t.Fatalf("state = %v, want clean", state)
	}
}

func TestRenderInstallRejectsStaleHandle(t *testing.T) {
	st := NewStore()
	h := st.InsertStroke(inkStroke(10, 10))
	cand := claimOne(t, st, R(0, 0, 200, 200))
	if _, err := st.RemoveStroke(h); err != nil {
		t.Fatalf("RemoveStroke: %v", err)
	}

	err := st.InstallRendering(h, cand.Version, 1, R(0, 0, 200, 200), true, tileFor(cand.Stroke))
	if !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("err = %v, want ErrInvalidHandle", err)
	}
}

func TestRenderZoomChangeReclaims(t *testing.T) {
	st := NewStore()
	h := st.InsertStroke(inkStroke(10, 10))
	vp := R(0, 0, 200, 200)

	cand := claimOne(t, st, vp)
	if err := st.InstallRendering(h, cand.Version, 1, vp, true, tileFor(cand.Stroke)); err != nil {
		t.Fatalf("InstallRendering: %v", err)
	}

	// Within tolerance: still clean.
	if cands := st.RenderCandidates(vp, 1.005, false); len(cands) != 0 {
		t.Fatalf("re-claimed within zoom tolerance: %v", cands)
	}
	// Beyond tolerance: re-render.
	if cands := st.RenderCandidates(vp, 2, false); len(cands) != 1 {
		t.Fatalf("not re-claimed after zoom change: %v", cands)
	}
}

func TestRenderFailedStrokeNotRetriedWithoutForce(t *testing.T) {
	st := NewStore()
	h := st.InsertStroke(inkStroke(10, 10))
	vp := R(0, 0, 200, 200)

	cand := claimOne(t, st, vp)
	st.MarkRenderFailed(h, cand.Version)
	if state, _ := st.RenderStateOf(h); state != RenderFailed {
		t.Fatalf("state = %v, want failed", state)
	}

	if cands := st.RenderCandidates(vp, 1, false); len(cands) != 0 {
		t.Fatal("failed stroke re-claimed without force")
	}
	if cands := st.RenderCandidates(vp, 1, true); len(cands) != 1 {
		t.Fatal("failed stroke not re-claimed with force")
	}
}

func TestRenderReleaseReturnsClaimToDirty(t *testing.T) {
	st := NewStore()
	h := st.InsertStroke(inkStroke(10, 10))
	cand := claimOne(t, st, R(0, 0, 200, 200))

	st.ReleaseRender(h, cand.Version)
	if state, _ := st.RenderStateOf(h); state != RenderDirty {
		t.Fatalf("state = %v, want dirty after release", state)
	}
}

func TestRenderTrashedStrokeNotClaimed(t *testing.T) {
	st := NewStore()
	h := st.InsertStroke(inkStroke(10, 10))
	if err := st.TrashStroke(h); err != nil {
		t.Fatalf("TrashStroke: %v", err)
	}
	if cands := st.RenderCandidates(R(0, 0, 200, 200), 1, false); len(cands) != 0 {
		t.Fatalf("trashed stroke claimed: %v", cands)
	}
}

func TestRenderOutsideViewportReleasesTiles(t *testing.T) {
	st := NewStore()
	h := st.InsertStroke(inkStroke(10, 10))
	vp := R(0, 0, 200, 200)

	cand := claimOne(t, st, vp)
	if err := st.InstallRendering(h, cand.Version, 1, vp, true, tileFor(cand.Stroke)); err != nil {
		t.Fatalf("InstallRendering: %v", err)
	}

	// A far-away viewport drops the tiles to bound memory.
	if cands := st.RenderCandidates(R(5000, 5000, 5200, 5200), 1, false); len(cands) != 0 {
		t.Fatalf("out-of-view stroke claimed: %v", cands)
	}
	if _, _, ok := st.RenderTiles(h); ok {
		t.Fatal("tiles not released for out-of-view stroke")
	}
	if state, _ := st.RenderStateOf(h); state != RenderDirty {
		t.Fatalf("state = %v, want dirty after tile release", state)
	}
}

func TestUndoRejectsInFlightInstalls(t *testing.T) {
	st := NewStore()
	h := st.InsertStroke(inkStroke(10, 10))
	st.Commit()
	if err := st.UpdateStroke(h, func(s *Stroke) *Stroke { return s.Translated(Pt(50, 0)) }); err != nil {
		t.Fatalf("UpdateStroke: %v", err)
	}
	st.Commit()

	cand := claimOne(t, st, R(0, 0, 400, 400))

	if ok, err := st.Undo(); !ok || err != nil {
		t.Fatalf("Undo: ok=%v err=%v", ok, err)
	}

	// The job claimed before the undo must not install over the restored state.
	err := st.InstallRendering(h, cand.Version, 1, R(0, 0, 400, 400), true, tileFor(cand.Stroke))
	if !errors.Is(err, ErrStaleRender) {
		t.Fatalf("err = %v, want ErrStaleRender after undo", err)
	}
}

func TestRenderInvalidationHookFires(t *testing.T) {
	st := NewStore()
	h := st.InsertStroke(inkStroke(10, 10))

	var invalidated []Handle
	st.SetRenderInvalidation(func(hs []Handle) {
		invalidated = append(invalidated, hs...)
	})

	if _, err := st.RemoveStroke(h); err != nil {
		t.Fatalf("RemoveStroke: %v", err)
	}
	if len(invalidated) != 1 || invalidated[0] != h {
		t.Fatalf("invalidated = %v, want [%v]", invalidated, h)
	}

	invalidated = nil
	h2 := st.InsertStroke(inkStroke(20, 20))
	if err := st.TrashStroke(h2); err != nil {
		t.Fatalf("TrashStroke: %v", err)
	}
	if len(invalidated) != 1 || invalidated[0] != h2 {
		t.Fatalf("invalidated after trash = %v, want [%v]", invalidated, h2)
	}
}
