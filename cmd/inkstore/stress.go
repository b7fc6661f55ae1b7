package main

import (
	"fmt"
	"image/color"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/gopaper/inkstore"
	"github.com/gopaper/inkstore/render"
)

var (
	stressRounds int
	stressSeed   int64
)

// stressCmd hammers the store with randomized edits, undo/redo traversal
// and concurrent render requests, cross-checking the spatial index against
// a brute-force scan after every round.
var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Randomized store/history/render stress test",
	RunE: func(cmd *cobra.Command, args []string) error {
		seed := stressSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng := rand.New(rand.NewSource(seed))
		slog.Info("stress starting", slog.Int64("seed", seed), slog.Int("rounds", stressRounds))

		store := inkstore.NewStore()
		dispatcher := render.NewDispatcher(store)
		defer dispatcher.Close()

		var rendered atomic.Int64
		dispatcher.Subscribe(func(ev render.Event) {
			if ev.Err == nil {
				rendered.Add(1)
			}
		})

		for round := 0; round < stressRounds; round++ {
			mutateRandomly(store, rng)
			viewport := inkstore.R(0, 0, 400, 400).Translate(
				inkstore.Pt(rng.Float64()*200, rng.Float64()*200))
			dispatcher.RequestRender(viewport, 1+rng.Float64())
			if err := checkViewportQuery(store, viewport); err != nil {
				return fmt.Errorf("round %d (seed %d): %w", round, seed, err)
			}
		}

		stats := dispatcher.CacheStats()
		fmt.Printf("ok: %d rounds, %d strokes live, %d renders installed, cache %d entries / %d bytes\n",
			stressRounds, store.Len(), rendered.Load(), stats.Len, stats.UsedBytes)
		return nil
	},
}

// mutateRandomly applies one randomized gesture to the store.
func mutateRandomly(store *inkstore.Store, rng *rand.Rand) {
	switch rng.Intn(10) {
	case 0, 1, 2, 3:
		insertRandomStroke(store, rng)
		store.Commit()
	case 4:
		if handles := store.Handles(); len(handles) > 0 {
			_ = store.TrashStroke(handles[rng.Intn(len(handles))])
			store.Commit()
		}
	case 5:
		if handles := store.Handles(); len(handles) > 0 {
			_, _ = store.RemoveStroke(handles[rng.Intn(len(handles))])
			store.Commit()
		}
	case 6:
		if handles := store.Handles(); len(handles) > 0 {
			h := handles[rng.Intn(len(handles))]
			if err := store.Select(h); err == nil {
				store.TranslateSelection(inkstore.Pt(rng.Float64()*40-20, rng.Float64()*40-20))
				store.Commit()
			}
		}
	case 7:
		_, _ = store.Undo()
	case 8:
		_, _ = store.Redo()
	case 9:
		store.EmptyTrash()
		store.Commit()
	}
}

func insertRandomStroke(store *inkstore.Store, rng *rand.Rand) {
	origin := inkstore.Pt(rng.Float64()*600, rng.Float64()*600)
	points := make([]inkstore.InkPoint, 2+rng.Intn(30))
	for i := range points {
		points[i] = inkstore.InkPoint{
			Pos:      origin.Add(inkstore.Pt(rng.Float64()*80, rng.Float64()*80)),
			Pressure: rng.Float64(),
		}
	}
	style := inkstore.InkStyle{
		Width: 1 + rng.Float64()*8,
		Color: color.RGBA{R: uint8(rng.Intn(256)), G: uint8(rng.Intn(256)), B: uint8(rng.Intn(256)), A: 255},
	}
	store.InsertStroke(inkstore.NewInkStroke(inkstore.NewInkPath(points, style)))
}

// checkViewportQuery cross-checks the spatial index against a brute-force
// scan over every live stroke.
func checkViewportQuery(store *inkstore.Store, viewport inkstore.Rect) error {
	got := make(map[inkstore.Handle]bool)
	for _, h := range store.StrokesInViewport(viewport) {
		got[h] = true
	}
	for _, h := range store.Handles() {
		s, ok := store.Stroke(h)
		if !ok {
			return fmt.Errorf("handle from Handles() not resolvable")
		}
		trashed, err := store.Trashed(h)
		if err != nil {
			return err
		}
		want := !trashed && viewport.Intersects(s.Bounds())
		if want != got[h] {
			return fmt.Errorf("viewport query mismatch: want %v got %v for bounds %+v", want, got[h], s.Bounds())
		}
	}
	return nil
}

func init() {
	stressCmd.Flags().IntVar(&stressRounds, "rounds", 500, "Number of randomized rounds")
	stressCmd.Flags().Int64Var(&stressSeed, "seed", 0, "RNG seed (0 picks one from the clock)")
	rootCmd.AddCommand(stressCmd)
}
