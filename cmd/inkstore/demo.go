package main

import (
	"context"
	"fmt"
	"image/color"
	"image/png"
	"log/slog"
	"math"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/gopaper/inkstore"
	"github.com/gopaper/inkstore/render"
	"github.com/gopaper/inkstore/textshape"
)

var (
	demoOut  string
	demoZoom float64
)

// demoCmd builds a small sample document and renders it to a PNG, going
// through the same store, session and rasterizer the library exposes.
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Render a sample document to PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := inkstore.NewStore()
		session := inkstore.NewSession(store)

		if err := drawSample(session); err != nil {
			return err
		}
		slog.Info("sample document built",
			slog.Int("strokes", store.Len()), slog.Bool("undo", store.CanUndo()))

		viewport := store.DocumentBounds().Expand(24)
		frame, err := render.Frame(context.Background(), store, viewport, demoZoom)
		if err != nil {
			return err
		}
		f, err := os.Create(demoOut)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := png.Encode(f, frame); err != nil {
			return err
		}
		fmt.Printf("wrote %s (%dx%d)\n", demoOut, frame.Bounds().Dx(), frame.Bounds().Dy())
		return nil
	},
}

// drawSample draws a highlighter band, a pressure-varying sine stroke and a
// caption, each as its own gesture.
func drawSample(session *inkstore.Session) error {
	highlight := inkstore.InkStyle{
		Width:       28,
		Color:       color.RGBA{R: 255, G: 230, B: 80, A: 110},
		Highlighter: true,
	}
	if _, err := session.BeginStroke(inkstore.InkPoint{Pos: inkstore.Pt(40, 80), Pressure: 1}, highlight); err != nil {
		return err
	}
	if err := session.AppendPoint(inkstore.InkPoint{Pos: inkstore.Pt(360, 80), Pressure: 1}); err != nil {
		return err
	}
	if _, err := session.EndStroke(); err != nil {
		return err
	}

	ink := inkstore.InkStyle{Width: 4, Color: color.RGBA{R: 20, G: 40, B: 160, A: 255}}
	first := sinePoint(0)
	if _, err := session.BeginStroke(first, ink); err != nil {
		return err
	}
	for i := 1; i <= 96; i++ {
		if err := session.AppendPoint(sinePoint(i)); err != nil {
			return err
		}
	}
	if _, err := session.EndStroke(); err != nil {
		return err
	}

	measurer := textshape.NewMeasurer()
	ext, err := measurer.Measure(goregular.TTF, "inkstore demo", 24)
	if err != nil {
		return err
	}
	run := inkstore.NewTextRun("inkstore demo", goregular.TTF, 24,
		color.RGBA{R: 30, G: 30, B: 30, A: 255}, inkstore.Pt(ext.Width, ext.Height()))
	tf := inkstore.IdentityTransform()
	tf.Translation = inkstore.Pt(40, 190)
	session.Store().InsertStroke(inkstore.NewTextStroke(run, tf))
	session.Store().Commit()
	return nil
}

func sinePoint(i int) inkstore.InkPoint {
	t := float64(i) / 96
	return inkstore.InkPoint{
		Pos:      inkstore.Pt(40+t*320, 130+24*math.Sin(t*4*math.Pi)),
		Pressure: 0.35 + 0.65*math.Abs(math.Sin(t*2*math.Pi)),
	}
}

func init() {
	demoCmd.Flags().StringVarP(&demoOut, "out", "o", "demo.png", "Output PNG path")
	demoCmd.Flags().Float64Var(&demoZoom, "zoom", 2, "Zoom factor to render at")
	rootCmd.AddCommand(demoCmd)
}
