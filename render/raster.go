package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"math"

	// Decoders for the bitmap payloads render jobs decode.
	_ "image/jpeg"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/gopaper/inkstore"
)

// TileSize is the pixel edge length of rasterization tiles. Strokes larger
// than one tile are split so cancellation has a bounded response time and
// partial viewports don't allocate giant images.
const TileSize = 512

// errUnknownKind guards the closed stroke-kind set.
var errUnknownKind = errors.New("render: unknown stroke kind")

// rasterize renders the part of s covered by region (document space) at the
// given zoom, split into tiles. The context is checked between tiles; a
// cancelled job returns ctx.Err() with the tiles so far discarded.
func rasterize(ctx context.Context, s *inkstore.Stroke, region inkstore.Rect, zoom float64) ([]inkstore.RenderTile, error) {
	target := intersect(s.Bounds(), region)
	if target.IsEmpty() || zoom <= 0 {
		return nil, nil
	}

	// Per-job setup that must not repeat per tile.
	var (
		src  image.Image
		face font.Face
		err  error
	)
	switch s.Kind() {
	case inkstore.KindBitmapImage:
		src, _, err = image.Decode(bytes.NewReader(s.Bitmap().Data))
		if err != nil {
			return nil, err
		}
	case inkstore.KindTextRun:
		face, err = textFace(s.Text(), s.Transform().Scale*zoom)
		if err != nil {
			return nil, err
		}
		defer face.Close()
	}

	tileDoc := TileSize / zoom
	cols := int(math.Ceil(target.Width() / tileDoc))
	rows := int(math.Ceil(target.Height() / tileDoc))

	tiles := make([]inkstore.RenderTile, 0, cols*rows)
	for row := 0; row < rows; row++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for col := 0; col < cols; col++ {
			tileRect := inkstore.R(
				target.Min.X+float64(col)*tileDoc,
				target.Min.Y+float64(row)*tileDoc,
				math.Min(target.Min.X+float64(col+1)*tileDoc, target.Max.X),
				math.Min(target.Min.Y+float64(row+1)*tileDoc, target.Max.Y),
			)
			w := int(math.Ceil(tileRect.Width() * zoom))
			h := int(math.Ceil(tileRect.Height() * zoom))
			if w <= 0 || h <= 0 {
				continue
			}
			img := image.NewRGBA(image.Rect(0, 0, w, h))
			if err := drawStroke(img, s, src, face, tileRect.Min, zoom); err != nil {
				return nil, err
			}
			tiles = append(tiles, inkstore.RenderTile{Rect: tileRect, Image: img})
		}
	}
	return tiles, nil
}

// drawStroke paints s into one tile image whose top-left pixel corresponds
// to the document point origin.
func drawStroke(dst *image.RGBA, s *inkstore.Stroke, src image.Image, face font.Face, origin inkstore.Point, zoom float64) error {
	switch s.Kind() {
	case inkstore.KindInkPath:
		drawInk(dst, s.Ink(), s.Transform(), origin, zoom)
	case inkstore.KindBitmapImage:
		drawAffine(dst, src, s.Bitmap().Size, s.Transform(), origin, zoom)
	case inkstore.KindVectorImage:
		drawVector(dst, s.Vector(), s.Transform(), origin, zoom)
	case inkstore.KindTextRun:
		drawText(dst, s.Text(), face, s.Transform(), origin, zoom)
	default:
		return errUnknownKind
	}
	return nil
}

// drawInk rasterizes the pen ribbon: one quad per segment plus an octagon
// cap at every sample point, with the half width modulated by pressure.
func drawInk(dst *image.RGBA, path *inkstore.InkPath, tf inkstore.Transform, origin inkstore.Point, zoom float64) {
	if len(path.Points) == 0 {
		return
	}
	ras := vector.NewRasterizer(dst.Bounds().Dx(), dst.Bounds().Dy())
	ras.DrawOp = xdraw.Over

	toPx := func(p inkstore.Point) (float32, float32) {
		d := tf.Apply(p)
		return float32((d.X - origin.X) * zoom), float32((d.Y - origin.Y) * zoom)
	}
	radius := func(pressure float64) float32 {
		if pressure < 0.1 {
			pressure = 0.1
		} else if pressure > 1 {
			pressure = 1
		}
		return float32(path.Style.Width / 2 * pressure * tf.Scale * zoom)
	}

	for i, pt := range path.Points {
		x, y := toPx(pt.Pos)
		r := radius(pt.Pressure)
		octagon(ras, x, y, r)
		if i == 0 {
			continue
		}
		px, py := toPx(path.Points[i-1].Pos)
		quad(ras, px, py, radius(path.Points[i-1].Pressure), x, y, r)
	}
	ras.Draw(dst, dst.Bounds(), image.NewUniform(path.Style.Color), image.Point{})
}

// quad adds the ribbon segment between two samples with per-end radii.
func quad(ras *vector.Rasterizer, ax, ay, ar, bx, by, br float32) {
	dx, dy := bx-ax, by-ay
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length == 0 {
		return
	}
	nx, ny := -dy/length, dx/length
	ras.MoveTo(ax+nx*ar, ay+ny*ar)
	ras.LineTo(bx+nx*br, by+ny*br)
	ras.LineTo(bx-nx*br, by-ny*br)
	ras.LineTo(ax-nx*ar, ay-ny*ar)
	ras.ClosePath()
}

// octagon approximates a round cap; eight sides are visually round at pen
// widths and far cheaper than arcs.
func octagon(ras *vector.Rasterizer, cx, cy, r float32) {
	if r <= 0 {
		return
	}
	const sides = 8
	for i := 0; i <= sides; i++ {
		a := 2 * math.Pi * float64(i) / sides
		x := cx + r*float32(math.Cos(a))
		y := cy + r*float32(math.Sin(a))
		if i == 0 {
			ras.MoveTo(x, y)
		} else {
			ras.LineTo(x, y)
		}
	}
	ras.ClosePath()
}

// drawAffine paints src into the tile under the stroke transform, scaling
// the intrinsic pixel grid to the stroke's document-space size.
func drawAffine(dst *image.RGBA, src image.Image, size inkstore.Point, tf inkstore.Transform, origin inkstore.Point, zoom float64) {
	sb := src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 || size.X == 0 || size.Y == 0 {
		return
	}
	sx := size.X / float64(sb.Dx())
	sy := size.Y / float64(sb.Dy())
	sin, cos := math.Sincos(tf.Rotation)
	k := tf.Scale * zoom
	m := f64.Aff3{
		k * cos * sx, -k * sin * sy, (tf.Translation.X - origin.X) * zoom,
		k * sin * sx, k * cos * sy, (tf.Translation.Y - origin.Y) * zoom,
	}
	xdraw.ApproxBiLinear.Transform(dst, m, src, sb, xdraw.Over, nil)
}

// drawVector paints a vector image's preview raster if the importer
// supplied one, and a translucent placeholder otherwise. The SVG bytes are
// opaque to this package.
func drawVector(dst *image.RGBA, v *inkstore.VectorImage, tf inkstore.Transform, origin inkstore.Point, zoom float64) {
	if v.Preview != nil {
		drawAffine(dst, v.Preview, v.Size, tf, origin, zoom)
		return
	}
	placeholder := image.NewUniform(color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0x40})
	local := inkstore.Rect{Max: v.Size}
	docBox := tf.ApplyRect(local)
	px := image.Rect(
		int((docBox.Min.X-origin.X)*zoom), int((docBox.Min.Y-origin.Y)*zoom),
		int((docBox.Max.X-origin.X)*zoom), int((docBox.Max.Y-origin.Y)*zoom),
	)
	xdraw.Draw(dst, px.Intersect(dst.Bounds()), placeholder, image.Point{}, xdraw.Over)
}

// drawText paints a shaped run with its baseline at the face's ascent under
// the run's top-left origin. Rotation is not applied to glyphs; rotated
// text keeps its measured bounds but draws axis aligned.
func drawText(dst *image.RGBA, run *inkstore.TextRun, face font.Face, tf inkstore.Transform, origin inkstore.Point, zoom float64) {
	anchor := tf.Apply(inkstore.Point{})
	metrics := face.Metrics()
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(run.Color),
		Face: face,
		Dot: fixed.Point26_6{
			X: floatToFixed((anchor.X - origin.X) * zoom),
			Y: floatToFixed((anchor.Y-origin.Y)*zoom) + metrics.Ascent,
		},
	}
	d.DrawString(run.Text)
}

// textFace builds the drawing face for a run, scaled by the combined
// stroke scale and zoom, falling back to the bundled Go Regular when the
// run carries no font.
func textFace(run *inkstore.TextRun, scale float64) (font.Face, error) {
	data := run.FontData
	if len(data) == 0 {
		data = goregular.TTF
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    run.FontSize * scale,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

func floatToFixed(v float64) fixed.Int26_6 { return fixed.Int26_6(v * 64) }

// intersect clips a to b; an empty result reports IsEmpty.
func intersect(a, b inkstore.Rect) inkstore.Rect {
	return inkstore.Rect{
		Min: inkstore.Point{X: math.Max(a.Min.X, b.Min.X), Y: math.Max(a.Min.Y, b.Min.Y)},
		Max: inkstore.Point{X: math.Min(a.Max.X, b.Max.X), Y: math.Min(a.Max.Y, b.Max.Y)},
	}
}
