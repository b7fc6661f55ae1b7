package render

import (
	"context"
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/gopaper/inkstore"
)

// Frame synchronously composes every visible stroke of the viewport into a
// single RGBA image at the given zoom, bottom layer first. It bypasses the
// dispatcher and the store's render cache entirely; it exists for exports
// and headless snapshots, where blocking is fine and caching is pointless.
func Frame(ctx context.Context, store *inkstore.Store, viewport inkstore.Rect, zoom float64) (*image.RGBA, error) {
	w := int(viewport.Width() * zoom)
	h := int(viewport.Height() * zoom)
	if w <= 0 || h <= 0 {
		return nil, nil
	}
	frame := image.NewRGBA(image.Rect(0, 0, w, h))
	fillBackground(frame, store.DocumentMeta())

	handles := store.StrokesInViewport(viewport)
	store.SortByZOrder(handles)
	for _, hd := range handles {
		s, ok := store.Stroke(hd)
		if !ok {
			continue
		}
		tiles, err := rasterize(ctx, s, viewport, zoom)
		if err != nil {
			return nil, err
		}
		for _, t := range tiles {
			blitTile(frame, t, viewport.Min, zoom)
		}
	}
	return frame, nil
}

// blitTile draws one document-space tile into the frame.
func blitTile(frame *image.RGBA, t inkstore.RenderTile, origin inkstore.Point, zoom float64) {
	x := int((t.Rect.Min.X - origin.X) * zoom)
	y := int((t.Rect.Min.Y - origin.Y) * zoom)
	b := t.Image.Bounds()
	dst := image.Rect(x, y, x+b.Dx(), y+b.Dy())
	xdraw.Draw(frame, dst, t.Image, b.Min, xdraw.Over)
}

// fillBackground flats the page color; pattern decorations are a painter
// concern, not a raster one.
func fillBackground(frame *image.RGBA, meta inkstore.DocumentMeta) {
	xdraw.Draw(frame, frame.Bounds(), image.NewUniform(meta.Background.Color), image.Point{}, xdraw.Src)
}
