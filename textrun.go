package inkstore

import (
	"hash"
	"image/color"
)

// TextRun is a run of text placed in the document. Extent is the measured
// size of the shaped run in stroke-local units; the textshape subpackage
// produces it from the font data, and render jobs rasterize the run with
// the same font. FontData may be nil, in which case rendering falls back
// to the built-in default face.
type TextRun struct {
	// Text is the run's content.
	Text string
	// FontData is the raw TTF/OTF the run is shaped and drawn with.
	FontData []byte
	// FontSize is the size in document units (1 unit = 1 px at zoom 1).
	FontSize float64
	// Color is the fill color.
	Color color.RGBA
	// Extent is the measured (width, height) of the shaped run.
	Extent Point
}

// NewTextRun creates a text run with a pre-measured extent.
// Use textshape.Measurer to obtain the extent for a font and size.
func NewTextRun(text string, fontData []byte, fontSize float64, col color.RGBA, extent Point) *TextRun {
	return &TextRun{Text: text, FontData: fontData, FontSize: fontSize, Color: col, Extent: extent}
}

func (tr *TextRun) hashInto(h hash.Hash64, put func(uint64), putF func(float64)) {
	_, _ = h.Write([]byte(tr.Text))
	_, _ = h.Write(tr.FontData)
	putF(tr.FontSize)
	put(uint64(tr.Color.R)<<24 | uint64(tr.Color.G)<<16 |
		uint64(tr.Color.B)<<8 | uint64(tr.Color.A))
}
