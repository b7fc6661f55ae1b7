package inkstore

import "image/color"

// PageLayout selects how the document's page area behaves.
type PageLayout uint8

const (
	// LayoutFixed is a fixed page size; content may still overflow it.
	LayoutFixed PageLayout = iota
	// LayoutInfinite grows the document with its content in all directions.
	LayoutInfinite
)

// BackgroundPattern is the pattern drawn behind the strokes.
type BackgroundPattern uint8

const (
	PatternNone BackgroundPattern = iota
	PatternLines
	PatternGrid
	PatternDots
)

// Background describes the page background.
type Background struct {
	Color color.RGBA
	// Pattern is drawn in PatternColor with the given spacing in document
	// units. Ignored for PatternNone.
	Pattern        BackgroundPattern
	PatternColor   color.RGBA
	PatternSpacing float64
}

// DocumentMeta is the document-wide metadata carried alongside the strokes:
// page layout and background. It is a plain value, copied into every history
// snapshot and document snapshot.
type DocumentMeta struct {
	Layout PageLayout
	// PageSize is the page extent for LayoutFixed; unused for LayoutInfinite.
	PageSize   Point
	Background Background
}

// DefaultDocumentMeta returns an infinite white document with a dot grid.
func DefaultDocumentMeta() DocumentMeta {
	return DocumentMeta{
		Layout: LayoutInfinite,
		Background: Background{
			Color:          color.RGBA{R: 255, G: 255, B: 255, A: 255},
			Pattern:        PatternDots,
			PatternColor:   color.RGBA{R: 200, G: 200, B: 200, A: 255},
			PatternSpacing: 32,
		},
	}
}
