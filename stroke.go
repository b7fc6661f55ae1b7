package inkstore

import (
	"encoding/binary"
	"hash/fnv"
	"math"
)

// Kind identifies the geometry variant of a stroke. The set is closed:
// every operation on strokes switches exhaustively over these values.
type Kind uint8

const (
	// KindInkPath is a pressure-carrying freehand path.
	KindInkPath Kind = iota
	// KindBitmapImage is an imported raster image (encoded bytes).
	KindBitmapImage
	// KindVectorImage is an imported vector image (opaque SVG bytes).
	KindVectorImage
	// KindTextRun is a run of shaped text.
	KindTextRun
)

// String returns the kind name for logging.
func (k Kind) String() string {
	switch k {
	case KindInkPath:
		return "ink"
	case KindBitmapImage:
		return "bitmap"
	case KindVectorImage:
		return "vector"
	case KindTextRun:
		return "text"
	default:
		return "unknown"
	}
}

// Layer is the coarse z-band a stroke is drawn in. Within one layer,
// strokes are ordered by their chrono tick (insertion/touch order).
// Higher values draw on top.
type Layer int32

const (
	// LayerDocument is the bottom-most band (backgrounds, page decorations).
	LayerDocument Layer = iota
	// LayerImage holds imported raster and vector images.
	LayerImage
	// LayerHighlighter draws under regular ink so highlights don't cover it.
	LayerHighlighter
	// layerUserBase is the first user ink layer; see UserLayer.
	layerUserBase
)

// UserLayer returns the n-th user ink layer (n >= 0).
func UserLayer(n int32) Layer {
	if n < 0 {
		n = 0
	}
	return layerUserBase + Layer(n)
}

// Stroke is one drawable element of a document: a geometry variant, a
// transform placing it in document space, and derived cached data (bounding
// box, content hash).
//
// Strokes are immutable once inserted into a store. Store.UpdateStroke
// replaces the stroke wholesale under the same handle; the mutator returns
// a derived copy (for example via Translated). Immutability is what lets
// history snapshots and render jobs share strokes without copying.
type Stroke struct {
	kind      Kind
	ink       *InkPath
	bitmap    *BitmapImage
	vector    *VectorImage
	text      *TextRun
	transform Transform
	layer     Layer

	bounds Rect   // document space, derived
	hash   uint64 // derived, see ContentHash
}

// NewInkStroke creates a stroke from a freehand path. The path is placed at
// the identity transform; coordinates are already in document space.
func NewInkStroke(path *InkPath) *Stroke {
	layer := UserLayer(0)
	if path.Style.Highlighter {
		layer = LayerHighlighter
	}
	return finishStroke(&Stroke{kind: KindInkPath, ink: path, transform: IdentityTransform(), layer: layer})
}

// NewBitmapStroke creates a stroke from an imported raster image placed at
// the given transform.
func NewBitmapStroke(img *BitmapImage, tf Transform) *Stroke {
	return finishStroke(&Stroke{kind: KindBitmapImage, bitmap: img, transform: tf, layer: LayerImage})
}

// NewVectorStroke creates a stroke from an imported vector image placed at
// the given transform.
func NewVectorStroke(img *VectorImage, tf Transform) *Stroke {
	return finishStroke(&Stroke{kind: KindVectorImage, vector: img, transform: tf, layer: LayerImage})
}

// NewTextStroke creates a stroke from a text run placed at the given
// transform.
func NewTextStroke(run *TextRun, tf Transform) *Stroke {
	return finishStroke(&Stroke{kind: KindTextRun, text: run, transform: tf, layer: UserLayer(0)})
}

// finishStroke computes the derived fields. Called once per stroke value.
func finishStroke(s *Stroke) *Stroke {
	s.bounds = s.transform.ApplyRect(s.localBounds())
	s.hash = s.computeHash()
	return s
}

// Kind returns the geometry variant of the stroke.
func (s *Stroke) Kind() Kind { return s.kind }

// Layer returns the z-band the stroke is drawn in.
func (s *Stroke) Layer() Layer { return s.layer }

// Transform returns the stroke's placement in the document.
func (s *Stroke) Transform() Transform { return s.transform }

// Bounds returns the cached document-space bounding box.
func (s *Stroke) Bounds() Rect { return s.bounds }

// Ink returns the ink path payload, or nil for other kinds.
func (s *Stroke) Ink() *InkPath { return s.ink }

// Bitmap returns the raster image payload, or nil for other kinds.
func (s *Stroke) Bitmap() *BitmapImage { return s.bitmap }

// Vector returns the vector image payload, or nil for other kinds.
func (s *Stroke) Vector() *VectorImage { return s.vector }

// Text returns the text run payload, or nil for other kinds.
func (s *Stroke) Text() *TextRun { return s.text }

// ContentHash returns a 64-bit FNV-1a hash of the stroke's content: the
// geometry payload, its style, and the scale/rotation parts of the
// transform. Translation is excluded so identical strokes pasted at
// different positions share rasterizations in the tile cache.
func (s *Stroke) ContentHash() uint64 { return s.hash }

// WithLayer returns a copy of the stroke in the given layer.
func (s *Stroke) WithLayer(layer Layer) *Stroke {
	c := *s
	c.layer = layer
	return finishStroke(&c)
}

// Translated returns a copy of the stroke shifted by delta.
func (s *Stroke) Translated(delta Point) *Stroke {
	c := *s
	c.transform = c.transform.Translated(delta)
	return finishStroke(&c)
}

// WithTransform returns a copy of the stroke at the given placement.
func (s *Stroke) WithTransform(tf Transform) *Stroke {
	c := *s
	c.transform = tf
	return finishStroke(&c)
}

// localBounds returns the payload bounds in stroke-local coordinates.
func (s *Stroke) localBounds() Rect {
	switch s.kind {
	case KindInkPath:
		return s.ink.bounds()
	case KindBitmapImage:
		return Rect{Max: s.bitmap.Size}
	case KindVectorImage:
		return Rect{Max: s.vector.Size}
	case KindTextRun:
		return Rect{Max: s.text.Extent}
	default:
		return Rect{}
	}
}

// HitDistance returns the exact distance from p to the stroke's visible
// geometry, 0 if p is on it. The spatial index only provides a coarse bbox
// candidate; this is the refinement HitTest applies.
func (s *Stroke) HitDistance(p Point) float64 {
	switch s.kind {
	case KindInkPath:
		return s.ink.distanceTo(s.transform, p)
	case KindBitmapImage, KindVectorImage, KindTextRun:
		// Box-shaped content: the bounding box is the geometry.
		return s.bounds.DistanceToPoint(p)
	default:
		return math.Inf(1)
	}
}

func (s *Stroke) computeHash() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:]) // fnv.Write never returns an error
	}
	putF := func(f float64) { put(math.Float64bits(f)) }

	put(uint64(s.kind))
	put(uint64(s.layer))
	putF(s.transform.Rotation)
	putF(s.transform.Scale)

	switch s.kind {
	case KindInkPath:
		s.ink.hashInto(put, putF)
	case KindBitmapImage:
		_, _ = h.Write(s.bitmap.Data)
	case KindVectorImage:
		_, _ = h.Write(s.vector.SVG)
	case KindTextRun:
		s.text.hashInto(h, put, putF)
	}
	return h.Sum64()
}
