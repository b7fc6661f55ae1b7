package inkstore

import (
	"image/color"
	"math"
)

// InkPoint is one sampled pen position with its pressure in [0, 1].
type InkPoint struct {
	Pos      Point
	Pressure float64
}

// InkStyle describes how an ink path is drawn.
type InkStyle struct {
	// Width is the full stroke width at pressure 1.
	Width float64
	// Color is the ink color.
	Color color.RGBA
	// Highlighter marks translucent marker ink drawn under regular ink.
	Highlighter bool
}

// InkPath is a freehand path: the polyline of sampled pen positions plus
// the style it is drawn with. Coordinates are stroke-local.
type InkPath struct {
	Points []InkPoint
	Style  InkStyle
}

// NewInkPath creates an ink path from sampled points.
func NewInkPath(points []InkPoint, style InkStyle) *InkPath {
	return &InkPath{Points: points, Style: style}
}

// bounds returns the path's bounds including the stroke width margin.
func (ip *InkPath) bounds() Rect {
	if len(ip.Points) == 0 {
		return Rect{}
	}
	b := Rect{
		Min: Point{math.Inf(1), math.Inf(1)},
		Max: Point{math.Inf(-1), math.Inf(-1)},
	}
	for _, pt := range ip.Points {
		b.Min.X = math.Min(b.Min.X, pt.Pos.X)
		b.Min.Y = math.Min(b.Min.Y, pt.Pos.Y)
		b.Max.X = math.Max(b.Max.X, pt.Pos.X)
		b.Max.Y = math.Max(b.Max.Y, pt.Pos.Y)
	}
	return b.Expand(ip.Style.Width / 2)
}

// distanceTo returns the distance from p (document space) to the drawn
// path under the given transform, 0 when p lies on the inked area.
func (ip *InkPath) distanceTo(tf Transform, p Point) float64 {
	if len(ip.Points) == 0 {
		return math.Inf(1)
	}
	halfWidth := ip.Style.Width * tf.Scale / 2
	best := math.Inf(1)
	prev := tf.Apply(ip.Points[0].Pos)
	if len(ip.Points) == 1 {
		best = prev.Distance(p)
	}
	for _, pt := range ip.Points[1:] {
		cur := tf.Apply(pt.Pos)
		if d := segmentDistance(prev, cur, p); d < best {
			best = d
		}
		prev = cur
	}
	d := best - halfWidth
	if d < 0 {
		return 0
	}
	return d
}

// segmentDistance returns the distance from p to the segment a-b.
func segmentDistance(a, b, p Point) float64 {
	ab := b.Sub(a)
	lenSq := ab.X*ab.X + ab.Y*ab.Y
	if lenSq == 0 {
		return a.Distance(p)
	}
	t := ((p.X-a.X)*ab.X + (p.Y-a.Y)*ab.Y) / lenSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return a.Add(ab.Mul(t)).Distance(p)
}

func (ip *InkPath) hashInto(put func(uint64), putF func(float64)) {
	putF(ip.Style.Width)
	put(uint64(ip.Style.Color.R)<<24 | uint64(ip.Style.Color.G)<<16 |
		uint64(ip.Style.Color.B)<<8 | uint64(ip.Style.Color.A))
	if ip.Style.Highlighter {
		put(1)
	} else {
		put(0)
	}
	for _, pt := range ip.Points {
		putF(pt.Pos.X)
		putF(pt.Pos.Y)
		putF(pt.Pressure)
	}
}
