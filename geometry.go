package inkstore

import "math"

// Point represents a 2D position in document coordinates.
type Point struct {
	X, Y float64
}

// Pt is a convenience function to create a Point.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns the sum of two points (vector addition).
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns the difference of two points (vector subtraction).
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Mul returns the point scaled by a scalar.
func (p Point) Mul(s float64) Point {
	return Point{X: p.X * s, Y: p.Y * s}
}

// Length returns the length of the vector from the origin to p.
func (p Point) Length() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y)
}

// Distance returns the distance between two points.
func (p Point) Distance(q Point) float64 {
	return p.Sub(q).Length()
}

// Rect is an axis-aligned bounding box. Min is the top-left corner and Max
// the bottom-right one; a Rect with Max < Min on either axis is empty.
type Rect struct {
	Min, Max Point
}

// R is a convenience function to create a Rect from two corner coordinates.
func R(x0, y0, x1, y1 float64) Rect {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	return Rect{Min: Point{X: x0, Y: y0}, Max: Point{X: x1, Y: y1}}
}

// IsEmpty reports whether the rect covers no area.
func (r Rect) IsEmpty() bool {
	return r.Max.X <= r.Min.X || r.Max.Y <= r.Min.Y
}

// Width returns the horizontal extent of the rect.
func (r Rect) Width() float64 { return r.Max.X - r.Min.X }

// Height returns the vertical extent of the rect.
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Center returns the midpoint of the rect.
func (r Rect) Center() Point {
	return Point{X: (r.Min.X + r.Max.X) / 2, Y: (r.Min.Y + r.Max.Y) / 2}
}

// Intersects reports whether two rects overlap. Touching edges count as
// an intersection, matching the inclusive envelope test of the spatial index.
func (r Rect) Intersects(o Rect) bool {
	return r.Min.X <= o.Max.X && o.Min.X <= r.Max.X &&
		r.Min.Y <= o.Max.Y && o.Min.Y <= r.Max.Y
}

// Contains reports whether o lies entirely inside r.
func (r Rect) Contains(o Rect) bool {
	return r.Min.X <= o.Min.X && o.Max.X <= r.Max.X &&
		r.Min.Y <= o.Min.Y && o.Max.Y <= r.Max.Y
}

// ContainsPoint reports whether p lies inside r (edges inclusive).
func (r Rect) ContainsPoint(p Point) bool {
	return r.Min.X <= p.X && p.X <= r.Max.X && r.Min.Y <= p.Y && p.Y <= r.Max.Y
}

// Union returns the smallest rect covering both r and o.
// An empty rect acts as the identity.
func (r Rect) Union(o Rect) Rect {
	if r.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return r
	}
	return Rect{
		Min: Point{X: math.Min(r.Min.X, o.Min.X), Y: math.Min(r.Min.Y, o.Min.Y)},
		Max: Point{X: math.Max(r.Max.X, o.Max.X), Y: math.Max(r.Max.Y, o.Max.Y)},
	}
}

// Translate returns the rect shifted by delta.
func (r Rect) Translate(delta Point) Rect {
	return Rect{Min: r.Min.Add(delta), Max: r.Max.Add(delta)}
}

// Expand returns the rect grown by margin on every side.
// A negative margin shrinks the rect.
func (r Rect) Expand(margin float64) Rect {
	return Rect{
		Min: Point{X: r.Min.X - margin, Y: r.Min.Y - margin},
		Max: Point{X: r.Max.X + margin, Y: r.Max.Y + margin},
	}
}

// ExpandByFactor returns the rect grown by factor times its own extents on
// every side. Used by the render pipeline to rasterize a margin around the
// visible viewport so small scrolls don't immediately dirty everything.
func (r Rect) ExpandByFactor(factor float64) Rect {
	return Rect{
		Min: Point{X: r.Min.X - r.Width()*factor, Y: r.Min.Y - r.Height()*factor},
		Max: Point{X: r.Max.X + r.Width()*factor, Y: r.Max.Y + r.Height()*factor},
	}
}

// DistanceToPoint returns the distance from p to the rect, 0 if p is inside.
func (r Rect) DistanceToPoint(p Point) float64 {
	dx := math.Max(math.Max(r.Min.X-p.X, 0), p.X-r.Max.X)
	dy := math.Max(math.Max(r.Min.Y-p.Y, 0), p.Y-r.Max.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// Transform is the placement of a stroke in the document: a translation,
// a rotation around the stroke's local origin, and a uniform scale.
// The zero value is not a valid transform; use IdentityTransform.
type Transform struct {
	Translation Point
	Rotation    float64 // radians
	Scale       float64
}

// IdentityTransform returns the do-nothing transform.
func IdentityTransform() Transform {
	return Transform{Scale: 1}
}

// Apply maps a point from stroke-local coordinates to document coordinates.
func (t Transform) Apply(p Point) Point {
	sin, cos := math.Sincos(t.Rotation)
	x := (p.X*cos - p.Y*sin) * t.Scale
	y := (p.X*sin + p.Y*cos) * t.Scale
	return Point{X: x + t.Translation.X, Y: y + t.Translation.Y}
}

// ApplyRect maps a stroke-local rect to its document-space bounding box.
// Under rotation the result is the box of the four mapped corners.
func (t Transform) ApplyRect(r Rect) Rect {
	corners := [4]Point{
		{r.Min.X, r.Min.Y},
		{r.Max.X, r.Min.Y},
		{r.Min.X, r.Max.Y},
		{r.Max.X, r.Max.Y},
	}
	out := Rect{Min: Point{math.Inf(1), math.Inf(1)}, Max: Point{math.Inf(-1), math.Inf(-1)}}
	for _, c := range corners {
		m := t.Apply(c)
		out.Min.X = math.Min(out.Min.X, m.X)
		out.Min.Y = math.Min(out.Min.Y, m.Y)
		out.Max.X = math.Max(out.Max.X, m.X)
		out.Max.Y = math.Max(out.Max.Y, m.Y)
	}
	return out
}

// Translated returns a copy of the transform shifted by delta.
func (t Transform) Translated(delta Point) Transform {
	t.Translation = t.Translation.Add(delta)
	return t
}
