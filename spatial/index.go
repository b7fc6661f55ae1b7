// Package spatial provides a bounding-box index over generic items,
// answering "which items intersect this region" and "which item is nearest
// to this point" without scanning all items.
//
// It is the document store's acceleration structure: the store keys it by
// stroke handle and keeps it strictly in sync with mutation — an entry for a
// stale handle is a correctness bug, not a tolerated lag.
package spatial

import (
	"math"

	"github.com/tidwall/rtree"
)

// Box is an axis-aligned bounding box in document coordinates.
type Box struct {
	MinX, MinY, MaxX, MaxY float64
}

// B is a convenience function to create a Box.
func B(minX, minY, maxX, maxY float64) Box {
	return Box{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}

func (b Box) min() [2]float64 { return [2]float64{b.MinX, b.MinY} }
func (b Box) max() [2]float64 { return [2]float64{b.MaxX, b.MaxY} }

// Index is an R-tree of (box, item) entries. Items are the associated data
// of their boxes; one item has at most one entry.
//
// Index is not safe for concurrent use; the owning store serializes access.
type Index[T comparable] struct {
	tree  rtree.RTreeG[T]
	boxes map[T]Box
}

// New creates an empty index.
func New[T comparable]() *Index[T] {
	return &Index[T]{boxes: make(map[T]Box)}
}

// Insert adds an entry for item with the given box, replacing any previous
// entry for the same item.
func (ix *Index[T]) Insert(item T, box Box) {
	if old, ok := ix.boxes[item]; ok {
		ix.tree.Delete(old.min(), old.max(), item)
	}
	ix.tree.Insert(box.min(), box.max(), item)
	ix.boxes[item] = box
}

// Remove deletes the entry for item. It reports whether an entry existed.
func (ix *Index[T]) Remove(item T) bool {
	box, ok := ix.boxes[item]
	if !ok {
		return false
	}
	ix.tree.Delete(box.min(), box.max(), item)
	delete(ix.boxes, item)
	return true
}

// Update replaces the box of an existing entry (remove + insert; box
// changes are infrequent relative to reads).
func (ix *Index[T]) Update(item T, box Box) {
	ix.Insert(item, box)
}

// Contains reports whether item has an entry.
func (ix *Index[T]) Contains(item T) bool {
	_, ok := ix.boxes[item]
	return ok
}

// SearchRect returns the items whose boxes intersect region, in unspecified
// order. Callers needing z-order must re-sort using the document's explicit
// ordering.
func (ix *Index[T]) SearchRect(region Box) []T {
	var out []T
	ix.tree.Search(region.min(), region.max(), func(_, _ [2]float64, item T) bool {
		out = append(out, item)
		return true
	})
	return out
}

// SearchContained returns the items whose boxes lie entirely inside region.
func (ix *Index[T]) SearchContained(region Box) []T {
	var out []T
	ix.tree.Search(region.min(), region.max(), func(min, max [2]float64, item T) bool {
		if min[0] >= region.MinX && min[1] >= region.MinY &&
			max[0] <= region.MaxX && max[1] <= region.MaxY {
			out = append(out, item)
		}
		return true
	})
	return out
}

// Nearest returns the item whose box is closest to p, searching no farther
// than maxDist. The reported distance is box distance (0 inside a box);
// exact geometric refinement is the caller's job.
func (ix *Index[T]) Nearest(x, y, maxDist float64) (item T, ok bool) {
	target := [2]float64{x, y}
	dist := rtree.BoxDist[float64, T](target, target, nil)
	ix.tree.Nearby(dist, func(_, _ [2]float64, it T, d float64) bool {
		if d > maxDist {
			return false
		}
		item, ok = it, true
		return false
	})
	return item, ok
}

// NearbyWithin visits items in ascending box distance from p until iter
// returns false or the distance exceeds maxDist. Used by hit testing to
// refine coarse candidates against exact geometry in distance order.
func (ix *Index[T]) NearbyWithin(x, y, maxDist float64, iter func(item T, dist float64) bool) {
	target := [2]float64{x, y}
	dist := rtree.BoxDist[float64, T](target, target, nil)
	ix.tree.Nearby(dist, func(_, _ [2]float64, it T, d float64) bool {
		if d > maxDist {
			return false
		}
		return iter(it, d)
	})
}

// Len returns the number of entries.
func (ix *Index[T]) Len() int {
	return len(ix.boxes)
}

// Bounds returns the union of all entry boxes, and false when empty.
func (ix *Index[T]) Bounds() (Box, bool) {
	if len(ix.boxes) == 0 {
		return Box{}, false
	}
	min, max := ix.tree.Bounds()
	return Box{MinX: min[0], MinY: min[1], MaxX: max[0], MaxY: max[1]}, true
}

// Box returns the stored box for item.
func (ix *Index[T]) Box(item T) (Box, bool) {
	b, ok := ix.boxes[item]
	return b, ok
}

// Clear removes all entries.
func (ix *Index[T]) Clear() {
	ix.tree = rtree.RTreeG[T]{}
	ix.boxes = make(map[T]Box)
}

// Rebuild replaces the whole index from (item, box) pairs. Used after a
// history restore or snapshot import, where incremental updates would be
// slower than building fresh.
func (ix *Index[T]) Rebuild(items []T, boxes []Box) {
	ix.Clear()
	for i, item := range items {
		ix.Insert(item, boxes[i])
	}
}

// dist helper kept close to the tree: distance from a point to a box.
// Unused by the R-tree itself (BoxDist covers it) but handy for tests.
func boxPointDist(b Box, x, y float64) float64 {
	dx := math.Max(math.Max(b.MinX-x, 0), x-b.MaxX)
	dy := math.Max(math.Max(b.MinY-y, 0), y-b.MaxY)
	return math.Sqrt(dx*dx + dy*dy)
}
