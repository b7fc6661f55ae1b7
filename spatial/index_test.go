package spatial

import (
	"math/rand"
	"sort"
	"testing"
)

func TestIndexInsertSearchRemove(t *testing.T) {
	ix := New[int]()
	ix.Insert(1, B(0, 0, 10, 10))
	ix.Insert(2, B(20, 20, 30, 30))
	ix.Insert(3, B(5, 5, 25, 25))

	if ix.Len() != 3 {
		t.Fatalf("Len = %d, want 3", ix.Len())
	}
	got := ix.SearchRect(B(0, 0, 12, 12))
	sort.Ints(got)
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Fatalf("SearchRect = %v, want [1 3]", got)
	}

	if !ix.Remove(3) {
		t.Fatal("Remove(3) reported no entry")
	}
	if ix.Remove(3) {
		t.Fatal("second Remove(3) reported an entry")
	}
	if got := ix.SearchRect(B(11, 11, 19, 19)); len(got) != 0 {
		t.Fatalf("removed entry still found: %v", got)
	}
}

func TestIndexInsertReplacesExisting(t *testing.T) {
	ix := New[string]()
	ix.Insert("a", B(0, 0, 10, 10))
	ix.Insert("a", B(100, 100, 110, 110))

	if ix.Len() != 1 {
		t.Fatalf("Len = %d, want 1 after re-insert", ix.Len())
	}
	if got := ix.SearchRect(B(0, 0, 50, 50)); len(got) != 0 {
		t.Fatalf("stale box still indexed: %v", got)
	}
	if got := ix.SearchRect(B(90, 90, 120, 120)); len(got) != 1 {
		t.Fatalf("new box not indexed: %v", got)
	}
}

func TestIndexSearchContained(t *testing.T) {
	ix := New[int]()
	ix.Insert(1, B(0, 0, 10, 10))   // inside
	ix.Insert(2, B(5, 5, 60, 60))   // overlaps, not contained
	ix.Insert(3, B(90, 90, 99, 99)) // outside

	got := ix.SearchContained(B(-1, -1, 50, 50))
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("SearchContained = %v, want [1]", got)
	}
}

func TestIndexNearest(t *testing.T) {
	ix := New[int]()
	ix.Insert(1, B(0, 0, 10, 10))
	ix.Insert(2, B(100, 0, 110, 10))

	item, ok := ix.Nearest(30, 5, 50)
	if !ok || item != 1 {
		t.Fatalf("Nearest = %v ok=%v, want item 1", item, ok)
	}
	if _, ok := ix.Nearest(500, 500, 50); ok {
		t.Fatal("Nearest found an item beyond maxDist")
	}
	// Inside a box the distance is zero.
	item, ok = ix.Nearest(5, 5, 0)
	if !ok || item != 1 {
		t.Fatalf("Nearest inside box = %v ok=%v, want item 1", item, ok)
	}
}

func TestIndexNearbyWithinOrdering(t *testing.T) {
	ix := New[int]()
	ix.Insert(1, B(0, 0, 1, 1))
	ix.Insert(2, B(10, 0, 11, 1))
	ix.Insert(3, B(20, 0, 21, 1))

	var visited []int
	last := -1.0
	ix.NearbyWithin(0, 0, 100, func(item int, dist float64) bool {
		if dist < last {
			t.Fatalf("distances not ascending: %v then %v", last, dist)
		}
		last = dist
		visited = append(visited, item)
		return true
	})
	if len(visited) != 3 || visited[0] != 1 {
		t.Fatalf("visited = %v, want nearest-first [1 2 3]", visited)
	}
}

func TestIndexBoundsAndClear(t *testing.T) {
	ix := New[int]()
	if _, ok := ix.Bounds(); ok {
		t.Fatal("empty index reported bounds")
	}

	ix.Insert(1, B(0, 0, 10, 10))
	ix.Insert(2, B(50, 50, 60, 70))
	b, ok := ix.Bounds()
	if !ok || b != B(0, 0, 60, 70) {
		t.Fatalf("Bounds = %+v ok=%v, want union box", b, ok)
	}

	ix.Clear()
	if ix.Len() != 0 {
		t.Fatalf("Len after Clear = %d", ix.Len())
	}
	if got := ix.SearchRect(B(0, 0, 100, 100)); len(got) != 0 {
		t.Fatalf("entries survived Clear: %v", got)
	}
}

func TestIndexRandomizedAgainstBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ix := New[int]()
	boxes := make(map[int]Box)

	for i := 0; i < 500; i++ {
		x := rng.Float64() * 1000
		y := rng.Float64() * 1000
		b := B(x, y, x+rng.Float64()*50, y+rng.Float64()*50)
		ix.Insert(i, b)
		boxes[i] = b
	}
	// Churn: move some, remove some.
	for i := 0; i < 200; i++ {
		id := rng.Intn(500)
		if i%3 == 0 {
			ix.Remove(id)
			delete(boxes, id)
			continue
		}
		x := rng.Float64() * 1000
		y := rng.Float64() * 1000
		b := B(x, y, x+rng.Float64()*50, y+rng.Float64()*50)
		ix.Update(id, b)
		boxes[id] = b
	}

	intersects := func(a, b Box) bool {
		return a.MinX <= b.MaxX && b.MinX <= a.MaxX && a.MinY <= b.MaxY && b.MinY <= a.MaxY
	}
	for trial := 0; trial < 50; trial++ {
		x := rng.Float64() * 900
		y := rng.Float64() * 900
		region := B(x, y, x+rng.Float64()*200, y+rng.Float64()*200)

		got := make(map[int]bool)
		for _, id := range ix.SearchRect(region) {
			got[id] = true
		}
		for id, b := range boxes {
			if want := intersects(region, b); want != got[id] {
				t.Fatalf("trial %d: mismatch for %d (%+v in %+v): want %v", trial, id, b, region, want)
			}
		}

		// Nearest must agree with a brute-force minimum of box distances.
		bestDist := 1e18
		for _, b := range boxes {
			if d := boxPointDist(b, x, y); d < bestDist {
				bestDist = d
			}
		}
		if item, ok := ix.Nearest(x, y, 1e18); ok {
			b := boxes[item]
			if d := boxPointDist(b, x, y); d != bestDist {
				t.Fatalf("trial %d: Nearest returned dist %v, brute force %v", trial, d, bestDist)
			}
		} else if len(boxes) > 0 {
			t.Fatalf("trial %d: Nearest found nothing among %d boxes", trial, len(boxes))
		}
	}
}
