package spatial

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/tiberian/simcore/ecs"
)

func bruteForceRadius(points map[uint32]mgl64.Vec2, center mgl64.Vec2, r float64) map[uint32]bool {
	out := make(map[uint32]bool)
	for idx, p := range points {
		if p.Sub(center).Len() <= r+1e-9 {
			out[idx] = true
		}
	}
	return out
}

func TestQuadtreeMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	bounds := Bounds{Min: mgl64.Vec2{0, 0}, Max: mgl64.Vec2{1000, 1000}}
	qt := New(bounds, DefaultMaxObjects, DefaultMaxLevels)

	points := make(map[uint32]mgl64.Vec2, 200)
	s := ecs.NewStore(ecs.Config{})
	for i := 0; i < 200; i++ {
		p := mgl64.Vec2{rng.Float64() * 1000, rng.Float64() * 1000}
		// Synthesize distinct handles via the store so Index() is valid and
		// stable; a bare zero Handle would collide for every entity.
		h, _ := s.CreateEntity()
		qt.Insert(h, p)
		points[h.Index()] = p
	}

	for q := 0; q < 50; q++ {
		center := mgl64.Vec2{rng.Float64() * 1000, rng.Float64() * 1000}
		r := rng.Float64() * 200
		got := qt.QueryRadius(center, r)
		gotSet := make(map[uint32]bool, len(got))
		for _, h := range got {
			gotSet[h.Index()] = true
		}
		want := bruteForceRadius(points, center, r)
		if len(gotSet) != len(want) {
			t.Fatalf("query %d: quadtree found %d, brute force found %d", q, len(gotSet), len(want))
		}
		for idx := range want {
			if !gotSet[idx] {
				t.Fatalf("query %d: quadtree missed entity %d within radius %f of %v", q, idx, r, center)
			}
		}
	}
}

func TestQuadtreeEmptyReturnsEmpty(t *testing.T) {
	qt := New(Bounds{Min: mgl64.Vec2{0, 0}, Max: mgl64.Vec2{10, 10}}, 0, 0)
	if got := qt.QueryRadius(mgl64.Vec2{5, 5}, 100); len(got) != 0 {
		t.Fatalf("empty quadtree should return no results, got %d", len(got))
	}
	if got := qt.QueryRegion(mgl64.Vec2{0, 0}, mgl64.Vec2{10, 10}); len(got) != 0 {
		t.Fatalf("empty quadtree should return no results, got %d", len(got))
	}
}

func TestQuadtreeRemoveUpdate(t *testing.T) {
	qt := New(Bounds{Min: mgl64.Vec2{0, 0}, Max: mgl64.Vec2{100, 100}}, 2, 4)
	s := ecs.NewStore(ecs.Config{})
	h, _ := s.CreateEntity()
	qt.Insert(h, mgl64.Vec2{1, 1})
	if res := qt.QueryRadius(mgl64.Vec2{1, 1}, 1); len(res) != 1 {
		t.Fatalf("expected to find inserted entity")
	}
	qt.Update(h, mgl64.Vec2{1, 1}, mgl64.Vec2{90, 90})
	if res := qt.QueryRadius(mgl64.Vec2{1, 1}, 1); len(res) != 0 {
		t.Fatalf("entity should have moved away from old position")
	}
	if res := qt.QueryRadius(mgl64.Vec2{90, 90}, 1); len(res) != 1 {
		t.Fatalf("entity should be found at new position")
	}
	qt.Remove(h)
	if res := qt.QueryRadius(mgl64.Vec2{90, 90}, 1); len(res) != 0 {
		t.Fatalf("entity should be gone after Remove")
	}
}

func TestBoundsMath(t *testing.T) {
	b := Bounds{Min: mgl64.Vec2{0, 0}, Max: mgl64.Vec2{10, 10}}
	if !b.contains(mgl64.Vec2{5, 5}) {
		t.Fatalf("expected containment")
	}
	if b.contains(mgl64.Vec2{math.Inf(1), 0}) {
		t.Fatalf("infinite coordinate should not be contained")
	}
}
