package pathfinding

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func blankGrid(t *testing.T, w, h int) *NavGrid {
	t.Helper()
	return NewNavGrid(w, h, 1, mgl64.Vec2{0, 0})
}

func TestWorldToGridRoundTrip(t *testing.T) {
	g := blankGrid(t, 20, 20)
	for _, c := range []Cell{{0, 0}, {5, 5}, {19, 19}, {3, 17}} {
		world := g.GridToWorld(c)
		got := g.WorldToGrid(world)
		if got != c {
			t.Fatalf("round trip mismatch: %v -> %v -> %v", c, world, got)
		}
	}
}

func TestFindPathSameCellIsTrivial(t *testing.T) {
	g := blankGrid(t, 10, 10)
	svc := New(Config{Grid: g})
	p := mgl64.Vec2{5.5, 5.5}
	res, err := svc.FindPath(p, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Waypoints) > 1 {
		t.Fatalf("expected a trivial path for identical start/goal, got %d waypoints", len(res.Waypoints))
	}
	if res.Incomplete {
		t.Fatalf("trivial path should not be incomplete")
	}
}

func TestFindPathOutOfBoundsIsInvalidRequest(t *testing.T) {
	g := blankGrid(t, 10, 10)
	svc := New(Config{Grid: g})
	_, err := svc.FindPath(mgl64.Vec2{-50, -50}, mgl64.Vec2{5, 5})
	if err == nil {
		t.Fatalf("expected an error for an out-of-bounds start")
	}
	if _, ok := err.(*ErrInvalidRequest); !ok {
		t.Fatalf("expected *ErrInvalidRequest, got %T", err)
	}
}

func TestFindPathUnreachableReturnsEmptySuccess(t *testing.T) {
	g := blankGrid(t, 10, 10)
	// Wall off a 1-cell island at (9,9): block its only neighbors.
	g.SetWalkable(Cell{8, 9}, false)
	g.SetWalkable(Cell{9, 8}, false)
	g.SetWalkable(Cell{8, 8}, false)
	svc := New(Config{Grid: g})
	res, err := svc.FindPath(mgl64.Vec2{0.5, 0.5}, mgl64.Vec2{9.5, 9.5})
	if err != nil {
		t.Fatalf("unreachable goal should not be an error, got %v", err)
	}
	if len(res.Waypoints) != 0 {
		t.Fatalf("expected an empty path for an unreachable goal, got %v", res.Waypoints)
	}
	if res.Incomplete {
		t.Fatalf("unreachable should not be reported as incomplete")
	}
}

func TestFindPathIncompleteOnExhaustedBudget(t *testing.T) {
	g := blankGrid(t, 50, 50)
	svc := New(Config{Grid: g, NodeBudget: 5})
	res, err := svc.FindPath(mgl64.Vec2{0.5, 0.5}, mgl64.Vec2{49.5, 49.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Incomplete {
		t.Fatalf("expected an incomplete path with a tiny node budget")
	}
	if len(res.Waypoints) == 0 {
		t.Fatalf("expected a non-empty partial path")
	}
	last := res.Waypoints[len(res.Waypoints)-1]
	if !g.IsWalkable(g.WorldToGrid(last)) {
		t.Fatalf("last waypoint of a partial path must be walkable, got %v", last)
	}
}

func TestFindPathsGroupAssignsDistinctTerminals(t *testing.T) {
	g := blankGrid(t, 30, 30)
	svc := New(Config{Grid: g, FormationSpacing: 2})
	starts := []mgl64.Vec2{
		{1, 1}, {1, 2}, {2, 1}, {2, 2}, {1.5, 1.5},
	}
	res, err := svc.FindPathsGroup(starts, mgl64.Vec2{20, 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Paths) != len(starts) {
		t.Fatalf("expected %d paths, got %d", len(starts), len(res.Paths))
	}
	seen := make(map[mgl64.Vec2]bool)
	for i, p := range res.Paths {
		if len(p.Waypoints) == 0 {
			t.Fatalf("agent %d got an empty path", i)
		}
		term := p.Waypoints[len(p.Waypoints)-1]
		seen[term] = true
	}
	if len(seen) < 2 {
		t.Fatalf("expected agents to converge on distinct formation slots, got %d distinct terminals", len(seen))
	}
}

func TestInvalidateRegionDropsCachedPath(t *testing.T) {
	g := blankGrid(t, 20, 20)
	svc := New(Config{Grid: g})
	from, to := mgl64.Vec2{0.5, 0.5}, mgl64.Vec2{15.5, 15.5}
	if _, err := svc.FindPath(from, to); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := svc.cache.get(g.WorldToGrid(from), g.WorldToGrid(to)); !ok {
		t.Fatalf("expected the path to be cached after the first FindPath")
	}
	svc.InvalidateRegion(mgl64.Vec2{0, 0}, mgl64.Vec2{20, 20})
	if _, ok := svc.cache.get(g.WorldToGrid(from), g.WorldToGrid(to)); ok {
		t.Fatalf("expected the cached path to be invalidated")
	}
}
