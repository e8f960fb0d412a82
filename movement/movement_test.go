package movement

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/tiberian/simcore/ecs"
	"github.com/tiberian/simcore/pathfinding"
)

func newHarness(t *testing.T) (*ecs.Store, *pathfinding.Service, *System) {
	t.Helper()
	store := ecs.NewStore(ecs.Config{})
	grid := pathfinding.NewNavGrid(50, 50, 32, mgl64.Vec2{0, 0})
	paths := pathfinding.New(pathfinding.Config{Grid: grid})
	sys := New(Config{Store: store, Paths: paths})
	return store, paths, sys
}

func spawnAt(t *testing.T, store *ecs.Store, pos mgl64.Vec2, mv ecs.Movement) ecs.Handle {
	t.Helper()
	h, err := store.CreateEntity()
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if err := ecs.AddTransform(store, h, ecs.Transform{Pos: pos, Scale: 1}); err != nil {
		t.Fatalf("AddTransform: %v", err)
	}
	if err := ecs.AddMovement(store, h, mv); err != nil {
		t.Fatalf("AddMovement: %v", err)
	}
	return h
}

func TestDirectVelocityIntegratesPosition(t *testing.T) {
	store, _, sys := newHarness(t)
	store.Commit()

	h := spawnAt(t, store, mgl64.Vec2{0, 0}, ecs.Movement{Velocity: mgl64.Vec2{10, 0}, MaxSpeed: 10})
	store.Commit()

	sys.Update(1000)

	xf, _ := ecs.GetTransform(store, h)
	if got := xf.Pos.X(); got < 9.9 || got > 10.1 {
		t.Fatalf("expected x ~= 10 after 1s at velocity 10, got %v", got)
	}
}

func TestPursueTargetRequestsAndFollowsPath(t *testing.T) {
	store, _, sys := newHarness(t)
	store.Commit()

	target := mgl64.Vec2{15 * 32, 5 * 32}
	h := spawnAt(t, store, mgl64.Vec2{5 * 32, 5 * 32}, ecs.Movement{MaxSpeed: 999999, HasTarget: true, Target: target})
	store.Commit()

	// followPath reaches at most one waypoint per Update, and the path from
	// cell (5,5) to cell (15,5) has 11 waypoints.
	for i := 0; i < 20; i++ {
		sys.Update(250)
		store.Commit()
	}

	mv, _ := ecs.GetMovement(store, h)
	xf, _ := ecs.GetTransform(store, h)
	if mv.HasTarget {
		t.Fatalf("expected the entity to have arrived and cleared HasTarget")
	}
	if xf.Pos.Sub(target).Len() > ArrivalTolerance {
		t.Fatalf("expected the entity to end within ArrivalTolerance of the target, got %v", xf.Pos)
	}
}

func TestPursueTargetOutOfBoundsHoldsPosition(t *testing.T) {
	store, _, sys := newHarness(t)
	store.Commit()

	start := mgl64.Vec2{5 * 32, 5 * 32}
	h := spawnAt(t, store, start, ecs.Movement{MaxSpeed: 999999, HasTarget: true, Target: mgl64.Vec2{-9999, -9999}})
	store.Commit()

	sys.Update(250)

	mv, _ := ecs.GetMovement(store, h)
	xf, _ := ecs.GetTransform(store, h)
	if mv.HasTarget {
		t.Fatalf("expected an invalid request to clear HasTarget rather than retry forever")
	}
	if xf.Pos != start {
		t.Fatalf("expected position to be unchanged when the path request is rejected, got %v", xf.Pos)
	}
}

func TestNoVelocityOrTargetIsANoop(t *testing.T) {
	store, _, sys := newHarness(t)
	store.Commit()

	h := spawnAt(t, store, mgl64.Vec2{1, 2}, ecs.Movement{})
	store.Commit()

	sys.Update(1000)

	xf, _ := ecs.GetTransform(store, h)
	if xf.Pos != (mgl64.Vec2{1, 2}) {
		t.Fatalf("expected position to be unchanged, got %v", xf.Pos)
	}
}
