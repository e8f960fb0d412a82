package api

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/tiberian/simcore/ecs"
	"github.com/tiberian/simcore/qlearning"
	"github.com/tiberian/simcore/reward"
	"github.com/tiberian/simcore/spatial"
)

func minimalRewardTable(t *testing.T) *reward.Table {
	t.Helper()
	table := &reward.Table{
		Global:   reward.Global{MaxRewardMagnitude: 100},
		Movement: map[string]float64{"moveSuccess": 1, "moveBlocked": -1},
		Combat:   map[string]float64{"damageDealt": 0.5, "missedAttack": -0.5},
		Tactical: map[string]float64{"retreat": 0.2, "holdPosition": 0.1, "patrol": 0.1},
		Economic: map[string]float64{"resourceGathered": 1, "loseResources": -1},
		Idle:     map[string]float64{"waitForOrders": 0, "idleUnderFire": -2},
		Special:  map[string]float64{"missionSuccess": 10},
	}
	if err := table.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return table
}

func newTestSim(t *testing.T) *Sim {
	t.Helper()
	return New(Config{
		MaxEntities:      1000,
		WorldBounds:      spatial.Bounds{Min: mgl64.Vec2{-1000, -1000}, Max: mgl64.Vec2{1000, 1000}},
		NavGridWidth:     50,
		NavGridHeight:    50,
		NavGridCellSize:  32,
		RewardTable:      minimalRewardTable(t),
		QLearning:        qlearning.Config{Seed: 1},
		FormationSpacing: 32,
	})
}

func TestSpawnOrderProducesEntitySpawnedEvent(t *testing.T) {
	sim := newTestSim(t)
	h, err := sim.SpawnUnit(mgl64.Vec2{0, 0}, 1, ecs.ProfileCombatUnit)
	if err != nil {
		t.Fatalf("SpawnUnit: %v", err)
	}

	events := sim.Step(16)
	var found bool
	for _, ev := range events {
		if ev.Kind == EventEntitySpawned && ev.Entity == h {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an entity_spawned event for %v, got %+v", h, events)
	}
}

func TestMoveOrderOnUnreachableTargetEmitsPathFailed(t *testing.T) {
	sim := newTestSim(t)
	h, err := sim.SpawnUnit(mgl64.Vec2{5 * 32, 5 * 32}, 1, ecs.ProfileScout)
	if err != nil {
		t.Fatalf("SpawnUnit: %v", err)
	}
	if err := ecs.AddMovement(sim.store, h, ecs.Movement{MaxSpeed: 10}); err != nil {
		t.Fatalf("AddMovement: %v", err)
	}
	sim.Step(16)

	if _, err := sim.MoveOrder(h, mgl64.Vec2{-99999, -99999}); err != nil {
		t.Fatalf("MoveOrder: %v", err)
	}

	events := sim.Step(16)
	var found bool
	for _, ev := range events {
		if ev.Kind == EventPathFailed && ev.Entity == h {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a path_failed event, got %+v", events)
	}
}

func TestMoveOrderOnUnknownEntityIsInvalidRequest(t *testing.T) {
	sim := newTestSim(t)
	if _, err := sim.MoveOrder(ecs.Nil, mgl64.Vec2{1, 1}); err != ErrInvalidRequest {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestBuildOrderDebitsCreditsAndSpawns(t *testing.T) {
	sim := newTestSim(t)
	sim.Ledger().Credit(1, 1000, "seed")

	h, ok := sim.BuildOrder(1, Blueprint{Name: "turret", Cost: 300, Health: 100}, mgl64.Vec2{0, 0})
	if !ok {
		t.Fatalf("expected BuildOrder to succeed")
	}
	if sim.Ledger().Balance(1) != 700 {
		t.Fatalf("balance = %d, want 700", sim.Ledger().Balance(1))
	}
	if h.IsNil() {
		t.Fatalf("expected a non-nil constructed entity handle")
	}
	sim.Step(16)
	if !sim.store.Live(h) {
		t.Fatalf("expected the constructed entity to be live after the next tick commits it")
	}
}

func TestBuildOrderRejectsWhenCreditsInsufficient(t *testing.T) {
	sim := newTestSim(t)
	if _, ok := sim.BuildOrder(1, Blueprint{Name: "turret", Cost: 300}, mgl64.Vec2{0, 0}); ok {
		t.Fatalf("expected BuildOrder to fail with zero credits")
	}
}

func TestStopOrderClearsMovement(t *testing.T) {
	sim := newTestSim(t)
	h, _ := sim.SpawnUnit(mgl64.Vec2{0, 0}, 1, ecs.ProfileCombatUnit)
	ecs.AddMovement(sim.store, h, ecs.Movement{HasTarget: true, Target: mgl64.Vec2{10, 10}})
	sim.Step(16)

	if err := sim.StopOrder(h); err != nil {
		t.Fatalf("StopOrder: %v", err)
	}
	mv, _ := ecs.GetMovement(sim.store, h)
	if mv.HasTarget {
		t.Fatalf("expected HasTarget to be cleared")
	}
}
