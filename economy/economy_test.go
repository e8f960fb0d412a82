package economy

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/tiberian/simcore/ecs"
	"github.com/tiberian/simcore/pathfinding"
)

func newHarness(t *testing.T) (*ecs.Store, *pathfinding.Service, *Ledger, *System) {
	t.Helper()
	store := ecs.NewStore(ecs.Config{})
	grid := pathfinding.NewNavGrid(50, 50, 32, mgl64.Vec2{0, 0})
	paths := pathfinding.New(pathfinding.Config{Grid: grid})
	ledger := NewLedger()
	sys := New(Config{Store: store, Paths: paths, Ledger: ledger})
	return store, paths, ledger, sys
}

func spawnAt(t *testing.T, store *ecs.Store, pos mgl64.Vec2) ecs.Handle {
	t.Helper()
	h, err := store.CreateEntity()
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if err := ecs.AddTransform(store, h, ecs.Transform{Pos: pos, Scale: 1}); err != nil {
		t.Fatalf("AddTransform: %v", err)
	}
	return h
}

// TestHarvesterFullCycle reproduces spec §8 scenario 1: a 50x50 grid at cell
// size 32, a refinery at (5,5), a 10-bail deposit at (15,5), and a harvester
// starting at the refinery. After the cycle completes, team credits should
// rise by min(10, 28) * 25 = 250, the deposit should be empty, and the
// harvester should end Idle (no other deposit to retarget to).
func TestHarvesterFullCycle(t *testing.T) {
	store, _, ledger, sys := newHarness(t)
	store.Commit()

	refineryPos := mgl64.Vec2{5 * 32, 5 * 32}
	depositPos := mgl64.Vec2{15 * 32, 5 * 32}

	refinery := spawnAt(t, store, refineryPos)
	if err := ecs.AddRefinery(store, refinery, ecs.Refinery{OwningTeam: 1}); err != nil {
		t.Fatalf("AddRefinery: %v", err)
	}

	deposit := spawnAt(t, store, depositPos)
	if err := ecs.AddDeposit(store, deposit, ecs.ResourceDeposit{RemainingBails: 10}); err != nil {
		t.Fatalf("AddDeposit: %v", err)
	}

	harvester := spawnAt(t, store, refineryPos)
	if err := ecs.AddMovement(store, harvester, ecs.Movement{MaxSpeed: 999999}); err != nil {
		t.Fatalf("AddMovement: %v", err)
	}
	if err := ecs.AddHarvester(store, harvester, ecs.Harvester{
		Capacity:      ecs.HarvesterCapacity,
		HomeRefinery:  refinery,
		TargetDeposit: deposit,
		Mode:          ecs.ToDeposit,
	}); err != nil {
		t.Fatalf("AddHarvester: %v", err)
	}
	store.Commit()

	// Teleport-on-arrival stand-in: this harness exercises the state machine
	// in isolation from the Movement system, so each tick's Update is
	// preceded by snapping the harvester to wherever it's currently headed.
	// This focuses the test on the harvester/ledger contract rather than on
	// movement interpolation, which belongs to a different system.
	const dt = 250.0 // ms
	for i := 0; i < 400; i++ {
		harv, _ := ecs.GetHarvester(store, harvester)
		xf, _ := ecs.GetTransform(store, harvester)
		switch harv.Mode {
		case ecs.ToDeposit:
			xf.Pos = depositPos
		case ecs.ToRefinery:
			xf.Pos = refineryPos
		}
		sys.Update(dt)
		store.Commit()
		if harv.Mode == ecs.HarvesterIdle {
			break
		}
	}

	harv, _ := ecs.GetHarvester(store, harvester)
	if harv.Mode != ecs.HarvesterIdle {
		t.Fatalf("expected harvester to end Idle, got %v", harv.Mode)
	}
	if harv.Carrying != 0 {
		t.Fatalf("expected harvester to have unloaded, got Carrying=%d", harv.Carrying)
	}
	dep, _ := ecs.GetDeposit(store, deposit)
	if dep.RemainingBails != 0 {
		t.Fatalf("expected the deposit to be fully drained, got %d bails remaining", dep.RemainingBails)
	}
	if got, want := ledger.Balance(1), 250; got != want {
		t.Fatalf("team credits = %d, want %d", got, want)
	}
}

func TestLedgerDebitRejectsInsufficientFunds(t *testing.T) {
	l := NewLedger()
	l.Credit(1, 100, "seed")
	if l.Debit(1, 150, "overspend") {
		t.Fatalf("expected Debit to fail for an amount exceeding the balance")
	}
	if got := l.Balance(1); got != 100 {
		t.Fatalf("balance should be unchanged after a rejected debit, got %d", got)
	}
	if !l.Debit(1, 100, "spend") {
		t.Fatalf("expected Debit to succeed for exactly the balance")
	}
	if got := l.Balance(1); got != 0 {
		t.Fatalf("balance = %d, want 0", got)
	}
}

func TestLedgerEventsDrainInInsertionOrder(t *testing.T) {
	l := NewLedger()
	l.Credit(1, 10, "a")
	l.Credit(2, 20, "b")
	l.Debit(1, 5, "c")
	events := l.DrainEvents()
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	wantReasons := []string{"a", "b", "c"}
	for i, want := range wantReasons {
		if events[i].Reason != want {
			t.Fatalf("event %d reason = %q, want %q", i, events[i].Reason, want)
		}
	}
	if len(l.DrainEvents()) != 0 {
		t.Fatalf("expected events to be cleared after drain")
	}
}

func TestHarvesterWithDestroyedRefineryGoesIdle(t *testing.T) {
	store, _, _, sys := newHarness(t)
	store.Commit()

	refinery := spawnAt(t, store, mgl64.Vec2{0, 0})
	if err := ecs.AddRefinery(store, refinery, ecs.Refinery{OwningTeam: 1}); err != nil {
		t.Fatalf("AddRefinery: %v", err)
	}
	harvester := spawnAt(t, store, mgl64.Vec2{0, 0})
	ecs.AddMovement(store, harvester, ecs.Movement{})
	ecs.AddHarvester(store, harvester, ecs.Harvester{
		Capacity:     ecs.HarvesterCapacity,
		HomeRefinery: refinery,
		Mode:         ecs.ToRefinery,
	})
	store.Commit()

	store.DestroyEntity(refinery)
	store.Commit()

	sys.Update(16)
	harv, _ := ecs.GetHarvester(store, harvester)
	if harv.Mode != ecs.HarvesterIdle {
		t.Fatalf("expected a harvester whose refinery was destroyed to go Idle, got %v", harv.Mode)
	}
}
