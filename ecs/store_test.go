package ecs

import "testing"

func newTestStore(t *testing.T, max int) *Store {
	t.Helper()
	return NewStore(Config{MaxEntities: max})
}

func TestCreateEntityDeferredVisibility(t *testing.T) {
	s := newTestStore(t, 0)
	h, err := s.CreateEntity()
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if s.Live(h) {
		t.Fatalf("entity should not be visible before Commit")
	}
	s.Commit()
	if !s.Live(h) {
		t.Fatalf("entity should be visible after Commit")
	}
}

func TestCapacityExceeded(t *testing.T) {
	s := newTestStore(t, 1)
	if _, err := s.CreateEntity(); err != nil {
		t.Fatalf("first CreateEntity: %v", err)
	}
	if _, err := s.CreateEntity(); err != ErrCapacityExceeded {
		t.Fatalf("want ErrCapacityExceeded, got %v", err)
	}
	if s.EntityCount() != 1 {
		t.Fatalf("store corrupted after CapacityExceeded: count=%d", s.EntityCount())
	}
}

func TestDestroyEntityIdempotent(t *testing.T) {
	s := newTestStore(t, 0)
	h, _ := s.CreateEntity()
	s.Commit()
	s.DestroyEntity(h)
	s.DestroyEntity(h)
	if len(s.pendingRemove) != 1 {
		t.Fatalf("DestroyEntity should be idempotent, got %d pending removals", len(s.pendingRemove))
	}
	s.Commit()
	if s.Live(h) {
		t.Fatalf("entity should be gone after Commit")
	}
	// Handle reuse: creating a new entity may recycle the slot but must bump
	// the generation so the old handle is detectably stale.
	h2, _ := s.CreateEntity()
	s.Commit()
	if h2.index == h.index && h2.generation == h.generation {
		t.Fatalf("recycled handle did not bump generation")
	}
	if _, ok := GetHealth(s, h); ok {
		t.Fatalf("stale handle must not resolve components")
	}
}

func TestQuerySnapshotStability(t *testing.T) {
	s := newTestStore(t, 0)
	var handles []Handle
	for i := 0; i < 5; i++ {
		h, _ := s.CreateEntity()
		_ = AddHealth(s, h, Health{Current: 10, Max: 10, Alive: true})
		handles = append(handles, h)
	}
	s.Commit()

	seen := 0
	for h := range s.Query(HasHealth) {
		seen++
		if h == handles[2] {
			s.DestroyEntity(handles[3])
		}
	}
	if seen != 5 {
		t.Fatalf("query snapshot must include all 5 entities live at call time, saw %d", seen)
	}
	s.Commit()
	if s.Live(handles[3]) {
		t.Fatalf("entity destroyed mid-iteration should be gone after Commit")
	}
}

func TestGetComponentNeverFails(t *testing.T) {
	s := newTestStore(t, 0)
	if _, ok := GetHealth(s, Handle{index: 999, generation: 1}); ok {
		t.Fatalf("GetHealth on unknown handle must return ok=false, not panic or error")
	}
}
