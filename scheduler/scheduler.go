// Package scheduler dispatches registered Systems once per tick in ascending
// priority order and commits deferred store mutations between ticks, the
// way a single ticker drives a world's per-tick phases in a fixed sequence.
package scheduler

import (
	"log/slog"
)

// System is one independently schedulable piece of per-tick work.
type System interface {
	// Name identifies the system in diagnostics.
	Name() string
	// Update advances the system by dt milliseconds.
	Update(dt float64)
}

// Committer is implemented by the entity/component store. It is a narrow
// interface so the scheduler package doesn't need to import ecs.
type Committer interface {
	Commit()
	Advance()
}

type registration struct {
	system   System
	priority int
	seq      int // insertion order, used to break priority ties
	removed  bool
}

// Fault is a diagnostic event emitted when a system's Update panics. The
// scheduler recovers the panic, logs it, and continues with the remaining
// systems this tick — per spec §4.3/§7, a raising system is never removed
// automatically.
type Fault struct {
	System string
	Value  any
}

// Scheduler holds the registered systems and the store they operate over.
type Scheduler struct {
	log      *slog.Logger
	store    Committer
	systems  []*registration
	nextSeq  int
	faults   []Fault
}

// Config configures a Scheduler at construction.
type Config struct {
	Log   *slog.Logger
	Store Committer
}

// New constructs a Scheduler bound to store.
func New(cfg Config) *Scheduler {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{log: log, store: cfg.Store}
}

// Register adds system to the schedule. Lower priority numbers run earlier.
// Systems with equal priority run in registration order.
func (s *Scheduler) Register(system System, priority int) {
	s.systems = append(s.systems, &registration{system: system, priority: priority, seq: s.nextSeq})
	s.nextSeq++
	s.sortSystems()
}

// Remove unregisters system. It takes effect starting the next Step; it is
// idempotent.
func (s *Scheduler) Remove(system System) {
	for _, r := range s.systems {
		if r.system == system {
			r.removed = true
		}
	}
}

func (s *Scheduler) sortSystems() {
	// Stable insertion sort: the system list is small (one entry per
	// subsystem, not per entity) and this keeps registration order as the
	// tiebreaker without pulling in sort.Slice's reflection overhead on a
	// hot path that only runs at setup time.
	for i := 1; i < len(s.systems); i++ {
		j := i
		for j > 0 && less(s.systems[j], s.systems[j-1]) {
			s.systems[j], s.systems[j-1] = s.systems[j-1], s.systems[j]
			j--
		}
	}
}

func less(a, b *registration) bool {
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.seq < b.seq
}

// Step advances every active system once, in priority order, then commits
// deferred store mutations. A system whose Update panics is caught, logged,
// and recorded as a Fault; subsequent systems still run this tick.
func (s *Scheduler) Step(dt float64) {
	s.store.Advance()
	live := s.systems[:0]
	for _, r := range s.systems {
		if !r.removed {
			live = append(live, r)
		}
	}
	s.systems = live
	// Run from a copy so a Remove or Register made by a system during this
	// Step does not change which systems run until the next Step.
	for _, r := range append([]*registration(nil), live...) {
		s.runOne(r, dt)
	}
	s.store.Commit()
}

func (s *Scheduler) runOne(r *registration, dt float64) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("system panicked during tick; continuing", "system", r.system.Name(), "panic", rec)
			s.faults = append(s.faults, Fault{System: r.system.Name(), Value: rec})
		}
	}()
	r.system.Update(dt)
}

// DrainFaults returns and clears the faults recorded since the last call,
// letting an embedder surface SubsystemFault diagnostics through its own
// event pipeline.
func (s *Scheduler) DrainFaults() []Fault {
	out := s.faults
	s.faults = nil
	return out
}
