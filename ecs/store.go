package ecs

import (
	"errors"
	"iter"
)

// ErrCapacityExceeded is returned by CreateEntity when the store is already
// holding Config.MaxEntities live or pending entities.
var ErrCapacityExceeded = errors.New("ecs: capacity exceeded")

// Config configures a Store at construction. There is no package-level
// mutable state; every Store is independently configured.
type Config struct {
	// MaxEntities bounds the number of simultaneously live entities.
	MaxEntities int
}

type entityMeta struct {
	generation uint32
	// active is cleared the instant DestroyEntity is called, hiding the
	// entity from queries and GetComponent immediately. The slot itself
	// (and its generation bump, enabling reuse) is only reclaimed at
	// Commit, which is what keeps in-tick iteration stable.
	active bool
	// visible is set once Commit runs for the tick in which the entity was
	// created; until then the entity exists but is invisible to Query.
	visible    bool
	pendingDel bool
	createdAt  int64
	lastAccess int64
}

// Store owns all entities and components. It is not safe for concurrent use;
// the embedder's scheduler is expected to be the sole owner of a Store for
// the duration of a tick, matching the single-threaded cooperative model of
// the wider core.
type Store struct {
	cfg Config
	now int64 // logical tick counter, advanced by the scheduler via Advance

	metas    []entityMeta
	freeList []uint32
	liveCount int

	pendingAdd    []uint32
	pendingRemove []uint32

	transforms  map[uint32]*Transform
	movements   map[uint32]*Movement
	healths     map[uint32]*Health
	teams       map[uint32]*Team
	ais         map[uint32]*AI
	harvesters  map[uint32]*Harvester
	deposits    map[uint32]*ResourceDeposit
	refineries  map[uint32]*Refinery
	selectables map[uint32]*Selectable
}

// NewStore constructs an empty Store. A zero MaxEntities means unbounded.
func NewStore(cfg Config) *Store {
	return &Store{
		cfg:         cfg,
		transforms:  make(map[uint32]*Transform),
		movements:   make(map[uint32]*Movement),
		healths:     make(map[uint32]*Health),
		teams:       make(map[uint32]*Team),
		ais:         make(map[uint32]*AI),
		harvesters:  make(map[uint32]*Harvester),
		deposits:    make(map[uint32]*ResourceDeposit),
		refineries:  make(map[uint32]*Refinery),
		selectables: make(map[uint32]*Selectable),
	}
}

// Advance bumps the store's logical clock. The scheduler calls this once per
// tick before running systems so CreatedAt/LastAccess timestamps are
// meaningful across ticks.
func (s *Store) Advance() { s.now++ }

// EntityCount returns the number of live (visible or pending-visible)
// entities.
func (s *Store) EntityCount() int { return s.liveCount }

// CreateEntity allocates a new entity. The entity is not visible to Query
// until the next Commit.
func (s *Store) CreateEntity() (Handle, error) {
	if s.cfg.MaxEntities > 0 && s.liveCount >= s.cfg.MaxEntities {
		return Nil, ErrCapacityExceeded
	}
	var idx uint32
	if n := len(s.freeList); n > 0 {
		idx = s.freeList[n-1]
		s.freeList = s.freeList[:n-1]
	} else {
		idx = uint32(len(s.metas))
		s.metas = append(s.metas, entityMeta{})
	}
	gen := s.metas[idx].generation + 1
	s.metas[idx] = entityMeta{generation: gen, active: true, visible: false, createdAt: s.now, lastAccess: s.now}
	s.pendingAdd = append(s.pendingAdd, idx)
	s.liveCount++
	return Handle{index: idx, generation: gen}, nil
}

// valid reports whether h still refers to a live, non-pending-deleted entity.
func (s *Store) valid(h Handle) bool {
	if int(h.index) >= len(s.metas) {
		return false
	}
	m := &s.metas[h.index]
	return m.generation == h.generation && m.active
}

// Live reports whether h refers to an entity that is both valid and visible
// to queries this tick.
func (s *Store) Live(h Handle) bool {
	if !s.valid(h) {
		return false
	}
	return s.metas[h.index].visible
}

// DestroyEntity requests deferred destruction of h. A stale or unknown
// handle is silently ignored (InvalidHandle is never surfaced from this
// call), and calling it twice on the same handle is a no-op, satisfying the
// idempotence law in spec §8.
func (s *Store) DestroyEntity(h Handle) {
	if !s.valid(h) {
		return
	}
	m := &s.metas[h.index]
	if m.pendingDel {
		return
	}
	m.pendingDel = true
	m.active = false
	s.pendingRemove = append(s.pendingRemove, h.index)
}

// Commit merges pending structural mutations into the primary tables. The
// scheduler invokes this exactly once per tick, after every system's
// Update has run.
func (s *Store) Commit() {
	for _, idx := range s.pendingAdd {
		s.metas[idx].visible = true
	}
	s.pendingAdd = s.pendingAdd[:0]

	for _, idx := range s.pendingRemove {
		m := &s.metas[idx]
		delete(s.transforms, idx)
		delete(s.movements, idx)
		delete(s.healths, idx)
		delete(s.teams, idx)
		delete(s.ais, idx)
		delete(s.harvesters, idx)
		delete(s.deposits, idx)
		delete(s.refineries, idx)
		delete(s.selectables, idx)
		m.generation++
		m.pendingDel = false
		m.visible = false
		s.freeList = append(s.freeList, idx)
		s.liveCount--
	}
	s.pendingRemove = s.pendingRemove[:0]
}

func (s *Store) touch(h Handle) { s.metas[h.index].lastAccess = s.now }

// AddTransform attaches a Transform component to h. Returns ErrInvalidHandle
// if h is stale.
func AddTransform(s *Store, h Handle, c Transform) error { return addComponent(s, s.transforms, h, &c) }
func AddMovement(s *Store, h Handle, c Movement) error   { return addComponent(s, s.movements, h, &c) }
func AddHealth(s *Store, h Handle, c Health) error       { return addComponent(s, s.healths, h, &c) }
func AddTeam(s *Store, h Handle, c Team) error           { return addComponent(s, s.teams, h, &c) }
func AddAI(s *Store, h Handle, c AI) error               { return addComponent(s, s.ais, h, &c) }
func AddHarvester(s *Store, h Handle, c Harvester) error { return addComponent(s, s.harvesters, h, &c) }
func AddDeposit(s *Store, h Handle, c ResourceDeposit) error {
	return addComponent(s, s.deposits, h, &c)
}
func AddRefinery(s *Store, h Handle, c Refinery) error { return addComponent(s, s.refineries, h, &c) }
func AddSelectable(s *Store, h Handle, c Selectable) error {
	return addComponent(s, s.selectables, h, &c)
}

// ErrInvalidHandle is returned by AddXxx calls made against a stale handle.
var ErrInvalidHandle = errors.New("ecs: invalid handle")

func addComponent[T any](s *Store, table map[uint32]*T, h Handle, c *T) error {
	if !s.valid(h) {
		return ErrInvalidHandle
	}
	table[h.index] = c
	return nil
}

// RemoveTransform and friends detach a component. Removing a component that
// isn't present, or using a stale handle, is a silent no-op per spec §4.1.
func RemoveTransform(s *Store, h Handle) { delete(s.transforms, h.index) }
func RemoveMovement(s *Store, h Handle)  { delete(s.movements, h.index) }
func RemoveHealth(s *Store, h Handle)    { delete(s.healths, h.index) }
func RemoveAI(s *Store, h Handle)        { delete(s.ais, h.index) }
func RemoveHarvester(s *Store, h Handle) { delete(s.harvesters, h.index) }
func RemoveDeposit(s *Store, h Handle)   { delete(s.deposits, h.index) }

// GetTransform and friends return the component for h, or (nil, false) if h
// is stale or the component isn't attached. They never fail.
func GetTransform(s *Store, h Handle) (*Transform, bool)  { return getComponent(s, s.transforms, h) }
func GetMovement(s *Store, h Handle) (*Movement, bool)    { return getComponent(s, s.movements, h) }
func GetHealth(s *Store, h Handle) (*Health, bool)        { return getComponent(s, s.healths, h) }
func GetTeam(s *Store, h Handle) (*Team, bool)            { return getComponent(s, s.teams, h) }
func GetAI(s *Store, h Handle) (*AI, bool)                { return getComponent(s, s.ais, h) }
func GetHarvester(s *Store, h Handle) (*Harvester, bool)  { return getComponent(s, s.harvesters, h) }
func GetDeposit(s *Store, h Handle) (*ResourceDeposit, bool) {
	return getComponent(s, s.deposits, h)
}
func GetRefinery(s *Store, h Handle) (*Refinery, bool) { return getComponent(s, s.refineries, h) }
func GetSelectable(s *Store, h Handle) (*Selectable, bool) {
	return getComponent(s, s.selectables, h)
}

func getComponent[T any](s *Store, table map[uint32]*T, h Handle) (*T, bool) {
	if !s.valid(h) {
		return nil, false
	}
	c, ok := table[h.index]
	if ok {
		s.touch(h)
	}
	return c, ok
}

// Signature is a bitmask over the closed component catalog, used to select
// entities for Query.
type Signature uint32

const (
	HasTransform Signature = 1 << iota
	HasMovement
	HasHealth
	HasTeam
	HasAI
	HasHarvester
	HasDeposit
	HasRefinery
	HasSelectable
)

// Query returns a snapshot sequence of handles that are visible this tick
// and carry every component type named in sig. The snapshot is taken
// eagerly when Query is called, so structural mutation performed by the
// caller while ranging over the result never changes what is yielded,
// satisfying the store's iteration-stability invariant.
func (s *Store) Query(sig Signature) iter.Seq[Handle] {
	matches := make([]Handle, 0, 64)
	for idx := range s.metas {
		m := &s.metas[idx]
		if !m.active || !m.visible {
			continue
		}
		u := uint32(idx)
		if sig&HasTransform != 0 {
			if _, ok := s.transforms[u]; !ok {
				continue
			}
		}
		if sig&HasMovement != 0 {
			if _, ok := s.movements[u]; !ok {
				continue
			}
		}
		if sig&HasHealth != 0 {
			if _, ok := s.healths[u]; !ok {
				continue
			}
		}
		if sig&HasTeam != 0 {
			if _, ok := s.teams[u]; !ok {
				continue
			}
		}
		if sig&HasAI != 0 {
			if _, ok := s.ais[u]; !ok {
				continue
			}
		}
		if sig&HasHarvester != 0 {
			if _, ok := s.harvesters[u]; !ok {
				continue
			}
		}
		if sig&HasDeposit != 0 {
			if _, ok := s.deposits[u]; !ok {
				continue
			}
		}
		if sig&HasRefinery != 0 {
			if _, ok := s.refineries[u]; !ok {
				continue
			}
		}
		if sig&HasSelectable != 0 {
			if _, ok := s.selectables[u]; !ok {
				continue
			}
		}
		matches = append(matches, Handle{index: u, generation: m.generation})
	}
	return func(yield func(Handle) bool) {
		for _, h := range matches {
			if !yield(h) {
				return
			}
		}
	}
}
