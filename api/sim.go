// Package api is the Command & Query surface described in spec §4.10: a
// caller issues orders against a Sim and drains the events it produced at
// the end of each tick. It is also where the ten subsystem packages are wired
// together in the dependency order spec §2 lays out: Store, Spatial Index,
// Pathfinding, Behavior Tree Runtime, Reward Engine, Q-Learning, AI,
// Economy, Movement, Scheduler.
package api

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/tiberian/simcore/ai"
	"github.com/tiberian/simcore/behaviortree"
	"github.com/tiberian/simcore/ecs"
	"github.com/tiberian/simcore/economy"
	"github.com/tiberian/simcore/movement"
	"github.com/tiberian/simcore/pathfinding"
	"github.com/tiberian/simcore/qlearning"
	"github.com/tiberian/simcore/reward"
	"github.com/tiberian/simcore/scheduler"
	"github.com/tiberian/simcore/spatial"
)

// Scheduler priorities, per spec §5: "Movement (priority ≈5) runs before AI
// (priority ≈10) so AI observes positions updated this tick."
const (
	PriorityMovement = 5
	PriorityAI       = 10
	PriorityEconomy  = 15
)

// Default AI tuning applied by SpawnUnit, per spec §4.5's recognized
// options table. An embedder that needs different values attaches its own
// ecs.AI component via Store() instead of using SpawnUnit.
const (
	DefaultUnitMaxSpeed     = 40.0
	DefaultDecisionInterval = 250.0 // ms
	DefaultPerceptionRadius = 150.0
	DefaultExplorationRate  = 0.1
)

// Config configures a Sim at construction. All subsystem configuration is
// explicit and passed in by the embedder; nothing here is a package-level
// default, satisfying the "no global mutable state" design note.
type Config struct {
	Log *slog.Logger

	MaxEntities int

	WorldBounds spatial.Bounds

	NavGridWidth, NavGridHeight int
	NavGridCellSize             float64
	NavGridOrigin               mgl64.Vec2
	PathNodeBudget              int
	PathCacheSize               int
	FormationSpacing            float64

	BehaviorTemplates *behaviortree.TemplateRegistry

	RewardTable *reward.Table

	QLearning qlearning.Config

	Levels        map[ecs.AILevel]ai.LevelProfile
	TraceCapacity int
}

// Sim is the top-level engine: one Store, one Scheduler, and the systems
// registered against it.
type Sim struct {
	log   *slog.Logger
	store *ecs.Store
	index *spatial.Quadtree
	paths *pathfinding.Service
	sched *scheduler.Scheduler
	ai    *ai.System
	econ  *economy.System
	mv    *movement.System

	ledger *economy.Ledger
	events eventLog

	spawned   []ecs.Handle
	destroyed []ecs.Handle
}

// New wires every subsystem together per Config and registers them with a
// fresh Scheduler at their spec §5 priorities.
func New(cfg Config) *Sim {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	store := ecs.NewStore(ecs.Config{MaxEntities: cfg.MaxEntities})
	index := spatial.New(cfg.WorldBounds, spatial.DefaultMaxObjects, spatial.DefaultMaxLevels)
	grid := pathfinding.NewNavGrid(cfg.NavGridWidth, cfg.NavGridHeight, cfg.NavGridCellSize, cfg.NavGridOrigin)
	paths := pathfinding.New(pathfinding.Config{
		Log:              log,
		Grid:             grid,
		NodeBudget:       cfg.PathNodeBudget,
		CacheSize:        cfg.PathCacheSize,
		FormationSpacing: cfg.FormationSpacing,
	})

	rewardEngine := reward.NewEngine(cfg.RewardTable, log)
	qcfg := cfg.QLearning
	qcfg.Log = log
	selector := qlearning.New(qcfg)

	templates := cfg.BehaviorTemplates
	if templates == nil {
		templates = behaviortree.DefaultTemplates()
	}

	sim := &Sim{log: log, store: store, index: index, paths: paths}

	aiSys := ai.New(ai.Config{
		Log:           log,
		Store:         store,
		Spatial:       index,
		Selector:      selector,
		Rewards:       rewardEngine,
		Templates:     templates,
		Levels:        cfg.Levels,
		TraceCapacity: cfg.TraceCapacity,
		OnTrace: func(h ecs.Handle, trace ai.DecisionTrace) {
			sim.events.push(Event{Kind: EventDecisionTrace, Entity: h, Action: trace.Action, Reward: trace.Reward})
		},
	})

	ledger := economy.NewLedger()
	econSys := economy.New(economy.Config{Log: log, Store: store, Paths: paths, Ledger: ledger})

	mvSys := movement.New(movement.Config{Log: log, Store: store, Paths: paths, Spatial: index})

	sched := scheduler.New(scheduler.Config{Log: log, Store: store})
	sched.Register(mvSys, PriorityMovement)
	sched.Register(aiSys, PriorityAI)
	sched.Register(econSys, PriorityEconomy)

	sim.sched = sched
	sim.ai = aiSys
	sim.econ = econSys
	sim.mv = mvSys
	sim.ledger = ledger
	return sim
}

// Store returns the underlying entity/component store, for embedders that
// need to attach components the order API doesn't cover directly.
func (s *Sim) Store() *ecs.Store { return s.store }

// Spatial returns the shared spatial index.
func (s *Sim) Spatial() *spatial.Quadtree { return s.index }

// Ledger returns the shared credit ledger.
func (s *Sim) Ledger() *economy.Ledger { return s.ledger }

// Traces returns entity's recorded decision trace, per spec §4.10's
// debug-only decision_trace event.
func (s *Sim) Traces(entity ecs.Handle) []ai.DecisionTrace { return s.ai.Traces(entity) }

// SpawnUnit creates a fully-playable entity at pos for team, bound to
// profile's behavior tree template, and registers it with the spatial
// index. It is the only entity-creation path the public API exposes, so it
// attaches every component spec §4.5's AI component needs (Movement, AI)
// in addition to Transform/Team; an embedder that wants a bare entity with
// no AI should use Store() directly instead.
func (s *Sim) SpawnUnit(pos mgl64.Vec2, team int, profile ecs.BehaviorProfile) (ecs.Handle, error) {
	h, err := s.store.CreateEntity()
	if err != nil {
		return ecs.Nil, err
	}
	if err := ecs.AddTransform(s.store, h, ecs.Transform{Pos: pos, Scale: 1}); err != nil {
		return ecs.Nil, err
	}
	if err := ecs.AddTeam(s.store, h, ecs.Team{ID: team}); err != nil {
		return ecs.Nil, err
	}
	if err := ecs.AddMovement(s.store, h, ecs.Movement{MaxSpeed: DefaultUnitMaxSpeed}); err != nil {
		return ecs.Nil, err
	}
	if err := ecs.AddAI(s.store, h, ecs.AI{
		Enabled:          true,
		BehaviorProfile:  profile,
		Level:            ecs.Normal,
		DecisionInterval: DefaultDecisionInterval,
		Adaptive:         true,
		LearningEnabled:  true,
		ExplorationRate:  DefaultExplorationRate,
		PerceptionRadius: DefaultPerceptionRadius,
	}); err != nil {
		return ecs.Nil, err
	}
	s.index.Insert(h, pos)
	s.spawned = append(s.spawned, h)
	return h, nil
}

// DestroyEntity requests deferred destruction of entity and removes it from
// the spatial index.
func (s *Sim) DestroyEntity(entity ecs.Handle) {
	if !s.store.Live(entity) {
		return
	}
	s.index.Remove(entity)
	s.store.DestroyEntity(entity)
	s.destroyed = append(s.destroyed, entity)
}

// Step advances the simulation by dt milliseconds and returns the events
// produced this tick, in insertion order, per spec §4.10.
func (s *Sim) Step(dt float64) []Event {
	for _, h := range s.spawned {
		s.events.push(Event{Kind: EventEntitySpawned, Entity: h})
	}
	s.spawned = s.spawned[:0]
	for _, h := range s.destroyed {
		s.events.push(Event{Kind: EventEntityDestroyed, Entity: h})
	}
	s.destroyed = s.destroyed[:0]

	s.sched.Step(dt)

	for _, ev := range s.ledger.DrainEvents() {
		s.events.push(Event{
			Kind:          EventEconomyDelta,
			Team:          ev.Team,
			CreditsBefore: ev.CreditsBefore,
			CreditsAfter:  ev.CreditsAfter,
			Reason:        ev.Reason,
		})
	}

	return s.events.Drain()
}
