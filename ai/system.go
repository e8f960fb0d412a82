package ai

import (
	"log/slog"
	"math"

	"github.com/tiberian/simcore/behaviortree"
	"github.com/tiberian/simcore/ecs"
	"github.com/tiberian/simcore/qlearning"
	"github.com/tiberian/simcore/reward"
	"github.com/tiberian/simcore/spatial"
)

// adaptiveBoundLow and adaptiveBoundHigh bound the adaptive decision-timing
// scale factor, per spec §4.5: "adaptive mode only scales by a bounded
// factor in [0.25, 4.0]".
const (
	adaptiveBoundLow  = 0.25
	adaptiveBoundHigh = 4.0
)

// moveStepDistance is how far, in world units, a single MoveN..MoveNW
// action steers an entity's velocity target per tick of execution; the
// Movement system integrates actual displacement from velocity and dt.
const moveStepDistance = 1.0

// Config configures a System at construction.
type Config struct {
	Log       *slog.Logger
	Store     *ecs.Store
	Spatial   *spatial.Quadtree
	Selector  *qlearning.Selector
	Rewards   *reward.Engine
	Templates *behaviortree.TemplateRegistry
	// Levels maps AILevel to its perception/decision/exploration
	// multipliers. DefaultLevelProfiles() is used if nil.
	Levels map[ecs.AILevel]LevelProfile
	// TraceCapacity bounds each entity's decision trace ring buffer.
	TraceCapacity int
	// OnTrace, if set, is called for every decision recorded while an
	// entity's Debug flag is enabled, letting a caller stream decision_trace
	// events (spec §4.10) as they happen rather than only polling Traces.
	OnTrace func(h ecs.Handle, trace DecisionTrace)
}

// System drives every enabled AI component's Idle->Perceiving->Deciding->
// Acting->Learning->Idle cycle once per tick, per spec §4.5.
type System struct {
	log       *slog.Logger
	store     *ecs.Store
	spatial   *spatial.Quadtree
	selector  *qlearning.Selector
	rewards   *reward.Engine
	templates *behaviortree.TemplateRegistry
	levels    map[ecs.AILevel]LevelProfile
	traceCap  int

	clock     float64 // ms, advanced by Update(dt)
	trees     map[uint32]*behaviortree.Tree
	lastState map[uint32]qlearning.StateVector
	traces    map[uint32]*traceRing
	onTrace   func(h ecs.Handle, trace DecisionTrace)
}

// New constructs an ai.System.
func New(cfg Config) *System {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	levels := cfg.Levels
	if levels == nil {
		levels = DefaultLevelProfiles()
	}
	return &System{
		log:       log,
		store:     cfg.Store,
		spatial:   cfg.Spatial,
		selector:  cfg.Selector,
		rewards:   cfg.Rewards,
		templates: cfg.Templates,
		levels:    levels,
		traceCap:  cfg.TraceCapacity,
		trees:     make(map[uint32]*behaviortree.Tree),
		lastState: make(map[uint32]qlearning.StateVector),
		traces:    make(map[uint32]*traceRing),
		onTrace:   cfg.OnTrace,
	}
}

// Name identifies this system in scheduler diagnostics.
func (s *System) Name() string { return "ai" }

// Update advances every enabled AI component by dt milliseconds.
func (s *System) Update(dt float64) {
	for h := range s.store.Query(ecs.HasAI | ecs.HasTransform) {
		ai, _ := ecs.GetAI(s.store, h)
		if !ai.Enabled {
			continue
		}
		s.step(h, ai)
	}
	s.clock += dt
}

func (s *System) step(h ecs.Handle, comp *ecs.AI) {
	comp.State = ecs.StatePerceiving
	profile := s.levels[comp.Level]
	radius := comp.PerceptionRadius * nonZero(profile.PerceptionMultiplier, 1)
	ctx := buildContext(s.store, s.spatial, h, radius)

	comp.State = ecs.StateDeciding
	effInterval := s.effectiveInterval(comp, ctx, profile)
	due := s.clock-comp.LastDecisionTime >= effInterval

	action := qlearning.Action(comp.LastAction)
	curState := toStateVector(ctx, comp)
	switch {
	case !comp.OverrideTarget.IsNil() && s.store.Live(comp.OverrideTarget):
		// An attack_order forces this tick's action regardless of decision
		// cadence; it still runs through dispatch/outcomeFor/Observe so the
		// policy learns from the outcome like any other action.
		action = qlearning.ActionAttackNearest
		comp.LastAction = int(action)
		comp.LastDecisionTime = s.clock
		mv, ok := ecs.GetMovement(s.store, h)
		if ok {
			s.steerTowardHandle(mv, ctx.SelfPos, comp.OverrideTarget)
		}
		comp.OverrideTarget = ecs.Nil
	case due:
		epsilon := clamp(comp.ExplorationRate*nonZero(profile.ExplorationMultiplier, 1), 0, 1)
		action = s.selector.SelectWithEpsilon(curState, epsilon)
		comp.LastAction = int(action)
		comp.LastDecisionTime = s.clock
		s.dispatch(h, comp, ctx, action)
	}

	comp.State = ecs.StateActing
	tree := s.treeFor(h, comp)
	if tree != nil {
		tree.Tick()
	}

	comp.State = ecs.StateLearning
	if comp.LearningEnabled {
		outcome := s.outcomeFor(ctx, action)
		r := s.rewards.Compute(outcome)
		prev, hadPrev := s.lastState[h.Index()]
		if !hadPrev {
			prev = curState
		}
		s.selector.Observe(qlearning.Transition{State: prev, Action: action, Reward: r, NextState: curState})
		if comp.Debug {
			trace := DecisionTrace{Tick: int64(s.clock), Action: int(action), Reward: r}
			s.traceFor(h).push(trace)
			if s.onTrace != nil {
				s.onTrace(h, trace)
			}
		}
	}
	s.lastState[h.Index()] = curState

	comp.State = ecs.StateIdle
}

// effectiveInterval applies adaptive decision timing, per spec §4.5: the
// base interval shrinks under combat (enemies near) and grows when idle
// (no enemies, full health), bounded to [0.25, 4.0] of the base.
func (s *System) effectiveInterval(comp *ecs.AI, ctx TacticalContext, profile LevelProfile) float64 {
	base := comp.DecisionInterval * nonZero(profile.DecisionIntervalMultiplier, 1)
	if !comp.Adaptive {
		return base
	}
	scale := 1.0
	switch {
	case ctx.EnemiesNear > 0:
		scale = 0.25
	case ctx.HealthRatio >= 0.99 && ctx.EnemiesNear == 0:
		scale = 4.0
	}
	if scale < adaptiveBoundLow {
		scale = adaptiveBoundLow
	}
	if scale > adaptiveBoundHigh {
		scale = adaptiveBoundHigh
	}
	return base * scale
}

func (s *System) treeFor(h ecs.Handle, comp *ecs.AI) *behaviortree.Tree {
	if t, ok := s.trees[h.Index()]; ok {
		return t
	}
	t, ok := s.templates.Build(comp.BehaviorProfile)
	if !ok {
		s.log.Warn("ai: no behavior tree template registered for profile", "profile", comp.BehaviorProfile)
		return nil
	}
	s.trees[h.Index()] = t
	return t
}

func (s *System) traceFor(h ecs.Handle) *traceRing {
	r, ok := s.traces[h.Index()]
	if !ok {
		r = newTraceRing(s.traceCap)
		s.traces[h.Index()] = r
	}
	return r
}

// Traces returns the recorded decision trace for h, oldest first, or nil if
// the entity has never run with Debug enabled.
func (s *System) Traces(h ecs.Handle) []DecisionTrace {
	r, ok := s.traces[h.Index()]
	if !ok {
		return nil
	}
	return r.Snapshot()
}

func nonZero(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}

func toStateVector(ctx TacticalContext, comp *ecs.AI) qlearning.StateVector {
	var v qlearning.StateVector
	v[qlearning.FeatureHealthRatio] = ctx.HealthRatio
	if comp.PerceptionRadius > 0 {
		v[qlearning.FeaturePosX] = clamp(ctx.SelfPos.X()/comp.PerceptionRadius, -1, 1)
		v[qlearning.FeaturePosY] = clamp(ctx.SelfPos.Y()/comp.PerceptionRadius, -1, 1)
	}
	v[qlearning.FeatureAlliesNear] = clamp(float64(ctx.AlliesNear)/8.0, 0, 1)
	v[qlearning.FeatureEnemiesNear] = clamp(float64(ctx.EnemiesNear)/8.0, 0, 1)
	if comp.PerceptionRadius > 0 && !math.IsInf(ctx.ThreatDist, 1) {
		v[qlearning.FeatureThreatDist] = clamp(ctx.ThreatDist/comp.PerceptionRadius, 0, 1)
		v[qlearning.FeatureThreatDirX] = ctx.ThreatDir.X()
		v[qlearning.FeatureThreatDirY] = ctx.ThreatDir.Y()
	} else {
		v[qlearning.FeatureThreatDist] = 1
	}
	if comp.PerceptionRadius > 0 && !math.IsInf(ctx.ResourceDist, 1) {
		v[qlearning.FeatureResourceDist] = clamp(ctx.ResourceDist/comp.PerceptionRadius, 0, 1)
	} else {
		v[qlearning.FeatureResourceDist] = 1
	}
	switch comp.State {
	case ecs.StateIdle:
		v[qlearning.FeatureStateIdle] = 1
	case ecs.StatePerceiving:
		v[qlearning.FeatureStatePerceiving] = 1
	case ecs.StateDeciding:
		v[qlearning.FeatureStateDeciding] = 1
	case ecs.StateActing:
		v[qlearning.FeatureStateActing] = 1
	case ecs.StateLearning:
		v[qlearning.FeatureStateLearning] = 1
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
