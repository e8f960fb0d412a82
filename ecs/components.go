package ecs

import "github.com/go-gl/mathgl/mgl64"

// Transform is the position, rotation and scale of an entity in world space.
// World coordinates are floating-point, right-handed, y-down, matching the
// screen convention used by the rest of the core.
type Transform struct {
	Pos      mgl64.Vec2
	Rotation float64
	Scale    float64
}

// Waypoint is a single point along a Movement path, expressed in world
// units. Paths are owned by the Movement component that holds them; the
// pathfinding service hands back copies.
type Waypoint struct {
	Pos mgl64.Vec2
}

// Movement holds an entity's velocity and the path it is currently
// following, if any.
type Movement struct {
	Velocity   mgl64.Vec2
	MaxSpeed   float64
	HasTarget  bool
	Target     mgl64.Vec2
	Path       []Waypoint
	PathCursor int
}

// Health tracks an entity's hit points. Alive is kept in sync with Current:
// Alive holds iff Current > 0.
type Health struct {
	Current, Max float64
	Alive        bool
}

// SetCurrent clamps and assigns Current, maintaining the Alive invariant.
func (h *Health) SetCurrent(v float64) {
	if v < 0 {
		v = 0
	}
	if v > h.Max {
		v = h.Max
	}
	h.Current = v
	h.Alive = h.Current > 0
}

// Team identifies which side an entity belongs to.
type Team struct {
	ID int
}

// BehaviorProfile names one of the fixed behavior-tree templates an AI
// component can be bound to.
type BehaviorProfile string

const (
	ProfileScout       BehaviorProfile = "scout"
	ProfileCombatUnit  BehaviorProfile = "combat_unit"
	ProfileHarvester   BehaviorProfile = "harvester"
	ProfileDefender    BehaviorProfile = "defender"
	ProfileIdle        BehaviorProfile = "idle"
)

// AILevel scales perception and decision quality.
type AILevel int

const (
	Easy AILevel = iota
	Normal
	Hard
)

// AIState is the diagnostic state tag cycling Idle -> Perceiving -> Deciding
// -> Acting -> Learning -> Idle.
type AIState int

const (
	StateIdle AIState = iota
	StatePerceiving
	StateDeciding
	StateActing
	StateLearning
)

func (s AIState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StatePerceiving:
		return "Perceiving"
	case StateDeciding:
		return "Deciding"
	case StateActing:
		return "Acting"
	case StateLearning:
		return "Learning"
	default:
		return "Unknown"
	}
}

// AI is the tactical AI component. The tactical context it acts on is not
// stored here: the ai system rebuilds it every perception cycle, so the
// component retains no handles to nearby entities across ticks.
type AI struct {
	Enabled          bool
	BehaviorProfile  BehaviorProfile
	Level            AILevel
	State            AIState
	LastDecisionTime float64 // ms, simulation clock
	DecisionInterval float64 // ms, > 0
	Adaptive         bool
	LearningEnabled  bool
	ExplorationRate  float64
	PerceptionRadius float64
	Debug            bool

	// LastAction is the most recent action id chosen for this entity by the
	// Q-learning selector; the ai system reuses it on ticks where no new
	// decision is due.
	LastAction int
	// QHandle is carried on the component but is not read by the ai or
	// qlearning packages; every entity shares one Q-learning selector.
	QHandle uint64

	// OverrideTarget is set by an attack_order (spec §4.10): "sets AI
	// override to 'engage this target'". When non-nil the next decision
	// forces an attack against it instead of consulting the learned policy,
	// and is cleared once issued.
	OverrideTarget Handle
}

// HarvesterMode enumerates the harvester cycle's states.
type HarvesterMode int

const (
	ToDeposit HarvesterMode = iota
	Harvesting
	ToRefinery
	Unloading
	HarvesterIdle
)

func (m HarvesterMode) String() string {
	switch m {
	case ToDeposit:
		return "ToDeposit"
	case Harvesting:
		return "Harvesting"
	case ToRefinery:
		return "ToRefinery"
	case Unloading:
		return "Unloading"
	case HarvesterIdle:
		return "Idle"
	default:
		return "Unknown"
	}
}

// HarvesterCapacity is the fixed C&C-authentic harvester capacity in
// credits (28 bails at 25 credits each).
const HarvesterCapacity = 700

// Harvester drives the tiberium-collection cycle described in spec §4.9.
type Harvester struct {
	Capacity      int // always HarvesterCapacity; kept as a field for clarity at call sites
	Carrying      int
	HomeRefinery  Handle
	TargetDeposit Handle
	Mode          HarvesterMode
	// IdleSearchRadius widens on each consecutive idle tick so a harvester
	// with no reachable deposit eventually finds one outside its initial
	// search radius instead of waiting forever.
	IdleSearchRadius float64
	// ExtractionAccumulator carries the fractional bail extracted-but-not-yet-
	// whole amount between ticks while Harvesting, since a tick's elapsed
	// time rarely divides evenly into whole bails at the configured rate.
	ExtractionAccumulator float64
}

// BailCredits is the credit value of a single bail of tiberium.
const BailCredits = 25

// ResourceDeposit is a depletable tiberium patch.
type ResourceDeposit struct {
	RemainingBails int
}

// Refinery receives unloads from harvesters belonging to OwningTeam.
type Refinery struct {
	OwningTeam int
}

// Selectable marks an entity as part of a player-controlled group.
type Selectable struct {
	GroupID int
}
