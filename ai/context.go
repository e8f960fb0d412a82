// Package ai implements the tactical AI component described in spec §4.5:
// the per-tick glue between perception (spatial queries), decision-making
// (the Q-learning selector), low-level execution (the behavior tree
// runtime), and feedback (the reward engine).
package ai

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/tiberian/simcore/ecs"
)

// TacticalContext is rebuilt from spatial queries every tick, per spec
// §4.5 step 1. It retains no state across ticks; an AI component's Memory
// is entirely this struct, refreshed from scratch each time.
type TacticalContext struct {
	Self        ecs.Handle
	SelfPos     mgl64.Vec2
	HealthRatio float64

	AlliesNear   int
	EnemiesNear  int

	NearestEnemy   ecs.Handle
	WeakestEnemy   ecs.Handle
	StrongestEnemy ecs.Handle

	NearestThreat ecs.Handle
	ThreatDist    float64
	ThreatDir     mgl64.Vec2

	NearestResource ecs.Handle
	ResourceDist    float64
}

// LevelProfile carries the perception/decision/exploration multipliers one
// AILevel applies, per SPEC_FULL supplement #2 (§4.5 leaves "scales
// perception radius and decision quality" unspecified).
type LevelProfile struct {
	PerceptionMultiplier      float64
	DecisionIntervalMultiplier float64
	ExplorationMultiplier     float64
}

// DefaultLevelProfiles returns the stock Easy/Normal/Hard table: Easy sees
// less, decides slower and explores more; Hard sees further, decides
// faster and exploits its policy more.
func DefaultLevelProfiles() map[ecs.AILevel]LevelProfile {
	return map[ecs.AILevel]LevelProfile{
		ecs.Easy:   {PerceptionMultiplier: 0.6, DecisionIntervalMultiplier: 1.5, ExplorationMultiplier: 1.5},
		ecs.Normal: {PerceptionMultiplier: 1.0, DecisionIntervalMultiplier: 1.0, ExplorationMultiplier: 1.0},
		ecs.Hard:   {PerceptionMultiplier: 1.4, DecisionIntervalMultiplier: 0.7, ExplorationMultiplier: 0.5},
	}
}

// DecisionTrace is one entry in an AI component's opt-in decision history,
// per SPEC_FULL supplement #5.
type DecisionTrace struct {
	Tick   int64
	Action int
	Reward float64
}

// DefaultTraceCapacity bounds the per-entity decision trace ring buffer.
const DefaultTraceCapacity = 64

// traceRing is a small fixed-capacity ring buffer of DecisionTrace entries.
type traceRing struct {
	buf  []DecisionTrace
	next int
	size int
}

func newTraceRing(capacity int) *traceRing {
	if capacity <= 0 {
		capacity = DefaultTraceCapacity
	}
	return &traceRing{buf: make([]DecisionTrace, capacity)}
}

func (r *traceRing) push(t DecisionTrace) {
	r.buf[r.next] = t
	r.next = (r.next + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
}

// Snapshot returns the recorded traces oldest-first.
func (r *traceRing) Snapshot() []DecisionTrace {
	out := make([]DecisionTrace, r.size)
	start := (r.next - r.size + len(r.buf)) % len(r.buf)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}
