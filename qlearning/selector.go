package qlearning

import (
	"log/slog"
	"math/rand"
)

// DefaultMaxRewardMagnitude bounds rewards fed into the selector, per spec
// §4.6.
const DefaultMaxRewardMagnitude = 100.0

// Config configures a Selector at construction. There are no package-level
// defaults or singletons (spec §9, "Global mutable state").
type Config struct {
	Log *slog.Logger
	// Backend is the value-function approximator. If nil, a TabularBackend
	// is used.
	Backend Backend
	// LearningRate, Gamma and Epsilon are the required hyperparameters.
	LearningRate float64
	Gamma        float64
	Epsilon      float64
	// EpsilonDecay multiplies Epsilon after every Select call that uses it,
	// down to EpsilonMin.
	EpsilonDecay float64
	EpsilonMin   float64
	// TargetSyncInterval is how many learning updates Observe applies
	// between target syncs. No separate target network is kept: a sync
	// re-points the selector's target field at the online backend, which it
	// already is, and every backend computes its bootstrapped targets from
	// itself, so this setting does not change what is learned. A value of 0
	// turns the sync counter off.
	TargetSyncInterval int
	MinibatchSize      int
	ReplayCapacity     int
	MaxRewardMagnitude float64
	Seed               int64
}

// Selector implements the ε-greedy 16-action policy described in spec §4.6.
type Selector struct {
	log     *slog.Logger
	backend Backend
	target  Backend // always the online backend; not read when computing targets
	replay  *ReplayBuffer
	rng     *rand.Rand

	lr, gamma            float64
	epsilon, epsilonMin  float64
	epsilonDecay         float64
	maxReward            float64
	minibatch            int
	targetSyncInterval   int
	learnCallsSinceSync  int

	lastAction Action
}

// New constructs a Selector from cfg, filling in recommended defaults for
// anything left zero.
func New(cfg Config) *Selector {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	backend := cfg.Backend
	if backend == nil {
		backend = NewTabularBackend(10)
	}
	maxReward := cfg.MaxRewardMagnitude
	if maxReward <= 0 {
		maxReward = DefaultMaxRewardMagnitude
	}
	minibatch := cfg.MinibatchSize
	if minibatch <= 0 {
		minibatch = DefaultMinibatchSize
	}
	epsilonMin := cfg.EpsilonMin
	if epsilonMin <= 0 {
		epsilonMin = 0.01
	}
	decay := cfg.EpsilonDecay
	if decay <= 0 {
		decay = 1.0 // no decay unless configured
	}
	return &Selector{
		log:                log,
		backend:            backend,
		target:             backend,
		replay:             NewReplayBuffer(cfg.ReplayCapacity, cfg.Seed),
		rng:                rand.New(rand.NewSource(cfg.Seed)),
		lr:                 cfg.LearningRate,
		gamma:              cfg.Gamma,
		epsilon:            cfg.Epsilon,
		epsilonMin:         epsilonMin,
		epsilonDecay:       decay,
		maxReward:          maxReward,
		minibatch:          minibatch,
		targetSyncInterval: cfg.TargetSyncInterval,
		lastAction:         ActionIdle,
	}
}

// Select chooses an action for state s. A malformed state vector (non-finite
// components) always returns ActionIdle and logs a warning, per spec §4.6
// failure semantics. A backend panic is caught, the previously chosen
// action is returned instead, and the panic is logged.
func (sel *Selector) Select(s StateVector) (action Action) {
	if !s.Finite() {
		sel.log.Warn("qlearning: state vector has non-finite components, returning Idle")
		return ActionIdle
	}

	defer func() {
		if r := recover(); r != nil {
			sel.log.Error("qlearning: backend panicked during prediction, reusing last action", "panic", r)
			action = sel.lastAction
		}
	}()

	if sel.rng.Float64() < sel.epsilon {
		action = Action(sel.rng.Intn(NumActions))
	} else {
		qs := sel.backend.Predict(s)
		action = argmax(qs)
	}
	if sel.epsilon > sel.epsilonMin {
		sel.epsilon = max(sel.epsilonMin, sel.epsilon*sel.epsilonDecay)
	}
	sel.lastAction = action
	return action
}

// SelectWithEpsilon behaves like Select but uses epsilon in place of the
// selector's own decayed exploration schedule, for callers that layer a
// per-entity explorationRate (spec §4.5's configuration option) on top of
// one shared learned policy. It does not advance the selector's internal
// epsilon decay; callers mixing this with Select should expect only Select
// calls to decay.
func (sel *Selector) SelectWithEpsilon(s StateVector, epsilon float64) (action Action) {
	if !s.Finite() {
		sel.log.Warn("qlearning: state vector has non-finite components, returning Idle")
		return ActionIdle
	}

	defer func() {
		if r := recover(); r != nil {
			sel.log.Error("qlearning: backend panicked during prediction, reusing last action", "panic", r)
			action = sel.lastAction
		}
	}()

	if sel.rng.Float64() < epsilon {
		action = Action(sel.rng.Intn(NumActions))
	} else {
		qs := sel.backend.Predict(s)
		action = argmax(qs)
	}
	sel.lastAction = action
	return action
}

// argmax returns the lowest-indexed action achieving the maximum Q-value,
// making ties deterministic per spec §4.6.
func argmax(qs [NumActions]float64) Action {
	best := 0
	for i := 1; i < NumActions; i++ {
		if qs[i] > qs[best] {
			best = i
		}
	}
	return Action(best)
}

// ClampReward bounds r to [-MaxRewardMagnitude, +MaxRewardMagnitude],
// logging when clamping occurred.
func (sel *Selector) ClampReward(r float64) float64 {
	if r > sel.maxReward {
		sel.log.Warn("qlearning: reward exceeded max magnitude, clamping", "reward", r, "max", sel.maxReward)
		return sel.maxReward
	}
	if r < -sel.maxReward {
		sel.log.Warn("qlearning: reward exceeded max magnitude, clamping", "reward", r, "max", -sel.maxReward)
		return -sel.maxReward
	}
	return r
}

// Observe records a transition into the replay buffer and, once enough
// transitions are available, samples a minibatch and applies one learning
// update. It is a no-op (beyond recording) until the buffer holds at least
// MinibatchSize transitions.
func (sel *Selector) Observe(t Transition) {
	t.Reward = sel.ClampReward(t.Reward)
	sel.replay.Add(t)
	if sel.replay.Len() < sel.minibatch {
		return
	}
	batch := sel.replay.Sample(sel.minibatch)
	sel.backend.Update(batch, sel.lr, sel.gamma)

	if sel.targetSyncInterval > 0 {
		sel.learnCallsSinceSync++
		if sel.learnCallsSinceSync >= sel.targetSyncInterval {
			sel.learnCallsSinceSync = 0
			sel.target = sel.backend
		}
	}
}

// LastAction returns the most recently selected action, used as the
// fallback when the backend faults.
func (sel *Selector) LastAction() Action { return sel.lastAction }

// Epsilon returns the selector's current exploration rate.
func (sel *Selector) Epsilon() float64 { return sel.epsilon }
