package qlearning

import (
	"math"
	"math/rand"

	"github.com/segmentio/fasthash/fnv1a"
)

// Backend is the pluggable action-value function approximator. Predict
// returns Q-values for every action given a state; Update performs one
// gradient/averaging step over a minibatch.
type Backend interface {
	Predict(s StateVector) [NumActions]float64
	Update(batch []Transition, lr, gamma float64)
}

// TabularBackend hashes a discretized state vector into a bucket and keeps
// one [NumActions]float64 row per bucket. It is an acceptable fallback for
// tests and small state spaces; it never needs a training framework,
// trading generalization for simplicity.
//
// Uses the same fnv1a hash family relied on elsewhere for allocation-light
// hashing on hot paths, to turn a discretized state into a table key.
type TabularBackend struct {
	buckets int
	table   map[uint64]*[NumActions]float64
	// bins controls the discretization granularity per feature.
	bins int
}

// NewTabularBackend constructs a backend that discretizes each state
// feature into bins buckets before hashing.
func NewTabularBackend(bins int) *TabularBackend {
	if bins <= 0 {
		bins = 10
	}
	return &TabularBackend{table: make(map[uint64]*[NumActions]float64), bins: bins}
}

func (t *TabularBackend) key(s StateVector) uint64 {
	h := fnv1a.Init64
	for _, f := range s {
		bucket := int(f * float64(t.bins))
		if bucket < 0 {
			bucket = 0
		}
		if bucket > t.bins {
			bucket = t.bins
		}
		h = fnv1a.AddUint64(h, uint64(int64(bucket)))
	}
	return h
}

func (t *TabularBackend) row(s StateVector) *[NumActions]float64 {
	k := t.key(s)
	r, ok := t.table[k]
	if !ok {
		r = &[NumActions]float64{}
		t.table[k] = r
	}
	return r
}

func (t *TabularBackend) Predict(s StateVector) [NumActions]float64 {
	return *t.row(s)
}

// Update applies the standard tabular Q-learning rule
// Q(s,a) += lr * (r + gamma * max_a' Q(s',a') - Q(s,a)) to every
// transition in batch.
func (t *TabularBackend) Update(batch []Transition, lr, gamma float64) {
	for _, tr := range batch {
		row := t.row(tr.State)
		target := tr.Reward
		if !tr.Terminal {
			nextRow := t.row(tr.NextState)
			target += gamma * maxOf(nextRow[:])
		}
		row[tr.Action] += lr * (target - row[tr.Action])
	}
}

func maxOf(vs []float64) float64 {
	m := math.Inf(-1)
	for _, v := range vs {
		if v > m {
			m = v
		}
	}
	return m
}

// LinearBackend is a tiny one-hidden-layer feed-forward network (a "small
// feed-forward network" per spec §4.6) with a ReLU hidden layer. A Selector
// uses it only when Config.Backend is set to one; New falls back to a
// TabularBackend otherwise. No example in the retrieval pack
// carries a machine-learning framework dependency, so this layer is
// hand-rolled against the standard library only (see DESIGN.md).
type LinearBackend struct {
	hidden int
	w1     [][]float64 // StateVectorSize x hidden
	b1     []float64
	w2     [][]float64 // hidden x NumActions
	b2     []float64
}

// NewLinearBackend builds a randomly-initialized network with the given
// hidden width, seeded for reproducibility.
func NewLinearBackend(hidden int, seed int64) *LinearBackend {
	if hidden <= 0 {
		hidden = 16
	}
	rng := rand.New(rand.NewSource(seed))
	scale := 0.1
	w1 := make([][]float64, StateVectorSize)
	for i := range w1 {
		w1[i] = make([]float64, hidden)
		for j := range w1[i] {
			w1[i][j] = (rng.Float64()*2 - 1) * scale
		}
	}
	w2 := make([][]float64, hidden)
	for i := range w2 {
		w2[i] = make([]float64, NumActions)
		for j := range w2[i] {
			w2[i][j] = (rng.Float64()*2 - 1) * scale
		}
	}
	return &LinearBackend{
		hidden: hidden,
		w1:     w1,
		b1:     make([]float64, hidden),
		w2:     w2,
		b2:     make([]float64, NumActions),
	}
}

func relu(x float64) float64 {
	if x < 0 {
		return 0
	}
	return x
}

func (n *LinearBackend) forward(s StateVector) (hiddenAct []float64, out [NumActions]float64) {
	hiddenAct = make([]float64, n.hidden)
	for j := 0; j < n.hidden; j++ {
		sum := n.b1[j]
		for i, f := range s {
			sum += f * n.w1[i][j]
		}
		hiddenAct[j] = relu(sum)
	}
	for a := 0; a < NumActions; a++ {
		sum := n.b2[a]
		for j := 0; j < n.hidden; j++ {
			sum += hiddenAct[j] * n.w2[j][a]
		}
		out[a] = sum
	}
	return hiddenAct, out
}

func (n *LinearBackend) Predict(s StateVector) [NumActions]float64 {
	_, out := n.forward(s)
	return out
}

// Update performs one step of mean-squared-error gradient descent over
// batch toward the standard Q-learning bootstrap target.
func (n *LinearBackend) Update(batch []Transition, lr, gamma float64) {
	for _, tr := range batch {
		hiddenAct, out := n.forward(tr.State)
		target := tr.Reward
		if !tr.Terminal {
			nextOut := n.Predict(tr.NextState)
			target += gamma * maxOf(nextOut[:])
		}
		// Gradient of 0.5*(target-out[a])^2 w.r.t. out[a] is -(target-out[a]).
		errGrad := -(target - out[tr.Action])

		// Output layer: w2[:,a] -= lr * errGrad * hiddenAct
		for j := 0; j < n.hidden; j++ {
			n.w2[j][tr.Action] -= lr * errGrad * hiddenAct[j]
		}
		n.b2[tr.Action] -= lr * errGrad

		// Hidden layer, only through the action that was updated.
		for j := 0; j < n.hidden; j++ {
			if hiddenAct[j] <= 0 {
				continue // ReLU gradient is zero
			}
			grad := errGrad * n.w2[j][tr.Action]
			for i, f := range tr.State {
				n.w1[i][j] -= lr * grad * f
			}
			n.b1[j] -= lr * grad
		}
	}
}
