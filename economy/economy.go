// Package economy drives the C&C-authentic tiberium harvesting cycle and
// team credit accounting described in spec §4.9: a Harvester entity visits a
// ResourceDeposit, hauls bails to its home Refinery, and the core's team
// credit ledger is updated as an atomic side effect of unloading.
package economy

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/tiberian/simcore/ecs"
	"github.com/tiberian/simcore/pathfinding"
)

// ExtractionRate is the bails-per-second a harvester pulls from a deposit
// while in Harvesting mode.
const ExtractionRate = 2.0

// IdleSearchRadiusStep is how far a harvester's deposit search radius grows
// on every consecutive idle tick (SPEC_FULL supplement #4), so a harvester
// stranded between two emptied deposits eventually finds one further out
// instead of waiting forever.
const IdleSearchRadiusStep = 64.0

// DefaultSearchRadius is a harvester's initial deposit search radius.
const DefaultSearchRadius = 256.0

// EventKind tags an outbound economy event.
type EventKind int

const (
	// EventCreditDelta fires whenever a team's credit balance changes.
	EventCreditDelta EventKind = iota
)

// Event is emitted whenever a harvester unload or build order changes a
// team's credit balance, matching the api package's economy_delta contract
// (spec §4.10).
type Event struct {
	Kind          EventKind
	Team          int
	CreditsBefore int
	CreditsAfter  int
	Reason        string
}

// Ledger tracks each team's non-negative integer credit balance.
type Ledger struct {
	balances map[int]int
	events   []Event
}

// NewLedger constructs an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[int]int)}
}

// Balance returns team's current credits.
func (l *Ledger) Balance(team int) int { return l.balances[team] }

// Credit adds amount (must be >= 0) to team's balance and records an event.
func (l *Ledger) Credit(team, amount int, reason string) {
	if amount <= 0 {
		return
	}
	before := l.balances[team]
	after := before + amount
	l.balances[team] = after
	l.events = append(l.events, Event{Kind: EventCreditDelta, Team: team, CreditsBefore: before, CreditsAfter: after, Reason: reason})
}

// Debit subtracts amount from team's balance and returns true if the team
// had enough credits to cover the full amount. Otherwise it returns false
// and leaves the balance unchanged; no partial debit is ever applied.
func (l *Ledger) Debit(team, amount int, reason string) bool {
	before := l.balances[team]
	if before < amount {
		return false
	}
	after := before - amount
	l.balances[team] = after
	l.events = append(l.events, Event{Kind: EventCreditDelta, Team: team, CreditsBefore: before, CreditsAfter: after, Reason: reason})
	return true
}

// DrainEvents returns and clears events accumulated since the last call, in
// insertion order, matching spec §4.10's tick-end delivery contract.
func (l *Ledger) DrainEvents() []Event {
	out := l.events
	l.events = nil
	return out
}

// Config configures a System at construction.
type Config struct {
	Log     *slog.Logger
	Store   *ecs.Store
	Paths   *pathfinding.Service
	Ledger  *Ledger
	// ArrivalTolerance is how close (world units) an entity must be to a
	// waypoint to be considered arrived.
	ArrivalTolerance float64
}

// System drives every Harvester component's state machine once per tick, per
// spec §4.9's transition table.
type System struct {
	log              *slog.Logger
	store            *ecs.Store
	paths            *pathfinding.Service
	ledger           *Ledger
	arrivalTolerance float64
}

// New constructs a harvester/economy System.
func New(cfg Config) *System {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	tol := cfg.ArrivalTolerance
	if tol <= 0 {
		tol = 4.0
	}
	return &System{log: log, store: cfg.Store, paths: cfg.Paths, ledger: cfg.Ledger, arrivalTolerance: tol}
}

// Name identifies this system in scheduler diagnostics.
func (s *System) Name() string { return "economy" }

// Update advances every harvester's state machine by dt milliseconds.
func (s *System) Update(dt float64) {
	dtSeconds := dt / 1000.0
	for h := range s.store.Query(ecs.HasHarvester | ecs.HasTransform | ecs.HasMovement) {
		harv, _ := ecs.GetHarvester(s.store, h)
		xf, _ := ecs.GetTransform(s.store, h)
		mv, _ := ecs.GetMovement(s.store, h)
		s.step(h, harv, xf, mv, dtSeconds)
	}
}

func (s *System) step(h ecs.Handle, harv *ecs.Harvester, xf *ecs.Transform, mv *ecs.Movement, dtSeconds float64) {
	switch harv.Mode {
	case ecs.ToDeposit:
		s.stepToDeposit(h, harv, xf, mv)
	case ecs.Harvesting:
		s.stepHarvesting(harv, dtSeconds)
	case ecs.ToRefinery:
		s.stepToRefinery(h, harv, xf, mv)
	case ecs.Unloading:
		s.stepUnloading(h, harv, xf)
	case ecs.HarvesterIdle:
		s.stepIdle(h, harv, xf)
	}
}

func (s *System) stepToDeposit(h ecs.Handle, harv *ecs.Harvester, xf *ecs.Transform, mv *ecs.Movement) {
	if harv.TargetDeposit.IsNil() || !s.store.Live(harv.TargetDeposit) {
		harv.Mode = ecs.HarvesterIdle
		return
	}
	dep, ok := ecs.GetDeposit(s.store, harv.TargetDeposit)
	if !ok || dep.RemainingBails <= 0 {
		harv.TargetDeposit = ecs.Nil
		harv.Mode = ecs.HarvesterIdle
		return
	}
	depXf, ok := ecs.GetTransform(s.store, harv.TargetDeposit)
	if !ok {
		harv.Mode = ecs.HarvesterIdle
		return
	}
	if s.arrived(xf.Pos, depXf.Pos) {
		mv.HasTarget = false
		mv.Path = nil
		harv.Mode = ecs.Harvesting
		return
	}
	s.ensurePathTo(mv, xf.Pos, depXf.Pos)
}

// stepHarvesting extracts whole bails from the target deposit. The
// per-tick rate is expressed in bails, so fractional progress accumulates
// in harv.ExtractionAccumulator across ticks until it crosses a whole bail;
// spec §4.9's min(extractionRate*dt, remaining, capacity-carrying) formula
// is evaluated in bail units, then converted to credits once a whole bail
// is extracted, since Carrying and Capacity are credit-denominated.
func (s *System) stepHarvesting(harv *ecs.Harvester, dtSeconds float64) {
	dep, ok := ecs.GetDeposit(s.store, harv.TargetDeposit)
	if !ok {
		harv.Mode = ecs.ToRefinery
		return
	}
	capacityBails := float64(harv.Capacity-harv.Carrying) / ecs.BailCredits
	budget := min3(ExtractionRate*dtSeconds, float64(dep.RemainingBails), capacityBails)
	if budget < 0 {
		budget = 0
	}
	harv.ExtractionAccumulator += budget
	bails := int(harv.ExtractionAccumulator)
	if bails > dep.RemainingBails {
		bails = dep.RemainingBails
	}
	if bails > 0 {
		harv.ExtractionAccumulator -= float64(bails)
		harv.Carrying += bails * ecs.BailCredits
		dep.RemainingBails -= bails
	}
	if harv.Carrying >= harv.Capacity || dep.RemainingBails == 0 {
		harv.ExtractionAccumulator = 0
		harv.Mode = ecs.ToRefinery
	}
}

func (s *System) stepToRefinery(h ecs.Handle, harv *ecs.Harvester, xf *ecs.Transform, mv *ecs.Movement) {
	if harv.HomeRefinery.IsNil() || !s.store.Live(harv.HomeRefinery) {
		harv.Mode = ecs.HarvesterIdle
		return
	}
	refXf, ok := ecs.GetTransform(s.store, harv.HomeRefinery)
	if !ok {
		harv.Mode = ecs.HarvesterIdle
		return
	}
	if s.arrived(xf.Pos, refXf.Pos) {
		mv.HasTarget = false
		mv.Path = nil
		harv.Mode = ecs.Unloading
		return
	}
	s.ensurePathTo(mv, xf.Pos, refXf.Pos)
}

func (s *System) stepUnloading(h ecs.Handle, harv *ecs.Harvester, xf *ecs.Transform) {
	ref, ok := ecs.GetRefinery(s.store, harv.HomeRefinery)
	if !ok {
		harv.Mode = ecs.HarvesterIdle
		return
	}
	// Carrying is already credit-denominated (stepHarvesting converts
	// extracted bails to credits as they're extracted).
	credits := harv.Carrying
	harv.Carrying = 0
	if credits > 0 {
		s.ledger.Credit(ref.OwningTeam, credits, "harvester_unload")
	}
	harv.IdleSearchRadius = 0
	if target, ok := s.findNearestDeposit(xf.Pos, DefaultSearchRadius); ok {
		harv.TargetDeposit = target
		harv.Mode = ecs.ToDeposit
		return
	}
	harv.Mode = ecs.HarvesterIdle
}

func (s *System) stepIdle(h ecs.Handle, harv *ecs.Harvester, xf *ecs.Transform) {
	if harv.IdleSearchRadius <= 0 {
		harv.IdleSearchRadius = DefaultSearchRadius
	}
	if target, ok := s.findNearestDeposit(xf.Pos, harv.IdleSearchRadius); ok {
		harv.TargetDeposit = target
		harv.Mode = ecs.ToDeposit
		harv.IdleSearchRadius = 0
		return
	}
	harv.IdleSearchRadius += IdleSearchRadiusStep
}

// findNearestDeposit is grounded on the store's Query iterator rather than
// the spatial index: the economy system runs far less often per entity than
// movement/AI and deposit counts are small relative to unit counts, so a
// linear scan keeps this system decoupled from the spatial package.
func (s *System) findNearestDeposit(from mgl64.Vec2, radius float64) (ecs.Handle, bool) {
	best := ecs.Nil
	bestDist := radius
	for h := range s.store.Query(ecs.HasDeposit | ecs.HasTransform) {
		dep, _ := ecs.GetDeposit(s.store, h)
		if dep.RemainingBails <= 0 {
			continue
		}
		depXf, _ := ecs.GetTransform(s.store, h)
		d := depXf.Pos.Sub(from).Len()
		if d <= bestDist {
			bestDist = d
			best = h
		}
	}
	return best, !best.IsNil()
}

func (s *System) arrived(a, b mgl64.Vec2) bool {
	return a.Sub(b).Len() <= s.arrivalTolerance
}

func (s *System) ensurePathTo(mv *ecs.Movement, from, to mgl64.Vec2) {
	if mv.HasTarget && mv.Target.Sub(to).Len() < 0.01 {
		return
	}
	res, err := s.paths.FindPath(from, to)
	if err != nil || len(res.Waypoints) == 0 {
		return
	}
	mv.Path = make([]ecs.Waypoint, len(res.Waypoints))
	for i, w := range res.Waypoints {
		mv.Path[i] = ecs.Waypoint{Pos: w}
	}
	mv.PathCursor = 0
	mv.HasTarget = true
	mv.Target = to
}

func min3(a, b, c float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
