package api

import "github.com/tiberian/simcore/ecs"

// EventKind tags an outbound event, per spec §4.10's fixed event catalog.
type EventKind int

const (
	EventEntitySpawned EventKind = iota
	EventEntityDestroyed
	EventPathReady
	EventPathFailed
	EventEconomyDelta
	EventDecisionTrace
)

// Event is one outbound notification drained by a collaborator at tick end.
// Only the fields relevant to Kind are populated; the rest are zero.
type Event struct {
	Kind EventKind

	Entity ecs.Handle

	// path_ready / path_failed
	Waypoints []Waypoint

	// economy_delta
	Team          int
	CreditsBefore int
	CreditsAfter  int
	Reason        string

	// decision_trace
	Action int
	Reward float64
}

// Waypoint mirrors ecs.Waypoint without exposing the ecs package's internal
// representation to API consumers.
type Waypoint struct {
	X, Y float64
}

// eventLog accumulates events in insertion order during a tick and hands
// them to the caller at tick end, per spec §4.10: "Events are accumulated
// during a tick and delivered at tick end in insertion order."
type eventLog struct {
	events []Event
}

func (l *eventLog) push(e Event) { l.events = append(l.events, e) }

// Drain returns and clears the accumulated events, in insertion order.
func (l *eventLog) Drain() []Event {
	out := l.events
	l.events = nil
	return out
}
