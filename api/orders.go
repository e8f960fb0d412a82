package api

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/tiberian/simcore/ecs"
)

// ErrInvalidRequest is returned when an inbound order names an entity or
// team that doesn't exist, or a request the core otherwise cannot satisfy.
var ErrInvalidRequest = errors.New("api: invalid request")

// OrderID identifies an accepted move order. It is returned to the caller
// only: outbound events do not carry it and name the affected entity instead.
type OrderID = uuid.UUID

// Blueprint describes a constructible entity for build_order, per spec
// §4.10: "debits credits, spawns a construction entity."
type Blueprint struct {
	Name   string
	Cost   int
	Health float64
}

// MoveOrder engages pathfinding for a single entity toward dest, writing its
// Movement component, and queues path_ready or path_failed for entity
// immediately; the queued event is delivered by the next Step.
func (s *Sim) MoveOrder(entity ecs.Handle, dest mgl64.Vec2) (OrderID, error) {
	if !s.store.Live(entity) {
		return uuid.Nil, ErrInvalidRequest
	}
	xf, ok := ecs.GetTransform(s.store, entity)
	if !ok {
		return uuid.Nil, ErrInvalidRequest
	}
	mv, ok := ecs.GetMovement(s.store, entity)
	if !ok {
		return uuid.Nil, ErrInvalidRequest
	}
	id := uuid.New()
	res, err := s.paths.FindPath(xf.Pos, dest)
	if err != nil || len(res.Waypoints) == 0 {
		mv.HasTarget = false
		mv.Path = nil
		s.events.push(Event{Kind: EventPathFailed, Entity: entity})
		return id, nil
	}
	mv.Path = toWaypoints(res.Waypoints)
	mv.PathCursor = 0
	mv.HasTarget = true
	mv.Target = res.Waypoints[len(res.Waypoints)-1]
	s.events.push(Event{Kind: EventPathReady, Entity: entity, Waypoints: apiWaypoints(res.Waypoints)})
	return id, nil
}

// MoveGroupOrder engages group pathfinding for entities toward dest, per
// spec §4.8's formation-slot assignment.
func (s *Sim) MoveGroupOrder(entities []ecs.Handle, dest mgl64.Vec2) (OrderID, error) {
	live := make([]ecs.Handle, 0, len(entities))
	for _, h := range entities {
		if s.store.Live(h) {
			live = append(live, h)
		}
	}
	if len(live) == 0 {
		return uuid.Nil, ErrInvalidRequest
	}
	starts := make([]mgl64.Vec2, len(live))
	for i, h := range live {
		xf, ok := ecs.GetTransform(s.store, h)
		if !ok {
			return uuid.Nil, ErrInvalidRequest
		}
		starts[i] = xf.Pos
	}
	result, err := s.paths.FindPathsGroup(starts, dest)
	id := uuid.New()
	if err != nil {
		for _, h := range live {
			s.events.push(Event{Kind: EventPathFailed, Entity: h})
		}
		return id, nil
	}
	for i, h := range live {
		mv, ok := ecs.GetMovement(s.store, h)
		if !ok {
			continue
		}
		res := result.Paths[i]
		mv.Path = toWaypoints(res.Waypoints)
		mv.PathCursor = 0
		mv.HasTarget = true
		if len(res.Waypoints) > 0 {
			mv.Target = res.Waypoints[len(res.Waypoints)-1]
		} else {
			mv.Target = dest
		}
		s.events.push(Event{Kind: EventPathReady, Entity: h, Waypoints: apiWaypoints(res.Waypoints)})
	}
	return id, nil
}

// AttackOrder sets entity's AI override to engage target, per spec §4.10.
func (s *Sim) AttackOrder(entity, target ecs.Handle) error {
	if !s.store.Live(entity) || !s.store.Live(target) {
		return ErrInvalidRequest
	}
	comp, ok := ecs.GetAI(s.store, entity)
	if !ok {
		return ErrInvalidRequest
	}
	comp.OverrideTarget = target
	return nil
}

// StopOrder clears entity's path and movement target.
func (s *Sim) StopOrder(entity ecs.Handle) error {
	if !s.store.Live(entity) {
		return ErrInvalidRequest
	}
	mv, ok := ecs.GetMovement(s.store, entity)
	if !ok {
		return ErrInvalidRequest
	}
	mv.HasTarget = false
	mv.Path = nil
	mv.PathCursor = 0
	mv.Velocity = mgl64.Vec2{}
	return nil
}

// BuildOrder debits team's credits for blueprint and, if affordable, spawns
// a construction entity at pos, per spec §4.10. Returns the new entity and
// whether the order was accepted.
func (s *Sim) BuildOrder(team int, blueprint Blueprint, pos mgl64.Vec2) (ecs.Handle, bool) {
	if !s.ledger.Debit(team, blueprint.Cost, "build_order:"+blueprint.Name) {
		return ecs.Nil, false
	}
	h, err := s.store.CreateEntity()
	if err != nil {
		// Refund: the debit already happened but the entity couldn't be
		// created (store at capacity).
		s.ledger.Credit(team, blueprint.Cost, "build_order_refund:"+blueprint.Name)
		return ecs.Nil, false
	}
	ecs.AddTransform(s.store, h, ecs.Transform{Pos: pos, Scale: 1})
	ecs.AddTeam(s.store, h, ecs.Team{ID: team})
	health := blueprint.Health
	if health <= 0 {
		health = 1
	}
	ecs.AddHealth(s.store, h, ecs.Health{Current: health, Max: health, Alive: true})
	s.spawned = append(s.spawned, h)
	return h, true
}

func toWaypoints(pts []mgl64.Vec2) []ecs.Waypoint {
	out := make([]ecs.Waypoint, len(pts))
	for i, p := range pts {
		out[i] = ecs.Waypoint{Pos: p}
	}
	return out
}

func apiWaypoints(pts []mgl64.Vec2) []Waypoint {
	out := make([]Waypoint, len(pts))
	for i, p := range pts {
		out[i] = Waypoint{X: p.X(), Y: p.Y()}
	}
	return out
}
