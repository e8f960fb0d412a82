// Package movement implements the system referenced throughout spec §4.8/
// §5 as running at priority ~5, ahead of AI: it integrates each entity's
// Movement component, following a Movement.Path when one is set and
// otherwise applying Velocity directly, requesting new paths from the
// pathfinding service and re-issuing from the tail when a prior path
// turned out incomplete (spec §8 scenario 6).
package movement

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/tiberian/simcore/ecs"
	"github.com/tiberian/simcore/pathfinding"
	"github.com/tiberian/simcore/spatial"
)

// ArrivalTolerance is how close (world units) an entity must get to a
// waypoint or target before it's considered reached.
const ArrivalTolerance = 1.0

// Config configures a System at construction.
type Config struct {
	Log     *slog.Logger
	Store   *ecs.Store
	Paths   *pathfinding.Service
	Spatial *spatial.Quadtree
}

// System advances every Movement component by dt each tick.
type System struct {
	log     *slog.Logger
	store   *ecs.Store
	paths   *pathfinding.Service
	spatial *spatial.Quadtree
}

// New constructs a movement System.
func New(cfg Config) *System {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &System{log: log, store: cfg.Store, paths: cfg.Paths, spatial: cfg.Spatial}
}

// Name identifies this system in scheduler diagnostics.
func (s *System) Name() string { return "movement" }

// Update advances every entity carrying Movement+Transform by dt
// milliseconds, keeping the spatial index in sync with any position change
// per spec §4.2's indexed-state-matches-store invariant.
func (s *System) Update(dt float64) {
	dtSeconds := dt / 1000.0
	for h := range s.store.Query(ecs.HasMovement | ecs.HasTransform) {
		mv, _ := ecs.GetMovement(s.store, h)
		xf, _ := ecs.GetTransform(s.store, h)
		before := xf.Pos
		s.step(mv, xf, dtSeconds)
		if s.spatial != nil && xf.Pos != before {
			s.spatial.Update(h, before, xf.Pos)
		}
	}
}

func (s *System) step(mv *ecs.Movement, xf *ecs.Transform, dtSeconds float64) {
	if mv.PathCursor < len(mv.Path) {
		s.followPath(mv, xf, dtSeconds)
		return
	}
	if mv.HasTarget {
		s.pursueTarget(mv, xf, dtSeconds)
		return
	}
	if mv.Velocity != (mgl64.Vec2{}) {
		step(xf, mv.Velocity, dtSeconds)
	}
}

func (s *System) followPath(mv *ecs.Movement, xf *ecs.Transform, dtSeconds float64) {
	wp := mv.Path[mv.PathCursor]
	if moveToward(xf, wp.Pos, mv.MaxSpeed, dtSeconds) {
		mv.PathCursor++
	}
	if mv.PathCursor >= len(mv.Path) {
		mv.Path = nil
		mv.PathCursor = 0
		if mv.HasTarget && xf.Pos.Sub(mv.Target).Len() <= ArrivalTolerance {
			mv.HasTarget = false
		}
		// else: the path ended short of the target (a prior incomplete
		// result per spec §8 scenario 6); the next Update's pursueTarget
		// branch re-requests a path from the tail automatically.
	}
}

func (s *System) pursueTarget(mv *ecs.Movement, xf *ecs.Transform, dtSeconds float64) {
	if xf.Pos.Sub(mv.Target).Len() <= ArrivalTolerance {
		mv.HasTarget = false
		mv.Velocity = mgl64.Vec2{}
		return
	}
	if s.paths == nil {
		moveToward(xf, mv.Target, mv.MaxSpeed, dtSeconds)
		return
	}
	res, err := s.paths.FindPath(xf.Pos, mv.Target)
	if err != nil {
		s.log.Warn("movement: path request rejected, holding position", "err", err)
		mv.HasTarget = false
		return
	}
	if len(res.Waypoints) == 0 {
		// Unreachable: spec §4.8 treats this as a normal empty-path result,
		// not an error. The unit stops rather than thrashing retries.
		mv.HasTarget = false
		return
	}
	mv.Path = make([]ecs.Waypoint, len(res.Waypoints))
	for i, w := range res.Waypoints {
		mv.Path[i] = ecs.Waypoint{Pos: w}
	}
	mv.PathCursor = 0
	s.followPath(mv, xf, dtSeconds)
}

// moveToward steps xf.Pos toward target at maxSpeed, reporting whether it
// arrived (within ArrivalTolerance) this step.
func moveToward(xf *ecs.Transform, target mgl64.Vec2, maxSpeed, dtSeconds float64) bool {
	delta := target.Sub(xf.Pos)
	dist := delta.Len()
	if dist <= ArrivalTolerance {
		xf.Pos = target
		return true
	}
	travel := maxSpeed * dtSeconds
	if travel <= 0 {
		return false
	}
	if travel >= dist {
		xf.Pos = target
		return true
	}
	xf.Pos = xf.Pos.Add(delta.Mul(travel / dist))
	return false
}

func step(xf *ecs.Transform, velocity mgl64.Vec2, dtSeconds float64) {
	xf.Pos = xf.Pos.Add(velocity.Mul(dtSeconds))
}
