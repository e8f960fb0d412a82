package pathfinding

import (
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/sync/singleflight"
)

// ErrInvalidRequest is returned when a start or goal world position falls
// outside the navigation grid.
type ErrInvalidRequest struct {
	Reason string
}

func (e *ErrInvalidRequest) Error() string { return "pathfinding: invalid request: " + e.Reason }

// Config configures a Service at construction.
type Config struct {
	Log        *slog.Logger
	Grid       *NavGrid
	NodeBudget int
	CacheSize  int
	// FormationSpacing is the world-unit distance between concentric
	// formation rings used by FindPathsGroup.
	FormationSpacing float64
}

// Service plans walkable paths on a NavGrid, serving both single-unit and
// coordinated group requests, per spec §4.8.
//
// Service.FindPath itself always computes synchronously, matching spec §5
// ("find_path computes synchronously within its node budget"). The
// embedded singleflight.Group only matters if an embedder chooses to call
// a shared Service from multiple worker goroutines (the parallelization
// spec §5 explicitly allows, provided results are merged at Commit) — it
// then coalesces identical concurrent (start,goal) requests into one A*
// search instead of running it once per caller.
type Service struct {
	log              *slog.Logger
	grid             *NavGrid
	nodeBudget       int
	cache            *pathCache
	formationSpacing float64
	inflight         singleflight.Group
}

// New constructs a Service bound to cfg.Grid.
func New(cfg Config) *Service {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	spacing := cfg.FormationSpacing
	if spacing <= 0 {
		spacing = cfg.Grid.CellSize
	}
	return &Service{
		log:              log,
		grid:             cfg.Grid,
		nodeBudget:       cfg.NodeBudget,
		cache:            newPathCache(cfg.CacheSize),
		formationSpacing: spacing,
	}
}

// PathResult is the waypoint sequence handed back to a caller, in world
// coordinates, plus whether the node-expansion budget was exhausted before
// the goal was reached.
type PathResult struct {
	Waypoints  []mgl64.Vec2
	Incomplete bool
}

// FindPath plans a path from `from` to `to`. An unreachable goal returns an
// empty, non-incomplete PathResult (a normal, successful result per spec
// §4.8/§7). An out-of-bounds start or goal is InvalidRequest. A complete
// path ends at `to` itself; its other waypoints are cell centers.
func (s *Service) FindPath(from, to mgl64.Vec2) (PathResult, error) {
	startCell, goalCell := s.grid.WorldToGrid(from), s.grid.WorldToGrid(to)
	if !s.grid.InBounds(startCell) {
		return PathResult{}, &ErrInvalidRequest{Reason: "start out of bounds"}
	}
	if !s.grid.InBounds(goalCell) {
		return PathResult{}, &ErrInvalidRequest{Reason: "goal out of bounds"}
	}

	key := fmt.Sprintf("%d,%d->%d,%d", startCell.X, startCell.Y, goalCell.X, goalCell.Y)
	v, err, _ := s.inflight.Do(key, func() (any, error) {
		if cached, ok := s.cache.get(startCell, goalCell); ok {
			return Result{Path: cached}, nil
		}
		res := search(s.grid, startCell, goalCell, s.nodeBudget)
		if len(res.Path) > 0 && !res.Incomplete {
			s.cache.put(startCell, goalCell, res.Path)
		}
		if res.Incomplete {
			s.log.Debug("pathfinding: node budget exhausted, returning partial path",
				"start", startCell, "goal", goalCell)
		}
		return res, nil
	})
	if err != nil {
		return PathResult{}, err
	}
	res := v.(Result)
	waypoints := s.toWorld(res.Path)
	if !res.Incomplete && len(waypoints) > 0 {
		waypoints[len(waypoints)-1] = to
	}
	return PathResult{Waypoints: waypoints, Incomplete: res.Incomplete}, nil
}

func (s *Service) toWorld(path []Cell) []mgl64.Vec2 {
	if len(path) == 0 {
		return nil
	}
	out := make([]mgl64.Vec2, len(path))
	for i, c := range path {
		out[i] = s.grid.GridToWorld(c)
	}
	return out
}

// GroupResult holds the per-agent path computed by FindPathsGroup, indexed
// the same as the starts slice passed in.
type GroupResult struct {
	Paths []PathResult
}

// FindPathsGroup plans paths for multiple agents converging on one goal, per
// spec §4.8: it paths from the centroid of starts to the goal, assigns each
// agent a formation slot around the goal, then runs a separate search from
// each agent's start to its slot. The per-agent paths do not share the
// centroid corridor; it is used only as the path of an agent whose own
// request is rejected.
func (s *Service) FindPathsGroup(starts []mgl64.Vec2, to mgl64.Vec2) (GroupResult, error) {
	if len(starts) == 0 {
		return GroupResult{}, nil
	}
	center := centroid(starts)
	corridor, err := s.FindPath(center, to)
	if err != nil {
		return GroupResult{}, err
	}

	slots := FormationSlots(to, len(starts), s.formationSpacing)
	terminals := assignSlots(starts, slots)

	out := GroupResult{Paths: make([]PathResult, len(starts))}
	for i, start := range starts {
		agentPath, err := s.FindPath(start, terminals[i])
		if err != nil {
			// Fall back to the shared corridor rather than failing the
			// whole group if one agent's terminal slot is unreachable.
			out.Paths[i] = corridor
			continue
		}
		out.Paths[i] = agentPath
	}
	return out, nil
}

// InvalidateRegion drops every cached path whose route crosses the world
// rectangle [min, max], for use after the navigation grid changes there.
func (s *Service) InvalidateRegion(min, max mgl64.Vec2) {
	s.cache.invalidateRegion(s.grid.WorldToGrid(min), s.grid.WorldToGrid(max))
}
