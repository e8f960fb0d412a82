// Package pathfinding implements the A*-based navigation service described
// in spec §4.8: a uniform grid, group movement with formation offsets, and
// an LRU path cache keyed on start/goal cells.
package pathfinding

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrOutOfBounds reports a world position outside the grid. FindPath does
// not return it: it reports an out-of-bounds start or goal as
// *ErrInvalidRequest.
var ErrOutOfBounds = errors.New("pathfinding: position out of bounds")

// Cell identifies a grid cell by integer column/row.
type Cell struct{ X, Y int }

// NavGrid is a uniform square tiling of the world. Corner cuts past a
// blocked orthogonal neighbor are always forbidden (spec §9's stated safe
// default for the open question).
type NavGrid struct {
	Width, Height int
	CellSize      float64
	Origin        mgl64.Vec2

	walkable []bool
	cost     []float64
}

// NewNavGrid constructs a grid of width x height cells, each cellSize world
// units square, with origin as the world position of cell (0,0)'s
// minimum corner. Every cell starts walkable with cost 1.
func NewNavGrid(width, height int, cellSize float64, origin mgl64.Vec2) *NavGrid {
	g := &NavGrid{Width: width, Height: height, CellSize: cellSize, Origin: origin}
	g.walkable = make([]bool, width*height)
	g.cost = make([]float64, width*height)
	for i := range g.walkable {
		g.walkable[i] = true
		g.cost[i] = 1
	}
	return g
}

func (g *NavGrid) index(c Cell) (int, bool) {
	if c.X < 0 || c.Y < 0 || c.X >= g.Width || c.Y >= g.Height {
		return 0, false
	}
	return c.Y*g.Width + c.X, true
}

// InBounds reports whether c is a valid cell.
func (g *NavGrid) InBounds(c Cell) bool {
	_, ok := g.index(c)
	return ok
}

// SetWalkable marks c walkable or blocked. Out-of-bounds cells are ignored.
func (g *NavGrid) SetWalkable(c Cell, walkable bool) {
	if i, ok := g.index(c); ok {
		g.walkable[i] = walkable
	}
}

// SetCost sets the per-cell movement cost multiplier. Out-of-bounds cells
// are ignored.
func (g *NavGrid) SetCost(c Cell, cost float64) {
	if i, ok := g.index(c); ok {
		g.cost[i] = cost
	}
}

// IsWalkable reports whether c is in bounds and walkable.
func (g *NavGrid) IsWalkable(c Cell) bool {
	i, ok := g.index(c)
	return ok && g.walkable[i]
}

// GetMovementCost returns the per-cell cost of entering c, or
// math.MaxFloat64 if c is blocked or out of bounds.
func (g *NavGrid) GetMovementCost(c Cell) float64 {
	i, ok := g.index(c)
	if !ok || !g.walkable[i] {
		return math.MaxFloat64
	}
	return g.cost[i]
}

// WorldToGrid converts a world position to the cell containing it.
func (g *NavGrid) WorldToGrid(p mgl64.Vec2) Cell {
	rel := p.Sub(g.Origin)
	return Cell{
		X: int(math.Floor(rel.X() / g.CellSize)),
		Y: int(math.Floor(rel.Y() / g.CellSize)),
	}
}

// GridToWorld returns the world-space center of cell c.
func (g *NavGrid) GridToWorld(c Cell) mgl64.Vec2 {
	return mgl64.Vec2{
		g.Origin.X() + (float64(c.X)+0.5)*g.CellSize,
		g.Origin.Y() + (float64(c.Y)+0.5)*g.CellSize,
	}
}

// neighborOffsets lists the 8 candidate directions, orthogonal first, in the
// order GetNeighbors emits them. GetNeighbors spells the offsets out itself
// and does not read this table.
var neighborOffsets = [8]Cell{
	{0, -1}, {0, 1}, {-1, 0}, {1, 0}, // N S W E
	{-1, -1}, {1, -1}, {-1, 1}, {1, 1}, // NW NE SW SE
}

// GetNeighbors returns the walkable 8-connected neighbors of c. Diagonal
// neighbors are excluded whenever either adjacent orthogonal cell is
// blocked, forbidding corner cuts.
func (g *NavGrid) GetNeighbors(c Cell) []Cell {
	out := make([]Cell, 0, 8)
	north := Cell{c.X, c.Y - 1}
	south := Cell{c.X, c.Y + 1}
	west := Cell{c.X - 1, c.Y}
	east := Cell{c.X + 1, c.Y}

	nOK, sOK, wOK, eOK := g.IsWalkable(north), g.IsWalkable(south), g.IsWalkable(west), g.IsWalkable(east)
	if nOK {
		out = append(out, north)
	}
	if sOK {
		out = append(out, south)
	}
	if wOK {
		out = append(out, west)
	}
	if eOK {
		out = append(out, east)
	}

	tryDiagonal := func(d Cell, needA, needB bool) {
		if needA && needB && g.IsWalkable(d) {
			out = append(out, d)
		}
	}
	tryDiagonal(Cell{c.X - 1, c.Y - 1}, nOK, wOK)
	tryDiagonal(Cell{c.X + 1, c.Y - 1}, nOK, eOK)
	tryDiagonal(Cell{c.X - 1, c.Y + 1}, sOK, wOK)
	tryDiagonal(Cell{c.X + 1, c.Y + 1}, sOK, eOK)
	return out
}
