package pathfinding

import (
	"container/heap"
	"math"
)

// DefaultNodeBudget bounds how many nodes a single A* call may expand
// before it gives up and returns its best partial path, per spec §4.8.
const DefaultNodeBudget = 4000

// Result is the outcome of a single A* search.
type Result struct {
	Path       []Cell
	Incomplete bool
}

type openEntry struct {
	cell     Cell
	f, g, h  float64
	index    int // heap index, maintained by container/heap
}

type openHeap []*openEntry

func (h openHeap) Len() int { return len(h) }
func (h openHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	// Tie-break on lower h: goal-biased, per spec §4.8.
	return h[i].h < h[j].h
}
func (h openHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *openHeap) Push(x any) {
	e := x.(*openEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *openHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// octile is the admissible heuristic for 8-connected grids.
func octile(a, b Cell) float64 {
	dx := math.Abs(float64(a.X - b.X))
	dy := math.Abs(float64(a.Y - b.Y))
	const sqrt2minus1 = math.Sqrt2 - 1
	if dx > dy {
		return dx + sqrt2minus1*dy
	}
	return dy + sqrt2minus1*dx
}

// stepCost is the cost of moving from one cell to an adjacent cell,
// combining the base distance (1 or sqrt2) with the destination's
// per-cell movement cost.
func stepCost(from, to Cell, destCost float64) float64 {
	if from.X != to.X && from.Y != to.Y {
		return math.Sqrt2 * destCost
	}
	return destCost
}

// search runs A* from start to goal on g, expanding at most nodeBudget
// nodes. If the budget is exhausted first, it returns the best partial
// path found so far (the path to the closed node with the lowest h seen)
// marked Incomplete.
func search(g *NavGrid, start, goal Cell, nodeBudget int) Result {
	if start == goal {
		return Result{Path: []Cell{start}}
	}
	if nodeBudget <= 0 {
		nodeBudget = DefaultNodeBudget
	}

	cameFrom := make(map[Cell]Cell)
	gScore := map[Cell]float64{start: 0}
	closed := make(map[Cell]bool)

	open := &openHeap{}
	heap.Init(open)
	heap.Push(open, &openEntry{cell: start, g: 0, h: octile(start, goal), f: octile(start, goal)})

	bestSeen := start
	bestH := octile(start, goal)
	expanded := 0

	for open.Len() > 0 {
		if expanded >= nodeBudget {
			return Result{Path: reconstruct(cameFrom, start, bestSeen), Incomplete: true}
		}
		cur := heap.Pop(open).(*openEntry)
		if closed[cur.cell] {
			continue
		}
		closed[cur.cell] = true
		expanded++

		if cur.cell == goal {
			return Result{Path: reconstruct(cameFrom, start, goal)}
		}
		if cur.h < bestH {
			bestH = cur.h
			bestSeen = cur.cell
		}

		for _, n := range g.GetNeighbors(cur.cell) {
			if closed[n] {
				continue
			}
			tentativeG := gScore[cur.cell] + stepCost(cur.cell, n, g.GetMovementCost(n))
			if existing, ok := gScore[n]; ok && tentativeG >= existing {
				continue
			}
			cameFrom[n] = cur.cell
			gScore[n] = tentativeG
			h := octile(n, goal)
			heap.Push(open, &openEntry{cell: n, g: tentativeG, h: h, f: tentativeG + h})
		}
	}

	// Open set exhausted without reaching goal: unreachable, per spec §4.8
	// this is a normal (non-error) empty-path result.
	return Result{}
}

func reconstruct(cameFrom map[Cell]Cell, start, end Cell) []Cell {
	if end == start {
		return []Cell{start}
	}
	path := []Cell{end}
	cur := end
	for cur != start {
		prev, ok := cameFrom[cur]
		if !ok {
			break
		}
		path = append(path, prev)
		cur = prev
	}
	// reverse
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
