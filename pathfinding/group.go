package pathfinding

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// FormationSlots returns n world-space positions: center itself, then
// points on concentric hexagonal rings around it, per SPEC_FULL's supplement picking hex over
// square slots: a hex ring has no corner gaps, so units cluster evenly
// around a rally point instead of leaving diagonal slots farther out than
// orthogonal ones.
func FormationSlots(center mgl64.Vec2, n int, spacing float64) []mgl64.Vec2 {
	if n <= 0 {
		return nil
	}
	slots := make([]mgl64.Vec2, 0, n)
	slots = append(slots, center)
	ring := 1
	for len(slots) < n {
		count := 6 * ring
		radius := spacing * float64(ring)
		for i := 0; i < count && len(slots) < n; i++ {
			angle := 2 * math.Pi * float64(i) / float64(count)
			slots = append(slots, mgl64.Vec2{
				center.X() + radius*math.Cos(angle),
				center.Y() + radius*math.Sin(angle),
			})
		}
		ring++
	}
	return slots[:n]
}

// centroid returns the average of pts.
func centroid(pts []mgl64.Vec2) mgl64.Vec2 {
	var sum mgl64.Vec2
	for _, p := range pts {
		sum = sum.Add(p)
	}
	n := float64(len(pts))
	return mgl64.Vec2{sum.X() / n, sum.Y() / n}
}

// assignSlots greedily assigns each start position the nearest unclaimed
// formation slot, so agents don't all converge on the same terminal cell
// (spec §4.8 group movement step 2) while keeping paths reasonably short.
func assignSlots(starts []mgl64.Vec2, slots []mgl64.Vec2) []mgl64.Vec2 {
	assigned := make([]mgl64.Vec2, len(starts))
	used := make([]bool, len(slots))
	for i, s := range starts {
		best := -1
		bestDist := math.Inf(1)
		for j, slot := range slots {
			if used[j] {
				continue
			}
			d := slot.Sub(s).Len()
			if d < bestDist {
				bestDist = d
				best = j
			}
		}
		if best == -1 {
			assigned[i] = slots[i%len(slots)]
			continue
		}
		used[best] = true
		assigned[i] = slots[best]
	}
	return assigned
}
