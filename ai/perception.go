package ai

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/tiberian/simcore/ecs"
	"github.com/tiberian/simcore/spatial"
)

// buildContext rebuilds self's TacticalContext from a spatial radius query,
// per spec §4.5 step 1. It never retains handles from a prior call.
func buildContext(store *ecs.Store, index *spatial.Quadtree, self ecs.Handle, radius float64) TacticalContext {
	ctx := TacticalContext{Self: self, ThreatDist: math.Inf(1), ResourceDist: math.Inf(1)}

	xf, ok := ecs.GetTransform(store, self)
	if !ok {
		return ctx
	}
	ctx.SelfPos = xf.Pos

	if hp, ok := ecs.GetHealth(store, self); ok && hp.Max > 0 {
		ctx.HealthRatio = hp.Current / hp.Max
	}

	selfTeam := -1
	if tm, ok := ecs.GetTeam(store, self); ok {
		selfTeam = tm.ID
	}

	nearest := index.QueryRadius(xf.Pos, radius)

	threatDist := math.Inf(1)
	weakestHP, strongestHP := math.Inf(1), math.Inf(-1)
	nearestEnemyDist := math.Inf(1)
	resourceDist := math.Inf(1)

	for _, other := range nearest {
		if other == self {
			continue
		}
		otherXf, ok := ecs.GetTransform(store, other)
		if !ok {
			continue
		}
		d := otherXf.Pos.Sub(xf.Pos).Len()

		if dep, ok := ecs.GetDeposit(store, other); ok && dep.RemainingBails > 0 {
			if d < resourceDist {
				resourceDist = d
				ctx.NearestResource = other
			}
		}

		otherTeam, hasTeam := ecs.GetTeam(store, other)
		if !hasTeam {
			continue
		}
		if otherTeam.ID == selfTeam {
			ctx.AlliesNear++
			continue
		}
		ctx.EnemiesNear++

		if d < threatDist {
			threatDist = d
			ctx.NearestThreat = other
			ctx.ThreatDist = d
			if d > 0 {
				ctx.ThreatDir = otherXf.Pos.Sub(xf.Pos).Mul(1 / d)
			}
		}
		if d < nearestEnemyDist {
			nearestEnemyDist = d
			ctx.NearestEnemy = other
		}
		if hp, ok := ecs.GetHealth(store, other); ok {
			if hp.Current < weakestHP {
				weakestHP = hp.Current
				ctx.WeakestEnemy = other
			}
			if hp.Current > strongestHP {
				strongestHP = hp.Current
				ctx.StrongestEnemy = other
			}
		}
	}
	if !math.IsInf(resourceDist, 1) {
		ctx.ResourceDist = resourceDist
	}
	return ctx
}

// direction8 maps one of the 8 cardinal/diagonal move actions to a unit
// vector, indexed the same as qlearning's ActionMoveN..ActionMoveNW.
var direction8 = [8]mgl64.Vec2{
	{0, -1},                      // N
	{0.7071067811865476, -0.7071067811865476}, // NE
	{1, 0},                       // E
	{0.7071067811865476, 0.7071067811865476},  // SE
	{0, 1},                       // S
	{-0.7071067811865476, 0.7071067811865476}, // SW
	{-1, 0},                      // W
	{-0.7071067811865476, -0.7071067811865476}, // NW
}
