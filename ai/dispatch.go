package ai

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/tiberian/simcore/ecs"
	"github.com/tiberian/simcore/qlearning"
	"github.com/tiberian/simcore/reward"
)

// dispatch translates a selected action into a concrete Movement order, per
// spec §4.5 step 3. Attack actions steer toward their target; this core has
// no Weapon component (absent from spec §3's data model), so damage
// resolution is left to a collaborator system — attacking here means
// closing distance, which is as far as the tactical layer's mandate runs.
func (s *System) dispatch(h ecs.Handle, comp *ecs.AI, ctx TacticalContext, action qlearning.Action) {
	mv, ok := ecs.GetMovement(s.store, h)
	if !ok {
		return
	}
	switch {
	case action >= qlearning.ActionMoveN && action <= qlearning.ActionMoveNW:
		// Cardinal/diagonal moves are direct steering, not a pathfinding
		// request: they override any in-flight path.
		dir := direction8[action]
		speed := mv.MaxSpeed
		if speed <= 0 {
			speed = moveStepDistance
		}
		mv.HasTarget = false
		mv.Path = nil
		mv.Velocity = dir.Mul(speed)
	case action == qlearning.ActionAttackNearest:
		s.steerTowardHandle(mv, ctx.SelfPos, ctx.NearestEnemy)
	case action == qlearning.ActionAttackWeakest:
		s.steerTowardHandle(mv, ctx.SelfPos, ctx.WeakestEnemy)
	case action == qlearning.ActionAttackStrongest:
		s.steerTowardHandle(mv, ctx.SelfPos, ctx.StrongestEnemy)
	case action == qlearning.ActionRetreat:
		s.retreat(mv, ctx)
	case action == qlearning.ActionHold:
		mv.HasTarget = false
		mv.Velocity = mgl64.Vec2{}
	case action == qlearning.ActionPatrol:
		// No assigned-route component exists in this core's data model;
		// a unit with no prior path simply holds position.
		if !mv.HasTarget {
			mv.Velocity = mgl64.Vec2{}
		}
	case action == qlearning.ActionGather:
		s.steerTowardHandle(mv, ctx.SelfPos, ctx.NearestResource)
	case action == qlearning.ActionIdle:
		mv.HasTarget = false
		mv.Velocity = mgl64.Vec2{}
	}
}

// steerTo requests that the Movement system path to target, per spec §4.5
// step 3's "translate into a concrete order... dispatch the order". A
// changed target invalidates any in-flight path so the Movement system
// re-requests one toward the new destination.
func (s *System) steerTo(mv *ecs.Movement, target mgl64.Vec2) {
	if mv.HasTarget && mv.Target.Sub(target).Len() < 0.01 {
		return
	}
	mv.HasTarget = true
	mv.Target = target
	mv.Path = nil
	mv.PathCursor = 0
	mv.Velocity = mgl64.Vec2{}
}

func (s *System) steerTowardHandle(mv *ecs.Movement, from mgl64.Vec2, target ecs.Handle) {
	if target.IsNil() {
		mv.HasTarget = false
		mv.Velocity = mgl64.Vec2{}
		return
	}
	targetXf, ok := ecs.GetTransform(s.store, target)
	if !ok {
		return
	}
	s.steerTo(mv, targetXf.Pos)
}

func (s *System) retreat(mv *ecs.Movement, ctx TacticalContext) {
	if ctx.NearestThreat.IsNil() {
		mv.HasTarget = false
		mv.Velocity = mgl64.Vec2{}
		return
	}
	away := ctx.ThreatDir.Mul(-1)
	s.steerTo(mv, ctx.SelfPos.Add(away.Mul(moveStepDistance)))
}

// outcomeFor translates this tick's action and tactical context into a
// reward.Outcome, per spec §4.7's "look up the base term(s) for the last
// action and outcome" computation.
func (s *System) outcomeFor(ctx TacticalContext, action qlearning.Action) reward.Outcome {
	o := reward.Outcome{
		HealthRatio: ctx.HealthRatio,
		ThreatLevel: threatLevel(ctx),
		Urgency:     urgency(ctx),
	}
	switch {
	case action >= qlearning.ActionMoveN && action <= qlearning.ActionMoveNW:
		o.Terms = []string{"movement.moveSuccess"}
	case action == qlearning.ActionAttackNearest, action == qlearning.ActionAttackWeakest, action == qlearning.ActionAttackStrongest:
		if ctx.EnemiesNear == 0 {
			o.Terms = []string{"combat.missedAttack"}
		} else {
			o.Terms = []string{"combat.damageDealt"}
			o.DamagePerHP = 1
		}
	case action == qlearning.ActionRetreat:
		o.Terms = []string{"tactical.retreat"}
	case action == qlearning.ActionHold:
		o.Terms = []string{"tactical.holdPosition"}
	case action == qlearning.ActionPatrol:
		o.Terms = []string{"tactical.patrol"}
	case action == qlearning.ActionGather:
		if ctx.NearestResource.IsNil() {
			o.Terms = []string{"economic.loseResources"}
		} else {
			o.Terms = []string{"economic.resourceGathered"}
		}
	case action == qlearning.ActionIdle:
		if ctx.EnemiesNear > 0 {
			o.Terms = []string{"idle.idleUnderFire"}
		} else {
			o.Terms = []string{"idle.waitForOrders"}
		}
	}
	return o
}

func threatLevel(ctx TacticalContext) float64 {
	if ctx.NearestThreat.IsNil() {
		return 0
	}
	if ctx.ThreatDist <= 0 {
		return 1
	}
	return clamp(1-math.Min(ctx.ThreatDist/100.0, 1), 0, 1)
}

func urgency(ctx TacticalContext) float64 {
	return clamp(1-ctx.HealthRatio, 0, 1)
}
