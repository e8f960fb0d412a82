// Package reward computes the scalar per-tick reward described in spec
// §4.7 from a data-driven configuration table: base terms looked up by
// action/outcome, situational multipliers composed multiplicatively, and
// team/learning bonuses summed on top before a final clamp.
package reward

import (
	"log/slog"

	"github.com/expr-lang/expr"
)

// Outcome describes what happened as a result of the last action, enough
// for Engine.Compute to look up base terms and evaluate situational
// multipliers.
type Outcome struct {
	// Terms names zero or more dotted keys into the base term sections,
	// e.g. "movement.moveSuccess", "combat.damageDealt". Values found are
	// summed before multipliers are applied.
	Terms []string
	// DamagePerHP, when Terms includes "combat.damageDealt", scales that
	// term per point of damage dealt this tick.
	DamagePerHP float64

	HealthRatio float64
	ThreatLevel float64
	Urgency     float64

	TeamworkBonus    string // key into Situational.Teamwork, optional
	LearningModifier string // key into Situational.Learning, optional
}

// Engine computes rewards from a validated Table.
type Engine struct {
	log   *slog.Logger
	table *Table
	cache *conditionCache
}

// NewEngine constructs an Engine. table must already have passed Validate;
// NewEngine does not re-validate so load-time errors surface exactly once, at
// the call site that loaded the table.
func NewEngine(table *Table, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{log: log, table: table, cache: newConditionCache(256)}
	for _, w := range table.Warnings() {
		log.Warn("reward: base term exceeds global cap", "detail", w)
	}
	return e
}

// Compute returns the clamped scalar reward for outcome.
func (e *Engine) Compute(o Outcome) float64 {
	base := e.sumTerms(o)
	healthMul := e.resolveMultiplier(e.table.Situational.HealthMultipliers, o)
	threatMul := e.resolveMultiplier(e.table.Situational.ThreatMultipliers, o)
	urgencyMul := e.resolveMultiplier(e.table.Situational.UrgencyMultipliers, o)

	reward := base * healthMul * threatMul * urgencyMul
	if o.TeamworkBonus != "" {
		reward += e.table.Situational.Teamwork[o.TeamworkBonus]
	}
	if o.LearningModifier != "" {
		reward += e.table.Situational.Learning[o.LearningModifier]
	}

	magnitude := e.table.Global.MaxRewardMagnitude
	if reward > magnitude {
		return magnitude
	}
	if reward < -magnitude {
		return -magnitude
	}
	return reward
}

func (e *Engine) sumTerms(o Outcome) float64 {
	var sum float64
	for _, key := range o.Terms {
		section, name, ok := splitKey(key)
		if !ok {
			e.log.Warn("reward: malformed term key, skipping", "key", key)
			continue
		}
		m := e.sectionFor(section)
		if m == nil {
			e.log.Warn("reward: unknown reward section, skipping", "section", section)
			continue
		}
		v, ok := m[name]
		if !ok {
			e.log.Warn("reward: unknown reward term, skipping", "section", section, "term", name)
			continue
		}
		if section == "combat" && name == "damageDealt" {
			v *= o.DamagePerHP
		}
		sum += v * e.scaleFor(section)
	}
	return sum
}

func (e *Engine) sectionFor(section string) map[string]float64 {
	switch section {
	case "movement":
		return e.table.Movement
	case "combat":
		return e.table.Combat
	case "tactical":
		return e.table.Tactical
	case "economic":
		return e.table.Economic
	case "idle":
		return e.table.Idle
	case "special":
		return e.table.Special
	default:
		return nil
	}
}

func (e *Engine) scaleFor(section string) float64 {
	switch section {
	case "movement":
		return orOne(e.table.Global.MovementScale)
	case "combat":
		return orOne(e.table.Global.CombatScale)
	case "economic":
		return orOne(e.table.Global.EconomicScale)
	case "tactical":
		return orOne(e.table.Global.TacticalScale)
	default:
		return 1
	}
}

func orOne(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

// resolveMultiplier evaluates multipliers in order and returns the Factor
// of the first whose When expression is true, or 1.0 if none match or the
// list is empty.
func (e *Engine) resolveMultiplier(multipliers []Multiplier, o Outcome) float64 {
	if len(multipliers) == 0 {
		return 1.0
	}
	env := multiplierEnv{HealthRatio: o.HealthRatio, ThreatLevel: o.ThreatLevel, Urgency: o.Urgency}
	for _, m := range multipliers {
		prog, err := e.cache.compile(m.When)
		if err != nil {
			e.log.Error("reward: failed to compile situational multiplier condition", "when", m.When, "err", err)
			continue
		}
		out, err := expr.Run(prog, env)
		if err != nil {
			e.log.Error("reward: failed to evaluate situational multiplier condition", "when", m.When, "err", err)
			continue
		}
		if matched, ok := out.(bool); ok && matched {
			return m.Factor
		}
	}
	return 1.0
}

func splitKey(key string) (section, name string, ok bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == '.' {
			return key[:i], key[i+1:], true
		}
	}
	return "", "", false
}
