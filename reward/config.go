package reward

import (
	"fmt"

	"github.com/pelletier/go-toml"
)

// ErrInvalidConfig is returned by Load/Validate when a reward table is
// missing a required section or carries a malformed value, naming the
// first offending field, per spec §4.7/§6/§7.
type ErrInvalidConfig struct {
	Field string
	Cause string
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("reward: invalid config: %s: %s", e.Field, e.Cause)
}

// Multiplier is one entry in a situational multiplier list: when the
// expr-lang boolean expression in When evaluates true against the tick's
// multiplierEnv, Factor applies. Lists are evaluated in order and the first
// match wins; if nothing matches, a factor of 1.0 is used.
type Multiplier struct {
	When   string  `toml:"when"`
	Factor float64 `toml:"factor"`
}

// Global holds the scale and cap terms applied across every reward
// computation.
type Global struct {
	MovementScale      float64 `toml:"movementScale"`
	CombatScale        float64 `toml:"combatScale"`
	EconomicScale      float64 `toml:"economicScale"`
	TacticalScale      float64 `toml:"tacticalScale"`
	TimeDecayFactor    float64 `toml:"timeDecayFactor"`
	MaxRewardMagnitude float64 `toml:"maxRewardMagnitude"`
	ExplorationBonus   float64 `toml:"explorationBonus"`
	RepetitionPenalty  float64 `toml:"repetitionPenalty"`
	DiversityBonus     float64 `toml:"diversityBonus"`
}

// Situational holds the three multiplier categories plus additive
// teamwork/learning bonus tables.
type Situational struct {
	HealthMultipliers  []Multiplier       `toml:"healthMultipliers"`
	ThreatMultipliers  []Multiplier       `toml:"threatMultipliers"`
	UrgencyMultipliers []Multiplier       `toml:"urgencyMultipliers"`
	Teamwork           map[string]float64 `toml:"teamwork"`
	Learning           map[string]float64 `toml:"learning"`
}

// MetaLearning holds the meta-level shaping knobs from spec §4.7.
type MetaLearning struct {
	RewardDecay            float64            `toml:"rewardDecay"`
	DifficultyScaling      float64            `toml:"difficultyScaling"`
	PerformanceThresholds  map[string]float64 `toml:"performanceThresholds"`
	RewardAdaptation       float64            `toml:"rewardAdaptation"`
}

// Table is the full reward configuration described in spec §4.7, loaded
// from an externally-supplied TOML record.
type Table struct {
	Global       Global             `toml:"global"`
	Movement     map[string]float64 `toml:"movement"`
	Combat       map[string]float64 `toml:"combat"`
	Tactical     map[string]float64 `toml:"tactical"`
	Economic     map[string]float64 `toml:"economic"`
	Idle         map[string]float64 `toml:"idle"`
	Situational  Situational        `toml:"situational"`
	Special      map[string]float64 `toml:"special"`
	MetaLearning MetaLearning       `toml:"metaLearning"`
}

// LoadTOML decodes a Table from TOML bytes and validates it.
func LoadTOML(data []byte) (*Table, error) {
	var t Table
	if err := toml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("reward: parse TOML: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate asserts the presence of every required section and refuses a
// negative TimeDecayFactor. It returns only an error; base terms whose
// magnitude exceeds the global cap are reported by Warnings, not here.
func (t *Table) Validate() error {
	if t.Movement == nil {
		return &ErrInvalidConfig{Field: "movement", Cause: "missing required section"}
	}
	if t.Combat == nil {
		return &ErrInvalidConfig{Field: "combat", Cause: "missing required section"}
	}
	if t.Tactical == nil {
		return &ErrInvalidConfig{Field: "tactical", Cause: "missing required section"}
	}
	if t.Economic == nil {
		return &ErrInvalidConfig{Field: "economic", Cause: "missing required section"}
	}
	if t.Idle == nil {
		return &ErrInvalidConfig{Field: "idle", Cause: "missing required section"}
	}
	if t.Special == nil {
		return &ErrInvalidConfig{Field: "special", Cause: "missing required section"}
	}
	if t.Global.MaxRewardMagnitude <= 0 {
		return &ErrInvalidConfig{Field: "global.maxRewardMagnitude", Cause: "must be positive"}
	}
	if t.Global.TimeDecayFactor < 0 {
		return &ErrInvalidConfig{Field: "global.timeDecayFactor", Cause: "must be non-negative"}
	}
	return nil
}

// Warnings returns a human-readable list of non-fatal issues: base terms
// whose magnitude exceeds the configured global cap.
func (t *Table) Warnings() []string {
	var warnings []string
	check := func(section string, m map[string]float64) {
		for k, v := range m {
			if v > t.Global.MaxRewardMagnitude || v < -t.Global.MaxRewardMagnitude {
				warnings = append(warnings, fmt.Sprintf("%s.%s = %v exceeds maxRewardMagnitude %v", section, k, v, t.Global.MaxRewardMagnitude))
			}
		}
	}
	check("movement", t.Movement)
	check("combat", t.Combat)
	check("tactical", t.Tactical)
	check("economic", t.Economic)
	check("idle", t.Idle)
	check("special", t.Special)
	return warnings
}
