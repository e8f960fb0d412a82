package reward

import "testing"

func validTable() *Table {
	return &Table{
		Global: Global{
			MovementScale:      1,
			CombatScale:        1,
			EconomicScale:      1,
			TacticalScale:      1,
			TimeDecayFactor:    0.01,
			MaxRewardMagnitude: 100,
		},
		Movement: map[string]float64{"moveSuccess": 1, "moveBlocked": -1},
		Combat:   map[string]float64{"damageDealt": 0.1, "enemyEliminated": 20},
		Tactical: map[string]float64{"retreat.success": 2},
		Economic: map[string]float64{"resourceGathered": 5},
		Idle:     map[string]float64{"waitForOrders": 0},
		Special:  map[string]float64{"missionSuccess": 50},
		Situational: Situational{
			HealthMultipliers: []Multiplier{
				{When: "HealthRatio < 0.3", Factor: 2.0},
				{When: "true", Factor: 1.0},
			},
			Teamwork: map[string]float64{"focusFire": 3},
			Learning: map[string]float64{"novel": 1.5},
		},
	}
}

func TestValidateRejectsMissingSection(t *testing.T) {
	tbl := validTable()
	tbl.Combat = nil
	if err := tbl.Validate(); err == nil {
		t.Fatalf("expected error for missing combat section")
	}
}

func TestValidateRejectsNegativeTimeDecay(t *testing.T) {
	tbl := validTable()
	tbl.Global.TimeDecayFactor = -1
	if err := tbl.Validate(); err == nil {
		t.Fatalf("expected error for negative timeDecayFactor")
	}
}

func TestComputeAppliesHealthMultiplier(t *testing.T) {
	e := NewEngine(validTable(), nil)
	low := e.Compute(Outcome{Terms: []string{"movement.moveSuccess"}, HealthRatio: 0.1})
	high := e.Compute(Outcome{Terms: []string{"movement.moveSuccess"}, HealthRatio: 0.9})
	if low <= high {
		t.Fatalf("low-health outcome should be amplified: low=%v high=%v", low, high)
	}
}

func TestComputeClampsToMaxMagnitude(t *testing.T) {
	e := NewEngine(validTable(), nil)
	r := e.Compute(Outcome{Terms: []string{"special.missionSuccess", "combat.enemyEliminated"}, HealthRatio: 0.1})
	if r > 100 {
		t.Fatalf("reward must be clamped to maxRewardMagnitude=100, got %v", r)
	}
}

func TestComputeAddsTeamworkBonus(t *testing.T) {
	e := NewEngine(validTable(), nil)
	without := e.Compute(Outcome{Terms: []string{"movement.moveSuccess"}, HealthRatio: 0.9})
	with := e.Compute(Outcome{Terms: []string{"movement.moveSuccess"}, HealthRatio: 0.9, TeamworkBonus: "focusFire"})
	if with-without != 3 {
		t.Fatalf("teamwork bonus should add flatly, got delta %v", with-without)
	}
}

func TestComputeIgnoresUnknownTerm(t *testing.T) {
	e := NewEngine(validTable(), nil)
	r := e.Compute(Outcome{Terms: []string{"movement.doesNotExist"}, HealthRatio: 0.9})
	if r != 0 {
		t.Fatalf("unknown term should contribute 0, got %v", r)
	}
}
