package ai

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/tiberian/simcore/behaviortree"
	"github.com/tiberian/simcore/ecs"
	"github.com/tiberian/simcore/qlearning"
	"github.com/tiberian/simcore/reward"
	"github.com/tiberian/simcore/spatial"
)

func minimalRewardTable() *reward.Table {
	t := &reward.Table{
		Global:   reward.Global{MaxRewardMagnitude: 100},
		Movement: map[string]float64{"moveSuccess": 1, "moveBlocked": -1},
		Combat:   map[string]float64{"damageDealt": 0.5, "missedAttack": -0.5},
		Tactical: map[string]float64{"retreat": 0.2, "holdPosition": 0.1, "patrol": 0.1},
		Economic: map[string]float64{"resourceGathered": 1, "loseResources": -1},
		Idle:     map[string]float64{"waitForOrders": 0, "idleUnderFire": -2},
		Special:  map[string]float64{"missionSuccess": 10},
	}
	return t
}

func newHarness(t *testing.T) (*ecs.Store, *System) {
	t.Helper()
	store := ecs.NewStore(ecs.Config{})
	index := spatial.New(spatial.Bounds{Min: mgl64.Vec2{-1000, -1000}, Max: mgl64.Vec2{1000, 1000}}, spatial.DefaultMaxObjects, spatial.DefaultMaxLevels)
	selector := qlearning.New(qlearning.Config{Seed: 1})
	table := minimalRewardTable()
	if err := table.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	engine := reward.NewEngine(table, nil)
	templates := behaviortree.NewTemplateRegistry()
	templates.Register(ecs.ProfileIdle, func() behaviortree.Desc {
		return behaviortree.Desc{
			Kind: behaviortree.KindAction,
			Name: "noop",
			Callable: func(any) (behaviortree.Status, *behaviortree.Ticket) {
				return behaviortree.Success, nil
			},
		}
	})
	sys := New(Config{Store: store, Spatial: index, Selector: selector, Rewards: engine, Templates: templates})
	return store, sys
}

func spawnUnit(t *testing.T, store *ecs.Store, index *spatial.Quadtree, pos mgl64.Vec2, team int) ecs.Handle {
	t.Helper()
	h, err := store.CreateEntity()
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if err := ecs.AddTransform(store, h, ecs.Transform{Pos: pos, Scale: 1}); err != nil {
		t.Fatalf("AddTransform: %v", err)
	}
	if err := ecs.AddTeam(store, h, ecs.Team{ID: team}); err != nil {
		t.Fatalf("AddTeam: %v", err)
	}
	if err := ecs.AddHealth(store, h, ecs.Health{Current: 50, Max: 100, Alive: true}); err != nil {
		t.Fatalf("AddHealth: %v", err)
	}
	index.Insert(h, pos)
	return h
}

func TestAISystemRunsFullCycleAndUpdatesState(t *testing.T) {
	store, sys := newHarness(t)
	index := sys.spatial
	store.Commit()

	self := spawnUnit(t, store, index, mgl64.Vec2{0, 0}, 1)
	_ = spawnUnit(t, store, index, mgl64.Vec2{5, 5}, 2)
	if err := ecs.AddMovement(store, self, ecs.Movement{MaxSpeed: 5}); err != nil {
		t.Fatalf("AddMovement: %v", err)
	}
	if err := ecs.AddAI(store, self, ecs.AI{
		Enabled:          true,
		BehaviorProfile:  ecs.ProfileIdle,
		Level:            ecs.Normal,
		DecisionInterval: 100,
		LearningEnabled:  true,
		PerceptionRadius: 50,
	}); err != nil {
		t.Fatalf("AddAI: %v", err)
	}
	store.Commit()

	sys.Update(16)

	comp, _ := ecs.GetAI(store, self)
	if comp.State != ecs.StateIdle {
		t.Fatalf("expected the cycle to end Idle, got %v", comp.State)
	}
	if comp.LastAction < 0 || comp.LastAction >= qlearning.NumActions {
		t.Fatalf("LastAction %d out of range", comp.LastAction)
	}

	// With DecisionInterval=100ms and the clock starting at 0, the first
	// tick's due check (0-0 >= 100) is false, so the selector should not
	// yet have been consulted for a fresh decision.
	if comp.LastDecisionTime != 0 {
		t.Fatalf("expected no decision to be due on the first 16ms tick, got LastDecisionTime=%v", comp.LastDecisionTime)
	}
}

func TestAISystemSkipsDisabledComponents(t *testing.T) {
	store, sys := newHarness(t)
	index := sys.spatial
	store.Commit()

	self := spawnUnit(t, store, index, mgl64.Vec2{0, 0}, 1)
	if err := ecs.AddMovement(store, self, ecs.Movement{}); err != nil {
		t.Fatalf("AddMovement: %v", err)
	}
	if err := ecs.AddAI(store, self, ecs.AI{Enabled: false, DecisionInterval: 100, PerceptionRadius: 10}); err != nil {
		t.Fatalf("AddAI: %v", err)
	}
	store.Commit()

	sys.Update(16)

	comp, _ := ecs.GetAI(store, self)
	if comp.State != ecs.StateIdle {
		t.Fatalf("a disabled component's state should never advance past its zero value, got %v", comp.State)
	}
}

func TestEffectiveIntervalShrinksUnderCombatAndGrowsWhenSafe(t *testing.T) {
	_, sys := newHarness(t)
	comp := &ecs.AI{DecisionInterval: 100, Adaptive: true}
	profile := LevelProfile{DecisionIntervalMultiplier: 1}

	combat := sys.effectiveInterval(comp, TacticalContext{EnemiesNear: 2}, profile)
	if combat != 25 {
		t.Fatalf("expected a 0.25x scale under combat, got %v", combat)
	}

	safe := sys.effectiveInterval(comp, TacticalContext{HealthRatio: 1.0}, profile)
	if safe != 400 {
		t.Fatalf("expected a 4.0x scale when safe and at full health, got %v", safe)
	}

	nonAdaptive := &ecs.AI{DecisionInterval: 100, Adaptive: false}
	if got := sys.effectiveInterval(nonAdaptive, TacticalContext{EnemiesNear: 5}, profile); got != 100 {
		t.Fatalf("expected a non-adaptive component to always use the base interval, got %v", got)
	}
}

func TestDecisionTraceRecordsWhenDebugEnabled(t *testing.T) {
	store, sys := newHarness(t)
	index := sys.spatial
	store.Commit()

	self := spawnUnit(t, store, index, mgl64.Vec2{0, 0}, 1)
	ecs.AddMovement(store, self, ecs.Movement{})
	ecs.AddAI(store, self, ecs.AI{
		Enabled: true, BehaviorProfile: ecs.ProfileIdle, DecisionInterval: 1,
		LearningEnabled: true, Debug: true, PerceptionRadius: 50,
	})
	store.Commit()

	sys.Update(16)
	sys.Update(16)

	traces := sys.Traces(self)
	if len(traces) == 0 {
		t.Fatalf("expected at least one recorded decision trace")
	}
}
