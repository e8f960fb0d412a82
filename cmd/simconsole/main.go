// Command simconsole is an optional interactive console for driving a
// simcore Sim by hand: issue move/attack/stop/build/spawn orders from a
// prompt and watch the events it produces scroll by. Units spawned here do
// not have AI debug enabled, so no decision_trace events appear.
package main

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	prompt "github.com/c-bata/go-prompt"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/tiberian/simcore/api"
	"github.com/tiberian/simcore/ecs"
	"github.com/tiberian/simcore/qlearning"
	"github.com/tiberian/simcore/reward"
	"github.com/tiberian/simcore/spatial"
)

const (
	promptPrefix      = "sim> "
	maxHistoryEntries = 128
	tickMillis        = 100.0
)

func main() {
	log := slog.Default()
	sim := newSim(log)
	entities := map[string]ecs.Handle{}

	con := &console{sim: sim, log: log, entities: entities}
	con.run()
}

// newSim builds a Sim with a small default world and a permissive reward
// table, suitable for manual experimentation rather than production tuning.
func newSim(log *slog.Logger) *api.Sim {
	table := &reward.Table{
		Global:   reward.Global{MaxRewardMagnitude: 100},
		Movement: map[string]float64{"moveSuccess": 1, "moveBlocked": -1},
		Combat:   map[string]float64{"damageDealt": 0.5, "missedAttack": -0.5},
		Tactical: map[string]float64{"retreat": 0.2, "holdPosition": 0.1, "patrol": 0.1},
		Economic: map[string]float64{"resourceGathered": 1, "loseResources": -1},
		Idle:     map[string]float64{"waitForOrders": 0, "idleUnderFire": -2},
		Special:  map[string]float64{"missionSuccess": 10},
	}
	if err := table.Validate(); err != nil {
		log.Error("simconsole: built-in reward table failed validation", "err", err)
	}
	return api.New(api.Config{
		Log:              log,
		MaxEntities:      10000,
		WorldBounds:      spatial.Bounds{Min: mgl64.Vec2{-4096, -4096}, Max: mgl64.Vec2{4096, 4096}},
		NavGridWidth:     256,
		NavGridHeight:    256,
		NavGridCellSize:  32,
		RewardTable:      table,
		QLearning:        qlearning.Config{Seed: 1},
		FormationSpacing: 32,
	})
}

type console struct {
	sim      *api.Sim
	log      *slog.Logger
	entities map[string]ecs.Handle
	history  []string
}

func (c *console) run() {
	for {
		line := prompt.Input(promptPrefix, c.complete,
			prompt.OptionTitle("simcore console"),
			prompt.OptionHistory(c.history),
			prompt.OptionPrefix(promptPrefix),
			prompt.OptionCompletionOnDown(),
			prompt.OptionMaxSuggestion(12),
		)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		c.history = append(c.history, line)
		if len(c.history) > maxHistoryEntries {
			c.history = c.history[len(c.history)-maxHistoryEntries:]
		}
		if line == "quit" || line == "exit" {
			return
		}
		c.execute(line)
	}
}

func (c *console) execute(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case "spawn":
		c.cmdSpawn(fields[1:])
	case "move":
		c.cmdMove(fields[1:])
	case "attack":
		c.cmdAttack(fields[1:])
	case "stop":
		c.cmdStop(fields[1:])
	case "build":
		c.cmdBuild(fields[1:])
	case "step":
		c.cmdStep(fields[1:])
	case "balance":
		c.cmdBalance(fields[1:])
	case "help":
		c.printHelp()
	default:
		fmt.Printf("unknown command %q (try \"help\")\n", fields[0])
	}
}

// behaviorProfiles maps the console's spawn command argument to one of the
// five behaviorProfile values spec §4.5 recognizes.
var behaviorProfiles = map[string]ecs.BehaviorProfile{
	"scout":       ecs.ProfileScout,
	"combat_unit": ecs.ProfileCombatUnit,
	"harvester":   ecs.ProfileHarvester,
	"defender":    ecs.ProfileDefender,
	"idle":        ecs.ProfileIdle,
}

func (c *console) cmdSpawn(args []string) {
	if len(args) != 4 && len(args) != 5 {
		fmt.Println("usage: spawn <name> <team> <x> <y> [scout|combat_unit|harvester|defender|idle]")
		return
	}
	team, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Println("team must be an integer:", err)
		return
	}
	x, errX := strconv.ParseFloat(args[2], 64)
	y, errY := strconv.ParseFloat(args[3], 64)
	if errX != nil || errY != nil {
		fmt.Println("x/y must be numbers")
		return
	}
	profile := ecs.ProfileCombatUnit
	if len(args) == 5 {
		p, ok := behaviorProfiles[args[4]]
		if !ok {
			fmt.Printf("unknown behavior profile %q\n", args[4])
			return
		}
		profile = p
	}
	h, err := c.sim.SpawnUnit(mgl64.Vec2{x, y}, team, profile)
	if err != nil {
		fmt.Println("spawn failed:", err)
		return
	}
	c.entities[args[0]] = h
	fmt.Printf("spawned %s as %v\n", args[0], h)
}

func (c *console) cmdMove(args []string) {
	if len(args) != 3 {
		fmt.Println("usage: move <name> <x> <y>")
		return
	}
	h, ok := c.lookup(args[0])
	if !ok {
		return
	}
	x, errX := strconv.ParseFloat(args[1], 64)
	y, errY := strconv.ParseFloat(args[2], 64)
	if errX != nil || errY != nil {
		fmt.Println("x/y must be numbers")
		return
	}
	id, err := c.sim.MoveOrder(h, mgl64.Vec2{x, y})
	if err != nil {
		fmt.Println("move_order rejected:", err)
		return
	}
	fmt.Println("move_order accepted, id:", id)
}

func (c *console) cmdAttack(args []string) {
	if len(args) != 2 {
		fmt.Println("usage: attack <name> <target-name>")
		return
	}
	h, ok := c.lookup(args[0])
	if !ok {
		return
	}
	target, ok := c.lookup(args[1])
	if !ok {
		return
	}
	if err := c.sim.AttackOrder(h, target); err != nil {
		fmt.Println("attack_order rejected:", err)
		return
	}
	fmt.Println("attack_order accepted")
}

func (c *console) cmdStop(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: stop <name>")
		return
	}
	h, ok := c.lookup(args[0])
	if !ok {
		return
	}
	if err := c.sim.StopOrder(h); err != nil {
		fmt.Println("stop_order rejected:", err)
		return
	}
	fmt.Println("stop_order accepted")
}

func (c *console) cmdBuild(args []string) {
	if len(args) != 5 {
		fmt.Println("usage: build <name> <team> <cost> <x> <y>")
		return
	}
	team, errT := strconv.Atoi(args[1])
	cost, errC := strconv.Atoi(args[2])
	x, errX := strconv.ParseFloat(args[3], 64)
	y, errY := strconv.ParseFloat(args[4], 64)
	if errT != nil || errC != nil || errX != nil || errY != nil {
		fmt.Println("team/cost/x/y must be numbers")
		return
	}
	h, ok := c.sim.BuildOrder(team, api.Blueprint{Name: args[0], Cost: cost, Health: 100}, mgl64.Vec2{x, y})
	if !ok {
		fmt.Println("build_order rejected: insufficient credits")
		return
	}
	c.entities[args[0]] = h
	fmt.Printf("built %s as %v, team %d balance now %d\n", args[0], h, team, c.sim.Ledger().Balance(team))
}

func (c *console) cmdStep(args []string) {
	n := 1
	if len(args) == 1 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Println("ticks must be an integer")
			return
		}
		n = v
	}
	for i := 0; i < n; i++ {
		for _, ev := range c.sim.Step(tickMillis) {
			printEvent(ev)
		}
	}
}

func (c *console) cmdBalance(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: balance <team>")
		return
	}
	team, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Println("team must be an integer")
		return
	}
	fmt.Println(c.sim.Ledger().Balance(team))
}

func (c *console) lookup(name string) (ecs.Handle, bool) {
	h, ok := c.entities[name]
	if !ok {
		fmt.Printf("no entity named %q (use spawn/build first)\n", name)
	}
	return h, ok
}

func printEvent(ev api.Event) {
	switch ev.Kind {
	case api.EventEntitySpawned:
		fmt.Printf("entity_spawned(%v)\n", ev.Entity)
	case api.EventEntityDestroyed:
		fmt.Printf("entity_destroyed(%v)\n", ev.Entity)
	case api.EventPathReady:
		fmt.Printf("path_ready(%v, %d waypoints)\n", ev.Entity, len(ev.Waypoints))
	case api.EventPathFailed:
		fmt.Printf("path_failed(%v)\n", ev.Entity)
	case api.EventEconomyDelta:
		fmt.Printf("economy_delta(team=%d, %d -> %d, %s)\n", ev.Team, ev.CreditsBefore, ev.CreditsAfter, ev.Reason)
	case api.EventDecisionTrace:
		fmt.Printf("decision_trace(%v, action=%d, reward=%.3f)\n", ev.Entity, ev.Action, ev.Reward)
	}
}

func (c *console) printHelp() {
	cmds := []string{
		"spawn <name> <team> <x> <y> [scout|combat_unit|harvester|defender|idle]",
		"move <name> <x> <y>",
		"attack <name> <target-name>",
		"stop <name>",
		"build <name> <team> <cost> <x> <y>",
		"step [ticks]",
		"balance <team>",
		"quit",
	}
	sort.Strings(cmds)
	for _, line := range cmds {
		fmt.Println("  " + line)
	}
}

func (c *console) complete(doc prompt.Document) []prompt.Suggest {
	word := doc.GetWordBeforeCursor()
	if strings.Contains(doc.TextBeforeCursor(), " ") {
		return nil
	}
	commands := []prompt.Suggest{
		{Text: "spawn", Description: "spawn <name> <team> <x> <y>"},
		{Text: "move", Description: "move <name> <x> <y>"},
		{Text: "attack", Description: "attack <name> <target-name>"},
		{Text: "stop", Description: "stop <name>"},
		{Text: "build", Description: "build <name> <team> <cost> <x> <y>"},
		{Text: "step", Description: "step [ticks]"},
		{Text: "balance", Description: "balance <team>"},
		{Text: "quit", Description: "quit the console"},
	}
	return prompt.FilterHasPrefix(commands, word, true)
}
