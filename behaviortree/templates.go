package behaviortree

import "github.com/tiberian/simcore/ecs"

// TemplateFunc builds a fresh Desc for one entity. Templates are stateless;
// the returned Desc's Callables close over whatever per-entity context the
// caller needs, keeping Tree itself free of entity-specific fields.
type TemplateFunc func() Desc

// TemplateRegistry maps a behaviorProfile name to the tree shape an AI
// component should use, per SPEC_FULL's "behavior profile templates are
// data" supplement: the AI component looks a profile up here rather than
// switching on it directly.
type TemplateRegistry struct {
	templates map[ecs.BehaviorProfile]TemplateFunc
}

// NewTemplateRegistry returns a registry with no templates registered.
func NewTemplateRegistry() *TemplateRegistry {
	return &TemplateRegistry{templates: make(map[ecs.BehaviorProfile]TemplateFunc)}
}

// Register associates profile with fn, overwriting any prior registration.
func (r *TemplateRegistry) Register(profile ecs.BehaviorProfile, fn TemplateFunc) {
	r.templates[profile] = fn
}

// Build returns a fresh Tree for profile, or (nil, false) if no template was
// registered for it.
func (r *TemplateRegistry) Build(profile ecs.BehaviorProfile) (*Tree, bool) {
	fn, ok := r.templates[profile]
	if !ok {
		return nil, false
	}
	return Build(fn(), nil), true
}

// DefaultTemplates returns the stock registry for the five behavior profiles
// named in spec §4.5 (Scout, CombatUnit, Harvester, Defender, Idle), per
// SPEC_FULL's "behavior profile templates are data" supplement. The
// entity-specific work (steering, targeting) happens in the AI component's
// dispatch step before the tree ticks, so every leaf below is a named stand-in
// that reports success; the composite shape, not the leaf body, is what
// distinguishes one profile's tree from another.
func DefaultTemplates() *TemplateRegistry {
	r := NewTemplateRegistry()
	r.Register(ecs.ProfileScout, scoutTemplate)
	r.Register(ecs.ProfileCombatUnit, combatUnitTemplate)
	r.Register(ecs.ProfileHarvester, harvesterTemplate)
	r.Register(ecs.ProfileDefender, defenderTemplate)
	r.Register(ecs.ProfileIdle, idleTemplate)
	return r
}

func leaf(name string) Desc {
	return Desc{Kind: KindAction, Name: name, Callable: func(any) (Status, *Ticket) {
		return Success, nil
	}}
}

func scoutTemplate() Desc {
	return Desc{Kind: KindSelector, Name: "scout", Children: []Desc{
		leaf("reportContact"),
		leaf("explore"),
	}}
}

func combatUnitTemplate() Desc {
	return Desc{Kind: KindSelector, Name: "combat_unit", Children: []Desc{
		leaf("engage"),
		leaf("reposition"),
		leaf("hold"),
	}}
}

func harvesterTemplate() Desc {
	return Desc{Kind: KindSequence, Name: "harvester", Children: []Desc{
		leaf("travelToDeposit"),
		leaf("extract"),
		leaf("travelToRefinery"),
		leaf("unload"),
	}}
}

func defenderTemplate() Desc {
	return Desc{Kind: KindSelector, Name: "defender", Children: []Desc{
		leaf("engageIntruder"),
		leaf("holdPosition"),
	}}
}

func idleTemplate() Desc {
	return leaf("idle")
}
