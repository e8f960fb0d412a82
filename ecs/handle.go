// Package ecs implements the simulation's entity/component store: a closed
// catalog of component types attached to generation-tagged entity handles,
// with deferred structural mutation so that in-tick iteration stays stable.
//
// The design follows a single-owner-world shape: one owner holds all state,
// mutations queue into pending buffers, and a commit phase merges them at a
// well-defined boundary — once per Scheduler.Step via Store.Commit.
package ecs

import "fmt"

// Handle is an opaque reference to an entity. It carries a generation counter
// so that a handle captured before an entity was destroyed and recycled can
// still be detected as stale without a dangling pointer.
type Handle struct {
	index      uint32
	generation uint32
}

// Nil is the zero Handle. No entity ever has index 0 and generation 0
// simultaneously once the store has issued at least one handle, because
// generation starts at 1 on first use.
var Nil = Handle{}

// IsNil reports whether h is the zero value.
func (h Handle) IsNil() bool { return h == Nil }

// Index returns the handle's slot index. It exists so that other packages
// (spatial, pathfinding) can use it as a dense array/hash-map key without
// reaching into Store internals; it is meaningless without the matching
// generation, which Store still checks on every lookup.
func (h Handle) Index() uint32 { return h.index }

func (h Handle) String() string {
	return fmt.Sprintf("Handle(%d#%d)", h.index, h.generation)
}
