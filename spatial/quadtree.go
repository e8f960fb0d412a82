// Package spatial implements the region/radius query layer over entity
// Transform components described in spec §4.2: a bucketed quadtree that
// degrades to brute force only under pathological clustering.
package spatial

import (
	"iter"

	"github.com/brentp/intintmap"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/tiberian/simcore/ecs"
)

// DefaultMaxObjects and DefaultMaxLevels are the recommended quadtree split
// parameters.
const (
	DefaultMaxObjects = 10
	DefaultMaxLevels  = 5
)

// Bounds is an axis-aligned rectangle.
type Bounds struct {
	Min, Max mgl64.Vec2
}

func (b Bounds) contains(p mgl64.Vec2) bool {
	return p.X() >= b.Min.X() && p.X() <= b.Max.X() && p.Y() >= b.Min.Y() && p.Y() <= b.Max.Y()
}

func (b Bounds) intersects(o Bounds) bool {
	return b.Min.X() <= o.Max.X() && b.Max.X() >= o.Min.X() &&
		b.Min.Y() <= o.Max.Y() && b.Max.Y() >= o.Min.Y()
}

type entry struct {
	h   ecs.Handle
	pos mgl64.Vec2
}

type qnode struct {
	id       int64
	level    int
	bounds   Bounds
	objects  []entry
	children *[4]*qnode // nil until split
}

// Quadtree answers region and radius queries over a dynamic set of
// (handle, position) pairs. It is not safe for concurrent use.
type Quadtree struct {
	maxObjects, maxLevels int
	bounds                Bounds
	root                  *qnode
	nextNodeID            int64

	// locate maps an entity's handle index to the id of the leaf node
	// currently holding it, so Remove and Update avoid a full tree descent.
	// Uses brentp/intintmap for allocation-free int64-keyed lookups on this
	// hot path.
	locate *intintmap.Map
	nodes  map[int64]*qnode
}

// New constructs an empty Quadtree covering bounds.
func New(bounds Bounds, maxObjects, maxLevels int) *Quadtree {
	if maxObjects <= 0 {
		maxObjects = DefaultMaxObjects
	}
	if maxLevels <= 0 {
		maxLevels = DefaultMaxLevels
	}
	qt := &Quadtree{
		maxObjects: maxObjects,
		maxLevels:  maxLevels,
		bounds:     bounds,
		locate:     intintmap.New(256, 0.6),
		nodes:      make(map[int64]*qnode),
	}
	qt.root = qt.newNode(bounds, 0)
	return qt
}

func (qt *Quadtree) newNode(b Bounds, level int) *qnode {
	n := &qnode{id: qt.nextNodeID, level: level, bounds: b}
	qt.nextNodeID++
	qt.nodes[n.id] = n
	return n
}

// Insert adds h at pos.
func (qt *Quadtree) Insert(h ecs.Handle, pos mgl64.Vec2) {
	qt.insertInto(qt.root, entry{h: h, pos: pos})
}

func (qt *Quadtree) insertInto(n *qnode, e entry) {
	if n.children != nil {
		if c := qt.quadrantFor(n, e.pos); c != nil {
			qt.insertInto(c, e)
			return
		}
		// quadrantFor found no child (only for a NaN coordinate): keep it at
		// the parent.
	}
	n.objects = append(n.objects, e)
	qt.locate.Put(int64(handleKey(e.h)), n.id)

	if n.children == nil && len(n.objects) > qt.maxObjects && n.level < qt.maxLevels {
		qt.split(n)
	}
}

// quadrantFor returns the child of n whose quadrant holds pos. A pos on a
// split line goes to the child on its higher-coordinate side; nil is
// returned only when a coordinate of pos is NaN.
func (qt *Quadtree) quadrantFor(n *qnode, pos mgl64.Vec2) *qnode {
	mx, my := (n.bounds.Min.X()+n.bounds.Max.X())/2, (n.bounds.Min.Y()+n.bounds.Max.Y())/2
	children := n.children
	switch {
	case pos.X() < mx && pos.Y() < my:
		return children[0]
	case pos.X() >= mx && pos.Y() < my:
		return children[1]
	case pos.X() < mx && pos.Y() >= my:
		return children[2]
	case pos.X() >= mx && pos.Y() >= my:
		return children[3]
	}
	return nil
}

func (qt *Quadtree) split(n *qnode) {
	mx, my := (n.bounds.Min.X()+n.bounds.Max.X())/2, (n.bounds.Min.Y()+n.bounds.Max.Y())/2
	nw := Bounds{Min: n.bounds.Min, Max: mgl64.Vec2{mx, my}}
	ne := Bounds{Min: mgl64.Vec2{mx, n.bounds.Min.Y()}, Max: mgl64.Vec2{n.bounds.Max.X(), my}}
	sw := Bounds{Min: mgl64.Vec2{n.bounds.Min.X(), my}, Max: mgl64.Vec2{mx, n.bounds.Max.Y()}}
	se := Bounds{Min: mgl64.Vec2{mx, my}, Max: n.bounds.Max}
	children := &[4]*qnode{
		qt.newNode(nw, n.level+1),
		qt.newNode(ne, n.level+1),
		qt.newNode(sw, n.level+1),
		qt.newNode(se, n.level+1),
	}
	n.children = children

	existing := n.objects
	n.objects = nil
	for _, e := range existing {
		if c := qt.quadrantFor(n, e.pos); c != nil {
			qt.insertInto(c, e)
		} else {
			n.objects = append(n.objects, e)
			qt.locate.Put(int64(handleKey(e.h)), n.id)
		}
	}
}

// Remove drops h from the tree. Removing a handle that was never inserted is
// a no-op.
func (qt *Quadtree) Remove(h ecs.Handle) {
	nodeID, ok := qt.locate.Get(int64(handleKey(h)))
	if !ok {
		return
	}
	n, ok := qt.nodes[nodeID]
	if !ok {
		return
	}
	for i, e := range n.objects {
		if e.h == h {
			n.objects = append(n.objects[:i], n.objects[i+1:]...)
			break
		}
	}
	qt.locate.Del(int64(handleKey(h)))
}

// Update moves h from old to new. Behaviorally equivalent to Remove+Insert
// but kept as one call so embedders don't forget the remove half.
func (qt *Quadtree) Update(h ecs.Handle, old, new mgl64.Vec2) {
	_ = old
	qt.Remove(h)
	qt.Insert(h, new)
}

// Rebuild discards all state and reinserts every (handle, pos) pair from
// src. O(n).
func (qt *Quadtree) Rebuild(src iter.Seq2[ecs.Handle, mgl64.Vec2]) {
	qt.nodes = make(map[int64]*qnode)
	qt.nextNodeID = 0
	qt.locate = intintmap.New(256, 0.6)
	qt.root = qt.newNode(qt.bounds, 0)
	for h, pos := range src {
		qt.Insert(h, pos)
	}
}

// QueryRegion returns every handle whose position falls within [min, max].
func (qt *Quadtree) QueryRegion(min, max mgl64.Vec2) []ecs.Handle {
	region := Bounds{Min: min, Max: max}
	var out []ecs.Handle
	qt.collectRegion(qt.root, region, &out)
	return out
}

func (qt *Quadtree) collectRegion(n *qnode, region Bounds, out *[]ecs.Handle) {
	if !n.bounds.intersects(region) {
		return
	}
	for _, e := range n.objects {
		if region.contains(e.pos) {
			*out = append(*out, e.h)
		}
	}
	if n.children != nil {
		for _, c := range n.children {
			qt.collectRegion(c, region, out)
		}
	}
}

// QueryRadius returns every handle within Euclidean distance r of center.
func (qt *Quadtree) QueryRadius(center mgl64.Vec2, r float64) []ecs.Handle {
	region := Bounds{
		Min: mgl64.Vec2{center.X() - r, center.Y() - r},
		Max: mgl64.Vec2{center.X() + r, center.Y() + r},
	}
	r2 := r * r
	var out []ecs.Handle
	qt.collectRadius(qt.root, region, center, r2, &out)
	return out
}

func (qt *Quadtree) collectRadius(n *qnode, region Bounds, center mgl64.Vec2, r2 float64, out *[]ecs.Handle) {
	if !n.bounds.intersects(region) {
		return
	}
	for _, e := range n.objects {
		d := e.pos.Sub(center)
		if d.X()*d.X()+d.Y()*d.Y() <= r2 {
			*out = append(*out, e.h)
		}
	}
	if n.children != nil {
		for _, c := range n.children {
			qt.collectRadius(c, region, center, r2, out)
		}
	}
}

// handleKey packs a Handle into an intintmap key. Only the index half is
// used since it is unique among currently-tracked entries (a
// removed-then-reinserted handle always clears its old key first).
func handleKey(h ecs.Handle) uint32 { return h.Index() }
