package pathfinding

import (
	"container/list"
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// DefaultCacheSize is the default LRU capacity for cached paths.
const DefaultCacheSize = 256

type cacheKey uint64

func keyFor(start, goal Cell) cacheKey {
	var buf [16]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(start.X))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(start.Y))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(goal.X))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(goal.Y))
	return cacheKey(xxhash.Sum64(buf[:]))
}

type cacheValue struct {
	key    cacheKey
	path   []Cell
	bounds [2]Cell // bounding box the path passes through, for invalidation
}

// pathCache is a small LRU of (start cell, goal cell) -> path, per spec
// §4.8. Keys are hashed with xxhash, a fast allocation-light hash family,
// to avoid the allocation a composite struct key would cost as a map key
// on this hot path.
type pathCache struct {
	capacity int
	entries  map[cacheKey]*list.Element
	order    *list.List
}

func newPathCache(capacity int) *pathCache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &pathCache{capacity: capacity, entries: make(map[cacheKey]*list.Element), order: list.New()}
}

func (c *pathCache) get(start, goal Cell) ([]Cell, bool) {
	k := keyFor(start, goal)
	el, ok := c.entries[k]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheValue).path, true
}

func (c *pathCache) put(start, goal Cell, path []Cell) {
	k := keyFor(start, goal)
	if el, ok := c.entries[k]; ok {
		el.Value.(*cacheValue).path = path
		el.Value.(*cacheValue).bounds = boundingBox(path)
		c.order.MoveToFront(el)
		return
	}
	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheValue).key)
		}
	}
	bounds := boundingBox(path)
	el := c.order.PushFront(&cacheValue{key: k, path: path, bounds: bounds})
	c.entries[k] = el
}

// invalidateRegion drops every cached path whose bounding box intersects
// [min, max].
func (c *pathCache) invalidateRegion(min, max Cell) {
	var toRemove []*list.Element
	for el := c.order.Front(); el != nil; el = el.Next() {
		v := el.Value.(*cacheValue)
		if boxesIntersect(v.bounds, min, max) {
			toRemove = append(toRemove, el)
		}
	}
	for _, el := range toRemove {
		c.order.Remove(el)
		delete(c.entries, el.Value.(*cacheValue).key)
	}
}

func boundingBox(path []Cell) [2]Cell {
	if len(path) == 0 {
		return [2]Cell{}
	}
	min, max := path[0], path[0]
	for _, c := range path[1:] {
		if c.X < min.X {
			min.X = c.X
		}
		if c.Y < min.Y {
			min.Y = c.Y
		}
		if c.X > max.X {
			max.X = c.X
		}
		if c.Y > max.Y {
			max.Y = c.Y
		}
	}
	return [2]Cell{min, max}
}

func boxesIntersect(box [2]Cell, min, max Cell) bool {
	return box[0].X <= max.X && box[1].X >= min.X && box[0].Y <= max.Y && box[1].Y >= min.Y
}
