package reward

import (
	"container/list"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// conditionCache is an LRU of compiled expr-lang programs. The reward
// engine itself is single-threaded per tick, but the cache keeps its own
// mutex so an embedder compiling reward tables from multiple goroutines at
// load time (outside the hot per-tick path) doesn't need to coordinate.
type conditionCache struct {
	capacity int
	entries  map[string]*list.Element
	order    *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key     string
	program *vm.Program
}

func newConditionCache(capacity int) *conditionCache {
	if capacity <= 0 {
		capacity = 256
	}
	return &conditionCache{capacity: capacity, entries: make(map[string]*list.Element), order: list.New()}
}

// compile returns the compiled program for condition, compiling and caching
// it on first use. The environment shape is fixed by multiplierEnv.
func (c *conditionCache) compile(condition string) (*vm.Program, error) {
	c.mu.Lock()
	if el, ok := c.entries[condition]; ok {
		c.order.MoveToFront(el)
		prog := el.Value.(*cacheEntry).program
		c.mu.Unlock()
		return prog, nil
	}
	c.mu.Unlock()

	prog, err := expr.Compile(condition, expr.Env(multiplierEnv{}), expr.AsBool())
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
	el := c.order.PushFront(&cacheEntry{key: condition, program: prog})
	c.entries[condition] = el
	return prog, nil
}

// multiplierEnv is the expr-lang evaluation environment for situational
// multiplier conditions.
type multiplierEnv struct {
	HealthRatio float64
	ThreatLevel float64
	Urgency     float64
}
