package bus

import (
	"context"
	"sort"
	"sync"
)

// Next is the continuation a behavior wraps. A behavior either calls it
// exactly once, or short-circuits by returning its own result or failure
// without calling it.
type Next func(ctx context.Context) (any, error)

// Behavior adds cross-cutting logic around handler execution. Behaviors
// are resolved from the container per dispatch, so they may have
// dependencies and lifetimes of their own. Post-processing after the next
// call runs strictly after the downstream chain completed or failed.
type Behavior interface {
	Handle(ctx context.Context, request any, next Next) (any, error)
}

// BehaviorFunc adapts a plain function to the Behavior interface.
type BehaviorFunc func(ctx context.Context, request any, next Next) (any, error)

func (f BehaviorFunc) Handle(ctx context.Context, request any, next Next) (any, error) {
	return f(ctx, request, next)
}

// BehaviorDescriptor declares one behavior registration: the capability to
// resolve, its ordering key, and the request shapes it applies to (empty
// means all shapes).
type BehaviorDescriptor struct {
	Capability string
	Order      int
	Shapes     []string

	seq int // registration order, tie-breaker
}

func (d BehaviorDescriptor) appliesTo(shape string) bool {
	if len(d.Shapes) == 0 {
		return true
	}
	for _, s := range d.Shapes {
		if s == shape {
			return true
		}
	}
	return false
}

// Pipeline composes, per request shape, the ordered behavior chain that
// wraps the handler. Ordering is by declared key, ties broken by
// registration order; the chain for a given shape is deterministic and
// cached on first composition.
type Pipeline struct {
	behaviors []BehaviorDescriptor // sorted by (Order, seq)

	mu    sync.RWMutex
	cache map[string][]BehaviorDescriptor
}

func newPipeline(behaviors []BehaviorDescriptor) *Pipeline {
	sorted := append([]BehaviorDescriptor(nil), behaviors...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Order != sorted[j].Order {
			return sorted[i].Order < sorted[j].Order
		}
		return sorted[i].seq < sorted[j].seq
	})
	return &Pipeline{
		behaviors: sorted,
		cache:     make(map[string][]BehaviorDescriptor),
	}
}

// ChainFor returns the behavior descriptors that apply to a shape, in
// execution order (first descriptor is the outermost wrapper).
func (p *Pipeline) ChainFor(shape string) []BehaviorDescriptor {
	p.mu.RLock()
	chain, ok := p.cache[shape]
	p.mu.RUnlock()
	if ok {
		return chain
	}

	chain = make([]BehaviorDescriptor, 0, len(p.behaviors))
	for _, d := range p.behaviors {
		if d.appliesTo(shape) {
			chain = append(chain, d)
		}
	}

	p.mu.Lock()
	p.cache[shape] = chain
	p.mu.Unlock()
	return chain
}
