package container

import (
	"fmt"
	"strings"
)

// resolution is the per-call-stack state of one resolve walk: the lifetime
// context (scope, possibly nil) plus the chain of capabilities currently
// under construction, used for cycle detection and contextual lookup.
//
// A fresh resolution is created for every public Resolve entry point, so
// concurrent resolutions never share a stack.
type resolution struct {
	container *Container
	scope     *Scope
	stack     []string
}

// Resolve walks the dependency graph depth-first. Factories receive the
// child resolution as their Resolver, which is how the stack grows.
func (r *resolution) Resolve(abstract string) (any, error) {
	key := r.container.canonicalKey(abstract)

	// A capability already on the stack means the graph loops back onto
	// itself. Abort before constructing anything.
	for _, k := range r.stack {
		if k == key {
			chain := strings.Join(append(append([]string(nil), r.stack...), key), " -> ")
			return nil, fmt.Errorf("%w: %s", ErrCircularDependency, chain)
		}
	}

	// Contextual binding, keyed on the consumer currently being built.
	if len(r.stack) > 0 {
		if f := r.container.contextualFor(r.stack[len(r.stack)-1], key); f != nil {
			inst, err := r.construct(key, f)
			if err != nil {
				return nil, err
			}
			if r.scope != nil {
				r.scope.track(inst)
			}
			return inst, nil
		}
	}

	// Singleton cache fast path. Also covers values registered via
	// Instance, which have no binding at all.
	if inst, ok := r.container.cachedSingleton(key); ok {
		return inst, nil
	}

	b, ok := r.container.lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: [%s]", ErrNotBound, key)
	}

	switch b.lifetime {
	case Singleton:
		return r.resolveSingleton(key, b)

	case Scoped:
		if r.scope == nil {
			return nil, fmt.Errorf("%w: [%s]", ErrNoActiveScope, key)
		}
		return r.scope.resolveScoped(key, b, r)

	default: // Transient
		if b.placeholder {
			// Deferred stand-in: the real binding's resolution owns the
			// instance, this frame just passes it through.
			child := resolution{container: r.container, scope: r.scope, stack: push(r.stack, key)}
			return b.factory(&child)
		}
		inst, err := r.construct(key, b.factory)
		if err != nil {
			return nil, err
		}
		if r.scope != nil {
			r.scope.track(inst)
		}
		return inst, nil
	}
}

// resolveSingleton applies the double-checked pattern: the per-capability
// guard is only ever taken on first construction; later resolutions hit
// the cache fast path in Resolve.
//
// The guard is held while the factory resolves its own dependencies, so
// first constructions of mutually dependent singletons must not race from
// separate goroutines: sequential resolution reports the cycle as
// ErrCircularDependency, concurrent resolution would block on each other's
// guards. Resolve the roots of the graph once at bootstrap before fanning
// out.
func (r *resolution) resolveSingleton(key string, b *binding) (any, error) {
	g := r.container.guard(key)
	g.Lock()
	defer g.Unlock()

	if inst, ok := r.container.cachedSingleton(key); ok {
		return inst, nil
	}

	// Singletons construct outside any scope so they can never capture
	// request-local state: a scoped dependency of a singleton surfaces as
	// ErrNoActiveScope instead of being silently promoted.
	child := resolution{container: r.container, stack: push(r.stack, key)}
	inst, err := b.factory(&child)
	if err != nil {
		return nil, fmt.Errorf("container: build [%s]: %w", key, err)
	}
	inst, err = child.applyExtenders(key, inst)
	if err != nil {
		return nil, err
	}

	r.container.storeSingleton(key, inst)
	r.container.fireAfterResolving(key, inst)
	return inst, nil
}

// construct runs a factory with the key pushed onto the stack, then
// applies the capability's decorator chain.
func (r *resolution) construct(key string, f Factory) (any, error) {
	child := resolution{container: r.container, scope: r.scope, stack: push(r.stack, key)}
	inst, err := f(&child)
	if err != nil {
		return nil, fmt.Errorf("container: build [%s]: %w", key, err)
	}
	inst, err = child.applyExtenders(key, inst)
	if err != nil {
		return nil, err
	}
	r.container.fireAfterResolving(key, inst)
	return inst, nil
}

// applyExtenders wraps inst with the registered decorators, innermost
// first. The extenders resolve their own dependencies through r.
func (r *resolution) applyExtenders(key string, inst any) (any, error) {
	for _, ext := range r.container.extendersFor(key) {
		var err error
		inst, err = ext(inst, r)
		if err != nil {
			return nil, fmt.Errorf("container: extend [%s]: %w", key, err)
		}
	}
	return inst, nil
}

// push copies the stack before appending, so sibling resolutions launched
// by one factory never clobber each other's frames.
func push(stack []string, key string) []string {
	next := make([]string, len(stack)+1)
	copy(next, stack)
	next[len(stack)] = key
	return next
}
