package container

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"sync"
	"sync/atomic"
)

// ── Binding types ─────────────────────────────────────────────────────────────

// Factory builds a concrete value. Dependencies are resolved through the
// supplied Resolver, which carries the lifetime context of the resolution
// that triggered the factory.
type Factory func(r Resolver) (any, error)

// Extender wraps an already-resolved instance with decorator logic. The
// inner value is the result of the previous producer in the chain.
type Extender func(inner any, r Resolver) (any, error)

// Resolver resolves capabilities. Both *Container (root resolution) and
// *Scope implement it, as does the internal context handed to factories.
type Resolver interface {
	// Resolve returns the instance bound to the capability key.
	Resolve(abstract string) (any, error)
}

// binding holds a registered factory and its lifetime.
type binding struct {
	factory  Factory
	lifetime Lifetime

	// placeholder marks the lazy stand-in installed for a deferred
	// provider. The instance it yields is owned by the real binding's
	// resolution, so the proxy frame must not track it again.
	placeholder bool
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container is the root object-graph holder: it owns the registry of
// bindings and the cache of live singleton instances.
//
// It supports:
//   - Bind (transient) / Scoped / Singleton / Instance / Alias
//   - Resolve (untyped and generic)
//   - Tags (group multiple capabilities under one tag)
//   - Extend (decorate previously registered producers)
//   - Contextual binding (when A needs B, give it C)
//   - Scopes (per-unit-of-work resolution contexts, see NewScope)
//   - Seal (close the registry for modification before dispatch begins)
//
// Registering the same capability twice without Extend silently overrides
// the previous binding — last registration wins. This mirrors provider
// override semantics and is intentional; make the override explicit in
// bootstrap code so it reads as such.
type Container struct {
	mu sync.RWMutex

	// abstract → binding
	bindings map[string]*binding

	// alias → abstract (canonical key)
	aliases map[string]string

	// abstract → extender funcs, applied in registration order
	extenders map[string][]Extender

	// tag → []abstract
	tags map[string][]string

	// contextual: when[consumer][abstract] = factory
	contextual map[string]map[string]Factory

	// abstract → resolved singleton instance
	instances map[string]any

	// per-capability guards for singleton first construction
	guards map[string]*sync.Mutex

	// singleton creation order, for reverse-order teardown in Close
	created []string

	// instances registered via Instance; the caller owns their lifecycle,
	// so Close skips them
	external map[string]bool

	// callbacks fired after an instance is constructed (cache hits do
	// not refire)
	afterResolving []func(abstract string, instance any)

	sealed  atomic.Bool
	loading atomic.Int32 // >0 while a deferred provider materializes
	closed  bool
}

// New creates an empty container.
func New() *Container {
	c := &Container{
		bindings:   make(map[string]*binding),
		aliases:    make(map[string]string),
		extenders:  make(map[string][]Extender),
		tags:       make(map[string][]string),
		contextual: make(map[string]map[string]Factory),
		instances:  make(map[string]any),
		guards:     make(map[string]*sync.Mutex),
		external:   make(map[string]bool),
	}
	// The container resolves itself, so factories can reach it explicitly.
	c.Instance("container", c)
	return c
}

// ── Registration ──────────────────────────────────────────────────────────────

// Bind registers a transient factory: a new instance on every resolution.
// The resolving scope tracks the instance for disposal only.
func (c *Container) Bind(abstract string, factory Factory) {
	c.register(abstract, factory, Transient)
}

// Scoped registers a factory whose result is cached per Scope. Resolving a
// scoped capability from the root container fails with ErrNoActiveScope.
func (c *Container) Scoped(abstract string, factory Factory) {
	c.register(abstract, factory, Scoped)
}

// Singleton registers a factory whose result is cached on the container
// after first resolution.
func (c *Container) Singleton(abstract string, factory Factory) {
	c.register(abstract, factory, Singleton)
}

// Register binds a factory with an explicit lifetime.
func (c *Container) Register(abstract string, factory Factory, lifetime Lifetime) {
	if !lifetime.IsValid() {
		panic(fmt.Sprintf("container: invalid lifetime %v for [%s]", lifetime, abstract))
	}
	c.register(abstract, factory, lifetime)
}

func (c *Container) register(abstract string, factory Factory, lifetime Lifetime) {
	c.assertMutable(abstract)
	c.mu.Lock()
	key := c.canonical(abstract)
	displaced, owned := c.dropCached(key)
	c.bindings[key] = &binding{factory: factory, lifetime: lifetime}
	c.mu.Unlock()

	if owned {
		disposeOne(displaced)
	}
}

// dropCached removes a cached instance and its disposal-ledger entry, so a
// rebuilt singleton is never walked twice by Close. The displaced instance
// is returned for disposal when the container constructed it; values
// registered via Instance stay the caller's to release. Callers hold c.mu.
func (c *Container) dropCached(key string) (displaced any, owned bool) {
	inst, cached := c.instances[key]
	if !cached {
		return nil, false
	}
	owned = !c.external[key]
	delete(c.instances, key)
	delete(c.external, key)
	for i, k := range c.created {
		if k == key {
			c.created = append(c.created[:i], c.created[i+1:]...)
			break
		}
	}
	return inst, owned
}

// bindPlaceholder installs the transient stand-in used for deferred
// provider capabilities.
func (c *Container) bindPlaceholder(abstract string, factory Factory) {
	c.assertMutable(abstract)
	c.mu.Lock()
	key := c.canonical(abstract)
	displaced, owned := c.dropCached(key)
	c.bindings[key] = &binding{factory: factory, lifetime: Transient, placeholder: true}
	c.mu.Unlock()

	if owned {
		disposeOne(displaced)
	}
}

// Instance registers a pre-built value as a singleton. The caller keeps
// ownership: Close never disposes values registered this way.
func (c *Container) Instance(abstract string, instance any) {
	c.assertMutable(abstract)
	c.mu.Lock()
	key := c.canonical(abstract)
	displaced, owned := c.dropCached(key)
	delete(c.bindings, key)
	c.instances[key] = instance
	c.external[key] = true
	c.mu.Unlock()

	if owned {
		disposeOne(displaced)
	}
}

// Alias registers an alternative name for a capability.
func (c *Container) Alias(abstract, alias string) {
	c.assertMutable(alias)
	c.mu.Lock()
	defer c.mu.Unlock()
	if abstract == alias {
		panic(fmt.Sprintf("container: [%s] is aliased to itself", abstract))
	}
	c.aliases[alias] = c.canonical(abstract)
}

// Extend decorates the producer registered for a capability. The extender
// receives the result of the previous producer (the pre-decoration chain),
// so multiple Extend calls compose in registration order: the first call
// is the innermost wrapper, the last is the outermost, and resolving the
// capability yields the outermost decorator. The chain is applied on
// construction, once per instance per its lifetime.
//
// An instance already cached on the container (a resolved singleton, or a
// value registered via Instance) is wrapped in place, without re-running
// its factory. Ownership does not move: Close still skips Instance values,
// wrapped or not. An extender failing at this point is a bootstrap
// programming error and panics.
func (c *Container) Extend(abstract string, fn Extender) {
	c.assertMutable(abstract)
	c.mu.Lock()
	key := c.canonical(abstract)
	c.extenders[key] = append(c.extenders[key], fn)
	inst, cached := c.instances[key]
	c.mu.Unlock()

	if !cached {
		return
	}

	res := resolution{container: c}
	wrapped, err := fn(inst, &res)
	if err != nil {
		panic(fmt.Sprintf("container: extend [%s]: %v", key, err))
	}
	c.mu.Lock()
	c.instances[key] = wrapped
	c.mu.Unlock()
}

// ── Tags ──────────────────────────────────────────────────────────────────────

// Tag associates multiple capabilities under a named group.
func (c *Container) Tag(abstracts []string, tag string) {
	c.assertMutable(tag)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags[tag] = append(c.tags[tag], abstracts...)
}

// Tagged resolves every capability registered under a tag, through r so
// the lifetime rules of the calling context apply. Pass the container
// itself for root resolution.
func (c *Container) Tagged(r Resolver, tag string) ([]any, error) {
	if r == nil {
		r = c
	}
	c.mu.RLock()
	abstracts := append([]string(nil), c.tags[tag]...)
	c.mu.RUnlock()

	out := make([]any, 0, len(abstracts))
	for _, abs := range abstracts {
		inst, err := r.Resolve(abs)
		if err != nil {
			return nil, fmt.Errorf("container: tag [%s]: %w", tag, err)
		}
		out = append(out, inst)
	}
	return out, nil
}

// TaggedKeys returns the capability keys registered under a tag, in
// registration order.
func (c *Container) TaggedKeys(tag string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.tags[tag]...)
}

// ── Callbacks ─────────────────────────────────────────────────────────────────

// AfterResolving registers a callback fired after the container constructs
// an instance, with the capability key and the fully decorated instance.
// Cache hits do not refire: the callback observes constructions, not
// lookups. Registration is a bootstrap operation like any other.
//
//	app.AfterResolving(func(abstract string, _ any) {
//	    logger.Debug("resolved", zap.String("capability", abstract))
//	})
func (c *Container) AfterResolving(cb func(abstract string, instance any)) {
	c.assertMutable("afterResolving")
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterResolving = append(c.afterResolving, cb)
}

func (c *Container) fireAfterResolving(key string, inst any) {
	c.mu.RLock()
	cbs := c.afterResolving
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(key, inst)
	}
}

// ── Sealing ───────────────────────────────────────────────────────────────────

// Seal closes the container for modification. Bootstrap performs all
// registration before the first dispatch; after Seal every registration
// call panics. The only exception is the materialization of a deferred
// provider whose capabilities were declared before sealing.
func (c *Container) Seal() { c.sealed.Store(true) }

// Sealed reports whether Seal has been called.
func (c *Container) Sealed() bool { return c.sealed.Load() }

func (c *Container) assertMutable(abstract string) {
	if c.sealed.Load() && c.loading.Load() == 0 {
		panic(fmt.Sprintf("container: cannot register [%s] after Seal", abstract))
	}
}

// beginLoad / endLoad bracket deferred-provider materialization, which may
// legitimately register bindings after Seal.
func (c *Container) beginLoad() { c.loading.Add(1) }
func (c *Container) endLoad()   { c.loading.Add(-1) }

// ── Resolution ────────────────────────────────────────────────────────────────

// Resolve resolves a capability at root level, outside any scope. Scoped
// capabilities fail with ErrNoActiveScope; transient instances are not
// tracked for disposal. Use NewScope for unit-of-work resolution.
func (c *Container) Resolve(abstract string) (any, error) {
	res := resolution{container: c}
	return res.Resolve(abstract)
}

// NewScope opens a bounded resolution context owning the Scoped and
// Transient instances it produces. Close it when the unit of work ends.
func (c *Container) NewScope() *Scope {
	return newScope(c)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Bound reports whether a capability has been registered.
func (c *Container) Bound(abstract string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key := c.canonical(abstract)
	_, hasBinding := c.bindings[key]
	_, hasInstance := c.instances[key]
	return hasBinding || hasInstance
}

// Resolved reports whether a singleton capability has been constructed.
func (c *Container) Resolved(abstract string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.instances[c.canonical(abstract)]
	return ok
}

// Lifetime returns the registered lifetime for a capability.
func (c *Container) Lifetime(abstract string) (Lifetime, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key := c.canonical(abstract)
	if b, ok := c.bindings[key]; ok {
		return b.lifetime, true
	}
	if _, ok := c.instances[key]; ok {
		return Singleton, true
	}
	return 0, false
}

// Bindings returns all registered capability keys (for diagnostics).
func (c *Container) Bindings() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.bindings)+len(c.instances))
	for k := range c.bindings {
		out = append(out, k)
	}
	for k := range c.instances {
		if _, already := c.bindings[k]; !already {
			out = append(out, k)
		}
	}
	return out
}

// canonical resolves an alias to its canonical key. Callers hold c.mu.
func (c *Container) canonical(abstract string) string {
	if target, ok := c.aliases[abstract]; ok {
		return target
	}
	return abstract
}

func (c *Container) canonicalKey(abstract string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.canonical(abstract)
}

func (c *Container) lookup(key string) (*binding, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.bindings[key]
	return b, ok
}

func (c *Container) cachedSingleton(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	inst, ok := c.instances[key]
	return inst, ok
}

// guard returns the per-capability mutex used to serialize singleton first
// construction.
func (c *Container) guard(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.guards[key]
	if !ok {
		g = &sync.Mutex{}
		c.guards[key] = g
	}
	return g
}

func (c *Container) storeSingleton(key string, inst any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instances[key] = inst
	c.created = append(c.created, key)
}

func (c *Container) contextualFor(consumer, abstract string) Factory {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if m, ok := c.contextual[consumer]; ok {
		return m[abstract]
	}
	return nil
}

func (c *Container) extendersFor(key string) []Extender {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.extenders[key]
}

// ── Teardown ──────────────────────────────────────────────────────────────────

// Close disposes every singleton the container constructed, in reverse
// creation order. A disposal failure never prevents the release of the
// remaining instances; failures are joined into the returned error.
// Values registered via Instance stay untouched.
func (c *Container) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	order := c.created
	owned := make([]any, 0, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		key := order[i]
		if c.external[key] {
			continue
		}
		if inst, ok := c.instances[key]; ok {
			owned = append(owned, inst)
		}
	}
	c.created = nil
	c.mu.Unlock()

	var errs []error
	for _, inst := range owned {
		if closer, ok := inst.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("container: dispose %T: %w", inst, err))
			}
		}
	}
	return errors.Join(errs...)
}

// ── Reflect helpers ───────────────────────────────────────────────────────────

// TypeKey returns the package-qualified type name of v, useful as a stable
// capability key when working with interfaces.
//
//	key := container.TypeKey((*UserRepository)(nil))  // "main.UserRepository"
//	c.Singleton(key, factory)
//	repo, err := container.Resolve[UserRepository](c, key)
func TypeKey(v any) string {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.PkgPath() + "." + t.Name()
}

// ── Generics helpers ──────────────────────────────────────────────────────────

// Resolve resolves a capability through r and type-asserts the result.
func Resolve[T any](r Resolver, abstract string) (T, error) {
	var zero T
	instance, err := r.Resolve(abstract)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("%w: [%s] resolved to %T, want %T",
			ErrResolveType, abstract, instance, zero)
	}
	return typed, nil
}

// MustResolve is Resolve for bootstrap paths where a failure is fatal.
func MustResolve[T any](r Resolver, abstract string) T {
	typed, err := Resolve[T](r, abstract)
	if err != nil {
		panic(err)
	}
	return typed
}
