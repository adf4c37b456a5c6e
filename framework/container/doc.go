// Package container provides an IoC (Inversion of Control) container with
// lifetime-scoped resolution and a Service Provider system.
//
// # Overview
//
// The container manages the instantiation and lifecycle of an
// application's dependencies. Capabilities are registered under string
// keys (use TypeKey for stable interface-derived keys) with one of three
// lifetimes:
//
//   - Transient: a new instance on every resolution
//   - Scoped:    one instance per Scope (one unit of work)
//   - Singleton: one instance per Container
//
// Because Go has no runtime constructor reflection worth trusting, wiring
// is explicit: every capability is produced by a factory that resolves its
// own dependencies through the Resolver it receives. Cycles in the
// dependency graph are detected during resolution and fail with
// ErrCircularDependency before anything is constructed.
//
// # Container Lifecycle
//
//  1. Create: c := container.New()
//  2. Register providers: registry.Register(&MyProvider{})
//  3. Boot: registry.Boot()
//  4. Seal: c.Seal() — the registry is now read-only
//  5. Serve requests, one Scope per unit of work
//  6. Teardown: c.Close() disposes constructed singletons
//
// # Bindings
//
//	// Transient — new instance every resolution
//	c.Bind("report", func(r container.Resolver) (any, error) {
//	    return NewReport(), nil
//	})
//
//	// Scoped — one instance per scope, released on scope close
//	c.Scoped("unitOfWork", func(r container.Resolver) (any, error) {
//	    repo, err := container.Resolve[Repository](r, "repository")
//	    if err != nil {
//	        return nil, err
//	    }
//	    return NewUnitOfWork(repo), nil
//	})
//
//	// Singleton — created once, reused; built outside any scope
//	c.Singleton("cache", func(r container.Resolver) (any, error) {
//	    return cache.New(), nil
//	})
//
//	// Pre-built value (caller keeps ownership)
//	c.Instance("config", myConfig)
//
// # Scopes
//
//	scope := c.NewScope()
//	defer scope.Close() // releases owned instances, reverse creation order
//
//	uow, err := container.Resolve[*UnitOfWork](scope, "unitOfWork")
//
// Resolving a Scoped capability without a scope fails with
// ErrNoActiveScope; lifetimes are never silently promoted or demoted.
// Instances implementing io.Closer are closed when their owning scope (or
// the container, for singletons) closes. Disposal failures are joined and
// never skip the remaining instances.
//
// # Decoration
//
//	// wrap the registered producer; the last Extend is the outermost
//	c.Extend("repository", func(inner any, r container.Resolver) (any, error) {
//	    return NewAuditingRepository(inner.(Repository)), nil
//	})
//
// An instance already cached on the container (resolved singleton or
// Instance value) is wrapped in place, without re-running its factory.
//
// # Contextual Binding
//
//	c.When("report.mailer").
//	    Needs("transport").
//	    Give(func(r container.Resolver) (any, error) { return NewSMTP(), nil })
//
// # Tags
//
//	c.Tag([]string{"behavior.logging", "behavior.timing"}, "bus.behaviors")
//	behaviors, err := c.Tagged(scope, "bus.behaviors")
//
// # Override Semantics
//
// Registering a capability twice without Extend silently replaces the
// first binding — last registration wins. A singleton already constructed
// under that key is released on the spot (it is container-owned and now
// unreachable); Instance values stay the caller's to release. Overrides
// are a deliberate bootstrap tool (test doubles, environment-specific
// swaps) but easy to trip over; prefer Extend for wrapping and keep
// overrides loud in bootstrap code.
package container
