// Package bus provides an in-process command/query mediator: typed
// requests dispatched to typed handlers through a composable behavior
// pipeline.
//
// # Overview
//
// A request is any value; its shape (package-qualified type name) selects
// exactly one handler. Cross-cutting concerns — logging, validation,
// timing, throttling — are behaviors: wrappers around the handler that
// run in a deterministic order and may short-circuit.
//
// Handlers and behaviors are plain container capabilities, so they carry
// their own dependencies and lifetimes. Dispatch resolves them inside the
// scope the caller passes in; the bus itself never opens a scope.
//
// # Bootstrap
//
//	builder := bus.NewBuilder()
//	bus.Handle[CreateUser, *User](builder, "handler.createUser")
//	builder.Use("behavior.validate", 0)
//	builder.Use("behavior.logging", 10)
//	b, err := builder.Build(c) // *ConfigError on bad wiring, before any dispatch
//
// # Dispatch
//
//	scope := c.NewScope()
//	defer scope.Close()
//
//	user, err := bus.Send[*User](ctx, b, scope, CreateUser{Name: "Ada"})
//
// # Failure kinds
//
// Configuration failures (*ConfigError) abort boot. Resolution failures
// (container.ErrNotBound, ErrCircularDependency, ErrNoActiveScope) and
// ErrHandlerNotFound are fatal to the dispatch that hit them. Everything
// else returned from a handler or a short-circuiting behavior is a
// business failure, propagated to the caller unchanged.
package bus
