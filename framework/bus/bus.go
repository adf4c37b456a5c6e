package bus

import (
	"context"
	"fmt"

	"github.com/km-arc/go-mediator/framework/container"
)

// Bus is the in-process mediator: it accepts a request value, finds its
// handler in the catalog, resolves handler and behaviors inside the
// caller's scope, and executes the composed chain.
//
// The bus performs no business logic and never creates scopes; the scope
// boundary belongs to the caller (one scope per externally triggered unit
// of work).
type Bus struct {
	catalog  *Catalog
	pipeline *Pipeline
}

// Dispatch executes the request through its behavior chain and handler,
// resolving both through r — pass the unit of work's *container.Scope, or
// the *container.Container itself for scope-free dispatch (singleton
// handlers only).
//
// Infrastructure failures (unknown shape, unresolvable capability, cycle,
// missing scope) and handler failures propagate unchanged; the caller
// distinguishes them with errors.Is / errors.As.
func (b *Bus) Dispatch(ctx context.Context, r container.Resolver, request any) (any, error) {
	if request == nil {
		return nil, ErrNilRequest
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	shape := ShapeOf(request)
	desc, ok := b.catalog.Lookup(shape)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotFound, shape)
	}

	handler, err := resolveHandler(r, desc.Capability)
	if err != nil {
		return nil, err
	}

	chain := b.pipeline.ChainFor(shape)
	behaviors := make([]Behavior, len(chain))
	for i, d := range chain {
		behaviors[i], err = resolveBehavior(r, d.Capability)
		if err != nil {
			return nil, err
		}
	}

	// Compose innermost-out: the handler is the terminal continuation,
	// behaviors wrap it in reverse chain order so chain[0] runs first.
	next := Next(func(ctx context.Context) (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return handler.Handle(ctx, request)
	})
	for i := len(behaviors) - 1; i >= 0; i-- {
		behavior := behaviors[i]
		inner := next
		next = func(ctx context.Context) (any, error) {
			return behavior.Handle(ctx, request, inner)
		}
	}

	return next(ctx)
}

// Catalog exposes the handler table (for diagnostics).
func (b *Bus) Catalog() *Catalog { return b.catalog }

// Pipeline exposes the behavior composer (for diagnostics).
func (b *Bus) Pipeline() *Pipeline { return b.pipeline }

func resolveHandler(r container.Resolver, capability string) (Handler, error) {
	v, err := r.Resolve(capability)
	if err != nil {
		return nil, err
	}
	h, ok := v.(Handler)
	if !ok {
		return nil, fmt.Errorf("%w: [%s] is %T", ErrNotHandler, capability, v)
	}
	return h, nil
}

func resolveBehavior(r container.Resolver, capability string) (Behavior, error) {
	v, err := r.Resolve(capability)
	if err != nil {
		return nil, err
	}
	bhv, ok := v.(Behavior)
	if !ok {
		return nil, fmt.Errorf("%w: [%s] is %T", ErrNotBehavior, capability, v)
	}
	return bhv, nil
}

// Send dispatches a request and type-asserts the result.
//
//	user, err := bus.Send[*User](ctx, b, scope, CreateUser{Name: "Ada"})
func Send[Res any](ctx context.Context, b *Bus, r container.Resolver, request any) (Res, error) {
	var zero Res
	out, err := b.Dispatch(ctx, r, request)
	if err != nil {
		return zero, err
	}
	typed, ok := out.(Res)
	if !ok {
		return zero, fmt.Errorf("bus: %s returned %T, want %T", ShapeOf(request), out, zero)
	}
	return typed, nil
}
