package bus

import (
	"context"
	"fmt"
	"reflect"
)

// Handler processes one request shape. Implementations are registered in
// the container like any other capability, so they may carry dependencies
// and a lifetime of their own.
type Handler interface {
	Handle(ctx context.Context, request any) (any, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, request any) (any, error)

func (f HandlerFunc) Handle(ctx context.Context, request any) (any, error) {
	return f(ctx, request)
}

// HandlerOf adapts a typed handler function to the untyped Handler
// contract. The type assertion failure path only fires on a wiring bug
// (handler registered under the wrong shape).
func HandlerOf[Req any, Res any](fn func(ctx context.Context, request Req) (Res, error)) Handler {
	return HandlerFunc(func(ctx context.Context, request any) (any, error) {
		typed, ok := request.(Req)
		if !ok {
			return nil, fmt.Errorf("bus: handler for %s received %T", Shape[Req](), request)
		}
		return fn(ctx, typed)
	})
}

// ── Request shape identity ────────────────────────────────────────────────────

// ShapeOf returns the shape key of a request value: the package-qualified
// name of its dynamic type, pointers dereferenced. Dispatch uses it to
// find the handler, so CreateUser{} and *CreateUser address the same
// handler.
func ShapeOf(request any) string {
	return shapeName(reflect.TypeOf(request))
}

// Shape returns the shape key for a request type, for registration:
//
//	bus.Handle[CreateUser, User](builder, "handler.createUser")
func Shape[T any]() string {
	return shapeName(reflect.TypeOf((*T)(nil)).Elem())
}

func shapeName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.PkgPath() + "." + t.Name()
}
