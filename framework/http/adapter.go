package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/km-arc/go-mediator/framework/bus"
	"github.com/km-arc/go-mediator/framework/bus/middleware"
	"github.com/km-arc/go-mediator/framework/container"
	"github.com/km-arc/go-mediator/framework/validation"
)

type ctxKey int

const (
	scopeKey ctxKey = iota
	requestIDKey
)

// ScopeMiddleware opens one container scope per inbound request — the
// scope's lifetime is the request's lifetime. The scope is closed on every
// exit path; teardown failures are logged, never sent to the client.
func ScopeMiddleware(c *container.Container, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope := c.NewScope()
			id := uuid.NewString()

			ctx := context.WithValue(r.Context(), scopeKey, scope)
			ctx = context.WithValue(ctx, requestIDKey, id)
			w.Header().Set("X-Request-ID", id)

			defer func() {
				if err := scope.Close(); err != nil && logger != nil {
					logger.Warn("scope teardown",
						zap.String("request_id", id),
						zap.Error(err))
				}
			}()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ScopeFrom returns the request's scope, or nil outside ScopeMiddleware.
func ScopeFrom(ctx context.Context) *container.Scope {
	scope, _ := ctx.Value(scopeKey).(*container.Scope)
	return scope
}

// RequestID returns the request's correlation id, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Dispatch runs a request through the bus inside the inbound request's
// scope and writes the result (or the mapped failure) as JSON.
func Dispatch(b *bus.Bus, w http.ResponseWriter, r *http.Request, request any, status int) {
	scope := ScopeFrom(r.Context())
	if scope == nil {
		NewResponse(w).ServerError("no request scope")
		return
	}
	out, err := b.Dispatch(r.Context(), scope, request)
	if err != nil {
		WriteError(w, err)
		return
	}
	NewResponse(w).JSON(status, envelope{"data": out})
}

// WriteError maps the bus failure taxonomy onto HTTP statuses:
// validation bags become 422, throttling 429, infrastructure failures
// (missing handler, unresolvable capability, cycle, dead scope) 500,
// timeouts 504, and remaining business failures 400.
func WriteError(w http.ResponseWriter, err error) {
	res := NewResponse(w)

	var verrs *validation.Errors
	switch {
	case errors.As(err, &verrs):
		res.ValidationError(verrs)
	case errors.Is(err, middleware.ErrRateLimited):
		res.Error(http.StatusTooManyRequests, "Too many requests.")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		res.Error(http.StatusGatewayTimeout, "Request cancelled.")
	case errors.Is(err, bus.ErrHandlerNotFound),
		errors.Is(err, container.ErrNotBound),
		errors.Is(err, container.ErrCircularDependency),
		errors.Is(err, container.ErrNoActiveScope),
		errors.Is(err, container.ErrScopeClosed):
		res.ServerError()
	default:
		res.Error(http.StatusBadRequest, err.Error())
	}
}
