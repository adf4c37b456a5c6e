package middleware

import (
	"context"
	"errors"

	"golang.org/x/time/rate"

	"github.com/km-arc/go-mediator/framework/bus"
)

// ErrRateLimited is returned when a dispatch is rejected by the throttle
// behavior. The transport layer maps it to 429.
var ErrRateLimited = errors.New("middleware: rate limit exceeded")

// Throttle caps the dispatch rate across the whole bus with a token
// bucket. A rejected dispatch short-circuits with ErrRateLimited.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle creates a throttle admitting limit dispatches per second
// with the given burst.
func NewThrottle(limit float64, burst int) *Throttle {
	return &Throttle{limiter: rate.NewLimiter(rate.Limit(limit), burst)}
}

func (t *Throttle) Handle(ctx context.Context, request any, next bus.Next) (any, error) {
	if !t.limiter.Allow() {
		return nil, ErrRateLimited
	}
	return next(ctx)
}
