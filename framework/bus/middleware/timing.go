package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-mediator/framework/bus"
	"github.com/km-arc/go-mediator/framework/metrics"
)

// Timing records dispatch durations and failures in Prometheus and warns
// about dispatches slower than the configured threshold.
type Timing struct {
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
	SlowThreshold time.Duration
}

// NewTiming creates the timing behavior. A zero threshold disables the
// slow-dispatch warning.
func NewTiming(m *metrics.Metrics, logger *zap.Logger, slowThreshold time.Duration) *Timing {
	return &Timing{Metrics: m, Logger: logger, SlowThreshold: slowThreshold}
}

func (t *Timing) Handle(ctx context.Context, request any, next bus.Next) (any, error) {
	shape := bus.ShapeOf(request)
	start := time.Now()

	result, err := next(ctx)

	elapsed := time.Since(start)
	t.Metrics.ObserveDispatch(shape, elapsed, err)
	if t.SlowThreshold > 0 && elapsed > t.SlowThreshold {
		t.Logger.Warn("slow dispatch",
			zap.String("shape", shape),
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", t.SlowThreshold))
	}
	return result, err
}
