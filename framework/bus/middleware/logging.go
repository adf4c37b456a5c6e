// Package middleware provides the framework's built-in bus behaviors:
// logging, timing, validation, and throttling. Each is an ordinary
// container capability; register the ones you want and hand their keys to
// the bus builder with an ordering key.
package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-mediator/framework/bus"
)

// Logging logs every dispatch with its shape, outcome, and duration.
type Logging struct {
	Logger *zap.Logger
}

// NewLogging creates the logging behavior.
func NewLogging(logger *zap.Logger) *Logging {
	return &Logging{Logger: logger}
}

func (l *Logging) Handle(ctx context.Context, request any, next bus.Next) (any, error) {
	shape := bus.ShapeOf(request)
	start := time.Now()

	result, err := next(ctx)

	elapsed := time.Since(start)
	if err != nil {
		l.Logger.Warn("dispatch failed",
			zap.String("shape", shape),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return nil, err
	}
	l.Logger.Info("dispatch",
		zap.String("shape", shape),
		zap.Duration("elapsed", elapsed))
	return result, nil
}
