package bus

import (
	"errors"
	"fmt"
)

var (
	// ErrHandlerNotFound is returned by Dispatch when no handler is
	// registered for the request's shape.
	ErrHandlerNotFound = errors.New("bus: no handler registered for request shape")

	// ErrNilRequest is returned by Dispatch for a nil request value.
	ErrNilRequest = errors.New("bus: nil request")

	// ErrNotHandler is returned when a handler capability resolves to a
	// value that does not implement Handler.
	ErrNotHandler = errors.New("bus: capability does not implement Handler")

	// ErrNotBehavior is returned when a behavior capability resolves to a
	// value that does not implement Behavior.
	ErrNotBehavior = errors.New("bus: capability does not implement Behavior")
)

// ConfigError reports an invalid bus configuration: a duplicate handler
// for one request shape, or a handler/behavior capability that is not
// bound in the container. It is surfaced by Builder.Build, before any
// dispatch can occur, and is fatal to boot.
type ConfigError struct {
	msg string
}

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{msg: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string { return e.msg }
