package middleware

import (
	"context"

	"github.com/km-arc/go-mediator/framework/bus"
)

// Validatable is implemented by requests that can check their own input.
// The validation package's Validator.Err is the usual implementation.
type Validatable interface {
	Validate() error
}

// Validation rejects malformed requests before the handler runs. A
// validation failure short-circuits: next is never called, and the error
// propagates to the caller as a business failure.
type Validation struct{}

// NewValidation creates the validation behavior.
func NewValidation() *Validation { return &Validation{} }

func (*Validation) Handle(ctx context.Context, request any, next bus.Next) (any, error) {
	if v, ok := request.(Validatable); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	return next(ctx)
}
