package middleware_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-mediator/framework/bus"
	"github.com/km-arc/go-mediator/framework/bus/middleware"
	"github.com/km-arc/go-mediator/framework/metrics"
	"github.com/km-arc/go-mediator/framework/validation"
)

// ── fixtures ──────────────────────────────────────────────────────────────────

type createThing struct {
	Name string
}

func (c createThing) Validate() error {
	return validation.Make(map[string]string{"name": c.Name}, validation.Rules{
		"name": "required|min:2",
	}).Err()
}

type plainRequest struct{}

func countingNext(counter *int) bus.Next {
	return func(context.Context) (any, error) {
		*counter++
		return "ok", nil
	}
}

// ── Validation ────────────────────────────────────────────────────────────────

func TestValidation_InvalidRequestShortCircuits(t *testing.T) {
	var handled int
	v := middleware.NewValidation()

	_, err := v.Handle(context.Background(), createThing{Name: ""}, countingNext(&handled))
	if err == nil {
		t.Fatal("invalid request should fail")
	}
	var bag *validation.Errors
	if !errors.As(err, &bag) {
		t.Errorf("got %T, want the validation error bag", err)
	}
	if handled != 0 {
		t.Error("handler must not run for an invalid request")
	}
}

func TestValidation_ValidRequestPassesThrough(t *testing.T) {
	var handled int
	v := middleware.NewValidation()

	out, err := v.Handle(context.Background(), createThing{Name: "widget"}, countingNext(&handled))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if out != "ok" || handled != 1 {
		t.Error("valid request should reach the handler once")
	}
}

func TestValidation_NonValidatableRequestPassesThrough(t *testing.T) {
	var handled int
	v := middleware.NewValidation()

	if _, err := v.Handle(context.Background(), plainRequest{}, countingNext(&handled)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if handled != 1 {
		t.Error("requests without Validate should pass through untouched")
	}
}

// ── Throttle ──────────────────────────────────────────────────────────────────

func TestThrottle_RejectsBeyondBurst(t *testing.T) {
	var handled int
	th := middleware.NewThrottle(0.001, 2) // burst of 2, effectively no refill

	for i := 0; i < 2; i++ {
		if _, err := th.Handle(context.Background(), plainRequest{}, countingNext(&handled)); err != nil {
			t.Fatalf("dispatch %d within burst: %v", i, err)
		}
	}

	_, err := th.Handle(context.Background(), plainRequest{}, countingNext(&handled))
	if !errors.Is(err, middleware.ErrRateLimited) {
		t.Errorf("got %v, want ErrRateLimited", err)
	}
	if handled != 2 {
		t.Errorf("handler ran %d times, want only the admitted dispatches", handled)
	}
}

// ── Logging ───────────────────────────────────────────────────────────────────

func TestLogging_PassesResultAndErrorThrough(t *testing.T) {
	l := middleware.NewLogging(zap.NewNop())

	out, err := l.Handle(context.Background(), plainRequest{}, func(context.Context) (any, error) {
		return 42, nil
	})
	if err != nil || out != 42 {
		t.Errorf("got (%v, %v), want the handler's result", out, err)
	}

	boom := errors.New("boom")
	_, err = l.Handle(context.Background(), plainRequest{}, func(context.Context) (any, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("got %v, want the handler's error", err)
	}
}

// ── Timing ────────────────────────────────────────────────────────────────────

func TestTiming_RecordsFailures(t *testing.T) {
	m := metrics.New()
	tm := middleware.NewTiming(m, zap.NewNop(), time.Second)

	boom := errors.New("boom")
	_, err := tm.Handle(context.Background(), plainRequest{}, func(context.Context) (any, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want the handler's error", err)
	}

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var failures float64
	for _, fam := range families {
		if fam.GetName() != "bus_dispatch_failures_total" {
			continue
		}
		for _, metric := range fam.GetMetric() {
			failures += metric.GetCounter().GetValue()
		}
	}
	if failures != 1 {
		t.Errorf("recorded %v failures, want 1", failures)
	}
}
