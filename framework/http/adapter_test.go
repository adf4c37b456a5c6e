package http_test

import (
	"context"
	"encoding/json"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/km-arc/go-mediator/framework/bus"
	"github.com/km-arc/go-mediator/framework/bus/middleware"
	"github.com/km-arc/go-mediator/framework/container"
	gohttp "github.com/km-arc/go-mediator/framework/http"
	"github.com/km-arc/go-mediator/framework/validation"
)

// ── ScopeMiddleware ───────────────────────────────────────────────────────────

func TestScopeMiddleware_ScopePerRequestClosedAfterwards(t *testing.T) {
	c := container.New()
	var seen []*container.Scope

	handler := gohttp.ScopeMiddleware(c, zap.NewNop())(
		nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			scope := gohttp.ScopeFrom(r.Context())
			if scope == nil {
				t.Fatal("handler should see the request scope")
			}
			if scope.Closed() {
				t.Error("scope must be open while the handler runs")
			}
			seen = append(seen, scope)
		}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		if rec.Header().Get("X-Request-ID") == "" {
			t.Error("every response should carry a request id")
		}
	}

	if len(seen) != 2 || seen[0] == seen[1] {
		t.Fatal("each request should get its own scope")
	}
	for i, scope := range seen {
		if !scope.Closed() {
			t.Errorf("scope %d should be closed once the request finished", i)
		}
	}
}

func TestScopeMiddleware_ScopeClosedEvenWhenHandlerPanicsDownstream(t *testing.T) {
	c := container.New()
	var scope *container.Scope

	handler := gohttp.ScopeMiddleware(c, zap.NewNop())(
		nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			scope = gohttp.ScopeFrom(r.Context())
			panic("downstream failure")
		}))

	func() {
		defer func() { recover() }()
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	}()

	if scope == nil || !scope.Closed() {
		t.Error("scope must be closed on the panic exit path too")
	}
}

// ── Dispatch ──────────────────────────────────────────────────────────────────

type lookupThing struct {
	ID string
}

func testBus(t *testing.T, c *container.Container, handler bus.Handler) *bus.Bus {
	t.Helper()
	c.Scoped("handler.lookupThing", func(container.Resolver) (any, error) {
		return handler, nil
	})
	builder := bus.NewBuilder()
	bus.Handle[lookupThing, map[string]string](builder, "handler.lookupThing")
	b, err := builder.Build(c)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return b
}

func TestDispatch_WritesHandlerResultAsJSON(t *testing.T) {
	c := container.New()
	b := testBus(t, c, bus.HandlerOf(func(_ context.Context, q lookupThing) (map[string]string, error) {
		return map[string]string{"id": q.ID}, nil
	}))

	handler := gohttp.ScopeMiddleware(c, zap.NewNop())(
		nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			gohttp.Dispatch(b, w, r, lookupThing{ID: "42"}, nethttp.StatusOK)
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/things/42", nil))

	if rec.Code != nethttp.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data["id"] != "42" {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestDispatch_WithoutScopeMiddlewareIsServerError(t *testing.T) {
	c := container.New()
	b := testBus(t, c, bus.HandlerOf(func(context.Context, lookupThing) (map[string]string, error) {
		return nil, nil
	}))

	rec := httptest.NewRecorder()
	gohttp.Dispatch(b, rec, httptest.NewRequest("GET", "/", nil), lookupThing{}, nethttp.StatusOK)

	if rec.Code != nethttp.StatusInternalServerError {
		t.Errorf("status = %d, want 500 without a request scope", rec.Code)
	}
}

// ── WriteError ────────────────────────────────────────────────────────────────

func TestWriteError_Taxonomy(t *testing.T) {
	bag := validation.Make(map[string]string{"name": ""}, validation.Rules{
		"name": "required",
	}).Err()

	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", bag, nethttp.StatusUnprocessableEntity},
		{"throttled", middleware.ErrRateLimited, nethttp.StatusTooManyRequests},
		{"deadline", context.DeadlineExceeded, nethttp.StatusGatewayTimeout},
		{"canceled", context.Canceled, nethttp.StatusGatewayTimeout},
		{"no handler", bus.ErrHandlerNotFound, nethttp.StatusInternalServerError},
		{"not bound", container.ErrNotBound, nethttp.StatusInternalServerError},
		{"cycle", container.ErrCircularDependency, nethttp.StatusInternalServerError},
		{"no scope", container.ErrNoActiveScope, nethttp.StatusInternalServerError},
		{"dead scope", container.ErrScopeClosed, nethttp.StatusInternalServerError},
		{"business", errors.New("balance too low"), nethttp.StatusBadRequest},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		gohttp.WriteError(rec, tc.err)
		if rec.Code != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.name, rec.Code, tc.status)
		}
	}
}

func TestWriteError_ValidationBodyIsStandardBag(t *testing.T) {
	err := validation.Make(map[string]string{"email": "nope"}, validation.Rules{
		"email": "email",
	}).Err()

	rec := httptest.NewRecorder()
	gohttp.WriteError(rec, err)

	if !strings.Contains(rec.Body.String(), `"errors"`) {
		t.Errorf("body = %s, want the {\"errors\": ...} bag", rec.Body.String())
	}
}

// ── Request binding ───────────────────────────────────────────────────────────

func TestRequestBind_JSONAndForm(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	jsonReq := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"Ada"}`))
	jsonReq.Header.Set("Content-Type", "application/json")
	var fromJSON payload
	if err := gohttp.NewRequest(jsonReq).Bind(&fromJSON); err != nil {
		t.Fatalf("bind json: %v", err)
	}
	if fromJSON.Name != "Ada" {
		t.Errorf("json bind = %+v", fromJSON)
	}

	formReq := httptest.NewRequest("POST", "/", strings.NewReader("name=Grace"))
	formReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	var fromForm payload
	if err := gohttp.NewRequest(formReq).Bind(&fromForm); err != nil {
		t.Fatalf("bind form: %v", err)
	}
	if fromForm.Name != "Grace" {
		t.Errorf("form bind = %+v", fromForm)
	}
}

func TestRequestHelpers(t *testing.T) {
	r := httptest.NewRequest("GET", "/things?page=2", nil)
	r.Header.Set("Authorization", "Bearer tok123")

	req := gohttp.NewRequest(r)
	if req.Query("page") != "2" || req.Query("missing", "1") != "1" {
		t.Error("query helpers misbehaved")
	}
	if req.BearerToken() != "tok123" {
		t.Errorf("bearer = %q", req.BearerToken())
	}
	if req.Method() != "GET" || req.Path() != "/things" {
		t.Error("method/path helpers misbehaved")
	}
}
