package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Request wraps *http.Request with binding and input helpers used by
// controllers that translate transport payloads into bus commands.
type Request struct {
	raw *http.Request
}

// NewRequest wraps a standard *http.Request.
func NewRequest(r *http.Request) *Request {
	return &Request{raw: r}
}

// Raw returns the underlying *http.Request.
func (req *Request) Raw() *http.Request { return req.raw }

// ── Binding ──────────────────────────────────────────────────────────────────

// Bind decodes the request body into v.
// Supports JSON and application/x-www-form-urlencoded.
func (req *Request) Bind(v any) error {
	ct := req.ContentType()

	if strings.Contains(ct, "application/json") {
		return req.bindJSON(v)
	}
	if err := req.raw.ParseForm(); err != nil {
		return err
	}
	return bindForm(req.raw.PostForm, v)
}

func (req *Request) bindJSON(v any) error {
	defer req.raw.Body.Close()
	body, err := io.ReadAll(req.raw.Body)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return errors.New("empty request body")
	}
	return json.Unmarshal(body, v)
}

// bindForm maps form values onto a struct through a JSON round-trip, so
// the same `json:` tags serve both content types.
func bindForm(values map[string][]string, v any) error {
	m := make(map[string]any, len(values))
	for k, vals := range values {
		if len(vals) == 1 {
			m[k] = vals[0]
		} else {
			m[k] = vals
		}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// ── Input helpers ────────────────────────────────────────────────────────────

// Query returns a query-string value.
func (req *Request) Query(key string, fallback ...string) string {
	v := req.raw.URL.Query().Get(key)
	if v == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return v
}

// RouteParam returns a URL route parameter (chi).
func (req *Request) RouteParam(key string) string {
	return chi.URLParam(req.raw, key)
}

// Header returns a request header value.
func (req *Request) Header(key string) string {
	return req.raw.Header.Get(key)
}

// BearerToken extracts the token from Authorization: Bearer <token>.
func (req *Request) BearerToken() string {
	auth := req.raw.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// Method returns the HTTP method.
func (req *Request) Method() string { return req.raw.Method }

// Path returns the URL path.
func (req *Request) Path() string { return req.raw.URL.Path }

// ContentType returns the Content-Type header value.
func (req *Request) ContentType() string {
	return req.raw.Header.Get("Content-Type")
}
