package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	metrics := &Metrics{}
	var seen string
	h := Middleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if seen == "" {
		t.Fatal("handler saw no request ID")
	}
	if !strings.HasPrefix(seen, "req_") {
		t.Errorf("request ID = %q, want req_ prefix", seen)
	}
	if got := rec.Header().Get("X-Request-ID"); got != seen {
		t.Errorf("response header ID = %q, want %q", got, seen)
	}
}

func TestMiddlewarePreservesIncomingID(t *testing.T) {
	metrics := &Metrics{}
	h := Middleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := RequestID(r.Context()); got != "req_upstream" {
			t.Errorf("request ID = %q, want req_upstream", got)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req_upstream")
	h.ServeHTTP(httptest.NewRecorder(), req)
}

func TestMiddlewareCountsErrors(t *testing.T) {
	metrics := &Metrics{}
	h := Middleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}

	if got := metrics.Requests(); got != 3 {
		t.Errorf("Requests() = %d, want 3", got)
	}
	if got := metrics.Errors(); got != 3 {
		t.Errorf("Errors() = %d, want 3", got)
	}
	if metrics.AverageResponseTime() < 0 {
		t.Error("average response time should not be negative")
	}
}

func TestNewRequestIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewRequestID()
		if seen[id] {
			t.Fatalf("duplicate request ID %q", id)
		}
		seen[id] = true
	}
}

func TestRequestIDMissing(t *testing.T) {
	if got := RequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()); got != "" {
		t.Errorf("RequestID on bare context = %q, want empty", got)
	}
}
