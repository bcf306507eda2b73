// Package trace assigns request IDs and tracks basic request metrics.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync/atomic"
	"time"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// Metrics holds aggregate counters for the HTTP surface.
type Metrics struct {
	TotalRequests   int64
	TotalErrors     int64
	totalDurationNs int64
}

// AverageResponseTime reports the mean request duration observed so far.
func (m *Metrics) AverageResponseTime() time.Duration {
	total := atomic.LoadInt64(&m.TotalRequests)
	if total == 0 {
		return 0
	}
	return time.Duration(atomic.LoadInt64(&m.totalDurationNs) / total)
}

// Requests returns the total number of requests served.
func (m *Metrics) Requests() int64 {
	return atomic.LoadInt64(&m.TotalRequests)
}

// Errors returns the number of requests that ended in a 5xx status.
func (m *Metrics) Errors() int64 {
	return atomic.LoadInt64(&m.TotalErrors)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware tags each request with an ID, echoes it in the X-Request-ID
// response header and records duration and error counts.
func Middleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = NewRequestID()
			}
			w.Header().Set("X-Request-ID", id)

			ctx := context.WithValue(r.Context(), requestIDKey, id)
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r.WithContext(ctx))

			atomic.AddInt64(&metrics.TotalRequests, 1)
			atomic.AddInt64(&metrics.totalDurationNs, int64(time.Since(start)))
			if rec.status >= http.StatusInternalServerError {
				atomic.AddInt64(&metrics.TotalErrors, 1)
			}
		})
	}
}

// NewRequestID returns a fresh request identifier.
func NewRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "req_" + hex.EncodeToString([]byte(time.Now().Format("150405.000")))
	}
	return "req_" + hex.EncodeToString(buf)
}

// RequestID extracts the request ID from a context, or "" when absent.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
