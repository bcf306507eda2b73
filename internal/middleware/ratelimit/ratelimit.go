// Package ratelimit provides a fixed-window per-client request limiter.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// Limiter caps the number of requests a single client may make per window.
type Limiter struct {
	mu       sync.Mutex
	clients  map[string]*window
	limit    int
	interval time.Duration
	rejected int64

	stopOnce sync.Once
	stop     chan struct{}
}

// NewLimiter starts a limiter allowing limit requests per interval for each
// client key. A background sweep drops windows that have been idle for a
// while so the client map does not grow without bound.
func NewLimiter(limit int, interval time.Duration) *Limiter {
	l := &Limiter{
		clients:  make(map[string]*window),
		limit:    limit,
		interval: interval,
		stop:     make(chan struct{}),
	}
	go l.sweep()
	return l
}

// Allow reports whether the client identified by key may proceed.
func (l *Limiter) Allow(key string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.clients[key]
	if !ok || now.After(w.resetAt) {
		l.clients[key] = &window{count: 1, resetAt: now.Add(l.interval)}
		return true
	}
	if w.count >= l.limit {
		atomic.AddInt64(&l.rejected, 1)
		return false
	}
	w.count++
	return true
}

// RetryAfter returns how long the client should wait before retrying.
func (l *Limiter) RetryAfter(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.clients[key]
	if !ok {
		return 0
	}
	d := time.Until(w.resetAt)
	if d < 0 {
		return 0
	}
	return d
}

// ActiveClients returns the number of clients with a live window.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Rejected returns the total number of requests turned away.
func (l *Limiter) Rejected() int64 {
	return atomic.LoadInt64(&l.rejected)
}

// Stop terminates the background sweep. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-2 * l.interval)
			l.mu.Lock()
			for key, w := range l.clients {
				if w.resetAt.Before(cutoff) {
					delete(l.clients, key)
				}
			}
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}

// Middleware rejects over-limit requests with 429 and a Retry-After header.
// keyFn derives the client key from the request, typically its IP address.
func (l *Limiter) Middleware(keyFn func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			if !l.Allow(key) {
				retry := int(l.RetryAfter(key).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
