// Package http exposes the ledger over a JSON API: transaction and
// template CRUD, recurrence materialization, reports and snapshot
// export/import.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"budget/internal/ledger"
	applog "budget/internal/log"
	"budget/internal/middleware/ratelimit"
	"budget/internal/middleware/security"
	"budget/internal/middleware/trace"
	"budget/internal/reports"
	"budget/internal/services"
)

// Options tunes the server middleware. Zero values fall back to
// sensible defaults.
type Options struct {
	RateLimit       int
	RateLimitWindow time.Duration
}

type Server struct {
	http.Server

	ledger  *services.LedgerService
	reports *reports.Service
	mat     *services.Materializer
	store   ledger.Store

	limiter  *ratelimit.Limiter
	metrics  *trace.Metrics
	resolver *security.ClientIPResolver
	logger   *applog.Logger
	httpLog  *applog.HTTPLogger

	shutdownOnce sync.Once
}

// NewServer wires the handlers and middleware chain onto a ready-to-run
// http.Server listening on addr.
func NewServer(addr string, svc *services.LedgerService, rep *reports.Service, mat *services.Materializer, logger *applog.Logger, opts Options) *Server {
	if opts.RateLimit <= 0 {
		opts.RateLimit = 60
	}
	if opts.RateLimitWindow <= 0 {
		opts.RateLimitWindow = time.Minute
	}

	s := &Server{
		ledger:   svc,
		reports:  rep,
		mat:      mat,
		store:    svc.Store(),
		limiter:  ratelimit.NewLimiter(opts.RateLimit, opts.RateLimitWindow),
		metrics:  &trace.Metrics{},
		resolver: security.NewClientIPResolver(),
		logger:   logger.WithComponent("http"),
	}
	s.httpLog = applog.NewHTTPLogger(s.logger)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("POST /api/transactions", s.handleRecordTransaction)
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	mux.HandleFunc("PATCH /api/transactions/{id}", s.handleCorrectTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("POST /api/templates", s.handleCreateTemplate)
	mux.HandleFunc("GET /api/templates", s.handleListTemplates)
	mux.HandleFunc("GET /api/templates/{id}", s.handleGetTemplate)
	mux.HandleFunc("PUT /api/templates/{id}", s.handleUpdateTemplate)
	mux.HandleFunc("DELETE /api/templates/{id}", s.handleDeleteTemplate)
	mux.HandleFunc("POST /api/materialize", s.handleMaterialize)

	mux.HandleFunc("GET /api/reports/monthly", s.handleMonthlyReport)
	mux.HandleFunc("GET /api/reports/yearly", s.handleYearlyReport)
	mux.HandleFunc("GET /api/reports/categories", s.handleCategoryReport)
	mux.HandleFunc("GET /api/reports/people", s.handlePersonReport)
	mux.HandleFunc("GET /api/reports/balance", s.handleBalanceReport)

	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("POST /api/import", s.handleImport)

	handler := security.Headers(security.DefaultHeadersConfig())(
		trace.Middleware(s.metrics)(
			s.limiter.Middleware(s.resolver.ClientIP)(
				applog.Middleware(s.logger)(
					s.logRequests(mux)))))

	s.Server = http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := s.resolver.ClientIP(r)
		s.httpLog.LogStart(r.Context(), r, clientIP)

		rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.httpLog.LogEnd(r.Context(), r, rec.status, time.Since(start).Milliseconds(), clientIP)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Shutdown stops the limiter sweep and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.store.QueryTransactions(r.Context(), ledger.Filter{From: todayDate(), To: todayDate()}); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	cacheStats := s.reports.CacheStats()
	writeJSON(w, http.StatusOK, map[string]any{
		"requests_total":     s.metrics.Requests(),
		"errors_total":       s.metrics.Errors(),
		"avg_response_ms":    s.metrics.AverageResponseTime().Milliseconds(),
		"ratelimit_clients":  s.limiter.ActiveClients(),
		"ratelimit_rejected": s.limiter.Rejected(),
		"report_cache_hits":  cacheStats.Hits,
		"report_cache_miss":  cacheStats.Misses,
	})
}
