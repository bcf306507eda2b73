package reports

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"budget/internal/cache"
	"budget/internal/core"
	"budget/internal/ledger"
)

// Service serves report queries over the store with a small LRU cache in
// front. Any ledger write invalidates the whole cache.
type Service struct {
	store   ledger.TransactionStore
	monthly *cache.LRUCache[MonthlyReport]
	yearly  *cache.LRUCache[YearlyReport]
	flat    *cache.LRUCache[CategoryReport]
	people  *cache.LRUCache[PersonReport]
}

func NewService(store ledger.TransactionStore, ttl time.Duration) *Service {
	return &Service{
		store:   store,
		monthly: cache.NewLRUCache[MonthlyReport](48, ttl),
		yearly:  cache.NewLRUCache[YearlyReport](8, ttl),
		flat:    cache.NewLRUCache[CategoryReport](4, ttl),
		people:  cache.NewLRUCache[PersonReport](4, ttl),
	}
}

// RegisterCaches adds the service caches to the manager for periodic
// expiry cleanup.
func (s *Service) RegisterCaches(m *cache.Manager) {
	m.Register(s.monthly)
	m.Register(s.yearly)
	m.Register(s.flat)
	m.Register(s.people)
}

// CacheStats aggregates hit and miss counts across all report caches.
func (s *Service) CacheStats() cache.Stats {
	var total cache.Stats
	for _, st := range []cache.Stats{
		s.monthly.Stats(), s.yearly.Stats(), s.flat.Stats(), s.people.Stats(),
	} {
		total.Hits += st.Hits
		total.Misses += st.Misses
	}
	return total
}

// Invalidate drops every cached report. Called after any ledger write.
func (s *Service) Invalidate() {
	s.monthly.Clear()
	s.yearly.Clear()
	s.flat.Clear()
	s.people.Clear()
}

func (s *Service) history(ctx context.Context, f ledger.Filter) ([]core.Transaction, error) {
	txs, err := s.store.QueryTransactions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return txs, nil
}

// filterKey derives a cache key from the filter fields. Zero fields
// render empty, so the unfiltered key stays stable.
func filterKey(f ledger.Filter) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", f.From, f.To, f.Person, f.Category, f.Kind)
}

func (s *Service) Monthly(ctx context.Context, year, month int) (MonthlyReport, error) {
	key := fmt.Sprintf("%04d-%02d", year, month)
	if report, ok := s.monthly.Get(key); ok {
		return report, nil
	}

	history, err := s.history(ctx, ledger.Filter{})
	if err != nil {
		return MonthlyReport{}, err
	}
	report := BuildMonthlyReport(history, year, month)
	s.monthly.Set(key, report)
	slog.DebugContext(ctx, "Monthly report built", "year", year, "month", month, "transactions", report.Count)
	return report, nil
}

func (s *Service) Yearly(ctx context.Context, year int) (YearlyReport, error) {
	key := fmt.Sprintf("%04d", year)
	if report, ok := s.yearly.Get(key); ok {
		return report, nil
	}

	history, err := s.history(ctx, ledger.Filter{})
	if err != nil {
		return YearlyReport{}, err
	}
	report := BuildYearlyReport(history, year)
	s.yearly.Set(key, report)
	return report, nil
}

// Categories builds the category report over the filtered slice of
// history. Each distinct filter caches independently.
func (s *Service) Categories(ctx context.Context, f ledger.Filter) (CategoryReport, error) {
	key := filterKey(f)
	if report, ok := s.flat.Get(key); ok {
		return report, nil
	}

	history, err := s.history(ctx, f)
	if err != nil {
		return CategoryReport{}, err
	}
	report := BuildCategoryReport(history)
	s.flat.Set(key, report)
	return report, nil
}

// People builds the per-person report over the filtered slice of
// history.
func (s *Service) People(ctx context.Context, f ledger.Filter) (PersonReport, error) {
	key := filterKey(f)
	if report, ok := s.people.Get(key); ok {
		return report, nil
	}

	history, err := s.history(ctx, f)
	if err != nil {
		return PersonReport{}, err
	}
	report := BuildPersonReport(history)
	s.people.Set(key, report)
	return report, nil
}

// Balance returns the running balance over [from, to], including the
// opening balance accumulated before from. The store query keeps the
// pre-from history so the opening fold sees it. Balance results are not
// cached.
func (s *Service) Balance(ctx context.Context, from, to core.Date, person string) ([]BalancePoint, error) {
	history, err := s.history(ctx, ledger.Filter{To: to, Person: person})
	if err != nil {
		return nil, err
	}
	return RunningBalance(history, from, to, person), nil
}
