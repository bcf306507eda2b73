// Package memory provides the in-memory reference implementation of
// ledger.Store. It backs tests and the zero-setup "memory" backend, and
// documents the semantics the SQLite store must match: store-assigned
// IDs, per-key test-and-set on occurrence keys, and monotonic watermark
// advances.
package memory

import (
	"context"
	"sort"
	"sync"

	"budget/internal/core"
	"budget/internal/ledger"
)

type Store struct {
	mu sync.Mutex

	nextTxID  int64
	nextTplID int64

	transactions map[int64]core.Transaction
	templates    map[int64]core.RecurrenceTemplate
	// byOccurrence indexes non-empty occurrence keys for the
	// test-and-set insert path.
	byOccurrence map[string]int64
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		nextTxID:     1,
		nextTplID:    1,
		transactions: make(map[int64]core.Transaction),
		templates:    make(map[int64]core.RecurrenceTemplate),
		byOccurrence: make(map[string]int64),
	}
}

func (s *Store) InsertTransaction(_ context.Context, tx core.Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.OccurrenceKey != "" {
		if _, exists := s.byOccurrence[tx.OccurrenceKey]; exists {
			return 0, ledger.ErrDuplicateOccurrence
		}
	}

	tx.ID = s.nextTxID
	s.nextTxID++
	s.transactions[tx.ID] = tx
	if tx.OccurrenceKey != "" {
		s.byOccurrence[tx.OccurrenceKey] = tx.ID
	}
	return tx.ID, nil
}

func (s *Store) FindByOccurrenceKey(_ context.Context, key string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byOccurrence[key]
	if !ok {
		return core.Transaction{}, ledger.ErrNotFound
	}
	return s.transactions[id], nil
}

func (s *Store) QueryTransactions(_ context.Context, f ledger.Filter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		if f.Matches(tx) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateTransaction(_ context.Context, id int64, patch ledger.TransactionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return ledger.ErrNotFound
	}
	if patch.Amount != nil {
		tx.Amount = *patch.Amount
	}
	if patch.Date != nil {
		tx.Date = *patch.Date
	}
	if patch.Category != nil {
		tx.Category = *patch.Category
	}
	if patch.Person != nil {
		tx.Person = *patch.Person
	}
	if patch.Note != nil {
		tx.Note = *patch.Note
	}
	s.transactions[id] = tx
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[id]
	if !ok {
		return ledger.ErrNotFound
	}
	delete(s.transactions, id)
	if tx.OccurrenceKey != "" {
		delete(s.byOccurrence, tx.OccurrenceKey)
	}
	return nil
}

func (s *Store) DeleteGeneratedBy(_ context.Context, templateID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, tx := range s.transactions {
		if tx.SourceRecurrenceID != templateID {
			continue
		}
		delete(s.transactions, id)
		if tx.OccurrenceKey != "" {
			delete(s.byOccurrence, tx.OccurrenceKey)
		}
		removed++
	}
	return removed, nil
}

func (s *Store) InsertTemplate(_ context.Context, rt core.RecurrenceTemplate) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt.ID = s.nextTplID
	s.nextTplID++
	s.templates[rt.ID] = rt
	return rt.ID, nil
}

func (s *Store) GetTemplate(_ context.Context, id int64) (core.RecurrenceTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.templates[id]
	if !ok {
		return core.RecurrenceTemplate{}, ledger.ErrNotFound
	}
	return rt, nil
}

func (s *Store) ListTemplates(_ context.Context) ([]core.RecurrenceTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.RecurrenceTemplate, 0, len(s.templates))
	for _, rt := range s.templates {
		out = append(out, rt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateTemplate(_ context.Context, rt core.RecurrenceTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[rt.ID]; !ok {
		return ledger.ErrNotFound
	}
	s.templates[rt.ID] = rt
	return nil
}

func (s *Store) DeleteTemplate(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[id]; !ok {
		return ledger.ErrNotFound
	}
	delete(s.templates, id)
	return nil
}

func (s *Store) AdvanceWatermark(_ context.Context, templateID int64, through core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.templates[templateID]
	if !ok {
		return ledger.ErrNotFound
	}
	// Never rewind.
	if rt.LastMaterializedThrough.IsZero() || through.After(rt.LastMaterializedThrough) {
		rt.LastMaterializedThrough = through
		s.templates[templateID] = rt
	}
	return nil
}
