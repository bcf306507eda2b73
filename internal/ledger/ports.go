// Package ledger defines the persistence ports of the budget core. The
// engines depend only on these interfaces; SQLite and in-memory
// implementations live in internal/storage and internal/ledger/memory.
package ledger

import (
	"context"
	"errors"

	"budget/internal/core"
)

// Kind filters transactions by sign.
type Kind string

const (
	KindAny     Kind = ""
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Filter narrows a transaction query. Zero-valued fields are ignored.
type Filter struct {
	From     core.Date
	To       core.Date
	Person   string
	Category string
	Kind     Kind
}

// Matches reports whether tx passes the filter. Implementations that
// translate the filter to SQL must agree with this predicate.
func (f Filter) Matches(tx core.Transaction) bool {
	if !f.From.IsZero() && tx.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && tx.Date.After(f.To) {
		return false
	}
	if f.Person != "" && tx.Person != f.Person {
		return false
	}
	if f.Category != "" && tx.Category != f.Category {
		return false
	}
	switch f.Kind {
	case KindIncome:
		return tx.Amount.IsIncome()
	case KindExpense:
		return tx.Amount.IsExpense()
	}
	return true
}

// TransactionPatch carries the fields of a correction; nil fields are
// left untouched.
type TransactionPatch struct {
	Amount   *core.Money
	Date     *core.Date
	Category *string
	Person   *string
	Note     *string
}

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateOccurrence indicates an insert lost the test-and-set
	// race on an occurrence key. Callers treat it as "already
	// materialized", not as a failure.
	ErrDuplicateOccurrence = errors.New("duplicate occurrence key")
)

type (
	// TransactionStore owns persisted transactions. Inserts assign the
	// ID. The occurrence-key uniqueness check and the insert must be
	// effectively atomic per key so concurrent materializers cannot
	// produce duplicates.
	TransactionStore interface {
		InsertTransaction(ctx context.Context, tx core.Transaction) (int64, error)
		FindByOccurrenceKey(ctx context.Context, key string) (core.Transaction, error)
		// QueryTransactions returns a consistent snapshot ordered by
		// date, then by ID for same-day ties.
		QueryTransactions(ctx context.Context, f Filter) ([]core.Transaction, error)
		UpdateTransaction(ctx context.Context, id int64, patch TransactionPatch) error
		DeleteTransaction(ctx context.Context, id int64) error
		// DeleteGeneratedBy removes all transactions materialized from
		// the given template and returns how many were removed.
		DeleteGeneratedBy(ctx context.Context, templateID int64) (int, error)
	}

	// TemplateStore owns persisted recurrence templates.
	TemplateStore interface {
		InsertTemplate(ctx context.Context, rt core.RecurrenceTemplate) (int64, error)
		GetTemplate(ctx context.Context, id int64) (core.RecurrenceTemplate, error)
		ListTemplates(ctx context.Context) ([]core.RecurrenceTemplate, error)
		UpdateTemplate(ctx context.Context, rt core.RecurrenceTemplate) error
		DeleteTemplate(ctx context.Context, id int64) error
		// AdvanceWatermark moves LastMaterializedThrough forward.
		// Attempts to rewind are ignored, which keeps retries of old
		// batches harmless.
		AdvanceWatermark(ctx context.Context, templateID int64, through core.Date) error
	}

	// Store is the full persistence surface the core consumes.
	Store interface {
		TransactionStore
		TemplateStore
	}
)
