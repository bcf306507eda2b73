package core

import (
	"errors"
	"fmt"
	"strings"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// Transactions dated outside this window are rejected as implausible.
var (
	MinTransactionDate = NewDate(1900, 1, 1)
	MaxTransactionDate = NewDate(2200, 12, 31)
)

type (
	// Frequency is the base period of a recurrence schedule. Combined
	// with an interval multiplier it covers compound schedules such as
	// bi-weekly (weekly with interval 2).
	Frequency string

	// Transaction is a single ledger entry. Once recorded it is
	// immutable except for explicit correction. Amounts are signed:
	// positive income, negative expense.
	Transaction struct {
		ID       int64
		Amount   Money
		Date     Date
		Category string
		Person   string
		Note     string

		// SourceRecurrenceID links a generated entry back to its
		// template; zero for manually entered transactions.
		SourceRecurrenceID int64
		// OccurrenceKey deduplicates recurrence materialization;
		// empty for manual transactions, unique otherwise.
		OccurrenceKey string
	}

	// RecurrenceTemplate describes a repeating transaction. The engine
	// copies Amount, Category, Person and Note into every generated
	// Transaction.
	RecurrenceTemplate struct {
		ID       int64
		Amount   Money
		Category string
		Person   string
		Note     string

		Frequency Frequency
		Interval  int
		StartDate Date
		// EndDate is the last possible occurrence; zero means
		// indefinite.
		EndDate Date
		// LastMaterializedThrough is the watermark: the latest date
		// up to which occurrences have been generated. It advances
		// monotonically and only after a fully successful
		// materialization batch. Zero means never materialized.
		LastMaterializedThrough Date
	}
)

// Validation errors.
var (
	ErrZeroAmount     = errors.New("amount of zero")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrEmptyCategory  = errors.New("empty category")
	ErrEmptyPerson    = errors.New("missing person identifier")
	ErrDateOutOfRange = errors.New("date outside plausible range")
	ErrNoteTooLong    = errors.New("note too long (max 500 characters)")
)

// Schedule errors. Inconsistent templates are rejected at create/edit
// time and never reach expansion.
var (
	ErrEndBeforeStart   = errors.New("end date before start date")
	ErrBadInterval      = errors.New("interval must be at least 1")
	ErrUnknownFrequency = errors.New("unknown frequency")
)

// IsValid reports whether f is one of the supported frequencies.
func (f Frequency) IsValid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// OccurrenceKey builds the deterministic key identifying one occurrence
// of a template: the same (template, due date) pair always maps to the
// same key, which is what makes materialization idempotent.
func OccurrenceKey(templateID int64, due Date) string {
	return fmt.Sprintf("%d@%s", templateID, due.String())
}

func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.Date.Before(MinTransactionDate) || t.Date.After(MaxTransactionDate) {
		return fmt.Errorf("%w: %s", ErrDateOutOfRange, t.Date)
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(t.Person) == "" {
		return ErrEmptyPerson
	}
	if len(t.Note) > 500 {
		return ErrNoteTooLong
	}
	return nil
}

// IsGenerated reports whether the transaction was materialized from a
// recurrence template.
func (t Transaction) IsGenerated() bool {
	return t.OccurrenceKey != ""
}

func (rt RecurrenceTemplate) Validate() error {
	if err := rt.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(rt.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(rt.Person) == "" {
		return ErrEmptyPerson
	}
	if len(rt.Note) > 500 {
		return ErrNoteTooLong
	}
	if !rt.Frequency.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownFrequency, rt.Frequency)
	}
	if rt.Interval < 1 {
		return ErrBadInterval
	}
	if err := rt.StartDate.Validate(); err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	if !rt.EndDate.IsZero() && rt.EndDate.Before(rt.StartDate) {
		return ErrEndBeforeStart
	}
	return nil
}

// Active reports whether the template can still produce occurrences on
// or before asOf.
func (rt RecurrenceTemplate) Active(asOf Date) bool {
	if rt.StartDate.After(asOf) {
		return false
	}
	if !rt.EndDate.IsZero() && !rt.LastMaterializedThrough.IsZero() &&
		!rt.LastMaterializedThrough.Before(rt.EndDate) {
		return false
	}
	return true
}
