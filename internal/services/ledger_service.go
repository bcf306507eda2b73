package services

import (
	"context"
	"fmt"
	"log/slog"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/ledger"
)

// LedgerService is the command layer over the store: it validates input,
// writes through the ledger.Store, and publishes change events for the
// sync worker. Event publishing is best-effort and never fails a write
// that already persisted locally.
type LedgerService struct {
	store  ledger.Store
	events *amqp.Client
}

func NewLedgerService(store ledger.Store, events *amqp.Client) *LedgerService {
	return &LedgerService{store: store, events: events}
}

// Store exposes the underlying store for read-only collaborators such as
// the report service and the export codec.
func (s *LedgerService) Store() ledger.Store {
	return s.store
}

// RecordTransaction validates and persists a manual ledger entry.
func (s *LedgerService) RecordTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	// Manual entries never carry recurrence provenance.
	tx.SourceRecurrenceID = 0
	tx.OccurrenceKey = ""

	if err := tx.Validate(); err != nil {
		return 0, fmt.Errorf("validate transaction: %w", err)
	}

	id, err := s.store.InsertTransaction(ctx, tx)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"id", id,
		"amount_cents", tx.Amount.Cents,
		"category", tx.Category,
		"person", tx.Person,
		"date", tx.Date.String())

	s.publishSync(ctx, id)
	return id, nil
}

// CorrectTransaction applies an explicit correction to a recorded entry.
// Patched fields are validated with the same rules as new entries.
func (s *LedgerService) CorrectTransaction(ctx context.Context, id int64, patch ledger.TransactionPatch) error {
	if patch.Amount != nil {
		if err := patch.Amount.Validate(); err != nil {
			return fmt.Errorf("validate correction: %w", err)
		}
	}
	if patch.Date != nil {
		if patch.Date.Before(core.MinTransactionDate) || patch.Date.After(core.MaxTransactionDate) {
			return fmt.Errorf("validate correction: %w", core.ErrDateOutOfRange)
		}
	}
	if patch.Category != nil && *patch.Category == "" {
		return fmt.Errorf("validate correction: %w", core.ErrEmptyCategory)
	}
	if patch.Person != nil && *patch.Person == "" {
		return fmt.Errorf("validate correction: %w", core.ErrEmptyPerson)
	}

	if err := s.store.UpdateTransaction(ctx, id, patch); err != nil {
		return fmt.Errorf("update transaction %d: %w", id, err)
	}
	s.publishSync(ctx, id)
	return nil
}

// DeleteTransaction removes a single ledger entry.
func (s *LedgerService) DeleteTransaction(ctx context.Context, id int64) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	s.publishDelete(ctx, id)
	return nil
}

// CreateTemplate validates and persists a recurrence template. Schedule
// inconsistencies are rejected here and never reach expansion.
func (s *LedgerService) CreateTemplate(ctx context.Context, rt core.RecurrenceTemplate) (int64, error) {
	rt.LastMaterializedThrough = core.Date{}
	if err := rt.Validate(); err != nil {
		return 0, fmt.Errorf("validate template: %w", err)
	}

	id, err := s.store.InsertTemplate(ctx, rt)
	if err != nil {
		return 0, fmt.Errorf("insert template: %w", err)
	}

	slog.InfoContext(ctx, "Recurrence template created",
		"id", id,
		"frequency", rt.Frequency,
		"interval", rt.Interval,
		"start_date", rt.StartDate.String())
	return id, nil
}

// UpdateTemplateSchedule replaces the editable fields of a template.
// The watermark is preserved from the stored record: already-generated
// transactions are immutable history, and a schedule edit never causes
// regeneration of past occurrences.
func (s *LedgerService) UpdateTemplateSchedule(ctx context.Context, rt core.RecurrenceTemplate) error {
	existing, err := s.store.GetTemplate(ctx, rt.ID)
	if err != nil {
		return fmt.Errorf("get template %d: %w", rt.ID, err)
	}
	rt.LastMaterializedThrough = existing.LastMaterializedThrough

	if err := rt.Validate(); err != nil {
		return fmt.Errorf("validate template: %w", err)
	}
	if err := s.store.UpdateTemplate(ctx, rt); err != nil {
		return fmt.Errorf("update template %d: %w", rt.ID, err)
	}
	return nil
}

// DeleteTemplate removes a template. With cascade=false the generated
// transactions stay in the ledger as ordinary history; with cascade=true
// they are removed too. Returns how many transactions were cascaded.
func (s *LedgerService) DeleteTemplate(ctx context.Context, id int64, cascade bool) (int, error) {
	removed := 0
	if cascade {
		n, err := s.store.DeleteGeneratedBy(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("cascade delete for template %d: %w", id, err)
		}
		removed = n
	}
	if err := s.store.DeleteTemplate(ctx, id); err != nil {
		return removed, fmt.Errorf("delete template %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Recurrence template deleted",
		"id", id,
		"cascade", cascade,
		"transactions_removed", removed)
	return removed, nil
}

func (s *LedgerService) publishSync(ctx context.Context, id int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionSync(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync event", "id", id, "error", err)
	}
}

func (s *LedgerService) publishDelete(ctx context.Context, id int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionDelete(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete event", "id", id, "error", err)
	}
}

// Close releases the event channel, if any. The store is owned by the
// caller and closed separately.
func (s *LedgerService) Close() error {
	if s.events != nil {
		return s.events.Close()
	}
	return nil
}
