// Package worker drains transaction change events into the external
// sheet export.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/sheets"
	"budget/internal/storage"
)

// TransactionSource is the slice of the storage layer the worker needs.
type TransactionSource interface {
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	GetPendingSync(ctx context.Context, limit int) ([]storage.PendingSyncTransaction, error)
	MarkSynced(ctx context.Context, id int64) error
	MarkSyncError(ctx context.Context, id int64) error
}

// SyncWorker copies ledger entries from storage to the sheet writer.
type SyncWorker struct {
	source    TransactionSource
	writer    sheets.TransactionWriter
	batchSize int
}

func NewSyncWorker(source TransactionSource, writer sheets.TransactionWriter, batchSize int) *SyncWorker {
	return &SyncWorker{
		source:    source,
		writer:    writer,
		batchSize: batchSize,
	}
}

// HandleEvent processes one change event from the queue.
func (w *SyncWorker) HandleEvent(ctx context.Context, msg *amqp.TransactionEventMessage) error {
	switch msg.Op {
	case amqp.OpSync:
		return w.syncOne(ctx, msg.ID)
	case amqp.OpDelete:
		// Deleted rows stay in the sheet as history. Nothing to do but
		// acknowledge.
		slog.InfoContext(ctx, "Transaction deleted locally, sheet row kept", "id", msg.ID)
		return nil
	default:
		slog.WarnContext(ctx, "Unknown event operation", "op", msg.Op, "id", msg.ID)
		return nil
	}
}

func (w *SyncWorker) syncOne(ctx context.Context, id int64) error {
	tx, err := w.source.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	ref, err := w.writer.Append(ctx, tx)
	if err != nil {
		if markErr := w.source.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.source.MarkSynced(ctx, id); err != nil {
		// The export itself succeeded, so the event is not retried.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Transaction synced",
		"id", id,
		"sheet_ref", ref,
		"amount_cents", tx.Amount.Cents)
	return nil
}

// ProcessPending exports transactions still marked pending. A backstop
// for lost queue messages.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.source.GetPendingSync(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, p := range pending {
		if err := w.syncOne(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to sync pending transaction", "id", p.ID, "error", err)
		}
	}
	return nil
}

// StartupSyncCheck drains the pending backlog once at worker start, with
// a larger batch to recover from downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.source.GetPendingSync(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending transactions for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending transactions on startup, processing...",
		"count", len(pending))

	synced, failed := 0, 0
	for _, p := range pending {
		if err := w.syncOne(ctx, p.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to sync during startup", "id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)
	return nil
}
