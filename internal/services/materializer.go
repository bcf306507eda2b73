package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budget/internal/core"
	"budget/internal/ledger"
)

// Materializer turns due recurrence occurrences into persisted ledger
// transactions. It is safe to invoke repeatedly (on startup, on a timer,
// after failures): occurrence keys make every insert idempotent, and the
// per-template watermark only advances after a fully successful batch.
type Materializer struct {
	store ledger.Store
}

// NewMaterializer creates a materializer over the given store.
func NewMaterializer(store ledger.Store) *Materializer {
	return &Materializer{store: store}
}

// Result summarizes one materialization run.
type Result struct {
	TemplatesChecked int
	Created          int
	Skipped          int // occurrences already present
}

// ProcessDueTemplates materializes every active template up to asOf.
// A failure in one template aborts that template's batch (its watermark
// stays put) but does not stop the others; all failures are joined into
// the returned error.
func (m *Materializer) ProcessDueTemplates(ctx context.Context, asOf core.Date) (Result, error) {
	templates, err := m.store.ListTemplates(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list templates: %w", err)
	}

	slog.InfoContext(ctx, "Materializing recurring transactions",
		"templates", len(templates),
		"as_of", asOf.String())

	var res Result
	var failures []error
	for _, rt := range templates {
		if !rt.Active(asOf) {
			continue
		}
		res.TemplatesChecked++

		created, skipped, err := m.MaterializeTemplate(ctx, rt, asOf)
		res.Created += created
		res.Skipped += skipped
		if err != nil {
			slog.ErrorContext(ctx, "Materialization batch aborted",
				"template_id", rt.ID,
				"created_before_abort", created,
				"error", err)
			failures = append(failures, fmt.Errorf("template %d: %w", rt.ID, err))
			continue
		}
	}

	slog.InfoContext(ctx, "Materialization run complete",
		"templates_checked", res.TemplatesChecked,
		"created", res.Created,
		"skipped", res.Skipped,
		"failures", len(failures))

	return res, errors.Join(failures...)
}

// MaterializeTemplate expands one template up to asOf and inserts every
// missing occurrence. The watermark advances to the last due date only
// after the whole batch persisted; on an insert failure the batch aborts
// and already-inserted occurrences stay, so a retry resumes cleanly.
func (m *Materializer) MaterializeTemplate(ctx context.Context, rt core.RecurrenceTemplate, asOf core.Date) (created, skipped int, err error) {
	due, err := ExpandDue(rt, asOf)
	if err != nil {
		return 0, 0, err
	}
	if len(due) == 0 {
		return 0, 0, nil
	}

	for _, d := range due {
		key := core.OccurrenceKey(rt.ID, d)

		_, findErr := m.store.FindByOccurrenceKey(ctx, key)
		switch {
		case findErr == nil:
			skipped++
			continue
		case !errors.Is(findErr, ledger.ErrNotFound):
			return created, skipped, fmt.Errorf("lookup occurrence %s: %w", key, findErr)
		}

		tx := core.Transaction{
			Amount:             rt.Amount,
			Date:               d,
			Category:           rt.Category,
			Person:             rt.Person,
			Note:               rt.Note,
			SourceRecurrenceID: rt.ID,
			OccurrenceKey:      key,
		}
		if _, insErr := m.store.InsertTransaction(ctx, tx); insErr != nil {
			if errors.Is(insErr, ledger.ErrDuplicateOccurrence) {
				// Lost the test-and-set race to a concurrent run;
				// the occurrence exists, which is all we need.
				skipped++
				continue
			}
			return created, skipped, fmt.Errorf("insert occurrence %s: %w", key, insErr)
		}
		created++

		slog.InfoContext(ctx, "Materialized recurring transaction",
			"template_id", rt.ID,
			"occurrence_key", key,
			"amount_cents", rt.Amount.Cents,
			"person", rt.Person)
	}

	last := due[len(due)-1]
	if err := m.store.AdvanceWatermark(ctx, rt.ID, last); err != nil {
		return created, skipped, fmt.Errorf("advance watermark to %s: %w", last, err)
	}
	return created, skipped, nil
}
