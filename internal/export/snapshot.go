// Package export moves ledger data in and out as JSON snapshots.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"budget/internal/core"
	"budget/internal/ledger"
)

// ImportMode selects how a snapshot meets existing data.
type ImportMode string

const (
	// ModeMerge keeps existing records and adds snapshot records that
	// are not already present.
	ModeMerge ImportMode = "merge"
	// ModeReplace drops all existing records first.
	ModeReplace ImportMode = "replace"
)

var ErrUnknownMode = fmt.Errorf("unknown import mode")

// transactionRecord is the wire form of a ledger entry.
type transactionRecord struct {
	Amount        string `json:"amount"`
	Date          string `json:"date"`
	Category      string `json:"category"`
	Person        string `json:"person"`
	Note          string `json:"note,omitempty"`
	TemplateRef   int64  `json:"template_ref,omitempty"`
	OccurrenceKey string `json:"occurrence_key,omitempty"`
}

// templateRecord is the wire form of a recurrence template.
type templateRecord struct {
	Ref                 int64  `json:"ref"`
	Amount              string `json:"amount"`
	Category            string `json:"category"`
	Person              string `json:"person"`
	Note                string `json:"note,omitempty"`
	Frequency           string `json:"frequency"`
	Interval            int    `json:"interval"`
	StartDate           string `json:"start_date"`
	EndDate             string `json:"end_date,omitempty"`
	MaterializedThrough string `json:"materialized_through,omitempty"`
}

// Snapshot is the envelope written to disk.
type Snapshot struct {
	Version      int                 `json:"version"`
	Transactions []transactionRecord `json:"transactions"`
	Templates    []templateRecord    `json:"templates"`
}

const snapshotVersion = 1

// Write serializes the whole store to w.
func Write(ctx context.Context, store ledger.Store, w io.Writer) error {
	txs, err := store.QueryTransactions(ctx, ledger.Filter{})
	if err != nil {
		return fmt.Errorf("query transactions: %w", err)
	}
	templates, err := store.ListTemplates(ctx)
	if err != nil {
		return fmt.Errorf("list templates: %w", err)
	}

	snap := Snapshot{Version: snapshotVersion}
	for _, tx := range txs {
		snap.Transactions = append(snap.Transactions, transactionRecord{
			Amount:        tx.Amount.String(),
			Date:          tx.Date.String(),
			Category:      tx.Category,
			Person:        tx.Person,
			Note:          tx.Note,
			TemplateRef:   tx.SourceRecurrenceID,
			OccurrenceKey: tx.OccurrenceKey,
		})
	}
	for _, rt := range templates {
		snap.Templates = append(snap.Templates, templateRecord{
			Ref:                 rt.ID,
			Amount:              rt.Amount.String(),
			Category:            rt.Category,
			Person:              rt.Person,
			Note:                rt.Note,
			Frequency:           string(rt.Frequency),
			Interval:            rt.Interval,
			StartDate:           rt.StartDate.String(),
			EndDate:             rt.EndDate.String(),
			MaterializedThrough: rt.LastMaterializedThrough.String(),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot written",
		"transactions", len(snap.Transactions),
		"templates", len(snap.Templates))
	return nil
}

// ImportResult reports what an import did.
type ImportResult struct {
	Transactions int
	Templates    int
	Skipped      int
}

// Read loads a snapshot from r into the store. In merge mode generated
// entries are matched by occurrence key and manual entries by their full
// natural key, so importing the same snapshot twice adds nothing. In
// replace mode existing templates and transactions are removed first.
func Read(ctx context.Context, store ledger.Store, r io.Reader, mode ImportMode) (ImportResult, error) {
	switch mode {
	case ModeMerge, ModeReplace:
	default:
		return ImportResult{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return ImportResult{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return ImportResult{}, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}

	if mode == ModeReplace {
		if err := clear(ctx, store); err != nil {
			return ImportResult{}, err
		}
	}

	existing, err := store.QueryTransactions(ctx, ledger.Filter{})
	if err != nil {
		return ImportResult{}, fmt.Errorf("query existing: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, tx := range existing {
		seen[naturalKey(tx)] = true
	}

	existingTemplates, err := store.ListTemplates(ctx)
	if err != nil {
		return ImportResult{}, fmt.Errorf("list existing templates: %w", err)
	}
	knownTemplates := make(map[string]int64, len(existingTemplates))
	for _, rt := range existingTemplates {
		knownTemplates[templateKey(rt)] = rt.ID
	}

	var res ImportResult

	// Templates first so transactions can reference their new IDs.
	templateIDs := make(map[int64]int64, len(snap.Templates))
	for _, tr := range snap.Templates {
		rt, err := decodeTemplate(tr)
		if err != nil {
			return res, fmt.Errorf("template ref %d: %w", tr.Ref, err)
		}
		if id, ok := knownTemplates[templateKey(rt)]; ok {
			templateIDs[tr.Ref] = id
			res.Skipped++
			continue
		}
		id, err := store.InsertTemplate(ctx, rt)
		if err != nil {
			return res, fmt.Errorf("insert template ref %d: %w", tr.Ref, err)
		}
		if !rt.LastMaterializedThrough.IsEmpty() {
			if err := store.AdvanceWatermark(ctx, id, rt.LastMaterializedThrough); err != nil {
				return res, fmt.Errorf("restore watermark for template ref %d: %w", tr.Ref, err)
			}
		}
		knownTemplates[templateKey(rt)] = id
		templateIDs[tr.Ref] = id
		res.Templates++
	}

	for _, rec := range snap.Transactions {
		tx, err := decodeTransaction(rec, templateIDs)
		if err != nil {
			return res, fmt.Errorf("transaction %s %s: %w", rec.Date, rec.Category, err)
		}
		if seen[naturalKey(tx)] {
			res.Skipped++
			continue
		}
		if _, err := store.InsertTransaction(ctx, tx); err != nil {
			return res, fmt.Errorf("insert transaction %s %s: %w", rec.Date, rec.Category, err)
		}
		seen[naturalKey(tx)] = true
		res.Transactions++
	}

	slog.InfoContext(ctx, "Snapshot imported",
		"mode", string(mode),
		"transactions", res.Transactions,
		"templates", res.Templates,
		"skipped", res.Skipped)
	return res, nil
}

// naturalKey identifies a transaction without its store-assigned ID.
// Generated entries are identified by occurrence key alone; manual
// entries by their full content.
func naturalKey(tx core.Transaction) string {
	if tx.OccurrenceKey != "" {
		return "o:" + tx.OccurrenceKey
	}
	return fmt.Sprintf("m:%d|%s|%s|%s|%s", tx.Amount.Cents, tx.Date.String(), tx.Category, tx.Person, tx.Note)
}

// templateKey identifies a template by its schedule and payload.
func templateKey(rt core.RecurrenceTemplate) string {
	return fmt.Sprintf("%d|%s|%s|%s|%s|%d|%s|%s",
		rt.Amount.Cents, rt.Category, rt.Person, rt.Note,
		rt.Frequency, rt.Interval, rt.StartDate.String(), rt.EndDate.String())
}

func decodeTransaction(rec transactionRecord, templateIDs map[int64]int64) (core.Transaction, error) {
	cents, err := core.ParseDecimalToCents(rec.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount: %w", err)
	}
	date, err := core.ParseDate(rec.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("date: %w", err)
	}

	tx := core.Transaction{
		Amount:   core.Money{Cents: cents},
		Date:     date,
		Category: rec.Category,
		Person:   rec.Person,
		Note:     rec.Note,
	}
	if rec.TemplateRef != 0 {
		id, ok := templateIDs[rec.TemplateRef]
		if !ok {
			return core.Transaction{}, fmt.Errorf("unknown template ref %d", rec.TemplateRef)
		}
		tx.SourceRecurrenceID = id
		tx.OccurrenceKey = core.OccurrenceKey(id, tx.Date)
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

func decodeTemplate(tr templateRecord) (core.RecurrenceTemplate, error) {
	cents, err := core.ParseDecimalToCents(tr.Amount)
	if err != nil {
		return core.RecurrenceTemplate{}, fmt.Errorf("amount: %w", err)
	}
	start, err := core.ParseDate(tr.StartDate)
	if err != nil {
		return core.RecurrenceTemplate{}, fmt.Errorf("start date: %w", err)
	}

	rt := core.RecurrenceTemplate{
		Amount:    core.Money{Cents: cents},
		Category:  tr.Category,
		Person:    tr.Person,
		Note:      tr.Note,
		Frequency: core.Frequency(tr.Frequency),
		Interval:  tr.Interval,
		StartDate: start,
	}
	if tr.EndDate != "" {
		end, err := core.ParseDate(tr.EndDate)
		if err != nil {
			return core.RecurrenceTemplate{}, fmt.Errorf("end date: %w", err)
		}
		rt.EndDate = end
	}
	if tr.MaterializedThrough != "" {
		through, err := core.ParseDate(tr.MaterializedThrough)
		if err != nil {
			return core.RecurrenceTemplate{}, fmt.Errorf("materialized through: %w", err)
		}
		rt.LastMaterializedThrough = through
	}
	if err := rt.Validate(); err != nil {
		return core.RecurrenceTemplate{}, err
	}
	return rt, nil
}

func clear(ctx context.Context, store ledger.Store) error {
	templates, err := store.ListTemplates(ctx)
	if err != nil {
		return fmt.Errorf("list templates: %w", err)
	}
	for _, rt := range templates {
		if _, err := store.DeleteGeneratedBy(ctx, rt.ID); err != nil {
			return fmt.Errorf("clear generated for template %d: %w", rt.ID, err)
		}
		if err := store.DeleteTemplate(ctx, rt.ID); err != nil {
			return fmt.Errorf("clear template %d: %w", rt.ID, err)
		}
	}

	txs, err := store.QueryTransactions(ctx, ledger.Filter{})
	if err != nil {
		return fmt.Errorf("query transactions: %w", err)
	}
	for _, tx := range txs {
		if err := store.DeleteTransaction(ctx, tx.ID); err != nil {
			return fmt.Errorf("clear transaction %d: %w", tx.ID, err)
		}
	}
	return nil
}
