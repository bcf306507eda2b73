// Package storage is the SQLite persistence layer.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"budget/internal/core"
	"budget/internal/ledger"

	_ "modernc.org/sqlite"
)

// Sync states for the export worker.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	var key sql.NullString
	if tx.OccurrenceKey != "" {
		key = sql.NullString{String: tx.OccurrenceKey, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (amount_cents, tx_date, category, person, note, source_recurrence_id, occurrence_key)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.Amount.Cents, tx.Date.String(), tx.Category, tx.Person, tx.Note, tx.SourceRecurrenceID, key)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ledger.ErrDuplicateOccurrence
		}
		return 0, fmt.Errorf("insert transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"amount_cents", tx.Amount.Cents,
		"category", tx.Category,
		"person", tx.Person,
		"date", tx.Date.String())
	return id, nil
}

func (r *SQLiteRepository) FindByOccurrenceKey(ctx context.Context, key string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, amount_cents, tx_date, category, person, note, source_recurrence_id, occurrence_key
		FROM transactions WHERE occurrence_key = ?`, key)
	return scanTransaction(row)
}

func (r *SQLiteRepository) QueryTransactions(ctx context.Context, f ledger.Filter) ([]core.Transaction, error) {
	query := `
		SELECT id, amount_cents, tx_date, category, person, note, source_recurrence_id, occurrence_key
		FROM transactions WHERE 1=1`
	var args []any

	if !f.From.IsEmpty() {
		query += " AND tx_date >= ?"
		args = append(args, f.From.String())
	}
	if !f.To.IsEmpty() {
		query += " AND tx_date <= ?"
		args = append(args, f.To.String())
	}
	if f.Person != "" {
		query += " AND person = ?"
		args = append(args, f.Person)
	}
	if f.Category != "" {
		query += " AND category = ?"
		args = append(args, f.Category)
	}
	switch f.Kind {
	case ledger.KindIncome:
		query += " AND amount_cents > 0"
	case ledger.KindExpense:
		query += " AND amount_cents < 0"
	}
	query += " ORDER BY tx_date, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id int64, patch ledger.TransactionPatch) error {
	var sets []string
	var args []any

	if patch.Amount != nil {
		sets = append(sets, "amount_cents = ?")
		args = append(args, patch.Amount.Cents)
	}
	if patch.Date != nil {
		sets = append(sets, "tx_date = ?")
		args = append(args, patch.Date.String())
	}
	if patch.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *patch.Category)
	}
	if patch.Person != nil {
		sets = append(sets, "person = ?")
		args = append(args, *patch.Person)
	}
	if patch.Note != nil {
		sets = append(sets, "note = ?")
		args = append(args, *patch.Note)
	}
	if len(sets) == 0 {
		return nil
	}
	// Corrections re-enter the sync queue.
	sets = append(sets, "sync_status = ?")
	args = append(args, SyncPending)
	args = append(args, id)

	res, err := r.db.ExecContext(ctx,
		"UPDATE transactions SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteGeneratedBy(ctx context.Context, templateID int64) (int, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM transactions WHERE source_recurrence_id = ?", templateID)
	if err != nil {
		return 0, fmt.Errorf("delete generated transactions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func (r *SQLiteRepository) InsertTemplate(ctx context.Context, rt core.RecurrenceTemplate) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO recurrence_templates (amount_cents, category, person, note, frequency, recur_interval, start_date, end_date, materialized_through)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rt.Amount.Cents, rt.Category, rt.Person, rt.Note, string(rt.Frequency), rt.Interval,
		rt.StartDate.String(), nullDate(rt.EndDate), nullDate(rt.LastMaterializedThrough))
	if err != nil {
		return 0, fmt.Errorf("insert template: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetTemplate(ctx context.Context, id int64) (core.RecurrenceTemplate, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, amount_cents, category, person, note, frequency, recur_interval, start_date, end_date, materialized_through
		FROM recurrence_templates WHERE id = ?`, id)
	return scanTemplate(row)
}

func (r *SQLiteRepository) ListTemplates(ctx context.Context) ([]core.RecurrenceTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, amount_cents, category, person, note, frequency, recur_interval, start_date, end_date, materialized_through
		FROM recurrence_templates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []core.RecurrenceTemplate
	for rows.Next() {
		rt, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) UpdateTemplate(ctx context.Context, rt core.RecurrenceTemplate) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE recurrence_templates
		SET amount_cents = ?, category = ?, person = ?, note = ?, frequency = ?, recur_interval = ?, start_date = ?, end_date = ?, materialized_through = ?
		WHERE id = ?`,
		rt.Amount.Cents, rt.Category, rt.Person, rt.Note, string(rt.Frequency), rt.Interval,
		rt.StartDate.String(), nullDate(rt.EndDate), nullDate(rt.LastMaterializedThrough), rt.ID)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteTemplate(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM recurrence_templates WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) AdvanceWatermark(ctx context.Context, templateID int64, through core.Date) error {
	// ISO dates compare correctly as strings, so monotonicity is a
	// plain inequality. Rewinds match zero rows and are ignored.
	res, err := r.db.ExecContext(ctx, `
		UPDATE recurrence_templates
		SET materialized_through = ?
		WHERE id = ? AND (materialized_through IS NULL OR materialized_through < ?)`,
		through.String(), templateID, through.String())
	if err != nil {
		return fmt.Errorf("advance watermark: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		// Distinguish a rewind from a missing template.
		if _, err := r.GetTemplate(ctx, templateID); err != nil {
			return err
		}
	}
	return nil
}

// PendingSyncTransaction carries the minimum the worker needs to build a
// queue message.
type PendingSyncTransaction struct {
	ID        int64
	CreatedAt time.Time
}

// GetPendingSync lists transactions waiting for export.
func (r *SQLiteRepository) GetPendingSync(ctx context.Context, limit int) ([]PendingSyncTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, created_at FROM transactions
		WHERE sync_status = ? ORDER BY id LIMIT ?`, SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync: %w", err)
	}
	defer rows.Close()

	var out []PendingSyncTransaction
	for rows.Next() {
		var p PendingSyncTransaction
		var createdAt string
		if err := rows.Scan(&p.ID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan pending sync: %w", err)
		}
		// CURRENT_TIMESTAMP defaults come back as text.
		p.CreatedAt, _ = time.Parse("2006-01-02 15:04:05", createdAt)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending sync: %w", err)
	}
	return out, nil
}

// GetTransaction retrieves a single transaction by ID.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, amount_cents, tx_date, category, person, note, source_recurrence_id, occurrence_key
		FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

// MarkSynced records a successful export.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE transactions SET sync_status = ? WHERE id = ?", SyncDone, id)
	if err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction marked as synced", "id", id)
	return nil
}

// MarkSyncError records a failed export.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE transactions SET sync_status = ? WHERE id = ?", SyncError, id)
	if err != nil {
		return fmt.Errorf("mark sync error: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (core.Transaction, error) {
	var tx core.Transaction
	var dateStr string
	var key sql.NullString

	err := row.Scan(&tx.ID, &tx.Amount.Cents, &dateStr, &tx.Category, &tx.Person, &tx.Note, &tx.SourceRecurrenceID, &key)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}

	tx.Date, err = core.ParseDate(dateStr)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse stored date %q: %w", dateStr, err)
	}
	tx.OccurrenceKey = key.String
	return tx, nil
}

func scanTemplate(row scanner) (core.RecurrenceTemplate, error) {
	var rt core.RecurrenceTemplate
	var freq, startStr string
	var endStr, throughStr sql.NullString

	err := row.Scan(&rt.ID, &rt.Amount.Cents, &rt.Category, &rt.Person, &rt.Note, &freq, &rt.Interval, &startStr, &endStr, &throughStr)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurrenceTemplate{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.RecurrenceTemplate{}, fmt.Errorf("scan template: %w", err)
	}

	rt.Frequency = core.Frequency(freq)
	rt.StartDate, err = core.ParseDate(startStr)
	if err != nil {
		return core.RecurrenceTemplate{}, fmt.Errorf("parse stored start date %q: %w", startStr, err)
	}
	if endStr.Valid {
		rt.EndDate, err = core.ParseDate(endStr.String)
		if err != nil {
			return core.RecurrenceTemplate{}, fmt.Errorf("parse stored end date %q: %w", endStr.String, err)
		}
	}
	if throughStr.Valid {
		rt.LastMaterializedThrough, err = core.ParseDate(throughStr.String)
		if err != nil {
			return core.RecurrenceTemplate{}, fmt.Errorf("parse stored watermark %q: %w", throughStr.String, err)
		}
	}
	return rt, nil
}

func nullDate(d core.Date) sql.NullString {
	if d.IsEmpty() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
