package services

import (
	"context"
	"errors"
	"testing"

	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/ledger/memory"
)

func seedTemplate(t *testing.T, store ledger.Store, rt core.RecurrenceTemplate) int64 {
	t.Helper()
	id, err := store.InsertTemplate(context.Background(), rt)
	if err != nil {
		t.Fatalf("seed template: %v", err)
	}
	return id
}

func TestMaterializerCreatesAndAdvancesWatermark(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	id := seedTemplate(t, store, core.RecurrenceTemplate{
		Amount:    core.Money{Cents: -5000},
		Category:  "Rent",
		Person:    "Alice",
		Frequency: core.Monthly,
		Interval:  1,
		StartDate: core.NewDate(2024, 1, 31),
	})

	m := NewMaterializer(store)
	res, err := m.ProcessDueTemplates(ctx, core.NewDate(2024, 4, 15))
	if err != nil {
		t.Fatalf("ProcessDueTemplates: %v", err)
	}
	if res.Created != 3 || res.Skipped != 0 {
		t.Fatalf("expected 3 created, 0 skipped, got %+v", res)
	}

	txs, err := store.QueryTransactions(ctx, ledger.Filter{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(txs))
	}
	for _, tx := range txs {
		if tx.SourceRecurrenceID != id {
			t.Errorf("transaction %d missing provenance", tx.ID)
		}
		if tx.OccurrenceKey == "" {
			t.Errorf("transaction %d missing occurrence key", tx.ID)
		}
	}

	rt, err := store.GetTemplate(ctx, id)
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	if rt.LastMaterializedThrough.String() != "2024-03-31" {
		t.Errorf("watermark = %s, want 2024-03-31", rt.LastMaterializedThrough.String())
	}
}

func TestMaterializerIdempotentRerun(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedTemplate(t, store, core.RecurrenceTemplate{
		Amount:    core.Money{Cents: -5000},
		Category:  "Rent",
		Person:    "Alice",
		Frequency: core.Monthly,
		Interval:  1,
		StartDate: core.NewDate(2024, 1, 31),
	})

	m := NewMaterializer(store)
	asOf := core.NewDate(2024, 4, 15)
	if _, err := m.ProcessDueTemplates(ctx, asOf); err != nil {
		t.Fatalf("first run: %v", err)
	}
	res, err := m.ProcessDueTemplates(ctx, asOf)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Created != 0 {
		t.Fatalf("rerun created %d transactions, want 0", res.Created)
	}

	txs, _ := store.QueryTransactions(ctx, ledger.Filter{})
	if len(txs) != 3 {
		t.Fatalf("expected 3 transactions after rerun, got %d", len(txs))
	}
}

func TestMaterializerSkipsInactiveTemplates(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	seedTemplate(t, store, core.RecurrenceTemplate{
		Amount:    core.Money{Cents: -2000},
		Category:  "Gym",
		Person:    "Bob",
		Frequency: core.Monthly,
		Interval:  1,
		StartDate: core.NewDate(2023, 1, 1),
		EndDate:   core.NewDate(2023, 6, 1),
	})

	m := NewMaterializer(store)
	// The template ended before the window; its remaining occurrences up
	// to the end date still materialize exactly once.
	res, err := m.ProcessDueTemplates(ctx, core.NewDate(2024, 1, 1))
	if err != nil {
		t.Fatalf("ProcessDueTemplates: %v", err)
	}
	if res.Created != 6 {
		t.Fatalf("expected 6 created, got %+v", res)
	}

	res, err = m.ProcessDueTemplates(ctx, core.NewDate(2024, 2, 1))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Created != 0 {
		t.Fatalf("ended template produced %d new transactions", res.Created)
	}
}

// failingStore rejects inserts after a threshold to simulate a write
// failure mid-batch.
type failingStore struct {
	ledger.Store
	allow int
	seen  int
}

var errStoreDown = errors.New("store down")

func (f *failingStore) InsertTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	f.seen++
	if f.seen > f.allow {
		return 0, errStoreDown
	}
	return f.Store.InsertTransaction(ctx, tx)
}

func TestMaterializerFailureDoesNotAdvanceWatermark(t *testing.T) {
	ctx := context.Background()
	mem := memory.New()
	id := seedTemplate(t, mem, core.RecurrenceTemplate{
		Amount:    core.Money{Cents: -5000},
		Category:  "Rent",
		Person:    "Alice",
		Frequency: core.Monthly,
		Interval:  1,
		StartDate: core.NewDate(2024, 1, 31),
	})

	store := &failingStore{Store: mem, allow: 2}
	m := NewMaterializer(store)
	_, err := m.ProcessDueTemplates(ctx, core.NewDate(2024, 4, 15))
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected store failure to surface, got %v", err)
	}

	rt, _ := mem.GetTemplate(ctx, id)
	if !rt.LastMaterializedThrough.IsEmpty() {
		t.Fatalf("watermark advanced despite failed batch: %s", rt.LastMaterializedThrough.String())
	}

	// Recovery run inserts only the missing occurrence.
	m2 := NewMaterializer(mem)
	res, err := m2.ProcessDueTemplates(ctx, core.NewDate(2024, 4, 15))
	if err != nil {
		t.Fatalf("recovery run: %v", err)
	}
	if res.Created != 1 || res.Skipped != 2 {
		t.Fatalf("recovery expected 1 created, 2 skipped, got %+v", res)
	}
	rt, _ = mem.GetTemplate(ctx, id)
	if rt.LastMaterializedThrough.String() != "2024-03-31" {
		t.Errorf("watermark = %s, want 2024-03-31", rt.LastMaterializedThrough.String())
	}
}
