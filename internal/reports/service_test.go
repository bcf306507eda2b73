package reports

import (
	"context"
	"testing"
	"time"

	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/ledger/memory"
)

func seedStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	for _, tx := range sampleHistory() {
		tx.ID = 0
		if _, err := store.InsertTransaction(ctx, tx); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return store
}

func TestServiceMonthlyCaching(t *testing.T) {
	store := seedStore(t)
	svc := NewService(store, time.Minute)
	ctx := context.Background()

	report, err := svc.Monthly(ctx, 2024, 1)
	if err != nil {
		t.Fatalf("Monthly: %v", err)
	}
	if report.Count != 2 {
		t.Fatalf("January count = %d, want 2", report.Count)
	}

	// A write the service has not been told about is invisible until
	// invalidation.
	if _, err := store.InsertTransaction(ctx, core.Transaction{
		Amount:   core.Money{Cents: -100},
		Date:     core.NewDate(2024, 1, 20),
		Category: "Food",
		Person:   "Bob",
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	cached, _ := svc.Monthly(ctx, 2024, 1)
	if cached.Count != 2 {
		t.Fatalf("expected cached report, got count %d", cached.Count)
	}

	svc.Invalidate()
	fresh, _ := svc.Monthly(ctx, 2024, 1)
	if fresh.Count != 3 {
		t.Fatalf("expected fresh report after invalidation, got count %d", fresh.Count)
	}
}

func TestServiceBalance(t *testing.T) {
	store := seedStore(t)
	svc := NewService(store, time.Minute)

	points, err := svc.Balance(context.Background(), core.NewDate(2024, 1, 10), core.Date{}, "")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if len(points) != 2 || points[0].Balance.Cents != 80000 {
		t.Fatalf("points = %+v", points)
	}
}

func TestServiceBalanceBoundedAndScoped(t *testing.T) {
	store := seedStore(t)
	svc := NewService(store, time.Minute)
	ctx := context.Background()

	bounded, err := svc.Balance(ctx, core.NewDate(2024, 1, 10), core.NewDate(2024, 1, 31), "")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if len(bounded) != 1 || bounded[0].Date.String() != "2024-01-15" {
		t.Fatalf("bounded points = %+v", bounded)
	}

	// Opening balance still counts pre-from history for the person.
	alice, err := svc.Balance(ctx, core.NewDate(2024, 1, 10), core.Date{}, "Alice")
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if len(alice) != 1 || alice[0].Balance.Cents != 80000 {
		t.Fatalf("Alice points = %+v", alice)
	}
}

func TestServicePeopleAndCategories(t *testing.T) {
	store := seedStore(t)
	svc := NewService(store, time.Minute)
	ctx := context.Background()

	people, err := svc.People(ctx, ledger.Filter{})
	if err != nil {
		t.Fatalf("People: %v", err)
	}
	if len(people.Lines) != 2 {
		t.Fatalf("expected 2 people, got %d", len(people.Lines))
	}

	categories, err := svc.Categories(ctx, ledger.Filter{})
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(categories.Lines) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(categories.Lines))
	}
}

func TestServiceCategoriesFiltered(t *testing.T) {
	store := seedStore(t)
	svc := NewService(store, time.Minute)
	ctx := context.Background()

	january, err := svc.Categories(ctx, ledger.Filter{
		From: core.NewDate(2024, 1, 1),
		To:   core.NewDate(2024, 1, 31),
	})
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(january.Lines) != 2 {
		t.Fatalf("expected 2 January categories, got %d", len(january.Lines))
	}

	bob, err := svc.Categories(ctx, ledger.Filter{Person: "Bob"})
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(bob.Lines) != 1 || bob.Lines[0].Category != "Food" {
		t.Fatalf("Bob categories = %+v", bob.Lines)
	}

	// Distinct filters cache under distinct keys.
	all, err := svc.Categories(ctx, ledger.Filter{})
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(all.Lines) != 3 {
		t.Fatalf("filtered report leaked into the unfiltered key: %+v", all.Lines)
	}
}
