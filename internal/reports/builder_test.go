package reports

import (
	"testing"

	"budget/internal/core"
)

func TestBuildMonthlyReport(t *testing.T) {
	history := []core.Transaction{
		tx(1, 100000, core.NewDate(2024, 1, 1), "Salary", "Alice"),
		tx(2, -20000, core.NewDate(2024, 1, 15), "Rent", "Alice"),
		tx(3, -5000, core.NewDate(2024, 1, 20), "Food", "Bob"),
		tx(4, -30000, core.NewDate(2024, 2, 1), "Food", "Bob"),
	}

	report := BuildMonthlyReport(history, 2024, 1)
	if report.Count != 3 {
		t.Fatalf("expected 3 transactions in January, got %d", report.Count)
	}
	if report.Income.Cents != 100000 || report.Expense.Cents != -25000 || report.Net.Cents != 75000 {
		t.Errorf("totals = %+v", report)
	}
	if len(report.Categories) != 3 {
		t.Errorf("expected 3 categories, got %d", len(report.Categories))
	}

	empty := BuildMonthlyReport(history, 2024, 6)
	if empty.Count != 0 || empty.Net.Cents != 0 || len(empty.Categories) != 0 {
		t.Errorf("empty month not zero: %+v", empty)
	}
}

func TestBuildCategoryReport(t *testing.T) {
	history := []core.Transaction{
		tx(1, -6000, core.NewDate(2024, 1, 1), "Food", "Alice"),
		tx(2, -2000, core.NewDate(2024, 1, 2), "Food", "Bob"),
		tx(3, -2000, core.NewDate(2024, 1, 3), "Gym", "Bob"),
		tx(4, 50000, core.NewDate(2024, 1, 4), "Salary", "Alice"),
	}

	report := BuildCategoryReport(history)
	if report.TotalExpense.Cents != -10000 || report.TotalIncome.Cents != 50000 {
		t.Fatalf("totals = %+v", report)
	}

	lines := make(map[string]CategoryLine)
	for _, l := range report.Lines {
		lines[l.Category] = l
	}

	food := lines["Food"]
	if food.Count != 2 || food.Average.Cents != -4000 {
		t.Errorf("Food line = %+v", food)
	}
	if food.Expense.Cents != -8000 || food.Income.Cents != 0 || food.Net.Cents != -8000 {
		t.Errorf("Food split = %+v, want expense -8000, income 0", food)
	}
	if food.SharePerMille != 800 {
		t.Errorf("Food share = %d, want 800", food.SharePerMille)
	}
	if lines["Gym"].SharePerMille != 200 {
		t.Errorf("Gym share = %d, want 200", lines["Gym"].SharePerMille)
	}
	if lines["Salary"].SharePerMille != 0 {
		t.Errorf("income category should have zero expense share, got %d", lines["Salary"].SharePerMille)
	}
}

func TestBuildPersonReportTopCategories(t *testing.T) {
	history := []core.Transaction{
		tx(1, -6000, core.NewDate(2024, 1, 1), "Food", "Alice"),
		tx(2, -9000, core.NewDate(2024, 1, 2), "Rent", "Alice"),
		tx(3, -1000, core.NewDate(2024, 1, 3), "Gym", "Alice"),
		tx(4, -500, core.NewDate(2024, 1, 4), "Coffee", "Alice"),
		tx(5, 50000, core.NewDate(2024, 1, 5), "Salary", "Alice"),
		tx(6, -300, core.NewDate(2024, 1, 6), "Coffee", "Bob"),
	}

	report := BuildPersonReport(history)
	if len(report.Lines) != 2 {
		t.Fatalf("expected 2 people, got %d", len(report.Lines))
	}

	alice := report.Lines[0]
	if alice.Person != "Alice" {
		t.Fatalf("expected Alice first, got %s", alice.Person)
	}
	if len(alice.TopCategories) != 3 {
		t.Fatalf("expected top 3 categories, got %d", len(alice.TopCategories))
	}
	want := []string{"Rent", "Food", "Gym"}
	for i, w := range want {
		if alice.TopCategories[i].Category != w {
			t.Errorf("top[%d] = %s, want %s", i, alice.TopCategories[i].Category, w)
		}
	}

	bob := report.Lines[1]
	if len(bob.TopCategories) != 1 || bob.TopCategories[0].Category != "Coffee" {
		t.Errorf("Bob top categories = %+v", bob.TopCategories)
	}
}

func TestBuildYearlyReport(t *testing.T) {
	history := []core.Transaction{
		tx(1, 100000, core.NewDate(2024, 1, 1), "Salary", "Alice"),
		tx(2, -20000, core.NewDate(2024, 3, 15), "Rent", "Alice"),
		tx(3, -5000, core.NewDate(2023, 12, 31), "Food", "Bob"),
	}

	report := BuildYearlyReport(history, 2024)
	if report.Income.Cents != 100000 || report.Expense.Cents != -20000 {
		t.Fatalf("totals = %+v", report)
	}
	if report.Months[2].Expense.Cents != -20000 {
		t.Errorf("March = %+v", report.Months[2])
	}
	if report.Months[11].Count != 0 {
		t.Errorf("December picked up a 2023 transaction: %+v", report.Months[11])
	}
}

func TestTopExpenses(t *testing.T) {
	history := []core.Transaction{
		tx(1, -100, core.NewDate(2024, 1, 1), "A", "P"),
		tx(2, -900, core.NewDate(2024, 1, 2), "B", "P"),
		tx(3, 5000, core.NewDate(2024, 1, 3), "C", "P"),
		tx(4, -500, core.NewDate(2024, 1, 4), "D", "P"),
	}

	top := TopExpenses(history, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 expenses, got %d", len(top))
	}
	if top[0].ID != 2 || top[1].ID != 4 {
		t.Errorf("top expenses = %d, %d; want 2, 4", top[0].ID, top[1].ID)
	}
}
