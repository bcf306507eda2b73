// Package reports computes aggregate views over ledger history. The
// aggregation functions are pure: they take a slice of transactions
// ordered by date then ID, as returned by the store, and derive values
// without touching storage.
package reports

import (
	"sort"

	"budget/internal/core"
)

// BalancePoint is the cumulative balance after applying all transactions
// up to and including Date.
type BalancePoint struct {
	Date    core.Date
	Balance core.Money
}

// RunningBalance folds the ordered history into one balance point per
// active date in [from, to]. Transactions dated before from are collapsed
// into the opening balance, so the first point already reflects prior
// history. A zero from or to leaves that end unbounded; a non-empty
// person restricts the fold to that person's transactions.
func RunningBalance(history []core.Transaction, from, to core.Date, person string) []BalancePoint {
	var balance int64
	points := make([]BalancePoint, 0)
	for _, tx := range history {
		if person != "" && tx.Person != person {
			continue
		}
		if !to.IsEmpty() && tx.Date.After(to) {
			break
		}
		balance += tx.Amount.Cents
		if !from.IsEmpty() && tx.Date.Before(from) {
			continue
		}
		if n := len(points); n > 0 && points[n-1].Date.Equal(tx.Date) {
			points[n-1].Balance = core.Money{Cents: balance}
			continue
		}
		points = append(points, BalancePoint{
			Date:    tx.Date,
			Balance: core.Money{Cents: balance},
		})
	}
	return points
}

// CategoryTotal is the aggregate for a single category, keeping income
// and expense apart next to the net. Expense is a negative total.
type CategoryTotal struct {
	Category string
	Income   core.Money
	Expense  core.Money
	Net      core.Money
	Count    int
}

// CategoryTotals partitions the transactions by category. Every cent of
// input lands in exactly one bucket; totals are sorted by absolute net
// descending, ties broken by category name.
func CategoryTotals(txs []core.Transaction) []CategoryTotal {
	byCategory := make(map[string]*CategoryTotal)
	for _, tx := range txs {
		ct, ok := byCategory[tx.Category]
		if !ok {
			ct = &CategoryTotal{Category: tx.Category}
			byCategory[tx.Category] = ct
		}
		if tx.Amount.IsIncome() {
			ct.Income.Cents += tx.Amount.Cents
		} else {
			ct.Expense.Cents += tx.Amount.Cents
		}
		ct.Net.Cents += tx.Amount.Cents
		ct.Count++
	}

	out := make([]CategoryTotal, 0, len(byCategory))
	for _, ct := range byCategory {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := out[i].Net.Abs(), out[j].Net.Abs()
		if ai != aj {
			return ai > aj
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// PersonTotal is the aggregate for a single person.
type PersonTotal struct {
	Person  string
	Income  core.Money
	Expense core.Money
	Net     core.Money
	Count   int
}

// PersonSummary partitions the transactions by person, splitting income
// from expense. Expense is reported as a negative total. Results are
// sorted by person name.
func PersonSummary(txs []core.Transaction) []PersonTotal {
	byPerson := make(map[string]*PersonTotal)
	for _, tx := range txs {
		pt, ok := byPerson[tx.Person]
		if !ok {
			pt = &PersonTotal{Person: tx.Person}
			byPerson[tx.Person] = pt
		}
		if tx.Amount.IsIncome() {
			pt.Income.Cents += tx.Amount.Cents
		} else {
			pt.Expense.Cents += tx.Amount.Cents
		}
		pt.Net.Cents += tx.Amount.Cents
		pt.Count++
	}

	out := make([]PersonTotal, 0, len(byPerson))
	for _, pt := range byPerson {
		out = append(out, *pt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Person < out[j].Person })
	return out
}

// MonthTotal is the aggregate for a single calendar month.
type MonthTotal struct {
	Month   int
	Income  core.Money
	Expense core.Money
	Net     core.Money
	Count   int
}

// MonthlyBreakdown buckets one calendar year into twelve months. Months
// without activity appear with zero totals. Transactions outside the
// year are ignored.
func MonthlyBreakdown(txs []core.Transaction, year int) [12]MonthTotal {
	var months [12]MonthTotal
	for i := range months {
		months[i].Month = i + 1
	}
	for _, tx := range txs {
		if tx.Date.Year() != year {
			continue
		}
		mt := &months[tx.Date.Month()-1]
		if tx.Amount.IsIncome() {
			mt.Income.Cents += tx.Amount.Cents
		} else {
			mt.Expense.Cents += tx.Amount.Cents
		}
		mt.Net.Cents += tx.Amount.Cents
		mt.Count++
	}
	return months
}

// Totals sums all transactions into income, expense and net.
func Totals(txs []core.Transaction) (income, expense, net core.Money) {
	for _, tx := range txs {
		if tx.Amount.IsIncome() {
			income.Cents += tx.Amount.Cents
		} else {
			expense.Cents += tx.Amount.Cents
		}
		net.Cents += tx.Amount.Cents
	}
	return income, expense, net
}
