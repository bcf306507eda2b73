package reports

import (
	"sort"

	"budget/internal/core"
)

// MonthlyReport summarizes a single calendar month.
type MonthlyReport struct {
	Year       int
	Month      int
	Income     core.Money
	Expense    core.Money
	Net        core.Money
	Count      int
	Categories []CategoryTotal
}

// BuildMonthlyReport assembles the report for one month from the full
// history. It only composes the aggregation functions; all arithmetic
// lives in them.
func BuildMonthlyReport(history []core.Transaction, year, month int) MonthlyReport {
	var scoped []core.Transaction
	for _, tx := range history {
		if tx.Date.Year() == year && tx.Date.Month() == month {
			scoped = append(scoped, tx)
		}
	}

	income, expense, net := Totals(scoped)
	return MonthlyReport{
		Year:       year,
		Month:      month,
		Income:     income,
		Expense:    expense,
		Net:        net,
		Count:      len(scoped),
		Categories: CategoryTotals(scoped),
	}
}

// CategoryLine is one row of the category report.
type CategoryLine struct {
	Category string
	Income   core.Money
	Expense  core.Money
	Net      core.Money
	Count    int
	Average  core.Money
	// SharePerMille is the category's per-mille share of total
	// spending, computed from its expense portion. Pure income
	// categories report zero.
	SharePerMille int64
}

// CategoryReport lists every category with totals, counts, averages and
// the expense share. Rows keep the CategoryTotals ordering.
type CategoryReport struct {
	TotalExpense core.Money
	TotalIncome  core.Money
	Lines        []CategoryLine
}

func BuildCategoryReport(history []core.Transaction) CategoryReport {
	income, expense, _ := Totals(history)
	report := CategoryReport{TotalExpense: expense, TotalIncome: income}

	for _, ct := range CategoryTotals(history) {
		line := CategoryLine{
			Category: ct.Category,
			Income:   ct.Income,
			Expense:  ct.Expense,
			Net:      ct.Net,
			Count:    ct.Count,
		}
		if ct.Count > 0 {
			line.Average = core.Money{Cents: ct.Net.Cents / int64(ct.Count)}
		}
		if ct.Expense.Cents != 0 && expense.Cents != 0 {
			line.SharePerMille = ct.Expense.Cents * 1000 / expense.Cents
		}
		report.Lines = append(report.Lines, line)
	}
	return report
}

// PersonLine is one row of the person report.
type PersonLine struct {
	PersonTotal
	// TopCategories are the person's three largest expense categories
	// by absolute total.
	TopCategories []CategoryTotal
}

// PersonReport summarizes activity per person.
type PersonReport struct {
	Lines []PersonLine
}

func BuildPersonReport(history []core.Transaction) PersonReport {
	byPerson := make(map[string][]core.Transaction)
	for _, tx := range history {
		byPerson[tx.Person] = append(byPerson[tx.Person], tx)
	}

	var report PersonReport
	for _, pt := range PersonSummary(history) {
		var expenses []core.Transaction
		for _, tx := range byPerson[pt.Person] {
			if tx.Amount.IsExpense() {
				expenses = append(expenses, tx)
			}
		}
		top := CategoryTotals(expenses)
		if len(top) > 3 {
			top = top[:3]
		}
		report.Lines = append(report.Lines, PersonLine{PersonTotal: pt, TopCategories: top})
	}
	return report
}

// YearlyReport summarizes a calendar year month by month.
type YearlyReport struct {
	Year    int
	Income  core.Money
	Expense core.Money
	Net     core.Money
	Months  [12]MonthTotal
}

func BuildYearlyReport(history []core.Transaction, year int) YearlyReport {
	var scoped []core.Transaction
	for _, tx := range history {
		if tx.Date.Year() == year {
			scoped = append(scoped, tx)
		}
	}
	income, expense, net := Totals(scoped)
	return YearlyReport{
		Year:    year,
		Income:  income,
		Expense: expense,
		Net:     net,
		Months:  MonthlyBreakdown(scoped, year),
	}
}

// TopExpenses returns the n largest expenses by absolute amount, ties
// broken by date then ID.
func TopExpenses(history []core.Transaction, n int) []core.Transaction {
	var expenses []core.Transaction
	for _, tx := range history {
		if tx.Amount.IsExpense() {
			expenses = append(expenses, tx)
		}
	}
	sort.SliceStable(expenses, func(i, j int) bool {
		return expenses[i].Amount.Abs() > expenses[j].Amount.Abs()
	})
	if len(expenses) > n {
		expenses = expenses[:n]
	}
	return expenses
}
