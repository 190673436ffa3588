// Package report derives read-only projections from the ledger. Nothing here
// holds state: every view is recomputed from a LedgerState snapshot and the
// period calculator, and callers memoize by (state version, period key).
package report

import (
	"sort"
	"time"

	"cassa/internal/core"
	"cassa/internal/period"
)

// NominalPeriodDays is the assumed cycle length for the linear forecast.
// Deliberately fixed rather than calendar-exact: the projection is a rough
// trend line, not an accounting figure.
const NominalPeriodDays = 30

type (
	// Summary totals one financial period.
	Summary struct {
		Start      time.Time
		End        time.Time
		Income     core.Money
		Spent      core.Money
		Net        core.Money
		ByCategory []CategoryShare
	}

	// CategoryShare is one slice of the period's spending.
	CategoryShare struct {
		CategoryID string
		Label      string
		Color      string
		Amount     core.Money
		Share      float64 // fraction of period spending, 0..1
	}

	// TrendPoint is one period in an N-period history.
	TrendPoint struct {
		Key     string
		Start   time.Time
		Income  core.Money
		Expense core.Money
	}

	// Forecast is the linear spend projection for the running period.
	Forecast struct {
		Spent        core.Money
		DaysElapsed  int
		DailyAverage core.Money
		Projected    core.Money
	}
)

// ExpensesIn returns the expense records dated within [start, End(start)).
func ExpensesIn(s core.LedgerState, start time.Time) []core.ExpenseRecord {
	var out []core.ExpenseRecord
	for _, e := range s.Expenses {
		if period.Contains(start, e.Date) {
			out = append(out, e)
		}
	}
	return out
}

// IncomesIn returns the income records dated within [start, End(start)).
func IncomesIn(s core.LedgerState, start time.Time) []core.IncomeRecord {
	var out []core.IncomeRecord
	for _, r := range s.Incomes {
		if period.Contains(start, r.Date) {
			out = append(out, r)
		}
	}
	return out
}

// PeriodSummary totals income and spending for the period containing d and
// breaks spending down by category, largest first.
func PeriodSummary(s core.LedgerState, d time.Time) Summary {
	start := period.Start(d, s.Settings.Payday)
	sum := Summary{Start: start, End: period.End(start)}

	byCat := map[string]int64{}
	for _, e := range ExpensesIn(s, start) {
		sum.Spent.Cents += e.Amount.Cents
		byCat[e.Category] += e.Amount.Cents
	}
	for _, r := range IncomesIn(s, start) {
		sum.Income.Cents += r.Amount.Cents
	}
	sum.Net.Cents = sum.Income.Cents - sum.Spent.Cents

	for id, amount := range byCat {
		share := 0.0
		if sum.Spent.Cents > 0 {
			share = float64(amount) / float64(sum.Spent.Cents)
		}
		sum.ByCategory = append(sum.ByCategory, CategoryShare{
			CategoryID: id,
			Label:      s.CategoryLabel(id),
			Color:      core.ColorFor(id),
			Amount:     core.Money{Cents: amount},
			Share:      share,
		})
	}
	sort.Slice(sum.ByCategory, func(i, j int) bool {
		a, b := sum.ByCategory[i], sum.ByCategory[j]
		if a.Amount.Cents != b.Amount.Cents {
			return a.Amount.Cents > b.Amount.Cents
		}
		return a.CategoryID < b.CategoryID
	})
	return sum
}

// Trend sums income and expense for the n periods ending at the one
// containing now, oldest first.
func Trend(s core.LedgerState, now time.Time, n int) []TrendPoint {
	payday := s.Settings.Payday
	points := make([]TrendPoint, 0, n)
	for i := n - 1; i >= 0; i-- {
		start := period.Back(now, payday, i)
		p := TrendPoint{Key: start.Format(period.KeyFormat), Start: start}
		for _, e := range ExpensesIn(s, start) {
			p.Expense.Cents += e.Amount.Cents
		}
		for _, r := range IncomesIn(s, start) {
			p.Income.Cents += r.Amount.Cents
		}
		points = append(points, p)
	}
	return points
}

// Project extrapolates the running period's spending linearly: daily average
// so far times the nominal period length.
func Project(s core.LedgerState, now time.Time) Forecast {
	start := period.Start(now, s.Settings.Payday)
	f := Forecast{DaysElapsed: period.DaysElapsed(start, now)}
	for _, e := range ExpensesIn(s, start) {
		f.Spent.Cents += e.Amount.Cents
	}
	f.DailyAverage.Cents = f.Spent.Cents / int64(f.DaysElapsed)
	f.Projected.Cents = f.DailyAverage.Cents * NominalPeriodDays
	return f
}
