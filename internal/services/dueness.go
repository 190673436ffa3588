// Package services provides business logic and orchestration around the
// ledger engine.
//
// This file classifies fixed bills by dueness within the current cycle.
package services

import (
	"sort"
	"time"

	"cassa/internal/core"
	"cassa/internal/period"
)

// BillStatus describes where a fixed bill stands within the current cycle.
type BillStatus string

const (
	BillPaid        BillStatus = "paid"
	BillOverdue     BillStatus = "overdue"
	BillDueSoon     BillStatus = "due_soon"
	BillUpcoming    BillStatus = "upcoming"
	BillUnscheduled BillStatus = "unscheduled"
)

// dueSoonDays is the warning window before a bill's due date.
const dueSoonDays = 3

// BillView pairs a fixed bill with its computed dueness for display.
type BillView struct {
	core.FixedExpense
	Status BillStatus
	Due    time.Time
}

// DueDate returns the bill's due date within the cycle starting at start.
// A due day that exceeds the month length clamps to the last day of the
// month, so a day-31 bill still falls due in February. The second return
// is false for bills with no due day.
func DueDate(f core.FixedExpense, start time.Time) (time.Time, bool) {
	if f.DueDay <= 0 {
		return time.Time{}, false
	}

	due := dateWithClampedDay(start.Year(), start.Month(), f.DueDay)
	if due.Before(start) {
		next := start.AddDate(0, 1, 0)
		due = dateWithClampedDay(next.Year(), next.Month(), f.DueDay)
	}
	return due, true
}

func dateWithClampedDay(year int, month time.Month, day int) time.Time {
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ClassifyBill determines the status of one fixed bill at the given
// instant. Paid wins over everything else.
func ClassifyBill(f core.FixedExpense, start, now time.Time) BillStatus {
	if f.Paid {
		return BillPaid
	}

	due, ok := DueDate(f, start)
	if !ok {
		return BillUnscheduled
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch {
	case due.Before(today):
		return BillOverdue
	case !due.After(today.AddDate(0, 0, dueSoonDays)):
		return BillDueSoon
	default:
		return BillUpcoming
	}
}

// DueBills returns every fixed bill with its dueness in the cycle that
// contains now, ordered by due date with unscheduled bills last.
func DueBills(s core.LedgerState, now time.Time) []BillView {
	start := period.Start(now, s.Settings.Payday)

	views := make([]BillView, 0, len(s.Fixed))
	for _, f := range s.Fixed {
		due, _ := DueDate(f, start)
		views = append(views, BillView{
			FixedExpense: f,
			Status:       ClassifyBill(f, start, now),
			Due:          due,
		})
	}

	sort.SliceStable(views, func(i, j int) bool {
		if views[i].Due.IsZero() != views[j].Due.IsZero() {
			return !views[i].Due.IsZero()
		}
		return views[i].Due.Before(views[j].Due)
	})

	return views
}

// UnpaidTotal sums the amounts of bills that still need to be paid this
// cycle, grouped by source.
func UnpaidTotal(s core.LedgerState) core.Balance {
	var total core.Balance
	for _, f := range s.Fixed {
		if !f.Paid {
			total = total.Add(f.Source, f.Amount.Cents)
		}
	}
	return total
}
