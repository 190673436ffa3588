package ledger

import (
	"time"

	"cassa/internal/core"
	"cassa/internal/period"
)

// Rollover compares the period containing now against the period of the last
// reset. On a boundary crossing it clears every bill's paid flag and records
// now as the new reset marker; otherwise the state is returned unchanged.
//
// The comparison is on period keys, not raw dates, so repeated checks inside
// one cycle never double-reset.
func Rollover(s core.LedgerState, now time.Time) (core.LedgerState, bool) {
	payday := s.Settings.Payday
	if period.SameCycle(now, s.Settings.LastReset, payday) {
		return s, false
	}
	c := ResetFixed(s)
	c.Settings.LastReset = now.UTC()
	return c, true
}
