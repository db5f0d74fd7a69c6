package engine

import "time"

// Clock supplies the current time. Injected so tests can pin the day
// boundary that keys the budget ledger.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func SystemClock() Clock { return systemClock{} }

// Day returns the UTC calendar day used to key daily budget rows.
func Day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
