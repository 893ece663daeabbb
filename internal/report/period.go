package report

import (
	"time"

	"fintrack/internal/core"
)

// PeriodLayout renders a month as "January 2026".
const PeriodLayout = "January 2006"

func (g Aggregator) location() *time.Location {
	if g.Location == nil {
		return time.UTC
	}
	return g.Location
}

func (g Aggregator) now() time.Time {
	if g.Now == nil {
		return time.Now()
	}
	return g.Now()
}

// periodLabel names the month of the latest known transaction date, or the
// current month when there is none.
func (g Aggregator) periodLabel(transactions []core.Transaction) string {
	var latest core.Date
	for _, t := range transactions {
		if t.Date.IsKnown() && (!latest.IsKnown() || t.Date.After(latest.Time)) {
			latest = t.Date
		}
	}
	if latest.IsKnown() {
		// Dates are calendar days, so the label comes from the date itself.
		return time.Date(latest.Year(), latest.Month(), 1, 0, 0, 0, 0, time.UTC).Format(PeriodLayout)
	}
	return MonthLabel(g.now().In(g.location()))
}

// MonthLabel formats the month containing t.
func MonthLabel(t time.Time) string {
	return t.Format(PeriodLayout)
}

// MonthRange returns the first and last day of the month containing t.
func MonthRange(t time.Time) (core.Date, core.Date) {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return core.DateOf(first), core.DateOf(last)
}
