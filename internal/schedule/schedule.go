// Package schedule computes occurrence dates and due-ness buckets for
// recurring obligations. Everything here is pure calendar arithmetic on naive
// dates; no clocks, no storage.
package schedule

import (
	"scadenze/internal/core"
)

// Bucket classifies how close an occurrence is relative to a reference day.
type Bucket string

const (
	Overdue  Bucket = "overdue"
	DueToday Bucket = "due_today"
	DueSoon  Bucket = "due_soon" // within 7 days
	Upcoming Bucket = "upcoming" // within 30 days
	Future   Bucket = "future"
)

const (
	dueSoonDays  = 7
	upcomingDays = 30

	// OverdueGraceDays is how far back the upcoming-window dashboard still
	// shows overdue obligations.
	OverdueGraceDays = 7
)

// Advance returns the occurrence after d for the given frequency.
//
// Weekly adds 7 days. Monthly, quarterly and yearly add 1, 3 and 12 calendar
// months using naive month arithmetic: the day of month is kept and the date
// normalizes on overflow, so 2024-01-31 + 1 month is 2024-03-02. End-of-month
// clamping is deliberately not performed.
func Advance(d core.Date, f core.Frequency) core.Date {
	switch f {
	case core.Weekly:
		return core.Date{Time: d.AddDate(0, 0, 7)}
	case core.Quarterly:
		return core.Date{Time: d.AddDate(0, 3, 0)}
	case core.Yearly:
		return core.Date{Time: d.AddDate(1, 0, 0)}
	default: // monthly
		return core.Date{Time: d.AddDate(0, 1, 0)}
	}
}

// DaysUntil returns the whole calendar days from today until next. Negative
// when next is in the past.
func DaysUntil(next, today core.Date) int {
	return int(next.Sub(today.Time).Hours() / 24)
}

// Classify buckets an occurrence date against a reference day. The buckets
// are mutually exclusive and exhaustive over any day delta.
func Classify(next, today core.Date) Bucket {
	days := DaysUntil(next, today)
	switch {
	case days < 0:
		return Overdue
	case days == 0:
		return DueToday
	case days <= dueSoonDays:
		return DueSoon
	case days <= upcomingDays:
		return Upcoming
	default:
		return Future
	}
}

// IsDue reports whether an occurrence should be processed on the given day,
// i.e. it is overdue or due today.
func IsDue(next, today core.Date) bool {
	b := Classify(next, today)
	return b == Overdue || b == DueToday
}

// InUpcomingWindow reports whether an occurrence belongs on the next-30-days
// dashboard, which also includes occurrences up to 7 days overdue.
func InUpcomingWindow(next, today core.Date) bool {
	days := DaysUntil(next, today)
	return days >= -OverdueGraceDays && days <= upcomingDays
}

// Expired reports whether a cursor has advanced past the obligation's end
// date. Open-ended obligations never expire.
func Expired(o core.Obligation, cursor core.Date) bool {
	return !o.EndDate.IsZero() && cursor.After(o.EndDate.Time)
}
