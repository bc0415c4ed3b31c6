package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Weekly    Frequency = "weekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Yearly    Frequency = "yearly"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

type (
	Frequency string

	Kind string

	// Date is a naive calendar date. The time component is always midnight UTC.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Obligation is a recurring income or expense rule. NextOccurrence is the
	// single mutable scheduling cursor; everything else changes only through
	// explicit edits.
	Obligation struct {
		ID               int64
		Name             string
		Kind             Kind
		Category         string
		Description      string
		Amount           Money
		Frequency        Frequency
		StartDate        Date
		EndDate          Date // zero when open-ended
		NextOccurrence   Date
		IsActive         bool
		LastExecuted     Date // zero until first payment
		ExecutionCount   int64
		ReminderLeadDays int // expense only, informational
	}

	// Contribution is the local record of a ledger posting created when an
	// obligation was paid. The posting itself lives in the ledger collaborator.
	Contribution struct {
		PostingID    string
		ObligationID int64
		Date         Date
		Amount       Money
	}
)

var (
	ErrEmptyName         = errors.New("empty name")
	ErrInvalidKind       = errors.New("invalid kind")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidFrequency  = errors.New("invalid frequency")
	ErrInvalidDate       = errors.New("invalid date")
	ErrEndBeforeStart    = errors.New("end date before start date")
	ErrCursorBeforeStart = errors.New("next occurrence before start date")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// IsEmpty reports whether the date is unset (used for optional dates).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (f Frequency) Validate() error {
	switch f {
	case Weekly, Monthly, Quarterly, Yearly:
		return nil
	default:
		return ErrInvalidFrequency
	}
}

func (k Kind) Validate() error {
	switch k {
	case Income, Expense:
		return nil
	default:
		return ErrInvalidKind
	}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (o Obligation) Validate() error {
	if len(strings.TrimSpace(o.Name)) == 0 {
		return ErrEmptyName
	}
	if len(o.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}

	if err := o.Kind.Validate(); err != nil {
		return err
	}
	if err := o.Amount.Validate(); err != nil {
		return err
	}
	if err := o.Frequency.Validate(); err != nil {
		return err
	}

	if err := o.StartDate.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}

	// End date is optional; when present it must not precede the start.
	if !o.EndDate.IsZero() && o.EndDate.Before(o.StartDate.Time) {
		return ErrEndBeforeStart
	}

	if !o.NextOccurrence.IsZero() && o.NextOccurrence.Before(o.StartDate.Time) {
		return ErrCursorBeforeStart
	}

	if len(o.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}

	return nil
}
