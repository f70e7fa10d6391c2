package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Expense  RecordType = "expense"
	Income   RecordType = "income"
	Transfer RecordType = "transfer"
)

const (
	CardAccount     AccountType = "card"
	CheckingAccount AccountType = "checking"
)

type (
	// RecordType carries the economic sign of a transaction. Stored amounts
	// are non-negative after classification; the direction lives here.
	RecordType string

	// AccountType identifies the kind of institution export a row came from.
	AccountType string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// SourceRow is a normalized but unclassified row: the output of the
	// source adapter and the unit the deduplicator works on. Amount keeps the
	// sign from the originating export; classification resolves it into a
	// RecordType.
	SourceRow struct {
		Date        Date
		Description string
		Amount      Money
		Category    string
		Account     string
		AccountType AccountType
		// Seq is assigned by the deduplicator: ordinal among identical
		// (Date, Description, Amount, Account) rows within one source file.
		Seq int
	}

	// Transaction is one canonical record produced by the merge step.
	// Seq is the ordinal rank among rows sharing (Date, Description, Amount,
	// Account) within a single source file, so legitimate same-day repeats
	// survive deduplication.
	Transaction struct {
		Date        Date
		Description string
		Amount      Money
		Category    string
		Account     string
		AccountType AccountType
		RecordType  RecordType
		Seq         int
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrNotFound         = errors.New("not found")
)

func (rt RecordType) Valid() bool {
	switch rt {
	case Expense, Income, Transfer:
		return true
	}
	return false
}

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Key returns the date formatted as YYYY-MM-DD, the form used in dedup keys
// and override match keys.
func (d Date) Key() string {
	return d.Format("2006-01-02")
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// Month is a calendar month used for baselines and coverage counting.
type Month struct {
	Year int
	Mon  time.Month
}

func MonthOf(d Date) Month {
	return Month{Year: d.Time.Year(), Mon: d.Time.Month()}
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Mon))
}

// Prev returns the month immediately before m.
func (m Month) Prev() Month {
	if m.Mon == time.January {
		return Month{Year: m.Year - 1, Mon: time.December}
	}
	return Month{Year: m.Year, Mon: m.Mon - 1}
}

// Before reports whether m is strictly earlier than other.
func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Mon < other.Mon
}

// ParseMonth parses a YYYY-MM string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q", s)
	}
	return Month{Year: t.Year(), Mon: t.Month()}, nil
}

func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

// Float returns the amount in currency units. For display and export only;
// comparisons stay in cents.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

func (m Money) String() string {
	neg := m.Cents < 0
	c := m.Cents
	if neg {
		c = -c
	}
	s := fmt.Sprintf("%d.%02d", c/100, c%100)
	if neg {
		return "-" + s
	}
	return s
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if !t.RecordType.Valid() {
		return fmt.Errorf("invalid record type %q", t.RecordType)
	}
	if t.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}
