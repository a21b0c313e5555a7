package record

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

// Date is a calendar date without a time component. It is always kept at UTC midnight.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) YearMonth() YearMonth {
	return YearMonth{Year: d.Year(), Month: d.Month()}
}

func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

// YearMonth identifies a calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// Days returns the number of days in the month.
func (ym YearMonth) Days() int {
	return time.Date(ym.Year, ym.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsValidDay reports whether day exists in the month without normalisation.
func (ym YearMonth) IsValidDay(day int) bool {
	return day >= 1 && day <= ym.Days()
}

func (ym YearMonth) Date(day int) Date {
	return NewDate(ym.Year, ym.Month, day)
}

// Entry is the value triple of a withdrawal. Stores match and delete records by it.
type Entry struct {
	Date   Date
	Reason string
	Amount decimal.Decimal
}

func (e Entry) String() string {
	return fmt.Sprintf("%s %q %s", e.Date, e.Reason, e.Amount.String())
}

// Record is a stored Entry with its store-assigned id.
type Record struct {
	ID int64
	Entry
}

// Sum adds up the amounts of records.
func Sum(records []Record) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total
}
