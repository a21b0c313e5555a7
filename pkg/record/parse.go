package record

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dateLayouts accepts two- or four-digit years, numeric or named months and unpadded days.
var dateLayouts = func() []string {
	var layouts []string
	for _, y := range []string{"06", "2006"} {
		for _, m := range []string{"1", "Jan", "January"} {
			layouts = append(layouts, y+"-"+m+"-2")
		}
	}
	return layouts
}()

var budgetNamePattern = regexp.MustCompile(`^[A-Za-z0-9_\- ]{1,64}$`)

// reservedBudgetNames are tables the registry and the migrations own.
var reservedBudgetNames = map[string]bool{
	"budget":            true,
	"schema_migrations": true,
}

// ParseDate converts user input such as "2024-01-05", "24-1-5" or "2024-jan-5" into a Date.
func ParseDate(s string) (Date, error) {
	in := strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, in)
		if err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, &ParseError{Field: "date", Input: s, msg: fmt.Sprintf("%s is not a recognized date", s)}
}

// ParseYearMonth accepts anything ParseDate accepts once a day is appended, e.g. "2024-01" or "24-jan".
func ParseYearMonth(s string) (YearMonth, error) {
	d, err := ParseDate(strings.TrimSpace(s) + "-01")
	if err != nil {
		return YearMonth{}, &ParseError{Field: "year month", Input: s, msg: fmt.Sprintf("%s is not a recognized year month", s)}
	}
	return d.YearMonth(), nil
}

func ParseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Decimal{}, &ParseError{Field: "amount", Input: s, msg: fmt.Sprintf("%s is not a valid number", s)}
	}
	return amount, nil
}

// ParseReason rejects blank reasons. The reason is otherwise kept verbatim.
func ParseReason(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", &ParseError{Field: "reason", Input: s, msg: fmt.Sprintf("%q is not a valid reason: it cannot be blank", s)}
	}
	return s, nil
}

// ParseBudgetName validates a budget name. Budget names become table names.
func ParseBudgetName(s string) (string, error) {
	name := strings.TrimSpace(s)
	if !budgetNamePattern.MatchString(name) {
		return "", &ParseError{Field: "budget name", Input: s}
	}
	if reservedBudgetNames[strings.ToLower(name)] {
		return "", &ParseError{Field: "budget name", Input: s, msg: fmt.Sprintf("%s is a reserved name and cannot be used for a budget", s)}
	}
	return name, nil
}

// ParseEntry parses the three input fields of a new record.
func ParseEntry(date, reason, amount string) (Entry, error) {
	d, err := ParseDate(date)
	if err != nil {
		return Entry{}, err
	}
	r, err := ParseReason(reason)
	if err != nil {
		return Entry{}, err
	}
	a, err := ParseAmount(amount)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Date: d, Reason: r, Amount: a}, nil
}
