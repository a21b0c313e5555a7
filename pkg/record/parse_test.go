package record

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  Date
	}{
		{"2024-01-05", NewDate(2024, time.January, 5)},
		{"2024-1-5", NewDate(2024, time.January, 5)},
		{"24-1-5", NewDate(2024, time.January, 5)},
		{"2024-Jan-5", NewDate(2024, time.January, 5)},
		{"2024-March-31", NewDate(2024, time.March, 31)},
		{"  2023-12-31 ", NewDate(2023, time.December, 31)},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestParseDate_RejectsInvalidInput(t *testing.T) {
	for _, input := range []string{"", "yesterday", "2024-02-30", "2024-13-01", "05/01/2024"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseDate(input)

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, "date", parseErr.Field)
			assert.Contains(t, err.Error(), input)
		})
	}
}

func TestParseYearMonth(t *testing.T) {
	got, err := ParseYearMonth("2024-02")
	require.NoError(t, err)
	assert.Equal(t, YearMonth{Year: 2024, Month: time.February}, got)

	got, err = ParseYearMonth("23-sep")
	require.NoError(t, err)
	assert.Equal(t, YearMonth{Year: 2023, Month: time.September}, got)

	_, err = ParseYearMonth("2024")
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "2024 is not a recognized year month", err.Error())
}

func TestParseAmount(t *testing.T) {
	amount, err := ParseAmount(" 12.50 ")
	require.NoError(t, err)
	assert.Equal(t, "12.5", amount.String())

	amount, err = ParseAmount("-3")
	require.NoError(t, err)
	assert.Equal(t, "-3", amount.String())

	_, err = ParseAmount("twelve")
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "twelve is not a valid number", err.Error())
}

func TestParseReason(t *testing.T) {
	reason, err := ParseReason(" coffee ")
	require.NoError(t, err)
	assert.Equal(t, " coffee ", reason)

	_, err = ParseReason("   ")
	assert.EqualError(t, err, `"   " is not a valid reason: it cannot be blank`)
}

func TestParseBudgetName(t *testing.T) {
	name, err := ParseBudgetName(" household-2024 ")
	require.NoError(t, err)
	assert.Equal(t, "household-2024", name)

	for _, bad := range []string{"", "drop table;", `a"b`, "x/y"} {
		_, err := ParseBudgetName(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseBudgetName_RejectsRegistryTables(t *testing.T) {
	for _, reserved := range []string{"budget", "Budget", " BUDGET ", "schema_migrations", "Schema_Migrations"} {
		t.Run(reserved, func(t *testing.T) {
			_, err := ParseBudgetName(reserved)

			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Contains(t, err.Error(), reserved)
		})
	}
}

func TestParseEntry(t *testing.T) {
	entry, err := ParseEntry("2024-03-01", "rent", "850")
	require.NoError(t, err)
	assert.True(t, NewDate(2024, time.March, 1).Equal(entry.Date))
	assert.Equal(t, "rent", entry.Reason)
	assert.Equal(t, "850", entry.Amount.String())

	_, err = ParseEntry("2024-03-01", "", "850")
	assert.EqualError(t, err, `"" is not a valid reason: it cannot be blank`)

	_, err = ParseEntry("2024-03-01", "rent", "a lot")
	assert.EqualError(t, err, "a lot is not a valid number")
}

func TestYearMonth_Days(t *testing.T) {
	assert.Equal(t, 29, YearMonth{2024, time.February}.Days())
	assert.Equal(t, 28, YearMonth{2023, time.February}.Days())
	assert.Equal(t, 31, YearMonth{2024, time.December}.Days())
	assert.False(t, YearMonth{2024, time.April}.IsValidDay(31))
	assert.True(t, YearMonth{2024, time.April}.IsValidDay(30))
}
