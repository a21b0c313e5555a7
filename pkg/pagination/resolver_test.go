package pagination

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spendlog/spendlog/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) record.Date {
	return record.NewDate(2024, time.January, 1).AddDays(d - 1)
}

func spend(date record.Date, reason string, amount string) record.Entry {
	return record.Entry{Date: date, Reason: reason, Amount: decimal.RequireFromString(amount)}
}

func ids(page Page) []int64 {
	out := make([]int64, len(page.Records))
	for i, r := range page.Records {
		out[i] = r.ID
	}
	return out
}

// dailyStore holds one record per day for n consecutive days starting on 2024-01-01.
func dailyStore(n int) *record.StubStore {
	store := record.NewStubStore()
	for i := 1; i <= n; i++ {
		_, _ = store.Insert(context.Background(), spend(day(i), fmt.Sprintf("day %d", i), "1"))
	}
	return store
}

func TestResolver_ByID(t *testing.T) {
	ctx := context.Background()
	resolver := NewResolver(dailyStore(5))

	for id := 1; id <= 5; id++ {
		for n := 1; n <= 7; n++ {
			page, err := resolver.ByID(ctx, id, n)
			require.NoError(t, err)
			require.Len(t, page.Records, min(n, id), "id %d n %d", id, n)
			assert.Equal(t, int64(id), page.Records[0].ID)
			for i := 1; i < len(page.Records); i++ {
				assert.Greater(t, page.Records[i-1].ID, page.Records[i].ID)
			}
			assert.Equal(t, page.Records[len(page.Records)-1].ID, resolver.Cursor())
		}
	}
}

func TestResolver_ByID_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewResolver(record.NewStubStore()).ByID(ctx, 1, 10)
	assert.ErrorIs(t, err, record.ErrEmptyStore)

	resolver := NewResolver(dailyStore(3))
	_, err = resolver.ByID(ctx, 4, 2)
	var rangeErr *record.OutOfRangeError
	assert.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, int64(0), resolver.Cursor())
}

func TestResolver_ByDate_AnchorsToEarlierMonth(t *testing.T) {
	// given
	ctx := context.Background()
	store := record.NewStubStore(
		spend(record.NewDate(2024, time.January, 5), "groceries", "20"),
		spend(record.NewDate(2024, time.January, 7), "fuel", "40"),
	)
	resolver := NewResolver(store)

	// when
	page, err := resolver.ByDate(ctx, record.NewDate(2024, time.January, 7), 2)

	// then
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, ids(page))
	assert.True(t, page.AnchorChanged)
	assert.Equal(t, record.YearMonth{Year: 2024, Month: time.January}, page.Anchor)
	assert.True(t, decimal.NewFromInt(60).Equal(page.Total))
	assert.Equal(t, int64(1), resolver.Cursor())
}

func TestResolver_ByDate_AnchorCrossesMonth(t *testing.T) {
	ctx := context.Background()
	store := record.NewStubStore(
		spend(record.NewDate(2023, time.December, 30), "gift", "25"),
		spend(record.NewDate(2024, time.January, 2), "coffee", "3"),
	)

	page, err := NewResolver(store).ByDate(ctx, record.NewDate(2024, time.January, 2), 5)

	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, ids(page))
	assert.Equal(t, record.YearMonth{Year: 2023, Month: time.December}, page.Anchor)
	// monthly total follows the first displayed record
	assert.True(t, decimal.NewFromInt(3).Equal(page.MonthlyTotal))
}

func TestResolver_ByDate_KeepsDaysWhole(t *testing.T) {
	ctx := context.Background()
	store := record.NewStubStore(
		spend(day(1), "a", "1"),
		spend(day(2), "b", "1"),
		spend(day(2), "c", "1"),
		spend(day(2), "d", "1"),
		spend(day(3), "e", "1"),
	)

	page, err := NewResolver(store).ByDate(ctx, day(3), 2)

	require.NoError(t, err)
	assert.Equal(t, []int64{5, 4, 3, 2}, ids(page))
	assert.True(t, page.AnchorChanged)
}

func TestResolver_ByDate_NeverShortBeforeFirstDate(t *testing.T) {
	ctx := context.Background()
	// sparse days: 1, 4, 9, 16, 25
	store := record.NewStubStore()
	for i := 1; i <= 5; i++ {
		_, _ = store.Insert(ctx, spend(day(i*i), "x", "1"))
	}
	resolver := NewResolver(store)

	for target := 1; target <= 31; target++ {
		for size := 1; size <= 6; size++ {
			page, err := resolver.ByDate(ctx, day(target), size)
			require.NoError(t, err)

			available := 0
			for i := 1; i <= 5; i++ {
				if i*i <= target {
					available++
				}
			}
			assert.Len(t, page.Records, min(size, available), "target %d size %d", target, size)
		}
	}
}

func TestResolver_ByDate_EmptyStore(t *testing.T) {
	page, err := NewResolver(record.NewStubStore()).ByDate(context.Background(), day(1), 10)

	require.NoError(t, err)
	assert.True(t, page.Empty())
	assert.True(t, page.Total.IsZero())
}

func TestResolver_ByMonth(t *testing.T) {
	ctx := context.Background()
	store := record.NewStubStore(
		spend(record.NewDate(2023, time.February, 27), "a", "1"),
		spend(record.NewDate(2023, time.February, 28), "b", "2"),
		spend(record.NewDate(2023, time.March, 1), "c", "4"),
		spend(record.NewDate(2023, time.April, 30), "d", "8"),
	)
	resolver := NewResolver(store)

	t.Run("february ends on the 28th in a common year", func(t *testing.T) {
		page, err := resolver.ByMonth(ctx, record.YearMonth{Year: 2023, Month: time.February}, 1)
		require.NoError(t, err)
		assert.Equal(t, []int64{2}, ids(page))
	})

	t.Run("thirty day month", func(t *testing.T) {
		page, err := resolver.ByMonth(ctx, record.YearMonth{Year: 2023, Month: time.April}, 1)
		require.NoError(t, err)
		assert.Equal(t, []int64{4}, ids(page))
	})
}

func TestResolver_Shift(t *testing.T) {
	ctx := context.Background()
	resolver := NewResolver(dailyStore(10))
	_, err := resolver.ByID(ctx, 10, 3)
	require.NoError(t, err)

	page, err := resolver.Shift(ctx, -3, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 6, 5}, ids(page))

	page, err = resolver.Shift(ctx, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{8, 7, 6}, ids(page))

	_, err = resolver.Shift(ctx, 3, 3)
	var rangeErr *record.OutOfRangeError
	assert.ErrorAs(t, err, &rangeErr)
}

func TestResolver_ShiftAfterDeletion(t *testing.T) {
	ctx := context.Background()
	store := dailyStore(5)
	require.NoError(t, store.DeleteByValue(ctx, spend(day(2), "day 2", "1")))
	resolver := NewResolver(store)
	_, err := resolver.ByID(ctx, 4, 2) // positions 4 and 3 hold ids 5 and 4

	require.NoError(t, err)
	page, err := resolver.Shift(ctx, -2, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, ids(page))
}
