package record

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store owns the record table of one budget.
type Store interface {
	// Insert appends a record with a fresh id. Ids are never reused.
	Insert(ctx context.Context, entry Entry) (Record, error)
	// DeleteByValue removes every record matching the triple exactly. No match is not an error.
	// Records sharing an identical triple cannot be told apart, so all of them go.
	DeleteByValue(ctx context.Context, entry Entry) error
	Count(ctx context.Context) (int, error)
	// FirstDate is the earliest recorded date.
	FirstDate(ctx context.Context) (Date, error)
	// LastDate is the date of the most recently entered record.
	LastDate(ctx context.Context) (Date, error)
	// DateBefore returns the latest recorded date strictly before d.
	DateBefore(ctx context.Context, d Date) (Date, bool, error)
	RecordsOnDate(ctx context.Context, d Date) ([]Record, error)
	RecordsInMonth(ctx context.Context, ym YearMonth) ([]Record, error)
	// RecordsBeforeOrAtId returns count records ending at the 1-based position id, newest first.
	// Positions equal ids until a record is deleted.
	RecordsBeforeOrAtId(ctx context.Context, id int, count int) ([]Record, error)
	// PositionOf returns the 1-based position of the record with the given id.
	PositionOf(ctx context.Context, id int64) (int, error)
	MonthlyTotal(ctx context.Context, ym YearMonth) (decimal.Decimal, error)
	// All returns every record, oldest first.
	All(ctx context.Context) ([]Record, error)
	// WithTransaction runs fn in one unit of work, committed when fn returns nil and rolled back otherwise.
	WithTransaction(ctx context.Context, fn func(store Store) error) error
}

// Provisioner hands out the Store of a budget, creating its table when missing.
type Provisioner interface {
	Provision(ctx context.Context, budget string) (Store, error)
	// Backend names the database the tables live in.
	Backend() string
}

func checkWindow(id, count, total int) error {
	if count < 0 || id < 1 || id > total || id-count < 0 {
		return &OutOfRangeError{ID: id, Count: count, Total: total}
	}
	return nil
}
