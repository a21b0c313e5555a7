package pagination

import (
	"context"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/spendlog/spendlog/pkg/record"
)

// Page is what a view displays: records newest first plus its totals.
type Page struct {
	Records []record.Record
	Total   decimal.Decimal
	// MonthlyTotal is the total of the month of the first displayed record.
	MonthlyTotal decimal.Decimal
	// Anchor is the month of the first earlier day the date walk found records on.
	Anchor        record.YearMonth
	AnchorChanged bool
}

func (p Page) Empty() bool {
	return len(p.Records) == 0
}

// Resolver turns navigation targets into pages over one budget's store and keeps the cursor.
type Resolver struct {
	store record.Store
	// cursor is the id of the last record on the current page, top the largest id on it.
	cursor int64
	top    int64
}

func NewResolver(store record.Store) *Resolver {
	return &Resolver{store: store}
}

func (r *Resolver) Cursor() int64 {
	return r.cursor
}

// ByID shows min(pageSize, id) records ending at position id.
func (r *Resolver) ByID(ctx context.Context, id int, pageSize int) (Page, error) {
	count, err := r.store.Count(ctx)
	if err != nil {
		return Page{}, err
	}
	if count == 0 {
		return Page{}, record.ErrEmptyStore
	}

	records, err := r.store.RecordsBeforeOrAtId(ctx, id, min(pageSize, id))
	if err != nil {
		return Page{}, err
	}
	return r.page(ctx, records)
}

// ByDate shows the records of date and, while the page is short, of the preceding recorded days.
// Days are never split, so a page can hold more than pageSize records.
func (r *Resolver) ByDate(ctx context.Context, date record.Date, pageSize int) (Page, error) {
	count, err := r.store.Count(ctx)
	if err != nil {
		return Page{}, err
	}
	if count == 0 {
		return Page{Records: []record.Record{}, Total: decimal.Zero, MonthlyTotal: decimal.Zero}, nil
	}

	first, err := r.store.FirstDate(ctx)
	if err != nil {
		return Page{}, err
	}
	records, err := r.store.RecordsOnDate(ctx, date)
	if err != nil {
		return Page{}, err
	}

	var (
		anchor        record.YearMonth
		anchorChanged bool
	)
	for len(records) < pageSize && !date.Before(first) {
		prev, ok, err := r.store.DateBefore(ctx, date)
		if err != nil {
			return Page{}, err
		}
		if !ok {
			break
		}
		date = prev
		more, err := r.store.RecordsOnDate(ctx, date)
		if err != nil {
			return Page{}, err
		}
		if len(more) > 0 {
			records = append(records, more...)
			if !anchorChanged {
				anchor, anchorChanged = date.YearMonth(), true
			}
		}
	}

	page, err := r.page(ctx, records)
	if err != nil {
		return Page{}, err
	}
	page.Anchor, page.AnchorChanged = anchor, anchorChanged
	return page, nil
}

// monthEndDays are tried in order until one exists in the month.
var monthEndDays = []int{31, 30, 29, 28}

// MonthEnd returns the last day of ym.
func MonthEnd(ym record.YearMonth) (record.Date, error) {
	for _, day := range monthEndDays {
		if ym.IsValidDay(day) {
			return ym.Date(day), nil
		}
	}
	return record.Date{}, &record.ParseError{Field: "year month", Input: ym.String()}
}

// ByMonth shows the page ending on the last day of ym.
func (r *Resolver) ByMonth(ctx context.Context, ym record.YearMonth, pageSize int) (Page, error) {
	end, err := MonthEnd(ym)
	if err != nil {
		return Page{}, err
	}
	return r.ByDate(ctx, end, pageSize)
}

// Offset returns the position delta records away from the top of the current page.
func (r *Resolver) Offset(ctx context.Context, delta int) (int, error) {
	if r.top == 0 {
		return 0, record.ErrEmptyStore
	}
	position, err := r.store.PositionOf(ctx, r.top)
	if err != nil {
		return 0, err
	}
	return position + delta, nil
}

// Shift moves the window delta records from the current page. Positive is newer.
func (r *Resolver) Shift(ctx context.Context, delta int, pageSize int) (Page, error) {
	target, err := r.Offset(ctx, delta)
	if err != nil {
		return Page{}, err
	}
	return r.ByID(ctx, target, pageSize)
}

func (r *Resolver) page(ctx context.Context, records []record.Record) (Page, error) {
	page := Page{Records: records, Total: record.Sum(records), MonthlyTotal: decimal.Zero}
	if len(records) == 0 {
		return page, nil
	}

	monthly, err := r.store.MonthlyTotal(ctx, records[0].Date.YearMonth())
	if err != nil {
		return Page{}, err
	}
	page.MonthlyTotal = monthly

	r.top = records[0].ID
	for _, rec := range records[1:] {
		r.top = max(r.top, rec.ID)
	}
	r.cursor = records[len(records)-1].ID
	log.WithFields(log.Fields{"top": r.top, "cursor": r.cursor}).Debug("page resolved")
	return page, nil
}
