package grid

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/spendlog/spendlog/pkg/record"
)

// Column offsets inside a month block.
const (
	dayOffset    = 0
	amountOffset = 1
	reasonOffset = 3
	sumOffset    = 5
	blockWidth   = 7

	headerRow = 1
	totalRow  = 2
	minYear   = 2017
)

// Encode lays records out as consecutive month blocks, in id order.
func Encode(records []record.Record) *Grid {
	sorted := append([]record.Record(nil), records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	g := New()
	var b *block
	for _, rec := range sorted {
		ym := rec.Date.YearMonth()
		if b == nil {
			b = openBlock(g, ym, 1)
		} else if b.month != ym {
			b.close()
			b = openBlock(g, ym, b.col+blockWidth)
		}
		b.add(rec)
	}
	if b != nil {
		b.close()
	}
	return g
}

type block struct {
	g      *Grid
	month  record.YearMonth
	col    int
	row    int
	curDay int
	total  decimal.Decimal
}

func openBlock(g *Grid, ym record.YearMonth, col int) *block {
	g.Set(headerRow, col+dayOffset, fmt.Sprintf("%d %s", ym.Year, headerMonthName(ym.Month)))
	g.Set(headerRow, col+amountOffset, "Amount")
	g.Set(headerRow, col+reasonOffset, "Reason")
	g.Set(headerRow, col+sumOffset, "Sum")
	return &block{g: g, month: ym, col: col, row: headerRow, total: decimal.Zero}
}

// add pads the days skipped since the last row, then writes the transaction row.
// Records of one day take one row each.
func (b *block) add(rec record.Record) {
	day := rec.Date.Day()
	for b.curDay < day {
		b.curDay++
		if b.curDay != day {
			b.row++
			b.g.Set(b.row, b.col+dayOffset, b.curDay)
		}
	}
	b.row++
	b.g.Set(b.row, b.col+dayOffset, day)
	b.g.Set(b.row, b.col+amountOffset, rec.Amount.InexactFloat64())
	b.g.Set(b.row, b.col+reasonOffset, rec.Reason)
	b.total = b.total.Add(rec.Amount)
}

func (b *block) close() {
	for last := b.month.Days(); b.curDay < last; {
		b.curDay++
		b.row++
		b.g.Set(b.row, b.col+dayOffset, b.curDay)
	}
	b.g.Set(totalRow, b.col+sumOffset, b.total.InexactFloat64())
}

// Decode reads every month block of g. Columns without a valid month header are ignored,
// and so are rows lacking an amount or a reason, or holding an unreadable day or amount.
func Decode(g *Grid) []record.Entry {
	entries := make([]record.Entry, 0)
	for col := 1; col <= g.Cols(); col++ {
		ym, ok := parseHeader(g.Text(headerRow, col))
		if !ok {
			continue
		}
		for row := headerRow + 1; row <= g.Rows(); row++ {
			e, ok := decodeRow(g, ym, row, col)
			if ok {
				entries = append(entries, e)
			}
		}
	}
	return entries
}

func decodeRow(g *Grid, ym record.YearMonth, row, col int) (record.Entry, bool) {
	dayText := g.Text(row, col+dayOffset)
	amountText := g.Text(row, col+amountOffset)
	reason := g.Text(row, col+reasonOffset)
	if dayText == "" || amountText == "" || reason == "" {
		return record.Entry{}, false
	}

	day, err := parseDay(dayText)
	if err != nil || !ym.IsValidDay(day) {
		log.Debugf("skipping row %d of block %s: bad day %q", row, ym, dayText)
		return record.Entry{}, false
	}
	amount, err := decimal.NewFromString(amountText)
	if err != nil {
		log.Debugf("skipping row %d of block %s: bad amount %q", row, ym, amountText)
		return record.Entry{}, false
	}
	return record.Entry{Date: ym.Date(day), Reason: reason, Amount: amount}, true
}

// parseDay accepts "5" as well as "5.0", which spreadsheets produce for numeric cells.
func parseDay(s string) (int, error) {
	if day, err := strconv.Atoi(s); err == nil {
		return day, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%s is not a whole day", s)
	}
	return int(f), nil
}

// parseHeader reads a "<year> <month>" block header.
func parseHeader(s string) (record.YearMonth, bool) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return record.YearMonth{}, false
	}
	year, err := strconv.Atoi(fields[0])
	if err != nil || year < minYear {
		return record.YearMonth{}, false
	}
	month, ok := lookupMonth(fields[1])
	if !ok {
		return record.YearMonth{}, false
	}
	return record.YearMonth{Year: year, Month: month}, true
}

// Import inserts every entry decoded from g into store as one unit of work.
func Import(ctx context.Context, g *Grid, store record.Store) (int, error) {
	entries := Decode(g)
	err := store.WithTransaction(ctx, func(tx record.Store) error {
		for _, e := range entries {
			if _, err := tx.Insert(ctx, e); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("import failed: %w", err)
	}
	log.Infof("imported %d records", len(entries))
	return len(entries), nil
}
