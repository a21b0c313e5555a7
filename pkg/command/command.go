package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spendlog/spendlog/pkg/ledger"
	"github.com/spendlog/spendlog/pkg/record"
)

type Kind string

const (
	KindEnterRecord  Kind = "enter-record"
	KindJumpToDate   Kind = "jump-to-date"
	KindJumpToMonth  Kind = "jump-to-month"
	KindJumpToRecord Kind = "jump-to-record"
)

// Command is one undoable user action. Execute and Revert may run any number of times.
type Command interface {
	ID() uuid.UUID
	Kind() Kind
	Execute(ctx context.Context, s *ledger.Session) error
	// Revert undoes Execute. prev is the nearest earlier command of the same kind, or nil.
	Revert(ctx context.Context, s *ledger.Session, prev Command) error
	sealed()
}

type base struct {
	id uuid.UUID
}

func newBase() base {
	return base{id: uuid.New()}
}

func (b base) ID() uuid.UUID { return b.id }
func (base) sealed() {}

// staleViewError reports a command whose store change took effect but whose page could not be reloaded.
type staleViewError struct {
	err error
}

func (e *staleViewError) Error() string { return "change saved but page not refreshed: " + e.err.Error() }
func (e *staleViewError) Unwrap() error { return e.err }

// applied tells whether err still leaves the command's store change in place.
func applied(err error) bool {
	var stale *staleViewError
	return errors.As(err, &stale)
}

func checkPageSize(pageSize int) error {
	if pageSize < 1 {
		return &record.ParseError{Field: "page size", Input: fmt.Sprint(pageSize)}
	}
	return nil
}

// EnterRecord adds a record and clears the input form.
type EnterRecord struct {
	base
	entry record.Entry
}

func NewEnterRecord(date, reason, amount string) (*EnterRecord, error) {
	entry, err := record.ParseEntry(date, reason, amount)
	if err != nil {
		return nil, err
	}
	return &EnterRecord{base: newBase(), entry: entry}, nil
}

func (c *EnterRecord) Kind() Kind { return KindEnterRecord }
func (c *EnterRecord) Entry() record.Entry { return c.entry }

// Fields renders the entry the way the input form holds it.
func (c *EnterRecord) Fields() ledger.Fields {
	return ledger.Fields{Date: c.entry.Date.String(), Reason: c.entry.Reason, Amount: c.entry.Amount.String()}
}

func (c *EnterRecord) Execute(ctx context.Context, s *ledger.Session) error {
	if _, err := s.Store().Insert(ctx, c.entry); err != nil {
		return err
	}
	if err := s.SetFields(ctx, s.DefaultFields()); err != nil {
		return &staleViewError{err: err}
	}
	return nil
}

func (c *EnterRecord) Revert(ctx context.Context, s *ledger.Session, prev Command) error {
	if err := s.Store().DeleteByValue(ctx, c.entry); err != nil {
		return err
	}
	fields := s.DefaultFields()
	if p, ok := prev.(*EnterRecord); ok {
		fields = p.Fields()
	}
	if err := s.SetFields(ctx, fields); err != nil {
		return &staleViewError{err: err}
	}
	return nil
}

// JumpToDate shows the page ending on a date.
type JumpToDate struct {
	base
	date     record.Date
	pageSize int
}

func NewJumpToDate(date string, pageSize int) (*JumpToDate, error) {
	d, err := record.ParseDate(date)
	if err != nil {
		return nil, err
	}
	if err := checkPageSize(pageSize); err != nil {
		return nil, err
	}
	return &JumpToDate{base: newBase(), date: d, pageSize: pageSize}, nil
}

func (c *JumpToDate) Kind() Kind { return KindJumpToDate }
func (c *JumpToDate) Date() record.Date { return c.date }

func (c *JumpToDate) Execute(ctx context.Context, s *ledger.Session) error {
	return s.ShowDate(ctx, c.date, c.pageSize)
}

func (c *JumpToDate) Revert(ctx context.Context, s *ledger.Session, prev Command) error {
	if p, ok := prev.(*JumpToDate); ok {
		return s.ShowDate(ctx, p.date, c.pageSize)
	}
	date, err := s.DefaultDate(ctx)
	if err != nil {
		return err
	}
	return s.ShowDate(ctx, date, c.pageSize)
}

// JumpToMonth shows the page ending on the last day of a month.
type JumpToMonth struct {
	base
	month    record.YearMonth
	pageSize int
}

func NewJumpToMonth(yearMonth string, pageSize int) (*JumpToMonth, error) {
	ym, err := record.ParseYearMonth(yearMonth)
	if err != nil {
		return nil, err
	}
	if err := checkPageSize(pageSize); err != nil {
		return nil, err
	}
	return &JumpToMonth{base: newBase(), month: ym, pageSize: pageSize}, nil
}

func (c *JumpToMonth) Kind() Kind { return KindJumpToMonth }
func (c *JumpToMonth) Month() record.YearMonth { return c.month }

func (c *JumpToMonth) Execute(ctx context.Context, s *ledger.Session) error {
	return s.ShowMonth(ctx, c.month, c.pageSize)
}

func (c *JumpToMonth) Revert(ctx context.Context, s *ledger.Session, prev Command) error {
	if p, ok := prev.(*JumpToMonth); ok {
		return s.ShowMonth(ctx, p.month, c.pageSize)
	}
	date, err := s.DefaultDate(ctx)
	if err != nil {
		return err
	}
	return s.ShowMonth(ctx, date.YearMonth(), c.pageSize)
}

// JumpToRecord shows the page ending at a record position.
type JumpToRecord struct {
	base
	id       int
	pageSize int
}

func NewJumpToRecord(id int, pageSize int) (*JumpToRecord, error) {
	if id < 1 {
		return nil, &record.OutOfRangeError{ID: id, Count: pageSize}
	}
	if err := checkPageSize(pageSize); err != nil {
		return nil, err
	}
	return &JumpToRecord{base: newBase(), id: id, pageSize: pageSize}, nil
}

func (c *JumpToRecord) Kind() Kind { return KindJumpToRecord }
func (c *JumpToRecord) Position() int { return c.id }

func (c *JumpToRecord) Execute(ctx context.Context, s *ledger.Session) error {
	return s.ShowRecord(ctx, c.id, c.pageSize)
}

func (c *JumpToRecord) Revert(ctx context.Context, s *ledger.Session, prev Command) error {
	if p, ok := prev.(*JumpToRecord); ok {
		return s.ShowRecord(ctx, p.id, c.pageSize)
	}
	return s.Reload(ctx)
}
