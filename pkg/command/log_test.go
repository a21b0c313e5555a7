package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spendlog/spendlog/internal/event_bus"
	"github.com/spendlog/spendlog/internal/utils"
	"github.com/spendlog/spendlog/pkg/ledger"
	"github.com/spendlog/spendlog/pkg/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageSize = 3

type fixture struct {
	ctx     context.Context
	store   *record.StubStore
	session *ledger.Session
	log     *Log
	bus     *event_bus.EventBus
}

func setup(t *testing.T, entries ...record.Entry) fixture {
	ctx := context.Background()
	bus := event_bus.NewEventBus()
	store := record.NewStubStore(entries...)
	session := ledger.NewSession("household", store, utils.NewMockClock(2024, time.March, 10), bus, pageSize)
	require.NoError(t, session.Reload(ctx))
	return fixture{ctx: ctx, store: store, session: session, log: NewLog(session, bus), bus: bus}
}

func spend(date string, reason string, amount string) record.Entry {
	e, err := record.ParseEntry(date, reason, amount)
	if err != nil {
		panic(err)
	}
	return e
}

func enter(t *testing.T, date, reason, amount string) *EnterRecord {
	c, err := NewEnterRecord(date, reason, amount)
	require.NoError(t, err)
	return c
}

func jumpToDate(t *testing.T, date string) *JumpToDate {
	c, err := NewJumpToDate(date, pageSize)
	require.NoError(t, err)
	return c
}

func contents(t *testing.T, f fixture) []string {
	all, err := f.store.All(f.ctx)
	require.NoError(t, err)
	out := make([]string, len(all))
	for i, r := range all {
		out[i] = r.Entry.String()
	}
	return out
}

func TestEnterRecord_OnEmptyBudget(t *testing.T) {
	// given
	f := setup(t)
	c := enter(t, "2024-01-05", "Groceries", "42.50")

	// when
	err := f.log.Issue(f.ctx, c)

	// then
	require.NoError(t, err)
	count, _ := f.store.Count(f.ctx)
	assert.Equal(t, 1, count)
	total, err := f.store.MonthlyTotal(f.ctx, record.YearMonth{Year: 2024, Month: time.January})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("42.50").Equal(total), total.String())

	// the form is cleared and the view follows the new record
	assert.Equal(t, ledger.Fields{Date: "2024-03-10"}, f.session.Fields())
	assert.Len(t, f.session.Page().Records, 1)
	assert.True(t, decimal.RequireFromString("42.5").Equal(f.session.Page().MonthlyTotal))
	assert.Equal(t, record.YearMonth{Year: 2024, Month: time.January}, f.session.ViewMonth())
}

func TestLog_UndoTwiceThenRedo(t *testing.T) {
	// given
	f := setup(t)
	a := enter(t, "2024-01-05", "A", "1")
	b := enter(t, "2024-01-06", "B", "2")
	require.NoError(t, f.log.Issue(f.ctx, a))
	require.NoError(t, f.log.Issue(f.ctx, b))

	// when
	require.NoError(t, f.log.Undo(f.ctx))
	assert.Equal(t, a.Fields(), f.session.Fields())
	require.NoError(t, f.log.Undo(f.ctx))

	// then
	assert.Empty(t, contents(t, f))
	assert.Equal(t, ledger.Fields{Date: "2024-03-10"}, f.session.Fields())

	require.NoError(t, f.log.Redo(f.ctx))
	assert.Equal(t, []string{a.Entry().String()}, contents(t, f))
	assert.Equal(t, 1, f.log.Index())
	assert.Equal(t, 2, f.log.Len())
}

func TestLog_UndoAndRedoAtTheEdges(t *testing.T) {
	f := setup(t)

	assert.NoError(t, f.log.Undo(f.ctx))
	assert.NoError(t, f.log.Redo(f.ctx))
	assert.Equal(t, 0, f.log.Index())

	require.NoError(t, f.log.Issue(f.ctx, enter(t, "2024-01-05", "A", "1")))
	assert.NoError(t, f.log.Redo(f.ctx))
	assert.Equal(t, 1, f.log.Index())
	assert.Len(t, contents(t, f), 1)
}

func TestLog_IssueThenUndoRestoresStoreAndCursor(t *testing.T) {
	// given
	f := setup(t,
		spend("2024-01-01", "rent", "850"),
		spend("2024-01-03", "coffee", "3"),
		spend("2024-01-04", "lunch", "12"),
		spend("2024-01-08", "fuel", "60"),
	)
	before := contents(t, f)
	cursor := f.session.Cursor()
	commands := []Command{
		enter(t, "2024-01-09", "cinema", "9"),
		jumpToDate(t, "2024-01-03"),
		jumpToDate(t, "2024-01-04"),
		enter(t, "2024-01-02", "books", "25"),
	}
	for _, c := range commands {
		require.NoError(t, f.log.Issue(f.ctx, c))
	}
	require.NotEqual(t, before, contents(t, f))

	// when
	for range commands {
		require.NoError(t, f.log.Undo(f.ctx))
	}

	// then
	assert.Equal(t, before, contents(t, f))
	assert.Equal(t, cursor, f.session.Cursor())
	assert.Equal(t, 0, f.log.Index())
}

func TestLog_RedoReplaysTheEffect(t *testing.T) {
	f := setup(t, spend("2024-01-01", "rent", "850"), spend("2024-01-02", "gas", "40"))
	c := jumpToDate(t, "2024-01-01")
	require.NoError(t, f.log.Issue(f.ctx, c))
	executed := f.session.Page()

	require.NoError(t, f.log.Undo(f.ctx))
	require.NoError(t, f.log.Redo(f.ctx))

	assert.Equal(t, executed.Records, f.session.Page().Records)
	assert.True(t, record.NewDate(2024, time.January, 1).Equal(f.session.ViewDate()))
}

func TestLog_IssueTruncatesUndoneCommands(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.log.Issue(f.ctx, enter(t, "2024-01-05", "A", "1")))
	require.NoError(t, f.log.Issue(f.ctx, enter(t, "2024-01-06", "B", "2")))
	require.NoError(t, f.log.Undo(f.ctx))

	require.NoError(t, f.log.Issue(f.ctx, enter(t, "2024-01-07", "C", "3")))

	assert.Equal(t, 2, f.log.Len())
	assert.False(t, f.log.CanRedo())
	assert.Len(t, contents(t, f), 2)
}

func TestLog_ConstructionFailureLeavesHistoryAlone(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.log.Issue(f.ctx, enter(t, "2024-01-05", "A", "1")))

	_, err := NewEnterRecord("2024-01-06", "", "2")
	var parseErr *record.ParseError
	assert.ErrorAs(t, err, &parseErr)
	_, err = NewJumpToMonth("sometime", pageSize)
	assert.ErrorAs(t, err, &parseErr)
	_, err = NewJumpToRecord(0, pageSize)
	var rangeErr *record.OutOfRangeError
	assert.ErrorAs(t, err, &rangeErr)

	assert.ErrorIs(t, f.log.Issue(f.ctx, nil), ErrNilCommand)
	assert.Equal(t, 1, f.log.Len())
	assert.Equal(t, 1, f.log.Index())
}

func TestLog_ExecuteFailureRestoresHistory(t *testing.T) {
	// given
	f := setup(t)
	a := enter(t, "2024-01-05", "A", "1")
	require.NoError(t, f.log.Issue(f.ctx, a))
	require.NoError(t, f.log.Undo(f.ctx))
	f.store.Err = errors.New("disk full")

	// when
	err := f.log.Issue(f.ctx, enter(t, "2024-01-06", "B", "2"))

	// then
	var storageErr *record.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, 0, f.log.Index())
	assert.Equal(t, 1, f.log.Len())
	require.NoError(t, f.log.Redo(f.ctx))
	assert.Equal(t, []string{a.Entry().String()}, contents(t, f))
}

func TestLog_FailedUndoKeepsIndex(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.log.Issue(f.ctx, enter(t, "2024-01-05", "A", "1")))
	f.store.Err = errors.New("disk full")

	err := f.log.Undo(f.ctx)

	assert.Error(t, err)
	assert.Equal(t, 1, f.log.Index())
	assert.Len(t, contents(t, f), 1)
}

// flakyReadStore fails every LastDate while failReads is set.
type flakyReadStore struct {
	*record.StubStore
	failReads bool
}

func (s *flakyReadStore) LastDate(ctx context.Context) (record.Date, error) {
	if s.failReads {
		return record.Date{}, &record.StorageError{Op: "last date", Err: errors.New("connection reset")}
	}
	return s.StubStore.LastDate(ctx)
}

func TestLog_SavedRecordStaysUndoableWhenReloadFails(t *testing.T) {
	// given
	ctx := context.Background()
	store := &flakyReadStore{StubStore: record.NewStubStore()}
	bus := event_bus.NewEventBus()
	session := ledger.NewSession("household", store, utils.NewMockClock(2024, time.March, 10), bus, pageSize)
	l := NewLog(session, bus)
	store.failReads = true

	// when
	err := l.Issue(ctx, enter(t, "2024-03-01", "rent", "850"))

	// then
	var storageErr *record.StorageError
	require.ErrorAs(t, err, &storageErr)
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, 1, l.Index())
	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// when
	err = l.Undo(ctx)

	// then
	assert.ErrorAs(t, err, &storageErr)
	assert.Equal(t, 0, l.Index())
	count, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	// when
	store.failReads = false
	err = l.Redo(ctx)

	// then
	require.NoError(t, err)
	assert.Equal(t, 1, l.Index())
	assert.Len(t, session.Page().Records, 1)
}

func TestLog_FindPreviousOfType(t *testing.T) {
	f := setup(t, spend("2024-01-01", "rent", "850"))
	first := jumpToDate(t, "2024-01-01")
	entry := enter(t, "2024-01-02", "gas", "40")
	second := jumpToDate(t, "2024-01-02")
	for _, c := range []Command{first, entry, second} {
		require.NoError(t, f.log.Issue(f.ctx, c))
	}

	assert.Same(t, first, f.log.FindPreviousOfType(KindJumpToDate))
	assert.Same(t, entry, f.log.FindPreviousOfType(KindEnterRecord))
	assert.Nil(t, f.log.FindPreviousOfType(KindJumpToMonth))
}

func TestJumpToMonth_UndoReturnsToPreviousMonth(t *testing.T) {
	f := setup(t,
		spend("2023-12-20", "gifts", "100"),
		spend("2024-01-15", "rent", "850"),
		spend("2024-02-10", "gas", "40"),
	)
	december, err := NewJumpToMonth("2023-12", pageSize)
	require.NoError(t, err)
	january, err := NewJumpToMonth("2024-jan", pageSize)
	require.NoError(t, err)
	require.NoError(t, f.log.Issue(f.ctx, december))
	require.NoError(t, f.log.Issue(f.ctx, january))
	assert.True(t, record.NewDate(2024, time.January, 31).Equal(f.session.ViewDate()))

	require.NoError(t, f.log.Undo(f.ctx))
	assert.Equal(t, record.YearMonth{Year: 2023, Month: time.December}, f.session.ViewMonth())

	// without an earlier month jump the view falls back to the month of the last record
	require.NoError(t, f.log.Undo(f.ctx))
	assert.Equal(t, record.YearMonth{Year: 2024, Month: time.February}, f.session.ViewMonth())
}

func TestJumpToRecord_PagesAndUndo(t *testing.T) {
	f := setup(t,
		spend("2024-01-01", "a", "1"),
		spend("2024-01-02", "b", "1"),
		spend("2024-01-03", "c", "1"),
		spend("2024-01-04", "d", "1"),
		spend("2024-01-05", "e", "1"),
	)
	initial := f.session.Cursor()

	target, err := f.session.ShiftTarget(f.ctx, -pageSize)
	require.NoError(t, err)
	c, err := NewJumpToRecord(target, pageSize)
	require.NoError(t, err)
	require.NoError(t, f.log.Issue(f.ctx, c))
	assert.Equal(t, int64(1), f.session.Cursor())
	assert.Len(t, f.session.Page().Records, 2)

	require.NoError(t, f.log.Undo(f.ctx))
	assert.Equal(t, initial, f.session.Cursor())

	beyond, err := NewJumpToRecord(6, pageSize)
	require.NoError(t, err)
	var rangeErr *record.OutOfRangeError
	assert.ErrorAs(t, f.log.Issue(f.ctx, beyond), &rangeErr)
	assert.Equal(t, 1, f.log.Len())
}

func TestLog_PublishesTransitions(t *testing.T) {
	f := setup(t)
	var executed, reverted []event_bus.CommandApplied
	event_bus.SubscribeTyped(f.bus, event_bus.CommandExecutedType, func(e event_bus.EventT[event_bus.CommandApplied]) error {
		executed = append(executed, e.Data)
		return nil
	})
	event_bus.SubscribeTyped(f.bus, event_bus.CommandRevertedType, func(e event_bus.EventT[event_bus.CommandApplied]) error {
		reverted = append(reverted, e.Data)
		return nil
	})
	c := enter(t, "2024-01-05", "A", "1")

	require.NoError(t, f.log.Issue(f.ctx, c))
	require.NoError(t, f.log.Undo(f.ctx))
	require.NoError(t, f.log.Redo(f.ctx))

	require.Len(t, executed, 2)
	require.Len(t, reverted, 1)
	assert.Equal(t, c.ID(), executed[0].ID)
	assert.Equal(t, string(KindEnterRecord), executed[0].Kind)
	assert.Equal(t, 0, reverted[0].Index)
	assert.Equal(t, 1, executed[1].Index)
}
