package ledger

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"github.com/spendlog/spendlog/internal/event_bus"
	"github.com/spendlog/spendlog/internal/utils"
	"github.com/spendlog/spendlog/pkg/pagination"
	"github.com/spendlog/spendlog/pkg/record"
)

// Fields is the raw content of the new-record input form.
type Fields struct {
	Date   string
	Reason string
	Amount string
}

// Session is the state commands act on: the active budget, its navigation and the input form.
type Session struct {
	budget   string
	store    record.Store
	resolver *pagination.Resolver
	clock    utils.Clock
	bus      *event_bus.EventBus
	pageSize int

	fields    Fields
	viewDate  record.Date
	viewMonth record.YearMonth
	page      pagination.Page
}

func NewSession(budget string, store record.Store, clock utils.Clock, bus *event_bus.EventBus, pageSize int) *Session {
	s := &Session{
		budget:   budget,
		store:    store,
		resolver: pagination.NewResolver(store),
		clock:    clock,
		bus:      bus,
		pageSize: pageSize,
	}
	s.fields = s.DefaultFields()
	s.viewDate = s.Today()
	s.viewMonth = s.viewDate.YearMonth()
	return s
}

func (s *Session) Budget() string { return s.budget }
func (s *Session) Store() record.Store { return s.store }
func (s *Session) PageSize() int { return s.pageSize }
func (s *Session) Page() pagination.Page { return s.page }
func (s *Session) Fields() Fields { return s.fields }
func (s *Session) ViewDate() record.Date { return s.viewDate }
func (s *Session) ViewMonth() record.YearMonth { return s.viewMonth }
func (s *Session) Cursor() int64 { return s.resolver.Cursor() }
func (s *Session) Today() record.Date { return record.DateOf(s.clock.Now()) }
func (s *Session) DefaultFields() Fields { return Fields{Date: s.Today().String()} }

// DefaultDate is the date of the most recently entered record, or today for an empty budget.
func (s *Session) DefaultDate(ctx context.Context) (record.Date, error) {
	last, err := s.store.LastDate(ctx)
	if errors.Is(err, record.ErrEmptyStore) {
		return s.Today(), nil
	}
	return last, err
}

// SetFields replaces the input form and reloads the view.
func (s *Session) SetFields(ctx context.Context, fields Fields) error {
	s.fields = fields
	return s.Reload(ctx)
}

// Reload anchors the view on the default date.
func (s *Session) Reload(ctx context.Context) error {
	date, err := s.DefaultDate(ctx)
	if err != nil {
		return err
	}
	page, err := s.resolver.ByDate(ctx, date, s.pageSize)
	if err != nil {
		return err
	}
	s.viewDate, s.viewMonth = date, date.YearMonth()
	s.show(ctx, page)
	return nil
}

func (s *Session) ShowDate(ctx context.Context, date record.Date, pageSize int) error {
	page, err := s.resolver.ByDate(ctx, date, pageSize)
	if err != nil {
		return err
	}
	s.viewDate = date
	if page.AnchorChanged {
		s.viewMonth = page.Anchor
	}
	s.show(ctx, page)
	return nil
}

func (s *Session) ShowMonth(ctx context.Context, ym record.YearMonth, pageSize int) error {
	end, err := pagination.MonthEnd(ym)
	if err != nil {
		return err
	}
	page, err := s.resolver.ByDate(ctx, end, pageSize)
	if err != nil {
		return err
	}
	s.viewDate, s.viewMonth = end, ym
	s.show(ctx, page)
	return nil
}

// ShowRecord shows the window ending at position id.
func (s *Session) ShowRecord(ctx context.Context, id int, pageSize int) error {
	page, err := s.resolver.ByID(ctx, id, pageSize)
	if err != nil {
		return err
	}
	s.show(ctx, page)
	return nil
}

// ShiftTarget returns the position delta records from the top of the current page.
func (s *Session) ShiftTarget(ctx context.Context, delta int) (int, error) {
	return s.resolver.Offset(ctx, delta)
}

// Switch makes store the active budget and shows its latest records.
func (s *Session) Switch(ctx context.Context, budget string, store record.Store) error {
	previous, previousStore, previousResolver := s.budget, s.store, s.resolver
	s.budget, s.store, s.resolver = budget, store, pagination.NewResolver(store)
	if err := s.Reload(ctx); err != nil {
		s.budget, s.store, s.resolver = previous, previousStore, previousResolver
		return err
	}
	log.Infof("switched from budget %s to %s", previous, budget)
	return nil
}

func (s *Session) show(ctx context.Context, page pagination.Page) {
	s.page = page
	err := s.bus.Publish(event_bus.NewEvent(ctx, event_bus.PageChangedType, event_bus.PageChanged{
		Budget:       s.budget,
		Records:      page.Records,
		Total:        page.Total,
		MonthlyTotal: page.MonthlyTotal,
		Month:        s.viewMonth,
		Cursor:       s.resolver.Cursor(),
	}))
	if err != nil {
		log.Warnf("page listeners failed: %v", err)
	}
}
