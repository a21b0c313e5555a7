package record

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// StubStore is an in-memory Store for tests of the layers above storage.
type StubStore struct {
	nextId  int64
	records []Record
	// Err, when set, is returned as a StorageError by the next mutating call and then cleared.
	Err error
}

func NewStubStore(entries ...Entry) *StubStore {
	s := &StubStore{}
	for _, e := range entries {
		_, _ = s.Insert(context.Background(), e)
	}
	return s
}

func (s *StubStore) failure(op string) error {
	if s.Err == nil {
		return nil
	}
	err := &StorageError{Op: op, Err: s.Err}
	s.Err = nil
	return err
}

func (s *StubStore) Insert(_ context.Context, entry Entry) (Record, error) {
	if err := s.failure("insert"); err != nil {
		return Record{}, err
	}
	s.nextId++
	rec := Record{ID: s.nextId, Entry: entry}
	s.records = append(s.records, rec)
	return rec, nil
}

func (s *StubStore) DeleteByValue(_ context.Context, entry Entry) error {
	if err := s.failure("delete"); err != nil {
		return err
	}
	kept := s.records[:0]
	for _, r := range s.records {
		if r.Date.Equal(entry.Date) && r.Reason == entry.Reason && r.Amount.Equal(entry.Amount) {
			continue
		}
		kept = append(kept, r)
	}
	s.records = kept
	return nil
}

func (s *StubStore) Count(_ context.Context) (int, error) {
	return len(s.records), nil
}

func (s *StubStore) FirstDate(_ context.Context) (Date, error) {
	if len(s.records) == 0 {
		return Date{}, ErrEmptyStore
	}
	first := s.records[0].Date
	for _, r := range s.records[1:] {
		if r.Date.Before(first) {
			first = r.Date
		}
	}
	return first, nil
}

func (s *StubStore) LastDate(_ context.Context) (Date, error) {
	if len(s.records) == 0 {
		return Date{}, ErrEmptyStore
	}
	return s.records[len(s.records)-1].Date, nil
}

func (s *StubStore) DateBefore(_ context.Context, d Date) (Date, bool, error) {
	var (
		prev  Date
		found bool
	)
	for _, r := range s.records {
		if r.Date.Before(d) && (!found || r.Date.After(prev)) {
			prev, found = r.Date, true
		}
	}
	return prev, found, nil
}

func (s *StubStore) RecordsOnDate(_ context.Context, d Date) ([]Record, error) {
	return s.newestFirst(func(r Record) bool { return r.Date.Equal(d) }), nil
}

func (s *StubStore) RecordsInMonth(_ context.Context, ym YearMonth) ([]Record, error) {
	return s.newestFirst(func(r Record) bool { return r.Date.YearMonth() == ym }), nil
}

func (s *StubStore) RecordsBeforeOrAtId(_ context.Context, id int, count int) ([]Record, error) {
	if err := checkWindow(id, count, len(s.records)); err != nil {
		return nil, err
	}
	window := make([]Record, 0, count)
	for i := id - 1; i >= id-count; i-- {
		window = append(window, s.records[i])
	}
	return window, nil
}

func (s *StubStore) PositionOf(_ context.Context, id int64) (int, error) {
	return sort.Search(len(s.records), func(i int) bool { return s.records[i].ID > id }), nil
}

func (s *StubStore) MonthlyTotal(ctx context.Context, ym YearMonth) (decimal.Decimal, error) {
	records, _ := s.RecordsInMonth(ctx, ym)
	return Sum(records), nil
}

func (s *StubStore) All(_ context.Context) ([]Record, error) {
	return append([]Record(nil), s.records...), nil
}

// WithTransaction restores the previous contents when fn fails.
func (s *StubStore) WithTransaction(_ context.Context, fn func(store Store) error) error {
	snapshot := append([]Record(nil), s.records...)
	nextId := s.nextId
	if err := fn(s); err != nil {
		s.records = snapshot
		s.nextId = nextId
		return err
	}
	return nil
}

func (s *StubStore) newestFirst(match func(Record) bool) []Record {
	out := make([]Record, 0)
	for i := len(s.records) - 1; i >= 0; i-- {
		if match(s.records[i]) {
			out = append(out, s.records[i])
		}
	}
	return out
}

// StubProvisioner hands out one StubStore per budget name.
type StubProvisioner struct {
	Stores map[string]*StubStore
}

func NewStubProvisioner() *StubProvisioner {
	return &StubProvisioner{Stores: make(map[string]*StubStore)}
}

func (p *StubProvisioner) Backend() string {
	return "stub"
}

func (p *StubProvisioner) Provision(_ context.Context, budget string) (Store, error) {
	name, err := ParseBudgetName(budget)
	if err != nil {
		return nil, err
	}
	if _, ok := p.Stores[name]; !ok {
		p.Stores[name] = NewStubStore()
	}
	return p.Stores[name], nil
}
