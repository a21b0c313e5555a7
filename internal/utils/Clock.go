package utils

import "time"

// Clock is the source of "today" for new entries and the empty-budget anchor.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (s SystemClock) Now() time.Time {
	return time.Now()
}

type MockClock struct {
	FixedNow time.Time
}

func NewMockClock(year int, month time.Month, day int) *MockClock {
	return &MockClock{FixedNow: time.Date(year, month, day, 12, 0, 0, 0, time.UTC)}
}

func (m *MockClock) Now() time.Time {
	return m.FixedNow
}

func (m *MockClock) SetNow(now time.Time) {
	m.FixedNow = now
}

// AddDays moves the mock clock forward, or backward for negative n.
func (m *MockClock) AddDays(n int) {
	m.FixedNow = m.FixedNow.AddDate(0, 0, n)
}
