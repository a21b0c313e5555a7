package event_bus

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spendlog/spendlog/pkg/record"
)

const (
	PageChangedType     EventType = "page.changed"
	CommandExecutedType EventType = "command.executed"
	CommandRevertedType EventType = "command.reverted"
	BudgetOpenedType    EventType = "budget.opened"
)

// PageChanged carries the page a session now displays.
type PageChanged struct {
	Budget       string
	Records      []record.Record
	Total        decimal.Decimal
	MonthlyTotal decimal.Decimal
	// Month is the month the view is anchored to.
	Month  record.YearMonth
	Cursor int64
}

// CommandApplied is published after a command was executed or reverted.
type CommandApplied struct {
	ID   uuid.UUID
	Kind string
	// Index is the history index after the transition.
	Index  int
	Length int
}

type BudgetOpened struct {
	Name    string
	Backend string
	Records int
}
