package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"
	"github.com/spendlog/spendlog/internal/config"
	"github.com/spendlog/spendlog/internal/event_bus"
	"github.com/spendlog/spendlog/pkg/budget"
	"github.com/spendlog/spendlog/pkg/command"
	"github.com/spendlog/spendlog/pkg/record"
)

var errQuit = errors.New("quit")

const helpText = `commands:
  add [date] <amount> <reason>   enter a record (date defaults to the form date)
  date <yyyy-mm-dd>              show the records up to a date
  month <yyyy-mm>                show the records up to the end of a month
  record <n>                     show the records up to the n-th record
  next | prev                    move one record forward or back
  next-page | prev-page          move one page forward or back
  undo | redo
  new <budget>                   create a budget and switch to it
  open <budget|file>             open a budget, a .bp descriptor or import a .xlsx/.csv file
  export <xlsx|csv> [budget]     write a budget to the data directory
  budgets                        list budgets
  help
  quit`

type handlerFunc func(ctx context.Context, args []string) error

// Console is the line-oriented front end over the command log and the budget service.
type Console struct {
	in       *bufio.Scanner
	out      io.Writer
	deps     *Dependencies
	envPath  string
	handlers map[string]handlerFunc
}

func NewConsole(in io.Reader, out io.Writer, deps *Dependencies, envPath string) *Console {
	c := &Console{
		in:      bufio.NewScanner(in),
		out:     out,
		deps:    deps,
		envPath: envPath,
	}
	c.handlers = map[string]handlerFunc{
		"add":       c.add,
		"date":      c.jumpToDate,
		"month":     c.jumpToMonth,
		"record":    c.jumpToRecord,
		"next":      c.shift(1, false),
		"prev":      c.shift(-1, false),
		"next-page": c.shift(1, true),
		"prev-page": c.shift(-1, true),
		"undo":      func(ctx context.Context, _ []string) error { return c.deps.CommandLog.Undo(ctx) },
		"redo":      func(ctx context.Context, _ []string) error { return c.deps.CommandLog.Redo(ctx) },
		"new":       c.newBudget,
		"open":      c.open,
		"export":    c.export,
		"budgets":   c.listBudgets,
		"help":      c.help,
		"quit":      func(context.Context, []string) error { return errQuit },
		"exit":      func(context.Context, []string) error { return errQuit },
	}

	event_bus.SubscribeTyped(deps.Bus, event_bus.PageChangedType, func(e event_bus.EventT[event_bus.PageChanged]) error {
		return c.renderPage(e.Data)
	})
	event_bus.SubscribeTyped(deps.Bus, event_bus.BudgetOpenedType, func(e event_bus.EventT[event_bus.BudgetOpened]) error {
		_, err := fmt.Fprintf(c.out, "opened budget %s on %s, %d records\n", e.Data.Name, e.Data.Backend, e.Data.Records)
		return err
	})
	return c
}

// Run shows the active budget, then executes one command per input line until quit or end of input.
// Command errors are printed and do not stop the loop.
func (c *Console) Run(ctx context.Context) error {
	if err := c.deps.Session.Reload(ctx); err != nil {
		return err
	}
	for {
		fmt.Fprint(c.out, "> ")
		if !c.in.Scan() {
			fmt.Fprintln(c.out)
			return c.in.Err()
		}
		err := c.Execute(ctx, c.in.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
	}
}

// Execute runs a single console line.
func (c *Console) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	h, ok := c.handlers[strings.ToLower(fields[0])]
	if !ok {
		return fmt.Errorf("unknown command %q, type help", fields[0])
	}
	log.Debugf("console: %s", line)
	return h(ctx, fields[1:])
}

func (c *Console) issue(ctx context.Context, cmd command.Command, err error) error {
	if err != nil {
		return err
	}
	return c.deps.CommandLog.Issue(ctx, cmd)
}

func (c *Console) add(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: add [date] <amount> <reason>")
	}
	date := c.deps.Session.Fields().Date
	if len(args) >= 3 {
		if _, err := record.ParseDate(args[0]); err == nil {
			date, args = args[0], args[1:]
		}
	}
	cmd, err := command.NewEnterRecord(date, strings.Join(args[1:], " "), args[0])
	return c.issue(ctx, cmd, err)
}

func (c *Console) jumpToDate(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: date <yyyy-mm-dd>")
	}
	cmd, err := command.NewJumpToDate(args[0], c.deps.Session.PageSize())
	return c.issue(ctx, cmd, err)
}

func (c *Console) jumpToMonth(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: month <yyyy-mm>")
	}
	cmd, err := command.NewJumpToMonth(args[0], c.deps.Session.PageSize())
	return c.issue(ctx, cmd, err)
}

func (c *Console) jumpToRecord(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: record <n>")
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return &record.ParseError{Field: "record number", Input: args[0]}
	}
	cmd, err := command.NewJumpToRecord(n, c.deps.Session.PageSize())
	return c.issue(ctx, cmd, err)
}

func (c *Console) shift(direction int, page bool) handlerFunc {
	return func(ctx context.Context, _ []string) error {
		delta := direction
		if page {
			delta *= c.deps.Session.PageSize()
		}
		target, err := c.deps.Session.ShiftTarget(ctx, delta)
		if err != nil {
			return err
		}
		cmd, err := command.NewJumpToRecord(target, c.deps.Session.PageSize())
		return c.issue(ctx, cmd, err)
	}
}

func (c *Console) newBudget(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: new <budget>")
	}
	b, store, err := c.deps.BudgetService.Create(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	return c.switchTo(ctx, b.Name, store)
}

func (c *Console) open(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: open <budget|file>")
	}
	target := strings.Join(args, " ")
	var (
		b     budget.Budget
		store record.Store
		err   error
	)
	if filepath.Ext(target) != "" {
		b, store, err = c.deps.BudgetService.OpenPath(ctx, target)
	} else {
		b, store, err = c.deps.BudgetService.Open(ctx, target)
	}
	if err != nil {
		return err
	}
	return c.switchTo(ctx, b.Name, store)
}

// switchTo activates a budget. The command history is kept, and undo and redo act on the new budget.
func (c *Console) switchTo(ctx context.Context, name string, store record.Store) error {
	if err := c.deps.Session.Switch(ctx, name, store); err != nil {
		return err
	}
	if err := config.SaveCurrentBudget(c.envPath, name); err != nil {
		log.Warnf("could not remember budget %s: %v", name, err)
	}
	return nil
}

func (c *Console) export(ctx context.Context, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return errors.New("usage: export <xlsx|csv> [budget]")
	}
	format, err := budget.ParseFormat(strings.ToLower(args[0]))
	if err != nil {
		return err
	}
	name := c.deps.Session.Budget()
	if len(args) == 2 {
		name = args[1]
	}
	path, err := c.deps.BudgetService.Export(ctx, name, format)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.out, "exported %s to %s\n", name, path)
	return err
}

func (c *Console) listBudgets(ctx context.Context, _ []string) error {
	budgets, err := c.deps.BudgetService.List(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	for _, b := range budgets {
		marker := " "
		if b.Name == c.deps.Session.Budget() {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s\t%s\n", marker, b.Name, b.CreatedAt.Format("2006-01-02"))
	}
	return w.Flush()
}

func (c *Console) help(context.Context, []string) error {
	_, err := fmt.Fprintln(c.out, helpText)
	return err
}

func (c *Console) renderPage(p event_bus.PageChanged) error {
	fmt.Fprintf(c.out, "%s  month %s: %s  page: %s\n", p.Budget, p.Month, p.MonthlyTotal.StringFixed(2), p.Total.StringFixed(2))
	if len(p.Records) == 0 {
		_, err := fmt.Fprintln(c.out, "  (no records)")
		return err
	}
	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "id\tdate\tamount\treason")
	for _, r := range p.Records {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ID, r.Date, r.Amount.StringFixed(2), r.Reason)
	}
	return w.Flush()
}
