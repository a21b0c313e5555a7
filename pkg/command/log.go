package command

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"github.com/spendlog/spendlog/internal/event_bus"
	"github.com/spendlog/spendlog/pkg/ledger"
)

var ErrNilCommand = errors.New("no command to issue")

// Log is the linear undo/redo history of the commands applied to a session.
// history[:index] have been applied, history[index:] were undone and can be redone.
type Log struct {
	session *ledger.Session
	bus     *event_bus.EventBus
	history []Command
	index   int
}

func NewLog(session *ledger.Session, bus *event_bus.EventBus) *Log {
	return &Log{session: session, bus: bus}
}

func (l *Log) Index() int { return l.index }
func (l *Log) Len() int { return len(l.history) }
func (l *Log) CanUndo() bool { return l.index > 0 }
func (l *Log) CanRedo() bool { return l.index < len(l.history) }

// Issue drops the undone commands, appends c and executes it.
// A command that fails to execute leaves the history as it was. A command whose store change
// succeeded stays in the history even when the page reload after it failed.
func (l *Log) Issue(ctx context.Context, c Command) error {
	if c == nil {
		return ErrNilCommand
	}

	history, index := l.history, l.index
	l.history = append(l.history[:l.index:l.index], c)
	l.index++

	err := c.Execute(ctx, l.session)
	if err != nil && !applied(err) {
		l.history, l.index = history, index
		l.logger(c).Warnf("command failed: %v", err)
		return err
	}
	if err != nil {
		l.logger(c).Warnf("command issued: %v", err)
	} else {
		l.logger(c).Debug("command issued")
	}
	l.publish(ctx, event_bus.CommandExecutedType, c)
	return err
}

// Undo reverts the last applied command. It does nothing when there is none.
func (l *Log) Undo(ctx context.Context) error {
	if !l.CanUndo() {
		return nil
	}
	c := l.history[l.index-1]
	err := c.Revert(ctx, l.session, l.FindPreviousOfType(c.Kind()))
	if err != nil && !applied(err) {
		l.logger(c).Warnf("undo failed: %v", err)
		return err
	}
	l.index--
	l.logger(c).Debug("command reverted")
	l.publish(ctx, event_bus.CommandRevertedType, c)
	return err
}

// Redo executes the last undone command again. It does nothing when there is none.
func (l *Log) Redo(ctx context.Context) error {
	if !l.CanRedo() {
		return nil
	}
	c := l.history[l.index]
	err := c.Execute(ctx, l.session)
	if err != nil && !applied(err) {
		l.logger(c).Warnf("redo failed: %v", err)
		return err
	}
	l.index++
	l.logger(c).Debug("command redone")
	l.publish(ctx, event_bus.CommandExecutedType, c)
	return err
}

// FindPreviousOfType returns the nearest command of kind applied before the last applied one.
func (l *Log) FindPreviousOfType(kind Kind) Command {
	for i := l.index - 2; i >= 0; i-- {
		if l.history[i].Kind() == kind {
			return l.history[i]
		}
	}
	return nil
}

func (l *Log) logger(c Command) *log.Entry {
	return log.WithFields(log.Fields{
		"command": c.ID(),
		"kind":    c.Kind(),
		"index":   l.index,
		"budget":  l.session.Budget(),
	})
}

func (l *Log) publish(ctx context.Context, eventType event_bus.EventType, c Command) {
	err := l.bus.Publish(event_bus.NewEvent(ctx, eventType, event_bus.CommandApplied{
		ID:     c.ID(),
		Kind:   string(c.Kind()),
		Index:  l.index,
		Length: len(l.history),
	}))
	if err != nil {
		log.Warnf("command listeners failed: %v", err)
	}
}
