package event_bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type EventType string

// Event is the untyped envelope handed to subscribers.
type Event struct {
	ctx       context.Context
	ID        uuid.UUID
	Type      EventType
	Timestamp time.Time
	Data      any
}

func NewEvent(ctx context.Context, eventType EventType, data any) Event {
	return Event{ctx: ctx, ID: uuid.New(), Type: eventType, Timestamp: time.Now(), Data: data}
}

func (e Event) Context() context.Context {
	if e.ctx == nil {
		return context.Background()
	}
	return e.ctx
}

// EventT is an Event whose payload has been asserted to T.
type EventT[T any] struct {
	Event
	Data T
}

type subscriber struct {
	id uint64
	fn func(Event) error
}

// EventBus delivers events synchronously to the subscribers of their type, oldest subscription first.
// A nil *EventBus accepts publications and drops them.
type EventBus struct {
	mu     sync.RWMutex
	subs   map[EventType][]subscriber
	lastID uint64
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[EventType][]subscriber)}
}

// Subscribe registers fn for eventType. The returned function removes it again.
func (eb *EventBus) Subscribe(eventType EventType, fn func(Event) error) (unsubscribe func()) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.lastID++
	id := eb.lastID
	eb.subs[eventType] = append(eb.subs[eventType], subscriber{id: id, fn: fn})

	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		kept := eb.subs[eventType][:0]
		for _, s := range eb.subs[eventType] {
			if s.id != id {
				kept = append(kept, s)
			}
		}
		eb.subs[eventType] = kept
	}
}

// SubscribeTyped registers fn for events of eventType carrying a T. Other payloads are skipped.
//
//	event_bus.SubscribeTyped(bus, event_bus.PageChangedType, func(e event_bus.EventT[event_bus.PageChanged]) error {
//		return render(e.Data)
//	})
func SubscribeTyped[T any](eb *EventBus, eventType EventType, fn func(EventT[T]) error) (unsubscribe func()) {
	return eb.Subscribe(eventType, func(e Event) error {
		payload, ok := e.Data.(T)
		if !ok {
			log.Debugf("event %s: skipping payload %T, subscriber expects %T", eventType, e.Data, *new(T))
			return nil
		}
		return fn(EventT[T]{Event: e, Data: payload})
	})
}

// Publish calls every subscriber of e.Type. A failing or panicking subscriber does not stop the others,
// and all their errors are returned joined.
func (eb *EventBus) Publish(e Event) error {
	if eb == nil {
		return nil
	}
	ctx := e.Context()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("event %s not published: %w", e.Type, err)
	}

	eb.mu.RLock()
	subs := append([]subscriber(nil), eb.subs[e.Type]...)
	eb.mu.RUnlock()

	var errs []error
	for _, s := range subs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("event %s interrupted: %w", e.Type, err))
			break
		}
		if err := deliver(s, e); err != nil {
			log.WithFields(log.Fields{"event": e.ID, "type": e.Type, "subscriber": s.id}).Errorf("subscriber failed: %v", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func deliver(s subscriber, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber %d panicked on %s: %v", s.id, e.Type, r)
		}
	}()
	return s.fn(e)
}
