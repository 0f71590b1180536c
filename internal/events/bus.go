// internal/events/bus.go
package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler consumes a single event.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error { return f(ctx, event) }

// Subscription represents an active handler registration.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	id  string
	typ EventType
	bus *Bus
}

func (s *subscription) Unsubscribe() { s.bus.unsubscribe(s.id, s.typ) }

// Bus is the in-memory event bus the core publishes its event surface on.
// External consumers (indexer persistence, metrics, relay bridges)
// subscribe per event type. Publication is asynchronous: a slow consumer
// cannot stall a trade.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType]map[string]Handler
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	queue    chan Event
}

// NewBus creates a bus with the given delivery queue size and starts its
// dispatch loop.
func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		handlers: make(map[EventType]map[string]Handler),
		logger:   logger.Named("event_bus"),
		ctx:      ctx,
		cancel:   cancel,
		queue:    make(chan Event, bufferSize),
	}

	b.wg.Add(1)
	go b.dispatch()
	return b
}

// Subscribe registers a handler for one event type.
func (b *Bus) Subscribe(eventType EventType, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()
	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[string]Handler)
	}
	b.handlers[eventType][id] = handler

	b.logger.Debug("Handler subscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))

	return &subscription{id: id, typ: eventType, bus: b}
}

// SubscribeFunc registers a plain function for one event type.
func (b *Bus) SubscribeFunc(eventType EventType, fn func(context.Context, Event) error) Subscription {
	return b.Subscribe(eventType, HandlerFunc(fn))
}

// Publish enqueues an event for asynchronous delivery. A full queue drops
// the event rather than blocking the publisher; on-ledger consumers must
// treat the bus as lossy and re-sync from state when needed.
func (b *Bus) Publish(event Event) error {
	select {
	case <-b.ctx.Done():
		return fmt.Errorf("event bus is shutting down")
	default:
	}

	select {
	case b.queue <- event:
		return nil
	default:
		b.logger.Warn("Event queue full, dropping event",
			zap.String("event_type", string(event.Type())))
		return fmt.Errorf("event queue full")
	}
}

// PublishSync delivers an event to all current handlers before returning.
func (b *Bus) PublishSync(ctx context.Context, event Event) error {
	b.mu.RLock()
	registered := b.handlers[event.Type()]
	handlers := make(map[string]Handler, len(registered))
	for id, h := range registered {
		handlers[id] = h
	}
	b.mu.RUnlock()

	var failed int
	for id, handler := range handlers {
		if err := handler.Handle(ctx, event); err != nil {
			b.logger.Error("Event handler failed",
				zap.String("event_type", string(event.Type())),
				zap.String("handler_id", id),
				zap.Error(err))
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d handlers failed for %s", failed, len(handlers), event.Type())
	}
	return nil
}

// dispatch delivers queued events in arrival order until shutdown, then
// drains whatever is still queued.
func (b *Bus) dispatch() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			for {
				select {
				case event := <-b.queue:
					_ = b.PublishSync(context.Background(), event)
				default:
					return
				}
			}
		case event := <-b.queue:
			_ = b.PublishSync(b.ctx, event)
		}
	}
}

func (b *Bus) unsubscribe(id string, eventType EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if handlers, ok := b.handlers[eventType]; ok {
		delete(handlers, id)
		if len(handlers) == 0 {
			delete(b.handlers, eventType)
		}
	}
}

// Shutdown stops the dispatch loop, draining queued events, and waits up to
// the context deadline for delivery to finish.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.logger.Info("Shutting down event bus")
	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus shutdown timeout")
		return ctx.Err()
	}
}
