package event

import (
	"context"
	"log"
	"sync"
)

// Sink receives engine lifecycle events. Implementations must be safe for
// concurrent use; the runner emits from every worker goroutine.
type Sink interface {
	Emit(ctx context.Context, event Event) error
}

// NoopSink swallows every event. It is the runner's default observer.
type NoopSink struct{}

func (NoopSink) Emit(context.Context, Event) error { return nil }

// LogSink writes events to the process log, one line per event.
type LogSink struct{}

func (LogSink) Emit(ctx context.Context, event Event) error {
	_ = ctx
	event.Normalize()
	if event.Error != "" {
		log.Printf("[engine] %s/%s chain=%s execution=%s name=%s error=%s",
			event.Kind, event.Status, event.ChainID, event.ExecutionID, event.Name, event.Error)
		return nil
	}
	log.Printf("[engine] %s/%s chain=%s execution=%s name=%s",
		event.Kind, event.Status, event.ChainID, event.ExecutionID, event.Name)
	return nil
}

// AsyncSink hands events to a downstream sink from its own goroutine, so a
// slow downstream never stalls the run path. A full buffer drops the event
// instead of waiting.
type AsyncSink struct {
	next   Sink
	events chan Event
	closed sync.Once
}

func NewAsyncSink(next Sink, buffer int) *AsyncSink {
	if next == nil {
		next = NoopSink{}
	}
	if buffer <= 0 {
		buffer = 128
	}
	s := &AsyncSink{next: next, events: make(chan Event, buffer)}
	go s.drain()
	return s
}

func (s *AsyncSink) Emit(ctx context.Context, event Event) error {
	if s == nil {
		return nil
	}
	event.Normalize()
	select {
	case s.events <- event:
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return nil
}

// Close stops the drain loop after the buffered events are delivered.
func (s *AsyncSink) Close() {
	if s == nil {
		return
	}
	s.closed.Do(func() { close(s.events) })
}

func (s *AsyncSink) drain() {
	for event := range s.events {
		_ = s.next.Emit(context.Background(), event)
	}
}
