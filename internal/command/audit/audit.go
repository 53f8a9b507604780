// Package audit delivers fire-and-forget execution notifications to the
// backend. Delivery is best-effort: a full buffer or a failing sink drops
// the event with a warning and never blocks or fails the caller.
package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Event describes one successful command execution worth reporting.
type Event struct {
	ObjectID   string    `json:"object_id,omitempty"`
	ObjectName string    `json:"object_name,omitempty"`
	Command    string    `json:"command"`
	Timestamp  time.Time `json:"timestamp"`
}

// Sink persists or forwards audit events.
type Sink interface {
	Record(ctx context.Context, event Event) error
}

// Publisher queues events and forwards them to the sink from a background
// goroutine so callers never wait on the network.
type Publisher struct {
	sink   Sink
	events chan Event
	wg     sync.WaitGroup
	logger *slog.Logger
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithBuffer sets the queue depth. Default is 32.
func WithBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan Event, size)
		}
	}
}

// WithLogger sets a logger for drop and delivery-failure reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher starts the background delivery goroutine.
func NewPublisher(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{
		sink:   sink,
		events: make(chan Event, 32),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.wg.Add(1)
	go p.processEvents()
	return p
}

func (p *Publisher) processEvents() {
	defer p.wg.Done()
	for event := range p.events {
		if err := p.sink.Record(context.Background(), event); err != nil {
			p.logger.Warn("failed to deliver audit event",
				"error", err,
				"command", event.Command,
				"object_id", event.ObjectID,
			)
		}
	}
}

// Notify enqueues an event without blocking. Events are dropped when the
// buffer is full.
func (p *Publisher) Notify(_ context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.events <- event:
	default:
		p.logger.Warn("audit buffer full, event dropped",
			"command", event.Command,
			"object_id", event.ObjectID,
		)
	}
}

// Close stops the publisher and waits for queued events to drain.
func (p *Publisher) Close() {
	close(p.events)
	p.wg.Wait()
}
