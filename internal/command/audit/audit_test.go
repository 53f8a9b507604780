package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (s *captureSink) Record(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *captureSink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func TestPublisherDeliversAndDrainsOnClose(t *testing.T) {
	sink := &captureSink{}
	pub := NewPublisher(sink)

	pub.Notify(context.Background(), Event{Command: "unlock", ObjectID: "obj-1"})
	pub.Notify(context.Background(), Event{Command: "lock", ObjectID: "obj-1"})
	pub.Close()

	events := sink.all()
	require.Len(t, events, 2)
	assert.Equal(t, "unlock", events[0].Command)
	assert.False(t, events[0].Timestamp.IsZero(), "timestamp is stamped on enqueue")
}

func TestPublisherSurvivesSinkFailure(t *testing.T) {
	sink := &captureSink{err: errors.New("backend down")}
	pub := NewPublisher(sink)

	// Must not panic or block the caller.
	pub.Notify(context.Background(), Event{Command: "unlock"})
	pub.Close()
	assert.Empty(t, sink.all())
}
