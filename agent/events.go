package agent

import (
	"context"
	"sync"
	"time"
)

// EventKind classifies StreamSink events.
type EventKind string

const (
	EventThought     EventKind = "thought"
	EventAction      EventKind = "action"
	EventObservation EventKind = "observation"
	EventFinal       EventKind = "final"
	// EventWarning is user-visible, e.g. an unknown tool replaced by the fallback.
	EventWarning EventKind = "warning"
)

// Event is one incremental output of a run. Final is set only on the
// answer event; Partial marks streamed token deltas of a thought.
type Event struct {
	Kind      EventKind `json:"kind"`
	Text      string    `json:"text"`
	Final     bool      `json:"final"`
	Partial   bool      `json:"partial,omitempty"`
	Tool      string    `json:"tool,omitempty"`
	Iteration int       `json:"iteration,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink receives run events in production order.
type Sink interface {
	Emit(ctx context.Context, ev Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event)

func (f SinkFunc) Emit(ctx context.Context, ev Event) { f(ctx, ev) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(context.Context, Event) {})

// ChannelSink pushes events to a channel drained by the consumer. Emit
// blocks until the event is taken, ctx is done or the sink is closed.
type ChannelSink struct {
	ch        chan Event
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
	sending   sync.WaitGroup
}

// NewChannelSink creates a ChannelSink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer < 0 {
		buffer = 0
	}
	return &ChannelSink{ch: make(chan Event, buffer), done: make(chan struct{})}
}

// Events returns the receive side.
func (s *ChannelSink) Events() <-chan Event { return s.ch }

// Emit implements Sink. Events emitted after Close are dropped.
func (s *ChannelSink) Emit(ctx context.Context, ev Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.sending.Add(1)
	s.mu.Unlock()
	defer s.sending.Done()

	select {
	case s.ch <- ev:
	case <-s.done:
	case <-ctx.Done():
	}
}

// Close ends the stream and releases blocked emitters. The channel is closed
// only after every in-flight Emit has returned. Safe to call more than once.
func (s *ChannelSink) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
		s.sending.Wait()
		close(s.ch)
	})
}

// Recorder collects events in memory; useful for polling consumers and tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Sink.
func (r *Recorder) Emit(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns how many events of kind were recorded.
func (r *Recorder) Count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}
