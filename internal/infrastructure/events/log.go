package events

import (
	"context"
	"sync"

	"streamledger/internal/core/domain"
)

// Log is the in-process append-only notification log. Appends preserve
// emission order; subscribers receive each event after it is durably in the
// log. There is no removal path.
type Log struct {
	mu      sync.RWMutex
	entries []*domain.Event
	subs    map[int]chan *domain.Event
	nextSub int
}

func NewLog() *Log {
	return &Log{
		subs: make(map[int]chan *domain.Event),
	}
}

func (l *Log) Append(ctx context.Context, event *domain.Event) error {
	l.mu.Lock()
	l.entries = append(l.entries, event)
	subs := make([]chan *domain.Event, 0, len(l.subs))
	for _, ch := range l.subs {
		subs = append(subs, ch)
	}
	l.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
			// Slow consumers drop notifications rather than stalling the
			// emitting transaction; the full log remains readable.
		}
	}
	return nil
}

// Events returns a copy of the log, optionally filtered by stream.
func (l *Log) Events(streamID domain.StreamID) []*domain.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*domain.Event, 0, len(l.entries))
	for _, e := range l.entries {
		if streamID == "" || e.StreamID == streamID {
			out = append(out, e)
		}
	}
	return out
}

// Subscribe registers a buffered feed of future events. The returned cancel
// func must be called to release the subscription.
func (l *Log) Subscribe(buffer int) (<-chan *domain.Event, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextSub
	l.nextSub++
	ch := make(chan *domain.Event, buffer)
	l.subs[id] = ch

	cancel := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if _, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
