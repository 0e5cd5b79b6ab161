package httpapi

import (
	"sync"

	"github.com/leapstack-labs/sqlsense/internal/schema"
)

// SchemaEvent describes the schema after an apply.
type SchemaEvent struct {
	Dialect string       `json:"dialect"`
	Loading bool         `json:"loading"`
	Stats   schema.Stats `json:"stats"`
}

// events fans schema events out to the open event streams. Each listener
// holds at most one pending event; a newer event replaces an unread one so
// slow clients always see the latest state.
type events struct {
	mu        sync.Mutex
	listeners map[chan SchemaEvent]struct{}
}

func newEvents() *events {
	return &events{listeners: make(map[chan SchemaEvent]struct{})}
}

// subscribe returns a channel of events. The caller must unsubscribe.
func (e *events) subscribe() chan SchemaEvent {
	ch := make(chan SchemaEvent, 1)
	e.mu.Lock()
	e.listeners[ch] = struct{}{}
	e.mu.Unlock()
	return ch
}

func (e *events) unsubscribe(ch chan SchemaEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.listeners[ch]; ok {
		delete(e.listeners, ch)
		close(ch)
	}
}

// broadcast never blocks. Listeners are only written under mu, so the
// drain-then-send pair cannot race with another broadcast.
func (e *events) broadcast(ev SchemaEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for ch := range e.listeners {
		select {
		case <-ch:
		default:
		}
		ch <- ev
	}
}

func (e *events) len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners)
}
