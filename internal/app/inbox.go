package app

import (
	"sync"

	"github.com/bft-labs/tripdiary/internal/domain"
)

// Inbox is an unbounded FIFO of events waiting to be dispatched.
// Inject never blocks, so the dispatcher and the guard can enqueue
// follow-up events while a dispatch is in progress.
type Inbox struct {
	mu     sync.Mutex
	events []domain.Event
	ready  chan struct{}
}

// NewInbox creates an empty inbox.
func NewInbox() *Inbox {
	return &Inbox{ready: make(chan struct{}, 1)}
}

// Inject appends event to the inbox.
func (q *Inbox) Inject(event domain.Event) {
	if event.At.IsZero() {
		event = domain.NewEvent(event.Kind)
	}
	q.mu.Lock()
	q.events = append(q.events, event)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Ready returns a channel that receives a value after an event was injected.
// A single receive may stand for several events; drain with Pop.
func (q *Inbox) Ready() <-chan struct{} {
	return q.ready
}

// Pop removes and returns the oldest event.
func (q *Inbox) Pop() (domain.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return domain.Event{}, false
	}
	ev := q.events[0]
	q.events[0] = domain.Event{}
	q.events = q.events[1:]
	return ev, true
}

// Len returns the number of queued events.
func (q *Inbox) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
