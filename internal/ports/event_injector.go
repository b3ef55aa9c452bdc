package ports

import "github.com/bft-labs/tripdiary/internal/domain"

// EventInjector enqueues an event for asynchronous handling by the dispatcher.
// Inject must not block and must not handle the event on the caller's goroutine.
type EventInjector interface {
	Inject(event domain.Event)
}
