// Package domain contains the core domain entities and value objects for tripdiary.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (storage, notifications, logging)
// and contains only the vocabulary of the trip state machine.
//
// # Entities
//
//   - [State]: The persisted state of the tracking session
//   - [Event]: An asynchronous input to the state machine ([EventKind] plus arrival time)
//   - [ActionKind]: A platform action the state machine may launch
//   - [AggregateResult]: The joint outcome of one coordinated action batch
//   - [Completion]: A pending action outcome, resolved exactly once
//   - [TransitionRecord]: Audit entry for one committed transition
//
// # Design Principles
//
// States and events are closed enumerations. Every switch over them in the
// application layer lists every value, so adding a state or an event is caught
// by exhaustiveness linters instead of falling through silently.
package domain
