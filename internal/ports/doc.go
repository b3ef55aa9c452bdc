// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// In Clean Architecture / Hexagonal Architecture, ports are the boundaries
// between the application core and the outside world. They define what the
// state machine needs from external systems without specifying how those
// needs are fulfilled.
//
// # Port Interfaces
//
//   - [ActionProvider]: Launches geofence, tracking and activity recognition actions
//   - [StateRepository]: Persists and loads the single FSM state slot
//   - [EventInjector]: Enqueues synthetic events for asynchronous handling
//   - [Notifier]: Surfaces user feedback and resolution prompts
//   - [PermissionChecker] and [SettingsChecker]: Device permission and settings checks
//   - [PresenceSignal]: Foreground presence while a trip is tracked
//   - [TransitionRecorder]: Audit journal of committed transitions
//   - [Logger]: Structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement these interfaces
// with concrete implementations (file system, Redis, HTTP, zerolog, etc.).
package ports
