// Package sim provides simulated platform adapters so the tracker can run
// end-to-end on a workstation: an ActionProvider whose actions resolve after
// a configurable delay with a configurable outcome, and a Device that answers
// permission and settings checks from mutable configuration.
//
// Both are safe for concurrent use and can be reconfigured while running,
// which is how the config watcher plugin applies edits to [device] and
// [actions.<kind>] without a restart.
package sim
