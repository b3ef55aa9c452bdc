package app

import "github.com/bft-labs/tripdiary/internal/domain"

// plan is the handler selected for one (state, event) pair.
type plan struct {
	name    string
	actions []domain.ActionKind

	// detached plans run their batch off the dispatch call path.
	detached bool

	// stopsAll marks the stopAll batch, whose full success always clears
	// the presence signal.
	stopsAll bool

	// reinit schedules an INITIALIZE event after the commit.
	reinit bool

	decide func(from domain.State, r domain.AggregateResult) domain.State
}

// planFor is the transition table. Every state lists every event so that a
// new state or event is flagged by exhaustiveness checks.
func (d *Dispatcher) planFor(from domain.State, kind domain.EventKind) plan {
	if kind == domain.EventInitialize && d.cfg.ResetOnInitialize &&
		(from == domain.StateWaitingForTripStart || from == domain.StateOngoingTrip) {
		// Listeners do not survive a reboot although the state does, so an
		// initialize in a tracking state rebuilds from the start handler.
		return createGeofence()
	}

	switch from {
	case domain.StateStart:
		switch kind {
		case domain.EventInitialize:
			return createGeofence()
		case domain.EventStopTracking:
			return moveTo(domain.StateTrackingStopped)
		case domain.EventTrackingError:
			return moveTo(domain.StateStart)
		case domain.EventExitedGeofence, domain.EventStoppedMoving, domain.EventStartTracking:
			return stay()
		}

	case domain.StateWaitingForTripStart:
		switch kind {
		case domain.EventExitedGeofence:
			return startTrip()
		case domain.EventStopTracking:
			return deleteGeofence(domain.StateTrackingStopped)
		case domain.EventTrackingError:
			return deleteGeofence(domain.StateStart)
		case domain.EventInitialize, domain.EventStoppedMoving, domain.EventStartTracking:
			return stay()
		}

	case domain.StateOngoingTrip:
		switch kind {
		case domain.EventStoppedMoving:
			return endTrip()
		case domain.EventStopTracking:
			return stopAll(domain.StateTrackingStopped)
		case domain.EventTrackingError:
			return stopAll(domain.StateStart)
		case domain.EventInitialize, domain.EventExitedGeofence, domain.EventStartTracking:
			return stay()
		}

	case domain.StateTrackingStopped:
		switch kind {
		case domain.EventStartTracking:
			return restartTracking()
		case domain.EventInitialize, domain.EventStopTracking, domain.EventTrackingError,
			domain.EventExitedGeofence, domain.EventStoppedMoving:
			// Everything was stopped on the way in; stopping again is the
			// backstop for whatever slipped through. Initialize lands here
			// after a reboot and re-stops, where the platform would only
			// have re-committed tracking_stopped.
			return stopAll(domain.StateTrackingStopped)
		}
	}

	return stay()
}

// stay re-commits the current state.
func stay() plan {
	return plan{
		name: "stay",
		decide: func(from domain.State, _ domain.AggregateResult) domain.State {
			return from
		},
	}
}

// moveTo commits target without launching anything.
func moveTo(target domain.State) plan {
	return plan{
		name: "move",
		decide: func(domain.State, domain.AggregateResult) domain.State {
			return target
		},
	}
}

// restartTracking leaves the stopped state and schedules an initialize.
func restartTracking() plan {
	p := moveTo(domain.StateStart)
	p.name = "restart_tracking"
	p.reinit = true
	return p
}

// createGeofence waits for a trip to start. When the geofence cannot be
// created the state is kept and the settings guard decides what to do.
func createGeofence() plan {
	return plan{
		name:    "create_geofence",
		actions: []domain.ActionKind{domain.ActionGeofenceCreate},
		decide: func(from domain.State, r domain.AggregateResult) domain.State {
			if r.AllSucceeded() {
				return domain.StateWaitingForTripStart
			}
			return from
		},
	}
}

// startTrip replaces the geofence with continuous tracking.
func startTrip() plan {
	return plan{
		name: "start_trip",
		actions: []domain.ActionKind{
			domain.ActionGeofenceRemove,
			domain.ActionActivityRecognitionStart,
			domain.ActionTrackingStart,
		},
		decide: func(_ domain.State, r domain.AggregateResult) domain.State {
			// Without tracking there is no way out of ongoing_trip, so fall
			// back to start and retry from there.
			if !r.Available(domain.ActionTrackingStart) {
				return domain.StateStart
			}
			if r.AllSucceeded() || r.Succeeded(domain.ActionTrackingStart) {
				return domain.StateOngoingTrip
			}
			return domain.StateStart
		},
	}
}

// endTrip replaces continuous tracking with a geofence.
func endTrip() plan {
	return plan{
		name:     "end_trip",
		detached: true,
		actions: []domain.ActionKind{
			domain.ActionTrackingStop,
			domain.ActionActivityRecognitionStop,
			domain.ActionGeofenceCreate,
		},
		decide: func(_ domain.State, r domain.AggregateResult) domain.State {
			if r.AllSucceeded() {
				return domain.StateWaitingForTripStart
			}
			// Tracking is still running: stay and retry on the next event.
			if r.Failed(domain.ActionTrackingStop) {
				return domain.StateOngoingTrip
			}
			if r.Succeeded(domain.ActionGeofenceCreate) {
				return domain.StateWaitingForTripStart
			}
			// Without a geofence nothing would ever leave waiting_for_trip_start.
			return domain.StateStart
		},
	}
}

// deleteGeofence removes the geofence and moves to target, or stays on failure.
func deleteGeofence(target domain.State) plan {
	return plan{
		name:    "delete_geofence",
		actions: []domain.ActionKind{domain.ActionGeofenceRemove},
		decide: func(from domain.State, r domain.AggregateResult) domain.State {
			if r.AllSucceeded() {
				return target
			}
			return from
		},
	}
}

// stopAll stops every action and moves to target. It never ends in
// waiting_for_trip_start: if tracking could not be stopped the trip is
// still ongoing.
func stopAll(target domain.State) plan {
	return plan{
		name:     "stop_all",
		stopsAll: true,
		actions: []domain.ActionKind{
			domain.ActionGeofenceRemove,
			domain.ActionTrackingStop,
			domain.ActionActivityRecognitionStop,
		},
		decide: func(_ domain.State, r domain.AggregateResult) domain.State {
			if !r.AllSucceeded() && r.Failed(domain.ActionTrackingStop) {
				return domain.StateOngoingTrip
			}
			return target
		},
	}
}
