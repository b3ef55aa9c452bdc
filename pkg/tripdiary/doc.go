// Package tripdiary provides an embeddable trip tracking state machine.
//
// A Service reacts to asynchronous events (geofence exits, stop-moving
// detections, user start/stop requests, tracking errors) by launching
// platform actions, joining their outcomes and committing exactly one
// persisted tracking state per event. After every commit it validates the
// location permission and device settings and injects corrective events.
//
// # Basic Usage
//
//	cfg := tripdiary.DefaultConfig()
//	cfg.StateDir = "/var/lib/myapp/tripdiary"
//
//	svc, err := tripdiary.New(cfg,
//	    tripdiary.WithActionProvider(myActions),
//	    tripdiary.WithDevice(myPermissions, mySettings),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := svc.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	svc.Inject(tripdiary.NewEvent(tripdiary.EventExitedGeofence))
//
//	// ... run until shutdown signal ...
//
//	_ = svc.Stop()
//
// # Ports
//
// The host supplies platform behavior through the re-exported port
// interfaces: [ActionProvider], [PermissionChecker], [SettingsChecker],
// [StateRepository], [Notifier], [PresenceSignal] and [TransitionRecorder].
// Every port has a default: simulated actions and device, a JSON state
// file, a JSON lines transition journal and a presence marker file in
// StateDir, and a notifier that writes to the logger.
//
// # Event Handling
//
// Implement [EventHandler] (embedding [BaseEventHandler]) and pass it via
// [WithEventHandler] to observe phase changes, commits and guard checks.
//
// # Plugins
//
// Plugins receive a [Controller] on Initialize and may inject events,
// toggle verbose feedback and re-run the guard:
//
//	import "github.com/bft-labs/tripdiary/plugins/configwatcher"
//
//	svc, err := tripdiary.New(cfg,
//	    tripdiary.WithConfigPath(path),
//	    configwatcher.WithConfigWatcher(configwatcher.DefaultConfig()),
//	)
//
// # Lifecycle Phases
//
// A Service is in one of five phases: [PhaseStopped], [PhaseStarting],
// [PhaseRunning], [PhaseStopping] or [PhaseCrashed]. The phase is
// independent of the persisted tracking [State].
package tripdiary
