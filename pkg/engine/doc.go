// Package engine maps vehicle driving state and speed to UX restrictions
// and fans restriction changes out to registered subscribers.
//
// # Lifecycle
//
// An Engine is built with New from its collaborators (mapping provider,
// driving-state source, speed source). Init loads the mapping table and
// subscribes to both sources; Release unsubscribes and drops every
// subscriber without notifying it.
//
//	eng, err := engine.New(engine.Config{
//	    Mapping:      mapping.NewFileProvider("/etc/uxr/mapping.yaml"),
//	    DrivingState: drivingStateService,
//	    Speed:        speedSensor,
//	    Logger:       slog.Default(),
//	})
//	if err != nil {
//	    return err
//	}
//	if err := eng.Init(); err != nil {
//	    return err
//	}
//	defer eng.Release()
//
// # Mapping Modes
//
// If the mapping table fails to load, the engine runs in fallback mode for
// its whole lifetime: PARKED is unrestricted and every other state is fully
// restricted regardless of speed.
//
// # Dispatch
//
// A recomputation whose restrictions equal the current ones is dropped.
// Otherwise the new snapshot replaces the current one and is queued together
// with a copy of the subscriber list. Whichever caller finds the queue idle
// delivers queued snapshots in order, outside the engine lock. A failed
// delivery is logged and never removes the subscriber.
package engine
