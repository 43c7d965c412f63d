package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/uxr-project/uxr-go/pkg/log"
	"github.com/uxr-project/uxr-go/pkg/mapping"
	"github.com/uxr-project/uxr-go/pkg/metrics"
	"github.com/uxr-project/uxr-go/pkg/restriction"
	"github.com/uxr-project/uxr-go/pkg/subscriber"
	"github.com/uxr-project/uxr-go/pkg/vehicle"
)

// Engine errors.
var (
	// ErrInvalidConfig is returned by New when a required collaborator is missing.
	ErrInvalidConfig = errors.New("invalid engine config")

	// ErrAlreadyInitialized is returned by a second call to Init.
	ErrAlreadyInitialized = errors.New("engine already initialized")

	// ErrReleased is returned by Init after Release.
	ErrReleased = errors.New("engine released")
)

// Config holds the engine's collaborators.
type Config struct {
	// Mapping loads the restriction table. A nil provider is treated as a
	// failed load and puts the engine in fallback mode.
	Mapping mapping.Provider

	// DrivingState and Speed are required.
	DrivingState DrivingStateSource
	Speed        SpeedSource

	// Logger receives operational logs. Nil disables them.
	Logger *slog.Logger

	// ProtocolLogger receives mode changes and dispatch events.
	ProtocolLogger log.Logger

	// Metrics is optional.
	Metrics *metrics.Metrics

	// Clock returns monotonic nanoseconds for snapshot timestamps.
	// Defaults to wall time at construction advanced by the monotonic clock.
	Clock func() int64
}

// Engine holds the current restriction snapshot and the subscriber set.
// All state is guarded by a single mutex.
type Engine struct {
	drivingState DrivingStateSource
	speed        SpeedSource
	provider     mapping.Provider
	logger       *slog.Logger
	protoLog     log.Logger
	metrics      *metrics.Metrics
	clock        func() int64

	mu          sync.Mutex
	current     restriction.Snapshot
	lastSpeed   float32
	fallback    bool
	mode        Mode
	table       mapping.Table
	initStarted bool
	released    bool
	registry    *subscriber.Registry
	unregister  []func()

	// Ordered dispatch queue, drained by at most one caller at a time.
	queue    []dispatchJob
	draining bool
}

// New creates an engine. The initial snapshot is unrestricted.
func New(cfg Config) (*Engine, error) {
	if cfg.DrivingState == nil {
		return nil, fmt.Errorf("%w: driving state source is required", ErrInvalidConfig)
	}
	if cfg.Speed == nil {
		return nil, fmt.Errorf("%w: speed source is required", ErrInvalidConfig)
	}

	clock := cfg.Clock
	if clock == nil {
		base := time.Now()
		baseNanos := base.UnixNano()
		clock = func() int64 {
			return baseNanos + int64(time.Since(base))
		}
	}

	e := &Engine{
		drivingState: cfg.DrivingState,
		speed:        cfg.Speed,
		provider:     cfg.Mapping,
		logger:       cfg.Logger,
		protoLog:     log.OrNoop(cfg.ProtocolLogger),
		metrics:      cfg.Metrics,
		clock:        clock,
		mode:         ModeUninitialized,
		registry:     subscriber.NewRegistry(),
	}
	e.current = restriction.NewSnapshot(restriction.Unrestricted, clock())
	e.metrics.SetSubscribers(0)
	return e, nil
}

// Init loads the mapping table and subscribes to the driving-state and
// speed sources. A load failure is logged and selects fallback mode; it is
// never returned.
func (e *Engine) Init() error {
	e.mu.Lock()
	if e.released {
		e.mu.Unlock()
		return ErrReleased
	}
	if e.initStarted {
		e.mu.Unlock()
		return ErrAlreadyInitialized
	}
	e.initStarted = true
	e.mu.Unlock()

	table, loadErr := e.loadTable()

	e.mu.Lock()
	if loadErr != nil {
		e.fallback = true
		e.mode = ModeFallbackMapping
	} else {
		e.table = table
		e.mode = ModeNormalMapping
	}
	mode := e.mode
	e.mu.Unlock()

	if loadErr != nil {
		e.errorLog("failed to load restriction mapping, falling back to defaults", "error", loadErr)
	} else {
		e.debugLog("restriction mapping loaded")
	}
	e.metrics.SetFallback(loadErr != nil)
	e.logModeChange(ModeUninitialized, mode, loadErr)

	unregisterState := e.drivingState.RegisterChangeListener(e.OnDrivingStateChanged)
	unregisterSpeed := e.speed.RegisterSensorListener(e.onSensorEvents)

	e.mu.Lock()
	e.unregister = append(e.unregister, unregisterState, unregisterSpeed)
	e.mu.Unlock()
	return nil
}

func (e *Engine) loadTable() (mapping.Table, error) {
	if e.provider == nil {
		return nil, errors.New("no mapping provider configured")
	}
	table, err := e.provider.Load()
	if err != nil {
		return nil, err
	}
	if table == nil {
		return nil, errors.New("mapping provider returned no table")
	}
	return table, nil
}

// Release unsubscribes from both sources and drops every subscriber,
// disarming its liveness link without notifying it. Safe to call more than once.
func (e *Engine) Release() {
	e.mu.Lock()
	if e.released {
		e.mu.Unlock()
		return
	}
	e.released = true
	unregister := e.unregister
	e.unregister = nil
	removed := e.registry.Clear()
	e.queue = nil
	e.mu.Unlock()

	for _, fn := range unregister {
		fn()
	}
	for range removed {
		e.metrics.IncrementRemoval(metrics.ReasonRelease)
	}
	e.metrics.SetSubscribers(0)
	e.debugLog("engine released", "subscribers", len(removed))
	e.protoLog.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerEngine,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityEngine,
			NewState: "RELEASED",
			Reason:   fmt.Sprintf("%d subscribers dropped", len(removed)),
		},
	})
}

// OnDrivingStateChanged recomputes restrictions for a new driving state
// using the speed source's latest reading. A nil event is ignored.
func (e *Engine) OnDrivingStateChanged(ev *vehicle.DrivingStateEvent) {
	if ev == nil {
		e.debugLog("ignoring nil driving state event")
		return
	}

	e.mu.Lock()
	speed := e.speed.LatestSpeed()
	e.lastSpeed = speed
	queued := e.computeLocked(ev.State, speed)
	e.mu.Unlock()

	e.debugLog("driving state changed", "state", ev.State, "speed", speed)
	if queued {
		e.drain()
	}
}

// OnSpeedChanged recomputes restrictions for a new speed. It does nothing
// when the speed equals the last known speed or the vehicle is not moving.
func (e *Engine) OnSpeedChanged(speed float32) {
	e.mu.Lock()
	if speed == e.lastSpeed || e.drivingState.CurrentState().State != vehicle.DrivingStateMoving {
		e.mu.Unlock()
		return
	}
	e.lastSpeed = speed
	queued := e.computeLocked(vehicle.DrivingStateMoving, speed)
	e.mu.Unlock()

	if queued {
		e.drain()
	}
}

// onSensorEvents forwards speed readings to OnSpeedChanged.
func (e *Engine) onSensorEvents(events []vehicle.SensorEvent) {
	for _, ev := range events {
		if speed, ok := ev.Speed(); ok {
			e.OnSpeedChanged(speed)
		}
	}
}

// CurrentRestrictions returns the current snapshot.
func (e *Engine) CurrentRestrictions() restriction.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Mode returns the engine's mapping mode.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// IsFallback reports whether the built-in default mapping is in use.
func (e *Engine) IsFallback() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fallback
}

// Table returns the active mapping table: the loaded table in normal mode,
// the default table in fallback mode, and nil before Init.
func (e *Engine) Table() mapping.Table {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeTableLocked()
}

func (e *Engine) activeTableLocked() mapping.Table {
	switch {
	case e.fallback:
		return mapping.DefaultTable{}
	case e.table != nil:
		return e.table
	default:
		return nil
	}
}

// computeLocked maps (state, speed) to restrictions and queues a dispatch
// when they differ from the current ones. Returns true if a dispatch was queued.
// Must hold e.mu.
func (e *Engine) computeLocked(state vehicle.DrivingState, speed float32) bool {
	var flags restriction.Flags
	switch {
	case e.fallback:
		flags = mapping.DefaultRestrictions(state)
	case e.table != nil:
		var ok bool
		flags, ok = e.table.Lookup(state, speed)
		if !ok {
			e.errorLog("no restriction mapping for input, using fully restricted",
				"state", state, "speed", speed)
			flags = restriction.FullyRestricted
		}
	default:
		// Events before Init have no table to consult.
		flags = mapping.DefaultRestrictions(state)
	}

	next := restriction.NewSnapshot(flags, e.nextTimestampLocked())
	if next.SameRestrictions(e.current) {
		e.metrics.IncrementDeduped()
		return false
	}

	e.debugLog("restrictions changed",
		"old", e.current.ActiveRestrictions,
		"new", next.ActiveRestrictions,
		"subscribers", e.registry.Len())
	e.current = next
	e.metrics.IncrementRestrictionChanges()
	e.enqueueLocked(next)
	return true
}

// nextTimestampLocked returns a timestamp strictly greater than the current
// snapshot's. Must hold e.mu.
func (e *Engine) nextTimestampLocked() int64 {
	ts := e.clock()
	if ts <= e.current.TimestampNanos {
		ts = e.current.TimestampNanos + 1
	}
	return ts
}

func (e *Engine) logModeChange(from, to Mode, cause error) {
	ev := &log.StateChangeEvent{
		Entity:   log.StateEntityEngine,
		OldState: from.String(),
		NewState: to.String(),
	}
	if cause != nil {
		ev.Reason = cause.Error()
	}
	e.protoLog.Log(log.Event{
		Timestamp:   time.Now(),
		Layer:       log.LayerEngine,
		Category:    log.CategoryState,
		StateChange: ev,
	})
}

// debugLog logs a debug message if logging is enabled.
func (e *Engine) debugLog(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}

// errorLog logs an error message if logging is enabled.
func (e *Engine) errorLog(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Error(msg, args...)
	}
}
