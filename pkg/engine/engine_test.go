package engine_test

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/uxr-project/uxr-go/pkg/engine"
	"github.com/uxr-project/uxr-go/pkg/engine/mocks"
	"github.com/uxr-project/uxr-go/pkg/log"
	"github.com/uxr-project/uxr-go/pkg/mapping"
	"github.com/uxr-project/uxr-go/pkg/metrics"
	"github.com/uxr-project/uxr-go/pkg/restriction"
	"github.com/uxr-project/uxr-go/pkg/subscriber"
	submocks "github.com/uxr-project/uxr-go/pkg/subscriber/mocks"
	"github.com/uxr-project/uxr-go/pkg/vehicle"
)

const bandedMapping = `
rules:
  - state: parked
    restrictions: [unrestricted]
  - state: idling
    restrictions: [no_video]
  - state: moving
    speed: {min: 0, max: 5}
    restrictions: [no_video, no_keyboard]
  - state: moving
    speed: {min: 5}
    restrictions: [fully_restricted]
`

var errLoad = errors.New("mapping unavailable")

// recorder is an in-process subscriber that records every snapshot.
type recorder struct {
	*subscriber.FuncChannel
	mu  sync.Mutex
	got []restriction.Snapshot
}

func newRecorder(id string) *recorder {
	r := &recorder{}
	r.FuncChannel = subscriber.NewFuncChannel(id, func(s restriction.Snapshot) error {
		r.mu.Lock()
		r.got = append(r.got, s)
		r.mu.Unlock()
		return nil
	})
	return r
}

func (r *recorder) snapshots() []restriction.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]restriction.Snapshot, len(r.got))
	copy(out, r.got)
	return out
}

// eventRecorder is a protocol logger that keeps every event.
type eventRecorder struct {
	mu     sync.Mutex
	events []log.Event
}

func (r *eventRecorder) Log(ev log.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *eventRecorder) byCategory(c log.Category) []log.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []log.Event
	for _, ev := range r.events {
		if ev.Category == c {
			out = append(out, ev)
		}
	}
	return out
}

type harness struct {
	eng     *engine.Engine
	state   *vehicle.DrivingStateService
	speed   *vehicle.SpeedSensor
	reg     *prometheus.Registry
	metrics *metrics.Metrics
	events  *eventRecorder
}

func newHarness(t *testing.T, provider mapping.Provider) *harness {
	t.Helper()

	h := &harness{
		state:  vehicle.NewDrivingStateService(vehicle.DrivingStateParked),
		speed:  vehicle.NewSpeedSensor(0),
		reg:    prometheus.NewRegistry(),
		events: &eventRecorder{},
	}
	h.metrics = metrics.New(h.reg)

	eng, err := engine.New(engine.Config{
		Mapping:        provider,
		DrivingState:   h.state,
		Speed:          h.speed,
		ProtocolLogger: h.events,
		Metrics:        h.metrics,
	})
	require.NoError(t, err)
	require.NoError(t, eng.Init())
	t.Cleanup(eng.Release)

	h.eng = eng
	return h
}

func fallbackProvider() mapping.Provider {
	return mapping.ProviderFunc(func() (mapping.Table, error) { return nil, errLoad })
}

func bandedProvider() mapping.Provider {
	return mapping.BytesProvider(bandedMapping)
}

func (h *harness) setState(s vehicle.DrivingState) {
	h.eng.OnDrivingStateChanged(&vehicle.DrivingStateEvent{State: s})
}

func flagsOf(snaps []restriction.Snapshot) []restriction.Flags {
	out := make([]restriction.Flags, len(snaps))
	for i, s := range snaps {
		out[i] = s.ActiveRestrictions
	}
	return out
}

func TestNewRequiresSources(t *testing.T) {
	_, err := engine.New(engine.Config{Speed: vehicle.NewSpeedSensor(0)})
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)

	_, err = engine.New(engine.Config{DrivingState: vehicle.NewDrivingStateService(vehicle.DrivingStateParked)})
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)
}

func TestInitialRestrictionsUnrestricted(t *testing.T) {
	eng, err := engine.New(engine.Config{
		DrivingState: vehicle.NewDrivingStateService(vehicle.DrivingStateMoving),
		Speed:        vehicle.NewSpeedSensor(30),
	})
	require.NoError(t, err)

	got := eng.CurrentRestrictions()
	assert.Equal(t, restriction.Unrestricted, got.ActiveRestrictions)
	assert.False(t, got.RequiresDistractionOptimization)
	assert.Equal(t, engine.ModeUninitialized, eng.Mode())
	assert.Nil(t, eng.Table())
}

func TestInitSelectsMode(t *testing.T) {
	tests := []struct {
		name     string
		provider mapping.Provider
		want     engine.Mode
	}{
		{"nil provider", nil, engine.ModeFallbackMapping},
		{"load error", fallbackProvider(), engine.ModeFallbackMapping},
		{"nil table", mapping.ProviderFunc(func() (mapping.Table, error) { return nil, nil }), engine.ModeFallbackMapping},
		{"invalid document", mapping.BytesProvider("rules: [{state: flying}]"), engine.ModeFallbackMapping},
		{"valid table", bandedProvider(), engine.ModeNormalMapping},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.provider)
			assert.Equal(t, tt.want, h.eng.Mode())
			assert.Equal(t, tt.want == engine.ModeFallbackMapping, h.eng.IsFallback())
			assert.NotNil(t, h.eng.Table())

			fallbackGauge := testutil.ToFloat64(h.metrics.MappingFallback)
			if tt.want == engine.ModeFallbackMapping {
				assert.Equal(t, 1.0, fallbackGauge)
			} else {
				assert.Equal(t, 0.0, fallbackGauge)
			}

			states := h.events.byCategory(log.CategoryState)
			require.NotEmpty(t, states)
			assert.Equal(t, tt.want.String(), states[0].StateChange.NewState)
		})
	}
}

func TestInitTwice(t *testing.T) {
	h := newHarness(t, bandedProvider())
	assert.ErrorIs(t, h.eng.Init(), engine.ErrAlreadyInitialized)
	assert.Equal(t, 1, h.state.ListenerCount())
}

func TestInitAfterRelease(t *testing.T) {
	eng, err := engine.New(engine.Config{
		DrivingState: vehicle.NewDrivingStateService(vehicle.DrivingStateParked),
		Speed:        vehicle.NewSpeedSensor(0),
	})
	require.NoError(t, err)
	eng.Release()
	assert.ErrorIs(t, eng.Init(), engine.ErrReleased)
}

func TestInitRegistersWithSources(t *testing.T) {
	stateSrc := mocks.NewMockDrivingStateSource(t)
	speedSrc := mocks.NewMockSpeedSource(t)

	var stateUnregistered, speedUnregistered int
	var onSensor func([]vehicle.SensorEvent)
	stateSrc.EXPECT().RegisterChangeListener(mock.Anything).Return(func() { stateUnregistered++ }).Once()
	speedSrc.EXPECT().RegisterSensorListener(mock.Anything).
		RunAndReturn(func(fn func([]vehicle.SensorEvent)) func() {
			onSensor = fn
			return func() { speedUnregistered++ }
		}).Once()

	eng, err := engine.New(engine.Config{
		Mapping:      fallbackProvider(),
		DrivingState: stateSrc,
		Speed:        speedSrc,
	})
	require.NoError(t, err)
	require.NoError(t, eng.Init())
	require.NotNil(t, onSensor)

	stateSrc.EXPECT().CurrentState().Return(vehicle.DrivingStateEvent{State: vehicle.DrivingStateMoving}).Once()
	onSensor([]vehicle.SensorEvent{{Type: vehicle.SensorTypeSpeed, FloatValues: []float32{12}}})
	assert.Equal(t, restriction.FullyRestricted, eng.CurrentRestrictions().ActiveRestrictions)

	eng.Release()
	eng.Release()
	assert.Equal(t, 1, stateUnregistered)
	assert.Equal(t, 1, speedUnregistered)
}

func TestScenarioParkedDispatchesOnce(t *testing.T) {
	h := newHarness(t, bandedProvider())
	h.setState(vehicle.DrivingStateIdling)

	rec := newRecorder("ui")
	require.NoError(t, h.eng.RegisterListener(rec))

	h.setState(vehicle.DrivingStateParked)
	h.setState(vehicle.DrivingStateParked)

	got := rec.snapshots()
	require.Len(t, got, 1)
	assert.Equal(t, restriction.Unrestricted, got[0].ActiveRestrictions)
	assert.False(t, got[0].RequiresDistractionOptimization)
}

func TestParkedAtBootMatchesInitialSnapshot(t *testing.T) {
	h := newHarness(t, fallbackProvider())
	rec := newRecorder("ui")
	require.NoError(t, h.eng.RegisterListener(rec))

	h.setState(vehicle.DrivingStateParked)
	assert.Empty(t, rec.snapshots())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.DispatchDeduped))
}

func TestScenarioFallbackMovingSpeedChange(t *testing.T) {
	h := newHarness(t, fallbackProvider())
	rec := newRecorder("ui")
	require.NoError(t, h.eng.RegisterListener(rec))

	h.state.SetState(vehicle.DrivingStateMoving)
	require.Len(t, rec.snapshots(), 1)
	assert.Equal(t, restriction.FullyRestricted, rec.snapshots()[0].ActiveRestrictions)
	assert.True(t, rec.snapshots()[0].RequiresDistractionOptimization)

	h.speed.SetSpeed(5.0)
	assert.Len(t, rec.snapshots(), 1)
	assert.Equal(t, restriction.FullyRestricted, h.eng.CurrentRestrictions().ActiveRestrictions)
}

func TestScenarioLivenessLoss(t *testing.T) {
	h := newHarness(t, fallbackProvider())
	alive := newRecorder("alive")
	dead := newRecorder("dead")
	require.NoError(t, h.eng.RegisterListener(alive))
	require.NoError(t, h.eng.RegisterListener(dead))
	require.Equal(t, 2, h.eng.SubscriberCount())

	dead.Close()
	assert.Equal(t, 1, h.eng.SubscriberCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.SubscriberRemovals.WithLabelValues(metrics.ReasonLiveness)))

	h.setState(vehicle.DrivingStateMoving)
	assert.Len(t, alive.snapshots(), 1)
	assert.Empty(t, dead.snapshots())

	// Unregistering after liveness loss is a no-op.
	assert.NoError(t, h.eng.UnregisterListener(dead))
	assert.Equal(t, 0.0, testutil.ToFloat64(h.metrics.SubscriberRemovals.WithLabelValues(metrics.ReasonUnsubscribe)))
}

func TestScenarioNilListener(t *testing.T) {
	h := newHarness(t, fallbackProvider())
	require.NoError(t, h.eng.RegisterListener(newRecorder("a")))

	assert.ErrorIs(t, h.eng.RegisterListener(nil), subscriber.ErrInvalidChannel)
	assert.ErrorIs(t, h.eng.UnregisterListener(nil), subscriber.ErrInvalidChannel)
	assert.Equal(t, 1, h.eng.SubscriberCount())
}

func TestFallbackIgnoresSpeed(t *testing.T) {
	for _, speed := range []float32{0, 0.5, 5, 27.8, 100, -3} {
		table := mapping.DefaultTable{}
		if got, _ := table.Lookup(vehicle.DrivingStateParked, speed); got != restriction.Unrestricted {
			t.Errorf("fallback PARKED at %v = %v, want UNRESTRICTED", speed, got)
		}
		if got, _ := table.Lookup(vehicle.DrivingStateMoving, speed); got != restriction.FullyRestricted {
			t.Errorf("fallback MOVING at %v = %v, want FULLY_RESTRICTED", speed, got)
		}
	}

	h := newHarness(t, fallbackProvider())
	h.speed.SetSpeed(40)
	h.setState(vehicle.DrivingStateParked)
	assert.Equal(t, restriction.Unrestricted, h.eng.CurrentRestrictions().ActiveRestrictions)
	h.setState(vehicle.DrivingStateIdling)
	assert.Equal(t, restriction.FullyRestricted, h.eng.CurrentRestrictions().ActiveRestrictions)
	h.setState(vehicle.DrivingStateUnknown)
	assert.Equal(t, restriction.FullyRestricted, h.eng.CurrentRestrictions().ActiveRestrictions)
}

func TestSpeedChangeWhileParkedNeverDispatches(t *testing.T) {
	h := newHarness(t, bandedProvider())
	rec := newRecorder("ui")
	require.NoError(t, h.eng.RegisterListener(rec))

	for _, speed := range []float32{1, 50, 0.001, 200} {
		h.speed.SetSpeed(speed)
	}
	h.eng.OnSpeedChanged(300)

	assert.Empty(t, rec.snapshots())
	assert.Equal(t, restriction.Unrestricted, h.eng.CurrentRestrictions().ActiveRestrictions)
}

func TestSpeedChangeEqualToLastIsNoop(t *testing.T) {
	stateSrc := mocks.NewMockDrivingStateSource(t)
	speedSrc := mocks.NewMockSpeedSource(t)
	stateSrc.EXPECT().RegisterChangeListener(mock.Anything).Return(func() {})
	speedSrc.EXPECT().RegisterSensorListener(mock.Anything).Return(func() {})

	eng, err := engine.New(engine.Config{Mapping: bandedProvider(), DrivingState: stateSrc, Speed: speedSrc})
	require.NoError(t, err)
	require.NoError(t, eng.Init())
	t.Cleanup(eng.Release)

	speedSrc.EXPECT().LatestSpeed().Return(float32(3)).Once()
	eng.OnDrivingStateChanged(&vehicle.DrivingStateEvent{State: vehicle.DrivingStateMoving})
	assert.Equal(t, restriction.NoVideo|restriction.NoKeyboard, eng.CurrentRestrictions().ActiveRestrictions)

	// Same speed: the driving state is not even consulted.
	eng.OnSpeedChanged(3)

	stateSrc.EXPECT().CurrentState().Return(vehicle.DrivingStateEvent{State: vehicle.DrivingStateMoving}).Once()
	eng.OnSpeedChanged(5)
	assert.Equal(t, restriction.FullyRestricted, eng.CurrentRestrictions().ActiveRestrictions)
}

func TestNormalMappingSpeedBands(t *testing.T) {
	h := newHarness(t, bandedProvider())
	rec := newRecorder("ui")
	require.NoError(t, h.eng.RegisterListener(rec))

	h.speed.SetSpeed(2)
	h.state.SetState(vehicle.DrivingStateMoving)
	h.speed.SetSpeed(4.9)
	h.speed.SetSpeed(5)
	h.speed.SetSpeed(5)
	h.speed.SetSpeed(30)
	h.speed.SetSpeed(1)
	h.state.SetState(vehicle.DrivingStateIdling)
	h.state.SetState(vehicle.DrivingStateParked)

	want := []restriction.Flags{
		restriction.NoVideo | restriction.NoKeyboard,
		restriction.FullyRestricted,
		restriction.NoVideo | restriction.NoKeyboard,
		restriction.NoVideo,
		restriction.Unrestricted,
	}
	assert.Equal(t, want, flagsOf(rec.snapshots()))
}

func TestUnknownLookupFailsSafe(t *testing.T) {
	h := newHarness(t, bandedProvider())

	// UNKNOWN has no rule.
	h.setState(vehicle.DrivingStateUnknown)
	assert.Equal(t, restriction.FullyRestricted, h.eng.CurrentRestrictions().ActiveRestrictions)

	h.setState(vehicle.DrivingStateParked)
	require.Equal(t, restriction.Unrestricted, h.eng.CurrentRestrictions().ActiveRestrictions)

	// Negative speed falls outside every MOVING band.
	h.speed.SetSpeed(-1)
	h.setState(vehicle.DrivingStateMoving)
	assert.Equal(t, restriction.FullyRestricted, h.eng.CurrentRestrictions().ActiveRestrictions)

	h.setState(vehicle.DrivingStateParked)
	require.Equal(t, restriction.Unrestricted, h.eng.CurrentRestrictions().ActiveRestrictions)

	// So does a NaN reading.
	h.speed.SetSpeed(float32(math.NaN()))
	h.setState(vehicle.DrivingStateMoving)
	assert.Equal(t, restriction.FullyRestricted, h.eng.CurrentRestrictions().ActiveRestrictions)
}

// gatedSpeed is a speed source whose LatestSpeed blocks while armed.
type gatedSpeed struct {
	speed   float32
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func newGatedSpeed(speed float32) *gatedSpeed {
	return &gatedSpeed{speed: speed, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedSpeed) LatestSpeed() float32 {
	if g.armed.CompareAndSwap(true, false) {
		close(g.entered)
		<-g.release
	}
	return g.speed
}

func (g *gatedSpeed) RegisterSensorListener(func([]vehicle.SensorEvent)) func() {
	return func() {}
}

func TestSpeedEventDuringStateChangeIsNotLost(t *testing.T) {
	state := vehicle.NewDrivingStateService(vehicle.DrivingStateMoving)
	speed := newGatedSpeed(2)

	eng, err := engine.New(engine.Config{
		Mapping:      bandedProvider(),
		DrivingState: state,
		Speed:        speed,
	})
	require.NoError(t, err)
	require.NoError(t, eng.Init())
	t.Cleanup(eng.Release)

	speed.armed.Store(true)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		eng.OnDrivingStateChanged(&vehicle.DrivingStateEvent{State: vehicle.DrivingStateMoving})
	}()
	<-speed.entered

	// A newer reading arrives while the state change holds the stale one.
	go func() {
		defer wg.Done()
		eng.OnSpeedChanged(30)
	}()
	time.Sleep(20 * time.Millisecond)
	close(speed.release)
	wg.Wait()

	assert.Equal(t, restriction.FullyRestricted, eng.CurrentRestrictions().ActiveRestrictions)
}

func TestSensorEventsFiltered(t *testing.T) {
	h := newHarness(t, fallbackProvider())
	rec := newRecorder("ui")
	h.state.SetState(vehicle.DrivingStateIdling)
	require.NoError(t, h.eng.RegisterListener(rec))

	// Gear and empty speed events are ignored; state stays IDLING so no
	// speed event can dispatch either.
	h.speed.Publish([]vehicle.SensorEvent{
		{Type: vehicle.SensorTypeGear, FloatValues: []float32{4}},
		{Type: vehicle.SensorTypeSpeed},
	})
	assert.Empty(t, rec.snapshots())
}

func TestTimestampsStrictlyIncreasing(t *testing.T) {
	state := vehicle.NewDrivingStateService(vehicle.DrivingStateParked)
	eng, err := engine.New(engine.Config{
		Mapping:      bandedProvider(),
		DrivingState: state,
		Speed:        vehicle.NewSpeedSensor(0),
		Clock:        func() int64 { return 1000 },
	})
	require.NoError(t, err)
	require.NoError(t, eng.Init())
	defer eng.Release()

	rec := newRecorder("ui")
	require.NoError(t, eng.RegisterListener(rec))

	for range 3 {
		state.SetState(vehicle.DrivingStateIdling)
		state.SetState(vehicle.DrivingStateMoving)
		state.SetState(vehicle.DrivingStateParked)
	}

	got := rec.snapshots()
	require.Len(t, got, 9)
	prev := int64(1000)
	for i, s := range got {
		assert.Greater(t, s.TimestampNanos, prev, "snapshot %d", i)
		prev = s.TimestampNanos
	}
	assert.Equal(t, prev, eng.CurrentRestrictions().TimestampNanos)
}

func TestUnregisterStopsDelivery(t *testing.T) {
	h := newHarness(t, fallbackProvider())
	rec := newRecorder("ui")
	require.NoError(t, h.eng.RegisterListener(rec))

	h.setState(vehicle.DrivingStateMoving)
	require.NoError(t, h.eng.UnregisterListener(rec))
	require.NoError(t, h.eng.UnregisterListener(rec))
	require.NoError(t, h.eng.UnregisterListener(newRecorder("never-registered")))
	h.setState(vehicle.DrivingStateParked)

	assert.Len(t, rec.snapshots(), 1)
	assert.Zero(t, rec.ArmedCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.SubscriberRemovals.WithLabelValues(metrics.ReasonUnsubscribe)))
	assert.Equal(t, 0.0, testutil.ToFloat64(h.metrics.Subscribers))
}

func TestRegisterIsIdempotent(t *testing.T) {
	h := newHarness(t, fallbackProvider())
	rec := newRecorder("ui")
	require.NoError(t, h.eng.RegisterListener(rec))
	require.NoError(t, h.eng.RegisterListener(rec))

	// A different channel value with the same ID is the same subscriber.
	require.NoError(t, h.eng.RegisterListener(newRecorder("ui")))

	assert.Equal(t, 1, h.eng.SubscriberCount())
	h.setState(vehicle.DrivingStateMoving)
	assert.Len(t, rec.snapshots(), 1)
}

func TestSubscribersInRegistrationOrder(t *testing.T) {
	h := newHarness(t, fallbackProvider())
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, h.eng.RegisterListener(newRecorder(id)))
	}

	var ids []string
	for _, ch := range h.eng.Subscribers() {
		ids = append(ids, ch.ID())
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestDeliveryFailureIsolated(t *testing.T) {
	h := newHarness(t, fallbackProvider())

	var order []string
	failing := subscriber.NewFuncChannel("failing", func(restriction.Snapshot) error {
		order = append(order, "failing")
		return errors.New("broken pipe")
	})
	ok := subscriber.NewFuncChannel("ok", func(restriction.Snapshot) error {
		order = append(order, "ok")
		return nil
	})
	require.NoError(t, h.eng.RegisterListener(failing))
	require.NoError(t, h.eng.RegisterListener(ok))

	h.setState(vehicle.DrivingStateMoving)

	assert.Equal(t, []string{"failing", "ok"}, order)
	assert.Equal(t, 2, h.eng.SubscriberCount())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.DispatchTotal.WithLabelValues(metrics.ResultFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.DispatchTotal.WithLabelValues(metrics.ResultDelivered)))

	errs := h.events.byCategory(log.CategoryError)
	require.Len(t, errs, 1)
	assert.Equal(t, "failing", errs[0].ConnectionID)

	dispatches := h.events.byCategory(log.CategoryDispatch)
	require.Len(t, dispatches, 1)
	assert.Equal(t, 2, dispatches[0].Dispatch.Subscribers)
	assert.Equal(t, 1, dispatches[0].Dispatch.Delivered)
	assert.Equal(t, 1, dispatches[0].Dispatch.Failed)
}

func TestLinkFailureStillRegisters(t *testing.T) {
	h := newHarness(t, fallbackProvider())

	ch := submocks.NewMockChannel(t)
	ch.EXPECT().ID().Return("unlinked")
	ch.EXPECT().Link(mock.Anything).Return(nil, errors.New("link unsupported")).Once()

	require.NoError(t, h.eng.RegisterListener(ch))
	assert.Equal(t, 1, h.eng.SubscriberCount())

	var buf bytes.Buffer
	require.NoError(t, h.eng.Dump(&buf))
	assert.Contains(t, buf.String(), "unlinked")
	assert.Contains(t, buf.String(), "[no liveness link]")
}

func TestLostChannelIsNotRegistered(t *testing.T) {
	h := newHarness(t, fallbackProvider())

	delivered := 0
	ch := subscriber.NewFuncChannel("dead-on-arrival", func(restriction.Snapshot) error {
		delivered++
		return nil
	})
	ch.Close()

	require.NoError(t, h.eng.RegisterListener(ch))
	assert.Equal(t, 0, h.eng.SubscriberCount())

	h.setState(vehicle.DrivingStateMoving)
	h.setState(vehicle.DrivingStateParked)
	assert.Equal(t, 0, h.eng.SubscriberCount())
	assert.Equal(t, 0, delivered)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.SubscriberRemovals.WithLabelValues(metrics.ReasonLiveness)))

	// Unregistering it afterwards is harmless.
	require.NoError(t, h.eng.UnregisterListener(ch))
}

func TestReleaseClearsWithoutNotifying(t *testing.T) {
	h := newHarness(t, fallbackProvider())
	a := newRecorder("a")
	b := newRecorder("b")
	require.NoError(t, h.eng.RegisterListener(a))
	require.NoError(t, h.eng.RegisterListener(b))

	h.eng.Release()

	assert.Zero(t, h.eng.SubscriberCount())
	assert.Zero(t, a.ArmedCount())
	assert.Zero(t, b.ArmedCount())
	assert.Empty(t, a.snapshots())
	assert.Zero(t, h.state.ListenerCount())
	assert.Zero(t, h.speed.ListenerCount())
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.SubscriberRemovals.WithLabelValues(metrics.ReasonRelease)))

	// Source events no longer reach the engine.
	h.state.SetState(vehicle.DrivingStateMoving)
	assert.Equal(t, restriction.Unrestricted, h.eng.CurrentRestrictions().ActiveRestrictions)

	// Closing a released channel does not touch the engine.
	a.Close()
	assert.Equal(t, 0.0, testutil.ToFloat64(h.metrics.SubscriberRemovals.WithLabelValues(metrics.ReasonLiveness)))
}

func TestReentrantNotify(t *testing.T) {
	h := newHarness(t, fallbackProvider())

	var mu sync.Mutex
	var got []restriction.Flags
	var once sync.Once
	ch := subscriber.NewFuncChannel("reentrant", func(s restriction.Snapshot) error {
		mu.Lock()
		got = append(got, s.ActiveRestrictions)
		mu.Unlock()
		once.Do(func() {
			_ = h.eng.CurrentRestrictions()
			h.setState(vehicle.DrivingStateParked)
		})
		return nil
	})
	require.NoError(t, h.eng.RegisterListener(ch))

	h.setState(vehicle.DrivingStateMoving)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []restriction.Flags{restriction.FullyRestricted, restriction.Unrestricted}, got)
}

func TestUnregisterFromNotifySkipsLaterDispatches(t *testing.T) {
	h := newHarness(t, fallbackProvider())

	calls := 0
	var self *subscriber.FuncChannel
	self = subscriber.NewFuncChannel("once", func(restriction.Snapshot) error {
		calls++
		return h.eng.UnregisterListener(self)
	})
	require.NoError(t, h.eng.RegisterListener(self))

	h.setState(vehicle.DrivingStateMoving)
	h.setState(vehicle.DrivingStateParked)
	assert.Equal(t, 1, calls)
	assert.Zero(t, h.eng.SubscriberCount())
}

func TestRemovalBetweenCaptureAndDeliveryIsSkipped(t *testing.T) {
	h := newHarness(t, fallbackProvider())

	victim := newRecorder("victim")
	killer := subscriber.NewFuncChannel("killer", func(restriction.Snapshot) error {
		victim.Close()
		return nil
	})
	require.NoError(t, h.eng.RegisterListener(killer))
	require.NoError(t, h.eng.RegisterListener(victim))

	h.setState(vehicle.DrivingStateMoving)

	assert.Empty(t, victim.snapshots())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.DispatchTotal.WithLabelValues(metrics.ResultSkipped)))
}

func TestConcurrentEventsPreserveOrder(t *testing.T) {
	h := newHarness(t, bandedProvider())
	// Speed events only count while the source reports MOVING.
	h.state.SetState(vehicle.DrivingStateMoving)
	rec := newRecorder("ui")
	require.NoError(t, h.eng.RegisterListener(rec))

	states := []vehicle.DrivingState{
		vehicle.DrivingStateParked,
		vehicle.DrivingStateIdling,
		vehicle.DrivingStateMoving,
		vehicle.DrivingStateUnknown,
	}

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				switch i % 3 {
				case 0:
					h.setState(states[(g+i)%len(states)])
				case 1:
					h.eng.OnSpeedChanged(float32((g*7 + i) % 12))
				default:
					_ = h.eng.CurrentRestrictions()
				}
			}
		}()
	}
	wg.Wait()

	got := rec.snapshots()
	require.NotEmpty(t, got)
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].SameRestrictions(got[i-1]), "snapshot %d repeats its predecessor", i)
		assert.Greater(t, got[i].TimestampNanos, got[i-1].TimestampNanos, "snapshot %d out of order", i)
	}
	assert.Equal(t, h.eng.CurrentRestrictions(), got[len(got)-1])
}

func TestConcurrentUnregisterAndLivenessLoss(t *testing.T) {
	h := newHarness(t, fallbackProvider())

	const n = 50
	recs := make([]*recorder, n)
	for i := range recs {
		recs[i] = newRecorder(strings.Repeat("x", i+1))
		require.NoError(t, h.eng.RegisterListener(recs[i]))
	}

	var wg sync.WaitGroup
	for _, r := range recs {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.Close()
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, h.eng.UnregisterListener(r))
		}()
	}
	wg.Wait()

	removals := testutil.ToFloat64(h.metrics.SubscriberRemovals.WithLabelValues(metrics.ReasonLiveness)) +
		testutil.ToFloat64(h.metrics.SubscriberRemovals.WithLabelValues(metrics.ReasonUnsubscribe))
	assert.Equal(t, float64(n), removals)
	assert.Zero(t, h.eng.SubscriberCount())
}

func TestDump(t *testing.T) {
	t.Run("fallback", func(t *testing.T) {
		h := newHarness(t, fallbackProvider())
		require.NoError(t, h.eng.RegisterListener(newRecorder("ui")))

		var buf bytes.Buffer
		require.NoError(t, h.eng.Dump(&buf))
		out := buf.String()
		assert.Contains(t, out, "mode: FALLBACK")
		assert.Contains(t, out, "fallback: true")
		assert.Contains(t, out, "subscribers: 1")
		assert.Contains(t, out, "built-in defaults")
	})

	t.Run("normal", func(t *testing.T) {
		h := newHarness(t, bandedProvider())
		var buf bytes.Buffer
		require.NoError(t, h.eng.Dump(&buf))
		assert.Contains(t, buf.String(), "mode: NORMAL")
		assert.Contains(t, buf.String(), "mapping: 4 rules")
	})

	t.Run("uninitialized", func(t *testing.T) {
		eng, err := engine.New(engine.Config{
			DrivingState: vehicle.NewDrivingStateService(vehicle.DrivingStateParked),
			Speed:        vehicle.NewSpeedSensor(0),
		})
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, eng.Dump(&buf))
		assert.Contains(t, buf.String(), "mapping: none loaded")
	})
}

func TestModeString(t *testing.T) {
	tests := []struct {
		mode engine.Mode
		want string
	}{
		{engine.ModeUninitialized, "UNINITIALIZED"},
		{engine.ModeFallbackMapping, "FALLBACK"},
		{engine.ModeNormalMapping, "NORMAL"},
		{engine.Mode(9), "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("Mode(%d).String() = %q, want %q", tt.mode, got, tt.want)
		}
	}
}
