package vehicle

import (
	"maps"
	"slices"
	"sync"
	"time"
)

// listenerSet is a registry of callbacks keyed by registration handle.
// Callbacks are invoked outside the owner's lock.
type listenerSet[T any] struct {
	mu     sync.Mutex
	nextID uint64
	fns    map[uint64]func(T)
}

func (l *listenerSet[T]) add(fn func(T)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.fns == nil {
		l.fns = make(map[uint64]func(T))
	}
	l.nextID++
	id := l.nextID
	l.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

// snapshot copies the current callbacks in registration order.
func (l *listenerSet[T]) snapshot() []func(T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fns := make([]func(T), 0, len(l.fns))
	for _, id := range slices.Sorted(maps.Keys(l.fns)) {
		fns = append(fns, l.fns[id])
	}
	return fns
}

func (l *listenerSet[T]) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns)
}

// DrivingStateService is an in-memory driving state source.
type DrivingStateService struct {
	mu        sync.RWMutex
	current   DrivingStateEvent
	listeners listenerSet[*DrivingStateEvent]
}

// NewDrivingStateService creates a source reporting the given initial state.
func NewDrivingStateService(initial DrivingState) *DrivingStateService {
	return &DrivingStateService{
		current: DrivingStateEvent{State: initial, Timestamp: time.Now()},
	}
}

// RegisterChangeListener registers fn for driving state changes.
// The returned function unregisters it and is safe to call more than once.
func (s *DrivingStateService) RegisterChangeListener(fn func(*DrivingStateEvent)) func() {
	return s.listeners.add(fn)
}

// CurrentState returns the most recent driving state.
func (s *DrivingStateService) CurrentState() DrivingStateEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// SetState updates the driving state and notifies listeners if it changed.
func (s *DrivingStateService) SetState(state DrivingState) bool {
	s.mu.Lock()
	if s.current.State == state {
		s.mu.Unlock()
		return false
	}
	s.current = DrivingStateEvent{State: state, Timestamp: time.Now()}
	ev := s.current
	s.mu.Unlock()

	for _, fn := range s.listeners.snapshot() {
		e := ev
		fn(&e)
	}
	return true
}

// ListenerCount returns the number of registered listeners.
func (s *DrivingStateService) ListenerCount() int {
	return s.listeners.count()
}

// SpeedSensor is an in-memory speed sensor.
type SpeedSensor struct {
	mu        sync.RWMutex
	latest    float32
	listeners listenerSet[[]SensorEvent]
}

// NewSpeedSensor creates a sensor reporting the given initial speed.
func NewSpeedSensor(initial float32) *SpeedSensor {
	return &SpeedSensor{latest: initial}
}

// LatestSpeed returns the last reported speed in m/s.
func (s *SpeedSensor) LatestSpeed() float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// RegisterSensorListener registers fn for sensor event batches.
func (s *SpeedSensor) RegisterSensorListener(fn func([]SensorEvent)) func() {
	return s.listeners.add(fn)
}

// SetSpeed records a new speed and publishes it as a speed event.
func (s *SpeedSensor) SetSpeed(speed float32) {
	s.mu.Lock()
	s.latest = speed
	s.mu.Unlock()

	s.Publish([]SensorEvent{{
		Type:        SensorTypeSpeed,
		Timestamp:   time.Now(),
		FloatValues: []float32{speed},
	}})
}

// Publish delivers a raw batch of sensor events to listeners.
// The latest speed is not updated; use SetSpeed for that.
func (s *SpeedSensor) Publish(events []SensorEvent) {
	for _, fn := range s.listeners.snapshot() {
		fn(events)
	}
}

// ListenerCount returns the number of registered listeners.
func (s *SpeedSensor) ListenerCount() int {
	return s.listeners.count()
}
