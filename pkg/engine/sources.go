package engine

import "github.com/uxr-project/uxr-go/pkg/vehicle"

// DrivingStateSource reports the vehicle's driving state.
type DrivingStateSource interface {
	// RegisterChangeListener subscribes fn to driving-state changes.
	// The returned function unsubscribes it.
	RegisterChangeListener(fn func(*vehicle.DrivingStateEvent)) (unregister func())

	// CurrentState returns the latest known driving state. The engine
	// calls it under its lock; it must not call back into the engine.
	CurrentState() vehicle.DrivingStateEvent
}

// SpeedSource reports the vehicle's speed.
type SpeedSource interface {
	// LatestSpeed returns the most recent speed reading. Called under the
	// engine lock, like CurrentState.
	LatestSpeed() float32

	// RegisterSensorListener subscribes fn to sensor events.
	// The returned function unsubscribes it.
	RegisterSensorListener(fn func([]vehicle.SensorEvent)) (unregister func())
}

var (
	_ DrivingStateSource = (*vehicle.DrivingStateService)(nil)
	_ SpeedSource        = (*vehicle.SpeedSensor)(nil)
)
