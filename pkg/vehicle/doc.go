// Package vehicle defines the vehicle-side inputs consumed by the UX
// restriction engine and provides in-memory sources for them.
//
// # Driving State
//
// The driving state is a coarse motion phase of the vehicle:
//   - PARKED: gear in park, vehicle stationary
//   - IDLING: vehicle stationary but not parked
//   - MOVING: vehicle in motion
//   - UNKNOWN: no reliable information available
//
// State changes are delivered as *DrivingStateEvent values. A nil event
// means the producer had nothing to report and is ignored by consumers.
//
// # Sensors
//
// Sensor readings arrive in batches of SensorEvent. Only SensorTypeSpeed
// events are relevant for UX restrictions; the speed is the first float
// value in meters per second.
//
// # Simulation
//
// DrivingStateService and SpeedSensor are thread-safe in-memory sources.
// They are used by cmd/uxr-service when no vehicle bus is attached and by
// tests across the module.
package vehicle
