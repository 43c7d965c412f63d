package vehicle

import "time"

// SensorType identifies the kind of sensor reading.
type SensorType uint16

const (
	// SensorTypeSpeed is the vehicle speed in m/s.
	SensorTypeSpeed SensorType = 2

	// SensorTypeGear is the current gear selection.
	SensorTypeGear SensorType = 7

	// SensorTypeParkingBrake is the parking brake state (1 = engaged).
	SensorTypeParkingBrake SensorType = 8
)

// String returns the sensor type name.
func (t SensorType) String() string {
	switch t {
	case SensorTypeSpeed:
		return "SPEED"
	case SensorTypeGear:
		return "GEAR"
	case SensorTypeParkingBrake:
		return "PARKING_BRAKE"
	default:
		return "UNKNOWN"
	}
}

// SensorEvent is a single sensor reading.
type SensorEvent struct {
	Type        SensorType
	Timestamp   time.Time
	FloatValues []float32
}

// Speed returns the speed carried by a speed event.
// ok is false for other sensor types or events without values.
func (e SensorEvent) Speed() (speed float32, ok bool) {
	if e.Type != SensorTypeSpeed || len(e.FloatValues) == 0 {
		return 0, false
	}
	return e.FloatValues[0], true
}
