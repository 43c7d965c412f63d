package vehicle

import (
	"fmt"
	"strings"
	"time"
)

// DrivingState is the coarse motion phase of the vehicle.
type DrivingState uint8

const (
	// DrivingStateUnknown indicates the driving state cannot be determined.
	DrivingStateUnknown DrivingState = iota

	// DrivingStateParked indicates the vehicle is parked.
	DrivingStateParked

	// DrivingStateIdling indicates the vehicle is stationary but not parked.
	DrivingStateIdling

	// DrivingStateMoving indicates the vehicle is moving.
	DrivingStateMoving
)

// String returns the driving state name.
func (s DrivingState) String() string {
	switch s {
	case DrivingStateParked:
		return "PARKED"
	case DrivingStateIdling:
		return "IDLING"
	case DrivingStateMoving:
		return "MOVING"
	default:
		return "UNKNOWN"
	}
}

// ParseDrivingState parses a driving state name (case-insensitive).
func ParseDrivingState(s string) (DrivingState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "parked":
		return DrivingStateParked, nil
	case "idling":
		return DrivingStateIdling, nil
	case "moving":
		return DrivingStateMoving, nil
	case "unknown":
		return DrivingStateUnknown, nil
	default:
		return DrivingStateUnknown, fmt.Errorf("unknown driving state %q", s)
	}
}

// DrivingStateEvent reports a driving state observed at a point in time.
type DrivingStateEvent struct {
	State     DrivingState
	Timestamp time.Time
}
