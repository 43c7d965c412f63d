package mapping

import (
	"github.com/uxr-project/uxr-go/pkg/restriction"
	"github.com/uxr-project/uxr-go/pkg/vehicle"
)

// DefaultRestrictions is the built-in mapping used when no table is loaded.
// It does not depend on speed.
func DefaultRestrictions(state vehicle.DrivingState) restriction.Flags {
	switch state {
	case vehicle.DrivingStateParked:
		return restriction.Unrestricted
	default:
		return restriction.FullyRestricted
	}
}

// DefaultTable exposes DefaultRestrictions as a Table. It matches every input.
type DefaultTable struct{}

// Lookup returns DefaultRestrictions(state).
func (DefaultTable) Lookup(state vehicle.DrivingState, _ float32) (restriction.Flags, bool) {
	return DefaultRestrictions(state), true
}
