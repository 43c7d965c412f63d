package restriction

import "fmt"

// Snapshot is the UX restriction state distributed to subscribers.
type Snapshot struct {
	// RequiresDistractionOptimization is false iff ActiveRestrictions is Unrestricted.
	RequiresDistractionOptimization bool `cbor:"1,keyasint" json:"requiresDistractionOptimization"`

	// ActiveRestrictions is the bitmask of active restrictions.
	ActiveRestrictions Flags `cbor:"2,keyasint" json:"activeRestrictions"`

	// TimestampNanos is the monotonic time the snapshot was computed.
	TimestampNanos int64 `cbor:"3,keyasint" json:"timestampNanos"`
}

// NewSnapshot creates a snapshot for the given restrictions.
func NewSnapshot(active Flags, timestampNanos int64) Snapshot {
	return Snapshot{
		RequiresDistractionOptimization: active != Unrestricted,
		ActiveRestrictions:              active,
		TimestampNanos:                  timestampNanos,
	}
}

// SameRestrictions reports whether s and other carry the same restrictions.
// Timestamps are ignored.
func (s Snapshot) SameRestrictions(other Snapshot) bool {
	return s.ActiveRestrictions == other.ActiveRestrictions &&
		s.RequiresDistractionOptimization == other.RequiresDistractionOptimization
}

// String returns a compact description of the snapshot.
func (s Snapshot) String() string {
	return fmt.Sprintf("%s (dist-opt=%t, t=%d)",
		s.ActiveRestrictions, s.RequiresDistractionOptimization, s.TimestampNanos)
}
