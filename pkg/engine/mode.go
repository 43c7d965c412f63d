package engine

// Mode is the engine's mapping mode.
type Mode uint8

const (
	// ModeUninitialized is the mode before Init.
	ModeUninitialized Mode = iota

	// ModeFallbackMapping uses the built-in default table.
	ModeFallbackMapping

	// ModeNormalMapping uses the loaded mapping table.
	ModeNormalMapping
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeUninitialized:
		return "UNINITIALIZED"
	case ModeFallbackMapping:
		return "FALLBACK"
	case ModeNormalMapping:
		return "NORMAL"
	default:
		return "UNKNOWN"
	}
}
