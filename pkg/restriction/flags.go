package restriction

import (
	"fmt"
	"math/bits"
	"strings"
)

// Flags is a bitmask of active UX restrictions.
type Flags uint16

// Restriction flags.
const (
	// Unrestricted means no restrictions apply.
	Unrestricted Flags = 0

	// NoDialpad disallows dialpad entry.
	NoDialpad Flags = 1 << 0

	// NoFiltering disallows filtering of lists.
	NoFiltering Flags = 1 << 1

	// LimitStringLength limits displayed string length.
	LimitStringLength Flags = 1 << 2

	// NoKeyboard disallows keyboard input.
	NoKeyboard Flags = 1 << 3

	// NoVideo disallows video playback.
	NoVideo Flags = 1 << 4

	// LimitContent limits the number of items shown.
	LimitContent Flags = 1 << 5

	// NoSetup disallows setup and configuration screens.
	NoSetup Flags = 1 << 6

	// NoTextMessage disallows reading text messages.
	NoTextMessage Flags = 1 << 7

	// NoVoiceTranscription disallows voice-to-text transcription.
	NoVoiceTranscription Flags = 1 << 8

	// FullyRestricted sets every restriction.
	FullyRestricted = NoDialpad | NoFiltering | LimitStringLength | NoKeyboard |
		NoVideo | LimitContent | NoSetup | NoTextMessage | NoVoiceTranscription
)

var flagNames = []struct {
	flag Flags
	name string
}{
	{NoDialpad, "NO_DIALPAD"},
	{NoFiltering, "NO_FILTERING"},
	{LimitStringLength, "LIMIT_STRING_LENGTH"},
	{NoKeyboard, "NO_KEYBOARD"},
	{NoVideo, "NO_VIDEO"},
	{LimitContent, "LIMIT_CONTENT"},
	{NoSetup, "NO_SETUP"},
	{NoTextMessage, "NO_TEXT_MESSAGE"},
	{NoVoiceTranscription, "NO_VOICE_TRANSCRIPTION"},
}

// Has reports whether every flag in f2 is set in f.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// Count returns the number of active flags.
func (f Flags) Count() int {
	return bits.OnesCount16(uint16(f & FullyRestricted))
}

// IsValid reports whether f contains only known flags.
func (f Flags) IsValid() bool {
	return f&^FullyRestricted == 0
}

// String renders the flags as UNRESTRICTED, FULLY_RESTRICTED or a
// "|"-separated list of flag names.
func (f Flags) String() string {
	switch f {
	case Unrestricted:
		return "UNRESTRICTED"
	case FullyRestricted:
		return "FULLY_RESTRICTED"
	}

	var parts []string
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			parts = append(parts, fn.name)
		}
	}
	if rest := f &^ FullyRestricted; rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint16(rest)))
	}
	return strings.Join(parts, "|")
}

// Names returns the names of the active flags in bit order. Unknown bits
// are omitted.
func (f Flags) Names() []string {
	names := make([]string, 0, f.Count())
	for _, fn := range flagNames {
		if f.Has(fn.flag) {
			names = append(names, fn.name)
		}
	}
	return names
}

// ParseFlag parses a single flag name (case-insensitive). UNRESTRICTED and
// FULLY_RESTRICTED are accepted as aliases for the empty and full masks.
func ParseFlag(name string) (Flags, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	switch n {
	case "UNRESTRICTED":
		return Unrestricted, nil
	case "FULLY_RESTRICTED":
		return FullyRestricted, nil
	}
	for _, fn := range flagNames {
		if fn.name == n {
			return fn.flag, nil
		}
	}
	return 0, fmt.Errorf("unknown restriction %q", name)
}

// ParseFlags combines a list of flag names into one mask.
func ParseFlags(names []string) (Flags, error) {
	var f Flags
	for _, name := range names {
		v, err := ParseFlag(name)
		if err != nil {
			return 0, err
		}
		f |= v
	}
	return f, nil
}
