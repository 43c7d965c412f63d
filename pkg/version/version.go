// Package version provides wire protocol version parsing, compatibility
// checks and ALPN helpers.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// Current is the wire protocol version implemented by this module.
	Current = "1.0"

	// Major is the major component of Current. Peers are compatible when
	// their major versions match.
	Major = "1"

	// ALPN is the ALPN protocol identifier for Current.
	ALPN = alpnPrefix + Major

	alpnPrefix = "uxr/"
)

// Version is a parsed "major[.minor]" protocol version.
type Version struct {
	Major uint16
	Minor uint16
}

// Parse parses "major" or "major.minor". A missing minor is zero.
func Parse(s string) (Version, error) {
	majorStr, minorStr, hasMinor := strings.Cut(s, ".")

	major, err := parseComponent(majorStr)
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: bad major component", s)
	}
	if !hasMinor {
		return Version{Major: major}, nil
	}

	minor, err := parseComponent(minorStr)
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}
	return Version{Major: major, Minor: minor}, nil
}

func parseComponent(s string) (uint16, error) {
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	n, err := strconv.ParseUint(s, 10, 16)
	return uint16(n), err
}

// String returns the version as "major.minor".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible returns true if the other version has the same major version.
func (v Version) Compatible(other Version) bool {
	return v.Major == other.Major
}

// Supported reports whether s parses and is compatible with Current.
func Supported(s string) bool {
	v, err := Parse(s)
	if err != nil {
		return false
	}
	current, _ := Parse(Current)
	return current.Compatible(v)
}

// SupportedMajor reports whether major matches Current's major version.
func SupportedMajor(major uint16) bool {
	current, _ := Parse(Current)
	return current.Major == major
}

// ALPNProtocol returns the ALPN protocol string for a major version: "uxr/N".
func ALPNProtocol(major uint16) string {
	return fmt.Sprintf("%s%d", alpnPrefix, major)
}

// MajorFromALPN extracts the major version from an ALPN protocol string.
func MajorFromALPN(alpn string) (uint16, error) {
	suffix, ok := strings.CutPrefix(alpn, alpnPrefix)
	if !ok {
		return 0, fmt.Errorf("not a UXR ALPN protocol: %q", alpn)
	}
	if suffix == "" {
		return 0, fmt.Errorf("empty major version in ALPN: %q", alpn)
	}

	major, err := strconv.ParseUint(suffix, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid major version in ALPN %q: %w", alpn, err)
	}
	return uint16(major), nil
}
