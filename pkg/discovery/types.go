package discovery

import (
	"errors"
	"time"

	"github.com/uxr-project/uxr-go/pkg/version"
)

// Service type constants for mDNS.
const (
	// ServiceType is the DNS-SD service type of the restriction service.
	ServiceType = "_uxr._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort matches the transport's default listen port.
	DefaultPort = 7420

	// ProtocolVersion is advertised under TXTKeyVersion.
	ProtocolVersion = version.Major
)

// TXT record key constants.
const (
	TXTKeyMode    = "mode" // Mapping mode: normal or fallback
	TXTKeyVersion = "ver"  // Wire protocol version
)

// Mode is the advertised mapping mode.
type Mode string

const (
	ModeNormal   Mode = "normal"
	ModeFallback Mode = "fallback"
)

// ModeFor returns the advertised mode for the engine's fallback flag.
func ModeFor(fallback bool) Mode {
	if fallback {
		return ModeFallback
	}
	return ModeNormal
}

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	return m == ModeNormal || m == ModeFallback
}

// Timing constants.
const (
	// DefaultTTL is the DNS record TTL used when none is configured.
	DefaultTTL = 120 * time.Second

	// BrowseTimeout is the default browse duration for one-shot lookups.
	BrowseTimeout = 5 * time.Second
)

// MaxInstanceNameLen is the DNS label limit for instance names.
const MaxInstanceNameLen = 63

// ServiceInfo is the content of one advertisement.
type ServiceInfo struct {
	InstanceName string
	Port         uint16
	Mode         Mode
	Version      string
}

// Service is a discovered restriction service.
type Service struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string
	Mode         Mode
	Version      string
}

// Compatible reports whether the service speaks a wire protocol version
// this module understands.
func (s *Service) Compatible() bool {
	return version.Supported(s.Version)
}

// Discovery errors.
var (
	ErrInvalidConfig       = errors.New("invalid discovery config")
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrMissingRequired     = errors.New("missing required field")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrAlreadyStarted      = errors.New("advertiser already started")
	ErrNotFound            = errors.New("service not found")
)
