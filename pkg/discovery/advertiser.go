package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// InstanceName is the DNS-SD instance label. Required.
	InstanceName string

	// Port is the transport listen port. Zero means DefaultPort.
	Port uint16

	// Mode is advertised at start. Empty means ModeNormal.
	Mode Mode

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL.
	// Default: 120 seconds.
	TTL time.Duration

	// Logger receives operational logs. Nil disables them.
	Logger *slog.Logger
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{
		InstanceName: "uxr",
		Port:         DefaultPort,
		Mode:         ModeNormal,
		TTL:          DefaultTTL,
	}
}

// Validate checks the configuration and fills in defaults.
func (c *AdvertiserConfig) Validate() error {
	if err := ValidateInstanceName(c.InstanceName); err != nil {
		return err
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Mode == "" {
		c.Mode = ModeNormal
	}
	if !c.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}
	if c.TTL < 0 {
		return fmt.Errorf("%w: negative ttl", ErrInvalidConfig)
	}
	if c.TTL == 0 {
		c.TTL = DefaultTTL
	}
	return nil
}

// Advertiser announces the restriction service over mDNS.
type Advertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
	mode   Mode
}

// NewAdvertiser creates an advertiser. It does not touch the network until Start.
func NewAdvertiser(config AdvertiserConfig) (*Advertiser, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Advertiser{
		config: config,
		mode:   config.Mode,
	}, nil
}

// getInterfaces returns the network interfaces to use for advertising.
// Returns nil to use all interfaces.
func (a *Advertiser) getInterfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}

	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		a.debugLog("interface not found, advertising on all", "interface", a.config.Interface, "error", err)
		return nil
	}
	return []net.Interface{*iface}
}

// Start registers the service. The advertisement is withdrawn when ctx is
// cancelled or Stop is called.
func (a *Advertiser) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		return ErrAlreadyStarted
	}

	txt := TXTRecordsToStrings(a.txtLocked())

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		a.config.InstanceName,
		ServiceType,
		Domain,
		int(a.config.Port),
		txt,
		a.getInterfaces(),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceType, err)
	}
	a.server = server

	if a.config.Logger != nil {
		a.config.Logger.Info("advertising service",
			"instance", a.config.InstanceName,
			"type", ServiceType,
			"port", a.config.Port,
			"mode", a.mode)
	}

	go func() {
		<-ctx.Done()
		a.shutdown(server)
	}()
	return nil
}

// UpdateMode changes the advertised mode. Before Start it only records the
// mode for the next registration.
func (a *Advertiser) UpdateMode(mode Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, mode)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mode == mode {
		return nil
	}
	a.mode = mode
	if a.server == nil {
		return nil
	}
	a.server.SetText(TXTRecordsToStrings(a.txtLocked()))
	a.debugLog("advertised mode updated", "mode", mode)
	return nil
}

// Mode returns the mode currently advertised (or to be advertised).
func (a *Advertiser) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// IsRunning reports whether the service is registered.
func (a *Advertiser) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.server != nil
}

// Stop withdraws the advertisement. Safe to call more than once.
func (a *Advertiser) Stop() {
	a.mu.Lock()
	server := a.server
	a.mu.Unlock()

	if server != nil {
		a.shutdown(server)
	}
}

// shutdown stops server if it is still the active one.
func (a *Advertiser) shutdown(server *zeroconf.Server) {
	a.mu.Lock()
	if a.server != server {
		a.mu.Unlock()
		return
	}
	a.server = nil
	a.mu.Unlock()

	server.Shutdown()
	a.debugLog("advertisement withdrawn", "instance", a.config.InstanceName)
}

// txtLocked builds the TXT records for the current mode. Must hold a.mu.
func (a *Advertiser) txtLocked() TXTRecordMap {
	return EncodeServiceTXT(&ServiceInfo{
		InstanceName: a.config.InstanceName,
		Port:         a.config.Port,
		Mode:         a.mode,
	})
}

func (a *Advertiser) debugLog(msg string, args ...any) {
	if a.config.Logger != nil {
		a.config.Logger.Debug(msg, args...)
	}
}
