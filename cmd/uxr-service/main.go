// Command uxr-service runs the UX restriction service.
//
// The service computes UI restrictions from the vehicle's driving state and
// speed and pushes every change to registered clients over:
//   - framed CBOR over TCP (optionally TLS), port 7420
//   - HTTP JSON and WebSocket, port 7421
//
// The vehicle sources are simulated in-process and can be driven from the
// interactive console.
//
// Usage:
//
//	uxr-service [flags]
//
// Flags:
//
//	-config string        Configuration file path
//	-mapping string       Restriction mapping file (empty = built-in fallback)
//	-listen string        TCP listen address (default ":7420")
//	-http string          HTTP listen address, empty disables (default ":7421")
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-protocol-log string  Write protocol events to this CBOR log file
//	-advertise            Advertise the service over mDNS (default true)
//	-instance string      mDNS instance name (default "uxr")
//	-tls-cert string      TLS certificate file
//	-tls-key string       TLS key file
//	-state string         Initial driving state (default "parked")
//	-speed float          Initial speed in m/s
//	-interactive          Start the interactive console
//	-simulate             Run the drive cycle simulation
//
// Flags override values from the configuration file.
//
// Examples:
//
//	# Fallback mapping, console attached
//	uxr-service -interactive
//
//	# Mapping file and protocol log
//	uxr-service -mapping /etc/uxr/mapping.yaml -protocol-log /var/log/uxr.ulog
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/uxr-project/uxr-go/cmd/uxr-service/console"
	"github.com/uxr-project/uxr-go/pkg/config"
	"github.com/uxr-project/uxr-go/pkg/discovery"
	"github.com/uxr-project/uxr-go/pkg/engine"
	"github.com/uxr-project/uxr-go/pkg/gateway"
	"github.com/uxr-project/uxr-go/pkg/httpapi"
	"github.com/uxr-project/uxr-go/pkg/log"
	"github.com/uxr-project/uxr-go/pkg/mapping"
	"github.com/uxr-project/uxr-go/pkg/metrics"
	"github.com/uxr-project/uxr-go/pkg/transport"
	"github.com/uxr-project/uxr-go/pkg/vehicle"
)

// shutdownTimeout bounds the HTTP server's graceful shutdown.
const shutdownTimeout = 5 * time.Second

var (
	configFile  string
	interactive bool
	simulate    bool
	overrides   config.Config
)

func init() {
	defaults := config.Default()

	flag.StringVar(&configFile, "config", "", "Configuration file path")
	flag.StringVar(&overrides.MappingFile, "mapping", "", "Restriction mapping file (empty = built-in fallback)")
	flag.StringVar(&overrides.ListenAddress, "listen", defaults.ListenAddress, "TCP listen address")
	flag.StringVar(&overrides.HTTPAddress, "http", defaults.HTTPAddress, "HTTP listen address, empty disables")
	flag.StringVar(&overrides.LogLevel, "log-level", defaults.LogLevel, "Log level: debug, info, warn, error")
	flag.StringVar(&overrides.ProtocolLog, "protocol-log", "", "Write protocol events to this CBOR log file")
	flag.BoolVar(&overrides.Advertise, "advertise", defaults.Advertise, "Advertise the service over mDNS")
	flag.StringVar(&overrides.InstanceName, "instance", defaults.InstanceName, "mDNS instance name")
	flag.StringVar(&overrides.TLS.CertFile, "tls-cert", "", "TLS certificate file")
	flag.StringVar(&overrides.TLS.KeyFile, "tls-key", "", "TLS key file")
	flag.StringVar(&overrides.Simulation.InitialState, "state", defaults.Simulation.InitialState, "Initial driving state")
	flag.Func("speed", "Initial speed in m/s", func(s string) error {
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return err
		}
		overrides.Simulation.InitialSpeed = float32(v)
		return nil
	})
	flag.BoolVar(&interactive, "interactive", false, "Start the interactive console")
	flag.BoolVar(&simulate, "simulate", false, "Run the drive cycle simulation")
}

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "uxr-service: %v\n", err)
		os.Exit(2)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "uxr-service: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, if any, and applies the flags that were
// set explicitly on the command line.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return cfg, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "mapping":
			cfg.MappingFile = overrides.MappingFile
		case "listen":
			cfg.ListenAddress = overrides.ListenAddress
		case "http":
			cfg.HTTPAddress = overrides.HTTPAddress
		case "log-level":
			cfg.LogLevel = overrides.LogLevel
		case "protocol-log":
			cfg.ProtocolLog = overrides.ProtocolLog
		case "advertise":
			cfg.Advertise = overrides.Advertise
		case "instance":
			cfg.InstanceName = overrides.InstanceName
		case "tls-cert":
			cfg.TLS.CertFile = overrides.TLS.CertFile
		case "tls-key":
			cfg.TLS.KeyFile = overrides.TLS.KeyFile
		case "state":
			cfg.Simulation.InitialState = overrides.Simulation.InitialState
		case "speed":
			cfg.Simulation.InitialSpeed = overrides.Simulation.InitialSpeed
		}
	})

	return cfg, cfg.Validate()
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Vehicle sources
	drivingState := vehicle.NewDrivingStateService(cfg.InitialState())
	speed := vehicle.NewSpeedSensor(cfg.Simulation.InitialSpeed)

	// The console owns the terminal, so logs go through its writer.
	var out io.Writer = os.Stderr
	var con *console.Console
	if interactive {
		var err error
		con, err = console.New()
		if err != nil {
			return err
		}
		defer con.Close()
		out = con.Stdout()
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: cfg.Level()}))

	protoLog, closeProtoLog, err := newProtocolLogger(cfg, logger)
	if err != nil {
		return err
	}
	defer closeProtoLog()

	m := metrics.New(prometheus.DefaultRegisterer)

	// Engine
	engCfg := engine.Config{
		DrivingState:   drivingState,
		Speed:          speed,
		Logger:         logger,
		ProtocolLogger: protoLog,
		Metrics:        m,
	}
	if cfg.MappingFile != "" {
		engCfg.Mapping = mapping.NewFileProvider(cfg.MappingFile)
	}
	eng, err := engine.New(engCfg)
	if err != nil {
		return err
	}
	if err := eng.Init(); err != nil {
		return err
	}
	defer eng.Release()
	logger.Info("restriction engine initialized", "mode", eng.Mode(), "restrictions", eng.CurrentRestrictions())

	// TCP service
	gw, err := gateway.NewServer(gateway.Config{Engine: eng, Logger: logger, ProtocolLogger: protoLog})
	if err != nil {
		return err
	}

	srvCfg := transport.ServerConfig{
		Address:        cfg.ListenAddress,
		KeepAlive:      cfg.TransportKeepAlive(),
		ProtocolLogger: protoLog,
		Logger:         logger,
		OnMessage:      gw.OnMessage,
		OnConnect: func(conn *transport.ServerConn) {
			logger.Info("client connected", "conn", conn.ID(), "remote", conn.RemoteAddr())
		},
		OnDisconnect: func(conn *transport.ServerConn) {
			logger.Info("client disconnected", "conn", conn.ID())
		},
		OnError: func(conn *transport.ServerConn, err error) {
			if conn != nil {
				logger.Debug("connection error", "conn", conn.ID(), "error", err)
				return
			}
			logger.Warn("server error", "error", err)
		},
	}
	if cfg.TLS.Enabled() {
		srvCfg.TLSConfig, err = transport.LoadServerTLSConfig(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		if err != nil {
			return err
		}
	}

	srv := transport.NewServer(srvCfg)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	defer srv.Stop()
	logger.Info("restriction service listening", "address", srv.Addr(), "tls", cfg.TLS.Enabled())

	g, gctx := errgroup.WithContext(ctx)

	// HTTP API
	if cfg.HTTPAddress != "" {
		h, err := httpapi.NewHandler(httpapi.Config{
			Engine:   eng,
			Gatherer: prometheus.DefaultGatherer,
			Logger:   logger,
		})
		if err != nil {
			return err
		}
		httpSrv := &http.Server{
			Addr:              cfg.HTTPAddress,
			Handler:           h.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logger.Info("http api listening", "address", cfg.HTTPAddress)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http api: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancelShutdown()
			return httpSrv.Shutdown(shutdownCtx)
		})
	}

	// mDNS
	if cfg.Advertise {
		adv, err := discovery.NewAdvertiser(discovery.AdvertiserConfig{
			InstanceName: cfg.InstanceName,
			Port:         listenPort(srv.Addr()),
			Mode:         discovery.ModeFor(eng.IsFallback()),
			Logger:       logger,
		})
		if err != nil {
			return err
		}
		if err := adv.Start(gctx); err != nil {
			// Advertising is best effort; the service stays reachable by address.
			logger.Warn("mDNS advertising unavailable", "error", err)
		} else {
			defer adv.Stop()
		}
	}

	// Simulation and console
	var sim *console.Simulation
	if simulate {
		sim = console.NewSimulation(drivingState, speed, console.DefaultStepInterval)
		sim.Start()
		defer sim.Stop()
		logger.Info("drive cycle simulation started")
	}

	if con != nil {
		con.Attach(console.Env{
			Engine:       eng,
			DrivingState: drivingState,
			Speed:        speed,
			Connections:  srv.ConnectionCount,
		}, sim)
		g.Go(func() error {
			con.Run(gctx, cancel)
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return con.Close()
		})
	}

	<-gctx.Done()
	logger.Info("shutting down")
	return g.Wait()
}

// newProtocolLogger builds the protocol event logger: a CBOR file when
// configured, plus the operational log at debug level. The returned close
// function is always non-nil.
func newProtocolLogger(cfg config.Config, logger *slog.Logger) (log.Logger, func(), error) {
	var loggers []log.Logger
	closeFn := func() {}

	if cfg.ProtocolLog != "" {
		fileLogger, err := log.NewFileLogger(cfg.ProtocolLog)
		if err != nil {
			return nil, closeFn, fmt.Errorf("protocol log: %w", err)
		}
		loggers = append(loggers, fileLogger)
		closeFn = func() {
			written, failed := fileLogger.Stats()
			logger.Info("protocol log closed", "path", cfg.ProtocolLog, "written", written, "failed", failed)
			fileLogger.Close()
		}
	}
	if cfg.Level() <= slog.LevelDebug {
		loggers = append(loggers, log.NewSlogAdapter(logger))
	}

	if len(loggers) == 0 {
		return nil, closeFn, nil
	}
	return log.NewMultiLogger(loggers...), closeFn, nil
}

// listenPort extracts the TCP port from the server's listen address.
func listenPort(addr net.Addr) uint16 {
	if tcp, ok := addr.(*net.TCPAddr); ok {
		return uint16(tcp.Port)
	}
	return transport.DefaultPort
}
