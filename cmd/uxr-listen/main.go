// Command uxr-listen connects to a UX restriction service, registers for
// restriction changes and prints every snapshot it receives.
//
// Usage:
//
//	uxr-listen [flags]
//
// Flags:
//
//	-addr string         Service address (default "localhost:7420")
//	-discover            Find the service over mDNS instead of -addr
//	-discover-timeout    How long to browse for the service (default 5s)
//	-tls                 Connect with TLS
//	-ca string           PEM CA bundle for verifying the server
//	-server-name string  Expected server name for TLS
//	-insecure            Skip TLS server verification (testing only)
//	-once                Print the current restrictions and exit
//	-json                Print snapshots as JSON lines
//	-reconnect           Reconnect with backoff when the connection is lost
//
// Examples:
//
//	# Watch a local service
//	uxr-listen
//
//	# Query once through mDNS discovery
//	uxr-listen -discover -once
//
//	# Keep watching across service restarts
//	uxr-listen -reconnect -json
package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/uxr-project/uxr-go/pkg/connection"
	"github.com/uxr-project/uxr-go/pkg/discovery"
	"github.com/uxr-project/uxr-go/pkg/gateway"
	"github.com/uxr-project/uxr-go/pkg/httpapi"
	"github.com/uxr-project/uxr-go/pkg/restriction"
	"github.com/uxr-project/uxr-go/pkg/transport"
)

var (
	addr            = flag.String("addr", fmt.Sprintf("localhost:%d", transport.DefaultPort), "Service address")
	discover        = flag.Bool("discover", false, "Find the service over mDNS instead of -addr")
	discoverTimeout = flag.Duration("discover-timeout", discovery.BrowseTimeout, "How long to browse for the service")
	useTLS          = flag.Bool("tls", false, "Connect with TLS")
	caFile          = flag.String("ca", "", "PEM CA bundle for verifying the server")
	serverName      = flag.String("server-name", "", "Expected server name for TLS")
	insecure        = flag.Bool("insecure", false, "Skip TLS server verification (testing only)")
	once            = flag.Bool("once", false, "Print the current restrictions and exit")
	jsonOut         = flag.Bool("json", false, "Print snapshots as JSON lines")
	reconnect       = flag.Bool("reconnect", false, "Reconnect with backoff when the connection is lost")
)

func main() {
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "uxr-listen: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer) error {
	printer := newPrinter(out, *jsonOut)

	if *once {
		return query(ctx, printer)
	}
	if !*reconnect {
		return watch(ctx, printer, func() {})
	}

	m := connection.NewManager(func(ctx context.Context, connected func()) error {
		return watch(ctx, printer, connected)
	}, connection.Config{
		OnReconnecting: func(attempt int, delay time.Duration, err error) {
			fmt.Fprintf(os.Stderr, "connection lost (%v), retry %d in %s\n", err, attempt, delay.Round(time.Millisecond))
		},
	})
	if err := m.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// session is one open connection to the service.
type session struct {
	target string
	conn   *transport.ClientConn
	client *gateway.Client
	served chan error
}

// dial resolves the service address and opens a connection with a client
// serving it.
func dial(ctx context.Context, printer *printer) (*session, error) {
	target, err := resolveAddress(ctx)
	if err != nil {
		return nil, err
	}

	clientCfg := transport.ClientConfig{}
	if *useTLS {
		clientCfg.TLSConfig, err = clientTLSConfig()
		if err != nil {
			return nil, err
		}
	}

	conn, err := transport.NewClient(clientCfg).Connect(ctx, target)
	if err != nil {
		return nil, err
	}

	s := &session{
		target: target,
		conn:   conn,
		client: gateway.NewClient(conn),
		served: make(chan error, 1),
	}
	s.client.SetNotificationHandler(printer.print)
	go func() { s.served <- conn.Serve(s.client.HandleMessage) }()

	return s, nil
}

func (s *session) close() {
	s.client.Close()
	s.conn.Close()
}

// query prints the current restrictions once.
func query(ctx context.Context, printer *printer) error {
	s, err := dial(ctx, printer)
	if err != nil {
		return err
	}
	defer s.close()

	snap, err := s.client.GetRestrictions(ctx)
	if err != nil {
		return err
	}
	printer.print(snap)
	return nil
}

// watch registers and prints snapshots until ctx is done or the connection
// ends.
func watch(ctx context.Context, printer *printer, connected func()) error {
	s, err := dial(ctx, printer)
	if err != nil {
		return err
	}
	defer s.close()

	snap, err := s.client.Register(ctx)
	if err != nil {
		return err
	}
	connected()
	fmt.Fprintf(os.Stderr, "registered with %s\n", s.target)
	printer.print(snap)

	select {
	case <-ctx.Done():
		unregisterCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := s.client.Unregister(unregisterCtx); err != nil && !errors.Is(err, gateway.ErrClientClosed) {
			fmt.Fprintf(os.Stderr, "unregister: %v\n", err)
		}
		s.conn.SendClose()
		return nil
	case err := <-s.served:
		if err != nil {
			return err
		}
		return errors.New("connection closed by service")
	}
}

// resolveAddress returns -addr, or the first service found over mDNS.
func resolveAddress(ctx context.Context) (string, error) {
	if !*discover {
		return *addr, nil
	}

	browseCtx, cancel := context.WithTimeout(ctx, *discoverTimeout)
	defer cancel()

	svc, err := discovery.FindFirst(browseCtx, discovery.BrowserConfig{})
	if err != nil {
		return "", fmt.Errorf("discover %s: %w", discovery.ServiceType, err)
	}
	fmt.Fprintf(os.Stderr, "found %q at %s (mode %s)\n", svc.InstanceName, svc.DialAddress(), svc.Mode)
	return svc.DialAddress(), nil
}

func clientTLSConfig() (*tls.Config, error) {
	cfg := transport.TLSConfig{
		ServerName:         *serverName,
		InsecureSkipVerify: *insecure,
	}
	if *caFile != "" {
		pool, err := transport.LoadCertPool(*caFile)
		if err != nil {
			return nil, err
		}
		cfg.RootCAs = pool
	}
	return transport.NewClientTLSConfig(cfg), nil
}

// printer writes snapshots as text or JSON lines.
type printer struct {
	mu   sync.Mutex
	out  io.Writer
	json *json.Encoder
}

func newPrinter(out io.Writer, asJSON bool) *printer {
	p := &printer{out: out}
	if asJSON {
		p.json = json.NewEncoder(out)
	}
	return p
}

func (p *printer) print(s restriction.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.json != nil {
		_ = p.json.Encode(httpapi.NewSnapshotJSON(s))
		return
	}
	fmt.Fprintf(p.out, "%s  %s\n", time.Now().Format("15:04:05.000"), s)
}
