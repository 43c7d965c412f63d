package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/uxr-project/uxr-go/pkg/log"
	"github.com/uxr-project/uxr-go/pkg/restriction"
	"github.com/uxr-project/uxr-go/pkg/subscriber"
	"github.com/uxr-project/uxr-go/pkg/wire"
)

// ErrServerRunning is returned by Start on a running server.
var ErrServerRunning = errors.New("server already running")

// ServerConfig configures the TCP server.
type ServerConfig struct {
	// Address is the listen address. Defaults to ":7420".
	Address string

	// TLSConfig enables TLS when set. ALPNProtocol is added to NextProtos.
	TLSConfig *tls.Config

	// MaxMessageSize is the maximum frame payload. 0 selects the default.
	MaxMessageSize uint32

	// KeepAlive configures server-initiated pings. Zero values select the defaults.
	KeepAlive KeepAliveConfig

	// DisableKeepAlive turns server pings off. Liveness then relies on the read loop alone.
	DisableKeepAlive bool

	// ProtocolLogger receives frame, control and connection state events.
	ProtocolLogger log.Logger

	// Logger receives operational logs. Nil disables them.
	Logger *slog.Logger

	// OnConnect is called after a connection is accepted.
	OnConnect func(conn *ServerConn)

	// OnDisconnect is called after a connection's read loop ended and its
	// liveness link fired.
	OnDisconnect func(conn *ServerConn)

	// OnMessage is called for every non-control frame, on the connection's
	// read goroutine.
	OnMessage func(conn *ServerConn, msg []byte)

	// OnError is called for accept, handshake and read errors. conn is nil
	// for errors that happen before a connection exists.
	OnError func(conn *ServerConn, err error)
}

// Server accepts framed CBOR connections over TCP, optionally with TLS.
type Server struct {
	config   ServerConfig
	tlsConf  *tls.Config
	listener net.Listener

	connsMu sync.RWMutex
	conns   map[*ServerConn]struct{}

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a server. It does not listen until Start.
func NewServer(config ServerConfig) *Server {
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	config.KeepAlive = config.KeepAlive.withDefaults()

	var tlsConf *tls.Config
	if config.TLSConfig != nil {
		tlsConf = config.TLSConfig.Clone()
		if !slices.Contains(tlsConf.NextProtos, ALPNProtocol) {
			tlsConf.NextProtos = append(tlsConf.NextProtos, ALPNProtocol)
		}
	}

	return &Server{
		config:  config,
		tlsConf: tlsConf,
		conns:   make(map[*ServerConn]struct{}),
	}
}

// Start listens and begins accepting connections.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return ErrServerRunning
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running.Store(true)

	s.debugLog("server listening", "address", listener.Addr().String(), "tls", s.tlsConf != nil)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop closes the listener and every connection, then waits for all
// connection goroutines to finish.
func (s *Server) Stop() error {
	if !s.running.Swap(false) {
		return nil
	}
	s.cancel()
	s.listener.Close()

	for _, c := range s.Connections() {
		c.Close()
	}
	s.wg.Wait()
	return nil
}

// Addr returns the listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// ConnectionCount returns the number of open connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

// Connections returns the open connections.
func (s *Server) Connections() []*ServerConn {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	out := make([]*ServerConn, 0, len(s.conns))
	for c := range s.conns {
		out = append(out, c)
	}
	return out
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() {
				return
			}
			s.reportError(nil, fmt.Errorf("accept error: %w", err))
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handshake(conn net.Conn) (net.Conn, error) {
	if s.tlsConf == nil {
		return conn, nil
	}
	tlsConn := tls.Server(conn, s.tlsConf)
	if err := tlsConn.HandshakeContext(s.ctx); err != nil {
		return nil, fmt.Errorf("TLS handshake failed: %w", err)
	}
	if err := VerifyConnection(tlsConn.ConnectionState()); err != nil {
		return nil, err
	}
	return tlsConn, nil
}

func (s *Server) handleConnection(raw net.Conn) {
	defer s.wg.Done()

	conn, err := s.handshake(raw)
	if err != nil {
		raw.Close()
		s.reportError(nil, err)
		return
	}

	sc := &ServerConn{
		framedConn: newFramedConn(conn, uuid.New().String(), s.config.MaxMessageSize, s.config.ProtocolLogger),
		server:     s,
	}
	if !s.config.DisableKeepAlive {
		sc.keepAlive = NewKeepAlive(s.config.KeepAlive,
			func(seq uint32) error { return sc.sendControl(wire.ControlPing, seq) },
			sc.onKeepAliveTimeout)
	}

	s.connsMu.Lock()
	s.conns[sc] = struct{}{}
	s.connsMu.Unlock()

	sc.logState("", "CONNECTED", "")
	s.debugLog("connection accepted", "conn_id", sc.id, "remote", sc.remoteAddr.String())
	if s.config.OnConnect != nil {
		s.config.OnConnect(sc)
	}

	// Server stop may have raced with registration.
	if !s.running.Load() {
		sc.Close()
	}

	if sc.keepAlive != nil {
		sc.keepAlive.Start(s.ctx)
	}
	reason := sc.readLoop()
	if sc.keepAlive != nil {
		sc.keepAlive.Stop()
	}
	sc.Close()
	sc.Lose()

	s.connsMu.Lock()
	delete(s.conns, sc)
	s.connsMu.Unlock()

	sc.logState("CONNECTED", "DISCONNECTED", reason)
	s.debugLog("connection closed", "conn_id", sc.id, "reason", reason)
	if s.config.OnDisconnect != nil {
		s.config.OnDisconnect(sc)
	}
}

func (s *Server) reportError(conn *ServerConn, err error) {
	if s.config.OnError != nil {
		s.config.OnError(conn, err)
	}
}

// debugLog logs a debug message if logging is enabled.
func (s *Server) debugLog(msg string, args ...any) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, args...)
	}
}

// ServerConn is an accepted connection. It is a subscriber.Channel: its
// liveness link fires once when the read loop ends, on Close, or when the
// keep-alive declares the peer dead.
type ServerConn struct {
	*framedConn
	subscriber.LivenessLink

	server    *Server
	keepAlive *KeepAlive
}

// Notify sends a restriction notification to the peer.
func (c *ServerConn) Notify(snapshot restriction.Snapshot) error {
	if c.IsLost() {
		return subscriber.ErrChannelClosed
	}
	data, err := wire.EncodeNotification(&wire.Notification{Snapshot: snapshot})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return c.Send(data)
}

// Close closes the connection and fires its liveness link.
func (c *ServerConn) Close() error {
	err := c.framedConn.Close()
	c.Lose()
	return err
}

// KeepAliveStats returns the connection's keep-alive statistics.
func (c *ServerConn) KeepAliveStats() (KeepAliveStats, bool) {
	if c.keepAlive == nil {
		return KeepAliveStats{}, false
	}
	return c.keepAlive.Stats(), true
}

func (c *ServerConn) onKeepAliveTimeout() {
	c.server.debugLog("keep-alive timeout", "conn_id", c.id)
	c.logState("CONNECTED", "TIMED_OUT", "missed pongs")
	c.Close()
}

// readLoop reads frames until the connection fails and returns the reason.
func (c *ServerConn) readLoop() string {
	for {
		data, err := c.reader.ReadFrame()
		if err != nil {
			switch {
			case c.isClosed():
				return "closed"
			case errors.Is(err, io.EOF):
				return "peer closed"
			default:
				c.server.reportError(c, err)
				return err.Error()
			}
		}

		kind, err := wire.PeekMessageKind(data)
		if err != nil {
			c.server.reportError(c, err)
			continue
		}
		if kind == wire.KindControl {
			msg, err := c.readControl(data)
			if err != nil {
				c.server.reportError(c, err)
				continue
			}
			if msg.Type == wire.ControlPong && c.keepAlive != nil {
				c.keepAlive.PongReceived(msg.Sequence)
			}
			continue
		}

		if c.server.config.OnMessage != nil {
			c.server.config.OnMessage(c, data)
		}
	}
}
