package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/uxr-project/uxr-go/pkg/log"
	"github.com/uxr-project/uxr-go/pkg/wire"
)

// DefaultConnectTimeout bounds Connect when the context has no deadline.
const DefaultConnectTimeout = 10 * time.Second

// ClientConfig configures a client.
type ClientConfig struct {
	// TLSConfig enables TLS when set. ALPNProtocol is added to NextProtos.
	TLSConfig *tls.Config

	// MaxMessageSize is the maximum frame payload. 0 selects the default.
	MaxMessageSize uint32

	// ConnectTimeout defaults to DefaultConnectTimeout.
	ConnectTimeout time.Duration

	// ProtocolLogger receives frame and control events.
	ProtocolLogger log.Logger
}

// Client dials the service.
type Client struct {
	config  ClientConfig
	tlsConf *tls.Config
}

// NewClient creates a client.
func NewClient(config ClientConfig) *Client {
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}

	var tlsConf *tls.Config
	if config.TLSConfig != nil {
		tlsConf = config.TLSConfig.Clone()
		if !slices.Contains(tlsConf.NextProtos, ALPNProtocol) {
			tlsConf.NextProtos = append(tlsConf.NextProtos, ALPNProtocol)
		}
	}
	return &Client{config: config, tlsConf: tlsConf}
}

// Connect dials address and completes the TLS handshake when configured.
func (c *Client) Connect(ctx context.Context, address string) (*ClientConn, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ConnectTimeout)
		defer cancel()
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	if c.tlsConf != nil {
		tlsConn := tls.Client(conn, c.tlsConf)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("TLS handshake failed: %w", err)
		}
		if err := VerifyConnection(tlsConn.ConnectionState()); err != nil {
			tlsConn.Close()
			return nil, fmt.Errorf("connection verification failed: %w", err)
		}
		conn = tlsConn
	}

	fc := newFramedConn(conn, uuid.New().String(), c.config.MaxMessageSize, c.config.ProtocolLogger)
	fc.logState("", "CONNECTED", "")
	return &ClientConn{framedConn: fc}, nil
}

// ClientConn is a client-side connection.
type ClientConn struct {
	*framedConn
}

// Serve reads frames until the connection ends, answering pings and
// passing every non-control frame to onMessage. It returns nil when the
// connection was closed locally or by the peer.
func (c *ClientConn) Serve(onMessage func([]byte)) error {
	defer c.Close()

	for {
		data, err := c.reader.ReadFrame()
		if err != nil {
			if c.isClosed() || errors.Is(err, io.EOF) {
				c.logState("CONNECTED", "DISCONNECTED", "")
				return nil
			}
			c.logState("CONNECTED", "DISCONNECTED", err.Error())
			return err
		}

		kind, err := wire.PeekMessageKind(data)
		if err != nil {
			continue
		}
		if kind == wire.KindControl {
			// Malformed control frames are dropped.
			_, _ = c.readControl(data)
			continue
		}
		if onMessage != nil {
			onMessage(data)
		}
	}
}

// SendPing sends a ping with the given sequence number.
func (c *ClientConn) SendPing(seq uint32) error {
	return c.sendControl(wire.ControlPing, seq)
}

// SendClose asks the peer to close the connection, then closes it locally.
func (c *ClientConn) SendClose() error {
	err := c.sendControl(wire.ControlClose, 0)
	c.Close()
	return err
}
