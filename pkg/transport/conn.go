package transport

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/uxr-project/uxr-go/pkg/log"
	"github.com/uxr-project/uxr-go/pkg/wire"
)

// ErrConnectionClosed is returned when sending on a closed connection.
var ErrConnectionClosed = errors.New("connection closed")

// framedConn is the framing, control and logging core shared by server and
// client connections.
type framedConn struct {
	conn       net.Conn
	reader     *FrameReader
	writer     *FrameWriter
	id         string
	remoteAddr net.Addr
	tlsState   tls.ConnectionState
	protoLog   log.Logger

	closeCh   chan struct{}
	closeOnce sync.Once
}

func newFramedConn(conn net.Conn, id string, maxSize uint32, protoLog log.Logger) *framedConn {
	fc := &framedConn{
		conn:       conn,
		reader:     NewFrameReader(conn, maxSize),
		writer:     NewFrameWriter(conn, maxSize),
		id:         id,
		remoteAddr: conn.RemoteAddr(),
		protoLog:   log.OrNoop(protoLog),
		closeCh:    make(chan struct{}),
	}
	if tc, ok := conn.(*tls.Conn); ok {
		fc.tlsState = tc.ConnectionState()
	}
	if protoLog != nil {
		fc.reader.SetLogger(protoLog, id)
		fc.writer.SetLogger(protoLog, id)
	}
	return fc
}

// ID returns the connection identifier.
func (c *framedConn) ID() string { return c.id }

// RemoteAddr returns the peer address.
func (c *framedConn) RemoteAddr() net.Addr { return c.remoteAddr }

// LocalAddr returns the local address.
func (c *framedConn) LocalAddr() net.Addr { return c.conn.LocalAddr() }

// TLSState returns the TLS connection state. It is the zero value on plain TCP.
func (c *framedConn) TLSState() tls.ConnectionState { return c.tlsState }

// Done is closed once the connection is closed.
func (c *framedConn) Done() <-chan struct{} { return c.closeCh }

func (c *framedConn) isClosed() bool {
	select {
	case <-c.closeCh:
		return true
	default:
		return false
	}
}

// Send writes one frame.
func (c *framedConn) Send(data []byte) error {
	if c.isClosed() {
		return ErrConnectionClosed
	}
	return c.writer.WriteFrame(data)
}

// Close closes the underlying connection. Safe to call more than once.
func (c *framedConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
	})
	return err
}

func (c *framedConn) sendControl(typ wire.ControlMessageType, seq uint32) error {
	data, err := wire.EncodeControlMessage(&wire.ControlMessage{Type: typ, Sequence: seq})
	if err != nil {
		return fmt.Errorf("encode %s: %w", typ, err)
	}
	if err := c.Send(data); err != nil {
		return err
	}
	c.logControl(typ, seq, log.DirectionOut)
	return nil
}

// readControl decodes a control frame and answers pings. Close requests
// close the connection. The decoded message is returned for pong handling.
func (c *framedConn) readControl(data []byte) (*wire.ControlMessage, error) {
	msg, err := wire.DecodeControlMessage(data)
	if err != nil {
		return nil, err
	}
	c.logControl(msg.Type, msg.Sequence, log.DirectionIn)

	switch msg.Type {
	case wire.ControlPing:
		_ = c.sendControl(wire.ControlPong, msg.Sequence)
	case wire.ControlClose:
		c.Close()
	}
	return msg, nil
}

func (c *framedConn) logControl(typ wire.ControlMessageType, seq uint32, dir log.Direction) {
	c.protoLog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Direction:    dir,
		Layer:        log.LayerWire,
		Category:     log.CategoryControl,
		RemoteAddr:   c.remoteAddr.String(),
		ControlMsg:   &log.ControlMsgEvent{Type: typ, Sequence: seq},
	})
}

func (c *framedConn) logState(oldState, newState, reason string) {
	c.protoLog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.id,
		Layer:        log.LayerTransport,
		Category:     log.CategoryState,
		RemoteAddr:   c.remoteAddr.String(),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}
