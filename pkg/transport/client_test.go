package transport

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/uxr-project/uxr-go/pkg/log"
	"github.com/uxr-project/uxr-go/pkg/wire"
)

// rawServer accepts one connection and hands it to the test.
func rawServer(t *testing.T) (addr string, accepted <-chan net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	var (
		mu   sync.Mutex
		conn net.Conn
	)
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		if conn != nil {
			conn.Close()
		}
	})

	ch := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		mu.Lock()
		conn = c
		mu.Unlock()
		ch <- c
	}()
	return ln.Addr().String(), ch
}

func TestClientConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := NewClient(ClientConfig{}).Connect(ctx, addr); err == nil {
		t.Error("Connect() to closed port succeeded")
	}
}

func TestClientServeAnswersPing(t *testing.T) {
	addr, accepted := rawServer(t)
	logger := &captureLogger{}

	cc, err := NewClient(ClientConfig{ProtocolLogger: logger}).Connect(context.Background(), addr)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer cc.Close()
	go cc.Serve(nil)

	conn := <-accepted
	ping, _ := wire.EncodeControlMessage(&wire.ControlMessage{Type: wire.ControlPing, Sequence: 3})
	if err := NewFrameWriter(conn, 0).WriteFrame(ping); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	data, err := NewFrameReader(conn, 0).ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	msg, err := wire.DecodeControlMessage(data)
	if err != nil {
		t.Fatalf("DecodeControlMessage() error = %v", err)
	}
	if msg.Type != wire.ControlPong || msg.Sequence != 3 {
		t.Errorf("reply = %v seq %d, want PONG seq 3", msg.Type, msg.Sequence)
	}

	waitFor(t, time.Second, func() bool {
		var controls int
		for _, ev := range logger.Events() {
			if ev.Category == log.CategoryControl {
				controls++
			}
		}
		return controls == 2
	})
}

func TestClientServeDeliversMessages(t *testing.T) {
	addr, accepted := rawServer(t)

	cc, err := NewClient(ClientConfig{}).Connect(context.Background(), addr)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	got := make(chan []byte, 2)
	done := make(chan error, 1)
	go func() { done <- cc.Serve(func(b []byte) { got <- b }) }()

	conn := <-accepted
	resp, _ := wire.EncodeResponse(&wire.Response{MessageID: 1, Status: wire.StatusSuccess})
	w := NewFrameWriter(conn, 0)
	if err := w.WriteFrame(resp); err != nil {
		t.Fatalf("WriteFrame() error = %v", err)
	}
	select {
	case msg := <-got:
		kind, _ := wire.PeekMessageKind(msg)
		if kind != wire.KindResponse {
			t.Errorf("kind = %v, want response", kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}

	// A peer close ends Serve without error.
	conn.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
	select {
	case <-cc.Done():
	default:
		t.Error("Done() not closed after Serve returned")
	}
	if err := cc.Send(resp); err == nil {
		t.Error("Send() on closed connection succeeded")
	}
}

func TestClientCloseEndsServe(t *testing.T) {
	addr, _ := rawServer(t)

	cc, err := NewClient(ClientConfig{}).Connect(context.Background(), addr)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- cc.Serve(nil) }()

	cc.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Close")
	}
}
