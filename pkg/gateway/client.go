package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/uxr-project/uxr-go/pkg/restriction"
	"github.com/uxr-project/uxr-go/pkg/wire"
)

// DefaultRequestTimeout bounds a request when the context has no deadline.
const DefaultRequestTimeout = 10 * time.Second

// Client errors.
var (
	ErrRequestTimeout  = errors.New("request timed out")
	ErrClientClosed    = errors.New("client is closed")
	ErrUnexpectedReply = errors.New("unexpected reply")
	ErrMissingSnapshot = errors.New("response carries no snapshot")
)

// StatusError is returned for a response with a non-success status.
type StatusError struct {
	Status  wire.Status
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Status, e.Message)
	}
	return e.Status.String()
}

// Sender sends one encoded frame.
type Sender interface {
	Send(data []byte) error
}

// Client issues requests over a Sender and routes incoming frames passed
// to HandleMessage.
type Client struct {
	sender Sender

	mu       sync.RWMutex
	timeout  time.Duration
	onNotify func(restriction.Snapshot)
	latest   restriction.Snapshot
	hasState bool
	closed   bool

	nextMsgID atomic.Uint32

	pendingMu sync.Mutex
	pending   map[uint32]chan *wire.Response
}

// NewClient creates a client that sends requests through sender.
func NewClient(sender Sender) *Client {
	return &Client{
		sender:  sender,
		timeout: DefaultRequestTimeout,
		pending: make(map[uint32]chan *wire.Response),
	}
}

// SetTimeout sets the request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// SetNotificationHandler sets the handler for restriction changes. It is
// called only for snapshots newer than the latest one seen.
func (c *Client) SetNotificationHandler(fn func(restriction.Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onNotify = fn
}

// Latest returns the newest snapshot seen in a response or notification.
func (c *Client) Latest() (restriction.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest, c.hasState
}

// Close fails every pending request with ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.pendingMu.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()
	return nil
}

// HandleMessage routes a received frame. It is meant to be passed to
// transport.ClientConn.Serve.
func (c *Client) HandleMessage(data []byte) {
	kind, err := wire.PeekMessageKind(data)
	if err != nil {
		return
	}
	switch kind {
	case wire.KindResponse:
		if resp, err := wire.DecodeResponse(data); err == nil {
			_ = c.HandleResponse(resp)
		}
	case wire.KindNotification:
		if n, err := wire.DecodeNotification(data); err == nil {
			c.HandleNotification(n)
		}
	}
}

// HandleResponse completes the pending request with the same message ID.
func (c *Client) HandleResponse(resp *wire.Response) error {
	c.pendingMu.Lock()
	ch, ok := c.pending[resp.MessageID]
	if ok {
		delete(c.pending, resp.MessageID)
	}
	c.pendingMu.Unlock()

	if !ok {
		return ErrUnexpectedReply
	}
	ch <- resp
	return nil
}

// HandleNotification records the snapshot and calls the handler when it is
// newer than the latest one seen.
func (c *Client) HandleNotification(n *wire.Notification) {
	if fn := c.observe(n.Snapshot); fn != nil {
		fn(n.Snapshot)
	}
}

// observe stores s if newer and returns the handler to call, if any.
func (c *Client) observe(s restriction.Snapshot) func(restriction.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hasState && s.TimestampNanos <= c.latest.TimestampNanos {
		return nil
	}
	c.latest, c.hasState = s, true
	return c.onNotify
}

// GetRestrictions returns the current snapshot.
func (c *Client) GetRestrictions(ctx context.Context) (restriction.Snapshot, error) {
	return c.snapshotRequest(ctx, wire.OpGetRestrictions)
}

// Register subscribes this connection and returns the snapshot current at
// registration.
func (c *Client) Register(ctx context.Context) (restriction.Snapshot, error) {
	return c.snapshotRequest(ctx, wire.OpRegister)
}

// Unregister unsubscribes this connection. Unregistering twice is not an error.
func (c *Client) Unregister(ctx context.Context) error {
	_, err := c.request(ctx, wire.OpUnregister)
	return err
}

func (c *Client) snapshotRequest(ctx context.Context, op wire.Operation) (restriction.Snapshot, error) {
	resp, err := c.request(ctx, op)
	if err != nil {
		return restriction.Snapshot{}, err
	}
	if resp.Snapshot == nil {
		return restriction.Snapshot{}, ErrMissingSnapshot
	}
	// Responses advance the latest state without calling the handler.
	c.observeSilently(*resp.Snapshot)
	return *resp.Snapshot, nil
}

func (c *Client) observeSilently(s restriction.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasState || s.TimestampNanos > c.latest.TimestampNanos {
		c.latest, c.hasState = s, true
	}
}

func (c *Client) request(ctx context.Context, op wire.Operation) (*wire.Response, error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, ErrClientClosed
	}
	timeout := c.timeout
	c.mu.RUnlock()

	req := &wire.Request{MessageID: c.nextMsgID.Add(1), Operation: op}
	data, err := wire.EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	respCh := make(chan *wire.Response, 1)
	c.pendingMu.Lock()
	c.pending[req.MessageID] = respCh
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, req.MessageID)
		c.pendingMu.Unlock()
	}()

	if err := c.sender.Send(data); err != nil {
		return nil, fmt.Errorf("send %s: %w", op, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrRequestTimeout
	case resp, ok := <-respCh:
		if !ok {
			return nil, ErrClientClosed
		}
		if !resp.Status.IsSuccess() {
			return nil, &StatusError{Status: resp.Status, Message: resp.Message}
		}
		return resp, nil
	}
}
