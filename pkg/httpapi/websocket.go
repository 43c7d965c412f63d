package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/uxr-project/uxr-go/pkg/restriction"
	"github.com/uxr-project/uxr-go/pkg/subscriber"
)

// WebSocket defaults.
const (
	DefaultPingInterval = 15 * time.Second
	DefaultPongWait     = 40 * time.Second
	DefaultWriteWait    = 5 * time.Second

	wsReadLimit = 4096
)

type wsTiming struct {
	pingInterval time.Duration
	pongWait     time.Duration
	writeWait    time.Duration
}

func newWSTiming(ping, pong, write time.Duration) wsTiming {
	t := wsTiming{pingInterval: ping, pongWait: pong, writeWait: write}
	if t.pingInterval <= 0 {
		t.pingInterval = DefaultPingInterval
	}
	if t.pongWait <= 0 {
		t.pongWait = DefaultPongWait
	}
	if t.pongWait <= t.pingInterval {
		t.pongWait = t.pingInterval * 2
	}
	if t.writeWait <= 0 {
		t.writeWait = DefaultWriteWait
	}
	return t
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsChannel is a WebSocket subscriber. Snapshots are written as JSON text frames.
type wsChannel struct {
	id     string
	conn   *websocket.Conn
	timing wsTiming

	writeMu sync.Mutex
	subscriber.LivenessLink
}

func (c *wsChannel) ID() string { return c.id }

func (c *wsChannel) Notify(s restriction.Snapshot) error {
	if c.IsLost() {
		return subscriber.ErrChannelClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.timing.writeWait))
	return c.conn.WriteJSON(NewSnapshotJSON(s))
}

func (c *wsChannel) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.timing.writeWait))
}

// close fires the liveness link and closes the socket.
func (c *wsChannel) close(code int, reason string) {
	c.Lose()
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(c.timing.writeWait))
	c.writeMu.Unlock()
	_ = c.conn.Close()
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.debugLog("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	ch := &wsChannel{id: "ws-" + uuid.New().String(), conn: conn, timing: h.ws}
	if err := h.engine.RegisterListener(ch); err != nil {
		h.errorLog("websocket register failed", "subscriber", ch.id, "error", err)
		ch.close(websocket.CloseInternalServerErr, "register failed")
		return
	}
	h.debugLog("websocket subscribed", "subscriber", ch.id, "remote", r.RemoteAddr)

	if err := ch.Notify(h.engine.CurrentRestrictions()); err != nil {
		ch.close(websocket.CloseGoingAway, "write failed")
		return
	}

	done := make(chan struct{})
	go h.pingLoop(ch, done)
	h.readLoop(ch)
	close(done)

	ch.close(websocket.CloseNormalClosure, "")
	h.debugLog("websocket closed", "subscriber", ch.id)
}

// readLoop discards client frames until the read fails or the pong deadline passes.
func (h *Handler) readLoop(ch *wsChannel) {
	ch.conn.SetReadLimit(wsReadLimit)
	_ = ch.conn.SetReadDeadline(time.Now().Add(ch.timing.pongWait))
	ch.conn.SetPongHandler(func(string) error {
		return ch.conn.SetReadDeadline(time.Now().Add(ch.timing.pongWait))
	})

	for {
		if _, _, err := ch.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) pingLoop(ch *wsChannel, done <-chan struct{}) {
	t := time.NewTicker(ch.timing.pingInterval)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if err := ch.ping(); err != nil {
				// Unblocks readLoop.
				_ = ch.conn.Close()
				return
			}
		}
	}
}
