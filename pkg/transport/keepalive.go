package transport

import (
	"context"
	"sync"
	"time"
)

// Keep-alive defaults.
const (
	DefaultPingInterval   = 30 * time.Second
	DefaultPongTimeout    = 5 * time.Second
	DefaultMaxMissedPongs = 3
)

// KeepAliveConfig configures keep-alive behavior.
type KeepAliveConfig struct {
	// PingInterval is the interval between pings.
	PingInterval time.Duration

	// PongTimeout is how long a ping may stay unanswered before it counts as missed.
	PongTimeout time.Duration

	// MaxMissedPongs is the number of consecutive missed pongs that declares
	// the peer dead.
	MaxMissedPongs int
}

// DefaultKeepAliveConfig returns the default keep-alive configuration.
func DefaultKeepAliveConfig() KeepAliveConfig {
	return KeepAliveConfig{
		PingInterval:   DefaultPingInterval,
		PongTimeout:    DefaultPongTimeout,
		MaxMissedPongs: DefaultMaxMissedPongs,
	}
}

func (c KeepAliveConfig) withDefaults() KeepAliveConfig {
	if c.PingInterval <= 0 {
		c.PingInterval = DefaultPingInterval
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = DefaultPongTimeout
	}
	if c.MaxMissedPongs <= 0 {
		c.MaxMissedPongs = DefaultMaxMissedPongs
	}
	return c
}

// DetectionDelay is the upper bound on the time between the peer going
// silent and the timeout firing.
func (c KeepAliveConfig) DetectionDelay() time.Duration {
	c = c.withDefaults()
	return c.PingInterval*time.Duration(c.MaxMissedPongs) + c.PongTimeout
}

// KeepAliveStats contains keep-alive statistics.
type KeepAliveStats struct {
	LastPingTime time.Time
	LastPongTime time.Time
	LastLatency  time.Duration
	MissedPongs  int
	CurrentSeq   uint32
}

// KeepAlive sends periodic pings and fires onTimeout once after
// MaxMissedPongs consecutive pings went unanswered.
type KeepAlive struct {
	config    KeepAliveConfig
	sendPing  func(seq uint32) error
	onTimeout func()

	pongCh chan uint32

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
	stats   KeepAliveStats
	pending bool
}

// NewKeepAlive creates a keep-alive manager. Zero config values select the defaults.
func NewKeepAlive(config KeepAliveConfig, sendPing func(seq uint32) error, onTimeout func()) *KeepAlive {
	return &KeepAlive{
		config:    config.withDefaults(),
		sendPing:  sendPing,
		onTimeout: onTimeout,
		pongCh:    make(chan uint32, 4),
	}
}

// Start begins monitoring. The first ping is sent immediately.
func (ka *KeepAlive) Start(ctx context.Context) {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	if ka.running {
		return
	}
	ka.running = true
	ka.stop = make(chan struct{})
	ka.done = make(chan struct{})
	go ka.loop(ctx, ka.stop, ka.done)
}

// Stop ends monitoring and waits for the loop to exit. It must not be
// called from within onTimeout.
func (ka *KeepAlive) Stop() {
	ka.mu.Lock()
	if !ka.running {
		ka.mu.Unlock()
		return
	}
	ka.running = false
	close(ka.stop)
	done := ka.done
	ka.mu.Unlock()
	<-done
}

// PongReceived reports a pong from the peer.
func (ka *KeepAlive) PongReceived(seq uint32) {
	select {
	case ka.pongCh <- seq:
	default:
	}
}

// IsRunning reports whether the monitoring loop is active.
func (ka *KeepAlive) IsRunning() bool {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	return ka.running
}

// Stats returns a copy of the current statistics.
func (ka *KeepAlive) Stats() KeepAliveStats {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	return ka.stats
}

func (ka *KeepAlive) loop(ctx context.Context, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(ka.config.PingInterval)
	defer ticker.Stop()

	deadline := time.NewTimer(ka.config.PongTimeout)
	defer deadline.Stop()

	ka.ping(deadline)

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			ka.ping(deadline)
		case <-deadline.C:
			if ka.missed() {
				ka.mu.Lock()
				ka.running = false
				ka.mu.Unlock()
				if ka.onTimeout != nil {
					ka.onTimeout()
				}
				return
			}
		case seq := <-ka.pongCh:
			ka.pong(seq)
		}
	}
}

// ping sends the next ping and re-arms the pong deadline. A ping sent while
// the previous one is still pending replaces it.
func (ka *KeepAlive) ping(deadline *time.Timer) {
	ka.mu.Lock()
	ka.stats.CurrentSeq++
	seq := ka.stats.CurrentSeq
	ka.stats.LastPingTime = time.Now()
	ka.pending = true
	ka.mu.Unlock()

	// A failed send is counted when the deadline passes.
	_ = ka.sendPing(seq)

	deadline.Reset(ka.config.PongTimeout)
}

// missed records an unanswered ping and reports whether the limit was reached.
func (ka *KeepAlive) missed() bool {
	ka.mu.Lock()
	defer ka.mu.Unlock()
	if !ka.pending {
		return false
	}
	ka.pending = false
	ka.stats.MissedPongs++
	return ka.stats.MissedPongs >= ka.config.MaxMissedPongs
}

func (ka *KeepAlive) pong(seq uint32) {
	ka.mu.Lock()
	defer ka.mu.Unlock()

	now := time.Now()
	ka.stats.LastPongTime = now
	// Late pongs for an earlier ping are ignored.
	if ka.pending && seq == ka.stats.CurrentSeq {
		ka.pending = false
		ka.stats.MissedPongs = 0
		ka.stats.LastLatency = now.Sub(ka.stats.LastPingTime)
	}
}
