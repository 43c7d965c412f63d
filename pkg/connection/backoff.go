package connection

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Backoff defaults.
const (
	InitialBackoff    = 500 * time.Millisecond
	MaxBackoff        = 30 * time.Second
	BackoffMultiplier = 2.0

	// JitterFactor is the largest jitter added, as a fraction of the delay.
	JitterFactor = 0.25
)

// BackoffConfig shapes a Backoff. Zero Initial, Max and Multiplier take the
// defaults; zero Jitter means no jitter.
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// DefaultBackoffConfig returns the package defaults.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Initial:    InitialBackoff,
		Max:        MaxBackoff,
		Multiplier: BackoffMultiplier,
		Jitter:     JitterFactor,
	}
}

func (c BackoffConfig) normalized() BackoffConfig {
	if c.Initial <= 0 {
		c.Initial = InitialBackoff
	}
	if c.Max <= 0 {
		c.Max = MaxBackoff
	}
	c.Max = max(c.Max, c.Initial)
	if c.Multiplier <= 1 {
		c.Multiplier = BackoffMultiplier
	}
	c.Jitter = max(c.Jitter, 0)
	return c
}

// Backoff yields growing delays between reconnect attempts. It is safe for
// concurrent use.
type Backoff struct {
	config BackoffConfig

	mu       sync.Mutex
	base     time.Duration
	attempts int
}

// NewBackoff returns a Backoff with the default settings.
func NewBackoff() *Backoff {
	return NewBackoffWithConfig(DefaultBackoffConfig())
}

// NewBackoffWithConfig returns a Backoff for cfg.
func NewBackoffWithConfig(cfg BackoffConfig) *Backoff {
	cfg = cfg.normalized()
	return &Backoff{config: cfg, base: cfg.Initial}
}

// Next returns the delay to wait before the coming attempt, then grows the
// base delay up to Max.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay := b.base
	if j := b.config.Jitter; j > 0 {
		delay += time.Duration(float64(delay) * j * rand.Float64())
	}

	b.attempts++
	b.base = min(time.Duration(float64(b.base)*b.config.Multiplier), b.config.Max)
	return delay
}

// Reset returns to the initial delay and clears the attempt count.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.base = b.config.Initial
	b.attempts = 0
}

// Attempts returns how many delays were handed out since the last Reset.
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

// Current returns the next base delay, before jitter.
func (b *Backoff) Current() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.base
}
