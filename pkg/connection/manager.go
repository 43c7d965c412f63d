package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrAlreadyRunning is returned when Run is called on a running manager.
var ErrAlreadyRunning = errors.New("connection manager already running")

// State represents the connection state.
type State uint8

const (
	// StateDisconnected indicates no active connection.
	StateDisconnected State = iota

	// StateConnecting indicates a session attempt is in progress.
	StateConnecting

	// StateConnected indicates the session reported it is connected.
	StateConnected

	// StateReconnecting indicates the manager is waiting out a backoff delay.
	StateReconnecting

	// StateClosed indicates Run has returned.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// SessionFunc dials and serves one connection. It calls connected once the
// connection is usable and blocks until the connection ends or ctx is done.
type SessionFunc func(ctx context.Context, connected func()) error

// Config configures a Manager.
type Config struct {
	// Backoff shapes the delay between attempts. Zero value uses defaults.
	Backoff BackoffConfig

	// MaxAttempts stops Run after this many consecutive failed attempts.
	// Zero retries forever.
	MaxAttempts int

	// OnStateChange is called on every state transition. Optional.
	OnStateChange func(oldState, newState State)

	// OnReconnecting is called before each backoff wait with the attempt
	// number, the delay and the error that ended the last session. Optional.
	OnReconnecting func(attempt int, delay time.Duration, err error)

	Logger *slog.Logger
}

// Manager runs a session in a loop with backoff between attempts.
type Manager struct {
	mu sync.RWMutex

	state   State
	running bool

	session SessionFunc
	backoff *Backoff
	config  Config
}

// NewManager creates a manager for session.
func NewManager(session SessionFunc, config Config) *Manager {
	bc := config.Backoff
	if bc == (BackoffConfig{}) {
		bc = DefaultBackoffConfig()
	}
	return &Manager{
		state:   StateDisconnected,
		session: session,
		backoff: NewBackoffWithConfig(bc),
		config:  config,
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsConnected returns true if currently connected.
func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

// BackoffAttempts returns the number of failed attempts since the last
// successful connection.
func (m *Manager) BackoffAttempts() int {
	return m.backoff.Attempts()
}

// Run calls the session until ctx is done or MaxAttempts consecutive
// attempts fail. It returns ctx.Err() on cancellation and the last session
// error otherwise.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	m.running = true
	m.mu.Unlock()

	defer func() {
		m.setState(StateClosed)
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	for {
		m.setState(StateConnecting)
		err := m.session(ctx, m.markConnected)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.setState(StateDisconnected)

		delay := m.backoff.Next()
		attempt := m.backoff.Attempts()
		if m.config.MaxAttempts > 0 && attempt >= m.config.MaxAttempts {
			return err
		}

		m.debugLog("session ended, reconnecting", "attempt", attempt, "delay", delay, "error", err)
		if m.config.OnReconnecting != nil {
			m.config.OnReconnecting(attempt, delay, err)
		}
		m.setState(StateReconnecting)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (m *Manager) markConnected() {
	m.backoff.Reset()
	m.setState(StateConnected)
}

func (m *Manager) setState(next State) {
	m.mu.Lock()
	prev := m.state
	m.state = next
	m.mu.Unlock()

	if prev != next && m.config.OnStateChange != nil {
		m.config.OnStateChange(prev, next)
	}
}

func (m *Manager) debugLog(msg string, args ...any) {
	if m.config.Logger != nil {
		m.config.Logger.Debug(msg, args...)
	}
}
