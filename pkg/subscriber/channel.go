package subscriber

import (
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/uxr-project/uxr-go/pkg/restriction"
)

// Channel errors.
var (
	// ErrInvalidChannel is returned for a nil channel.
	ErrInvalidChannel = errors.New("invalid subscriber channel")

	// ErrChannelClosed is returned when linking or notifying a dead channel.
	ErrChannelClosed = errors.New("subscriber channel closed")
)

// Channel is a notification target for restriction snapshots.
type Channel interface {
	// ID returns the identity of the channel. Two channels with the
	// same ID are the same subscriber.
	ID() string

	// Notify delivers a snapshot. It may block on I/O.
	Notify(snapshot restriction.Snapshot) error

	// Link arms onLost to fire at most once when the channel's remote
	// party becomes unreachable. The returned function disarms it.
	// onLost must not be called synchronously from within Link.
	Link(onLost func()) (unlink func(), err error)
}

// LivenessLink is a reusable single-fire liveness source for Channel
// implementations. The zero value is ready to use.
type LivenessLink struct {
	mu     sync.Mutex
	nextID uint64
	armed  map[uint64]func()
	lost   bool
}

// Link arms onLost. It fails with ErrChannelClosed once Lose was called.
func (l *LivenessLink) Link(onLost func()) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lost {
		return nil, ErrChannelClosed
	}
	if l.armed == nil {
		l.armed = make(map[uint64]func())
	}
	l.nextID++
	id := l.nextID
	l.armed[id] = onLost

	return func() {
		l.mu.Lock()
		delete(l.armed, id)
		l.mu.Unlock()
	}, nil
}

// Lose fires every armed callback exactly once, outside the lock.
// Subsequent calls do nothing.
func (l *LivenessLink) Lose() {
	l.mu.Lock()
	if l.lost {
		l.mu.Unlock()
		return
	}
	l.lost = true
	fns := make([]func(), 0, len(l.armed))
	for _, id := range slices.Sorted(maps.Keys(l.armed)) {
		fns = append(fns, l.armed[id])
	}
	l.armed = nil
	l.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// IsLost reports whether Lose was called.
func (l *LivenessLink) IsLost() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lost
}

// ArmedCount returns the number of armed callbacks.
func (l *LivenessLink) ArmedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.armed)
}

// FuncChannel is an in-process Channel backed by a callback.
type FuncChannel struct {
	id string
	fn func(restriction.Snapshot) error
	LivenessLink
}

// NewFuncChannel creates an in-process channel. Calling Close fires its
// liveness link.
func NewFuncChannel(id string, fn func(restriction.Snapshot) error) *FuncChannel {
	return &FuncChannel{id: id, fn: fn}
}

// ID returns the channel ID.
func (c *FuncChannel) ID() string { return c.id }

// Notify invokes the callback.
func (c *FuncChannel) Notify(s restriction.Snapshot) error {
	if c.IsLost() {
		return ErrChannelClosed
	}
	return c.fn(s)
}

// Close marks the channel dead and fires its liveness link.
func (c *FuncChannel) Close() {
	c.Lose()
}

var _ Channel = (*FuncChannel)(nil)
