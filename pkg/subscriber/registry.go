package subscriber

import (
	"errors"
	"sync/atomic"
	"time"
)

// Entry is a registered subscriber.
type Entry struct {
	channel      Channel
	unlink       func()
	linkErr      error
	registeredAt time.Time
	active       atomic.Bool
}

// Channel returns the subscriber's channel.
func (e *Entry) Channel() Channel { return e.channel }

// ID returns the channel ID.
func (e *Entry) ID() string { return e.channel.ID() }

// Active reports whether the entry is still registered.
// Safe to call without holding the owner's lock.
func (e *Entry) Active() bool { return e.active.Load() }

// LinkErr returns the error from arming the liveness link, if any.
// An entry whose link failed is registered but never removed by liveness
// loss; only unregistering or Clear removes it.
func (e *Entry) LinkErr() error { return e.linkErr }

// RegisteredAt returns when the entry was added.
func (e *Entry) RegisteredAt() time.Time { return e.registeredAt }

// disarm unlinks the liveness callback and marks the entry inactive.
func (e *Entry) disarm() {
	e.active.Store(false)
	if e.unlink != nil {
		e.unlink()
		e.unlink = nil
	}
}

// Registry is an ordered set of subscribers keyed by channel ID.
// It is not safe for concurrent use; see the package documentation.
type Registry struct {
	entries []*Entry
	byID    map[string]*Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Entry)}
}

// Add registers ch and arms its liveness link with onLost.
// Returns the existing entry and added=false when ch is already registered.
// A channel that is already lost is not registered: Add returns
// ErrChannelClosed and onLost is not called.
func (r *Registry) Add(ch Channel, onLost func(*Entry)) (*Entry, bool, error) {
	if ch == nil {
		return nil, false, ErrInvalidChannel
	}
	if e, ok := r.byID[ch.ID()]; ok {
		return e, false, nil
	}

	e := &Entry{
		channel:      ch,
		registeredAt: time.Now(),
	}
	e.active.Store(true)

	unlink, err := ch.Link(func() {
		if onLost != nil {
			onLost(e)
		}
	})
	switch {
	case errors.Is(err, ErrChannelClosed):
		e.active.Store(false)
		return nil, false, err
	case err != nil:
		e.linkErr = err
	default:
		e.unlink = unlink
	}

	r.entries = append(r.entries, e)
	r.byID[ch.ID()] = e
	return e, true, nil
}

// Remove unregisters ch and disarms its liveness link.
// Returns removed=false when ch is not registered, including when a
// different channel holds the same ID.
func (r *Registry) Remove(ch Channel) (*Entry, bool, error) {
	if ch == nil {
		return nil, false, ErrInvalidChannel
	}
	e, ok := r.byID[ch.ID()]
	if !ok || e.channel != ch {
		return nil, false, nil
	}
	r.remove(e)
	return e, true, nil
}

// RemoveEntry removes e if it is still the registered entry for its channel.
// Used by the liveness path; idempotent with Remove.
func (r *Registry) RemoveEntry(e *Entry) bool {
	if e == nil {
		return false
	}
	cur, ok := r.byID[e.ID()]
	if !ok || cur != e {
		return false
	}
	r.remove(e)
	return true
}

func (r *Registry) remove(e *Entry) {
	e.disarm()
	delete(r.byID, e.ID())
	for i, cur := range r.entries {
		if cur == e {
			r.entries = append(r.entries[:i:i], r.entries[i+1:]...)
			break
		}
	}
}

// Find returns the entry registered under id.
func (r *Registry) Find(id string) (*Entry, bool) {
	e, ok := r.byID[id]
	return e, ok
}

// Entries returns a copy of the entries in registration order.
func (r *Registry) Entries() []*Entry {
	out := make([]*Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Channels returns the registered channels in registration order.
func (r *Registry) Channels() []Channel {
	out := make([]Channel, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.channel
	}
	return out
}

// Len returns the number of registered subscribers.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Clear disarms and removes every entry without notifying anyone.
// Returns the removed entries.
func (r *Registry) Clear() []*Entry {
	removed := r.entries
	for _, e := range removed {
		e.disarm()
	}
	r.entries = nil
	r.byID = make(map[string]*Entry)
	return removed
}
