package engine

import (
	"errors"
	"time"

	"github.com/uxr-project/uxr-go/pkg/log"
	"github.com/uxr-project/uxr-go/pkg/metrics"
	"github.com/uxr-project/uxr-go/pkg/subscriber"
)

// RegisterListener adds ch to the subscriber set and arms its liveness link.
// Registering an already registered channel does nothing. A channel that is
// already lost counts as lost on arrival and is not registered. Any other
// failure to arm the link is logged and the channel is registered anyway.
func (e *Engine) RegisterListener(ch subscriber.Channel) error {
	e.mu.Lock()
	entry, added, err := e.registry.Add(ch, e.onLivenessLost)
	count := e.registry.Len()
	e.mu.Unlock()

	if errors.Is(err, subscriber.ErrChannelClosed) {
		e.metrics.IncrementRemoval(metrics.ReasonLiveness)
		e.debugLog("listener lost before registration", "subscriber", ch.ID())
		e.logSubscription(ch.ID(), "UNREGISTERED", metrics.ReasonLiveness)
		return nil
	}
	if err != nil {
		e.errorLog("register listener rejected", "error", err)
		return err
	}
	if !added {
		e.debugLog("listener already registered", "subscriber", entry.ID())
		return nil
	}
	if linkErr := entry.LinkErr(); linkErr != nil {
		e.errorLog("cannot link liveness monitor", "subscriber", entry.ID(), "error", linkErr)
	}

	e.metrics.SetSubscribers(count)
	e.debugLog("listener registered", "subscriber", entry.ID(), "subscribers", count)
	e.logSubscription(entry.ID(), "REGISTERED", "")
	return nil
}

// UnregisterListener removes ch and disarms its liveness link.
// Unregistering an unknown channel is not an error.
func (e *Engine) UnregisterListener(ch subscriber.Channel) error {
	e.mu.Lock()
	entry, removed, err := e.registry.Remove(ch)
	count := e.registry.Len()
	e.mu.Unlock()

	if err != nil {
		e.errorLog("unregister listener rejected", "error", err)
		return err
	}
	if !removed {
		e.debugLog("listener was not registered", "subscriber", ch.ID())
		return nil
	}

	e.metrics.SetSubscribers(count)
	e.metrics.IncrementRemoval(metrics.ReasonUnsubscribe)
	e.debugLog("listener unregistered", "subscriber", entry.ID(), "subscribers", count)
	e.logSubscription(entry.ID(), "UNREGISTERED", metrics.ReasonUnsubscribe)
	return nil
}

// onLivenessLost removes entry after its channel died. It is a no-op if the
// entry was already removed by UnregisterListener or Release.
func (e *Engine) onLivenessLost(entry *subscriber.Entry) {
	e.mu.Lock()
	removed := e.registry.RemoveEntry(entry)
	count := e.registry.Len()
	e.mu.Unlock()

	if !removed {
		return
	}
	e.metrics.SetSubscribers(count)
	e.metrics.IncrementRemoval(metrics.ReasonLiveness)
	e.debugLog("listener lost", "subscriber", entry.ID(), "subscribers", count)
	e.logSubscription(entry.ID(), "UNREGISTERED", metrics.ReasonLiveness)
}

// SubscriberCount returns the number of registered subscribers.
func (e *Engine) SubscriberCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Len()
}

// Subscribers returns the registered channels in registration order.
func (e *Engine) Subscribers() []subscriber.Channel {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Channels()
}

func (e *Engine) logSubscription(id, state, reason string) {
	e.protoLog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: id,
		Layer:        log.LayerEngine,
		Category:     log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySubscription,
			NewState: state,
			Reason:   reason,
		},
	})
}
