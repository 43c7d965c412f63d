package engine

import (
	"time"

	"github.com/uxr-project/uxr-go/pkg/log"
	"github.com/uxr-project/uxr-go/pkg/metrics"
	"github.com/uxr-project/uxr-go/pkg/restriction"
	"github.com/uxr-project/uxr-go/pkg/subscriber"
)

// dispatchJob is one snapshot and the subscribers registered when it was produced.
type dispatchJob struct {
	snapshot restriction.Snapshot
	entries  []*subscriber.Entry
}

// enqueueLocked queues snapshot for delivery to the current subscribers.
// Must hold e.mu.
func (e *Engine) enqueueLocked(snapshot restriction.Snapshot) {
	e.queue = append(e.queue, dispatchJob{
		snapshot: snapshot,
		entries:  e.registry.Entries(),
	})
}

// drain delivers queued jobs in order until the queue is empty. If another
// caller is already draining it returns immediately; that caller picks up
// the newly queued jobs. A Notify that re-enters the engine lands here and
// returns without blocking.
func (e *Engine) drain() {
	e.mu.Lock()
	if e.draining {
		e.mu.Unlock()
		return
	}
	e.draining = true

	for len(e.queue) > 0 {
		job := e.queue[0]
		e.queue[0] = dispatchJob{}
		e.queue = e.queue[1:]
		e.mu.Unlock()

		e.deliver(job)

		e.mu.Lock()
	}

	e.queue = nil
	e.draining = false
	e.mu.Unlock()
}

// deliver sends one snapshot to every captured entry that is still active.
// Delivery errors are logged and do not stop the loop.
func (e *Engine) deliver(job dispatchJob) {
	start := time.Now()
	stats := log.DispatchEvent{
		Snapshot:    job.snapshot,
		Subscribers: len(job.entries),
	}

	for _, entry := range job.entries {
		if !entry.Active() {
			stats.Skipped++
			e.metrics.IncrementDispatch(metrics.ResultSkipped)
			continue
		}
		if err := entry.Channel().Notify(job.snapshot); err != nil {
			stats.Failed++
			e.metrics.IncrementDispatch(metrics.ResultFailed)
			e.errorLog("restriction delivery failed", "subscriber", entry.ID(), "error", err)
			e.protoLog.Log(log.Event{
				Timestamp:    time.Now(),
				ConnectionID: entry.ID(),
				Direction:    log.DirectionOut,
				Layer:        log.LayerEngine,
				Category:     log.CategoryError,
				Error: &log.ErrorEventData{
					Layer:   log.LayerEngine,
					Message: err.Error(),
					Context: "notify",
				},
			})
			continue
		}
		stats.Delivered++
		e.metrics.IncrementDispatch(metrics.ResultDelivered)
	}

	stats.Duration = time.Since(start)
	e.metrics.ObserveDispatch(stats.Duration)
	e.debugLog("restrictions dispatched",
		"restrictions", job.snapshot.ActiveRestrictions,
		"delivered", stats.Delivered,
		"failed", stats.Failed,
		"skipped", stats.Skipped)
	e.protoLog.Log(log.Event{
		Timestamp: time.Now(),
		Direction: log.DirectionOut,
		Layer:     log.LayerEngine,
		Category:  log.CategoryDispatch,
		Dispatch:  &stats,
	})
}
