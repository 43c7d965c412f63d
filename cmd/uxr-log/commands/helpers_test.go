package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/uxr-project/uxr-go/pkg/log"
	"github.com/uxr-project/uxr-go/pkg/restriction"
	"github.com/uxr-project/uxr-go/pkg/wire"
)

var baseTime = time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)

// writeLog writes events to a new log file and returns its path.
func writeLog(t *testing.T, events ...log.Event) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "service.ulog")
	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return path
}

// sampleEvents is a short session: engine start, a client registering and
// one restriction change being dispatched and notified.
func sampleEvents() []log.Event {
	op := wire.OpRegister
	status := wire.StatusSuccess
	took := 150 * time.Microsecond
	snap := restriction.NewSnapshot(restriction.FullyRestricted, 42)

	return []log.Event{
		{
			Timestamp: baseTime,
			Layer:     log.LayerEngine,
			Category:  log.CategoryState,
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntityEngine,
				OldState: "UNINITIALIZED",
				NewState: "FALLBACK",
				Reason:   "no mapping provider configured",
			},
		},
		{
			Timestamp:    baseTime.Add(time.Second),
			ConnectionID: "c0ffee00-1111-2222-3333-444455556666",
			Direction:    log.DirectionIn,
			Layer:        log.LayerTransport,
			Category:     log.CategoryMessage,
			RemoteAddr:   "10.0.0.7:51000",
			Frame:        &log.FrameEvent{Size: 12, Data: []byte{0xa2, 0x00, 0x01}},
		},
		{
			Timestamp:    baseTime.Add(time.Second),
			ConnectionID: "c0ffee00-1111-2222-3333-444455556666",
			Direction:    log.DirectionIn,
			Layer:        log.LayerWire,
			Category:     log.CategoryMessage,
			Message:      &log.MessageEvent{Kind: wire.KindRequest, MessageID: 1, Operation: &op},
		},
		{
			Timestamp:    baseTime.Add(time.Second),
			ConnectionID: "c0ffee00-1111-2222-3333-444455556666",
			Direction:    log.DirectionOut,
			Layer:        log.LayerWire,
			Category:     log.CategoryMessage,
			Message: &log.MessageEvent{
				Kind:           wire.KindResponse,
				MessageID:      1,
				Status:         &status,
				Snapshot:       &snap,
				ProcessingTime: &took,
			},
		},
		{
			Timestamp: baseTime.Add(2 * time.Second),
			Layer:     log.LayerEngine,
			Category:  log.CategoryDispatch,
			Dispatch: &log.DispatchEvent{
				Snapshot:    snap,
				Subscribers: 2,
				Delivered:   1,
				Failed:      1,
				Duration:    2 * time.Millisecond,
			},
		},
		{
			Timestamp:    baseTime.Add(2 * time.Second),
			ConnectionID: "c0ffee00-1111-2222-3333-444455556666",
			Direction:    log.DirectionOut,
			Layer:        log.LayerWire,
			Category:     log.CategoryMessage,
			Message:      &log.MessageEvent{Kind: wire.KindNotification, Snapshot: &snap},
		},
		{
			Timestamp:    baseTime.Add(3 * time.Second),
			ConnectionID: "ws-8d1f",
			Direction:    log.DirectionOut,
			Layer:        log.LayerEngine,
			Category:     log.CategoryError,
			Error: &log.ErrorEventData{
				Layer:   log.LayerEngine,
				Message: "write: broken pipe",
				Context: "notify",
			},
		},
	}
}
