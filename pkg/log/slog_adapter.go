package log

import (
	"context"
	"log/slog"
)

// SlogAdapter forwards protocol events to an slog.Logger, one record per
// event with the payload flattened into attributes.
type SlogAdapter struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogAdapter returns an adapter logging at Debug level.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger, level: slog.LevelDebug}
}

// WithLevel returns a copy of the adapter that logs at level.
func (a *SlogAdapter) WithLevel(level slog.Level) *SlogAdapter {
	return &SlogAdapter{logger: a.logger, level: level}
}

// Log implements Logger.
func (a *SlogAdapter) Log(event Event) {
	ctx := context.Background()
	if !a.logger.Enabled(ctx, a.level) {
		return
	}
	a.logger.LogAttrs(ctx, a.level, "protocol", eventAttrs(event)...)
}

func eventAttrs(e Event) []slog.Attr {
	attrs := make([]slog.Attr, 0, 12)
	attrs = append(attrs,
		slog.String("direction", e.Direction.String()),
		slog.String("layer", e.Layer.String()),
		slog.String("category", e.Category.String()),
	)
	attrs = appendNonEmpty(attrs, "conn_id", e.ConnectionID)
	attrs = appendNonEmpty(attrs, "remote", e.RemoteAddr)

	switch {
	case e.Frame != nil:
		attrs = append(attrs, slog.Int("frame_size", e.Frame.Size), slog.Bool("truncated", e.Frame.Truncated))
	case e.Message != nil:
		attrs = appendMessage(attrs, e.Message)
	case e.StateChange != nil:
		sc := e.StateChange
		attrs = append(attrs,
			slog.String("entity", sc.Entity.String()),
			slog.String("old_state", sc.OldState),
			slog.String("new_state", sc.NewState),
		)
		attrs = appendNonEmpty(attrs, "reason", sc.Reason)
	case e.ControlMsg != nil:
		attrs = append(attrs, slog.String("ctrl_type", e.ControlMsg.Type.String()), slog.Uint64("seq", uint64(e.ControlMsg.Sequence)))
	case e.Error != nil:
		attrs = append(attrs, slog.String("error_layer", e.Error.Layer.String()), slog.String("error_msg", e.Error.Message))
		attrs = appendNonEmpty(attrs, "error_context", e.Error.Context)
	case e.Dispatch != nil:
		attrs = appendDispatch(attrs, e.Dispatch)
	}
	return attrs
}

func appendMessage(attrs []slog.Attr, m *MessageEvent) []slog.Attr {
	attrs = append(attrs, slog.Uint64("msg_id", uint64(m.MessageID)), slog.String("msg_kind", m.Kind.String()))
	if m.Operation != nil {
		attrs = append(attrs, slog.String("operation", m.Operation.String()))
	}
	if m.Status != nil {
		attrs = append(attrs, slog.String("status", m.Status.String()))
	}
	if m.Snapshot != nil {
		attrs = append(attrs, slog.String("restrictions", m.Snapshot.ActiveRestrictions.String()))
	}
	if m.ProcessingTime != nil {
		attrs = append(attrs, slog.Duration("processing_time", *m.ProcessingTime))
	}
	return attrs
}

func appendDispatch(attrs []slog.Attr, d *DispatchEvent) []slog.Attr {
	attrs = append(attrs,
		slog.String("restrictions", d.Snapshot.ActiveRestrictions.String()),
		slog.Int("subscribers", d.Subscribers),
		slog.Int("delivered", d.Delivered),
		slog.Int("failed", d.Failed),
	)
	if d.Skipped > 0 {
		attrs = append(attrs, slog.Int("skipped", d.Skipped))
	}
	return append(attrs, slog.Duration("duration", d.Duration))
}

func appendNonEmpty(attrs []slog.Attr, key, value string) []slog.Attr {
	if value == "" {
		return attrs
	}
	return append(attrs, slog.String(key, value))
}

var _ Logger = (*SlogAdapter)(nil)
