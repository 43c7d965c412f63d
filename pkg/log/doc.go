// Package log provides structured protocol logging for the UXR service.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at multiple layers (transport, wire, engine).
// It is separate from operational logging (slog): protocol capture provides
// a complete machine-readable event trace for debugging and analysis.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/uxr/service.ulog")
//
//	// Both
//	cfg.ProtocolLogger = log.NewMultiLogger(adapter, fileLogger)
//
// # Event Types
//
//   - Transport: raw frame bytes (FrameEvent), connection state
//   - Wire: decoded messages (MessageEvent), control messages
//   - Engine: mode transitions (StateChangeEvent) and deliveries (DispatchEvent)
//
// # File Format
//
// Log files are a stream of CBOR-encoded events with the .ulog extension.
// The uxr-log tool provides viewing, filtering and statistics.
package log
