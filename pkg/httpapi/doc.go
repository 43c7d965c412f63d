// Package httpapi serves the restriction engine over HTTP.
//
// Routes:
//
//	GET /healthz           liveness and engine mode
//	GET /v1/restrictions   current snapshot as JSON
//	GET /v1/mapping        text dump of the engine and its mapping table
//	GET /v1/ws             WebSocket subscription
//	GET /metrics           Prometheus metrics
//
// A WebSocket connection registers as a subscriber as soon as it is
// upgraded. It receives the current snapshot first and every change after
// that. The subscription ends when the socket fails to read, is closed, or
// misses the pong deadline.
package httpapi
