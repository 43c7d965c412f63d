// Package transport carries restriction notifications over TCP.
//
// The transport layer handles:
//   - Length-prefixed framing of CBOR messages
//   - Optional TLS 1.3 with ALPN "uxr/1"
//   - Server-initiated keep-alive ping/pong
//   - Connection liveness for subscriber registration
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│      CBOR Messages             │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	├────────────────────────────────┤
//	│      TLS 1.3 (optional)        │
//	├────────────────────────────────┤
//	│           TCP                  │
//	└────────────────────────────────┘
//
// # Liveness
//
// Every accepted ServerConn is a subscriber.Channel. Its liveness link
// fires exactly once when the read loop ends, when the connection is
// closed, or when the keep-alive misses MaxMissedPongs consecutive pongs.
// With the defaults (30s interval, 5s timeout, 3 misses) a silent peer is
// detected within 95 seconds.
//
// Clients answer pings automatically while Serve runs.
package transport
