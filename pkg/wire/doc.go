// Package wire defines the CBOR wire format of the UXR notification protocol.
//
// UXR uses CBOR (RFC 8949) with integer keys. Frames are length-prefixed by
// the transport layer; this package only deals with frame payloads.
//
// # Message Kinds
//
// Every message carries its kind under key 0:
//   - Request: client to service (get, register, unregister)
//   - Response: service to client, correlated by message ID
//   - Notification: service to registered client (restriction change)
//   - Control: either direction (ping, pong, close)
//
// # Snapshots
//
// Restriction snapshots are encoded as nested maps using the integer keys
// declared on restriction.Snapshot.
package wire
