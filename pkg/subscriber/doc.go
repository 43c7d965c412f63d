// Package subscriber manages the set of notification targets that receive
// UX restriction snapshots.
//
// # Channels
//
// A Channel is an abstract notification target: a TCP connection, a
// WebSocket, or an in-process callback. Subscribers are identified by the
// channel's ID, never by value, so registering the same channel twice is a
// no-op.
//
// # Liveness
//
// Every channel exposes a liveness link. Link arms a callback that fires at
// most once when the remote party becomes unreachable; the returned unlink
// function disarms it. The registry arms the link on Add and disarms it on
// Remove and Clear.
//
// Explicit removal and liveness loss race against each other. Both paths
// end at the same state and the loser is a no-op: RemoveEntry only removes
// the exact entry it was given, and only while that entry is still
// registered.
//
// # Concurrency
//
// Registry has no lock of its own. The owner serializes all calls under the
// same critical section that protects the rest of its state. Entry.Active
// can be read from any goroutine.
package subscriber
