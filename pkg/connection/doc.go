// Package connection keeps a client session to the restriction service
// alive across service restarts.
//
// A session is a function that dials, registers and then blocks for as long
// as the connection lives. [Manager.Run] calls it in a loop and waits
// between attempts with exponential backoff:
//
//  1. Initial delay: 500 milliseconds
//  2. Exponential increase: 1s, 2s, 4s, 8s, 16s
//  3. Maximum delay: 30 seconds
//  4. Reset to the initial delay once a session reports it is connected
//
// # Jitter
//
// To prevent thundering herd when many clients reconnect after a restart:
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
package connection
