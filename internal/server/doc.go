// Package server owns the listener side of packetd.
//
// Ownership boundary:
// - TCP accept loop, one goroutine per connection
// - connection tracking and shutdown
// - admin HTTP routes (health, readiness, metrics, websocket bridge)
package server
