// Package session owns one client connection's read/frame/dispatch loop.
//
// Ownership boundary:
// - inbound accumulation and framing per connection
// - packet dispatch by registered handler id
// - reply encoding and transport writes
//
// A Conn is single-goroutine; connections share no mutable state beyond the
// Dispatcher's read-mostly handler table.
package session
