// Package protocol owns the wire field primitives.
//
// Ownership boundary:
// - Buffer read cursor and write buffer
// - typed field encodings (u8, bool, i64, string)
// - Packet shape and error kinds
package protocol
