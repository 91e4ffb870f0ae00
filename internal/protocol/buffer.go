package protocol

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// MaxFieldLen is the largest byte count a single-byte length prefix can carry.
const MaxFieldLen = 0xFF

// Buffer is a read cursor over accumulated incoming bytes plus a separate
// write buffer for outgoing bytes. Reads never touch the write buffer and
// writes never move the read cursor.
type Buffer struct {
	data []byte
	pos  int
	out  []byte
}

// NewBuffer returns a buffer whose read side is pre-seeded with a copy of b.
func NewBuffer(b []byte) *Buffer {
	data := make([]byte, len(b))
	copy(data, b)
	return &Buffer{data: data}
}

// Extend appends bytes to the unread tail.
func (b *Buffer) Extend(p []byte) {
	b.data = append(b.data, p...)
}

// Remaining returns the number of unread bytes.
func (b *Buffer) Remaining() int {
	return len(b.data) - b.pos
}

// Len returns the total number of received bytes still held, read or not.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Pos returns the read cursor.
func (b *Buffer) Pos() int {
	return b.pos
}

// Unread returns a copy of the bytes not yet consumed.
func (b *Buffer) Unread() []byte {
	out := make([]byte, b.Remaining())
	copy(out, b.data[b.pos:])
	return out
}

// Compact drops the consumed prefix. Data previously returned by reads is
// always a copy, so compaction never invalidates it.
func (b *Buffer) Compact() {
	if b.pos == 0 {
		return
	}
	n := copy(b.data, b.data[b.pos:])
	b.data = b.data[:n]
	b.pos = 0
}

// PeekU8 returns the byte at off past the cursor without consuming it.
func (b *Buffer) PeekU8(off int) (byte, error) {
	if off < 0 || off >= b.Remaining() {
		return 0, fmt.Errorf("%w: peek offset %d with %d remaining", ErrUnderflow, off, b.Remaining())
	}
	return b.data[b.pos+off], nil
}

func (b *Buffer) need(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative size %d", ErrUnderflow, n)
	}
	if b.Remaining() < n {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrUnderflow, n, b.Remaining())
	}
	return nil
}

func (b *Buffer) ReadU8() (byte, error) {
	if err := b.need(1); err != nil {
		return 0, err
	}
	v := b.data[b.pos]
	b.pos++
	return v, nil
}

// ReadBool reads one byte; only 1 is true.
func (b *Buffer) ReadBool() (bool, error) {
	v, err := b.ReadU8()
	if err != nil {
		return false, err
	}
	return v == 1, nil
}

// ReadI64 reads a big-endian signed 64-bit integer.
func (b *Buffer) ReadI64() (int64, error) {
	if err := b.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(b.data[b.pos : b.pos+8])
	b.pos += 8
	return int64(v), nil
}

// ReadString reads a u8 length followed by that many UTF-8 bytes. Nothing is
// consumed when the full string is not yet available.
func (b *Buffer) ReadString() (string, error) {
	n, err := b.PeekU8(0)
	if err != nil {
		return "", err
	}
	if err := b.need(1 + int(n)); err != nil {
		return "", err
	}
	raw := b.data[b.pos+1 : b.pos+1+int(n)]
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: string is not valid utf-8", ErrDecode)
	}
	b.pos += 1 + int(n)
	return string(raw), nil
}

// GetSizedVec consumes exactly n bytes and returns a copy of them.
func (b *Buffer) GetSizedVec(n int) ([]byte, error) {
	if err := b.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b.data[b.pos:b.pos+n])
	b.pos += n
	return out, nil
}

// GetSizedBuffer consumes exactly n bytes into a fresh buffer positioned at 0.
func (b *Buffer) GetSizedBuffer(n int) (*Buffer, error) {
	vec, err := b.GetSizedVec(n)
	if err != nil {
		return nil, err
	}
	return &Buffer{data: vec}, nil
}

func (b *Buffer) WriteU8(v byte) {
	b.out = append(b.out, v)
}

func (b *Buffer) WriteBool(v bool) {
	if v {
		b.out = append(b.out, 1)
		return
	}
	b.out = append(b.out, 0)
}

func (b *Buffer) WriteI64(v int64) {
	b.out = binary.BigEndian.AppendUint64(b.out, uint64(v))
}

// WriteString appends a u8 length and the UTF-8 bytes of s. Strings longer
// than MaxFieldLen bytes are rejected and the write buffer is left as is.
func (b *Buffer) WriteString(s string) error {
	if len(s) > MaxFieldLen {
		return fmt.Errorf("%w: string of %d bytes", ErrOversize, len(s))
	}
	b.out = append(b.out, byte(len(s)))
	b.out = append(b.out, s...)
	return nil
}

// WriteBytes appends raw bytes with no length prefix.
func (b *Buffer) WriteBytes(p []byte) {
	b.out = append(b.out, p...)
}

// WriteAll appends the accumulated write bytes of other.
func (b *Buffer) WriteAll(other *Buffer) {
	if other == nil {
		return
	}
	b.out = append(b.out, other.out...)
}

// Bytes returns the write buffer. The slice is valid until the next write.
func (b *Buffer) Bytes() []byte {
	return b.out
}

// OutLen returns the number of bytes accumulated for output.
func (b *Buffer) OutLen() int {
	return len(b.out)
}
