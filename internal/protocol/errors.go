package protocol

import "errors"

var (
	// ErrUnderflow reports a read past the end of the received bytes.
	ErrUnderflow = errors.New("protocol: buffer underflow")
	// ErrDecode reports bytes that are present but invalid for the field encoding.
	ErrDecode = errors.New("protocol: decode failed")
	// ErrOversize reports an outgoing field or body over the 1-byte length prefix capacity.
	ErrOversize = errors.New("protocol: length exceeds 255 bytes")
	// ErrTransport reports a broken underlying stream.
	ErrTransport = errors.New("protocol: transport failure")
)
