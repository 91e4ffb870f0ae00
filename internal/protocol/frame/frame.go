package frame

import (
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/packetd/internal/protocol"
)

// HeaderLen is the length byte plus the id byte.
const HeaderLen = 2

var ErrBufferOverflow = errors.New("frame: buffered unframed bytes exceed limit")

// Options controls how Drain treats the inbound stream.
type Options struct {
	// Sentinel treats a zero length byte as "no further frames this pass".
	Sentinel bool
	// MaxBuffered caps unframed bytes held after a pass; 0 disables the cap.
	MaxBuffered int
}

// ServerOptions is the client->server direction, where length 0 is the sentinel.
func ServerOptions(maxBuffered int) Options {
	return Options{Sentinel: true, MaxBuffered: maxBuffered}
}

// ClientOptions is the server->client direction, where empty bodies are legal.
func ClientOptions(maxBuffered int) Options {
	return Options{Sentinel: false, MaxBuffered: maxBuffered}
}

// Drain extracts every complete frame from the front of buf in arrival order.
// A trailing partial frame is left unread for the next pass. Consumed bytes
// are compacted away before returning.
func Drain(buf *protocol.Buffer, opts Options) ([]protocol.Packet, error) {
	packets := make([]protocol.Packet, 0, 1)
	for buf.Remaining() > 0 {
		length, err := buf.PeekU8(0)
		if err != nil {
			return packets, err
		}
		if length == 0 && opts.Sentinel {
			_, _ = buf.ReadU8()
			break
		}
		if buf.Remaining() < HeaderLen+int(length) {
			break
		}

		// Full frame present; these reads cannot underflow.
		_, _ = buf.ReadU8()
		id, _ := buf.ReadU8()
		body, err := buf.GetSizedBuffer(int(length))
		if err != nil {
			return packets, err
		}
		packets = append(packets, protocol.Packet{ID: id, Length: length, Data: body})
	}
	buf.Compact()

	if opts.MaxBuffered > 0 && buf.Remaining() > opts.MaxBuffered {
		return packets, fmt.Errorf("%w: %d > %d", ErrBufferOverflow, buf.Remaining(), opts.MaxBuffered)
	}
	return packets, nil
}

// Encode serializes p as length, id, body. The length byte always comes from
// the body; bodies over 255 bytes are rejected before any bytes are produced.
func Encode(p protocol.Packet) ([]byte, error) {
	if err := p.Seal(); err != nil {
		return nil, err
	}
	body := p.Body()
	out := make([]byte, 0, HeaderLen+len(body))
	out = append(out, p.Length, p.ID)
	out = append(out, body...)
	return out, nil
}

// Write encodes p and writes the complete frame in a single call.
func Write(w io.Writer, p protocol.Packet) error {
	wire, err := Encode(p)
	if err != nil {
		return err
	}
	n, err := w.Write(wire)
	if err != nil {
		return fmt.Errorf("%w: write frame: %w", protocol.ErrTransport, err)
	}
	if n != len(wire) {
		return fmt.Errorf("%w: write frame: %w", protocol.ErrTransport, io.ErrShortWrite)
	}
	return nil
}
