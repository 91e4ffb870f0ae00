package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/danmuck/packetd/internal/observability"
	"github.com/danmuck/packetd/internal/protocol"
	"github.com/danmuck/packetd/internal/protocol/frame"
	"github.com/danmuck/packetd/internal/protocol/schema"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Stream is the transport a Conn owns.
type Stream interface {
	io.Reader
	io.Writer
}

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// Conn owns one live stream and the inbound buffer of bytes not yet framed.
// A Conn is driven by a single goroutine.
type Conn struct {
	stream     Stream
	remote     string
	cfg        Config
	dispatcher *Dispatcher
	inbound    *protocol.Buffer
	chunk      []byte
	log        zerolog.Logger

	mu        sync.RWMutex
	handshake *schema.Handshake
}

// NewConn wraps stream; a nil dispatcher means NewDefaultDispatcher.
func NewConn(stream Stream, remote string, d *Dispatcher, cfg Config) *Conn {
	cfg = cfg.WithDefaults()
	if d == nil {
		d = NewDefaultDispatcher()
	}
	return &Conn{
		stream:     stream,
		remote:     remote,
		cfg:        cfg,
		dispatcher: d,
		inbound:    &protocol.Buffer{},
		chunk:      make([]byte, cfg.ReadChunkSize),
		log:        log.With().Str("remote", remote).Logger(),
	}
}

func (c *Conn) RemoteAddr() string {
	return c.remote
}

// Buffered returns the number of inbound bytes not yet framed.
func (c *Conn) Buffered() int {
	return c.inbound.Remaining()
}

// Handshake returns the last handshake accepted on this connection.
func (c *Conn) Handshake() (schema.Handshake, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.handshake == nil {
		return schema.Handshake{}, false
	}
	return *c.handshake, true
}

// Serve feeds the connection until the peer disconnects (nil), ctx ends, or
// a fatal transport/overflow error occurs.
func (c *Conn) Serve(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := c.Feed(ctx); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// Feed performs one transport read and processes any complete packets.
// It returns io.EOF when the peer has disconnected.
func (c *Conn) Feed(ctx context.Context) (int, error) {
	if d, ok := c.stream.(readDeadliner); ok && c.cfg.IdleTimeout > 0 {
		_ = d.SetReadDeadline(time.Now().Add(c.cfg.IdleTimeout))
	}
	n, err := c.stream.Read(c.chunk)
	if n > 0 {
		observability.RecordBytesReceived(n)
		if perr := c.Process(ctx, c.chunk[:n]); perr != nil {
			return n, perr
		}
	}
	if err != nil {
		if errors.Is(err, io.EOF) {
			return n, io.EOF
		}
		return n, fmt.Errorf("%w: read: %w", protocol.ErrTransport, err)
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Process appends data to the inbound buffer, frames every complete packet,
// and dispatches them in arrival order. Malformed or unknown packets are
// logged and skipped; only transport and overflow errors are returned.
func (c *Conn) Process(ctx context.Context, data []byte) error {
	c.inbound.Extend(data)
	packets, drainErr := frame.Drain(c.inbound, frame.ServerOptions(c.cfg.MaxBufferedBytes))

	ctx = c.log.WithContext(ctx)
	ctx = context.WithValue(ctx, handshakeKey{}, c.recordHandshake)
	for _, pkt := range packets {
		if err := c.handle(ctx, pkt); err != nil {
			return err
		}
	}

	if drainErr != nil {
		if errors.Is(drainErr, frame.ErrBufferOverflow) {
			observability.RecordBufferOverflow()
		}
		c.log.Warn().Err(drainErr).Int("buffered", c.inbound.Remaining()).Msg("session.Conn dropping connection")
		return drainErr
	}
	return nil
}

func (c *Conn) handle(ctx context.Context, pkt protocol.Packet) error {
	name := schema.Name(pkt.ID)
	reply, err := c.dispatcher.Dispatch(ctx, pkt)
	switch {
	case err == nil:
		observability.RecordPacket(name, observability.ResultHandled)
	case errors.Is(err, ErrUnknownPacket):
		observability.RecordPacket(name, observability.ResultUnknown)
		c.log.Warn().Uint8("packet_id", pkt.ID).Uint8("length", pkt.Length).Msg("session.Conn skipping unknown packet")
		return nil
	case errors.Is(err, protocol.ErrUnderflow), errors.Is(err, protocol.ErrDecode):
		observability.RecordPacket(name, observability.ResultMalformed)
		c.log.Warn().Uint8("packet_id", pkt.ID).Err(err).Msg("session.Conn skipping malformed packet")
		return nil
	case errors.Is(err, protocol.ErrTransport):
		observability.RecordPacket(name, observability.ResultFailed)
		return err
	default:
		observability.RecordPacket(name, observability.ResultFailed)
		c.log.Error().Uint8("packet_id", pkt.ID).Err(err).Msg("session.Conn handler failed")
		return nil
	}

	if reply == nil {
		return nil
	}
	err = reply.Seal()
	if err == nil {
		err = c.WritePacket(*reply)
	}
	if err != nil {
		if errors.Is(err, protocol.ErrOversize) {
			c.log.Error().Uint8("packet_id", reply.ID).Err(err).Msg("session.Conn reply not sent")
			return nil
		}
		return err
	}
	return nil
}

// WritePacket frames p and writes it to the stream in one call.
func (c *Conn) WritePacket(p protocol.Packet) error {
	if d, ok := c.stream.(writeDeadliner); ok && c.cfg.WriteTimeout > 0 {
		_ = d.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	if err := frame.Write(c.stream, p); err != nil {
		return err
	}
	observability.RecordFrameSent(schema.Name(p.ID))
	c.log.Debug().Uint8("packet_id", p.ID).Int("length", len(p.Body())).Msg("session.Conn sent packet")
	return nil
}

func (c *Conn) recordHandshake(hs schema.Handshake) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handshake = &hs
}
