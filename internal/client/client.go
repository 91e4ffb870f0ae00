package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/danmuck/packetd/internal/protocol"
	"github.com/danmuck/packetd/internal/protocol/frame"
	"github.com/danmuck/packetd/internal/protocol/schema"
	"github.com/rs/zerolog/log"
)

var (
	ErrAddressRequired  = errors.New("client: address required")
	ErrUnexpectedPacket = errors.New("client: unexpected packet")
)

type Config struct {
	Address        string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	ReadChunkSize  int
	// MaxConnectAttempts bounds dial retries; values below 1 mean one attempt.
	MaxConnectAttempts int
	Backoff            BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout:     5 * time.Second,
		ReadTimeout:        5 * time.Second,
		WriteTimeout:       5 * time.Second,
		ReadChunkSize:      1024,
		MaxConnectAttempts: 1,
		Backoff:            DefaultBackoff(),
	}
}

// Client is a single packet stream to a server. It frames replies with the
// client-direction options, so empty-bodied replies decode as packets.
type Client struct {
	cfg     Config
	conn    net.Conn
	inbound *protocol.Buffer
	pending []protocol.Packet
	chunk   []byte
}

// Dial connects to cfg.Address, retrying with backoff up to
// cfg.MaxConnectAttempts times.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Address) == "" {
		return nil, ErrAddressRequired
	}
	d := DefaultConfig()
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = d.ConnectTimeout
	}
	if cfg.ReadChunkSize <= 0 {
		cfg.ReadChunkSize = d.ReadChunkSize
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	for attempt := 1; ; attempt++ {
		conn, err := dialer.DialContext(ctx, "tcp", cfg.Address)
		if err == nil {
			return New(conn, cfg), nil
		}
		log.Warn().Int("attempt", attempt).Str("addr", cfg.Address).Err(err).Msg("client.Dial failed")
		if attempt >= cfg.MaxConnectAttempts {
			return nil, err
		}
		timer := time.NewTimer(cfg.Backoff.Delay(attempt, rng))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// New wraps an established connection.
func New(conn net.Conn, cfg Config) *Client {
	if cfg.ReadChunkSize <= 0 {
		cfg.ReadChunkSize = DefaultConfig().ReadChunkSize
	}
	return &Client{
		cfg:     cfg,
		conn:    conn,
		inbound: &protocol.Buffer{},
		chunk:   make([]byte, cfg.ReadChunkSize),
	}
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Send frames and writes p.
func (c *Client) Send(p protocol.Packet) error {
	if c.cfg.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	return frame.Write(c.conn, p)
}

// SendRaw writes b unframed; useful for sentinels and split deliveries.
func (c *Client) SendRaw(b []byte) error {
	if c.cfg.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	if _, err := c.conn.Write(b); err != nil {
		return fmt.Errorf("%w: %w", protocol.ErrTransport, err)
	}
	return nil
}

// ReadPacket returns the next complete packet from the server.
func (c *Client) ReadPacket(ctx context.Context) (protocol.Packet, error) {
	for len(c.pending) == 0 {
		if err := ctx.Err(); err != nil {
			return protocol.Packet{}, err
		}
		deadline := time.Time{}
		if c.cfg.ReadTimeout > 0 {
			deadline = time.Now().Add(c.cfg.ReadTimeout)
		}
		if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
			deadline = d
		}
		_ = c.conn.SetReadDeadline(deadline)

		n, err := c.conn.Read(c.chunk)
		if n > 0 {
			c.inbound.Extend(c.chunk[:n])
			pkts, derr := frame.Drain(c.inbound, frame.ClientOptions(0))
			if derr != nil {
				return protocol.Packet{}, derr
			}
			c.pending = append(c.pending, pkts...)
		}
		if err != nil && len(c.pending) == 0 {
			if errors.Is(err, io.EOF) {
				return protocol.Packet{}, io.EOF
			}
			return protocol.Packet{}, fmt.Errorf("%w: %w", protocol.ErrTransport, err)
		}
	}
	p := c.pending[0]
	c.pending = c.pending[1:]
	return p, nil
}

// Handshake sends hs and waits for the handshake reply.
func (c *Client) Handshake(ctx context.Context, hs schema.Handshake) error {
	p, err := schema.EncodeHandshake(hs)
	if err != nil {
		return err
	}
	if err := c.Send(p); err != nil {
		return err
	}
	reply, err := c.ReadPacket(ctx)
	if err != nil {
		return err
	}
	if reply.ID != schema.IDHandshakeReply {
		return fmt.Errorf("%w: got 0x%02x want 0x%02x", ErrUnexpectedPacket, reply.ID, schema.IDHandshakeReply)
	}
	log.Debug().Str("addr", c.cfg.Address).Str("version", hs.Version).Msg("client.Handshake acknowledged")
	return nil
}
