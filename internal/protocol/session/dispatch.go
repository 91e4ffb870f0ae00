package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/danmuck/packetd/internal/protocol"
	"github.com/danmuck/packetd/internal/protocol/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/danmuck/packetd/internal/protocol/session"

var (
	ErrUnknownPacket    = errors.New("session: unknown packet id")
	ErrDuplicateHandler = errors.New("session: handler already registered")
	ErrNilHandler       = errors.New("session: nil handler")
)

// Handler consumes one packet body and optionally produces a reply.
type Handler interface {
	HandlePacket(ctx context.Context, pkt protocol.Packet) (*protocol.Packet, error)
}

type HandlerFunc func(ctx context.Context, pkt protocol.Packet) (*protocol.Packet, error)

func (f HandlerFunc) HandlePacket(ctx context.Context, pkt protocol.Packet) (*protocol.Packet, error) {
	return f(ctx, pkt)
}

// Dispatcher routes packets to handlers registered by id.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[byte]Handler
	tracer   trace.Tracer
}

func NewDispatcher() *Dispatcher {
	return NewDispatcherWithTracerProvider(otel.GetTracerProvider())
}

// NewDispatcherWithTracerProvider records one packet.dispatch span per packet on tp.
func NewDispatcherWithTracerProvider(tp trace.TracerProvider) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[byte]Handler),
		tracer:   tp.Tracer(tracerName),
	}
}

// NewDefaultDispatcher returns a dispatcher with the handshake handler registered.
func NewDefaultDispatcher() *Dispatcher {
	d := NewDispatcher()
	_ = d.Register(schema.IDHandshake, HandshakeHandler{})
	return d
}

func (d *Dispatcher) Register(id byte, h Handler) error {
	if h == nil {
		return ErrNilHandler
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.handlers[id]; ok {
		return fmt.Errorf("%w: 0x%02x", ErrDuplicateHandler, id)
	}
	d.handlers[id] = h
	return nil
}

// Dispatch runs the handler for pkt.ID. Unregistered ids return ErrUnknownPacket.
func (d *Dispatcher) Dispatch(ctx context.Context, pkt protocol.Packet) (*protocol.Packet, error) {
	d.mu.RLock()
	h, ok := d.handlers[pkt.ID]
	d.mu.RUnlock()

	ctx, span := d.tracer.Start(ctx, "packet.dispatch", trace.WithAttributes(
		attribute.Int("packet.id", int(pkt.ID)),
		attribute.Int("packet.length", int(pkt.Length)),
		attribute.String("packet.name", schema.Name(pkt.ID)),
	))
	defer span.End()

	if !ok {
		span.SetStatus(codes.Error, "unknown packet")
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownPacket, pkt.ID)
	}
	reply, err := h.HandlePacket(ctx, pkt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return reply, nil
}
