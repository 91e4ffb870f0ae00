package session

import (
	"context"

	"github.com/danmuck/packetd/internal/protocol"
	"github.com/danmuck/packetd/internal/protocol/schema"
	"github.com/rs/zerolog"
)

type handshakeKey struct{}

// HandshakeHandler decodes a handshake and acknowledges it with an empty reply.
type HandshakeHandler struct{}

func (HandshakeHandler) HandlePacket(ctx context.Context, pkt protocol.Packet) (*protocol.Packet, error) {
	hs, err := schema.DecodeHandshake(pkt.Data)
	if err != nil {
		return nil, err
	}
	if rest := pkt.Data.Remaining(); rest > 0 {
		zerolog.Ctx(ctx).Debug().Int("trailing", rest).Msg("handshake body has trailing bytes")
	}
	zerolog.Ctx(ctx).Info().
		Str("version", hs.Version).
		Bool("compression_enabled", hs.CompressionEnabled).
		Int64("compression_threshold", hs.CompressionThreshold).
		Msg("handshake")
	if rec, ok := ctx.Value(handshakeKey{}).(func(schema.Handshake)); ok {
		rec(hs)
	}
	reply := schema.NewHandshakeReply()
	return &reply, nil
}
