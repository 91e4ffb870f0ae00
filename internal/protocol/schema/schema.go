package schema

import (
	"fmt"

	"github.com/danmuck/packetd/internal/protocol"
)

// Packet ids.
const (
	IDHandshake      byte = 0x00
	IDHandshakeReply byte = 0x01
)

// Name returns a stable label for a packet id.
func Name(id byte) string {
	switch id {
	case IDHandshake:
		return "handshake"
	case IDHandshakeReply:
		return "handshake_reply"
	default:
		return "unknown"
	}
}

// Handshake is the first packet a client sends.
type Handshake struct {
	Version              string
	CompressionEnabled   bool
	CompressionThreshold int64
}

// DecodeHandshake reads version, compression flag, and threshold in that order.
func DecodeHandshake(body *protocol.Buffer) (Handshake, error) {
	version, err := body.ReadString()
	if err != nil {
		return Handshake{}, fmt.Errorf("handshake version: %w", err)
	}
	enabled, err := body.ReadBool()
	if err != nil {
		return Handshake{}, fmt.Errorf("handshake compression_enabled: %w", err)
	}
	threshold, err := body.ReadI64()
	if err != nil {
		return Handshake{}, fmt.Errorf("handshake compression_threshold: %w", err)
	}
	return Handshake{
		Version:              version,
		CompressionEnabled:   enabled,
		CompressionThreshold: threshold,
	}, nil
}

// EncodeHandshake builds an outbound handshake packet.
func EncodeHandshake(h Handshake) (protocol.Packet, error) {
	p := protocol.NewPacket(IDHandshake)
	if err := p.Data.WriteString(h.Version); err != nil {
		return protocol.Packet{}, fmt.Errorf("handshake version: %w", err)
	}
	p.Data.WriteBool(h.CompressionEnabled)
	p.Data.WriteI64(h.CompressionThreshold)
	if err := p.Seal(); err != nil {
		return protocol.Packet{}, fmt.Errorf("handshake: %w", err)
	}
	return p, nil
}

// NewHandshakeReply builds the empty-bodied handshake acknowledgement.
func NewHandshakeReply() protocol.Packet {
	return protocol.NewPacket(IDHandshakeReply)
}
