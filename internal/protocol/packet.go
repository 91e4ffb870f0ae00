package protocol

import "fmt"

// Packet is one decoded or to-be-encoded protocol unit. Inbound packets carry
// a Data buffer scoped to exactly Length body bytes; outbound packets carry
// an accumulating write buffer.
type Packet struct {
	ID     byte
	Length byte
	Data   *Buffer
}

// NewPacket returns an outbound packet with an empty write buffer.
func NewPacket(id byte) Packet {
	return Packet{ID: id, Data: &Buffer{}}
}

// Body returns the bytes carried by the packet: the unread body for inbound
// packets, or the accumulated write bytes for outbound ones.
func (p Packet) Body() []byte {
	if p.Data == nil {
		return nil
	}
	if p.Data.OutLen() > 0 {
		return p.Data.Bytes()
	}
	return p.Data.Unread()
}

// Seal sets Length from the body. Bodies over MaxFieldLen bytes return
// ErrOversize and leave Length unchanged.
func (p *Packet) Seal() error {
	n := len(p.Body())
	if n > MaxFieldLen {
		return fmt.Errorf("%w: packet 0x%02x body of %d bytes", ErrOversize, p.ID, n)
	}
	p.Length = byte(n)
	return nil
}
