package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Packet decode errors
var (
	ErrShortPacket     = errors.New("packet too short")
	ErrBadPacketStart  = errors.New("invalid packet start")
	ErrPayloadTooLarge = errors.New("payload too large")
)

// Packet is a decoded stage-2 WASP packet.
type Packet struct {
	Start    uint16 // Should be 0x1200
	Command  uint16
	Response uint16
	Counter  uint16
	Payload  []byte
}

// DecodePacket parses a WASP packet from an Ethernet payload.
//
// Frames shorter than the fixed header, or whose packet_start is not the
// session magic, are rejected. Bytes beyond header + MaxPacketPayload are
// dropped; shorter payloads (including Ethernet padding) are kept as-is.
func DecodePacket(data []byte) (*Packet, error) {
	if len(data) < PacketHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes (minimum %d)", ErrShortPacket, len(data), PacketHeaderSize)
	}

	pkt := &Packet{
		Start:    binary.BigEndian.Uint16(data[0:2]),
		Command:  binary.BigEndian.Uint16(data[7:9]),
		Response: binary.BigEndian.Uint16(data[9:11]),
		Counter:  binary.BigEndian.Uint16(data[11:13]),
	}

	if pkt.Start != PacketStart {
		return nil, fmt.Errorf("%w: 0x%04x (expected 0x%04x)", ErrBadPacketStart, pkt.Start, PacketStart)
	}

	payload := data[PacketHeaderSize:]
	if len(payload) > MaxPacketPayload {
		payload = payload[:MaxPacketPayload]
	}
	pkt.Payload = make([]byte, len(payload))
	copy(pkt.Payload, payload)

	return pkt, nil
}

// String returns a debug representation of the packet.
func (p *Packet) String() string {
	return fmt.Sprintf("Packet{start=0x%04x, cmd=0x%04x, resp=%s, counter=%d, payload=%d bytes}",
		p.Start, p.Command, PacketResponseName(p.Response), p.Counter, len(p.Payload))
}
