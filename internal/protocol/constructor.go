package protocol

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Encode serializes the packet.
//
// Layout (big-endian):
//
//	[0-1]   packet_start
//	[2-6]   zero padding
//	[7-8]   command
//	[9-10]  response
//	[11-12] counter
//	[13]    zero padding
//	[14+]   payload
func (p *Packet) Encode() ([]byte, error) {
	if len(p.Payload) > MaxPacketPayload {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(p.Payload), MaxPacketPayload)
	}

	start := p.Start
	if start == 0 {
		start = PacketStart
	}

	buf := make([]byte, PacketHeaderSize+len(p.Payload))
	binary.BigEndian.PutUint16(buf[0:2], start)
	binary.BigEndian.PutUint16(buf[7:9], p.Command)
	binary.BigEndian.PutUint16(buf[9:11], p.Response)
	binary.BigEndian.PutUint16(buf[11:13], p.Counter)
	copy(buf[PacketHeaderSize:], p.Payload)

	return buf, nil
}

// BuildChunkPayload assembles the payload of one chunk: image data, with the
// little-endian load address before and/or after it as the chunk requires.
func BuildChunkPayload(image []byte, c Chunk, loadAddr uint32) []byte {
	data := FrameForPackets(image, c.Offset, c.Length)

	payload := make([]byte, 0, len(data)+2*LoadAddrSize)
	if c.Prefix {
		payload = append(payload, LoadAddressBytes(loadAddr)...)
	}
	payload = append(payload, data...)
	if c.Suffix {
		payload = append(payload, LoadAddressBytes(loadAddr)...)
	}
	return payload
}

// BuildChunkPacket builds the packet for one chunk of a transfer.
//
// The terminal chunk of a firmware transfer carries CMD_START_FIRMWARE in
// its response field and no command; every other chunk carries
// CMD_FIRMWARE_DATA as its command.
func BuildChunkPacket(image []byte, c Chunk, loadAddr uint32, counter uint16, firmware bool) *Packet {
	pkt := &Packet{
		Start:   PacketStart,
		Counter: counter,
		Payload: BuildChunkPayload(image, c, loadAddr),
	}
	if firmware && c.Last {
		pkt.Response = PktCmdStartFirmware
	} else {
		pkt.Command = PktCmdFirmwareData
	}
	return pkt
}

// MacTail is the fixed trailer of the stage-1 MAC assignment frame.
var MacTail = []byte{0x04, 0x20, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00}

// BuildMacFrame builds the 14-byte frame that assigns a MAC address to the
// WASP interface after stage-1 has started.
func BuildMacFrame(mac net.HardwareAddr, tail []byte) ([]byte, error) {
	if len(mac) != 6 {
		return nil, fmt.Errorf("mac address must be 6 bytes, got %d", len(mac))
	}
	if len(mac)+len(tail) != RegisterFrameSize {
		return nil, fmt.Errorf("mac frame must be %d bytes, got %d", RegisterFrameSize, len(mac)+len(tail))
	}
	frame := make([]byte, 0, RegisterFrameSize)
	frame = append(frame, mac...)
	frame = append(frame, tail...)
	return frame, nil
}
