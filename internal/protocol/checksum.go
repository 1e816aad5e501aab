package protocol

import (
	"encoding/binary"
	"fmt"
)

// Checksum modes understood by ChecksumByName.
const (
	ChecksumSubtract = "subtract"
	ChecksumStatic   = "static"
	ChecksumNone     = "none"
)

// ChecksumFunc computes the 32-bit value sent with CMD_SET_CHECKSUM.
type ChecksumFunc func(image []byte) uint32

// SubtractChecksum is the best-known stage-1 checksum: starting from
// 0xffffffff, subtract every complete big-endian 32-bit word of the image,
// then subtract (word count - 1). A trailing partial word is ignored.
func SubtractChecksum(image []byte) uint32 {
	checksum := uint32(0xffffffff)
	words := len(image) / 4
	for i := 0; i < words; i++ {
		checksum -= binary.BigEndian.Uint32(image[i*4:])
	}
	// n wraps to 0xffffffff for an empty image, i.e. checksum += 1
	checksum -= uint32(words) - 1
	return checksum
}

// StaticChecksum returns a ChecksumFunc that ignores the image and always
// yields value. Some board revisions only accept a precomputed checksum.
func StaticChecksum(value uint32) ChecksumFunc {
	return func([]byte) uint32 {
		return value
	}
}

// NoChecksum always returns zero.
func NoChecksum([]byte) uint32 {
	return 0
}

// ChecksumByName resolves a checksum mode. static is only used by "static".
func ChecksumByName(name string, static uint32) (ChecksumFunc, error) {
	switch name {
	case ChecksumSubtract, "":
		return SubtractChecksum, nil
	case ChecksumStatic:
		return StaticChecksum(static), nil
	case ChecksumNone:
		return NoChecksum, nil
	default:
		return nil, fmt.Errorf("unknown checksum mode %q (expected %s, %s or %s)",
			name, ChecksumSubtract, ChecksumStatic, ChecksumNone)
	}
}

// Header holds the stage-1 load parameters.
type Header struct {
	StartAddr uint32
	Length    uint32
	ExecAddr  uint32
}

// SplitWord splits v into big-endian 16-bit halves.
func SplitWord(v uint32) (hi, lo uint16) {
	return uint16(v >> 16), uint16(v)
}

// JoinWord reassembles a value split by SplitWord.
func JoinWord(hi, lo uint16) uint32 {
	return uint32(hi)<<16 | uint32(lo)
}

// Words returns the header as the six values written to DATA1..DATA6.
func (h Header) Words() [6]uint16 {
	var w [6]uint16
	w[0], w[1] = SplitWord(h.StartAddr)
	w[2], w[3] = SplitWord(h.Length)
	w[4], w[5] = SplitWord(h.ExecAddr)
	return w
}

// HeaderFromWords is the inverse of Header.Words.
func HeaderFromWords(w [6]uint16) Header {
	return Header{
		StartAddr: JoinWord(w[0], w[1]),
		Length:    JoinWord(w[2], w[3]),
		ExecAddr:  JoinWord(w[4], w[5]),
	}
}

// ChecksumWords returns the four values written to DATA1..DATA4 with
// CMD_SET_CHECKSUM.
func ChecksumWords(checksum uint32) [4]uint16 {
	var w [4]uint16
	w[0], w[1] = SplitWord(checksum)
	return w
}

// String returns a debug representation of the header.
func (h Header) String() string {
	return fmt.Sprintf("Header{start=0x%08x, length=%d, exec=0x%08x}", h.StartAddr, h.Length, h.ExecAddr)
}
