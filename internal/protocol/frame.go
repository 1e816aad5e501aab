package protocol

import (
	"encoding/binary"
	"fmt"
)

// FrameForRegisters packs up to 14 image bytes into DATA register words.
//
// Bytes are paired big-endian: word[i] = b[2i]<<8 | b[2i+1]. A trailing odd
// byte becomes a word of its own, unshifted. Word k is only produced when byte
// 2k exists, so a short frame yields fewer words and the remaining DATA
// registers are not written.
func FrameForRegisters(frame []byte) []uint16 {
	if len(frame) > RegisterFrameSize {
		panic(fmt.Sprintf("register frame too large: %d bytes (max %d)", len(frame), RegisterFrameSize))
	}

	words := make([]uint16, 0, (len(frame)+1)/2)
	for i := 0; i < len(frame); i += 2 {
		w := uint16(frame[i])
		if i+1 < len(frame) {
			w = w<<8 | uint16(frame[i+1])
		}
		words = append(words, w)
	}
	return words
}

// SplitRegisterFrames cuts an image into successive frames of at most 14
// bytes, in file order. The last frame may be short.
func SplitRegisterFrames(image []byte) [][]byte {
	frames := make([][]byte, 0, (len(image)+RegisterFrameSize-1)/RegisterFrameSize)
	for off := 0; off < len(image); off += RegisterFrameSize {
		end := off + RegisterFrameSize
		if end > len(image) {
			end = len(image)
		}
		frames = append(frames, image[off:end])
	}
	return frames
}

// FrameForPackets copies at most size bytes of data starting at offset.
// Reading past the end of data yields a short (possibly empty) slice.
func FrameForPackets(data []byte, offset, size int) []byte {
	if offset >= len(data) || size <= 0 {
		return []byte{}
	}
	end := offset + size
	if end > len(data) {
		end = len(data)
	}
	out := make([]byte, end-offset)
	copy(out, data[offset:end])
	return out
}

// ChunkCount returns ceil(size / 1024).
func ChunkCount(size int) int {
	if size <= 0 {
		return 0
	}
	return (size + PacketDataSize - 1) / PacketDataSize
}

// LoadAddressBytes encodes a load address the way stage-2 firmware packets
// embed it (little-endian).
func LoadAddressBytes(addr uint32) []byte {
	b := make([]byte, LoadAddrSize)
	binary.LittleEndian.PutUint32(b, addr)
	return b
}

// Chunk describes one stage-2 packet's share of an image.
type Chunk struct {
	Index  int  // 1-based chunk index
	Offset int  // image offset of the first data byte
	Length int  // data bytes carried
	Prefix bool // load address precedes the data
	Suffix bool // load address follows the data
	Last   bool
}

// ChunkPlan splits an image into stage-2 chunks.
//
// Every chunk reads at most DataSize image bytes, so an image needs
// ChunkCount(size) chunks. Firmware transfers additionally embed the load
// address in front of the first chunk's data and behind the last chunk's
// data; the address rides on top of the data, giving payloads of up to
// DataSize+4 bytes.
//
// A firmware image that fits one chunk would need both addresses in a
// single payload. When that exceeds DataSize+4 bytes the plan is split:
// chunk 1 carries DataSize-4 bytes behind the prefix and chunk 2 the rest
// followed by the suffix.
type ChunkPlan struct {
	Size     int
	DataSize int
	LoadAddr bool
	Total    int
	// Split marks a single-chunk firmware image cut in two
	Split bool
}

// PlanChunks builds the chunk plan for an image of the given size using
// the standard 1024-byte chunk.
func PlanChunks(size int, withLoadAddr bool) ChunkPlan {
	return PlanChunksSized(size, PacketDataSize, withLoadAddr)
}

// PlanChunksSized is PlanChunks with an explicit per-chunk data size.
// Sizes outside 1..PacketDataSize fall back to PacketDataSize, as do
// firmware sizes too small to hold data beside the load address.
func PlanChunksSized(size, dataSize int, withLoadAddr bool) ChunkPlan {
	if dataSize <= 0 || dataSize > PacketDataSize || (withLoadAddr && dataSize <= LoadAddrSize) {
		dataSize = PacketDataSize
	}
	total := 0
	if size > 0 {
		total = (size + dataSize - 1) / dataSize
	}
	p := ChunkPlan{Size: size, DataSize: dataSize, LoadAddr: withLoadAddr, Total: total}
	if withLoadAddr && total == 1 && size+2*LoadAddrSize > dataSize+LoadAddrSize {
		p.Total = 2
		p.Split = true
	}
	return p
}

// Chunk returns the layout of the chunk with the given 1-based index.
func (p ChunkPlan) Chunk(index int) Chunk {
	dataSize := p.DataSize
	if dataSize == 0 {
		dataSize = PacketDataSize
	}

	c := Chunk{
		Index:  index,
		Last:   index == p.Total,
		Offset: (index - 1) * dataSize,
	}
	if p.LoadAddr {
		c.Prefix = index == 1
		c.Suffix = c.Last
	}

	capacity := dataSize
	if p.Split {
		capacity = dataSize - LoadAddrSize
		c.Offset = (index - 1) * capacity
		if c.Last {
			capacity = dataSize
		}
	}
	c.Length = clampLength(p.Size, c.Offset, capacity)
	return c
}

func clampLength(size, offset, capacity int) int {
	remaining := size - offset
	if remaining <= 0 {
		return 0
	}
	if remaining > capacity {
		return capacity
	}
	return remaining
}
