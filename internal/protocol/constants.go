package protocol

import "fmt"

// Register is a WASP register, identified by its MDIO offset.
type Register uint16

// Register file
const (
	RegZero   Register = 0x000
	RegStatus Register = 0x700
	RegData1  Register = 0x702
	RegData2  Register = 0x704
	RegData3  Register = 0x706
	RegData4  Register = 0x708
	RegData5  Register = 0x70a
	RegData6  Register = 0x70c
	RegData7  Register = 0x70e
)

// DataRegisters lists DATA1..DATA7 in write order.
var DataRegisters = [...]Register{RegData1, RegData2, RegData3, RegData4, RegData5, RegData6, RegData7}

// AllRegisters lists every register the uploader touches.
var AllRegisters = [...]Register{RegZero, RegStatus, RegData1, RegData2, RegData3, RegData4, RegData5, RegData6, RegData7}

// String returns the logical register name (e.g. "STATUS").
func (r Register) String() string {
	switch r {
	case RegZero:
		return "ZERO"
	case RegStatus:
		return "STATUS"
	}
	for i, d := range DataRegisters {
		if r == d {
			return fmt.Sprintf("DATA%d", i+1)
		}
	}
	return fmt.Sprintf("REG(0x%03x)", uint16(r))
}

// FileName returns the sysfs attribute name for the register (e.g. "register70a").
func (r Register) FileName() string {
	return fmt.Sprintf("register%x", uint16(r))
}

// Stage-1 register commands, written to STATUS by the host
const (
	CmdSetParams     uint16 = 0x0c01
	CmdSetChecksum   uint16 = 0x0801
	CmdSetData       uint16 = 0x0e01
	CmdStartFirmware uint16 = 0x0201
)

// Stage-1 register responses, read from ZERO/STATUS
const (
	RespOK           uint16 = 0x0002
	RespWait         uint16 = 0x0401
	RespCompleted    uint16 = 0x0000
	RespRetry        uint16 = 0x0102
	RespReadyToStart uint16 = 0x0202
	RespStarting     uint16 = 0x00c9
)

// RegisterFrameSize is the number of image bytes carried by DATA1..DATA7.
const RegisterFrameSize = 14

// MaxStage1ImageSize is the largest image the 16-bit length field can describe.
const MaxStage1ImageSize = 0xffff

// Stage-2 packet constants
const (
	// EtherType carried by every stage-2 frame.
	EtherType uint16 = 0x88bd

	// PacketStart is the session magic at offset 0 of every packet.
	PacketStart uint16 = 0x1200

	// PacketHeaderSize is the fixed header in front of the payload.
	PacketHeaderSize = 14

	// PacketDataSize is the image data carried by one chunk.
	PacketDataSize = 1024

	// LoadAddrSize is the size of the embedded little-endian load address.
	LoadAddrSize = 4

	// MaxPacketPayload is the largest payload a packet may carry.
	MaxPacketPayload = PacketDataSize + LoadAddrSize
)

// Stage-2 packet commands (host to device)
const (
	PktCmdFirmwareData  uint16 = 0x0104
	PktCmdStartFirmware uint16 = 0xd400
)

// Stage-2 packet responses (device to host)
const (
	PktRespDiscover uint16 = 0x0000
	PktRespConfig   uint16 = 0x1000
	PktRespOK       uint16 = 0x0100
	PktRespStarting uint16 = 0x0200
	PktRespError    uint16 = 0x0300
)

// RegisterResponseName returns a human-readable name for a register value.
func RegisterResponseName(v uint16) string {
	switch v {
	case RespOK:
		return "OK"
	case RespWait:
		return "WAIT"
	case RespCompleted:
		return "COMPLETED"
	case RespRetry:
		return "RETRY"
	case RespReadyToStart:
		return "READY_TO_START"
	case RespStarting:
		return "STARTING"
	case CmdSetParams:
		return "SET_PARAMS"
	case CmdSetChecksum:
		return "SET_CHECKSUM"
	case CmdSetData:
		return "SET_DATA"
	case CmdStartFirmware:
		return "START_FIRMWARE"
	default:
		return fmt.Sprintf("Unknown(0x%04x)", v)
	}
}

// PacketResponseName returns a human-readable name for a packet response code.
func PacketResponseName(v uint16) string {
	switch v {
	case PktRespDiscover:
		return "DISCOVER"
	case PktRespConfig:
		return "CONFIG"
	case PktRespOK:
		return "OK"
	case PktRespStarting:
		return "STARTING"
	case PktRespError:
		return "ERROR"
	case PktCmdStartFirmware:
		return "START_FIRMWARE"
	default:
		return fmt.Sprintf("Unknown(0x%04x)", v)
	}
}
