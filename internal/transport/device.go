package transport

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/muurk/waspflash/internal/protocol"
)

// Stage1Device simulates the register side of a WASP coprocessor on top of
// MemRegisters. It accepts every command and reassembles the uploaded image.
type Stage1Device struct {
	Regs *MemRegisters

	// TwoPhase answers START_FIRMWARE with READY_TO_START, then OK.
	// Otherwise the device reports WAIT for DrainReads STATUS reads
	// after the last image byte.
	TwoPhase   bool
	DrainReads int

	mu           sync.Mutex
	data         [len(protocol.DataRegisters)]uint16
	dataWritten  int
	header       protocol.Header
	checksum     uint32
	image        []byte
	transferDone bool
	mac          net.HardwareAddr
	starts       int
	drainLeft    int
	started      bool
}

// NewStage1Device returns a ready device.
func NewStage1Device(twoPhase bool) *Stage1Device {
	d := &Stage1Device{
		Regs:       NewMemRegisters(),
		TwoPhase:   twoPhase,
		DrainReads: 3,
	}
	d.Regs.Set(protocol.RegZero, protocol.RespOK)
	d.Regs.Set(protocol.RegStatus, protocol.RespOK)
	d.Regs.OnWrite = d.written
	d.Regs.OnRead = d.read
	return d
}

func (d *Stage1Device) respond(status uint16) {
	d.Regs.Set(protocol.RegZero, protocol.RespOK)
	d.Regs.Set(protocol.RegStatus, status)
}

func (d *Stage1Device) written(reg protocol.Register, value uint16) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, r := range protocol.DataRegisters {
		if r == reg {
			d.data[i] = value
			if i+1 > d.dataWritten {
				d.dataWritten = i + 1
			}
			return
		}
	}

	if reg != protocol.RegStatus {
		return
	}

	words := d.data[:d.dataWritten]
	d.dataWritten = 0

	switch value {
	case protocol.CmdSetParams:
		var w [6]uint16
		copy(w[:], words)
		d.header = protocol.HeaderFromWords(w)
		d.image = d.image[:0]
		d.transferDone = false
		d.respond(protocol.RespOK)

	case protocol.CmdSetChecksum:
		if len(words) >= 2 {
			d.checksum = protocol.JoinWord(words[0], words[1])
		}
		d.respond(protocol.RespOK)

	case protocol.CmdSetData:
		if d.transferDone {
			mac := make(net.HardwareAddr, 0, 6)
			for _, w := range words {
				if len(mac) == 6 {
					break
				}
				mac = append(mac, byte(w>>8), byte(w))
			}
			d.mac = mac
			d.respond(protocol.RespOK)
			return
		}

		for _, w := range words {
			remaining := int(d.header.Length) - len(d.image)
			switch {
			case remaining >= 2:
				d.image = append(d.image, byte(w>>8), byte(w))
			case remaining == 1:
				d.image = append(d.image, byte(w))
			}
		}
		if len(d.image) >= int(d.header.Length) {
			d.transferDone = true
			if !d.TwoPhase && d.DrainReads > 0 {
				d.drainLeft = d.DrainReads
				d.respond(protocol.RespWait)
				return
			}
		}
		d.respond(protocol.RespOK)

	case protocol.CmdStartFirmware:
		d.starts++
		if d.starts == 1 {
			d.respond(protocol.RespReadyToStart)
			return
		}
		d.started = true
		d.respond(protocol.RespOK)
	}
}

func (d *Stage1Device) read(reg protocol.Register) {
	if reg != protocol.RegStatus {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.drainLeft > 0 {
		d.drainLeft--
		if d.drainLeft == 0 {
			d.started = true
			d.Regs.Set(protocol.RegStatus, protocol.RespOK)
		}
	}
}

// Image returns the bytes received so far.
func (d *Stage1Device) Image() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.image...)
}

// Header returns the last SET_PARAMS header.
func (d *Stage1Device) Header() protocol.Header {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.header
}

// Checksum returns the last SET_CHECKSUM value.
func (d *Stage1Device) Checksum() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.checksum
}

// MAC returns the address assigned after the transfer, if any.
func (d *Stage1Device) MAC() net.HardwareAddr {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mac
}

// Started reports whether the device considers the firmware started.
func (d *Stage1Device) Started() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started
}

// Stage2Device simulates the packet side of a WASP coprocessor running
// stage-1 firmware. It announces itself with DISCOVER, acknowledges every
// chunk and, when ConfigSize is set, asks for a config image afterwards.
type Stage2Device struct {
	Link PacketLink

	// ConfigSize is the expected config length; zero means no config.
	ConfigSize int

	mu       sync.Mutex
	firmware []byte
	config   []byte
	counters []uint16
}

// pollSlice bounds each receive so Run notices cancellation.
const pollSlice = 50 * time.Millisecond

// ErrDeviceDone is returned by Stage2Device.Run once both images arrived.
var ErrDeviceDone = errors.New("device finished")

// Run drives the device side of the session until the host has sent
// everything or ctx ends.
func (d *Stage2Device) Run(ctx context.Context) error {
	host := net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

	if err := d.reply(host, protocol.PktRespDiscover, 0); err != nil {
		return err
	}

	configPhase := false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		f, err := d.Link.Recv(pollSlice)
		if errors.Is(err, ErrTimeout) {
			continue
		}
		if err != nil {
			return err
		}
		host = f.Source

		pkt, err := protocol.DecodePacket(f.Payload)
		if err != nil {
			continue
		}

		d.mu.Lock()
		d.counters = append(d.counters, pkt.Counter)
		if configPhase {
			d.config = append(d.config, pkt.Payload...)
		} else {
			d.firmware = append(d.firmware, pkt.Payload...)
		}
		configLen := len(d.config)
		d.mu.Unlock()

		switch {
		case !configPhase && pkt.Response == protocol.PktCmdStartFirmware:
			if err := d.reply(host, protocol.PktRespStarting, pkt.Counter); err != nil {
				return err
			}
			if d.ConfigSize == 0 {
				return ErrDeviceDone
			}
			configPhase = true
			if err := d.reply(host, protocol.PktRespConfig, 0); err != nil {
				return err
			}

		case configPhase && configLen >= d.ConfigSize:
			if err := d.reply(host, protocol.PktRespStarting, pkt.Counter); err != nil {
				return err
			}
			return ErrDeviceDone

		default:
			if err := d.reply(host, protocol.PktRespOK, pkt.Counter); err != nil {
				return err
			}
		}
	}
}

func (d *Stage2Device) reply(dst net.HardwareAddr, response, counter uint16) error {
	pkt := &protocol.Packet{Response: response, Counter: counter}
	b, err := pkt.Encode()
	if err != nil {
		return err
	}
	if err := d.Link.Send(dst, b); err != nil {
		return fmt.Errorf("device reply: %w", err)
	}
	return nil
}

// Firmware returns the received firmware with the load address framing
// removed, and the load address found in the first chunk.
func (d *Stage2Device) Firmware() ([]byte, uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	raw := d.firmware
	if len(raw) < 2*protocol.LoadAddrSize {
		return nil, 0
	}
	addr := binary.LittleEndian.Uint32(raw[:protocol.LoadAddrSize])
	body := raw[protocol.LoadAddrSize : len(raw)-protocol.LoadAddrSize]
	return append([]byte(nil), body...), addr
}

// Config returns the received config bytes.
func (d *Stage2Device) Config() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.config...)
}

// Counters returns the counter of every packet received, in order.
func (d *Stage2Device) Counters() []uint16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]uint16(nil), d.counters...)
}
