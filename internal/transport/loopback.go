package transport

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/muurk/waspflash/internal/protocol"
)

// RegisterWrite records one write made through a MemRegisters link.
type RegisterWrite struct {
	Register protocol.Register
	Value    uint16
}

func (w RegisterWrite) String() string {
	return fmt.Sprintf("%s=0x%04x", w.Register, w.Value)
}

// MemRegisters is a RegisterLink backed by a map.
//
// OnRead runs before a read returns and OnWrite after a write is stored;
// both may call Set to simulate a device reacting to the host. Hooks run
// without the internal lock held.
type MemRegisters struct {
	mu     sync.Mutex
	regs   map[protocol.Register]uint16
	writes []RegisterWrite

	OnRead  func(reg protocol.Register)
	OnWrite func(reg protocol.Register, value uint16)

	// Fail, when non-nil, is consulted before every access; a non-nil
	// return fails the access with that error.
	Fail func(op string, reg protocol.Register) error
}

// NewMemRegisters returns a register file with every register present
// and zeroed.
func NewMemRegisters() *MemRegisters {
	m := &MemRegisters{regs: make(map[protocol.Register]uint16)}
	for _, reg := range protocol.AllRegisters {
		m.regs[reg] = 0
	}
	return m
}

// Set stores a value without recording it as a host write.
func (m *MemRegisters) Set(reg protocol.Register, value uint16) {
	m.mu.Lock()
	m.regs[reg] = value
	m.mu.Unlock()
}

// Get returns the stored value without running hooks.
func (m *MemRegisters) Get(reg protocol.Register) uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[reg]
}

// Writes returns a copy of every host write so far.
func (m *MemRegisters) Writes() []RegisterWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]RegisterWrite(nil), m.writes...)
}

// Read16 implements RegisterLink.
func (m *MemRegisters) Read16(reg protocol.Register) (uint16, error) {
	if m.Fail != nil {
		if err := m.Fail("read", reg); err != nil {
			return 0, &RegisterError{Register: reg, Op: "read", Err: err}
		}
	}
	if m.OnRead != nil {
		m.OnRead(reg)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.regs[reg]
	if !ok {
		return 0, &RegisterError{Register: reg, Op: "read", Err: ErrRegisterMissing}
	}
	return v, nil
}

// Write16 implements RegisterLink.
func (m *MemRegisters) Write16(reg protocol.Register, value uint16) error {
	if m.Fail != nil {
		if err := m.Fail("write", reg); err != nil {
			return &RegisterError{Register: reg, Op: "write", Err: err}
		}
	}

	m.mu.Lock()
	if _, ok := m.regs[reg]; !ok {
		m.mu.Unlock()
		return &RegisterError{Register: reg, Op: "write", Err: ErrRegisterMissing}
	}
	m.regs[reg] = value
	m.writes = append(m.writes, RegisterWrite{Register: reg, Value: value})
	m.mu.Unlock()

	if m.OnWrite != nil {
		m.OnWrite(reg, value)
	}
	return nil
}

// Loopback is one end of an in-memory PacketLink pair.
type Loopback struct {
	addr net.HardwareAddr
	in   chan Frame
	peer *Loopback

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewLoopbackPair returns two connected links with the given addresses.
// Frames sent on one are received on the other.
func NewLoopbackPair(a, b net.HardwareAddr) (*Loopback, *Loopback) {
	la := &Loopback{addr: a, in: make(chan Frame, 64), done: make(chan struct{})}
	lb := &Loopback{addr: b, in: make(chan Frame, 64), done: make(chan struct{})}
	la.peer, lb.peer = lb, la
	return la, lb
}

// HardwareAddr implements PacketLink.
func (l *Loopback) HardwareAddr() net.HardwareAddr {
	return l.addr
}

// Send implements PacketLink. The destination is recorded but not checked.
func (l *Loopback) Send(dst net.HardwareAddr, payload []byte) error {
	if l.isClosed() {
		return ErrClosed
	}

	f := Frame{
		Source:      append(net.HardwareAddr(nil), l.addr...),
		Destination: append(net.HardwareAddr(nil), dst...),
		Payload:     append([]byte(nil), payload...),
	}

	select {
	case l.peer.in <- f:
		return nil
	case <-l.peer.done:
		return ErrClosed
	}
}

// Inject queues a frame for Recv as if it came from src.
func (l *Loopback) Inject(src net.HardwareAddr, payload []byte) {
	l.in <- Frame{
		Source:      append(net.HardwareAddr(nil), src...),
		Destination: append(net.HardwareAddr(nil), l.addr...),
		Payload:     append([]byte(nil), payload...),
	}
}

// Recv implements PacketLink.
func (l *Loopback) Recv(timeout time.Duration) (Frame, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case f := <-l.in:
		return f, nil
	case <-l.done:
		return Frame{}, ErrClosed
	case <-timer.C:
		return Frame{}, ErrTimeout
	}
}

// Close implements PacketLink.
func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.done)
	}
	return nil
}

func (l *Loopback) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
