//go:build linux

package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/mdlayher/ethernet"
	"github.com/mdlayher/packet"

	"github.com/muurk/waspflash/internal/logging"
)

// EthernetLink is a PacketLink over an AF_PACKET socket bound to one
// interface and EtherType.
type EthernetLink struct {
	conn      *packet.Conn
	ifi       *net.Interface
	etherType ethernet.EtherType
	buf       []byte
}

// OpenEthernet binds a raw socket on the named interface for etherType and
// puts the interface into promiscuous mode, since the coprocessor does not
// yet know the host's address.
func OpenEthernet(name string, etherType uint16) (*EthernetLink, error) {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("failed to find interface %s: %w", name, err)
	}

	conn, err := packet.Listen(ifi, packet.Raw, int(etherType), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open raw socket on %s: %w", name, err)
	}

	if err := conn.SetPromiscuous(true); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable promiscuous mode on %s: %w", name, err)
	}

	mtu := ifi.MTU
	if mtu <= 0 {
		mtu = 1500
	}

	return &EthernetLink{
		conn:      conn,
		ifi:       ifi,
		etherType: ethernet.EtherType(etherType),
		buf:       make([]byte, mtu+14),
	}, nil
}

// HardwareAddr returns the interface address.
func (l *EthernetLink) HardwareAddr() net.HardwareAddr {
	return l.ifi.HardwareAddr
}

// Send frames payload for dst and writes it to the socket.
func (l *EthernetLink) Send(dst net.HardwareAddr, payload []byte) error {
	f := &ethernet.Frame{
		Destination: dst,
		Source:      l.ifi.HardwareAddr,
		EtherType:   l.etherType,
		Payload:     payload,
	}

	b, err := f.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	if _, err := l.conn.WriteTo(b, &packet.Addr{HardwareAddr: dst}); err != nil {
		return fmt.Errorf("failed to send frame to %s: %w", dst, err)
	}
	logging.LogFrame("tx", f.Source, dst, b)
	return nil
}

// Recv reads the next frame of the link's EtherType.
func (l *EthernetLink) Recv(timeout time.Duration) (Frame, error) {
	deadline := time.Now().Add(timeout)
	if err := l.conn.SetReadDeadline(deadline); err != nil {
		return Frame{}, fmt.Errorf("failed to set read deadline: %w", err)
	}

	for {
		n, _, err := l.conn.ReadFrom(l.buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				return Frame{}, ErrTimeout
			}
			return Frame{}, fmt.Errorf("failed to read frame: %w", err)
		}

		var f ethernet.Frame
		if err := f.UnmarshalBinary(l.buf[:n]); err != nil {
			// Malformed frame; keep waiting until the deadline
			continue
		}
		if f.EtherType != l.etherType {
			continue
		}
		logging.LogFrame("rx", f.Source, f.Destination, l.buf[:n])

		return Frame{
			Source:      append(net.HardwareAddr(nil), f.Source...),
			Destination: append(net.HardwareAddr(nil), f.Destination...),
			Payload:     append([]byte(nil), f.Payload...),
		}, nil
	}
}

// Close leaves promiscuous mode and closes the socket.
func (l *EthernetLink) Close() error {
	_ = l.conn.SetPromiscuous(false)
	return l.conn.Close()
}
