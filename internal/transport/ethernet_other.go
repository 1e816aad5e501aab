//go:build !linux

package transport

import (
	"errors"
	"net"
	"time"
)

var errEthernetUnsupported = errors.New("raw Ethernet access requires Linux")

// EthernetLink is unavailable on this platform.
type EthernetLink struct{}

// OpenEthernet always fails on this platform.
func OpenEthernet(name string, etherType uint16) (*EthernetLink, error) {
	return nil, errEthernetUnsupported
}

func (l *EthernetLink) HardwareAddr() net.HardwareAddr { return nil }

func (l *EthernetLink) Send(dst net.HardwareAddr, payload []byte) error {
	return errEthernetUnsupported
}

func (l *EthernetLink) Recv(timeout time.Duration) (Frame, error) {
	return Frame{}, errEthernetUnsupported
}

func (l *EthernetLink) Close() error { return nil }
