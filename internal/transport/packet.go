package transport

import (
	"errors"
	"net"
	"time"
)

// ErrTimeout is returned by PacketLink.Recv when no frame arrived in time.
var ErrTimeout = errors.New("receive timeout")

// ErrClosed is returned by operations on a closed link.
var ErrClosed = errors.New("link closed")

// Frame is one received link-layer frame.
type Frame struct {
	Source      net.HardwareAddr
	Destination net.HardwareAddr
	Payload     []byte
}

// PacketLink sends and receives raw frames of a single EtherType on one
// interface.
type PacketLink interface {
	// Send transmits payload to dst.
	Send(dst net.HardwareAddr, payload []byte) error

	// Recv waits up to timeout for the next frame. It returns ErrTimeout
	// when nothing arrived.
	Recv(timeout time.Duration) (Frame, error)

	// HardwareAddr is the local interface address.
	HardwareAddr() net.HardwareAddr

	Close() error
}
