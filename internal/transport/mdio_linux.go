//go:build linux

package transport

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/muurk/waspflash/internal/protocol"
)

// miiIfreq mirrors struct ifreq with a struct mii_ioctl_data in its union.
type miiIfreq struct {
	name   [unix.IFNAMSIZ]byte
	phyID  uint16
	regNum uint16
	valIn  uint16
	valOut uint16
	_      [16]byte
}

// MDIOLink accesses WASP registers through the MII ioctls of a network
// interface whose MDIO bus reaches the coprocessor.
type MDIOLink struct {
	fd    int
	iface string
	phy   uint16
}

// OpenMDIO opens an MDIO link on iface, addressing the given PHY.
func OpenMDIO(iface string, phy uint16) (*MDIOLink, error) {
	if len(iface) == 0 || len(iface) >= unix.IFNAMSIZ {
		return nil, fmt.Errorf("invalid interface name %q", iface)
	}

	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open ioctl socket: %w", err)
	}

	return &MDIOLink{fd: fd, iface: iface, phy: phy}, nil
}

func (l *MDIOLink) request(reg protocol.Register, value uint16) *miiIfreq {
	req := &miiIfreq{
		phyID:  l.phy,
		regNum: uint16(reg),
		valIn:  value,
	}
	copy(req.name[:], l.iface)
	return req
}

func (l *MDIOLink) ioctl(op uintptr, req *miiIfreq) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(l.fd), op, uintptr(unsafe.Pointer(req)))
	if errno != 0 {
		return errno
	}
	return nil
}

// Read16 reads a register with SIOCGMIIREG.
func (l *MDIOLink) Read16(reg protocol.Register) (uint16, error) {
	req := l.request(reg, 0)
	if err := l.ioctl(unix.SIOCGMIIREG, req); err != nil {
		return 0, &RegisterError{Register: reg, Op: "read", Err: fmt.Errorf("SIOCGMIIREG on %s: %w", l.iface, err)}
	}
	return req.valOut, nil
}

// Write16 writes a register with SIOCSMIIREG.
func (l *MDIOLink) Write16(reg protocol.Register, value uint16) error {
	req := l.request(reg, value)
	if err := l.ioctl(unix.SIOCSMIIREG, req); err != nil {
		return &RegisterError{Register: reg, Op: "write", Err: fmt.Errorf("SIOCSMIIREG on %s: %w", l.iface, err)}
	}
	return nil
}

// Close releases the ioctl socket.
func (l *MDIOLink) Close() error {
	return unix.Close(l.fd)
}
