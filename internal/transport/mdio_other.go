//go:build !linux

package transport

import (
	"errors"

	"github.com/muurk/waspflash/internal/protocol"
)

var errMDIOUnsupported = errors.New("MDIO register access requires Linux")

// MDIOLink is unavailable on this platform.
type MDIOLink struct{}

// OpenMDIO always fails on this platform.
func OpenMDIO(iface string, phy uint16) (*MDIOLink, error) {
	return nil, errMDIOUnsupported
}

func (l *MDIOLink) Read16(reg protocol.Register) (uint16, error) {
	return 0, &RegisterError{Register: reg, Op: "read", Err: errMDIOUnsupported}
}

func (l *MDIOLink) Write16(reg protocol.Register, value uint16) error {
	return &RegisterError{Register: reg, Op: "write", Err: errMDIOUnsupported}
}

func (l *MDIOLink) Close() error {
	return nil
}
