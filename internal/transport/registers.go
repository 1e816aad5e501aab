package transport

import (
	"errors"
	"fmt"

	"github.com/muurk/waspflash/internal/protocol"
)

// ErrRegisterMissing is reported when the backing store for a register does
// not exist (e.g., the sysfs file is absent).
var ErrRegisterMissing = errors.New("register not present")

// RegisterLink reads and writes named 16-bit WASP registers.
type RegisterLink interface {
	Read16(reg protocol.Register) (uint16, error)
	Write16(reg protocol.Register, value uint16) error
}

// RegisterError reports a failed register access.
type RegisterError struct {
	Register protocol.Register
	Op       string // "read" or "write"
	Err      error
}

func (e *RegisterError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Register, e.Err)
}

func (e *RegisterError) Unwrap() error {
	return e.Err
}
