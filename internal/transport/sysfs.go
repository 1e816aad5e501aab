package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/muurk/waspflash/internal/protocol"
)

// SysfsLink accesses WASP registers through one file per register.
//
// Each file holds the register value as 2 raw bytes in host byte order,
// which is how the kernel driver exposes them.
type SysfsLink struct {
	dir string
}

// NewSysfsLink returns a link rooted at dir.
func NewSysfsLink(dir string) *SysfsLink {
	return &SysfsLink{dir: dir}
}

// Dir returns the register directory.
func (l *SysfsLink) Dir() string {
	return l.dir
}

func (l *SysfsLink) path(reg protocol.Register) string {
	return filepath.Join(l.dir, reg.FileName())
}

// CheckRegisters verifies that every register file exists.
func (l *SysfsLink) CheckRegisters() error {
	var missing []string
	for _, reg := range protocol.AllRegisters {
		if _, err := os.Stat(l.path(reg)); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				missing = append(missing, reg.FileName())
				continue
			}
			return &RegisterError{Register: reg, Op: "stat", Err: err}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v missing in %s", ErrRegisterMissing, missing, l.dir)
	}
	return nil
}

// Read16 reads a register file.
func (l *SysfsLink) Read16(reg protocol.Register) (uint16, error) {
	data, err := os.ReadFile(l.path(reg))
	if err != nil {
		return 0, l.wrap(reg, "read", err)
	}
	if len(data) < 2 {
		return 0, &RegisterError{Register: reg, Op: "read", Err: fmt.Errorf("short read: %d bytes", len(data))}
	}
	return binary.NativeEndian.Uint16(data[:2]), nil
}

// Write16 writes a register file.
func (l *SysfsLink) Write16(reg protocol.Register, value uint16) error {
	var buf [2]byte
	binary.NativeEndian.PutUint16(buf[:], value)

	f, err := os.OpenFile(l.path(reg), os.O_WRONLY, 0)
	if err != nil {
		return l.wrap(reg, "write", err)
	}
	if _, err := f.Write(buf[:]); err != nil {
		f.Close()
		return l.wrap(reg, "write", err)
	}
	if err := f.Close(); err != nil {
		return l.wrap(reg, "write", err)
	}
	return nil
}

func (l *SysfsLink) wrap(reg protocol.Register, op string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		err = fmt.Errorf("%w: %v", ErrRegisterMissing, err)
	}
	return &RegisterError{Register: reg, Op: op, Err: err}
}
