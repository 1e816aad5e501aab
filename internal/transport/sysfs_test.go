package transport

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/muurk/waspflash/internal/protocol"
)

// newSysfsDir creates a register directory with every register file
// holding value.
func newSysfsDir(t *testing.T, value uint16) string {
	t.Helper()
	dir := t.TempDir()
	var buf [2]byte
	binary.NativeEndian.PutUint16(buf[:], value)
	for _, reg := range protocol.AllRegisters {
		if err := os.WriteFile(filepath.Join(dir, reg.FileName()), buf[:], 0o644); err != nil {
			t.Fatalf("write %s: %v", reg.FileName(), err)
		}
	}
	return dir
}

func TestSysfsLink_ReadWrite(t *testing.T) {
	dir := newSysfsDir(t, protocol.RespOK)
	link := NewSysfsLink(dir)

	if err := link.CheckRegisters(); err != nil {
		t.Fatalf("CheckRegisters: %v", err)
	}

	v, err := link.Read16(protocol.RegStatus)
	if err != nil {
		t.Fatalf("Read16: %v", err)
	}
	if v != protocol.RespOK {
		t.Errorf("STATUS = 0x%04x, want 0x0002", v)
	}

	if err := link.Write16(protocol.RegData3, 0xbd00); err != nil {
		t.Fatalf("Write16: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "register706"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(raw) != 2 || binary.NativeEndian.Uint16(raw) != 0xbd00 {
		t.Errorf("register706 contents = % x", raw)
	}

	v, err = link.Read16(protocol.RegData3)
	if err != nil || v != 0xbd00 {
		t.Errorf("Read16(DATA3) = 0x%04x, %v", v, err)
	}
}

func TestSysfsLink_MissingRegister(t *testing.T) {
	dir := newSysfsDir(t, 0)
	if err := os.Remove(filepath.Join(dir, "register70e")); err != nil {
		t.Fatal(err)
	}
	link := NewSysfsLink(dir)

	err := link.CheckRegisters()
	if !errors.Is(err, ErrRegisterMissing) {
		t.Errorf("CheckRegisters error = %v, want ErrRegisterMissing", err)
	}

	_, err = link.Read16(protocol.RegData7)
	var regErr *RegisterError
	if !errors.As(err, &regErr) {
		t.Fatalf("expected RegisterError, got %v", err)
	}
	if regErr.Register != protocol.RegData7 || regErr.Op != "read" {
		t.Errorf("RegisterError = %+v", regErr)
	}
	if !errors.Is(err, ErrRegisterMissing) {
		t.Error("expected error to wrap ErrRegisterMissing")
	}

	if err := link.Write16(protocol.RegData7, 1); !errors.Is(err, ErrRegisterMissing) {
		t.Errorf("Write16 error = %v, want ErrRegisterMissing", err)
	}
}

func TestSysfsLink_ShortRead(t *testing.T) {
	dir := newSysfsDir(t, 0)
	if err := os.WriteFile(filepath.Join(dir, "register0"), []byte{0x02}, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewSysfsLink(dir).Read16(protocol.RegZero); err == nil {
		t.Error("expected error for 1-byte register file")
	}
}
