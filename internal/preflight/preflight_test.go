package preflight

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/muurk/waspflash/internal/protocol"
	"github.com/muurk/waspflash/internal/transport"
)

func TestCheckPrivileges_Capabilities(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root always passes")
	}

	old := missingCaps
	defer func() { missingCaps = old }()

	tests := []struct {
		name       string
		missing    []string
		err        error
		wantPassed bool
		wantDetail string
	}{
		{"granted", nil, nil, true, "granted"},
		{"raw missing", []string{"CAP_NET_RAW"}, nil, false, "missing CAP_NET_RAW"},
		{"unreadable", nil, errors.New("capget: EPERM"), false, "unreadable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			missingCaps = func() ([]string, error) { return tt.missing, tt.err }

			c := CheckPrivileges()
			if c.Passed != tt.wantPassed {
				t.Errorf("Passed = %v, want %v (%s)", c.Passed, tt.wantPassed, c.Detail)
			}
			if !strings.Contains(c.Detail, tt.wantDetail) {
				t.Errorf("Detail = %q, want %q", c.Detail, tt.wantDetail)
			}
			if tt.err != nil && !errors.Is(c.Err, tt.err) {
				t.Errorf("Err = %v, want %v", c.Err, tt.err)
			}
		})
	}
}

func TestCheckInterface_Missing(t *testing.T) {
	c := CheckInterface("wasp-nope0")
	if c.Passed || c.Err == nil {
		t.Errorf("CheckInterface() = %+v, want failure", c)
	}
	if c.Status() != "missing" {
		t.Errorf("Status() = %q, want missing", c.Status())
	}
}

func TestCheckRegisterFiles(t *testing.T) {
	dir := t.TempDir()

	c := CheckRegisterFiles(dir)
	if c.Passed || !errors.Is(c.Err, transport.ErrRegisterMissing) {
		t.Errorf("empty dir: got %+v", c)
	}

	for _, reg := range protocol.AllRegisters {
		if err := os.WriteFile(filepath.Join(dir, reg.FileName()), []byte("0x0000\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if c := CheckRegisterFiles(dir); !c.Passed {
		t.Errorf("all registers present: got %+v", c)
	}
}

func TestProbeStatus(t *testing.T) {
	tests := []struct {
		name       string
		status     uint16
		zero       uint16
		wantPassed bool
		wantDetail string
	}{
		{"idle", protocol.RespOK, protocol.RespOK, true, "idle"},
		{"busy", protocol.RespWait, protocol.RespOK, false, "not idle"},
		{"zero not ok", protocol.RespOK, 0, false, "not idle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			regs := transport.NewMemRegisters()
			regs.Set(protocol.RegStatus, tt.status)
			regs.Set(protocol.RegZero, tt.zero)

			c := ProbeStatus(regs, protocol.RespOK)
			if c.Passed != tt.wantPassed {
				t.Errorf("Passed = %v, want %v (%s)", c.Passed, tt.wantPassed, c.Detail)
			}
			if !strings.HasPrefix(c.Detail, tt.wantDetail) {
				t.Errorf("Detail = %q, want prefix %q", c.Detail, tt.wantDetail)
			}
			if len(regs.Writes()) != 0 {
				t.Error("probe must not write registers")
			}
			if c.Required {
				t.Error("status probe should only warn")
			}
		})
	}
}

func TestProbeStatus_ReadError(t *testing.T) {
	regs := transport.NewMemRegisters()
	regs.Fail = func(op string, reg protocol.Register) error { return errors.New("bus error") }

	c := ProbeStatus(regs, protocol.RespOK)
	if c.Passed || c.Err == nil {
		t.Errorf("ProbeStatus() = %+v, want read failure", c)
	}
}

func TestResult(t *testing.T) {
	var r Result
	r.Add(Check{Name: "a", Passed: true, Required: true})
	r.Add(Check{Name: "b", Passed: false})
	if !r.Ready() || r.Err() != nil {
		t.Error("warnings must not fail the result")
	}

	r.Add(Check{Name: "c", Required: true, Detail: "not found"})
	if r.Ready() {
		t.Error("Ready() with a failed required check")
	}
	if err := r.Err(); err == nil || !strings.Contains(err.Error(), "c: not found") {
		t.Errorf("Err() = %v", err)
	}
	if got := r.Checks[1].Status(); got != "warning" {
		t.Errorf("Status() = %q, want warning", got)
	}
}
