// Package preflight checks that the host can talk to a WASP coprocessor
// before an upload is attempted.
package preflight

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/muurk/waspflash/internal/protocol"
	"github.com/muurk/waspflash/internal/transport"
)

// missingCaps lists the capabilities the process lacks for MDIO ioctls
// and raw sockets.
var missingCaps = missingCapabilities

// Check is the outcome of one prerequisite.
type Check struct {
	// Name is the human-readable name of the prerequisite
	Name string
	// Passed indicates whether the prerequisite is met
	Passed bool
	// Required checks fail the whole run; others only warn
	Required bool
	// Detail describes what was found
	Detail string
	// Err is the underlying error if the check failed
	Err error
}

// Status returns "ok", "missing" or "warning".
func (c Check) Status() string {
	switch {
	case c.Passed:
		return "ok"
	case c.Required:
		return "missing"
	default:
		return "warning"
	}
}

// Result collects the checks of one run.
type Result struct {
	Checks []Check
}

// Add records c.
func (r *Result) Add(c Check) {
	r.Checks = append(r.Checks, c)
}

// Ready reports whether every required check passed.
func (r *Result) Ready() bool {
	return len(r.Failed()) == 0
}

// Failed returns the required checks that did not pass.
func (r *Result) Failed() []Check {
	var failed []Check
	for _, c := range r.Checks {
		if c.Required && !c.Passed {
			failed = append(failed, c)
		}
	}
	return failed
}

// Err joins the errors of the failed required checks.
func (r *Result) Err() error {
	var errs []error
	for _, c := range r.Failed() {
		err := c.Err
		if err == nil {
			err = errors.New(c.Detail)
		}
		errs = append(errs, fmt.Errorf("%s: %w", c.Name, err))
	}
	return errors.Join(errs...)
}

// CheckPrivileges verifies the process may issue MDIO ioctls and open raw
// sockets: either root or CAP_NET_ADMIN plus CAP_NET_RAW.
func CheckPrivileges() Check {
	check := Check{Name: "Privileges", Required: true}

	if os.Geteuid() == 0 {
		check.Passed = true
		check.Detail = "running as root"
		return check
	}

	missing, err := missingCaps()
	if err != nil {
		check.Err = err
		check.Detail = "not root and capabilities unreadable"
		return check
	}
	if len(missing) > 0 {
		check.Detail = "not root, missing " + strings.Join(missing, " and ")
		return check
	}

	check.Passed = true
	check.Detail = "CAP_NET_ADMIN and CAP_NET_RAW granted"
	return check
}

// CheckInterface verifies the named interface exists and is up.
func CheckInterface(name string) Check {
	check := Check{Name: "Interface " + name, Required: true}

	ifi, err := net.InterfaceByName(name)
	if err != nil {
		check.Err = err
		check.Detail = "not found"
		return check
	}
	if ifi.Flags&net.FlagUp == 0 {
		check.Detail = "down"
		check.Err = fmt.Errorf("interface %s is down", name)
		return check
	}

	check.Passed = true
	check.Detail = fmt.Sprintf("up, %s, mtu %d", ifi.HardwareAddr, ifi.MTU)
	return check
}

// CheckRegisterFiles verifies every register file exists in dir.
func CheckRegisterFiles(dir string) Check {
	check := Check{Name: "Register files", Required: true}

	if err := transport.NewSysfsLink(dir).CheckRegisters(); err != nil {
		check.Err = err
		check.Detail = err.Error()
		return check
	}

	check.Passed = true
	check.Detail = fmt.Sprintf("%d registers in %s", len(protocol.AllRegisters), dir)
	return check
}

// ProbeStatus reads STATUS and ZERO. The device is idle when both hold ok.
// Only reads are issued.
func ProbeStatus(link transport.RegisterLink, ok uint16) Check {
	check := Check{Name: "Device status"}

	var values []string
	idle := true
	for _, reg := range []protocol.Register{protocol.RegStatus, protocol.RegZero} {
		v, err := link.Read16(reg)
		if err != nil {
			check.Err = err
			check.Detail = "read failed"
			return check
		}
		values = append(values, fmt.Sprintf("%s=%s", reg, protocol.RegisterResponseName(v)))
		idle = idle && v == ok
	}

	check.Passed = idle
	if idle {
		check.Detail = "idle (" + strings.Join(values, ", ") + ")"
	} else {
		check.Detail = "not idle (" + strings.Join(values, ", ") + "), reset the coprocessor"
	}
	return check
}
