//go:build linux

package transport

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/muurk/waspflash/internal/protocol"
)

func TestOpenMDIO_InvalidName(t *testing.T) {
	for _, name := range []string{"", strings.Repeat("e", unix.IFNAMSIZ)} {
		if _, err := OpenMDIO(name, 0); err == nil {
			t.Errorf("OpenMDIO(%q) succeeded", name)
		}
	}
}

func TestMDIOLink_MissingInterface(t *testing.T) {
	l, err := OpenMDIO("waspnope0", 7)
	if err != nil {
		t.Skipf("no ioctl socket: %v", err)
	}
	defer l.Close()

	_, err = l.Read16(protocol.RegStatus)
	var re *RegisterError
	if !errors.As(err, &re) || re.Op != "read" || re.Register != protocol.RegStatus {
		t.Fatalf("Read16() error = %v, want RegisterError", err)
	}
	if !errors.Is(err, unix.ENODEV) {
		t.Errorf("Read16() error = %v, want ENODEV from SIOCGMIIREG", err)
	}

	err = l.Write16(protocol.RegStatus, protocol.CmdSetData)
	if !errors.As(err, &re) || re.Op != "write" || !strings.Contains(err.Error(), "SIOCSMIIREG") {
		t.Errorf("Write16() error = %v", err)
	}
}

func TestMIIRequestLayout(t *testing.T) {
	l := &MDIOLink{iface: "eth0", phy: 7}
	req := l.request(protocol.RegData3, 0xbeef)
	if string(req.name[:4]) != "eth0" || req.name[4] != 0 {
		t.Errorf("name = %q", req.name[:])
	}
	if req.phyID != 7 || req.regNum != uint16(protocol.RegData3) || req.valIn != 0xbeef {
		t.Errorf("request = %+v", req)
	}
}
