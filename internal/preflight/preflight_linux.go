//go:build linux

package preflight

import (
	"fmt"

	"golang.org/x/sys/unix"
)

var requiredCaps = []struct {
	bit  int
	name string
}{
	{unix.CAP_NET_ADMIN, "CAP_NET_ADMIN"},
	{unix.CAP_NET_RAW, "CAP_NET_RAW"},
}

func missingCapabilities() ([]string, error) {
	hdr := unix.CapUserHeader{Version: unix.LINUX_CAPABILITY_VERSION_3}
	var data [2]unix.CapUserData
	if err := unix.Capget(&hdr, &data[0]); err != nil {
		return nil, fmt.Errorf("capget: %w", err)
	}
	return missingFrom([2]uint32{data[0].Effective, data[1].Effective}), nil
}

// missingFrom returns the required capabilities absent from an effective
// set split into 32-bit words, as capget returns it.
func missingFrom(effective [2]uint32) []string {
	var missing []string
	for _, c := range requiredCaps {
		if effective[c.bit/32]&(1<<(c.bit%32)) == 0 {
			missing = append(missing, c.name)
		}
	}
	return missing
}
