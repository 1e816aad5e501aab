//go:build linux

package preflight

import (
	"slices"
	"testing"

	"golang.org/x/sys/unix"
)

func TestMissingFrom(t *testing.T) {
	tests := []struct {
		name      string
		effective [2]uint32
		want      []string
	}{
		{"net admin and raw", [2]uint32{1<<unix.CAP_NET_ADMIN | 1<<unix.CAP_NET_RAW, 0}, nil},
		{"none", [2]uint32{0, 0}, []string{"CAP_NET_ADMIN", "CAP_NET_RAW"}},
		{"admin only", [2]uint32{1 << unix.CAP_NET_ADMIN, 0}, []string{"CAP_NET_RAW"}},
		{"high word ignored", [2]uint32{1 << unix.CAP_NET_RAW, 0xffffffff}, []string{"CAP_NET_ADMIN"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := missingFrom(tt.effective); !slices.Equal(got, tt.want) {
				t.Errorf("missingFrom() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMissingCapabilities(t *testing.T) {
	// capget on the calling process always succeeds
	if _, err := missingCapabilities(); err != nil {
		t.Fatalf("missingCapabilities() error = %v", err)
	}
}
