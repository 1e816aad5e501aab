package wasp

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()

	write := func(name string, size int) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, make([]byte, size), 0o644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	ok := write("ath_tgt_fw1.fw", 4096)
	empty := write("empty.bin", 0)
	big := write("big.bin", 0x10000)

	tests := []struct {
		name    string
		path    string
		max     int
		wantErr string
	}{
		{"valid", ok, 0xffff, ""},
		{"unbounded", big, 0, ""},
		{"too big", big, 0xffff, "file too big"},
		{"empty", empty, 0, "file is empty"},
		{"missing", filepath.Join(dir, "nope.bin"), 0, "cannot stat file"},
		{"directory", dir, 0, "is a directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := LoadImage(tt.path, tt.max)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("LoadImage() error = %v", err)
				}
				if img.Path != tt.path || img.Name != filepath.Base(tt.path) {
					t.Errorf("image = %s at %s", img.Name, img.Path)
				}
				return
			}

			if !IsInputError(err) {
				t.Fatalf("expected InputError, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewImage_Copies(t *testing.T) {
	data := []byte{1, 2, 3}
	img := NewImage("mem", data)
	data[0] = 9

	if img.Bytes()[0] != 1 {
		t.Error("NewImage shares the caller's slice")
	}
	if img.Size() != 3 || img.String() != "mem (3 bytes)" {
		t.Errorf("image = %s", img)
	}
	if img.label() != "mem" {
		t.Errorf("label = %q", img.label())
	}
}
