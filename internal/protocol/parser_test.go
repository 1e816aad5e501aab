package protocol

import (
	"bytes"
	"errors"
	"net"
	"testing"
)

func TestDecodePacket(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
		verify  func(t *testing.T, p *Packet)
	}{
		{
			name: "discover without payload",
			data: []byte{
				0x12, 0x00, // packet_start
				0, 0, 0, 0, 0, // padding
				0x00, 0x00, // command
				0x00, 0x00, // response: DISCOVER
				0x00, 0x00, // counter
				0, // padding
			},
			verify: func(t *testing.T, p *Packet) {
				if p.Response != PktRespDiscover {
					t.Errorf("response = 0x%04x, want DISCOVER", p.Response)
				}
				if len(p.Payload) != 0 {
					t.Errorf("payload = %d bytes, want 0", len(p.Payload))
				}
			},
		},
		{
			name: "ok with counter and padding payload",
			data: append([]byte{
				0x12, 0x00,
				0xff, 0xff, 0xff, 0xff, 0xff, // padding content is ignored
				0x01, 0x04,
				0x01, 0x00,
				0x00, 0x08,
				0xff,
			}, make([]byte, 32)...),
			verify: func(t *testing.T, p *Packet) {
				if p.Command != PktCmdFirmwareData {
					t.Errorf("command = 0x%04x, want 0x%04x", p.Command, PktCmdFirmwareData)
				}
				if p.Response != PktRespOK {
					t.Errorf("response = 0x%04x, want OK", p.Response)
				}
				if p.Counter != 8 {
					t.Errorf("counter = %d, want 8", p.Counter)
				}
				if len(p.Payload) != 32 {
					t.Errorf("payload = %d bytes, want 32", len(p.Payload))
				}
			},
		},
		{
			name:    "too short",
			data:    []byte{0x12, 0x00, 0x00},
			wantErr: ErrShortPacket,
		},
		{
			name:    "wrong magic",
			data:    append([]byte{0x13, 0x00}, make([]byte, 12)...),
			wantErr: ErrBadPacketStart,
		},
		{
			name: "oversized payload truncated",
			data: append(append([]byte{0x12, 0x00}, make([]byte, 12)...), make([]byte, 1500)...),
			verify: func(t *testing.T, p *Packet) {
				if len(p.Payload) != MaxPacketPayload {
					t.Errorf("payload = %d bytes, want %d", len(p.Payload), MaxPacketPayload)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DecodePacket(tt.data)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodePacket() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodePacket() unexpected error: %v", err)
			}
			if tt.verify != nil {
				tt.verify(t, p)
			}
		})
	}
}

func TestPacketEncode(t *testing.T) {
	p := &Packet{
		Command:  PktCmdFirmwareData,
		Response: 0,
		Counter:  0x0104,
		Payload:  []byte{0xde, 0xad},
	}

	got, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	want := []byte{
		0x12, 0x00,
		0, 0, 0, 0, 0,
		0x01, 0x04,
		0x00, 0x00,
		0x01, 0x04,
		0,
		0xde, 0xad,
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Encode() =\n% x\nwant\n% x", got, want)
	}

	decoded, err := DecodePacket(got)
	if err != nil {
		t.Fatalf("DecodePacket() error: %v", err)
	}
	if decoded.Counter != p.Counter || decoded.Command != p.Command || !bytes.Equal(decoded.Payload, p.Payload) {
		t.Errorf("decoded %s, want fields of %s", decoded, p)
	}
}

func TestPacketEncode_PayloadTooLarge(t *testing.T) {
	p := &Packet{Payload: make([]byte, MaxPacketPayload+1)}
	if _, err := p.Encode(); !errors.Is(err, ErrPayloadTooLarge) {
		t.Errorf("Encode() error = %v, want ErrPayloadTooLarge", err)
	}
}

func TestBuildChunkPacket(t *testing.T) {
	image := make([]byte, 3000)
	plan := PlanChunks(len(image), true)

	for i := 1; i <= plan.Total; i++ {
		p := BuildChunkPacket(image, plan.Chunk(i), 0xbd003000, uint16(4*(i-1)), true)
		if i == plan.Total {
			if p.Response != PktCmdStartFirmware || p.Command != 0 {
				t.Errorf("last chunk: cmd=0x%04x resp=0x%04x, want start in response", p.Command, p.Response)
			}
		} else if p.Command != PktCmdFirmwareData || p.Response != 0 {
			t.Errorf("chunk %d: cmd=0x%04x resp=0x%04x, want data command", i, p.Command, p.Response)
		}
	}

	cfg := BuildChunkPacket(image, PlanChunks(len(image), false).Chunk(3), 0, 8, false)
	if cfg.Command != PktCmdFirmwareData {
		t.Errorf("config last chunk command = 0x%04x, want data command", cfg.Command)
	}
}

func TestBuildMacFrame(t *testing.T) {
	mac := net.HardwareAddr{0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa}
	got, err := BuildMacFrame(mac, MacTail)
	if err != nil {
		t.Fatalf("BuildMacFrame() error: %v", err)
	}
	want := []byte{0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0x04, 0x20, 0x03, 0x00, 0x00, 0x00, 0x00, 0x00}
	if !bytes.Equal(got, want) {
		t.Errorf("BuildMacFrame() = % x, want % x", got, want)
	}

	if _, err := BuildMacFrame(mac[:4], MacTail); err == nil {
		t.Error("expected error for short mac")
	}
}

func TestRegisterNames(t *testing.T) {
	tests := []struct {
		reg  Register
		name string
		file string
	}{
		{RegZero, "ZERO", "register0"},
		{RegStatus, "STATUS", "register700"},
		{RegData1, "DATA1", "register702"},
		{RegData5, "DATA5", "register70a"},
		{RegData7, "DATA7", "register70e"},
	}

	for _, tt := range tests {
		if got := tt.reg.String(); got != tt.name {
			t.Errorf("String() = %q, want %q", got, tt.name)
		}
		if got := tt.reg.FileName(); got != tt.file {
			t.Errorf("FileName() = %q, want %q", got, tt.file)
		}
	}
}
