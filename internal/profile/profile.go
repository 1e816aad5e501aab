package profile

import (
	_ "embed"
	"fmt"
	"net"
	"os"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/muurk/waspflash/internal/protocol"
)

//go:embed profiles.yaml
var profilesYAML []byte

// Transport names used by profiles.
const (
	TransportMDIO     = "mdio"
	TransportSysfs    = "sysfs"
	TransportEthernet = "ethernet"
)

// Profile describes one WASP hardware revision and how to upload to it.
type Profile struct {
	// Name is the catalog key (e.g., "3390-mdio")
	Name string `yaml:"name"`

	// Description is shown by the profiles command
	Description string `yaml:"description"`

	// Stage is 1 for register uploads, 2 for packet uploads
	Stage int `yaml:"stage"`

	// Transport is one of mdio, sysfs or ethernet
	Transport string `yaml:"transport"`

	// Verified indicates whether this revision has been tested on hardware
	Verified bool `yaml:"verified"`

	Stage1 *Stage1 `yaml:"stage1,omitempty"`
	Stage2 *Stage2 `yaml:"stage2,omitempty"`

	// Notes contains additional information about this revision
	Notes string `yaml:"notes"`
}

// Stage1 holds the register protocol parameters of a revision.
type Stage1 struct {
	// PHY is the MDIO PHY address of the WASP register window
	PHY uint16 `yaml:"phy"`

	// SysfsPath is the directory holding the register files
	SysfsPath string `yaml:"sysfs_path"`

	LoadAddr uint32 `yaml:"load_addr"`
	ExecAddr uint32 `yaml:"exec_addr"`

	// Checksum is subtract, static or none
	Checksum string `yaml:"checksum"`

	// StaticChecksum is sent as-is when Checksum is "static"
	StaticChecksum uint32 `yaml:"static_checksum"`

	PollInterval     time.Duration `yaml:"poll_interval"`
	PollTimeout      time.Duration `yaml:"poll_timeout"`
	WriteSettle      time.Duration `yaml:"write_settle"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	StartDelay       time.Duration `yaml:"start_delay"`

	// StartSentinels are the STATUS values awaited after each
	// START_FIRMWARE write. Empty means drain WAIT instead.
	StartSentinels []uint16 `yaml:"start_sentinels"`

	// MAC is the default address assigned after start
	MAC string `yaml:"mac"`

	// MacTail follows the MAC in the assignment frame
	MacTail []uint8 `yaml:"mac_tail"`

	Codes Codes `yaml:"codes"`
}

// Codes are the stage-1 register command and response values.
type Codes struct {
	SetParams     uint16 `yaml:"set_params"`
	SetChecksum   uint16 `yaml:"set_checksum"`
	SetData       uint16 `yaml:"set_data"`
	StartFirmware uint16 `yaml:"start_firmware"`
	OK            uint16 `yaml:"ok"`
	Wait          uint16 `yaml:"wait"`
	Completed     uint16 `yaml:"completed"`
}

// Stage2 holds the packet protocol parameters of a revision.
type Stage2 struct {
	EtherType      uint16        `yaml:"ether_type"`
	LoadAddr       uint32        `yaml:"load_addr"`
	ChunkSize      int           `yaml:"chunk_size"`
	CounterStep    uint16        `yaml:"counter_step"`
	RecvInterval   time.Duration `yaml:"recv_interval"`
	SessionTimeout time.Duration `yaml:"session_timeout"`
}

// DefaultCodes returns the reference register codes.
func DefaultCodes() Codes {
	return Codes{
		SetParams:     protocol.CmdSetParams,
		SetChecksum:   protocol.CmdSetChecksum,
		SetData:       protocol.CmdSetData,
		StartFirmware: protocol.CmdStartFirmware,
		OK:            protocol.RespOK,
		Wait:          protocol.RespWait,
		Completed:     protocol.RespCompleted,
	}
}

// DefaultStage1 returns the reference stage-1 parameters.
func DefaultStage1() Stage1 {
	return Stage1{
		PHY:              0x07,
		LoadAddr:         0xbd003000,
		ExecAddr:         0xbd003000,
		Checksum:         protocol.ChecksumSubtract,
		PollInterval:     20 * time.Millisecond,
		PollTimeout:      10 * time.Second,
		WriteSettle:      20 * time.Millisecond,
		HandshakeTimeout: 10 * time.Second,
		StartDelay:       1500 * time.Millisecond,
		StartSentinels:   []uint16{protocol.RespReadyToStart, protocol.RespOK},
		MAC:              "aa:aa:aa:aa:aa:aa",
		MacTail:          append([]uint8(nil), protocol.MacTail...),
		Codes:            DefaultCodes(),
	}
}

// DefaultStage2 returns the reference stage-2 parameters.
func DefaultStage2() Stage2 {
	return Stage2{
		EtherType:      protocol.EtherType,
		LoadAddr:       0xbd003000,
		ChunkSize:      protocol.PacketDataSize,
		CounterStep:    4,
		RecvInterval:   100 * time.Millisecond,
		SessionTimeout: 120 * time.Second,
	}
}

// ChecksumFunc resolves the configured checksum mode.
func (s *Stage1) ChecksumFunc() (protocol.ChecksumFunc, error) {
	return protocol.ChecksumByName(s.Checksum, s.StaticChecksum)
}

// HardwareAddr parses the default MAC.
func (s *Stage1) HardwareAddr() (net.HardwareAddr, error) {
	mac, err := net.ParseMAC(s.MAC)
	if err != nil {
		return nil, fmt.Errorf("invalid mac %q: %w", s.MAC, err)
	}
	return mac, nil
}

// Validate checks a profile for values the engines cannot work with.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile has no name")
	}

	switch p.Stage {
	case 1:
		if p.Stage1 == nil {
			return fmt.Errorf("profile %s: stage 1 profile without stage1 section", p.Name)
		}
		if p.Transport != TransportMDIO && p.Transport != TransportSysfs {
			return fmt.Errorf("profile %s: stage 1 transport must be %s or %s, got %q",
				p.Name, TransportMDIO, TransportSysfs, p.Transport)
		}
		return p.Stage1.validate(p.Name)
	case 2:
		if p.Stage2 == nil {
			return fmt.Errorf("profile %s: stage 2 profile without stage2 section", p.Name)
		}
		if p.Transport != TransportEthernet {
			return fmt.Errorf("profile %s: stage 2 transport must be %s, got %q", p.Name, TransportEthernet, p.Transport)
		}
		return p.Stage2.validate(p.Name)
	default:
		return fmt.Errorf("profile %s: stage must be 1 or 2, got %d", p.Name, p.Stage)
	}
}

func (s *Stage1) validate(name string) error {
	if _, err := s.ChecksumFunc(); err != nil {
		return fmt.Errorf("profile %s: %w", name, err)
	}
	if s.PollInterval <= 0 || s.PollTimeout <= 0 || s.HandshakeTimeout <= 0 {
		return fmt.Errorf("profile %s: poll_interval, poll_timeout and handshake_timeout must be positive", name)
	}
	if s.WriteSettle < 0 || s.StartDelay < 0 {
		return fmt.Errorf("profile %s: delays cannot be negative", name)
	}
	if _, err := s.HardwareAddr(); err != nil {
		return fmt.Errorf("profile %s: %w", name, err)
	}
	if len(s.MacTail)+6 != protocol.RegisterFrameSize {
		return fmt.Errorf("profile %s: mac_tail must be %d bytes, got %d", name, protocol.RegisterFrameSize-6, len(s.MacTail))
	}
	if s.Codes.SetParams == 0 || s.Codes.SetChecksum == 0 || s.Codes.SetData == 0 || s.Codes.StartFirmware == 0 {
		return fmt.Errorf("profile %s: command codes cannot be zero", name)
	}
	return nil
}

func (s *Stage2) validate(name string) error {
	if s.ChunkSize <= protocol.LoadAddrSize || s.ChunkSize > protocol.PacketDataSize {
		return fmt.Errorf("profile %s: chunk_size must be between %d and %d, got %d",
			name, protocol.LoadAddrSize+1, protocol.PacketDataSize, s.ChunkSize)
	}
	if s.CounterStep == 0 {
		return fmt.Errorf("profile %s: counter_step cannot be zero", name)
	}
	if s.EtherType == 0 {
		return fmt.Errorf("profile %s: ether_type cannot be zero", name)
	}
	if s.RecvInterval <= 0 || s.SessionTimeout <= 0 {
		return fmt.Errorf("profile %s: recv_interval and session_timeout must be positive", name)
	}
	return nil
}

// String returns a one-line summary of the profile.
func (p *Profile) String() string {
	verifiedStr := ""
	if p.Verified {
		verifiedStr = " (verified)"
	}
	return fmt.Sprintf("%s - stage %d over %s%s", p.Name, p.Stage, p.Transport, verifiedStr)
}

// Catalog holds a set of profiles indexed by name.
type Catalog struct {
	// Profiles in file order
	Profiles []*Profile

	index map[string]*Profile
	mu    sync.RWMutex
}

// catalogContainer is for YAML unmarshaling
type catalogContainer struct {
	Profiles []*Profile `yaml:"profiles"`
}

var (
	// globalCatalog is the embedded catalog singleton
	globalCatalog *Catalog
	// globalCatalogOnce ensures the embedded catalog is parsed once
	globalCatalogOnce sync.Once
	// globalCatalogErr stores any error from parsing
	globalCatalogErr error
)

// Load returns the embedded profile catalog.
// This function is safe to call multiple times; the catalog is parsed only once.
func Load() (*Catalog, error) {
	globalCatalogOnce.Do(func() {
		globalCatalog, globalCatalogErr = Parse(profilesYAML)
		if globalCatalogErr != nil {
			globalCatalogErr = fmt.Errorf("failed to parse embedded profiles.yaml: %w", globalCatalogErr)
		}
	})
	return globalCatalog, globalCatalogErr
}

// LoadFile reads a user-supplied profile catalog.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}

	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes and validates a profile catalog.
func Parse(data []byte) (*Catalog, error) {
	var container catalogContainer
	if err := yaml.Unmarshal(data, &container); err != nil {
		return nil, err
	}

	cat := &Catalog{
		Profiles: container.Profiles,
		index:    make(map[string]*Profile),
	}

	for _, p := range cat.Profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := cat.index[p.Name]; dup {
			return nil, fmt.Errorf("duplicate profile %q", p.Name)
		}
		cat.index[p.Name] = p
	}

	return cat, nil
}

// Get retrieves a profile by name.
func (c *Catalog) Get(name string) (*Profile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.index[name]
	return p, ok
}

// Names returns the sorted profile names.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.index))
	for name := range c.index {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForStage returns the profiles for one upload stage, in file order.
func (c *Catalog) ForStage(stage int) []*Profile {
	out := make([]*Profile, 0)
	for _, p := range c.Profiles {
		if p.Stage == stage {
			out = append(out, p)
		}
	}
	return out
}

// Count returns the number of profiles in the catalog.
func (c *Catalog) Count() int {
	return len(c.Profiles)
}

// Lookup finds name in the catalog and checks that it serves the given stage.
func (c *Catalog) Lookup(name string, stage int) (*Profile, error) {
	p, ok := c.Get(name)
	if !ok {
		return nil, &UnknownProfileError{Name: name, Available: c.Names()}
	}
	if p.Stage != stage {
		return nil, fmt.Errorf("profile %s is a stage %d profile, not stage %d", name, p.Stage, stage)
	}
	return p, nil
}

// UnknownProfileError is returned when a profile name is not in the catalog.
type UnknownProfileError struct {
	Name      string
	Available []string
}

func (e *UnknownProfileError) Error() string {
	return fmt.Sprintf("unknown profile %q (available: %v)", e.Name, e.Available)
}
