package config

import "time"

// Settings represents the entire user configuration file.
// Every value is a default that command-line flags override.
type Settings struct {
	Version int          `yaml:"version"`
	Stage1  *Stage1Prefs `yaml:"stage1,omitempty"`
	Stage2  *Stage2Prefs `yaml:"stage2,omitempty"`
	// MetricsFile receives a Prometheus textfile after every upload
	MetricsFile string `yaml:"metrics_file,omitempty"`
}

// Stage1Prefs holds defaults for register uploads.
type Stage1Prefs struct {
	Profile   string `yaml:"profile"`              // Catalog profile (e.g., "3390-mdio")
	Interface string `yaml:"interface,omitempty"`  // Interface carrying the MDIO bus
	PHY       uint16 `yaml:"phy,omitempty"`        // PHY address, 0 means the profile's
	SysfsPath string `yaml:"sysfs_path,omitempty"` // Register directory for the sysfs transport
	MAC       string `yaml:"mac,omitempty"`        // Address assigned after start, empty means the profile's

	PollTimeout time.Duration `yaml:"poll_timeout,omitempty"`
}

// Stage2Prefs holds defaults for packet uploads.
type Stage2Prefs struct {
	Profile   string `yaml:"profile"`
	Interface string `yaml:"interface,omitempty"`
	// ConfigImage is sent when the device asks for one and no image is given
	ConfigImage string `yaml:"config_image,omitempty"`

	SessionTimeout time.Duration `yaml:"session_timeout,omitempty"`
}

// Default profile names.
const (
	DefaultStage1Profile = "3390-mdio"
	DefaultStage2Profile = "stage2-eth"
	DefaultInterface     = "eth0"
)

// NewSettings creates Settings with default values.
func NewSettings() *Settings {
	return &Settings{
		Version: 1,
		Stage1:  defaultStage1(),
		Stage2:  defaultStage2(),
	}
}

func defaultStage1() *Stage1Prefs {
	return &Stage1Prefs{
		Profile:   DefaultStage1Profile,
		Interface: DefaultInterface,
	}
}

func defaultStage2() *Stage2Prefs {
	return &Stage2Prefs{
		Profile:   DefaultStage2Profile,
		Interface: DefaultInterface,
	}
}

// fill restores sections and values missing from a loaded file.
func (s *Settings) fill() {
	if s.Stage1 == nil {
		s.Stage1 = defaultStage1()
	}
	if s.Stage2 == nil {
		s.Stage2 = defaultStage2()
	}
	if s.Stage1.Profile == "" {
		s.Stage1.Profile = DefaultStage1Profile
	}
	if s.Stage2.Profile == "" {
		s.Stage2.Profile = DefaultStage2Profile
	}
	if s.Stage1.Interface == "" {
		s.Stage1.Interface = DefaultInterface
	}
	if s.Stage2.Interface == "" {
		s.Stage2.Interface = DefaultInterface
	}
}
