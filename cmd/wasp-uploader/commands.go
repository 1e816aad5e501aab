package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/waspflash/internal/config"
	"github.com/muurk/waspflash/internal/logging"
	"github.com/muurk/waspflash/internal/metrics"
	"github.com/muurk/waspflash/internal/profile"
	"github.com/muurk/waspflash/internal/protocol"
	"github.com/muurk/waspflash/internal/transport"
	"github.com/muurk/waspflash/internal/ui"
	"github.com/muurk/waspflash/internal/version"
	"github.com/muurk/waspflash/internal/wasp"
)

// Command flags
var (
	verbose      bool
	dryRun       bool
	assumeYes    bool
	metricsFile  string
	profilesFile string

	stage1Profile   string
	stage1Transport string
	stage1Interface string
	stage1PHY       uint16
	stage1Sysfs     string
	stage1MAC       string
	stage1Checksum  string
	stage1Timeout   time.Duration

	stage2Profile   string
	stage2Interface string
	stage2Timeout   time.Duration
)

// Simulated addresses for dry runs
var (
	dryRunHostMAC   = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	dryRunDeviceMAC = net.HardwareAddr{0xaa, 0xaa, 0xaa, 0xaa, 0xaa, 0xaa}
)

// traceLines limits the device trace printed after a verbose dry run
const traceLines = 40

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log protocol traffic at debug level (stderr)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Upload to a simulated device instead of hardware")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write upload metrics to this Prometheus textfile")
	rootCmd.PersistentFlags().StringVar(&profilesFile, "profiles-file", "", "Load hardware profiles from this YAML file instead of the built-in catalog")

	rootCmd.AddCommand(stage1Cmd)
	rootCmd.AddCommand(stage2Cmd)
}

// setup holds what every upload command needs.
type setup struct {
	settings *config.Settings
	catalog  *profile.Catalog
	logger   *zap.Logger
	metrics  *metrics.Recorder
}

func newSetup() (*setup, error) {
	// Logging is silent unless --verbose or WASP_LOG_LEVEL is set
	level := ""
	if verbose {
		level = "debug"
	}
	if err := logging.Initialize(level); err != nil {
		return nil, err
	}

	settings, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	catalog, err := loadCatalog()
	if err != nil {
		return nil, err
	}

	return &setup{
		settings: settings,
		catalog:  catalog,
		logger:   logging.GetLogger(),
		metrics:  metrics.New(metrics.WithConstLabels(map[string]string{"version": version.Version})),
	}, nil
}

func loadCatalog() (*profile.Catalog, error) {
	if profilesFile != "" {
		return profile.LoadFile(profilesFile)
	}
	return profile.Load()
}

// finish writes the metrics textfile, if one was requested.
func (s *setup) finish() {
	path := metricsFile
	if path == "" {
		path = s.settings.MetricsFile
	}
	if path == "" {
		return
	}
	if err := s.metrics.WriteTextfile(path); err != nil {
		logging.Warn("failed to write metrics", zap.String("path", path), zap.Error(err))
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// phaseReporter forwards engine progress to the runner.
func phaseReporter(onPhase ui.PhaseCallback) wasp.ProgressCallback {
	return func(p wasp.Progress) {
		note := ""
		if p.TotalChunks > 0 {
			note = fmt.Sprintf("chunk %d/%d", p.Chunk, p.TotalChunks)
		}
		onPhase(p.Phase, p.Percentage/100, note)
	}
}

// troubleshoot returns tips for an upload failure.
func troubleshoot(err error) []string {
	var tips []string

	var pe *wasp.ProtocolError
	var te *wasp.TimeoutError
	switch {
	case wasp.IsInputError(err):
		tips = append(tips,
			"Check the image path and that the file is readable",
			fmt.Sprintf("Stage-1 images are limited to %d bytes", protocol.MaxStage1ImageSize),
		)
	case errors.Is(err, transport.ErrRegisterMissing):
		tips = append(tips,
			"The register files were not found: check --sysfs-path",
			"Make sure the MDIO driver exposing the WASP registers is loaded",
		)
	case wasp.IsTransportError(err):
		tips = append(tips,
			"Run as root (MDIO ioctls and raw sockets need CAP_NET_ADMIN and CAP_NET_RAW)",
			"Check the interface name with 'ip link'",
		)
	case errors.As(err, &te) && errors.Is(err, context.Canceled):
		tips = append(tips, "The upload was interrupted")
	case errors.As(err, &te):
		tips = append(tips,
			"The device did not answer in time ("+te.Waiting+")",
			"Check that the coprocessor was reset and is waiting for an image",
		)
		if te.Stage == wasp.StageTwo {
			tips = append(tips, "Stage 2 needs stage-1 firmware running: run 'wasp-uploader stage1' first")
		}
	case errors.As(err, &pe) && pe.Kind == wasp.NotReady:
		tips = append(tips, "The device is not idle: reset the coprocessor and try again")
	case errors.As(err, &pe):
		tips = append(tips,
			"The device rejected the upload: check the image matches the profile",
			"List profiles with 'wasp-uploader profiles'",
		)
	}

	if !wasp.IsRetryable(err) {
		tips = append(tips, "Reset the coprocessor before retrying")
	}
	if !verbose {
		tips = append(tips, "Run with --verbose to log every register access and packet")
	}
	return tips
}

// stage1Cmd implements the 'stage1' command
var stage1Cmd = &cobra.Command{
	Use:   "stage1 <image>",
	Short: "Upload the first-stage image through the register window",
	Long: `Upload the first-stage image to the WASP coprocessor through its register
window and start it.

This command will:
  1. Check that the device is idle
  2. Write the load header (address, length, entry point)
  3. Write the image checksum
  4. Transfer the image 14 bytes at a time
  5. Run the start handshake
  6. Assign the coprocessor its MAC address

The transport (mdio or sysfs) and every protocol constant come from the
selected profile. Images are limited to 65535 bytes.`,
	Example: `  # MDIO bus behind eth0, PHY 7
  wasp-uploader stage1 ath_tgt_fw1.fw --interface eth0

  # sysfs register files with a precomputed checksum
  wasp-uploader stage1 ath_tgt_fw1.fw --profile 3390-sysfs

  # Override the checksum mode and assigned MAC
  wasp-uploader stage1 ath_tgt_fw1.fw --checksum subtract --mac 00:04:0e:12:34:56`,
	Args: cobra.ExactArgs(1),
	RunE: runStage1,
}

func init() {
	stage1Cmd.Flags().StringVar(&stage1Profile, "profile", "", "Hardware profile (default from config, else 3390-mdio)")
	stage1Cmd.Flags().StringVar(&stage1Transport, "transport", "", "Register transport: mdio or sysfs (default from profile)")
	stage1Cmd.Flags().StringVarP(&stage1Interface, "interface", "i", "", "Interface carrying the MDIO bus")
	stage1Cmd.Flags().Uint16Var(&stage1PHY, "phy", 0, "MDIO PHY address (default from profile)")
	stage1Cmd.Flags().StringVar(&stage1Sysfs, "sysfs-path", "", "Directory holding the register files")
	stage1Cmd.Flags().StringVar(&stage1MAC, "mac", "", "MAC address assigned to the coprocessor")
	stage1Cmd.Flags().StringVar(&stage1Checksum, "checksum", "", "Checksum mode: subtract, static or none (default from profile)")
	stage1Cmd.Flags().DurationVar(&stage1Timeout, "timeout", 0, "Bound on every register wait (default from profile)")
}

// registerTarget is an opened stage-1 transport.
type registerTarget struct {
	link   transport.RegisterLink
	label  string
	close  func() error
	device *transport.Stage1Device // dry runs only
}

func openRegisterTarget(s *setup, p *profile.Profile) (*registerTarget, error) {
	if dryRun {
		dev := transport.NewStage1Device(len(p.Stage1.StartSentinels) > 0)
		return &registerTarget{link: dev.Regs, label: "simulated device", close: func() error { return nil }, device: dev}, nil
	}

	switch name := firstNonEmpty(stage1Transport, p.Transport); name {
	case profile.TransportSysfs:
		dir := firstNonEmpty(stage1Sysfs, s.settings.Stage1.SysfsPath, p.Stage1.SysfsPath)
		link := transport.NewSysfsLink(dir)
		if err := link.CheckRegisters(); err != nil {
			return nil, &wasp.TransportError{Stage: wasp.StageOne, State: wasp.Stage1Idle.String(), Op: "check registers", Err: err}
		}
		return &registerTarget{link: link, label: "sysfs " + dir, close: func() error { return nil }}, nil

	case profile.TransportMDIO:
		iface := firstNonEmpty(stage1Interface, s.settings.Stage1.Interface)
		phy := p.Stage1.PHY
		if s.settings.Stage1.PHY != 0 {
			phy = s.settings.Stage1.PHY
		}
		if stage1PHY != 0 {
			phy = stage1PHY
		}
		link, err := transport.OpenMDIO(iface, phy)
		if err != nil {
			return nil, &wasp.TransportError{Stage: wasp.StageOne, State: wasp.Stage1Idle.String(), Op: "open mdio", Err: err}
		}
		return &registerTarget{link: link, label: fmt.Sprintf("mdio %s phy 0x%02x", iface, phy), close: link.Close}, nil

	default:
		return nil, fmt.Errorf("unknown register transport %q (want %s or %s)", name, profile.TransportMDIO, profile.TransportSysfs)
	}
}

func runStage1(cmd *cobra.Command, args []string) error {
	// Suppress usage on execution errors (we're past argument parsing)
	cmd.SilenceUsage = true

	s, err := newSetup()
	if err != nil {
		return err
	}
	defer logging.Sync()

	p, err := s.catalog.Lookup(firstNonEmpty(stage1Profile, s.settings.Stage1.Profile), 1)
	if err != nil {
		ui.PrintFailure("Invalid profile", err, []string{"List profiles with 'wasp-uploader profiles'"})
		return err
	}

	img, err := wasp.LoadImage(args[0], protocol.MaxStage1ImageSize)
	if err != nil {
		ui.PrintFailure("Stage 1 upload failed", err, troubleshoot(err))
		return err
	}

	opts := []wasp.Option{
		wasp.WithProfile(p),
		wasp.WithLogger(s.logger),
		wasp.WithMetrics(s.metrics),
	}

	checksumMode := firstNonEmpty(stage1Checksum, p.Stage1.Checksum)
	if stage1Checksum != "" {
		fn, err := protocol.ChecksumByName(stage1Checksum, p.Stage1.StaticChecksum)
		if err != nil {
			ui.PrintFailure("Invalid arguments", err, []string{"Use --checksum subtract, static or none"})
			return err
		}
		opts = append(opts, wasp.WithChecksum(fn))
	}

	macStr := firstNonEmpty(stage1MAC, s.settings.Stage1.MAC, p.Stage1.MAC)
	if stage1MAC != "" || s.settings.Stage1.MAC != "" {
		mac, err := net.ParseMAC(macStr)
		if err != nil {
			ui.PrintFailure("Invalid arguments", err, []string{"Use --mac xx:xx:xx:xx:xx:xx"})
			return fmt.Errorf("invalid MAC address: %w", err)
		}
		opts = append(opts, wasp.WithMAC(mac))
	}

	timeout := stage1Timeout
	if timeout == 0 {
		timeout = s.settings.Stage1.PollTimeout
	}
	opts = append(opts, wasp.WithPollTimeout(timeout))

	target, err := openRegisterTarget(s, p)
	if err != nil {
		ui.PrintFailure("Stage 1 upload failed", err, troubleshoot(err))
		return err
	}
	defer target.close()

	if !assumeYes && !dryRun && !ui.UploadConfirmation("Stage 1") {
		return nil // User cancelled
	}

	runner := ui.NewUploadRunner(ui.UploadRunnerConfig{
		Title:   "Stage 1 Upload",
		Command: "wasp-uploader stage1",
		Params: map[string]string{
			"Image":     img.String(),
			"Profile":   p.Name,
			"Transport": target.label,
			"Checksum":  checksumMode,
			"MAC":       macStr,
		},
		Phases: []ui.Phase{
			{Key: wasp.PhaseHandshake, Name: "Checking device is idle"},
			{Key: wasp.PhaseHeader, Name: "Writing load header"},
			{Key: wasp.PhaseChecksum, Name: "Writing checksum"},
			{Key: wasp.PhaseTransfer, Name: "Transferring image"},
			{Key: wasp.PhaseStart, Name: "Starting firmware"},
			{Key: wasp.PhaseMAC, Name: "Assigning MAC address"},
		},
		Troubleshoot: troubleshoot,
	})

	ctx, cancel := signalContext()
	defer cancel()

	_, err = runner.Run(ctx, func(ctx context.Context, onPhase ui.PhaseCallback) (map[string]string, error) {
		up := wasp.NewStage1(target.link, append(opts, wasp.WithProgress(phaseReporter(onPhase)))...)
		res, err := up.Upload(ctx, img)
		if err != nil {
			return nil, err
		}
		return map[string]string{
			"Header":   res.Header.String(),
			"Checksum": fmt.Sprintf("0x%08x", res.Checksum),
			"Chunks":   fmt.Sprintf("%d", res.Chunks),
			"MAC":      res.MAC.String(),
		}, nil
	})
	s.finish()

	if verbose && target.device != nil {
		var lines []string
		for _, w := range target.device.Regs.Writes() {
			lines = append(lines, w.String())
		}
		ui.PrintTrace(lines, traceLines)
	}

	if err != nil {
		return fmt.Errorf("stage 1 upload failed: %w", err)
	}
	return nil
}

// stage2Cmd implements the 'stage2' command
var stage2Cmd = &cobra.Command{
	Use:   "stage2 <firmware> [config]",
	Short: "Serve the second-stage firmware over raw Ethernet",
	Long: `Serve the second-stage firmware, and optionally a config image, to a
coprocessor running stage-1 firmware.

The device drives the session. It announces itself, acknowledges every
1 KiB chunk and reports when it starts the firmware. If a config image is
given, the device asks for it afterwards and it is sent the same way.

The interface is put into promiscuous mode for the duration of the upload.`,
	Example: `  # Firmware only
  wasp-uploader stage2 wasp-image.bin --interface eth0

  # Firmware and config, waiting up to 5 minutes for the device
  wasp-uploader stage2 wasp-image.bin config.bin --timeout 5m`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runStage2,
}

func init() {
	stage2Cmd.Flags().StringVar(&stage2Profile, "profile", "", "Hardware profile (default from config, else stage2-eth)")
	stage2Cmd.Flags().StringVarP(&stage2Interface, "interface", "i", "", "Interface connected to the coprocessor")
	stage2Cmd.Flags().DurationVar(&stage2Timeout, "timeout", 0, "Bound on the whole session (default from profile)")
}

// packetTarget is an opened stage-2 transport.
type packetTarget struct {
	link   transport.PacketLink
	label  string
	device *transport.Stage2Device // dry runs only
}

func openPacketTarget(ctx context.Context, s *setup, p *profile.Profile, configSize int) (*packetTarget, error) {
	if dryRun {
		host, end := transport.NewLoopbackPair(dryRunHostMAC, dryRunDeviceMAC)
		dev := &transport.Stage2Device{Link: end, ConfigSize: configSize}
		go func() {
			if err := dev.Run(ctx); err != nil && !errors.Is(err, transport.ErrDeviceDone) {
				logging.Debug("simulated device stopped", zap.Error(err))
			}
		}()
		return &packetTarget{link: host, label: "simulated device", device: dev}, nil
	}

	iface := firstNonEmpty(stage2Interface, s.settings.Stage2.Interface)
	link, err := transport.OpenEthernet(iface, p.Stage2.EtherType)
	if err != nil {
		return nil, &wasp.TransportError{Stage: wasp.StageTwo, State: wasp.Stage2Listening.String(), Op: "open " + iface, Err: err}
	}
	return &packetTarget{link: link, label: fmt.Sprintf("%s (%s)", iface, link.HardwareAddr())}, nil
}

func runStage2(cmd *cobra.Command, args []string) error {
	// Suppress usage on execution errors (we're past argument parsing)
	cmd.SilenceUsage = true

	s, err := newSetup()
	if err != nil {
		return err
	}
	defer logging.Sync()

	p, err := s.catalog.Lookup(firstNonEmpty(stage2Profile, s.settings.Stage2.Profile), 2)
	if err != nil {
		ui.PrintFailure("Invalid profile", err, []string{"List profiles with 'wasp-uploader profiles'"})
		return err
	}

	firmware, err := wasp.LoadImage(args[0], 0)
	if err != nil {
		ui.PrintFailure("Stage 2 upload failed", err, troubleshoot(err))
		return err
	}

	var cfgImage *wasp.Image
	if cfgPath := firstNonEmpty(argAt(args, 1), s.settings.Stage2.ConfigImage); cfgPath != "" {
		cfgImage, err = wasp.LoadImage(cfgPath, 0)
		if err != nil {
			ui.PrintFailure("Stage 2 upload failed", err, troubleshoot(err))
			return err
		}
	}

	timeout := stage2Timeout
	if timeout == 0 {
		timeout = s.settings.Stage2.SessionTimeout
	}
	if timeout == 0 {
		timeout = p.Stage2.SessionTimeout
	}

	ctx, cancel := signalContext()
	defer cancel()

	configSize := 0
	if cfgImage != nil {
		configSize = cfgImage.Size()
	}
	target, err := openPacketTarget(ctx, s, p, configSize)
	if err != nil {
		ui.PrintFailure("Stage 2 upload failed", err, troubleshoot(err))
		return err
	}
	defer target.link.Close()

	if !assumeYes && !dryRun && !ui.UploadConfirmation("Stage 2") {
		return nil // User cancelled
	}

	configLabel := "none"
	if cfgImage != nil {
		configLabel = cfgImage.String()
	}

	runner := ui.NewUploadRunner(ui.UploadRunnerConfig{
		Title:   "Stage 2 Upload",
		Command: "wasp-uploader stage2",
		Params: map[string]string{
			"Firmware":  firmware.String(),
			"Config":    configLabel,
			"Profile":   p.Name,
			"Interface": target.label,
			"Timeout":   timeout.String(),
		},
		Phases: []ui.Phase{
			{Key: wasp.PhaseListening, Name: "Waiting for device discovery"},
			{Key: wasp.PhaseFirmware, Name: "Sending firmware"},
			{Key: wasp.PhaseConfig, Name: "Sending config"},
			{Key: wasp.PhaseComplete, Name: "Device starting"},
		},
		Troubleshoot: troubleshoot,
	})

	if !dryRun {
		ui.PrintPleaseWait("Waiting for the coprocessor", "up to "+timeout.String())
	}

	_, err = runner.Run(ctx, func(ctx context.Context, onPhase ui.PhaseCallback) (map[string]string, error) {
		srv := wasp.NewStage2(target.link,
			wasp.WithProfile(p),
			wasp.WithLogger(s.logger),
			wasp.WithMetrics(s.metrics),
			wasp.WithSessionTimeout(timeout),
			wasp.WithProgress(phaseReporter(onPhase)),
		)
		res, err := srv.Run(ctx, firmware, cfgImage)
		if err != nil {
			return nil, err
		}
		details := map[string]string{
			"Peer":            res.Peer.String(),
			"Firmware Chunks": fmt.Sprintf("%d", res.FirmwareChunks),
		}
		if cfgImage != nil {
			details["Config Chunks"] = fmt.Sprintf("%d", res.ConfigChunks)
		}
		if res.Restarts > 0 {
			details["Restarts"] = fmt.Sprintf("%d", res.Restarts)
		}
		return details, nil
	})
	s.finish()

	if verbose && target.device != nil {
		var lines []string
		for i, c := range target.device.Counters() {
			lines = append(lines, fmt.Sprintf("packet %d counter %d", i+1, c))
		}
		ui.PrintTrace(lines, traceLines)
	}

	if err != nil {
		return fmt.Errorf("stage 2 upload failed: %w", err)
	}
	return nil
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
