package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/muurk/waspflash/internal/config"
	"github.com/muurk/waspflash/internal/preflight"
	"github.com/muurk/waspflash/internal/profile"
	"github.com/muurk/waspflash/internal/transport"
	"github.com/muurk/waspflash/internal/ui"
)

var (
	verifyStage     int
	verifyProfile   string
	verifyInterface string
	verifySysfs     string
	verifyProbe     bool
)

func init() {
	rootCmd.AddCommand(verifySetupCmd)

	verifySetupCmd.Flags().IntVar(&verifyStage, "stage", 1, "Upload stage to check for (1 or 2)")
	verifySetupCmd.Flags().StringVar(&verifyProfile, "profile", "", "Hardware profile (default from config)")
	verifySetupCmd.Flags().StringVarP(&verifyInterface, "interface", "i", "", "Interface to check")
	verifySetupCmd.Flags().StringVar(&verifySysfs, "sysfs-path", "", "Register directory to check (sysfs profiles)")
	verifySetupCmd.Flags().BoolVar(&verifyProbe, "probe", false, "Read STATUS and ZERO to check the device is idle (stage 1)")
}

// verifySetupCmd implements the 'verify-setup' command
var verifySetupCmd = &cobra.Command{
	Use:   "verify-setup",
	Short: "Check the host is ready for an upload",
	Long: `Check the prerequisites of an upload without writing to the device:

  - root, or CAP_NET_ADMIN and CAP_NET_RAW
  - the interface exists and is up (mdio and stage 2)
  - the register files exist (sysfs)
  - with --probe, the device reports idle`,
	Example: `  # Stage 1 over MDIO, including a status read
  wasp-uploader verify-setup --interface eth0 --probe

  # Stage 2
  wasp-uploader verify-setup --stage 2 --interface eth0`,
	Args: cobra.NoArgs,
	RunE: runVerifySetup,
}

func runVerifySetup(cmd *cobra.Command, args []string) error {
	// Suppress usage on execution errors (we're past argument parsing)
	cmd.SilenceUsage = true

	settings, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	catalog, err := loadCatalog()
	if err != nil {
		return err
	}

	name, iface := settings.Stage1.Profile, settings.Stage1.Interface
	if verifyStage == 2 {
		name, iface = settings.Stage2.Profile, settings.Stage2.Interface
	}
	p, err := catalog.Lookup(firstNonEmpty(verifyProfile, name), verifyStage)
	if err != nil {
		ui.PrintFailure("Invalid profile", err, []string{"List profiles with 'wasp-uploader profiles'"})
		return err
	}
	iface = firstNonEmpty(verifyInterface, iface)

	params := map[string]string{
		"Stage":     fmt.Sprintf("%d", verifyStage),
		"Profile":   p.Name,
		"Transport": p.Transport,
	}

	var result preflight.Result
	result.Add(preflight.CheckPrivileges())

	switch p.Transport {
	case profile.TransportSysfs:
		dir := firstNonEmpty(verifySysfs, settings.Stage1.SysfsPath, p.Stage1.SysfsPath)
		params["Registers"] = dir
		result.Add(preflight.CheckRegisterFiles(dir))
		if verifyProbe {
			result.Add(preflight.ProbeStatus(transport.NewSysfsLink(dir), p.Stage1.Codes.OK))
		}

	case profile.TransportMDIO:
		params["Interface"] = iface
		result.Add(preflight.CheckInterface(iface))
		if verifyProbe {
			phy := p.Stage1.PHY
			if settings.Stage1.PHY != 0 {
				phy = settings.Stage1.PHY
			}
			result.Add(probeMDIO(iface, phy, p.Stage1.Codes.OK))
		}

	default:
		params["Interface"] = iface
		result.Add(preflight.CheckInterface(iface))
	}

	ui.PrintCommandHeader("Setup Verification", "wasp-uploader verify-setup", params)

	rows := make([][]string, 0, len(result.Checks))
	for _, c := range result.Checks {
		rows = append(rows, []string{c.Name, c.Status(), c.Detail})
	}
	if err := ui.RenderOnce(ui.RenderTable([]string{"Check", "Status", "Detail"}, rows)); err != nil {
		return err
	}

	if !result.Ready() {
		err := result.Err()
		ui.PrintFailure("Setup verification failed", err, []string{
			"Run as root, or grant CAP_NET_ADMIN and CAP_NET_RAW",
			"Check the interface name with 'ip link'",
			"For sysfs profiles, make sure the register driver is loaded",
		})
		return err
	}

	ui.PrintSuccess("Setup verification complete", map[string]string{
		"Status":    "Ready for upload",
		"Next step": fmt.Sprintf("Run 'wasp-uploader stage%d'", verifyStage),
	})
	return nil
}

func probeMDIO(iface string, phy, ok uint16) preflight.Check {
	link, err := transport.OpenMDIO(iface, phy)
	if err != nil {
		return preflight.Check{Name: "Device status", Err: err, Detail: err.Error()}
	}
	defer link.Close()
	return preflight.ProbeStatus(link, ok)
}
