package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muurk/waspflash/internal/config"
	"github.com/muurk/waspflash/internal/profile"
	"github.com/muurk/waspflash/internal/protocol"
	"github.com/muurk/waspflash/internal/ui"
	"github.com/muurk/waspflash/internal/wasp"
)

var (
	checksumProfile string
	checksumMode    string

	profilesStage int
)

func init() {
	rootCmd.AddCommand(checksumCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(configCmd)

	checksumCmd.Flags().StringVar(&checksumProfile, "profile", config.DefaultStage1Profile, "Stage-1 profile supplying the load address and checksum mode")
	checksumCmd.Flags().StringVar(&checksumMode, "mode", "", "Checksum mode: subtract, static or none (default from profile)")

	profilesCmd.Flags().IntVar(&profilesStage, "stage", 0, "Only list profiles for this stage (1 or 2)")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
}

// checksumCmd implements the 'checksum' command
var checksumCmd = &cobra.Command{
	Use:   "checksum <image>",
	Short: "Compute the stage-1 header and checksum of an image",
	Long: `Compute what a stage-1 upload of the image would send: the load header,
the checksum and the number of 14-byte data chunks. Nothing is written to
the device.`,
	Example: `  wasp-uploader checksum ath_tgt_fw1.fw
  wasp-uploader checksum ath_tgt_fw1.fw --mode static`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		catalog, err := loadCatalog()
		if err != nil {
			return err
		}
		p, err := catalog.Lookup(checksumProfile, 1)
		if err != nil {
			return err
		}

		img, err := wasp.LoadImage(args[0], protocol.MaxStage1ImageSize)
		if err != nil {
			ui.PrintFailure("Checksum failed", err, troubleshoot(err))
			return err
		}

		mode := firstNonEmpty(checksumMode, p.Stage1.Checksum)
		fn, err := protocol.ChecksumByName(mode, p.Stage1.StaticChecksum)
		if err != nil {
			return err
		}

		header := protocol.Header{
			StartAddr: p.Stage1.LoadAddr,
			Length:    uint32(img.Size()),
			ExecAddr:  p.Stage1.ExecAddr,
		}
		ui.PrintSuccess("Stage 1 Image", map[string]string{
			"Image":    img.String(),
			"Profile":  p.Name,
			"Header":   header.String(),
			"Mode":     mode,
			"Checksum": fmt.Sprintf("0x%08x", fn(img.Bytes())),
			"Chunks":   fmt.Sprintf("%d", len(protocol.SplitRegisterFrames(img.Bytes()))),
		})
		return nil
	},
}

// profilesCmd implements the 'profiles' command
var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List hardware profiles",
	Long: `List the hardware profiles in the catalog. Profiles hold the transport,
addresses, codes and timing of each WASP revision.

Use --profiles-file to list a custom catalog.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		catalog, err := loadCatalog()
		if err != nil {
			return err
		}

		var profiles []*profile.Profile
		if profilesStage != 0 {
			profiles = catalog.ForStage(profilesStage)
		} else {
			for _, name := range catalog.Names() {
				p, _ := catalog.Get(name)
				profiles = append(profiles, p)
			}
		}

		rows := make([][]string, 0, len(profiles))
		for _, p := range profiles {
			verified := "no"
			if p.Verified {
				verified = "yes"
			}
			rows = append(rows, []string{p.Name, fmt.Sprintf("%d", p.Stage), p.Transport, verified, p.Description})
		}

		return ui.RenderOnce(ui.RenderTable([]string{"Name", "Stage", "Transport", "Verified", "Description"}, rows))
	},
}

// configCmd groups the configuration file commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
	Long: `Manage the configuration file holding default interfaces, profiles, paths
and timeouts. Command-line flags always override it.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		path, err := config.CreateDefaultConfig()
		if err != nil {
			return err
		}
		ui.PrintSuccess("Configuration Created", map[string]string{"Path": path})
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		settings, err := config.Load()
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(settings)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}
