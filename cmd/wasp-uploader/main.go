// Wasp-uploader loads firmware into the WASP coprocessor of Lantiq/Intel
// based routers.
//
// The coprocessor boots in two stages:
//
//   - stage1: a small image is written through the coprocessor's register
//     window, over the MDIO bus or the kernel's per-register sysfs files
//   - stage2: once stage-1 firmware runs, the main firmware (and optionally
//     a config image) is streamed to it as raw Ethernet frames
//
// Prerequisites:
//
//   - root, or CAP_NET_ADMIN and CAP_NET_RAW
//   - the coprocessor held in reset until the upload starts
//
// See 'wasp-uploader --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/waspflash/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wasp-uploader",
	Short: "WASP coprocessor firmware uploader",
	Long: `Upload firmware to the WASP coprocessor in two stages.

Stage 1 writes a small image through the coprocessor's register window
(MDIO or sysfs) and starts it. Stage 2 serves the main firmware, and an
optional config image, to the running stage-1 firmware over raw Ethernet.

Hardware revisions are described by profiles; list them with
'wasp-uploader profiles'. Defaults for interfaces, paths and timeouts can
be stored with 'wasp-uploader config init'.

Use --dry-run to rehearse an upload against a simulated device.`,
	Version: version.Version,
	Example: `  # Stage 1 over MDIO on eth0
  wasp-uploader stage1 ath_tgt_fw1.fw --interface eth0

  # Stage 1 through sysfs register files
  wasp-uploader stage1 ath_tgt_fw1.fw --profile 3390-sysfs

  # Stage 2 with a config image
  wasp-uploader stage2 wasp-image.bin config.bin --interface eth0

  # Rehearse both stages
  wasp-uploader stage1 ath_tgt_fw1.fw --dry-run
  wasp-uploader stage2 wasp-image.bin --dry-run`,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wasp-uploader %s\n", version.Full())
		fmt.Printf("  built with %s\n", version.Platform())
	},
}
