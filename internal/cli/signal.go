package cli

import (
	"fmt"
	"path/filepath"

	"github.com/solal0/blob-updater/internal/updater"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(signalCmd)
}

var signalCmd = &cobra.Command{
	Use:   "signal <install-dir>",
	Short: "Publish an install folder to a waiting updater",
	Long: `Write the handoff file a waiting updater polls for. This is what the tool
does before it launches the updater; use it to drive the updater by hand or
from scripts. The file is written atomically.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		target, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("resolving %s: %w", args[0], err)
		}
		if err := updater.WriteHandoff(afero.NewOsFs(), cfg.Handoff.Path, target); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s to %s\n", target, cfg.Handoff.Path)
		return nil
	},
}
