package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/solal0/blob-updater/internal/updater"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var pruneKeep int

func init() {
	backupsPruneCmd.Flags().IntVar(&pruneKeep, "keep", 1, "Number of newest backups to keep")
	backupsCmd.AddCommand(backupsListCmd)
	backupsCmd.AddCommand(backupsPruneCmd)
	rootCmd.AddCommand(backupsCmd)
}

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "Manage install folders set aside by swap updates",
	Long: `A swap update renames the previous install to <install>_old_<timestamp>
before extracting the new package. These commands list and remove them.`,
}

var backupsListCmd = &cobra.Command{
	Use:   "list <install-dir>",
	Short: "List backups of an install, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		backups, err := updater.ListBackups(afero.NewOsFs(), target)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(backups) == 0 {
			fmt.Fprintf(out, "No backups of %s\n", target)
			return nil
		}
		for _, b := range backups {
			fmt.Fprintf(out, "%s  %s\n", b.Created.Local().Format(time.DateTime), b.Path)
		}
		return nil
	},
}

var backupsPruneCmd = &cobra.Command{
	Use:   "prune <install-dir>",
	Short: "Delete all but the newest backups",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		result, err := updater.PruneBackups(afero.NewOsFs(), target, pruneKeep)
		if result != nil {
			for _, b := range result.Removed {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", b.Path)
			}
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Kept %d backup(s), removed %d\n", len(result.Kept), len(result.Removed))
		return nil
	},
}
