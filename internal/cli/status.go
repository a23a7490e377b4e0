package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/solal0/blob-updater/internal/config"
	"github.com/solal0/blob-updater/internal/updater"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

var statusFormat string

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "text", "Output format: text, json, yaml")
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the outcome of the last update run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := updater.LoadRunRecord(config.Dir())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		switch statusFormat {
		case "json":
			data, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling run record: %w", err)
			}
			fmt.Fprintln(out, string(data))
		case "yaml":
			data, err := yaml.Marshal(rec)
			if err != nil {
				return fmt.Errorf("marshaling run record: %w", err)
			}
			fmt.Fprint(out, string(data))
		case "text":
			printStatus(out, rec)
		default:
			return fmt.Errorf("unknown format %q (want text, json or yaml)", statusFormat)
		}
		return nil
	},
}

func printStatus(out io.Writer, rec *updater.RunRecord) {
	if rec == nil {
		fmt.Fprintln(out, "No update has run yet.")
		return
	}

	fmt.Fprintf(out, "Last run:  %s (%s)\n", rec.FinishedAt.Local().Format(time.DateTime), rec.FinishedAt.Sub(rec.StartedAt).Round(time.Second))
	fmt.Fprintf(out, "Outcome:   %s\n", rec.Outcome)
	if rec.ErrorKind != "" {
		fmt.Fprintf(out, "Error:     %s: %s\n", rec.ErrorKind, rec.Error)
	}
	if rec.Target != "" {
		fmt.Fprintf(out, "Target:    %s\n", rec.Target)
	}
	fmt.Fprintf(out, "Mode:      %s\n", rec.Mode)
	if rec.Backup != "" {
		fmt.Fprintf(out, "Backup:    %s\n", rec.Backup)
	}
	if rec.Outcome == updater.OutcomeSuccess {
		fmt.Fprintf(out, "Files:     %d\n", rec.FilesWritten)
	}
	fmt.Fprintf(out, "Updater:   %s\n", rec.UpdaterVersion)
	if rec.WrittenByNewer(buildVersion) {
		fmt.Fprintf(out, "Note: recorded by a newer updater than this one (%s).\n", buildVersion)
	}
}
