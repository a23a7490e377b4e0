package cli

import (
	"time"

	"github.com/solal0/blob-updater/internal/config"
	"github.com/solal0/blob-updater/internal/console"
	"github.com/solal0/blob-updater/internal/logging"
	"github.com/solal0/blob-updater/internal/updater"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	promptFailure = "Press Enter to close..."
	promptSuccess = "Press Enter to exit updater..."
)

var noWait bool

func init() {
	runCmd.Flags().BoolVar(&noWait, "no-wait", false, "Exit without waiting for Enter")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Wait for the install path, download the package and install it",
	Long: `Wait for the tool to write its install folder to the handoff file, download
the latest package and apply it.

In interactive mode the updater waits for Enter before exiting so the result
stays on screen. Use --no-wait or "interactive: never" when running unattended.`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

// isInteractive decides whether the acknowledgment prompt blocks.
func isInteractive(setting string, noWait, terminal bool) bool {
	if noWait {
		return false
	}
	switch setting {
	case config.InteractiveAlways:
		return true
	case config.InteractiveNever:
		return false
	default:
		return terminal
	}
}

func runUpdate(cmd *cobra.Command, args []string) error {
	started := time.Now()

	cfg, err := loadConfig()
	if err != nil {
		con := console.NewWithIO(cmd.InOrStdin(), cmd.OutOrStdout(), isInteractive(config.InteractiveAuto, noWait, console.IsTerminal()))
		con.Fail("%v", err)
		con.Acknowledge(cmd.Context(), promptFailure)
		return &reportedError{err: err}
	}

	con := console.NewWithIO(cmd.InOrStdin(), cmd.OutOrStdout(), isInteractive(cfg.Interactive, noWait, console.IsTerminal()))

	logger, closeLog, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		con.Warn("Run log disabled: %v", err)
		logger, closeLog = zap.NewNop(), func() {}
	}
	defer closeLog()

	con.Info("Updater started...")

	u := updater.New(cfg,
		updater.WithOutput(con.Out()),
		updater.WithLogger(logger),
		updater.WithVersion(buildVersion),
	)
	res, runErr := u.Run(cmd.Context())

	rec := updater.NewRunRecord(buildVersion, cfg.Install.Mode, started, time.Now(), res, runErr)
	if err := updater.SaveRunRecord(config.Dir(), rec); err != nil {
		logger.Warn("saving run record failed", zap.Error(err))
	}

	if runErr != nil {
		con.Fail("%s", updater.Diagnostic(runErr))
		con.Acknowledge(cmd.Context(), promptFailure)
		return &reportedError{err: runErr}
	}

	con.Success("Tool has been updated successfully!")
	con.Info("You can now run the tool at: %s", res.Install.Path)
	con.Acknowledge(cmd.Context(), promptSuccess)
	return nil
}
