package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/solal0/blob-updater/internal/config"
	"github.com/solal0/blob-updater/internal/updater"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the updater's configuration and environment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if failed := runDoctor(cmd.OutOrStdout(), afero.NewOsFs()); failed > 0 {
			return &reportedError{err: fmt.Errorf("%d check(s) failed", failed)}
		}
		return nil
	},
}

type checkResult struct {
	name   string
	ok     bool
	detail string
}

// runDoctor prints one line per check and returns the number that failed.
func runDoctor(out io.Writer, fsys afero.Fs) int {
	var results []checkResult

	cfg, err := loadConfig()
	if err != nil {
		results = append(results, checkResult{"configuration", false, err.Error()})
		cfg = config.Default()
	} else {
		results = append(results, checkResult{"configuration", true, "valid"})
	}

	results = append(results,
		checkWritableDir(fsys, "handoff directory", filepath.Dir(cfg.Handoff.Path)),
		checkHandoffFile(fsys, cfg.Handoff.Path),
	)

	switch strings.ToLower(cfg.Log.File) {
	case config.LogFileOff, config.LogFileStdout, "":
		results = append(results, checkResult{"log directory", true, "file logging disabled"})
	default:
		results = append(results, checkWritableDir(fsys, "log directory", filepath.Dir(cfg.Log.File)))
	}

	failed := 0
	for _, r := range results {
		mark := "[ok]"
		if !r.ok {
			mark = "[!!]"
			failed++
		}
		fmt.Fprintf(out, "%s %s: %s\n", mark, r.name, r.detail)
	}
	return failed
}

// checkWritableDir creates dir if needed and proves a file can be written in it.
func checkWritableDir(fsys afero.Fs, name, dir string) checkResult {
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return checkResult{name, false, err.Error()}
	}
	f, err := afero.TempFile(fsys, dir, ".doctor-*")
	if err != nil {
		return checkResult{name, false, fmt.Sprintf("%s is not writable: %v", dir, err)}
	}
	f.Close()
	_ = fsys.Remove(f.Name())
	return checkResult{name, true, dir}
}

// checkHandoffFile reports a leftover handoff file. A missing file is normal
// between runs; one naming a missing folder would fail the next run.
func checkHandoffFile(fsys afero.Fs, path string) checkResult {
	const name = "handoff file"
	target, err := updater.PeekHandoff(fsys, path)
	if errors.Is(err, os.ErrNotExist) {
		return checkResult{name, true, "none pending"}
	}
	if err != nil {
		return checkResult{name, false, err.Error()}
	}
	if target == "" {
		return checkResult{name, true, "pending but empty"}
	}
	if ok, _ := afero.DirExists(fsys, target); !ok {
		return checkResult{name, false, fmt.Sprintf("names a missing folder: %s", target)}
	}
	return checkResult{name, true, "pending for " + target}
}
