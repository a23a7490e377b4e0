package main

import (
	"os"

	"github.com/solal0/blob-updater/internal/cli"
	"github.com/solal0/blob-updater/internal/updater"
)

// version, commit, and date are set via ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := cli.Execute(version, commit, date); err != nil {
		os.Exit(updater.ExitCode(err))
	}
}
