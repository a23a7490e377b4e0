// Package cli defines the Cobra command tree for the blob-updater CLI. Each
// file registers one top-level command with the root command. Commands
// delegate to internal packages for the update itself and only handle flag
// parsing, console output and the operator acknowledgment.
package cli
