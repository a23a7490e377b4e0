// Package branding provides compile-time identity values for the updater.
//
// branding.yaml is embedded with //go:embed; forks point the updater at a
// different tool by editing that file and rebuilding.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName         string `yaml:"cli_name"`
	DisplayName     string `yaml:"display_name"`
	Description     string `yaml:"description"`
	ToolName        string `yaml:"tool_name"`
	HomeDir         string `yaml:"home_dir"`
	EnvPrefix       string `yaml:"env_prefix"`
	PackageURL      string `yaml:"package_url"`
	HandoffFileName string `yaml:"handoff_file_name"`
}

func load() {
	once.Do(func() {
		// Hard defaults in case the embedded file is missing or empty.
		defaults = brand{
			CLIName:         "blob-updater",
			DisplayName:     "Blob Updater",
			Description:     "Updates an installed copy of Skira's Blob Compiler in place",
			ToolName:        "Skira's Blob Compiler",
			HomeDir:         ".blob-updater",
			EnvPrefix:       "BLOB_UPDATER",
			PackageURL:      "https://solal0.github.io/web/files/Skira's Blob Compiler.zip",
			HandoffFileName: "update_info.tmp",
		}
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "blob-updater").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name.
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// ToolName returns the name of the tool this updater maintains.
func ToolName() string { load(); return defaults.ToolName }

// HomeDir returns the dot-directory name under $HOME (e.g., ".blob-updater").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "BLOB_UPDATER").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// PackageURL returns the default download location of the tool package.
func PackageURL() string { load(); return defaults.PackageURL }

// HandoffFileName returns the file name the tool writes its install path to.
func HandoffFileName() string { load(); return defaults.HandoffFileName }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("CONFIG") → "BLOB_UPDATER_CONFIG".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
