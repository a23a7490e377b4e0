package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/solal0/blob-updater/internal/branding"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Replacement disciplines.
const (
	ModeFlat = "flat"
	ModeSwap = "swap"
)

// Policies for a handoff file whose content is not an existing directory.
const (
	PolicyFatal = "fatal"
	PolicyRetry = "retry"
)

// Interactivity settings.
const (
	InteractiveAuto   = "auto"
	InteractiveAlways = "always"
	InteractiveNever  = "never"
)

// Special values for log.file.
const (
	LogFileStdout = "stdout"
	LogFileOff    = "off"
)

// Config is the value object handed to the updater components.
type Config struct {
	PackageURL  string         `mapstructure:"package_url"`
	Download    DownloadConfig `mapstructure:"download"`
	Handoff     HandoffConfig  `mapstructure:"handoff"`
	Install     InstallConfig  `mapstructure:"install"`
	Log         LogConfig      `mapstructure:"log"`
	Interactive string         `mapstructure:"interactive"`
}

// DownloadConfig controls the package fetch.
type DownloadConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// HandoffConfig controls how the install path is received from the tool.
type HandoffConfig struct {
	Path          string        `mapstructure:"path"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	InvalidPolicy string        `mapstructure:"invalid_policy"`
	Consume       bool          `mapstructure:"consume"`
}

// InstallConfig controls how the package is applied to the install.
type InstallConfig struct {
	Mode        string        `mapstructure:"mode"`
	WaitForExit time.Duration `mapstructure:"wait_for_exit"`
	KeepBackups int           `mapstructure:"keep_backups"`
}

// LogConfig controls the run log.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindBool
	kindDuration
)

// keys lists every recognised setting and its type.
var keys = map[string]keyKind{
	"package_url":            kindString,
	"download.max_attempts":  kindInt,
	"download.retry_delay":   kindDuration,
	"download.timeout":       kindDuration,
	"handoff.path":           kindString,
	"handoff.max_attempts":   kindInt,
	"handoff.poll_interval":  kindDuration,
	"handoff.invalid_policy": kindString,
	"handoff.consume":        kindBool,
	"install.mode":           kindString,
	"install.wait_for_exit":  kindDuration,
	"install.keep_backups":   kindInt,
	"log.level":              kindString,
	"log.file":               kindString,
	"interactive":            kindString,
}

// Dir returns the path to the config directory (~/.blob-updater/).
// BLOB_UPDATER_HOME overrides it.
func Dir() string {
	if v := os.Getenv(branding.EnvVar("HOME")); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the default config file.
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// DefaultHandoffPath returns the handoff file location in the shared temp dir.
func DefaultHandoffPath() string {
	return filepath.Join(os.TempDir(), branding.HandoffFileName())
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		PackageURL: branding.PackageURL(),
		Download: DownloadConfig{
			MaxAttempts: 5,
			RetryDelay:  5 * time.Second,
			Timeout:     30 * time.Second,
		},
		Handoff: HandoffConfig{
			Path:          DefaultHandoffPath(),
			MaxAttempts:   5,
			PollInterval:  3 * time.Second,
			InvalidPolicy: PolicyFatal,
			Consume:       true,
		},
		Install: InstallConfig{
			Mode:        ModeFlat,
			WaitForExit: 10 * time.Second,
			KeepBackups: 0,
		},
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(Dir(), "logs", "updater.log"),
		},
		Interactive: InteractiveAuto,
	}
}

// resolveFile picks the config file: explicit flag, then BLOB_UPDATER_CONFIG,
// then the default location. explicit reports whether the caller asked for it.
func resolveFile(cfgFile string) (path string, explicit bool) {
	if cfgFile != "" {
		return cfgFile, true
	}
	if v := os.Getenv(branding.EnvVar("CONFIG")); v != "" {
		return v, true
	}
	return FilePath(), false
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(fileType)
	v.SetEnvPrefix(branding.EnvPrefix())
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("package_url", d.PackageURL)
	v.SetDefault("download.max_attempts", d.Download.MaxAttempts)
	v.SetDefault("download.retry_delay", d.Download.RetryDelay)
	v.SetDefault("download.timeout", d.Download.Timeout)
	v.SetDefault("handoff.path", d.Handoff.Path)
	v.SetDefault("handoff.max_attempts", d.Handoff.MaxAttempts)
	v.SetDefault("handoff.poll_interval", d.Handoff.PollInterval)
	v.SetDefault("handoff.invalid_policy", d.Handoff.InvalidPolicy)
	v.SetDefault("handoff.consume", d.Handoff.Consume)
	v.SetDefault("install.mode", d.Install.Mode)
	v.SetDefault("install.wait_for_exit", d.Install.WaitForExit)
	v.SetDefault("install.keep_backups", d.Install.KeepBackups)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("interactive", d.Interactive)
	return v
}

// load reads the config file (if any) into a fully defaulted viper instance.
func load(cfgFile string) (*viper.Viper, error) {
	path, explicit := resolveFile(cfgFile)
	v := newViper(path)

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return v, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	result, err := ValidateFile(path)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, &SchemaError{Path: path, Issues: result.Issues}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return v, nil
}

// Load resolves the effective configuration. A missing default config file is
// not an error; a missing file named by --config or BLOB_UPDATER_CONFIG is.
func Load(cfgFile string) (*Config, error) {
	v, err := load(cfgFile)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// Get returns the effective value of key as a string.
func Get(cfgFile, key string) (string, error) {
	kind, ok := keys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key %q", key)
	}
	v, err := load(cfgFile)
	if err != nil {
		return "", err
	}
	if kind == kindDuration {
		return v.GetDuration(key).String(), nil
	}
	return v.GetString(key), nil
}

// Set writes a key-value pair to the config file, creating it if needed.
// The value is converted to the key's type so the file stays schema-valid.
func Set(cfgFile, key, value string) error {
	typed, err := coerce(key, value)
	if err != nil {
		return err
	}

	path, explicit := resolveFile(cfgFile)
	if !explicit {
		if err := EnsureDir(); err != nil {
			return err
		}
	}

	// Only the file's own keys are written back, never the defaults.
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(fileType)
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	v.Set(key, typed)

	// Refuse to write a file that Load would reject.
	data, err := yaml.Marshal(v.AllSettings())
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	result, err := ValidateBytes(data)
	if err != nil {
		return err
	}
	if !result.Valid {
		return &SchemaError{Path: path, Issues: result.Issues}
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func coerce(key, value string) (any, error) {
	kind, ok := keys[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key %q", key)
	}
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be an integer: %w", key, err)
		}
		return n, nil
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false: %w", key, err)
		}
		return b, nil
	case kindDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return nil, fmt.Errorf("%s must be a duration such as 5s: %w", key, err)
		}
		return value, nil
	default:
		return value, nil
	}
}

// Settings returns the configuration as a nested map with durations rendered
// as strings, suitable for YAML output.
func (c *Config) Settings() map[string]any {
	return map[string]any{
		"package_url": c.PackageURL,
		"download": map[string]any{
			"max_attempts": c.Download.MaxAttempts,
			"retry_delay":  c.Download.RetryDelay.String(),
			"timeout":      c.Download.Timeout.String(),
		},
		"handoff": map[string]any{
			"path":           c.Handoff.Path,
			"max_attempts":   c.Handoff.MaxAttempts,
			"poll_interval":  c.Handoff.PollInterval.String(),
			"invalid_policy": c.Handoff.InvalidPolicy,
			"consume":        c.Handoff.Consume,
		},
		"install": map[string]any{
			"mode":          c.Install.Mode,
			"wait_for_exit": c.Install.WaitForExit.String(),
			"keep_backups":  c.Install.KeepBackups,
		},
		"log": map[string]any{
			"level": c.Log.Level,
			"file":  c.Log.File,
		},
		"interactive": c.Interactive,
	}
}
