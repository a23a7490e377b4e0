package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate points the config directory at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("BLOB_UPDATER_HOME", dir)
	t.Setenv("BLOB_UPDATER_CONFIG", "")
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Download.MaxAttempts != 5 {
		t.Errorf("Download.MaxAttempts = %d, want 5", cfg.Download.MaxAttempts)
	}
	if cfg.Download.RetryDelay != 5*time.Second {
		t.Errorf("Download.RetryDelay = %v, want 5s", cfg.Download.RetryDelay)
	}
	if cfg.Download.Timeout != 30*time.Second {
		t.Errorf("Download.Timeout = %v, want 30s", cfg.Download.Timeout)
	}
	if cfg.Handoff.MaxAttempts != 5 {
		t.Errorf("Handoff.MaxAttempts = %d, want 5", cfg.Handoff.MaxAttempts)
	}
	if cfg.Handoff.PollInterval != 3*time.Second {
		t.Errorf("Handoff.PollInterval = %v, want 3s", cfg.Handoff.PollInterval)
	}
	if cfg.Handoff.Path != filepath.Join(os.TempDir(), "update_info.tmp") {
		t.Errorf("Handoff.Path = %q", cfg.Handoff.Path)
	}
	if cfg.Handoff.InvalidPolicy != PolicyFatal {
		t.Errorf("Handoff.InvalidPolicy = %q, want %q", cfg.Handoff.InvalidPolicy, PolicyFatal)
	}
	if !cfg.Handoff.Consume {
		t.Error("Handoff.Consume should default to true")
	}
	if cfg.Install.Mode != ModeFlat {
		t.Errorf("Install.Mode = %q, want %q", cfg.Install.Mode, ModeFlat)
	}
	if cfg.Log.File != filepath.Join(dir, "logs", "updater.log") {
		t.Errorf("Log.File = %q", cfg.Log.File)
	}
	if !strings.HasPrefix(cfg.PackageURL, "https://") {
		t.Errorf("PackageURL = %q, want https URL", cfg.PackageURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := isolate(t)

	content := `package_url: https://example.com/tool.zip
download:
  max_attempts: 2
  retry_delay: 250ms
install:
  mode: swap
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.PackageURL != "https://example.com/tool.zip" {
		t.Errorf("PackageURL = %q", cfg.PackageURL)
	}
	if cfg.Download.MaxAttempts != 2 {
		t.Errorf("Download.MaxAttempts = %d, want 2", cfg.Download.MaxAttempts)
	}
	if cfg.Download.RetryDelay != 250*time.Millisecond {
		t.Errorf("Download.RetryDelay = %v, want 250ms", cfg.Download.RetryDelay)
	}
	if cfg.Install.Mode != ModeSwap {
		t.Errorf("Install.Mode = %q, want swap", cfg.Install.Mode)
	}
	// Untouched keys keep their defaults.
	if cfg.Download.Timeout != 30*time.Second {
		t.Errorf("Download.Timeout = %v, want 30s", cfg.Download.Timeout)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("download:\n  max_attempts: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BLOB_UPDATER_DOWNLOAD_MAX_ATTEMPTS", "7")
	t.Setenv("BLOB_UPDATER_HANDOFF_POLL_INTERVAL", "1s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Download.MaxAttempts != 7 {
		t.Errorf("Download.MaxAttempts = %d, want 7", cfg.Download.MaxAttempts)
	}
	if cfg.Handoff.PollInterval != time.Second {
		t.Errorf("Handoff.PollInterval = %v, want 1s", cfg.Handoff.PollInterval)
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoad_SchemaViolation(t *testing.T) {
	isolate(t)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("install:\n  mode: sideways\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected schema error")
	}
	if _, ok := err.(*SchemaError); !ok {
		t.Fatalf("error type = %T, want *SchemaError", err)
	}
	if !strings.Contains(err.Error(), "/install/mode") {
		t.Errorf("error should name the offending key, got: %v", err)
	}
}

func TestSetAndGet(t *testing.T) {
	dir := isolate(t)

	if err := Set("", "download.max_attempts", "3"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := Set("", "handoff.consume", "false"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := Set("", "download.retry_delay", "2s"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	got, err := Get("", "download.max_attempts")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "3" {
		t.Errorf("download.max_attempts = %q, want 3", got)
	}

	got, err = Get("", "download.retry_delay")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "2s" {
		t.Errorf("download.retry_delay = %q, want 2s", got)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load after Set failed: %v", err)
	}
	if cfg.Handoff.Consume {
		t.Error("Handoff.Consume should be false after Set")
	}
}

func TestGet_Default(t *testing.T) {
	isolate(t)

	got, err := Get("", "handoff.poll_interval")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "3s" {
		t.Errorf("handoff.poll_interval = %q, want 3s", got)
	}
}

func TestSet_Rejects(t *testing.T) {
	isolate(t)

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown key", "download.speed", "fast"},
		{"non-integer", "download.max_attempts", "many"},
		{"non-bool", "handoff.consume", "maybe"},
		{"bad duration", "handoff.poll_interval", "soon"},
		{"attempts below minimum", "download.max_attempts", "0"},
		{"negative keep", "install.keep_backups", "-2"},
		{"unknown mode", "install.mode", "merge"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Set("", tt.key, tt.value); err == nil {
				t.Errorf("Set(%q, %q) should fail", tt.key, tt.value)
			}
		})
	}

	// Nothing rejected may reach the file.
	if _, err := Load(""); err != nil {
		t.Errorf("Load after rejected Sets failed: %v", err)
	}
}

func TestSet_ZeroDuration(t *testing.T) {
	isolate(t)

	if err := Set("", "install.wait_for_exit", "0"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load after Set failed: %v", err)
	}
	if cfg.Install.WaitForExit != 0 {
		t.Errorf("Install.WaitForExit = %s, want 0", cfg.Install.WaitForExit)
	}
}

func TestSettings(t *testing.T) {
	cfg := Default()
	s := cfg.Settings()

	download, ok := s["download"].(map[string]any)
	if !ok {
		t.Fatalf("download section missing: %#v", s)
	}
	if download["retry_delay"] != "5s" {
		t.Errorf("retry_delay = %v, want 5s", download["retry_delay"])
	}
	if s["interactive"] != InteractiveAuto {
		t.Errorf("interactive = %v, want auto", s["interactive"])
	}
}
