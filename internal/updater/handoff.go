package updater

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/solal0/blob-updater/internal/config"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const consumedSuffix = ".consumed"

// HandoffReader waits for the tool to publish its install path.
type HandoffReader struct {
	cfg config.HandoffConfig
	*deps
}

// NewHandoffReader creates a reader polling cfg.Path.
func NewHandoffReader(cfg config.HandoffConfig, opts ...Option) *HandoffReader {
	d := newDeps(opts)
	return &HandoffReader{cfg: cfg, deps: d.named("handoff")}
}

// AwaitTarget polls the handoff file until it names an existing directory.
// A missing, unreadable or empty file counts as not ready yet. Every
// unsuccessful attempt is followed by one poll interval, the last included.
func (r *HandoffReader) AwaitTarget(ctx context.Context) (string, error) {
	attempts := r.cfg.MaxAttempts
	fmt.Fprintln(r.out, "Waiting for info from the tool...")

	for attempt := 1; attempt <= attempts; attempt++ {
		target, err := r.poll(attempt)
		if err != nil {
			return "", err
		}
		if target != "" {
			fmt.Fprintf(r.out, "Info received: %s\n", target)
			r.log.Info("handoff received", zap.String("target", target), zap.Int("attempt", attempt))
			r.consume()
			return target, nil
		}

		fmt.Fprintf(r.out, "No info yet. Retrying (%d/%d) in %s...\n", attempt, attempts, r.cfg.PollInterval)
		if err := r.sleep(ctx, r.cfg.PollInterval); err != nil {
			return "", err
		}
	}

	return "", &Error{
		Kind: KindHandoffTimeout,
		Op:   "await handoff",
		Path: r.cfg.Path,
		Err:  fmt.Errorf("no info received after %d attempts", attempts),
	}
}

// poll returns the target when ready, "" when not ready yet, or a fatal error.
func (r *HandoffReader) poll(attempt int) (string, error) {
	target, err := PeekHandoff(r.fs, r.cfg.Path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.log.Warn("handoff file unreadable", zap.String("path", r.cfg.Path), zap.Error(err))
		}
		return "", nil
	}
	if target == "" {
		r.log.Debug("handoff file empty", zap.Int("attempt", attempt))
		return "", nil
	}

	if ok, _ := afero.DirExists(r.fs, target); ok {
		return target, nil
	}

	if r.cfg.InvalidPolicy == config.PolicyRetry {
		r.log.Warn("handoff names a missing directory, waiting", zap.String("target", target))
		return "", nil
	}
	return "", &Error{
		Kind: KindInvalidTargetPath,
		Op:   "read handoff",
		Path: target,
		Err:  errors.New("target folder does not exist"),
	}
}

// consume renames the handoff file so a later run does not reuse it.
func (r *HandoffReader) consume() {
	if !r.cfg.Consume {
		return
	}
	dest := r.cfg.Path + consumedSuffix
	_ = r.fs.Remove(dest)
	if err := r.fs.Rename(r.cfg.Path, dest); err != nil {
		r.log.Warn("could not consume handoff file", zap.String("path", r.cfg.Path), zap.Error(err))
	}
}

// PeekHandoff returns the install path currently published at path without
// validating or consuming it.
func PeekHandoff(fsys afero.Fs, path string) (string, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return "", err
	}
	return decodeHandoff(data), nil
}

// decodeHandoff returns the first non-blank line of data, trimmed. UTF-16
// content with a byte order mark is accepted, as are UTF-8 BOMs.
func decodeHandoff(data []byte) string {
	decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		decoded = data
	}
	for _, line := range strings.Split(string(decoded), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// WriteHandoff publishes target as the install path at path. The file is
// written beside path and renamed into place so readers never see a partial
// write. target must be an absolute path to an existing directory.
func WriteHandoff(fsys afero.Fs, path, target string) error {
	if !filepath.IsAbs(target) {
		return fmt.Errorf("target %q is not an absolute path", target)
	}
	if ok, err := afero.DirExists(fsys, target); err != nil || !ok {
		return fmt.Errorf("target %s is not an existing directory", target)
	}

	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating handoff directory: %w", err)
	}

	tmp, err := afero.TempFile(fsys, dir, ".update_info-*")
	if err != nil {
		return fmt.Errorf("creating handoff file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(target); err != nil {
		tmp.Close()
		_ = fsys.Remove(tmpName)
		return fmt.Errorf("writing handoff file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = fsys.Remove(tmpName)
		return fmt.Errorf("writing handoff file: %w", err)
	}

	if err := fsys.Rename(tmpName, path); err != nil {
		// Windows refuses to rename over an existing file.
		_ = fsys.Remove(path)
		if err := fsys.Rename(tmpName, path); err != nil {
			_ = fsys.Remove(tmpName)
			return fmt.Errorf("publishing handoff file: %w", err)
		}
	}
	return nil
}
