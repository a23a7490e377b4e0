package updater

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/solal0/blob-updater/internal/branding"
	"github.com/solal0/blob-updater/internal/config"
	"github.com/solal0/blob-updater/internal/platform"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const defaultFileMode os.FileMode = 0644

// InstallResult describes an applied package.
type InstallResult struct {
	Mode   string
	// Path is where the tool can now be run from.
	Path   string
	// Backup is the folder the previous install was moved to (swap mode).
	Backup string
	// Files lists what was written, relative to the extraction root.
	Files  []string
	// Pruned lists backups removed after the swap.
	Pruned []string
}

// Replacer applies a downloaded package archive to an install folder.
type Replacer struct {
	cfg config.InstallConfig
	*deps
}

// NewReplacer creates a replacer using cfg.Mode.
func NewReplacer(cfg config.InstallConfig, opts ...Option) *Replacer {
	d := newDeps(opts)
	return &Replacer{cfg: cfg, deps: d.named("replace")}
}

// Apply installs pkg, a zip archive, at target. Failures have
// KindReplaceFailed.
func (r *Replacer) Apply(ctx context.Context, target string, pkg []byte) (*InstallResult, error) {
	zr, err := zip.NewReader(bytes.NewReader(pkg), int64(len(pkg)))
	// Entry names are checked per mode below.
	if err != nil && !(errors.Is(err, zip.ErrInsecurePath) && zr != nil) {
		return nil, replaceFailed("open package", target, err)
	}

	if err := r.waitForExit(ctx, target); err != nil {
		return nil, err
	}

	switch r.cfg.Mode {
	case config.ModeSwap:
		return r.applySwap(target, zr)
	case config.ModeFlat, "":
		return r.applyFlat(target, zr)
	default:
		return nil, replaceFailed("apply", target, fmt.Errorf("unknown install mode %q", r.cfg.Mode))
	}
}

// applyFlat writes every file entry directly into target under its base name,
// deleting any existing file of that name first. Directory structure in the
// archive is discarded; files outside the archive are left alone.
func (r *Replacer) applyFlat(target string, zr *zip.Reader) (*InstallResult, error) {
	result := &InstallResult{Mode: config.ModeFlat, Path: target}
	written := map[string]string{}

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := path.Base(entryName(f))
		if name == "." || name == "/" || name == ".." {
			continue
		}

		dest := filepath.Join(target, name)
		if ok, _ := afero.Exists(r.fs, dest); ok {
			if err := r.fs.Remove(dest); err != nil {
				return result, replaceFailed("remove", dest, err)
			}
		}
		if err := r.writeEntry(f, dest); err != nil {
			return result, replaceFailed("write", dest, err)
		}
		if prev, ok := written[name]; ok {
			r.log.Warn("package entries share a file name, later entry wins",
				zap.String("file", name), zap.String("earlier", prev), zap.String("later", f.Name))
			written[name] = f.Name
			continue
		}
		written[name] = f.Name
		result.Files = append(result.Files, name)
	}

	fmt.Fprintf(r.out, "Replaced %d files in %s\n", len(result.Files), target)
	r.log.Info("flat replace complete", zap.String("target", target), zap.Int("files", len(result.Files)))
	return result, nil
}

// applySwap moves target aside to a timestamped backup, then extracts the
// archive into target's parent with its directory structure intact.
func (r *Replacer) applySwap(target string, zr *zip.Reader) (*InstallResult, error) {
	target = filepath.Clean(target)
	parent := filepath.Dir(target)
	result := &InstallResult{Mode: config.ModeSwap, Path: target}

	// Check every entry before touching the install.
	for _, f := range zr.File {
		if _, err := safeRelPath(entryName(f)); err != nil {
			return nil, replaceFailed("check package", target, err)
		}
	}

	if ok, _ := afero.DirExists(r.fs, target); ok {
		backup := BackupName(target, r.now())
		if ok, _ := afero.Exists(r.fs, backup); ok {
			return nil, replaceFailed("backup", target, fmt.Errorf("backup %s already exists", backup))
		}
		fmt.Fprintf(r.out, "Existing tool folder detected. Renaming old folder to: %s\n", backup)
		if err := r.fs.Rename(target, backup); err != nil {
			return nil, replaceFailed("backup", target, err)
		}
		result.Backup = backup
		r.log.Info("install moved aside", zap.String("target", target), zap.String("backup", backup))
	}

	tops := map[string]bool{}
	nested := false
	for _, f := range zr.File {
		rel, _ := safeRelPath(entryName(f))
		if rel == "" {
			continue
		}
		first, rest, found := strings.Cut(rel, "/")
		tops[first] = true
		if (found && rest != "") || f.FileInfo().IsDir() {
			nested = true
		}

		dest := filepath.Join(parent, filepath.FromSlash(rel))
		if f.FileInfo().IsDir() {
			if err := r.fs.MkdirAll(dest, 0755); err != nil {
				return result, replaceFailed("extract", dest, err)
			}
			continue
		}
		if err := r.fs.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return result, replaceFailed("extract", dest, err)
		}
		if err := r.writeEntry(f, dest); err != nil {
			return result, replaceFailed("extract", dest, err)
		}
		result.Files = append(result.Files, rel)
	}

	if len(tops) == 1 && nested {
		for top := range tops {
			result.Path = filepath.Join(parent, top)
		}
	}
	if result.Path != target {
		r.log.Warn("package top-level folder differs from install folder",
			zap.String("target", target), zap.String("installed", result.Path))
	}
	fmt.Fprintf(r.out, "Extraction completed to: %s\n", parent)

	if r.cfg.KeepBackups > 0 {
		pruned, err := PruneBackups(r.fs, target, r.cfg.KeepBackups)
		if pruned != nil {
			for _, b := range pruned.Removed {
				result.Pruned = append(result.Pruned, b.Path)
			}
		}
		if err != nil {
			r.log.Warn("pruning backups failed", zap.String("target", target), zap.Error(err))
		}
	}
	return result, nil
}

// writeEntry copies a zip entry to dest using the entry's permission bits,
// or 0644 when it carries none.
func (r *Replacer) writeEntry(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("opening %s in package: %w", f.Name, err)
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = defaultFileMode
	}

	out, err := r.fs.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return platform.Chmod(r.fs, dest, mode)
}

// waitForExit gives processes running from target a chance to exit before
// their files are replaced. It warns and continues once the wait runs out.
func (r *Replacer) waitForExit(ctx context.Context, target string) error {
	if r.cfg.WaitForExit <= 0 || r.findProcs == nil {
		return nil
	}

	deadline := r.now().Add(r.cfg.WaitForExit)
	announced := false
	for {
		procs, err := r.findProcs(ctx, target)
		if err != nil {
			r.log.Debug("process scan failed", zap.Error(err))
			return nil
		}
		if len(procs) == 0 {
			return nil
		}
		if !r.now().Before(deadline) {
			fmt.Fprintf(r.out, "Warning: %d process(es) still running from %s; replacing anyway.\n", len(procs), target)
			for _, p := range procs {
				r.log.Warn("process still running", zap.Int32("pid", p.PID), zap.String("exe", p.Exe))
			}
			return nil
		}
		if !announced {
			fmt.Fprintf(r.out, "Waiting for %s to exit...\n", branding.ToolName())
			announced = true
		}
		if err := r.sleep(ctx, time.Second); err != nil {
			return err
		}
	}
}

// entryName returns the archive name with forward slashes.
func entryName(f *zip.File) string {
	return strings.ReplaceAll(f.Name, `\`, "/")
}

// safeRelPath cleans an archive entry name and rejects names that would land
// outside the extraction root. The root itself yields "".
func safeRelPath(name string) (string, error) {
	if strings.HasPrefix(name, "/") || filepath.VolumeName(name) != "" {
		return "", fmt.Errorf("illegal absolute path in package: %s", name)
	}
	rel := path.Clean(name)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", errors.New("illegal path in package: " + name)
	}
	if rel == "." {
		return "", nil
	}
	return rel, nil
}
