package updater

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/afero"
)

const backupInfix = "_old_"

// Backup is an install folder set aside by a swap.
type Backup struct {
	Path    string
	Created time.Time
}

// PruneResult reports what PruneBackups kept and removed.
type PruneResult struct {
	Kept    []Backup
	Removed []Backup
}

// BackupName returns the backup path for target at t: <target>_old_<unix seconds>.
func BackupName(target string, t time.Time) string {
	return fmt.Sprintf("%s%s%d", filepath.Clean(target), backupInfix, t.Unix())
}

// ListBackups returns the backups of target, newest first. A missing parent
// directory yields no backups.
func ListBackups(fsys afero.Fs, target string) ([]Backup, error) {
	target = filepath.Clean(target)
	parent := filepath.Dir(target)
	prefix := filepath.Base(target) + backupInfix

	entries, err := afero.ReadDir(fsys, parent)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", parent, err)
	}

	backups := lo.FilterMap(entries, func(e os.FileInfo, _ int) (Backup, bool) {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			return Backup{}, false
		}
		ts, err := strconv.ParseInt(strings.TrimPrefix(e.Name(), prefix), 10, 64)
		if err != nil {
			return Backup{}, false
		}
		return Backup{Path: filepath.Join(parent, e.Name()), Created: time.Unix(ts, 0)}, true
	})

	sort.Slice(backups, func(i, j int) bool {
		if !backups[i].Created.Equal(backups[j].Created) {
			return backups[i].Created.After(backups[j].Created)
		}
		return backups[i].Path > backups[j].Path
	})
	return backups, nil
}

// PruneBackups removes all but the keep newest backups of target.
func PruneBackups(fsys afero.Fs, target string, keep int) (*PruneResult, error) {
	if keep < 0 {
		return nil, fmt.Errorf("keep must be zero or more, got %d", keep)
	}

	backups, err := ListBackups(fsys, target)
	if err != nil {
		return nil, err
	}

	result := &PruneResult{}
	if len(backups) <= keep {
		result.Kept = backups
		return result, nil
	}
	result.Kept = backups[:keep]
	for _, b := range backups[keep:] {
		if err := fsys.RemoveAll(b.Path); err != nil {
			return result, fmt.Errorf("removing backup %s: %w", b.Path, err)
		}
		result.Removed = append(result.Removed, b)
	}
	return result, nil
}
