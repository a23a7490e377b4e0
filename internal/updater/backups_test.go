package updater

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/samber/lo"
	"github.com/spf13/afero"
)

func backupPaths(backups []Backup) []string {
	return lo.Map(backups, func(b Backup, _ int) string { return b.Path })
}

func TestBackupName(t *testing.T) {
	got := BackupName("/opt/apps/tool/", time.Unix(1700000000, 0))
	if got != "/opt/apps/tool_old_1700000000" {
		t.Errorf("BackupName = %q", got)
	}
}

func TestListBackups(t *testing.T) {
	fsys := afero.NewMemMapFs()
	mustMkdir(t, fsys, "/opt/apps/tool")
	mustMkdir(t, fsys, "/opt/apps/tool_old_1600000000")
	mustMkdir(t, fsys, "/opt/apps/tool_old_1700000000")
	mustMkdir(t, fsys, "/opt/apps/tool_old_1650000000")
	mustMkdir(t, fsys, "/opt/apps/tool_old_latest")
	mustMkdir(t, fsys, "/opt/apps/toolbox_old_1690000000")
	mustWrite(t, fsys, "/opt/apps/tool_old_1680000000", "a file, not a backup")

	backups, err := ListBackups(fsys, "/opt/apps/tool")
	if err != nil {
		t.Fatalf("ListBackups: %v", err)
	}
	want := []string{
		"/opt/apps/tool_old_1700000000",
		"/opt/apps/tool_old_1650000000",
		"/opt/apps/tool_old_1600000000",
	}
	if diff := cmp.Diff(want, backupPaths(backups)); diff != "" {
		t.Errorf("backups mismatch (-want +got):\n%s", diff)
	}
	if !backups[0].Created.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("Created = %v", backups[0].Created)
	}
}

func TestListBackups_MissingParent(t *testing.T) {
	backups, err := ListBackups(afero.NewMemMapFs(), "/nowhere/tool")
	if err != nil || len(backups) != 0 {
		t.Errorf("ListBackups = %v, %v", backups, err)
	}
}

func TestPruneBackups(t *testing.T) {
	fsys := afero.NewMemMapFs()
	for _, ts := range []string{"1600000000", "1650000000", "1700000000"} {
		mustWrite(t, fsys, "/opt/apps/tool_old_"+ts+"/tool.exe", ts)
	}

	result, err := PruneBackups(fsys, "/opt/apps/tool", 1)
	if err != nil {
		t.Fatalf("PruneBackups: %v", err)
	}
	if diff := cmp.Diff([]string{"/opt/apps/tool_old_1700000000"}, backupPaths(result.Kept)); diff != "" {
		t.Errorf("kept mismatch (-want +got):\n%s", diff)
	}
	if len(result.Removed) != 2 {
		t.Errorf("removed = %v", backupPaths(result.Removed))
	}
	for _, b := range result.Removed {
		if ok, _ := afero.Exists(fsys, b.Path); ok {
			t.Errorf("%s still exists", b.Path)
		}
	}
}

func TestPruneBackups_KeepAllWhenFewer(t *testing.T) {
	fsys := afero.NewMemMapFs()
	mustMkdir(t, fsys, "/opt/apps/tool_old_1600000000")

	result, err := PruneBackups(fsys, "/opt/apps/tool", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Kept) != 1 || len(result.Removed) != 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestPruneBackups_NegativeKeep(t *testing.T) {
	if _, err := PruneBackups(afero.NewMemMapFs(), "/opt/apps/tool", -1); err == nil {
		t.Error("expected error for negative keep")
	}
}
