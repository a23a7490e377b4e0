package updater

import (
	"context"
	"os"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/solal0/blob-updater/internal/platform"
)

// RunningProcess is a process whose executable lives inside an install.
type RunningProcess struct {
	PID  int32
	Name string
	Exe  string
}

// ProcessFinder lists processes running from inside dir.
type ProcessFinder func(ctx context.Context, dir string) ([]RunningProcess, error)

// FindProcessesUnder lists processes, other than this one, whose executable
// is inside dir. Processes whose executable cannot be read are skipped.
func FindProcessesUnder(ctx context.Context, dir string) ([]RunningProcess, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	self := int32(os.Getpid())
	var found []RunningProcess
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		exe, err := p.ExeWithContext(ctx)
		if err != nil || exe == "" {
			continue
		}
		if !platform.IsWithin(dir, exe) {
			continue
		}
		name, _ := p.NameWithContext(ctx)
		found = append(found, RunningProcess{PID: p.Pid, Name: name, Exe: exe})
	}
	return found, nil
}
