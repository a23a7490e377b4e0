package updater

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const recordFileName = "last-run.json"

// Run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// RunRecord summarizes the most recent updater run.
type RunRecord struct {
	UpdaterVersion string    `json:"updater_version" yaml:"updater_version"`
	StartedAt      time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt     time.Time `json:"finished_at" yaml:"finished_at"`
	Target         string    `json:"target,omitempty" yaml:"target,omitempty"`
	Mode           string    `json:"mode" yaml:"mode"`
	Outcome        string    `json:"outcome" yaml:"outcome"`
	ErrorKind      string    `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Error          string    `json:"error,omitempty" yaml:"error,omitempty"`
	Backup         string    `json:"backup,omitempty" yaml:"backup,omitempty"`
	FilesWritten   int       `json:"files_written" yaml:"files_written"`
}

// NewRunRecord builds the record for a run that started at started and
// ended with res and err. res may be nil.
func NewRunRecord(version, mode string, started, finished time.Time, res *Result, err error) *RunRecord {
	rec := &RunRecord{
		UpdaterVersion: version,
		StartedAt:      started,
		FinishedAt:     finished,
		Mode:           mode,
		Outcome:        OutcomeSuccess,
	}
	if res != nil {
		rec.Target = res.Target
		if res.Install != nil {
			rec.Mode = res.Install.Mode
			rec.Backup = res.Install.Backup
			rec.FilesWritten = len(res.Install.Files)
		}
	}
	if err != nil {
		rec.Outcome = OutcomeFailure
		rec.ErrorKind = KindOf(err).String()
		rec.Error = err.Error()
	}
	return rec
}

// WrittenByNewer reports whether the record came from an updater newer than
// current. Unparseable versions compare as not newer.
func (r *RunRecord) WrittenByNewer(current string) bool {
	cmp, err := CompareVersions(current, r.UpdaterVersion)
	return err == nil && cmp < 0
}

// LoadRunRecord reads the run record from the config directory.
// Returns nil, nil if no run has been recorded yet.
func LoadRunRecord(configDir string) (*RunRecord, error) {
	path := filepath.Join(configDir, recordFileName)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading run record: %w", err)
	}

	var rec RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing run record: %w", err)
	}
	return &rec, nil
}

// SaveRunRecord writes the run record to the config directory.
func SaveRunRecord(configDir string, rec *RunRecord) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run record: %w", err)
	}

	path := filepath.Join(configDir, recordFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing run record: %w", err)
	}
	return nil
}
