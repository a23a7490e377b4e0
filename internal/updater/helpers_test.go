package updater

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"
)

type zipEntry struct {
	name string
	body string
	mode os.FileMode
}

// buildZip creates an in-memory zip archive. Names ending in "/" become
// directory entries.
func buildZip(t *testing.T, entries ...zipEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		if e.mode != 0 {
			hdr.SetMode(e.mode)
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			t.Fatal(err)
		}
		if e.body != "" {
			if _, err := w.Write([]byte(e.body)); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// fakeClock is advanced by sleepRecorder instead of real time passing.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

// sleepRecorder records requested waits and returns immediately.
type sleepRecorder struct {
	calls   []time.Duration
	clock   *fakeClock
	onSleep func(n int)
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	if s.clock != nil {
		s.clock.t = s.clock.t.Add(d)
	}
	if s.onSleep != nil {
		s.onSleep(len(s.calls))
	}
	return ctx.Err()
}

func mustMkdir(t *testing.T, fsys afero.Fs, dir string) {
	t.Helper()
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
}

func mustWrite(t *testing.T, fsys afero.Fs, path, content string) {
	t.Helper()
	if err := afero.WriteFile(fsys, path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func readString(t *testing.T, fsys afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}
