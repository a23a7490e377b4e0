package updater

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/solal0/blob-updater/internal/config"
	"github.com/spf13/afero"
)

func testConfig(url string) *config.Config {
	cfg := config.Default()
	cfg.PackageURL = url
	cfg.Handoff = testHandoffConfig()
	cfg.Download = testDownloadConfig()
	cfg.Install.WaitForExit = 0
	return cfg
}

func TestRun_FlatUpdate(t *testing.T) {
	pkg := buildZip(t,
		zipEntry{name: "Blob Compiler/tool.exe", body: "v2"},
		zipEntry{name: "Blob Compiler/readme.txt", body: "read me"},
	)
	srv, _ := flakyServer(t, 0, pkg)

	fsys := afero.NewMemMapFs()
	mustWrite(t, fsys, "/opt/tool/tool.exe", "v1")
	mustWrite(t, fsys, handoffPath, "/opt/tool\n")

	cfg := testConfig(srv.URL + "/Blob%20Compiler.zip")
	cfg.Install.Mode = config.ModeFlat

	var out bytes.Buffer
	s := &sleepRecorder{}
	u := New(cfg, WithFs(fsys), WithHTTPClient(srv.Client()), WithOutput(&out), WithSleep(s.sleep))

	res, err := u.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v\n%s", err, out.String())
	}
	if res.Target != "/opt/tool" || res.Bytes != len(pkg) || res.Install == nil {
		t.Fatalf("result = %+v", res)
	}
	if got := readString(t, fsys, "/opt/tool/tool.exe"); got != "v2" {
		t.Errorf("tool.exe = %q", got)
	}
	if got := readString(t, fsys, "/opt/tool/readme.txt"); got != "read me" {
		t.Errorf("readme.txt = %q", got)
	}

	// Status lines appear in stage order.
	text := out.String()
	order := []string{"Waiting for info", "[1/5] Downloading latest tool...", "Download complete.", "Replaced 2 files in /opt/tool"}
	last := -1
	for _, line := range order {
		idx := strings.Index(text, line)
		if idx <= last {
			t.Fatalf("%q out of order in:\n%s", line, text)
		}
		last = idx
	}
}

func TestRun_SwapUpdate(t *testing.T) {
	pkg := buildZip(t, zipEntry{name: "tool/tool.exe", body: "v2"})
	srv, _ := flakyServer(t, 0, pkg)

	fsys := afero.NewMemMapFs()
	mustWrite(t, fsys, "/opt/apps/tool/tool.exe", "v1")
	mustWrite(t, fsys, handoffPath, "/opt/apps/tool")

	cfg := testConfig(srv.URL)
	cfg.Install.Mode = config.ModeSwap

	var out bytes.Buffer
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	u := New(cfg, WithFs(fsys), WithHTTPClient(srv.Client()), WithOutput(&out),
		WithSleep((&sleepRecorder{}).sleep), WithClock(clock.now))

	res, err := u.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Install.Backup != "/opt/apps/tool_old_1700000000" {
		t.Errorf("backup = %q", res.Install.Backup)
	}
	if got := readString(t, fsys, "/opt/apps/tool_old_1700000000/tool.exe"); got != "v1" {
		t.Errorf("backup tool.exe = %q", got)
	}
	if got := readString(t, fsys, "/opt/apps/tool/tool.exe"); got != "v2" {
		t.Errorf("tool.exe = %q", got)
	}
}

func TestRun_DownloadFailureLeavesInstall(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	fsys := afero.NewMemMapFs()
	mustWrite(t, fsys, "/opt/tool/tool.exe", "v1")
	mustWrite(t, fsys, handoffPath, "/opt/tool")

	var out bytes.Buffer
	s := &sleepRecorder{}
	u := New(testConfig(srv.URL), WithFs(fsys), WithHTTPClient(srv.Client()), WithOutput(&out), WithSleep(s.sleep))

	res, err := u.Run(context.Background())
	if KindOf(err) != KindDownloadExhausted {
		t.Fatalf("expected DownloadExhausted, got %v", err)
	}
	if res == nil || res.Target != "/opt/tool" || res.Install != nil {
		t.Errorf("result = %+v", res)
	}
	if got := readString(t, fsys, "/opt/tool/tool.exe"); got != "v1" {
		t.Errorf("install modified: %q", got)
	}
	if len(s.calls) != 4 {
		t.Errorf("download waits = %d, want 4", len(s.calls))
	}
}

func TestRun_HandoffTimeoutSkipsDownload(t *testing.T) {
	srv, hits := flakyServer(t, 0, []byte("unused"))

	var out bytes.Buffer
	u := New(testConfig(srv.URL), WithFs(afero.NewMemMapFs()), WithHTTPClient(srv.Client()),
		WithOutput(&out), WithSleep((&sleepRecorder{}).sleep))

	res, err := u.Run(context.Background())
	if KindOf(err) != KindHandoffTimeout {
		t.Fatalf("expected HandoffTimeout, got %v", err)
	}
	if res != nil {
		t.Errorf("result = %+v", res)
	}
	if hits.Load() != 0 {
		t.Errorf("server hit %d times", hits.Load())
	}
	if ExitCode(err) == 0 {
		t.Error("timeout must map to a failing exit code")
	}
}
