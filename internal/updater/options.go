package updater

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// deps are the collaborators shared by every component.
type deps struct {
	fs         afero.Fs
	httpClient *http.Client
	out        io.Writer
	log        *zap.Logger
	sleep      SleepFunc
	now        func() time.Time
	findProcs  ProcessFinder
	version    string
}

// Option configures the updater components.
type Option func(*deps)

// WithFs sets the filesystem (useful for testing).
func WithFs(fsys afero.Fs) Option {
	return func(d *deps) { d.fs = fsys }
}

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(d *deps) { d.httpClient = c }
}

// WithOutput sets where operator status lines are written.
func WithOutput(w io.Writer) Option {
	return func(d *deps) { d.out = w }
}

// WithLogger sets the run logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *deps) { d.log = l }
}

// WithSleep replaces the wait between attempts.
func WithSleep(s SleepFunc) Option {
	return func(d *deps) { d.sleep = s }
}

// WithClock replaces the time source used for backup names.
func WithClock(now func() time.Time) Option {
	return func(d *deps) { d.now = now }
}

// WithProcessFinder replaces the live-install check. A nil finder disables it.
func WithProcessFinder(f ProcessFinder) Option {
	return func(d *deps) { d.findProcs = f }
}

// WithVersion sets the updater version reported in the User-Agent header.
func WithVersion(v string) Option {
	return func(d *deps) { d.version = v }
}

func newDeps(opts []Option) *deps {
	d := &deps{
		fs:         afero.NewOsFs(),
		httpClient: &http.Client{},
		out:        io.Discard,
		log:        zap.NewNop(),
		sleep:      sleepContext,
		now:        time.Now,
		findProcs:  FindProcessesUnder,
		version:    "dev",
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// named returns a copy of d whose logger carries name.
func (d *deps) named(name string) *deps {
	c := *d
	c.log = d.log.Named(name)
	return &c
}
