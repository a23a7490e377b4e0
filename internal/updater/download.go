package updater

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/solal0/blob-updater/internal/branding"
	"github.com/solal0/blob-updater/internal/config"
	"go.uber.org/zap"
)

// Fetcher downloads the package archive into memory.
type Fetcher struct {
	cfg config.DownloadConfig
	*deps
}

// NewFetcher creates a fetcher with cfg's attempt budget, delay and timeout.
func NewFetcher(cfg config.DownloadConfig, opts ...Option) *Fetcher {
	d := newDeps(opts)
	return &Fetcher{cfg: cfg, deps: d.named("download")}
}

// Fetch downloads url, retrying failed attempts after a fixed delay. Any
// transport error, timeout or non-2xx status fails an attempt. When every
// attempt fails the error has KindDownloadExhausted.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	attempts := f.cfg.MaxAttempts
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		fmt.Fprintf(f.out, "[%d/%d] Downloading latest tool...\n", attempt, attempts)

		data, err := f.get(ctx, url)
		if err == nil {
			fmt.Fprintln(f.out, "Download complete.")
			f.log.Info("download complete", zap.String("url", url), zap.Int("attempt", attempt), zap.Int("bytes", len(data)))
			return data, nil
		}

		lastErr = err
		fmt.Fprintf(f.out, "Error downloading: %v\n", err)
		f.log.Warn("download attempt failed", zap.String("url", url), zap.Int("attempt", attempt), zap.Error(err))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if attempt < attempts {
			fmt.Fprintf(f.out, "Retrying in %s...\n", f.cfg.RetryDelay)
			if err := f.sleep(ctx, f.cfg.RetryDelay); err != nil {
				return nil, err
			}
		}
	}

	return nil, &Error{
		Kind: KindDownloadExhausted,
		Op:   "download",
		Path: url,
		Err:  fmt.Errorf("giving up after %d attempts: %w", attempts, lastErr),
	}
}

// get performs a single attempt bounded by the configured timeout, which
// covers reading the body as well as the response headers.
func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating download request: %w", err)
	}
	req.Header.Set("User-Agent", branding.CLIName()+"/"+f.version)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading download stream: %w", err)
	}
	return data, nil
}
