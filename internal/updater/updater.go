package updater

import (
	"context"

	"github.com/solal0/blob-updater/internal/config"
	"go.uber.org/zap"
)

// Result describes how far a run got. It is returned alongside errors so
// callers can report the target even when a later stage failed.
type Result struct {
	Target  string
	Bytes   int
	// Install is set once the package has been applied.
	Install *InstallResult
}

// Updater runs the handoff, download and replace stages in order.
type Updater struct {
	cfg      *config.Config
	log      *zap.Logger
	handoff  *HandoffReader
	fetcher  *Fetcher
	replacer *Replacer
}

// New creates an Updater for cfg. The options apply to every stage.
func New(cfg *config.Config, opts ...Option) *Updater {
	d := newDeps(opts)
	return &Updater{
		cfg:      cfg,
		log:      d.log,
		handoff:  NewHandoffReader(cfg.Handoff, opts...),
		fetcher:  NewFetcher(cfg.Download, opts...),
		replacer: NewReplacer(cfg.Install, opts...),
	}
}

// Run performs one update. The first failing stage ends the run; its error
// carries the failure Kind.
func (u *Updater) Run(ctx context.Context) (*Result, error) {
	u.log.Info("update started", zap.String("url", u.cfg.PackageURL), zap.String("mode", u.cfg.Install.Mode))

	target, err := u.handoff.AwaitTarget(ctx)
	if err != nil {
		u.log.Error("handoff failed", zap.Error(err))
		return nil, err
	}
	res := &Result{Target: target}

	pkg, err := u.fetcher.Fetch(ctx, u.cfg.PackageURL)
	if err != nil {
		u.log.Error("download failed", zap.Error(err))
		return res, err
	}
	res.Bytes = len(pkg)

	install, err := u.replacer.Apply(ctx, target, pkg)
	if err != nil {
		u.log.Error("replace failed", zap.Error(err))
		return res, err
	}
	res.Install = install

	u.log.Info("update finished", zap.String("path", install.Path), zap.Int("files", len(install.Files)))
	return res, nil
}
