package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/scalapatisserie/muffin-site/internal/build"
	"github.com/scalapatisserie/muffin-site/internal/domain"
	"github.com/scalapatisserie/muffin-site/internal/index"
	"github.com/scalapatisserie/muffin-site/internal/logger"
)

// SiteBuilder produces a complete build of the site.
type SiteBuilder interface {
	Build(ctx context.Context) (*build.Result, error)
}

// BuildSaver persists builds outside the process.
type BuildSaver interface {
	SaveBuild(ctx context.Context, info domain.BuildInfo, pages []*domain.Page) error
}

// Notifier is told about every build swapped in.
type Notifier interface {
	Notify(buildID string)
}

// SiteReloader rebuilds the site on an interval or on demand and swaps the
// result into the index.
type SiteReloader struct {
	builder       SiteBuilder
	index         *index.PageIndex
	store         BuildSaver // optional
	notifier      Notifier   // optional
	outputDir     string     // optional, builds are also written here
	logger        logger.Logger
	interval      time.Duration // 0 disables periodic rebuilds
	stopCh        chan struct{}
	manualTrigger <-chan struct{}
	mu            sync.Mutex // one build at a time
}

// ReloaderOptions holds the optional collaborators of a SiteReloader.
type ReloaderOptions struct {
	Store     BuildSaver
	Notifier  Notifier
	OutputDir string
	Interval  time.Duration
}

// NewSiteReloader creates a new site reloader
func NewSiteReloader(
	builder SiteBuilder,
	idx *index.PageIndex,
	log logger.Logger,
	manualTrigger <-chan struct{},
	opts ReloaderOptions,
) *SiteReloader {
	return &SiteReloader{
		builder:       builder,
		index:         idx,
		store:         opts.Store,
		notifier:      opts.Notifier,
		outputDir:     opts.OutputDir,
		logger:        log,
		interval:      opts.Interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start builds the site once, then keeps rebuilding in the background.
// A failed initial build is fatal only when nothing can be served yet.
func (sr *SiteReloader) Start(ctx context.Context) error {
	if err := sr.Reload(ctx); err != nil {
		if !sr.index.Ready() {
			return fmt.Errorf("initial build failed: %w", err)
		}
		sr.logger.Warn("initial build failed, serving cached build",
			logger.String("build_id", sr.index.Info().ID),
			logger.Error(err))
	}

	// Start periodic rebuild; a nil channel never fires
	var ticker *time.Ticker
	var tick <-chan time.Time
	if sr.interval > 0 {
		ticker = time.NewTicker(sr.interval)
		tick = ticker.C
	}
	go sr.loop(ctx, ticker, tick)

	return nil
}

func (sr *SiteReloader) loop(ctx context.Context, ticker *time.Ticker, tick <-chan time.Time) {
	if ticker != nil {
		defer ticker.Stop()
	}
	for {
		select {
		case <-tick:
			sr.reloadLogged(ctx)
		case <-sr.manualTrigger:
			sr.logger.Info("manual rebuild triggered")
			sr.reloadLogged(ctx)
		case <-sr.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (sr *SiteReloader) reloadLogged(ctx context.Context) {
	if err := sr.Reload(ctx); err != nil {
		sr.logger.Error("failed to rebuild site", logger.Error(err))
	}
}

// Stop stops the reloader
func (sr *SiteReloader) Stop() {
	close(sr.stopCh)
}

// Reload builds the site and, on success, swaps it into the index, writes
// it out, saves it to the store and notifies listeners. A failed build
// leaves the served site untouched.
func (sr *SiteReloader) Reload(ctx context.Context) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	sr.logger.Info("rebuilding site")

	res, err := sr.builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("failed to build site: %w", err)
	}

	if sr.outputDir != "" {
		if err := build.Write(sr.outputDir, res.Pages); err != nil {
			return fmt.Errorf("failed to write site: %w", err)
		}
	}

	sr.index.Swap(res.Info, res.Pages)

	// Update Redis store (best effort)
	if sr.store != nil {
		if err := sr.store.SaveBuild(ctx, res.Info, res.Pages); err != nil {
			sr.logger.Warn("failed to save build to redis",
				logger.Error(err))
			// Don't fail - memory index is the primary source
		} else {
			sr.logger.Debug("build saved to redis", logger.String("build_id", res.Info.ID))
		}
	}

	if sr.notifier != nil {
		sr.notifier.Notify(res.Info.ID)
	}

	for _, w := range res.Info.Warnings {
		sr.logger.Warn("build warning", logger.String("warning", w))
	}
	return nil
}
