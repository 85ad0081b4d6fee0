// Package app wires the site builder, the scheduler and the HTTP server
// together for `muffin-site serve`.
package app

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/scalapatisserie/muffin-site/internal/build"
	"github.com/scalapatisserie/muffin-site/internal/config"
	"github.com/scalapatisserie/muffin-site/internal/httpserver"
	"github.com/scalapatisserie/muffin-site/internal/httpserver/deps"
	"github.com/scalapatisserie/muffin-site/internal/index"
	"github.com/scalapatisserie/muffin-site/internal/livereload"
	"github.com/scalapatisserie/muffin-site/internal/logger"
	"github.com/scalapatisserie/muffin-site/internal/metrics"
	"github.com/scalapatisserie/muffin-site/internal/redis"
	"github.com/scalapatisserie/muffin-site/internal/scheduler"
	"github.com/scalapatisserie/muffin-site/internal/site"
	redisstore "github.com/scalapatisserie/muffin-site/internal/store/redis"
	"github.com/scalapatisserie/muffin-site/internal/utils"
	"github.com/scalapatisserie/muffin-site/internal/version"
)

// SitePath resolves the site file against the source directory.
func SitePath(cfg *config.Config) string {
	if filepath.IsAbs(cfg.SiteFile) {
		return cfg.SiteFile
	}
	return filepath.Join(cfg.SourceDir, cfg.SiteFile)
}

// NewBuilder creates the site builder shared by every command.
func NewBuilder(cfg *config.Config, log logger.Logger, rec build.Recorder, liveReload string) (*build.Builder, error) {
	return build.NewBuilder(build.Options{
		Site:       site.NewLoader(SitePath(cfg), true),
		SourceDir:  cfg.SourceDir,
		StaticDir:  filepath.Join(cfg.SourceDir, cfg.StaticDir),
		LiveReload: liveReload,
		Recorder:   rec,
	}, log)
}

// watchDirs lists the roots a rebuild depends on. The docs directory may live
// outside the source directory.
func watchDirs(cfg *config.Config, siteCfg site.Config) []string {
	docsDir := siteCfg.Docs.Path
	if !filepath.IsAbs(docsDir) {
		docsDir = filepath.Join(cfg.SourceDir, docsDir)
	}
	dirs := []string{}
	seen := map[string]bool{}
	for _, d := range []string{cfg.SourceDir, docsDir, filepath.Dir(SitePath(cfg))} {
		d = filepath.Clean(d)
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	return dirs
}

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	index       *index.PageIndex
	syncer      *scheduler.RedisSyncer      // nil without redis
	reloader    *scheduler.SiteReloader
	watcher     *scheduler.Watcher          // nil unless watching
	gc          *scheduler.GarbageCollector // nil without redis
}

// New wires every component. Redis is optional: when it cannot be reached
// the site is served from memory only.
func New(ctx context.Context, cfg *config.Config, loggerClient logger.Logger) (*App, error) {
	// The served site is fixed to the base URL and locales found at start.
	loader := site.NewLoader(SitePath(cfg), true)
	siteCfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	loggerClient.Info("site configuration loaded",
		logger.String("file", loader.Path()),
		logger.String("base_url", siteCfg.BaseURL),
		logger.Strings("locales", siteCfg.I18n.Locales))

	rec := metrics.NewRecorder()

	var hub *livereload.Hub
	liveReloadPath := ""
	if cfg.LiveReload {
		hub = livereload.NewHub(loggerClient.Named("livereload"))
		liveReloadPath = siteCfg.BaseURL + livereload.Path
	}

	builder, err := NewBuilder(cfg, loggerClient.Named("build"), rec, liveReloadPath)
	if err != nil {
		return nil, err
	}

	// Initialize memory index
	pageIndex := index.NewPageIndex()

	a := &App{
		cfg:    cfg,
		logger: loggerClient,
		index:  pageIndex,
	}

	opts := scheduler.ReloaderOptions{Interval: cfg.RebuildInterval}
	if hub != nil {
		opts.Notifier = hub
	}
	if cfg.WriteOnServe {
		opts.OutputDir = cfg.OutputDir
	}

	var cache deps.Cache
	if cfg.RedisEnabled() {
		client, err := redis.Connect(ctx, redis.OptionsFromConfig(cfg), loggerClient.Named("redis"))
		if err != nil {
			loggerClient.Warn("redis unavailable, serving from memory only",
				logger.Error(err))
		} else {
			store := redisstore.NewStore(client)
			a.redisClient = client
			a.syncer = scheduler.NewRedisSyncer(store, pageIndex, loggerClient)
			a.gc = scheduler.NewGarbageCollector(store, loggerClient, cfg.GCInterval, cfg.GCThreshold)
			opts.Store = store
			cache = store
		}
	}

	// Create manual rebuild trigger channel, shared by POST /reload and the watcher
	reloadTrigger := make(chan struct{}, 1)

	a.reloader = scheduler.NewSiteReloader(builder, pageIndex, loggerClient, reloadTrigger, opts)

	if cfg.Watch {
		out := cfg.OutputDir
		a.watcher = scheduler.NewWatcher(
			watchDirs(cfg, siteCfg),
			[]string{out, out + "_stage", out + ".prev"},
			cfg.WatchDebounce,
			reloadTrigger,
			loggerClient.Named("watch"),
		)
	}

	// Dependencies passed to routes
	d := deps.Deps{
		Logger:             loggerClient,
		StartTime:          time.Now(),
		Version:            version.Version,
		Commit:             version.Commit,
		BuildDate:          version.BuildDate,
		GoVersion:          version.GoVersion,
		TimeNow:            time.Now,
		Site:               siteCfg,
		AllowedHosts:       cfg.AllowedHosts,
		AllowedCIDRS:       cfg.AllowedCIDRS,
		TrustProxy:         cfg.TrustProxy,
		ReloadBurst:        cfg.ReloadBurst,
		ReloadRefillPerMin: cfg.ReloadRefillMin,
		Index:              pageIndex,
		Cache:              cache,
		Metrics:            rec,
		LiveReload:         hub,
		ReloadTrigger:      reloadTrigger,
	}

	a.server = httpserver.New(cfg, loggerClient, d)
	return a, nil
}

// Run starts every component and blocks until ctx is canceled or the HTTP
// server fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("🚀 Starting muffin-site v%s on %s", version.Version, a.cfg.ListenAddr)
	a.logger.Info(version.String())

	// Warm the index so the site is up before the first build finishes
	if a.syncer != nil {
		if err := a.syncer.Sync(ctx); err != nil {
			a.logger.Warn("failed to sync from redis on startup, waiting for local build",
				logger.Error(err))
		}
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// Build the site and start periodic rebuilds
	if err := a.reloader.Start(ctx); err != nil {
		a.shutdown()
		return fmt.Errorf("failed to start site reloader: %w", err)
	}
	a.logger.Info("site reloader started",
		logger.Duration("interval", a.cfg.RebuildInterval))

	if a.watcher != nil {
		if err := a.watcher.Start(ctx); err != nil {
			a.reloader.Stop()
			a.shutdown()
			return fmt.Errorf("failed to start source watcher: %w", err)
		}
	}

	if a.gc != nil {
		if err := a.gc.Start(ctx); err != nil {
			a.logger.Warn("failed to start garbage collector", logger.Error(err))
		} else {
			a.logger.Info("garbage collector started",
				logger.Duration("interval", a.cfg.GCInterval))
		}
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	a.reloader.Stop()
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.gc != nil {
		a.gc.Stop()
	}

	if err := a.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr == nil {
		a.logger.Info("✅ muffin-site stopped cleanly")
	}
	return runErr
}

// shutdown stops the HTTP server and closes redis.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	var err error
	if stopErr := a.server.Stop(shutdownCtx); stopErr != nil {
		err = fmt.Errorf("failed to stop server: %w", stopErr)
	}

	if a.redisClient != nil {
		utils.MustClose(a.redisClient, a.logger, "redis")
	}
	return err
}
