package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/alecthomas/kong"

	"github.com/scalapatisserie/muffin-site/internal/app"
	"github.com/scalapatisserie/muffin-site/internal/build"
	"github.com/scalapatisserie/muffin-site/internal/config"
	"github.com/scalapatisserie/muffin-site/internal/logger"
	"github.com/scalapatisserie/muffin-site/internal/version"
)

// Global is the state shared by every command once flags are applied.
type Global struct {
	Config *config.Config
	Logger logger.Logger
}

// CLI holds the global flags and the commands.
type CLI struct {
	EnvFile  string           `name:"env-file" help:"Env file loaded before reading MUFFIN_* variables" default:".env"`
	Site     string           `short:"s" help:"Site file, relative to the source directory (overrides MUFFIN_SITE_FILE)"`
	Source   string           `help:"Website root holding docs, i18n and static (overrides MUFFIN_SOURCE_DIR)" type:"path"`
	LogLevel string           `name:"log-level" help:"debug, info, warn or error (overrides MUFFIN_LOG_LEVEL)"`
	Version  kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build      BuildCmd   `cmd:"" help:"Build the static site into the output directory"`
	Serve      ServeCmd   `cmd:"" help:"Serve the site, rebuilding it periodically or on file changes"`
	Check      CheckCmd   `cmd:"" help:"Build the site without writing it and fail on any broken link"`
	VersionCmd VersionCmd `cmd:"" name:"version" help:"Print version information"`
}

// AfterApply loads the configuration once flags are parsed and sets up logging.
func (c *CLI) AfterApply(g *Global) error {
	cfg := config.Load(c.EnvFile)
	if c.Site != "" {
		cfg.SiteFile = c.Site
	}
	if c.Source != "" {
		cfg.SourceDir = c.Source
	}
	if c.LogLevel != "" {
		cfg.LogLevel = c.LogLevel
	}
	g.Config = cfg
	g.Logger = logger.New(cfg.LogLevel, cfg.PrettyLog)
	return nil
}

// BuildCmd implements `muffin-site build`.
type BuildCmd struct {
	Out string `short:"o" help:"Output directory (overrides MUFFIN_OUTPUT_DIR)" type:"path"`
}

func (b *BuildCmd) Run(ctx context.Context, g *Global) error {
	out := g.Config.OutputDir
	if b.Out != "" {
		out = b.Out
	}

	builder, err := app.NewBuilder(g.Config, g.Logger.Named("build"), nil, "")
	if err != nil {
		return err
	}
	res, err := builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	if err := build.Write(out, res.Pages); err != nil {
		return fmt.Errorf("failed to write site: %w", err)
	}

	g.Logger.Info("✅ site written",
		logger.String("output", out),
		logger.String("build_id", res.Info.ID),
		logger.Int("pages", res.Info.Pages),
		logger.Int("warnings", len(res.Info.Warnings)),
	)
	return nil
}

// ServeCmd implements `muffin-site serve`.
type ServeCmd struct {
	Listen     string `short:"l" help:"Listen address (overrides MUFFIN_LISTEN_ADDR)"`
	Watch      bool   `short:"w" help:"Rebuild on file changes"`
	LiveReload bool   `name:"livereload" help:"Reload open pages after each rebuild (implies --watch)"`
	Write      bool   `help:"Also write every rebuild to the output directory"`
}

func (s *ServeCmd) Run(ctx context.Context, g *Global) error {
	cfg := g.Config
	if s.Listen != "" {
		cfg.ListenAddr = s.Listen
	}
	if s.Watch || s.LiveReload {
		cfg.Watch = true
	}
	if s.LiveReload {
		cfg.LiveReload = true
	}
	if s.Write {
		cfg.WriteOnServe = true
	}

	a, err := app.New(ctx, cfg, g.Logger)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

// ErrWarnings is returned by `check` when the build succeeded with findings.
var ErrWarnings = errors.New("site has warnings")

// CheckCmd implements `muffin-site check`.
type CheckCmd struct{}

func (c *CheckCmd) Run(ctx context.Context, g *Global) error {
	builder, err := app.NewBuilder(g.Config, g.Logger.Named("check"), nil, "")
	if err != nil {
		return err
	}
	res, err := builder.Build(ctx)
	if err != nil {
		return err
	}
	if n := len(res.Info.Warnings); n > 0 {
		for _, w := range res.Info.Warnings {
			g.Logger.Warn(w)
		}
		return fmt.Errorf("%w: %d finding(s)", ErrWarnings, n)
	}
	g.Logger.Info("✅ site is clean", logger.Int("pages", res.Info.Pages))
	return nil
}

// VersionCmd implements `muffin-site version`.
type VersionCmd struct{}

func (VersionCmd) Run() error {
	fmt.Println(version.String())
	return nil
}
