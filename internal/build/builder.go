// Package build renders the whole site for every locale into a set of pages
// and writes them out.
package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scalapatisserie/muffin-site/internal/docs"
	"github.com/scalapatisserie/muffin-site/internal/domain"
	"github.com/scalapatisserie/muffin-site/internal/i18n"
	"github.com/scalapatisserie/muffin-site/internal/linkcheck"
	"github.com/scalapatisserie/muffin-site/internal/logger"
	"github.com/scalapatisserie/muffin-site/internal/render"
	"github.com/scalapatisserie/muffin-site/internal/site"
)

const htmlType = "text/html; charset=utf-8"

// Build outcomes reported to the Recorder.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeCanceled = "canceled"
)

// Recorder receives build measurements.
type Recorder interface {
	ObserveBuild(outcome string, d time.Duration, pages int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveBuild(string, time.Duration, int) {}

// Options configures a Builder.
type Options struct {
	// Site provides the site configuration on every build, so edits to the
	// site file are picked up by rebuilds.
	Site      site.Source
	SourceDir string
	StaticDir string
	// LiveReload is the websocket route injected into pages, empty in
	// production builds.
	LiveReload string
	Recorder   Recorder
	Now        func() time.Time
}

// Builder produces complete site builds.
type Builder struct {
	opts     Options
	renderer *render.Renderer
	log      logger.Logger
}

// Result is one successful build.
type Result struct {
	Info  domain.BuildInfo
	Site  site.Config
	Pages []*domain.Page
}

// NewBuilder creates a builder.
func NewBuilder(opts Options, log logger.Logger) (*Builder, error) {
	if opts.Site == nil {
		return nil, errors.New("site source is required")
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	r, err := render.New()
	if err != nil {
		return nil, err
	}
	return &Builder{opts: opts, renderer: r, log: log}, nil
}

// Build renders every page of every locale, checks links and returns the
// pages in route order. Nothing is written to disk.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	started := b.opts.Now()
	res, err := b.build(ctx, started)

	d := b.opts.Now().Sub(started)
	switch {
	case err == nil:
		b.opts.Recorder.ObserveBuild(OutcomeSuccess, d, len(res.Pages))
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		b.opts.Recorder.ObserveBuild(OutcomeCanceled, d, 0)
	default:
		b.opts.Recorder.ObserveBuild(OutcomeFailure, d, 0)
	}
	return res, err
}

func (b *Builder) build(ctx context.Context, started time.Time) (*Result, error) {
	cfg, err := b.opts.Site.Load()
	if err != nil {
		return nil, err
	}

	set, err := docs.NewLoader(cfg, b.opts.SourceDir).Load(ctx)
	if err != nil {
		return nil, err
	}

	bundle := i18n.NewBundle(cfg.I18n.DefaultLocale, cfg.Translations)
	pages := newPageSet()
	groups := map[string]map[string]string{}

	for _, locale := range cfg.I18n.Locales {
		rc := render.Context{
			Site:       cfg,
			Locale:     locale,
			Bundle:     bundle,
			Now:        started,
			LiveReload: b.opts.LiveReload,
		}
		if err := b.renderLocale(ctx, rc, set, pages, groups); err != nil {
			return nil, err
		}
	}

	if err := b.addStatic(ctx, cfg, pages); err != nil {
		return nil, err
	}

	sm, err := sitemap(cfg, pages.sorted(), groups, started)
	if err != nil {
		return nil, fmt.Errorf("failed to build sitemap: %w", err)
	}
	if err := pages.add(domain.NewPage(cfg.BaseURL+"sitemap.xml", "sitemap.xml", "", domain.KindSitemap, "application/xml", sm)); err != nil {
		return nil, err
	}

	all := pages.sorted()
	warnings, err := b.checkLinks(cfg, set, all)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	finished := b.opts.Now()
	for _, p := range all {
		p.BuildID = id
		p.UpdatedAt = finished
	}

	info := domain.BuildInfo{
		ID:         id,
		StartedAt:  started,
		FinishedAt: finished,
		Duration:   finished.Sub(started),
		Pages:      len(all),
		Locales:    append([]string(nil), cfg.I18n.Locales...),
		Warnings:   warnings,
	}
	b.log.Info("site built",
		logger.String("build_id", id),
		logger.Int("pages", len(all)),
		logger.Strings("locales", cfg.I18n.Locales),
		logger.Duration("duration", info.Duration),
	)
	return &Result{Info: info, Site: cfg, Pages: all}, nil
}

func (b *Builder) renderLocale(ctx context.Context, rc render.Context, set *docs.Set, pages *pageSet, groups map[string]map[string]string) error {
	cfg := rc.Site
	locale := rc.Locale

	home, err := b.renderer.Home(rc)
	if err != nil {
		return err
	}
	homeRoute := cfg.Route(locale, "/")
	if err := pages.add(domain.NewPage(homeRoute, fileFor(cfg, homeRoute), locale, domain.KindHome, htmlType, home)); err != nil {
		return err
	}
	homeAlts := map[string]string{}
	for _, l := range cfg.I18n.Locales {
		homeAlts[l] = cfg.Route(l, "/")
	}
	groups[homeRoute] = homeAlts

	for _, d := range set.Docs(locale) {
		if err := ctx.Err(); err != nil {
			return err
		}

		alts := map[string]string{}
		for _, l := range cfg.I18n.Locales {
			if other, ok := set.Lookup(l, d.ID); ok {
				alts[l] = other.Route
			}
		}
		in := render.DocInput{Doc: d, Alternates: alts}
		if sb, ok := set.SidebarFor(d.ID); ok {
			in.Sidebar = set.Resolve(sb, locale, d.ID)
			in.Prev, in.Next = set.Neighbors(sb, locale, d.ID)
		}

		body, err := b.renderer.Doc(rc, in)
		if err != nil {
			return err
		}
		if err := pages.add(domain.NewPage(d.Route, fileFor(cfg, d.Route), locale, domain.KindDoc, htmlType, body)); err != nil {
			return err
		}
		groups[d.Route] = alts
	}

	notFound, err := b.renderer.NotFound(rc)
	if err != nil {
		return err
	}
	route := cfg.Route(locale, "/404.html")
	return pages.add(domain.NewPage(route, fileFor(cfg, route), locale, domain.KindNotFound, htmlType, notFound))
}

// addStatic turns every file of the static directory into an asset page
// served from the base URL.
func (b *Builder) addStatic(ctx context.Context, cfg site.Config, pages *pageSet) error {
	dir := b.opts.StaticDir
	if dir == "" {
		return nil
	}
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == dir {
				return fs.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		body, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		ct := mime.TypeByExtension(path.Ext(rel))
		if ct == "" {
			ct = "application/octet-stream"
		}
		return pages.add(domain.NewPage(cfg.Asset(rel), rel, "", domain.KindAsset, ct, body))
	})
	if err != nil {
		return fmt.Errorf("failed to copy static files: %w", err)
	}
	return nil
}

// checkLinks applies the broken link policies. Findings under non-throwing
// policies are returned as warnings.
func (b *Builder) checkLinks(cfg site.Config, set *docs.Set, pages []*domain.Page) ([]string, error) {
	var warnings []string

	md := make([]string, 0, len(set.BrokenMDLinks))
	for _, l := range set.BrokenMDLinks {
		md = append(md, fmt.Sprintf("[%s] %s -> %s", l.Locale, l.Source, l.Target))
	}
	if err := linkcheck.Apply(b.log, cfg.OnBrokenMarkdownLinks, "broken markdown links", md); err != nil {
		return nil, err
	}
	if cfg.OnBrokenMarkdownLinks != site.PolicyIgnore {
		warnings = append(warnings, md...)
	}

	checker, err := linkcheck.New(cfg.BaseURL, pages)
	if err != nil {
		return nil, err
	}
	broken := linkcheck.Strings(checker.Check())
	if err := linkcheck.Apply(b.log, cfg.OnBrokenLinks, "broken links", broken); err != nil {
		return nil, err
	}
	if cfg.OnBrokenLinks != site.PolicyIgnore {
		warnings = append(warnings, broken...)
	}
	return warnings, nil
}

// fileFor maps a route to its output file: directories get an index.html.
func fileFor(cfg site.Config, route string) string {
	rel := strings.TrimPrefix(route, cfg.BaseURL)
	if rel == "" || strings.HasSuffix(rel, "/") {
		return rel + "index.html"
	}
	if path.Ext(rel) != "" {
		return rel
	}
	return rel + "/index.html"
}

type pageSet struct {
	byRoute map[string]*domain.Page
	byFile  map[string]string
}

func newPageSet() *pageSet {
	return &pageSet{byRoute: map[string]*domain.Page{}, byFile: map[string]string{}}
}

func (s *pageSet) add(p *domain.Page) error {
	if other, dup := s.byRoute[p.Route]; dup {
		return fmt.Errorf("route %s is produced twice (%s and %s)", p.Route, other.Kind, p.Kind)
	}
	if other, dup := s.byFile[p.File]; dup {
		return fmt.Errorf("file %s is produced by %s and %s", p.File, other, p.Route)
	}
	s.byRoute[p.Route] = p
	s.byFile[p.File] = p.Route
	return nil
}

func (s *pageSet) sorted() []*domain.Page {
	out := make([]*domain.Page, 0, len(s.byRoute))
	for _, p := range s.byRoute {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Route < out[j].Route })
	return out
}
