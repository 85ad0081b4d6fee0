package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/scalapatisserie/muffin-site/internal/domain"
	"github.com/scalapatisserie/muffin-site/internal/linkcheck"
	"github.com/scalapatisserie/muffin-site/internal/logger"
	"github.com/scalapatisserie/muffin-site/internal/site"
)

type fakeRecorder struct {
	mu       sync.Mutex
	outcomes []string
	pages    []int
}

func (f *fakeRecorder) ObserveBuild(outcome string, _ time.Duration, pages int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, outcome)
	f.pages = append(f.pages, pages)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// newFixture lays out a minimal site: two docs, the logo and the custom CSS.
func newFixture(t *testing.T) (string, site.Config) {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "docs", "intro.md"), "---\nsidebar_position: 1\n---\n# Intro\n\nStart with [installation](getting-started/installation.md).\n")
	writeFile(t, filepath.Join(dir, "docs", "getting-started", "installation.md"), "---\nsidebar_position: 2\n---\n# Installation\n\n## sbt\n")
	writeFile(t, filepath.Join(dir, "static", "img", "logo.png"), "png")
	writeFile(t, filepath.Join(dir, "static", "css", "custom.css"), "body{}")

	cfg := site.Default()
	cfg.Docs.Path = "docs"
	return dir, cfg
}

func newBuilder(t *testing.T, dir string, cfg site.Config, rec Recorder) *Builder {
	t.Helper()
	b, err := NewBuilder(Options{
		Site:      site.Static(cfg),
		SourceDir: dir,
		StaticDir: filepath.Join(dir, "static"),
		Recorder:  rec,
		Now:       func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) },
	}, logger.NewNop())
	if err != nil {
		t.Fatalf("NewBuilder: %v", err)
	}
	return b
}

func TestBuild(t *testing.T) {
	dir, cfg := newFixture(t)
	rec := &fakeRecorder{}

	res, err := newBuilder(t, dir, cfg, rec).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	wantFiles := map[string]domain.Kind{
		"/muffin/":                                domain.KindHome,
		"/muffin/ru/":                             domain.KindHome,
		"/muffin/intro":                           domain.KindDoc,
		"/muffin/ru/intro":                        domain.KindDoc,
		"/muffin/getting-started/installation":    domain.KindDoc,
		"/muffin/ru/getting-started/installation": domain.KindDoc,
		"/muffin/404.html":                        domain.KindNotFound,
		"/muffin/ru/404.html":                     domain.KindNotFound,
		"/muffin/img/logo.png":                    domain.KindAsset,
		"/muffin/css/custom.css":                  domain.KindAsset,
		"/muffin/sitemap.xml":                     domain.KindSitemap,
	}
	if len(res.Pages) != len(wantFiles) {
		t.Fatalf("pages = %d, want %d", len(res.Pages), len(wantFiles))
	}
	for _, p := range res.Pages {
		kind, ok := wantFiles[p.Route]
		if !ok {
			t.Errorf("unexpected page %s", p.Route)
			continue
		}
		if p.Kind != kind {
			t.Errorf("%s kind = %s, want %s", p.Route, p.Kind, kind)
		}
		if p.BuildID != res.Info.ID {
			t.Errorf("%s build id = %s, want %s", p.Route, p.BuildID, res.Info.ID)
		}
	}
	if _, err := uuid.Parse(res.Info.ID); err != nil {
		t.Errorf("build id is not a uuid: %v", err)
	}
	if res.Info.Pages != len(res.Pages) || len(res.Info.Warnings) != 0 {
		t.Errorf("unexpected info: %+v", res.Info)
	}
	for i := 1; i < len(res.Pages); i++ {
		if res.Pages[i-1].Route >= res.Pages[i].Route {
			t.Fatal("pages must be sorted by route")
		}
	}

	if len(rec.outcomes) != 1 || rec.outcomes[0] != OutcomeSuccess || rec.pages[0] != len(res.Pages) {
		t.Errorf("recorder = %v %v", rec.outcomes, rec.pages)
	}
}

func TestBuildSitemap(t *testing.T) {
	dir, cfg := newFixture(t)
	res, err := newBuilder(t, dir, cfg, nil).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var sm *domain.Page
	for _, p := range res.Pages {
		if p.Kind == domain.KindSitemap {
			sm = p
		}
	}
	if sm == nil {
		t.Fatal("sitemap missing")
	}
	body := string(sm.Body)
	if got := strings.Count(body, "<loc>"); got != 6 {
		t.Errorf("sitemap urls = %d, want 6", got)
	}
	for _, want := range []string{
		"<loc>https://little-inferno.github.io/muffin/</loc>",
		"<lastmod>2024-05-01</lastmod>",
		`hreflang="ru" href="https://little-inferno.github.io/muffin/ru/intro"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("sitemap lacks %q", want)
		}
	}
	if strings.Contains(body, "404.html") {
		t.Error("404 pages must not be listed")
	}
}

func TestBuildBrokenLinksThrow(t *testing.T) {
	dir, cfg := newFixture(t)
	if err := os.Remove(filepath.Join(dir, "docs", "getting-started", "installation.md")); err != nil {
		t.Fatal(err)
	}
	cfg.OnBrokenMarkdownLinks = site.PolicyIgnore
	rec := &fakeRecorder{}

	_, err := newBuilder(t, dir, cfg, rec).Build(context.Background())
	if !errors.Is(err, linkcheck.ErrBrokenLinks) {
		t.Fatalf("expected broken links error, got %v", err)
	}
	if !strings.Contains(err.Error(), "/muffin/getting-started/installation") {
		t.Errorf("error must name the missing route: %v", err)
	}
	if rec.outcomes[0] != OutcomeFailure {
		t.Errorf("outcome = %s", rec.outcomes[0])
	}
}

func TestBuildBrokenLinksWarn(t *testing.T) {
	dir, cfg := newFixture(t)
	if err := os.Remove(filepath.Join(dir, "static", "css", "custom.css")); err != nil {
		t.Fatal(err)
	}
	cfg.OnBrokenLinks = site.PolicyWarn

	res, err := newBuilder(t, dir, cfg, nil).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(res.Info.Warnings) == 0 {
		t.Fatal("expected warnings for the missing stylesheet")
	}
	for _, w := range res.Info.Warnings {
		if !strings.Contains(w, "/muffin/css/custom.css") {
			t.Errorf("unexpected warning %q", w)
		}
	}
}

func TestBuildBrokenMarkdownLinks(t *testing.T) {
	dir, cfg := newFixture(t)
	writeFile(t, filepath.Join(dir, "docs", "extra.md"), "[gone](missing.md)\n")
	cfg.OnBrokenMarkdownLinks = site.PolicyThrow

	_, err := newBuilder(t, dir, cfg, nil).Build(context.Background())
	if !errors.Is(err, linkcheck.ErrBrokenLinks) || !strings.Contains(err.Error(), "missing.md") {
		t.Fatalf("expected broken markdown link error, got %v", err)
	}
}

func TestBuildCyrillicAnchors(t *testing.T) {
	dir, cfg := newFixture(t)
	writeFile(t, filepath.Join(dir, "i18n", "ru", "docs", "getting-started", "installation.md"),
		"# Установка\n\nСм. [sbt](#подключение-sbt).\n\n## Подключение sbt\n\n## Подключение sbt\n")

	res, err := newBuilder(t, dir, cfg, nil).Build(context.Background())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	var page *domain.Page
	for _, p := range res.Pages {
		if p.Route == "/muffin/ru/getting-started/installation" {
			page = p
		}
	}
	if page == nil {
		t.Fatal("russian installation page not built")
	}
	body := string(page.Body)
	for _, id := range []string{`id="установка"`, `id="подключение-sbt"`, `id="подключение-sbt-1"`} {
		if !strings.Contains(body, id) {
			t.Errorf("missing %s", id)
		}
	}
}

func TestBuildInvalidSite(t *testing.T) {
	dir, cfg := newFixture(t)
	cfg.Title = ""

	_, err := newBuilder(t, dir, cfg, nil).Build(context.Background())
	if !errors.Is(err, site.ErrInvalid) {
		t.Fatalf("expected invalid site error, got %v", err)
	}
}

func TestBuildCanceled(t *testing.T) {
	dir, cfg := newFixture(t)
	rec := &fakeRecorder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newBuilder(t, dir, cfg, rec).Build(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if rec.outcomes[0] != OutcomeCanceled {
		t.Errorf("outcome = %s", rec.outcomes[0])
	}
}

func TestNewBuilderRequiresSite(t *testing.T) {
	if _, err := NewBuilder(Options{}, logger.NewNop()); err == nil {
		t.Fatal("expected error")
	}
}

func TestFileFor(t *testing.T) {
	cfg := site.Default()
	tests := []struct {
		route string
		want  string
	}{
		{"/muffin/", "index.html"},
		{"/muffin/ru/", "ru/index.html"},
		{"/muffin/intro", "intro/index.html"},
		{"/muffin/ru/getting-started/installation", "ru/getting-started/installation/index.html"},
		{"/muffin/404.html", "404.html"},
		{"/muffin/sitemap.xml", "sitemap.xml"},
	}
	for _, tt := range tests {
		if got := fileFor(cfg, tt.route); got != tt.want {
			t.Errorf("fileFor(%q) = %q, want %q", tt.route, got, tt.want)
		}
	}
}

func TestWrite(t *testing.T) {
	out := filepath.Join(t.TempDir(), "build")

	first := []*domain.Page{
		domain.NewPage("/muffin/", "index.html", "en", domain.KindHome, htmlType, []byte("v1")),
		domain.NewPage("/muffin/intro", "intro/index.html", "en", domain.KindDoc, htmlType, []byte("intro")),
	}
	if err := Write(out, first); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(out, "intro", "index.html"))
	if err != nil || string(got) != "intro" {
		t.Fatalf("intro = %q, %v", got, err)
	}

	second := []*domain.Page{
		domain.NewPage("/muffin/", "index.html", "en", domain.KindHome, htmlType, []byte("v2")),
	}
	if err := Write(out, second); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ = os.ReadFile(filepath.Join(out, "index.html"))
	if string(got) != "v2" {
		t.Errorf("index = %q, want v2", got)
	}
	if _, err := os.Stat(filepath.Join(out, "intro")); !errors.Is(err, os.ErrNotExist) {
		t.Error("stale files must not survive a rewrite")
	}
	if _, err := os.Stat(out + ".prev"); err != nil {
		t.Errorf("previous output must be kept: %v", err)
	}
	if _, err := os.Stat(out + "_stage"); !errors.Is(err, os.ErrNotExist) {
		t.Error("staging directory must be gone")
	}
}

func TestWriteBackupFailureRemovesStage(t *testing.T) {
	out := filepath.Join(t.TempDir(), "build")
	page := domain.NewPage("/muffin/", "index.html", "en", domain.KindHome, htmlType, []byte("v1"))
	if err := Write(out, []*domain.Page{page}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	orig := rename
	t.Cleanup(func() { rename = orig })
	rename = func(from, to string) error {
		if from == out {
			return errors.New("device busy")
		}
		return orig(from, to)
	}

	if err := Write(out, []*domain.Page{page}); err == nil || !strings.Contains(err.Error(), "back up") {
		t.Fatalf("expected backup error, got %v", err)
	}
	if _, err := os.Stat(out + "_stage"); !errors.Is(err, os.ErrNotExist) {
		t.Error("staging directory must be removed after a failed backup")
	}
	if got, _ := os.ReadFile(filepath.Join(out, "index.html")); string(got) != "v1" {
		t.Errorf("existing output must be untouched, got %q", got)
	}
}

func TestWriteRejectsEscapingPaths(t *testing.T) {
	out := filepath.Join(t.TempDir(), "build")
	pages := []*domain.Page{domain.NewPage("/muffin/x", "../x", "", domain.KindAsset, "text/plain", nil)}
	if err := Write(out, pages); err == nil {
		t.Fatal("expected error")
	}
}
