package site

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
	if cfg.Title == "" || cfg.Tagline == "" {
		t.Error("default title and tagline must not be empty")
	}
	if !cfg.HasLocale(cfg.I18n.DefaultLocale) {
		t.Errorf("default locale %q missing from %v", cfg.I18n.DefaultLocale, cfg.I18n.Locales)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantMsg string
	}{
		{name: "empty title", mutate: func(c *Config) { c.Title = "  " }, wantMsg: "title must not be empty"},
		{name: "empty tagline", mutate: func(c *Config) { c.Tagline = "" }, wantMsg: "tagline must not be empty"},
		{name: "default locale not declared", mutate: func(c *Config) { c.I18n.Locales = []string{"ru"} }, wantMsg: "must contain the default locale"},
		{name: "duplicate locale", mutate: func(c *Config) { c.I18n.Locales = []string{"en", "ru", "ru"} }, wantMsg: "duplicate locale"},
		{name: "relative url", mutate: func(c *Config) { c.URL = "little-inferno.github.io" }, wantMsg: "absolute http(s) URL"},
		{name: "url with path", mutate: func(c *Config) { c.URL = "https://example.com/muffin" }, wantMsg: "must not contain a path"},
		{name: "base url without trailing slash", mutate: func(c *Config) { c.BaseURL = "/muffin" }, wantMsg: "baseUrl"},
		{name: "unknown policy", mutate: func(c *Config) { c.OnBrokenLinks = "explode" }, wantMsg: "onBrokenLinks"},
		{name: "three hero buttons", mutate: func(c *Config) {
			c.Homepage.Buttons = append(c.Homepage.Buttons, Link{Label: "Blog", To: "/blog"})
		}, wantMsg: "want 2 buttons"},
		{name: "one badge", mutate: func(c *Config) { c.Homepage.Badges = c.Homepage.Badges[:1] }, wantMsg: "want 2 badges"},
		{name: "nav item without target", mutate: func(c *Config) {
			c.ThemeConfig.Navbar.Items = append(c.ThemeConfig.Navbar.Items, NavItem{Label: "Docs"})
		}, wantMsg: "needs href or to"},
		{name: "translations for unknown locale", mutate: func(c *Config) {
			c.Translations = map[string]map[string]string{"de": {"home.docs": "Doku"}}
		}, wantMsg: `"de" is not a declared locale`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			cfg.Normalize()

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() should fail")
			}
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() error should wrap ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Validate() error = %q, want it to contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestNormalizeFillsLocales(t *testing.T) {
	cfg := Default()
	cfg.I18n.Locales = nil
	cfg.Docs.RouteBasePath = "docs/"
	cfg.OnBrokenLinks = " WARN "
	cfg.Normalize()

	if len(cfg.I18n.Locales) != 1 || cfg.I18n.Locales[0] != "en" {
		t.Errorf("Locales = %v, want [en]", cfg.I18n.Locales)
	}
	if cfg.Docs.RouteBasePath != "/docs" {
		t.Errorf("RouteBasePath = %q, want /docs", cfg.Docs.RouteBasePath)
	}
	if cfg.OnBrokenLinks != PolicyWarn {
		t.Errorf("OnBrokenLinks = %q, want warn", cfg.OnBrokenLinks)
	}
}

func TestLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.yaml")
	t.Setenv("MUFFIN_TEST_ORG", "patisserie")

	content := `
title: Muffin Docs
organizationName: ${MUFFIN_TEST_ORG}
i18n:
  defaultLocale: en
  locales: [en, ru]
  localeConfigs:
    ru:
      label: Русский
translations:
  ru:
    home.docs: Документация
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write site file: %v", err)
	}

	cfg, err := NewLoader(path, false).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Title != "Muffin Docs" {
		t.Errorf("Title = %q, want Muffin Docs", cfg.Title)
	}
	if cfg.Tagline != Default().Tagline {
		t.Errorf("Tagline = %q, want the default tagline", cfg.Tagline)
	}
	if cfg.OrganizationName != "patisserie" {
		t.Errorf("OrganizationName = %q, want patisserie", cfg.OrganizationName)
	}
	if got := cfg.Locale("ru").Label; got != "Русский" {
		t.Errorf("ru label = %q", got)
	}
	if got := cfg.Translations["ru"]["home.docs"]; got != "Документация" {
		t.Errorf("ru translation = %q", got)
	}
}

func TestLoaderRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yaml")
	if err := os.WriteFile(path, []byte("titel: typo\n"), 0o644); err != nil {
		t.Fatalf("write site file: %v", err)
	}
	if _, err := NewLoader(path, false).Load(); err == nil {
		t.Error("Load() should reject unknown keys")
	}
}

func TestLoaderMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")

	if _, err := NewLoader(path, false).Load(); err == nil {
		t.Error("Load() with a missing required file should fail")
	}

	cfg, err := NewLoader(path, true).Load()
	if err != nil {
		t.Fatalf("Load() with allowMissing error = %v", err)
	}
	if cfg.Title != "Muffin" {
		t.Errorf("Title = %q, want the default", cfg.Title)
	}
}

func TestLoaderEmptyFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.yaml")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write site file: %v", err)
	}
	if _, err := NewLoader(path, false).Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestRoutes(t *testing.T) {
	cfg := Default()
	cfg.Normalize()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{name: "default locale home", got: cfg.Route("en", "/"), want: "/muffin/"},
		{name: "other locale home", got: cfg.Route("ru", "/"), want: "/muffin/ru/"},
		{name: "default locale page", got: cfg.Route("en", "/getting-started/installation"), want: "/muffin/getting-started/installation"},
		{name: "other locale page", got: cfg.Route("ru", "getting-started/installation"), want: "/muffin/ru/getting-started/installation"},
		{name: "doc route at root", got: cfg.DocRoute("en", "intro"), want: "/muffin/intro"},
		{name: "asset", got: cfg.Asset("img/logo.png"), want: "/muffin/img/logo.png"},
		{name: "external asset", got: cfg.Asset("https://img.shields.io/x.svg"), want: "https://img.shields.io/x.svg"},
		{name: "external target", got: cfg.Target("ru", GithubRepository), want: GithubRepository},
		{name: "internal target", got: cfg.Target("ru", "/getting-started/installation"), want: "/muffin/ru/getting-started/installation"},
		{name: "absolute url", got: cfg.AbsURL("/muffin/"), want: "https://little-inferno.github.io/muffin/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}

	cfg.Docs.RouteBasePath = "/docs"
	if got := cfg.DocRoute("ru", "/intro/"); got != "/muffin/ru/docs/intro" {
		t.Errorf("DocRoute with base path = %q", got)
	}
}

func TestCopyrightAt(t *testing.T) {
	f := Default().ThemeConfig.Footer
	got := f.CopyrightAt(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	want := "Copyright © 2022 - 2026 Muffin<br>Built with muffin-site."
	if got != want {
		t.Errorf("CopyrightAt() = %q, want %q", got, want)
	}
}
