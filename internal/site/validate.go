package site

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalid marks every site configuration validation failure.
var ErrInvalid = errors.New("invalid site configuration")

// HeroButtons and HeroBadges are the fixed shape of the homepage hero.
const (
	HeroButtons = 2
	HeroBadges  = 2
)

// Normalize trims values and fills derivable fields. It is idempotent.
func (c *Config) Normalize() {
	c.Title = strings.TrimSpace(c.Title)
	c.Tagline = strings.TrimSpace(c.Tagline)
	c.URL = strings.TrimRight(strings.TrimSpace(c.URL), "/")
	c.BaseURL = strings.TrimSpace(c.BaseURL)

	c.OnBrokenLinks = normalizePolicy(c.OnBrokenLinks, PolicyThrow)
	c.OnBrokenMarkdownLinks = normalizePolicy(c.OnBrokenMarkdownLinks, PolicyWarn)

	c.I18n.DefaultLocale = strings.TrimSpace(c.I18n.DefaultLocale)
	locales := make([]string, 0, len(c.I18n.Locales))
	for _, l := range c.I18n.Locales {
		if l = strings.TrimSpace(l); l != "" {
			locales = append(locales, l)
		}
	}
	if len(locales) == 0 && c.I18n.DefaultLocale != "" {
		locales = []string{c.I18n.DefaultLocale}
	}
	c.I18n.Locales = locales

	rb := strings.TrimSpace(c.Docs.RouteBasePath)
	rb = "/" + strings.Trim(rb, "/")
	c.Docs.RouteBasePath = rb
}

func normalizePolicy(p, def string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		return def
	}
	return p
}

// Validate reports every problem at once, each wrapping ErrInvalid.
func (c Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Title == "" {
		fail("title must not be empty")
	}
	if c.Tagline == "" {
		fail("tagline must not be empty")
	}

	if u, err := url.Parse(c.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		fail("url %q must be an absolute http(s) URL", c.URL)
	} else if u.Path != "" {
		fail("url %q must not contain a path, use baseUrl", c.URL)
	}
	if !strings.HasPrefix(c.BaseURL, "/") || !strings.HasSuffix(c.BaseURL, "/") {
		fail("baseUrl %q must start and end with '/'", c.BaseURL)
	}

	if !validPolicy(c.OnBrokenLinks) {
		fail("onBrokenLinks %q must be one of ignore, log, warn, throw", c.OnBrokenLinks)
	}
	if !validPolicy(c.OnBrokenMarkdownLinks) {
		fail("onBrokenMarkdownLinks %q must be one of ignore, log, warn, throw", c.OnBrokenMarkdownLinks)
	}

	if c.I18n.DefaultLocale == "" {
		fail("i18n.defaultLocale must not be empty")
	} else if !c.HasLocale(c.I18n.DefaultLocale) {
		fail("i18n.locales %v must contain the default locale %q", c.I18n.Locales, c.I18n.DefaultLocale)
	}
	seen := make(map[string]bool, len(c.I18n.Locales))
	for _, l := range c.I18n.Locales {
		if seen[l] {
			fail("i18n.locales: duplicate locale %q", l)
		}
		seen[l] = true
		if strings.ContainsAny(l, "/ ") {
			fail("i18n.locales: locale %q must be a single path segment", l)
		}
	}
	for l := range c.I18n.LocaleConfigs {
		if !seen[l] {
			fail("i18n.localeConfigs: %q is not a declared locale", l)
		}
	}
	for l := range c.Translations {
		if !seen[l] {
			fail("translations: %q is not a declared locale", l)
		}
	}

	for i, item := range c.ThemeConfig.Navbar.Items {
		if item.Type == "localeDropdown" {
			continue
		}
		if item.Href == "" && item.To == "" {
			fail("themeConfig.navbar.items[%d] needs href or to", i)
		}
	}

	if n := len(c.Homepage.Buttons); n != HeroButtons {
		fail("homepage.buttons: want %d buttons, got %d", HeroButtons, n)
	}
	for i, b := range c.Homepage.Buttons {
		if b.To == "" || (b.Label == "" && b.LabelKey == "") {
			fail("homepage.buttons[%d] needs a label and a target", i)
		}
	}
	if n := len(c.Homepage.Badges); n != HeroBadges {
		fail("homepage.badges: want %d badges, got %d", HeroBadges, n)
	}
	for i, b := range c.Homepage.Badges {
		if b.Src == "" || b.Alt == "" {
			fail("homepage.badges[%d] needs alt and src", i)
		}
	}

	return errors.Join(errs...)
}

func validPolicy(p string) bool {
	switch p {
	case PolicyIgnore, PolicyLog, PolicyWarn, PolicyThrow:
		return true
	}
	return false
}

// HasLocale reports whether locale is declared.
func (c Config) HasLocale(locale string) bool {
	for _, l := range c.I18n.Locales {
		if l == locale {
			return true
		}
	}
	return false
}
