package site

import (
	"path"
	"strconv"
	"strings"
	"time"
)

// LocalePrefix is the route segment of a locale: empty for the default
// locale, "<locale>/" otherwise.
func (c Config) LocalePrefix(locale string) string {
	if locale == "" || locale == c.I18n.DefaultLocale {
		return ""
	}
	return locale + "/"
}

// Route maps a site-relative path to its served route for locale.
//
//	Route("ru", "/getting-started/installation") -> "/muffin/ru/getting-started/installation"
//	Route("en", "/")                             -> "/muffin/"
func (c Config) Route(locale, p string) string {
	p = strings.TrimPrefix(p, "/")
	return c.BaseURL + c.LocalePrefix(locale) + p
}

// DocRoute is the route of a doc slug below docs.routeBasePath.
func (c Config) DocRoute(locale, slug string) string {
	p := path.Join(c.Docs.RouteBasePath, strings.Trim(slug, "/"))
	if p == "/" {
		return c.Route(locale, "/")
	}
	return c.Route(locale, p)
}

// Asset maps a static file path to its route. Assets are shared by every
// locale. External URLs are returned unchanged.
func (c Config) Asset(p string) string {
	if p == "" || IsExternal(p) {
		return p
	}
	return c.BaseURL + strings.TrimPrefix(p, "/")
}

// Target resolves a link target: external URLs stay as they are, site paths
// become locale routes.
func (c Config) Target(locale, to string) string {
	if IsExternal(to) {
		return to
	}
	return c.Route(locale, to)
}

// AbsURL joins the site origin and a route.
func (c Config) AbsURL(route string) string {
	return c.URL + route
}

// IsExternal reports whether target points outside the site.
func IsExternal(target string) bool {
	lower := strings.ToLower(target)
	for _, prefix := range []string{"http://", "https://", "//", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// CopyrightAt renders the footer copyright for the year of t.
func (f Footer) CopyrightAt(t time.Time) string {
	return strings.ReplaceAll(f.Copyright, "{{year}}", strconv.Itoa(t.Year()))
}

// Locale returns the locale settings with defaults applied.
func (c Config) Locale(locale string) LocaleConfig {
	lc := c.I18n.LocaleConfigs[locale]
	if lc.HTMLLang == "" {
		lc.HTMLLang = locale
	}
	if lc.Direction == "" {
		lc.Direction = "ltr"
	}
	return lc
}
