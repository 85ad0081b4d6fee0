package render

import (
	"html/template"
	"sort"
	"strings"

	"github.com/scalapatisserie/muffin-site/internal/i18n"
	"github.com/scalapatisserie/muffin-site/internal/site"
)

// Alternate is an hreflang link to the same page in another locale.
type Alternate struct {
	Hreflang string
	Href     string
}

// NavLink is a resolved navbar item.
type NavLink struct {
	Label     string
	Href      string
	ClassName string
	AriaLabel string
	External  bool
	Locales   bool // placeholder for the locale dropdown
}

// LocaleLink is one entry of the locale dropdown.
type LocaleLink struct {
	Locale string
	Label  string
	Href   string
	Active bool
}

// View is the data every page template receives.
type View struct {
	Kind        string
	Lang        string
	Dir         string
	Title       string
	Description string
	Canonical   string
	NoIndex     bool
	Alternates  []Alternate
	OGImage     string
	JSONLD      []template.JS

	SiteTitle      string
	HomeHref       string
	Favicon        string
	CustomCSS      string
	PrismTheme     string
	PrismDarkTheme string
	Logo           site.Logo
	NavLeft        []NavLink
	NavRight       []NavLink
	Locales        []LocaleLink
	FooterStyle    string
	Copyright      template.HTML
	LiveReload     string

	Page any

	bundle *i18n.Bundle
	locale string
}

// T translates a UI string for the page locale.
func (v *View) T(key string) string {
	return v.bundle.T(v.locale, key)
}

func (ctx Context) normalize() Context {
	if ctx.Locale == "" {
		ctx.Locale = ctx.Site.I18n.DefaultLocale
	}
	if ctx.Bundle == nil {
		ctx.Bundle = i18n.NewBundle(ctx.Site.I18n.DefaultLocale, ctx.Site.Translations)
	}
	return ctx
}

// newView fills the layout data shared by every page. route is the page
// route in ctx.Locale (empty for pages without a canonical URL) and
// alternates maps locales to the same page in that locale.
func (r *Renderer) newView(ctx Context, kind, route string, alternates map[string]string) *View {
	cfg := ctx.Site
	lc := cfg.Locale(ctx.Locale)
	tc := cfg.ThemeConfig

	v := &View{
		Kind:           kind,
		Lang:           lc.HTMLLang,
		Dir:            lc.Direction,
		SiteTitle:      cfg.Title,
		HomeHref:       cfg.Route(ctx.Locale, "/"),
		Favicon:        cfg.Asset(cfg.Favicon),
		CustomCSS:      cfg.Asset(cfg.Theme.CustomCSS),
		PrismTheme:     tc.Prism.Theme,
		PrismDarkTheme: tc.Prism.DarkTheme,
		Logo:           site.Logo{Alt: tc.Navbar.Logo.Alt, Src: cfg.Asset(tc.Navbar.Logo.Src)},
		FooterStyle:    tc.Footer.Style,
		Copyright:      template.HTML(r.footer.Sanitize(tc.Footer.CopyrightAt(ctx.Now))),
		LiveReload:     ctx.LiveReload,
		bundle:         ctx.Bundle,
		locale:         ctx.Locale,
	}
	v.OGImage = absAsset(cfg, tc.Image)
	if route != "" {
		v.Canonical = cfg.AbsURL(route)
	}

	for _, l := range cfg.I18n.Locales {
		href, ok := alternates[l]
		if !ok {
			href = cfg.Route(l, "/")
		}
		label := cfg.Locale(l).Label
		if label == "" {
			label = i18n.DisplayName(l)
		}
		v.Locales = append(v.Locales, LocaleLink{Locale: l, Label: label, Href: href, Active: l == ctx.Locale})
		if ok {
			v.Alternates = append(v.Alternates, Alternate{Hreflang: cfg.Locale(l).HTMLLang, Href: cfg.AbsURL(href)})
		}
	}
	if def, ok := alternates[cfg.I18n.DefaultLocale]; ok {
		v.Alternates = append(v.Alternates, Alternate{Hreflang: "x-default", Href: cfg.AbsURL(def)})
	}
	sort.SliceStable(v.Alternates, func(i, j int) bool {
		return v.Alternates[i].Hreflang < v.Alternates[j].Hreflang
	})

	for _, item := range tc.Navbar.Items {
		link := NavLink{
			Label:     item.Label,
			ClassName: item.ClassName,
			AriaLabel: item.AriaLabel,
		}
		switch {
		case item.Type == "localeDropdown":
			link.Locales = true
			if link.Label == "" {
				link.Label = v.T("nav.locale")
			}
		case item.Href != "":
			link.Href = item.Href
			link.External = site.IsExternal(item.Href)
			// icon-only repository links still need an accessible name
			if link.Label == "" && link.AriaLabel == "" && strings.Contains(item.Href, "github.com") {
				link.AriaLabel = v.T("nav.github")
			}
		default:
			link.Href = cfg.Target(ctx.Locale, item.To)
			link.External = site.IsExternal(item.To)
		}
		if item.Position == "right" {
			v.NavRight = append(v.NavRight, link)
		} else {
			v.NavLeft = append(v.NavLeft, link)
		}
	}

	v.JSONLD = []template.JS{
		jsonLD(organization(cfg.OrganizationName, cfg.URL, absAsset(cfg, tc.Navbar.Logo.Src))),
		jsonLD(webSite(cfg.Title, cfg.AbsURL(cfg.Route(ctx.Locale, "/")), lc.HTMLLang)),
	}
	return v
}

func absAsset(cfg site.Config, p string) string {
	if p == "" || site.IsExternal(p) {
		return p
	}
	return cfg.AbsURL(cfg.Asset(p))
}
