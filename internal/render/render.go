// Package render turns the site configuration and the loaded docs into HTML
// pages. Rendering is pure: the same Context and inputs always produce the
// same bytes.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/scalapatisserie/muffin-site/internal/docs"
	"github.com/scalapatisserie/muffin-site/internal/i18n"
	"github.com/scalapatisserie/muffin-site/internal/site"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var pageTemplates = []string{"home", "doc", "notfound"}

type navItem struct {
	View *View
	Link NavLink
}

var funcs = template.FuncMap{
	"navCtx": func(v *View, l NavLink) navItem { return navItem{View: v, Link: l} },
}

// Context is everything a page render depends on besides the page itself.
type Context struct {
	Site   site.Config
	Locale string
	Bundle *i18n.Bundle
	// Now only feeds the {{year}} placeholder of the footer.
	Now time.Time
	// LiveReload is the websocket route injected into every page; empty
	// disables the client script.
	LiveReload string
}

// Renderer executes the embedded page templates.
type Renderer struct {
	pages  map[string]*template.Template
	footer *bluemonday.Policy
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	base, err := template.New("layout.tmpl").Funcs(funcs).ParseFS(templateFS, "templates/layout.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageTemplates))
	for _, name := range pageTemplates {
		clone, err := base.Clone()
		if err != nil {
			return nil, err
		}
		t, err := clone.ParseFS(templateFS, "templates/"+name+".tmpl")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		pages[name] = t
	}

	footer := bluemonday.NewPolicy()
	footer.AllowElements("br", "b", "strong", "em", "span")
	footer.AllowAttrs("href").OnElements("a")
	footer.AllowStandardURLs()

	return &Renderer{pages: pages, footer: footer}, nil
}

func (r *Renderer) execute(name string, v *View) ([]byte, error) {
	t, ok := r.pages[name]
	if !ok {
		return nil, fmt.Errorf("unknown template %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// HomeData is the hero banner of the homepage.
type HomeData struct {
	Title   string
	Tagline string
	Buttons []Button
	Badges  []site.Badge
}

// Button is a resolved homepage navigation button.
type Button struct {
	Label     string
	Href      string
	ClassName string
	External  bool
}

// Home renders the landing page of ctx.Locale.
func (r *Renderer) Home(ctx Context) ([]byte, error) {
	ctx = ctx.normalize()
	cfg := ctx.Site
	home := HomeData{
		Title:   ctx.text("home.title", cfg.Title),
		Tagline: ctx.text("home.tagline", cfg.Tagline),
	}
	for _, b := range cfg.Homepage.Buttons {
		label := b.Label
		if b.LabelKey != "" {
			if t := ctx.Bundle.T(ctx.Locale, b.LabelKey); t != b.LabelKey {
				label = t
			}
		}
		home.Buttons = append(home.Buttons, Button{
			Label:     label,
			Href:      cfg.Target(ctx.Locale, b.To),
			ClassName: b.ClassName,
			External:  site.IsExternal(b.To),
		})
	}
	for _, b := range cfg.Homepage.Badges {
		home.Badges = append(home.Badges, site.Badge{Alt: b.Alt, Src: cfg.Asset(b.Src)})
	}

	alternates := make(map[string]string, len(cfg.I18n.Locales))
	for _, l := range cfg.I18n.Locales {
		alternates[l] = cfg.Route(l, "/")
	}

	v := r.newView(ctx, "home", cfg.Route(ctx.Locale, "/"), alternates)
	v.Title = home.Title
	v.Description = home.Tagline
	v.Page = home
	return r.execute("home", v)
}

// DocData is the body of a documentation page.
type DocData struct {
	Doc       *docs.Doc
	Sidebar   []docs.NavEntry
	Prev      *docs.Doc
	Next      *docs.Doc
	ShowTitle bool
}

// DocInput is a doc together with its navigation.
type DocInput struct {
	Doc     *docs.Doc
	Sidebar []docs.NavEntry
	Prev    *docs.Doc
	Next    *docs.Doc
	// Alternates maps locale to the route of the same doc.
	Alternates map[string]string
}

// Doc renders a documentation page.
func (r *Renderer) Doc(ctx Context, in DocInput) ([]byte, error) {
	if in.Doc == nil {
		return nil, fmt.Errorf("doc is required")
	}
	ctx = ctx.normalize()
	cfg := ctx.Site

	v := r.newView(ctx, "doc", in.Doc.Route, in.Alternates)
	v.Title = in.Doc.Title + " | " + cfg.Title
	v.Description = in.Doc.Description
	v.JSONLD = append(v.JSONLD, jsonLD(breadcrumbList([]breadcrumb{
		{Name: cfg.Title, Item: cfg.AbsURL(cfg.Route(ctx.Locale, "/"))},
		{Name: in.Doc.Title, Item: cfg.AbsURL(in.Doc.Route)},
	})))
	v.Page = DocData{
		Doc:       in.Doc,
		Sidebar:   in.Sidebar,
		Prev:      in.Prev,
		Next:      in.Next,
		ShowTitle: !in.Doc.HasH1,
	}
	return r.execute("doc", v)
}

// NotFound renders the 404 page of ctx.Locale. It carries no canonical URL
// and is not indexed.
func (r *Renderer) NotFound(ctx Context) ([]byte, error) {
	ctx = ctx.normalize()
	v := r.newView(ctx, "notfound", "", nil)
	v.Title = ctx.Bundle.T(ctx.Locale, "notfound.title") + " | " + ctx.Site.Title
	v.NoIndex = true
	v.JSONLD = nil
	return r.execute("notfound", v)
}

func (ctx Context) text(key, fallback string) string {
	if ctx.Bundle != nil && ctx.Bundle.Has(ctx.Locale, key) {
		return ctx.Bundle.T(ctx.Locale, key)
	}
	return fallback
}
