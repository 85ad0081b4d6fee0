package docs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/scalapatisserie/muffin-site/internal/site"
)

// localeDocsDir is where a locale keeps translated copies of the docs,
// relative to the site source directory.
func localeDocsDir(sourceDir, locale string) string {
	return filepath.Join(sourceDir, "i18n", locale, "docs")
}

// Loader reads the docs tree for every configured locale.
type Loader struct {
	cfg       site.Config
	sourceDir string
	markdown  *Markdown
}

// NewLoader creates a docs loader. Relative paths in cfg are resolved
// against sourceDir.
func NewLoader(cfg site.Config, sourceDir string) *Loader {
	return &Loader{cfg: cfg, sourceDir: sourceDir, markdown: NewMarkdown()}
}

func (l *Loader) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(l.sourceDir, p)
}

type sourceFile struct {
	rel        string
	abs        string
	translated bool
}

// Load reads, renders and links every doc. A missing docs directory is not
// an error; the site then has a homepage only.
func (l *Loader) Load(ctx context.Context) (*Set, error) {
	set := &Set{ByLocale: map[string][]*Doc{}}

	docsDir := l.resolve(l.cfg.Docs.Path)
	base, err := collect(docsDir, false)
	if err != nil {
		return nil, err
	}

	for _, locale := range l.cfg.I18n.Locales {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		files := base
		if locale != l.cfg.I18n.DefaultLocale {
			overrides, err := collect(localeDocsDir(l.sourceDir, locale), true)
			if err != nil {
				return nil, err
			}
			files = merge(base, overrides)
		}

		docs, broken, err := l.loadLocale(locale, files)
		if err != nil {
			return nil, err
		}
		set.ByLocale[locale] = docs
		set.BrokenMDLinks = append(set.BrokenMDLinks, broken...)
	}

	sidebars, err := loadSidebars(l.resolve(l.cfg.Docs.SidebarPath))
	if err != nil {
		return nil, err
	}
	defaultDocs := set.ByLocale[l.cfg.I18n.DefaultLocale]
	if sidebars == nil {
		if len(defaultDocs) > 0 {
			sidebars = []Sidebar{{Name: "docs", Items: autogenerate(defaultDocs, "")}}
		}
	} else {
		for i := range sidebars {
			sidebars[i].Items = expandAutogenerated(sidebars[i].Items, defaultDocs)
		}
	}
	set.Sidebars = sidebars

	return set, nil
}

// collect lists the markdown files under dir, keyed by slash separated
// relative path.
func collect(dir string, translated bool) (map[string]sourceFile, error) {
	out := map[string]sourceFile{}
	if dir == "" {
		return out, nil
	}
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == dir {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			if p != dir && strings.HasPrefix(d.Name(), "_") {
				return fs.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(p)
		if ext != ".md" && ext != ".mdx" {
			return nil
		}
		if strings.HasPrefix(d.Name(), "_") {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		out[rel] = sourceFile{rel: rel, abs: p, translated: translated}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan docs in %s: %w", dir, err)
	}
	return out, nil
}

func merge(base, overrides map[string]sourceFile) map[string]sourceFile {
	out := make(map[string]sourceFile, len(base)+len(overrides))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

type parsedDoc struct {
	doc  *Doc
	body []byte
}

func (l *Loader) loadLocale(locale string, files map[string]sourceFile) ([]*Doc, []BrokenMarkdownLink, error) {
	parsed := make([]parsedDoc, 0, len(files))
	routes := make(map[string]string, len(files))
	seen := map[string]string{}

	for _, f := range files {
		src, err := os.ReadFile(f.abs)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read doc %s: %w", f.abs, err)
		}
		fm, body, err := splitFrontMatter(src)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", f.abs, err)
		}

		d := newDoc(locale, f, fm)
		d.Route = l.cfg.DocRoute(locale, d.Slug)
		if other, dup := seen[d.Route]; dup {
			return nil, nil, fmt.Errorf("docs %s and %s share the route %s", other, f.rel, d.Route)
		}
		seen[d.Route] = f.rel
		routes[f.rel] = d.Route
		parsed = append(parsed, parsedDoc{doc: d, body: body})
	}

	resolve := func(rel string) (string, bool) {
		r, ok := routes[rel]
		return r, ok
	}

	var broken []BrokenMarkdownLink
	docs := make([]*Doc, 0, len(parsed))
	for _, p := range parsed {
		out, err := l.markdown.render(p.doc.SourcePath, p.body, resolve)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to render %s: %w", p.doc.SourcePath, err)
		}
		p.doc.HTML = out.html
		p.doc.HasH1 = out.leadingH1
		if out.h1 != "" && p.doc.Title == "" {
			p.doc.Title = out.h1
		}
		if p.doc.Title == "" {
			p.doc.Title = path.Base(p.doc.ID)
		}
		if p.doc.SidebarLabel == "" {
			p.doc.SidebarLabel = p.doc.Title
		}
		for _, target := range out.broken {
			broken = append(broken, BrokenMarkdownLink{Locale: locale, Source: p.doc.SourcePath, Target: target})
		}
		docs = append(docs, p.doc)
	}

	sortDocs(docs)
	return docs, broken, nil
}

// newDoc derives the identity of a doc from its path and front matter.
func newDoc(locale string, f sourceFile, fm frontMatter) *Doc {
	dir := path.Dir(f.rel)
	if dir == "." {
		dir = ""
	}
	name := strings.TrimSuffix(path.Base(f.rel), path.Ext(f.rel))

	id := path.Join(dir, name)
	if fm.ID != "" {
		id = path.Join(dir, fm.ID)
	}

	slug := id
	switch {
	case fm.Slug != "" && strings.HasPrefix(fm.Slug, "/"):
		slug = fm.Slug
	case fm.Slug != "":
		slug = path.Join(dir, fm.Slug)
	case fm.ID == "" && (strings.EqualFold(name, "index") || strings.EqualFold(name, "readme")):
		slug = dir
	}

	d := &Doc{
		ID:           id,
		Locale:       locale,
		Title:        strings.TrimSpace(fm.Title),
		Description:  strings.TrimSpace(fm.Description),
		SidebarLabel: strings.TrimSpace(fm.SidebarLabel),
		Slug:         "/" + strings.Trim(slug, "/"),
		SourcePath:   f.rel,
		Translated:   f.translated,
	}
	if fm.SidebarPosition != nil {
		d.SidebarPosition = *fm.SidebarPosition
	}
	return d
}
