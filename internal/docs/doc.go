// Package docs loads the markdown documentation of the site: front matter,
// localized overrides, markdown rendering and sidebars.
package docs

import (
	"html/template"
	"sort"
)

// Doc is one rendered documentation page in one locale.
type Doc struct {
	ID          string
	Locale      string
	Title       string
	Description string
	// SidebarLabel falls back to Title when the front matter has none.
	SidebarLabel    string
	SidebarPosition float64
	Slug            string
	Route           string
	SourcePath      string // relative to the docs root, slash separated
	Translated      bool   // true when the locale provides its own file
	HasH1           bool   // body starts with its own heading
	HTML            template.HTML
}

// BrokenMarkdownLink is a link to a .md file that no doc answers to.
type BrokenMarkdownLink struct {
	Locale string
	Source string
	Target string
}

// Set is the outcome of loading the docs for every locale.
type Set struct {
	ByLocale      map[string][]*Doc
	Sidebars      []Sidebar
	BrokenMDLinks []BrokenMarkdownLink
}

// Docs returns the docs of a locale in sidebar-independent order.
func (s *Set) Docs(locale string) []*Doc {
	return s.ByLocale[locale]
}

// Lookup finds a doc by ID in a locale.
func (s *Set) Lookup(locale, id string) (*Doc, bool) {
	for _, d := range s.ByLocale[locale] {
		if d.ID == id {
			return d, true
		}
	}
	return nil, false
}

// SidebarFor returns the first sidebar referencing id, sidebars being
// ordered by name.
func (s *Set) SidebarFor(id string) (Sidebar, bool) {
	for _, sb := range s.Sidebars {
		if sb.Contains(id) {
			return sb, true
		}
	}
	return Sidebar{}, false
}

func sortDocs(docs []*Doc) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := docs[i], docs[j]
		if a.SidebarPosition != b.SidebarPosition {
			return a.SidebarPosition < b.SidebarPosition
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.SourcePath < b.SourcePath
	})
}
