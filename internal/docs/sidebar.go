package docs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Sidebar item types.
const (
	ItemDoc           = "doc"
	ItemCategory      = "category"
	ItemLink          = "link"
	ItemAutogenerated = "autogenerated"
)

// Sidebar is a named tree of navigation items.
type Sidebar struct {
	Name  string
	Items []SidebarItem
}

// SidebarItem is a doc reference, a category, an external link or an
// autogenerated block expanded at load time.
type SidebarItem struct {
	Type    string        `yaml:"type"`
	ID      string        `yaml:"id"`
	Label   string        `yaml:"label"`
	Href    string        `yaml:"href"`
	DirName string        `yaml:"dirName"`
	Items   []SidebarItem `yaml:"items"`
}

// UnmarshalYAML accepts both the short form (a bare doc id) and the mapping
// form.
func (it *SidebarItem) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*it = SidebarItem{Type: ItemDoc, ID: node.Value}
		return nil
	}
	type plain SidebarItem
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*it = SidebarItem(p)
	if it.Type == "" {
		switch {
		case len(it.Items) > 0:
			it.Type = ItemCategory
		case it.Href != "":
			it.Type = ItemLink
		default:
			it.Type = ItemDoc
		}
	}
	return nil
}

// Contains reports whether the sidebar links doc id anywhere in its tree.
func (s Sidebar) Contains(id string) bool {
	for _, d := range s.DocIDs() {
		if d == id {
			return true
		}
	}
	return false
}

// DocIDs lists the referenced doc IDs in reading order.
func (s Sidebar) DocIDs() []string {
	var out []string
	var walk func(items []SidebarItem)
	walk = func(items []SidebarItem) {
		for _, it := range items {
			switch it.Type {
			case ItemDoc:
				out = append(out, it.ID)
			case ItemCategory:
				walk(it.Items)
			}
		}
	}
	walk(s.Items)
	return out
}

// loadSidebars reads a sidebars file. A missing file yields (nil, nil) and
// the caller autogenerates a single sidebar instead.
func loadSidebars(file string) ([]Sidebar, error) {
	if file == "" {
		return nil, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read sidebars %s: %w", file, err)
	}

	var raw map[string][]SidebarItem
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse sidebars %s: %w", file, err)
	}

	out := make([]Sidebar, 0, len(raw))
	for name, items := range raw {
		out = append(out, Sidebar{Name: name, Items: items})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// expandAutogenerated replaces autogenerated items with the generated tree
// of their directory.
func expandAutogenerated(items []SidebarItem, docs []*Doc) []SidebarItem {
	out := make([]SidebarItem, 0, len(items))
	for _, it := range items {
		switch it.Type {
		case ItemAutogenerated:
			out = append(out, autogenerate(docs, strings.Trim(it.DirName, "/."))...)
		case ItemCategory:
			it.Items = expandAutogenerated(it.Items, docs)
			out = append(out, it)
		default:
			out = append(out, it)
		}
	}
	return out
}

// autogenerate builds items for the docs under dir: files first by
// position, then one category per subdirectory.
func autogenerate(docs []*Doc, dir string) []SidebarItem {
	var files []*Doc
	subdirs := map[string]float64{}

	for _, d := range docs {
		docDir := path.Dir(d.SourcePath)
		if docDir == "." {
			docDir = ""
		}
		switch {
		case docDir == dir:
			files = append(files, d)
		case dir == "" || strings.HasPrefix(docDir, dir+"/"):
			rel := strings.TrimPrefix(strings.TrimPrefix(docDir, dir), "/")
			top := strings.SplitN(rel, "/", 2)[0]
			sub := path.Join(dir, top)
			if pos, ok := subdirs[sub]; !ok || d.SidebarPosition < pos {
				subdirs[sub] = d.SidebarPosition
			}
		}
	}

	sortDocs(files)
	items := make([]SidebarItem, 0, len(files)+len(subdirs))
	for _, d := range files {
		items = append(items, SidebarItem{Type: ItemDoc, ID: d.ID})
	}

	names := make([]string, 0, len(subdirs))
	for name := range subdirs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if subdirs[names[i]] != subdirs[names[j]] {
			return subdirs[names[i]] < subdirs[names[j]]
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		items = append(items, SidebarItem{
			Type:  ItemCategory,
			Label: categoryLabel(path.Base(name)),
			Items: autogenerate(docs, name),
		})
	}
	return items
}

// categoryLabel turns "getting-started" into "Getting started".
func categoryLabel(dir string) string {
	s := strings.NewReplacer("-", " ", "_", " ").Replace(dir)
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// NavEntry is a sidebar item resolved for one locale and one active page.
type NavEntry struct {
	Label    string
	Href     string
	Active   bool
	External bool
	Items    []NavEntry
}

// Category reports whether the entry groups other entries.
func (e NavEntry) Category() bool { return len(e.Items) > 0 }

// Resolve turns the sidebar into navigation entries for locale. Doc
// references missing from the locale are skipped.
func (s *Set) Resolve(sb Sidebar, locale, activeID string) []NavEntry {
	var walk func(items []SidebarItem) []NavEntry
	walk = func(items []SidebarItem) []NavEntry {
		var out []NavEntry
		for _, it := range items {
			switch it.Type {
			case ItemDoc:
				d, ok := s.Lookup(locale, it.ID)
				if !ok {
					continue
				}
				label := it.Label
				if label == "" {
					label = d.SidebarLabel
				}
				out = append(out, NavEntry{Label: label, Href: d.Route, Active: d.ID == activeID})
			case ItemCategory:
				children := walk(it.Items)
				if len(children) == 0 {
					continue
				}
				e := NavEntry{Label: it.Label, Items: children}
				for _, c := range children {
					if c.Active {
						e.Active = true
					}
				}
				out = append(out, e)
			case ItemLink:
				out = append(out, NavEntry{Label: it.Label, Href: it.Href, External: true})
			}
		}
		return out
	}
	return walk(sb.Items)
}

// Neighbors returns the docs before and after id in sidebar order.
func (s *Set) Neighbors(sb Sidebar, locale, id string) (prev, next *Doc) {
	var ordered []*Doc
	for _, docID := range sb.DocIDs() {
		if d, ok := s.Lookup(locale, docID); ok {
			ordered = append(ordered, d)
		}
	}
	for i, d := range ordered {
		if d.ID != id {
			continue
		}
		if i > 0 {
			prev = ordered[i-1]
		}
		if i+1 < len(ordered) {
			next = ordered[i+1]
		}
		return prev, next
	}
	return nil, nil
}
