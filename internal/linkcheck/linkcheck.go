// Package linkcheck verifies the internal links of a rendered site.
package linkcheck

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/scalapatisserie/muffin-site/internal/domain"
	"github.com/scalapatisserie/muffin-site/internal/logger"
	"github.com/scalapatisserie/muffin-site/internal/site"
)

// ErrBrokenLinks is returned when the throw policy meets a broken link.
var ErrBrokenLinks = errors.New("broken links")

// Broken is one unresolved reference found in a page.
type Broken struct {
	Source string // route of the page holding the link
	Target string // reference as written
	Reason string
}

func (b Broken) String() string {
	return fmt.Sprintf("%s -> %s (%s)", b.Source, b.Target, b.Reason)
}

type target struct {
	ids map[string]struct{}
}

// Checker resolves links against the pages of one build.
type Checker struct {
	base    string
	targets map[string]*target
	docs    map[string]*goquery.Document
}

// New indexes pages. HTML pages are parsed once for both their links and
// their anchors.
func New(baseURL string, pages []*domain.Page) (*Checker, error) {
	c := &Checker{
		base:    baseURL,
		targets: make(map[string]*target, len(pages)),
		docs:    map[string]*goquery.Document{},
	}
	for _, p := range pages {
		t := &target{}
		if p.IsHTML() {
			doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
			if err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", p.Route, err)
			}
			t.ids = collectIDs(doc)
			if p.Kind != domain.KindNotFound {
				c.docs[p.Route] = doc
			}
		}
		c.targets[p.Route] = t
	}
	return c, nil
}

func collectIDs(doc *goquery.Document) map[string]struct{} {
	ids := map[string]struct{}{}
	doc.Find("[id]").Each(func(_ int, s *goquery.Selection) {
		if id, ok := s.Attr("id"); ok && id != "" {
			ids[id] = struct{}{}
		}
	})
	doc.Find("a[name]").Each(func(_ int, s *goquery.Selection) {
		if name, ok := s.Attr("name"); ok && name != "" {
			ids[name] = struct{}{}
		}
	})
	return ids
}

var linkSelectors = []struct {
	selector string
	attr     string
}{
	{"a[href]", "href"},
	{"img[src]", "src"},
	{"link[href]", "href"},
	{"script[src]", "src"},
}

// Check returns every broken internal reference, sorted by source then
// target.
func (c *Checker) Check() []Broken {
	var out []Broken
	for route, doc := range c.docs {
		seen := map[string]struct{}{}
		for _, sel := range linkSelectors {
			doc.Find(sel.selector).Each(func(_ int, s *goquery.Selection) {
				if sel.selector == "link[href]" {
					if rel, _ := s.Attr("rel"); rel == "canonical" || rel == "alternate" {
						return
					}
				}
				ref, _ := s.Attr(sel.attr)
				if _, dup := seen[ref]; dup {
					return
				}
				seen[ref] = struct{}{}
				if reason, ok := c.resolve(route, ref); !ok {
					out = append(out, Broken{Source: route, Target: ref, Reason: reason})
				}
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Target < out[j].Target
	})
	return out
}

func (c *Checker) resolve(from, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "empty reference", false
	}
	if site.IsExternal(ref) || strings.HasPrefix(strings.ToLower(ref), "javascript:") {
		return "", true
	}

	base, err := url.Parse(from)
	if err != nil {
		return "invalid source route", false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "unparsable URL", false
	}
	abs := base.ResolveReference(u)

	if !strings.HasPrefix(abs.Path+"/", c.base) {
		return "outside of base URL " + c.base, false
	}

	t, ok := c.lookup(abs.Path)
	if !ok {
		return "no such page", false
	}
	if abs.Fragment != "" {
		if _, ok := t.ids[abs.Fragment]; !ok {
			return "no such anchor", false
		}
	}
	return "", true
}

// lookup tolerates a trailing slash mismatch.
func (c *Checker) lookup(p string) (*target, bool) {
	if t, ok := c.targets[p]; ok {
		return t, true
	}
	if strings.HasSuffix(p, "/") {
		t, ok := c.targets[strings.TrimSuffix(p, "/")]
		return t, ok
	}
	t, ok := c.targets[p+"/"]
	return t, ok
}

// Apply handles findings according to policy. what names the kind of
// finding in messages. Only the throw policy returns an error; it wraps
// ErrBrokenLinks and lists every finding.
func Apply(log logger.Logger, policy, what string, findings []string) error {
	if len(findings) == 0 {
		return nil
	}
	switch policy {
	case site.PolicyIgnore:
		return nil
	case site.PolicyLog:
		for _, f := range findings {
			log.Debug("found "+what, logger.String("link", f))
		}
	case site.PolicyWarn:
		for _, f := range findings {
			log.Warn("found "+what, logger.String("link", f))
		}
	default:
		return fmt.Errorf("%w: %d %s:\n- %s", ErrBrokenLinks, len(findings), what, strings.Join(findings, "\n- "))
	}
	return nil
}

// Strings formats findings for Apply.
func Strings(broken []Broken) []string {
	out := make([]string, 0, len(broken))
	for _, b := range broken {
		out = append(out, b.String())
	}
	return out
}
