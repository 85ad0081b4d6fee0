package build

import (
	"encoding/xml"
	"time"

	"github.com/scalapatisserie/muffin-site/internal/domain"
	"github.com/scalapatisserie/muffin-site/internal/site"
)

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	XHTML   string       `xml:"xmlns:xhtml,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string         `xml:"loc"`
	LastMod    string         `xml:"lastmod,omitempty"`
	ChangeFreq string         `xml:"changefreq,omitempty"`
	Priority   string         `xml:"priority,omitempty"`
	Links      []sitemapXHTML `xml:"xhtml:link"`
}

type sitemapXHTML struct {
	Rel      string `xml:"rel,attr"`
	Hreflang string `xml:"hreflang,attr"`
	Href     string `xml:"href,attr"`
}

// sitemap lists every indexable page with its locale alternates. groups maps
// a page route to the routes of the same page in every locale.
func sitemap(cfg site.Config, pages []*domain.Page, groups map[string]map[string]string, at time.Time) ([]byte, error) {
	set := urlset{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		XHTML: "http://www.w3.org/1999/xhtml",
	}
	lastmod := at.UTC().Format("2006-01-02")

	for _, p := range pages {
		if p.Kind != domain.KindHome && p.Kind != domain.KindDoc {
			continue
		}
		u := sitemapURL{
			Loc:        cfg.AbsURL(p.Route),
			LastMod:    lastmod,
			ChangeFreq: "weekly",
			Priority:   "0.5",
		}
		if alts, ok := groups[p.Route]; ok {
			for _, l := range cfg.I18n.Locales {
				if r, ok := alts[l]; ok {
					u.Links = append(u.Links, sitemapXHTML{Rel: "alternate", Hreflang: cfg.Locale(l).HTMLLang, Href: cfg.AbsURL(r)})
				}
			}
		}
		set.URLs = append(set.URLs, u)
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
