package handlers

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/scalapatisserie/muffin-site/internal/domain"
	"github.com/scalapatisserie/muffin-site/internal/httpserver/deps"
	"github.com/scalapatisserie/muffin-site/internal/i18n"
	"github.com/scalapatisserie/muffin-site/internal/logger"
)

// Pages serves the rendered site from the index. Missing routes get the
// 404 page of their locale with status 404.
//
// There is no locale negotiation: the URL alone decides which locale is
// served. Accept-Language only picks the language of the 404 page for paths
// without a locale prefix.
func Pages(d deps.Deps) http.HandlerFunc {
	matcher := i18n.NewMatcher(d.Site.I18n.Locales, d.Site.I18n.DefaultLocale)

	return func(w http.ResponseWriter, r *http.Request) {
		if !d.Index.Ready() {
			w.Header().Set("Retry-After", "5")
			http.Error(w, "site is building, retry shortly", http.StatusServiceUnavailable)
			return
		}

		p, ok := d.Index.Get(r.URL.Path)
		if !ok {
			notFound(w, r, d, matcher)
			return
		}

		setPageHeaders(w, d, p)
		// ServeContent answers If-None-Match / If-Modified-Since with 304.
		http.ServeContent(w, r, "", p.UpdatedAt, bytes.NewReader(p.Body))

		d.Index.IncrementHits(p.Route)
		countHit(d, p.Route)
	}
}

func notFound(w http.ResponseWriter, r *http.Request, d deps.Deps, matcher *i18n.Matcher) {
	locale, prefixed := localeOf(d, r.URL.Path)
	if !prefixed {
		locale = matcher.Resolve(r.Header.Get("Accept-Language"))
		w.Header().Add("Vary", "Accept-Language")
	}

	p, ok := d.Index.NotFound(locale)
	if !ok {
		p, ok = d.Index.NotFound(d.Site.I18n.DefaultLocale)
	}
	if !ok {
		http.NotFound(w, r)
		return
	}

	setPageHeaders(w, d, p)
	w.Header().Del("ETag")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusNotFound)
	if r.Method != http.MethodHead {
		if _, err := w.Write(p.Body); err != nil {
			d.Logger.Debug("failed to write response", logger.Error(err))
		}
	}
}

// localeOf returns the locale whose prefix path starts with. The default
// locale has no prefix, so prefixed is false for it.
func localeOf(d deps.Deps, path string) (locale string, prefixed bool) {
	for _, l := range d.Site.I18n.Locales {
		if l == d.Site.I18n.DefaultLocale {
			continue
		}
		root := d.Site.Route(l, "/")
		if strings.HasPrefix(path, root) || path == strings.TrimSuffix(root, "/") {
			return l, true
		}
	}
	return d.Site.I18n.DefaultLocale, false
}

func setPageHeaders(w http.ResponseWriter, d deps.Deps, p *domain.Page) {
	h := w.Header()
	h.Set("Content-Type", p.ContentType)
	h.Set("ETag", p.ETag)
	h.Set("X-Build-ID", p.BuildID)
	if p.Locale != "" {
		h.Set("Content-Language", d.Site.Locale(p.Locale).HTMLLang)
	}
	if p.Kind == domain.KindAsset {
		h.Set("Cache-Control", "public, max-age=3600")
	} else {
		h.Set("Cache-Control", "no-cache")
	}
}

// countHit records the hit in Redis without holding the request.
func countHit(d deps.Deps, route string) {
	if d.Cache == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := d.Cache.IncrementHits(ctx, route); err != nil {
			d.Logger.Debug("failed to count hit in redis",
				logger.String("route", route),
				logger.Error(err))
		}
	}()
}
