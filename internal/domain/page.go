package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Kind tells what produced a page.
type Kind string

const (
	KindHome     Kind = "home"
	KindDoc      Kind = "doc"
	KindNotFound Kind = "notfound"
	KindSitemap  Kind = "sitemap"
	KindAsset    Kind = "asset"
)

// Page is one servable file of a build.
//
// It is NOT tied to the filesystem, Redis or HTTP.
// The builder produces pages, the index and the cache store them,
// handlers serve them.
//
// A Page is uniquely identified by its Route within a build.
type Page struct {
	// ─────────────────────────────
	// Identity
	// ─────────────────────────────

	// Route is the URL path the page answers to, base URL included.
	// Example: /muffin/ru/getting-started/installation
	Route string `msgpack:"route"`

	// File is the output path relative to the build directory.
	// Example: ru/getting-started/installation/index.html
	File string `msgpack:"file"`

	// Locale is empty for locale independent files (assets, sitemap).
	Locale string `msgpack:"locale"`

	Kind Kind `msgpack:"kind"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	ContentType string `msgpack:"content_type"`
	Body        []byte `msgpack:"body"`

	// ETag is derived from Body only, so identical content across builds
	// keeps its validator.
	ETag string `msgpack:"etag"`

	// ─────────────────────────────
	// Provenance
	// ─────────────────────────────

	BuildID   string    `msgpack:"build_id"`
	UpdatedAt time.Time `msgpack:"updated_at"`
}

// NewPage creates a page and computes its ETag.
func NewPage(route, file, locale string, kind Kind, contentType string, body []byte) *Page {
	return &Page{
		Route:       route,
		File:        file,
		Locale:      locale,
		Kind:        kind,
		ContentType: contentType,
		Body:        body,
		ETag:        ETag(body),
	}
}

// ETag returns a strong validator for body.
func ETag(body []byte) string {
	sum := sha256.Sum256(body)
	return `"` + hex.EncodeToString(sum[:])[:32] + `"`
}

// IsHTML reports whether the page is a rendered document.
func (p *Page) IsHTML() bool {
	return p.Kind == KindHome || p.Kind == KindDoc || p.Kind == KindNotFound
}

// BuildInfo describes one completed build.
type BuildInfo struct {
	ID         string        `msgpack:"id"`
	StartedAt  time.Time     `msgpack:"started_at"`
	FinishedAt time.Time     `msgpack:"finished_at"`
	Duration   time.Duration `msgpack:"duration"`
	Pages      int           `msgpack:"pages"`
	Locales    []string      `msgpack:"locales"`
	Warnings   []string      `msgpack:"warnings"`
}
