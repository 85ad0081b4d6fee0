package index

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/scalapatisserie/muffin-site/internal/domain"
)

// ErrNotFound is returned by Lookup when no page answers a route.
var ErrNotFound = errors.New("page not found")

// PageIndex holds the pages of the last successful build.
// Pages are only replaced as a whole, so readers never observe a mix of two builds.
type PageIndex struct {
	mu       sync.RWMutex
	pages    map[string]*domain.Page // Route -> Page
	notFound map[string]*domain.Page // Locale -> 404 page
	info     domain.BuildInfo
	lastSwap time.Time
	hits     map[string]uint64 // Route -> served count
}

// NewPageIndex creates an empty index
func NewPageIndex() *PageIndex {
	return &PageIndex{
		pages:    make(map[string]*domain.Page),
		notFound: make(map[string]*domain.Page),
		hits:     make(map[string]uint64),
	}
}

// Swap replaces every page in the index with the pages of one build
func (idx *PageIndex) Swap(info domain.BuildInfo, pages []*domain.Page) {
	byRoute := make(map[string]*domain.Page, len(pages))
	notFound := make(map[string]*domain.Page)
	for _, p := range pages {
		byRoute[p.Route] = p
		if p.Kind == domain.KindNotFound {
			notFound[p.Locale] = p
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.pages = byRoute
	idx.notFound = notFound
	idx.info = info
	idx.lastSwap = time.Now()
}

// Get retrieves a page by route. A missing or extra trailing slash is tolerated.
func (idx *PageIndex) Get(route string) (*domain.Page, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if p, ok := idx.pages[route]; ok {
		return p, true
	}
	if strings.HasSuffix(route, "/") {
		p, ok := idx.pages[strings.TrimSuffix(route, "/")]
		return p, ok
	}
	p, ok := idx.pages[route+"/"]
	return p, ok
}

// Lookup is Get with an error for callers that propagate it
func (idx *PageIndex) Lookup(route string) (*domain.Page, error) {
	if p, ok := idx.Get(route); ok {
		return p, nil
	}
	return nil, ErrNotFound
}

// NotFound returns the 404 page of a locale
func (idx *PageIndex) NotFound(locale string) (*domain.Page, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	p, ok := idx.notFound[locale]
	return p, ok
}

// Info returns the manifest of the build currently served
func (idx *PageIndex) Info() domain.BuildInfo {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.info
}

// Ready reports whether a build has been swapped in
func (idx *PageIndex) Ready() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.info.ID != ""
}

// Count returns the number of pages in the index
func (idx *PageIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.pages)
}

// All returns every page, in no particular order
func (idx *PageIndex) All() []*domain.Page {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	pages := make([]*domain.Page, 0, len(idx.pages))
	for _, p := range idx.pages {
		pages = append(pages, p)
	}
	return pages
}

// LastSwap returns the timestamp of the last swap
func (idx *PageIndex) LastSwap() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastSwap
}

// ─────────────────────────────────────────────────────────────────
// Hit counters
// ─────────────────────────────────────────────────────────────────

// IncrementHits counts one request served for route.
// Counters survive swaps; routes that disappear keep their count.
func (idx *PageIndex) IncrementHits(route string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.hits[route]++
}

// Hits returns the served count of route
func (idx *PageIndex) Hits(route string) uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.hits[route]
}
