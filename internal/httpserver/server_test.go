package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/scalapatisserie/muffin-site/internal/config"
	"github.com/scalapatisserie/muffin-site/internal/domain"
	"github.com/scalapatisserie/muffin-site/internal/httpserver/deps"
	"github.com/scalapatisserie/muffin-site/internal/index"
	"github.com/scalapatisserie/muffin-site/internal/logger"
	"github.com/scalapatisserie/muffin-site/internal/metrics"
	"github.com/scalapatisserie/muffin-site/internal/site"
)

type fakeCache struct {
	mu      sync.Mutex
	pingErr error
	hits    []string
}

func (f *fakeCache) Ping(context.Context) error { return f.pingErr }

func (f *fakeCache) IncrementHits(_ context.Context, route string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits = append(f.hits, route)
	return nil
}

func testIndex() *index.PageIndex {
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	pages := []*domain.Page{
		domain.NewPage("/muffin/", "index.html", "en", domain.KindHome, "text/html; charset=utf-8", []byte("<html>home</html>")),
		domain.NewPage("/muffin/ru/", "ru/index.html", "ru", domain.KindHome, "text/html; charset=utf-8", []byte("<html>главная</html>")),
		domain.NewPage("/muffin/intro", "intro/index.html", "en", domain.KindDoc, "text/html; charset=utf-8", []byte("<html>intro</html>")),
		domain.NewPage("/muffin/404.html", "404.html", "en", domain.KindNotFound, "text/html; charset=utf-8", []byte("<html>not found</html>")),
		domain.NewPage("/muffin/ru/404.html", "ru/404.html", "ru", domain.KindNotFound, "text/html; charset=utf-8", []byte("<html>не найдено</html>")),
		domain.NewPage("/muffin/img/logo.png", "img/logo.png", "", domain.KindAsset, "image/png", []byte{0x89, 'P', 'N', 'G'}),
	}
	for _, p := range pages {
		p.BuildID = "b1"
		p.UpdatedAt = at
	}
	idx := index.NewPageIndex()
	idx.Swap(domain.BuildInfo{ID: "b1", FinishedAt: at, Pages: len(pages)}, pages)
	return idx
}

func testDeps() deps.Deps {
	return deps.Deps{
		Logger:             logger.NewNop(),
		StartTime:          time.Now(),
		Version:            "test",
		Site:               site.Default(),
		Index:              testIndex(),
		ReloadTrigger:      make(chan struct{}, 1),
		ReloadBurst:        10,
		ReloadRefillPerMin: 60,
	}
}

func serve(t *testing.T, d deps.Deps, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	h := NewRouter(&config.Config{RequestTimeout: 5 * time.Second}, logger.NewNop(), d)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPages(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		lang       string
		wantStatus int
		wantBody   string
		wantLang   string
	}{
		{name: "home", path: "/muffin/", wantStatus: http.StatusOK, wantBody: "home", wantLang: "en"},
		{name: "home without slash", path: "/muffin", wantStatus: http.StatusOK, wantBody: "home", wantLang: "en"},
		{name: "ru home", path: "/muffin/ru/", wantStatus: http.StatusOK, wantBody: "главная", wantLang: "ru"},
		{name: "doc", path: "/muffin/intro", wantStatus: http.StatusOK, wantBody: "intro", wantLang: "en"},
		{name: "doc trailing slash", path: "/muffin/intro/", wantStatus: http.StatusOK, wantBody: "intro"},
		{name: "no redirect on accept-language", path: "/muffin/", lang: "ru", wantStatus: http.StatusOK, wantBody: "home", wantLang: "en"},
		{name: "missing doc", path: "/muffin/nope", wantStatus: http.StatusNotFound, wantBody: "not found", wantLang: "en"},
		{name: "missing ru doc", path: "/muffin/ru/nope", wantStatus: http.StatusNotFound, wantBody: "не найдено", wantLang: "ru"},
		{name: "unprefixed 404 follows accept-language", path: "/muffin/nope", lang: "ru-RU,ru;q=0.9", wantStatus: http.StatusNotFound, wantBody: "не найдено"},
		{name: "outside base url", path: "/elsewhere", wantStatus: http.StatusFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.lang != "" {
				req.Header.Set("Accept-Language", tt.lang)
			}
			rec := serve(t, testDeps(), req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
			if tt.wantLang != "" && rec.Header().Get("Content-Language") != tt.wantLang {
				t.Errorf("Content-Language = %q, want %q", rec.Header().Get("Content-Language"), tt.wantLang)
			}
		})
	}
}

func TestPagesRedirectTarget(t *testing.T) {
	rec := serve(t, testDeps(), httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/muffin/" {
		t.Errorf("redirect = %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestPagesConditional(t *testing.T) {
	d := testDeps()
	first := serve(t, d, httptest.NewRequest(http.MethodGet, "/muffin/intro", nil))
	etag := first.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}
	if first.Header().Get("X-Build-ID") != "b1" {
		t.Errorf("X-Build-ID = %q", first.Header().Get("X-Build-ID"))
	}

	req := httptest.NewRequest(http.MethodGet, "/muffin/intro", nil)
	req.Header.Set("If-None-Match", etag)
	rec := serve(t, d, req)
	if rec.Code != http.StatusNotModified {
		t.Errorf("status = %d, want 304", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Error("304 must have no body")
	}
}

func TestPagesCacheHeaders(t *testing.T) {
	d := testDeps()
	asset := serve(t, d, httptest.NewRequest(http.MethodGet, "/muffin/img/logo.png", nil))
	if asset.Header().Get("Content-Type") != "image/png" || !strings.Contains(asset.Header().Get("Cache-Control"), "max-age") {
		t.Errorf("asset headers = %v", asset.Header())
	}
	if asset.Header().Get("Content-Language") != "" {
		t.Error("assets have no language")
	}
	doc := serve(t, d, httptest.NewRequest(http.MethodGet, "/muffin/intro", nil))
	if doc.Header().Get("Cache-Control") != "no-cache" {
		t.Errorf("doc Cache-Control = %q", doc.Header().Get("Cache-Control"))
	}
}

func TestPagesHead(t *testing.T) {
	rec := serve(t, testDeps(), httptest.NewRequest(http.MethodHead, "/muffin/nope", nil))
	if rec.Code != http.StatusNotFound || rec.Body.Len() != 0 {
		t.Errorf("HEAD 404 = %d with %d bytes", rec.Code, rec.Body.Len())
	}
}

func TestPagesNotReady(t *testing.T) {
	d := testDeps()
	d.Index = index.NewPageIndex()
	rec := serve(t, d, httptest.NewRequest(http.MethodGet, "/muffin/", nil))
	if rec.Code != http.StatusServiceUnavailable || rec.Header().Get("Retry-After") == "" {
		t.Errorf("status = %d, Retry-After = %q", rec.Code, rec.Header().Get("Retry-After"))
	}
}

func TestPagesCountHits(t *testing.T) {
	d := testDeps()
	cache := &fakeCache{}
	d.Cache = cache

	serve(t, d, httptest.NewRequest(http.MethodGet, "/muffin/intro", nil))
	serve(t, d, httptest.NewRequest(http.MethodGet, "/muffin/intro/", nil))

	if got := d.Index.Hits("/muffin/intro"); got != 2 {
		t.Errorf("hits = %d, want 2", got)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		cache.mu.Lock()
		n := len(cache.hits)
		cache.mu.Unlock()
		if n == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("redis hits = %d, want 2", n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestReadyz(t *testing.T) {
	rec := serve(t, testDeps(), httptest.NewRequest(http.MethodGet, "/muffin/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Ready   bool   `json:"ready"`
		BuildID string `json:"build_id"`
		Pages   int    `json:"pages"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !body.Ready || body.BuildID != "b1" || body.Pages != 6 {
		t.Errorf("readyz = %+v", body)
	}

	d := testDeps()
	d.Index = index.NewPageIndex()
	if rec := serve(t, d, httptest.NewRequest(http.MethodGet, "/muffin/readyz", nil)); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz before first build = %d, want 503", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	tests := []struct {
		name      string
		index     *index.PageIndex
		wantBuild string
		wantPages int
	}{
		{name: "before first build", index: index.NewPageIndex()},
		{name: "serving", index: testIndex(), wantBuild: "b1", wantPages: 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDeps()
			d.Index = tt.index
			rec := serve(t, d, httptest.NewRequest(http.MethodGet, "/muffin/healthz", nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("healthz = %d", rec.Code)
			}
			var body struct {
				Status  string `json:"status"`
				BuildID string `json:"build_id"`
				Pages   int    `json:"pages"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Status != "ok" || body.BuildID != tt.wantBuild || body.Pages != tt.wantPages {
				t.Errorf("healthz = %+v", body)
			}
		})
	}
}

func TestInfra(t *testing.T) {
	tests := []struct {
		name     string
		cache    deps.Cache
		wantMode string
	}{
		{name: "no redis", wantMode: "serving"},
		{name: "redis up", cache: &fakeCache{}, wantMode: "serving"},
		{name: "redis down", cache: &fakeCache{pingErr: errors.New("down")}, wantMode: "degraded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDeps()
			d.Cache = tt.cache
			rec := serve(t, d, httptest.NewRequest(http.MethodGet, "/muffin/infra", nil))
			var body struct {
				ServingMode string `json:"serving_mode"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.ServingMode != tt.wantMode {
				t.Errorf("serving_mode = %q, want %q", body.ServingMode, tt.wantMode)
			}
		})
	}
}

func TestInfraTopPages(t *testing.T) {
	d := testDeps()
	d.Index.IncrementHits("/muffin/intro")
	d.Index.IncrementHits("/muffin/intro")
	d.Index.IncrementHits("/muffin/")
	d.Index.IncrementHits("/muffin/gone")

	rec := serve(t, d, httptest.NewRequest(http.MethodGet, "/muffin/infra", nil))
	var body struct {
		TopPages []struct {
			Route string `json:"route"`
			Hits  uint64 `json:"hits"`
		} `json:"top_pages"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	// the infra request itself is not a page hit; routes outside the build are skipped
	if len(body.TopPages) != 2 || body.TopPages[0].Route != "/muffin/intro" || body.TopPages[0].Hits != 2 {
		t.Errorf("top_pages = %+v", body.TopPages)
	}
}

func TestReload(t *testing.T) {
	d := testDeps()

	rec := serve(t, d, httptest.NewRequest(http.MethodPost, "/muffin/reload", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("first reload = %d, want 202", rec.Code)
	}
	rec = serve(t, d, httptest.NewRequest(http.MethodPost, "/muffin/reload", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("pending reload = %d, want 429", rec.Code)
	}
	<-d.ReloadTrigger
}

func TestAdminRestrictions(t *testing.T) {
	d := testDeps()
	d.AllowedCIDRS = []string{"10.0.0.0/8"}
	d.AllowedHosts = []string{"docs.example.com"}

	req := httptest.NewRequest(http.MethodPost, "/muffin/reload", nil)
	req.RemoteAddr = "192.168.1.10:4000"
	req.Host = "docs.example.com"
	if rec := serve(t, d, req); rec.Code != http.StatusForbidden {
		t.Errorf("foreign ip = %d, want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/muffin/reload", nil)
	req.RemoteAddr = "10.1.2.3:4000"
	req.Host = "evil.example.com"
	if rec := serve(t, d, req); rec.Code != http.StatusForbidden {
		t.Errorf("foreign host = %d, want 403", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/muffin/reload", nil)
	req.RemoteAddr = "10.1.2.3:4000"
	req.Host = "docs.example.com"
	if rec := serve(t, d, req); rec.Code != http.StatusAccepted {
		t.Errorf("allowed = %d, want 202", rec.Code)
	}

	// pages stay public
	req = httptest.NewRequest(http.MethodGet, "/muffin/intro", nil)
	req.RemoteAddr = "192.168.1.10:4000"
	if rec := serve(t, d, req); rec.Code != http.StatusOK {
		t.Errorf("public page = %d, want 200", rec.Code)
	}
}

func TestReloadRateLimit(t *testing.T) {
	d := testDeps()
	d.ReloadBurst = 1
	d.ReloadRefillPerMin = 1
	h := NewRouter(&config.Config{}, logger.NewNop(), d)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/muffin/reload", nil))
		codes = append(codes, rec.Code)
		select {
		case <-d.ReloadTrigger:
		default:
		}
	}
	if codes[0] != http.StatusAccepted || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	d := testDeps()
	d.Metrics = metrics.NewRecorder()
	h := NewRouter(&config.Config{}, logger.NewNop(), d)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/muffin/intro", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/muffin/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `muffin_http_requests_total{code="200",method="GET"}`) {
		t.Error("request metrics missing")
	}

	d.Metrics = nil
	if rec := serve(t, d, httptest.NewRequest(http.MethodGet, "/muffin/metrics", nil)); rec.Code != http.StatusNotFound {
		t.Errorf("metrics without recorder = %d, want 404 page", rec.Code)
	}
}
