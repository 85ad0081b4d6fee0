package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/scalapatisserie/muffin-site/internal/httpserver/deps"
)

type componentStatus struct {
	OK        bool     `json:"ok"`
	Pages     *int     `json:"pages,omitempty"`
	BuildID   string   `json:"build_id,omitempty"`
	LastBuild string   `json:"last_build,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
	SwappedAt string   `json:"swapped_at,omitempty"`
	Clients   *int     `json:"clients,omitempty"`
	Mode      string   `json:"mode,omitempty"`
	Impact    string   `json:"impact,omitempty"`
	Error     string   `json:"error,omitempty"`
}

type pageHits struct {
	Route string `json:"route"`
	Hits  uint64 `json:"hits"`
}

type infraResponse struct {
	ServingMode string                     `json:"serving_mode"`
	Locales     []string                   `json:"locales"`
	Components  map[string]componentStatus `json:"components"`
	TopPages    []pageHits                 `json:"top_pages"`
}

const topPages = 10

// Infra describes the served build and the state of optional components.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		info := d.Index.Info()
		pages := d.Index.Count()
		lastBuild, swappedAt := "never", ""
		if !info.FinishedAt.IsZero() {
			lastBuild = info.FinishedAt.Format("2006-01-02 15:04:05")
			swappedAt = d.Index.LastSwap().Format(time.RFC3339)
		}

		components := map[string]componentStatus{
			"site": {
				OK:        d.Index.Ready(),
				Pages:     &pages,
				BuildID:   info.ID,
				LastBuild: lastBuild,
				Warnings:  info.Warnings,
				SwappedAt: swappedAt,
			},
			"redis": checkRedis(r.Context(), d),
		}
		if d.LiveReload != nil {
			n := d.LiveReload.Clients()
			components["livereload"] = componentStatus{OK: true, Clients: &n}
		}

		response := infraResponse{
			ServingMode: determineServingMode(components),
			Locales:     d.Site.I18n.Locales,
			Components:  components,
			TopPages:    mostServed(d),
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// mostServed lists the pages of the current build with the most hits.
func mostServed(d deps.Deps) []pageHits {
	out := []pageHits{}
	for _, p := range d.Index.All() {
		if n := d.Index.Hits(p.Route); n > 0 {
			out = append(out, pageHits{Route: p.Route, Hits: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Hits != out[j].Hits {
			return out[i].Hits > out[j].Hits
		}
		return out[i].Route < out[j].Route
	})
	if len(out) > topPages {
		out = out[:topPages]
	}
	return out
}

func determineServingMode(components map[string]componentStatus) string {
	if s, exists := components["site"]; exists && !s.OK {
		return "critical" // nothing to serve
	}

	// Redis is a cache, its absence only costs a cold start
	if redis, exists := components["redis"]; exists && !redis.OK && redis.Mode != "disabled" {
		return "degraded"
	}

	return "serving"
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if d.Cache == nil {
		return componentStatus{
			OK:     false,
			Mode:   "disabled",
			Impact: "no-warm-start",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.Cache.Ping(ctx); err != nil {
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "no-warm-start",
			Error:  err.Error(),
		}
	}

	return componentStatus{
		OK:     true,
		Mode:   "optimal",
		Impact: "warm-start-enabled",
	}
}
