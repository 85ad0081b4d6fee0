package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/scalapatisserie/muffin-site/internal/httpserver/deps"
)

type healthzResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Version       string  `json:"version,omitempty"`
	Commit        string  `json:"commit,omitempty"`
	BuildDate     string  `json:"build_date,omitempty"`
	GoVersion     string  `json:"go_version,omitempty"`
	BuildID       string  `json:"build_id,omitempty"`
	Pages         int     `json:"pages"`
}

// Healthz reports that the process is alive, whether or not a build is
// served. build_id is absent until the first build is swapped in.
func Healthz(d deps.Deps) http.HandlerFunc {
	start := d.StartTime
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(healthzResponse{
			Status:        "ok",
			Version:       d.Version,
			Commit:        d.Commit,
			BuildDate:     d.BuildDate,
			GoVersion:     d.GoVersion,
			UptimeSeconds: d.Now().Sub(start).Seconds(),
			BuildID:       d.Index.Info().ID,
			Pages:         d.Index.Count(),
		})
	}
}
