package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/scalapatisserie/muffin-site/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready   bool   `json:"ready"`
	BuildID string `json:"build_id,omitempty"`
	Pages   int    `json:"pages"`
}

// Readyz answers 503 until a build is served.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		resp := readyzResponse{Ready: d.Index.Ready()}
		if resp.Ready {
			resp.BuildID = d.Index.Info().ID
			resp.Pages = d.Index.Count()
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
