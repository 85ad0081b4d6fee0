package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/scalapatisserie/muffin-site/internal/httpserver/deps"
)

func init() { Register(registerMetrics, allowedClients) }

func registerMetrics(r chi.Router, d deps.Deps) {
	if d.Metrics == nil {
		return
	}
	r.Handle("/metrics", d.Metrics.Handler())
}
