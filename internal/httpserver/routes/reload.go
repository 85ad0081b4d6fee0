package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/scalapatisserie/muffin-site/internal/httpserver/deps"
	"github.com/scalapatisserie/muffin-site/internal/httpserver/handlers"
	"github.com/scalapatisserie/muffin-site/internal/httpserver/mw"
)

func init() { Register(registerReload, allowedClients, allowedHosts) }

func registerReload(r chi.Router, d deps.Deps) {
	if d.ReloadTrigger == nil {
		return
	}
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.ReloadBurst,
		RefillPerIPPerMin: d.ReloadRefillPerMin,
		MaxEntries:        1024,
		TrustProxy:        d.TrustProxy,
	}, d.Logger)
	r.With(limit).Post("/reload", handlers.Reload(d))
}
