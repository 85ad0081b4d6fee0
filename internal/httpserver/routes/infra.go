package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/scalapatisserie/muffin-site/internal/httpserver/deps"
	"github.com/scalapatisserie/muffin-site/internal/httpserver/handlers"
)

func init() { Register(registerInfra, allowedClients, allowedHosts) }

func registerInfra(r chi.Router, d deps.Deps) {
	r.Get("/infra", handlers.Infra(d))
}
