package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/scalapatisserie/muffin-site/internal/httpserver/deps"
	"github.com/scalapatisserie/muffin-site/internal/httpserver/handlers"
)

func init() { Register(registerPages) }

// registerPages catches everything the other registrars do not claim.
func registerPages(r chi.Router, d deps.Deps) {
	h := handlers.Pages(d)
	r.Get("/", h)
	r.Get("/*", h)
}
