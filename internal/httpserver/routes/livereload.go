package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/scalapatisserie/muffin-site/internal/httpserver/deps"
	"github.com/scalapatisserie/muffin-site/internal/livereload"
)

func init() { Register(registerLiveReload) }

func registerLiveReload(r chi.Router, d deps.Deps) {
	if d.LiveReload == nil {
		return
	}
	r.Get("/"+livereload.Path, d.LiveReload.Handler())
}
