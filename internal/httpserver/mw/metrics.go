package mw

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/scalapatisserie/muffin-site/internal/metrics"
)

// Metrics records every request on rec. A nil recorder is a passthrough.
func Metrics(rec *metrics.Recorder) func(http.Handler) http.Handler {
	if rec == nil {
		return passthrough
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			rec.ObserveRequest(r.Method, status, time.Since(start))
		})
	}
}
