package deps

import (
	"context"
	"time"

	"github.com/scalapatisserie/muffin-site/internal/index"
	"github.com/scalapatisserie/muffin-site/internal/livereload"
	"github.com/scalapatisserie/muffin-site/internal/logger"
	"github.com/scalapatisserie/muffin-site/internal/metrics"
	"github.com/scalapatisserie/muffin-site/internal/site"
)

// Cache is the part of the Redis page cache the handlers use.
type Cache interface {
	Ping(ctx context.Context) error
	IncrementHits(ctx context.Context, route string) error
}

type Deps struct {
	Logger             logger.Logger
	StartTime          time.Time
	Version            string
	Commit             string
	BuildDate          string
	GoVersion          string
	TimeNow            func() time.Time  // for testing, defaults to time.Now
	Site               site.Config       // snapshot taken at start, baseUrl and locales are fixed for the process
	AllowedHosts       []string          // Host headers allowed to reach admin endpoints
	AllowedCIDRS       []string          // IPs allowed to reach admin endpoints
	TrustProxy         bool              // true if running behind a trusted reverse proxy
	ReloadBurst        int               // POST /reload bucket size
	ReloadRefillPerMin int               // POST /reload tokens refilled per minute
	Index              *index.PageIndex  // pages of the build being served
	Cache              Cache             // nil when Redis is disabled
	Metrics            *metrics.Recorder // nil disables /metrics
	LiveReload         *livereload.Hub   // nil unless live reload is enabled
	ReloadTrigger      chan struct{}     // Channel to trigger a manual rebuild
}

// Now returns the current time through TimeNow when set.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
