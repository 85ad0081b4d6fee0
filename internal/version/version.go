package version

import (
	"fmt"
	"runtime"
	"time"
)

// Set through -ldflags "-X github.com/scalapatisserie/muffin-site/internal/version.Version=..."
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = time.Now().Format(time.RFC3339)
	GoVersion = runtime.Version()
)

// String renders a one-line build summary for `muffin-site version`.
func String() string {
	return fmt.Sprintf("muffin-site %s (commit=%s, built=%s, go=%s)", Version, Commit, BuildDate, GoVersion)
}
