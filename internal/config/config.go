package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration of muffin-site. The content of the
// website itself (title, locales, navbar...) lives in the site file, see
// package site.
type Config struct {
	ListenAddr      string        // ex: ":3000"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request timeout applied by chi

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	SiteFile     string // site.yaml, optional: built-in Muffin defaults when missing
	SourceDir    string // website root; docs, i18n and static are resolved from here
	StaticDir    string // static assets, relative to SourceDir
	OutputDir    string // where `build` writes the generated site
	WriteOnServe bool   // `serve` also writes every rebuild to OutputDir

	RebuildInterval time.Duration // periodic rebuild while serving, 0 disables
	Watch           bool          // rebuild on file changes (fsnotify)
	WatchDebounce   time.Duration // coalesce bursts of file events
	LiveReload      bool          // inject the livereload client and expose /__livereload

	GCInterval  time.Duration // interval between cache garbage collections
	GCThreshold time.Duration // age after which superseded builds are dropped from the cache

	// Redis page cache, disabled when RedisAddr is empty.
	RedisAddr             string
	RedisUser             string
	RedisPassword         string
	RedisPasswordRequired bool
	RedisDB               int
	RedisDT               time.Duration // dial timeout
	RedisRT               time.Duration // read timeout
	RedisWT               time.Duration // write timeout
	RedisPoolSize         int
	RedisConnectTimeout   time.Duration // total time to retry connecting
	RedisRetryInterval    time.Duration // initial wait between retries, doubled each attempt
	RedisMaxWait          time.Duration // cap on the wait between retries
	RedisPingTimeout      time.Duration
	RedisWarnThreshold    int

	AllowedHosts    []string // optional, restrict admin endpoints to these Host headers
	AllowedCIDRS    []string // optional, restrict admin endpoints to these client IPs
	TrustProxy      bool     // resolve client IP from proxy headers
	ReloadBurst     int      // POST /reload rate limit bucket size
	ReloadRefillMin int      // POST /reload tokens refilled per minute
}

// Load reads the configuration from the environment. envFile, when it
// exists, is loaded first; variables already set in the process win.
func Load(envFile string) *Config {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			panic(fmt.Sprintf("❌ FATAL: cannot read env file %s: %v", envFile, err))
		}
	}

	cfg := &Config{
		ListenAddr:      getenv("MUFFIN_LISTEN_ADDR", ":3000"),
		ShutdownTimeout: mustDuration("MUFFIN_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("MUFFIN_REQUEST_TIMEOUT", 10*time.Second),

		LogLevel:  getenv("MUFFIN_LOG_LEVEL", "info"),
		PrettyLog: mustBool("MUFFIN_PRETTY_LOG", true),

		SiteFile:     getenv("MUFFIN_SITE_FILE", "site.yaml"),
		SourceDir:    getenv("MUFFIN_SOURCE_DIR", "."),
		StaticDir:    getenv("MUFFIN_STATIC_DIR", "static"),
		OutputDir:    getenv("MUFFIN_OUTPUT_DIR", "build"),
		WriteOnServe: mustBool("MUFFIN_WRITE_ON_SERVE", false),

		RebuildInterval: mustDuration("MUFFIN_REBUILD_INTERVAL", time.Hour),
		Watch:           mustBool("MUFFIN_WATCH", false),
		WatchDebounce:   mustDuration("MUFFIN_WATCH_DEBOUNCE", 500*time.Millisecond),
		LiveReload:      mustBool("MUFFIN_LIVERELOAD", false),

		GCInterval:  mustDuration("MUFFIN_GC_INTERVAL", 24*time.Hour),
		GCThreshold: mustDuration("MUFFIN_GC_THRESHOLD", 7*24*time.Hour),

		RedisAddr:             getenv("MUFFIN_REDIS_ADDR", ""),
		RedisUser:             getenv("MUFFIN_REDIS_USERNAME", "default"),
		RedisPassword:         getenv("MUFFIN_REDIS_PASSWORD", ""),
		RedisPasswordRequired: mustBool("MUFFIN_REDIS_PASSWORD_REQUIRED", false),
		RedisDB:               getenvInt("MUFFIN_REDIS_DB", 0),
		RedisDT:               mustDuration("MUFFIN_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("MUFFIN_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("MUFFIN_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisPoolSize:         getenvInt("MUFFIN_REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("MUFFIN_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("MUFFIN_REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisMaxWait:          mustDuration("MUFFIN_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("MUFFIN_REDIS_PING_TIMEOUT", 5*time.Second),
		RedisWarnThreshold:    getenvInt("MUFFIN_REDIS_WARN_THRESHOLD", 3),

		AllowedHosts:    splitAndTrim(getenv("MUFFIN_ALLOWED_HOSTS", "")),
		AllowedCIDRS:    splitAndTrim(getenv("MUFFIN_ALLOWED_CIDRS", "")),
		TrustProxy:      mustBool("MUFFIN_TRUST_PROXY", false),
		ReloadBurst:     getenvInt("MUFFIN_RELOAD_BURST", 3),
		ReloadRefillMin: getenvInt("MUFFIN_RELOAD_REFILL_PER_MIN", 6),
	}

	if cfg.RedisEnabled() && cfg.RedisPasswordRequired {
		cfg.RedisPassword = requireEnv("MUFFIN_REDIS_PASSWORD")
	}

	if cfg.LogLevel == "debug" {
		redacted := *cfg
		if redacted.RedisPassword != "" {
			redacted.RedisPassword = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", redacted)
	}

	return cfg
}

// RedisEnabled reports whether the Redis page cache is configured.
func (c *Config) RedisEnabled() bool { return c.RedisAddr != "" }

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.Trim(strings.TrimSpace(part), `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
