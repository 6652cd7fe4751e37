// Package config loads service settings from the environment (optionally a
// .env file) with defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/thesavant42/snapshot-scout/internal/analysis"
	"github.com/thesavant42/snapshot-scout/internal/api"
	"github.com/thesavant42/snapshot-scout/internal/db"
	"github.com/thesavant42/snapshot-scout/internal/discovery"
)

// Config holds all runtime settings
type Config struct {
	Addr           string
	CDXEndpoint    string
	ArchiveBase    string
	AttemptTimeout time.Duration
	RowLimit       int
	MaxResults     int
	Workers        int
	RateLimit      float64 // requests per second, 0 = off
	CacheDB        string  // empty disables the response cache
	CacheTTL       time.Duration
	Windows        bool
	Debug          bool

	LogLevel  string
	LogFormat string
	LogFile   string
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		Addr:           ":8080",
		CDXEndpoint:    api.DefaultCDXEndpoint,
		ArchiveBase:    api.DefaultArchiveBase,
		AttemptTimeout: api.DefaultAttemptTimeout,
		RowLimit:       api.DefaultRowLimit,
		MaxResults:     analysis.DefaultMaxResults,
		Workers:        discovery.DefaultWorkers,
		CacheTTL:       db.DefaultCacheTTL,
		Windows:        true,
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Load reads a .env file if present, then environment variables over the defaults
func Load() (Config, error) {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()
	var err error

	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		v := strings.TrimSpace(getenv(key))
		if v == "" || err != nil {
			return
		}
		n, convErr := strconv.Atoi(v)
		if convErr != nil {
			err = fmt.Errorf("%s: invalid integer %q", key, v)
			return
		}
		*dst = n
	}
	dur := func(key string, dst *time.Duration) {
		v := strings.TrimSpace(getenv(key))
		if v == "" || err != nil {
			return
		}
		d, convErr := time.ParseDuration(v)
		if convErr != nil {
			err = fmt.Errorf("%s: invalid duration %q", key, v)
			return
		}
		*dst = d
	}
	flag := func(key string, dst *bool) {
		v := strings.TrimSpace(getenv(key))
		if v == "" || err != nil {
			return
		}
		b, convErr := strconv.ParseBool(v)
		if convErr != nil {
			err = fmt.Errorf("%s: invalid boolean %q", key, v)
			return
		}
		*dst = b
	}

	str("SCOUT_ADDR", &cfg.Addr)
	str("SCOUT_CDX_ENDPOINT", &cfg.CDXEndpoint)
	str("SCOUT_ARCHIVE_BASE", &cfg.ArchiveBase)
	dur("SCOUT_ATTEMPT_TIMEOUT", &cfg.AttemptTimeout)
	num("SCOUT_ROW_LIMIT", &cfg.RowLimit)
	num("SCOUT_MAX_RESULTS", &cfg.MaxResults)
	num("SCOUT_WORKERS", &cfg.Workers)
	str("SCOUT_CACHE_DB", &cfg.CacheDB)
	dur("SCOUT_CACHE_TTL", &cfg.CacheTTL)
	flag("SCOUT_WINDOWS", &cfg.Windows)
	flag("SCOUT_DEBUG", &cfg.Debug)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)
	str("LOG_FILE", &cfg.LogFile)

	if v := strings.TrimSpace(getenv("SCOUT_RATE_LIMIT")); v != "" && err == nil {
		rps, convErr := strconv.ParseFloat(v, 64)
		if convErr != nil {
			err = fmt.Errorf("SCOUT_RATE_LIMIT: invalid number %q", v)
		} else {
			cfg.RateLimit = rps
		}
	}

	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings are in range
func (c Config) Validate() error {
	if c.AttemptTimeout <= 0 {
		return fmt.Errorf("attempt timeout must be positive, got %s", c.AttemptTimeout)
	}
	if c.RowLimit < 1 || c.RowLimit > 100 {
		return fmt.Errorf("row limit must be between 1 and 100, got %d", c.RowLimit)
	}
	if c.MaxResults < 1 {
		return fmt.Errorf("max results must be positive, got %d", c.MaxResults)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative, got %v", c.RateLimit)
	}
	if c.CDXEndpoint == "" {
		return fmt.Errorf("cdx endpoint is required")
	}
	return nil
}

// ClientOptions translates the settings into WaybackClient options
func (c Config) ClientOptions() []api.Option {
	return []api.Option{
		api.WithEndpoint(c.CDXEndpoint),
		api.WithArchiveBase(c.ArchiveBase),
		api.WithAttemptTimeout(c.AttemptTimeout),
		api.WithRowLimit(c.RowLimit),
		api.WithRateLimit(c.RateLimit, 1),
	}
}

// DiscoveryConfig returns the orchestrator settings
func (c Config) DiscoveryConfig() discovery.Config {
	return discovery.Config{
		MaxResults: c.MaxResults,
		Workers:    c.Workers,
		Windows:    c.Windows,
	}
}
