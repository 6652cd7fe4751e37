// Package app assembles the discovery stack from a Config.
package app

import (
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/thesavant42/snapshot-scout/internal/api"
	"github.com/thesavant42/snapshot-scout/internal/config"
	"github.com/thesavant42/snapshot-scout/internal/db"
	"github.com/thesavant42/snapshot-scout/internal/discovery"
)

// App holds the wired components shared by the commands
type App struct {
	Client     *api.WaybackClient
	Discoverer *discovery.Discoverer
	Cache      *db.DB // nil when caching is disabled
}

// Build wires the Wayback client, the optional sqlite cache and the discoverer
func Build(cfg config.Config, logger *log.Logger) (*App, error) {
	// The HTTP client goes first so the timeout options apply to it
	opts := append([]api.Option{api.WithHTTPClient(newHTTPClient(cfg))}, cfg.ClientOptions()...)

	var cache *db.DB
	if cfg.CacheDB != "" {
		var err error
		cache, err = db.New(cfg.CacheDB, cfg.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
		opts = append(opts, api.WithCache(cache))
		if logger != nil {
			logger.Debug("CDX cache enabled", "path", cfg.CacheDB, "ttl", cfg.CacheTTL)
		}
	}

	client := api.NewWaybackClient(logger, opts...)
	return &App{
		Client:     client,
		Discoverer: discovery.New(client, logger, cfg.DiscoveryConfig()),
		Cache:      cache,
	}, nil
}

// newHTTPClient keeps enough idle connections to the archive for every batch worker
func newHTTPClient(cfg config.Config) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = max(cfg.Workers, 2)
	return &http.Client{
		Timeout:   cfg.AttemptTimeout,
		Transport: transport,
	}
}

// Close releases the cache, if any
func (a *App) Close() error {
	if a.Cache == nil {
		return nil
	}
	return a.Cache.Close()
}
