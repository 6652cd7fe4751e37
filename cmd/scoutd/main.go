// scoutd serves snapshot discovery over HTTP
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thesavant42/snapshot-scout/internal/app"
	"github.com/thesavant42/snapshot-scout/internal/config"
	"github.com/thesavant42/snapshot-scout/internal/logging"
	"github.com/thesavant42/snapshot-scout/internal/server"
)

var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		return 1
	}

	logger, logCloser, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
		Prefix: "scoutd",
	})
	if err != nil {
		os.Stderr.WriteString("logging: " + err.Error() + "\n")
		return 1
	}
	defer logCloser.Close()

	a, err := app.Build(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize", "error", err)
		return 1
	}
	defer a.Close()

	if a.Cache != nil {
		if n, err := a.Cache.PurgeExpiredCDX(context.Background()); err != nil {
			logger.Warn("Failed to purge expired cache entries", "error", err)
		} else if n > 0 {
			logger.Info("Purged expired cache entries", "count", n)
		}
	}

	handler := server.NewHandler(a.Discoverer, logger, version)
	srv := server.NewHTTPServer(cfg.Addr, server.NewRouter(handler, cfg.Debug))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", cfg.Addr, "endpoint", cfg.CDXEndpoint, "version", version)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			logger.Error("Server error", "error", err)
			return 1
		}
	case sig := <-stop:
		logger.Info("Shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", "error", err)
		return 1
	}
	logger.Info("Server stopped")
	return 0
}
