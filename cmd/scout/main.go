// scout analyzes the archived snapshot history of one or more pages
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/thesavant42/snapshot-scout/internal/app"
	"github.com/thesavant42/snapshot-scout/internal/config"
	"github.com/thesavant42/snapshot-scout/internal/discovery"
	"github.com/thesavant42/snapshot-scout/internal/logging"
	"github.com/thesavant42/snapshot-scout/internal/models"
	"github.com/thesavant42/snapshot-scout/internal/ui"
)

func main() {
	os.Exit(run())
}

func run() int {
	urlFlag := flag.String("url", "", "Page URL or domain to analyze")
	fileFlag := flag.String("file", "", "Analyze every URL in a file (one per line, or CSV with a url column)")
	jsonFlag := flag.Bool("json", false, "Print results as JSON instead of a report")
	windowsFlag := flag.Bool("windows", true, "Infer experiment windows from snapshot intervals")
	cacheFlag := flag.String("cache", "", "Path to SQLite CDX cache (overrides SCOUT_CACHE_DB)")
	flag.Parse()

	// Also accept the URL as positional argument
	if *urlFlag == "" && flag.NArg() > 0 {
		*urlFlag = flag.Arg(0)
	}

	cfg, err := config.Load()
	if err != nil {
		ui.PrintError(err.Error())
		return 1
	}
	if *cacheFlag != "" {
		cfg.CacheDB = *cacheFlag
	}

	// Keep the terminal clean for the report unless a log file is set
	level := cfg.LogLevel
	if cfg.LogFile == "" && level == "info" {
		level = "warn"
	}
	logger, logCloser, err := logging.New(logging.Options{Level: level, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		ui.PrintError(err.Error())
		return 1
	}
	defer logCloser.Close()

	a, err := app.Build(cfg, logger)
	if err != nil {
		ui.PrintError(err.Error())
		return 1
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := discovery.Options{SkipWindows: !*windowsFlag}

	if *fileFlag != "" {
		urls, err := app.ReadURLFile(*fileFlag)
		if err != nil {
			ui.PrintError(fmt.Sprintf("Failed to read %s: %v", *fileFlag, err))
			return 1
		}
		if len(urls) == 0 {
			ui.PrintError("no URLs in " + *fileFlag)
			return 1
		}
		return runBatch(ctx, a.Discoverer, urls, opts, *jsonFlag)
	}

	target := *urlFlag
	if target == "" {
		if *jsonFlag {
			ui.PrintError("a URL is required with -json")
			return 2
		}
		target, err = ui.PromptForURL()
		if err != nil {
			ui.PrintError(err.Error())
			return 1
		}
	}

	return runSingle(ctx, a.Discoverer, target, opts, *jsonFlag)
}

func runSingle(ctx context.Context, d *discovery.Discoverer, target string, opts discovery.Options, asJSON bool) int {
	var result models.DiscoveryResult
	var discoverErr error

	if asJSON {
		result, discoverErr = d.Discover(ctx, target, opts)
	} else {
		err := ui.RunWithSpinner("Querying the Wayback index for "+target, func() {
			result, discoverErr = d.Discover(ctx, target, opts)
		})
		if errors.Is(err, ui.ErrCancelled) {
			return 130
		}
		if err != nil {
			ui.PrintError(err.Error())
			return 1
		}
	}

	if asJSON {
		if err := writeJSON(result); err != nil {
			ui.PrintError(err.Error())
			return 1
		}
	} else {
		ui.PrintResult(result)
	}

	if discoverErr != nil {
		if !asJSON {
			ui.PrintError(discoverErr.Error())
		}
		return 1
	}
	return 0
}

func runBatch(ctx context.Context, d *discovery.Discoverer, urls []string, opts discovery.Options, asJSON bool) int {
	var results []models.DiscoveryResult

	if asJSON {
		results = d.DiscoverBatch(ctx, urls, opts)
		if err := writeJSON(results); err != nil {
			ui.PrintError(err.Error())
			return 1
		}
		return 0
	}

	err := ui.RunWithSpinner(fmt.Sprintf("Analyzing %d URLs", len(urls)), func() {
		results = d.DiscoverBatch(ctx, urls, opts)
	})
	if errors.Is(err, ui.ErrCancelled) {
		return 130
	}
	if err != nil {
		ui.PrintError(err.Error())
		return 1
	}

	ui.PrintBatchSummary(results)
	ui.PrintSuccess("Done")
	return 0
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
