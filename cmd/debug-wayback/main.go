// Debug tool to test Wayback CDX variant queries directly
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/thesavant42/snapshot-scout/internal/api"
	"github.com/thesavant42/snapshot-scout/internal/config"
)

func main() {
	target := "https://example.com/"
	if len(os.Args) > 1 {
		target = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		Level:           log.DebugLevel,
		ReportTimestamp: true,
	})

	client := api.NewWaybackClient(logger, cfg.ClientOptions()...)
	variants := api.GenerateVariants(target)

	fmt.Printf("Testing CDX variants for: %s\n", target)
	if root, err := api.ExtractRootDomain(target); err == nil {
		fmt.Printf("Root domain: %s\n", root)
	}
	fmt.Println("\n--- Variants ---")
	for i, v := range variants {
		fmt.Printf("  %d. %s\n     %s\n", i+1, v, client.RequestURL(v))
	}

	fmt.Println("\n--- Querying ---")
	result, err := client.QueryVariants(context.Background(), variants)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}

	for _, a := range result.Attempts {
		status := fmt.Sprintf("%d records", a.Records)
		if a.Error != "" {
			status = "error: " + a.Error
		}
		fmt.Printf("  %-50s %6dms  %s\n", a.Variant, a.DurationMs, status)
	}

	if !result.Found() {
		fmt.Println("\nNo variant returned usable records")
		return
	}

	fmt.Printf("\nMatched variant: %s\n", result.Variant)
	fmt.Println("First records:")
	for i, rec := range result.Records {
		if i >= 3 {
			fmt.Printf("  ... and %d more\n", len(result.Records)-3)
			break
		}
		fmt.Printf("  %d. %s %s (status: %s, %s)\n", i+1, rec.Timestamp, rec.ArchiveURL, rec.StatusCode, rec.ChangeType)
	}
}
