// Package discovery composes variant generation, archive querying and
// snapshot analysis into the end-to-end discovery operation.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/thesavant42/snapshot-scout/internal/analysis"
	"github.com/thesavant42/snapshot-scout/internal/api"
	"github.com/thesavant42/snapshot-scout/internal/models"
)

// DefaultWorkers bounds how many URLs are analyzed at once in a batch
const DefaultWorkers = 4

// ErrEmptyURL is returned when there is nothing to analyze
var ErrEmptyURL = errors.New("url is required")

// VariantQuerier runs a first-success query over ordered variants
type VariantQuerier interface {
	QueryVariants(ctx context.Context, variants []string) (models.VariantResult, error)
}

// Config tunes a Discoverer
type Config struct {
	MaxResults int  // snapshots kept after dedupe, default 50
	Workers    int  // batch concurrency, default 4
	Windows    bool // run interval analysis when enough snapshots survive
}

// Discoverer produces DiscoveryResults for page URLs
type Discoverer struct {
	querier VariantQuerier
	logger  *log.Logger
	cfg     Config
	now     func() time.Time
}

// New creates a Discoverer around a querier
func New(querier VariantQuerier, logger *log.Logger, cfg Config) *Discoverer {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = analysis.DefaultMaxResults
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	return &Discoverer{
		querier: querier,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Options adjust a single discovery
type Options struct {
	SkipWindows bool
}

// Discover analyzes one URL. A URL with no captures is a normal result with
// Available=false. The returned error is non-nil only for ErrEmptyURL, a
// cancelled ctx, or when the archive could not be queried at all; the result
// then carries the error text.
func (d *Discoverer) Discover(ctx context.Context, rawURL string, opts Options) (models.DiscoveryResult, error) {
	rawURL = strings.TrimSpace(rawURL)
	result := models.DiscoveryResult{
		URL:                 rawURL,
		HistoricalSnapshots: []models.SnapshotRecord{},
		AnalysisQuality:     models.QualityLow,
		DataSource:          models.DataSourceNoData,
		VariantsTried:       []models.VariantAttempt{},
		AnalyzedAt:          d.now().UTC(),
	}

	if rawURL == "" {
		result.Error = ErrEmptyURL.Error()
		return result, ErrEmptyURL
	}

	if root, err := api.ExtractRootDomain(rawURL); err == nil {
		result.RootDomain = root
	}

	variants := api.GenerateVariants(rawURL)
	if d.logger != nil {
		d.logger.Debug("Generated variants", "url", rawURL, "count", len(variants))
	}

	found, err := d.querier.QueryVariants(ctx, variants)
	if found.Attempts != nil {
		result.VariantsTried = found.Attempts
	}
	if err != nil {
		result.Error = err.Error()
		if d.logger != nil {
			if errors.Is(err, context.Canceled) {
				d.logger.Warn("Discovery cancelled by caller", "url", rawURL)
			} else {
				d.logger.Error("Archive query failed", "url", rawURL, "error", err)
			}
		}
		return result, fmt.Errorf("discover %s: %w", rawURL, err)
	}

	if !found.Found() {
		return result, nil
	}

	snapshots := analysis.DedupeByMonth(found.Records, d.cfg.MaxResults)
	result.Available = len(snapshots) > 0
	result.HistoricalSnapshots = snapshots
	result.SuccessfulURL = found.Variant
	result.DataSource = models.DataSourceWayback
	result.AnalysisQuality = QualityFor(len(snapshots))

	if d.cfg.Windows && !opts.SkipWindows && len(snapshots) >= 2 {
		result.ExperimentWindows = analysis.AnalyzeIntervals(snapshots)
	}

	if d.logger != nil {
		d.logger.Info("Discovery complete",
			"url", rawURL,
			"variant", found.Variant,
			"snapshots", len(snapshots),
			"quality", result.AnalysisQuality,
			"windows", len(result.ExperimentWindows),
		)
	}

	return result, nil
}

// QualityFor grades an analysis by how many snapshots survived
func QualityFor(n int) string {
	switch {
	case n > 15:
		return models.QualityHigh
	case n > 5:
		return models.QualityMedium
	default:
		return models.QualityLow
	}
}

// DiscoverBatch analyzes several URLs on a bounded pool of workers.
// Variants of a single URL are still tried sequentially inside its worker.
// Results keep the input order; per-URL failures are reported in Error.
func (d *Discoverer) DiscoverBatch(ctx context.Context, urls []string, opts Options) []models.DiscoveryResult {
	results := make([]models.DiscoveryResult, len(urls))

	var g errgroup.Group
	g.SetLimit(d.cfg.Workers)

	for i, u := range urls {
		g.Go(func() error {
			res, err := d.Discover(ctx, u, opts)
			if err != nil && d.logger != nil {
				d.logger.Warn("Batch item failed", "url", u, "error", err)
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	return results
}
