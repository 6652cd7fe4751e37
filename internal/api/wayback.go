package api

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/thesavant42/snapshot-scout/internal/models"
	"golang.org/x/time/rate"
)

const (
	// DefaultCDXEndpoint is the Wayback Machine CDX search API
	DefaultCDXEndpoint = "https://web.archive.org/cdx/search/cdx"

	DefaultAttemptTimeout = 30 * time.Second
	DefaultRowLimit       = 100
	maxRowLimit           = 100

	// collapse on YYYYMMDD so near-duplicate same-day captures come back once
	cdxCollapse = "timestamp:8"
	cdxFields   = "timestamp,original,statuscode"

	maxErrorBody = 512
)

// ErrQueryUnusable means the request mechanism itself cannot run, as opposed
// to a single variant failing. It is the only error QueryVariants returns.
var ErrQueryUnusable = errors.New("archive query mechanism unusable")

// CDXCache stores raw CDX bodies keyed by request URL
type CDXCache interface {
	GetCDX(ctx context.Context, key string) (body string, ok bool, err error)
	PutCDX(ctx context.Context, key, body string) error
}

// WaybackClient handles Wayback Machine CDX API requests
type WaybackClient struct {
	httpClient     *http.Client
	logger         *log.Logger
	endpoint       string
	archiveBase    string
	rowLimit       int
	attemptTimeout time.Duration
	limiter        *rate.Limiter
	cache          CDXCache
	now            func() time.Time
}

// Option configures a WaybackClient
type Option func(*WaybackClient)

// WithEndpoint overrides the CDX search endpoint
func WithEndpoint(endpoint string) Option {
	return func(c *WaybackClient) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithArchiveBase overrides the host used to build playback URLs
func WithArchiveBase(base string) Option {
	return func(c *WaybackClient) {
		if base != "" {
			c.archiveBase = base
		}
	}
}

// WithRowLimit sets the per-request row cap, clamped to 1..100
func WithRowLimit(limit int) Option {
	return func(c *WaybackClient) {
		switch {
		case limit <= 0:
			c.rowLimit = DefaultRowLimit
		case limit > maxRowLimit:
			c.rowLimit = maxRowLimit
		default:
			c.rowLimit = limit
		}
	}
}

// WithAttemptTimeout sets the independent timeout applied to each variant
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *WaybackClient) {
		if d > 0 {
			c.attemptTimeout = d
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit paces outbound requests across all callers sharing the client.
// rps <= 0 disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *WaybackClient) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithCache enables the raw response cache
func WithCache(cache CDXCache) Option {
	return func(c *WaybackClient) {
		c.cache = cache
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *WaybackClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithClock sets the clock used to classify captures
func WithClock(now func() time.Time) Option {
	return func(c *WaybackClient) {
		if now != nil {
			c.now = now
		}
	}
}

// NewWaybackClient creates a new Wayback Machine API client
func NewWaybackClient(logger *log.Logger, opts ...Option) *WaybackClient {
	c := &WaybackClient{
		httpClient: &http.Client{
			Timeout: DefaultAttemptTimeout,
		},
		logger:         logger,
		endpoint:       DefaultCDXEndpoint,
		archiveBase:    DefaultArchiveBase,
		rowLimit:       DefaultRowLimit,
		attemptTimeout: DefaultAttemptTimeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BuildCDXQuery constructs the raw query string for a single variant lookup.
// Returns the query string WITHOUT the leading '?'
func BuildCDXQuery(variant string, limit int) string {
	if limit <= 0 || limit > maxRowLimit {
		limit = DefaultRowLimit
	}
	return fmt.Sprintf(
		"url=%s&output=json&fl=%s&matchType=prefix&collapse=%s&limit=%d",
		url.QueryEscape(strings.TrimSpace(variant)),
		cdxFields,
		cdxCollapse,
		limit,
	)
}

// RequestURL returns the full CDX request URL for a variant
func (c *WaybackClient) RequestURL(variant string) string {
	return c.endpoint + "?" + BuildCDXQuery(variant, c.rowLimit)
}

// FetchCDX performs one bounded CDX request for a variant and returns the raw body.
// A request that cannot even be constructed is reported as ErrQueryUnusable.
func (c *WaybackClient) FetchCDX(ctx context.Context, variant string) (string, error) {
	rawURL := c.RequestURL(variant)

	if c.cache != nil {
		body, ok, err := c.cache.GetCDX(ctx, rawURL)
		if err != nil && c.logger != nil {
			c.logger.Warn("CDX cache read failed", "variant", variant, "error", err)
		}
		if ok {
			if c.logger != nil {
				c.logger.Debug("CDX cache hit", "variant", variant)
			}
			return body, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrQueryUnusable, err)
	}

	// Set headers emulating a real browser
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Referer", "https://web.archive.org/")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip")

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("CDX API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	// Handle gzip-compressed responses
	var reader io.Reader = resp.Body
	contentEncoding := strings.ToLower(resp.Header.Get("Content-Encoding"))
	if strings.Contains(contentEncoding, "gzip") {
		gzReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzReader.Close()
		reader = gzReader
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if c.cache != nil {
		if err := c.cache.PutCDX(ctx, rawURL, string(body)); err != nil && c.logger != nil {
			c.logger.Warn("CDX cache write failed", "variant", variant, "error", err)
		}
	}

	return string(body), nil
}

// QueryVariants tries each variant in order and returns the first one whose
// response parses to at least one record. Results of different variants are
// never merged. Exhausting every variant is not an error: the returned result
// simply has no Variant. An error is returned only when the caller's context
// is done or the request mechanism is unusable. A caller that cancels gets
// context.Canceled, never ErrQueryUnusable.
func (c *WaybackClient) QueryVariants(ctx context.Context, variants []string) (models.VariantResult, error) {
	var result models.VariantResult

	for i, variant := range variants {
		if ctx.Err() != nil {
			return result, parentDone(ctx)
		}

		start := time.Now()
		records, err := c.queryVariant(ctx, variant)
		attempt := models.VariantAttempt{
			Variant:    variant,
			Records:    len(records),
			DurationMs: time.Since(start).Milliseconds(),
		}

		if err != nil {
			if errors.Is(err, ErrQueryUnusable) {
				return result, err
			}
			if ctx.Err() != nil {
				return result, parentDone(ctx)
			}
			attempt.Error = err.Error()
			result.Attempts = append(result.Attempts, attempt)
			if c.logger != nil {
				c.logger.Warn("Variant query failed, trying next", "variant", variant, "attempt", i+1, "of", len(variants), "error", err)
			}
			continue
		}

		result.Attempts = append(result.Attempts, attempt)

		if len(records) == 0 {
			if c.logger != nil {
				c.logger.Debug("Variant returned no captures", "variant", variant, "attempt", i+1)
			}
			continue
		}

		if c.logger != nil {
			c.logger.Info("Variant matched", "variant", variant, "records", len(records), "attempt", i+1)
		}
		result.Variant = variant
		result.Records = records
		return result, nil
	}

	if c.logger != nil {
		c.logger.Info("No captures found for any variant", "variants", len(variants))
	}
	return result, nil
}

// parentDone reports why the caller's context ended. Cancellation is the
// caller walking away; a deadline means the archive could not answer in time.
func parentDone(ctx context.Context) error {
	err := ctx.Err()
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("archive query cancelled: %w", err)
	}
	return fmt.Errorf("%w: %w", ErrQueryUnusable, err)
}

// queryVariant runs a single timeout-bounded attempt
func (c *WaybackClient) queryVariant(ctx context.Context, variant string) ([]models.SnapshotRecord, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	body, err := c.FetchCDX(attemptCtx, variant)
	if err != nil {
		return nil, err
	}
	return ParseCDXLines(body, c.archiveBase, c.now(), c.logger), nil
}
