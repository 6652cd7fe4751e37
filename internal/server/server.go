// Package server exposes snapshot discovery over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/thesavant42/snapshot-scout/internal/discovery"
	"github.com/thesavant42/snapshot-scout/internal/models"
)

const (
	serviceName = "snapshot-scout"

	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 5 * time.Minute // a discovery may walk several 30s attempts
	defaultIdleTimeout  = 120 * time.Second

	maxBatchURLs = 50

	// nginx convention for a client that went away before the response
	statusClientClosedRequest = 499
)

// Discoverer is the subset of discovery.Discoverer the handlers need
type Discoverer interface {
	Discover(ctx context.Context, rawURL string, opts discovery.Options) (models.DiscoveryResult, error)
	DiscoverBatch(ctx context.Context, urls []string, opts discovery.Options) []models.DiscoveryResult
}

// Handler serves the snapshot API
type Handler struct {
	discoverer Discoverer
	logger     *log.Logger
	version    string
}

// NewHandler creates a Handler
func NewHandler(d Discoverer, logger *log.Logger, version string) *Handler {
	return &Handler{discoverer: d, logger: logger, version: version}
}

// NewRouter builds the gin engine with middleware and routes
func NewRouter(h *Handler, debug bool) *gin.Engine {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.UseRawPath = true
	router.UnescapePathValues = false
	router.Use(RequestIDMiddleware(), RecoveryMiddleware(h.logger), LoggerMiddleware(h.logger))

	api := router.Group("/api")
	{
		api.GET("/health", h.Health)
		api.POST("/snapshots/batch", h.SnapshotsBatch)
		api.GET("/snapshots/*url", h.Snapshots)
	}

	return router
}

// NewHTTPServer wraps the router in an http.Server with sane timeouts
func NewHTTPServer(addr string, router http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}
}

// Health returns a static liveness payload
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": serviceName,
		"version": h.version,
	})
}

// Snapshots handles GET /api/snapshots/{url}
func (h *Handler) Snapshots(c *gin.Context) {
	target, err := targetFromPath(c.Param("url"), c.Request.URL.RawQuery)
	if err != nil || target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": discovery.ErrEmptyURL.Error()})
		return
	}

	opts := discovery.Options{SkipWindows: !queryBool(c, "windows", true)}

	result, err := h.discoverer.Discover(c.Request.Context(), target, opts)
	if err != nil {
		if errors.Is(err, discovery.ErrEmptyURL) {
			c.JSON(http.StatusBadRequest, result)
			return
		}
		if errors.Is(err, context.Canceled) {
			c.JSON(statusClientClosedRequest, result)
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

type batchRequest struct {
	URLs []string `json:"urls"`
}

// SnapshotsBatch handles POST /api/snapshots/batch
func (h *Handler) SnapshotsBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.URLs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: urls required"})
		return
	}
	if len(req.URLs) > maxBatchURLs {
		c.JSON(http.StatusBadRequest, gin.H{"error": "too many urls, max " + strconv.Itoa(maxBatchURLs)})
		return
	}

	opts := discovery.Options{SkipWindows: !queryBool(c, "windows", true)}
	c.JSON(http.StatusOK, h.discoverer.DiscoverBatch(c.Request.Context(), req.URLs, opts))
}

// targetFromPath recovers the analyzed URL from the catch-all segment.
// The segment may be percent-encoded once or twice, and proxies tend to
// collapse "https://" to "https:/". Decoding stops once a scheme is visible.
func targetFromPath(param, rawQuery string) (string, error) {
	target := strings.TrimPrefix(param, "/")
	for i := 0; i < 2 && strings.Contains(target, "%") && !strings.Contains(target, ":/"); i++ {
		decoded, err := url.PathUnescape(target)
		if err != nil {
			return "", err
		}
		target = decoded
	}

	for _, scheme := range []string{"http:/", "https:/"} {
		if strings.HasPrefix(target, scheme) && !strings.HasPrefix(target, scheme+"/") {
			target = scheme + "/" + strings.TrimPrefix(target, scheme)
			break
		}
	}

	// Query parameters of our own API are not part of the target
	if rest := stripQueryParam(rawQuery, "windows"); rest != "" && !strings.Contains(target, "?") {
		target += "?" + rest
	}

	return strings.TrimSpace(target), nil
}

// stripQueryParam drops every key=value pair named key from a raw query and
// keeps the remaining pairs in their original order and encoding.
func stripQueryParam(rawQuery, key string) string {
	if rawQuery == "" {
		return ""
	}
	pairs := strings.Split(rawQuery, "&")
	kept := pairs[:0]
	for _, pair := range pairs {
		name, _, _ := strings.Cut(pair, "=")
		if name == key || pair == "" {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}

func queryBool(c *gin.Context, key string, def bool) bool {
	v := c.Query(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// RequestIDMiddleware adds a unique request ID to each request.
// The ID is either taken from X-Request-ID header or generated.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// LoggerMiddleware logs one line per request
func LoggerMiddleware(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if logger == nil {
			return
		}
		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", c.GetString("request_id"),
		}
		if len(c.Errors) > 0 {
			logger.Error("HTTP request with errors", append(fields, "errors", c.Errors.String())...)
			return
		}
		logger.Info("HTTP request", fields...)
	}
}

// RecoveryMiddleware turns panics into a logged 500
func RecoveryMiddleware(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				if logger != nil {
					logger.Error("Panic recovered", "error", err, "path", c.Request.URL.Path)
				}
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "internal server error",
				})
			}
		}()
		c.Next()
	}
}
