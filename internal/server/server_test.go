package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesavant42/snapshot-scout/internal/api"
	"github.com/thesavant42/snapshot-scout/internal/discovery"
	"github.com/thesavant42/snapshot-scout/internal/models"
)

type mockDiscoverer struct {
	mu       sync.Mutex
	urls     []string
	opts     []discovery.Options
	discover func(url string) (models.DiscoveryResult, error)
}

func (m *mockDiscoverer) Discover(_ context.Context, rawURL string, opts discovery.Options) (models.DiscoveryResult, error) {
	m.mu.Lock()
	m.urls = append(m.urls, rawURL)
	m.opts = append(m.opts, opts)
	m.mu.Unlock()
	if m.discover != nil {
		return m.discover(rawURL)
	}
	return models.DiscoveryResult{
		URL:                 rawURL,
		Available:           true,
		HistoricalSnapshots: []models.SnapshotRecord{{Timestamp: "20230115000000"}},
		AnalysisQuality:     models.QualityLow,
		DataSource:          models.DataSourceWayback,
		SuccessfulURL:       rawURL,
	}, nil
}

func (m *mockDiscoverer) DiscoverBatch(ctx context.Context, urls []string, opts discovery.Options) []models.DiscoveryResult {
	out := make([]models.DiscoveryResult, len(urls))
	for i, u := range urls {
		out[i], _ = m.Discover(ctx, u, opts)
	}
	return out
}

func setupTestRouter(t *testing.T, d Discoverer) *gin.Engine {
	t.Helper()
	return NewRouter(NewHandler(d, nil, "test"), false)
}

func doRequest(t *testing.T, router http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequestWithContext(t.Context(), method, target, bytes.NewReader(body))
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router := setupTestRouter(t, &mockDiscoverer{})
	w := doRequest(t, router, http.MethodGet, "/api/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestSnapshotsPathForms(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantTarget string
		wantSkip   bool
	}{
		{"plain", "/api/snapshots/https://example.com/products", "https://example.com/products", false},
		{"encoded", "/api/snapshots/https%3A%2F%2Fexample.com%2Fproducts", "https://example.com/products", false},
		{"double encoded", "/api/snapshots/https%253A%252F%252Fexample.com%252F", "https://example.com/", false},
		{"collapsed slash", "/api/snapshots/https:/example.com/a", "https://example.com/a", false},
		{"target query kept", "/api/snapshots/https://example.com/search?q=shoes&windows=false", "https://example.com/search?q=shoes", true},
		{"bare host", "/api/snapshots/example.com", "example.com", false},
		{"target query order kept", "/api/snapshots/https://shop.example.com/p?z=1&a=2&windows=false", "https://shop.example.com/p?z=1&a=2", true},
		{"target query escapes kept", "/api/snapshots/https://example.com/s?q=a%20b&windows=true&x=%2F", "https://example.com/s?q=a%20b&x=%2F", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockDiscoverer{}
			router := setupTestRouter(t, mock)

			w := doRequest(t, router, http.MethodGet, tt.path, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			require.Len(t, mock.urls, 1)
			assert.Equal(t, tt.wantTarget, mock.urls[0])
			assert.Equal(t, tt.wantSkip, mock.opts[0].SkipWindows)

			var res models.DiscoveryResult
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
			assert.True(t, res.Available)
			assert.Equal(t, tt.wantTarget, res.URL)
		})
	}
}

func TestStripQueryParam(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", ""},
		{"windows=false", ""},
		{"z=1&a=2&windows=false", "z=1&a=2"},
		{"windows=false&b=%2F&a", "b=%2F&a"},
		{"windowsize=3&windows", "windowsize=3"},
		{"a=1&&b=2", "a=1&b=2"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, stripQueryParam(tt.raw, "windows"))
		})
	}
}

func TestSnapshotsEmptyURL(t *testing.T) {
	mock := &mockDiscoverer{}
	router := setupTestRouter(t, mock)

	w := doRequest(t, router, http.MethodGet, "/api/snapshots/", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, mock.urls)
}

func TestSnapshotsUnavailableIsOK(t *testing.T) {
	mock := &mockDiscoverer{discover: func(u string) (models.DiscoveryResult, error) {
		return models.DiscoveryResult{
			URL:                 u,
			HistoricalSnapshots: []models.SnapshotRecord{},
			AnalysisQuality:     models.QualityLow,
			DataSource:          models.DataSourceNoData,
		}, nil
	}}
	router := setupTestRouter(t, mock)

	w := doRequest(t, router, http.MethodGet, "/api/snapshots/https://nothing.example/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["available"])
	assert.Equal(t, models.DataSourceNoData, body["dataSource"])
	assert.Equal(t, []any{}, body["historicalSnapshots"])
	_, hasSuccessful := body["successfulUrl"]
	assert.False(t, hasSuccessful)
}

func TestSnapshotsFatalIs500(t *testing.T) {
	mock := &mockDiscoverer{discover: func(u string) (models.DiscoveryResult, error) {
		err := fmt.Errorf("%w: cannot build request", api.ErrQueryUnusable)
		return models.DiscoveryResult{URL: u, Error: err.Error()}, err
	}}
	router := setupTestRouter(t, mock)

	w := doRequest(t, router, http.MethodGet, "/api/snapshots/https://example.com/", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var res models.DiscoveryResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.Available)
	assert.Contains(t, res.Error, "cannot build request")
}

func TestSnapshotsClientGoneIsNot500(t *testing.T) {
	mock := &mockDiscoverer{discover: func(u string) (models.DiscoveryResult, error) {
		err := fmt.Errorf("discover %s: %w", u, context.Canceled)
		return models.DiscoveryResult{URL: u, Error: err.Error()}, err
	}}
	router := setupTestRouter(t, mock)

	w := doRequest(t, router, http.MethodGet, "/api/snapshots/https://example.com/", nil)
	assert.Equal(t, statusClientClosedRequest, w.Code)
}

func TestSnapshotsBatch(t *testing.T) {
	mock := &mockDiscoverer{}
	router := setupTestRouter(t, mock)

	payload, err := json.Marshal(batchRequest{URLs: []string{"https://a.example/", "https://b.example/"}})
	require.NoError(t, err)

	w := doRequest(t, router, http.MethodPost, "/api/snapshots/batch", payload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var results []models.DiscoveryResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "https://a.example/", results[0].URL)
	assert.Equal(t, "https://b.example/", results[1].URL)
}

func TestSnapshotsBatchValidation(t *testing.T) {
	router := setupTestRouter(t, &mockDiscoverer{})

	w := doRequest(t, router, http.MethodPost, "/api/snapshots/batch", []byte(`{"urls":[]}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(t, router, http.MethodPost, "/api/snapshots/batch", []byte(`not json`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	many := make([]string, maxBatchURLs+1)
	for i := range many {
		many[i] = fmt.Sprintf("https://%d.example/", i)
	}
	payload, _ := json.Marshal(batchRequest{URLs: many})
	w = doRequest(t, router, http.MethodPost, "/api/snapshots/batch", payload)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	mock := &mockDiscoverer{discover: func(string) (models.DiscoveryResult, error) {
		panic("kaboom")
	}}
	router := setupTestRouter(t, mock)

	w := doRequest(t, router, http.MethodGet, "/api/snapshots/https://example.com/", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRequestIDPassthrough(t *testing.T) {
	router := setupTestRouter(t, &mockDiscoverer{})
	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "/api/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}
