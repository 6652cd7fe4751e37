package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"
)

const sampleBody = `[["timestamp","original","statuscode"],
["20230115000000","http://www.example.com/products","200"],
["20230220000000","http://www.example.com/products","200"]]
`

// fakeCDX serves canned bodies keyed by the url= parameter and records the queries it saw
type fakeCDX struct {
	mu      sync.Mutex
	bodies  map[string]string
	status  map[string]int
	delay   map[string]time.Duration
	queries []url.Values
}

func (f *fakeCDX) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()

	variant := q.Get("url")
	if d, ok := f.delay[variant]; ok {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
	}
	if code, ok := f.status[variant]; ok {
		w.WriteHeader(code)
		_, _ = w.Write([]byte("unavailable"))
		return
	}
	_, _ = w.Write([]byte(f.bodies[variant]))
}

func (f *fakeCDX) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.queries))
	for i, q := range f.queries {
		out[i] = q.Get("url")
	}
	return out
}

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *WaybackClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	base := []Option{
		WithEndpoint(srv.URL + "/cdx/search/cdx"),
		WithClock(func() time.Time { return time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC) }),
	}
	return NewWaybackClient(nil, append(base, opts...)...)
}

// TestBuildCDXQuery verifies the query string carries every directive
func TestBuildCDXQuery(t *testing.T) {
	query := BuildCDXQuery("https://example.com/a?b=1", 100)

	values, err := url.ParseQuery(query)
	if err != nil {
		t.Fatalf("ParseQuery(%q) error: %v", query, err)
	}

	want := map[string]string{
		"url":       "https://example.com/a?b=1",
		"output":    "json",
		"fl":        "timestamp,original,statuscode",
		"matchType": "prefix",
		"collapse":  "timestamp:8",
		"limit":     "100",
	}
	for k, v := range want {
		if got := values.Get(k); got != v {
			t.Errorf("BuildCDXQuery() %s = %q, want %q", k, got, v)
		}
	}
}

func TestBuildCDXQueryClampsLimit(t *testing.T) {
	for _, limit := range []int{0, -3, 500} {
		values, _ := url.ParseQuery(BuildCDXQuery("example.com", limit))
		if got := values.Get("limit"); got != "100" {
			t.Errorf("BuildCDXQuery(limit=%d) limit = %q, want 100", limit, got)
		}
	}
}

func TestWithRowLimit(t *testing.T) {
	tests := []struct{ in, want int }{{0, 100}, {25, 25}, {1000, 100}}
	for _, tt := range tests {
		c := NewWaybackClient(nil, WithRowLimit(tt.in))
		if c.rowLimit != tt.want {
			t.Errorf("WithRowLimit(%d) rowLimit = %d, want %d", tt.in, c.rowLimit, tt.want)
		}
	}
}

// TestQueryVariantsFirstSuccessWins stops at the first variant with records
func TestQueryVariantsFirstSuccessWins(t *testing.T) {
	fake := &fakeCDX{
		bodies: map[string]string{
			"https://example.com/products":     `[["timestamp","original","statuscode"]]`,
			"https://www.example.com/products": sampleBody,
			"www.example.com/products":         sampleBody,
		},
	}
	client := newTestClient(t, fake)

	variants := GenerateVariants("https://example.com/products")
	result, err := client.QueryVariants(context.Background(), variants)
	if err != nil {
		t.Fatalf("QueryVariants() error: %v", err)
	}

	if result.Variant != "https://www.example.com/products" {
		t.Errorf("Variant = %q, want www form", result.Variant)
	}
	if !result.Found() || len(result.Records) != 2 {
		t.Errorf("Records = %d, want 2", len(result.Records))
	}
	if len(result.Attempts) != 2 {
		t.Errorf("Attempts = %d, want 2", len(result.Attempts))
	}

	seen := fake.seen()
	if len(seen) != 2 {
		t.Errorf("server saw %d queries, want 2: %q", len(seen), seen)
	}
}

// TestQueryVariantsSkipsFailures advances past non-2xx and timed out variants
func TestQueryVariantsSkipsFailures(t *testing.T) {
	fake := &fakeCDX{
		status: map[string]int{"a": http.StatusServiceUnavailable},
		delay:  map[string]time.Duration{"b": 2 * time.Second},
		bodies: map[string]string{
			"b": sampleBody,
			"c": sampleBody,
		},
	}
	client := newTestClient(t, fake, WithAttemptTimeout(100*time.Millisecond))

	result, err := client.QueryVariants(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("QueryVariants() error: %v", err)
	}
	if result.Variant != "c" {
		t.Errorf("Variant = %q, want c", result.Variant)
	}
	if len(result.Attempts) != 3 {
		t.Fatalf("Attempts = %d, want 3", len(result.Attempts))
	}
	if result.Attempts[0].Error == "" || result.Attempts[1].Error == "" {
		t.Errorf("expected errors on failed attempts: %+v", result.Attempts)
	}
	if !strings.Contains(result.Attempts[0].Error, "503") {
		t.Errorf("attempt error = %q, want status 503", result.Attempts[0].Error)
	}
}

// TestQueryVariantsExhausted reports unavailability without error
func TestQueryVariantsExhausted(t *testing.T) {
	fake := &fakeCDX{bodies: map[string]string{}}
	client := newTestClient(t, fake)

	result, err := client.QueryVariants(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("QueryVariants() error: %v", err)
	}
	if result.Found() || result.Variant != "" {
		t.Errorf("expected no variant, got %q", result.Variant)
	}
	if len(result.Attempts) != 2 {
		t.Errorf("Attempts = %d, want 2", len(result.Attempts))
	}
}

// TestQueryVariantsUnusableEndpoint surfaces a fatal error when no request can be built
func TestQueryVariantsUnusableEndpoint(t *testing.T) {
	client := NewWaybackClient(nil, WithEndpoint("http://bad host\x7f/cdx"))

	_, err := client.QueryVariants(context.Background(), []string{"example.com"})
	if !errors.Is(err, ErrQueryUnusable) {
		t.Fatalf("QueryVariants() error = %v, want ErrQueryUnusable", err)
	}
}

func TestQueryVariantsCancelledContext(t *testing.T) {
	fake := &fakeCDX{bodies: map[string]string{"a": sampleBody}}
	client := newTestClient(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.QueryVariants(ctx, []string{"a"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("QueryVariants() error = %v, want context.Canceled", err)
	}
	if errors.Is(err, ErrQueryUnusable) {
		t.Errorf("QueryVariants() error = %v, a cancelled caller is not an unusable archive", err)
	}
	if len(fake.seen()) != 0 {
		t.Errorf("no request should be sent on a cancelled context")
	}
}

func TestQueryVariantsCancelledMidAttempt(t *testing.T) {
	fake := &fakeCDX{
		bodies: map[string]string{"b": sampleBody},
		delay:  map[string]time.Duration{"a": time.Second},
	}
	client := newTestClient(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := client.QueryVariants(ctx, []string{"a", "b"})
	if !errors.Is(err, context.Canceled) || errors.Is(err, ErrQueryUnusable) {
		t.Fatalf("QueryVariants() error = %v, want plain cancellation", err)
	}
}

func TestQueryVariantsParentDeadline(t *testing.T) {
	fake := &fakeCDX{bodies: map[string]string{"a": sampleBody}}
	client := newTestClient(t, fake)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := client.QueryVariants(ctx, []string{"a"})
	if !errors.Is(err, ErrQueryUnusable) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("QueryVariants() error = %v, want unusable+deadline", err)
	}
}

func TestFetchCDXGzip(t *testing.T) {
	encodings := make(chan string, 1)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		encodings <- r.Header.Get("Accept-Encoding")
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, _ = gz.Write([]byte(sampleBody))
		_ = gz.Close()
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes())
	})
	client := newTestClient(t, handler)

	body, err := client.FetchCDX(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("FetchCDX() error: %v", err)
	}
	if body != sampleBody {
		t.Errorf("FetchCDX() body = %q", body)
	}
	// Only advertise encodings the client can decode
	if got := <-encodings; got != "gzip" {
		t.Errorf("Accept-Encoding = %q, want gzip", got)
	}
}

type countingTransport struct {
	mu    sync.Mutex
	calls int
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return http.DefaultTransport.RoundTrip(r)
}

func TestWithHTTPClientIsUsed(t *testing.T) {
	fake := &fakeCDX{bodies: map[string]string{"a": sampleBody}}
	transport := &countingTransport{}
	client := newTestClient(t, fake,
		WithHTTPClient(&http.Client{Transport: transport}),
		WithAttemptTimeout(2*time.Second),
	)

	result, err := client.QueryVariants(context.Background(), []string{"a"})
	if err != nil {
		t.Fatalf("QueryVariants() error: %v", err)
	}
	if !result.Found() {
		t.Fatalf("expected records through the injected client")
	}
	transport.mu.Lock()
	defer transport.mu.Unlock()
	if transport.calls != 1 {
		t.Errorf("injected transport saw %d requests, want 1", transport.calls)
	}
}

type memCache struct {
	mu   sync.Mutex
	data map[string]string
	puts int
}

func (m *memCache) GetCDX(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.data[key]
	return body, ok, nil
}

func (m *memCache) PutCDX(_ context.Context, key, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = body
	m.puts++
	return nil
}

func TestFetchCDXUsesCache(t *testing.T) {
	fake := &fakeCDX{bodies: map[string]string{"example.com": sampleBody}}
	cache := &memCache{data: map[string]string{}}
	client := newTestClient(t, fake, WithCache(cache))

	for i := 0; i < 3; i++ {
		body, err := client.FetchCDX(context.Background(), "example.com")
		if err != nil {
			t.Fatalf("FetchCDX() error: %v", err)
		}
		if body != sampleBody {
			t.Errorf("FetchCDX() body mismatch on call %d", i)
		}
	}

	if n := len(fake.seen()); n != 1 {
		t.Errorf("server saw %d requests, want 1", n)
	}
	if cache.puts != 1 {
		t.Errorf("cache puts = %d, want 1", cache.puts)
	}
}

func TestWithRateLimitPacesRequests(t *testing.T) {
	fake := &fakeCDX{bodies: map[string]string{}}
	client := newTestClient(t, fake, WithRateLimit(20, 1))

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := client.FetchCDX(context.Background(), "example.com"); err != nil {
			t.Fatalf("FetchCDX() error: %v", err)
		}
	}
	// 3 requests at 20/s with burst 1 need at least ~100ms
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("requests not paced: elapsed %v", elapsed)
	}
}

// TestQueryVariantsIntegration is an integration test that actually calls the API
// Run with: go test -v -run TestQueryVariantsIntegration ./internal/api/
func TestQueryVariantsIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	client := NewWaybackClient(nil)
	result, err := client.QueryVariants(context.Background(), GenerateVariants("https://example.com/"))
	if err != nil {
		t.Fatalf("QueryVariants failed: %v", err)
	}

	t.Logf("Matched variant %q with %d records after %d attempts", result.Variant, len(result.Records), len(result.Attempts))
	if !result.Found() {
		t.Error("Expected at least some records for example.com")
	}
}
