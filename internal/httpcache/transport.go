package httpcache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Enabled    bool          `yaml:"enabled"`
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

func DefaultConfig() Config {
	return Config{Enabled: true, TTL: 60 * time.Second, MaxEntries: 128}
}

// ConfigFromEnv overlays JOURNEY_LENS_HTTP_CACHE_* variables on base.
func ConfigFromEnv(base Config) Config {
	cfg := base
	if v := strings.TrimSpace(os.Getenv("JOURNEY_LENS_HTTP_CACHE_ENABLED")); v != "" {
		cfg.Enabled = v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes")
	}
	if v := strings.TrimSpace(os.Getenv("JOURNEY_LENS_HTTP_CACHE_TTL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.TTL = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("JOURNEY_LENS_HTTP_CACHE_MAX_ENTRIES")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxEntries = n
		}
	}
	return cfg
}

// Transport caches 2xx GET responses keyed by URL and identity headers.
type Transport struct {
	base       http.RoundTripper
	cache      *Cache
	keyHeaders []string
	now        func() time.Time
}

// NewTransport wraps base. It returns base unchanged when caching is disabled.
func NewTransport(base http.RoundTripper, cfg Config) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if !cfg.Enabled {
		return base
	}
	return &Transport{
		base:       base,
		cache:      New(cfg.TTL, cfg.MaxEntries),
		keyHeaders: []string{"Authorization", "Accept", "Accept-Language"},
		now:        time.Now,
	}
}

// StatsOf reports cache counters for rt, or false when rt does not cache.
func StatsOf(rt http.RoundTripper) (Stats, bool) {
	t, ok := rt.(*Transport)
	if !ok {
		return Stats{}, false
	}
	return t.cache.Stats(), true
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("httpcache: nil request")
	}
	if req.Method != http.MethodGet {
		return t.base.RoundTrip(req)
	}

	key := req.URL.String() + " " + fingerprintHeaders(req.Header, t.keyHeaders)

	outbound := req
	prev, cached := t.cache.get(key)
	if cached {
		if ttl := t.cache.TTL(); ttl > 0 && t.now().Sub(prev.storedAt) < ttl {
			t.cache.hit()
			return cachedResponse(req, prev), nil
		}
		if prev.etag != "" {
			outbound = req.Clone(req.Context())
			outbound.Header = cloneHeader(req.Header)
			outbound.Header.Set("If-None-Match", prev.etag)
		}
	}

	resp, err := t.base.RoundTrip(outbound)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if outbound != req && resp.StatusCode == http.StatusNotModified {
		t.cache.touch(key, t.now())
		return cachedResponse(req, prev), nil
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpcache: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.cache.remove(key)
		return responseWithBody(req, resp, b, resp.Header), nil
	}
	ent := t.cache.put(key, resp.StatusCode, resp.Header, b, t.now())
	return responseWithBody(req, resp, b, ent.header), nil
}

func responseWithBody(req *http.Request, resp *http.Response, body []byte, header http.Header) *http.Response {
	return &http.Response{
		StatusCode:    resp.StatusCode,
		Status:        resp.Status,
		Header:        cloneHeader(header),
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
		Proto:         resp.Proto,
		ProtoMajor:    resp.ProtoMajor,
		ProtoMinor:    resp.ProtoMinor,
	}
}

func cachedResponse(req *http.Request, ent entry) *http.Response {
	status := ent.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode:    status,
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:        cloneHeader(ent.header),
		Body:          io.NopCloser(bytes.NewReader(ent.body)),
		ContentLength: int64(len(ent.body)),
		Request:       req,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
	}
}
