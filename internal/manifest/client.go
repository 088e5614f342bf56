package manifest

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golovatskygroup/journey-lens/internal/httpcache"
	"github.com/golovatskygroup/journey-lens/internal/schema"
	"github.com/rs/zerolog"
)

//go:embed schema.json
var manifestSchema []byte

const maxBodyBytes = 1 << 20

// Client fetches stage manifests over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *httpcache.Config
	logger     zerolog.Logger
}

// ClientOption configures the Client
type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithCache routes requests through an ETag-revalidating response cache.
// The cache wraps the final HTTP client's transport regardless of option
// order.
func WithCache(cfg httpcache.Config) ClientOption {
	return func(c *Client) {
		c.cache = &cfg
	}
}

func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client for the manifest service at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache != nil {
		hc := *c.httpClient
		hc.Transport = httpcache.NewTransport(hc.Transport, *c.cache)
		c.httpClient = &hc
	}
	return c
}

// Fetch implements Fetcher. Every failure is logged and yields no tools.
func (c *Client) Fetch(ctx context.Context, stage string) []ToolDescriptor {
	m, err := c.Manifest(ctx, stage)
	if err != nil {
		c.logger.Warn().Err(err).Str("stage", stage).Msg("tool manifest unavailable")
		return []ToolDescriptor{}
	}
	return m.Tools
}

// Manifest fetches and validates the full manifest of stage.
func (c *Client) Manifest(ctx context.Context, stage string) (StageManifest, error) {
	stage = strings.TrimSpace(stage)
	if stage == "" {
		return StageManifest{}, fmt.Errorf("empty stage")
	}
	if c.baseURL == "" {
		return StageManifest{}, fmt.Errorf("manifest base url not configured")
	}

	u := c.baseURL + "/journey/" + url.PathEscape(stage)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return StageManifest{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return StageManifest{}, fmt.Errorf("get %s: %w", u, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return StageManifest{}, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return StageManifest{}, fmt.Errorf("manifest service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := schema.ValidateJSON("stage_manifest", manifestSchema, body); err != nil {
		return StageManifest{}, err
	}

	var m StageManifest
	if err := json.Unmarshal(body, &m); err != nil {
		return StageManifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Stage == "" {
		m.Stage = stage
	}
	c.logger.Debug().Str("stage", stage).Int("tools", len(m.Tools)).Msg("fetched tool manifest")
	return m, nil
}

// CacheStats reports response cache counters when caching is enabled.
func (c *Client) CacheStats() (httpcache.Stats, bool) {
	return httpcache.StatsOf(c.httpClient.Transport)
}
