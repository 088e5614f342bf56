// Package search wraps a web search backend and formats results as text.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NoResultsText is returned when a query produces no hits.
const NoResultsText = "No search results found for the given query."

// ErrEmptyQuery is returned for blank queries.
var ErrEmptyQuery = errors.New("empty search query")

// Client formats backend results and caches them by query.
type Client struct {
	backend    Backend
	cache      CacheStore
	cacheTTL   time.Duration
	maxResults int
	logger     zerolog.Logger
}

// ClientOption configures the Client
type ClientOption func(*Client)

func WithBackend(b Backend) ClientOption {
	return func(c *Client) {
		c.backend = b
	}
}

// WithCache sets a custom cache store. A nil store disables caching.
func WithCache(cache CacheStore) ClientOption {
	return func(c *Client) {
		c.cache = cache
	}
}

func WithCacheTTL(ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.cacheTTL = ttl
	}
}

func WithMaxResults(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxResults = n
		}
	}
}

func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a search client backed by Tavily unless overridden.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		cache:      NewInMemoryCache(256),
		cacheTTL:   15 * time.Minute,
		maxResults: 5,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.backend == nil {
		c.backend = NewTavilyClient()
	}
	return c
}

// Search returns the formatted result list for query.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}

	key := cacheKey(query, c.maxResults)
	if c.cache != nil {
		if cached, err := c.cache.Get(ctx, key); err == nil {
			c.logger.Debug().Str("query", query).Msg("search cache hit")
			return cached, nil
		}
	}

	results, err := c.backend.Query(ctx, query, c.maxResults)
	if err != nil {
		return "", fmt.Errorf("search %q: %w", query, err)
	}
	if len(results) > c.maxResults {
		results = results[:c.maxResults]
	}
	out := Format(results)

	if c.cache != nil && len(results) > 0 {
		if err := c.cache.Set(ctx, key, out, c.cacheTTL); err != nil {
			c.logger.Warn().Err(err).Msg("search cache set failed")
		}
	}
	c.logger.Debug().Str("query", query).Int("results", len(results)).Msg("search completed")
	return out, nil
}

// Format renders results as a numbered list with sources.
func Format(results []Result) string {
	if len(results) == 0 {
		return NoResultsText
	}
	parts := make([]string, 0, len(results))
	for i, r := range results {
		parts = append(parts, fmt.Sprintf("%d. **%s**\n   %s\n   Source: %s\n",
			i+1, plainText(r.Title), plainText(r.Content), strings.TrimSpace(r.URL)))
	}
	return strings.Join(parts, "\n")
}

func cacheKey(query string, maxResults int) string {
	return fmt.Sprintf("%d:%s", maxResults, strings.ToLower(query))
}
