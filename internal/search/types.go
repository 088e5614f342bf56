package search

import (
	"context"
	"time"
)

// Result is a single web search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// Backend performs raw searches.
type Backend interface {
	Query(ctx context.Context, query string, maxResults int) ([]Result, error)
}

// CacheStore caches formatted search output by query.
type CacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
