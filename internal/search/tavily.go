package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultTavilyBaseURL = "https://api.tavily.com"

// TavilyClient implements Backend against the Tavily search API.
type TavilyClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewTavilyClient creates a client reading TAVILY_API_KEY from the environment.
func NewTavilyClient() *TavilyClient {
	return NewTavilyClientWithKey(strings.TrimSpace(os.Getenv("TAVILY_API_KEY")))
}

// NewTavilyClientWithKey creates a client with an explicit API key.
func NewTavilyClientWithKey(apiKey string) *TavilyClient {
	return &TavilyClient{
		apiKey:  apiKey,
		baseURL: defaultTavilyBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithBaseURL overrides the API base URL.
func (c *TavilyClient) WithBaseURL(baseURL string) *TavilyClient {
	if s := strings.TrimSpace(baseURL); s != "" {
		c.baseURL = strings.TrimRight(s, "/")
	}
	return c
}

// Query performs a search and returns raw results.
func (c *TavilyClient) Query(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if c.apiKey == "" {
		return nil, errors.New("missing TAVILY_API_KEY")
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	reqBody := map[string]any{
		"api_key":     c.apiKey,
		"query":       query,
		"max_results": maxResults,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var apiResp struct {
		Results []Result `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return apiResp.Results, nil
}
