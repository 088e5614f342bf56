// Package llm talks to an OpenRouter-compatible chat completions API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// Config selects the model endpoint. Empty fields fall back to defaults.
type Config struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"-"`
	Model       string        `yaml:"model"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
}

// ConfigFromEnv reads OPENROUTER_API_KEY and JOURNEY_LENS_LLM_* variables.
func ConfigFromEnv() Config {
	cfg := Config{
		BaseURL: strings.TrimSpace(os.Getenv("JOURNEY_LENS_LLM_BASE_URL")),
		APIKey:  strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY")),
		Model:   strings.TrimSpace(os.Getenv("JOURNEY_LENS_LLM_MODEL")),
	}
	if ms := strings.TrimSpace(os.Getenv("JOURNEY_LENS_LLM_TIMEOUT_MS")); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 {
			cfg.Timeout = time.Duration(v) * time.Millisecond
		}
	}
	if v := strings.TrimSpace(os.Getenv("JOURNEY_LENS_LLM_MAX_TOKENS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxTokens = n
		}
	}
	return cfg
}

type Client struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	c           *http.Client
}

// NewClient validates cfg and builds a client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("missing OPENROUTER_API_KEY or JOURNEY_LENS_LLM_MODEL")
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		c:           &http.Client{Timeout: timeout},
	}, nil
}

// ChatCompletionText returns the assistant content and finish reason.
func (cl *Client) ChatCompletionText(ctx context.Context, system string, user string) (string, string, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	messages := make([]msg, 0, 2)
	if strings.TrimSpace(system) != "" {
		messages = append(messages, msg{Role: "system", Content: system})
	}
	messages = append(messages, msg{Role: "user", Content: user})

	body := map[string]any{
		"model":       cl.model,
		"messages":    messages,
		"temperature": cl.temperature,
	}
	if cl.maxTokens > 0 {
		body["max_tokens"] = cl.maxTokens
	}

	b, err := json.Marshal(body)
	if err != nil {
		return "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cl.baseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", "Bearer "+cl.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", "https://github.com/golovatskygroup/journey-lens")
	req.Header.Set("X-Title", "journey-lens")

	resp, err := cl.c.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("openrouter error (%d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", "", err
	}
	if len(parsed.Choices) == 0 {
		return "", "", errors.New("openrouter: empty choices")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", "", errors.New("openrouter: empty message content")
	}
	return content, strings.TrimSpace(parsed.Choices[0].FinishReason), nil
}
