// Package config loads journey-lens settings from a YAML file, a .env file
// and JOURNEY_LENS_* environment variables, in that order of precedence
// from lowest to highest.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/golovatskygroup/journey-lens/internal/calc"
	"github.com/golovatskygroup/journey-lens/internal/httpcache"
	"github.com/golovatskygroup/journey-lens/internal/llm"
	"github.com/golovatskygroup/journey-lens/internal/logging"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig     `yaml:"server"`
	Manifest  ManifestConfig   `yaml:"manifest"`
	Search    SearchConfig     `yaml:"search"`
	LLM       llm.Config       `yaml:"llm"`
	Calc      calc.Config      `yaml:"calc"`
	Journal   JournalConfig    `yaml:"journal"`
	Log       logging.Config   `yaml:"log"`
	HTTPCache httpcache.Config `yaml:"http_cache"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ManifestConfig picks the tool catalog source. With BaseURL empty the
// embedded presets (or PresetsFile) are used in-process.
type ManifestConfig struct {
	BaseURL     string `yaml:"base_url"`
	PresetsFile string `yaml:"presets_file"`
}

type SearchConfig struct {
	APIKey     string        `yaml:"-"`
	BaseURL    string        `yaml:"base_url"`
	MaxResults int           `yaml:"max_results"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
	CacheSize  int           `yaml:"cache_size"`
}

// JournalConfig locates the SQLite run journal. An empty path disables it.
type JournalConfig struct {
	Path string `yaml:"path"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			RequestTimeout:  60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Search: SearchConfig{
			MaxResults: 5,
			CacheTTL:   15 * time.Minute,
			CacheSize:  256,
		},
		LLM:       llm.Config{Timeout: 30 * time.Second, MaxTokens: 1024, Temperature: 0.3},
		Calc:      calc.DefaultConfig(),
		Log:       logging.DefaultConfig(),
		HTTPCache: httpcache.DefaultConfig(),
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// any), then the environment. A .env file next to the config file or in the
// working directory is loaded first without overriding set variables.
func Load(path string) (Config, error) {
	path = strings.TrimSpace(path)
	if err := loadDotEnv(path); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg = ApplyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadDotEnv(configPath string) error {
	candidates := []string{".env"}
	if configPath != "" {
		if abs, err := filepath.Abs(configPath); err == nil {
			candidates = append([]string{filepath.Join(filepath.Dir(abs), ".env")}, candidates...)
		}
	}
	for _, p := range candidates {
		if fi, err := os.Stat(p); err != nil || fi.IsDir() {
			continue
		}
		// godotenv.Load never overrides variables that are already set.
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overlays environment variables on cfg.
func ApplyEnv(cfg Config) Config {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	positive := func(key string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				*dst = n
			}
		}
	}
	millis := func(key string, dst *time.Duration) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				*dst = time.Duration(n) * time.Millisecond
			}
		}
	}

	str("JOURNEY_LENS_ADDR", &cfg.Server.Addr)
	millis("JOURNEY_LENS_REQUEST_TIMEOUT_MS", &cfg.Server.RequestTimeout)

	str("JOURNEY_LENS_MANIFEST_URL", &cfg.Manifest.BaseURL)
	str("JOURNEY_LENS_PRESETS_FILE", &cfg.Manifest.PresetsFile)

	str("TAVILY_API_KEY", &cfg.Search.APIKey)
	str("JOURNEY_LENS_SEARCH_BASE_URL", &cfg.Search.BaseURL)
	positive("JOURNEY_LENS_SEARCH_MAX_RESULTS", &cfg.Search.MaxResults)
	if v := strings.TrimSpace(os.Getenv("JOURNEY_LENS_SEARCH_CACHE_TTL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Search.CacheTTL = time.Duration(n) * time.Second
		}
	}

	env := llm.ConfigFromEnv()
	if env.BaseURL != "" {
		cfg.LLM.BaseURL = env.BaseURL
	}
	if env.APIKey != "" {
		cfg.LLM.APIKey = env.APIKey
	}
	if env.Model != "" {
		cfg.LLM.Model = env.Model
	}
	if env.Timeout > 0 {
		cfg.LLM.Timeout = env.Timeout
	}
	if env.MaxTokens > 0 {
		cfg.LLM.MaxTokens = env.MaxTokens
	}

	millis("JOURNEY_LENS_CALC_TIMEOUT_MS", &cfg.Calc.Timeout)
	str("JOURNEY_LENS_JOURNAL_PATH", &cfg.Journal.Path)
	str("JOURNEY_LENS_LOG_LEVEL", &cfg.Log.Level)
	str("JOURNEY_LENS_LOG_FORMAT", &cfg.Log.Format)

	cfg.HTTPCache = httpcache.ConfigFromEnv(cfg.HTTPCache)
	return cfg
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, errors.New("server.request_timeout must be positive"))
	}
	if c.Search.MaxResults <= 0 {
		errs = append(errs, errors.New("search.max_results must be positive"))
	}
	if c.Search.CacheTTL < 0 {
		errs = append(errs, errors.New("search.cache_ttl must not be negative"))
	}
	if c.Calc.Timeout <= 0 {
		errs = append(errs, errors.New("calc.timeout must be positive"))
	}
	if c.HTTPCache.Enabled && c.HTTPCache.MaxEntries <= 0 {
		errs = append(errs, errors.New("http_cache.max_entries must be positive when enabled"))
	}
	switch strings.ToLower(strings.TrimSpace(c.Log.Format)) {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be console or json", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
