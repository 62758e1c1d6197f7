package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultBaseURL is the Article Search endpoint
	DefaultBaseURL = "https://api.nytimes.com/svc/search/v2/articlesearch.json"

	// DefaultUserAgent is sent with every API request
	DefaultUserAgent = "News-app/1.0"

	// DefaultTimeout bounds a single API request
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimitPerMinute matches the published Article Search quota
	DefaultRateLimitPerMinute = 5

	// DefaultResultLimit is the number of reviews returned when the caller does not ask
	DefaultResultLimit = 5

	// APIKeyEnvVar holds the Article Search credential
	APIKeyEnvVar = "NYT_API_KEY"
	// LegacyAPIKeyEnvVar is read when APIKeyEnvVar is unset
	LegacyAPIKeyEnvVar = "NYTIMES_API_KEY"
	// BaseURLEnvVar overrides the endpoint
	BaseURLEnvVar = "NYT_API_BASE_URL"
	// RateLimitEnvVar overrides the requests per minute allowance
	RateLimitEnvVar = "NYT_RATE_LIMIT_PER_MINUTE"
	// DefaultLimitEnvVar overrides DefaultResultLimit
	DefaultLimitEnvVar = "NYT_DEFAULT_LIMIT"
	// ConfigPathEnvVar points at an alternative config file
	ConfigPathEnvVar = "MCP_MOVIEREVIEWS_CONFIG"
)

// Config is the runtime configuration. It is loaded once at startup and
// must not be modified afterwards.
type Config struct {
	APIKey             string        `yaml:"api_key"`
	BaseURL            string        `yaml:"base_url"`
	UserAgent          string        `yaml:"user_agent"`
	Timeout            time.Duration `yaml:"timeout"`
	RateLimitPerMinute float64       `yaml:"rate_limit_per_minute"`
	RateBurst          int           `yaml:"rate_burst"`
	DefaultLimit       int           `yaml:"default_limit"`
}

var (
	global     *Config
	globalErr  error
	globalOnce sync.Once
)

// Default returns a Config populated with the built-in defaults
func Default() *Config {
	return &Config{
		BaseURL:            DefaultBaseURL,
		UserAgent:          DefaultUserAgent,
		Timeout:            DefaultTimeout,
		RateLimitPerMinute: DefaultRateLimitPerMinute,
		RateBurst:          DefaultRateLimitPerMinute,
		DefaultLimit:       DefaultResultLimit,
	}
}

// Init loads the global configuration from path. Only the first call has
// any effect.
func Init(path string) error {
	globalOnce.Do(func() {
		global, globalErr = Load(path)
		if globalErr != nil {
			global = Default()
			applyEnv(global)
		}
	})
	return globalErr
}

// Get returns the global configuration, loading it from the default
// locations if Init was never called.
func Get() *Config {
	_ = Init("")
	return global
}

// Load builds a Config from defaults, the YAML file at path (or the default
// location when path is empty) and the environment, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = defaultPath()
	}
	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	cfg.normalise()
	return cfg, nil
}

// HasAPIKey reports whether a credential is configured
func (c *Config) HasAPIKey() bool {
	return c != nil && strings.TrimSpace(c.APIKey) != ""
}

func loadFile(cfg *Config, path string) error {
	path = expandHome(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if key := os.Getenv(APIKeyEnvVar); key != "" {
		cfg.APIKey = key
	} else if key := os.Getenv(LegacyAPIKeyEnvVar); key != "" {
		cfg.APIKey = key
	}

	if baseURL := os.Getenv(BaseURLEnvVar); baseURL != "" {
		cfg.BaseURL = baseURL
	}

	if raw := os.Getenv(RateLimitEnvVar); raw != "" {
		if value, err := strconv.ParseFloat(raw, 64); err == nil && value >= 0 {
			cfg.RateLimitPerMinute = value
		}
	}

	if raw := os.Getenv(DefaultLimitEnvVar); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DefaultLimit = value
		}
	}
}

func (c *Config) normalise() {
	c.APIKey = strings.TrimSpace(c.APIKey)
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimitPerMinute < 0 {
		c.RateLimitPerMinute = 0
	}
	if c.RateBurst < 1 {
		c.RateBurst = 1
	}
	if c.DefaultLimit < 1 {
		c.DefaultLimit = DefaultResultLimit
	}
}

// defaultPath returns the config file location, honouring ConfigPathEnvVar
func defaultPath() string {
	if customPath := os.Getenv(ConfigPathEnvVar); customPath != "" {
		return customPath
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".mcp-moviereviews", "config.yaml")
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, path[1:])
}
