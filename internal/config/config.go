// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
	Port      int    `mapstructure:"PORT"`
	DBURL     string `mapstructure:"DB_URL"`

	GithubToken             string        `mapstructure:"GITHUB_TOKEN"`
	GithubAPIURL            string        `mapstructure:"GITHUB_API_URL"`
	GithubGraphQLURL        string        `mapstructure:"GITHUB_GRAPHQL_URL"`
	GithubRequestsPerSecond float64       `mapstructure:"GITHUB_REQUESTS_PER_SECOND"`
	SearchDelay             time.Duration `mapstructure:"SEARCH_DELAY"`
	StatsRetryDelay         time.Duration `mapstructure:"STATS_RETRY_DELAY"`
	RateLimitPause          time.Duration `mapstructure:"RATE_LIMIT_PAUSE"`

	SyncDataOnStartup   bool          `mapstructure:"SYNC_DATA_ON_STARTUP"`
	SyncInterval        time.Duration `mapstructure:"SYNC_INTERVAL"`
	TopReposTarget      int           `mapstructure:"TOP_REPOS_TARGET"`
	GrowingReposTarget  int           `mapstructure:"GROWING_REPOS_TARGET"`
	TrendingReposTarget int           `mapstructure:"TRENDING_REPOS_TARGET"`
	DevelopersTarget    int           `mapstructure:"DEVELOPERS_TARGET"`
	BackfillLimit       int           `mapstructure:"BACKFILL_LIMIT"`
	HydrateLimit        int           `mapstructure:"HYDRATE_LIMIT"`
	RequestDelay        time.Duration `mapstructure:"REQUEST_DELAY"`

	BigQueryProjectID string `mapstructure:"BIGQUERY_PROJECT_ID"`

	OpenAIAPIKey      string `mapstructure:"OPENAI_API_KEY"`
	OpenAIBaseURL     string `mapstructure:"OPENAI_BASE_URL"`
	OpenAIChatModel   string `mapstructure:"OPENAI_CHAT_MODEL"`
	EmbeddingProvider string `mapstructure:"EMBEDDING_PROVIDER"`
	EmbeddingModel    string `mapstructure:"EMBEDDING_MODEL"`
	OllamaURL         string `mapstructure:"OLLAMA_URL"`

	CacheTTL           time.Duration `mapstructure:"CACHE_TTL"`
	CacheSize          int           `mapstructure:"CACHE_SIZE"`
	CORSAllowedOrigins []string      `mapstructure:"CORS_ALLOWED_ORIGINS"`

	OTelEnabled bool   `mapstructure:"OTEL_ENABLED"`
	ServiceName string `mapstructure:"SERVICE_NAME"`

	v *viper.Viper
}

var defaults = map[string]any{
	"LOG_LEVEL":                  "info",
	"LOG_FORMAT":                 "json",
	"PORT":                       8080,
	"DB_URL":                     "",
	"GITHUB_TOKEN":               "",
	"GITHUB_API_URL":             "",
	"GITHUB_GRAPHQL_URL":         "",
	"GITHUB_REQUESTS_PER_SECOND": 5,
	"SEARCH_DELAY":               "2s",
	"STATS_RETRY_DELAY":          "2s",
	"RATE_LIMIT_PAUSE":           "60s",
	"SYNC_DATA_ON_STARTUP":       false,
	"SYNC_INTERVAL":              "0s",
	"TOP_REPOS_TARGET":           200,
	"GROWING_REPOS_TARGET":       100,
	"TRENDING_REPOS_TARGET":      100,
	"DEVELOPERS_TARGET":          50,
	"BACKFILL_LIMIT":             50,
	"HYDRATE_LIMIT":              100,
	"REQUEST_DELAY":              "1s",
	"BIGQUERY_PROJECT_ID":        "",
	"OPENAI_API_KEY":             "",
	"OPENAI_BASE_URL":            "",
	"OPENAI_CHAT_MODEL":          "gpt-4o-mini",
	"EMBEDDING_PROVIDER":         "none",
	"EMBEDDING_MODEL":            "",
	"OLLAMA_URL":                 "http://localhost:11434",
	"CACHE_TTL":                  "5m",
	"CACHE_SIZE":                 512,
	"CORS_ALLOWED_ORIGINS":       "*",
	"OTEL_ENABLED":               false,
	"SERVICE_NAME":               "githop",
}

// LoadConfig reads configuration from an optional .env file in the working directory and
// environment variables.
func LoadConfig() (*Config, error) {
	return load(".", true)
}

// LoadDatabaseURL reads only DB_URL, for commands that never talk to GitHub.
func LoadDatabaseURL() (string, error) {
	cfg, err := load(".", false)
	if err != nil {
		return "", err
	}
	return cfg.DBURL, nil
}

func load(dir string, full bool) (*Config, error) {
	v := viper.New()

	// Set default values. Registering every key also lets AutomaticEnv fill them on Unmarshal.
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	// Load from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{v: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.normalize()
	if !full {
		if cfg.DBURL == "" {
			return nil, errors.New("DB_URL is a required configuration field")
		}
		return cfg, nil
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.EmbeddingProvider = strings.ToLower(strings.TrimSpace(c.EmbeddingProvider))
	origins := c.CORSAllowedOrigins[:0]
	for _, o := range c.CORSAllowedOrigins {
		for _, part := range strings.Split(o, ",") {
			if part = strings.TrimSpace(part); part != "" {
				origins = append(origins, part)
			}
		}
	}
	c.CORSAllowedOrigins = origins
}

func (c *Config) validate() error {
	// Validate required fields
	if c.DBURL == "" {
		return errors.New("DB_URL is a required configuration field")
	}
	if c.GithubToken == "" {
		return errors.New("GITHUB_TOKEN is a required configuration field")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.SyncInterval < 0 {
		return errors.New("SYNC_INTERVAL must not be negative")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	switch c.EmbeddingProvider {
	case "", "none", "openai", "ollama":
	default:
		return fmt.Errorf("EMBEDDING_PROVIDER must be none, openai or ollama, got %q", c.EmbeddingProvider)
	}
	return nil
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// WatchLogLevel applies LOG_LEVEL to level now and again whenever the config file changes.
func (c *Config) WatchLogLevel(level *slog.LevelVar, logger *slog.Logger) {
	level.Set(ParseLevel(c.LogLevel))
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		next := ParseLevel(c.v.GetString("LOG_LEVEL"))
		if next != level.Level() {
			level.Set(next)
			logger.Info("Log level changed", "level", next.String(), "file", e.Name)
		}
	})
	c.v.WatchConfig()
}
