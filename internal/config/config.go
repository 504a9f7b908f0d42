// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	DB      DBConfig      `mapstructure:"db"`
	Storage StorageConfig `mapstructure:"storage"`
	Scrape  ScrapeConfig  `mapstructure:"scrape"`
	Search  SearchConfig  `mapstructure:"search"`
	Sweeper SweeperConfig `mapstructure:"sweeper"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// AuthConfig defines API authentication toggles. The webhook endpoint is
// exempt; it authenticates by signature instead.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// DBConfig selects and configures the brand store backend.
type DBConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
	MaxConns int    `mapstructure:"max_conns"`
}

// StorageConfig selects and configures the content object store.
type StorageConfig struct {
	Provider  string `mapstructure:"provider"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// ScrapeConfig points at the external scraping service.
type ScrapeConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	WebhookURL     string `mapstructure:"webhook_url"`
	WebhookSecret  string `mapstructure:"webhook_secret"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MapLimit       int    `mapstructure:"map_limit"`
}

// SearchConfig points at the hosted AI search backend.
type SearchConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BaseURL        string `mapstructure:"base_url"`
	AccountID      string `mapstructure:"account_id"`
	Instance       string `mapstructure:"instance"`
	APIToken       string `mapstructure:"api_token"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// SweeperConfig controls the reconciliation loop.
type SweeperConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	IntervalSeconds int    `mapstructure:"interval_seconds"`
	ExtractBatch    int    `mapstructure:"extract_batch"`
	FinalizeBatch   int    `mapstructure:"finalize_batch"`
	CompletedTopic  string `mapstructure:"completed_topic"`
}

// PubSubConfig selects and configures the lifecycle event publisher.
type PubSubConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment. Environment variables use the
// BRANDSCAN prefix with dots replaced by underscores, e.g.
// BRANDSCAN_SCRAPE_API_KEY.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BRANDSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 60)
	v.SetDefault("db.provider", "memory")
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("storage.provider", "memory")
	v.SetDefault("scrape.base_url", "https://api.firecrawl.dev")
	v.SetDefault("scrape.timeout_seconds", 30)
	v.SetDefault("scrape.map_limit", 20)
	v.SetDefault("search.enabled", false)
	v.SetDefault("search.base_url", "https://api.cloudflare.com/client/v4")
	v.SetDefault("search.timeout_seconds", 30)
	v.SetDefault("sweeper.enabled", true)
	v.SetDefault("sweeper.interval_seconds", 60)
	v.SetDefault("sweeper.extract_batch", 10)
	v.SetDefault("sweeper.finalize_batch", 5)
	v.SetDefault("sweeper.completed_topic", "brand.completed")
	v.SetDefault("pubsub.provider", "noop")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.DB.Provider {
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when db.provider is 'postgres'")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown db.provider: %s", c.DB.Provider)
	}
	switch c.Storage.Provider {
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set when storage.provider is 'gcs'")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage.provider: %s", c.Storage.Provider)
	}
	switch c.PubSub.Provider {
	case "pubsub":
		if c.PubSub.ProjectID == "" {
			return fmt.Errorf("pubsub.project_id must be set when pubsub.provider is 'pubsub'")
		}
	case "noop":
	default:
		return fmt.Errorf("unknown pubsub.provider: %s", c.PubSub.Provider)
	}
	if c.Scrape.MapLimit <= 0 {
		return fmt.Errorf("scrape.map_limit must be > 0")
	}
	if c.Sweeper.IntervalSeconds <= 0 {
		return fmt.Errorf("sweeper.interval_seconds must be > 0")
	}
	if c.Search.Enabled && (c.Search.AccountID == "" || c.Search.Instance == "" || c.Search.APIToken == "") {
		return fmt.Errorf("search.account_id, search.instance, and search.api_token must be set when search is enabled")
	}
	return nil
}

// ServerTimeout converts the server timeout knob into a duration.
func (c Config) ServerTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}

// ScrapeTimeout converts the scrape client timeout knob into a duration.
func (c Config) ScrapeTimeout() time.Duration {
	return time.Duration(c.Scrape.TimeoutSeconds) * time.Second
}

// SweepInterval converts the sweeper cadence knob into a duration.
func (c Config) SweepInterval() time.Duration {
	return time.Duration(c.Sweeper.IntervalSeconds) * time.Second
}

// SearchTimeout converts the search client timeout knob into a duration.
func (c Config) SearchTimeout() time.Duration {
	return time.Duration(c.Search.TimeoutSeconds) * time.Second
}
