// Package config loads read-only settings from a YAML file and JOBMATCH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// EnvPrefix is prepended to every environment override, e.g. JOBMATCH_STORAGE_DRIVER
	EnvPrefix = "JOBMATCH"
	// DefaultName is the config file looked up in the working directory
	DefaultName = "jobmatch"
)

// Config is the full application configuration
type Config struct {
	Server          ServerConfig       `mapstructure:"server"`
	Storage         StorageConfig      `mapstructure:"storage"`
	Embedding       ProviderConfig     `mapstructure:"embedding"`
	Generation      ProviderConfig     `mapstructure:"generation"`
	Cache           CacheConfig        `mapstructure:"cache"`
	Matching        MatchingConfig     `mapstructure:"matching"`
	Conversation    ConversationConfig `mapstructure:"conversation"`
	ProviderTimeout time.Duration      `mapstructure:"provider-timeout"`
	Log             LogConfig          `mapstructure:"log"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Addr        string   `mapstructure:"addr"`
	RateLimit   int      `mapstructure:"rate-limit"`
	CORSOrigins []string `mapstructure:"cors-origins"`
}

// StorageConfig selects and configures the persistence backend
type StorageConfig struct {
	Driver          string        `mapstructure:"driver"`
	SQLitePath      string        `mapstructure:"sqlite-path"`
	PostgresDSN     string        `mapstructure:"postgres-dsn"`
	MongoDBURI      string        `mapstructure:"mongodb-uri"`
	MongoDBDatabase string        `mapstructure:"mongodb-database"`
	RedisAddr       string        `mapstructure:"redis-addr"`
	RedisPassword   string        `mapstructure:"redis-password"`
	RedisDB         int           `mapstructure:"redis-db"`
	RedisPrefix     string        `mapstructure:"redis-prefix"`
	SessionTTL      time.Duration `mapstructure:"session-ttl"`
}

// ProviderConfig configures an external embedding or generation provider
type ProviderConfig struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	BaseURL   string `mapstructure:"base-url"`
	APIKey    string `mapstructure:"api-key"`
	Dimension int    `mapstructure:"dimension"`
}

// CacheConfig configures the embedding cache tiers
type CacheConfig struct {
	MemoryEntries int           `mapstructure:"memory-entries"`
	Redis         bool          `mapstructure:"redis"`
	TTL           time.Duration `mapstructure:"ttl"`
	Prefix        string        `mapstructure:"prefix"`
}

// MatchingConfig configures recommendation defaults
type MatchingConfig struct {
	DefaultTopK   int `mapstructure:"default-top-k"`
	MaxTopK       int `mapstructure:"max-top-k"`
	RecentResults int `mapstructure:"recent-results"`
	IndexWorkers  int `mapstructure:"index-workers"`
	AnalysisMemo  int `mapstructure:"analysis-memo"`
}

// ConversationConfig configures the conversation state machine
type ConversationConfig struct {
	RequiredFields []string `mapstructure:"required-fields"`
	// RecommendTopK is how many jobs a confirming turn carries; 0 uses matching.default-top-k
	RecommendTopK int `mapstructure:"recommend-top-k"`
}

// LogConfig configures the logger
type LogConfig struct {
	JSON  bool `mapstructure:"json"`
	Debug bool `mapstructure:"debug"`
}

// SetDefaults registers every key with its default so env overrides work for all of them
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.rate-limit", 100)
	v.SetDefault("server.cors-origins", []string{})

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite-path", ".jobmatch/jobmatch.db")
	v.SetDefault("storage.postgres-dsn", "")
	v.SetDefault("storage.mongodb-uri", "")
	v.SetDefault("storage.mongodb-database", "jobmatch")
	v.SetDefault("storage.redis-addr", "localhost:6379")
	v.SetDefault("storage.redis-password", "")
	v.SetDefault("storage.redis-db", 0)
	v.SetDefault("storage.redis-prefix", "jobmatch:")
	v.SetDefault("storage.session-ttl", 0)

	v.SetDefault("embedding.provider", "ollama")
	v.SetDefault("embedding.model", "nomic-embed-text")
	v.SetDefault("embedding.base-url", "http://localhost:11434")
	v.SetDefault("embedding.api-key", "")
	v.SetDefault("embedding.dimension", 768)

	v.SetDefault("generation.provider", "openai")
	v.SetDefault("generation.model", "gpt-4o-mini")
	v.SetDefault("generation.base-url", "https://api.openai.com")
	v.SetDefault("generation.api-key", "")

	v.SetDefault("cache.memory-entries", 10000)
	v.SetDefault("cache.redis", false)
	v.SetDefault("cache.ttl", 30*24*time.Hour)
	v.SetDefault("cache.prefix", "jobmatch:emb:")

	v.SetDefault("matching.default-top-k", 10)
	v.SetDefault("matching.max-top-k", 100)
	v.SetDefault("matching.recent-results", 1024)
	v.SetDefault("matching.index-workers", 4)
	v.SetDefault("matching.analysis-memo", 1024)

	v.SetDefault("conversation.required-fields", []string{"location", "skills"})
	v.SetDefault("conversation.recommend-top-k", 10)

	v.SetDefault("provider-timeout", 60*time.Second)

	v.SetDefault("log.json", false)
	v.SetDefault("log.debug", false)
}

// Load reads the config file at path (or ./jobmatch.yaml when path is empty)
// and applies environment overrides. A missing default file is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(DefaultName)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that would otherwise fail late
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "memory", "sqlite", "postgres", "mongodb", "redis":
	default:
		return fmt.Errorf("unknown storage driver: %s", c.Storage.Driver)
	}
	if c.Matching.DefaultTopK <= 0 {
		return fmt.Errorf("matching.default-top-k must be positive")
	}
	if c.Matching.MaxTopK < c.Matching.DefaultTopK {
		return fmt.Errorf("matching.max-top-k must be >= matching.default-top-k")
	}
	if c.ProviderTimeout < 0 {
		return fmt.Errorf("provider-timeout must not be negative")
	}
	return nil
}
