package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/text/language"
)

const (
	CatalogHTTP     = "http"
	CatalogPostgres = "postgres"
	CatalogMemory   = "memory"
)

// Load reads config.yaml from the usual locations, then the environment.
func Load() (*Config, error) {
	return LoadFrom("./configs", ".", "/app/configs")
}

func LoadFrom(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Allow common env vars without APP_ prefix for Docker/VM deploys
	v.BindEnv("http.port", "HTTP_PORT", "APP_HTTP_PORT")
	v.BindEnv("database.url", "DATABASE_URL", "APP_DATABASE_URL")
	v.BindEnv("redis.url", "REDIS_URL", "APP_REDIS_URL")
	v.BindEnv("nats.url", "NATS_URL", "APP_NATS_URL")
	v.BindEnv("catalog.base_url", "CATALOG_URL", "APP_CATALOG_BASE_URL")
	v.BindEnv("app.environment", "APP_ENVIRONMENT")
	v.BindEnv("logging.level", "LOG_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "vitrina-voz")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.environment", "development")

	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)

	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.key_prefix", "vitrina:")

	v.SetDefault("nats.subject_prefix", "vitrina.events")

	v.SetDefault("catalog.backend", CatalogMemory)
	v.SetDefault("catalog.timeout", 3*time.Second)
	v.SetDefault("catalog.max_candidates", 5)

	v.SetDefault("voice.language", "es")
	v.SetDefault("voice.queue_size", 16)
	v.SetDefault("voice.idle_timeout", 30*time.Minute)
	v.SetDefault("voice.sweep_interval", time.Minute)

	v.SetDefault("cache.cart_ttl", 30*24*time.Hour)
	v.SetDefault("cache.search_ttl", 5*time.Minute)
	v.SetDefault("cache.cleanup_interval", time.Minute)

	v.SetDefault("opentelemetry.service_name", "vitrina-voz")
	v.SetDefault("opentelemetry.endpoint", "localhost:4317")

	v.SetDefault("prometheus.enabled", true)
	v.SetDefault("prometheus.path", "/metrics")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("rate_limiting.enabled", true)
	v.SetDefault("rate_limiting.max_requests", 120)
	v.SetDefault("rate_limiting.window", time.Minute)

	v.SetDefault("circuit_breaker.enabled", true)
	v.SetDefault("circuit_breaker.max_requests", 3)
	v.SetDefault("circuit_breaker.interval", time.Minute)
	v.SetDefault("circuit_breaker.timeout", 30*time.Second)
	v.SetDefault("circuit_breaker.failure_threshold", 5)

	v.SetDefault("cors.enabled", true)
	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("feature_flags.voice_assistant", true)
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	tag, err := language.Parse(c.Voice.Language)
	if err != nil {
		return fmt.Errorf("invalid voice.language %q: %w", c.Voice.Language, err)
	}
	if base, _ := tag.Base(); base.String() != "es" {
		return fmt.Errorf("voice.language %q is not supported: only Spanish grammars are available", c.Voice.Language)
	}

	switch c.Catalog.Backend {
	case CatalogMemory:
	case CatalogHTTP:
		if c.Catalog.BaseURL == "" {
			return errors.New("catalog.base_url is required for the http backend")
		}
	case CatalogPostgres:
		if c.Database.URL == "" {
			return errors.New("database.url is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown catalog.backend %q", c.Catalog.Backend)
	}

	if c.Catalog.MaxCandidates < 1 {
		return errors.New("catalog.max_candidates must be at least 1")
	}
	return nil
}

// RecognizerLanguage is the BCP 47 tag handed to browser speech engines.
func (c *Config) RecognizerLanguage() string {
	tag, err := language.Parse(c.Voice.Language)
	if err != nil {
		return "es-ES"
	}
	if _, conf := tag.Region(); conf == language.Exact {
		return tag.String()
	}
	return "es-ES"
}
