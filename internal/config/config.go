// Package config loads service configuration from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the runtime configuration shared by ayush-api and audit-relay
type Config struct {
	Port            int           `mapstructure:"PORT"`
	Env             string        `mapstructure:"ENV"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	CORSOrigins     []string      `mapstructure:"-"`
	RateLimitRPS    int           `mapstructure:"RATE_LIMIT_RPS"`
	CatalogFile     string        `mapstructure:"CATALOG_FILE"`
	IdempotencyTTL  time.Duration `mapstructure:"IDEMPOTENCY_TTL"`
	KafkaBrokers    []string      `mapstructure:"-"`
	AuditGroupID    string        `mapstructure:"AUDIT_GROUP_ID"`
	MetricsAddr     string        `mapstructure:"METRICS_ADDR"`
	EventWorkers    int           `mapstructure:"EVENT_WORKERS"`
	EventQueueSize  int           `mapstructure:"EVENT_QUEUE_SIZE"`
	OTLPEndpoint    string        `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelSampleRate  float64       `mapstructure:"OTEL_SAMPLE_RATE"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
}

var keys = []string{
	"PORT",
	"ENV",
	"LOG_LEVEL",
	"CORS_ORIGINS",
	"RATE_LIMIT_RPS",
	"CATALOG_FILE",
	"IDEMPOTENCY_TTL",
	"KAFKA_BROKERS",
	"AUDIT_GROUP_ID",
	"METRICS_ADDR",
	"EVENT_WORKERS",
	"EVENT_QUEUE_SIZE",
	"OTEL_EXPORTER_OTLP_ENDPOINT",
	"OTEL_SAMPLE_RATE",
	"SHUTDOWN_TIMEOUT",
}

// Load reads configuration from envFile (skipped when missing) and the
// process environment, which takes precedence.
func Load(envFile string) (*Config, error) {
	v := viper.New()
	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
	}
	v.AutomaticEnv()

	v.SetDefault("PORT", 3001)
	v.SetDefault("ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("CATALOG_FILE", "")
	v.SetDefault("IDEMPOTENCY_TTL", "24h")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AUDIT_GROUP_ID", "audit-relay")
	v.SetDefault("METRICS_ADDR", ":9091")
	v.SetDefault("EVENT_WORKERS", 4)
	v.SetDefault("EVENT_QUEUE_SIZE", 1024)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_SAMPLE_RATE", 1.0)
	v.SetDefault("SHUTDOWN_TIMEOUT", "30s")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	if envFile != "" {
		// a missing .env file is not an error
		_ = v.ReadInConfig()
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(v.GetString("KAFKA_BROKERS"))

	return cfg, nil
}

// IsDev reports whether the service runs in development mode
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// EventsEnabled reports whether events go to Kafka rather than the log
func (c *Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Addr is the HTTP listen address
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate checks that the configuration can be served
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must not be negative, got %d", c.RateLimitRPS)
	}
	if c.OTelSampleRate < 0 || c.OTelSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be within [0,1], got %g", c.OTelSampleRate)
	}
	if c.IdempotencyTTL <= 0 {
		return fmt.Errorf("IDEMPOTENCY_TTL must be positive, got %s", c.IdempotencyTTL)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %s", c.ShutdownTimeout)
	}
	if c.EventWorkers < 1 {
		return fmt.Errorf("EVENT_WORKERS must be at least 1, got %d", c.EventWorkers)
	}
	if c.EventQueueSize < 1 {
		return fmt.Errorf("EVENT_QUEUE_SIZE must be at least 1, got %d", c.EventQueueSize)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
