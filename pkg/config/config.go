package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/opendata-nc/registre/pkg/observability"
	"github.com/opendata-nc/registre/pkg/storage"
	"github.com/opendata-nc/registre/pkg/storage/postgres"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Storage configuration
	Storage storage.Config `yaml:"storage"`

	// Search configuration
	Search SearchConfig `yaml:"search"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `yaml:"health_port"`
}

// SearchConfig holds search history and maintenance settings
type SearchConfig struct {
	RunMigrations    bool          `yaml:"run_migrations"`
	HistoryEnabled   bool          `yaml:"history_enabled"`
	HistoryTimeout   time.Duration `yaml:"history_timeout"`
	HistoryRetention time.Duration `yaml:"history_retention"`
	PruneSchedule    string        `yaml:"prune_schedule"`
	StatsSchedule    string        `yaml:"stats_schedule"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel string `yaml:"log_level"`

	// Metrics
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// OpenTelemetry
	OTelEnabled        bool    `yaml:"otel_enabled"`
	OTelEndpoint       string  `yaml:"otel_endpoint"`
	OTelServiceName    string  `yaml:"otel_service_name"`
	OTelServiceVersion string  `yaml:"otel_service_version"`
	OTelInsecure       bool    `yaml:"otel_insecure"` // Use insecure gRPC connection
	OTelSampleRatio    float64 `yaml:"otel_sample_ratio"`
}

// Level returns the parsed log level
func (o ObservabilityConfig) Level() observability.LogLevel {
	return observability.ParseLogLevel(o.LogLevel)
}

// OTel converts the settings for observability.InitOTel
func (o ObservabilityConfig) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        o.OTelEnabled,
		Endpoint:       o.OTelEndpoint,
		ServiceName:    o.OTelServiceName,
		ServiceVersion: o.OTelServiceVersion,
		Insecure:       o.OTelInsecure,
		SampleRatio:    o.OTelSampleRatio,
	}
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: observability.DefaultShutdownTimeout,
			HealthPort:      "9090",
		},
		Storage: storage.DefaultConfig(),
		Search: SearchConfig{
			RunMigrations:    false,
			HistoryEnabled:   true,
			HistoryTimeout:   5 * time.Second,
			HistoryRetention: 90 * 24 * time.Hour,
			PruneSchedule:    "@daily",
			StatsSchedule:    "@every 15s",
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEnabled:        false,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "registre",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
			OTelSampleRatio:    1.0,
		},
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file named
// by REGISTRE_CONFIG_FILE if any, then environment variables.
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := getEnv("REGISTRE_CONFIG_FILE", ""); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFile overlays the YAML file at path. Keys absent from the file keep
// their current value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

func (c *Config) applyEnv() {
	c.applyServerEnv()
	c.applyStorageEnv()
	c.applySearchEnv()
	c.applyObservabilityEnv()
}

// applyServerEnv loads server configuration from environment
func (c *Config) applyServerEnv() {
	s := &c.Server
	s.Host = getEnv("REGISTRE_HOST", s.Host)
	s.Port = getEnv("REGISTRE_PORT", s.Port)
	s.ReadTimeout = getEnvDuration("REGISTRE_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("REGISTRE_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("REGISTRE_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("REGISTRE_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.HealthPort = getEnv("REGISTRE_HEALTH_PORT", s.HealthPort)
}

// applyStorageEnv loads storage configuration from environment
func (c *Config) applyStorageEnv() {
	s := &c.Storage

	// PostgreSQL config
	s.PostgresURL = getEnv("REGISTRE_POSTGRES_URL", s.PostgresURL)
	if replicaURLs := getEnv("REGISTRE_POSTGRES_REPLICA_URLS", ""); replicaURLs != "" {
		s.PostgresReplicaURLs = postgres.ParseReplicaURLs(replicaURLs)
	}
	if maxConns := getEnvInt("REGISTRE_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		s.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt("REGISTRE_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		s.PostgresMinConns = minConns
	}
	if timeout := getEnvDuration("REGISTRE_POSTGRES_TIMEOUT", 0); timeout > 0 {
		s.PostgresTimeout = timeout
	}

	// Redis config
	s.RedisURL = getEnv("REGISTRE_REDIS_URL", s.RedisURL)
	s.RedisPassword = getEnv("REGISTRE_REDIS_PASSWORD", s.RedisPassword)
	if redisDB := getEnvInt("REGISTRE_REDIS_DB", -1); redisDB >= 0 {
		s.RedisDB = redisDB
	}
	if redisMaxRetries := getEnvInt("REGISTRE_REDIS_MAX_RETRIES", 0); redisMaxRetries > 0 {
		s.RedisMaxRetries = redisMaxRetries
	}
	if redisPoolSize := getEnvInt("REGISTRE_REDIS_POOL_SIZE", 0); redisPoolSize > 0 {
		s.RedisPoolSize = redisPoolSize
	}

	// Cache config
	s.CacheEnabled = getEnvBool("REGISTRE_CACHE_ENABLED", s.CacheEnabled)
	s.CacheTTL = getEnvDuration("REGISTRE_CACHE_TTL", s.CacheTTL)
	if size := getEnvInt("REGISTRE_L1_CACHE_SIZE", 0); size > 0 {
		s.L1CacheSize = size
	}
	s.CachePrefix = getEnv("REGISTRE_CACHE_PREFIX", s.CachePrefix)
}

// applySearchEnv loads search configuration from environment
func (c *Config) applySearchEnv() {
	s := &c.Search
	s.RunMigrations = getEnvBool("REGISTRE_RUN_MIGRATIONS", s.RunMigrations)
	s.HistoryEnabled = getEnvBool("REGISTRE_HISTORY_ENABLED", s.HistoryEnabled)
	s.HistoryTimeout = getEnvDuration("REGISTRE_HISTORY_TIMEOUT", s.HistoryTimeout)
	s.HistoryRetention = getEnvDuration("REGISTRE_HISTORY_RETENTION", s.HistoryRetention)
	s.PruneSchedule = getEnv("REGISTRE_PRUNE_SCHEDULE", s.PruneSchedule)
	s.StatsSchedule = getEnv("REGISTRE_STATS_SCHEDULE", s.StatsSchedule)
}

// applyObservabilityEnv loads observability configuration from environment
func (c *Config) applyObservabilityEnv() {
	o := &c.Observability
	o.LogLevel = getEnv("REGISTRE_LOG_LEVEL", o.LogLevel)
	o.MetricsEnabled = getEnvBool("REGISTRE_METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("REGISTRE_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("REGISTRE_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("REGISTRE_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("REGISTRE_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("REGISTRE_OTEL_INSECURE", o.OTelInsecure)
	o.OTelSampleRatio = getEnvFloat("REGISTRE_OTEL_SAMPLE_RATIO", o.OTelSampleRatio)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	// Validate storage config
	if c.Storage.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Storage.CacheEnabled && c.Storage.L1CacheSize <= 0 {
		return fmt.Errorf("L1 cache size must be positive when the cache is enabled")
	}

	// Validate search config
	if c.Search.HistoryEnabled {
		if c.Search.HistoryRetention <= 0 {
			return fmt.Errorf("history retention must be positive")
		}
		if _, err := cron.ParseStandard(c.Search.PruneSchedule); err != nil {
			return fmt.Errorf("invalid prune schedule %q: %w", c.Search.PruneSchedule, err)
		}
	}
	if c.Observability.MetricsEnabled {
		if _, err := cron.ParseStandard(c.Search.StatsSchedule); err != nil {
			return fmt.Errorf("invalid stats schedule %q: %w", c.Search.StatsSchedule, err)
		}
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
		if c.Observability.OTelSampleRatio < 0 || c.Observability.OTelSampleRatio > 1 {
			return fmt.Errorf("OpenTelemetry sample ratio must be between 0 and 1")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
