package storage

import (
	"time"

	"github.com/opendata-nc/registre/pkg/storage/postgres"
)

// Config holds the connection settings of every backing store
type Config struct {
	// PostgreSQL config
	PostgresURL         string        `yaml:"postgres_url"`
	PostgresReplicaURLs []string      `yaml:"postgres_replica_urls"`
	PostgresMaxConns    int           `yaml:"postgres_max_conns"`
	PostgresMinConns    int           `yaml:"postgres_min_conns"`
	PostgresTimeout     time.Duration `yaml:"postgres_timeout"`
	PostgresMaxLifetime time.Duration `yaml:"postgres_max_lifetime"`
	PostgresMaxIdleTime time.Duration `yaml:"postgres_max_idle_time"`

	// Redis config, RedisURL empty disables the shared cache
	RedisURL        string `yaml:"redis_url"`
	RedisPassword   string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db"`
	RedisMaxRetries int    `yaml:"redis_max_retries"`
	RedisPoolSize   int    `yaml:"redis_pool_size"`

	// Search cache config
	CacheEnabled bool          `yaml:"cache_enabled"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	L1CacheSize  int           `yaml:"l1_cache_size"` // Entries
	CachePrefix  string        `yaml:"cache_prefix"`
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		PostgresMaxConns:    20,
		PostgresMinConns:    2,
		PostgresTimeout:     10 * time.Second,
		PostgresMaxLifetime: 30 * time.Minute,
		PostgresMaxIdleTime: 5 * time.Minute,
		RedisDB:             0,
		RedisMaxRetries:     3,
		RedisPoolSize:       10,
		CacheEnabled:        true,
		CacheTTL:            5 * time.Minute,
		L1CacheSize:         1000,
		CachePrefix:         "registre:",
	}
}

// ConnectionConfig converts the PostgreSQL settings for the connection manager
func (c Config) ConnectionConfig() postgres.ConnectionConfig {
	return postgres.ConnectionConfig{
		PrimaryURL:  c.PostgresURL,
		ReplicaURLs: c.PostgresReplicaURLs,
		MaxConns:    c.PostgresMaxConns,
		MinConns:    c.PostgresMinConns,
		Timeout:     c.PostgresTimeout,
		MaxLifetime: c.PostgresMaxLifetime,
		MaxIdleTime: c.PostgresMaxIdleTime,
	}
}
