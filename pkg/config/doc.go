// Package config provides application configuration management.
//
// # Overview
//
// Configuration starts from defaults, is overlaid by the YAML file named in
// REGISTRE_CONFIG_FILE when set, and is finally overridden by environment
// variables.
//
// # Configuration Structure
//
// Server settings:
//
//	REGISTRE_HOST="0.0.0.0"
//	REGISTRE_PORT="8080"
//	REGISTRE_HEALTH_PORT="9090"
//	REGISTRE_READ_TIMEOUT="15s"
//	REGISTRE_WRITE_TIMEOUT="15s"
//
// Storage settings:
//
//	REGISTRE_POSTGRES_URL="postgres://localhost/registre"
//	REGISTRE_POSTGRES_REPLICA_URLS="postgres://replica1/registre,postgres://replica2/registre"
//	REGISTRE_POSTGRES_MAX_CONNS="20"
//
// Cache settings:
//
//	REGISTRE_CACHE_ENABLED="true"
//	REGISTRE_CACHE_TTL="5m"
//	REGISTRE_L1_CACHE_SIZE="1000"
//	REGISTRE_REDIS_URL="redis://localhost:6379"
//
// Search settings:
//
//	REGISTRE_RUN_MIGRATIONS="false"
//	REGISTRE_HISTORY_ENABLED="true"
//	REGISTRE_HISTORY_RETENTION="2160h"
//	REGISTRE_PRUNE_SCHEDULE="@daily"
//
// Observability settings:
//
//	REGISTRE_LOG_LEVEL="info"  # debug, info, warn, error
//	REGISTRE_METRICS_ENABLED="true"
//	REGISTRE_OTEL_ENABLED="true"
//	REGISTRE_OTEL_ENDPOINT="otel-collector:4317"
//
// The same keys in YAML:
//
//	server:
//	  port: "8080"
//	storage:
//	  postgres_url: postgres://localhost/registre
//	  cache_ttl: 5m
//	search:
//	  prune_schedule: "0 3 * * *"
//	observability:
//	  log_level: debug
package config
