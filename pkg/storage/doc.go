// Package storage wires the registry to its backing stores.
//
// PostgreSQL holds the entreprise and etablissement tables and is reached
// through postgres.ConnectionManager, which routes searches to read replicas
// and writes to the primary. Redis is optional and only backs the shared
// search result cache.
//
//	config := storage.DefaultConfig()
//	config.PostgresURL = "postgres://registre@localhost/registre"
//	cm, err := postgres.NewConnectionManager(config.ConnectionConfig(), logger)
//
//	client, err := storage.NewRedisClient(ctx, config)
//	if errors.Is(err, storage.ErrRedisDisabled) {
//		// memory cache only
//	}
package storage
