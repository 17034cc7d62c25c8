// Package migrations owns the registry database schema.
//
// Each Migration carries its Up and Down SQL and is applied in its own
// transaction; applied versions are tracked in schema_migrations together
// with the revision identifier they had in the previous migration tool.
//
//	runner := migrations.NewRunner(db, logger)
//	applied, err := runner.Up(ctx)
//	reverted, err := runner.Down(ctx, 1)
package migrations
