package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/opendata-nc/registre/pkg/observability"
)

// ErrInvalidSteps is returned by Down for a non positive step count
var ErrInvalidSteps = errors.New("steps must be positive")

const createTrackingTable = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INT PRIMARY KEY,
		revision TEXT NOT NULL,
		description TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`

// Status describes one known migration
type Status struct {
	Version     int
	Revision    string
	Description string
	Applied     bool
	AppliedAt   *time.Time
}

// Runner applies and reverts migrations, one transaction each
type Runner struct {
	db         *sql.DB
	migrations []Migration
	logger     *observability.Logger
}

// NewRunner creates a runner over the registry migrations
func NewRunner(db *sql.DB, logger *observability.Logger) *Runner {
	return NewRunnerWith(db, All(), logger)
}

// NewRunnerWith creates a runner over a custom migration list, applied in slice order
func NewRunnerWith(db *sql.DB, migrations []Migration, logger *observability.Logger) *Runner {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Runner{
		db:         db,
		migrations: migrations,
		logger:     logger,
	}
}

// Validate checks that versions are strictly increasing and every
// migration can be reverted
func Validate(migrations []Migration) error {
	previous := 0
	for _, m := range migrations {
		if m.Version <= previous {
			return fmt.Errorf("migration %d: versions must be strictly increasing", m.Version)
		}
		if m.Up == "" || m.Down == "" {
			return fmt.Errorf("migration %d: up and down SQL are required", m.Version)
		}
		previous = m.Version
	}
	return nil
}

func (r *Runner) ensureTrackingTable(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTrackingTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// applied returns the applied_at time of every applied version
func (r *Runner) applied(ctx context.Context) (map[int]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT version, applied_at FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	appliedVersions := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var appliedAt time.Time
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		appliedVersions[version] = appliedAt
	}
	return appliedVersions, rows.Err()
}

// Up applies every pending migration and returns how many ran
func (r *Runner) Up(ctx context.Context) (int, error) {
	if err := Validate(r.migrations); err != nil {
		return 0, err
	}
	if err := r.ensureTrackingTable(ctx); err != nil {
		return 0, err
	}

	appliedVersions, err := r.applied(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, migration := range r.migrations {
		if _, ok := appliedVersions[migration.Version]; ok {
			continue
		}

		logger := r.logger.WithFields(map[string]interface{}{
			"version":  migration.Version,
			"revision": migration.Revision,
		})
		logger.Infof("Running migration: %s", migration.Description)

		err := r.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, migration.Up); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, revision, description) VALUES ($1, $2, $3)",
				migration.Version, migration.Revision, migration.Description,
			); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
			}
			return nil
		})
		if err != nil {
			return count, err
		}

		count++
	}

	r.logger.Infof("%d migrations applied", count)
	return count, nil
}

// Down reverts the latest steps applied migrations and returns how many ran
func (r *Runner) Down(ctx context.Context, steps int) (int, error) {
	if steps <= 0 {
		return 0, ErrInvalidSteps
	}
	if err := r.ensureTrackingTable(ctx); err != nil {
		return 0, err
	}

	appliedVersions, err := r.applied(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for i := len(r.migrations) - 1; i >= 0 && count < steps; i-- {
		migration := r.migrations[i]
		if _, ok := appliedVersions[migration.Version]; !ok {
			continue
		}

		r.logger.WithFields(map[string]interface{}{
			"version":  migration.Version,
			"revision": migration.Revision,
		}).Infof("Reverting migration: %s", migration.Description)

		err := r.inTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, migration.Down); err != nil {
				return fmt.Errorf("failed to revert migration %d: %w", migration.Version, err)
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = $1", migration.Version); err != nil {
				return fmt.Errorf("failed to unrecord migration %d: %w", migration.Version, err)
			}
			return nil
		})
		if err != nil {
			return count, err
		}

		count++
	}

	return count, nil
}

// Status lists every known migration with its applied state
func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	if err := r.ensureTrackingTable(ctx); err != nil {
		return nil, err
	}

	appliedVersions, err := r.applied(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]Status, 0, len(r.migrations))
	for _, migration := range r.migrations {
		status := Status{
			Version:     migration.Version,
			Revision:    migration.Revision,
			Description: migration.Description,
		}
		if appliedAt, ok := appliedVersions[migration.Version]; ok {
			status.Applied = true
			status.AppliedAt = &appliedAt
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// Current returns the latest applied migration, nil on an empty database
func (r *Runner) Current(ctx context.Context) (*Migration, error) {
	statuses, err := r.Status(ctx)
	if err != nil {
		return nil, err
	}

	for i := len(statuses) - 1; i >= 0; i-- {
		if statuses[i].Applied {
			migration := r.migrations[i]
			return &migration, nil
		}
	}
	return nil, nil
}

func (r *Runner) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}
