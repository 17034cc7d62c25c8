//go:build integration

package migrations

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("registre_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = container.Terminate(cleanupCtx)
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Ping())

	return db
}

func isNullable(t *testing.T, db *sql.DB, table, column string) bool {
	t.Helper()
	var nullable string
	err := db.QueryRow(`
		SELECT is_nullable FROM information_schema.columns
		WHERE table_name = $1 AND column_name = $2
	`, table, column).Scan(&nullable)
	require.NoError(t, err)
	return nullable == "YES"
}

var foreignKeyColumns = []struct{ table, column string }{
	{"bilan", "entreprise_id"},
	{"bilan", "etablissement_id"},
	{"dirigeant", "entreprise_id"},
	{"dirigeant", "etablissement_id"},
	{"indicateurs_financiers", "entreprise_id"},
	{"indicateurs_financiers", "etablissement_id"},
}

func TestRunner_Postgres(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	runner := NewRunner(db, quietLogger())

	count, err := runner.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	for _, fk := range foreignKeyColumns {
		assert.True(t, isNullable(t, db, fk.table, fk.column), "%s.%s", fk.table, fk.column)
	}

	// Idempotent
	count, err = runner.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Revert search_history and the nullable change
	count, err = runner.Down(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	for _, fk := range foreignKeyColumns {
		assert.False(t, isNullable(t, db, fk.table, fk.column), "%s.%s", fk.table, fk.column)
	}

	current, err := runner.Current(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "2b66a33c4bc4", current.Revision)
}

func TestRunner_PostgresDownFailsWithNullRows(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()
	runner := NewRunner(db, quietLogger())

	_, err := runner.Up(ctx)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO dirigeant (nom) VALUES ('SANS ENTREPRISE')`)
	require.NoError(t, err)

	_, err = runner.Down(ctx, 2)
	require.Error(t, err)

	// The failed revert rolled back and left version 2 applied
	current, err := runner.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a3c5d4fb38e4", current.Revision)
	assert.True(t, isNullable(t, db, "dirigeant", "entreprise_id"))
}
