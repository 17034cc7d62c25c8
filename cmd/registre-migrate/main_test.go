package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendata-nc/registre/pkg/observability"
)

func newCommand(t *testing.T) (command, sqlmock.Sqlmock, *bytes.Buffer) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	out := &bytes.Buffer{}
	return command{
		db:        db,
		logger:    observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{}),
		out:       out,
		steps:     1,
		retention: 24 * time.Hour,
	}, mock, out
}

func TestCommand_Status(t *testing.T) {
	cmd, mock, out := newCommand(t)

	appliedAt := time.Date(2024, 10, 1, 8, 30, 0, 0, time.UTC)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT version, applied_at FROM schema_migrations`).
		WillReturnRows(sqlmock.NewRows([]string{"version", "applied_at"}).AddRow(1, appliedAt))

	require.NoError(t, cmd.run(context.Background(), "status"))

	output := out.String()
	assert.Contains(t, output, "VERSION")
	assert.Contains(t, output, "2b66a33c4bc4")
	assert.Contains(t, output, "2024-10-01T08:30:00Z")
	assert.Contains(t, output, "pending")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommand_Prune(t *testing.T) {
	cmd, mock, out := newCommand(t)

	mock.ExpectExec(`DELETE FROM search_history WHERE created_at < \$1`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 12))

	require.NoError(t, cmd.run(context.Background(), "prune"))
	assert.Equal(t, "12 search history rows deleted\n", out.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommand_PruneRequiresRetention(t *testing.T) {
	cmd, _, _ := newCommand(t)
	cmd.retention = 0

	assert.ErrorContains(t, cmd.run(context.Background(), "prune"), "retention must be positive")
}

func TestCommand_DownRejectsZeroSteps(t *testing.T) {
	cmd, _, _ := newCommand(t)
	cmd.steps = 0

	assert.Error(t, cmd.run(context.Background(), "down"))
}

func TestCommand_Unknown(t *testing.T) {
	cmd, _, _ := newCommand(t)

	assert.ErrorContains(t, cmd.run(context.Background(), "sideways"), `unknown command "sideways"`)
}
