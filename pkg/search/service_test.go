package search

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/opendata-nc/registre/pkg/observability"
	"github.com/opendata-nc/registre/pkg/ridet"
)

var entrepriseRowColumns = []string{
	"id", "rid", "sigle", "enseigne", "forme_juridique", "adresse", "code_postal", "ville", "rank",
}

const countPattern = `SELECT COUNT\(\*\) FROM entreprise e`

// setupMockDB creates a mock database for testing
func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func entrepriseRows() *sqlmock.Rows {
	return sqlmock.NewRows(entrepriseRowColumns).
		AddRow(1, "1234567", "BDP", "BOULANGERIE DU PORT", "SARL", "1 RUE DU PORT", "98800", "NOUMÉA", 0.6).
		AddRow(2, "0765432", nil, "BOULANGERIE DU NORD", "EI", nil, "98860", "KONÉ", 0.3)
}

func TestService_Search_Text(t *testing.T) {
	db, mock := setupMockDB(t)
	service := NewService(db)

	p := mustParams(t, map[string]string{"q": "boulangerie", "page": "2", "per_page": "10"})

	mock.ExpectQuery(`FROM entreprise e`).
		WithArgs("boulangerie:*", 10, 10).
		WillReturnRows(entrepriseRows())
	mock.ExpectQuery(countPattern).
		WithArgs("boulangerie:*").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	resp, err := service.Search(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, StrategyText, resp.Strategy)
	assert.Equal(t, 42, resp.TotalResults)
	assert.Equal(t, 5, resp.TotalPages)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 10, resp.PerPage)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "BOULANGERIE DU PORT", *resp.Results[0].Enseigne)
	assert.Nil(t, resp.Results[1].Sigle)
	assert.Equal(t, "KONÉ", *resp.Results[1].Ville)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Search_Ridet(t *testing.T) {
	db, mock := setupMockDB(t)
	service := NewService(db)

	mock.ExpectQuery(`WHERE e.rid = \$1`).
		WithArgs("1234567", 10, 0).
		WillReturnRows(sqlmock.NewRows(entrepriseRowColumns).
			AddRow(1, "1234567", "BDP", "BOULANGERIE DU PORT", "SARL", nil, "98800", "NOUMÉA", 1.0))
	mock.ExpectQuery(countPattern).
		WithArgs("1234567").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	resp, err := service.Search(context.Background(), mustParams(t, map[string]string{"q": "1234567"}))
	require.NoError(t, err)

	assert.Equal(t, StrategyRidet, resp.Strategy)
	assert.Equal(t, 1, resp.TotalResults)
	assert.Equal(t, 1, resp.TotalPages)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "1234567", *resp.Results[0].RID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Search_RidetPastLastPage(t *testing.T) {
	db, mock := setupMockDB(t)
	service := NewService(db)

	mock.ExpectQuery(`WHERE e.rid = \$1`).
		WithArgs("1234567", 10, 20).
		WillReturnRows(sqlmock.NewRows(entrepriseRowColumns))
	mock.ExpectQuery(countPattern).
		WithArgs("1234567").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	resp, err := service.Search(context.Background(), mustParams(t, map[string]string{"q": "1234567", "page": "3"}))
	require.NoError(t, err)

	assert.Empty(t, resp.Results)
	assert.Equal(t, 1, resp.TotalResults)
	assert.Equal(t, 1, resp.TotalPages)
	assert.Equal(t, 3, resp.Page)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Search_NoResults(t *testing.T) {
	db, mock := setupMockDB(t)
	service := NewService(db)

	mock.ExpectQuery(`FROM entreprise e`).WillReturnRows(sqlmock.NewRows(entrepriseRowColumns))
	mock.ExpectQuery(countPattern).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	resp, err := service.Search(context.Background(), mustParams(t, map[string]string{"commune": "Poum"}))
	require.NoError(t, err)

	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
	assert.Equal(t, 0, resp.TotalPages)
}

func TestService_Search_CountFailureFallsBack(t *testing.T) {
	db, mock := setupMockDB(t)
	service := NewService(db)

	mock.ExpectQuery(`FROM entreprise e`).WillReturnRows(entrepriseRows())
	mock.ExpectQuery(countPattern).WillReturnError(errors.New("statement timeout"))

	p := mustParams(t, map[string]string{"q": "boulangerie", "page": "3"})
	resp, err := service.Search(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, 22, resp.TotalResults)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Search_WarningsCarryTraceContext(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})

	db, mock := setupMockDB(t)
	service := NewService(db)

	mock.ExpectQuery(`FROM entreprise e`).WillReturnRows(entrepriseRows())
	mock.ExpectQuery(countPattern).WillReturnError(errors.New("statement timeout"))

	var buf bytes.Buffer
	ctx := observability.WithLogger(context.Background(), observability.NewLogger(observability.WarnLevel, &buf))

	_, err := service.Search(ctx, mustParams(t, map[string]string{"q": "boulangerie"}))
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "search count failed", entry["msg"])
	assert.Len(t, entry["trace_id"], 32)
	assert.Len(t, entry["span_id"], 16)
}

func TestService_Search_QueryError(t *testing.T) {
	db, mock := setupMockDB(t)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	service := NewService(db, WithMetrics(metrics))

	mock.ExpectQuery(`FROM entreprise e`).WillReturnError(errors.New("connection reset"))

	_, err := service.Search(context.Background(), mustParams(t, map[string]string{"q": "boulangerie"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SearchQueriesTotal.WithLabelValues("text", "error")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Search_UsesCache(t *testing.T) {
	db, mock := setupMockDB(t)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	service := NewService(db, WithCache(NewLRUCache(16, time.Minute)), WithMetrics(metrics))

	mock.ExpectQuery(`FROM entreprise e`).WillReturnRows(entrepriseRows())
	mock.ExpectQuery(countPattern).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	p := mustParams(t, map[string]string{"q": "boulangerie"})

	first, err := service.Search(context.Background(), p)
	require.NoError(t, err)

	// Served from cache, sqlmock would reject another query
	second, err := service.Search(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CacheMissesTotal.WithLabelValues("memory")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.CacheHitsTotal.WithLabelValues("memory")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SearchQueriesTotal.WithLabelValues("text", "success")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Search_RecordsHistory(t *testing.T) {
	db, mock := setupMockDB(t)
	service := NewService(db, WithHistory(time.Second))

	mock.ExpectQuery(`FROM entreprise e`).WillReturnRows(entrepriseRows())
	mock.ExpectQuery(countPattern).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectExec(`INSERT INTO search_history`).
		WithArgs("boulangerie", "text", 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	_, err := service.Search(context.Background(), mustParams(t, map[string]string{"q": "boulangerie"}))
	require.NoError(t, err)

	service.Wait()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Search_HistoryGoesToWriter(t *testing.T) {
	reader, readMock := setupMockDB(t)
	writer, writeMock := setupMockDB(t)
	service := NewService(reader, WithWriter(writer), WithHistory(time.Second))

	readMock.ExpectQuery(`WHERE e.rid = \$1`).WillReturnRows(sqlmock.NewRows(entrepriseRowColumns).
		AddRow(1, "1234567", "BDP", "BOULANGERIE DU PORT", "SARL", nil, "98800", "NOUMÉA", 1.0))
	readMock.ExpectQuery(countPattern).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	writeMock.ExpectExec(`INSERT INTO search_history`).
		WithArgs("1234567", "ridet", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	_, err := service.Search(context.Background(), mustParams(t, map[string]string{"q": "1234567"}))
	require.NoError(t, err)

	service.Wait()
	assert.NoError(t, readMock.ExpectationsWereMet())
	assert.NoError(t, writeMock.ExpectationsWereMet())
}

func TestService_Search_ReadsFromReplicas(t *testing.T) {
	primary, primaryMock := setupMockDB(t)
	replica, replicaMock := setupMockDB(t)

	picks := 0
	service := NewService(primary, WithReplicas(func() *sql.DB {
		picks++
		return replica
	}))

	replicaMock.ExpectQuery(`FROM entreprise e`).WillReturnRows(entrepriseRows())
	replicaMock.ExpectQuery(countPattern).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	_, err := service.Search(context.Background(), mustParams(t, map[string]string{"q": "boulangerie"}))
	require.NoError(t, err)

	assert.Equal(t, 2, picks)
	assert.NoError(t, replicaMock.ExpectationsWereMet())
	assert.NoError(t, primaryMock.ExpectationsWereMet())
}

func TestService_Etablissements(t *testing.T) {
	existsQuery := regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM entreprise WHERE rid = $1)`)

	t.Run("lists establishments", func(t *testing.T) {
		db, mock := setupMockDB(t)
		service := NewService(db)

		mock.ExpectQuery(existsQuery).WithArgs("0765432").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery(`FROM etablissement et`).WithArgs("0765432").
			WillReturnRows(sqlmock.NewRows([]string{"id", "entreprise_id", "rid", "enseigne", "situation"}).
				AddRow(1, 2, "0765432.001", "CHEZ JO", "ACTIF").
				AddRow(2, 2, "0765432.002", nil, "FERME"))

		result, err := service.Etablissements(context.Background(), "765432")
		require.NoError(t, err)
		require.Len(t, result, 2)
		assert.Equal(t, "0765432.001", *result[0].RID)
		assert.Nil(t, result[1].Enseigne)
		assert.Nil(t, result[1].CodeAPE)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ridet narrows to one establishment", func(t *testing.T) {
		db, mock := setupMockDB(t)
		service := NewService(db)

		mock.ExpectQuery(existsQuery).WithArgs("1234567").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery(`AND et.rid = \$2`).WithArgs("1234567", "1234567.001").
			WillReturnRows(sqlmock.NewRows([]string{"rid"}).AddRow("1234567.001"))

		result, err := service.Etablissements(context.Background(), "1234567.001")
		require.NoError(t, err)
		assert.Len(t, result, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown entreprise", func(t *testing.T) {
		db, mock := setupMockDB(t)
		service := NewService(db)

		mock.ExpectQuery(existsQuery).WithArgs("1234567").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		_, err := service.Etablissements(context.Background(), "1234567")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("malformed rid", func(t *testing.T) {
		db, _ := setupMockDB(t)
		service := NewService(db)

		_, err := service.Etablissements(context.Background(), "abc")
		assert.ErrorIs(t, err, ridet.ErrInvalid)
	})
}

func TestService_RecordSearch(t *testing.T) {
	db, mock := setupMockDB(t)
	service := NewService(db)

	mock.ExpectExec(`INSERT INTO search_history`).
		WithArgs("1234567", "ridet", 1, 12).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, service.RecordSearch(context.Background(), "1234567", StrategyRidet, 1, 12))

	mock.ExpectExec(`INSERT INTO search_history`).WillReturnError(errors.New("relation does not exist"))
	err := service.RecordSearch(context.Background(), "x", StrategyText, 0, 1)
	assert.ErrorContains(t, err, "failed to record search")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, perPage, want int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{10000, 25, 400},
		{5, 0, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, totalPages(tt.total, tt.perPage))
	}
}
