package search

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/opendata-nc/registre/pkg/async"
	"github.com/opendata-nc/registre/pkg/formatters"
	"github.com/opendata-nc/registre/pkg/models"
	"github.com/opendata-nc/registre/pkg/observability"
	"github.com/opendata-nc/registre/pkg/params"
	"github.com/opendata-nc/registre/pkg/ridet"
)

var searchTracer = otel.Tracer("registre/search/service")

// ErrNotFound is returned when the requested entreprise does not exist
var ErrNotFound = errors.New("entreprise not found")

// Response is one page of search results
type Response struct {
	Results      []models.Entreprise `json:"results"`
	TotalResults int                 `json:"total_results"`
	Page         int                 `json:"page"`
	PerPage      int                 `json:"per_page"`
	TotalPages   int                 `json:"total_pages"`
	Strategy     Strategy            `json:"strategy"`
}

// Service runs searches against the registry database
type Service struct {
	db             *sql.DB
	writer         *sql.DB
	replica        func() *sql.DB
	cache          Cache
	metrics        *observability.Metrics
	recordHistory  bool
	historyTimeout time.Duration
	pending        sync.WaitGroup
}

// Option configures a Service
type Option func(*Service)

// WithCache serves repeated searches from cache
func WithCache(cache Cache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithMetrics records search and cache metrics
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Service) { s.metrics = metrics }
}

// WithWriter sends search history writes to db instead of the read pool
func WithWriter(db *sql.DB) Option {
	return func(s *Service) { s.writer = db }
}

// WithReplicas reads through pick, called once per query
func WithReplicas(pick func() *sql.DB) Option {
	return func(s *Service) { s.replica = pick }
}

// WithHistory records every executed search in search_history in the background
func WithHistory(timeout time.Duration) Option {
	return func(s *Service) {
		s.recordHistory = true
		s.historyTimeout = timeout
	}
}

// NewService creates a search service reading from db
func NewService(db *sql.DB, opts ...Option) *Service {
	s := &Service{
		db:             db,
		writer:         db,
		historyTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) reader() *sql.DB {
	if s.replica != nil {
		return s.replica()
	}
	return s.db
}

// Search runs the query picked by Build for p and returns one page of
// formatted entreprises
func (s *Service) Search(ctx context.Context, p *params.SearchParams) (*Response, error) {
	start := time.Now()
	ctx, span := searchTracer.Start(ctx, "Search",
		trace.WithAttributes(
			attribute.Int("page", p.Page),
			attribute.Int("per_page", p.PerPage),
			attribute.Bool("has_terms", p.Terms != ""),
			attribute.Bool("has_filters", p.HasFilters()),
		),
	)
	defer span.End()

	key := p.CacheKey()
	if resp, ok := s.cached(ctx, key); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return resp, nil
	}

	q, err := Build(p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build query")
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	span.SetAttributes(attribute.String("strategy", string(q.Strategy)))

	results, err := s.queryEntreprises(ctx, q)
	if err != nil {
		s.observe(q.Strategy, "error", start, 0)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to execute search")
		return nil, err
	}

	total, err := s.getTotalCount(ctx, q)
	if err != nil {
		// The page itself is valid, only the count is approximated
		span.AddEvent("failed to get total count",
			trace.WithAttributes(attribute.String("error", err.Error())),
		)
		logger(ctx).WithError(err).Warn("search count failed")
		total = p.Offset() + len(results)
	}

	resp := &Response{
		Results:      results,
		TotalResults: total,
		Page:         p.Page,
		PerPage:      p.PerPage,
		TotalPages:   totalPages(total, p.PerPage),
		Strategy:     q.Strategy,
	}

	span.SetAttributes(
		attribute.Int("result_count", len(results)),
		attribute.Int("total_count", total),
	)
	span.SetStatus(codes.Ok, "search completed")
	s.observe(q.Strategy, "success", start, total)

	s.store(ctx, key, resp)

	if s.recordHistory {
		durationMs := int(time.Since(start).Milliseconds())
		s.pending.Add(1)
		done := async.SafeGo(ctx, s.historyTimeout, "record search", func(ctx context.Context) error {
			return s.RecordSearch(ctx, p.Terms, q.Strategy, total, durationMs)
		})
		go func() {
			<-done
			s.pending.Done()
		}()
	}

	return resp, nil
}

func (s *Service) queryEntreprises(ctx context.Context, q *Query) ([]models.Entreprise, error) {
	rows, err := s.reader().QueryContext(ctx, q.SQL, q.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer rows.Close()

	records, err := formatters.ScanRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to read search results: %w", err)
	}

	return formatters.FormatEntreprises(records), nil
}

// getTotalCount counts matches without pagination
func (s *Service) getTotalCount(ctx context.Context, q *Query) (int, error) {
	var count int
	if err := s.reader().QueryRowContext(ctx, q.CountSQL, q.CountArgs...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count results: %w", err)
	}
	return count, nil
}

// logger returns the request logger tagged with the current trace and span
func logger(ctx context.Context) *observability.Logger {
	return observability.UpdateLoggerWithTraceContext(ctx, observability.FromContext(ctx))
}

func totalPages(total, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

func (s *Service) cached(ctx context.Context, key string) (*Response, bool) {
	if s.cache == nil {
		return nil, false
	}

	resp, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		logger(ctx).WithError(err).WithField("cache", s.cache.Name()).Warn("search cache read failed")
		if s.metrics != nil {
			s.metrics.CacheErrorsTotal.WithLabelValues(s.cache.Name(), "get").Inc()
		}
		return nil, false
	case ok:
		if s.metrics != nil {
			s.metrics.CacheHitsTotal.WithLabelValues(s.cache.Name()).Inc()
		}
		return resp, true
	default:
		if s.metrics != nil {
			s.metrics.CacheMissesTotal.WithLabelValues(s.cache.Name()).Inc()
		}
		return nil, false
	}
}

func (s *Service) store(ctx context.Context, key string, resp *Response) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, resp); err != nil {
		logger(ctx).WithError(err).WithField("cache", s.cache.Name()).Warn("search cache write failed")
		if s.metrics != nil {
			s.metrics.CacheErrorsTotal.WithLabelValues(s.cache.Name(), "set").Inc()
		}
	}
}

func (s *Service) observe(strategy Strategy, status string, start time.Time, total int) {
	if s.metrics == nil {
		return
	}
	s.metrics.SearchQueriesTotal.WithLabelValues(string(strategy), status).Inc()
	s.metrics.SearchDuration.WithLabelValues(string(strategy)).Observe(time.Since(start).Seconds())
	if status == "success" {
		s.metrics.SearchResultsCount.WithLabelValues(string(strategy)).Observe(float64(total))
	}
}

// Etablissements returns the establishments of the entreprise identified by
// rid. A RIDET narrows the result to that establishment. An unknown RID
// yields ErrNotFound, a malformed one ridet.ErrInvalid.
func (s *Service) Etablissements(ctx context.Context, rid string) ([]models.Etablissement, error) {
	ctx, span := searchTracer.Start(ctx, "Etablissements",
		trace.WithAttributes(attribute.String("rid", rid)),
	)
	defer span.End()

	id, err := ridet.Parse(rid)
	if err != nil {
		return nil, err
	}

	var exists bool
	err = s.reader().QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM entreprise WHERE rid = $1)`, id.RID,
	).Scan(&exists)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to look up entreprise")
		return nil, fmt.Errorf("failed to look up entreprise: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	query := `
		SELECT et.*
		FROM etablissement et
		JOIN entreprise e ON e.id = et.entreprise_id
		WHERE e.rid = $1`
	args := []interface{}{id.RID}
	if id.HasEtablissement() {
		query += ` AND et.rid = $2`
		args = append(args, id.String())
	}
	query += `
		ORDER BY et.rid ASC`

	rows, err := s.reader().QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load etablissements")
		return nil, fmt.Errorf("failed to load etablissements: %w", err)
	}
	defer rows.Close()

	records, err := formatters.ScanRecords(rows)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read etablissements: %w", err)
	}

	span.SetAttributes(attribute.Int("result_count", len(records)))
	return formatters.FormatEtablissements(records), nil
}

// RecordSearch records an executed search in search_history
func (s *Service) RecordSearch(ctx context.Context, terms string, strategy Strategy, resultCount int, durationMs int) error {
	_, err := s.writer.ExecContext(ctx, `
		INSERT INTO search_history (terms, strategy, result_count, search_duration_ms, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, terms, string(strategy), resultCount, durationMs)
	if err != nil {
		return fmt.Errorf("failed to record search: %w", err)
	}
	return nil
}

// Wait blocks until background history writes have finished
func (s *Service) Wait() {
	s.pending.Wait()
}
