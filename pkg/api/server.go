package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/opendata-nc/registre/pkg/httputil"
	"github.com/opendata-nc/registre/pkg/models"
	"github.com/opendata-nc/registre/pkg/observability"
	"github.com/opendata-nc/registre/pkg/params"
	"github.com/opendata-nc/registre/pkg/search"
)

// DefaultRequestTimeout bounds every request, database queries included
const DefaultRequestTimeout = 30 * time.Second

// Searcher is the part of search.Service the handlers use
type Searcher interface {
	Search(ctx context.Context, p *params.SearchParams) (*search.Response, error)
	Etablissements(ctx context.Context, rid string) ([]models.Etablissement, error)
}

// Server represents our API server
type Server struct {
	searcher Searcher
	router   *mux.Router
	handler  http.Handler
	logger   *observability.Logger
	metrics  *observability.Metrics
	timeout  time.Duration
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithMetrics instruments routes and validation failures
func WithMetrics(metrics *observability.Metrics) ServerOption {
	return func(s *Server) { s.metrics = metrics }
}

// WithRequestTimeout overrides DefaultRequestTimeout
func WithRequestTimeout(timeout time.Duration) ServerOption {
	return func(s *Server) { s.timeout = timeout }
}

// NewServer creates a new API server
func NewServer(searcher Searcher, logger *observability.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	s := &Server{
		searcher: searcher,
		router:   mux.NewRouter(),
		logger:   logger,
		timeout:  DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	s.handler = s.wrap(s.router)
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	if s.metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.metrics))
	}

	s.router.HandleFunc("/search", s.search).Methods(http.MethodGet)
	s.router.HandleFunc("/entreprises/{rid}/etablissements", s.etablissements).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFoundError(w, "route introuvable")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "méthode non autorisée")
	})
}

// wrap applies the middleware chain and OpenTelemetry instrumentation
func (s *Server) wrap(next http.Handler) http.Handler {
	chain := httputil.Chain(
		httputil.RequestIDMiddleware(s.logger),
		httputil.LoggingMiddleware,
		httputil.RecoveryMiddleware,
		httputil.TimeoutMiddleware(s.timeout),
	)
	return otelhttp.NewHandler(chain(next), "registre-api")
}

// Handler returns the fully wrapped API handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
