// Package observability provides structured logging, Prometheus metrics,
// health probes, graceful shutdown and OpenTelemetry tracing for the
// registre services.
//
// # Logging
//
// Logger is a thin wrapper over logrus emitting JSON:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("strategy", "ridet").Info("search done")
//
// Handlers pull a request scoped logger from the context:
//
//	observability.FromContext(r.Context()).WithError(err).Error("search failed")
//
// # Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.SearchQueriesTotal.WithLabelValues("text", "success").Inc()
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(db, redisClient, version)
//	observability.RegisterHealthRoutes(mux, checker)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "registre",
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
package observability
