// Package httputil provides JSON response helpers and the HTTP middleware
// shared by the registry servers.
//
// # Response Helpers
//
//	httputil.WriteSuccess(w, resp)
//	httputil.WriteBadRequest(w, "page doit être un entier positif")
//	httputil.WriteNotFoundError(w, "entreprise introuvable")
//	httputil.WriteInternalError(w) // details stay in the logs
//
// Errors are always rendered as {"error": "<message>"}.
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware(logger),
//		httputil.LoggingMiddleware,
//		httputil.RecoveryMiddleware,
//		httputil.TimeoutMiddleware(30*time.Second),
//	)
//
// RequestIDMiddleware must come first: the others log through
// observability.FromContext.
package httputil
