package async

import (
	"context"
	"time"

	"github.com/opendata-nc/registre/pkg/observability"
)

// SafeGo runs fn in its own goroutine with panic recovery and a timeout.
// The task keeps the values of parentCtx (request ID, logger) but not its
// cancellation, so work started by a handler outlives the response.
// Errors and panics are logged with the logger found in parentCtx.
// The returned channel is closed once fn has returned.
//
// Example:
//
//	async.SafeGo(r.Context(), 5*time.Second, "record search", func(ctx context.Context) error {
//	    return service.RecordSearch(ctx, entry)
//	})
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) <-chan struct{} {
	done := make(chan struct{})
	logger := observability.FromContext(parentCtx).WithField("task", taskName)

	go func() {
		defer close(done)

		ctx, cancel := context.WithTimeout(context.WithoutCancel(parentCtx), timeout)
		defer cancel()

		defer observability.RecoverPanic(logger, taskName)

		if err := fn(ctx); err != nil {
			logger.WithError(err).Warn("background task failed")
		}
	}()

	return done
}
