// Package async runs fire-and-forget background work, such as recording a
// search in the history table, without blocking or crashing the caller.
//
//	async.SafeGo(r.Context(), 5*time.Second, "record search", func(ctx context.Context) error {
//		return service.RecordSearch(ctx, entry)
//	})
package async
