// Package search dispatches registry searches and runs them on PostgreSQL.
//
// # Dispatch
//
// Build inspects the validated terms. A RID ("1234567") or RIDET
// ("1234567.001") gets an exact lookup on entreprise.rid; any other input
// gets a full-text search over sigle, enseigne and rid using the french
// text search configuration, ranked with ts_rank and narrowed by the
// commune, code_postal and forme_juridique filters.
//
//	q, err := search.Build(p)
//	rows, err := db.QueryContext(ctx, q.SQL, q.Args...)
//
// # Service
//
// Service executes the built query, formats the rows and counts the total:
//
//	service := search.NewService(db,
//		search.WithCache(search.NewLRUCache(1024, time.Minute)),
//		search.WithMetrics(metrics),
//		search.WithHistory(5*time.Second),
//	)
//	resp, err := service.Search(ctx, p)
//
// # Caching
//
// LRUCache keeps responses in process, RedisCache shares them between
// instances and TieredCache chains the two. Cache failures never fail a
// search.
package search
