// Package maintenance schedules the periodic housekeeping of the registry
// database with robfig/cron.
//
//	scheduler := maintenance.NewScheduler(logger)
//	scheduler.Add("prune search history", "@daily", &maintenance.PruneJob{
//		DB:        cm.Primary(),
//		Retention: 90 * 24 * time.Hour,
//		Metrics:   metrics,
//		Logger:    logger,
//	})
//	scheduler.Add("db stats", "@every 15s", &maintenance.StatsJob{
//		Stats:   func() sql.DBStats { return cm.Stats().Total() },
//		Metrics: metrics,
//	})
//	scheduler.Start()
//	defer scheduler.Stop(ctx)
package maintenance
