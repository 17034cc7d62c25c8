package maintenance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/opendata-nc/registre/pkg/observability"
)

// DefaultJobTimeout bounds a single job run
const DefaultJobTimeout = 5 * time.Minute

// PruneSearchHistory deletes search_history rows created before cutoff and
// returns how many were removed
func PruneSearchHistory(ctx context.Context, db *sql.DB, cutoff time.Time) (int64, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM search_history WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune search history: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned rows: %w", err)
	}
	return deleted, nil
}

// PruneJob removes search history older than Retention
type PruneJob struct {
	DB        *sql.DB
	Retention time.Duration
	Metrics   *observability.Metrics
	Logger    *observability.Logger
	Timeout   time.Duration

	now func() time.Time
}

// Run implements cron.Job
func (j *PruneJob) Run() {
	timeout := j.Timeout
	if timeout == 0 {
		timeout = DefaultJobTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if _, err := j.RunContext(ctx); err != nil {
		j.log().WithError(err).Error("Search history pruning failed")
	}
}

// RunContext prunes once and reports the number of deleted rows
func (j *PruneJob) RunContext(ctx context.Context) (int64, error) {
	now := time.Now
	if j.now != nil {
		now = j.now
	}
	cutoff := now().UTC().Add(-j.Retention)

	deleted, err := PruneSearchHistory(ctx, j.DB, cutoff)
	if err != nil {
		return 0, err
	}

	if j.Metrics != nil {
		j.Metrics.SearchHistoryPruned.Add(float64(deleted))
	}
	j.log().WithFields(map[string]interface{}{
		"deleted": deleted,
		"cutoff":  cutoff.Format(time.RFC3339),
	}).Info("Search history pruned")

	return deleted, nil
}

func (j *PruneJob) log() *observability.Logger {
	if j.Logger == nil {
		return observability.NewLogger(observability.InfoLevel, nil)
	}
	return j.Logger
}

// StatsJob publishes connection pool statistics to Prometheus
type StatsJob struct {
	Stats   func() sql.DBStats
	Metrics *observability.Metrics
}

// Run implements cron.Job
func (j *StatsJob) Run() {
	j.Metrics.ObserveDBStats(j.Stats())
}
