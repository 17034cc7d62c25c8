package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/opendata-nc/registre/pkg/config"
	"github.com/opendata-nc/registre/pkg/maintenance"
	"github.com/opendata-nc/registre/pkg/migrations"
	"github.com/opendata-nc/registre/pkg/observability"
	"github.com/opendata-nc/registre/pkg/storage/postgres"
)

const usage = `Usage: registre-migrate [flags] <command>

Commands:
  up        apply every pending migration
  down      revert the latest migrations (-steps, default 1)
  status    list migrations and their state
  prune     delete search history older than -retention

Flags:
`

func main() {
	flags := flag.NewFlagSet("registre-migrate", flag.ExitOnError)
	steps := flags.Int("steps", 1, "Number of migrations to revert with down")
	retention := flags.Duration("retention", 0, "History retention for prune (default: REGISTRE_HISTORY_RETENTION)")
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	_ = flags.Parse(os.Args[1:])

	if flags.NArg() != 1 {
		flags.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "registre-migrate: %v\n", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.Observability.Level(), os.Stderr)

	if *retention == 0 {
		*retention = cfg.Search.HistoryRetention
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Migrations only ever run against the primary
	connCfg := cfg.Storage.ConnectionConfig()
	connCfg.ReplicaURLs = nil
	cm, err := postgres.NewConnectionManager(connCfg, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}
	defer cm.Close()

	cmd := command{
		db:        cm.Primary(),
		logger:    logger,
		out:       os.Stdout,
		steps:     *steps,
		retention: *retention,
	}
	if err := cmd.run(ctx, flags.Arg(0)); err != nil {
		logger.WithError(err).Errorf("%s failed", flags.Arg(0))
		cm.Close()
		os.Exit(1)
	}
}

type command struct {
	db        *sql.DB
	logger    *observability.Logger
	out       io.Writer
	steps     int
	retention time.Duration
}

func (c command) run(ctx context.Context, name string) error {
	runner := migrations.NewRunner(c.db, c.logger)

	switch name {
	case "up":
		applied, err := runner.Up(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%d migrations applied\n", applied)
	case "down":
		reverted, err := runner.Down(ctx, c.steps)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%d migrations reverted\n", reverted)
	case "status":
		statuses, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		return printStatus(c.out, statuses)
	case "prune":
		if c.retention <= 0 {
			return fmt.Errorf("retention must be positive, got %s", c.retention)
		}
		job := &maintenance.PruneJob{DB: c.db, Retention: c.retention, Logger: c.logger}
		deleted, err := job.RunContext(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%d search history rows deleted\n", deleted)
	default:
		return fmt.Errorf("unknown command %q", name)
	}
	return nil
}

func printStatus(out io.Writer, statuses []migrations.Status) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tREVISION\tAPPLIED AT\tDESCRIPTION")
	for _, s := range statuses {
		appliedAt := "pending"
		if s.AppliedAt != nil {
			appliedAt = s.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.Version, s.Revision, appliedAt, s.Description)
	}
	return w.Flush()
}
