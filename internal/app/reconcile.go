package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/unify/internal/cli"
	"horse.fit/unify/internal/db"
	"horse.fit/unify/internal/logging"
	"horse.fit/unify/internal/normalize"
	"horse.fit/unify/internal/reconcile"
	"horse.fit/unify/internal/record"
	"horse.fit/unify/internal/source"
	"horse.fit/unify/internal/store"
)

// runReconcile executes one reconciliation synchronously, bypassing the job
// scheduler. Useful for backfills and debugging a single entity.
func runReconcile(args []string) int {
	fs := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 60*time.Second, "Command timeout")
	entityKey := fs.String("entity-key", "", "Entity key to reconcile (required)")
	entityTypeRaw := fs.String("entity-type", "account", "Entity type: contact or account")
	dryRun := fs.Bool("dry-run", false, "Compute the result without writing to the store")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	entityType, ok := record.ParseEntityType(*entityTypeRaw)
	if !ok {
		fmt.Fprintln(os.Stderr, "--entity-type must be contact or account")
		return 2
	}
	key := normalize.CoalesceKey(entityType, *entityKey)
	if key == "" {
		fmt.Fprintln(os.Stderr, "--entity-key is required and must normalize to a usable key")
		return 2
	}

	cfg, err := loadConfig(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	scores, confidences, err := buildTables(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid scoring configuration: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	fetcher := source.NewFetcher(buildAdapters(pool, cfg, confidences), cfg.AdapterTimeout, logger)

	var reconciler *store.Reconciler
	if !*dryRun {
		throttle := store.NewThrottle(cfg.DestructiveCallInterval)
		reconciler = store.NewReconciler(pool, throttle, logger)
	}

	svc := reconcile.NewService(fetcher, reconciler, scores, confidences, logger)
	stats, err := svc.Run(ctx, source.EntityRef{Key: key, Type: entityType}, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Reconciliation failed: %v\n", err)
		return 1
	}

	if err := printJSON(stats); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
		return 1
	}
	return 0
}
