package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"horse.fit/unify/internal/cli"
	"horse.fit/unify/internal/db"
	"horse.fit/unify/internal/httpapi"
	"horse.fit/unify/internal/ingest"
	"horse.fit/unify/internal/logging"
	"horse.fit/unify/internal/reconcile"
	"horse.fit/unify/internal/scheduler"
	"horse.fit/unify/internal/source"
	"horse.fit/unify/internal/store"
)

// runServe starts the research API server and the reconciliation scheduler,
// then blocks until SIGINT or SIGTERM.
func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	host := fs.String("host", "0.0.0.0", "Listen host")
	port := fs.Int("port", 8070, "Listen port")
	readTimeout := fs.Duration("read-timeout", 10*time.Second, "HTTP read timeout")
	writeTimeout := fs.Duration("write-timeout", 30*time.Second, "HTTP write timeout")
	shutdownTimeout := fs.Duration("shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
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
		logger.Error().Err(err).Msg("invalid scoring configuration")
		return 1
	}

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 30*time.Second)
	pool, err := db.NewPool(connectCtx, cfg)
	connectCancel()
	if err != nil {
		logger.Error().Err(err).Msg("database connection failed")
		return 1
	}
	defer pool.Close()

	fetcher := source.NewFetcher(buildAdapters(pool, cfg, confidences), cfg.AdapterTimeout, logger)
	throttle := store.NewThrottle(cfg.DestructiveCallInterval)
	reconciler := store.NewReconciler(pool, throttle, logger)
	svc := reconcile.NewService(fetcher, reconciler, scores, confidences, logger)

	sched := scheduler.New(svc.Run, cfg.Workers, cfg.JobRetention, logger)

	server := httpapi.NewServer(pool, sched, ingest.NewService(pool, logger), logger, httpapi.Options{
		Host:               *host,
		Port:               *port,
		ReadTimeout:        *readTimeout,
		WriteTimeout:       *writeTimeout,
		ShutdownTimeout:    *shutdownTimeout,
		AdminTokenHash:     cfg.AdminTokenHash,
		CORSAllowedOrigins: cfg.CORSAllowedOriginsList(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := server.Start(ctx)

	drainCtx, drainCancel := context.WithTimeout(context.Background(), *shutdownTimeout)
	defer drainCancel()
	if err := sched.Shutdown(drainCtx); err != nil {
		logger.Error().Err(err).Msg("scheduler shutdown incomplete")
	}

	if serveErr != nil {
		logger.Error().Err(serveErr).Msg("server exited with error")
		return 1
	}
	return 0
}
