package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/unify/internal/cli"
)

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 10*time.Second, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "health does not accept positional arguments")
		return 2
	}

	ctx, cancel, _, pool, err := connectPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	var one int
	if err := pool.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		fmt.Fprintf(os.Stderr, "Database check failed: %v\n", err)
		return 1
	}

	stats := pool.DB().Stats()
	fmt.Printf("database ok (open connections: %d, in use: %d)\n", stats.OpenConnections, stats.InUse)
	return 0
}
