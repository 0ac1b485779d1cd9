package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "ingest":
		return runIngest(args[1:])
	case "reconcile":
		return runReconcile(args[1:])
	case "stats":
		return runStats(args[1:])
	case "hash-token":
		return runHashToken(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "unify CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  unify <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health      Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  ingest      Stage one raw research record")
	fmt.Fprintln(os.Stderr, "  reconcile   Run one reconciliation for an entity key")
	fmt.Fprintln(os.Stderr, "  stats       Show reconciliation counters")
	fmt.Fprintln(os.Stderr, "  hash-token  Hash an admin API token for configuration")
	fmt.Fprintln(os.Stderr, "  serve       Start the research API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"unify <command> -h\" for command-specific flags.")
}
