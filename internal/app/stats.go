package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"horse.fit/unify/internal/cli"
	"horse.fit/unify/internal/db"
	"horse.fit/unify/internal/globaltime"
)

func runStats(args []string) int {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 20*time.Second, "Command timeout")
	format := fs.String("format", "table", "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *format != "table" && *format != "json" {
		fmt.Fprintln(os.Stderr, "--format must be table or json")
		return 2
	}

	ctx, cancel, _, pool, err := connectPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	now := globaltime.UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	stats, err := pool.QueryReconcileStats(ctx, dayStart, dayEnd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query stats: %v\n", err)
		return 1
	}

	if *format == "json" {
		if err := printJSON(stats); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	printStatsTable(stats)
	return 0
}

func printStatsTable(stats *db.ReconcileStats) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "Day\t%s\n\n", stats.Day)
	fmt.Fprintln(w, "ENTITY TYPE\tRAW RECORDS\tENTITIES\tMULTI-SOURCE")
	for _, count := range stats.EntityTypes {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", count.EntityType, count.RawRecords, count.Entities, count.MultiSource)
	}
	fmt.Fprintf(w, "total\t%d\t%d\t%d\n\n", stats.Totals.RawRecords, stats.Totals.Entities, stats.Totals.MultiSource)

	fmt.Fprintf(w, "Records staged today\t%d\n", stats.Throughput.RecordsStagedToday)
	fmt.Fprintf(w, "Decisions made today\t%d\n", stats.Throughput.DecisionsMadeToday)
	fmt.Fprintf(w, "Records pending merge\t%d\n", stats.Throughput.RecordsPendingMerge)
	fmt.Fprintf(w, "Archived records\t%d\n", stats.Totals.ArchivedRecords)

	w.Flush()
}
