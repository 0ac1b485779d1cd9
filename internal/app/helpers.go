package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/unify/internal/cli"
	"horse.fit/unify/internal/confidence"
	"horse.fit/unify/internal/config"
	"horse.fit/unify/internal/db"
	"horse.fit/unify/internal/score"
	"horse.fit/unify/internal/source"
)

func loadConfig(envLoader *cli.EnvLoader) (*config.Config, error) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func connectPool(timeout time.Duration, envLoader *cli.EnvLoader) (context.Context, context.CancelFunc, *config.Config, *db.Pool, error) {
	cfg, err := loadConfig(envLoader)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		cancel()
		return nil, nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return ctx, cancel, cfg, pool, nil
}

// buildTables resolves the scoring and confidence tables with any
// configured overrides applied. Config validation already vetted the pair
// syntax, so errors here are impossible in practice.
func buildTables(cfg *config.Config) (score.Config, confidence.Table, error) {
	accountOverrides, err := cfg.AccountWeightOverrides()
	if err != nil {
		return score.Config{}, nil, err
	}
	contactOverrides, err := cfg.ContactWeightOverrides()
	if err != nil {
		return score.Config{}, nil, err
	}
	confidenceOverrides, err := cfg.SourceConfidenceOverrides()
	if err != nil {
		return score.Config{}, nil, err
	}

	scores := score.DefaultConfig().WithOverrides(accountOverrides, contactOverrides)
	confidences := confidence.DefaultTable().WithOverrides(confidenceOverrides)
	return scores, confidences, nil
}

// buildAdapters wires one staged-table adapter per configured source.
func buildAdapters(pool *db.Pool, cfg *config.Config, confidences confidence.Table) []source.Adapter {
	sources := cfg.SourceList()
	adapters := make([]source.Adapter, 0, len(sources))
	for _, name := range sources {
		adapters = append(adapters, source.NewStagedAdapter(pool, name, confidences[name]))
	}
	return adapters
}

func loadJSONInput(inline, filePath, label string) (json.RawMessage, error) {
	if strings.TrimSpace(filePath) != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("read %s file: %w", label, err)
		}
		return json.RawMessage(data), nil
	}
	if strings.TrimSpace(inline) == "" {
		return nil, fmt.Errorf("%s is required", label)
	}
	return json.RawMessage(inline), nil
}

func printJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
