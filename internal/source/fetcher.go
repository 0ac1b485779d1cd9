package source

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"horse.fit/unify/internal/record"
)

// AdapterFailure records one channel that produced nothing this run.
type AdapterFailure struct {
	Adapter string `json:"adapter"`
	Reason  string `json:"reason"`
}

// Fetcher fans a reconciliation request out to every configured adapter
// concurrently. One slow or broken channel never sinks the run: its failure
// is reported alongside whatever the other channels returned.
type Fetcher struct {
	adapters []Adapter
	timeout  time.Duration
	logger   zerolog.Logger
}

func NewFetcher(adapters []Adapter, timeout time.Duration, logger zerolog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{
		adapters: adapters,
		timeout:  timeout,
		logger:   logger,
	}
}

// Fetch gathers raw records for one entity across all adapters. Results keep
// adapter configuration order so downstream output is deterministic.
func (f *Fetcher) Fetch(ctx context.Context, ref EntityRef) ([]FetchResult, []AdapterFailure) {
	if f == nil || len(f.adapters) == 0 {
		return nil, nil
	}

	results := make([]FetchResult, len(f.adapters))
	errs := make([]error, len(f.adapters))

	var group errgroup.Group
	for i, adapter := range f.adapters {
		i, adapter := i, adapter
		group.Go(func() error {
			adapterCtx, cancel := context.WithTimeout(ctx, f.timeout)
			defer cancel()

			records, err := adapter.FetchRawRecords(adapterCtx, ref)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = FetchResult{Adapter: adapter.Name(), Records: records}
			return nil
		})
	}
	_ = group.Wait()

	gathered := make([]FetchResult, 0, len(f.adapters))
	var failures []AdapterFailure
	for i, adapter := range f.adapters {
		if errs[i] != nil {
			f.logger.Warn().
				Str("adapter", adapter.Name()).
				Str("entity_key", ref.Key).
				Err(errs[i]).
				Msg("adapter failed, continuing with remaining sources")
			failures = append(failures, AdapterFailure{Adapter: adapter.Name(), Reason: errs[i].Error()})
			continue
		}
		gathered = append(gathered, results[i])
	}
	return gathered, failures
}

// FetchResult is one adapter's contribution to a run.
type FetchResult struct {
	Adapter string
	Records []record.RawRecord
}
