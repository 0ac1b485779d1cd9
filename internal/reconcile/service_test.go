package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/unify/internal/confidence"
	"horse.fit/unify/internal/record"
	"horse.fit/unify/internal/score"
	"horse.fit/unify/internal/source"
)

func strPtr(v string) *string { return &v }

func newTestService(adapters ...source.Adapter) *Service {
	fetcher := source.NewFetcher(adapters, time.Second, zerolog.Nop())
	return NewService(fetcher, nil, score.DefaultConfig(), confidence.DefaultTable(), zerolog.Nop())
}

func contactRecord(uuid, src, email, title string) record.RawRecord {
	return record.RawRecord{
		RecordUUID:  uuid,
		EntityType:  record.EntityContact,
		SourceType:  src,
		ExtractedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Fields:      record.Fields{Email: strPtr(email), Title: strPtr(title)},
	}
}

func TestRun_MultiSourceFieldMerge(t *testing.T) {
	t.Parallel()

	svc := newTestService(
		&source.StaticAdapter{AdapterName: "api_search", Records: []record.RawRecord{
			contactRecord("r1", "api_search", "a@x.com", "VP"),
		}},
		&source.StaticAdapter{AdapterName: "page_extract", Records: []record.RawRecord{
			contactRecord("r2", "page_extract", "a@x.com", "Vice President"),
		}},
	)

	stats, err := svc.Run(context.Background(), source.EntityRef{Key: "a@x.com", Type: record.EntityContact}, "")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(stats.Entities) != 1 {
		t.Fatalf("expected one canonical entity, got %d", len(stats.Entities))
	}

	entity := stats.Entities[0]
	if got := record.StringValue(entity.Fields.Title); got != "Vice President" {
		t.Fatalf("expected merged title, got %q", got)
	}
	if entity.ValidationScore != 65 {
		t.Fatalf("expected two-source validation 65, got %d", entity.ValidationScore)
	}
	if entity.MultiSourceValidated {
		t.Fatal("score 65 is below the validated threshold")
	}
	if len(entity.SupersededIDs) != 0 {
		t.Fatalf("field merge must not supersede, got %v", entity.SupersededIDs)
	}
}

func TestRun_SingleSourceDuplicatesUseWinnerTakeAll(t *testing.T) {
	t.Parallel()

	rich := contactRecord("r1", "api_search", "a@x.com", "Vice President")
	rich.Fields.LinkedInURL = strPtr("https://linkedin.com/in/a")
	sparse := contactRecord("r2", "api_search", "a@x.com", "")

	svc := newTestService(&source.StaticAdapter{
		AdapterName: "api_search",
		Records:     []record.RawRecord{rich, sparse},
	})

	stats, err := svc.Run(context.Background(), source.EntityRef{Key: "a@x.com", Type: record.EntityContact}, "")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(stats.Entities) != 1 {
		t.Fatalf("expected one entity, got %d", len(stats.Entities))
	}

	entity := stats.Entities[0]
	if entity.ValidationScore != 85 {
		t.Fatalf("expected intrinsic api_search confidence, got %d", entity.ValidationScore)
	}
	if !entity.MultiSourceValidated {
		t.Fatal("score 85 meets the validated threshold")
	}
	if len(entity.SupersededIDs) != 1 || entity.SupersededIDs[0] != "r2" {
		t.Fatalf("expected the sparse duplicate superseded, got %v", entity.SupersededIDs)
	}
}

func TestRun_AdapterTimeoutDegradesGracefully(t *testing.T) {
	t.Parallel()

	svc := newTestService(
		&source.StaticAdapter{AdapterName: "api_search", Records: []record.RawRecord{
			contactRecord("r1", "api_search", "a@x.com", "VP"),
		}},
		&source.StaticAdapter{AdapterName: "page_extract", Err: errors.New("deadline exceeded")},
		&source.StaticAdapter{AdapterName: "directory", Records: []record.RawRecord{
			contactRecord("r3", "directory", "a@x.com", "VP Sales"),
		}},
	)

	stats, err := svc.Run(context.Background(), source.EntityRef{Key: "a@x.com", Type: record.EntityContact}, "")
	if err != nil {
		t.Fatalf("run must survive a failed adapter: %v", err)
	}
	if len(stats.AdapterFailures) != 1 {
		t.Fatalf("expected one adapter failure recorded, got %v", stats.AdapterFailures)
	}
	if len(stats.Entities) != 1 {
		t.Fatalf("expected one entity from surviving sources, got %d", len(stats.Entities))
	}
	if got := len(stats.Entities[0].ContributingSources); got != 2 {
		t.Fatalf("expected two contributing sources, got %d", got)
	}
	if stats.Entities[0].ValidationScore != 65 {
		t.Fatalf("expected validation from two sources, got %d", stats.Entities[0].ValidationScore)
	}
}

func TestRun_NoRecordsCompletesEmpty(t *testing.T) {
	t.Parallel()

	svc := newTestService(&source.StaticAdapter{AdapterName: "api_search"})

	stats, err := svc.Run(context.Background(), source.EntityRef{Key: "nobody@x.com", Type: record.EntityContact}, "")
	if err != nil {
		t.Fatalf("empty run must complete: %v", err)
	}
	if len(stats.Entities) != 0 || stats.RecordsFetched != 0 {
		t.Fatalf("expected empty result, got %+v", stats)
	}
}

func TestRun_CancelledContextAborts(t *testing.T) {
	t.Parallel()

	svc := newTestService(&source.StaticAdapter{AdapterName: "api_search", Records: []record.RawRecord{
		contactRecord("r1", "api_search", "a@x.com", "VP"),
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := svc.Run(ctx, source.EntityRef{Key: "a@x.com", Type: record.EntityContact}, ""); err == nil {
		t.Fatal("expected cancellation to abort the run")
	}
}

func TestRun_OutputOrderedByValidationThenCompleteness(t *testing.T) {
	t.Parallel()

	single := contactRecord("r1", "api_search", "solo@x.com", "Analyst")
	corroboratedA := contactRecord("r2", "api_search", "pair@x.com", "VP")
	corroboratedB := contactRecord("r3", "directory", "pair@x.com", "Vice President")

	svc := newTestService(
		&source.StaticAdapter{AdapterName: "api_search", Records: []record.RawRecord{single, corroboratedA}},
		&source.StaticAdapter{AdapterName: "directory", Records: []record.RawRecord{corroboratedB}},
	)

	stats, err := svc.Run(context.Background(), source.EntityRef{Key: "x.com", Type: record.EntityContact}, "")
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(stats.Entities) != 2 {
		t.Fatalf("expected two entities, got %d", len(stats.Entities))
	}
	if stats.Entities[0].ValidationScore < stats.Entities[1].ValidationScore {
		t.Fatalf("entities not ordered by validation: %d before %d",
			stats.Entities[0].ValidationScore, stats.Entities[1].ValidationScore)
	}
}

func TestRun_RejectsBadInput(t *testing.T) {
	t.Parallel()

	svc := newTestService(&source.StaticAdapter{AdapterName: "api_search"})

	if _, err := svc.Run(context.Background(), source.EntityRef{Key: "", Type: record.EntityContact}, ""); err == nil {
		t.Fatal("expected error for empty entity key")
	}
	if _, err := svc.Run(context.Background(), source.EntityRef{Key: "a@x.com", Type: "robot"}, ""); err == nil {
		t.Fatal("expected error for unknown entity type")
	}
}
