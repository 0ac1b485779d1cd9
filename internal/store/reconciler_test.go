package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/unify/internal/db"
	"horse.fit/unify/internal/normalize"
	"horse.fit/unify/internal/record"
)

type fakeBackend struct {
	saved     []db.SaveReconcileOutcomeParams
	archived  []string
	saveErr   error
	archiveAt []time.Time
}

func (f *fakeBackend) SaveReconcileOutcome(_ context.Context, params db.SaveReconcileOutcomeParams) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, params)
	return nil
}

func (f *fakeBackend) ArchiveRawRecord(_ context.Context, recordUUID string, _ time.Time) (int64, error) {
	f.archived = append(f.archived, recordUUID)
	f.archiveAt = append(f.archiveAt, time.Now())
	return 1, nil
}

func testDecision() Decision {
	return Decision{
		Entity: record.CanonicalEntity{
			ID:                  "1d9a8c2e-0000-5000-8000-000000000001",
			EntityType:          record.EntityAccount,
			ContributingSources: []string{"api_search", "directory"},
			CompletenessScore:   7,
			ValidationScore:     65,
			SupersededIDs:       []string{"r2", "r3"},
		},
		MatchKey:    normalize.MatchKey{Kind: normalize.KeyDomain, Value: "acme.com"},
		Policy:      "winner_take_all",
		JobID:       "job-1",
		MemberCount: 3,
	}
}

func TestApply_PersistsEntityAndArchivesLosers(t *testing.T) {
	t.Parallel()

	fake := &fakeBackend{}
	reconciler := &Reconciler{backend: fake, throttle: NewThrottle(time.Millisecond), logger: zerolog.Nop()}

	if err := reconciler.Apply(context.Background(), testDecision()); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if len(fake.saved) != 1 {
		t.Fatalf("expected one outcome saved, got %d", len(fake.saved))
	}
	if fake.saved[0].SourceCount != 2 {
		t.Fatalf("unexpected source count: %d", fake.saved[0].SourceCount)
	}
	if len(fake.archived) != 2 || fake.archived[0] != "r2" || fake.archived[1] != "r3" {
		t.Fatalf("unexpected archive set: %v", fake.archived)
	}
}

func TestApply_ArchiveCallsAreSpaced(t *testing.T) {
	t.Parallel()

	fake := &fakeBackend{}
	reconciler := &Reconciler{backend: fake, throttle: NewThrottle(40 * time.Millisecond), logger: zerolog.Nop()}

	if err := reconciler.Apply(context.Background(), testDecision()); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if len(fake.archiveAt) != 2 {
		t.Fatalf("expected two archive calls, got %d", len(fake.archiveAt))
	}
	if gap := fake.archiveAt[1].Sub(fake.archiveAt[0]); gap < 30*time.Millisecond {
		t.Fatalf("destructive calls only %v apart", gap)
	}
}

func TestApply_WriteFailureSurfaces(t *testing.T) {
	t.Parallel()

	fake := &fakeBackend{saveErr: errors.New("connection reset")}
	reconciler := &Reconciler{backend: fake, throttle: NewThrottle(time.Millisecond), logger: zerolog.Nop()}

	err := reconciler.Apply(context.Background(), testDecision())
	if err == nil {
		t.Fatal("expected write failure to surface")
	}
	if len(fake.archived) != 0 {
		t.Fatal("must not archive records when the entity write failed")
	}
}

func TestApply_CancelledContextStopsArchiving(t *testing.T) {
	t.Parallel()

	fake := &fakeBackend{}
	reconciler := &Reconciler{backend: fake, throttle: NewThrottle(time.Hour), logger: zerolog.Nop()}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := reconciler.Apply(ctx, testDecision())
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if len(fake.archived) > 1 {
		t.Fatalf("archiving continued past cancellation: %v", fake.archived)
	}
}
