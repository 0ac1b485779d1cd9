package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/unify/internal/db"
	"horse.fit/unify/internal/globaltime"
	"horse.fit/unify/internal/normalize"
	"horse.fit/unify/internal/record"
)

// Decision is one reconciliation outcome ready to be persisted.
type Decision struct {
	Entity      record.CanonicalEntity
	MatchKey    normalize.MatchKey
	Policy      string
	JobID       string
	MemberCount int
}

type backend interface {
	SaveReconcileOutcome(ctx context.Context, params db.SaveReconcileOutcomeParams) error
	ArchiveRawRecord(ctx context.Context, recordUUID string, now time.Time) (int64, error)
}

// Reconciler applies reconciliation decisions to the canonical store. The
// entity upsert and decision log commit together; archiving superseded
// records happens afterwards through the shared destructive-call throttle,
// one record per ticket.
type Reconciler struct {
	backend  backend
	throttle *Throttle
	logger   zerolog.Logger
}

func NewReconciler(pool *db.Pool, throttle *Throttle, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		backend:  pool,
		throttle: throttle,
		logger:   logger,
	}
}

// Apply persists one decision. A write failure surfaces as an error so the
// owning job fails loudly instead of dropping the entity.
func (r *Reconciler) Apply(ctx context.Context, decision Decision) error {
	if r == nil || r.backend == nil {
		return fmt.Errorf("store reconciler is not initialized")
	}
	if decision.Entity.ID == "" {
		return fmt.Errorf("decision has no entity ID")
	}

	fields, err := json.Marshal(decision.Entity.Fields)
	if err != nil {
		return fmt.Errorf("encode entity fields: %w", err)
	}
	sources, err := json.Marshal(nonNil(decision.Entity.ContributingSources))
	if err != nil {
		return fmt.Errorf("encode contributing sources: %w", err)
	}
	superseded, err := json.Marshal(nonNil(decision.Entity.SupersededIDs))
	if err != nil {
		return fmt.Errorf("encode superseded IDs: %w", err)
	}

	params := db.SaveReconcileOutcomeParams{
		EntityUUID:           decision.Entity.ID,
		EntityType:           string(decision.Entity.EntityType),
		MatchKeyKind:         string(decision.MatchKey.Kind),
		MatchKeyValue:        decision.MatchKey.Value,
		Fields:               fields,
		ContributingSources:  sources,
		CompletenessScore:    decision.Entity.CompletenessScore,
		ValidationScore:      decision.Entity.ValidationScore,
		MultiSourceValidated: decision.Entity.MultiSourceValidated,
		SupersededIDs:        superseded,
		JobID:                decision.JobID,
		Policy:               decision.Policy,
		MemberCount:          decision.MemberCount,
		SourceCount:          len(decision.Entity.ContributingSources),
		Now:                  globaltime.Now(),
	}
	if err := r.backend.SaveReconcileOutcome(ctx, params); err != nil {
		return fmt.Errorf("persist canonical entity %s: %w", decision.Entity.ID, err)
	}

	for _, recordUUID := range decision.Entity.SupersededIDs {
		if err := r.throttle.Wait(ctx); err != nil {
			return fmt.Errorf("wait for destructive-call ticket: %w", err)
		}
		affected, err := r.backend.ArchiveRawRecord(ctx, recordUUID, globaltime.Now())
		if err != nil {
			return fmt.Errorf("archive superseded record %s: %w", recordUUID, err)
		}
		r.logger.Debug().
			Str("entity_uuid", decision.Entity.ID).
			Str("record_uuid", recordUUID).
			Int64("rows", affected).
			Msg("archived superseded record")
	}

	return nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
