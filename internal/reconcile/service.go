package reconcile

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"horse.fit/unify/internal/confidence"
	"horse.fit/unify/internal/dedup"
	"horse.fit/unify/internal/globaltime"
	"horse.fit/unify/internal/merge"
	"horse.fit/unify/internal/record"
	"horse.fit/unify/internal/score"
	"horse.fit/unify/internal/source"
	"horse.fit/unify/internal/store"
)

// RunStats summarizes one reconciliation run.
type RunStats struct {
	EntityKey       string                   `json:"entity_key"`
	EntityType      record.EntityType        `json:"entity_type"`
	RecordsFetched  int                      `json:"records_fetched"`
	GroupCount      int                      `json:"group_count"`
	AdapterFailures []source.AdapterFailure  `json:"adapter_failures,omitempty"`
	Entities        []record.CanonicalEntity `json:"entities"`
}

// Service runs the reconciliation pipeline for one entity key: gather raw
// records, partition them by match key, merge each group under the selected
// policy, score the result and persist it.
type Service struct {
	fetcher     *source.Fetcher
	store       *store.Reconciler
	scores      score.Config
	confidences confidence.Table
	logger      zerolog.Logger
}

func NewService(fetcher *source.Fetcher, reconciler *store.Reconciler, scores score.Config, confidences confidence.Table, logger zerolog.Logger) *Service {
	return &Service{
		fetcher:     fetcher,
		store:       reconciler,
		scores:      scores,
		confidences: confidences,
		logger:      logger,
	}
}

// Run executes one reconciliation. Adapter failures degrade the result
// rather than abort it; persistence failures and cancellation abort.
func (s *Service) Run(ctx context.Context, ref source.EntityRef, jobID string) (*RunStats, error) {
	if s == nil || s.fetcher == nil {
		return nil, fmt.Errorf("reconcile service is not initialized")
	}
	if ref.Key == "" {
		return nil, fmt.Errorf("entity key is required")
	}
	if !ref.Type.Valid() {
		return nil, fmt.Errorf("unknown entity type %q", ref.Type)
	}

	results, failures := s.fetcher.Fetch(ctx, ref)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var records []record.RawRecord
	for _, result := range results {
		records = append(records, result.Records...)
	}

	stats := &RunStats{
		EntityKey:       ref.Key,
		EntityType:      ref.Type,
		RecordsFetched:  len(records),
		AdapterFailures: failures,
		Entities:        []record.CanonicalEntity{},
	}
	if len(records) == 0 {
		s.logger.Info().
			Str("entity_key", ref.Key).
			Int("adapter_failures", len(failures)).
			Msg("no raw records found, nothing to reconcile")
		return stats, nil
	}

	groups := dedup.Partition(records)
	stats.GroupCount = len(groups)

	now := globaltime.Now()
	for _, group := range groups {
		policy := selectPolicy(group)
		entity, err := merge.Merge(group, policy, s.scores, now)
		if err != nil {
			return nil, fmt.Errorf("merge group %s: %w", group.Key.String(), err)
		}

		validation, validated := confidence.Validation(group.Members, s.confidences)
		entity.ValidationScore = validation
		entity.MultiSourceValidated = validated

		// Cancellation between merge and persist discards the group cleanly;
		// nothing partial ever reaches the store.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if s.store != nil {
			decision := store.Decision{
				Entity:      entity,
				MatchKey:    group.Key,
				Policy:      string(policy),
				JobID:       jobID,
				MemberCount: len(group.Members),
			}
			if err := s.store.Apply(ctx, decision); err != nil {
				return nil, err
			}
		}

		stats.Entities = append(stats.Entities, entity)
	}

	sortEntities(stats.Entities)

	s.logger.Info().
		Str("entity_key", ref.Key).
		Str("entity_type", string(ref.Type)).
		Int("records", len(records)).
		Int("entities", len(stats.Entities)).
		Int("adapter_failures", len(failures)).
		Msg("reconciliation run finished")

	return stats, nil
}

// selectPolicy picks winner-take-all for same-source duplicate piles and
// field merge when independent channels corroborate one identity.
func selectPolicy(group dedup.Group) merge.Policy {
	if len(record.DistinctSources(group.Members)) > 1 {
		return merge.FieldMerge
	}
	return merge.WinnerTakeAll
}

func sortEntities(entities []record.CanonicalEntity) {
	sort.SliceStable(entities, func(i, j int) bool {
		if entities[i].ValidationScore != entities[j].ValidationScore {
			return entities[i].ValidationScore > entities[j].ValidationScore
		}
		if entities[i].CompletenessScore != entities[j].CompletenessScore {
			return entities[i].CompletenessScore > entities[j].CompletenessScore
		}
		return entities[i].ID < entities[j].ID
	})
}
