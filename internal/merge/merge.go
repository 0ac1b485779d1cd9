package merge

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"horse.fit/unify/internal/dedup"
	"horse.fit/unify/internal/normalize"
	"horse.fit/unify/internal/record"
	"horse.fit/unify/internal/score"
)

type Policy string

const (
	// WinnerTakeAll keeps the most complete member and supersedes the rest.
	// Used when a group holds accidental duplicates of one source-of-record
	// entity.
	WinnerTakeAll Policy = "winner_take_all"
	// FieldMerge assembles the best value per field across members. Used
	// when members come from independent channels corroborating one
	// identity.
	FieldMerge Policy = "field_merge"
)

// ErrMergeConflict signals two records with the same identity but different
// field values. The tie-break rules make this unreachable for distinct
// records, so observing it means key normalization is defective upstream.
var ErrMergeConflict = errors.New("merge conflict")

// entityNamespace seeds the uuid v5 derivation of canonical entity IDs, so
// the same match key always reconciles onto the same entity row.
var entityNamespace = uuid.MustParse("b33cbe6a-97f4-43d2-9a9b-0f6d51f2a70e")

// EntityID derives the deterministic canonical entity ID for a match key.
func EntityID(entityType record.EntityType, key normalize.MatchKey) string {
	return uuid.NewSHA1(entityNamespace, []byte(string(entityType)+"|"+key.String())).String()
}

// singletonEntityID covers keyless records, which still get a stable entity
// derived from their own record identity.
func singletonEntityID(rec record.RawRecord) string {
	return uuid.NewSHA1(entityNamespace, []byte(string(rec.EntityType)+"|record:"+rec.RecordUUID)).String()
}

// Merge reconciles one group into its canonical entity under the given
// policy. Both policies are idempotent: re-running over the same members,
// including a previously emitted canonical entity fed back in, reproduces
// the same entity.
func Merge(group dedup.Group, policy Policy, scores score.Config, now time.Time) (record.CanonicalEntity, error) {
	if len(group.Members) == 0 {
		return record.CanonicalEntity{}, fmt.Errorf("group has no members")
	}

	entityType := group.Members[0].EntityType
	entityID := ""
	if group.Singleton() {
		entityID = singletonEntityID(group.Members[0])
	} else {
		entityID = EntityID(entityType, group.Key)
	}

	if err := detectConflicts(group.Members); err != nil {
		return record.CanonicalEntity{}, err
	}

	// A fed-back canonical entity corroborates sources but must not compete
	// with the organic members it was derived from, or results would drift
	// run over run.
	organic := make([]record.RawRecord, 0, len(group.Members))
	for _, member := range group.Members {
		if member.RecordUUID == entityID || member.SourceType == "canonical" {
			continue
		}
		organic = append(organic, member)
	}
	if len(organic) == 0 {
		organic = group.Members
	}

	entity := record.CanonicalEntity{
		ID:                  entityID,
		EntityType:          entityType,
		ContributingSources: record.DistinctSources(group.Members),
		CreatedAt:           now.UTC(),
	}

	switch policy {
	case FieldMerge:
		entity.Fields = mergeFields(organic, scores)
	case WinnerTakeAll:
		winner := pickWinner(organic, scores)
		entity.Fields = winner.Fields
		for _, member := range organic {
			if member.RecordUUID == winner.RecordUUID {
				continue
			}
			entity.SupersededIDs = append(entity.SupersededIDs, member.RecordUUID)
		}
		sort.Strings(entity.SupersededIDs)
	default:
		return record.CanonicalEntity{}, fmt.Errorf("unknown merge policy %q", policy)
	}

	entity.CompletenessScore = score.Completeness(record.RawRecord{
		EntityType: entityType,
		Fields:     entity.Fields,
	}, scores)

	return entity, nil
}

// pickWinner selects the most complete member; ties prefer the freshest
// extraction, then the lowest record UUID. The winner is never superseded.
func pickWinner(members []record.RawRecord, scores score.Config) record.RawRecord {
	winner := members[0]
	winnerScore := score.Completeness(winner, scores)
	for _, member := range members[1:] {
		memberScore := score.Completeness(member, scores)
		switch {
		case memberScore > winnerScore:
			winner, winnerScore = member, memberScore
		case memberScore == winnerScore:
			if member.ExtractedAt.After(winner.ExtractedAt) {
				winner = member
			} else if member.ExtractedAt.Equal(winner.ExtractedAt) && member.RecordUUID < winner.RecordUUID {
				winner = member
			}
		}
	}
	return winner
}

func detectConflicts(members []record.RawRecord) error {
	byUUID := map[string]record.Fields{}
	for _, member := range members {
		if member.RecordUUID == "" {
			continue
		}
		previous, seen := byUUID[member.RecordUUID]
		if !seen {
			byUUID[member.RecordUUID] = member.Fields
			continue
		}
		if !fieldsEqual(previous, member.Fields) {
			return fmt.Errorf("record %s carries divergent field values: %w", member.RecordUUID, ErrMergeConflict)
		}
	}
	return nil
}
