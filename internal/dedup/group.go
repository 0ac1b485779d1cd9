package dedup

import (
	"fmt"
	"sort"

	"horse.fit/unify/internal/normalize"
	"horse.fit/unify/internal/record"
)

// Group is one cell of the partition: every member shares the same match key.
// A keyless record forms a singleton group with a zero key and is never merged
// with anything else.
type Group struct {
	Key     normalize.MatchKey
	Members []record.RawRecord
}

// Singleton reports whether the group exists only because its record had no
// identifiable key.
func (g Group) Singleton() bool {
	return g.Key.Zero()
}

// Partition splits records into groups by exact match key. This is strict
// partitioning, not similarity clustering: records with different keys are
// never grouped, and every input record lands in exactly one group.
func Partition(records []record.RawRecord) []Group {
	keyed := map[string]*Group{}
	order := make([]string, 0, len(records))
	var singletons []Group

	for _, rec := range records {
		key := normalize.KeyFor(rec)
		if key.Zero() {
			singletons = append(singletons, Group{Members: []record.RawRecord{rec}})
			continue
		}

		// Keys of different kinds never collide even on equal values.
		mapKey := fmt.Sprintf("%s|%s|%s", rec.EntityType, key.Kind, key.Value)
		group, exists := keyed[mapKey]
		if !exists {
			keyed[mapKey] = &Group{Key: key, Members: []record.RawRecord{rec}}
			order = append(order, mapKey)
			continue
		}
		group.Members = append(group.Members, rec)
	}

	groups := make([]Group, 0, len(order)+len(singletons))
	for _, mapKey := range order {
		group := keyed[mapKey]
		sortMembers(group.Members)
		groups = append(groups, *group)
	}
	groups = append(groups, singletons...)
	return groups
}

// sortMembers orders members deterministically so downstream tie-breaks and
// emitted entities are stable across runs.
func sortMembers(members []record.RawRecord) {
	sort.SliceStable(members, func(i, j int) bool {
		if !members[i].ExtractedAt.Equal(members[j].ExtractedAt) {
			return members[i].ExtractedAt.Before(members[j].ExtractedAt)
		}
		if members[i].SourceType != members[j].SourceType {
			return members[i].SourceType < members[j].SourceType
		}
		return members[i].RecordUUID < members[j].RecordUUID
	})
}
