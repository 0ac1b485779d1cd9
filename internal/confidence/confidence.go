package confidence

import "horse.fit/unify/internal/record"

// Table maps a source type to the intrinsic confidence of a single-source
// entity built from it alone.
type Table map[string]int

// DefaultTable reflects how trustworthy each channel is on its own.
func DefaultTable() Table {
	return Table{
		"api_search":     85,
		"page_extract":   75,
		"text_extract":   60,
		"public_profile": 80,
		"directory":      70,
	}
}

// WithOverrides returns a copy of the table with individual entries replaced.
func (t Table) WithOverrides(overrides map[string]int) Table {
	merged := make(Table, len(t))
	for source, value := range t {
		merged[source] = value
	}
	for source, value := range overrides {
		merged[source] = value
	}
	return merged
}

// ValidatedThreshold is the validation score at or above which an entity
// is flagged multi-source validated and sorts first.
const ValidatedThreshold = 80

// Validation scores a canonical entity from the members it was built from.
// Corroboration across independent sources dominates: with n distinct
// sources the score is min(100, 50 + 15*(n-1)). A single-source entity
// falls back to that source's intrinsic confidence. The validated flag is
// purely threshold-based: score >= ValidatedThreshold.
func Validation(members []record.RawRecord, table Table) (score int, validated bool) {
	sources := record.DistinctSources(members)
	if len(sources) > 1 {
		score = clamp(50 + 15*(len(sources)-1))
		return score, score >= ValidatedThreshold
	}

	if len(sources) == 1 {
		if intrinsic, known := table[sources[0]]; known {
			score = clamp(intrinsic)
			return score, score >= ValidatedThreshold
		}
	}

	// Unknown or absent source, use the strongest member's own claim.
	best := 0
	for _, member := range members {
		if member.SourceConfidence > best {
			best = member.SourceConfidence
		}
	}
	if best == 0 {
		best = 50
	}
	score = clamp(best)
	return score, score >= ValidatedThreshold
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
