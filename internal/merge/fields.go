package merge

import (
	"horse.fit/unify/internal/record"
	"horse.fit/unify/internal/score"
)

// stringAccessors drive field-by-field merging without reflection. Every
// string field on record.Fields must be listed here.
var stringAccessors = []func(*record.Fields) **string{
	func(f *record.Fields) **string { return &f.Name },
	func(f *record.Fields) **string { return &f.Email },
	func(f *record.Fields) **string { return &f.LinkedInURL },
	func(f *record.Fields) **string { return &f.Title },
	func(f *record.Fields) **string { return &f.Company },
	func(f *record.Fields) **string { return &f.Domain },
	func(f *record.Fields) **string { return &f.Phone },
	func(f *record.Fields) **string { return &f.Location },
	func(f *record.Fields) **string { return &f.BusinessModel },
}

var intAccessors = []func(*record.Fields) **int{
	func(f *record.Fields) **int { return &f.EmployeeCount },
	func(f *record.Fields) **int { return &f.ICPScore },
	func(f *record.Fields) **int { return &f.BuyingPowerScore },
}

// statusRank orders research statuses so a completed pass is never demoted
// by a staler pipeline stage.
var statusRank = map[string]int{
	"complete": 3,
	"enriched": 2,
	"pending":  1,
}

// mergeFields assembles the best value per field across members. Strings
// prefer the longest real value, ints the highest, research status the most
// advanced stage. Ties go to the member with higher overall completeness,
// then to the freshest extraction; members arrive pre-sorted so the result
// is deterministic.
func mergeFields(members []record.RawRecord, scores score.Config) record.Fields {
	completeness := make([]int, len(members))
	for i, member := range members {
		completeness[i] = score.Completeness(member, scores)
	}

	var merged record.Fields

	for _, access := range stringAccessors {
		bestIdx := -1
		var best string
		for i := range members {
			value := record.StringValue(*access(&members[i].Fields))
			if value == "" {
				continue
			}
			if bestIdx < 0 || betterString(value, best, completeness[i], completeness[bestIdx]) {
				bestIdx, best = i, value
			}
		}
		if bestIdx >= 0 {
			value := best
			*access(&merged) = &value
		}
	}

	for _, access := range intAccessors {
		var best *int
		for i := range members {
			candidate := *access(&members[i].Fields)
			if candidate == nil {
				continue
			}
			if best == nil || *candidate > *best {
				best = candidate
			}
		}
		if best != nil {
			value := *best
			*access(&merged) = &value
		}
	}

	bestIdx := -1
	for i := range members {
		status := record.StringValue(members[i].Fields.ResearchStatus)
		if status == "" {
			continue
		}
		if bestIdx < 0 || betterStatus(status, record.StringValue(members[bestIdx].Fields.ResearchStatus), completeness[i], completeness[bestIdx]) {
			bestIdx = i
		}
	}
	if bestIdx >= 0 {
		status := record.StringValue(members[bestIdx].Fields.ResearchStatus)
		merged.ResearchStatus = &status
	}

	return merged
}

func betterString(candidate, best string, candidateScore, bestScore int) bool {
	if len(candidate) != len(best) {
		return len(candidate) > len(best)
	}
	return candidateScore > bestScore
}

func betterStatus(candidate, best string, candidateScore, bestScore int) bool {
	if statusRank[candidate] != statusRank[best] {
		return statusRank[candidate] > statusRank[best]
	}
	return candidateScore > bestScore
}

func fieldsEqual(a, b record.Fields) bool {
	for _, access := range stringAccessors {
		if record.StringValue(*access(&a)) != record.StringValue(*access(&b)) {
			return false
		}
	}
	for _, access := range intAccessors {
		left, right := *access(&a), *access(&b)
		if (left == nil) != (right == nil) {
			return false
		}
		if left != nil && *left != *right {
			return false
		}
	}
	return record.StringValue(a.ResearchStatus) == record.StringValue(b.ResearchStatus)
}
