package record

import (
	"sort"
	"strings"
	"time"
)

type EntityType string

const (
	EntityContact EntityType = "contact"
	EntityAccount EntityType = "account"
)

func (t EntityType) Valid() bool {
	return t == EntityContact || t == EntityAccount
}

func ParseEntityType(raw string) (EntityType, bool) {
	switch EntityType(strings.ToLower(strings.TrimSpace(raw))) {
	case EntityContact:
		return EntityContact, true
	case EntityAccount:
		return EntityAccount, true
	default:
		return "", false
	}
}

// Fields is the fixed optional field set a provider may populate.
// Optional values are pointers so "absent" and "empty" stay distinct.
type Fields struct {
	Name             *string `json:"name,omitempty"`
	Email            *string `json:"email,omitempty"`
	LinkedInURL      *string `json:"linkedin_url,omitempty"`
	Title            *string `json:"title,omitempty"`
	Company          *string `json:"company,omitempty"`
	Domain           *string `json:"domain,omitempty"`
	Phone            *string `json:"phone,omitempty"`
	Location         *string `json:"location,omitempty"`
	EmployeeCount    *int    `json:"employee_count,omitempty"`
	BusinessModel    *string `json:"business_model,omitempty"`
	ICPScore         *int    `json:"icp_score,omitempty"`
	BuyingPowerScore *int    `json:"buying_power_score,omitempty"`
	ResearchStatus   *string `json:"research_status,omitempty"`
}

// RawRecord is one provider fragment. Immutable once emitted by an adapter.
type RawRecord struct {
	RecordUUID       string     `json:"record_uuid"`
	EntityType       EntityType `json:"entity_type"`
	SourceType       string     `json:"source_type"`
	SourceConfidence int        `json:"source_confidence"`
	ExtractedAt      time.Time  `json:"extracted_at"`
	Fields           Fields     `json:"fields"`

	// FeedbackSources is set when a previously emitted canonical entity
	// re-enters reconciliation as one more member; it preserves that
	// entity's recorded contributing sources so corroboration is never
	// counted twice.
	FeedbackSources []string `json:"feedback_sources,omitempty"`
}

// Sources returns the contributing source set this record represents.
func (r RawRecord) Sources() []string {
	if len(r.FeedbackSources) > 0 {
		return append([]string(nil), r.FeedbackSources...)
	}
	return []string{r.SourceType}
}

// CanonicalEntity is the single reconciled record for one match key.
type CanonicalEntity struct {
	ID                   string     `json:"entity_uuid"`
	EntityType           EntityType `json:"entity_type"`
	Fields               Fields     `json:"fields"`
	ContributingSources  []string   `json:"contributing_sources"`
	CompletenessScore    int        `json:"completeness_score"`
	ValidationScore      int        `json:"validation_score"`
	MultiSourceValidated bool       `json:"multi_source_validated"`
	SupersededIDs        []string   `json:"superseded_ids,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// AsRecord converts a canonical entity back into a reconciliation member,
// used when a prior result is fed into a later run.
func (e CanonicalEntity) AsRecord() RawRecord {
	return RawRecord{
		RecordUUID:       e.ID,
		EntityType:       e.EntityType,
		SourceType:       "canonical",
		SourceConfidence: e.ValidationScore,
		ExtractedAt:      e.CreatedAt,
		Fields:           e.Fields,
		FeedbackSources:  append([]string(nil), e.ContributingSources...),
	}
}

// placeholderValues are provider sentinels that mean "we have nothing",
// never a real field value.
var placeholderValues = map[string]struct{}{
	"":                              {},
	"-":                             {},
	"n/a":                           {},
	"na":                            {},
	"none":                          {},
	"null":                          {},
	"unknown":                       {},
	"not unlocked":                  {},
	"email_not_unlocked@domain.com": {},
}

// IsPlaceholder reports whether a raw string value should be treated as absent.
func IsPlaceholder(value string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if _, found := placeholderValues[trimmed]; found {
		return true
	}
	return strings.Contains(trimmed, "not_unlocked")
}

// Present reports whether an optional string field carries a real value.
func Present(value *string) bool {
	return value != nil && !IsPlaceholder(*value)
}

// StringValue dereferences an optional field, mapping placeholders to "".
func StringValue(value *string) string {
	if !Present(value) {
		return ""
	}
	return strings.TrimSpace(*value)
}

// DistinctSources returns the sorted union of contributing sources over members.
func DistinctSources(members []RawRecord) []string {
	seen := map[string]struct{}{}
	for _, member := range members {
		for _, source := range member.Sources() {
			source = strings.ToLower(strings.TrimSpace(source))
			if source == "" || source == "canonical" {
				continue
			}
			seen[source] = struct{}{}
		}
	}

	sources := make([]string, 0, len(seen))
	for source := range seen {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	return sources
}
