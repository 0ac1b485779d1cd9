package score

import (
	"horse.fit/unify/internal/normalize"
	"horse.fit/unify/internal/record"
)

// Weight table keys. Each key names a scoreable condition on one record,
// not necessarily a single struct field.
const (
	FieldDomain                 = "domain"
	FieldICPScore               = "icp_score"
	FieldBusinessModel          = "business_model"
	FieldEmployeeCount          = "employee_count"
	FieldResearchStatusComplete = "research_status_complete"
	FieldValidEmail             = "valid_email"
	FieldLinkedInURL            = "linkedin_url"
	FieldTitle                  = "title"
	FieldResearchStatusEnriched = "research_status_enriched"
	FieldBuyingPowerScore       = "buying_power_score"
)

type Weights map[string]int

// Config holds the per-entity-type weight tables, loaded from configuration
// with these defaults.
type Config struct {
	Account Weights
	Contact Weights
}

func DefaultConfig() Config {
	return Config{
		Account: Weights{
			FieldDomain:                 3,
			FieldICPScore:               2,
			FieldBusinessModel:          2,
			FieldEmployeeCount:          1,
			FieldResearchStatusComplete: 5,
		},
		Contact: Weights{
			FieldValidEmail:             5,
			FieldLinkedInURL:            3,
			FieldTitle:                  2,
			FieldICPScore:               2,
			FieldResearchStatusEnriched: 3,
			FieldBuyingPowerScore:       2,
		},
	}
}

// WithOverrides returns a copy of the config with non-nil override maps
// replacing individual weights.
func (c Config) WithOverrides(account, contact map[string]int) Config {
	merged := Config{Account: cloneWeights(c.Account), Contact: cloneWeights(c.Contact)}
	for key, weight := range account {
		merged.Account[key] = weight
	}
	for key, weight := range contact {
		merged.Contact[key] = weight
	}
	return merged
}

func (c Config) forType(entityType record.EntityType) Weights {
	if entityType == record.EntityAccount {
		return c.Account
	}
	return c.Contact
}

// predicates map weight-table keys to presence checks. A field counts only
// when populated with a real (non-placeholder) value.
var predicates = map[string]func(record.Fields) bool{
	FieldDomain:        func(f record.Fields) bool { return normalize.Domain(record.StringValue(f.Domain)) != "" },
	FieldICPScore:      func(f record.Fields) bool { return f.ICPScore != nil && *f.ICPScore > 0 },
	FieldBusinessModel: func(f record.Fields) bool { return record.Present(f.BusinessModel) },
	FieldEmployeeCount: func(f record.Fields) bool { return f.EmployeeCount != nil && *f.EmployeeCount > 0 },
	FieldResearchStatusComplete: func(f record.Fields) bool {
		return record.StringValue(f.ResearchStatus) == "complete"
	},
	FieldValidEmail:  func(f record.Fields) bool { return normalize.Email(record.StringValue(f.Email)) != "" },
	FieldLinkedInURL: func(f record.Fields) bool { return normalize.LinkedInURL(record.StringValue(f.LinkedInURL)) != "" },
	FieldTitle:       func(f record.Fields) bool { return record.Present(f.Title) },
	FieldResearchStatusEnriched: func(f record.Fields) bool {
		return record.StringValue(f.ResearchStatus) == "enriched"
	},
	FieldBuyingPowerScore: func(f record.Fields) bool { return f.BuyingPowerScore != nil && *f.BuyingPowerScore > 0 },
}

// Completeness sums the weights of every present, meaningful field on one
// record. Pure, deterministic, total.
func Completeness(rec record.RawRecord, cfg Config) int {
	weights := cfg.forType(rec.EntityType)
	total := 0
	for key, weight := range weights {
		predicate, known := predicates[key]
		if !known {
			continue
		}
		if predicate(rec.Fields) {
			total += weight
		}
	}
	return total
}

func cloneWeights(w Weights) Weights {
	cloned := make(Weights, len(w))
	for key, weight := range w {
		cloned[key] = weight
	}
	return cloned
}
