package score

import (
	"testing"

	"horse.fit/unify/internal/record"
)

func strPtr(v string) *string { return &v }
func intPtr(v int) *int       { return &v }

func TestCompleteness_AccountWeights(t *testing.T) {
	t.Parallel()

	rec := record.RawRecord{
		EntityType: record.EntityAccount,
		Fields: record.Fields{
			Domain:         strPtr("acme.com"),
			ICPScore:       intPtr(80),
			BusinessModel:  strPtr("b2b saas"),
			EmployeeCount:  intPtr(250),
			ResearchStatus: strPtr("complete"),
		},
	}

	if got := Completeness(rec, DefaultConfig()); got != 13 {
		t.Fatalf("unexpected account completeness: got %d want 13", got)
	}
}

func TestCompleteness_ContactWeights(t *testing.T) {
	t.Parallel()

	rec := record.RawRecord{
		EntityType: record.EntityContact,
		Fields: record.Fields{
			Email:       strPtr("jane@acme.com"),
			LinkedInURL: strPtr("https://linkedin.com/in/jane"),
			Title:       strPtr("VP Engineering"),
		},
	}

	if got := Completeness(rec, DefaultConfig()); got != 10 {
		t.Fatalf("unexpected contact completeness: got %d want 10", got)
	}
}

func TestCompleteness_IgnoresPlaceholders(t *testing.T) {
	t.Parallel()

	rec := record.RawRecord{
		EntityType: record.EntityContact,
		Fields: record.Fields{
			Email: strPtr("email_not_unlocked@domain.com"),
			Title: strPtr("N/A"),
		},
	}

	if got := Completeness(rec, DefaultConfig()); got != 0 {
		t.Fatalf("expected placeholder fields to score zero, got %d", got)
	}
}

func TestCompleteness_EmptyRecordIsZero(t *testing.T) {
	t.Parallel()

	if got := Completeness(record.RawRecord{EntityType: record.EntityAccount}, DefaultConfig()); got != 0 {
		t.Fatalf("expected empty record to score zero, got %d", got)
	}
}

func TestWithOverrides(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig().WithOverrides(map[string]int{FieldDomain: 7}, nil)
	rec := record.RawRecord{
		EntityType: record.EntityAccount,
		Fields:     record.Fields{Domain: strPtr("acme.com")},
	}

	if got := Completeness(rec, cfg); got != 7 {
		t.Fatalf("expected overridden domain weight, got %d", got)
	}
	if DefaultConfig().Account[FieldDomain] != 3 {
		t.Fatalf("override mutated the default table")
	}
}
