package normalize

import (
	"testing"

	"horse.fit/unify/internal/record"
)

func strPtr(v string) *string { return &v }

func TestEmail(t *testing.T) {
	t.Parallel()

	if got := Email(" Jane.Doe@ACME.com "); got != "jane.doe@acme.com" {
		t.Fatalf("unexpected email: %q", got)
	}
	if got := Email("email_not_unlocked@domain.com"); got != "" {
		t.Fatalf("expected placeholder email to normalize to empty, got %q", got)
	}
	if got := Email("not-an-email"); got != "" {
		t.Fatalf("expected value without @ to normalize to empty, got %q", got)
	}
}

func TestLinkedInURL(t *testing.T) {
	t.Parallel()

	got := LinkedInURL("HTTPS://WWW.LinkedIn.com/in/Jane-Doe/?utm_source=x")
	if got != "https://linkedin.com/in/jane-doe" {
		t.Fatalf("unexpected linkedin url: %q", got)
	}
	if got := LinkedInURL("linkedin.com/in/jane-doe"); got != "https://linkedin.com/in/jane-doe" {
		t.Fatalf("expected scheme-less url to normalize, got %q", got)
	}
	if got := LinkedInURL("   "); got != "" {
		t.Fatalf("expected blank url to normalize to empty, got %q", got)
	}
}

func TestName(t *testing.T) {
	t.Parallel()

	if got := Name("  Dr. Jane   O'Doe-Smith  "); got != "dr jane o doe smith" {
		t.Fatalf("unexpected name: %q", got)
	}
	if got := Name("N/A"); got != "" {
		t.Fatalf("expected placeholder name to normalize to empty, got %q", got)
	}
}

func TestDomain(t *testing.T) {
	t.Parallel()

	if got := Domain("https://www.Acme.com/about/"); got != "acme.com" {
		t.Fatalf("unexpected domain: %q", got)
	}
	if got := Domain("acme.com/"); got != "acme.com" {
		t.Fatalf("unexpected domain: %q", got)
	}
	if got := Domain("acme.com:8443"); got != "acme.com" {
		t.Fatalf("expected port to be stripped, got %q", got)
	}
	if got := Domain("localhost"); got != "" {
		t.Fatalf("expected dotless value to normalize to empty, got %q", got)
	}
}

func TestKeyFor_ContactPriority(t *testing.T) {
	t.Parallel()

	rec := record.RawRecord{
		EntityType: record.EntityContact,
		Fields: record.Fields{
			Email:       strPtr("Jane@Acme.com"),
			LinkedInURL: strPtr("https://linkedin.com/in/jane"),
			Name:        strPtr("Jane Doe"),
			Company:     strPtr("Acme"),
		},
	}

	key := KeyFor(rec)
	if key.Kind != KeyEmail || key.Value != "jane@acme.com" {
		t.Fatalf("expected email key to win, got %+v", key)
	}

	rec.Fields.Email = strPtr("email_not_unlocked@domain.com")
	key = KeyFor(rec)
	if key.Kind != KeyLinkedInURL {
		t.Fatalf("expected linkedin key after placeholder email, got %+v", key)
	}

	rec.Fields.LinkedInURL = nil
	key = KeyFor(rec)
	if key.Kind != KeyNameAndCompany || key.Value != "jane doe|acme" {
		t.Fatalf("expected name+company key, got %+v", key)
	}
}

func TestKeyFor_AccountPriority(t *testing.T) {
	t.Parallel()

	rec := record.RawRecord{
		EntityType: record.EntityAccount,
		Fields: record.Fields{
			Domain: strPtr("https://www.acme.com/"),
			Name:   strPtr("Acme Corp."),
		},
	}

	key := KeyFor(rec)
	if key.Kind != KeyDomain || key.Value != "acme.com" {
		t.Fatalf("expected domain key to win, got %+v", key)
	}

	rec.Fields.Domain = nil
	key = KeyFor(rec)
	if key.Kind != KeyName || key.Value != "acme corp" {
		t.Fatalf("expected name key fallback, got %+v", key)
	}
}

func TestKeyFor_NoIdentifiableKey(t *testing.T) {
	t.Parallel()

	key := KeyFor(record.RawRecord{EntityType: record.EntityContact})
	if !key.Zero() {
		t.Fatalf("expected zero key for empty record, got %+v", key)
	}
}

func TestKeyFor_Deterministic(t *testing.T) {
	t.Parallel()

	left := record.RawRecord{
		EntityType: record.EntityContact,
		SourceType: "api_search",
		Fields:     record.Fields{Email: strPtr(" A@X.com ")},
	}
	right := record.RawRecord{
		EntityType: record.EntityContact,
		SourceType: "directory",
		Fields:     record.Fields{Email: strPtr("a@x.com")},
	}

	if KeyFor(left) != KeyFor(right) {
		t.Fatalf("expected identical keys from any source: %+v vs %+v", KeyFor(left), KeyFor(right))
	}
}

func TestCoalesceKey(t *testing.T) {
	t.Parallel()

	if got := CoalesceKey(record.EntityAccount, "https://www.Acme.com/"); got != "acme.com" {
		t.Fatalf("unexpected account coalesce key: %q", got)
	}
	if got := CoalesceKey(record.EntityContact, " Jane@Acme.com "); got != "jane@acme.com" {
		t.Fatalf("unexpected contact coalesce key: %q", got)
	}
	if got := CoalesceKey(record.EntityContact, "Jane Doe"); got != "jane doe" {
		t.Fatalf("unexpected contact name coalesce key: %q", got)
	}
	if got := CoalesceKey(record.EntityContact, "John Smith|Acme Corp."); got != "john smith|acme corp" {
		t.Fatalf("unexpected name+company coalesce key: %q", got)
	}
}

func TestCoalesceKey_RoundTripsStagedKeys(t *testing.T) {
	t.Parallel()

	records := []record.RawRecord{
		{EntityType: record.EntityContact, Fields: record.Fields{Email: strPtr(" Jane@Acme.com ")}},
		{EntityType: record.EntityContact, Fields: record.Fields{LinkedInURL: strPtr("https://WWW.linkedin.com/in/Jane/")}},
		{EntityType: record.EntityContact, Fields: record.Fields{Name: strPtr("John Smith"), Company: strPtr("Acme")}},
		{EntityType: record.EntityAccount, Fields: record.Fields{Domain: strPtr("https://www.Acme.com/")}},
		{EntityType: record.EntityAccount, Fields: record.Fields{Name: strPtr("Acme Corp.")}},
	}

	for _, rec := range records {
		staged := KeyFor(rec).Value
		if staged == "" {
			t.Fatalf("expected a staged key for %+v", rec.Fields)
		}
		if got := CoalesceKey(rec.EntityType, staged); got != staged {
			t.Fatalf("staged key %q does not round-trip through job admission: got %q", staged, got)
		}
	}
}
