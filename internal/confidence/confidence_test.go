package confidence

import (
	"testing"

	"horse.fit/unify/internal/record"
)

func member(source string, confidence int) record.RawRecord {
	return record.RawRecord{
		EntityType:       record.EntityContact,
		SourceType:       source,
		SourceConfidence: confidence,
	}
}

func TestValidation_MultiSourceFormula(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name          string
		members       []record.RawRecord
		want          int
		wantValidated bool
	}{
		{"two sources", []record.RawRecord{member("api_search", 85), member("page_extract", 75)}, 65, false},
		{"three sources", []record.RawRecord{member("api_search", 85), member("page_extract", 75), member("directory", 70)}, 80, true},
		{"five sources", []record.RawRecord{
			member("api_search", 85), member("page_extract", 75), member("directory", 70),
			member("public_profile", 80), member("text_extract", 60),
		}, 100, true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, validated := Validation(tc.members, DefaultTable())
			if got != tc.want {
				t.Fatalf("got %d want %d", got, tc.want)
			}
			if validated != tc.wantValidated {
				t.Fatalf("validated flag: got %t want %t at score %d", validated, tc.wantValidated, got)
			}
		})
	}
}

func TestValidation_MoreSourcesNeverScoreLower(t *testing.T) {
	t.Parallel()

	two, _ := Validation([]record.RawRecord{member("api_search", 85), member("directory", 70)}, DefaultTable())
	three, _ := Validation([]record.RawRecord{
		member("api_search", 85), member("directory", 70), member("page_extract", 75),
	}, DefaultTable())

	if three < two {
		t.Fatalf("validation dropped when a source was added: %d -> %d", two, three)
	}
}

func TestValidation_SingleSourceUsesIntrinsicTable(t *testing.T) {
	t.Parallel()

	got, validated := Validation([]record.RawRecord{member("api_search", 0)}, DefaultTable())
	if got != 85 {
		t.Fatalf("got %d want intrinsic 85", got)
	}
	if !validated {
		t.Fatalf("score %d meets the threshold and must be flagged validated", got)
	}

	got, validated = Validation([]record.RawRecord{member("text_extract", 0)}, DefaultTable())
	if got != 60 {
		t.Fatalf("got %d want intrinsic 60", got)
	}
	if validated {
		t.Fatalf("score %d is below the threshold and must not be flagged validated", got)
	}
}

func TestValidation_FlagFollowsThresholdNotSourceCount(t *testing.T) {
	t.Parallel()

	got, validated := Validation([]record.RawRecord{member("api_search", 85), member("page_extract", 75)}, DefaultTable())
	if got != 65 {
		t.Fatalf("got %d want 65", got)
	}
	if validated {
		t.Fatal("two corroborating sources scoring 65 must not be flagged validated")
	}

	got, validated = Validation([]record.RawRecord{member("public_profile", 0)}, DefaultTable())
	if got != ValidatedThreshold {
		t.Fatalf("got %d want %d", got, ValidatedThreshold)
	}
	if !validated {
		t.Fatal("a score exactly at the threshold must be flagged validated")
	}
}

func TestValidation_DuplicateSourceIsNotCorroboration(t *testing.T) {
	t.Parallel()

	got, validated := Validation([]record.RawRecord{
		member("directory", 70), member("directory", 70), member("directory", 70),
	}, DefaultTable())
	if validated {
		t.Fatal("repeated records from one source must not validate")
	}
	if got != 70 {
		t.Fatalf("got %d want intrinsic 70", got)
	}
}

func TestValidation_UnknownSourceFallsBackToMemberConfidence(t *testing.T) {
	t.Parallel()

	got, _ := Validation([]record.RawRecord{member("carrier_pigeon", 42)}, DefaultTable())
	if got != 42 {
		t.Fatalf("got %d want member confidence 42", got)
	}

	got, _ = Validation([]record.RawRecord{member("carrier_pigeon", 0)}, DefaultTable())
	if got != 50 {
		t.Fatalf("got %d want neutral default 50", got)
	}
}

func TestValidation_FeedbackSourcesCountOnce(t *testing.T) {
	t.Parallel()

	fedBack := record.RawRecord{
		EntityType:      record.EntityContact,
		SourceType:      "canonical",
		FeedbackSources: []string{"api_search", "page_extract"},
	}
	got, validated := Validation([]record.RawRecord{
		member("api_search", 85), member("page_extract", 75), fedBack,
	}, DefaultTable())

	if got != 65 {
		t.Fatalf("feedback inflated corroboration: got %d want 65", got)
	}
	if validated {
		t.Fatal("score 65 must not be flagged validated")
	}
}

func TestWithOverrides(t *testing.T) {
	t.Parallel()

	table := DefaultTable().WithOverrides(map[string]int{"directory": 90})
	got, _ := Validation([]record.RawRecord{member("directory", 0)}, table)
	if got != 90 {
		t.Fatalf("got %d want overridden 90", got)
	}
	if DefaultTable()["directory"] != 70 {
		t.Fatal("override mutated the default table")
	}
}
