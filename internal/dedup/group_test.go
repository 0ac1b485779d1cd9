package dedup

import (
	"testing"
	"time"

	"horse.fit/unify/internal/normalize"
	"horse.fit/unify/internal/record"
)

func strPtr(v string) *string { return &v }

func contact(uuid, source, email string) record.RawRecord {
	return record.RawRecord{
		RecordUUID: uuid,
		EntityType: record.EntityContact,
		SourceType: source,
		Fields:     record.Fields{Email: strPtr(email)},
	}
}

func TestPartition_SharedEmailNeverSplits(t *testing.T) {
	t.Parallel()

	records := []record.RawRecord{
		contact("r1", "api_search", " A@X.com "),
		contact("r2", "public_profile", "a@x.com"),
		contact("r3", "directory", "A@X.COM"),
	}

	groups := Partition(records)
	if len(groups) != 1 {
		t.Fatalf("expected one group for one normalized email, got %d", len(groups))
	}
	if len(groups[0].Members) != 3 {
		t.Fatalf("expected all records in one group, got %d members", len(groups[0].Members))
	}
}

func TestPartition_DifferentEmailsNeverMergeByName(t *testing.T) {
	t.Parallel()

	left := contact("r1", "api_search", "jane@acme.com")
	left.Fields.Name = strPtr("Jane Doe")
	right := contact("r2", "directory", "jane@other.com")
	right.Fields.Name = strPtr("Jane Doe")

	groups := Partition([]record.RawRecord{left, right})
	if len(groups) != 2 {
		t.Fatalf("expected two groups for two verified emails, got %d", len(groups))
	}
}

func TestPartition_IsTruePartition(t *testing.T) {
	t.Parallel()

	records := []record.RawRecord{
		contact("r1", "api_search", "a@x.com"),
		contact("r2", "directory", "b@y.com"),
		contact("r3", "public_profile", "a@x.com"),
		{RecordUUID: "r4", EntityType: record.EntityContact, SourceType: "text_extract"},
	}

	groups := Partition(records)
	total := 0
	seen := map[string]bool{}
	for _, group := range groups {
		for _, member := range group.Members {
			if seen[member.RecordUUID] {
				t.Fatalf("record %s appears in more than one group", member.RecordUUID)
			}
			seen[member.RecordUUID] = true
			total++
		}
	}
	if total != len(records) {
		t.Fatalf("partition lost records: got %d want %d", total, len(records))
	}
}

func TestPartition_KeylessRecordIsSingleton(t *testing.T) {
	t.Parallel()

	records := []record.RawRecord{
		{RecordUUID: "r1", EntityType: record.EntityContact, SourceType: "text_extract"},
		{RecordUUID: "r2", EntityType: record.EntityContact, SourceType: "text_extract"},
	}

	groups := Partition(records)
	if len(groups) != 2 {
		t.Fatalf("expected two singleton groups, got %d", len(groups))
	}
	for _, group := range groups {
		if !group.Singleton() {
			t.Fatalf("expected singleton group, got key %+v", group.Key)
		}
		if len(group.Members) != 1 {
			t.Fatalf("expected exactly one member, got %d", len(group.Members))
		}
	}
}

func TestPartition_KeyKindsDoNotCollide(t *testing.T) {
	t.Parallel()

	account := record.RawRecord{
		RecordUUID: "a1",
		EntityType: record.EntityAccount,
		SourceType: "api_search",
		Fields:     record.Fields{Name: strPtr("acme.com")},
	}
	other := record.RawRecord{
		RecordUUID: "a2",
		EntityType: record.EntityAccount,
		SourceType: "directory",
		Fields:     record.Fields{Domain: strPtr("acme.com")},
	}

	groups := Partition([]record.RawRecord{account, other})
	if len(groups) != 2 {
		t.Fatalf("expected name key and domain key to stay separate, got %d groups", len(groups))
	}
}

func TestPartition_MemberOrderIsDeterministic(t *testing.T) {
	t.Parallel()

	early := contact("r-b", "directory", "a@x.com")
	early.ExtractedAt = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	late := contact("r-a", "api_search", "a@x.com")
	late.ExtractedAt = time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)

	groups := Partition([]record.RawRecord{late, early})
	if len(groups) != 1 {
		t.Fatalf("expected one group, got %d", len(groups))
	}
	if groups[0].Members[0].RecordUUID != "r-b" {
		t.Fatalf("expected earliest extraction first, got %s", groups[0].Members[0].RecordUUID)
	}
	if groups[0].Key.Kind != normalize.KeyEmail {
		t.Fatalf("unexpected key kind: %s", groups[0].Key.Kind)
	}
}
