package payloadschema

import (
	"encoding/json"
	"testing"
	"time"

	"horse.fit/unify/internal/record"
)

func TestValidateRawRecordPayload_Valid(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"entity_type":"contact",
		"source_type":"api_search",
		"source_confidence":85,
		"extracted_at":"2026-08-14T10:00:00Z",
		"fields":{
			"name":"Jane Doe",
			"email":"jane@acme.com",
			"title":"VP Engineering"
		}
	}`)

	rec, err := ValidateRawRecordPayload(payload)
	if err != nil {
		t.Fatalf("expected payload to be valid, got error: %v", err)
	}

	if rec.EntityType != record.EntityContact {
		t.Fatalf("expected entity_type=contact, got %q", rec.EntityType)
	}
	if rec.SourceType != "api_search" {
		t.Fatalf("expected source_type=api_search, got %q", rec.SourceType)
	}
	if rec.SourceConfidence != 85 {
		t.Fatalf("expected source_confidence=85, got %d", rec.SourceConfidence)
	}
	want := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)
	if !rec.ExtractedAt.Equal(want) {
		t.Fatalf("unexpected extracted_at: %v", rec.ExtractedAt)
	}
	if got := record.StringValue(rec.Fields.Email); got != "jane@acme.com" {
		t.Fatalf("unexpected email: %q", got)
	}
}

func TestValidateRawRecordPayload_MissingRequired(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"entity_type":"contact",
		"fields":{"email":"jane@acme.com"}
	}`)

	if _, err := ValidateRawRecordPayload(payload); err == nil {
		t.Fatalf("expected validation to fail for missing source_type")
	}
}

func TestValidateRawRecordPayload_UnknownEntityType(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"entity_type":"robot",
		"source_type":"api_search",
		"fields":{"name":"R2"}
	}`)

	if _, err := ValidateRawRecordPayload(payload); err == nil {
		t.Fatalf("expected validation to fail for unknown entity type")
	}
}

func TestValidateRawRecordPayload_UnknownField(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"entity_type":"account",
		"source_type":"directory",
		"fields":{"domain":"acme.com","favorite_color":"teal"}
	}`)

	if _, err := ValidateRawRecordPayload(payload); err == nil {
		t.Fatalf("expected validation to fail for undeclared field")
	}
}

func TestValidateRawRecordPayload_EmptyFields(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"entity_type":"account",
		"source_type":"directory",
		"fields":{}
	}`)

	if _, err := ValidateRawRecordPayload(payload); err == nil {
		t.Fatalf("expected validation to fail for empty fields object")
	}
}

func TestValidateRawRecordPayload_BadTimestamp(t *testing.T) {
	payload := json.RawMessage(`{
		"payload_version":"v1",
		"entity_type":"contact",
		"source_type":"api_search",
		"extracted_at":"yesterday",
		"fields":{"email":"jane@acme.com"}
	}`)

	if _, err := ValidateRawRecordPayload(payload); err == nil {
		t.Fatalf("expected validation to fail for malformed timestamp")
	}
}

func TestValidateRawRecordPayload_TrailingContent(t *testing.T) {
	payload := json.RawMessage(`{"payload_version":"v1","entity_type":"contact","source_type":"api_search","fields":{"email":"a@x.com"}} {"extra":true}`)

	if _, err := ValidateRawRecordPayload(payload); err == nil {
		t.Fatalf("expected validation to fail for trailing content")
	}
}
