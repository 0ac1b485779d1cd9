package payloadschema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"horse.fit/unify/internal/record"
)

//go:embed raw_record.schema.json
var rawRecordSchemaJSON string

// RawRecordPayload is the wire form a provider submits for staging.
type RawRecordPayload struct {
	PayloadVersion   string        `json:"payload_version"`
	EntityType       string        `json:"entity_type"`
	SourceType       string        `json:"source_type"`
	SourceConfidence *int          `json:"source_confidence,omitempty"`
	ExtractedAt      *string       `json:"extracted_at,omitempty"`
	Fields           record.Fields `json:"fields"`
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// ValidateRawRecordPayload validates one submission against the embedded
// schema and semantic rules, returning the typed record the reconciliation
// core works with. This is the only place untyped payloads are inspected.
func ValidateRawRecordPayload(payload json.RawMessage) (record.RawRecord, error) {
	value, err := decodeStrictJSON(payload)
	if err != nil {
		return record.RawRecord{}, fmt.Errorf("decode payload JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return record.RawRecord{}, fmt.Errorf("load schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return record.RawRecord{}, fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return record.RawRecord{}, fmt.Errorf("normalize payload JSON: %w", err)
	}

	var wire RawRecordPayload
	if err := json.Unmarshal(normalized, &wire); err != nil {
		return record.RawRecord{}, fmt.Errorf("unmarshal payload: %w", err)
	}

	return toRecord(&wire)
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("raw_record.schema.json", strings.NewReader(rawRecordSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("raw_record.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}

		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}

	return value, nil
}

func toRecord(wire *RawRecordPayload) (record.RawRecord, error) {
	if wire == nil {
		return record.RawRecord{}, fmt.Errorf("payload is nil")
	}

	entityType, ok := record.ParseEntityType(wire.EntityType)
	if !ok {
		return record.RawRecord{}, fmt.Errorf("entity_type %q is not supported", wire.EntityType)
	}
	if strings.TrimSpace(wire.SourceType) == "" {
		return record.RawRecord{}, fmt.Errorf("source_type must not be empty")
	}

	rec := record.RawRecord{
		EntityType: entityType,
		SourceType: strings.ToLower(strings.TrimSpace(wire.SourceType)),
		Fields:     wire.Fields,
	}
	if wire.SourceConfidence != nil {
		rec.SourceConfidence = *wire.SourceConfidence
	}
	if wire.ExtractedAt != nil {
		extractedAt, err := time.Parse(time.RFC3339, strings.TrimSpace(*wire.ExtractedAt))
		if err != nil {
			return record.RawRecord{}, fmt.Errorf("extracted_at must be RFC3339: %w", err)
		}
		rec.ExtractedAt = extractedAt.UTC()
	}

	return rec, nil
}
