package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"horse.fit/unify/internal/db"
	"horse.fit/unify/internal/record"
)

// EntityRef identifies what a reconciliation run is about: the canonical
// entity key plus the type it belongs to.
type EntityRef struct {
	Key  string            `json:"entity_key"`
	Type record.EntityType `json:"entity_type"`
}

// Adapter is one research channel. Implementations must honor the context
// and return typed records validated at this boundary, so the reconciliation
// core never inspects untyped payloads.
type Adapter interface {
	Name() string
	FetchRawRecords(ctx context.Context, ref EntityRef) ([]record.RawRecord, error)
}

// StagedAdapter serves records previously staged in crm.raw_records for one
// source type. Ingest happens out of band, reconciliation reads from here.
type StagedAdapter struct {
	pool       *db.Pool
	sourceType string
	confidence int
}

func NewStagedAdapter(pool *db.Pool, sourceType string, confidence int) *StagedAdapter {
	return &StagedAdapter{
		pool:       pool,
		sourceType: strings.ToLower(strings.TrimSpace(sourceType)),
		confidence: confidence,
	}
}

func (a *StagedAdapter) Name() string {
	if a == nil {
		return ""
	}
	return a.sourceType
}

func (a *StagedAdapter) FetchRawRecords(ctx context.Context, ref EntityRef) ([]record.RawRecord, error) {
	if a == nil || a.pool == nil {
		return nil, fmt.Errorf("staged adapter is not initialized")
	}

	rows, err := a.pool.ListRawRecords(ctx, db.RawRecordListOptions{
		EntityType: string(ref.Type),
		EntityKey:  ref.Key,
		SourceType: a.sourceType,
	})
	if err != nil {
		return nil, fmt.Errorf("list staged records for %s: %w", a.sourceType, err)
	}

	records := make([]record.RawRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := rowToRecord(row)
		if err != nil {
			return nil, err
		}
		if rec.SourceConfidence == 0 {
			rec.SourceConfidence = a.confidence
		}
		records = append(records, rec)
	}
	return records, nil
}

func rowToRecord(row db.RawRecordData) (record.RawRecord, error) {
	entityType, ok := record.ParseEntityType(row.EntityType)
	if !ok {
		return record.RawRecord{}, fmt.Errorf("record %s has unknown entity type %q", row.RecordUUID, row.EntityType)
	}

	var fields record.Fields
	if len(row.Fields) > 0 {
		if err := json.Unmarshal(row.Fields, &fields); err != nil {
			return record.RawRecord{}, fmt.Errorf("decode fields for record %s: %w", row.RecordUUID, err)
		}
	}

	return record.RawRecord{
		RecordUUID:       row.RecordUUID,
		EntityType:       entityType,
		SourceType:       row.SourceType,
		SourceConfidence: row.SourceConfidence,
		ExtractedAt:      row.ExtractedAt.UTC(),
		Fields:           fields,
	}, nil
}

// StaticAdapter serves a fixed record set. Test and one-shot CLI use.
type StaticAdapter struct {
	AdapterName string
	Records     []record.RawRecord
	Err         error
}

func (a *StaticAdapter) Name() string { return a.AdapterName }

func (a *StaticAdapter) FetchRawRecords(ctx context.Context, ref EntityRef) ([]record.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if a.Err != nil {
		return nil, a.Err
	}
	out := make([]record.RawRecord, 0, len(a.Records))
	for _, rec := range a.Records {
		if rec.EntityType == ref.Type {
			out = append(out, rec)
		}
	}
	return out, nil
}
