package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// RawRecordData is the read model for staged provider records.
type RawRecordData struct {
	RecordUUID       string          `json:"record_uuid"`
	EntityType       string          `json:"entity_type"`
	EntityKey        *string         `json:"entity_key,omitempty"`
	SourceType       string          `json:"source_type"`
	SourceConfidence int             `json:"source_confidence"`
	ExtractedAt      time.Time       `json:"extracted_at"`
	Fields           json.RawMessage `json:"fields"`
	CreatedAt        time.Time       `json:"created_at"`
}

// InsertRawRecordParams carries one staged record. PayloadHash deduplicates
// byte-identical submissions.
type InsertRawRecordParams struct {
	EntityType       string
	EntityKey        string
	SourceType       string
	SourceConfidence int
	ExtractedAt      time.Time
	Fields           json.RawMessage
	PayloadHash      []byte
}

// InsertRawRecord stages one provider record. Re-submitting an identical
// payload is a no-op that returns the existing record UUID.
func (p *Pool) InsertRawRecord(ctx context.Context, params InsertRawRecordParams) (string, bool, error) {
	if strings.TrimSpace(params.EntityType) == "" {
		return "", false, fmt.Errorf("entity type is required")
	}
	if strings.TrimSpace(params.SourceType) == "" {
		return "", false, fmt.Errorf("source type is required")
	}
	if len(params.Fields) == 0 {
		return "", false, fmt.Errorf("fields payload is required")
	}
	if len(params.PayloadHash) == 0 {
		return "", false, fmt.Errorf("payload hash is required")
	}

	var entityKey *string
	if trimmed := strings.TrimSpace(params.EntityKey); trimmed != "" {
		entityKey = &trimmed
	}

	extractedAt := params.ExtractedAt.UTC()
	if params.ExtractedAt.IsZero() {
		extractedAt = time.Now().UTC()
	}

	const insertQuery = `
INSERT INTO crm.raw_records (
	entity_type,
	entity_key,
	source_type,
	source_confidence,
	extracted_at,
	fields,
	payload_hash
)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (payload_hash) DO NOTHING
RETURNING record_uuid::text
`
	var recordUUID string
	err := p.QueryRow(ctx, insertQuery,
		params.EntityType,
		entityKey,
		params.SourceType,
		params.SourceConfidence,
		extractedAt,
		[]byte(params.Fields),
		params.PayloadHash,
	).Scan(&recordUUID)
	if err == nil {
		return recordUUID, true, nil
	}
	if !IsNoRows(err) {
		return "", false, fmt.Errorf("insert raw record: %w", err)
	}

	const existingQuery = `
SELECT record_uuid::text
FROM crm.raw_records
WHERE payload_hash = $1
`
	if err := p.QueryRow(ctx, existingQuery, params.PayloadHash).Scan(&recordUUID); err != nil {
		return "", false, fmt.Errorf("resolve duplicate raw record: %w", err)
	}
	return recordUUID, false, nil
}

// RawRecordListOptions filters staged record reads.
type RawRecordListOptions struct {
	EntityType string
	EntityKey  string
	SourceType string
	Limit      int
}

// ListRawRecords returns staged records matching the options, oldest
// extraction first.
func (p *Pool) ListRawRecords(ctx context.Context, opts RawRecordListOptions) ([]RawRecordData, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 500
	}

	const q = `
SELECT
	record_uuid::text,
	entity_type,
	entity_key,
	source_type,
	source_confidence,
	extracted_at,
	fields,
	created_at
FROM crm.raw_records
WHERE deleted_at IS NULL
  AND ($1 = '' OR entity_type = $1)
  AND ($2 = '' OR entity_key = $2)
  AND ($3 = '' OR source_type = $3)
ORDER BY extracted_at ASC, raw_record_id ASC
LIMIT $4
`
	rows, err := p.Query(ctx, q,
		strings.TrimSpace(opts.EntityType),
		strings.TrimSpace(opts.EntityKey),
		strings.TrimSpace(opts.SourceType),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list raw records: %w", err)
	}
	defer rows.Close()

	records := make([]RawRecordData, 0, 16)
	for rows.Next() {
		var rec RawRecordData
		var fields []byte
		if err := rows.Scan(
			&rec.RecordUUID,
			&rec.EntityType,
			&rec.EntityKey,
			&rec.SourceType,
			&rec.SourceConfidence,
			&rec.ExtractedAt,
			&fields,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan raw record: %w", err)
		}
		rec.Fields = json.RawMessage(fields)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raw records: %w", err)
	}
	return records, nil
}

// ArchiveRawRecord soft-deletes one superseded record. Destructive, callers
// must hold a throttle ticket before issuing it.
func (p *Pool) ArchiveRawRecord(ctx context.Context, recordUUID string, now time.Time) (int64, error) {
	trimmedUUID := strings.TrimSpace(recordUUID)
	if trimmedUUID == "" {
		return 0, fmt.Errorf("record UUID is required")
	}

	const q = `
UPDATE crm.raw_records
SET deleted_at = $2
WHERE record_uuid = $1::uuid
  AND deleted_at IS NULL
`
	tag, err := p.Exec(ctx, q, trimmedUUID, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("archive raw record: %w", err)
	}
	return tag.RowsAffected(), nil
}
