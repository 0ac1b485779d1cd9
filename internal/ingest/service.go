package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"horse.fit/unify/internal/db"
	"horse.fit/unify/internal/globaltime"
	"horse.fit/unify/internal/normalize"
	"horse.fit/unify/internal/record"
)

// Service stages validated provider records into crm.raw_records, where the
// staged-table adapters pick them up during reconciliation.
type Service struct {
	pool   *db.Pool
	logger zerolog.Logger
}

// Result describes what happened to one submission.
type Result struct {
	RecordUUID     string `json:"record_uuid"`
	EntityKey      string `json:"entity_key,omitempty"`
	Inserted       bool   `json:"inserted"`
	PayloadHashHex string `json:"payload_hash"`
}

func NewService(pool *db.Pool, logger zerolog.Logger) *Service {
	return &Service{
		pool:   pool,
		logger: logger,
	}
}

// IngestOne stages one record. Byte-identical field payloads from the same
// source collapse onto the already staged row.
func (s *Service) IngestOne(ctx context.Context, rec record.RawRecord) (Result, error) {
	if s == nil || s.pool == nil {
		return Result{}, fmt.Errorf("ingest service is not initialized")
	}
	if !rec.EntityType.Valid() {
		return Result{}, fmt.Errorf("entity type %q is not supported", rec.EntityType)
	}
	if rec.SourceType == "" {
		return Result{}, fmt.Errorf("source type is required")
	}

	fieldsJSON, err := canonicalizeFields(rec.Fields)
	if err != nil {
		return Result{}, fmt.Errorf("canonicalize fields: %w", err)
	}

	hashInput := append([]byte(string(rec.EntityType)+"|"+rec.SourceType+"|"), fieldsJSON...)
	payloadHash := sha256.Sum256(hashInput)

	key := normalize.KeyFor(rec)

	extractedAt := rec.ExtractedAt
	if extractedAt.IsZero() {
		extractedAt = globaltime.UTC()
	}

	recordUUID, inserted, err := s.pool.InsertRawRecord(ctx, db.InsertRawRecordParams{
		EntityType:       string(rec.EntityType),
		EntityKey:        key.Value,
		SourceType:       rec.SourceType,
		SourceConfidence: rec.SourceConfidence,
		ExtractedAt:      extractedAt,
		Fields:           fieldsJSON,
		PayloadHash:      payloadHash[:],
	})
	if err != nil {
		return Result{}, fmt.Errorf("stage raw record: %w", err)
	}

	s.logger.Info().
		Str("record_uuid", recordUUID).
		Str("entity_type", string(rec.EntityType)).
		Str("source_type", rec.SourceType).
		Str("entity_key", key.Value).
		Bool("inserted", inserted).
		Msg("raw record staged")

	return Result{
		RecordUUID:     recordUUID,
		EntityKey:      key.Value,
		Inserted:       inserted,
		PayloadHashHex: hex.EncodeToString(payloadHash[:]),
	}, nil
}

// canonicalizeFields produces a stable JSON encoding so the dedupe hash does
// not depend on incidental key order or whitespace.
func canonicalizeFields(fields record.Fields) (json.RawMessage, error) {
	encoded, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, encoded); err != nil {
		return nil, err
	}
	return compact.Bytes(), nil
}
