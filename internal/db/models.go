package db

import (
	"encoding/json"
	"time"
)

// RawRecordRow maps crm.raw_records.
type RawRecordRow struct {
	RawRecordID      int64           `gorm:"column:raw_record_id;primaryKey;autoIncrement"`
	RecordUUID       string          `gorm:"column:record_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	EntityType       string          `gorm:"column:entity_type;type:text;not null"`
	EntityKey        *string         `gorm:"column:entity_key;type:text"`
	SourceType       string          `gorm:"column:source_type;type:text;not null"`
	SourceConfidence int             `gorm:"column:source_confidence;type:integer;not null;default:0"`
	ExtractedAt      time.Time       `gorm:"column:extracted_at;type:timestamptz;not null;default:now()"`
	Fields           json.RawMessage `gorm:"column:fields;type:jsonb;not null"`
	PayloadHash      []byte          `gorm:"column:payload_hash;type:bytea;not null"`
	DeletedAt        *time.Time      `gorm:"column:deleted_at;type:timestamptz"`
	CreatedAt        time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (RawRecordRow) TableName() string { return "crm.raw_records" }

// CanonicalEntityRow maps crm.canonical_entities. EntityUUID is derived from
// the match key, not generated, so reconciling the same key always lands on
// the same row.
type CanonicalEntityRow struct {
	CanonicalEntityID    int64           `gorm:"column:canonical_entity_id;primaryKey;autoIncrement"`
	EntityUUID           string          `gorm:"column:entity_uuid;type:uuid;not null;unique"`
	EntityType           string          `gorm:"column:entity_type;type:text;not null"`
	MatchKeyKind         *string         `gorm:"column:match_key_kind;type:text"`
	MatchKeyValue        *string         `gorm:"column:match_key_value;type:text"`
	Fields               json.RawMessage `gorm:"column:fields;type:jsonb;not null"`
	ContributingSources  json.RawMessage `gorm:"column:contributing_sources;type:jsonb;not null;default:'[]'"`
	CompletenessScore    int             `gorm:"column:completeness_score;type:integer;not null;default:0"`
	ValidationScore      int             `gorm:"column:validation_score;type:integer;not null;default:0"`
	MultiSourceValidated bool            `gorm:"column:multi_source_validated;type:boolean;not null;default:false"`
	SupersededIDs        json.RawMessage `gorm:"column:superseded_ids;type:jsonb"`
	ArchivedAt           *time.Time      `gorm:"column:archived_at;type:timestamptz"`
	CreatedAt            time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt            time.Time       `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (CanonicalEntityRow) TableName() string { return "crm.canonical_entities" }

// ReconcileDecisionRow maps crm.reconcile_decisions, the audit log of what
// each reconciliation run decided and why.
type ReconcileDecisionRow struct {
	ReconcileDecisionID int64           `gorm:"column:reconcile_decision_id;primaryKey;autoIncrement"`
	DecisionUUID        string          `gorm:"column:decision_uuid;type:uuid;not null;default:gen_random_uuid();unique"`
	EntityUUID          string          `gorm:"column:entity_uuid;type:uuid;not null"`
	JobID               *string         `gorm:"column:job_id;type:uuid"`
	Policy              string          `gorm:"column:policy;type:text;not null"`
	MemberCount         int             `gorm:"column:member_count;type:integer;not null;default:0"`
	SourceCount         int             `gorm:"column:source_count;type:integer;not null;default:0"`
	CompletenessScore   int             `gorm:"column:completeness_score;type:integer;not null;default:0"`
	ValidationScore     int             `gorm:"column:validation_score;type:integer;not null;default:0"`
	SupersededIDs       json.RawMessage `gorm:"column:superseded_ids;type:jsonb"`
	DecidedAt           time.Time       `gorm:"column:decided_at;type:timestamptz;not null;default:now()"`
}

func (ReconcileDecisionRow) TableName() string { return "crm.reconcile_decisions" }

func autoMigrateModels() []any {
	return []any{
		&RawRecordRow{},
		&CanonicalEntityRow{},
		&ReconcileDecisionRow{},
	}
}
