package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CanonicalEntityData is the read model for reconciled entities.
type CanonicalEntityData struct {
	EntityUUID           string          `json:"entity_uuid"`
	EntityType           string          `json:"entity_type"`
	MatchKeyKind         *string         `json:"match_key_kind,omitempty"`
	MatchKeyValue        *string         `json:"match_key_value,omitempty"`
	Fields               json.RawMessage `json:"fields"`
	ContributingSources  json.RawMessage `json:"contributing_sources"`
	CompletenessScore    int             `json:"completeness_score"`
	ValidationScore      int             `json:"validation_score"`
	MultiSourceValidated bool            `json:"multi_source_validated"`
	SupersededIDs        json.RawMessage `json:"superseded_ids,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// SaveReconcileOutcomeParams carries one entity upsert and its decision log
// entry, applied in one transaction.
type SaveReconcileOutcomeParams struct {
	EntityUUID           string
	EntityType           string
	MatchKeyKind         string
	MatchKeyValue        string
	Fields               json.RawMessage
	ContributingSources  json.RawMessage
	CompletenessScore    int
	ValidationScore      int
	MultiSourceValidated bool
	SupersededIDs        json.RawMessage
	JobID                string
	Policy               string
	MemberCount          int
	SourceCount          int
	Now                  time.Time
}

// SaveReconcileOutcome upserts the canonical entity row and appends the
// decision record atomically. Re-running the same reconciliation overwrites
// the entity with identical values, so the upsert is idempotent.
func (p *Pool) SaveReconcileOutcome(ctx context.Context, params SaveReconcileOutcomeParams) error {
	if strings.TrimSpace(params.EntityUUID) == "" {
		return fmt.Errorf("entity UUID is required")
	}
	if strings.TrimSpace(params.Policy) == "" {
		return fmt.Errorf("policy is required")
	}

	now := params.Now.UTC()
	if params.Now.IsZero() {
		now = time.Now().UTC()
	}

	var matchKeyKind, matchKeyValue *string
	if trimmed := strings.TrimSpace(params.MatchKeyKind); trimmed != "" {
		matchKeyKind = &trimmed
	}
	if trimmed := strings.TrimSpace(params.MatchKeyValue); trimmed != "" {
		matchKeyValue = &trimmed
	}
	var jobID *string
	if trimmed := strings.TrimSpace(params.JobID); trimmed != "" {
		jobID = &trimmed
	}

	tx, err := p.BeginTx(ctx, TxOptions{})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const upsertQuery = `
INSERT INTO crm.canonical_entities (
	entity_uuid,
	entity_type,
	match_key_kind,
	match_key_value,
	fields,
	contributing_sources,
	completeness_score,
	validation_score,
	multi_source_validated,
	superseded_ids,
	created_at,
	updated_at
)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
ON CONFLICT (entity_uuid) DO UPDATE SET
	entity_type = EXCLUDED.entity_type,
	match_key_kind = EXCLUDED.match_key_kind,
	match_key_value = EXCLUDED.match_key_value,
	fields = EXCLUDED.fields,
	contributing_sources = EXCLUDED.contributing_sources,
	completeness_score = EXCLUDED.completeness_score,
	validation_score = EXCLUDED.validation_score,
	multi_source_validated = EXCLUDED.multi_source_validated,
	superseded_ids = EXCLUDED.superseded_ids,
	archived_at = NULL,
	updated_at = EXCLUDED.updated_at
`
	if _, err := tx.Exec(ctx, upsertQuery,
		params.EntityUUID,
		params.EntityType,
		matchKeyKind,
		matchKeyValue,
		[]byte(params.Fields),
		[]byte(params.ContributingSources),
		params.CompletenessScore,
		params.ValidationScore,
		params.MultiSourceValidated,
		[]byte(params.SupersededIDs),
		now,
	); err != nil {
		return fmt.Errorf("upsert canonical entity: %w", err)
	}

	const decisionQuery = `
INSERT INTO crm.reconcile_decisions (
	entity_uuid,
	job_id,
	policy,
	member_count,
	source_count,
	completeness_score,
	validation_score,
	superseded_ids,
	decided_at
)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9)
`
	if _, err := tx.Exec(ctx, decisionQuery,
		params.EntityUUID,
		jobID,
		params.Policy,
		params.MemberCount,
		params.SourceCount,
		params.CompletenessScore,
		params.ValidationScore,
		[]byte(params.SupersededIDs),
		now,
	); err != nil {
		return fmt.Errorf("insert reconcile decision: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetCanonicalEntity returns one entity by UUID, archived or not.
func (p *Pool) GetCanonicalEntity(ctx context.Context, entityUUID string) (*CanonicalEntityData, error) {
	trimmedUUID := strings.TrimSpace(entityUUID)
	if trimmedUUID == "" {
		return nil, fmt.Errorf("entity UUID is required")
	}

	const q = `
SELECT
	entity_uuid::text,
	entity_type,
	match_key_kind,
	match_key_value,
	fields,
	contributing_sources,
	completeness_score,
	validation_score,
	multi_source_validated,
	superseded_ids,
	created_at,
	updated_at
FROM crm.canonical_entities
WHERE entity_uuid = $1::uuid
`
	var entity CanonicalEntityData
	var fields, sources, superseded []byte
	err := p.QueryRow(ctx, q, trimmedUUID).Scan(
		&entity.EntityUUID,
		&entity.EntityType,
		&entity.MatchKeyKind,
		&entity.MatchKeyValue,
		&fields,
		&sources,
		&entity.CompletenessScore,
		&entity.ValidationScore,
		&entity.MultiSourceValidated,
		&superseded,
		&entity.CreatedAt,
		&entity.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get canonical entity: %w", err)
	}
	entity.Fields = json.RawMessage(fields)
	entity.ContributingSources = json.RawMessage(sources)
	entity.SupersededIDs = json.RawMessage(superseded)
	return &entity, nil
}

// EntityListOptions filters and bounds entity listings.
type EntityListOptions struct {
	EntityType    string
	ValidatedOnly bool
	Query         string
	Limit         int
}

// ListCanonicalEntities returns active entities ordered by validation score,
// then completeness, strongest first.
func (p *Pool) ListCanonicalEntities(ctx context.Context, opts EntityListOptions) ([]CanonicalEntityData, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	const q = `
SELECT
	entity_uuid::text,
	entity_type,
	match_key_kind,
	match_key_value,
	fields,
	contributing_sources,
	completeness_score,
	validation_score,
	multi_source_validated,
	superseded_ids,
	created_at,
	updated_at
FROM crm.canonical_entities
WHERE archived_at IS NULL
  AND ($1 = '' OR entity_type = $1)
  AND ($2 = FALSE OR multi_source_validated)
  AND ($3 = '' OR match_key_value ILIKE '%' || $3 || '%')
ORDER BY validation_score DESC, completeness_score DESC, entity_uuid ASC
LIMIT $4
`
	rows, err := p.Query(ctx, q,
		strings.TrimSpace(opts.EntityType),
		opts.ValidatedOnly,
		strings.TrimSpace(opts.Query),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list canonical entities: %w", err)
	}
	defer rows.Close()

	entities := make([]CanonicalEntityData, 0, 16)
	for rows.Next() {
		var entity CanonicalEntityData
		var fields, sources, superseded []byte
		if err := rows.Scan(
			&entity.EntityUUID,
			&entity.EntityType,
			&entity.MatchKeyKind,
			&entity.MatchKeyValue,
			&fields,
			&sources,
			&entity.CompletenessScore,
			&entity.ValidationScore,
			&entity.MultiSourceValidated,
			&superseded,
			&entity.CreatedAt,
			&entity.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan canonical entity: %w", err)
		}
		entity.Fields = json.RawMessage(fields)
		entity.ContributingSources = json.RawMessage(sources)
		entity.SupersededIDs = json.RawMessage(superseded)
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate canonical entities: %w", err)
	}
	return entities, nil
}

// ReconcileDecisionData is the read model for the decision log.
type ReconcileDecisionData struct {
	DecisionUUID      string          `json:"decision_uuid"`
	EntityUUID        string          `json:"entity_uuid"`
	JobID             *string         `json:"job_id,omitempty"`
	Policy            string          `json:"policy"`
	MemberCount       int             `json:"member_count"`
	SourceCount       int             `json:"source_count"`
	CompletenessScore int             `json:"completeness_score"`
	ValidationScore   int             `json:"validation_score"`
	SupersededIDs     json.RawMessage `json:"superseded_ids,omitempty"`
	DecidedAt         time.Time       `json:"decided_at"`
}

// ListReconcileDecisions returns the decision log for one entity, newest first.
func (p *Pool) ListReconcileDecisions(ctx context.Context, entityUUID string, limit int) ([]ReconcileDecisionData, error) {
	trimmedUUID := strings.TrimSpace(entityUUID)
	if trimmedUUID == "" {
		return nil, fmt.Errorf("entity UUID is required")
	}
	if limit <= 0 {
		limit = 50
	}

	const q = `
SELECT
	decision_uuid::text,
	entity_uuid::text,
	job_id::text,
	policy,
	member_count,
	source_count,
	completeness_score,
	validation_score,
	superseded_ids,
	decided_at
FROM crm.reconcile_decisions
WHERE entity_uuid = $1::uuid
ORDER BY decided_at DESC, reconcile_decision_id DESC
LIMIT $2
`
	rows, err := p.Query(ctx, q, trimmedUUID, limit)
	if err != nil {
		return nil, fmt.Errorf("list reconcile decisions: %w", err)
	}
	defer rows.Close()

	decisions := make([]ReconcileDecisionData, 0, 8)
	for rows.Next() {
		var decision ReconcileDecisionData
		var superseded []byte
		if err := rows.Scan(
			&decision.DecisionUUID,
			&decision.EntityUUID,
			&decision.JobID,
			&decision.Policy,
			&decision.MemberCount,
			&decision.SourceCount,
			&decision.CompletenessScore,
			&decision.ValidationScore,
			&superseded,
			&decision.DecidedAt,
		); err != nil {
			return nil, fmt.Errorf("scan reconcile decision: %w", err)
		}
		decision.SupersededIDs = json.RawMessage(superseded)
		decisions = append(decisions, decision)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reconcile decisions: %w", err)
	}
	return decisions, nil
}
