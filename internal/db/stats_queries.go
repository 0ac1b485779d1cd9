package db

import (
	"context"
	"fmt"
	"time"
)

// StatsEntityTypeCount stores per-entity-type reconciliation counts.
type StatsEntityTypeCount struct {
	EntityType  string `json:"entity_type"`
	RawRecords  int64  `json:"raw_records"`
	Entities    int64  `json:"entities"`
	MultiSource int64  `json:"multi_source_validated"`
}

// StatsTotals stores totals across entity types.
type StatsTotals struct {
	RawRecords      int64 `json:"raw_records"`
	Entities        int64 `json:"entities"`
	MultiSource     int64 `json:"multi_source_validated"`
	ArchivedRecords int64 `json:"archived_records"`
}

// ReconcileThroughput stores daily activity counters.
type ReconcileThroughput struct {
	RecordsStagedToday  int64 `json:"records_staged_today"`
	DecisionsMadeToday  int64 `json:"decisions_made_today"`
	RecordsPendingMerge int64 `json:"records_pending_merge"`
}

// ReconcileStats is the read model returned by the stats command and endpoint.
type ReconcileStats struct {
	Day         string                 `json:"day"`
	EntityTypes []StatsEntityTypeCount `json:"entity_types"`
	Totals      StatsTotals            `json:"totals"`
	Throughput  ReconcileThroughput    `json:"throughput"`
}

// QueryReconcileStats returns per-entity-type and total counts plus daily throughput.
func (p *Pool) QueryReconcileStats(ctx context.Context, dayStart, dayEnd time.Time) (*ReconcileStats, error) {
	startUTC := dayStart.UTC()
	endUTC := dayEnd.UTC()
	if !startUTC.Before(endUTC) {
		return nil, fmt.Errorf("dayStart must be before dayEnd")
	}

	stats := &ReconcileStats{
		Day:         startUTC.Format("2006-01-02"),
		EntityTypes: make([]StatsEntityTypeCount, 0, 2),
	}

	const countsQuery = `
WITH record_counts AS (
	SELECT r.entity_type, COUNT(*)::BIGINT AS raw_records
	FROM crm.raw_records r
	WHERE r.deleted_at IS NULL
	GROUP BY r.entity_type
),
entity_counts AS (
	SELECT
		e.entity_type,
		COUNT(*)::BIGINT AS entities,
		COUNT(*) FILTER (WHERE e.multi_source_validated)::BIGINT AS multi_source
	FROM crm.canonical_entities e
	WHERE e.archived_at IS NULL
	GROUP BY e.entity_type
)
SELECT
	COALESCE(r.entity_type, e.entity_type) AS entity_type,
	COALESCE(r.raw_records, 0) AS raw_records,
	COALESCE(e.entities, 0) AS entities,
	COALESCE(e.multi_source, 0) AS multi_source
FROM record_counts r
FULL OUTER JOIN entity_counts e
	ON e.entity_type = r.entity_type
ORDER BY entity_type
`
	rows, err := p.Query(ctx, countsQuery)
	if err != nil {
		return nil, fmt.Errorf("query entity type counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var count StatsEntityTypeCount
		if err := rows.Scan(&count.EntityType, &count.RawRecords, &count.Entities, &count.MultiSource); err != nil {
			return nil, fmt.Errorf("scan entity type counts: %w", err)
		}
		stats.EntityTypes = append(stats.EntityTypes, count)
		stats.Totals.RawRecords += count.RawRecords
		stats.Totals.Entities += count.Entities
		stats.Totals.MultiSource += count.MultiSource
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entity type counts: %w", err)
	}

	const throughputQuery = `
SELECT
	(SELECT COUNT(*) FROM crm.raw_records WHERE created_at >= $1 AND created_at < $2)::BIGINT,
	(SELECT COUNT(*) FROM crm.reconcile_decisions WHERE decided_at >= $1 AND decided_at < $2)::BIGINT,
	(SELECT COUNT(*) FROM crm.raw_records WHERE deleted_at IS NOT NULL)::BIGINT
`
	if err := p.QueryRow(ctx, throughputQuery, startUTC, endUTC).Scan(
		&stats.Throughput.RecordsStagedToday,
		&stats.Throughput.DecisionsMadeToday,
		&stats.Totals.ArchivedRecords,
	); err != nil {
		return nil, fmt.Errorf("query throughput counters: %w", err)
	}

	const pendingQuery = `
SELECT COUNT(*)::BIGINT
FROM crm.raw_records r
WHERE r.deleted_at IS NULL
  AND NOT EXISTS (
	SELECT 1
	FROM crm.reconcile_decisions d
	WHERE d.decided_at >= r.created_at
	  AND d.entity_uuid IN (
		SELECT e.entity_uuid
		FROM crm.canonical_entities e
		WHERE e.entity_type = r.entity_type
		  AND e.match_key_value = r.entity_key
	  )
  )
`
	if err := p.QueryRow(ctx, pendingQuery).Scan(&stats.Throughput.RecordsPendingMerge); err != nil {
		return nil, fmt.Errorf("query pending records: %w", err)
	}

	return stats, nil
}
