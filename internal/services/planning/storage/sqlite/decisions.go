package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/planifica/sigep/internal/services/planning/storage"
	"github.com/planifica/sigep/internal/services/planning/storage/filter"
)

// defaultDecisionLimit caps unbounded history searches.
const defaultDecisionLimit = 100

func insertDecisionExec(ctx context.Context, tx *sql.Tx, record storage.DecisionRecord) error {
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("decision id is required")
	}
	if _, err := tx.ExecContext(ctx, `
INSERT INTO decisions (id, entity_type, entity_id, outcome, justification, decided_by, decided_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, record.ID, record.EntityType, record.EntityID, record.Outcome,
		record.Justification, record.DecidedBy, toMillis(record.DecidedAt)); err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// ListDecisionsByEntity lists one entity's decision history oldest-first.
func (s *Store) ListDecisionsByEntity(ctx context.Context, entityType string, entityID string) ([]storage.DecisionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	entityType = strings.TrimSpace(entityType)
	entityID = strings.TrimSpace(entityID)
	if entityType == "" || entityID == "" {
		return nil, fmt.Errorf("entity type and id are required")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, entity_type, entity_id, outcome, justification, decided_by, decided_at
FROM decisions
WHERE entity_type = ? AND entity_id = ?
ORDER BY decided_at ASC, id ASC
`, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()
	return collectDecisions(rows)
}

// SearchDecisions lists decisions matching an AIP-160 filter, newest-first.
func (s *Store) SearchDecisions(ctx context.Context, query storage.DecisionQuery) ([]storage.DecisionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	condition, err := filter.ParseDecisionFilter(query.Filter)
	if err != nil {
		return nil, err
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultDecisionLimit
	}

	sqlQuery := `
SELECT id, entity_type, entity_id, outcome, justification, decided_by, decided_at
FROM decisions
`
	params := make([]any, 0, len(condition.Params)+1)
	if condition.Clause != "" {
		sqlQuery += "WHERE " + condition.Clause + "\n"
		params = append(params, condition.Params...)
	}
	sqlQuery += "ORDER BY decided_at DESC, id DESC\nLIMIT ?"
	params = append(params, limit)

	rows, err := s.sqlDB.QueryContext(ctx, sqlQuery, params...)
	if err != nil {
		return nil, fmt.Errorf("search decisions: %w", err)
	}
	defer rows.Close()
	return collectDecisions(rows)
}

func collectDecisions(rows *sql.Rows) ([]storage.DecisionRecord, error) {
	var records []storage.DecisionRecord
	for rows.Next() {
		var record storage.DecisionRecord
		var decidedAt int64
		if err := rows.Scan(&record.ID, &record.EntityType, &record.EntityID,
			&record.Outcome, &record.Justification, &record.DecidedBy, &decidedAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		record.DecidedAt = fromMillis(decidedAt)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}
	return records, nil
}
