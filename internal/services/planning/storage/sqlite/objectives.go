package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/planifica/sigep/internal/services/planning/storage"
)

// PutObjective inserts one objective with its goals. Version starts at 1.
func (s *Store) PutObjective(ctx context.Context, record storage.ObjectiveRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("objective id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin objective write: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback objective write: %v", cause, rollbackErr)
		}
		return cause
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO objectives (id, code, name, description, responsible_area, priority, state, pnd_alignment, ods_alignment, active, version, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
`, record.ID, record.Code, record.Name, record.Description, record.ResponsibleArea,
		record.Priority, record.State, record.PNDAlignment, record.ODSAlignment, boolToInt(record.Active),
		toMillis(record.CreatedAt), toMillis(record.UpdatedAt))
	if err != nil {
		return rollbackWith(fmt.Errorf("insert objective: %w", err))
	}
	if err := replaceGoals(ctx, tx, record.ID, record.Goals); err != nil {
		return rollbackWith(err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit objective write: %w", err)
	}
	return nil
}

// GetObjective loads one objective with its goals.
func (s *Store) GetObjective(ctx context.Context, id string) (storage.ObjectiveRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ObjectiveRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ObjectiveRecord{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.ObjectiveRecord{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, code, name, description, responsible_area, priority, state, pnd_alignment, ods_alignment, active, version, created_at, updated_at
FROM objectives
WHERE id = ?
`, id)
	record, err := scanObjective(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ObjectiveRecord{}, storage.ErrNotFound
		}
		return storage.ObjectiveRecord{}, fmt.Errorf("get objective: %w", err)
	}

	goals, err := listGoals(ctx, s.sqlDB, record.ID)
	if err != nil {
		return storage.ObjectiveRecord{}, err
	}
	record.Goals = goals
	return record, nil
}

// ListObjectives lists every objective newest-first, goals included.
func (s *Store) ListObjectives(ctx context.Context) ([]storage.ObjectiveRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, code, name, description, responsible_area, priority, state, pnd_alignment, ods_alignment, active, version, created_at, updated_at
FROM objectives
ORDER BY created_at DESC, id DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list objectives: %w", err)
	}
	defer rows.Close()

	var records []storage.ObjectiveRecord
	for rows.Next() {
		record, err := scanObjective(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan objective: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate objectives: %w", err)
	}

	for i := range records {
		goals, err := listGoals(ctx, s.sqlDB, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].Goals = goals
	}
	return records, nil
}

// UpdateObjective saves the record when its version is still current.
func (s *Store) UpdateObjective(ctx context.Context, record storage.ObjectiveRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin objective update: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback objective update: %v", cause, rollbackErr)
		}
		return cause
	}

	if err := updateObjectiveExec(ctx, tx, record); err != nil {
		return rollbackWith(err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit objective update: %w", err)
	}
	return nil
}

// UpdateObjectiveWithDecision atomically saves the objective and appends the
// decision its state change produced.
func (s *Store) UpdateObjectiveWithDecision(ctx context.Context, record storage.ObjectiveRecord, decision storage.DecisionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin objective decision write: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback objective decision write: %v", cause, rollbackErr)
		}
		return cause
	}

	if err := updateObjectiveExec(ctx, tx, record); err != nil {
		return rollbackWith(err)
	}
	if err := insertDecisionExec(ctx, tx, decision); err != nil {
		return rollbackWith(err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit objective decision write: %w", err)
	}
	return nil
}

func updateObjectiveExec(ctx context.Context, tx *sql.Tx, record storage.ObjectiveRecord) error {
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("objective id is required")
	}

	result, err := tx.ExecContext(ctx, `
UPDATE objectives
SET code = ?, name = ?, description = ?, responsible_area = ?, priority = ?,
    state = ?, pnd_alignment = ?, ods_alignment = ?, active = ?, version = version + 1, updated_at = ?
WHERE id = ? AND version = ?
`, record.Code, record.Name, record.Description, record.ResponsibleArea, record.Priority,
		record.State, record.PNDAlignment, record.ODSAlignment, boolToInt(record.Active), toMillis(record.UpdatedAt),
		record.ID, record.Version)
	if err != nil {
		return fmt.Errorf("update objective: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update objective rows affected: %w", err)
	}
	if affected == 0 {
		return staleWriteError(ctx, tx, "objectives", record.ID)
	}
	return replaceGoals(ctx, tx, record.ID, record.Goals)
}

func replaceGoals(ctx context.Context, tx *sql.Tx, objectiveID string, goals []storage.GoalRecord) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM objective_goals WHERE objective_id = ?`, objectiveID); err != nil {
		return fmt.Errorf("clear objective goals: %w", err)
	}
	for _, goal := range goals {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO objective_goals (id, objective_id, target_value, current_value, unit, periodicity)
VALUES (?, ?, ?, ?, ?, ?)
`, goal.ID, objectiveID, goal.TargetValue, goal.CurrentValue, goal.Unit, goal.Periodicity); err != nil {
			return fmt.Errorf("insert objective goal: %w", err)
		}
	}
	return nil
}

func listGoals(ctx context.Context, db *sql.DB, objectiveID string) ([]storage.GoalRecord, error) {
	rows, err := db.QueryContext(ctx, `
SELECT id, objective_id, target_value, current_value, unit, periodicity
FROM objective_goals
WHERE objective_id = ?
ORDER BY id
`, objectiveID)
	if err != nil {
		return nil, fmt.Errorf("list objective goals: %w", err)
	}
	defer rows.Close()

	var goals []storage.GoalRecord
	for rows.Next() {
		var goal storage.GoalRecord
		if err := rows.Scan(&goal.ID, &goal.ObjectiveID, &goal.TargetValue, &goal.CurrentValue, &goal.Unit, &goal.Periodicity); err != nil {
			return nil, fmt.Errorf("scan objective goal: %w", err)
		}
		goals = append(goals, goal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate objective goals: %w", err)
	}
	return goals, nil
}

func scanObjective(scan func(dest ...any) error) (storage.ObjectiveRecord, error) {
	var record storage.ObjectiveRecord
	var active int
	var createdAt, updatedAt int64
	if err := scan(&record.ID, &record.Code, &record.Name, &record.Description,
		&record.ResponsibleArea, &record.Priority, &record.State,
		&record.PNDAlignment, &record.ODSAlignment, &active,
		&record.Version, &createdAt, &updatedAt); err != nil {
		return storage.ObjectiveRecord{}, err
	}
	record.Active = active == 1
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

// staleWriteError distinguishes a missing row from a lost version race.
func staleWriteError(ctx context.Context, tx *sql.Tx, table string, id string) error {
	var exists int
	err := tx.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(1) FROM %s WHERE id = ?`, table), id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check %s row: %w", table, err)
	}
	if exists == 0 {
		return storage.ErrNotFound
	}
	return storage.ErrConflict
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
