package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/planifica/sigep/internal/services/planning/storage"
)

// PutProject inserts one project with its activities and allocations.
func (s *Store) PutProject(ctx context.Context, record storage.ProjectRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("project id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin project write: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback project write: %v", cause, rollbackErr)
		}
		return cause
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO projects (id, code, name, total_budget, state, responsible_id, supervisor_id, version, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
`, record.ID, record.Code, record.Name, record.TotalBudget, record.State,
		record.ResponsibleID, record.SupervisorID,
		toMillis(record.CreatedAt), toMillis(record.UpdatedAt))
	if err != nil {
		return rollbackWith(fmt.Errorf("insert project: %w", err))
	}
	if err := replaceProjectChildren(ctx, tx, record); err != nil {
		return rollbackWith(err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit project write: %w", err)
	}
	return nil
}

// GetProject loads one project with its activities and allocations.
func (s *Store) GetProject(ctx context.Context, id string) (storage.ProjectRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ProjectRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ProjectRecord{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.ProjectRecord{}, storage.ErrNotFound
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, code, name, total_budget, state, responsible_id, supervisor_id, version, created_at, updated_at
FROM projects
WHERE id = ?
`, id)
	record, err := scanProject(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ProjectRecord{}, storage.ErrNotFound
		}
		return storage.ProjectRecord{}, fmt.Errorf("get project: %w", err)
	}
	if err := s.loadProjectChildren(ctx, &record); err != nil {
		return storage.ProjectRecord{}, err
	}
	return record, nil
}

// ListProjects lists every project newest-first with children loaded.
func (s *Store) ListProjects(ctx context.Context) ([]storage.ProjectRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, code, name, total_budget, state, responsible_id, supervisor_id, version, created_at, updated_at
FROM projects
ORDER BY created_at DESC, id DESC
`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var records []storage.ProjectRecord
	for rows.Next() {
		record, err := scanProject(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}

	for i := range records {
		if err := s.loadProjectChildren(ctx, &records[i]); err != nil {
			return nil, err
		}
	}
	return records, nil
}

// UpdateProject saves the record when its version is still current.
func (s *Store) UpdateProject(ctx context.Context, record storage.ProjectRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin project update: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback project update: %v", cause, rollbackErr)
		}
		return cause
	}

	if err := updateProjectExec(ctx, tx, record); err != nil {
		return rollbackWith(err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit project update: %w", err)
	}
	return nil
}

// UpdateProjectWithDecision atomically saves the project and appends the
// decision its state change produced.
func (s *Store) UpdateProjectWithDecision(ctx context.Context, record storage.ProjectRecord, decision storage.DecisionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin project decision write: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback project decision write: %v", cause, rollbackErr)
		}
		return cause
	}

	if err := updateProjectExec(ctx, tx, record); err != nil {
		return rollbackWith(err)
	}
	if err := insertDecisionExec(ctx, tx, decision); err != nil {
		return rollbackWith(err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit project decision write: %w", err)
	}
	return nil
}

func updateProjectExec(ctx context.Context, tx *sql.Tx, record storage.ProjectRecord) error {
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("project id is required")
	}

	result, err := tx.ExecContext(ctx, `
UPDATE projects
SET code = ?, name = ?, total_budget = ?, state = ?, responsible_id = ?,
    supervisor_id = ?, version = version + 1, updated_at = ?
WHERE id = ? AND version = ?
`, record.Code, record.Name, record.TotalBudget, record.State, record.ResponsibleID,
		record.SupervisorID, toMillis(record.UpdatedAt),
		record.ID, record.Version)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update project rows affected: %w", err)
	}
	if affected == 0 {
		return staleWriteError(ctx, tx, "projects", record.ID)
	}
	return replaceProjectChildren(ctx, tx, record)
}

func replaceProjectChildren(ctx context.Context, tx *sql.Tx, record storage.ProjectRecord) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM project_activities WHERE project_id = ?`, record.ID); err != nil {
		return fmt.Errorf("clear project activities: %w", err)
	}
	for _, activity := range record.Activities {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO project_activities (id, project_id, name, start_date, end_date)
VALUES (?, ?, ?, ?, ?)
`, activity.ID, record.ID, activity.Name, toMillis(activity.StartDate), toMillis(activity.EndDate)); err != nil {
			return fmt.Errorf("insert project activity: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM project_allocations WHERE project_id = ?`, record.ID); err != nil {
		return fmt.Errorf("clear project allocations: %w", err)
	}
	for _, allocation := range record.Allocations {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO project_allocations (id, project_id, source, amount)
VALUES (?, ?, ?, ?)
`, allocation.ID, record.ID, allocation.Source, allocation.Amount); err != nil {
			return fmt.Errorf("insert project allocation: %w", err)
		}
	}
	return nil
}

func (s *Store) loadProjectChildren(ctx context.Context, record *storage.ProjectRecord) error {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, project_id, name, start_date, end_date
FROM project_activities
WHERE project_id = ?
ORDER BY id
`, record.ID)
	if err != nil {
		return fmt.Errorf("list project activities: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var activity storage.ActivityRecord
		var startDate, endDate int64
		if err := rows.Scan(&activity.ID, &activity.ProjectID, &activity.Name, &startDate, &endDate); err != nil {
			return fmt.Errorf("scan project activity: %w", err)
		}
		activity.StartDate = fromMillis(startDate)
		activity.EndDate = fromMillis(endDate)
		record.Activities = append(record.Activities, activity)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate project activities: %w", err)
	}

	allocRows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, project_id, source, amount
FROM project_allocations
WHERE project_id = ?
ORDER BY id
`, record.ID)
	if err != nil {
		return fmt.Errorf("list project allocations: %w", err)
	}
	defer allocRows.Close()
	for allocRows.Next() {
		var allocation storage.AllocationRecord
		if err := allocRows.Scan(&allocation.ID, &allocation.ProjectID, &allocation.Source, &allocation.Amount); err != nil {
			return fmt.Errorf("scan project allocation: %w", err)
		}
		record.Allocations = append(record.Allocations, allocation)
	}
	if err := allocRows.Err(); err != nil {
		return fmt.Errorf("iterate project allocations: %w", err)
	}
	return nil
}

func scanProject(scan func(dest ...any) error) (storage.ProjectRecord, error) {
	var record storage.ProjectRecord
	var createdAt, updatedAt int64
	if err := scan(&record.ID, &record.Code, &record.Name, &record.TotalBudget,
		&record.State, &record.ResponsibleID, &record.SupervisorID,
		&record.Version, &createdAt, &updatedAt); err != nil {
		return storage.ProjectRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}
