package app

import (
	"context"
	"fmt"
	"log"

	"github.com/planifica/sigep/internal/services/planning/domain/authz"
	"github.com/planifica/sigep/internal/services/planning/domain/principal"
	"github.com/planifica/sigep/internal/services/planning/domain/project"
	"github.com/planifica/sigep/internal/services/planning/domain/workflow"
	"github.com/planifica/sigep/internal/services/planning/storage"
)

// CreateProject registers a new draft investment project.
func (s *Service) CreateProject(ctx context.Context, actor principal.Principal, input project.CreateInput) (project.Project, error) {
	if err := requireCapability(actor, authz.ModuleProyectosInversion, authz.CapabilityRegisterEdit); err != nil {
		return project.Project{}, err
	}

	p, err := project.Create(input, s.now, s.idGenerator)
	if err != nil {
		return project.Project{}, err
	}
	if err := s.store.PutProject(ctx, projectToRecord(p, 0)); err != nil {
		return project.Project{}, mapStorageError(err)
	}
	log.Printf("project created id=%s code=%s actor=%s", p.ID, p.Code, actor.ID)
	return p, nil
}

// GetProject loads one project for a reader.
func (s *Service) GetProject(ctx context.Context, actor principal.Principal, projectID string) (project.Project, error) {
	if err := requireCapability(actor, authz.ModuleProyectosInversion, authz.CapabilityConsult); err != nil {
		return project.Project{}, err
	}
	record, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return project.Project{}, mapStorageError(err)
	}
	return projectFromRecord(record)
}

// ListProjects lists every project for a reader.
func (s *Service) ListProjects(ctx context.Context, actor principal.Principal) ([]project.Project, error) {
	if err := requireCapability(actor, authz.ModuleProyectosInversion, authz.CapabilityConsult); err != nil {
		return nil, err
	}
	records, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, mapStorageError(err)
	}
	projects := make([]project.Project, 0, len(records))
	for _, record := range records {
		p, err := projectFromRecord(record)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// UpdateProjectDraft edits the core fields of a draft project.
func (s *Service) UpdateProjectDraft(ctx context.Context, actor principal.Principal, projectID string, input project.UpdateDraftInput) (project.Project, error) {
	return s.mutateProject(ctx, actor, projectID, func(p project.Project) (project.Project, error) {
		return project.ApplyDraftUpdate(p, input, s.now)
	})
}

// AddProjectActivity attaches an activity to a draft project.
func (s *Service) AddProjectActivity(ctx context.Context, actor principal.Principal, projectID string, input project.ActivityInput) (project.Project, error) {
	return s.mutateProject(ctx, actor, projectID, func(p project.Project) (project.Project, error) {
		return project.AddActivity(p, input, s.now, s.idGenerator)
	})
}

// AddProjectAllocation attaches a budget allocation to a draft project.
func (s *Service) AddProjectAllocation(ctx context.Context, actor principal.Principal, projectID string, input project.AllocationInput) (project.Project, error) {
	return s.mutateProject(ctx, actor, projectID, func(p project.Project) (project.Project, error) {
		return project.AddAllocation(p, input, s.now, s.idGenerator)
	})
}

func (s *Service) mutateProject(ctx context.Context, actor principal.Principal, projectID string, mutate func(project.Project) (project.Project, error)) (project.Project, error) {
	if err := requireCapability(actor, authz.ModuleProyectosInversion, authz.CapabilityRegisterEdit); err != nil {
		return project.Project{}, err
	}

	record, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return project.Project{}, mapStorageError(err)
	}
	p, err := projectFromRecord(record)
	if err != nil {
		return project.Project{}, err
	}

	updated, err := mutate(p)
	if err != nil {
		return project.Project{}, err
	}
	if err := s.store.UpdateProject(ctx, projectToRecord(updated, record.Version)); err != nil {
		return project.Project{}, mapStorageError(err)
	}
	return updated, nil
}

// ProjectAction runs one workflow action against a project and persists
// the outcome atomically with any decision it produced.
func (s *Service) ProjectAction(ctx context.Context, actor principal.Principal, projectID string, action workflow.Action, justification string) (project.Project, error) {
	record, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return project.Project{}, mapStorageError(err)
	}
	p, err := projectFromRecord(record)
	if err != nil {
		return project.Project{}, err
	}

	result, err := s.projectFlow.Attempt(p, action, workflow.Attempt{
		Actor:         actor,
		Justification: justification,
	})
	if err != nil {
		return project.Project{}, err
	}

	moved := project.ApplyTransition(p, result, s.now)
	movedRecord := projectToRecord(moved, record.Version)
	if result.Record != nil {
		err = s.store.UpdateProjectWithDecision(ctx, movedRecord, decisionToRecord(result.Record))
	} else {
		err = s.store.UpdateProject(ctx, movedRecord)
	}
	if err != nil {
		return project.Project{}, mapStorageError(err)
	}

	log.Printf("project transition id=%s action=%s from=%s to=%s actor=%s", p.ID, action, result.From, result.To, actor.ID)
	return moved, nil
}

// ProjectActions lists the workflow actions available from the project's
// current state.
func (s *Service) ProjectActions(ctx context.Context, actor principal.Principal, projectID string) ([]workflow.Action, error) {
	if err := requireCapability(actor, authz.ModuleProyectosInversion, authz.CapabilityConsult); err != nil {
		return nil, err
	}
	record, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, mapStorageError(err)
	}
	return s.projectFlow.ActionsFrom(workflow.State(record.State)), nil
}

func projectToRecord(p project.Project, version int64) storage.ProjectRecord {
	activities := make([]storage.ActivityRecord, 0, len(p.Activities))
	for _, activity := range p.Activities {
		activities = append(activities, storage.ActivityRecord{
			ID:        activity.ID,
			ProjectID: activity.ProjectID,
			Name:      activity.Name,
			StartDate: activity.StartDate,
			EndDate:   activity.EndDate,
		})
	}
	allocations := make([]storage.AllocationRecord, 0, len(p.Allocations))
	for _, allocation := range p.Allocations {
		allocations = append(allocations, storage.AllocationRecord{
			ID:        allocation.ID,
			ProjectID: allocation.ProjectID,
			Source:    allocation.Source,
			Amount:    allocation.Amount,
		})
	}
	return storage.ProjectRecord{
		ID:            p.ID,
		Code:          p.Code,
		Name:          p.Name,
		TotalBudget:   p.TotalBudget,
		State:         string(p.State),
		ResponsibleID: p.ResponsibleID,
		SupervisorID:  p.SupervisorID,
		Activities:    activities,
		Allocations:   allocations,
		Version:       version,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func projectFromRecord(record storage.ProjectRecord) (project.Project, error) {
	state, ok := project.StateFromLabel(record.State)
	if !ok {
		return project.Project{}, fmt.Errorf("project %s has unknown state %q", record.ID, record.State)
	}

	activities := make([]project.Activity, 0, len(record.Activities))
	for _, activity := range record.Activities {
		activities = append(activities, project.Activity{
			ID:        activity.ID,
			ProjectID: activity.ProjectID,
			Name:      activity.Name,
			StartDate: activity.StartDate,
			EndDate:   activity.EndDate,
		})
	}
	allocations := make([]project.BudgetAllocation, 0, len(record.Allocations))
	for _, allocation := range record.Allocations {
		allocations = append(allocations, project.BudgetAllocation{
			ID:        allocation.ID,
			ProjectID: allocation.ProjectID,
			Source:    allocation.Source,
			Amount:    allocation.Amount,
		})
	}

	return project.Project{
		ID:            record.ID,
		Code:          record.Code,
		Name:          record.Name,
		TotalBudget:   record.TotalBudget,
		State:         state,
		Activities:    activities,
		Allocations:   allocations,
		ResponsibleID: record.ResponsibleID,
		SupervisorID:  record.SupervisorID,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}, nil
}
