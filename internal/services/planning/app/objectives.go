package app

import (
	"context"
	"fmt"
	"log"

	apperrors "github.com/planifica/sigep/internal/platform/errors"
	"github.com/planifica/sigep/internal/services/planning/domain/authz"
	"github.com/planifica/sigep/internal/services/planning/domain/objective"
	"github.com/planifica/sigep/internal/services/planning/domain/principal"
	"github.com/planifica/sigep/internal/services/planning/domain/workflow"
	"github.com/planifica/sigep/internal/services/planning/storage"
)

// CreateObjective registers a new draft objective.
func (s *Service) CreateObjective(ctx context.Context, actor principal.Principal, input objective.CreateInput) (objective.Objective, error) {
	if err := requireCapability(actor, authz.ModuleGestionObjetivos, authz.CapabilityRegisterEdit); err != nil {
		return objective.Objective{}, err
	}

	obj, err := objective.Create(input, s.now, s.idGenerator)
	if err != nil {
		return objective.Objective{}, err
	}
	if err := s.store.PutObjective(ctx, objectiveToRecord(obj, 0)); err != nil {
		return objective.Objective{}, mapStorageError(err)
	}
	log.Printf("objective created id=%s code=%s actor=%s", obj.ID, obj.Code, actor.ID)
	return obj, nil
}

// GetObjective loads one objective for a reader.
func (s *Service) GetObjective(ctx context.Context, actor principal.Principal, objectiveID string) (objective.Objective, error) {
	if err := requireCapability(actor, authz.ModuleGestionObjetivos, authz.CapabilityConsult); err != nil {
		return objective.Objective{}, err
	}
	record, err := s.store.GetObjective(ctx, objectiveID)
	if err != nil {
		return objective.Objective{}, mapStorageError(err)
	}
	return objectiveFromRecord(record)
}

// ListObjectives lists every objective for a reader.
func (s *Service) ListObjectives(ctx context.Context, actor principal.Principal) ([]objective.Objective, error) {
	if err := requireCapability(actor, authz.ModuleGestionObjetivos, authz.CapabilityConsult); err != nil {
		return nil, err
	}
	records, err := s.store.ListObjectives(ctx)
	if err != nil {
		return nil, mapStorageError(err)
	}
	objectives := make([]objective.Objective, 0, len(records))
	for _, record := range records {
		obj, err := objectiveFromRecord(record)
		if err != nil {
			return nil, err
		}
		objectives = append(objectives, obj)
	}
	return objectives, nil
}

// UpdateObjectiveDraft edits the core fields of a draft objective.
func (s *Service) UpdateObjectiveDraft(ctx context.Context, actor principal.Principal, objectiveID string, input objective.UpdateDraftInput) (objective.Objective, error) {
	return s.mutateObjective(ctx, actor, objectiveID, func(obj objective.Objective) (objective.Objective, error) {
		return objective.ApplyDraftUpdate(obj, input, s.now)
	})
}

// AddObjectiveGoal attaches a measurable goal to a draft objective.
func (s *Service) AddObjectiveGoal(ctx context.Context, actor principal.Principal, objectiveID string, input objective.GoalInput) (objective.Objective, error) {
	return s.mutateObjective(ctx, actor, objectiveID, func(obj objective.Objective) (objective.Objective, error) {
		return objective.AddGoal(obj, input, s.now, s.idGenerator)
	})
}

// DeactivateObjective withdraws an objective from planning flows.
func (s *Service) DeactivateObjective(ctx context.Context, actor principal.Principal, objectiveID string) (objective.Objective, error) {
	return s.mutateObjective(ctx, actor, objectiveID, func(obj objective.Objective) (objective.Objective, error) {
		return objective.Deactivate(obj, s.now), nil
	})
}

// ReactivateObjective restores a deactivated objective.
func (s *Service) ReactivateObjective(ctx context.Context, actor principal.Principal, objectiveID string) (objective.Objective, error) {
	return s.mutateObjective(ctx, actor, objectiveID, func(obj objective.Objective) (objective.Objective, error) {
		return objective.Reactivate(obj, s.now), nil
	})
}

func (s *Service) mutateObjective(ctx context.Context, actor principal.Principal, objectiveID string, mutate func(objective.Objective) (objective.Objective, error)) (objective.Objective, error) {
	if err := requireCapability(actor, authz.ModuleGestionObjetivos, authz.CapabilityRegisterEdit); err != nil {
		return objective.Objective{}, err
	}

	record, err := s.store.GetObjective(ctx, objectiveID)
	if err != nil {
		return objective.Objective{}, mapStorageError(err)
	}
	obj, err := objectiveFromRecord(record)
	if err != nil {
		return objective.Objective{}, err
	}

	updated, err := mutate(obj)
	if err != nil {
		return objective.Objective{}, err
	}
	if err := s.store.UpdateObjective(ctx, objectiveToRecord(updated, record.Version)); err != nil {
		return objective.Objective{}, mapStorageError(err)
	}
	return updated, nil
}

// ObjectiveAction runs one workflow action against an objective and
// persists the outcome atomically with any decision it produced.
func (s *Service) ObjectiveAction(ctx context.Context, actor principal.Principal, objectiveID string, action workflow.Action, justification string) (objective.Objective, error) {
	record, err := s.store.GetObjective(ctx, objectiveID)
	if err != nil {
		return objective.Objective{}, mapStorageError(err)
	}
	obj, err := objectiveFromRecord(record)
	if err != nil {
		return objective.Objective{}, err
	}

	result, err := s.objectiveFlow.Attempt(obj, action, workflow.Attempt{
		Actor:         actor,
		Justification: justification,
	})
	if err != nil {
		return objective.Objective{}, err
	}

	moved := objective.ApplyTransition(obj, result, s.now)
	movedRecord := objectiveToRecord(moved, record.Version)
	if result.Record != nil {
		err = s.store.UpdateObjectiveWithDecision(ctx, movedRecord, decisionToRecord(result.Record))
	} else {
		err = s.store.UpdateObjective(ctx, movedRecord)
	}
	if err != nil {
		return objective.Objective{}, mapStorageError(err)
	}

	log.Printf("objective transition id=%s action=%s from=%s to=%s actor=%s", obj.ID, action, result.From, result.To, actor.ID)
	return moved, nil
}

// ObjectiveActions lists the workflow actions available from the
// objective's current state.
func (s *Service) ObjectiveActions(ctx context.Context, actor principal.Principal, objectiveID string) ([]workflow.Action, error) {
	if err := requireCapability(actor, authz.ModuleGestionObjetivos, authz.CapabilityConsult); err != nil {
		return nil, err
	}
	record, err := s.store.GetObjective(ctx, objectiveID)
	if err != nil {
		return nil, mapStorageError(err)
	}
	return s.objectiveFlow.ActionsFrom(workflow.State(record.State)), nil
}

func objectiveToRecord(obj objective.Objective, version int64) storage.ObjectiveRecord {
	goals := make([]storage.GoalRecord, 0, len(obj.Goals))
	for _, goal := range obj.Goals {
		goals = append(goals, storage.GoalRecord{
			ID:           goal.ID,
			ObjectiveID:  goal.ObjectiveID,
			TargetValue:  goal.TargetValue,
			CurrentValue: goal.CurrentValue,
			Unit:         goal.Unit,
			Periodicity:  string(goal.Periodicity),
		})
	}
	return storage.ObjectiveRecord{
		ID:              obj.ID,
		Code:            obj.Code,
		Name:            obj.Name,
		Description:     obj.Description,
		ResponsibleArea: obj.ResponsibleArea,
		Priority:        string(obj.Priority),
		State:           string(obj.State),
		PNDAlignment:    obj.PNDAlignment,
		ODSAlignment:    obj.ODSAlignment,
		Active:          obj.Active,
		Goals:           goals,
		Version:         version,
		CreatedAt:       obj.CreatedAt,
		UpdatedAt:       obj.UpdatedAt,
	}
}

func objectiveFromRecord(record storage.ObjectiveRecord) (objective.Objective, error) {
	state, ok := objective.StateFromLabel(record.State)
	if !ok {
		return objective.Objective{}, fmt.Errorf("objective %s has unknown state %q", record.ID, record.State)
	}
	priority, err := objective.PriorityFromLabel(record.Priority)
	if err != nil {
		return objective.Objective{}, apperrors.Wrap(apperrors.CodeObjectiveInvalidPriority,
			fmt.Sprintf("objective %s has unknown priority %q", record.ID, record.Priority), err)
	}

	goals := make([]objective.Goal, 0, len(record.Goals))
	for _, goal := range record.Goals {
		periodicity, err := objective.PeriodicityFromLabel(goal.Periodicity)
		if err != nil {
			return objective.Objective{}, apperrors.Wrap(apperrors.CodeGoalInvalidPeriodicity,
				fmt.Sprintf("goal %s has unknown periodicity %q", goal.ID, goal.Periodicity), err)
		}
		goals = append(goals, objective.Goal{
			ID:           goal.ID,
			ObjectiveID:  goal.ObjectiveID,
			TargetValue:  goal.TargetValue,
			CurrentValue: goal.CurrentValue,
			Unit:         goal.Unit,
			Periodicity:  periodicity,
		})
	}

	return objective.Objective{
		ID:              record.ID,
		Code:            record.Code,
		Name:            record.Name,
		Description:     record.Description,
		ResponsibleArea: record.ResponsibleArea,
		Priority:        priority,
		State:           state,
		Goals:           goals,
		PNDAlignment:    record.PNDAlignment,
		ODSAlignment:    record.ODSAlignment,
		Active:          record.Active,
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
	}, nil
}
