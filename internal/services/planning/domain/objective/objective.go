// Package objective models strategic objectives and their validation lifecycle.
//
// An objective is created as a draft, accumulates goals, and moves through
// BORRADOR -> EN_VALIDACION -> APROBADO | RECHAZADO. Core fields are mutable
// only while the objective sits in its draft state; a rejected objective is
// re-entered by editing it back to draft. Objectives are never deleted, only
// deactivated, so decision history stays intact.
package objective

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/planifica/sigep/internal/platform/errors"
	"github.com/planifica/sigep/internal/platform/id"
	"github.com/planifica/sigep/internal/services/planning/domain/workflow"
)

// Priority ranks an objective's institutional importance.
type Priority string

const (
	// PriorityAlta marks high priority.
	PriorityAlta Priority = "ALTA"
	// PriorityMedia marks medium priority.
	PriorityMedia Priority = "MEDIA"
	// PriorityBaja marks low priority.
	PriorityBaja Priority = "BAJA"
)

// Lifecycle states for objectives.
const (
	// StateBorrador is the initial, editable draft state.
	StateBorrador workflow.State = "BORRADOR"
	// StateEnValidacion marks an objective awaiting a validator decision.
	StateEnValidacion workflow.State = "EN_VALIDACION"
	// StateAprobado is the terminal approved state.
	StateAprobado workflow.State = "APROBADO"
	// StateRechazado marks a rejected objective that can return to draft.
	StateRechazado workflow.State = "RECHAZADO"
)

// States returns every objective lifecycle state.
func States() []workflow.State {
	return []workflow.State{StateBorrador, StateEnValidacion, StateAprobado, StateRechazado}
}

// StateFromLabel parses a persisted state label.
func StateFromLabel(value string) (workflow.State, bool) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	for _, state := range States() {
		if trimmed == string(state) {
			return state, true
		}
	}
	return "", false
}

// PriorityFromLabel parses a priority label case-insensitively.
func PriorityFromLabel(value string) (Priority, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	switch Priority(trimmed) {
	case PriorityAlta, PriorityMedia, PriorityBaja:
		return Priority(trimmed), nil
	default:
		return "", apperrors.WithMetadata(
			apperrors.CodeObjectiveInvalidPriority,
			"objective priority must be ALTA, MEDIA, or BAJA",
			map[string]string{"Priority": strings.TrimSpace(value)},
		)
	}
}

// Objective represents one strategic objective.
type Objective struct {
	ID              string
	Code            string
	Name            string
	Description     string
	ResponsibleArea string
	Priority        Priority
	State           workflow.State
	Goals           []Goal
	// PNDAlignment and ODSAlignment reference external taxonomies; both are
	// optional and never validated against the taxonomy itself.
	PNDAlignment string
	ODSAlignment string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// WorkflowID implements workflow.Entity.
func (o Objective) WorkflowID() string { return o.ID }

// WorkflowState implements workflow.Entity.
func (o Objective) WorkflowState() workflow.State { return o.State }

// CreateInput describes the fields needed to register an objective.
type CreateInput struct {
	Code            string
	Name            string
	Description     string
	ResponsibleArea string
	Priority        Priority
	PNDAlignment    string
	ODSAlignment    string
}

// Create registers a new draft objective with a generated ID and timestamps.
func Create(input CreateInput, now func() time.Time, idGenerator func() (string, error)) (Objective, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateInput(input)
	if err != nil {
		return Objective{}, err
	}

	objectiveID, err := idGenerator()
	if err != nil {
		return Objective{}, fmt.Errorf("generate objective id: %w", err)
	}

	createdAt := now().UTC()
	return Objective{
		ID:              objectiveID,
		Code:            normalized.Code,
		Name:            normalized.Name,
		Description:     normalized.Description,
		ResponsibleArea: normalized.ResponsibleArea,
		Priority:        normalized.Priority,
		State:           StateBorrador,
		PNDAlignment:    normalized.PNDAlignment,
		ODSAlignment:    normalized.ODSAlignment,
		Active:          true,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}, nil
}

// NormalizeCreateInput trims and validates objective registration input.
func NormalizeCreateInput(input CreateInput) (CreateInput, error) {
	input.Code = strings.TrimSpace(input.Code)
	if input.Code == "" {
		return CreateInput{}, apperrors.New(apperrors.CodeObjectiveEmptyCode, "objective code is required")
	}
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return CreateInput{}, apperrors.New(apperrors.CodeObjectiveEmptyName, "objective name is required")
	}
	input.Description = strings.TrimSpace(input.Description)
	input.ResponsibleArea = strings.TrimSpace(input.ResponsibleArea)
	input.PNDAlignment = strings.TrimSpace(input.PNDAlignment)
	input.ODSAlignment = strings.TrimSpace(input.ODSAlignment)

	normalizedPriority, err := PriorityFromLabel(string(input.Priority))
	if err != nil {
		return CreateInput{}, err
	}
	input.Priority = normalizedPriority
	return input, nil
}

// UpdateDraftInput carries the core fields an editor may change in draft.
type UpdateDraftInput struct {
	Code            string
	Name            string
	Description     string
	ResponsibleArea string
	Priority        Priority
	PNDAlignment    string
	ODSAlignment    string
}

// EnsureEditable verifies core-field mutation is allowed right now.
func EnsureEditable(objective Objective) error {
	if !objective.Active {
		return apperrors.New(apperrors.CodeObjectiveInactive, "objective is deactivated")
	}
	if objective.State != StateBorrador {
		return apperrors.WithMetadata(
			apperrors.CodeNotEditableInCurrentState,
			fmt.Sprintf("objective is not editable in state %s", objective.State),
			map[string]string{"State": string(objective.State)},
		)
	}
	return nil
}

// ApplyDraftUpdate mutates core fields while the objective is in draft.
func ApplyDraftUpdate(objective Objective, input UpdateDraftInput, now func() time.Time) (Objective, error) {
	if now == nil {
		now = time.Now
	}
	if err := EnsureEditable(objective); err != nil {
		return Objective{}, err
	}
	normalized, err := NormalizeCreateInput(CreateInput(input))
	if err != nil {
		return Objective{}, err
	}

	updated := objective
	updated.Code = normalized.Code
	updated.Name = normalized.Name
	updated.Description = normalized.Description
	updated.ResponsibleArea = normalized.ResponsibleArea
	updated.Priority = normalized.Priority
	updated.PNDAlignment = normalized.PNDAlignment
	updated.ODSAlignment = normalized.ODSAlignment
	updated.UpdatedAt = now().UTC()
	return updated, nil
}

// AddGoal appends a goal to a draft objective.
func AddGoal(objective Objective, input GoalInput, now func() time.Time, idGenerator func() (string, error)) (Objective, error) {
	if now == nil {
		now = time.Now
	}
	if err := EnsureEditable(objective); err != nil {
		return Objective{}, err
	}
	goal, err := NewGoal(objective.ID, input, idGenerator)
	if err != nil {
		return Objective{}, err
	}

	updated := objective
	updated.Goals = append(append([]Goal(nil), objective.Goals...), goal)
	updated.UpdatedAt = now().UTC()
	return updated, nil
}

// Deactivate marks the objective inactive. History is kept; nothing is deleted.
func Deactivate(objective Objective, now func() time.Time) Objective {
	if now == nil {
		now = time.Now
	}
	updated := objective
	updated.Active = false
	updated.UpdatedAt = now().UTC()
	return updated
}

// Reactivate marks a deactivated objective active again.
func Reactivate(objective Objective, now func() time.Time) Objective {
	if now == nil {
		now = time.Now
	}
	updated := objective
	updated.Active = true
	updated.UpdatedAt = now().UTC()
	return updated
}

// ApplyTransition moves the objective to the attempted state.
func ApplyTransition(objective Objective, result workflow.Result, now func() time.Time) Objective {
	if now == nil {
		now = time.Now
	}
	updated := objective
	updated.State = result.To
	updated.UpdatedAt = now().UTC()
	return updated
}
