// Package project models investment projects and their review lifecycle.
//
// A project is drafted with activities and budget allocations, then moves
// through Borrador -> Enviado -> Aprobado | Rechazado. Core fields are
// mutable only in draft; a rejected project is edited back to draft.
package project

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/planifica/sigep/internal/platform/errors"
	"github.com/planifica/sigep/internal/platform/id"
	"github.com/planifica/sigep/internal/services/planning/domain/workflow"
)

// Lifecycle states for projects.
const (
	// StateBorrador is the initial, editable draft state.
	StateBorrador workflow.State = "Borrador"
	// StateEnviado marks a project awaiting a reviewer decision.
	StateEnviado workflow.State = "Enviado"
	// StateAprobado is the terminal approved state.
	StateAprobado workflow.State = "Aprobado"
	// StateRechazado marks a rejected project that can return to draft.
	StateRechazado workflow.State = "Rechazado"
)

// States returns every project lifecycle state.
func States() []workflow.State {
	return []workflow.State{StateBorrador, StateEnviado, StateAprobado, StateRechazado}
}

// StateFromLabel parses a persisted state label.
func StateFromLabel(value string) (workflow.State, bool) {
	trimmed := strings.TrimSpace(value)
	for _, state := range States() {
		if strings.EqualFold(trimmed, string(state)) {
			return state, true
		}
	}
	return "", false
}

// Project represents one investment project.
type Project struct {
	ID   string
	Code string
	Name string
	// TotalBudget is the declared total amount for the project. Submission
	// requires it to be positive; allocations break it down by source.
	TotalBudget   float64
	State         workflow.State
	Activities    []Activity
	Allocations   []BudgetAllocation
	ResponsibleID string
	// SupervisorID optionally names a second principal overseeing execution.
	SupervisorID string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// WorkflowID implements workflow.Entity.
func (p Project) WorkflowID() string { return p.ID }

// WorkflowState implements workflow.Entity.
func (p Project) WorkflowState() workflow.State { return p.State }

// CreateInput describes the fields needed to register a project.
type CreateInput struct {
	Code          string
	Name          string
	TotalBudget   float64
	ResponsibleID string
	SupervisorID  string
}

// Create registers a new draft project with a generated ID and timestamps.
func Create(input CreateInput, now func() time.Time, idGenerator func() (string, error)) (Project, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateInput(input)
	if err != nil {
		return Project{}, err
	}

	projectID, err := idGenerator()
	if err != nil {
		return Project{}, fmt.Errorf("generate project id: %w", err)
	}

	createdAt := now().UTC()
	return Project{
		ID:            projectID,
		Code:          normalized.Code,
		Name:          normalized.Name,
		TotalBudget:   normalized.TotalBudget,
		State:         StateBorrador,
		ResponsibleID: normalized.ResponsibleID,
		SupervisorID:  normalized.SupervisorID,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}, nil
}

// NormalizeCreateInput trims and validates project registration input.
func NormalizeCreateInput(input CreateInput) (CreateInput, error) {
	input.Code = strings.TrimSpace(input.Code)
	if input.Code == "" {
		return CreateInput{}, apperrors.New(apperrors.CodeProjectEmptyCode, "project code is required")
	}
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return CreateInput{}, apperrors.New(apperrors.CodeProjectEmptyName, "project name is required")
	}
	if input.TotalBudget < 0 {
		return CreateInput{}, apperrors.New(apperrors.CodeProjectInvalidBudget, "project budget cannot be negative")
	}
	input.ResponsibleID = strings.TrimSpace(input.ResponsibleID)
	if input.ResponsibleID == "" {
		return CreateInput{}, apperrors.New(apperrors.CodeProjectEmptyResponsible, "project responsible principal is required")
	}
	input.SupervisorID = strings.TrimSpace(input.SupervisorID)
	if input.SupervisorID != "" && input.SupervisorID == input.ResponsibleID {
		return CreateInput{}, apperrors.New(apperrors.CodeProjectInvalidSupervisor, "supervisor must differ from responsible principal")
	}
	return input, nil
}

// UpdateDraftInput carries the core fields an editor may change in draft.
type UpdateDraftInput struct {
	Code          string
	Name          string
	TotalBudget   float64
	ResponsibleID string
	SupervisorID  string
}

// EnsureEditable verifies core-field mutation is allowed right now.
func EnsureEditable(project Project) error {
	if project.State != StateBorrador {
		return apperrors.WithMetadata(
			apperrors.CodeNotEditableInCurrentState,
			fmt.Sprintf("project is not editable in state %s", project.State),
			map[string]string{"State": string(project.State)},
		)
	}
	return nil
}

// ApplyDraftUpdate mutates core fields while the project is in draft.
func ApplyDraftUpdate(project Project, input UpdateDraftInput, now func() time.Time) (Project, error) {
	if now == nil {
		now = time.Now
	}
	if err := EnsureEditable(project); err != nil {
		return Project{}, err
	}
	normalized, err := NormalizeCreateInput(CreateInput(input))
	if err != nil {
		return Project{}, err
	}

	updated := project
	updated.Code = normalized.Code
	updated.Name = normalized.Name
	updated.TotalBudget = normalized.TotalBudget
	updated.ResponsibleID = normalized.ResponsibleID
	updated.SupervisorID = normalized.SupervisorID
	updated.UpdatedAt = now().UTC()
	return updated, nil
}

// AddActivity appends an activity to a draft project.
func AddActivity(project Project, input ActivityInput, now func() time.Time, idGenerator func() (string, error)) (Project, error) {
	if now == nil {
		now = time.Now
	}
	if err := EnsureEditable(project); err != nil {
		return Project{}, err
	}
	activity, err := NewActivity(project.ID, input, idGenerator)
	if err != nil {
		return Project{}, err
	}

	updated := project
	updated.Activities = append(append([]Activity(nil), project.Activities...), activity)
	updated.UpdatedAt = now().UTC()
	return updated, nil
}

// AddAllocation appends a budget allocation to a draft project.
func AddAllocation(project Project, input AllocationInput, now func() time.Time, idGenerator func() (string, error)) (Project, error) {
	if now == nil {
		now = time.Now
	}
	if err := EnsureEditable(project); err != nil {
		return Project{}, err
	}
	allocation, err := NewAllocation(project.ID, input, idGenerator)
	if err != nil {
		return Project{}, err
	}

	updated := project
	updated.Allocations = append(append([]BudgetAllocation(nil), project.Allocations...), allocation)
	updated.UpdatedAt = now().UTC()
	return updated, nil
}

// AllocatedTotal sums every budget allocation amount.
func AllocatedTotal(project Project) float64 {
	var total float64
	for _, allocation := range project.Allocations {
		total += allocation.Amount
	}
	return total
}

// ApplyTransition moves the project to the attempted state.
func ApplyTransition(project Project, result workflow.Result, now func() time.Time) Project {
	if now == nil {
		now = time.Now
	}
	updated := project
	updated.State = result.To
	updated.UpdatedAt = now().UTC()
	return updated
}

// formatAmount renders budget amounts for error metadata.
func formatAmount(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}
