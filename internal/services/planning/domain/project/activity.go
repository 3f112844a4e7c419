package project

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/planifica/sigep/internal/platform/errors"
	"github.com/planifica/sigep/internal/platform/id"
)

// Activity is one unit of work planned inside a project.
type Activity struct {
	ID        string
	ProjectID string
	Name      string
	StartDate time.Time
	EndDate   time.Time
}

// ActivityInput describes the fields needed to add an activity.
type ActivityInput struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
}

// NewActivity validates input and builds an activity for the project.
func NewActivity(projectID string, input ActivityInput, idGenerator func() (string, error)) (Activity, error) {
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return Activity{}, apperrors.New(apperrors.CodeActivityEmptyName, "activity name is required")
	}
	if !input.EndDate.IsZero() && !input.StartDate.IsZero() && input.EndDate.Before(input.StartDate) {
		return Activity{}, apperrors.WithMetadata(
			apperrors.CodeActivityInvalidDates,
			"activity end date precedes start date",
			map[string]string{
				"StartDate": input.StartDate.UTC().Format(time.RFC3339),
				"EndDate":   input.EndDate.UTC().Format(time.RFC3339),
			},
		)
	}

	activityID, err := idGenerator()
	if err != nil {
		return Activity{}, fmt.Errorf("generate activity id: %w", err)
	}

	return Activity{
		ID:        activityID,
		ProjectID: projectID,
		Name:      input.Name,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
	}, nil
}

// BudgetAllocation assigns part of the project budget to a funding source.
type BudgetAllocation struct {
	ID        string
	ProjectID string
	Source    string
	Amount    float64
}

// AllocationInput describes the fields needed to add an allocation.
type AllocationInput struct {
	Source string
	Amount float64
}

// NewAllocation validates input and builds an allocation for the project.
func NewAllocation(projectID string, input AllocationInput, idGenerator func() (string, error)) (BudgetAllocation, error) {
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	input.Source = strings.TrimSpace(input.Source)
	if input.Source == "" {
		return BudgetAllocation{}, apperrors.New(apperrors.CodeAllocationEmptySource, "allocation source is required")
	}
	if input.Amount <= 0 {
		return BudgetAllocation{}, apperrors.WithMetadata(
			apperrors.CodeAllocationInvalidAmount,
			"allocation amount must be positive",
			map[string]string{"Amount": formatAmount(input.Amount)},
		)
	}

	allocationID, err := idGenerator()
	if err != nil {
		return BudgetAllocation{}, fmt.Errorf("generate allocation id: %w", err)
	}

	return BudgetAllocation{
		ID:        allocationID,
		ProjectID: projectID,
		Source:    input.Source,
		Amount:    input.Amount,
	}, nil
}
