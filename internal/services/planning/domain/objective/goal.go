package objective

import (
	"fmt"
	"strings"

	apperrors "github.com/planifica/sigep/internal/platform/errors"
	"github.com/planifica/sigep/internal/platform/id"
)

// Periodicity describes how often a goal is measured.
type Periodicity string

const (
	// PeriodicityMensual marks monthly measurement.
	PeriodicityMensual Periodicity = "MENSUAL"
	// PeriodicityTrimestral marks quarterly measurement.
	PeriodicityTrimestral Periodicity = "TRIMESTRAL"
	// PeriodicitySemestral marks twice-yearly measurement.
	PeriodicitySemestral Periodicity = "SEMESTRAL"
	// PeriodicityAnual marks yearly measurement.
	PeriodicityAnual Periodicity = "ANUAL"
)

// PeriodicityFromLabel parses a periodicity label case-insensitively.
func PeriodicityFromLabel(value string) (Periodicity, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	switch Periodicity(trimmed) {
	case PeriodicityMensual, PeriodicityTrimestral, PeriodicitySemestral, PeriodicityAnual:
		return Periodicity(trimmed), nil
	default:
		return "", apperrors.WithMetadata(
			apperrors.CodeGoalInvalidPeriodicity,
			"goal periodicity is not recognized",
			map[string]string{"Periodicity": strings.TrimSpace(value)},
		)
	}
}

// Goal is a measurable target owned by exactly one objective.
type Goal struct {
	ID           string
	ObjectiveID  string
	TargetValue  float64
	CurrentValue float64
	Unit         string
	Periodicity  Periodicity
}

// GoalInput carries the fields needed to attach a goal.
type GoalInput struct {
	TargetValue  float64
	CurrentValue float64
	Unit         string
	Periodicity  Periodicity
}

// NewGoal validates goal input and binds it to its owning objective.
func NewGoal(objectiveID string, input GoalInput, idGenerator func() (string, error)) (Goal, error) {
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	if input.TargetValue <= 0 {
		return Goal{}, apperrors.New(apperrors.CodeGoalInvalidTarget, "goal target value must be greater than zero")
	}
	unit := strings.TrimSpace(input.Unit)
	if unit == "" {
		return Goal{}, apperrors.New(apperrors.CodeGoalEmptyUnit, "goal unit is required")
	}
	periodicity, err := PeriodicityFromLabel(string(input.Periodicity))
	if err != nil {
		return Goal{}, err
	}

	goalID, err := idGenerator()
	if err != nil {
		return Goal{}, fmt.Errorf("generate goal id: %w", err)
	}
	return Goal{
		ID:           goalID,
		ObjectiveID:  objectiveID,
		TargetValue:  input.TargetValue,
		CurrentValue: input.CurrentValue,
		Unit:         unit,
		Periodicity:  periodicity,
	}, nil
}
