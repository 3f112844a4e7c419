package objective

import (
	apperrors "github.com/planifica/sigep/internal/platform/errors"
	"github.com/planifica/sigep/internal/services/planning/domain/authz"
	"github.com/planifica/sigep/internal/services/planning/domain/decision"
	"github.com/planifica/sigep/internal/services/planning/domain/workflow"
)

// Objective workflow actions.
const (
	// ActionSubmitForValidation forwards a draft for validator review.
	ActionSubmitForValidation workflow.Action = "submitForValidation"
	// ActionApprove accepts a submitted objective. Terminal.
	ActionApprove workflow.Action = "approve"
	// ActionReject declines a submitted objective with a justification.
	ActionReject workflow.Action = "reject"
	// ActionEdit returns a rejected objective to draft.
	ActionEdit workflow.Action = "edit"
)

// Workflow builds the objective state machine definition.
func Workflow(opts ...workflow.Option[Objective]) (*workflow.Definition[Objective], error) {
	return workflow.NewDefinition(
		decision.EntityTypeObjective,
		authz.ModuleGestionObjetivos,
		[]workflow.Transition[Objective]{
			{
				From:       StateBorrador,
				Action:     ActionSubmitForValidation,
				To:         StateEnValidacion,
				Capability: authz.CapabilitySendToValidation,
				Guards:     []workflow.Guard[Objective]{requiresActive, requiresAtLeastOneGoal},
			},
			{
				From:       StateEnValidacion,
				Action:     ActionApprove,
				To:         StateAprobado,
				Capability: authz.CapabilityValidate,
				Outcome:    decision.OutcomeAprobado,
			},
			{
				From:       StateEnValidacion,
				Action:     ActionReject,
				To:         StateRechazado,
				Capability: authz.CapabilityValidate,
				Outcome:    decision.OutcomeRechazado,
			},
			{
				From:       StateRechazado,
				Action:     ActionEdit,
				To:         StateBorrador,
				Capability: authz.CapabilityRegisterEdit,
			},
		},
		opts...,
	)
}

// requiresActive blocks workflow movement on deactivated objectives.
func requiresActive(objective Objective) error {
	if !objective.Active {
		return apperrors.New(apperrors.CodeObjectiveInactive, "objective is deactivated")
	}
	return nil
}

// requiresAtLeastOneGoal is the completeness precondition for submission.
func requiresAtLeastOneGoal(objective Objective) error {
	if len(objective.Goals) == 0 {
		return apperrors.WithMetadata(
			apperrors.CodePreconditionNotMet,
			"requires at least one goal",
			map[string]string{"Precondition": "goals"},
		)
	}
	return nil
}
