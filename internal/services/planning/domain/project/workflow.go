package project

import (
	apperrors "github.com/planifica/sigep/internal/platform/errors"
	"github.com/planifica/sigep/internal/services/planning/domain/authz"
	"github.com/planifica/sigep/internal/services/planning/domain/decision"
	"github.com/planifica/sigep/internal/services/planning/domain/workflow"
)

// Project workflow actions.
const (
	// ActionSubmitForReview forwards a draft for reviewer evaluation.
	ActionSubmitForReview workflow.Action = "submitForReview"
	// ActionApprove accepts a submitted project. Terminal.
	ActionApprove workflow.Action = "approve"
	// ActionReject declines a submitted project with a justification.
	ActionReject workflow.Action = "reject"
	// ActionEdit returns a rejected project to draft.
	ActionEdit workflow.Action = "edit"
)

// Workflow builds the project state machine definition.
func Workflow(opts ...workflow.Option[Project]) (*workflow.Definition[Project], error) {
	return workflow.NewDefinition(
		decision.EntityTypeProject,
		authz.ModuleProyectosInversion,
		[]workflow.Transition[Project]{
			{
				From:       StateBorrador,
				Action:     ActionSubmitForReview,
				To:         StateEnviado,
				Capability: authz.CapabilitySendToReview,
				Guards:     []workflow.Guard[Project]{requiresPositiveBudget, requiresAtLeastOneActivity},
			},
			{
				From:       StateEnviado,
				Action:     ActionApprove,
				To:         StateAprobado,
				Capability: authz.CapabilityApprove,
				Outcome:    decision.OutcomeAprobado,
			},
			{
				From:       StateEnviado,
				Action:     ActionReject,
				To:         StateRechazado,
				Capability: authz.CapabilityApprove,
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

// requiresPositiveBudget is checked first so an incomplete project still
// reports the budget problem.
func requiresPositiveBudget(p Project) error {
	if p.TotalBudget <= 0 {
		return apperrors.WithMetadata(
			apperrors.CodePreconditionNotMet,
			"requires budget > 0",
			map[string]string{"Precondition": "budget", "TotalBudget": formatAmount(p.TotalBudget)},
		)
	}
	return nil
}

// requiresAtLeastOneActivity is the completeness precondition for submission.
func requiresAtLeastOneActivity(p Project) error {
	if len(p.Activities) == 0 {
		return apperrors.WithMetadata(
			apperrors.CodePreconditionNotMet,
			"requires at least one activity",
			map[string]string{"Precondition": "activities"},
		)
	}
	return nil
}
