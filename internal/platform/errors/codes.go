package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Authorization and workflow errors
	CodePermissionDenied          Code = "PERMISSION_DENIED"
	CodeInvalidTransition         Code = "INVALID_TRANSITION"
	CodePreconditionNotMet        Code = "PRECONDITION_NOT_MET"
	CodeJustificationRequired     Code = "JUSTIFICATION_REQUIRED"
	CodeNotEditableInCurrentState Code = "NOT_EDITABLE_IN_CURRENT_STATE"

	// Objective errors
	CodeObjectiveEmptyCode       Code = "OBJECTIVE_EMPTY_CODE"
	CodeObjectiveEmptyName       Code = "OBJECTIVE_EMPTY_NAME"
	CodeObjectiveInvalidPriority Code = "OBJECTIVE_INVALID_PRIORITY"
	CodeObjectiveInactive        Code = "OBJECTIVE_INACTIVE"

	// Goal errors
	CodeGoalInvalidTarget      Code = "GOAL_INVALID_TARGET"
	CodeGoalEmptyUnit          Code = "GOAL_EMPTY_UNIT"
	CodeGoalInvalidPeriodicity Code = "GOAL_INVALID_PERIODICITY"

	// Project errors
	CodeProjectEmptyCode         Code = "PROJECT_EMPTY_CODE"
	CodeProjectEmptyName         Code = "PROJECT_EMPTY_NAME"
	CodeProjectInvalidBudget     Code = "PROJECT_INVALID_BUDGET"
	CodeActivityEmptyName        Code = "ACTIVITY_EMPTY_NAME"
	CodeActivityInvalidDates     Code = "ACTIVITY_INVALID_DATES"
	CodeAllocationEmptySource    Code = "ALLOCATION_EMPTY_SOURCE"
	CodeAllocationInvalidAmount  Code = "ALLOCATION_INVALID_AMOUNT"
	CodeProjectEmptyResponsible  Code = "PROJECT_EMPTY_RESPONSIBLE"
	CodeProjectInvalidSupervisor Code = "PROJECT_INVALID_SUPERVISOR"

	// Decision errors
	CodeDecisionInvalidOutcome Code = "DECISION_INVALID_OUTCOME"
	CodeDecisionEmptyActor     Code = "DECISION_EMPTY_ACTOR"
	CodeDecisionEmptyEntity    Code = "DECISION_EMPTY_ENTITY"

	// Principal errors
	CodePrincipalEmptyID     Code = "PRINCIPAL_EMPTY_ID"
	CodePrincipalInvalidRole Code = "PRINCIPAL_INVALID_ROLE"

	// Auth token errors
	CodeAuthTokenInvalid  Code = "AUTH_TOKEN_INVALID"
	CodeAuthTokenExpired  Code = "AUTH_TOKEN_EXPIRED"
	CodeAuthTokenMismatch Code = "AUTH_TOKEN_MISMATCH"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
	CodeConflict Code = "CONFLICT"

	// Query errors
	CodeFilterInvalid Code = "FILTER_INVALID"
	CodeLimitInvalid  Code = "LIMIT_INVALID"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeJustificationRequired,
		CodeObjectiveEmptyCode,
		CodeObjectiveEmptyName,
		CodeObjectiveInvalidPriority,
		CodeGoalInvalidTarget,
		CodeGoalEmptyUnit,
		CodeGoalInvalidPeriodicity,
		CodeProjectEmptyCode,
		CodeProjectEmptyName,
		CodeProjectInvalidBudget,
		CodeActivityEmptyName,
		CodeActivityInvalidDates,
		CodeAllocationEmptySource,
		CodeAllocationInvalidAmount,
		CodeProjectEmptyResponsible,
		CodeProjectInvalidSupervisor,
		CodeDecisionInvalidOutcome,
		CodeDecisionEmptyActor,
		CodeDecisionEmptyEntity,
		CodePrincipalEmptyID,
		CodePrincipalInvalidRole,
		CodeFilterInvalid,
		CodeLimitInvalid:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeInvalidTransition,
		CodePreconditionNotMet,
		CodeNotEditableInCurrentState,
		CodeObjectiveInactive:
		return codes.FailedPrecondition

	// PermissionDenied - principal lacks required capability
	case CodePermissionDenied:
		return codes.PermissionDenied

	// Unauthenticated - token verification failures
	case CodeAuthTokenInvalid, CodeAuthTokenExpired, CodeAuthTokenMismatch:
		return codes.Unauthenticated

	// NotFound - missing records
	case CodeNotFound:
		return codes.NotFound

	// Aborted - optimistic concurrency conflicts
	case CodeConflict:
		return codes.Aborted

	default:
		return codes.Internal
	}
}
