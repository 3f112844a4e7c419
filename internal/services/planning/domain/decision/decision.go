// Package decision models the immutable outcome of a validate/review action.
//
// A decision record is appended to an entity's history when a workflow
// transition approves or rejects it. Records are never edited or deleted;
// audit and reporting collaborators consume them downstream.
package decision

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/planifica/sigep/internal/platform/errors"
	"github.com/planifica/sigep/internal/platform/id"
)

// EntityType identifies the kind of entity a decision applies to.
type EntityType string

const (
	// EntityTypeObjective marks decisions on strategic objectives.
	EntityTypeObjective EntityType = "objective"
	// EntityTypeProject marks decisions on investment projects.
	EntityTypeProject EntityType = "project"
)

// Outcome is the closed decision outcome enumeration.
type Outcome string

const (
	// OutcomeAprobado indicates the entity was approved.
	OutcomeAprobado Outcome = "APROBADO"
	// OutcomeRechazado indicates the entity was rejected.
	OutcomeRechazado Outcome = "RECHAZADO"
)

// Record is one immutable decision appended to an entity's history.
type Record struct {
	ID            string
	EntityType    EntityType
	EntityID      string
	Outcome       Outcome
	Justification string
	DecidedBy     string
	DecidedAt     time.Time
}

// Input carries the fields needed to build a decision record.
type Input struct {
	EntityType    EntityType
	EntityID      string
	Outcome       Outcome
	Justification string
	DecidedBy     string
}

// NewRecord builds an immutable decision record with a generated ID and
// timestamp. Rejections require a non-empty, non-whitespace justification.
func NewRecord(input Input, now func() time.Time, idGenerator func() (string, error)) (Record, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	if input.EntityType != EntityTypeObjective && input.EntityType != EntityTypeProject {
		return Record{}, apperrors.New(apperrors.CodeDecisionEmptyEntity, "decision entity type is required")
	}
	entityID := strings.TrimSpace(input.EntityID)
	if entityID == "" {
		return Record{}, apperrors.New(apperrors.CodeDecisionEmptyEntity, "decision entity id is required")
	}
	decidedBy := strings.TrimSpace(input.DecidedBy)
	if decidedBy == "" {
		return Record{}, apperrors.New(apperrors.CodeDecisionEmptyActor, "deciding principal id is required")
	}
	if input.Outcome != OutcomeAprobado && input.Outcome != OutcomeRechazado {
		return Record{}, apperrors.New(apperrors.CodeDecisionInvalidOutcome, "decision outcome is required")
	}
	justification := strings.TrimSpace(input.Justification)
	if input.Outcome == OutcomeRechazado && justification == "" {
		return Record{}, apperrors.New(apperrors.CodeJustificationRequired, "rejection requires a justification")
	}

	recordID, err := idGenerator()
	if err != nil {
		return Record{}, fmt.Errorf("generate decision id: %w", err)
	}

	return Record{
		ID:            recordID,
		EntityType:    input.EntityType,
		EntityID:      entityID,
		Outcome:       input.Outcome,
		Justification: justification,
		DecidedBy:     decidedBy,
		DecidedAt:     now().UTC(),
	}, nil
}
