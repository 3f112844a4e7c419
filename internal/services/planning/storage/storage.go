// Package storage defines persistence interfaces and records for the
// planning service. Implementations live in subpackages.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested planning record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a stale write lost an optimistic concurrency race.
	ErrConflict = errors.New("record version conflict")
)

// ObjectiveRecord stores one strategic objective with its goals.
type ObjectiveRecord struct {
	ID              string
	Code            string
	Name            string
	Description     string
	ResponsibleArea string
	Priority        string
	State           string
	PNDAlignment    string
	ODSAlignment    string
	Active          bool
	Goals           []GoalRecord
	// Version increments on every successful save and guards
	// concurrent state changes.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GoalRecord stores one measurable goal attached to an objective.
type GoalRecord struct {
	ID           string
	ObjectiveID  string
	TargetValue  float64
	CurrentValue float64
	Unit         string
	Periodicity  string
}

// ProjectRecord stores one investment project with its activities and
// budget allocations.
type ProjectRecord struct {
	ID            string
	Code          string
	Name          string
	TotalBudget   float64
	State         string
	ResponsibleID string
	SupervisorID  string
	Activities    []ActivityRecord
	Allocations   []AllocationRecord
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ActivityRecord stores one planned project activity.
type ActivityRecord struct {
	ID        string
	ProjectID string
	Name      string
	StartDate time.Time
	EndDate   time.Time
}

// AllocationRecord stores one budget allocation line.
type AllocationRecord struct {
	ID        string
	ProjectID string
	Source    string
	Amount    float64
}

// DecisionRecord stores one immutable approval or rejection decision.
type DecisionRecord struct {
	ID            string
	EntityType    string
	EntityID      string
	Outcome       string
	Justification string
	DecidedBy     string
	DecidedAt     time.Time
}

// DecisionQuery narrows a decision history listing.
type DecisionQuery struct {
	// Filter is an AIP-160 expression over entity_type, entity_id,
	// outcome, decided_by and ts. Empty means no restriction.
	Filter string
	// Limit caps the result size. Zero means the store default.
	Limit int
}

// ObjectiveStore persists strategic objectives.
type ObjectiveStore interface {
	PutObjective(ctx context.Context, record ObjectiveRecord) error
	GetObjective(ctx context.Context, id string) (ObjectiveRecord, error)
	ListObjectives(ctx context.Context) ([]ObjectiveRecord, error)
	// UpdateObjective saves the record only when the stored version still
	// matches record.Version. A stale version returns ErrConflict.
	UpdateObjective(ctx context.Context, record ObjectiveRecord) error
	// UpdateObjectiveWithDecision atomically saves the record and appends
	// the decision emitted by its state change.
	UpdateObjectiveWithDecision(ctx context.Context, record ObjectiveRecord, decision DecisionRecord) error
}

// ProjectStore persists investment projects.
type ProjectStore interface {
	PutProject(ctx context.Context, record ProjectRecord) error
	GetProject(ctx context.Context, id string) (ProjectRecord, error)
	ListProjects(ctx context.Context) ([]ProjectRecord, error)
	UpdateProject(ctx context.Context, record ProjectRecord) error
	UpdateProjectWithDecision(ctx context.Context, record ProjectRecord, decision DecisionRecord) error
}

// DecisionStore reads the immutable decision history.
type DecisionStore interface {
	ListDecisionsByEntity(ctx context.Context, entityType string, entityID string) ([]DecisionRecord, error)
	SearchDecisions(ctx context.Context, query DecisionQuery) ([]DecisionRecord, error)
}

// Store aggregates every planning persistence concern.
type Store interface {
	ObjectiveStore
	ProjectStore
	DecisionStore
}
