// Package workflow provides the generic guarded state machine behind entity
// approval lifecycles.
//
// A Definition binds an entity kind to its transition table. Each transition
// names a source state, an action, a target state, the capability the actor
// must hold on the owning module, and an ordered list of entity guards.
// Guard evaluation order is fixed: authorization first, then entity guards,
// then the payload guard, so a failing attempt always reports the earliest
// failing layer.
//
// Attempt is pure: it inspects the entity and returns the resulting state
// plus the decision record to append, leaving mutation and persistence to
// the caller as one atomic unit.
package workflow

import (
	"fmt"
	"sort"
	"strings"
	"time"

	apperrors "github.com/planifica/sigep/internal/platform/errors"
	"github.com/planifica/sigep/internal/services/planning/domain/authz"
	"github.com/planifica/sigep/internal/services/planning/domain/decision"
	"github.com/planifica/sigep/internal/services/planning/domain/principal"
)

// State is an entity lifecycle state label.
type State string

// Action names a transition trigger.
type Action string

// Entity is the minimal view the engine needs of a workflow subject.
type Entity interface {
	WorkflowID() string
	WorkflowState() State
}

// Guard checks one entity-level precondition. Guards return nil to pass or
// a domain error that becomes the attempt's failure.
type Guard[E Entity] func(entity E) error

// Transition defines one edge of the state machine.
type Transition[E Entity] struct {
	From       State
	Action     Action
	To         State
	Capability authz.Capability
	Guards     []Guard[E]
	// Outcome marks decision transitions; those emit exactly one decision
	// record. Zero for plain transitions such as edit or submit.
	Outcome decision.Outcome
}

// Attempt carries the actor and optional payload for one transition attempt.
type Attempt struct {
	Actor         principal.Principal
	Justification string
}

// Result is the outcome of a successful transition attempt.
type Result struct {
	From State
	To   State
	// Record is non-nil only for decision transitions.
	Record *decision.Record
}

// Definition is the immutable transition table for one entity kind.
type Definition[E Entity] struct {
	entityType  decision.EntityType
	module      authz.Module
	transitions map[State]map[Action]Transition[E]
	now         func() time.Time
	newID       func() (string, error)
}

// Option adjusts definition construction, mainly for tests.
type Option[E Entity] func(*Definition[E])

// WithClock injects the timestamp source used for decision records.
func WithClock[E Entity](now func() time.Time) Option[E] {
	return func(d *Definition[E]) {
		d.now = now
	}
}

// WithIDGenerator injects the identifier source used for decision records.
func WithIDGenerator[E Entity](newID func() (string, error)) Option[E] {
	return func(d *Definition[E]) {
		d.newID = newID
	}
}

// NewDefinition builds a definition and validates the transition table.
func NewDefinition[E Entity](entityType decision.EntityType, module authz.Module, transitions []Transition[E], opts ...Option[E]) (*Definition[E], error) {
	definition := &Definition[E]{
		entityType:  entityType,
		module:      module,
		transitions: make(map[State]map[Action]Transition[E]),
	}
	for _, transition := range transitions {
		if transition.From == "" || transition.To == "" || transition.Action == "" {
			return nil, fmt.Errorf("transition requires from, action, and to: %+v", transition)
		}
		if transition.Capability == "" {
			return nil, fmt.Errorf("transition %s/%s requires a capability", transition.From, transition.Action)
		}
		byAction, ok := definition.transitions[transition.From]
		if !ok {
			byAction = make(map[Action]Transition[E])
			definition.transitions[transition.From] = byAction
		}
		if _, exists := byAction[transition.Action]; exists {
			return nil, fmt.Errorf("duplicate transition %s/%s", transition.From, transition.Action)
		}
		byAction[transition.Action] = transition
	}
	for _, opt := range opts {
		if opt != nil {
			opt(definition)
		}
	}
	return definition, nil
}

// Module returns the module whose capabilities gate this definition.
func (d *Definition[E]) Module() authz.Module {
	return d.module
}

// EntityType returns the decision entity type for this definition.
func (d *Definition[E]) EntityType() decision.EntityType {
	return d.entityType
}

// Attempt evaluates a transition for the entity's current state.
//
// Either the full result is returned or nothing changes: the engine never
// mutates the entity, so a failed attempt leaves no partial state behind.
func (d *Definition[E]) Attempt(entity E, action Action, attempt Attempt) (Result, error) {
	from := entity.WorkflowState()

	transition, ok := d.transitions[from][action]
	if !ok {
		return Result{}, apperrors.WithMetadata(
			apperrors.CodeInvalidTransition,
			fmt.Sprintf("action %s is not defined for state %s", action, from),
			map[string]string{"State": string(from), "Action": string(action)},
		)
	}

	// Authorization guard runs first so a caller failing both authorization
	// and completeness always observes the permission failure.
	if granted := authz.Can(attempt.Actor, d.module, transition.Capability); !granted.Allowed {
		return Result{}, apperrors.WithMetadata(
			apperrors.CodePermissionDenied,
			fmt.Sprintf("principal lacks %s on %s", transition.Capability, d.module),
			map[string]string{
				"Module":     string(d.module),
				"Capability": string(transition.Capability),
				"Reason":     granted.ReasonCode,
			},
		)
	}

	for _, guard := range transition.Guards {
		if guard == nil {
			continue
		}
		if err := guard(entity); err != nil {
			return Result{}, err
		}
	}

	if transition.Outcome == decision.OutcomeRechazado && strings.TrimSpace(attempt.Justification) == "" {
		return Result{}, apperrors.New(apperrors.CodeJustificationRequired, "rejection requires a justification")
	}

	result := Result{From: from, To: transition.To}
	if transition.Outcome != "" {
		record, err := decision.NewRecord(decision.Input{
			EntityType:    d.entityType,
			EntityID:      entity.WorkflowID(),
			Outcome:       transition.Outcome,
			Justification: attempt.Justification,
			DecidedBy:     attempt.Actor.ID,
		}, d.now, d.newID)
		if err != nil {
			return Result{}, err
		}
		result.Record = &record
	}
	return result, nil
}

// ActionsFrom lists the actions defined for a state in stable order. Screens
// use this to render only the buttons the current state allows.
func (d *Definition[E]) ActionsFrom(state State) []Action {
	byAction := d.transitions[state]
	actions := make([]Action, 0, len(byAction))
	for action := range byAction {
		actions = append(actions, action)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}
