// Package app implements the planning use cases on top of domain rules
// and storage. Every operation authorizes the calling principal before
// touching state.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	apperrors "github.com/planifica/sigep/internal/platform/errors"
	"github.com/planifica/sigep/internal/platform/id"
	"github.com/planifica/sigep/internal/services/planning/domain/authz"
	"github.com/planifica/sigep/internal/services/planning/domain/decision"
	"github.com/planifica/sigep/internal/services/planning/domain/objective"
	"github.com/planifica/sigep/internal/services/planning/domain/principal"
	"github.com/planifica/sigep/internal/services/planning/domain/project"
	"github.com/planifica/sigep/internal/services/planning/domain/workflow"
	"github.com/planifica/sigep/internal/services/planning/storage"
	"github.com/planifica/sigep/internal/services/planning/storage/filter"
)

// Service exposes the planning use cases.
type Service struct {
	store         storage.Store
	objectiveFlow *workflow.Definition[objective.Objective]
	projectFlow   *workflow.Definition[project.Project]
	now           func() time.Time
	idGenerator   func() (string, error)
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the service clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides the service ID generator.
func WithIDGenerator(generator func() (string, error)) Option {
	return func(s *Service) { s.idGenerator = generator }
}

// NewService builds a planning service over the provided store.
func NewService(store storage.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}

	s := &Service{
		store:       store,
		now:         time.Now,
		idGenerator: id.NewID,
	}
	for _, opt := range opts {
		opt(s)
	}

	objectiveFlow, err := objective.Workflow(
		workflow.WithClock[objective.Objective](s.now),
		workflow.WithIDGenerator[objective.Objective](s.idGenerator),
	)
	if err != nil {
		return nil, fmt.Errorf("build objective workflow: %w", err)
	}
	projectFlow, err := project.Workflow(
		workflow.WithClock[project.Project](s.now),
		workflow.WithIDGenerator[project.Project](s.idGenerator),
	)
	if err != nil {
		return nil, fmt.Errorf("build project workflow: %w", err)
	}
	s.objectiveFlow = objectiveFlow
	s.projectFlow = projectFlow
	return s, nil
}

// CapabilityFlags reports the actor's effective capabilities on a module.
// The UI uses these flags to enable or hide actions.
func (s *Service) CapabilityFlags(actor principal.Principal, module authz.Module) map[authz.Capability]bool {
	effective := authz.EffectiveCapabilities(actor, module)
	flags := make(map[authz.Capability]bool, len(authz.ModuleCapabilities(module)))
	for _, capability := range authz.ModuleCapabilities(module) {
		flags[capability] = effective.Has(capability)
	}
	return flags
}

// requireCapability turns a deny decision into a PERMISSION_DENIED error.
func requireCapability(actor principal.Principal, module authz.Module, capability authz.Capability) error {
	verdict := authz.Can(actor, module, capability)
	if verdict.Allowed {
		return nil
	}
	return apperrors.WithMetadata(
		apperrors.CodePermissionDenied,
		fmt.Sprintf("principal lacks %s on %s", capability, module),
		map[string]string{
			"Module":     string(module),
			"Capability": string(capability),
			"Reason":     verdict.ReasonCode,
		},
	)
}

// mapStorageError converts storage sentinels to domain error codes.
func mapStorageError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return apperrors.Wrap(apperrors.CodeNotFound, "record not found", err)
	case errors.Is(err, storage.ErrConflict):
		return apperrors.Wrap(apperrors.CodeConflict, "record was modified concurrently", err)
	default:
		return err
	}
}

func decisionToRecord(record *decision.Record) storage.DecisionRecord {
	return storage.DecisionRecord{
		ID:            record.ID,
		EntityType:    string(record.EntityType),
		EntityID:      record.EntityID,
		Outcome:       string(record.Outcome),
		Justification: record.Justification,
		DecidedBy:     record.DecidedBy,
		DecidedAt:     record.DecidedAt,
	}
}

// ListDecisions returns one entity's decision history oldest-first.
func (s *Service) ListDecisions(ctx context.Context, actor principal.Principal, entityType decision.EntityType, entityID string) ([]storage.DecisionRecord, error) {
	module := authz.ModuleGestionObjetivos
	if entityType == decision.EntityTypeProject {
		module = authz.ModuleProyectosInversion
	}
	if err := requireCapability(actor, module, authz.CapabilityConsult); err != nil {
		return nil, err
	}
	records, err := s.store.ListDecisionsByEntity(ctx, string(entityType), entityID)
	if err != nil {
		return nil, mapStorageError(err)
	}
	return records, nil
}

// SearchDecisions runs a filtered decision history query for auditors.
func (s *Service) SearchDecisions(ctx context.Context, actor principal.Principal, query storage.DecisionQuery) ([]storage.DecisionRecord, error) {
	if err := requireCapability(actor, authz.ModuleAuditoria, authz.CapabilityAuditSystem); err != nil {
		return nil, err
	}
	if err := validateDecisionFilter(query.Filter); err != nil {
		return nil, err
	}
	records, err := s.store.SearchDecisions(ctx, query)
	if err != nil {
		return nil, mapStorageError(err)
	}
	return records, nil
}

// ExportDecisions produces a report-oriented decision listing. Complete
// export keeps justifications; limited export strips them.
func (s *Service) ExportDecisions(ctx context.Context, actor principal.Principal, query storage.DecisionQuery) ([]storage.DecisionRecord, error) {
	complete := authz.Can(actor, authz.ModuleReportes, authz.CapabilityExportComplete).Allowed
	if !complete {
		if err := requireCapability(actor, authz.ModuleReportes, authz.CapabilityExportLimited); err != nil {
			return nil, err
		}
	}

	if err := validateDecisionFilter(query.Filter); err != nil {
		return nil, err
	}
	records, err := s.store.SearchDecisions(ctx, query)
	if err != nil {
		return nil, mapStorageError(err)
	}
	if !complete {
		for i := range records {
			records[i].Justification = ""
		}
	}
	log.Printf("decisions exported actor=%s complete=%t count=%d", actor.ID, complete, len(records))
	return records, nil
}

// validateDecisionFilter rejects malformed filters before they reach storage.
func validateDecisionFilter(expression string) error {
	if _, err := filter.ParseDecisionFilter(expression); err != nil {
		return apperrors.Wrap(apperrors.CodeFilterInvalid, "invalid decision filter", err)
	}
	return nil
}
