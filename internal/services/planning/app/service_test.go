package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	apperrors "github.com/planifica/sigep/internal/platform/errors"
	"github.com/planifica/sigep/internal/services/planning/domain/authz"
	"github.com/planifica/sigep/internal/services/planning/domain/decision"
	"github.com/planifica/sigep/internal/services/planning/domain/objective"
	"github.com/planifica/sigep/internal/services/planning/domain/principal"
	"github.com/planifica/sigep/internal/services/planning/domain/project"
	"github.com/planifica/sigep/internal/services/planning/storage"
	"github.com/planifica/sigep/internal/services/planning/storage/filter"
)

// fakeStore implements storage.Store in memory with the same version
// semantics as the SQLite store.
type fakeStore struct {
	objectives map[string]storage.ObjectiveRecord
	projects   map[string]storage.ProjectRecord
	decisions  []storage.DecisionRecord
	// conflictNextUpdate makes the next update lose a version race.
	conflictNextUpdate bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objectives: make(map[string]storage.ObjectiveRecord),
		projects:   make(map[string]storage.ProjectRecord),
	}
}

func (f *fakeStore) PutObjective(_ context.Context, record storage.ObjectiveRecord) error {
	record.Version = 1
	f.objectives[record.ID] = record
	return nil
}

func (f *fakeStore) GetObjective(_ context.Context, id string) (storage.ObjectiveRecord, error) {
	record, ok := f.objectives[id]
	if !ok {
		return storage.ObjectiveRecord{}, storage.ErrNotFound
	}
	return record, nil
}

func (f *fakeStore) ListObjectives(_ context.Context) ([]storage.ObjectiveRecord, error) {
	records := make([]storage.ObjectiveRecord, 0, len(f.objectives))
	for _, record := range f.objectives {
		records = append(records, record)
	}
	return records, nil
}

func (f *fakeStore) UpdateObjective(_ context.Context, record storage.ObjectiveRecord) error {
	current, ok := f.objectives[record.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if f.conflictNextUpdate {
		f.conflictNextUpdate = false
		return storage.ErrConflict
	}
	if current.Version != record.Version {
		return storage.ErrConflict
	}
	record.Version = current.Version + 1
	f.objectives[record.ID] = record
	return nil
}

func (f *fakeStore) UpdateObjectiveWithDecision(ctx context.Context, record storage.ObjectiveRecord, dec storage.DecisionRecord) error {
	if err := f.UpdateObjective(ctx, record); err != nil {
		return err
	}
	f.decisions = append(f.decisions, dec)
	return nil
}

func (f *fakeStore) PutProject(_ context.Context, record storage.ProjectRecord) error {
	record.Version = 1
	f.projects[record.ID] = record
	return nil
}

func (f *fakeStore) GetProject(_ context.Context, id string) (storage.ProjectRecord, error) {
	record, ok := f.projects[id]
	if !ok {
		return storage.ProjectRecord{}, storage.ErrNotFound
	}
	return record, nil
}

func (f *fakeStore) ListProjects(_ context.Context) ([]storage.ProjectRecord, error) {
	records := make([]storage.ProjectRecord, 0, len(f.projects))
	for _, record := range f.projects {
		records = append(records, record)
	}
	return records, nil
}

func (f *fakeStore) UpdateProject(_ context.Context, record storage.ProjectRecord) error {
	current, ok := f.projects[record.ID]
	if !ok {
		return storage.ErrNotFound
	}
	if current.Version != record.Version {
		return storage.ErrConflict
	}
	record.Version = current.Version + 1
	f.projects[record.ID] = record
	return nil
}

func (f *fakeStore) UpdateProjectWithDecision(ctx context.Context, record storage.ProjectRecord, dec storage.DecisionRecord) error {
	if err := f.UpdateProject(ctx, record); err != nil {
		return err
	}
	f.decisions = append(f.decisions, dec)
	return nil
}

func (f *fakeStore) ListDecisionsByEntity(_ context.Context, entityType string, entityID string) ([]storage.DecisionRecord, error) {
	var records []storage.DecisionRecord
	for _, record := range f.decisions {
		if record.EntityType == entityType && record.EntityID == entityID {
			records = append(records, record)
		}
	}
	return records, nil
}

func (f *fakeStore) SearchDecisions(_ context.Context, query storage.DecisionQuery) ([]storage.DecisionRecord, error) {
	if _, err := filter.ParseDecisionFilter(query.Filter); err != nil {
		return nil, err
	}
	// Only the outcome filter is interpreted here; coverage of the full
	// translation lives in the filter and sqlite tests.
	records := make([]storage.DecisionRecord, 0, len(f.decisions))
	for _, record := range f.decisions {
		if strings.Contains(query.Filter, "RECHAZADO") && record.Outcome != "RECHAZADO" {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func fixedNow() time.Time {
	return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
}

func testService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	counter := 0
	svc, err := NewService(store,
		WithClock(fixedNow),
		WithIDGenerator(func() (string, error) {
			counter++
			return fmt.Sprintf("id-%d", counter), nil
		}),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, store
}

func actorWithRole(t *testing.T, id string, roles ...principal.Role) principal.Principal {
	t.Helper()
	actor, err := principal.New(id, roles...)
	if err != nil {
		t.Fatalf("new principal: %v", err)
	}
	return actor
}

func objectiveInput() objective.CreateInput {
	return objective.CreateInput{
		Code:            "OBJ-001",
		Name:            "Mejorar cobertura educativa",
		ResponsibleArea: "Planificación",
		Priority:        objective.PriorityAlta,
	}
}

func TestConsultorCannotWrite(t *testing.T) {
	svc, _ := testService(t)
	consultor := actorWithRole(t, "consul-1", principal.RoleConsul)

	_, err := svc.CreateObjective(context.Background(), consultor, objectiveInput())
	var domainErr *apperrors.Error
	if !errors.As(err, &domainErr) || domainErr.Code != apperrors.CodePermissionDenied {
		t.Fatalf("err = %v, want PERMISSION_DENIED", err)
	}
	if domainErr.Metadata["Reason"] != authz.ReasonDenyNoCapability {
		t.Fatalf("reason = %s, want %s", domainErr.Metadata["Reason"], authz.ReasonDenyNoCapability)
	}
}

func TestObjectiveLifecycleThroughService(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()
	planner := actorWithRole(t, "planif-1", principal.RolePlanif)
	validator := actorWithRole(t, "valid-1", principal.RoleValid)

	obj, err := svc.CreateObjective(ctx, planner, objectiveInput())
	if err != nil {
		t.Fatalf("create objective: %v", err)
	}
	obj, err = svc.AddObjectiveGoal(ctx, planner, obj.ID, objective.GoalInput{
		TargetValue: 100, Unit: "escuelas", Periodicity: objective.PeriodicityAnual,
	})
	if err != nil {
		t.Fatalf("add goal: %v", err)
	}

	obj, err = svc.ObjectiveAction(ctx, planner, obj.ID, objective.ActionSubmitForValidation, "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if obj.State != objective.StateEnValidacion {
		t.Fatalf("state = %s, want EN_VALIDACION", obj.State)
	}

	// The validator rejects with a justification; exactly one decision
	// record lands in the history.
	obj, err = svc.ObjectiveAction(ctx, validator, obj.ID, objective.ActionReject, "Faltan indicadores")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if obj.State != objective.StateRechazado {
		t.Fatalf("state = %s, want RECHAZADO", obj.State)
	}

	history, err := svc.ListDecisions(ctx, validator, decision.EntityTypeObjective, obj.ID)
	if err != nil {
		t.Fatalf("list decisions: %v", err)
	}
	if len(history) != 1 || history[0].Outcome != "RECHAZADO" || history[0].DecidedBy != "valid-1" {
		t.Fatalf("history = %+v, want one rejection by valid-1", history)
	}
	if history[0].Justification != "Faltan indicadores" {
		t.Fatalf("justification = %q", history[0].Justification)
	}

	obj, err = svc.ObjectiveAction(ctx, planner, obj.ID, objective.ActionEdit, "")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if obj.State != objective.StateBorrador {
		t.Fatalf("state = %s, want BORRADOR", obj.State)
	}
	if len(store.decisions) != 1 {
		t.Fatalf("decisions = %d, want 1", len(store.decisions))
	}
}

func TestObjectiveActionValidatorCannotSubmit(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	planner := actorWithRole(t, "planif-1", principal.RolePlanif)
	validator := actorWithRole(t, "valid-1", principal.RoleValid)

	obj, err := svc.CreateObjective(ctx, planner, objectiveInput())
	if err != nil {
		t.Fatalf("create objective: %v", err)
	}
	if _, err := svc.ObjectiveAction(ctx, validator, obj.ID, objective.ActionSubmitForValidation, ""); !errors.Is(err, apperrors.New(apperrors.CodePermissionDenied, "")) {
		t.Fatalf("err = %v, want PERMISSION_DENIED", err)
	}
}

func TestConcurrentObjectiveEditConflicts(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()
	planner := actorWithRole(t, "planif-1", principal.RolePlanif)

	obj, err := svc.CreateObjective(ctx, planner, objectiveInput())
	if err != nil {
		t.Fatalf("create objective: %v", err)
	}

	// A concurrent writer wins the race between the service's read and
	// its save; the stale write surfaces as CONFLICT.
	store.conflictNextUpdate = true
	_, err = svc.UpdateObjectiveDraft(ctx, planner, obj.ID, objective.UpdateDraftInput{
		Code: "OBJ-001", Name: "Renombrado", ResponsibleArea: "Planificación",
		Priority: objective.PriorityMedia,
	})
	if !errors.Is(err, apperrors.New(apperrors.CodeConflict, "")) {
		t.Fatalf("err = %v, want CONFLICT", err)
	}
	if !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("err = %v, want wrapped storage.ErrConflict cause", err)
	}
}

func TestMissingObjectiveWrapsNotFound(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	planner := actorWithRole(t, "planif-1", principal.RolePlanif)

	_, err := svc.GetObjective(ctx, planner, "ghost")
	if !errors.Is(err, apperrors.New(apperrors.CodeNotFound, "")) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("err = %v, want wrapped storage.ErrNotFound cause", err)
	}
}

func TestProjectLifecycleThroughService(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	planner := actorWithRole(t, "planif-1", principal.RolePlanif)
	reviewer := actorWithRole(t, "revisor-1", principal.RoleRevisor)

	p, err := svc.CreateProject(ctx, planner, project.CreateInput{
		Code: "PRY-001", Name: "Centro comunitario", TotalBudget: 250000,
		ResponsibleID: "planif-1",
	})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	p, err = svc.AddProjectActivity(ctx, planner, p.ID, project.ActivityInput{Name: "Obra civil"})
	if err != nil {
		t.Fatalf("add activity: %v", err)
	}
	p, err = svc.AddProjectAllocation(ctx, planner, p.ID, project.AllocationInput{Source: "Tesoro", Amount: 250000})
	if err != nil {
		t.Fatalf("add allocation: %v", err)
	}

	p, err = svc.ProjectAction(ctx, planner, p.ID, project.ActionSubmitForReview, "")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if p.State != project.StateEnviado {
		t.Fatalf("state = %s, want Enviado", p.State)
	}

	p, err = svc.ProjectAction(ctx, reviewer, p.ID, project.ActionApprove, "")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if p.State != project.StateAprobado {
		t.Fatalf("state = %s, want Aprobado", p.State)
	}

	history, err := svc.ListDecisions(ctx, reviewer, decision.EntityTypeProject, p.ID)
	if err != nil {
		t.Fatalf("list decisions: %v", err)
	}
	if len(history) != 1 || history[0].Outcome != "APROBADO" {
		t.Fatalf("history = %+v, want one approval", history)
	}
}

func TestCapabilityFlags(t *testing.T) {
	svc, _ := testService(t)
	planner := actorWithRole(t, "planif-1", principal.RolePlanif)

	flags := svc.CapabilityFlags(planner, authz.ModuleGestionObjetivos)
	if !flags[authz.CapabilityRegisterEdit] || !flags[authz.CapabilitySendToValidation] || !flags[authz.CapabilityConsult] {
		t.Fatalf("flags = %v, want register, send and consult", flags)
	}
	if flags[authz.CapabilityValidate] {
		t.Fatal("planner must not validate objectives")
	}
}

func TestSearchDecisionsRequiresAuditor(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()
	auditor := actorWithRole(t, "auditor-1", principal.RoleAuditor)
	planner := actorWithRole(t, "planif-1", principal.RolePlanif)

	store.decisions = []storage.DecisionRecord{
		{ID: "dec-1", EntityType: "objective", EntityID: "obj-1", Outcome: "RECHAZADO", Justification: "x", DecidedBy: "valid-1", DecidedAt: fixedNow()},
		{ID: "dec-2", EntityType: "project", EntityID: "pry-1", Outcome: "APROBADO", DecidedBy: "revisor-1", DecidedAt: fixedNow()},
	}

	if _, err := svc.SearchDecisions(ctx, planner, storage.DecisionQuery{}); !errors.Is(err, apperrors.New(apperrors.CodePermissionDenied, "")) {
		t.Fatalf("err = %v, want PERMISSION_DENIED", err)
	}

	matches, err := svc.SearchDecisions(ctx, auditor, storage.DecisionQuery{Filter: `outcome = "RECHAZADO"`})
	if err != nil {
		t.Fatalf("search decisions: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "dec-1" {
		t.Fatalf("matches = %+v, want dec-1", matches)
	}

	if _, err := svc.SearchDecisions(ctx, auditor, storage.DecisionQuery{Filter: `bogus = "x"`}); !errors.Is(err, apperrors.New(apperrors.CodeFilterInvalid, "")) {
		t.Fatalf("err = %v, want FILTER_INVALID", err)
	}
}

func TestExportDecisionsRedactsForLimitedExport(t *testing.T) {
	svc, store := testService(t)
	ctx := context.Background()
	auditor := actorWithRole(t, "auditor-1", principal.RoleAuditor)
	planner := actorWithRole(t, "planif-1", principal.RolePlanif)
	consultor := actorWithRole(t, "consul-1", principal.RoleConsul)

	store.decisions = []storage.DecisionRecord{
		{ID: "dec-1", EntityType: "objective", EntityID: "obj-1", Outcome: "RECHAZADO", Justification: "Detalle reservado", DecidedBy: "valid-1", DecidedAt: fixedNow()},
	}

	full, err := svc.ExportDecisions(ctx, auditor, storage.DecisionQuery{})
	if err != nil {
		t.Fatalf("export complete: %v", err)
	}
	if full[0].Justification != "Detalle reservado" {
		t.Fatal("complete export must keep justifications")
	}

	limited, err := svc.ExportDecisions(ctx, planner, storage.DecisionQuery{})
	if err != nil {
		t.Fatalf("export limited: %v", err)
	}
	if limited[0].Justification != "" {
		t.Fatal("limited export must strip justifications")
	}

	if _, err := svc.ExportDecisions(ctx, consultor, storage.DecisionQuery{}); !errors.Is(err, apperrors.New(apperrors.CodePermissionDenied, "")) {
		t.Fatalf("err = %v, want PERMISSION_DENIED", err)
	}
}
