package project

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/planifica/sigep/internal/platform/errors"
	"github.com/planifica/sigep/internal/services/planning/domain/principal"
	"github.com/planifica/sigep/internal/services/planning/domain/workflow"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
}

func testIDGenerator() func() (string, error) {
	counter := 0
	return func() (string, error) {
		counter++
		return string(rune('a'+counter-1)) + "-id", nil
	}
}

func validInput() CreateInput {
	return CreateInput{
		Code:          "PRY-001",
		Name:          "Construcción de centro comunitario",
		TotalBudget:   250000,
		ResponsibleID: "planif-1",
		SupervisorID:  "valid-9",
	}
}

func draftProject(t *testing.T) Project {
	t.Helper()
	p, err := Create(validInput(), fixedNow, testIDGenerator())
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func TestCreateStartsAsDraft(t *testing.T) {
	p := draftProject(t)
	if p.State != StateBorrador {
		t.Fatalf("state = %s, want Borrador", p.State)
	}
	if p.CreatedAt != fixedNow() || p.UpdatedAt != fixedNow() {
		t.Fatalf("timestamps = %v/%v, want fixed clock", p.CreatedAt, p.UpdatedAt)
	}
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateInput)
		code   apperrors.Code
	}{
		{"empty code", func(in *CreateInput) { in.Code = " " }, apperrors.CodeProjectEmptyCode},
		{"empty name", func(in *CreateInput) { in.Name = "" }, apperrors.CodeProjectEmptyName},
		{"negative budget", func(in *CreateInput) { in.TotalBudget = -1 }, apperrors.CodeProjectInvalidBudget},
		{"empty responsible", func(in *CreateInput) { in.ResponsibleID = "" }, apperrors.CodeProjectEmptyResponsible},
		{"supervisor equals responsible", func(in *CreateInput) { in.SupervisorID = in.ResponsibleID }, apperrors.CodeProjectInvalidSupervisor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(&input)
			_, err := Create(input, fixedNow, testIDGenerator())
			if !errors.Is(err, apperrors.New(tt.code, "")) {
				t.Fatalf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestAddActivityOnlyInDraft(t *testing.T) {
	p := draftProject(t)
	input := ActivityInput{Name: "Estudio de factibilidad"}

	withActivity, err := AddActivity(p, input, fixedNow, testIDGenerator())
	if err != nil {
		t.Fatalf("add activity: %v", err)
	}
	if len(withActivity.Activities) != 1 {
		t.Fatalf("activities = %d, want 1", len(withActivity.Activities))
	}
	if withActivity.Activities[0].ProjectID != p.ID {
		t.Fatal("activity must be bound to its owning project")
	}

	sent := withActivity
	sent.State = StateEnviado
	if _, err := AddActivity(sent, input, fixedNow, testIDGenerator()); !errors.Is(err, apperrors.New(apperrors.CodeNotEditableInCurrentState, "")) {
		t.Fatalf("err = %v, want NOT_EDITABLE_IN_CURRENT_STATE", err)
	}
}

func TestActivityValidation(t *testing.T) {
	if _, err := NewActivity("pry-1", ActivityInput{Name: " "}, nil); !errors.Is(err, apperrors.New(apperrors.CodeActivityEmptyName, "")) {
		t.Fatalf("err = %v, want ACTIVITY_EMPTY_NAME", err)
	}
	start := fixedNow()
	end := start.Add(-24 * time.Hour)
	if _, err := NewActivity("pry-1", ActivityInput{Name: "x", StartDate: start, EndDate: end}, nil); !errors.Is(err, apperrors.New(apperrors.CodeActivityInvalidDates, "")) {
		t.Fatalf("err = %v, want ACTIVITY_INVALID_DATES", err)
	}
}

func TestAllocationValidation(t *testing.T) {
	if _, err := NewAllocation("pry-1", AllocationInput{Source: " ", Amount: 10}, nil); !errors.Is(err, apperrors.New(apperrors.CodeAllocationEmptySource, "")) {
		t.Fatalf("err = %v, want ALLOCATION_EMPTY_SOURCE", err)
	}
	if _, err := NewAllocation("pry-1", AllocationInput{Source: "Tesoro", Amount: 0}, nil); !errors.Is(err, apperrors.New(apperrors.CodeAllocationInvalidAmount, "")) {
		t.Fatalf("err = %v, want ALLOCATION_INVALID_AMOUNT", err)
	}
}

func TestAllocatedTotal(t *testing.T) {
	p := draftProject(t)
	for _, in := range []AllocationInput{
		{Source: "Tesoro Nacional", Amount: 150000},
		{Source: "Cooperación Externa", Amount: 100000},
	} {
		var err error
		p, err = AddAllocation(p, in, fixedNow, testIDGenerator())
		if err != nil {
			t.Fatalf("add allocation: %v", err)
		}
	}
	if got := AllocatedTotal(p); got != 250000 {
		t.Fatalf("allocated total = %v, want 250000", got)
	}
}

func planner(t *testing.T) principal.Principal {
	t.Helper()
	p, err := principal.New("planif-1", principal.RolePlanif)
	if err != nil {
		t.Fatalf("new principal: %v", err)
	}
	return p
}

func reviewer(t *testing.T) principal.Principal {
	t.Helper()
	p, err := principal.New("revisor-1", principal.RoleRevisor)
	if err != nil {
		t.Fatalf("new principal: %v", err)
	}
	return p
}

func projectWorkflow(t *testing.T) *workflow.Definition[Project] {
	t.Helper()
	definition, err := Workflow(
		workflow.WithClock[Project](fixedNow),
		workflow.WithIDGenerator[Project](func() (string, error) { return "decision-1", nil }),
	)
	if err != nil {
		t.Fatalf("build workflow: %v", err)
	}
	return definition
}

func TestSubmitWithoutBudgetFailsPrecondition(t *testing.T) {
	definition := projectWorkflow(t)
	input := validInput()
	input.TotalBudget = 0
	p, err := Create(input, fixedNow, testIDGenerator())
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	// Even with activities in place the budget precondition reports first.
	for _, name := range []string{"Diseño", "Construcción"} {
		p, err = AddActivity(p, ActivityInput{Name: name}, fixedNow, testIDGenerator())
		if err != nil {
			t.Fatalf("add activity: %v", err)
		}
	}

	_, err = definition.Attempt(p, ActionSubmitForReview, workflow.Attempt{Actor: planner(t)})
	var domainErr *apperrors.Error
	if !errors.As(err, &domainErr) || domainErr.Code != apperrors.CodePreconditionNotMet {
		t.Fatalf("err = %v, want PRECONDITION_NOT_MET", err)
	}
	if domainErr.Message != "requires budget > 0" {
		t.Fatalf("message = %q, want budget precondition text", domainErr.Message)
	}
}

func TestSubmitWithoutActivitiesFailsPrecondition(t *testing.T) {
	definition := projectWorkflow(t)
	p := draftProject(t)

	_, err := definition.Attempt(p, ActionSubmitForReview, workflow.Attempt{Actor: planner(t)})
	var domainErr *apperrors.Error
	if !errors.As(err, &domainErr) || domainErr.Code != apperrors.CodePreconditionNotMet {
		t.Fatalf("err = %v, want PRECONDITION_NOT_MET", err)
	}
	if domainErr.Message != "requires at least one activity" {
		t.Fatalf("message = %q, want activity precondition text", domainErr.Message)
	}
}

func TestSubmitCompleteProjectSucceeds(t *testing.T) {
	definition := projectWorkflow(t)
	p := draftProject(t)
	p, err := AddActivity(p, ActivityInput{Name: "Obra civil"}, fixedNow, testIDGenerator())
	if err != nil {
		t.Fatalf("add activity: %v", err)
	}

	result, err := definition.Attempt(p, ActionSubmitForReview, workflow.Attempt{Actor: planner(t)})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.To != StateEnviado {
		t.Fatalf("to = %s, want Enviado", result.To)
	}

	moved := ApplyTransition(p, result, fixedNow)
	if moved.State != StateEnviado {
		t.Fatalf("state = %s, want Enviado", moved.State)
	}
}

func TestReviewerApprovesAndRejects(t *testing.T) {
	definition := projectWorkflow(t)
	p := draftProject(t)
	p.State = StateEnviado

	result, err := definition.Attempt(p, ActionApprove, workflow.Attempt{Actor: reviewer(t)})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if result.Record == nil || result.To != StateAprobado {
		t.Fatalf("approve result = %+v, want decision record and Aprobado", result)
	}

	result, err = definition.Attempt(p, ActionReject, workflow.Attempt{
		Actor:         reviewer(t),
		Justification: "Presupuesto insuficiente",
	})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	rejected := ApplyTransition(p, result, fixedNow)

	result, err = definition.Attempt(rejected, ActionEdit, workflow.Attempt{Actor: planner(t)})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if result.To != StateBorrador {
		t.Fatalf("to = %s, want Borrador", result.To)
	}
}

func TestRejectWithoutJustificationFails(t *testing.T) {
	definition := projectWorkflow(t)
	p := draftProject(t)
	p.State = StateEnviado

	if _, err := definition.Attempt(p, ActionReject, workflow.Attempt{Actor: reviewer(t)}); !errors.Is(err, apperrors.New(apperrors.CodeJustificationRequired, "")) {
		t.Fatalf("err = %v, want JUSTIFICATION_REQUIRED", err)
	}
}

func TestPlannerCannotApprove(t *testing.T) {
	definition := projectWorkflow(t)
	p := draftProject(t)
	p.State = StateEnviado

	if _, err := definition.Attempt(p, ActionApprove, workflow.Attempt{Actor: planner(t)}); !errors.Is(err, apperrors.New(apperrors.CodePermissionDenied, "")) {
		t.Fatalf("err = %v, want PERMISSION_DENIED", err)
	}
}

func TestApprovedIsTerminal(t *testing.T) {
	definition := projectWorkflow(t)
	p := draftProject(t)
	p.State = StateAprobado

	for _, action := range []workflow.Action{ActionSubmitForReview, ActionApprove, ActionReject, ActionEdit} {
		if _, err := definition.Attempt(p, action, workflow.Attempt{Actor: reviewer(t), Justification: "x"}); !errors.Is(err, apperrors.New(apperrors.CodeInvalidTransition, "")) {
			t.Fatalf("action %s: err = %v, want INVALID_TRANSITION", action, err)
		}
	}
}

func TestStateFromLabel(t *testing.T) {
	if state, ok := StateFromLabel(" enviado "); !ok || state != StateEnviado {
		t.Fatalf("StateFromLabel = %v/%v", state, ok)
	}
	if _, ok := StateFromLabel("Cancelado"); ok {
		t.Fatal("expected unknown state to be rejected")
	}
}
