package http

import (
	"net/http"
	"time"

	"github.com/planifica/sigep/internal/services/planning/domain/decision"
	"github.com/planifica/sigep/internal/services/planning/domain/project"
	"github.com/planifica/sigep/internal/services/planning/domain/workflow"
)

type activityPayload struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

type allocationPayload struct {
	ID     string  `json:"id"`
	Source string  `json:"source"`
	Amount float64 `json:"amount"`
}

type projectPayload struct {
	ID            string              `json:"id"`
	Code          string              `json:"code"`
	Name          string              `json:"name"`
	TotalBudget   float64             `json:"total_budget"`
	State         string              `json:"state"`
	ResponsibleID string              `json:"responsible_id"`
	SupervisorID  string              `json:"supervisor_id,omitempty"`
	Activities    []activityPayload   `json:"activities"`
	Allocations   []allocationPayload `json:"allocations"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func projectToPayload(p project.Project) projectPayload {
	activities := make([]activityPayload, 0, len(p.Activities))
	for _, activity := range p.Activities {
		payload := activityPayload{ID: activity.ID, Name: activity.Name}
		if !activity.StartDate.IsZero() {
			start := activity.StartDate
			payload.StartDate = &start
		}
		if !activity.EndDate.IsZero() {
			end := activity.EndDate
			payload.EndDate = &end
		}
		activities = append(activities, payload)
	}
	allocations := make([]allocationPayload, 0, len(p.Allocations))
	for _, allocation := range p.Allocations {
		allocations = append(allocations, allocationPayload{
			ID:     allocation.ID,
			Source: allocation.Source,
			Amount: allocation.Amount,
		})
	}
	return projectPayload{
		ID:            p.ID,
		Code:          p.Code,
		Name:          p.Name,
		TotalBudget:   p.TotalBudget,
		State:         string(p.State),
		ResponsibleID: p.ResponsibleID,
		SupervisorID:  p.SupervisorID,
		Activities:    activities,
		Allocations:   allocations,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

type projectRequest struct {
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	TotalBudget   float64 `json:"total_budget"`
	ResponsibleID string  `json:"responsible_id"`
	SupervisorID  string  `json:"supervisor_id"`
}

func (h *Handler) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	var body projectRequest
	if !decodeBody(w, r, &body) {
		return
	}

	p, err := h.svc.CreateProject(r.Context(), actor, project.CreateInput{
		Code:          body.Code,
		Name:          body.Name,
		TotalBudget:   body.TotalBudget,
		ResponsibleID: body.ResponsibleID,
		SupervisorID:  body.SupervisorID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, projectToPayload(p))
}

func (h *Handler) handleListProjects(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	projects, err := h.svc.ListProjects(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	payloads := make([]projectPayload, 0, len(projects))
	for _, p := range projects {
		payloads = append(payloads, projectToPayload(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": payloads})
}

func (h *Handler) handleGetProject(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	p, err := h.svc.GetProject(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projectToPayload(p))
}

func (h *Handler) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	var body projectRequest
	if !decodeBody(w, r, &body) {
		return
	}

	p, err := h.svc.UpdateProjectDraft(r.Context(), actor, r.PathValue("id"), project.UpdateDraftInput{
		Code:          body.Code,
		Name:          body.Name,
		TotalBudget:   body.TotalBudget,
		ResponsibleID: body.ResponsibleID,
		SupervisorID:  body.SupervisorID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projectToPayload(p))
}

type activityRequest struct {
	Name      string     `json:"name"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

func (h *Handler) handleAddActivity(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	var body activityRequest
	if !decodeBody(w, r, &body) {
		return
	}

	input := project.ActivityInput{Name: body.Name}
	if body.StartDate != nil {
		input.StartDate = *body.StartDate
	}
	if body.EndDate != nil {
		input.EndDate = *body.EndDate
	}
	p, err := h.svc.AddProjectActivity(r.Context(), actor, r.PathValue("id"), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projectToPayload(p))
}

type allocationRequest struct {
	Source string  `json:"source"`
	Amount float64 `json:"amount"`
}

func (h *Handler) handleAddAllocation(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	var body allocationRequest
	if !decodeBody(w, r, &body) {
		return
	}

	p, err := h.svc.AddProjectAllocation(r.Context(), actor, r.PathValue("id"), project.AllocationInput{
		Source: body.Source,
		Amount: body.Amount,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projectToPayload(p))
}

func (h *Handler) handleProjectAction(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	var body actionRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &body) {
		return
	}

	p, err := h.svc.ProjectAction(r.Context(), actor, r.PathValue("id"), workflow.Action(r.PathValue("action")), body.Justification)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projectToPayload(p))
}

func (h *Handler) handleProjectActions(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	actions, err := h.svc.ProjectActions(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"actions": actions})
}

func (h *Handler) handleProjectDecisions(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	records, err := h.svc.ListDecisions(r.Context(), actor, decision.EntityTypeProject, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"decisions": decisionsToPayload(records)})
}
