package http

import (
	"net/http"
	"time"

	"github.com/planifica/sigep/internal/services/planning/domain/decision"
	"github.com/planifica/sigep/internal/services/planning/domain/objective"
	"github.com/planifica/sigep/internal/services/planning/domain/workflow"
)

type goalPayload struct {
	ID           string  `json:"id"`
	TargetValue  float64 `json:"target_value"`
	CurrentValue float64 `json:"current_value"`
	Unit         string  `json:"unit"`
	Periodicity  string  `json:"periodicity"`
}

type objectivePayload struct {
	ID              string        `json:"id"`
	Code            string        `json:"code"`
	Name            string        `json:"name"`
	Description     string        `json:"description,omitempty"`
	ResponsibleArea string        `json:"responsible_area,omitempty"`
	Priority        string        `json:"priority"`
	State           string        `json:"state"`
	PNDAlignment    string        `json:"pnd_alignment,omitempty"`
	ODSAlignment    string        `json:"ods_alignment,omitempty"`
	Active          bool          `json:"active"`
	Goals           []goalPayload `json:"goals"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

func objectiveToPayload(obj objective.Objective) objectivePayload {
	goals := make([]goalPayload, 0, len(obj.Goals))
	for _, goal := range obj.Goals {
		goals = append(goals, goalPayload{
			ID:           goal.ID,
			TargetValue:  goal.TargetValue,
			CurrentValue: goal.CurrentValue,
			Unit:         goal.Unit,
			Periodicity:  string(goal.Periodicity),
		})
	}
	return objectivePayload{
		ID:              obj.ID,
		Code:            obj.Code,
		Name:            obj.Name,
		Description:     obj.Description,
		ResponsibleArea: obj.ResponsibleArea,
		Priority:        string(obj.Priority),
		State:           string(obj.State),
		PNDAlignment:    obj.PNDAlignment,
		ODSAlignment:    obj.ODSAlignment,
		Active:          obj.Active,
		Goals:           goals,
		CreatedAt:       obj.CreatedAt,
		UpdatedAt:       obj.UpdatedAt,
	}
}

type objectiveRequest struct {
	Code            string `json:"code"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	ResponsibleArea string `json:"responsible_area"`
	Priority        string `json:"priority"`
	PNDAlignment    string `json:"pnd_alignment"`
	ODSAlignment    string `json:"ods_alignment"`
}

func (h *Handler) handleCreateObjective(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	var body objectiveRequest
	if !decodeBody(w, r, &body) {
		return
	}

	obj, err := h.svc.CreateObjective(r.Context(), actor, objective.CreateInput{
		Code:            body.Code,
		Name:            body.Name,
		Description:     body.Description,
		ResponsibleArea: body.ResponsibleArea,
		Priority:        objective.Priority(body.Priority),
		PNDAlignment:    body.PNDAlignment,
		ODSAlignment:    body.ODSAlignment,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, objectiveToPayload(obj))
}

func (h *Handler) handleListObjectives(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	objectives, err := h.svc.ListObjectives(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	payloads := make([]objectivePayload, 0, len(objectives))
	for _, obj := range objectives {
		payloads = append(payloads, objectiveToPayload(obj))
	}
	writeJSON(w, http.StatusOK, map[string]any{"objectives": payloads})
}

func (h *Handler) handleGetObjective(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	obj, err := h.svc.GetObjective(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, objectiveToPayload(obj))
}

func (h *Handler) handleUpdateObjective(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	var body objectiveRequest
	if !decodeBody(w, r, &body) {
		return
	}

	obj, err := h.svc.UpdateObjectiveDraft(r.Context(), actor, r.PathValue("id"), objective.UpdateDraftInput{
		Code:            body.Code,
		Name:            body.Name,
		Description:     body.Description,
		ResponsibleArea: body.ResponsibleArea,
		Priority:        objective.Priority(body.Priority),
		PNDAlignment:    body.PNDAlignment,
		ODSAlignment:    body.ODSAlignment,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, objectiveToPayload(obj))
}

type goalRequest struct {
	TargetValue float64 `json:"target_value"`
	Unit        string  `json:"unit"`
	Periodicity string  `json:"periodicity"`
}

func (h *Handler) handleAddGoal(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	var body goalRequest
	if !decodeBody(w, r, &body) {
		return
	}

	obj, err := h.svc.AddObjectiveGoal(r.Context(), actor, r.PathValue("id"), objective.GoalInput{
		TargetValue: body.TargetValue,
		Unit:        body.Unit,
		Periodicity: objective.Periodicity(body.Periodicity),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, objectiveToPayload(obj))
}

type actionRequest struct {
	Justification string `json:"justification"`
}

func (h *Handler) handleObjectiveAction(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	var body actionRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &body) {
		return
	}

	obj, err := h.svc.ObjectiveAction(r.Context(), actor, r.PathValue("id"), workflow.Action(r.PathValue("action")), body.Justification)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, objectiveToPayload(obj))
}

func (h *Handler) handleObjectiveActions(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	actions, err := h.svc.ObjectiveActions(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"actions": actions})
}

func (h *Handler) handleDeactivateObjective(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	obj, err := h.svc.DeactivateObjective(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, objectiveToPayload(obj))
}

func (h *Handler) handleReactivateObjective(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	obj, err := h.svc.ReactivateObjective(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, objectiveToPayload(obj))
}

func (h *Handler) handleObjectiveDecisions(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	records, err := h.svc.ListDecisions(r.Context(), actor, decision.EntityTypeObjective, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"decisions": decisionsToPayload(records)})
}
