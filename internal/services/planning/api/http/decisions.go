package http

import (
	"net/http"
	"time"

	"github.com/planifica/sigep/internal/services/planning/storage"
)

type decisionPayload struct {
	ID            string    `json:"id"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Outcome       string    `json:"outcome"`
	Justification string    `json:"justification,omitempty"`
	DecidedBy     string    `json:"decided_by"`
	DecidedAt     time.Time `json:"decided_at"`
}

func decisionsToPayload(records []storage.DecisionRecord) []decisionPayload {
	payloads := make([]decisionPayload, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, decisionPayload{
			ID:            record.ID,
			EntityType:    record.EntityType,
			EntityID:      record.EntityID,
			Outcome:       record.Outcome,
			Justification: record.Justification,
			DecidedBy:     record.DecidedBy,
			DecidedAt:     record.DecidedAt,
		})
	}
	return payloads
}

func (h *Handler) handleSearchDecisions(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}
	records, err := h.svc.SearchDecisions(r.Context(), actor, storage.DecisionQuery{
		Filter: r.URL.Query().Get("filter"),
		Limit:  limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"decisions": decisionsToPayload(records)})
}

func (h *Handler) handleExportDecisions(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}
	records, err := h.svc.ExportDecisions(r.Context(), actor, storage.DecisionQuery{
		Filter: r.URL.Query().Get("filter"),
		Limit:  limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"decisions": decisionsToPayload(records)})
}
