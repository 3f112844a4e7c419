// Package http exposes the planning service as a JSON HTTP API.
package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/planifica/sigep/internal/platform/errors"
	"github.com/planifica/sigep/internal/services/planning/app"
	"github.com/planifica/sigep/internal/services/planning/domain/authz"
	"github.com/planifica/sigep/internal/services/planning/domain/principal"
	"google.golang.org/grpc/codes"
)

// TokenVerifier resolves a bearer token into the calling principal.
type TokenVerifier func(token string) (principal.Principal, error)

// Handler routes planning HTTP requests to the application service.
type Handler struct {
	svc    *app.Service
	verify TokenVerifier
}

// NewHandler builds a planning HTTP handler.
func NewHandler(svc *app.Service, verify TokenVerifier) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("service is required")
	}
	if verify == nil {
		return nil, errors.New("token verifier is required")
	}
	return &Handler{svc: svc, verify: verify}, nil
}

// Routes registers every planning route on the mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc(http.MethodPost+" /v1/objectives", h.handleCreateObjective)
	mux.HandleFunc(http.MethodGet+" /v1/objectives", h.handleListObjectives)
	mux.HandleFunc(http.MethodGet+" /v1/objectives/{id}", h.handleGetObjective)
	mux.HandleFunc(http.MethodPatch+" /v1/objectives/{id}", h.handleUpdateObjective)
	mux.HandleFunc(http.MethodPost+" /v1/objectives/{id}/goals", h.handleAddGoal)
	mux.HandleFunc(http.MethodPost+" /v1/objectives/{id}/actions/{action}", h.handleObjectiveAction)
	mux.HandleFunc(http.MethodGet+" /v1/objectives/{id}/actions", h.handleObjectiveActions)
	mux.HandleFunc(http.MethodPost+" /v1/objectives/{id}/deactivate", h.handleDeactivateObjective)
	mux.HandleFunc(http.MethodPost+" /v1/objectives/{id}/reactivate", h.handleReactivateObjective)
	mux.HandleFunc(http.MethodGet+" /v1/objectives/{id}/decisions", h.handleObjectiveDecisions)

	mux.HandleFunc(http.MethodPost+" /v1/projects", h.handleCreateProject)
	mux.HandleFunc(http.MethodGet+" /v1/projects", h.handleListProjects)
	mux.HandleFunc(http.MethodGet+" /v1/projects/{id}", h.handleGetProject)
	mux.HandleFunc(http.MethodPatch+" /v1/projects/{id}", h.handleUpdateProject)
	mux.HandleFunc(http.MethodPost+" /v1/projects/{id}/activities", h.handleAddActivity)
	mux.HandleFunc(http.MethodPost+" /v1/projects/{id}/allocations", h.handleAddAllocation)
	mux.HandleFunc(http.MethodPost+" /v1/projects/{id}/actions/{action}", h.handleProjectAction)
	mux.HandleFunc(http.MethodGet+" /v1/projects/{id}/actions", h.handleProjectActions)
	mux.HandleFunc(http.MethodGet+" /v1/projects/{id}/decisions", h.handleProjectDecisions)

	mux.HandleFunc(http.MethodGet+" /v1/modules/{module}/capabilities", h.handleCapabilities)
	mux.HandleFunc(http.MethodGet+" /v1/decisions", h.handleSearchDecisions)
	mux.HandleFunc(http.MethodGet+" /v1/decisions/export", h.handleExportDecisions)
}

// requirePrincipal authenticates the request's bearer token.
func (h *Handler) requirePrincipal(w http.ResponseWriter, r *http.Request) (principal.Principal, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		writeError(w, apperrors.New(apperrors.CodeAuthTokenInvalid, "bearer token is required"))
		return principal.Principal{}, false
	}
	actor, err := h.verify(strings.TrimSpace(token))
	if err != nil {
		writeError(w, err)
		return principal.Principal{}, false
	}
	return actor, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeUnknown, "invalid request body", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write response: %v", err)
	}
}

type errorPayload struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// writeError renders a domain error with a status derived from its code.
func writeError(w http.ResponseWriter, err error) {
	var domainErr *apperrors.Error
	if !errors.As(err, &domainErr) {
		log.Printf("internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]errorPayload{
			"error": {Code: string(apperrors.CodeUnknown), Message: "internal error"},
		})
		return
	}
	writeJSON(w, httpStatus(domainErr.Code), map[string]errorPayload{
		"error": {
			Code:     string(domainErr.Code),
			Message:  domainErr.Message,
			Metadata: domainErr.Metadata,
		},
	})
}

// httpStatus maps domain error codes to HTTP statuses through their gRPC
// equivalents so both surfaces stay consistent.
func httpStatus(code apperrors.Code) int {
	switch code.GRPCCode() {
	case codes.InvalidArgument:
		return http.StatusBadRequest
	case codes.FailedPrecondition:
		return http.StatusConflict
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.NotFound:
		return http.StatusNotFound
	case codes.Aborted:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// handleCapabilities reports the actor's effective capability flags on a
// module so clients can enable or hide actions.
func (h *Handler) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requirePrincipal(w, r)
	if !ok {
		return
	}
	module, ok := authz.ModuleFromLabel(r.PathValue("module"))
	if !ok {
		writeError(w, apperrors.WithMetadata(apperrors.CodeNotFound, "unknown module",
			map[string]string{"Module": r.PathValue("module")}))
		return
	}

	flags := h.svc.CapabilityFlags(actor, module)
	payload := make(map[string]bool, len(flags))
	for capability, allowed := range flags {
		payload[string(capability)] = allowed
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"module":       string(module),
		"capabilities": payload,
	})
}

func parseLimit(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, apperrors.WithMetadata(apperrors.CodeLimitInvalid,
			"limit must be a non-negative integer",
			map[string]string{"Limit": raw})
	}
	return limit, nil
}
