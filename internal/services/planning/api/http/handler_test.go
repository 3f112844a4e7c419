package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apperrors "github.com/planifica/sigep/internal/platform/errors"
	"github.com/planifica/sigep/internal/services/planning/app"
	"github.com/planifica/sigep/internal/services/planning/domain/principal"
	planningsqlite "github.com/planifica/sigep/internal/services/planning/storage/sqlite"
)

var testTokens = map[string][]principal.Role{
	"planner-token":   {principal.RolePlanif},
	"validator-token": {principal.RoleValid},
	"reviewer-token":  {principal.RoleRevisor},
	"auditor-token":   {principal.RoleAuditor},
	"consultor-token": {principal.RoleConsul},
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	store, err := planningsqlite.Open(t.TempDir() + "/planning.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})

	counter := 0
	svc, err := app.NewService(store,
		app.WithClock(func() time.Time {
			return time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)
		}),
		app.WithIDGenerator(func() (string, error) {
			counter++
			return fmt.Sprintf("id-%03d", counter), nil
		}),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	verify := func(token string) (principal.Principal, error) {
		roles, ok := testTokens[token]
		if !ok {
			return principal.Principal{}, apperrors.New(apperrors.CodeAuthTokenInvalid, "token is not recognized")
		}
		return principal.New(strings.TrimSuffix(token, "-token"), roles...)
	}

	handler, err := NewHandler(svc, verify)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	mux := http.NewServeMux()
	handler.Routes(mux)
	return mux
}

func doRequest(t *testing.T, handler http.Handler, token, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func decodeResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("decode response %q: %v", recorder.Body.String(), err)
	}
}

func errorCode(t *testing.T, recorder *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decodeResponse(t, recorder, &payload)
	return payload.Error.Code
}

func TestMissingTokenReturnsUnauthorized(t *testing.T) {
	handler := newTestHandler(t)

	recorder := doRequest(t, handler, "", http.MethodGet, "/v1/objectives", nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
	if code := errorCode(t, recorder); code != string(apperrors.CodeAuthTokenInvalid) {
		t.Errorf("expected %s, got %s", apperrors.CodeAuthTokenInvalid, code)
	}
}

func TestUnknownTokenReturnsUnauthorized(t *testing.T) {
	handler := newTestHandler(t)

	recorder := doRequest(t, handler, "forged-token", http.MethodGet, "/v1/objectives", nil)
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", recorder.Code)
	}
}

func TestConsultorCannotCreateObjective(t *testing.T) {
	handler := newTestHandler(t)

	recorder := doRequest(t, handler, "consultor-token", http.MethodPost, "/v1/objectives", map[string]any{
		"code":     "OBJ-2026-001",
		"name":     "Cobertura digital",
		"priority": "ALTA",
	})
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if code := errorCode(t, recorder); code != string(apperrors.CodePermissionDenied) {
		t.Errorf("expected %s, got %s", apperrors.CodePermissionDenied, code)
	}
}

func TestObjectiveLifecycleOverHTTP(t *testing.T) {
	handler := newTestHandler(t)

	created := doRequest(t, handler, "planner-token", http.MethodPost, "/v1/objectives", map[string]any{
		"code":     "OBJ-2026-001",
		"name":     "Cobertura digital",
		"priority": "ALTA",
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("create objective: expected 201, got %d: %s", created.Code, created.Body.String())
	}
	var obj struct {
		ID    string `json:"id"`
		State string `json:"state"`
	}
	decodeResponse(t, created, &obj)
	if obj.State != "BORRADOR" {
		t.Fatalf("expected BORRADOR, got %s", obj.State)
	}

	goalAdded := doRequest(t, handler, "planner-token", http.MethodPost, "/v1/objectives/"+obj.ID+"/goals", map[string]any{
		"target_value": 80,
		"unit":         "%",
		"periodicity":  "TRIMESTRAL",
	})
	if goalAdded.Code != http.StatusOK {
		t.Fatalf("add goal: expected 200, got %d: %s", goalAdded.Code, goalAdded.Body.String())
	}

	submitted := doRequest(t, handler, "planner-token", http.MethodPost, "/v1/objectives/"+obj.ID+"/actions/submitForValidation", nil)
	if submitted.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d: %s", submitted.Code, submitted.Body.String())
	}
	decodeResponse(t, submitted, &obj)
	if obj.State != "EN_VALIDACION" {
		t.Fatalf("expected EN_VALIDACION, got %s", obj.State)
	}

	rejected := doRequest(t, handler, "validator-token", http.MethodPost, "/v1/objectives/"+obj.ID+"/actions/reject", map[string]any{
		"justification": "Faltan indicadores",
	})
	if rejected.Code != http.StatusOK {
		t.Fatalf("reject: expected 200, got %d: %s", rejected.Code, rejected.Body.String())
	}
	decodeResponse(t, rejected, &obj)
	if obj.State != "RECHAZADO" {
		t.Fatalf("expected RECHAZADO, got %s", obj.State)
	}

	history := doRequest(t, handler, "planner-token", http.MethodGet, "/v1/objectives/"+obj.ID+"/decisions", nil)
	if history.Code != http.StatusOK {
		t.Fatalf("decisions: expected 200, got %d: %s", history.Code, history.Body.String())
	}
	var decisions struct {
		Decisions []struct {
			Outcome       string `json:"outcome"`
			Justification string `json:"justification"`
			DecidedBy     string `json:"decided_by"`
		} `json:"decisions"`
	}
	decodeResponse(t, history, &decisions)
	if len(decisions.Decisions) != 1 {
		t.Fatalf("expected 1 decision, got %d", len(decisions.Decisions))
	}
	if decisions.Decisions[0].Outcome != "RECHAZADO" {
		t.Errorf("expected RECHAZADO outcome, got %s", decisions.Decisions[0].Outcome)
	}
	if decisions.Decisions[0].DecidedBy != "validator" {
		t.Errorf("expected validator, got %s", decisions.Decisions[0].DecidedBy)
	}
}

func TestRejectWithoutJustificationFails(t *testing.T) {
	handler := newTestHandler(t)

	var obj struct {
		ID string `json:"id"`
	}
	created := doRequest(t, handler, "planner-token", http.MethodPost, "/v1/objectives", map[string]any{
		"code":     "OBJ-2026-002",
		"name":     "Mejorar recaudacion",
		"priority": "MEDIA",
	})
	decodeResponse(t, created, &obj)
	doRequest(t, handler, "planner-token", http.MethodPost, "/v1/objectives/"+obj.ID+"/goals", map[string]any{
		"target_value": 10,
		"unit":         "puntos",
		"periodicity":  "ANUAL",
	})
	doRequest(t, handler, "planner-token", http.MethodPost, "/v1/objectives/"+obj.ID+"/actions/submitForValidation", nil)

	rejected := doRequest(t, handler, "validator-token", http.MethodPost, "/v1/objectives/"+obj.ID+"/actions/reject", nil)
	if rejected.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rejected.Code, rejected.Body.String())
	}
	if code := errorCode(t, rejected); code != string(apperrors.CodeJustificationRequired) {
		t.Errorf("expected %s, got %s", apperrors.CodeJustificationRequired, code)
	}
}

func TestSubmitProjectWithoutBudgetConflicts(t *testing.T) {
	handler := newTestHandler(t)

	var proj struct {
		ID string `json:"id"`
	}
	created := doRequest(t, handler, "planner-token", http.MethodPost, "/v1/projects", map[string]any{
		"code":           "PRY-2026-001",
		"name":           "Red vial cantonal",
		"total_budget":   0,
		"responsible_id": "user-responsible",
	})
	if created.Code != http.StatusCreated {
		t.Fatalf("create project: expected 201, got %d: %s", created.Code, created.Body.String())
	}
	decodeResponse(t, created, &proj)

	added := doRequest(t, handler, "planner-token", http.MethodPost, "/v1/projects/"+proj.ID+"/activities", map[string]any{
		"name": "Topografia",
	})
	if added.Code != http.StatusOK {
		t.Fatalf("add activity: expected 200, got %d: %s", added.Code, added.Body.String())
	}

	submitted := doRequest(t, handler, "planner-token", http.MethodPost, "/v1/projects/"+proj.ID+"/actions/submitForReview", nil)
	if submitted.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", submitted.Code, submitted.Body.String())
	}
	if code := errorCode(t, submitted); code != string(apperrors.CodePreconditionNotMet) {
		t.Errorf("expected %s, got %s", apperrors.CodePreconditionNotMet, code)
	}
}

func TestProjectApprovalOverHTTP(t *testing.T) {
	handler := newTestHandler(t)

	var proj struct {
		ID    string `json:"id"`
		State string `json:"state"`
	}
	created := doRequest(t, handler, "planner-token", http.MethodPost, "/v1/projects", map[string]any{
		"code":           "PRY-2026-002",
		"name":           "Acueducto rural",
		"total_budget":   250000,
		"responsible_id": "user-responsible",
	})
	decodeResponse(t, created, &proj)

	doRequest(t, handler, "planner-token", http.MethodPost, "/v1/projects/"+proj.ID+"/activities", map[string]any{
		"name": "Estudios previos",
	})
	doRequest(t, handler, "planner-token", http.MethodPost, "/v1/projects/"+proj.ID+"/allocations", map[string]any{
		"source": "presupuesto ordinario",
		"amount": 250000,
	})

	submitted := doRequest(t, handler, "planner-token", http.MethodPost, "/v1/projects/"+proj.ID+"/actions/submitForReview", nil)
	if submitted.Code != http.StatusOK {
		t.Fatalf("submit: expected 200, got %d: %s", submitted.Code, submitted.Body.String())
	}

	approved := doRequest(t, handler, "reviewer-token", http.MethodPost, "/v1/projects/"+proj.ID+"/actions/approve", nil)
	if approved.Code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d: %s", approved.Code, approved.Body.String())
	}
	decodeResponse(t, approved, &proj)
	if proj.State != "Aprobado" {
		t.Fatalf("expected Aprobado, got %s", proj.State)
	}
}

func TestCapabilityFlagsEndpoint(t *testing.T) {
	handler := newTestHandler(t)

	recorder := doRequest(t, handler, "planner-token", http.MethodGet, "/v1/modules/gestionObjetivos/capabilities", nil)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	var payload struct {
		Module       string          `json:"module"`
		Capabilities map[string]bool `json:"capabilities"`
	}
	decodeResponse(t, recorder, &payload)
	if payload.Module != "gestionObjetivos" {
		t.Errorf("expected gestionObjetivos, got %s", payload.Module)
	}
	if !payload.Capabilities["registerEdit"] {
		t.Error("expected registerEdit to be granted")
	}
	if payload.Capabilities["validate"] {
		t.Error("expected validate to be denied")
	}
}

func TestUnknownModuleCapabilitiesNotFound(t *testing.T) {
	handler := newTestHandler(t)

	recorder := doRequest(t, handler, "planner-token", http.MethodGet, "/v1/modules/contabilidad/capabilities", nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", recorder.Code, recorder.Body.String())
	}
}

func TestSearchDecisionsRequiresAuditorOverHTTP(t *testing.T) {
	handler := newTestHandler(t)

	denied := doRequest(t, handler, "planner-token", http.MethodGet, "/v1/decisions", nil)
	if denied.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", denied.Code, denied.Body.String())
	}

	allowed := doRequest(t, handler, "auditor-token", http.MethodGet, "/v1/decisions?filter="+`outcome%3D%22APROBADO%22`, nil)
	if allowed.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", allowed.Code, allowed.Body.String())
	}

	invalid := doRequest(t, handler, "auditor-token", http.MethodGet, "/v1/decisions?filter=nonsense%28", nil)
	if invalid.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", invalid.Code, invalid.Body.String())
	}
	if code := errorCode(t, invalid); code != string(apperrors.CodeFilterInvalid) {
		t.Errorf("expected %s, got %s", apperrors.CodeFilterInvalid, code)
	}
}

func TestMalformedBodyReportsUnknown(t *testing.T) {
	handler := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/objectives", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer planner-token")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if code := errorCode(t, recorder); code != string(apperrors.CodeUnknown) {
		t.Errorf("expected %s, got %s", apperrors.CodeUnknown, code)
	}
}

func TestSearchDecisionsRejectsBadLimit(t *testing.T) {
	handler := newTestHandler(t)

	for _, limit := range []string{"abc", "-5", "1.5"} {
		recorder := doRequest(t, handler, "auditor-token", http.MethodGet, "/v1/decisions?limit="+limit, nil)
		if recorder.Code != http.StatusBadRequest {
			t.Fatalf("limit %q: expected 400, got %d: %s", limit, recorder.Code, recorder.Body.String())
		}
		if code := errorCode(t, recorder); code != string(apperrors.CodeLimitInvalid) {
			t.Errorf("limit %q: expected %s, got %s", limit, apperrors.CodeLimitInvalid, code)
		}
	}

	valid := doRequest(t, handler, "auditor-token", http.MethodGet, "/v1/decisions?limit=10", nil)
	if valid.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", valid.Code, valid.Body.String())
	}
}

func TestGetMissingObjectiveReturnsNotFound(t *testing.T) {
	handler := newTestHandler(t)

	recorder := doRequest(t, handler, "planner-token", http.MethodGet, "/v1/objectives/ghost", nil)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", recorder.Code, recorder.Body.String())
	}
}
