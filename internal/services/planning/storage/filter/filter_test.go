package filter

import (
	"reflect"
	"testing"
	"time"
)

func TestParseDecisionFilter_OutcomeEquals(t *testing.T) {
	cond, err := ParseDecisionFilter(`outcome = "RECHAZADO"`)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if cond.Clause != "outcome = ?" {
		t.Errorf("expected 'outcome = ?', got %q", cond.Clause)
	}
	if len(cond.Params) != 1 {
		t.Fatalf("expected 1 param, got %d", len(cond.Params))
	}
	if cond.Params[0] != "RECHAZADO" {
		t.Errorf("expected 'RECHAZADO', got %v", cond.Params[0])
	}
}

func TestParseDecisionFilter_Empty(t *testing.T) {
	cond, err := ParseDecisionFilter(" ")
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if cond.Clause != "" || cond.Params != nil {
		t.Fatalf("expected empty condition, got %+v", cond)
	}
}

func TestParseDecisionFilter_AndOr(t *testing.T) {
	cond, err := ParseDecisionFilter(`entity_type = "objective" AND decided_by = "valid-1"`)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if cond.Clause != "(entity_type = ? AND decided_by = ?)" {
		t.Fatalf("Clause = %q", cond.Clause)
	}
	if !reflect.DeepEqual(cond.Params, []any{"objective", "valid-1"}) {
		t.Fatalf("Params = %v", cond.Params)
	}

	cond, err = ParseDecisionFilter(`outcome = "APROBADO" OR outcome = "RECHAZADO"`)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if cond.Clause != "(outcome = ? OR outcome = ?)" {
		t.Fatalf("Clause = %q", cond.Clause)
	}
}

func TestParseDecisionFilter_TimestampMillis(t *testing.T) {
	cond, err := ParseDecisionFilter(`ts > timestamp("2026-01-01T00:00:00Z")`)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	if cond.Clause != "decided_at > ?" {
		t.Fatalf("Clause = %q", cond.Clause)
	}
	want := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	if len(cond.Params) != 1 || cond.Params[0] != want {
		t.Fatalf("Params = %v, want [%d]", cond.Params, want)
	}
}

func TestParseDecisionFilter_InvalidField(t *testing.T) {
	_, err := ParseDecisionFilter(`unknown = "x"`)
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseDecisionFilter_InvalidValueFunc(t *testing.T) {
	_, err := ParseDecisionFilter(`ts = duration("1h")`)
	if err == nil {
		t.Fatal("expected error for unsupported value function")
	}
}

func TestParseDecisionFilter_InvalidTimestamp(t *testing.T) {
	_, err := ParseDecisionFilter(`ts = timestamp("not-a-time")`)
	if err == nil {
		t.Fatal("expected error for invalid timestamp")
	}
}
