package principal

import (
	"errors"
	"testing"

	apperrors "github.com/planifica/sigep/internal/platform/errors"
)

func TestNewCollapsesDuplicateRoles(t *testing.T) {
	p, err := New("user-1", RolePlanif, RolePlanif, RoleConsul)
	if err != nil {
		t.Fatalf("new principal: %v", err)
	}
	roles := p.Roles()
	if len(roles) != 2 {
		t.Fatalf("roles = %v, want 2 distinct entries", roles)
	}
	if !p.HasRole(RolePlanif) || !p.HasRole(RoleConsul) {
		t.Fatal("expected both roles present")
	}
	if p.HasRole(RoleAdmin) {
		t.Fatal("unexpected admin role")
	}
}

func TestNewRequiresID(t *testing.T) {
	_, err := New("  ", RolePlanif)
	if !errors.Is(err, apperrors.New(apperrors.CodePrincipalEmptyID, "")) {
		t.Fatalf("err = %v, want PRINCIPAL_EMPTY_ID", err)
	}
}

func TestZeroRolePrincipalIsValid(t *testing.T) {
	p, err := New("user-2")
	if err != nil {
		t.Fatalf("new principal: %v", err)
	}
	if len(p.Roles()) != 0 {
		t.Fatalf("roles = %v, want none", p.Roles())
	}
}

func TestRoleFromLabel(t *testing.T) {
	tests := []struct {
		label   string
		want    Role
		wantErr bool
	}{
		{"ADMIN", RoleAdmin, false},
		{" planif ", RolePlanif, false},
		{"revisor", RoleRevisor, false},
		{"VALID", RoleValid, false},
		{"auditor", RoleAuditor, false},
		{"Consul", RoleConsul, false},
		{"", "", true},
		{"SUPERUSER", "", true},
	}
	for _, tt := range tests {
		got, err := RoleFromLabel(tt.label)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("RoleFromLabel(%q) expected error", tt.label)
			}
			continue
		}
		if err != nil {
			t.Fatalf("RoleFromLabel(%q): %v", tt.label, err)
		}
		if got != tt.want {
			t.Fatalf("RoleFromLabel(%q) = %v, want %v", tt.label, got, tt.want)
		}
	}
}
