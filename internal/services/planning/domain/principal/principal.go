// Package principal models the authenticated actor attempting planning actions.
//
// A principal is supplied by the authentication collaborator as an opaque
// identifier plus one or more role tags. The package owns the closed Role
// enumeration; what each role may do lives in the authz policy table.
package principal

import (
	"sort"
	"strings"

	apperrors "github.com/planifica/sigep/internal/platform/errors"
)

// Role identifies an institutional role held by a principal.
type Role string

const (
	// RoleAdmin grants the full capability set of every module.
	RoleAdmin Role = "ADMIN"
	// RolePlanif identifies a planner who registers objectives and projects.
	RolePlanif Role = "PLANIF"
	// RoleRevisor identifies a reviewer who decides on submitted projects.
	RoleRevisor Role = "REVISOR"
	// RoleValid identifies a validator who decides on submitted objectives.
	RoleValid Role = "VALID"
	// RoleAuditor identifies an auditor with system-wide read and audit access.
	RoleAuditor Role = "AUDITOR"
	// RoleConsul identifies a read-only consultation user.
	RoleConsul Role = "CONSUL"
)

// RoleFromLabel parses a string label into a Role. It trims whitespace and
// matches case-insensitively.
func RoleFromLabel(value string) (Role, error) {
	trimmed := strings.TrimSpace(value)
	switch strings.ToUpper(trimmed) {
	case string(RoleAdmin):
		return RoleAdmin, nil
	case string(RolePlanif):
		return RolePlanif, nil
	case string(RoleRevisor):
		return RoleRevisor, nil
	case string(RoleValid):
		return RoleValid, nil
	case string(RoleAuditor):
		return RoleAuditor, nil
	case string(RoleConsul):
		return RoleConsul, nil
	default:
		return "", apperrors.WithMetadata(
			apperrors.CodePrincipalInvalidRole,
			"role label is not recognized",
			map[string]string{"Role": trimmed},
		)
	}
}

// Roles returns every member of the closed role enumeration.
func Roles() []Role {
	return []Role{RoleAdmin, RolePlanif, RoleRevisor, RoleValid, RoleAuditor, RoleConsul}
}

// Principal is the authenticated actor. The zero value has no roles and,
// by the default-deny rule, no capability anywhere.
type Principal struct {
	ID    string
	roles map[Role]struct{}
}

// New builds a principal from an identifier and a set of role tags.
// Duplicate roles collapse; insertion order is irrelevant.
func New(id string, roles ...Role) (Principal, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Principal{}, apperrors.New(apperrors.CodePrincipalEmptyID, "principal id is required")
	}
	set := make(map[Role]struct{}, len(roles))
	for _, role := range roles {
		set[role] = struct{}{}
	}
	return Principal{ID: id, roles: set}, nil
}

// HasRole reports whether the principal holds the given role.
func (p Principal) HasRole(role Role) bool {
	_, ok := p.roles[role]
	return ok
}

// Roles returns the principal's roles in stable sorted order.
func (p Principal) Roles() []Role {
	out := make([]Role, 0, len(p.roles))
	for role := range p.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
