// Package authz defines the role/module capability matrix and its resolver.
//
// The package centralizes role capability resolution so transport handlers
// and screens can consult one evaluator instead of duplicating role checks.
// The matrix is static data: every (role, module) pair not listed resolves to
// the empty set, and read access is granted alongside every other capability
// at construction time so the consult-implication invariant holds by table
// shape rather than by resolver inference.
package authz

import "github.com/planifica/sigep/internal/services/planning/domain/principal"

// PolicyRow grants one capability to one role within one module.
type PolicyRow struct {
	Role       principal.Role
	Module     Module
	Capability Capability
}

// PolicyTable returns the full role/module capability matrix as rows.
//
// ADMIN is granted the complete capability subset of every module. Every
// grant of a non-consult capability carries consult for the same module.
func PolicyTable() []PolicyRow {
	var rows []PolicyRow

	grant := func(role principal.Role, module Module, capabilities ...Capability) {
		granted := NewSet(capabilities...)
		// Read access is implied by every write/decide capability.
		if len(granted) > 0 {
			granted[CapabilityConsult] = struct{}{}
		}
		for _, capability := range ModuleCapabilities(module) {
			if granted.Has(capability) {
				rows = append(rows, PolicyRow{Role: role, Module: module, Capability: capability})
			}
		}
	}

	for _, module := range Modules() {
		grant(principal.RoleAdmin, module, ModuleCapabilities(module)...)
	}

	grant(principal.RolePlanif, ModuleGestionObjetivos, CapabilityRegisterEdit, CapabilitySendToValidation)
	grant(principal.RolePlanif, ModuleProyectosInversion, CapabilityRegisterEdit, CapabilitySendToReview)
	grant(principal.RolePlanif, ModuleConfiguracionInstitucional, CapabilityConsult)
	grant(principal.RolePlanif, ModuleReportes, CapabilityExportLimited)

	grant(principal.RoleValid, ModuleGestionObjetivos, CapabilityValidate)
	grant(principal.RoleValid, ModuleReportes, CapabilityExportLimited)

	grant(principal.RoleRevisor, ModuleProyectosInversion, CapabilityApprove)
	grant(principal.RoleRevisor, ModuleReportes, CapabilityExportLimited)

	grant(principal.RoleAuditor, ModuleAuditoria, CapabilityAuditSystem)
	grant(principal.RoleAuditor, ModuleReportes, CapabilityExportComplete, CapabilityExportLimited)
	grant(principal.RoleAuditor, ModuleConfiguracionInstitucional, CapabilityConsult)
	grant(principal.RoleAuditor, ModuleGestionObjetivos, CapabilityConsult)
	grant(principal.RoleAuditor, ModuleProyectosInversion, CapabilityConsult)

	for _, module := range Modules() {
		grant(principal.RoleConsul, module, CapabilityConsult)
	}

	return rows
}

// matrix indexes the policy table for O(1) lookups.
var matrix = buildMatrix()

func buildMatrix() map[principal.Role]map[Module]Set {
	built := make(map[principal.Role]map[Module]Set)
	for _, row := range PolicyTable() {
		byModule, ok := built[row.Role]
		if !ok {
			byModule = make(map[Module]Set)
			built[row.Role] = byModule
		}
		set, ok := byModule[row.Module]
		if !ok {
			set = NewSet()
			byModule[row.Module] = set
		}
		set[row.Capability] = struct{}{}
	}
	return built
}

// roleCapabilities returns the granted set for one (role, module) pair.
// Unlisted pairs resolve to the empty set.
func roleCapabilities(role principal.Role, module Module) Set {
	byModule, ok := matrix[role]
	if !ok {
		return nil
	}
	return byModule[module]
}
