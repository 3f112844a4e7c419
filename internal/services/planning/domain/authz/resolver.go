package authz

import "github.com/planifica/sigep/internal/services/planning/domain/principal"

// Stable reason codes for authorization decisions. They feed telemetry and
// user-facing messaging, so values must not change once emitted.
const (
	// ReasonAllowRoleGrant indicates a role in the matrix granted the capability.
	ReasonAllowRoleGrant = "allow.role_grant"
	// ReasonDenyNoCapability indicates no held role grants the capability.
	ReasonDenyNoCapability = "deny.no_capability"
)

// Decision captures the outcome of a capability check.
type Decision struct {
	Allowed    bool
	ReasonCode string
}

// EffectiveCapabilities computes the union of matrix grants over every role
// held by the principal. A principal with zero roles resolves to the empty
// set; resolution itself never fails.
func EffectiveCapabilities(actor principal.Principal, module Module) Set {
	effective := NewSet()
	for _, role := range actor.Roles() {
		effective = effective.Union(roleCapabilities(role, module))
	}
	return effective
}

// Has reports whether the principal holds the capability for the module.
func Has(actor principal.Principal, module Module, capability Capability) bool {
	return EffectiveCapabilities(actor, module).Has(capability)
}

// Can evaluates a capability check and reports the decision with a stable
// reason code.
func Can(actor principal.Principal, module Module, capability Capability) Decision {
	if Has(actor, module, capability) {
		return Decision{Allowed: true, ReasonCode: ReasonAllowRoleGrant}
	}
	return Decision{Allowed: false, ReasonCode: ReasonDenyNoCapability}
}

// CanRegisterEdit reports whether the principal may create or edit drafts.
func CanRegisterEdit(actor principal.Principal, module Module) bool {
	return Has(actor, module, CapabilityRegisterEdit)
}

// CanValidate reports whether the principal may decide on submitted objectives.
func CanValidate(actor principal.Principal, module Module) bool {
	return Has(actor, module, CapabilityValidate)
}

// CanApprove reports whether the principal may decide on submitted projects.
func CanApprove(actor principal.Principal, module Module) bool {
	return Has(actor, module, CapabilityApprove)
}

// CanConsult reports whether the principal has read access to the module.
func CanConsult(actor principal.Principal, module Module) bool {
	return Has(actor, module, CapabilityConsult)
}

// CanSendToValidation reports whether the principal may forward an objective.
func CanSendToValidation(actor principal.Principal, module Module) bool {
	return Has(actor, module, CapabilitySendToValidation)
}

// CanSendToReview reports whether the principal may forward a project.
func CanSendToReview(actor principal.Principal, module Module) bool {
	return Has(actor, module, CapabilitySendToReview)
}

// CanExportComplete reports whether the principal may run full exports.
func CanExportComplete(actor principal.Principal, module Module) bool {
	return Has(actor, module, CapabilityExportComplete)
}

// CanExportLimited reports whether the principal may run restricted exports.
func CanExportLimited(actor principal.Principal, module Module) bool {
	return Has(actor, module, CapabilityExportLimited)
}

// CanAuditSystem reports whether the principal may access audit trails.
func CanAuditSystem(actor principal.Principal, module Module) bool {
	return Has(actor, module, CapabilityAuditSystem)
}
