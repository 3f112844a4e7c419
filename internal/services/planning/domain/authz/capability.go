package authz

// Capability identifies one granted ability within a module.
type Capability string

const (
	// CapabilityRegisterEdit allows creating and editing draft entities.
	CapabilityRegisterEdit Capability = "registerEdit"
	// CapabilityValidate allows deciding on submitted objectives.
	CapabilityValidate Capability = "validate"
	// CapabilityApprove allows deciding on submitted projects.
	CapabilityApprove Capability = "approve"
	// CapabilityConsult allows read access.
	CapabilityConsult Capability = "consult"
	// CapabilitySendToValidation allows forwarding an objective for validation.
	CapabilitySendToValidation Capability = "sendToValidation"
	// CapabilitySendToReview allows forwarding a project for review.
	CapabilitySendToReview Capability = "sendToReview"
	// CapabilityExportComplete allows full report exports.
	CapabilityExportComplete Capability = "exportComplete"
	// CapabilityExportLimited allows restricted report exports.
	CapabilityExportLimited Capability = "exportLimited"
	// CapabilityAuditSystem allows system audit access.
	CapabilityAuditSystem Capability = "auditSystem"
)

// Set is an immutable-by-convention capability set keyed for O(1) membership.
type Set map[Capability]struct{}

// NewSet builds a capability set from members.
func NewSet(capabilities ...Capability) Set {
	set := make(Set, len(capabilities))
	for _, capability := range capabilities {
		set[capability] = struct{}{}
	}
	return set
}

// Has reports whether the set contains the capability.
func (s Set) Has(capability Capability) bool {
	_, ok := s[capability]
	return ok
}

// Union returns a new set holding every member of both sets.
func (s Set) Union(other Set) Set {
	merged := make(Set, len(s)+len(other))
	for capability := range s {
		merged[capability] = struct{}{}
	}
	for capability := range other {
		merged[capability] = struct{}{}
	}
	return merged
}
