package authz

import "strings"

// Module identifies a functional area of the planning platform.
type Module string

const (
	// ModuleConfiguracionInstitucional covers institutional configuration screens.
	ModuleConfiguracionInstitucional Module = "configuracionInstitucional"
	// ModuleGestionObjetivos covers strategic objective management.
	ModuleGestionObjetivos Module = "gestionObjetivos"
	// ModuleProyectosInversion covers investment project management.
	ModuleProyectosInversion Module = "proyectosInversion"
	// ModuleReportes covers report generation and export.
	ModuleReportes Module = "reportes"
	// ModuleAuditoria covers system audit trails.
	ModuleAuditoria Module = "auditoria"
)

// Modules returns every member of the closed module enumeration.
func Modules() []Module {
	return []Module{
		ModuleConfiguracionInstitucional,
		ModuleGestionObjetivos,
		ModuleProyectosInversion,
		ModuleReportes,
		ModuleAuditoria,
	}
}

// ModuleFromLabel parses a string label into a Module. Matching is
// case-insensitive on the canonical camel-case labels.
func ModuleFromLabel(value string) (Module, bool) {
	trimmed := strings.TrimSpace(value)
	for _, module := range Modules() {
		if strings.EqualFold(trimmed, string(module)) {
			return module, true
		}
	}
	return "", false
}

// ModuleCapabilities returns the capability subset meaningful to a module.
// Capabilities outside this subset are never granted for the module, not
// even to ADMIN.
func ModuleCapabilities(module Module) []Capability {
	switch module {
	case ModuleConfiguracionInstitucional:
		return []Capability{CapabilityRegisterEdit, CapabilityConsult}
	case ModuleGestionObjetivos:
		return []Capability{CapabilityRegisterEdit, CapabilityValidate, CapabilitySendToValidation, CapabilityConsult}
	case ModuleProyectosInversion:
		return []Capability{CapabilityRegisterEdit, CapabilityApprove, CapabilitySendToReview, CapabilityConsult}
	case ModuleReportes:
		return []Capability{CapabilityExportComplete, CapabilityExportLimited, CapabilityConsult}
	case ModuleAuditoria:
		return []Capability{CapabilityAuditSystem, CapabilityConsult}
	default:
		return nil
	}
}
