// Package phase holds the static software-lifecycle catalog and the
// heuristic classifier that assigns uploaded artifacts to a phase.
package phase

// Phase names. These are the only values a detection or override may carry.
const (
	Requirements = "requirements"
	Design       = "design"
	Development  = "development"
	Testing      = "testing"
	Deployment   = "deployment"
	Maintenance  = "maintenance"

	// Auto means "no explicit override"; resolution falls back to the
	// session's last-detected phase, then Development.
	Auto = "auto"
)

// Phase is a static, read-only catalog entry.
type Phase struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Criteria    []string `json:"criteria"`
}

// catalog is fixed and never mutated at runtime.
var catalog = map[string]Phase{
	Requirements: {
		Name:        Requirements,
		Description: "Gathering and documenting what the system must do",
		Criteria: []string{
			"Requirements are complete and unambiguous",
			"Each requirement is testable and verifiable",
			"Stakeholder needs are traceable to requirements",
			"Functional and non-functional requirements are separated",
			"Acceptance criteria are defined for each user story",
		},
	},
	Design: {
		Name:        Design,
		Description: "Defining the architecture and detailed design of the system",
		Criteria: []string{
			"Architecture addresses all stated requirements",
			"Component responsibilities and interfaces are defined",
			"Data models cover all entities and relationships",
			"Design decisions and trade-offs are documented",
			"Security and scalability concerns are addressed",
		},
	},
	Development: {
		Name:        Development,
		Description: "Implementing the designed system in code",
		Criteria: []string{
			"Code follows the documented design",
			"Coding standards and conventions are applied",
			"Error handling covers failure paths",
			"Code is modular and avoids duplication",
			"Dependencies are declared and versioned",
		},
	},
	Testing: {
		Name:        Testing,
		Description: "Verifying the implemented system against its requirements",
		Criteria: []string{
			"Test cases cover all requirements",
			"Edge cases and error paths are exercised",
			"Test results are recorded and reproducible",
			"Regressions are caught by automated tests",
			"Coverage gaps are identified and justified",
		},
	},
	Deployment: {
		Name:        Deployment,
		Description: "Releasing the system into its target environment",
		Criteria: []string{
			"Deployment steps are automated and repeatable",
			"Configuration is externalized per environment",
			"Rollback procedure is defined and tested",
			"Monitoring and alerting are in place",
			"Release notes document the changes shipped",
		},
	},
	Maintenance: {
		Name:        Maintenance,
		Description: "Operating, fixing, and evolving the released system",
		Criteria: []string{
			"Defects are tracked with reproduction steps",
			"Fixes include regression tests",
			"Technical debt is recorded and prioritized",
			"Changes preserve backward compatibility or document breaks",
			"Operational runbooks stay current",
		},
	},
}

// Get returns the catalog entry for name, falling back to Development for
// unknown names so callers always receive a usable rubric.
func Get(name string) Phase {
	if p, ok := catalog[name]; ok {
		return p
	}
	return catalog[Development]
}

// Known reports whether name is a catalog phase (Auto is not).
func Known(name string) bool {
	_, ok := catalog[name]
	return ok
}

// Names returns the catalog phase names in lifecycle order.
func Names() []string {
	return []string{Requirements, Design, Development, Testing, Deployment, Maintenance}
}

// Resolve picks the active phase for a question: explicit override first,
// then the session's last-detected phase, then Development.
func Resolve(override, sessionPhase string) string {
	if override != "" && override != Auto && Known(override) {
		return override
	}
	if Known(sessionPhase) {
		return sessionPhase
	}
	return Development
}
