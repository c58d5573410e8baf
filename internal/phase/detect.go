package phase

import (
	"strings"
)

// keywordRule maps a phase to the keywords that vote for it. Rules are
// checked in order; the first phase with any keyword hit wins, so earlier
// categories take precedence on ties.
type keywordRule struct {
	phase    string
	keywords []string
}

var detectionRules = []keywordRule{
	{Requirements, []string{
		"requirement", "user story", "use case", "acceptance criteria",
		"stakeholder", "srs", "functional spec",
	}},
	{Design, []string{
		"design", "architecture", "diagram", "uml", "interface",
		"component", "data model", "schema",
	}},
	{Testing, []string{
		"test", "spec_", "assert", "coverage", "qa", "unittest", "pytest",
	}},
	{Deployment, []string{
		"deploy", "docker", "kubernetes", "k8s", "ci/cd", "pipeline",
		"release", "helm",
	}},
	{Maintenance, []string{
		"refactor", "bugfix", "hotfix", "patch", "legacy", "changelog",
		"post-mortem",
	}},
}

// Detect assigns an uploaded artifact to a lifecycle phase by ordered
// keyword matching over the lowercased filename and content. Best-effort
// heuristic: earlier categories win ties, everything else (source code
// included) defaults to Development.
func Detect(content, filename string) string {
	haystack := strings.ToLower(filename) + "\n" + strings.ToLower(content)

	for _, rule := range detectionRules {
		for _, kw := range rule.keywords {
			if strings.Contains(haystack, kw) {
				return rule.phase
			}
		}
	}

	return Development
}
