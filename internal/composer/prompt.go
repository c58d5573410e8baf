// Package composer assembles the prompt strings sent to the generation
// model: the phase-aware analysis prompt and the shorter JSON-only
// verification prompt.
package composer

import (
	"fmt"
	"strings"

	"github.com/provetch/phasecheck/internal/phase"
	"github.com/provetch/phasecheck/internal/session"
)

// defaultHistoryWindow is how many recent turns surface into a prompt
// (3 question/answer pairs). Full history stays in the session store.
const defaultHistoryWindow = 6

// ResponseMarker ends the analysis prompt; the formatter strips the prompt
// echo at its last occurrence.
const ResponseMarker = "Response:"

// Composer renders prompts from phase criteria, retrieved context,
// conversation history, and the user's question.
type Composer struct {
	HistoryWindow int
}

// New creates a Composer. If historyWindow <= 0, the default (6 turns) is used.
func New(historyWindow int) *Composer {
	if historyWindow <= 0 {
		historyWindow = defaultHistoryWindow
	}
	return &Composer{HistoryWindow: historyWindow}
}

// BuildAnalysis interpolates the fixed structural template for the first
// generation pass. context must be non-empty (the retrieval gateway
// substitutes a placeholder for an empty index).
func (c *Composer) BuildAnalysis(p phase.Phase, context string, history []session.Turn, files []string, question string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are a software development assistant reviewing work in the %s phase.\n", p.Name)
	fmt.Fprintf(&sb, "Phase description: %s\n\n", p.Description)

	sb.WriteString("Verification criteria for this phase:\n")
	for i, criterion := range p.Criteria {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, criterion)
	}

	sb.WriteString("\nContext documents:\n")
	sb.WriteString(context)
	sb.WriteString("\n")

	if turns := recent(history, c.HistoryWindow); len(turns) > 0 {
		sb.WriteString("\nRecent conversation:\n")
		for _, t := range turns {
			fmt.Fprintf(&sb, "%s: %s\n", t.Role, t.Content)
		}
	}

	if len(files) > 0 {
		fmt.Fprintf(&sb, "\nFiles uploaded in this session: %s\n", strings.Join(files, ", "))
	}

	fmt.Fprintf(&sb, "\nUser question: %s\n\n", question)

	sb.WriteString(`Structure your answer with exactly these sections:
ANALYSIS
PHASE COMPLIANCE
ISSUES FOUND
RECOMMENDATIONS
RISK LEVEL
NEXT STEPS
MISSING INFORMATION

`)
	sb.WriteString(ResponseMarker)
	return sb.String()
}

// BuildVerification renders the second-pass prompt instructing the model to
// audit its own answer and return JSON only, using the exact verdict field
// names.
func (c *Composer) BuildVerification(question, answer, context string, criteria []string) string {
	var sb strings.Builder

	sb.WriteString("You are an AI verification agent.\n\n")
	fmt.Fprintf(&sb, "1. User question: %s\n", question)
	fmt.Fprintf(&sb, "2. Assistant answer: %s\n", answer)
	fmt.Fprintf(&sb, "3. Context documents: %s\n\n", context)

	sb.WriteString("Verification criteria:\n")
	for i, criterion := range criteria {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, criterion)
	}

	sb.WriteString(`
Check the answer for compliance with the criteria and the context.
Return ONLY a single valid JSON object with exactly these fields:
{
  "pass_fail": "PASS or FAIL",
  "compliance_score": 0.0-1.0,
  "satisfied_criteria": ["..."],
  "violated_criteria": ["..."],
  "risk_level": "Low, Medium or High",
  "recommendations": "short recommendations",
  "explanation": "short explanation why it passed or failed"
}
Do not include any other text, prose, or markdown.`)

	return sb.String()
}

func recent(turns []session.Turn, n int) []session.Turn {
	if len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}

// EstimateTokens provides a rough token count using a 4-chars-per-token heuristic.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
