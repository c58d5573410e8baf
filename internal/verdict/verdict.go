// Package verdict turns the model's free-text verification output into a
// structured compliance verdict. Parsing is best-effort by design: model
// output is untrusted text, so every failure path ends in a safe sentinel,
// never an error.
package verdict

import (
	"encoding/json"
	"strings"
)

// Sentinel values used when the model's output cannot be parsed.
const (
	PassFailUnknown = "UNKNOWN"
	unknownScore    = 0.5
	unknownRisk     = "Medium"

	parseFailureExplanation = "Verification output could not be parsed as JSON; no structured verdict is available."
)

// Verdict is the structured outcome of auditing an answer against a
// phase's rubric.
type Verdict struct {
	PassFail          string   `json:"pass_fail"`
	ComplianceScore   float64  `json:"compliance_score"`
	SatisfiedCriteria []string `json:"satisfied_criteria"`
	ViolatedCriteria  []string `json:"violated_criteria"`
	RiskLevel         string   `json:"risk_level"`
	Recommendations   string   `json:"recommendations"`
	Explanation       string   `json:"explanation"`

	// Raw carries the original completion for diagnostics. Never rendered
	// to clients.
	Raw string `json:"-"`
}

// rawVerdict accepts both field spellings the model has been seen to emit:
// older prompts said risk_score / violated_requirements.
type rawVerdict struct {
	PassFail             string   `json:"pass_fail"`
	ComplianceScore      *float64 `json:"compliance_score"`
	RiskScore            *float64 `json:"risk_score"`
	SatisfiedCriteria    []string `json:"satisfied_criteria"`
	ViolatedCriteria     []string `json:"violated_criteria"`
	ViolatedRequirements []string `json:"violated_requirements"`
	RiskLevel            string   `json:"risk_level"`
	Recommendations      string   `json:"recommendations"`
	Explanation          string   `json:"explanation"`
}

// Parse extracts a Verdict from raw completion text. Attempted in order,
// first success wins: whole-text JSON parse, then the first-{-to-last-}
// span, then the sentinel unknown verdict. Never returns an error.
func Parse(raw string) Verdict {
	if v, ok := tryParse(raw); ok {
		v.Raw = raw
		return v
	}

	// The model often wraps the object in prose ("Sure! {...}").
	if span, ok := braceSpan(raw); ok {
		if v, ok := tryParse(span); ok {
			v.Raw = raw
			return v
		}
	}

	return unknown(raw)
}

func tryParse(text string) (Verdict, bool) {
	var rv rawVerdict
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &rv); err != nil {
		return Verdict{}, false
	}
	if rv.PassFail == "" && rv.ComplianceScore == nil && rv.RiskScore == nil && rv.Explanation == "" {
		// Parsed, but it wasn't a verdict object.
		return Verdict{}, false
	}

	v := Verdict{
		PassFail:          strings.ToUpper(strings.TrimSpace(rv.PassFail)),
		ComplianceScore:   unknownScore,
		SatisfiedCriteria: rv.SatisfiedCriteria,
		ViolatedCriteria:  rv.ViolatedCriteria,
		RiskLevel:         rv.RiskLevel,
		Recommendations:   rv.Recommendations,
		Explanation:       rv.Explanation,
	}
	if v.PassFail == "" {
		v.PassFail = PassFailUnknown
	}
	if rv.ComplianceScore != nil {
		v.ComplianceScore = clamp01(*rv.ComplianceScore)
	} else if rv.RiskScore != nil {
		v.ComplianceScore = clamp01(*rv.RiskScore)
	}
	if v.ViolatedCriteria == nil {
		v.ViolatedCriteria = rv.ViolatedRequirements
	}
	if v.RiskLevel == "" {
		v.RiskLevel = unknownRisk
	}
	return v, true
}

// braceSpan returns the first-{-to-last-} substring when one exists.
func braceSpan(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// Unavailable returns the sentinel verdict with the given explanation. Used
// when the verification pass could not run at all, as opposed to producing
// output that failed to parse.
func Unavailable(explanation string) Verdict {
	v := unknown("")
	v.Explanation = explanation
	return v
}

func unknown(raw string) Verdict {
	return Verdict{
		PassFail:          PassFailUnknown,
		ComplianceScore:   unknownScore,
		SatisfiedCriteria: []string{},
		ViolatedCriteria:  []string{},
		RiskLevel:         unknownRisk,
		Explanation:       parseFailureExplanation,
		Raw:               raw,
	}
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
