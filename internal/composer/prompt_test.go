package composer

import (
	"strings"
	"testing"

	"github.com/provetch/phasecheck/internal/phase"
	"github.com/provetch/phasecheck/internal/session"
)

func TestBuildAnalysisIncludesPhaseAndQuestion(t *testing.T) {
	c := New(0)
	p := phase.Get(phase.Testing)

	prompt := c.BuildAnalysis(p, "--- Document 1 (Source: spec.md, Type: markdown) ---\nbody\n", nil, nil, "are the unit tests sufficient?")

	for _, want := range []string{
		"testing phase",
		p.Description,
		"1. " + p.Criteria[0],
		"are the unit tests sufficient?",
		"ISSUES FOUND",
		"MISSING INFORMATION",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if !strings.HasSuffix(prompt, ResponseMarker) {
		t.Errorf("prompt should end with %q", ResponseMarker)
	}
}

func TestBuildAnalysisHistoryWindow(t *testing.T) {
	c := New(2)
	var history []session.Turn
	for _, content := range []string{"first", "second", "third", "fourth"} {
		history = append(history, session.Turn{Role: "user", Content: content})
	}

	prompt := c.BuildAnalysis(phase.Get(phase.Design), "ctx", history, nil, "q")

	if strings.Contains(prompt, "first") || strings.Contains(prompt, "second") {
		t.Error("older turns should be truncated from the prompt")
	}
	if !strings.Contains(prompt, "third") || !strings.Contains(prompt, "fourth") {
		t.Error("recent turns should be present")
	}
}

func TestBuildAnalysisOmitsEmptySections(t *testing.T) {
	prompt := New(0).BuildAnalysis(phase.Get(phase.Development), "ctx", nil, nil, "q")

	if strings.Contains(prompt, "Recent conversation") {
		t.Error("empty history should not render a conversation section")
	}
	if strings.Contains(prompt, "Files uploaded") {
		t.Error("empty file list should not render an uploads section")
	}
}

func TestBuildAnalysisListsUploads(t *testing.T) {
	prompt := New(0).BuildAnalysis(phase.Get(phase.Development), "ctx", nil, []string{"a.go", "b.md"}, "q")

	if !strings.Contains(prompt, "a.go, b.md") {
		t.Error("uploaded filenames should be listed")
	}
}

func TestBuildVerificationFieldNames(t *testing.T) {
	prompt := New(0).BuildVerification("q", "a", "ctx", []string{"crit one"})

	for _, field := range []string{"pass_fail", "compliance_score", "satisfied_criteria", "violated_criteria", "risk_level", "recommendations", "explanation"} {
		if !strings.Contains(prompt, `"`+field+`"`) {
			t.Errorf("verification prompt missing field %q", field)
		}
	}
	if !strings.Contains(prompt, "1. crit one") {
		t.Error("criteria should be numbered")
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 0 {
		t.Errorf("EstimateTokens(empty) = %d, want 0", got)
	}
	if got := EstimateTokens("abcd"); got != 1 {
		t.Errorf("EstimateTokens(4 chars) = %d, want 1", got)
	}
	if got := EstimateTokens("abcde"); got != 2 {
		t.Errorf("EstimateTokens(5 chars) = %d, want 2", got)
	}
}
