package phase

import "testing"

func TestCatalog_SixPhasesWithCriteria(t *testing.T) {
	names := Names()
	if len(names) != 6 {
		t.Fatalf("expected 6 phases, got %d", len(names))
	}
	for _, name := range names {
		p := Get(name)
		if p.Name != name {
			t.Errorf("catalog entry %q has name %q", name, p.Name)
		}
		if p.Description == "" {
			t.Errorf("phase %q has no description", name)
		}
		if len(p.Criteria) == 0 {
			t.Errorf("phase %q has no verification criteria", name)
		}
	}
}

func TestGet_UnknownFallsBackToDevelopment(t *testing.T) {
	if Get("nonsense").Name != Development {
		t.Errorf("unknown phase should fall back to development")
	}
}

func TestDetect_RequirementsFile(t *testing.T) {
	got := Detect("As a user I want a user story for login", "requirements_v1.txt")
	if got != Requirements {
		t.Errorf("expected requirements, got %q", got)
	}
}

func TestDetect_PrecedenceDesignBeforeTesting(t *testing.T) {
	// Content matching both a design keyword and a testing keyword:
	// the earlier category wins.
	got := Detect("architecture overview and test plan", "doc.txt")
	if got != Design {
		t.Errorf("expected design by precedence, got %q", got)
	}
}

func TestDetect_KeywordCases(t *testing.T) {
	tests := []struct {
		content  string
		filename string
		want     string
	}{
		{"pytest fixtures for the API", "conftest.py", Testing},
		{"helm chart values", "release.yaml", Deployment},
		{"refactor the billing module", "notes.md", Maintenance},
		{"package main", "main.go", Development},          // extension fallback
		{"random prose", "letter.txt", Development},       // hard default
		{"", "ARCHITECTURE.md", Design},                   // filename-only match
	}
	for _, tt := range tests {
		if got := Detect(tt.content, tt.filename); got != tt.want {
			t.Errorf("Detect(%q, %q) = %q, want %q", tt.content, tt.filename, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		override string
		session  string
		want     string
	}{
		{"testing", "design", "testing"},       // explicit override wins
		{Auto, "design", "design"},             // session phase next
		{"", "design", "design"},               // empty override means auto
		{Auto, "", Development},                // hard default
		{"bogus", "deployment", "deployment"},  // unknown override ignored
		{Auto, "bogus", Development},           // unknown session phase ignored
	}
	for _, tt := range tests {
		if got := Resolve(tt.override, tt.session); got != tt.want {
			t.Errorf("Resolve(%q, %q) = %q, want %q", tt.override, tt.session, got, tt.want)
		}
	}
}
