// Package format reflows the model's markdown-ish answer into clean,
// section-delimited plain text. Pure text-to-text transform, no side effects.
package format

import (
	"fmt"
	"strings"
	"unicode"
)

// echoMarkers delimit where the prompt echo ends and the answer begins.
// The last occurrence wins because the prompt itself contains the marker.
var echoMarkers = []string{"Response:", "Answer:"}

// section describes one recognized output section. renumber controls
// whether bullet/numbered lines are re-sequenced starting at 1.
type section struct {
	name     string
	renumber bool
}

// sections are the seven category names the analysis prompt instructs the
// model to produce, in display order.
var sections = []section{
	{"ANALYSIS", false},
	{"PHASE COMPLIANCE", true},
	{"ISSUES FOUND", true},
	{"RECOMMENDATIONS", true},
	{"RISK LEVEL", false},
	{"NEXT STEPS", true},
	{"MISSING INFORMATION", false},
}

const border = "============================================================"
const divider = "------------------------------------------------------------"

// StripEcho removes everything up to and including the last echo marker.
// Raw completions from completion-style models repeat the whole prompt.
func StripEcho(raw string) string {
	cut := -1
	width := 0
	for _, marker := range echoMarkers {
		if idx := strings.LastIndex(raw, marker); idx > cut {
			cut = idx
			width = len(marker)
		}
	}
	if cut < 0 {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(raw[cut+width:])
}

// Format restructures answer text into a bordered block with one labelled
// divider per recognized section. Lines before the first recognized header
// pass through unchanged.
func Format(title, text string) string {
	var sb strings.Builder
	sb.WriteString(border + "\n")
	sb.WriteString("  " + strings.ToUpper(title) + "\n")
	sb.WriteString(border + "\n")

	current := ""
	renumber := false
	counter := 0

	for _, line := range strings.Split(text, "\n") {
		clean := stripMarkdown(line)

		if name, ok := matchSection(clean); ok {
			current = name
			for _, s := range sections {
				if s.name == name {
					renumber = s.renumber
				}
			}
			counter = 0
			sb.WriteString("\n" + divider + "\n")
			sb.WriteString("  " + name + "\n")
			sb.WriteString(divider + "\n")
			continue
		}

		if current == "" {
			// Pre-header prose passes through as-is.
			sb.WriteString(line + "\n")
			continue
		}

		if strings.TrimSpace(clean) == "" {
			continue
		}

		if renumber {
			if body, ok := bulletBody(clean); ok {
				counter++
				sb.WriteString(fmt.Sprintf("  %d. %s\n", counter, body))
				continue
			}
		}
		sb.WriteString("  " + strings.TrimSpace(clean) + "\n")
	}

	return sb.String()
}

// stripMarkdown removes emphasis and heading markers without touching the
// line's words.
func stripMarkdown(line string) string {
	out := strings.ReplaceAll(line, "**", "")
	out = strings.ReplaceAll(out, "__", "")
	out = strings.TrimLeft(out, "# ")
	return out
}

// matchSection reports whether the line is one of the seven recognized
// section headers. Headers are short lines naming the category, optionally
// with trailing punctuation.
func matchSection(line string) (string, bool) {
	upper := strings.ToUpper(strings.TrimSpace(line))
	upper = strings.TrimRight(upper, ":")
	if len(upper) > 40 {
		return "", false
	}
	for _, s := range sections {
		if strings.Contains(upper, s.name) {
			return s.name, true
		}
	}
	return "", false
}

// bulletBody strips a leading bullet or number marker, returning the line
// body and whether a marker was found.
func bulletBody(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)

	for _, marker := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(trimmed, marker) {
			return strings.TrimSpace(trimmed[len(marker):]), true
		}
	}

	// Numbered forms: "3." or "3)" with optional space.
	i := 0
	for i < len(trimmed) && unicode.IsDigit(rune(trimmed[i])) {
		i++
	}
	if i > 0 && i < len(trimmed) && (trimmed[i] == '.' || trimmed[i] == ')') {
		return strings.TrimSpace(trimmed[i+1:]), true
	}

	return "", false
}
