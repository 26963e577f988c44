package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	"bank-analytics/internal/plan"
)

var (
	openFenceRe  = regexp.MustCompile("(?m)^```(?:json)?[ \\t]*\\n?")
	closeFenceRe = regexp.MustCompile("(?m)\\n?```[ \\t]*$")
)

// ExtractJSON pulls a JSON object out of a noisy backend response. Markdown
// fences are stripped and the remainder parsed directly; failing that, every
// brace-balanced span is tried and the object with the most top-level keys
// wins, the earliest on ties. It reports false when no non-empty object is
// found.
func ExtractJSON(text string) (plan.Raw, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}
	text = openFenceRe.ReplaceAllString(text, "")
	text = closeFenceRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	var direct any
	if err := json.Unmarshal([]byte(text), &direct); err == nil {
		if m, ok := direct.(map[string]any); ok {
			return plan.Raw(m), len(m) > 0
		}
	}

	var best map[string]any
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		end := balancedEnd(text, start)
		if end < 0 {
			continue
		}
		var candidate map[string]any
		if err := json.Unmarshal([]byte(text[start:end+1]), &candidate); err != nil {
			continue
		}
		if len(candidate) > len(best) {
			best = candidate
		}
	}
	if len(best) == 0 {
		return nil, false
	}
	return plan.Raw(best), true
}

// balancedEnd returns the index of the brace closing the one at start, or -1.
// Braces inside strings are counted too; a span broken that way simply fails
// to parse.
func balancedEnd(text string, start int) int {
	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
