package parser

import (
	"strings"

	"github.com/clintrovert/lazybird/pkg/types"
)

// Complexity labels recognised on issues
const (
	ComplexitySimple  = "simple"
	ComplexityMedium  = "medium"
	ComplexityComplex = "complex"
)

// Section headings extracted from issue bodies
const (
	StepsHeading      = "## Detailed Steps"
	AcceptanceHeading = "## Acceptance Criteria"
)

var complexities = []string{ComplexitySimple, ComplexityMedium, ComplexityComplex}

// Result holds the fields extracted from an issue
type Result struct {
	Complexity         string
	Steps              []string
	AcceptanceCriteria []string
}

// Parse extracts task fields from an issue. It never fails: a body without
// the expected sections yields empty lists and the default complexity.
func Parse(issue *types.Issue) Result {
	return Result{
		Complexity:         Complexity(issue.Labels),
		Steps:              Section(issue.Body, StepsHeading),
		AcceptanceCriteria: Section(issue.Body, AcceptanceHeading),
	}
}

// Complexity returns the first label naming a complexity, or medium
func Complexity(labels []string) string {
	for _, label := range labels {
		for _, c := range complexities {
			if label == c {
				return c
			}
		}
	}
	return ComplexityMedium
}

// Section returns the list items between heading and the next heading line.
// Items are returned trimmed and in source order.
func Section(body, heading string) []string {
	items := []string{}
	inSection := false

	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)

		if isHeading(trimmed) {
			if inSection {
				break
			}
			inSection = trimmed == heading
			continue
		}

		if inSection && IsListItem(trimmed) {
			items = append(items, trimmed)
		}
	}

	return items
}

// ListItems returns every list item in text, ignoring headings
func ListItems(text string) []string {
	items := []string{}
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if IsListItem(trimmed) {
			items = append(items, trimmed)
		}
	}
	return items
}

// IsListItem reports whether a trimmed line starts with an ordered marker
// ("1.", "12."), an unordered marker ("-", "*") or a checkbox ("[ ]", "[x]")
func IsListItem(line string) bool {
	switch {
	case line == "":
		return false
	case strings.HasPrefix(line, "-"), strings.HasPrefix(line, "*"):
		return true
	case strings.HasPrefix(line, "[ ]"), strings.HasPrefix(line, "[x]"), strings.HasPrefix(line, "[X]"):
		return true
	}

	digits := 0
	for digits < len(line) && line[digits] >= '0' && line[digits] <= '9' {
		digits++
	}
	return digits > 0 && digits < len(line) && line[digits] == '.'
}

func isHeading(line string) bool {
	return strings.HasPrefix(line, "#")
}
