package curriculum

import (
	"fmt"
	"slices"
	"strings"
)

// ShapeIssue describes why a section does not satisfy its format variant.
type ShapeIssue struct {
	SectionID string
	Field     string
	Problem   string
}

func (i ShapeIssue) String() string {
	return fmt.Sprintf("section %s: %s %s", i.SectionID, i.Field, i.Problem)
}

// variant lists the payload a format requires beyond an explanation.
type variant struct {
	minSteps       int
	minComponents  int
	minComparisons int
}

var variants = map[SectionFormat]variant{
	FormatProcess:    {minSteps: 2},
	FormatMethod:     {minSteps: 1},
	FormatFramework:  {minComponents: 2},
	FormatComparison: {minComparisons: 2},
	FormatConcept:    {},
}

// ValidFormat reports whether f is a known section format.
func ValidFormat(f SectionFormat) bool {
	_, ok := variants[f]
	return ok
}

// ValidateSection checks a section against its format variant.
func ValidateSection(s *LearningSection) []ShapeIssue {
	var issues []ShapeIssue
	add := func(field, problem string) {
		issues = append(issues, ShapeIssue{SectionID: s.ID, Field: field, Problem: problem})
	}

	if strings.TrimSpace(s.Title) == "" {
		add("title", "is empty")
	}
	v, ok := variants[s.Format]
	if !ok {
		add("format", fmt.Sprintf("%q is not one of %v", s.Format, Formats))
		return issues
	}
	if strings.TrimSpace(s.Content.Explanation) == "" {
		add("content.explanation", "is empty")
	}
	if n := len(nonEmpty(s.Content.Steps)); n < v.minSteps {
		add("content.steps", fmt.Sprintf("has %d entries, %s needs at least %d", n, s.Format, v.minSteps))
	}
	if n := countComponents(s.Content.Components); n < v.minComponents {
		add("content.components", fmt.Sprintf("has %d entries, %s needs at least %d", n, s.Format, v.minComponents))
	}
	if n := countComparisons(s.Content.ComparisonPoints); n < v.minComparisons {
		add("content.comparison_points", fmt.Sprintf("has %d entries, %s needs at least %d", n, s.Format, v.minComparisons))
	}
	return issues
}

// ValidateSections validates a full materialized subchapter body.
func ValidateSections(sections []*LearningSection) []ShapeIssue {
	if len(sections) == 0 {
		return []ShapeIssue{{Field: "sections", Problem: "is empty"}}
	}
	var issues []ShapeIssue
	seen := make(map[string]bool, len(sections))
	for _, s := range sections {
		if seen[s.ID] {
			issues = append(issues, ShapeIssue{SectionID: s.ID, Field: "id", Problem: "is duplicated"})
		}
		seen[s.ID] = true
		issues = append(issues, ValidateSection(s)...)
	}
	return issues
}

func nonEmpty(ss []string) []string {
	return slices.DeleteFunc(slices.Clone(ss), func(s string) bool {
		return strings.TrimSpace(s) == ""
	})
}

func countComponents(cs []Component) int {
	n := 0
	for _, c := range cs {
		if strings.TrimSpace(c.Name) != "" {
			n++
		}
	}
	return n
}

func countComparisons(ps []ComparisonPoint) int {
	n := 0
	for _, p := range ps {
		if strings.TrimSpace(p.Aspect) != "" && strings.TrimSpace(p.Contrast) != "" {
			n++
		}
	}
	return n
}
