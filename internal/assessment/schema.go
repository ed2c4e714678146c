package assessment

import "github.com/abhisek/lectern/internal/llm"

// ProbeSchema defines swipe statements grouped by skill.
var ProbeSchema = &llm.Schema{
	Name:        "assessment-probe",
	Description: "Self-assessment statements per skill",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"skills": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"skill": map[string]any{
							"type":        "string",
							"description": "The skill name exactly as given",
						},
						"statements": map[string]any{
							"type":        "array",
							"minItems":    2,
							"maxItems":    3,
							"items":       map[string]any{"type": "string"},
							"description": "Statements the learner answers with 'I know this' or 'I don't'",
						},
					},
					"required":             []any{"skill", "statements"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"skills"},
		"additionalProperties": false,
	},
	Strict: true,
}
