package materialize

import "github.com/abhisek/lectern/internal/llm"

// sectionsDefinition leaves format and has_exercise_button optional so that
// partially shaped sections reach the shape check and get one corrective call
// instead of failing schema validation outright.
var sectionsDefinition = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"sections": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":    map[string]any{"type": "string"},
					"title": map[string]any{"type": "string"},
					"format": map[string]any{
						"type":        "string",
						"description": "One of process, framework, method, concept, comparison",
					},
					"has_exercise_button": map[string]any{
						"type":        "boolean",
						"description": "Whether a practice exercise makes sense for this section",
					},
					"personalized": map[string]any{
						"type":        "boolean",
						"description": "True if the learner's knowledge levels shaped this section",
					},
					"content": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"explanation": map[string]any{"type": "string"},
							"steps": map[string]any{
								"type":  "array",
								"items": map[string]any{"type": "string"},
							},
							"components": map[string]any{
								"type": "array",
								"items": map[string]any{
									"type": "object",
									"properties": map[string]any{
										"name":        map[string]any{"type": "string"},
										"description": map[string]any{"type": "string"},
									},
									"required": []any{"name", "description"},
								},
							},
							"comparison_points": map[string]any{
								"type": "array",
								"items": map[string]any{
									"type": "object",
									"properties": map[string]any{
										"aspect":   map[string]any{"type": "string"},
										"contrast": map[string]any{"type": "string"},
									},
									"required": []any{"aspect", "contrast"},
								},
							},
							"example": map[string]any{"type": "string"},
						},
						"required": []any{"explanation"},
					},
				},
				"required": []any{"title", "content"},
			},
		},
		"quiz": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"prompt": map[string]any{"type": "string"},
					"options": map[string]any{
						"type":     "array",
						"minItems": 2,
						"items":    map[string]any{"type": "string"},
					},
					"correct_option": map[string]any{
						"type":        "integer",
						"minimum":     0,
						"description": "Zero-based index of the correct option",
					},
					"explanation": map[string]any{"type": "string"},
				},
				"required": []any{"prompt", "options", "correct_option"},
			},
		},
		"personalization_summary": map[string]any{"type": "string"},
	},
	"required": []any{"sections", "quiz"},
}

// SectionsSchema defines the learning sections of a subchapter.
var SectionsSchema = &llm.Schema{
	Name:        "learning-sections",
	Description: "Learning sections and a completion quiz for one subchapter",
	Definition:  sectionsDefinition,
}

// EnhanceSchema is the corrective variant of SectionsSchema.
var EnhanceSchema = &llm.Schema{
	Name:        "learning-sections-enhance",
	Description: "Corrected learning sections for one subchapter",
	Definition:  sectionsDefinition,
}
