package concepts

import "github.com/abhisek/lectern/internal/llm"

// PlanSchema defines the lecture plan returned by the collaborator.
var PlanSchema = &llm.Schema{
	Name:        "lecture-plan",
	Description: "A lecture outline with chapters, subchapters and a concept-to-chapter assignment",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"lecture_title": map[string]any{
				"type":        "string",
				"description": "Title of the whole lecture (3-10 words)",
			},
			"all_concepts": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Every concept the lecture teaches, each listed once",
			},
			"chapters": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":    map[string]any{"type": "string"},
						"title": map[string]any{"type": "string"},
						"concepts": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "Concepts taught in this chapter and nowhere else",
						},
						"subchapters": map[string]any{
							"type":     "array",
							"minItems": 1,
							"items": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"id":        map[string]any{"type": "string"},
									"title":     map[string]any{"type": "string"},
									"objective": map[string]any{"type": "string"},
									"concept_outline": map[string]any{
										"type":        "array",
										"items":       map[string]any{"type": "string"},
										"description": "Subset of the chapter's concepts taught in this subchapter",
									},
								},
								"required": []any{"title", "objective", "concept_outline"},
							},
						},
					},
					"required": []any{"title", "concepts", "subchapters"},
				},
			},
		},
		"required": []any{"lecture_title", "all_concepts", "chapters"},
	},
}
