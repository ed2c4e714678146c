package chaptertest

import "github.com/abhisek/lectern/internal/llm"

// TestSchema defines a generated chapter test.
var TestSchema = &llm.Schema{
	Name:        "chapter-test",
	Description: "A chapter test of 5-7 questions across four categories",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"category": map[string]any{
							"type": "string",
							"enum": []any{"framework-application", "process-implementation", "conceptual", "integration"},
						},
						"difficulty": map[string]any{
							"type": "string",
							"enum": []any{"easy", "medium", "hard"},
						},
						"prompt":     map[string]any{"type": "string"},
						"max_points": map[string]any{"type": "integer", "minimum": 1},
						"options": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
						"correct_option": map[string]any{
							"type":        "integer",
							"description": "Zero-based index of the correct option, -1 for open questions",
						},
						"rubric":        map[string]any{"type": "string"},
						"subchapter_id": map[string]any{"type": "string"},
					},
					"required": []any{"category", "difficulty", "prompt", "max_points"},
				},
			},
		},
		"required": []any{"questions"},
	},
}

// EvaluationSchema defines the grading of a submitted chapter test.
var EvaluationSchema = &llm.Schema{
	Name:        "chapter-test-evaluation",
	Description: "Per-question scores and overall feedback for a chapter test",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"answers": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question_id": map[string]any{"type": "string"},
						"score":       map[string]any{"type": "number"},
						"feedback":    map[string]any{"type": "string"},
					},
					"required": []any{"question_id", "score", "feedback"},
				},
			},
			"feedback": map[string]any{"type": "string"},
			"strengths": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"improvements": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required": []any{"answers", "feedback"},
	},
}
