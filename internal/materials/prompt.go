package materials

import "github.com/abhisek/lectern/internal/llm"

const systemPrompt = `You condense study materials a learner wants a lecture to build on.
Keep the topics, definitions and worked methods the materials cover. Drop
examples, exercises and formatting. Write for a curriculum planner, not for
the learner. Use at most 150 words for the summary and at most 8 key points.`

// SummarySchema defines the condensed form of one piece of materials.
var SummarySchema = &llm.Schema{
	Name:        "materials-summary",
	Description: "Condensed summary of part of a learner's study materials",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{
				"type":        "string",
				"description": "What this part covers, in at most 150 words",
			},
			"key_points": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Topics or methods the lecture should build on",
			},
			"vocabulary": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Terms the materials define",
			},
		},
		"required": []any{"summary", "key_points"},
	},
}
