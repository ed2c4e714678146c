package enrich

import "github.com/abhisek/lectern/internal/llm"

// ExerciseSchema defines a practice exercise for one section.
var ExerciseSchema = &llm.Schema{
	Name:        "section-exercise",
	Description: "A practice exercise for one learning section",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt": map[string]any{
				"type":        "string",
				"description": "The exercise shown to the learner",
			},
			"options": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Answer options when the exercise is multiple choice, otherwise empty",
			},
			"correct_option": map[string]any{
				"type":        "integer",
				"description": "Zero-based index of the correct option, -1 for open exercises",
			},
			"expected_answer": map[string]any{
				"type":        "string",
				"description": "A model answer or grading rubric",
			},
			"explanation": map[string]any{"type": "string"},
		},
		"required": []any{"prompt", "expected_answer"},
	},
}

// GapMaterialSchema defines remedial material for a knowledge gap.
var GapMaterialSchema = &llm.Schema{
	Name:        "gap-material",
	Description: "Short material that closes one knowledge gap",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"material": map[string]any{"type": "string"},
		},
		"required":             []any{"material"},
		"additionalProperties": false,
	},
	Strict: true,
}

// ExplainSchema defines the explanation of a text selection.
var ExplainSchema = &llm.Schema{
	Name:        "selection-explanation",
	Description: "An explanation of text the learner highlighted",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"explanation": map[string]any{"type": "string"},
		},
		"required":             []any{"explanation"},
		"additionalProperties": false,
	},
	Strict: true,
}

// FollowUpSchema defines an answer to a follow-up question.
var FollowUpSchema = &llm.Schema{
	Name:        "follow-up-answer",
	Description: "An answer to a learner's follow-up question about an exercise",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"answer": map[string]any{"type": "string"},
			"intent": map[string]any{
				"type":        "string",
				"enum":        []any{"scenario-extension", "factual-explanation"},
				"description": "scenario-extension if the learner asks what happens in a changed scenario, otherwise factual-explanation",
			},
		},
		"required":             []any{"answer", "intent"},
		"additionalProperties": false,
	},
	Strict: true,
}

// EvaluationSchema defines the grading of an open exercise answer.
var EvaluationSchema = &llm.Schema{
	Name:        "exercise-evaluation",
	Description: "Grading of a learner's answer to an exercise",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"is_correct": map[string]any{"type": "boolean"},
			"feedback":   map[string]any{"type": "string"},
			"knowledge_gap": map[string]any{
				"type":        "string",
				"description": "What the learner is missing, empty when the answer is correct",
			},
		},
		"required":             []any{"is_correct", "feedback", "knowledge_gap"},
		"additionalProperties": false,
	},
	Strict: true,
}
