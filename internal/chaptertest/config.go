package chaptertest

import "github.com/abhisek/lectern/internal/llm"

// Config holds chapter test settings.
type Config struct {
	Generation llm.GenerationParams
	Evaluation llm.GenerationParams

	MinQuestions int
	MaxQuestions int
}

// DefaultConfig returns sensible defaults for chapter tests.
func DefaultConfig() Config {
	return Config{
		Generation:   llm.GenerationParams{MaxTokens: 4096, Temperature: 0.6},
		Evaluation:   llm.GenerationParams{MaxTokens: 4096, Temperature: 0.2},
		MinQuestions: 5,
		MaxQuestions: 7,
	}
}
