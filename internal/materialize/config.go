package materialize

import "github.com/abhisek/lectern/internal/llm"

// Config holds materialization settings.
type Config struct {
	Sections llm.GenerationParams
	Enhance  llm.GenerationParams

	// PrefetchConcurrency bounds concurrent materializations in PrefetchChapter.
	PrefetchConcurrency int
}

// DefaultConfig returns sensible defaults for materialization.
func DefaultConfig() Config {
	return Config{
		Sections:            llm.GenerationParams{MaxTokens: 8192, Temperature: 0.6},
		Enhance:             llm.GenerationParams{MaxTokens: 8192, Temperature: 0.2},
		PrefetchConcurrency: 3,
	}
}
