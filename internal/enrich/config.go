package enrich

import "github.com/abhisek/lectern/internal/llm"

// Config holds per-operation generation settings.
type Config struct {
	Exercise    llm.GenerationParams
	GapMaterial llm.GenerationParams
	Explain     llm.GenerationParams
	FollowUp    llm.GenerationParams
	Evaluate    llm.GenerationParams
}

// DefaultConfig returns sensible defaults for enrichment.
func DefaultConfig() Config {
	return Config{
		Exercise:    llm.GenerationParams{MaxTokens: 1024, Temperature: 0.7},
		GapMaterial: llm.GenerationParams{MaxTokens: 1536, Temperature: 0.5},
		Explain:     llm.GenerationParams{MaxTokens: 768, Temperature: 0.3},
		FollowUp:    llm.GenerationParams{MaxTokens: 1024, Temperature: 0.5},
		Evaluate:    llm.GenerationParams{MaxTokens: 768, Temperature: 0.2},
	}
}
