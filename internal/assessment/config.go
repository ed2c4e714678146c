package assessment

import "github.com/abhisek/lectern/internal/llm"

// Config holds probe generation settings.
type Config struct {
	Generation llm.GenerationParams

	// MaxSkills caps how many skills one probe covers.
	MaxSkills int
}

// DefaultConfig returns sensible defaults for probe generation.
func DefaultConfig() Config {
	return Config{
		Generation: llm.GenerationParams{MaxTokens: 2048, Temperature: 0.5},
		MaxSkills:  8,
	}
}
