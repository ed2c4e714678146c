package concepts

import (
	"github.com/abhisek/lectern/internal/curriculum"
	"github.com/abhisek/lectern/internal/llm"
)

// Config holds lecture planning settings.
type Config struct {
	Generation   llm.GenerationParams
	UnlockPolicy curriculum.UnlockPolicy
}

// DefaultConfig returns sensible defaults for lecture planning.
func DefaultConfig() Config {
	return Config{
		Generation:   llm.GenerationParams{MaxTokens: 4096, Temperature: 0.4},
		UnlockPolicy: curriculum.UnlockOpen,
	}
}
