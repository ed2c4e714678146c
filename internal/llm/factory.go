package llm

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/abhisek/lectern/internal/logging"
)

// Options carries the ambient collaborators the decorator chain needs.
type Options struct {
	Logger    *logging.Logger
	Tracer    trace.Tracer
	Recorders []UsageRecorder
}

// NewProvider builds the configured provider and wraps it:
// caller → tracing → retry → rate limit → logging → base.
func NewProvider(ctx context.Context, cfg Config, opts Options) (Provider, error) {
	var base Provider
	var err error

	switch cfg.Provider {
	case "anthropic":
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "openrouter":
		base, err = NewOpenRouterProvider(cfg.OpenRouter)
	case "mock":
		base = NewMockProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	return Wrap(base, cfg, opts), nil
}

// Wrap applies the decorator chain to an existing provider.
func Wrap(base Provider, cfg Config, opts Options) Provider {
	log := logging.OrNop(opts.Logger).Named("llm")
	logged := WithLogging(base, log, opts.Recorders...)
	limited := WithRateLimit(logged, cfg.RateLimit)
	retried := WithRetry(limited, cfg.Retry, log)
	return WithTracing(retried, opts.Tracer)
}
