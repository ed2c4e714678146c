// Package materials condenses learner-supplied study materials into the
// short summary the lecture planner works from.
package materials

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/abhisek/lectern/internal/llm"
	"github.com/abhisek/lectern/internal/logging"
)

// Config holds summarization settings.
type Config struct {
	Generation llm.GenerationParams

	// MaxChars is the longest text passed to the planner unchanged.
	MaxChars int

	// ChunkChars bounds each piece summarized in one request.
	ChunkChars int

	// Concurrency bounds parallel chunk requests.
	Concurrency int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Generation:  llm.GenerationParams{MaxTokens: 1024, Temperature: 0.2},
		MaxChars:    4000,
		ChunkChars:  12000,
		Concurrency: 3,
	}
}

// Summarizer shortens long materials with the collaborator.
type Summarizer struct {
	provider llm.Provider
	cfg      Config
	log      *logging.Logger
}

// New creates a Summarizer.
func New(provider llm.Provider, cfg Config, log *logging.Logger) *Summarizer {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Summarizer{provider: provider, cfg: cfg, log: logging.OrNop(log).Named("materials")}
}

type summaryOutput struct {
	Summary    string   `json:"summary"`
	KeyPoints  []string `json:"key_points"`
	Vocabulary []string `json:"vocabulary"`
}

// Summarize returns text unchanged when it is short enough. Longer text is
// split on paragraph boundaries and each piece is summarized; the pieces are
// joined in their original order.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= s.cfg.MaxChars {
		return text, nil
	}

	chunks := Split(text, s.cfg.ChunkChars)
	s.log.Info("summarizing materials", "chars", len(text), "chunks", len(chunks))

	ctx = llm.WithPurpose(ctx, llm.PurposeMaterials)
	parts := make([]string, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			out, err := s.summarizeChunk(gctx, chunk, i+1, len(chunks))
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i+1, err)
			}
			parts[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("summarize materials: %w", err)
	}
	return strings.Join(parts, "\n\n"), nil
}

func (s *Summarizer) summarizeChunk(ctx context.Context, chunk string, n, total int) (string, error) {
	user := fmt.Sprintf("Part %d of %d of the learner's materials:\n\n%s", n, total, chunk)
	resp, err := s.provider.Generate(ctx, llm.NewRequest(systemPrompt, user, SummarySchema, s.cfg.Generation))
	if err != nil {
		return "", err
	}

	var out summaryOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return "", fmt.Errorf("parse summary response: %w", err)
	}
	if strings.TrimSpace(out.Summary) == "" {
		return "", fmt.Errorf("empty summary")
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(out.Summary))
	for _, p := range out.KeyPoints {
		fmt.Fprintf(&b, "\n- %s", p)
	}
	if len(out.Vocabulary) > 0 {
		fmt.Fprintf(&b, "\nTerms: %s", strings.Join(out.Vocabulary, ", "))
	}
	return b.String(), nil
}

// Split cuts text into pieces of at most size runes, preferring paragraph
// breaks. A single paragraph longer than size is cut mid-paragraph.
func Split(text string, size int) []string {
	if size <= 0 || utf8.RuneCountInString(text) <= size {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(cur.String()))
			cur.Reset()
		}
	}
	for _, para := range strings.Split(text, "\n\n") {
		r := []rune(para)
		for len(r) > size {
			flush()
			chunks = append(chunks, string(r[:size]))
			r = r[size:]
		}
		if len(r) == 0 {
			continue
		}
		para = string(r)
		if utf8.RuneCountInString(cur.String())+len(r)+2 > size {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(para)
	}
	flush()
	return chunks
}
