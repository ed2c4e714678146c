package llm

import (
	"context"
	"encoding/json"
)

// Provider is the boundary to the content-generation service.
// Every curriculum component talks to the model through this interface and
// receives JSON that already passed schema validation.
type Provider interface {
	// Generate sends a prompt and returns a structured response. When
	// req.Schema is set, Content holds JSON conforming to it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes a single generation call.
type Request struct {
	// System sets the model's role and constraints.
	System string

	// Messages is the conversation. Curriculum calls are single-turn, so this
	// normally holds one user message.
	Messages []Message

	// Schema is the JSON Schema the response must conform to. When nil the
	// response Content is raw text.
	Schema *Schema

	MaxTokens   int
	Temperature float64
}

// Message is a single conversation turn.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema defines the JSON structure expected from the model.
type Schema struct {
	// Name identifies the schema, kebab-case (e.g. "lecture-plan"). It is also
	// the cache key for the compiled validator.
	Name string

	Description string

	// Definition is the JSON Schema document.
	Definition map[string]any

	// Strict asks providers that support it to enforce the schema while
	// decoding. Schemas with optional properties must leave this false since
	// strict decoding requires every property to be listed as required.
	Strict bool
}

// Response holds the model's output.
type Response struct {
	// Content is the validated JSON object when a Schema was set, otherwise
	// the raw text.
	Content json.RawMessage

	Usage Usage

	// Model is the model that actually served the request.
	Model string

	// StopReason is normalized to "end", "max_tokens" or "error".
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// GenerationParams carries the per-purpose token and temperature settings that
// components keep in their Config.
type GenerationParams struct {
	MaxTokens   int
	Temperature float64
}

// NewRequest builds the single-turn request shape used by every curriculum
// component.
func NewRequest(system, user string, schema *Schema, p GenerationParams) Request {
	return Request{
		System: system,
		Messages: []Message{
			{Role: RoleUser, Content: user},
		},
		Schema:      schema,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
	}
}

// UserContent returns the concatenated user turns of the request. Tests use it
// to assert on what context a component sent.
func (r Request) UserContent() string {
	var out string
	for _, m := range r.Messages {
		if m.Role == RoleUser {
			out += m.Content
		}
	}
	return out
}
