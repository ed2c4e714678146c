package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

func newTestOpenAIProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	config := openai.DefaultConfig("test-key")
	config.BaseURL = server.URL + "/v1"
	return &OpenAIProvider{client: openai.NewClientWithConfig(config), model: "gpt-4o-mini"}
}

func chatCompletion(content, finish string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
		"usage": map[string]any{"prompt_tokens": 40, "completion_tokens": 25, "total_tokens": 65},
	}
}

func TestOpenAIProvider_ForwardsStrictFlag(t *testing.T) {
	for _, strict := range []bool{true, false} {
		var got openai.ChatCompletionRequest
		p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewDecoder(r.Body).Decode(&got)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(chatCompletion(`{"title":"Sorting"}`, "stop"))
		})

		schema := titleSchema()
		schema.Name = "openai-strict-test"
		schema.Strict = strict
		resp, err := p.Generate(context.Background(), NewRequest("sys", "topic", schema, GenerationParams{MaxTokens: 100}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Usage.TotalTokens != 65 {
			t.Fatalf("expected 65 tokens, got %d", resp.Usage.TotalTokens)
		}
		if got.ResponseFormat == nil || got.ResponseFormat.JSONSchema == nil {
			t.Fatal("expected json_schema response format")
		}
		if got.ResponseFormat.JSONSchema.Strict != strict {
			t.Errorf("strict = %v, want %v", got.ResponseFormat.JSONSchema.Strict, strict)
		}
		if len(got.Messages) != 2 || got.Messages[0].Role != openai.ChatMessageRoleSystem {
			t.Errorf("expected system + user messages, got %+v", got.Messages)
		}
	}
}

func TestOpenAIProvider_LengthFinish(t *testing.T) {
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletion(`{"tit`, "length"))
	})
	_, err := p.Generate(context.Background(), NewRequest("", "x", nil, GenerationParams{MaxTokens: 4}))
	var mt *ErrMaxTokensExceeded
	if !errors.As(err, &mt) {
		t.Fatalf("expected ErrMaxTokensExceeded, got %T (%v)", err, err)
	}
}

func TestOpenAIProvider_NoChoices(t *testing.T) {
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"id": "x", "object": "chat.completion", "choices": []any{}})
	})
	_, err := p.Generate(context.Background(), NewRequest("", "x", nil, GenerationParams{}))
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got %T (%v)", err, err)
	}
}

func TestOpenAIProvider_RateLimit(t *testing.T) {
	p := newTestOpenAIProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "slow down", "type": "rate_limit_error"},
		})
	})
	_, err := p.Generate(context.Background(), NewRequest("", "x", nil, GenerationParams{}))
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got %T (%v)", err, err)
	}
}

func TestOpenAIProvider_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	config := openai.DefaultConfig("k")
	config.BaseURL = url + "/v1"
	p := &OpenAIProvider{client: openai.NewClientWithConfig(config), model: "gpt-4o-mini"}

	_, err := p.Generate(context.Background(), NewRequest("", "x", nil, GenerationParams{}))
	var u *ErrProviderUnavailable
	if !errors.As(err, &u) {
		t.Fatalf("expected ErrProviderUnavailable, got %T (%v)", err, err)
	}
}
