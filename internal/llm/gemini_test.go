package llm

import (
	"testing"

	"google.golang.org/genai"
)

func TestGeminiModelMapping(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"gemini-flash", "gemini-2.5-flash"},
		{"gemini-pro", "gemini-2.5-pro"},
		{"gemini-2.0-flash", "gemini-2.0-flash"},
	}
	for _, tt := range tests {
		if got := resolveModel(tt.input, geminiModels); got != tt.expected {
			t.Errorf("resolveModel(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestBuildGeminiSchema(t *testing.T) {
	def := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":  map[string]any{"type": "string"},
			"format": map[string]any{"type": []any{"string", "null"}, "enum": []string{"text", "code"}},
			"points": map[string]any{"type": "integer"},
			"concepts": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    map[string]any{"type": "string"},
			},
		},
		"required": []string{"title", "concepts"},
	}

	s := buildGeminiSchema(def)

	if s.Type != genai.TypeObject {
		t.Fatalf("expected OBJECT, got %s", s.Type)
	}
	if len(s.Properties) != 4 {
		t.Fatalf("expected 4 properties, got %d", len(s.Properties))
	}
	f := s.Properties["format"]
	if f.Type != genai.TypeString || f.Nullable == nil || !*f.Nullable {
		t.Fatalf("expected nullable STRING for format, got %+v", f)
	}
	if len(f.Enum) != 2 {
		t.Fatalf("expected 2 enum values, got %d", len(f.Enum))
	}
	c := s.Properties["concepts"]
	if c.Type != genai.TypeArray || c.Items.Type != genai.TypeString {
		t.Fatalf("unexpected concepts schema: %+v", c)
	}
	if c.MinItems == nil || *c.MinItems != 1 {
		t.Fatal("expected minItems 1")
	}
	if len(s.Required) != 2 {
		t.Fatalf("expected 2 required fields, got %d", len(s.Required))
	}
}
