package concepts

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/abhisek/lectern/internal/curriculum"
	"github.com/abhisek/lectern/internal/llm"
)

func planJSON(t *testing.T, v map[string]any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func sub(title string, outline ...string) map[string]any {
	if outline == nil {
		outline = []string{}
	}
	return map[string]any{"title": title, "objective": "Learn " + title, "concept_outline": outline}
}

func chapter(title string, concepts []string, subs ...map[string]any) map[string]any {
	return map[string]any{"title": title, "concepts": concepts, "subchapters": subs}
}

func newTestCoordinator(responses ...llm.MockResponse) (*Coordinator, *llm.MockProvider) {
	mock := llm.NewMockProvider(responses...)
	return NewCoordinator(mock, DefaultConfig(), nil), mock
}

func TestPlan_NoConceptDuplication(t *testing.T) {
	content := planJSON(t, map[string]any{
		"lecture_title": "Dynamic Programming",
		"all_concepts":  []string{"Recursion", "Memoization", "Tabulation"},
		"chapters": []any{
			chapter("Foundations", []string{"Recursion", "Memoization"},
				sub("Recursive thinking", "Recursion"),
				sub("Caching results", "Memoization", "Recursion")),
			chapter("Bottom-up", []string{"memoization", "Tabulation", "State design"},
				sub("Tables", "Tabulation", "Memoization"),
				sub("States")),
		},
	})
	c, mock := newTestCoordinator(llm.MockResponse{Content: content})

	lec, err := c.Plan(context.Background(), PlanInput{Topic: "DP", Goal: "pass interviews"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", mock.CallCount())
	}

	seen := map[string]string{}
	for _, ch := range lec.Chapters {
		for _, concept := range lec.Concepts.ChapterConcepts(ch.ID) {
			k := curriculum.ConceptKey(concept)
			if prev, dup := seen[k]; dup {
				t.Fatalf("concept %q in both %s and %s", concept, prev, ch.ID)
			}
			seen[k] = ch.ID
		}
	}
	if owner, _ := lec.Concepts.Owner("Memoization"); owner != "ch-1" {
		t.Errorf("Memoization should stay with the first chapter, got %s", owner)
	}
	if got := lec.Concepts.AllConcepts(); len(got) != 4 || got[3] != "State design" {
		t.Errorf("missing concepts should be appended to all_concepts: %v", got)
	}

	ch1 := lec.Chapters[0]
	if got := ch1.Subchapters[1].ConceptOutline; len(got) != 1 || got[0] != "Memoization" {
		t.Errorf("outline should be exclusive within a chapter, got %v", got)
	}
	ch2 := lec.Chapters[1]
	if got := ch2.Subchapters[0].ConceptOutline; len(got) != 1 || got[0] != "Tabulation" {
		t.Errorf("outline should be limited to the chapter's concepts, got %v", got)
	}
	if got := ch2.Subchapters[1].ConceptOutline; len(got) != 1 || got[0] != "State design" {
		t.Errorf("empty outline should receive unassigned concepts, got %v", got)
	}
}

func TestPlan_AssignsIDsAndDefaults(t *testing.T) {
	content := planJSON(t, map[string]any{
		"lecture_title": "",
		"all_concepts":  []string{"A", "B"},
		"chapters": []any{
			map[string]any{"id": "intro", "title": "One", "concepts": []string{"A"}, "subchapters": []any{sub("x", "A")}},
			map[string]any{"id": "intro", "title": "Two", "concepts": []string{"B"}, "subchapters": []any{sub("y", "B")}},
		},
	})
	c, _ := newTestCoordinator(llm.MockResponse{Content: content})

	lec, err := c.Plan(context.Background(), PlanInput{Topic: "Letters"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lec.Chapters[0].ID != "intro" || lec.Chapters[1].ID != "ch-2" {
		t.Errorf("chapter IDs = %s, %s", lec.Chapters[0].ID, lec.Chapters[1].ID)
	}
	if lec.Chapters[1].Subchapters[0].ID != "ch-2-1" {
		t.Errorf("subchapter ID = %s", lec.Chapters[1].Subchapters[0].ID)
	}
	if lec.Title != "Letters" {
		t.Errorf("title should fall back to topic, got %q", lec.Title)
	}
	if lec.ID == "" || lec.SchemaVersion != curriculum.SchemaVersion {
		t.Errorf("lecture metadata missing: id=%q version=%q", lec.ID, lec.SchemaVersion)
	}
	if lec.Current.ChapterID != "intro" || lec.Current.SubchapterID != "ch-1-1" {
		t.Errorf("current position = %+v", lec.Current)
	}
}

func TestPlan_RejectsUnteachableSubchapter(t *testing.T) {
	content := planJSON(t, map[string]any{
		"lecture_title": "T",
		"all_concepts":  []string{"A"},
		"chapters": []any{
			chapter("One", []string{"A"}, sub("first", "A"), sub("second", "A")),
		},
	})
	c, _ := newTestCoordinator(llm.MockResponse{Content: content})

	lec, err := c.Plan(context.Background(), PlanInput{Topic: "T"})
	if !errors.Is(err, curriculum.ErrPlanGenerationFailed) {
		t.Fatalf("expected ErrPlanGenerationFailed, got %v", err)
	}
	if lec != nil {
		t.Fatal("no partial lecture may be returned")
	}
}

func TestPlan_CollaboratorFailures(t *testing.T) {
	tests := []struct {
		name string
		resp llm.MockResponse
	}{
		{"provider error", llm.MockResponse{Err: &llm.ErrProviderUnavailable{}}},
		{"schema violation", llm.MockResponse{Content: json.RawMessage(`{"lecture_title":"x"}`)}},
		{"no chapters", llm.MockResponse{Content: json.RawMessage(`{"lecture_title":"x","all_concepts":[],"chapters":[]}`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestCoordinator(tt.resp)
			lec, err := c.Plan(context.Background(), PlanInput{Topic: "T"})
			if !errors.Is(err, curriculum.ErrPlanGenerationFailed) || lec != nil {
				t.Fatalf("expected plan failure, got lec=%v err=%v", lec, err)
			}
			if !curriculum.IsRetryable(err) {
				t.Error("plan failures should be retryable")
			}
		})
	}
}

func TestPlan_RequiresTopic(t *testing.T) {
	c, mock := newTestCoordinator()
	if _, err := c.Plan(context.Background(), PlanInput{Topic: "  "}); err == nil {
		t.Fatal("expected error for empty topic")
	}
	if mock.CallCount() != 0 {
		t.Fatal("no call should be made without a topic")
	}
}

func TestPlan_PromptCarriesInputs(t *testing.T) {
	content := planJSON(t, map[string]any{
		"lecture_title": "T", "all_concepts": []string{"A"},
		"chapters": []any{chapter("One", []string{"A"}, sub("s", "A"))},
	})
	c, mock := newTestCoordinator(llm.MockResponse{Content: content})
	_, err := c.Plan(context.Background(), PlanInput{Topic: "Graphs", Goal: "ace exams", MaterialsSummary: "BFS notes"})
	if err != nil {
		t.Fatal(err)
	}
	req, _ := mock.LastCall()
	for _, want := range []string{"Graphs", "ace exams", "BFS notes"} {
		if !strings.Contains(req.UserContent(), want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if req.Schema != PlanSchema {
		t.Error("expected lecture-plan schema")
	}
}

func TestResolveOutlines_RoundRobin(t *testing.T) {
	got, err := resolveOutlines([]string{"A", "B", "C", "D"}, [][]string{{"a"}, nil, {}})
	if err != nil {
		t.Fatal(err)
	}
	if len(got[0]) != 1 || got[0][0] != "A" {
		t.Errorf("first outline = %v", got[0])
	}
	if strings.Join(got[1], ",") != "B,D" || strings.Join(got[2], ",") != "C" {
		t.Errorf("round robin = %v / %v", got[1], got[2])
	}
}

func TestPlanSchemaCompiles(t *testing.T) {
	if err := llm.ValidateSchema(PlanSchema); err != nil {
		t.Fatal(err)
	}
}
