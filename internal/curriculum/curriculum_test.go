package curriculum

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestNewConceptMap_RejectsCrossChapterDuplicate(t *testing.T) {
	_, err := NewConceptMap(
		[]string{"Recursion", "Memoization"},
		map[string][]string{
			"ch-1": {"Recursion"},
			"ch-2": {"recursion "},
		},
	)
	if err == nil {
		t.Fatal("expected duplicate concept to be rejected")
	}
}

func TestNewConceptMap_RejectsUnknownConcept(t *testing.T) {
	_, err := NewConceptMap([]string{"A"}, map[string][]string{"ch-1": {"B"}})
	if err == nil {
		t.Fatal("expected unknown concept to be rejected")
	}
}

func TestConceptMap_ReturnsCopies(t *testing.T) {
	m, err := NewConceptMap([]string{"A", "B"}, map[string][]string{"ch-1": {"A"}, "ch-2": {"B"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	all := m.AllConcepts()
	all[0] = "mutated"
	ch := m.ChapterConcepts("ch-1")
	ch[0] = "mutated"

	if m.AllConcepts()[0] != "A" || m.ChapterConcepts("ch-1")[0] != "A" {
		t.Fatal("concept map was mutated through a returned slice")
	}
	if owner, ok := m.Owner(" b "); !ok || owner != "ch-2" {
		t.Fatalf("Owner(b) = %q, %v", owner, ok)
	}
}

func TestValidateSection_Variants(t *testing.T) {
	tests := []struct {
		name    string
		section LearningSection
		issues  int
	}{
		{"concept ok", LearningSection{ID: "s1", Title: "T", Format: FormatConcept, Content: SectionContent{Explanation: "x"}}, 0},
		{"process needs two steps", LearningSection{ID: "s1", Title: "T", Format: FormatProcess, Content: SectionContent{Explanation: "x", Steps: []string{"one", " "}}}, 1},
		{"process ok", LearningSection{ID: "s1", Title: "T", Format: FormatProcess, Content: SectionContent{Explanation: "x", Steps: []string{"one", "two"}}}, 0},
		{"method needs a step", LearningSection{ID: "s1", Title: "T", Format: FormatMethod, Content: SectionContent{Explanation: "x"}}, 1},
		{"framework needs components", LearningSection{ID: "s1", Title: "T", Format: FormatFramework, Content: SectionContent{Explanation: "x", Components: []Component{{Name: "A"}}}}, 1},
		{"comparison needs contrasts", LearningSection{ID: "s1", Title: "T", Format: FormatComparison, Content: SectionContent{Explanation: "x", ComparisonPoints: []ComparisonPoint{{Aspect: "cost", Contrast: "a vs b"}, {Aspect: "speed"}}}}, 1},
		{"unknown format", LearningSection{ID: "s1", Title: "T", Format: "video"}, 1},
		{"empty title and explanation", LearningSection{ID: "s1", Format: FormatConcept}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateSection(&tt.section)
			if len(got) != tt.issues {
				t.Fatalf("expected %d issues, got %v", tt.issues, got)
			}
		})
	}
}

func TestValidateSections_EmptyAndDuplicate(t *testing.T) {
	if len(ValidateSections(nil)) == 0 {
		t.Fatal("expected issue for empty sections")
	}
	s := &LearningSection{ID: "s1", Title: "T", Format: FormatConcept, Content: SectionContent{Explanation: "x"}}
	issues := ValidateSections([]*LearningSection{s, s})
	if len(issues) != 1 || issues[0].Field != "id" {
		t.Fatalf("expected one duplicate-id issue, got %v", issues)
	}
}

func TestOpError_IsAndRetryable(t *testing.T) {
	cause := errors.New("provider down")
	err := fmt.Errorf("navigate: %w", Fail(ErrMaterializationFailed, "lec/ch-1/ch-1-1", cause))

	if !errors.Is(err, ErrMaterializationFailed) {
		t.Error("expected kind to match")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to match")
	}
	if !IsRetryable(err) {
		t.Error("materialization failures are retryable")
	}
	if !strings.Contains(err.Error(), "lec/ch-1/ch-1-1") {
		t.Errorf("error should carry key: %v", err)
	}

	if IsRetryable(Fail(ErrMaterializationFailed, "", context.Canceled)) {
		t.Error("cancellation is not retryable")
	}
	if IsRetryable(Fail(ErrEnrichmentFailed, "", ErrNotFound)) {
		t.Error("missing entity is not retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("unclassified errors are not retryable")
	}
}

func TestEncodeDecode_PreservesStateAndVersion(t *testing.T) {
	cm, _ := NewConceptMap([]string{"A"}, map[string][]string{"ch-1": {"A"}})
	correct := 1
	lec := &Lecture{
		ID:       "lec-1",
		Title:    "Graphs",
		Concepts: cm,
		Chapters: []*Chapter{{
			ID: "ch-1", Unlocked: true,
			Subchapters: []*Subchapter{{
				ID: "ch-1-1", Completed: true, ConceptOutline: []string{"A"},
				Quiz: []*Exercise{{ID: "q1", Kind: KindQuiz, Options: []string{"x", "y"}, CorrectOption: &correct}},
			}},
		}},
		ChapterTests: []*ChapterTest{{ID: "t1", ChapterID: "ch-1", State: TestReady}},
	}

	data, err := lec.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeLecture(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.SchemaVersion != SchemaVersion {
		t.Errorf("schema version = %q", got.SchemaVersion)
	}
	if !got.Chapters[0].Unlocked || !got.Chapters[0].Subchapters[0].Completed {
		t.Error("monotonic flags lost in round trip")
	}
	if owner, ok := got.Concepts.Owner("A"); !ok || owner != "ch-1" {
		t.Error("concept map lost in round trip")
	}
	if !got.Chapters[0].Subchapters[0].Quiz[0].IsMultipleChoice() {
		t.Error("quiz options lost in round trip")
	}
	if got.ChapterTests[0].CurrentState() != TestReady {
		t.Error("chapter test state lost in round trip")
	}
}

func TestCheckSchemaVersion(t *testing.T) {
	tests := []struct {
		version string
		ok      bool
	}{
		{"", true},
		{"v1.0.0", true},
		{"v1.9.3", true},
		{"v2.0.0", false},
		{"one", false},
	}
	for _, tt := range tests {
		err := CheckSchemaVersion(tt.version)
		if (err == nil) != tt.ok {
			t.Errorf("CheckSchemaVersion(%q) = %v, want ok=%v", tt.version, err, tt.ok)
		}
	}
}

func TestLecture_Lookups(t *testing.T) {
	lec := &Lecture{Chapters: []*Chapter{
		{ID: "ch-1", Subchapters: []*Subchapter{{
			ID:       "ch-1-1",
			Sections: []*LearningSection{{ID: "s1", Exercise: &Exercise{ID: "e1"}}, {ID: "s2"}},
			Quiz:     []*Exercise{{ID: "q1"}},
		}}},
		{ID: "ch-2"},
	}}

	lec.Read(func(l *Lecture) {
		if _, _, idx, err := l.Section(SectionRef{"ch-1", "ch-1-1", "s2"}); err != nil || idx != 1 {
			t.Errorf("Section() idx=%d err=%v", idx, err)
		}
		if _, sec, ex, err := l.Exercise(ExerciseRef{"ch-1", "ch-1-1", "e1"}); err != nil || sec == nil || ex.ID != "e1" {
			t.Errorf("Exercise(e1) sec=%v err=%v", sec, err)
		}
		if _, sec, ex, err := l.Exercise(ExerciseRef{"ch-1", "ch-1-1", "q1"}); err != nil || sec != nil || ex.ID != "q1" {
			t.Errorf("Exercise(q1) sec=%v err=%v", sec, err)
		}
		if _, _, err := l.Subchapter("ch-9", "x"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if next := l.ChapterAfter("ch-1"); next == nil || next.ID != "ch-2" {
			t.Errorf("ChapterAfter(ch-1) = %v", next)
		}
		if l.ChapterAfter("ch-2") != nil {
			t.Error("expected no chapter after the last one")
		}
	})
}

func TestChapterTest_StateMachine(t *testing.T) {
	test := &ChapterTest{ID: "t1", State: TestGenerating, Questions: []TestQuestion{{ID: "q1", MaxPoints: 5}}}

	if err := test.Start(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("start before ready: %v", err)
	}
	if err := test.MarkReady(); err != nil {
		t.Fatal(err)
	}
	if err := test.SetAnswer("q1", "x"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("answer before start: %v", err)
	}
	if err := test.Start(); err != nil {
		t.Fatal(err)
	}
	if err := test.SetAnswer("q1", "first"); err != nil {
		t.Fatal(err)
	}
	if err := test.SetAnswer("q1", "second"); err != nil {
		t.Fatal(err)
	}
	if err := test.SetAnswer("q9", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown question: %v", err)
	}
	if err := test.Submit(); err != nil {
		t.Fatal(err)
	}
	if err := test.SetAnswer("q1", "third"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("answer after submit: %v", err)
	}
	if err := test.Submit(); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("double submit: %v", err)
	}
	if test.AnswerFor("q1") != "second" {
		t.Fatalf("answers not frozen: %q", test.AnswerFor("q1"))
	}

	if err := test.SetResult(&ChapterTestResult{}); err != nil {
		t.Fatal(err)
	}
	if err := test.SetResult(&ChapterTestResult{}); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("double evaluation: %v", err)
	}
}

func TestKeys(t *testing.T) {
	if got := (SubchapterKey{"l", "c", "s"}).String(); got != "l/c/s" {
		t.Errorf("SubchapterKey = %q", got)
	}
	if got := QuizGap(ExerciseRef{"c", "s", "q1"}).String(); got != "quiz:c/s/q1" {
		t.Errorf("QuizGap = %q", got)
	}
	if got := SectionGap(SectionRef{"c", "s", "x"}).String(); got != "section:c/s/x" {
		t.Errorf("SectionGap = %q", got)
	}
	if _, _, _, ok := ParseRef("a//c"); ok {
		t.Error("expected empty part to be rejected")
	}
	if c, s, id, ok := ParseRef("a/b/c"); !ok || c != "a" || s != "b" || id != "c" {
		t.Error("ParseRef(a/b/c) failed")
	}
}

func TestKnowledgeLevelRank(t *testing.T) {
	if !(LevelBeginner.Rank() < LevelIntermediate.Rank() && LevelIntermediate.Rank() < LevelAdvanced.Rank()) {
		t.Fatal("levels out of order")
	}
}

func TestParseChoice(t *testing.T) {
	options := []string{"Stack", "Queue", "Heap"}
	tests := []struct {
		answer string
		want   int
	}{
		{"queue", 1},
		{" Heap ", 2},
		{"1", 0},
		{"3", 2},
		{"4", -1},
		{"b", 1},
		{"C)", 2},
		{"d", -1},
		{"tree", -1},
		{"", -1},
	}
	for _, tt := range tests {
		if got := ParseChoice(tt.answer, options); got != tt.want {
			t.Errorf("ParseChoice(%q) = %d, want %d", tt.answer, got, tt.want)
		}
	}
}

func TestOptionLabel(t *testing.T) {
	if got := OptionLabel([]string{"x", "y"}, 1); got != "B) y" {
		t.Errorf("OptionLabel = %q", got)
	}
	if got := OptionLabel([]string{"x"}, 3); got != "" {
		t.Errorf("expected empty label, got %q", got)
	}
}
