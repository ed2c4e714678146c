package chaptertest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/abhisek/lectern/internal/curriculum"
	"github.com/abhisek/lectern/internal/curriculum/curriculumtest"
	"github.com/abhisek/lectern/internal/llm"
)

func question(category string, points int) map[string]any {
	return map[string]any{
		"category":       category,
		"difficulty":     "medium",
		"prompt":         "Explain " + category,
		"max_points":     points,
		"correct_option": -1,
		"rubric":         "Mentions the key idea",
		"subchapter_id":  "ch-1-1",
	}
}

func mcq(points int) map[string]any {
	return map[string]any{
		"category":       "conceptual",
		"difficulty":     "easy",
		"prompt":         "Which stops recursion?",
		"max_points":     points,
		"options":        []string{"Loop", "Base case"},
		"correct_option": 1,
	}
}

func testJSON(t *testing.T, questions ...map[string]any) llm.MockResponse {
	t.Helper()
	b, err := json.Marshal(map[string]any{"questions": questions})
	if err != nil {
		t.Fatal(err)
	}
	return llm.MockResponse{Content: b}
}

func sixQuestions(t *testing.T) llm.MockResponse {
	return testJSON(t,
		question("framework-application", 3),
		question("process-implementation", 4),
		question("conceptual", 2),
		question("integration", 5),
		question("integration", 3),
		mcq(2),
	)
}

func evalJSON(t *testing.T, scores map[string]float64) llm.MockResponse {
	t.Helper()
	answers := []any{}
	for id, s := range scores {
		answers = append(answers, map[string]any{"question_id": id, "score": s, "feedback": "ok " + id})
	}
	b, err := json.Marshal(map[string]any{
		"answers":      answers,
		"feedback":     "Solid work.",
		"strengths":    []string{"recursion"},
		"improvements": []string{"tabulation"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return llm.MockResponse{Content: b}
}

func startedTest(t *testing.T, e *Engine, lec *curriculum.Lecture) *curriculum.ChapterTest {
	t.Helper()
	test, err := e.Generate(context.Background(), lec, "ch-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := test.Start(); err != nil {
		t.Fatal(err)
	}
	return test
}

func TestGenerate(t *testing.T) {
	mock := llm.NewMockProvider(sixQuestions(t))
	e := New(mock, DefaultConfig(), nil, nil)
	lec := curriculumtest.NewLecture()
	lec.Assessment = &curriculum.AssessmentSummary{Results: []curriculum.AssessmentResult{
		{SkillID: "Memoization", Score: 0.5, Level: curriculum.LevelIntermediate},
		{SkillID: "Recursion", Score: 0.2, Level: curriculum.LevelBeginner},
		{SkillID: "Tabulation", Score: 0, Level: curriculum.LevelBeginner},
	}}
	lec.ExerciseHistory = []curriculum.ExerciseAttempt{
		{ChapterID: "ch-1", SubchapterID: "ch-1-2", IsCorrect: false},
		{ChapterID: "ch-1", SubchapterID: "ch-1-2", IsCorrect: false},
		{ChapterID: "ch-1", SubchapterID: "ch-1-1", IsCorrect: true},
	}

	test, err := e.Generate(context.Background(), lec, "ch-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if test.CurrentState() != curriculum.TestReady {
		t.Errorf("expected ready, got %s", test.CurrentState())
	}
	if len(test.Questions) != 6 || test.TotalPoints != 19 {
		t.Errorf("expected 6 questions worth 19 points, got %d worth %d", len(test.Questions), test.TotalPoints)
	}
	if test.Questions[0].ID != "q1" || !test.Questions[5].IsMultipleChoice() {
		t.Errorf("unexpected questions: %+v", test.Questions)
	}
	if got := strings.Join(test.Focus, ","); got != "Recursion,Memoization,Caching results" {
		t.Errorf("unexpected focus: %s", got)
	}

	msg := mock.Calls[0].UserContent()
	if !strings.Contains(msg, "Priority focus") || strings.Contains(msg, "Tabulation (beginner)") {
		t.Errorf("focus must list the chapter's weak skills only:\n%s", msg)
	}
	if strings.Index(msg, "weak skill Recursion") > strings.Index(msg, "weak skill Memoization") {
		t.Error("weakest skill must come first")
	}

	lec.Read(func(l *curriculum.Lecture) {
		if len(l.ChapterTests) != 1 || l.ChapterTests[0] != test {
			t.Error("expected test in lecture history")
		}
	})
}

func TestGenerate_TruncatesExtraQuestions(t *testing.T) {
	mock := llm.NewMockProvider(testJSON(t,
		question("framework-application", 1), question("process-implementation", 1),
		question("conceptual", 1), question("integration", 1),
		question("conceptual", 1), question("conceptual", 1),
		question("conceptual", 1), question("conceptual", 1),
	))
	e := New(mock, DefaultConfig(), nil, nil)

	test, err := e.Generate(context.Background(), curriculumtest.NewLecture(), "ch-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(test.Questions) != 7 || test.TotalPoints != 7 {
		t.Fatalf("expected 7 questions, got %d", len(test.Questions))
	}
}

func TestGenerate_Rejections(t *testing.T) {
	tests := []struct {
		name string
		resp llm.MockResponse
	}{
		{"too few", testJSON(t,
			question("framework-application", 1), question("process-implementation", 1),
			question("conceptual", 1), question("integration", 1))},
		{"missing category", testJSON(t,
			question("conceptual", 1), question("conceptual", 1), question("conceptual", 1),
			question("integration", 1), question("process-implementation", 1))},
		{"collaborator error", llm.MockResponse{Err: &llm.ErrProviderUnavailable{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(llm.NewMockProvider(tt.resp), DefaultConfig(), nil, nil)
			lec := curriculumtest.NewLecture()

			_, err := e.Generate(context.Background(), lec, "ch-1")
			if !errors.Is(err, curriculum.ErrTestGenerationFailed) {
				t.Fatalf("expected ErrTestGenerationFailed, got %v", err)
			}
			if len(lec.ChapterTests) != 0 {
				t.Fatal("rejected test must not be recorded")
			}
		})
	}
}

func TestGenerate_UnknownChapter(t *testing.T) {
	mock := llm.NewMockProvider()
	e := New(mock, DefaultConfig(), nil, nil)
	_, err := e.Generate(context.Background(), curriculumtest.NewLecture(), "ch-9")
	if !errors.Is(err, curriculum.ErrNotFound) || mock.CallCount() != 0 {
		t.Fatalf("expected ErrNotFound without a call, got %v", err)
	}
}

func TestGenerate_LockedChapter(t *testing.T) {
	mock := llm.NewMockProvider()
	e := New(mock, DefaultConfig(), nil, nil)
	lec := curriculumtest.NewLecture()
	lec.Chapters[1].Unlocked = false

	_, err := e.Generate(context.Background(), lec, "ch-2")
	if !errors.Is(err, curriculum.ErrInvalidState) || mock.CallCount() != 0 {
		t.Fatalf("expected ErrInvalidState without a call, got %v", err)
	}
	if curriculum.IsRetryable(err) {
		t.Error("a locked chapter is not a retryable failure")
	}
	lec.Read(func(l *curriculum.Lecture) {
		if len(l.ChapterTests) != 0 {
			t.Errorf("expected no test recorded, got %d", len(l.ChapterTests))
		}
	})
}

func TestEvaluate_ScoreConservation(t *testing.T) {
	scoreSets := []map[string]float64{
		{"q1": 3, "q2": 4, "q3": 2, "q4": 5, "q5": 3},
		{"q1": 1.5, "q2": 0.25, "q3": 1, "q4": 2.75, "q5": 0},
		{"q1": -2, "q2": 100, "q3": 2.5, "q4": 5.1},
		{},
	}
	for i, scores := range scoreSets {
		t.Run(fmt.Sprintf("set-%d", i), func(t *testing.T) {
			mock := llm.NewMockProvider(sixQuestions(t), evalJSON(t, scores))
			e := New(mock, DefaultConfig(), nil, nil)
			lec := curriculumtest.NewLecture()
			test := startedTest(t, e, lec)
			for _, q := range test.Questions {
				if err := test.SetAnswer(q.ID, "my answer"); err != nil {
					t.Fatal(err)
				}
			}
			test.SetAnswer("q6", "2")

			r, err := e.Evaluate(context.Background(), lec, test, 12)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			sum := 0.0
			for _, a := range r.Answers {
				if a.Score < 0 || a.Score > float64(a.MaxPoints) {
					t.Errorf("score %v out of [0,%d] for %s", a.Score, a.MaxPoints, a.QuestionID)
				}
				sum += a.Score
			}
			if sum != r.TotalScore {
				t.Errorf("sum of scores %v != total %v", sum, r.TotalScore)
			}
			if r.TotalScore > float64(r.MaxScore) || r.MaxScore != test.TotalPoints {
				t.Errorf("total %v exceeds max %d", r.TotalScore, r.MaxScore)
			}
			if len(r.Answers) != len(test.Questions) {
				t.Errorf("expected an answer per question, got %d", len(r.Answers))
			}
		})
	}
}

func TestEvaluate_GradesMultipleChoiceLocally(t *testing.T) {
	mock := llm.NewMockProvider(sixQuestions(t), evalJSON(t, map[string]float64{"q6": 0, "q1": 3}))
	e := New(mock, DefaultConfig(), nil, nil)
	lec := curriculumtest.NewLecture()
	test := startedTest(t, e, lec)
	test.SetAnswer("q1", "a framework answer")
	test.SetAnswer("q6", "base case")

	r, err := e.Evaluate(context.Background(), lec, test, 5)
	if err != nil {
		t.Fatal(err)
	}
	mcqAnswer := r.Answers[5]
	if mcqAnswer.IsCorrect == nil || !*mcqAnswer.IsCorrect || mcqAnswer.Score != 2 {
		t.Errorf("expected local MCQ credit, got %+v", mcqAnswer)
	}
	if r.Answers[1].Score != 0 {
		t.Errorf("unanswered question must score 0, got %v", r.Answers[1].Score)
	}
	if r.TotalScore != 5 || math.Abs(r.Percentage-500.0/19) > 1e-9 {
		t.Errorf("unexpected totals: %v, %v", r.TotalScore, r.Percentage)
	}
	if r.MasteryLevel != curriculum.LevelBeginner || r.TimeSpentMinutes != 5 {
		t.Errorf("unexpected result: %+v", r)
	}
	if test.CurrentState() != curriculum.TestCompleted {
		t.Error("expected evaluated test to be completed")
	}
}

func TestEvaluate_FallbackOnCollaboratorFailure(t *testing.T) {
	mock := llm.NewMockProviderFunc(func(ctx context.Context, req llm.Request) llm.MockResponse {
		if req.Schema == TestSchema {
			return sixQuestions(t)
		}
		return llm.MockResponse{Err: &llm.ErrProviderUnavailable{}}
	})
	e := New(mock, DefaultConfig(), nil, nil)
	lec := curriculumtest.NewLecture()
	test := startedTest(t, e, lec)
	test.SetAnswer("q6", "base case")

	r, err := e.Evaluate(context.Background(), lec, test, 9)
	if err != nil {
		t.Fatalf("evaluation must not fail, got %v", err)
	}
	if !r.Fallback || r.TotalScore != 0 || r.Feedback == "" {
		t.Fatalf("unexpected fallback result: %+v", r)
	}
	for _, a := range r.Answers {
		if a.Score != 0 || a.IsCorrect != nil {
			t.Errorf("fallback answers must be unscored, got %+v", a)
		}
	}
	if r.MaxScore != 19 || r.Percentage != 0 || r.MasteryLevel != curriculum.LevelBeginner {
		t.Errorf("unexpected aggregates: %+v", r)
	}
	if test.CurrentState() != curriculum.TestCompleted || test.Evaluated() != r {
		t.Error("fallback result must resolve the test")
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	mock := llm.NewMockProvider(sixQuestions(t), evalJSON(t, map[string]float64{"q1": 1}))
	e := New(mock, DefaultConfig(), nil, nil)
	lec := curriculumtest.NewLecture()
	test := startedTest(t, e, lec)

	first, err := e.Evaluate(context.Background(), lec, test, 1)
	if err != nil {
		t.Fatal(err)
	}
	second, err := e.Evaluate(context.Background(), lec, test, 1)
	if err != nil {
		t.Fatal(err)
	}
	if first != second || mock.CallCount() != 2 {
		t.Fatalf("expected the stored result without another call, got %d calls", mock.CallCount())
	}
}

func TestEvaluate_DuplicateWhileGrading(t *testing.T) {
	gen, eval := sixQuestions(t), evalJSON(t, map[string]float64{"q1": 2})
	entered, release := make(chan struct{}), make(chan struct{})
	mock := llm.NewMockProviderFunc(func(ctx context.Context, req llm.Request) llm.MockResponse {
		if llm.PurposeFrom(ctx) == llm.PurposeTestGen {
			return gen
		}
		close(entered)
		<-release
		return eval
	})
	e := New(mock, DefaultConfig(), nil, nil)
	lec := curriculumtest.NewLecture()
	test := startedTest(t, e, lec)

	var (
		wg    sync.WaitGroup
		first *curriculum.ChapterTestResult
		err1  error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		first, err1 = e.Evaluate(context.Background(), lec, test, 2)
	}()
	<-entered

	_, err := e.Evaluate(context.Background(), lec, test, 2)
	if !errors.Is(err, ErrEvaluationInFlight) || !errors.Is(err, curriculum.ErrEvaluationFailed) {
		t.Fatalf("expected ErrEvaluationInFlight, got %v", err)
	}
	if !curriculum.IsRetryable(err) {
		t.Error("an in-flight evaluation must be retryable")
	}

	close(release)
	wg.Wait()
	if err1 != nil {
		t.Fatal(err1)
	}
	again, err := e.Evaluate(context.Background(), lec, test, 2)
	if err != nil || again != first {
		t.Fatalf("expected the stored result after grading, got %v, %v", again, err)
	}
	if mock.CallCount() != 2 {
		t.Errorf("expected one generation and one evaluation call, got %d", mock.CallCount())
	}
}

func TestEvaluate_NotStarted(t *testing.T) {
	e := New(llm.NewMockProvider(sixQuestions(t)), DefaultConfig(), nil, nil)
	lec := curriculumtest.NewLecture()
	test, err := e.Generate(context.Background(), lec, "ch-1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Evaluate(context.Background(), lec, test, 0); !errors.Is(err, curriculum.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestSchemasCompile(t *testing.T) {
	for _, s := range []*llm.Schema{TestSchema, EvaluationSchema} {
		if err := llm.ValidateSchema(s); err != nil {
			t.Errorf("schema %s: %v", s.Name, err)
		}
	}
}
