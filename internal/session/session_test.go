package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/abhisek/lectern/internal/assessment"
	"github.com/abhisek/lectern/internal/chaptertest"
	"github.com/abhisek/lectern/internal/concepts"
	"github.com/abhisek/lectern/internal/curriculum"
	"github.com/abhisek/lectern/internal/curriculum/curriculumtest"
	"github.com/abhisek/lectern/internal/enrich"
	"github.com/abhisek/lectern/internal/llm"
	"github.com/abhisek/lectern/internal/materialize"
	"github.com/abhisek/lectern/internal/progress"
	"github.com/abhisek/lectern/internal/store"
)

// memRepo is an in-memory store.LectureRepo.
type memRepo struct {
	mu        sync.Mutex
	docs      map[string][]byte
	upserts   int
	upsertErr error
	loadErr   error
}

func newMemRepo() *memRepo {
	return &memRepo{docs: make(map[string][]byte)}
}

func (r *memRepo) LoadAll(_ context.Context, userID string) ([]*curriculum.Lecture, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var docs [][]byte
	for k, doc := range r.docs {
		if strings.HasPrefix(k, userID+"/") {
			docs = append(docs, doc)
		}
	}
	lectures, err := store.DecodeAll(docs)
	store.SortByCreation(lectures)
	if r.loadErr != nil {
		return lectures, r.loadErr
	}
	return lectures, err
}

func (r *memRepo) Upsert(_ context.Context, userID string, lec *curriculum.Lecture) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	doc, _, _, err := store.EncodeLecture(lec)
	if err != nil {
		return err
	}
	r.docs[userID+"/"+lec.ID] = doc
	r.upserts++
	return nil
}

func (r *memRepo) Delete(_ context.Context, userID, lectureID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, userID+"/"+lectureID)
	return nil
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.docs)
}

func newServices(p llm.Provider, repo store.LectureRepo) Services {
	return Services{
		Planner:      concepts.NewCoordinator(p, concepts.DefaultConfig(), nil),
		Materializer: materialize.New(p, materialize.DefaultConfig(), nil, nil),
		Enrichment:   enrich.New(p, enrich.DefaultConfig(), nil, nil),
		Probes:       assessment.NewGenerator(p, assessment.DefaultConfig(), nil),
		Progress:     progress.NewTracker(progress.DefaultConfig(), nil),
		Tests:        chaptertest.New(p, chaptertest.DefaultConfig(), nil, nil),
		Repo:         repo,
	}
}

// libraryWith returns a library holding the fixture lecture.
func libraryWith(t *testing.T, p llm.Provider, repo store.LectureRepo) (*Library, *Context) {
	t.Helper()
	lib := NewLibrary("user-1", newServices(p, repo))
	c := newContext("user-1", curriculumtest.NewLecture(), lib.svc)
	lib.add(c)
	return lib, c
}

func sectionsResponse(t *testing.T) llm.MockResponse {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"sections": []any{
			map[string]any{
				"title":               "Base case",
				"format":              "concept",
				"has_exercise_button": true,
				"content":             map[string]any{"explanation": "Every recursion stops somewhere."},
			},
		},
		"quiz": []any{
			map[string]any{"prompt": "Pick one", "options": []string{"a", "b"}, "correct_option": 0},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return llm.MockResponse{Content: b}
}

func TestLibrary_PlanPersists(t *testing.T) {
	content, _ := json.Marshal(map[string]any{
		"lecture_title": "Graphs",
		"all_concepts":  []string{"BFS", "DFS"},
		"chapters": []any{
			map[string]any{
				"title":    "Traversal",
				"concepts": []string{"BFS", "DFS"},
				"subchapters": []any{
					map[string]any{"title": "Breadth first", "objective": "Learn BFS", "concept_outline": []string{"BFS"}},
					map[string]any{"title": "Depth first", "objective": "Learn DFS", "concept_outline": []string{"DFS"}},
				},
			},
		},
	})
	repo := newMemRepo()
	lib := NewLibrary("user-1", newServices(llm.NewMockProvider(llm.MockResponse{Content: content}), repo))

	c, err := lib.Plan(context.Background(), concepts.PlanInput{Topic: "Graphs", Goal: "interviews"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.count() != 1 {
		t.Fatalf("expected plan to be persisted, got %d documents", repo.count())
	}
	c.Lecture().Read(func(l *curriculum.Lecture) {
		if l.UserID != "user-1" {
			t.Errorf("expected lecture owned by user-1, got %q", l.UserID)
		}
		if !l.Chapters[0].Unlocked {
			t.Error("expected first chapter unlocked")
		}
	})

	opened, err := lib.Open(c.ID()[:8])
	if err != nil || opened != c {
		t.Fatalf("expected open by prefix to find the lecture, got %v", err)
	}
}

func TestLibrary_PlanFailureAddsNothing(t *testing.T) {
	repo := newMemRepo()
	lib := NewLibrary("user-1", newServices(llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{}}), repo))

	_, err := lib.Plan(context.Background(), concepts.PlanInput{Topic: "Graphs"})
	if !errors.Is(err, curriculum.ErrPlanGenerationFailed) {
		t.Fatalf("expected ErrPlanGenerationFailed, got %v", err)
	}
	if len(lib.Lectures()) != 0 || repo.count() != 0 {
		t.Fatal("failed plan must not add a lecture")
	}
}

func TestContext_NavigateMaterializesOnce(t *testing.T) {
	mock := llm.NewMockProvider(sectionsResponse(t))
	repo := newMemRepo()
	_, c := libraryWith(t, mock, repo)
	ctx := context.Background()

	out, err := c.Navigate(ctx, "ch-2", "ch-2-1")
	if err != nil || out != materialize.OutcomeMaterialized {
		t.Fatalf("Navigate = %s, %v", out, err)
	}
	out, err = c.Navigate(ctx, "ch-2", "ch-2-1")
	if err != nil || out != materialize.OutcomeAlreadyMaterialized {
		t.Fatalf("second Navigate = %s, %v", out, err)
	}
	if mock.CallCount() != 1 {
		t.Errorf("expected 1 collaborator call, got %d", mock.CallCount())
	}

	c.Lecture().Read(func(l *curriculum.Lecture) {
		if l.Current.ChapterID != "ch-2" || l.Current.SubchapterID != "ch-2-1" {
			t.Errorf("unexpected position %+v", l.Current)
		}
		_, sub, _ := l.Subchapter("ch-2", "ch-2-1")
		if !sub.Started || len(sub.Sections) != 1 {
			t.Errorf("unexpected subchapter state: started=%v sections=%d", sub.Started, len(sub.Sections))
		}
	})
	if repo.upserts != 2 {
		t.Errorf("expected a save per navigation, got %d", repo.upserts)
	}
}

func TestContext_PersistenceFailureKeepsInMemoryChanges(t *testing.T) {
	repo := newMemRepo()
	repo.upsertErr = errors.New("disk full")
	_, c := libraryWith(t, llm.NewMockProvider(sectionsResponse(t)), repo)

	out, err := c.Navigate(context.Background(), "ch-1", "ch-1-1")
	if !errors.Is(err, curriculum.ErrPersistenceFailed) {
		t.Fatalf("expected ErrPersistenceFailed, got %v", err)
	}
	if out != materialize.OutcomeMaterialized {
		t.Fatalf("expected materialization to succeed, got %s", out)
	}
	c.Lecture().Read(func(l *curriculum.Lecture) {
		_, sub, _ := l.Subchapter("ch-1", "ch-1-1")
		if !sub.Materialized() {
			t.Error("expected sections to stay in memory")
		}
	})
}

func TestContext_NavigateLockedChapter(t *testing.T) {
	mock := llm.NewMockProvider()
	_, c := libraryWith(t, mock, nil)
	c.Lecture().Mutate(func(l *curriculum.Lecture) error {
		l.Chapters[1].Unlocked = false
		return nil
	})

	_, err := c.Navigate(context.Background(), "ch-2", "ch-2-1")
	if !errors.Is(err, curriculum.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if mock.CallCount() != 0 {
		t.Error("locked chapters must not be materialized")
	}
}

func TestContext_QuizAnswerCompletesSubchapter(t *testing.T) {
	mock := llm.NewMockProvider()
	repo := newMemRepo()
	_, c := libraryWith(t, mock, repo)
	curriculumtest.Materialize(c.Lecture(), "ch-1", "ch-1-1", 2)

	ref := curriculum.ExerciseRef{ChapterID: "ch-1", SubchapterID: "ch-1-1", ExerciseID: "ch-1-1-q1"}
	out, err := c.SubmitAnswer(context.Background(), ref, "Right")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.Attempt.IsCorrect || !out.Completed {
		t.Fatalf("expected correct quiz answer to complete the subchapter: %+v", out)
	}
	if mock.CallCount() != 0 {
		t.Error("multiple-choice answers are graded without a collaborator call")
	}
	if repo.upserts != 1 {
		t.Errorf("expected the answer to be saved, got %d upserts", repo.upserts)
	}

	summary := BuildSummary(c.Lecture())
	if summary.Completed != 1 || summary.Attempts != 1 || summary.Accuracy != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestContext_ApplyAssessment(t *testing.T) {
	_, c := libraryWith(t, llm.NewMockProvider(), newMemRepo())
	p, err := assessment.NewProbe([]assessment.Item{
		{SkillID: "Recursion", Statement: "I can write a recursive function"},
		{SkillID: "Recursion", Statement: "I know what a base case is"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := c.ApplyAssessment(context.Background(), p); !errors.Is(err, curriculum.ErrInvalidState) {
		t.Fatalf("expected incomplete probe to be rejected, got %v", err)
	}
	p.Answer(true)
	p.Answer(false)
	if err := c.ApplyAssessment(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	c.Lecture().Read(func(l *curriculum.Lecture) {
		if l.Assessment == nil || len(l.Assessment.Results) != 1 {
			t.Fatalf("unexpected assessment: %+v", l.Assessment)
		}
		if l.Assessment.Results[0].Level != curriculum.LevelIntermediate {
			t.Errorf("expected intermediate, got %s", l.Assessment.Results[0].Level)
		}
	})

	retake, _ := assessment.NewProbe([]assessment.Item{{SkillID: "Recursion", Statement: "I can write a recursive function"}})
	retake.Answer(true)
	if err := c.ApplyAssessment(context.Background(), retake); !errors.Is(err, curriculum.ErrInvalidState) {
		t.Fatalf("expected a second assessment to be rejected, got %v", err)
	}
	if _, err := c.NewProbe(context.Background()); !errors.Is(err, curriculum.ErrInvalidState) {
		t.Fatalf("expected no new probe for an assessed lecture, got %v", err)
	}
	c.Lecture().Read(func(l *curriculum.Lecture) {
		if l.Assessment.Results[0].Level != curriculum.LevelIntermediate || l.Assessment.Results[0].QuestionsAnswered != 2 {
			t.Errorf("first assessment must stay in place: %+v", l.Assessment.Results[0])
		}
	})
}

func TestLibrary_LoadRestoresMaterialization(t *testing.T) {
	repo := newMemRepo()
	lec := curriculumtest.NewLecture()
	curriculumtest.Materialize(lec, "ch-1", "ch-1-1", 2)
	repo.Upsert(context.Background(), "user-1", lec)

	mock := llm.NewMockProvider()
	lib := NewLibrary("user-1", newServices(mock, repo))
	if err := lib.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	c, err := lib.Open("lec-1")
	if err != nil {
		t.Fatal(err)
	}

	out, err := c.Navigate(context.Background(), "ch-1", "ch-1-1")
	if err != nil || out != materialize.OutcomeAlreadyMaterialized {
		t.Fatalf("Navigate = %s, %v", out, err)
	}
	if mock.CallCount() != 0 {
		t.Error("restored subchapters must not be regenerated")
	}
}

func TestLibrary_LoadReportsPartialFailure(t *testing.T) {
	repo := newMemRepo()
	repo.Upsert(context.Background(), "user-1", curriculumtest.NewLecture())
	repo.loadErr = errors.New("document 1: bad json")

	lib := NewLibrary("user-1", newServices(llm.NewMockProvider(), repo))
	err := lib.Load(context.Background())
	if !errors.Is(err, curriculum.ErrPersistenceFailed) {
		t.Fatalf("expected ErrPersistenceFailed, got %v", err)
	}
	if len(lib.Lectures()) != 1 {
		t.Fatal("decodable lectures must still load")
	}
}

func TestLibrary_Delete(t *testing.T) {
	repo := newMemRepo()
	lib, c := libraryWith(t, llm.NewMockProvider(), repo)
	ctx := context.Background()
	if err := c.Save(ctx); err != nil {
		t.Fatal(err)
	}

	if err := lib.Delete(ctx, "lec-1"); err != nil {
		t.Fatal(err)
	}
	if repo.count() != 0 || len(lib.Lectures()) != 0 {
		t.Fatal("expected lecture removed from memory and repo")
	}
	if err := lib.Delete(ctx, "lec-1"); !errors.Is(err, curriculum.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestContext_TestLookup(t *testing.T) {
	_, c := libraryWith(t, llm.NewMockProvider(), nil)
	if _, err := c.Test("missing"); !errors.Is(err, curriculum.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
