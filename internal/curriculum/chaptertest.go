package curriculum

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// TestState is the lifecycle of a chapter test attempt.
type TestState string

const (
	TestGenerating TestState = "generating"
	TestReady      TestState = "ready"
	TestInProgress TestState = "in-progress"
	TestCompleted  TestState = "completed"
)

// QuestionCategory is one of the four chapter test categories.
type QuestionCategory string

const (
	CategoryFrameworkApplication  QuestionCategory = "framework-application"
	CategoryProcessImplementation QuestionCategory = "process-implementation"
	CategoryConceptual            QuestionCategory = "conceptual"
	CategoryIntegration           QuestionCategory = "integration"
)

// Categories lists every question category.
var Categories = []QuestionCategory{
	CategoryFrameworkApplication,
	CategoryProcessImplementation,
	CategoryConceptual,
	CategoryIntegration,
}

// Difficulty grades a test question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// TestQuestion is one question of a chapter test.
type TestQuestion struct {
	ID         string           `json:"id"`
	Category   QuestionCategory `json:"category"`
	Difficulty Difficulty       `json:"difficulty"`
	Prompt     string           `json:"prompt"`
	MaxPoints  int              `json:"max_points"`

	// Options and CorrectOption are set for multiple-choice questions.
	Options       []string `json:"options,omitempty"`
	CorrectOption *int     `json:"correct_option,omitempty"`

	Rubric       string `json:"rubric,omitempty"`
	SubchapterID string `json:"subchapter_id,omitempty"`
}

// IsMultipleChoice reports whether the question is graded locally.
func (q TestQuestion) IsMultipleChoice() bool {
	return len(q.Options) > 0 && q.CorrectOption != nil &&
		*q.CorrectOption >= 0 && *q.CorrectOption < len(q.Options)
}

// TestAnswer is the scored answer to one question.
type TestAnswer struct {
	QuestionID string  `json:"question_id"`
	Answer     string  `json:"answer"`
	Score      float64 `json:"score"`
	MaxPoints  int     `json:"max_points"`
	Feedback   string  `json:"feedback"`
	IsCorrect  *bool   `json:"is_correct,omitempty"`
}

// ChapterTestResult is the evaluated outcome of a test attempt.
type ChapterTestResult struct {
	Answers          []TestAnswer   `json:"answers"`
	TotalScore       float64        `json:"total_score"`
	MaxScore         int            `json:"max_score"`
	Percentage       float64        `json:"percentage"`
	MasteryLevel     KnowledgeLevel `json:"mastery_level"`
	Feedback         string         `json:"feedback"`
	Strengths        []string       `json:"strengths,omitempty"`
	Improvements     []string       `json:"improvements,omitempty"`
	TimeSpentMinutes float64        `json:"time_spent_minutes"`
	Fallback         bool           `json:"fallback"`
	EvaluatedAt      time.Time      `json:"evaluated_at"`
}

// ChapterTest is one attempt at a chapter test. Answers may change while the
// test is in progress and are frozen once it is submitted.
type ChapterTest struct {
	mu sync.Mutex

	ID          string            `json:"id"`
	ChapterID   string            `json:"chapter_id"`
	State       TestState         `json:"state"`
	Questions   []TestQuestion    `json:"questions"`
	TotalPoints int               `json:"total_points"`
	Focus       []string          `json:"focus,omitempty"`
	Answers     map[string]string `json:"answers,omitempty"`

	CreatedAt   time.Time          `json:"created_at"`
	StartedAt   time.Time          `json:"started_at,omitzero"`
	SubmittedAt time.Time          `json:"submitted_at,omitzero"`
	Result      *ChapterTestResult `json:"result,omitempty"`
}

// CurrentState returns the test state.
func (t *ChapterTest) CurrentState() TestState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.State
}

// MarkReady moves a generated test from generating to ready.
func (t *ChapterTest) MarkReady() error {
	return t.transition(TestGenerating, TestReady, nil)
}

// Start moves a ready test to in-progress.
func (t *ChapterTest) Start() error {
	return t.transition(TestReady, TestInProgress, func() {
		t.StartedAt = time.Now().UTC()
	})
}

// SetAnswer records or replaces an answer while the test is in progress.
func (t *ChapterTest) SetAnswer(questionID, answer string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.State != TestInProgress {
		return fmt.Errorf("set answer in state %s: %w", t.State, ErrInvalidState)
	}
	if !t.hasQuestion(questionID) {
		return fmt.Errorf("question %s: %w", questionID, ErrNotFound)
	}
	if t.Answers == nil {
		t.Answers = make(map[string]string)
	}
	t.Answers[questionID] = answer
	return nil
}

// Submit freezes the answers. It is a one-way transition.
func (t *ChapterTest) Submit() error {
	return t.transition(TestInProgress, TestCompleted, func() {
		t.SubmittedAt = time.Now().UTC()
	})
}

// AnswerFor returns the frozen or in-progress answer to a question.
func (t *ChapterTest) AnswerFor(questionID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Answers[questionID]
}

// Evaluated returns the result, if the test was evaluated.
func (t *ChapterTest) Evaluated() *ChapterTestResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Result
}

// SetResult attaches the evaluation result. A test is evaluated at most once.
func (t *ChapterTest) SetResult(r *ChapterTestResult) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.State != TestCompleted {
		return fmt.Errorf("set result in state %s: %w", t.State, ErrInvalidState)
	}
	if t.Result != nil {
		return fmt.Errorf("test %s already evaluated: %w", t.ID, ErrInvalidState)
	}
	t.Result = r
	return nil
}

func (t *ChapterTest) transition(from, to TestState, onEnter func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.State != from {
		return fmt.Errorf("transition %s -> %s from %s: %w", from, to, t.State, ErrInvalidState)
	}
	t.State = to
	if onEnter != nil {
		onEnter()
	}
	return nil
}

func (t *ChapterTest) hasQuestion(id string) bool {
	for _, q := range t.Questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

type chapterTestDoc ChapterTest

// MarshalJSON encodes the test under its lock.
func (t *ChapterTest) MarshalJSON() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return json.Marshal((*chapterTestDoc)(t))
}
