// Package chaptertest generates adaptive chapter tests and evaluates them.
package chaptertest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/abhisek/lectern/internal/assessment"
	"github.com/abhisek/lectern/internal/curriculum"
	"github.com/abhisek/lectern/internal/inflight"
	"github.com/abhisek/lectern/internal/llm"
	"github.com/abhisek/lectern/internal/logging"
	"github.com/abhisek/lectern/internal/metrics"
)

// ErrEvaluationInFlight is returned to a duplicate evaluation while the first
// one is still being graded. Once it lands, Evaluate returns the stored result.
var ErrEvaluationInFlight = fmt.Errorf("evaluation already in flight: %w", curriculum.ErrEvaluationFailed)

const fallbackFeedback = "Automatic evaluation is unavailable right now, so no points were awarded. Your answers are saved; review the chapter and take the test again."

// Engine generates and evaluates chapter tests.
type Engine struct {
	provider llm.Provider
	cfg      Config
	tracker  *inflight.Tracker
	log      *logging.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// New creates an Engine. m may be nil.
func New(provider llm.Provider, cfg Config, log *logging.Logger, m *metrics.Metrics) *Engine {
	def := DefaultConfig()
	if cfg.MinQuestions <= 0 {
		cfg.MinQuestions = def.MinQuestions
	}
	if cfg.MaxQuestions < cfg.MinQuestions {
		cfg.MaxQuestions = max(def.MaxQuestions, cfg.MinQuestions)
	}
	return &Engine{
		provider: provider,
		cfg:      cfg,
		tracker:  inflight.New(),
		log:      logging.OrNop(log).Named("chaptertest"),
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type testOutput struct {
	Questions []questionOutput `json:"questions"`
}

type questionOutput struct {
	Category      string   `json:"category"`
	Difficulty    string   `json:"difficulty"`
	Prompt        string   `json:"prompt"`
	MaxPoints     int      `json:"max_points"`
	Options       []string `json:"options"`
	CorrectOption *int     `json:"correct_option"`
	Rubric        string   `json:"rubric"`
	SubchapterID  string   `json:"subchapter_id"`
}

// Generate creates a ready chapter test and appends it to the lecture's test
// history. Weak skills and subchapters with missed exercises are sent as
// priority focus.
func (e *Engine) Generate(ctx context.Context, lec *curriculum.Lecture, chapterID string) (*curriculum.ChapterTest, error) {
	in, err := e.prepare(lec, chapterID)
	if err != nil {
		return nil, curriculum.Fail(curriculum.ErrTestGenerationFailed, chapterID, err)
	}

	req := llm.NewRequest(generateSystemPrompt, buildGenerateUserMessage(in), TestSchema, e.cfg.Generation)
	resp, err := e.provider.Generate(llm.WithPurpose(ctx, llm.PurposeTestGen), req)
	if err != nil {
		e.metrics.Outcome("chaptertest_generate", "failed")
		return nil, curriculum.Fail(curriculum.ErrTestGenerationFailed, chapterID, err)
	}
	var out testOutput
	if err := llm.Decode(resp, &out); err != nil {
		e.metrics.Outcome("chaptertest_generate", "failed")
		return nil, curriculum.Fail(curriculum.ErrTestGenerationFailed, chapterID, err)
	}

	questions, err := e.buildQuestions(out, in)
	if err != nil {
		e.metrics.Outcome("chaptertest_generate", "failed")
		e.log.Warn("rejected chapter test", "chapter", chapterID, "error", err.Error())
		return nil, curriculum.Fail(curriculum.ErrTestGenerationFailed, chapterID, err)
	}

	test := &curriculum.ChapterTest{
		ID:          uuid.NewString(),
		ChapterID:   chapterID,
		State:       curriculum.TestGenerating,
		Questions:   questions,
		TotalPoints: lo.SumBy(questions, func(q curriculum.TestQuestion) int { return q.MaxPoints }),
		Focus:       focusOf(in),
		CreatedAt:   e.now(),
	}
	if err := test.MarkReady(); err != nil {
		return nil, curriculum.Fail(curriculum.ErrTestGenerationFailed, chapterID, err)
	}
	if err := lec.Mutate(func(l *curriculum.Lecture) error {
		l.ChapterTests = append(l.ChapterTests, test)
		return nil
	}); err != nil {
		return nil, curriculum.Fail(curriculum.ErrTestGenerationFailed, chapterID, err)
	}

	e.metrics.Outcome("chaptertest_generate", "generated")
	e.log.Info("generated chapter test",
		"lecture_id", lec.ID,
		"chapter", chapterID,
		"questions", len(questions),
		"total_points", test.TotalPoints,
	)
	return test, nil
}

func (e *Engine) prepare(lec *curriculum.Lecture, chapterID string) (generateInput, error) {
	var (
		in  generateInput
		err error
	)
	lec.Read(func(l *curriculum.Lecture) {
		ch, _ := l.Chapter(chapterID)
		if ch == nil {
			err = fmt.Errorf("chapter %s: %w", chapterID, curriculum.ErrNotFound)
			return
		}
		if !ch.Unlocked {
			err = fmt.Errorf("chapter %s is locked: %w", chapterID, curriculum.ErrInvalidState)
			return
		}
		in = generateInput{
			LectureTitle: l.Title,
			ChapterTitle: ch.Title,
			Min:          e.cfg.MinQuestions,
			Max:          e.cfg.MaxQuestions,
		}
		subTitles := make(map[string]string, len(ch.Subchapters))
		for _, sub := range ch.Subchapters {
			in.Subchapters = append(in.Subchapters, subchapterView{
				ID:        sub.ID,
				Title:     sub.Title,
				Objective: sub.Objective,
				Concepts:  slices.Clone(sub.ConceptOutline),
			})
			subTitles[sub.ID] = sub.Title
		}

		var concepts []string
		if l.Concepts != nil {
			concepts = l.Concepts.ChapterConcepts(chapterID)
		}
		if l.Assessment != nil {
			in.WeakSkills = weakSkills(l.Assessment.Results, concepts)
		}

		failed := lo.FilterMap(l.ExerciseHistory, func(a curriculum.ExerciseAttempt, _ int) (string, bool) {
			title, ok := subTitles[a.SubchapterID]
			return title, ok && a.ChapterID == chapterID && !a.IsCorrect
		})
		in.FailedSubchapters = lo.Uniq(failed)
	})
	return in, err
}

// weakSkills returns the chapter's assessed skills below advanced, weakest
// first.
func weakSkills(results []curriculum.AssessmentResult, concepts []string) []curriculum.AssessmentResult {
	inChapter := lo.SliceToMap(concepts, func(c string) (string, bool) {
		return curriculum.ConceptKey(c), true
	})
	weak := lo.Filter(results, func(r curriculum.AssessmentResult, _ int) bool {
		return inChapter[curriculum.ConceptKey(r.SkillID)] && r.Level != curriculum.LevelAdvanced
	})
	slices.SortStableFunc(weak, func(a, b curriculum.AssessmentResult) int {
		if d := a.Level.Rank() - b.Level.Rank(); d != 0 {
			return d
		}
		switch {
		case a.Score < b.Score:
			return -1
		case a.Score > b.Score:
			return 1
		}
		return 0
	})
	return weak
}

func focusOf(in generateInput) []string {
	focus := lo.Map(in.WeakSkills, func(r curriculum.AssessmentResult, _ int) string { return r.SkillID })
	return append(focus, in.FailedSubchapters...)
}

// buildQuestions validates the generated questions. More than the maximum are
// truncated; fewer than the minimum or a missing category reject the test.
func (e *Engine) buildQuestions(out testOutput, in generateInput) ([]curriculum.TestQuestion, error) {
	subIDs := lo.SliceToMap(in.Subchapters, func(s subchapterView) (string, bool) { return s.ID, true })

	var questions []curriculum.TestQuestion
	for _, qo := range out.Questions {
		if strings.TrimSpace(qo.Prompt) == "" || qo.MaxPoints <= 0 {
			continue
		}
		q := curriculum.TestQuestion{
			ID:         fmt.Sprintf("q%d", len(questions)+1),
			Category:   curriculum.QuestionCategory(qo.Category),
			Difficulty: curriculum.Difficulty(qo.Difficulty),
			Prompt:     strings.TrimSpace(qo.Prompt),
			MaxPoints:  qo.MaxPoints,
			Rubric:     qo.Rubric,
		}
		if subIDs[qo.SubchapterID] {
			q.SubchapterID = qo.SubchapterID
		}
		if len(qo.Options) >= 2 && qo.CorrectOption != nil &&
			*qo.CorrectOption >= 0 && *qo.CorrectOption < len(qo.Options) {
			correct := *qo.CorrectOption
			q.Options = qo.Options
			q.CorrectOption = &correct
		}
		questions = append(questions, q)
	}

	if len(questions) > e.cfg.MaxQuestions {
		questions = questions[:e.cfg.MaxQuestions]
	}
	if len(questions) < e.cfg.MinQuestions {
		return nil, fmt.Errorf("got %d usable questions, need at least %d", len(questions), e.cfg.MinQuestions)
	}
	covered := lo.SliceToMap(questions, func(q curriculum.TestQuestion) (curriculum.QuestionCategory, bool) {
		return q.Category, true
	})
	for _, c := range curriculum.Categories {
		if !covered[c] {
			return nil, fmt.Errorf("no %s question", c)
		}
	}
	return questions, nil
}

type evaluationOutput struct {
	Answers []struct {
		QuestionID string  `json:"question_id"`
		Score      float64 `json:"score"`
		Feedback   string  `json:"feedback"`
	} `json:"answers"`
	Feedback     string   `json:"feedback"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

// Evaluate scores a test, submitting it first if it is still in progress, and
// records the result on the test. A collaborator failure produces a zero-score
// fallback result instead of an error. Evaluating an evaluated test returns
// its existing result.
func (e *Engine) Evaluate(ctx context.Context, lec *curriculum.Lecture, test *curriculum.ChapterTest, timeSpentMinutes float64) (*curriculum.ChapterTestResult, error) {
	if r := test.Evaluated(); r != nil {
		return r, nil
	}
	if test.CurrentState() == curriculum.TestInProgress {
		if err := test.Submit(); err != nil && !errors.Is(err, curriculum.ErrInvalidState) {
			return nil, curriculum.Fail(curriculum.ErrEvaluationFailed, test.ID, err)
		}
	}
	if s := test.CurrentState(); s != curriculum.TestCompleted {
		return nil, curriculum.Fail(curriculum.ErrEvaluationFailed, test.ID,
			fmt.Errorf("test is %s: %w", s, curriculum.ErrInvalidState))
	}

	key := "test/" + test.ID
	tok, prior := e.tracker.Begin(key)
	if prior != inflight.Idle {
		if r := test.Evaluated(); r != nil {
			return r, nil
		}
		e.metrics.Outcome("chaptertest_evaluate", "in_flight")
		return nil, curriculum.Fail(curriculum.ErrEvaluationFailed, test.ID, ErrEvaluationInFlight)
	}

	var (
		chapterTitle string
		levels       []curriculum.AssessmentResult
	)
	lec.Read(func(l *curriculum.Lecture) {
		if ch, _ := l.Chapter(test.ChapterID); ch != nil {
			chapterTitle = ch.Title
		}
		if l.Assessment != nil {
			levels = slices.Clone(l.Assessment.Results)
		}
	})
	answers := lo.Map(test.Questions, func(q curriculum.TestQuestion, _ int) answerView {
		return answerView{Question: q, Answer: test.AnswerFor(q.ID)}
	})

	result := e.score(ctx, chapterTitle, answers, levels)
	result.MaxScore = test.TotalPoints
	finalize(result, timeSpentMinutes, e.now())

	var stored *curriculum.ChapterTestResult
	current, err := e.tracker.Release(key, tok, func() error {
		return lec.Mutate(func(l *curriculum.Lecture) error {
			if !slices.Contains(l.ChapterTests, test) {
				l.ChapterTests = append(l.ChapterTests, test)
			}
			if err := test.SetResult(result); err != nil {
				return err
			}
			stored = result
			return nil
		})
	})
	if err != nil || !current {
		if r := test.Evaluated(); r != nil {
			return r, nil
		}
		if err == nil {
			err = errors.New("evaluation superseded")
		}
		return nil, curriculum.Fail(curriculum.ErrEvaluationFailed, test.ID, err)
	}

	outcome := "evaluated"
	if stored.Fallback {
		outcome = "fallback"
	}
	e.metrics.Outcome("chaptertest_evaluate", outcome)
	e.log.Info("evaluated chapter test",
		"test_id", test.ID,
		"percentage", stored.Percentage,
		"mastery", stored.MasteryLevel,
		"fallback", stored.Fallback,
	)
	return stored, nil
}

// score grades every answer. Multiple-choice answers are graded locally and
// open answers by the collaborator; if the call fails every score is zero.
func (e *Engine) score(ctx context.Context, chapterTitle string, answers []answerView, levels []curriculum.AssessmentResult) *curriculum.ChapterTestResult {
	req := llm.NewRequest(evaluateSystemPrompt, buildEvaluateUserMessage(chapterTitle, answers, levels), EvaluationSchema, e.cfg.Evaluation)
	resp, err := e.provider.Generate(llm.WithPurpose(ctx, llm.PurposeTestEval), req)
	var out evaluationOutput
	if err == nil {
		err = llm.Decode(resp, &out)
	}
	if err != nil {
		e.log.Warn("chapter test evaluation failed, using fallback", "error", err.Error())
		return fallback(answers)
	}

	graded := make(map[string]int, len(out.Answers))
	for i, a := range out.Answers {
		graded[a.QuestionID] = i
	}

	result := &curriculum.ChapterTestResult{
		Feedback:     strings.TrimSpace(out.Feedback),
		Strengths:    out.Strengths,
		Improvements: out.Improvements,
	}
	for _, av := range answers {
		q := av.Question
		ta := curriculum.TestAnswer{QuestionID: q.ID, Answer: av.Answer, MaxPoints: q.MaxPoints}

		if q.IsMultipleChoice() {
			gradeChoice(&ta, q)
		} else if i, ok := graded[q.ID]; ok {
			ta.Score = clamp(out.Answers[i].Score, q.MaxPoints)
			ta.Feedback = out.Answers[i].Feedback
		} else {
			ta.Feedback = "No evaluation was returned for this question."
		}
		if strings.TrimSpace(av.Answer) == "" {
			ta.Score = 0
		}
		result.Answers = append(result.Answers, ta)
	}
	if result.Feedback == "" {
		result.Feedback = "Evaluation complete."
	}
	return result
}

func gradeChoice(ta *curriculum.TestAnswer, q curriculum.TestQuestion) {
	chosen := curriculum.ParseChoice(ta.Answer, q.Options)
	correct := chosen == *q.CorrectOption
	ta.IsCorrect = &correct
	if correct {
		ta.Score = float64(q.MaxPoints)
		ta.Feedback = "Correct."
		return
	}
	ta.Feedback = "The correct answer is " + curriculum.OptionLabel(q.Options, *q.CorrectOption) + "."
}

func fallback(answers []answerView) *curriculum.ChapterTestResult {
	result := &curriculum.ChapterTestResult{Feedback: fallbackFeedback, Fallback: true}
	for _, av := range answers {
		result.Answers = append(result.Answers, curriculum.TestAnswer{
			QuestionID: av.Question.ID,
			Answer:     av.Answer,
			MaxPoints:  av.Question.MaxPoints,
			Feedback:   "Not evaluated.",
		})
	}
	return result
}

// finalize aggregates the per-answer scores.
func finalize(r *curriculum.ChapterTestResult, minutes float64, now time.Time) {
	r.TotalScore = 0
	for _, a := range r.Answers {
		r.TotalScore += a.Score
	}
	if r.MaxScore > 0 {
		r.Percentage = r.TotalScore / float64(r.MaxScore) * 100
	}
	r.MasteryLevel = assessment.Band(r.Percentage / 100)
	r.TimeSpentMinutes = math.Max(minutes, 0)
	r.EvaluatedAt = now
}

func clamp(score float64, maxPoints int) float64 {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	return math.Min(score, float64(maxPoints))
}
