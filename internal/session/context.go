// Package session ties the orchestration components to one learner's
// lectures. A Context owns a single lecture and persists it after every
// operation that changes it.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/lectern/internal/assessment"
	"github.com/abhisek/lectern/internal/chaptertest"
	"github.com/abhisek/lectern/internal/concepts"
	"github.com/abhisek/lectern/internal/curriculum"
	"github.com/abhisek/lectern/internal/enrich"
	"github.com/abhisek/lectern/internal/logging"
	"github.com/abhisek/lectern/internal/materialize"
	"github.com/abhisek/lectern/internal/progress"
	"github.com/abhisek/lectern/internal/store"
)

// Services bundles the components shared by every lecture of a library.
// Repo may be nil, in which case nothing is persisted.
type Services struct {
	Planner      *concepts.Coordinator
	Materializer *materialize.Materializer
	Enrichment   *enrich.Cache
	Probes       *assessment.Generator
	Progress     *progress.Tracker
	Tests        *chaptertest.Engine
	Repo         store.LectureRepo
	Log          *logging.Logger
}

// Context is the per-lecture session object.
type Context struct {
	lec    *curriculum.Lecture
	userID string
	svc    Services
	log    *logging.Logger
}

func newContext(userID string, lec *curriculum.Lecture, svc Services) *Context {
	return &Context{
		lec:    lec,
		userID: userID,
		svc:    svc,
		log:    logging.OrNop(svc.Log).Named("session").With("lecture_id", lec.ID),
	}
}

// Lecture returns the underlying lecture. Callers read it through
// Lecture.Read.
func (c *Context) Lecture() *curriculum.Lecture {
	return c.lec
}

// ID returns the lecture ID.
func (c *Context) ID() string {
	return c.lec.ID
}

// Save persists the lecture. Failures wrap curriculum.ErrPersistenceFailed;
// the in-memory lecture is kept either way.
func (c *Context) Save(ctx context.Context) error {
	if c.svc.Repo == nil {
		return nil
	}
	if err := c.svc.Repo.Upsert(ctx, c.userID, c.lec); err != nil {
		c.log.Warn("persist lecture failed", "error", err.Error())
		return curriculum.Fail(curriculum.ErrPersistenceFailed, c.lec.ID, err)
	}
	return nil
}

// saveAfter persists the lecture after an operation. The operation's own
// error takes precedence over a persistence failure.
func (c *Context) saveAfter(ctx context.Context, opErr error) error {
	if err := c.Save(ctx); err != nil && opErr == nil {
		return err
	}
	return opErr
}

// Navigate moves the learner to a subchapter, marks it started and makes
// sure its learning sections exist.
func (c *Context) Navigate(ctx context.Context, chapterID, subchapterID string) (materialize.Outcome, error) {
	if err := c.svc.Progress.MarkStarted(c.lec, chapterID, subchapterID); err != nil {
		return materialize.OutcomeFailed, err
	}
	_ = c.lec.Mutate(func(l *curriculum.Lecture) error {
		l.Current = curriculum.Position{ChapterID: chapterID, SubchapterID: subchapterID}
		return nil
	})

	outcome, err := c.svc.Materializer.EnsureMaterialized(ctx, c.lec, chapterID, subchapterID)
	return outcome, c.saveAfter(ctx, err)
}

// Prefetch materializes every subchapter of a chapter ahead of navigation.
func (c *Context) Prefetch(ctx context.Context, chapterID string) ([]materialize.PrefetchResult, error) {
	results, err := c.svc.Materializer.PrefetchChapter(ctx, c.lec, chapterID)
	return results, c.saveAfter(ctx, err)
}

// Exercise returns the practice exercise for a section, generating it once.
func (c *Context) Exercise(ctx context.Context, ref curriculum.SectionRef) (*curriculum.Exercise, error) {
	ex, err := c.svc.Enrichment.GenerateExercise(ctx, c.lec, ref)
	if err != nil {
		return nil, err
	}
	return ex, c.Save(ctx)
}

// GapMaterial returns gap-filling material for a section or quiz item.
func (c *Context) GapMaterial(ctx context.Context, key curriculum.GapKey, gap string) (string, error) {
	material, err := c.svc.Enrichment.GenerateGapMaterial(ctx, c.lec, key, gap)
	if err != nil {
		return "", err
	}
	return material, c.Save(ctx)
}

// Explain returns the explanation of a selected passage.
func (c *Context) Explain(ctx context.Context, ref curriculum.SectionRef, text string) (curriculum.Highlight, error) {
	h, err := c.svc.Enrichment.ExplainSelection(ctx, c.lec, ref, text)
	if err != nil {
		return curriculum.Highlight{}, err
	}
	return h, c.Save(ctx)
}

// FollowUp answers a learner question about an exercise.
func (c *Context) FollowUp(ctx context.Context, ref curriculum.ExerciseRef, question string) (curriculum.FollowUp, error) {
	f, err := c.svc.Enrichment.AnswerFollowUp(ctx, c.lec, ref, question)
	if err != nil {
		return curriculum.FollowUp{}, err
	}
	return f, c.Save(ctx)
}

// AnswerOutcome is the result of submitting an exercise answer.
type AnswerOutcome struct {
	Attempt curriculum.ExerciseAttempt

	// Completed reports whether the answer completed the subchapter.
	Completed bool

	// Unlocked lists chapters unlocked as a consequence.
	Unlocked []string
}

// SubmitAnswer evaluates an answer and feeds the outcome to progress.
func (c *Context) SubmitAnswer(ctx context.Context, ref curriculum.ExerciseRef, answer string) (AnswerOutcome, error) {
	attempt, err := c.svc.Enrichment.EvaluateAnswer(ctx, c.lec, ref, answer)
	if err != nil {
		return AnswerOutcome{}, err
	}
	out := AnswerOutcome{Attempt: attempt}
	out.Completed, out.Unlocked, err = c.svc.Progress.RecordEvaluation(c.lec, attempt)
	if err != nil {
		return out, err
	}
	if len(out.Unlocked) > 0 {
		c.log.Info("chapters unlocked", "chapters", out.Unlocked)
	}
	return out, c.Save(ctx)
}

// NewProbe generates a knowledge probe over the lecture's concepts.
func (c *Context) NewProbe(ctx context.Context) (*assessment.Probe, error) {
	if err := c.checkNotAssessed(); err != nil {
		return nil, err
	}
	return c.svc.Probes.GenerateProbe(ctx, c.lec)
}

// ApplyAssessment stores a completed probe's results on the lecture. Later
// materializations use them as knowledge levels; existing content is kept.
// A lecture is assessed at most once.
func (c *Context) ApplyAssessment(ctx context.Context, p *assessment.Probe) error {
	summary, err := p.Summary()
	if err != nil {
		return err
	}
	if err := c.lec.Mutate(func(l *curriculum.Lecture) error {
		if l.Assessment != nil {
			return fmt.Errorf("lecture %s already assessed: %w", l.ID, curriculum.ErrInvalidState)
		}
		l.Assessment = summary
		return nil
	}); err != nil {
		return err
	}
	c.log.Info("assessment applied", "skills", len(summary.Results))
	return c.Save(ctx)
}

func (c *Context) checkNotAssessed() error {
	var err error
	c.lec.Read(func(l *curriculum.Lecture) {
		if l.Assessment != nil {
			err = fmt.Errorf("lecture %s already assessed: %w", l.ID, curriculum.ErrInvalidState)
		}
	})
	return err
}

// GenerateTest creates a chapter test for the chapter.
func (c *Context) GenerateTest(ctx context.Context, chapterID string) (*curriculum.ChapterTest, error) {
	test, err := c.svc.Tests.Generate(ctx, c.lec, chapterID)
	if err != nil {
		return nil, err
	}
	return test, c.Save(ctx)
}

// Test finds a chapter test by ID.
func (c *Context) Test(testID string) (*curriculum.ChapterTest, error) {
	var found *curriculum.ChapterTest
	c.lec.Read(func(l *curriculum.Lecture) {
		for _, t := range l.ChapterTests {
			if t.ID == testID {
				found = t
				return
			}
		}
	})
	if found == nil {
		return nil, curriculum.Fail(curriculum.ErrNotFound, testID, errors.New("no such chapter test"))
	}
	return found, nil
}

// AnswerTest records an answer on a test, starting it if needed.
func (c *Context) AnswerTest(ctx context.Context, test *curriculum.ChapterTest, questionID, answer string) error {
	if test.CurrentState() == curriculum.TestReady {
		if err := test.Start(); err != nil {
			return err
		}
	}
	if err := test.SetAnswer(questionID, answer); err != nil {
		return err
	}
	return c.Save(ctx)
}

// TestOutcome is the result of evaluating a chapter test.
type TestOutcome struct {
	Result   *curriculum.ChapterTestResult
	Passed   bool
	Unlocked []string
}

// EvaluateTest evaluates a test and applies a pass to the unlock state.
func (c *Context) EvaluateTest(ctx context.Context, test *curriculum.ChapterTest, spent time.Duration) (TestOutcome, error) {
	res, err := c.svc.Tests.Evaluate(ctx, c.lec, test, spent.Minutes())
	if err != nil {
		return TestOutcome{}, err
	}
	out := TestOutcome{Result: res, Passed: c.svc.Progress.Passed(res)}
	out.Unlocked, err = c.svc.Progress.Refresh(c.lec)
	if err != nil {
		return out, err
	}
	return out, c.Save(ctx)
}

// Progress returns per-chapter progress.
func (c *Context) Progress() []progress.ChapterProgress {
	return progress.Snapshot(c.lec)
}
