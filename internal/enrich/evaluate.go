package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/lectern/internal/curriculum"
	"github.com/abhisek/lectern/internal/llm"
)

type evaluationOutput struct {
	IsCorrect    bool   `json:"is_correct"`
	Feedback     string `json:"feedback"`
	KnowledgeGap string `json:"knowledge_gap"`
}

// EvaluateAnswer grades an answer to a practice exercise or quiz item and
// appends the attempt to the lecture's history. Multiple-choice answers are
// graded locally; open answers go to the collaborator.
func (c *Cache) EvaluateAnswer(ctx context.Context, lec *curriculum.Lecture, ref curriculum.ExerciseRef, answer string) (curriculum.ExerciseAttempt, error) {
	answer = strings.TrimSpace(answer)
	key := "evaluate/" + lec.ID + "/" + ref.String()
	fail := func(err error) (curriculum.ExerciseAttempt, error) {
		return curriculum.ExerciseAttempt{}, curriculum.Fail(curriculum.ErrEvaluationFailed, key, err)
	}
	if answer == "" {
		return fail(fmt.Errorf("answer is required: %w", curriculum.ErrInvalidInput))
	}

	var (
		attempt curriculum.ExerciseAttempt
		ex      curriculum.Exercise
		view    exerciseView
		err     error
	)
	lec.Read(func(l *curriculum.Lecture) {
		var e *curriculum.Exercise
		_, _, e, err = l.Exercise(ref)
		if err != nil {
			return
		}
		ex = *cloneExercise(e)
		view = viewOfExercise(l, ref, e)
	})
	if err != nil {
		return fail(err)
	}

	attempt = curriculum.ExerciseAttempt{
		ExerciseID:   ref.ExerciseID,
		ChapterID:    ref.ChapterID,
		SubchapterID: ref.SubchapterID,
		SectionID:    ex.SectionID,
		Kind:         ex.Kind,
		Answer:       answer,
	}

	if ex.IsMultipleChoice() {
		chosen := curriculum.ParseChoice(answer, ex.Options)
		if chosen < 0 {
			return fail(fmt.Errorf("answer %q matches no option: %w", answer, curriculum.ErrInvalidInput))
		}
		gradeChoice(&attempt, &ex, chosen)
		attempt.At = c.now()
		if err := c.appendAttempt(lec, attempt); err != nil {
			return fail(err)
		}
		c.metrics.Outcome("enrich_evaluate", "local")
		return attempt, nil
	}

	return run(ctx, c, op[curriculum.ExerciseAttempt]{
		name: "evaluate",
		kind: curriculum.ErrEvaluationFailed,
		key:  key,
		call: func(ctx context.Context) (curriculum.ExerciseAttempt, error) {
			req := llm.NewRequest(evaluateSystemPrompt, buildEvaluateUserMessage(view, answer), EvaluationSchema, c.cfg.Evaluate)
			resp, err := c.provider.Generate(llm.WithPurpose(ctx, llm.PurposeEvaluate), req)
			if err != nil {
				return curriculum.ExerciseAttempt{}, err
			}
			var out evaluationOutput
			if err := llm.Decode(resp, &out); err != nil {
				return curriculum.ExerciseAttempt{}, err
			}
			a := attempt
			a.IsCorrect = out.IsCorrect
			a.Feedback = out.Feedback
			if !out.IsCorrect {
				a.KnowledgeGap = strings.TrimSpace(out.KnowledgeGap)
			}
			a.At = c.now()
			return a, nil
		},
		store: func(a curriculum.ExerciseAttempt) error {
			return c.appendAttempt(lec, a)
		},
	})
}

// gradeChoice fills the outcome of a multiple-choice attempt.
func gradeChoice(a *curriculum.ExerciseAttempt, ex *curriculum.Exercise, chosen int) {
	correct := *ex.CorrectOption
	a.IsCorrect = chosen == correct
	if a.IsCorrect {
		a.Feedback = "Correct."
	} else {
		a.Feedback = "The correct answer is " + curriculum.OptionLabel(ex.Options, correct) + "."
		a.KnowledgeGap = fmt.Sprintf("Chose %q instead of %q for: %s", ex.Options[chosen], ex.Options[correct], ex.Prompt)
	}
	if ex.Explanation != "" {
		a.Feedback += " " + ex.Explanation
	}
}

func (c *Cache) appendAttempt(lec *curriculum.Lecture, a curriculum.ExerciseAttempt) error {
	return lec.Mutate(func(l *curriculum.Lecture) error {
		l.ExerciseHistory = append(l.ExerciseHistory, a)
		return nil
	})
}
