// Package progress drives subchapter completion and chapter unlocking. Both
// flags only ever move forward.
package progress

import (
	"fmt"

	"github.com/abhisek/lectern/internal/curriculum"
	"github.com/abhisek/lectern/internal/logging"
)

// SubchapterState is the derived progress state of a subchapter.
type SubchapterState string

const (
	NotStarted SubchapterState = "not-started"
	InProgress SubchapterState = "in-progress"
	Completed  SubchapterState = "completed"
)

// StateOf derives the state of a subchapter.
func StateOf(sub *curriculum.Subchapter) SubchapterState {
	switch {
	case sub.Completed:
		return Completed
	case sub.Started:
		return InProgress
	default:
		return NotStarted
	}
}

// Config selects the unlock policy and the chapter test pass mark.
type Config struct {
	Policy         curriculum.UnlockPolicy
	PassPercentage float64
}

// DefaultConfig returns the open policy with a 70% pass mark.
func DefaultConfig() Config {
	return Config{Policy: curriculum.UnlockOpen, PassPercentage: 70}
}

// Tracker applies progress events to lectures.
type Tracker struct {
	cfg Config
	log *logging.Logger
}

// NewTracker creates a Tracker.
func NewTracker(cfg Config, log *logging.Logger) *Tracker {
	if cfg.Policy == "" {
		cfg.Policy = curriculum.UnlockOpen
	}
	return &Tracker{cfg: cfg, log: logging.OrNop(log).Named("progress")}
}

// Init applies the configured policy to a new or reloaded lecture. Chapters
// already unlocked stay unlocked when the policy tightens.
func (t *Tracker) Init(lec *curriculum.Lecture) ([]string, error) {
	return t.SetPolicy(lec, t.cfg.Policy)
}

// SetPolicy switches the lecture's unlock policy and recomputes unlocks. It
// returns the IDs of chapters that became unlocked.
func (t *Tracker) SetPolicy(lec *curriculum.Lecture, policy curriculum.UnlockPolicy) ([]string, error) {
	if policy != curriculum.UnlockOpen && policy != curriculum.UnlockProgressive {
		return nil, fmt.Errorf("unlock policy %q: %w", policy, curriculum.ErrInvalidInput)
	}
	var unlocked []string
	err := lec.Mutate(func(l *curriculum.Lecture) error {
		l.UnlockPolicy = policy
		unlocked = t.recompute(l)
		return nil
	})
	return unlocked, err
}

// MarkStarted records navigation into a subchapter. Locked chapters cannot be
// entered.
func (t *Tracker) MarkStarted(lec *curriculum.Lecture, chapterID, subchapterID string) error {
	return lec.Mutate(func(l *curriculum.Lecture) error {
		ch, sub, err := l.Subchapter(chapterID, subchapterID)
		if err != nil {
			return err
		}
		if !ch.Unlocked {
			return fmt.Errorf("chapter %s is locked: %w", chapterID, curriculum.ErrInvalidState)
		}
		sub.Started = true
		return nil
	})
}

// RecordEvaluation applies an evaluated answer. A correct quiz answer
// completes its subchapter; anything else only marks it in progress. It
// reports whether the subchapter completed and which chapters unlocked.
func (t *Tracker) RecordEvaluation(lec *curriculum.Lecture, a curriculum.ExerciseAttempt) (bool, []string, error) {
	var (
		completed bool
		unlocked  []string
	)
	err := lec.Mutate(func(l *curriculum.Lecture) error {
		_, sub, err := l.Subchapter(a.ChapterID, a.SubchapterID)
		if err != nil {
			return err
		}
		sub.Started = true
		if a.Kind == curriculum.KindQuiz && a.IsCorrect && !sub.Completed {
			sub.Completed = true
			completed = true
			t.log.Info("subchapter completed", "lecture_id", l.ID, "subchapter", sub.ID)
		}
		unlocked = t.recompute(l)
		return nil
	})
	return completed, unlocked, err
}

// Refresh recomputes unlocks, e.g. after a chapter test result was recorded.
func (t *Tracker) Refresh(lec *curriculum.Lecture) ([]string, error) {
	var unlocked []string
	err := lec.Mutate(func(l *curriculum.Lecture) error {
		unlocked = t.recompute(l)
		return nil
	})
	return unlocked, err
}

// Passed reports whether a chapter test result meets the pass mark.
func (t *Tracker) Passed(r *curriculum.ChapterTestResult) bool {
	return r != nil && r.Percentage >= t.cfg.PassPercentage
}

// recompute unlocks chapters the policy allows. Under the progressive policy
// a chapter only unlocks behind an unlocked, done predecessor. It never locks
// a chapter. Must be called inside Mutate.
func (t *Tracker) recompute(l *curriculum.Lecture) []string {
	var unlocked []string
	unlock := func(ch *curriculum.Chapter) {
		if !ch.Unlocked {
			ch.Unlocked = true
			unlocked = append(unlocked, ch.ID)
		}
	}

	for i, ch := range l.Chapters {
		switch {
		case i == 0 || l.UnlockPolicy == curriculum.UnlockOpen:
			unlock(ch)
		case l.Chapters[i-1].Unlocked && t.chapterDone(l, l.Chapters[i-1]):
			unlock(ch)
		}
	}
	if len(unlocked) > 0 {
		t.log.Info("chapters unlocked", "lecture_id", l.ID, "chapters", unlocked)
	}
	return unlocked
}

// chapterDone reports whether every subchapter is completed or a chapter test
// for the chapter was passed.
func (t *Tracker) chapterDone(l *curriculum.Lecture, ch *curriculum.Chapter) bool {
	all := len(ch.Subchapters) > 0
	for _, sub := range ch.Subchapters {
		if !sub.Completed {
			all = false
			break
		}
	}
	if all {
		return true
	}
	for _, test := range l.ChapterTests {
		if test.ChapterID == ch.ID && t.Passed(test.Evaluated()) {
			return true
		}
	}
	return false
}
