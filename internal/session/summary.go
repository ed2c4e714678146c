package session

import (
	"github.com/abhisek/lectern/internal/curriculum"
	"github.com/abhisek/lectern/internal/progress"
)

// Summary holds the data displayed for a lecture overview.
type Summary struct {
	LectureID   string
	Title       string
	Chapters    int
	Subchapters int
	Completed   int
	Attempts    int
	Correct     int
	Accuracy    float64
	TestsTaken  int
	BestTest    float64
	Assessed    bool
}

// BuildSummary creates a Summary from the lecture's current state.
func BuildSummary(lec *curriculum.Lecture) *Summary {
	snap := progress.Snapshot(lec)
	completed, total := progress.Overall(snap)

	s := &Summary{Chapters: len(snap), Subchapters: total, Completed: completed}
	lec.Read(func(l *curriculum.Lecture) {
		s.LectureID, s.Title = l.ID, l.Title
		s.Assessed = l.Assessment != nil
		for _, a := range l.ExerciseHistory {
			s.Attempts++
			if a.IsCorrect {
				s.Correct++
			}
		}
		for _, t := range l.ChapterTests {
			if r := t.Evaluated(); r != nil {
				s.TestsTaken++
				s.BestTest = max(s.BestTest, r.Percentage)
			}
		}
	})

	if s.Attempts > 0 {
		s.Accuracy = float64(s.Correct) / float64(s.Attempts)
	}
	return s
}
