// Package curriculumtest builds lecture fixtures for tests.
package curriculumtest

import (
	"fmt"
	"time"

	"github.com/abhisek/lectern/internal/curriculum"
)

// NewLecture returns a two-chapter lecture with two subchapters per chapter.
// Nothing is materialized and every chapter is unlocked.
//
//	ch-1: ch-1-1 [Recursion]   ch-1-2 [Memoization]
//	ch-2: ch-2-1 [Tabulation]  ch-2-2 [State design]
func NewLecture() *curriculum.Lecture {
	cm, err := curriculum.NewConceptMap(
		[]string{"Recursion", "Memoization", "Tabulation", "State design"},
		map[string][]string{
			"ch-1": {"Recursion", "Memoization"},
			"ch-2": {"Tabulation", "State design"},
		},
	)
	if err != nil {
		panic(err)
	}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &curriculum.Lecture{
		ID:     "lec-1",
		UserID: "user-1",
		Topic:  "Dynamic programming",
		Title:  "Dynamic Programming",
		Goal:   "Solve interview problems",
		Chapters: []*curriculum.Chapter{
			{
				ID: "ch-1", Title: "Foundations", Unlocked: true,
				Subchapters: []*curriculum.Subchapter{
					{ID: "ch-1-1", Title: "Recursive thinking", Objective: "Think recursively", ConceptOutline: []string{"Recursion"}},
					{ID: "ch-1-2", Title: "Caching results", Objective: "Cache subproblems", ConceptOutline: []string{"Memoization"}},
				},
			},
			{
				ID: "ch-2", Title: "Bottom-up", Unlocked: true,
				Subchapters: []*curriculum.Subchapter{
					{ID: "ch-2-1", Title: "Tables", Objective: "Fill tables", ConceptOutline: []string{"Tabulation"}},
					{ID: "ch-2-2", Title: "States", Objective: "Design states", ConceptOutline: []string{"State design"}},
				},
			},
		},
		Concepts:      cm,
		Current:       curriculum.Position{ChapterID: "ch-1", SubchapterID: "ch-1-1"},
		UnlockPolicy:  curriculum.UnlockOpen,
		GapMaterials:  map[string]string{},
		SchemaVersion: curriculum.SchemaVersion,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Materialize fills a subchapter with n valid concept sections, each with an
// exercise button, and a one-item quiz whose correct option is index 0.
func Materialize(lec *curriculum.Lecture, chapterID, subchapterID string, n int) {
	err := lec.Mutate(func(l *curriculum.Lecture) error {
		_, sub, err := l.Subchapter(chapterID, subchapterID)
		if err != nil {
			return err
		}
		sub.Sections = Sections(subchapterID, n)
		correct := 0
		sub.Quiz = []*curriculum.Exercise{{
			ID:            subchapterID + "-q1",
			Kind:          curriculum.KindQuiz,
			Prompt:        "Which is right?",
			Options:       []string{"Right", "Wrong"},
			CorrectOption: &correct,
		}}
		return nil
	})
	if err != nil {
		panic(err)
	}
}

// Sections returns n valid concept sections with IDs <prefix>-s<i>.
func Sections(prefix string, n int) []*curriculum.LearningSection {
	out := make([]*curriculum.LearningSection, n)
	for i := range out {
		out[i] = &curriculum.LearningSection{
			ID:                fmt.Sprintf("%s-s%d", prefix, i+1),
			Title:             fmt.Sprintf("Section %d", i+1),
			Format:            curriculum.FormatConcept,
			Content:           curriculum.SectionContent{Explanation: fmt.Sprintf("Explanation %d", i+1)},
			HasExerciseButton: true,
		}
	}
	return out
}
