package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/abhisek/lectern/internal/curriculum"
)

// writeSubchapter prints a subchapter's sections and quiz. Callers hold the
// lecture's read lock.
func writeSubchapter(w io.Writer, ch *curriculum.Chapter, sub *curriculum.Subchapter) {
	fmt.Fprintf(w, "%s / %s\n", ch.Title, sub.Title)
	fmt.Fprintf(w, "Objective: %s\n", sub.Objective)
	if p := sub.Personalization; p != nil && p.Summary != "" {
		fmt.Fprintf(w, "Tailored: %s\n", p.Summary)
	}

	if !sub.Materialized() {
		fmt.Fprintln(w, "\nNot generated yet. Run `lectern study` to generate it.")
		return
	}

	for i, sec := range sub.Sections {
		fmt.Fprintf(w, "\n%d. %s  [%s] (%s)\n", i+1, sec.Title, sec.Format, sec.ID)
		writeSection(w, sec)
	}

	if len(sub.Quiz) > 0 {
		fmt.Fprintln(w, "\nQuiz")
		for _, q := range sub.Quiz {
			writeExercise(w, q)
		}
	}
}

func writeSection(w io.Writer, sec *curriculum.LearningSection) {
	c := sec.Content
	fmt.Fprintln(w, indent(c.Explanation, "   "))
	for i, step := range c.Steps {
		fmt.Fprintf(w, "   %d) %s\n", i+1, step)
	}
	for _, comp := range c.Components {
		fmt.Fprintf(w, "   - %s: %s\n", comp.Name, comp.Description)
	}
	for _, p := range c.ComparisonPoints {
		fmt.Fprintf(w, "   - %s: %s\n", p.Aspect, p.Contrast)
	}
	if c.Example != "" {
		fmt.Fprintf(w, "   Example: %s\n", c.Example)
	}
	if sec.GapMaterial != "" {
		fmt.Fprintf(w, "   Review: %s\n", sec.GapMaterial)
	}
	if sec.Exercise != nil {
		writeExercise(w, sec.Exercise)
	}
}

func writeExercise(w io.Writer, ex *curriculum.Exercise) {
	fmt.Fprintf(w, "   [%s %s] %s\n", ex.Kind, ex.ID, ex.Prompt)
	for i := range ex.Options {
		fmt.Fprintf(w, "      %s\n", curriculum.OptionLabel(ex.Options, i))
	}
	for _, f := range ex.FollowUps {
		fmt.Fprintf(w, "      Q: %s\n      A: %s\n", f.Question, f.Answer)
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// sectionRef parses "chapter/subchapter/section".
func sectionRef(s string) (curriculum.SectionRef, error) {
	ch, sub, id, ok := curriculum.ParseRef(s)
	if !ok {
		return curriculum.SectionRef{}, fmt.Errorf("section %q: want <chapter>/<subchapter>/<section>: %w", s, curriculum.ErrInvalidInput)
	}
	return curriculum.SectionRef{ChapterID: ch, SubchapterID: sub, SectionID: id}, nil
}

// exerciseRef parses "chapter/subchapter/exercise".
func exerciseRef(s string) (curriculum.ExerciseRef, error) {
	ch, sub, id, ok := curriculum.ParseRef(s)
	if !ok {
		return curriculum.ExerciseRef{}, fmt.Errorf("exercise %q: want <chapter>/<subchapter>/<exercise>: %w", s, curriculum.ErrInvalidInput)
	}
	return curriculum.ExerciseRef{ChapterID: ch, SubchapterID: sub, ExerciseID: id}, nil
}
