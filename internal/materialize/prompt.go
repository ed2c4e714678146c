package materialize

import (
	"fmt"
	"strings"

	"github.com/abhisek/lectern/internal/curriculum"
)

const sectionsSystemPrompt = `You are an expert teacher writing the detailed content of one subchapter of a personalized lecture. You teach only the concepts assigned to this subchapter and never re-teach concepts owned by other subchapters.`

const enhanceSystemPrompt = `You are fixing the structure of generated lecture content. Keep the teaching content, but make every section satisfy the required shape exactly.`

func buildSectionsUserMessage(in sectionInput) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Lecture: %s\n", in.LectureTitle))
	b.WriteString(fmt.Sprintf("Learner goal: %s\n", in.Goal))
	b.WriteString(fmt.Sprintf("Chapter: %s\n", in.ChapterTitle))
	b.WriteString(fmt.Sprintf("Subchapter: %s\n", in.SubchapterTitle))
	b.WriteString(fmt.Sprintf("Objective: %s\n", in.Objective))

	b.WriteString("\nConcepts to teach here:\n")
	if len(in.ConceptOutline) == 0 {
		b.WriteString("None listed; follow the objective.\n")
	}
	for _, c := range in.ConceptOutline {
		b.WriteString(fmt.Sprintf("- %s\n", c))
	}

	if len(in.TaughtElsewhere) > 0 {
		b.WriteString("\nConcepts taught in other subchapters (do not re-teach, refer to them briefly if needed):\n")
		for _, c := range in.TaughtElsewhere {
			b.WriteString(fmt.Sprintf("- %s\n", c))
		}
	}

	if len(in.KnowledgeLevels) > 0 {
		b.WriteString("\nLearner knowledge levels from the assessment:\n")
		for _, r := range in.KnowledgeLevels {
			b.WriteString(fmt.Sprintf("- %s: %s (score %.2f, %d/%d known)\n",
				r.SkillID, r.Level, r.Score, r.QuestionsKnown, r.QuestionsAnswered))
		}
		b.WriteString("Adapt depth to these levels and set personalized=true on sections you adapted.\n")
	}

	b.WriteString(`
Instructions:
1. Write 3-6 sections in teaching order.
2. Every section needs format (process, framework, method, concept or comparison) and an explicit has_exercise_button boolean.
3. process sections need at least 2 steps; method sections at least 1 step; framework sections at least 2 components; comparison sections at least 2 comparison_points; every section needs an explanation.
4. Add a quiz of 1-3 multiple-choice questions checking the subchapter objective. correct_option is the zero-based index of the right option.`)

	return b.String()
}

func buildEnhanceUserMessage(in sectionInput, previous []byte, issues []curriculum.ShapeIssue) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Subchapter: %s\n", in.SubchapterTitle))
	b.WriteString("\nProblems found in the previous response:\n")
	for _, is := range issues {
		b.WriteString(fmt.Sprintf("- %s\n", is))
	}
	b.WriteString("\nPrevious response:\n")
	b.Write(previous)
	b.WriteString(`

Instructions:
Return the same sections and quiz with every problem fixed. Each section must carry format and has_exercise_button.`)

	return b.String()
}
