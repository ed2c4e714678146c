package chaptertest

import (
	"fmt"
	"strings"

	"github.com/abhisek/lectern/internal/curriculum"
)

const generateSystemPrompt = `You write a chapter test for a personalized lecture. Questions cover four categories: framework-application, process-implementation, conceptual and integration. Mix difficulties and weight points by difficulty.`

const evaluateSystemPrompt = `You grade a learner's chapter test. Score each open answer from 0 to its max points against its rubric and give short, specific feedback. Then summarize strengths and improvements.`

type subchapterView struct {
	ID        string
	Title     string
	Objective string
	Concepts  []string
}

type generateInput struct {
	LectureTitle      string
	ChapterTitle      string
	Subchapters       []subchapterView
	WeakSkills        []curriculum.AssessmentResult
	FailedSubchapters []string
	Min, Max          int
}

func buildGenerateUserMessage(in generateInput) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Lecture: %s\n", in.LectureTitle))
	b.WriteString(fmt.Sprintf("Chapter: %s\n", in.ChapterTitle))
	b.WriteString("\nSubchapters:\n")
	for _, s := range in.Subchapters {
		b.WriteString(fmt.Sprintf("- [%s] %s: %s (concepts: %s)\n", s.ID, s.Title, s.Objective, strings.Join(s.Concepts, ", ")))
	}

	if len(in.WeakSkills) > 0 || len(in.FailedSubchapters) > 0 {
		b.WriteString("\nPriority focus:\n")
		for _, r := range in.WeakSkills {
			b.WriteString(fmt.Sprintf("- weak skill %s (%s)\n", r.SkillID, r.Level))
		}
		for _, s := range in.FailedSubchapters {
			b.WriteString(fmt.Sprintf("- missed exercises in %s\n", s))
		}
	}

	b.WriteString(fmt.Sprintf(`
Instructions:
1. Write %d-%d questions and cover all four categories at least once.
2. Each question has max_points of at least 1 and a difficulty.
3. Multiple-choice questions carry options and a zero-based correct_option; open questions set correct_option to -1 and carry a rubric.
4. Set subchapter_id to the subchapter a question targets.`, in.Min, in.Max))

	return b.String()
}

type answerView struct {
	Question curriculum.TestQuestion
	Answer   string
}

func buildEvaluateUserMessage(chapterTitle string, answers []answerView, levels []curriculum.AssessmentResult) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Chapter: %s\n", chapterTitle))
	if len(levels) > 0 {
		b.WriteString("\nLearner knowledge levels:\n")
		for _, r := range levels {
			b.WriteString(fmt.Sprintf("- %s: %s\n", r.SkillID, r.Level))
		}
	}

	b.WriteString("\nAnswers:\n")
	for _, a := range answers {
		q := a.Question
		b.WriteString(fmt.Sprintf("\n[%s] (%s, %d points) %s\n", q.ID, q.Category, q.MaxPoints, q.Prompt))
		for i := range q.Options {
			b.WriteString(curriculum.OptionLabel(q.Options, i) + "\n")
		}
		if q.Rubric != "" {
			b.WriteString("Rubric: " + q.Rubric + "\n")
		}
		answer := a.Answer
		if strings.TrimSpace(answer) == "" {
			answer = "(no answer)"
		}
		b.WriteString("Learner answer: " + answer + "\n")
	}

	b.WriteString("\nReturn one entry per question_id.")
	return b.String()
}
