package enrich

import (
	"fmt"
	"strings"

	"github.com/abhisek/lectern/internal/curriculum"
)

const exerciseSystemPrompt = `You write one practice exercise for a section of a lecture. The exercise checks understanding of the target section and may rely only on material the learner has already seen.`

const gapSystemPrompt = `You write short remedial material that closes one specific knowledge gap. Be concrete and build on what the learner already saw.`

const explainSystemPrompt = `You explain a passage the learner highlighted, in the context of the section it came from. Be brief and precise.`

const followUpSystemPrompt = `You answer a learner's follow-up question about an exercise. Classify the question as scenario-extension when it changes the exercise scenario, otherwise factual-explanation.`

const evaluateSystemPrompt = `You grade a learner's answer to an exercise against the expected answer. Be fair about wording; judge understanding. When the answer is wrong, name the missing knowledge in one sentence.`

// sectionView is a copy of the parts of a section prompts need.
type sectionView struct {
	Title   string
	Format  curriculum.SectionFormat
	Content curriculum.SectionContent
}

func viewOf(s *curriculum.LearningSection) sectionView {
	return sectionView{Title: s.Title, Format: s.Format, Content: s.Content}
}

// exerciseView is a copy of the parts of an exercise prompts need.
type exerciseView struct {
	Prompt         string
	Options        []string
	ExpectedAnswer string
	LastAnswer     string
	FollowUps      []curriculum.FollowUp
}

func writeSection(b *strings.Builder, s sectionView) {
	b.WriteString(fmt.Sprintf("### %s (%s)\n", s.Title, s.Format))
	b.WriteString(s.Content.Explanation)
	b.WriteString("\n")
	for i, step := range s.Content.Steps {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, step))
	}
	for _, c := range s.Content.Components {
		b.WriteString(fmt.Sprintf("- %s: %s\n", c.Name, c.Description))
	}
	for _, p := range s.Content.ComparisonPoints {
		b.WriteString(fmt.Sprintf("- %s: %s\n", p.Aspect, p.Contrast))
	}
	if s.Content.Example != "" {
		b.WriteString("Example: " + s.Content.Example + "\n")
	}
}

func writeExercise(b *strings.Builder, e exerciseView) {
	b.WriteString("Exercise: " + e.Prompt + "\n")
	for i := range e.Options {
		b.WriteString(curriculum.OptionLabel(e.Options, i) + "\n")
	}
	if e.ExpectedAnswer != "" {
		b.WriteString("Expected answer: " + e.ExpectedAnswer + "\n")
	}
}

// buildExerciseUserMessage renders the target section after the sections
// that precede it. Later sections are never passed in.
func buildExerciseUserMessage(subTitle string, seen []sectionView) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Subchapter: %s\n", subTitle))

	if len(seen) > 1 {
		b.WriteString("\nSections the learner has already read:\n")
		for _, s := range seen[:len(seen)-1] {
			writeSection(&b, s)
		}
	}
	b.WriteString("\nTarget section:\n")
	writeSection(&b, seen[len(seen)-1])

	b.WriteString(`
Instructions:
1. Write one exercise about the target section.
2. For multiple choice give 3-4 options and the zero-based correct_option; otherwise leave options empty and set correct_option to -1.
3. expected_answer holds the model answer or rubric.`)
	return b.String()
}

func buildGapUserMessage(section *sectionView, exercise *exerciseView, gap string) string {
	var b strings.Builder
	if section != nil {
		b.WriteString("Section the gap relates to:\n")
		writeSection(&b, *section)
	}
	if exercise != nil {
		b.WriteString("Quiz question the learner got wrong:\n")
		writeExercise(&b, *exercise)
	}
	b.WriteString("\nKnowledge gap: " + gap + "\n")
	b.WriteString("\nWrite 2-4 short paragraphs that close this gap, ending with a one-line check the learner can do.")
	return b.String()
}

func buildExplainUserMessage(s sectionView, text string) string {
	var b strings.Builder
	b.WriteString("Section:\n")
	writeSection(&b, s)
	b.WriteString("\nHighlighted text: \"" + text + "\"\n")
	b.WriteString("\nExplain the highlighted text in 2-4 sentences.")
	return b.String()
}

func buildFollowUpUserMessage(e exerciseView, question string) string {
	var b strings.Builder
	writeExercise(&b, e)
	if e.LastAnswer != "" {
		b.WriteString("Learner's answer: " + e.LastAnswer + "\n")
	}
	if len(e.FollowUps) > 0 {
		b.WriteString("\nEarlier follow-ups:\n")
		for _, f := range e.FollowUps {
			b.WriteString(fmt.Sprintf("Q: %s\nA: %s\n", f.Question, f.Answer))
		}
	}
	b.WriteString("\nFollow-up question: " + question + "\n")
	return b.String()
}

func buildEvaluateUserMessage(e exerciseView, answer string) string {
	var b strings.Builder
	writeExercise(&b, e)
	b.WriteString("\nLearner's answer: " + answer + "\n")
	return b.String()
}
