package concepts

import (
	"fmt"
	"strings"
)

const planSystemPrompt = `You are a curriculum designer. You break a topic into a lecture of chapters and subchapters and assign every concept to exactly one chapter so nothing is taught twice.`

func buildPlanUserMessage(in PlanInput) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Topic: %s\n", in.Topic))
	b.WriteString(fmt.Sprintf("Learner goal: %s\n", in.Goal))
	if s := strings.TrimSpace(in.MaterialsSummary); s != "" {
		b.WriteString("\nPrior materials summary:\n")
		b.WriteString(s)
		b.WriteString("\n")
	}

	b.WriteString(`
Instructions:
1. Create 3-6 chapters in teaching order. Each chapter has 2-5 subchapters.
2. List every concept in all_concepts once.
3. Assign each concept to exactly one chapter in that chapter's concepts list.
4. Each subchapter's concept_outline must only use concepts of its own chapter, and no two subchapters of a chapter may share a concept.
5. Every subchapter gets a one-sentence objective.`)

	return b.String()
}
