package assessment

import (
	"fmt"
	"strings"
)

const probeSystemPrompt = `You write a quick self-assessment for a learner before a lecture. For each skill write short, concrete statements of increasing difficulty that the learner can honestly answer with "I know this" or "I don't".`

func buildProbeUserMessage(topic, goal string, skills []string) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Lecture topic: %s\n", topic))
	if goal != "" {
		b.WriteString(fmt.Sprintf("Learner goal: %s\n", goal))
	}
	b.WriteString("\nSkills:\n")
	for _, s := range skills {
		b.WriteString(fmt.Sprintf("- %s\n", s))
	}
	b.WriteString(`
Instructions:
1. Return every skill exactly as named above.
2. Write 2-3 statements per skill, easiest first.
3. Each statement is one sentence starting with "I can" or "I know".`)

	return b.String()
}
