package probe

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/lectern/internal/curriculum"
	"github.com/abhisek/lectern/internal/screen"
	"github.com/abhisek/lectern/internal/ui/components"
	"github.com/abhisek/lectern/internal/ui/layout"
	"github.com/abhisek/lectern/internal/ui/theme"
)

// Results shows the per-skill outcome of a completed probe.
type Results struct {
	summary *curriculum.AssessmentSummary
	keys    KeyMap
}

var _ screen.Screen = (*Results)(nil)
var _ screen.KeyHintProvider = (*Results)(nil)

// NewResults creates the results screen.
func NewResults(sum *curriculum.AssessmentSummary, keys KeyMap) *Results {
	return &Results{summary: sum, keys: keys}
}

// Summary returns the summary shown on the screen.
func (r *Results) Summary() *curriculum.AssessmentSummary {
	return r.summary
}

func (r *Results) Init() tea.Cmd {
	return nil
}

func (r *Results) Title() string {
	return "Knowledge check results"
}

func (r *Results) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{hint(r.keys.Finish)}
}

func (r *Results) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyPressMsg); ok && key.Matches(kmsg, r.keys.Finish) {
		return r, tea.Quit
	}
	return r, nil
}

func (r *Results) View(width, height int) string {
	nameWidth := 0
	for _, res := range r.summary.Results {
		nameWidth = max(nameWidth, lipgloss.Width(res.SkillID))
	}

	var b strings.Builder
	for _, res := range r.summary.Results {
		b.WriteString(theme.Body.Render(res.SkillID + strings.Repeat(" ", nameWidth-lipgloss.Width(res.SkillID))))
		b.WriteString("  ")
		b.WriteString(components.NewProgressBar("", res.Score, false, 20).View())
		b.WriteString("  ")
		b.WriteString(levelStyle(res.Level).Render(string(res.Level)))
		b.WriteString(theme.Hint.Render(fmt.Sprintf("  (%d/%d known)", res.QuestionsKnown, res.QuestionsAnswered)))
		b.WriteString("\n")
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, b.String())
}

func levelStyle(l curriculum.KnowledgeLevel) lipgloss.Style {
	switch l {
	case curriculum.LevelAdvanced:
		return theme.Done
	case curriculum.LevelIntermediate:
		return theme.InProgress
	default:
		return theme.Locked
	}
}
