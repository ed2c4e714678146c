// Package components holds small reusable view pieces.
package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/lectern/internal/ui/theme"
)

// ProgressBar displays a horizontal progress bar. Percent is a fraction in
// [0, 1].
type ProgressBar struct {
	Label       string
	Percent     float64
	ShowPercent bool
	Width       int

	// Plain renders the bar with ASCII cells instead of background colors,
	// for output that is not a terminal.
	Plain bool
}

// NewProgressBar creates a new progress bar.
func NewProgressBar(label string, percent float64, showPercent bool, width int) ProgressBar {
	return ProgressBar{
		Label:       label,
		Percent:     percent,
		ShowPercent: showPercent,
		Width:       width,
	}
}

// Cells returns the filled and empty cell counts for the bar area.
func (p ProgressBar) Cells() (filled, empty int) {
	barWidth := p.Width - lipgloss.Width(p.label())
	if p.ShowPercent {
		barWidth -= 6 // "  100%"
	}
	barWidth = max(barWidth, 4)

	filled = int(float64(barWidth) * p.Percent)
	filled = min(max(filled, 0), barWidth)
	return filled, barWidth - filled
}

func (p ProgressBar) label() string {
	if p.Label == "" {
		return ""
	}
	return p.Label + "  "
}

// View renders the progress bar.
func (p ProgressBar) View() string {
	filled, empty := p.Cells()

	pct := ""
	if p.ShowPercent {
		pct = fmt.Sprintf("  %d%%", int(p.Percent*100))
	}

	if p.Plain {
		return p.label() + strings.Repeat("#", filled) + strings.Repeat(".", empty) + pct
	}

	var b strings.Builder
	if p.Label != "" {
		b.WriteString(theme.Body.Render(p.label()))
	}
	b.WriteString(theme.ProgressFilled.Render(strings.Repeat(" ", filled)))
	b.WriteString(theme.ProgressEmpty.Render(strings.Repeat(" ", empty)))
	if pct != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Render(pct))
	}
	return b.String()
}
