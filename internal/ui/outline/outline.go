// Package outline renders a lecture's chapters and subchapters with their
// progress.
package outline

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/lectern/internal/progress"
	"github.com/abhisek/lectern/internal/ui/components"
	"github.com/abhisek/lectern/internal/ui/theme"
)

// Markers used in front of subchapter titles.
const (
	MarkDone       = "✓"
	MarkInProgress = "◐"
	MarkNotStarted = "○"
	MarkLocked     = "🔒"
	MarkCurrent    = "▸"
)

// Options controls rendering.
type Options struct {
	Width int

	// Plain disables colors and background-filled bars.
	Plain bool

	// ShowIDs prints chapter and subchapter IDs next to titles so they can be
	// passed back to the CLI.
	ShowIDs bool
}

// Render returns the outline for snap.
func Render(title string, snap []progress.ChapterProgress, opts Options) string {
	width := opts.Width
	if width <= 0 {
		width = 80
	}
	style := func(s lipgloss.Style, text string) string {
		if opts.Plain {
			return text
		}
		return s.Render(text)
	}

	var b strings.Builder
	completed, total := progress.Overall(snap)
	b.WriteString(style(theme.Title, title))
	b.WriteString("\n")
	b.WriteString(overallBar(completed, total, width, opts.Plain))
	b.WriteString("\n\n")

	for i, ch := range snap {
		heading := fmt.Sprintf("%d. %s", i+1, ch.Title)
		if opts.ShowIDs {
			heading += " [" + ch.ChapterID + "]"
		}
		switch {
		case !ch.Unlocked:
			b.WriteString(style(theme.Locked, MarkLocked+" "+heading))
		case ch.Total > 0 && ch.Completed == ch.Total:
			b.WriteString(style(theme.Done, heading))
		default:
			b.WriteString(style(theme.Body, heading))
		}
		b.WriteString(style(theme.Hint, fmt.Sprintf("  %d/%d", ch.Completed, ch.Total)))
		if ch.BestTest > 0 {
			b.WriteString(style(theme.Hint, fmt.Sprintf("  test %.0f%%", ch.BestTest)))
		}
		b.WriteString("\n")

		for _, sub := range ch.Subchapters {
			b.WriteString(subchapterLine(sub, ch.Unlocked, opts, style))
			b.WriteString("\n")
		}
		if i < len(snap)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func subchapterLine(sub progress.SubchapterProgress, unlocked bool, opts Options, style func(lipgloss.Style, string) string) string {
	lead := "  "
	if sub.Current {
		lead = MarkCurrent + " "
	}

	text := sub.Title
	if opts.ShowIDs {
		text += " [" + sub.SubchapterID + "]"
	}
	if !sub.Materialized {
		text += " (not generated)"
	}

	var mark string
	var s lipgloss.Style
	switch {
	case !unlocked:
		mark, s = MarkLocked, theme.Locked
	case sub.State == progress.Completed:
		mark, s = MarkDone, theme.Done
	case sub.State == progress.InProgress:
		mark, s = MarkInProgress, theme.InProgress
	default:
		mark, s = MarkNotStarted, theme.Body
	}
	if sub.Current {
		s = theme.Current
	}
	return "  " + lead + style(s, mark+" "+text)
}

func overallBar(completed, total, width int, plain bool) string {
	pct := 0.0
	if total > 0 {
		pct = float64(completed) / float64(total)
	}
	bar := components.NewProgressBar(fmt.Sprintf("%d/%d subchapters", completed, total), pct, true, min(width, 60))
	bar.Plain = plain
	return bar.View()
}
