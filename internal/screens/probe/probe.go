// Package probe is the interactive knowledge probe: the learner answers
// "I know this" or "not yet" to one statement at a time.
package probe

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/lectern/internal/assessment"
	"github.com/abhisek/lectern/internal/screen"
	"github.com/abhisek/lectern/internal/ui/components"
	"github.com/abhisek/lectern/internal/ui/layout"
	"github.com/abhisek/lectern/internal/ui/theme"
)

// KeyMap holds the probe's key bindings.
type KeyMap struct {
	Know   key.Binding
	NotYet key.Binding
	Finish key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Know: key.NewBinding(
			key.WithKeys("y", "right", "l"),
			key.WithHelp("y/→", "I know this"),
		),
		NotYet: key.NewBinding(
			key.WithKeys("n", "left", "h"),
			key.WithHelp("n/←", "Not yet"),
		),
		Finish: key.NewBinding(
			key.WithKeys("enter", "q"),
			key.WithHelp("Enter", "Save and exit"),
		),
	}
}

func hint(b key.Binding) layout.KeyHint {
	h := b.Help()
	return layout.KeyHint{Key: h.Key, Description: h.Desc}
}

// Screen asks the probe's items in order and shows the results once the
// last item is answered.
type Screen struct {
	probe *assessment.Probe
	topic string
	keys  KeyMap

	// last is the previous answer, shown as feedback under the next item.
	last *bool
	err  error
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)
var _ screen.StatusProvider = (*Screen)(nil)

// New creates a probe screen for p.
func New(p *assessment.Probe, topic string) *Screen {
	return &Screen{probe: p, topic: topic, keys: DefaultKeyMap()}
}

func (s *Screen) Init() tea.Cmd {
	return nil
}

func (s *Screen) Title() string {
	return "Knowledge check: " + s.topic
}

func (s *Screen) Status() string {
	answered, total := s.probe.Progress()
	return fmt.Sprintf("%d/%d", answered, total)
}

func (s *Screen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		hint(s.keys.Know),
		hint(s.keys.NotYet),
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return s, nil
	}
	switch {
	case key.Matches(kmsg, s.keys.Know):
		return s.answer(true)
	case key.Matches(kmsg, s.keys.NotYet):
		return s.answer(false)
	}
	return s, nil
}

func (s *Screen) answer(knows bool) (screen.Screen, tea.Cmd) {
	if err := s.probe.Answer(knows); err != nil {
		s.err = err
		return s, nil
	}
	s.last = &knows

	if s.probe.State() != assessment.StateCompleted {
		return s, nil
	}
	sum, err := s.probe.Summary()
	if err != nil {
		s.err = err
		return s, nil
	}
	return s, screen.PushCmd(NewResults(sum, s.keys))
}

func (s *Screen) View(width, height int) string {
	if s.err != nil {
		return theme.Unknown.Render("Error: " + s.err.Error())
	}
	item, ok := s.probe.Current()
	if !ok {
		return theme.Hint.Render("All done.")
	}
	answered, total := s.probe.Progress()

	cardWidth := min(width-4, 72)
	var b strings.Builder
	b.WriteString(theme.Hint.Render(fmt.Sprintf("Statement %d of %d", answered+1, total)))
	b.WriteString("\n\n")
	b.WriteString(theme.Card.Width(cardWidth).Render(theme.Body.Render(item.Statement)))
	b.WriteString("\n\n")

	bar := components.NewProgressBar("", float64(answered)/float64(total), true, cardWidth)
	b.WriteString(bar.View())
	b.WriteString("\n\n")

	if s.last != nil {
		if *s.last {
			b.WriteString(theme.Known.Render("✓ noted: you know that one"))
		} else {
			b.WriteString(theme.Unknown.Render("○ noted: we'll cover it"))
		}
	}

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, b.String())
}
