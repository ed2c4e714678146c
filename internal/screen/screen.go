// Package screen defines the contract between full-screen views and the app
// shell that frames them.
package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/lectern/internal/ui/layout"
)

// Screen is one full-screen view.
type Screen interface {
	Init() tea.Cmd

	// Update handles a message and returns the screen to keep showing.
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the content area, excluding header and footer.
	View(width, height int) string

	// Title is shown in the header.
	Title() string
}

// KeyHintProvider is implemented by screens with their own footer hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// StatusProvider is implemented by screens that show a status in the
// header's right corner.
type StatusProvider interface {
	Status() string
}

// Push asks the app to show s on top of the current screen.
type Push struct {
	Screen Screen
}

// Pop asks the app to return to the previous screen.
type Pop struct{}

// PushCmd returns a command emitting Push.
func PushCmd(s Screen) tea.Cmd {
	return func() tea.Msg { return Push{Screen: s} }
}

// PopCmd returns a command emitting Pop.
func PopCmd() tea.Cmd {
	return func() tea.Msg { return Pop{} }
}
