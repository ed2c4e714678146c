package router

import (
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/lectern/internal/screen"
)

type stubScreen struct {
	title   string
	initRan bool
	msgs    int
}

func (s *stubScreen) Init() tea.Cmd {
	s.initRan = true
	return nil
}

func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) {
	s.msgs++
	return s, nil
}

func (s *stubScreen) View(int, int) string { return s.title }
func (s *stubScreen) Title() string        { return s.title }

func TestPushMessage(t *testing.T) {
	r := New(&stubScreen{title: "outline"})
	s2 := &stubScreen{title: "probe"}
	r.Update(screen.Push{Screen: s2})

	if r.Depth() != 2 {
		t.Errorf("expected depth 2, got %d", r.Depth())
	}
	if r.Active().Title() != "probe" {
		t.Errorf("expected active 'probe', got %q", r.Active().Title())
	}
	if !s2.initRan {
		t.Error("expected Init() to run on pushed screen")
	}
}

func TestPopMessage(t *testing.T) {
	r := New(&stubScreen{title: "outline"})
	r.Update(screen.Push{Screen: &stubScreen{title: "probe"}})
	r.Update(screen.Pop{})

	if r.Depth() != 1 {
		t.Errorf("expected depth 1, got %d", r.Depth())
	}
	if r.View(80, 24) != "outline" {
		t.Errorf("expected 'outline' view, got %q", r.View(80, 24))
	}
}

func TestPopNoopAtBottom(t *testing.T) {
	r := New(&stubScreen{title: "outline"})
	r.Update(screen.Pop{})

	if r.Depth() != 1 {
		t.Errorf("expected depth 1 after pop at bottom, got %d", r.Depth())
	}
}

func TestOtherMessagesReachActiveScreen(t *testing.T) {
	bottom := &stubScreen{title: "outline"}
	top := &stubScreen{title: "probe"}
	r := New(bottom)
	r.Update(screen.Push{Screen: top})
	r.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	if top.msgs != 1 {
		t.Errorf("expected active screen to get 1 message, got %d", top.msgs)
	}
	if bottom.msgs != 0 {
		t.Errorf("expected covered screen to get no messages, got %d", bottom.msgs)
	}
}
