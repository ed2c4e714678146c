package outline

import (
	"strings"
	"testing"

	"github.com/abhisek/lectern/internal/progress"
)

func sampleSnapshot() []progress.ChapterProgress {
	return []progress.ChapterProgress{
		{
			ChapterID: "ch-1", Title: "Foundations", Unlocked: true,
			Completed: 1, Total: 2, Percentage: 50, BestTest: 80,
			Subchapters: []progress.SubchapterProgress{
				{SubchapterID: "s-1", Title: "Arrays", State: progress.Completed, Materialized: true},
				{SubchapterID: "s-2", Title: "Lists", State: progress.InProgress, Materialized: true, Current: true},
			},
		},
		{
			ChapterID: "ch-2", Title: "Trees", Unlocked: false, Total: 1,
			Subchapters: []progress.SubchapterProgress{
				{SubchapterID: "s-3", Title: "Heaps", State: progress.NotStarted},
			},
		},
	}
}

func TestRenderPlain(t *testing.T) {
	out := Render("Data Structures", sampleSnapshot(), Options{Width: 60, Plain: true, ShowIDs: true})
	lines := strings.Split(out, "\n")

	if lines[0] != "Data Structures" {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "1/3 subchapters") {
		t.Errorf("overall bar = %q", lines[1])
	}

	for _, want := range []string{
		"1. Foundations [ch-1]  1/2  test 80%",
		"    " + MarkDone + " Arrays [s-1]",
		"  " + MarkCurrent + " " + MarkInProgress + " Lists [s-2]",
		MarkLocked + " 2. Trees [ch-2]  0/1",
		"    " + MarkLocked + " Heaps [s-3] (not generated)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("outline missing %q:\n%s", want, out)
		}
	}
}

func TestRenderWithoutIDs(t *testing.T) {
	out := Render("Data Structures", sampleSnapshot(), Options{Plain: true})
	if strings.Contains(out, "[ch-1]") {
		t.Errorf("IDs rendered without ShowIDs:\n%s", out)
	}
}

func TestRenderEmpty(t *testing.T) {
	out := Render("Empty", nil, Options{Plain: true})
	if !strings.Contains(out, "0/0 subchapters") {
		t.Errorf("unexpected empty outline:\n%s", out)
	}
}
