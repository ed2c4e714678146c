package progress

import "github.com/abhisek/lectern/internal/curriculum"

// ChapterProgress summarizes one chapter for display.
type ChapterProgress struct {
	ChapterID   string
	Title       string
	Unlocked    bool
	Completed   int
	Total       int
	Percentage  float64
	BestTest    float64
	Subchapters []SubchapterProgress
}

// SubchapterProgress summarizes one subchapter for display.
type SubchapterProgress struct {
	SubchapterID string
	Title        string
	State        SubchapterState
	Materialized bool
	Current      bool
}

// Snapshot returns per-chapter progress for the lecture.
func Snapshot(lec *curriculum.Lecture) []ChapterProgress {
	var out []ChapterProgress
	lec.Read(func(l *curriculum.Lecture) {
		for _, ch := range l.Chapters {
			cp := ChapterProgress{
				ChapterID: ch.ID,
				Title:     ch.Title,
				Unlocked:  ch.Unlocked,
				Total:     len(ch.Subchapters),
			}
			for _, sub := range ch.Subchapters {
				if sub.Completed {
					cp.Completed++
				}
				cp.Subchapters = append(cp.Subchapters, SubchapterProgress{
					SubchapterID: sub.ID,
					Title:        sub.Title,
					State:        StateOf(sub),
					Materialized: sub.Materialized(),
					Current:      l.Current.ChapterID == ch.ID && l.Current.SubchapterID == sub.ID,
				})
			}
			if cp.Total > 0 {
				cp.Percentage = float64(cp.Completed) / float64(cp.Total) * 100
			}
			for _, test := range l.ChapterTests {
				if r := test.Evaluated(); test.ChapterID == ch.ID && r != nil && r.Percentage > cp.BestTest {
					cp.BestTest = r.Percentage
				}
			}
			out = append(out, cp)
		}
	})
	return out
}

// Overall returns completed and total subchapters across the lecture.
func Overall(snap []ChapterProgress) (completed, total int) {
	for _, cp := range snap {
		completed += cp.Completed
		total += cp.Total
	}
	return completed, total
}
