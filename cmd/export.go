package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/lectern/internal/curriculum"
	"github.com/abhisek/lectern/internal/progress"
)

// exportDoc is the portable study-notes view of a lecture. It leaves out
// answer keys and internal state.
type exportDoc struct {
	Title      string             `yaml:"title" json:"title"`
	Topic      string             `yaml:"topic" json:"topic"`
	Goal       string             `yaml:"goal,omitempty" json:"goal,omitempty"`
	Progress   string             `yaml:"progress" json:"progress"`
	Assessment []exportSkill      `yaml:"assessment,omitempty" json:"assessment,omitempty"`
	Chapters   []exportChapter    `yaml:"chapters" json:"chapters"`
	Tests      []exportTestResult `yaml:"tests,omitempty" json:"tests,omitempty"`
	ExportedAt time.Time          `yaml:"exported_at" json:"exported_at"`
}

type exportSkill struct {
	Skill string `yaml:"skill" json:"skill"`
	Level string `yaml:"level" json:"level"`
}

type exportChapter struct {
	ID          string             `yaml:"id" json:"id"`
	Title       string             `yaml:"title" json:"title"`
	Subchapters []exportSubchapter `yaml:"subchapters" json:"subchapters"`
}

type exportSubchapter struct {
	ID        string          `yaml:"id" json:"id"`
	Title     string          `yaml:"title" json:"title"`
	Objective string          `yaml:"objective" json:"objective"`
	State     string          `yaml:"state" json:"state"`
	Sections  []exportSection `yaml:"sections,omitempty" json:"sections,omitempty"`
	Quiz      []string        `yaml:"quiz,omitempty" json:"quiz,omitempty"`
	Notes     []exportNote    `yaml:"notes,omitempty" json:"notes,omitempty"`
}

type exportSection struct {
	Title       string   `yaml:"title" json:"title"`
	Format      string   `yaml:"format" json:"format"`
	Explanation string   `yaml:"explanation" json:"explanation"`
	Steps       []string `yaml:"steps,omitempty" json:"steps,omitempty"`
	Example     string   `yaml:"example,omitempty" json:"example,omitempty"`
	Review      string   `yaml:"review,omitempty" json:"review,omitempty"`
}

type exportNote struct {
	Text        string `yaml:"text" json:"text"`
	Explanation string `yaml:"explanation" json:"explanation"`
}

type exportTestResult struct {
	Chapter    string  `yaml:"chapter" json:"chapter"`
	Percentage float64 `yaml:"percentage" json:"percentage"`
	Mastery    string  `yaml:"mastery" json:"mastery"`
}

func newExportCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <lecture>",
		Short: "Export a lecture as study notes",
		Args:  cobra.ExactArgs(1),
		RunE: r.withEnv(needs{}, func(cmd *cobra.Command, e *env, args []string) error {
			c, err := e.lecture(args[0])
			if err != nil {
				return err
			}
			doc := buildExport(c.Lecture())

			w := cmd.OutOrStdout()
			if path, _ := cmd.Flags().GetString("output"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("create %s: %w", path, err)
				}
				defer f.Close()
				w = f
			}
			format, _ := cmd.Flags().GetString("format")
			return encodeExport(w, format, doc)
		}),
	}
	cmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
	cmd.Flags().String("format", "yaml", "Output format (yaml, json)")
	return cmd
}

func encodeExport(w io.Writer, format string, doc *exportDoc) error {
	switch format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	default:
		return fmt.Errorf("unknown format %q: %w", format, curriculum.ErrInvalidInput)
	}
}

func buildExport(lec *curriculum.Lecture) *exportDoc {
	snap := progress.Snapshot(lec)
	completed, total := progress.Overall(snap)
	states := make(map[string]string)
	for _, ch := range snap {
		for _, sub := range ch.Subchapters {
			states[ch.ChapterID+"/"+sub.SubchapterID] = string(sub.State)
		}
	}

	doc := &exportDoc{
		Progress:   fmt.Sprintf("%d/%d subchapters completed", completed, total),
		ExportedAt: time.Now().UTC().Truncate(time.Second),
	}
	lec.Read(func(l *curriculum.Lecture) {
		doc.Title, doc.Topic, doc.Goal = l.Title, l.Topic, l.Goal
		if l.Assessment != nil {
			for _, res := range l.Assessment.Results {
				doc.Assessment = append(doc.Assessment, exportSkill{Skill: res.SkillID, Level: string(res.Level)})
			}
		}
		for _, ch := range l.Chapters {
			ec := exportChapter{ID: ch.ID, Title: ch.Title}
			for _, sub := range ch.Subchapters {
				ec.Subchapters = append(ec.Subchapters, exportSub(sub, states[ch.ID+"/"+sub.ID]))
			}
			doc.Chapters = append(doc.Chapters, ec)
		}
		for _, t := range l.ChapterTests {
			if res := t.Evaluated(); res != nil {
				doc.Tests = append(doc.Tests, exportTestResult{
					Chapter:    t.ChapterID,
					Percentage: res.Percentage,
					Mastery:    string(res.MasteryLevel),
				})
			}
		}
	})
	return doc
}

func exportSub(sub *curriculum.Subchapter, state string) exportSubchapter {
	es := exportSubchapter{ID: sub.ID, Title: sub.Title, Objective: sub.Objective, State: state}
	for _, sec := range sub.Sections {
		es.Sections = append(es.Sections, exportSection{
			Title:       sec.Title,
			Format:      string(sec.Format),
			Explanation: sec.Content.Explanation,
			Steps:       sec.Content.Steps,
			Example:     sec.Content.Example,
			Review:      sec.GapMaterial,
		})
	}
	for _, q := range sub.Quiz {
		es.Quiz = append(es.Quiz, q.Prompt)
	}
	for _, h := range sub.Highlights {
		es.Notes = append(es.Notes, exportNote{Text: h.Text, Explanation: h.Explanation})
	}
	return es
}
