package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/abhisek/lectern/internal/concepts"
	"github.com/abhisek/lectern/internal/curriculum"
	"github.com/abhisek/lectern/internal/materials"
	"github.com/abhisek/lectern/internal/progress"
	"github.com/abhisek/lectern/internal/session"
	"github.com/abhisek/lectern/internal/ui/outline"
)

func newPlanCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <topic>",
		Short: "Plan a new lecture for a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: r.withEnv(needs{llm: true}, func(cmd *cobra.Command, e *env, args []string) error {
			goal, _ := cmd.Flags().GetString("goal")
			notes, _ := cmd.Flags().GetString("materials")
			if path, _ := cmd.Flags().GetString("materials-file"); path != "" {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read materials: %w", err)
				}
				notes = string(data)
			}
			notes, err := materials.New(e.provider, materials.DefaultConfig(), e.log).Summarize(cmd.Context(), notes)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.ErrOrStderr(), "Planning lecture...")
			c, err := e.lib.Plan(cmd.Context(), concepts.PlanInput{
				Topic:            strings.Join(args, " "),
				Goal:             goal,
				MaterialsSummary: notes,
			})
			if c == nil {
				return err
			}
			printOutline(cmd, c, !isTerminal(cmd.OutOrStdout()))
			fmt.Fprintf(cmd.OutOrStdout(), "\nLecture ID: %s\n", c.ID())
			return err
		}),
	}
	cmd.Flags().String("goal", "", "What you want to be able to do afterwards")
	cmd.Flags().String("materials", "", "Summary of materials the lecture should build on")
	cmd.Flags().String("materials-file", "", "Read materials from a file; long files are summarized first")
	return cmd
}

func newListCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your lectures",
		Args:  cobra.NoArgs,
		RunE: r.withEnv(needs{}, func(cmd *cobra.Command, e *env, _ []string) error {
			lectures := e.lib.Lectures()
			if len(lectures) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No lectures yet. Start one with: lectern plan <topic>")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tPROGRESS\tUPDATED")
			for _, c := range lectures {
				completed, total := progress.Overall(c.Progress())
				var title string
				var updated time.Time
				c.Lecture().Read(func(l *curriculum.Lecture) {
					title, updated = l.Title, l.UpdatedAt
				})
				fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\n",
					shortID(c.ID()), title, completed, total, humanize.Time(updated))
			}
			return tw.Flush()
		}),
	}
}

func newShowCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <lecture>",
		Short: "Show a lecture's outline and progress",
		Args:  cobra.ExactArgs(1),
		RunE: r.withEnv(needs{}, func(cmd *cobra.Command, e *env, args []string) error {
			c, err := e.lecture(args[0])
			if err != nil {
				return err
			}
			plain, _ := cmd.Flags().GetBool("plain")
			printOutline(cmd, c, plain || !isTerminal(cmd.OutOrStdout()))

			sum := session.BuildSummary(c.Lecture())
			fmt.Fprintf(cmd.OutOrStdout(), "\nExercises: %d answered, %.0f%% correct", sum.Attempts, sum.Accuracy*100)
			if sum.TestsTaken > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "   Chapter tests: %d taken, best %.0f%%", sum.TestsTaken, sum.BestTest)
			}
			if !sum.Assessed {
				fmt.Fprintf(cmd.OutOrStdout(), "\nTip: run `lectern assess %s` so new content matches what you already know.", shortID(c.ID()))
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		}),
	}
	cmd.Flags().Bool("plain", false, "Disable colors")
	return cmd
}

func newDeleteCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <lecture>",
		Short: "Delete a lecture",
		Args:  cobra.ExactArgs(1),
		RunE: r.withEnv(needs{}, func(cmd *cobra.Command, e *env, args []string) error {
			c, err := e.lecture(args[0])
			if err != nil {
				return err
			}
			id := c.ID()
			if err := e.lib.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted", id)
			return nil
		}),
	}
}

func printOutline(cmd *cobra.Command, c *session.Context, plain bool) {
	var title string
	c.Lecture().Read(func(l *curriculum.Lecture) { title = l.Title })
	fmt.Fprintln(cmd.OutOrStdout(), outline.Render(title, c.Progress(), outline.Options{Width: 80, Plain: plain, ShowIDs: true}))
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
