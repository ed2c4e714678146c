package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/lectern/internal/curriculum"
	"github.com/abhisek/lectern/internal/materialize"
)

func newStudyCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "study <lecture> <chapter> <subchapter>",
		Short: "Open a subchapter, generating its content on first visit",
		Args:  cobra.ExactArgs(3),
		RunE: r.withEnv(needs{llm: true}, func(cmd *cobra.Command, e *env, args []string) error {
			c, err := e.lecture(args[0])
			if err != nil {
				return err
			}
			outcome, err := c.Navigate(cmd.Context(), args[1], args[2])
			switch outcome {
			case materialize.OutcomeMaterialized:
				fmt.Fprintln(cmd.ErrOrStderr(), "Generated new content.")
			case materialize.OutcomeStale:
				fmt.Fprintln(cmd.ErrOrStderr(), "Content changed while generating; showing the current version.")
			}
			if err != nil && outcome == materialize.OutcomeFailed {
				return err
			}
			if rerr := printSubchapter(cmd, c.Lecture(), args[1], args[2]); rerr != nil {
				return rerr
			}
			return err
		}),
	}
}

func newReadCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "read <lecture> <chapter> <subchapter>",
		Short: "Print a subchapter without generating anything",
		Args:  cobra.ExactArgs(3),
		RunE: r.withEnv(needs{}, func(cmd *cobra.Command, e *env, args []string) error {
			c, err := e.lecture(args[0])
			if err != nil {
				return err
			}
			return printSubchapter(cmd, c.Lecture(), args[1], args[2])
		}),
	}
}

func newPrefetchCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "prefetch <lecture> <chapter>",
		Short: "Generate every subchapter of a chapter ahead of time",
		Args:  cobra.ExactArgs(2),
		RunE: r.withEnv(needs{llm: true}, func(cmd *cobra.Command, e *env, args []string) error {
			c, err := e.lecture(args[0])
			if err != nil {
				return err
			}
			results, err := c.Prefetch(cmd.Context(), args[1])
			for _, res := range results {
				line := fmt.Sprintf("%-12s %s", res.SubchapterID, res.Outcome)
				if res.Err != nil {
					line += ": " + res.Err.Error()
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			return err
		}),
	}
}

func printSubchapter(cmd *cobra.Command, lec *curriculum.Lecture, chapterID, subchapterID string) error {
	var err error
	lec.Read(func(l *curriculum.Lecture) {
		var ch *curriculum.Chapter
		var sub *curriculum.Subchapter
		ch, sub, err = l.Subchapter(chapterID, subchapterID)
		if err == nil {
			writeSubchapter(cmd.OutOrStdout(), ch, sub)
		}
	})
	return err
}
