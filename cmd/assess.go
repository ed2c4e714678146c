package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/lectern/internal/app"
	"github.com/abhisek/lectern/internal/assessment"
	"github.com/abhisek/lectern/internal/curriculum"
	"github.com/abhisek/lectern/internal/screens/probe"
)

func newAssessCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assess <lecture>",
		Short: "Check what you already know so new content is pitched right",
		Args:  cobra.ExactArgs(1),
		RunE: r.withEnv(needs{llm: true}, func(cmd *cobra.Command, e *env, args []string) error {
			c, err := e.lecture(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "Preparing knowledge check...")
			p, err := c.NewProbe(cmd.Context())
			if err != nil {
				return err
			}

			var topic string
			c.Lecture().Read(func(l *curriculum.Lecture) { topic = l.Topic })

			plain, _ := cmd.Flags().GetBool("plain")
			if plain || !isTerminal(cmd.InOrStdin()) || !isTerminal(cmd.OutOrStdout()) {
				err = runProbeLines(cmd.InOrStdin(), cmd.OutOrStdout(), p)
			} else {
				err = app.Run(cmd.Context(), probe.New(p, topic))
			}
			if err != nil {
				return err
			}

			if p.State() != assessment.StateCompleted {
				fmt.Fprintln(cmd.OutOrStdout(), "Knowledge check not finished; nothing was saved.")
				return nil
			}
			saveErr := c.ApplyAssessment(cmd.Context(), p)
			for _, res := range p.Results() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-12s %d/%d known\n",
					res.SkillID, res.Level, res.QuestionsKnown, res.QuestionsAnswered)
			}
			return saveErr
		}),
	}
	cmd.Flags().Bool("plain", false, "Answer y/n line by line instead of the full-screen view")
	return cmd
}

// runProbeLines asks each statement on out and reads y/n answers from in.
// It stops early at end of input.
func runProbeLines(in io.Reader, out io.Writer, p *assessment.Probe) error {
	sc := bufio.NewScanner(in)
	for {
		item, ok := p.Current()
		if !ok {
			return nil
		}
		answered, total := p.Progress()
		fmt.Fprintf(out, "[%d/%d] %s (y/n) ", answered+1, total, item.Statement)

		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		var knows bool
		switch strings.ToLower(strings.TrimSpace(sc.Text())) {
		case "y", "yes":
			knows = true
		case "n", "no":
		default:
			fmt.Fprintln(out, "Please answer y or n.")
			continue
		}
		if err := p.Answer(knows); err != nil {
			return err
		}
	}
}
