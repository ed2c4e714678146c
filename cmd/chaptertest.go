package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/lectern/internal/curriculum"
	"github.com/abhisek/lectern/internal/session"
)

func newTestCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <lecture> <chapter>",
		Short: "Take a chapter test",
		Long: "Generate a test for a chapter, answer each question on its own line (an empty line skips it), " +
			"then get it evaluated. Passing a test unlocks the next chapter under the progressive policy.",
		Args: cobra.ExactArgs(2),
		RunE: r.withEnv(needs{llm: true}, func(cmd *cobra.Command, e *env, args []string) error {
			c, err := e.lecture(args[0])
			if err != nil {
				return err
			}

			var test *curriculum.ChapterTest
			if id, _ := cmd.Flags().GetString("resume"); id != "" {
				test, err = c.Test(id)
			} else {
				fmt.Fprintln(cmd.ErrOrStderr(), "Generating chapter test...")
				test, err = c.GenerateTest(cmd.Context(), args[1])
			}
			if test == nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Chapter test %s: %d questions, %d points\n\n",
				test.ID, len(test.Questions), test.TotalPoints)

			start := time.Now()
			if err := askQuestions(cmd, c, test); err != nil {
				return err
			}

			fmt.Fprintln(cmd.ErrOrStderr(), "Evaluating...")
			out, err := c.EvaluateTest(cmd.Context(), test, time.Since(start))
			if out.Result == nil {
				return err
			}
			writeTestResult(cmd.OutOrStdout(), test, out)
			return err
		}),
	}
	cmd.Flags().String("resume", "", "Continue an unfinished test by ID")
	return cmd
}

// askQuestions reads one answer per unanswered question from stdin.
func askQuestions(cmd *cobra.Command, c *session.Context, test *curriculum.ChapterTest) error {
	if test.CurrentState() == curriculum.TestCompleted {
		return nil
	}
	out := cmd.OutOrStdout()
	sc := bufio.NewScanner(cmd.InOrStdin())
	for i, q := range test.Questions {
		if test.CurrentState() == curriculum.TestInProgress && test.AnswerFor(q.ID) != "" {
			continue
		}
		writeQuestion(out, i+1, q)
		fmt.Fprint(out, "> ")

		answer := ""
		if sc.Scan() {
			answer = strings.TrimSpace(sc.Text())
		} else if err := sc.Err(); err != nil {
			return fmt.Errorf("read answer: %w", err)
		}
		if err := c.AnswerTest(cmd.Context(), test, q.ID, answer); err != nil {
			return err
		}
		fmt.Fprintln(out)
	}
	return nil
}

func writeQuestion(w io.Writer, n int, q curriculum.TestQuestion) {
	fmt.Fprintf(w, "Q%d [%s, %s, %d pts] %s\n", n, q.Category, q.Difficulty, q.MaxPoints, q.Prompt)
	for i := range q.Options {
		fmt.Fprintf(w, "   %s\n", curriculum.OptionLabel(q.Options, i))
	}
}

func writeTestResult(w io.Writer, test *curriculum.ChapterTest, out session.TestOutcome) {
	res := out.Result
	fmt.Fprintf(w, "Score: %.1f/%d (%.0f%%)  Mastery: %s\n", res.TotalScore, res.MaxScore, res.Percentage, res.MasteryLevel)
	if res.Fallback {
		fmt.Fprintln(w, "Evaluation was unavailable; open answers were not scored.")
	}
	if res.Feedback != "" {
		fmt.Fprintf(w, "\n%s\n", res.Feedback)
	}
	for _, s := range res.Strengths {
		fmt.Fprintf(w, "  + %s\n", s)
	}
	for _, s := range res.Improvements {
		fmt.Fprintf(w, "  - %s\n", s)
	}

	fmt.Fprintln(w)
	for i, q := range test.Questions {
		for _, a := range res.Answers {
			if a.QuestionID == q.ID {
				fmt.Fprintf(w, "Q%d %.1f/%d %s\n", i+1, a.Score, a.MaxPoints, a.Feedback)
			}
		}
	}

	if out.Passed {
		fmt.Fprintln(w, "\nPassed.")
	} else {
		fmt.Fprintln(w, "\nNot passed yet.")
	}
	if len(out.Unlocked) > 0 {
		fmt.Fprintf(w, "Unlocked: %s\n", strings.Join(out.Unlocked, ", "))
	}
}
