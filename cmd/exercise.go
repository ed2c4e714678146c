package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/lectern/internal/curriculum"
)

func newExerciseCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "exercise <lecture> <chapter/subchapter/section>",
		Short: "Get the practice exercise for a section",
		Args:  cobra.ExactArgs(2),
		RunE: r.withEnv(needs{llm: true}, func(cmd *cobra.Command, e *env, args []string) error {
			c, err := e.lecture(args[0])
			if err != nil {
				return err
			}
			ref, err := sectionRef(args[1])
			if err != nil {
				return err
			}
			ex, err := c.Exercise(cmd.Context(), ref)
			if ex == nil {
				return err
			}
			writeExercise(cmd.OutOrStdout(), ex)
			fmt.Fprintf(cmd.OutOrStdout(), "\nAnswer with: lectern answer %s %s/%s/%s <answer>\n",
				shortID(c.ID()), ref.ChapterID, ref.SubchapterID, ex.ID)
			return err
		}),
	}
}

func newAnswerCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "answer <lecture> <chapter/subchapter/exercise> <answer>",
		Short: "Answer a practice exercise or quiz item",
		Args:  cobra.MinimumNArgs(3),
		RunE: r.withEnv(needs{llm: true}, func(cmd *cobra.Command, e *env, args []string) error {
			c, err := e.lecture(args[0])
			if err != nil {
				return err
			}
			ref, err := exerciseRef(args[1])
			if err != nil {
				return err
			}
			out, err := c.SubmitAnswer(cmd.Context(), ref, strings.Join(args[2:], " "))
			if out.Attempt.ExerciseID == "" {
				return err
			}

			w := cmd.OutOrStdout()
			if out.Attempt.IsCorrect {
				fmt.Fprintln(w, "Correct.")
			} else {
				fmt.Fprintln(w, "Not quite.")
			}
			if out.Attempt.Feedback != "" {
				fmt.Fprintln(w, out.Attempt.Feedback)
			}
			if gap := out.Attempt.KnowledgeGap; gap != "" {
				fmt.Fprintf(w, "Gap: %s\n", gap)
				a := out.Attempt
				if a.Kind == curriculum.KindQuiz {
					fmt.Fprintf(w, "Review material: lectern gap --quiz %s %s %q\n", shortID(c.ID()), ref, gap)
				} else {
					fmt.Fprintf(w, "Review material: lectern gap %s %s/%s/%s %q\n", shortID(c.ID()), a.ChapterID, a.SubchapterID, a.SectionID, gap)
				}
			}
			if out.Completed {
				fmt.Fprintln(w, "Subchapter completed.")
			}
			if len(out.Unlocked) > 0 {
				fmt.Fprintf(w, "Unlocked: %s\n", strings.Join(out.Unlocked, ", "))
			}
			return err
		}),
	}
}

func newExplainCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <lecture> <chapter/subchapter/section> <text>",
		Short: "Explain a passage from a section",
		Args:  cobra.MinimumNArgs(3),
		RunE: r.withEnv(needs{llm: true}, func(cmd *cobra.Command, e *env, args []string) error {
			c, err := e.lecture(args[0])
			if err != nil {
				return err
			}
			ref, err := sectionRef(args[1])
			if err != nil {
				return err
			}
			h, err := c.Explain(cmd.Context(), ref, strings.Join(args[2:], " "))
			if h.ID == "" {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%q\n\n%s\n", h.Text, h.Explanation)
			return err
		}),
	}
}

func newAskCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <lecture> <chapter/subchapter/exercise> <question>",
		Short: "Ask a follow-up question about an exercise",
		Args:  cobra.MinimumNArgs(3),
		RunE: r.withEnv(needs{llm: true}, func(cmd *cobra.Command, e *env, args []string) error {
			c, err := e.lecture(args[0])
			if err != nil {
				return err
			}
			ref, err := exerciseRef(args[1])
			if err != nil {
				return err
			}
			f, err := c.FollowUp(cmd.Context(), ref, strings.Join(args[2:], " "))
			if f.Answer == "" {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), f.Answer)
			return err
		}),
	}
}

func newGapCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gap <lecture> <chapter/subchapter/section> <gap>",
		Short: "Get review material for a knowledge gap",
		Long: "Get review material for a knowledge gap in a section. With --quiz the reference names a " +
			"quiz item (chapter/subchapter/exercise) instead.",
		Args: cobra.MinimumNArgs(3),
		RunE: r.withEnv(needs{llm: true}, func(cmd *cobra.Command, e *env, args []string) error {
			c, err := e.lecture(args[0])
			if err != nil {
				return err
			}
			key, err := gapKey(cmd, args[1])
			if err != nil {
				return err
			}
			material, err := c.GapMaterial(cmd.Context(), key, strings.Join(args[2:], " "))
			if material == "" {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), material)
			return err
		}),
	}
	cmd.Flags().Bool("quiz", false, "The reference names a quiz item")
	return cmd
}

func gapKey(cmd *cobra.Command, ref string) (curriculum.GapKey, error) {
	if quiz, _ := cmd.Flags().GetBool("quiz"); quiz {
		er, err := exerciseRef(ref)
		if err != nil {
			return curriculum.GapKey{}, err
		}
		return curriculum.QuizGap(er), nil
	}
	sr, err := sectionRef(ref)
	if err != nil {
		return curriculum.GapKey{}, err
	}
	return curriculum.SectionGap(sr), nil
}
