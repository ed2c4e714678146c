package cmd

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the lectern command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&runner{})
}

func newRootCmd(r *runner) *cobra.Command {
	root := &cobra.Command{
		Use:   "lectern",
		Short: "Personalized study curricula planned and written by an LLM",
		Long: "Lectern plans a lecture for a topic, writes each subchapter the first time you open it, " +
			"and tracks your progress through exercises, quizzes and chapter tests.",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "Path to lectern.yaml (default ./lectern.yaml or $XDG_CONFIG_HOME/lectern/lectern.yaml)")
	pf.String("db", "", "Path to the SQLite database (overrides LECTERN_DB and store.path)")
	pf.String("user", "", "Learner whose lectures to use (overrides config)")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("metrics-addr", "", "Serve Prometheus metrics on this address while the command runs")

	root.AddCommand(
		newPlanCmd(r),
		newListCmd(r),
		newShowCmd(r),
		newDeleteCmd(r),
		newStudyCmd(r),
		newPrefetchCmd(r),
		newReadCmd(r),
		newExerciseCmd(r),
		newAnswerCmd(r),
		newExplainCmd(r),
		newAskCmd(r),
		newGapCmd(r),
		newAssessCmd(r),
		newTestCmd(r),
		newExportCmd(r),
		newUsageCmd(r),
		newVersionCmd(),
		newUpdateCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
