package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/lectern/internal/selfupdate"
)

// version is set via -ldflags at build time.
var version = "(devel)"

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the current version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "lectern", version)
			if check, _ := cmd.Flags().GetBool("check"); !check {
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			res, err := selfupdate.NewChecker().Check(ctx, &selfupdate.CheckInput{Version: version})
			if err != nil {
				return err
			}
			if res.UpdateAvailable {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is available: %s\nRun `lectern update` to install it.\n",
					res.LatestVersion, res.ReleaseURL)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Up to date.")
			}
			return nil
		},
	}
	cmd.Flags().Bool("check", false, "Also check for a newer release")
	return cmd
}
