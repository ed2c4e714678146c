package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/lectern/internal/selfupdate"
)

func newUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update lectern to the latest release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, _ := cmd.Flags().GetString("version")
			checker := selfupdate.NewChecker(selfupdate.WithTimeout(2 * time.Minute))

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			out := cmd.OutOrStdout()
			err := checker.Update(ctx, &selfupdate.UpdateInput{
				CurrentVersion: version,
				TargetVersion:  target,
			}, func(p selfupdate.UpdateProgress) {
				fmt.Fprintln(out, p.Message)
			})

			switch {
			case err == nil:
				return nil
			case errors.Is(err, selfupdate.ErrDevBuild):
				fmt.Fprintln(out, "Cannot update a development build. Install a release build first.")
				return nil
			case errors.Is(err, selfupdate.ErrAlreadyLatest):
				fmt.Fprintln(out, "Already running the latest version.")
				return nil
			case errors.Is(err, os.ErrPermission):
				return fmt.Errorf("%w\n\nTry running: sudo lectern update", err)
			default:
				return err
			}
		},
	}
	cmd.Flags().String("version", "", "Install this release tag instead of the latest")
	return cmd
}
