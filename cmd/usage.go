package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/abhisek/lectern/internal/store"
)

func newUsageCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show LLM token usage and cost",
		Args:  cobra.NoArgs,
		RunE: r.withEnv(needs{}, func(cmd *cobra.Command, e *env, args []string) error {
			opts, err := usageOpts(cmd)
			if err != nil {
				return err
			}
			totals, err := e.store.Usage().Totals(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if len(totals) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No LLM usage recorded.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "PURPOSE\tMODEL\tCALLS\tFAILED\tIN\tOUT\tCOST")
			var sum store.UsageTotal
			for _, t := range totals {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t$%.4f\n", t.Purpose, t.Model, t.Calls, t.Failures,
					humanize.Comma(int64(t.InputTokens)), humanize.Comma(int64(t.OutputTokens)), t.CostUSD)
				sum.Calls += t.Calls
				sum.Failures += t.Failures
				sum.InputTokens += t.InputTokens
				sum.OutputTokens += t.OutputTokens
				sum.CostUSD += t.CostUSD
			}
			fmt.Fprintf(tw, "total\t\t%d\t%d\t%s\t%s\t$%.4f\n", sum.Calls, sum.Failures,
				humanize.Comma(int64(sum.InputTokens)), humanize.Comma(int64(sum.OutputTokens)), sum.CostUSD)
			return tw.Flush()
		}),
	}
	cmd.PersistentFlags().Duration("since", 0, "Only count calls made within this duration (e.g. 24h)")
	cmd.AddCommand(newUsageEventsCmd(r))
	return cmd
}

func newUsageEventsCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "List individual LLM calls",
		Args:  cobra.NoArgs,
		RunE: r.withEnv(needs{}, func(cmd *cobra.Command, e *env, args []string) error {
			opts, err := usageOpts(cmd)
			if err != nil {
				return err
			}
			opts.Limit, _ = cmd.Flags().GetInt("limit")
			opts.After, _ = cmd.Flags().GetInt64("after")
			purpose, _ := cmd.Flags().GetString("purpose")

			events, err := e.store.Usage().Events(cmd.Context(), opts)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SEQ\tWHEN\tPURPOSE\tMODEL\tIN\tOUT\tMS\tOK")
			for _, ev := range events {
				if purpose != "" && ev.Purpose != purpose {
					continue
				}
				ok := "✓"
				if !ev.Success {
					ok = "✗ " + truncate(ev.ErrorMessage, 40)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n", ev.Sequence, humanize.Time(ev.At),
					ev.Purpose, truncate(ev.Model, 28), ev.InputTokens, ev.OutputTokens, ev.LatencyMs, ok)
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().Int("limit", 50, "Maximum number of events")
	cmd.Flags().Int64("after", 0, "Only events after this sequence number")
	cmd.Flags().String("purpose", "", "Only events with this purpose")
	return cmd
}

func usageOpts(cmd *cobra.Command) (store.QueryOpts, error) {
	since, err := cmd.Flags().GetDuration("since")
	if err != nil {
		return store.QueryOpts{}, err
	}
	var opts store.QueryOpts
	if since > 0 {
		opts.From = time.Now().Add(-since)
	}
	return opts, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
