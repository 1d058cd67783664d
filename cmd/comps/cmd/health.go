package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the server is up",
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := newClient().Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("checking health: %w", err)
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), h)
			}

			tw := newTabWriter(cmd.OutOrStdout())
			tw.writef("OK:\t%v\n", h.OK)
			tw.writef("Marketplace:\t%s\n", h.VintedBase)
			return tw.finish()
		},
	}
}

func quotaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show the server's daily marketplace request budget",
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := newClient().Quota(cmd.Context())
			if err != nil {
				return fmt.Errorf("getting quota: %w", err)
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), q)
			}

			tw := newTabWriter(cmd.OutOrStdout())
			if q.DailyLimit == 0 {
				tw.writef("Daily limit:\tunlimited\n")
			} else {
				tw.writef("Daily limit:\t%d\n", q.DailyLimit)
				tw.writef("Remaining:\t%d\n", q.Remaining)
			}
			tw.writef("Used:\t%d\n", q.DailyUsed)
			if !q.ResetAt.IsZero() {
				tw.writef("Resets:\t%s\n", q.ResetAt.Format("2006-01-02 15:04:05"))
			}
			return tw.finish()
		},
	}
}
