package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	apiclient "github.com/donaldgifford/fliplens-comps/internal/api/client"
)

func snapshotsCmd() *cobra.Command {
	var q apiclient.SnapshotsQuery

	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List recorded comparables history",
		Example: `  comps snapshots --query "nike hoodie m"
  comps snapshots --source html --limit 10`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snaps, err := newClient().ListSnapshots(cmd.Context(), q)
			if err != nil {
				return fmt.Errorf("listing snapshots: %w", err)
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), snaps)
			}
			return printSnapshotsTable(cmd.OutOrStdout(), snaps)
		},
	}
	cmd.Flags().StringVar(&q.Query, "query", "", "normalized query to match")
	cmd.Flags().StringVar(&q.Source, "source", "", "source tag (api, html, browser-api, browser-html, none)")
	cmd.Flags().IntVar(&q.Limit, "limit", 20, "maximum number of snapshots")

	return cmd
}
