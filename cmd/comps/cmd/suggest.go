package cmd

import (
	"github.com/spf13/cobra"

	"github.com/donaldgifford/fliplens-comps/internal/pricing"
	"github.com/donaldgifford/fliplens-comps/pkg/logger"
)

func suggestCmd() *cobra.Command {
	var (
		req      pricing.Request
		minPence int64
		maxPence int64
		verbose  bool
	)

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest a listing price in pence",
		Long: "Converts the server's comparables into a listing price suggestion in\n" +
			"integer pence, clamped to the given bounds. Lookup failures produce an\n" +
			"empty suggestion rather than an error.",
		Example: `  comps suggest --brand Nike --category hoodie --size M --condition good
  comps suggest --brand Barbour --category jacket --min-pence 1000 --max-pence 20000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := "warn"
			if verbose {
				level = "debug"
			}

			svc := pricing.NewService(newClient(),
				pricing.WithBounds(minPence, maxPence),
				pricing.WithLogger(logger.NewWithWriter(cmd.ErrOrStderr(), level, "text")),
			)
			est := svc.Suggest(cmd.Context(), req)

			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), est)
			}
			return printEstimate(cmd.OutOrStdout(), &est)
		},
	}
	cmd.Flags().StringVar(&req.Brand, "brand", "", "item brand")
	cmd.Flags().StringVar(&req.Category, "category", "", "item category, e.g. hoodie")
	cmd.Flags().StringVar(&req.Size, "size", "", "item size")
	cmd.Flags().StringVar(&req.Colour, "colour", "", "item colour")
	cmd.Flags().StringVar(&req.Condition, "condition", "", "item condition")
	cmd.Flags().Int64Var(&minPence, "min-pence", pricing.DefaultMinPence, "lowest price to suggest")
	cmd.Flags().Int64Var(&maxPence, "max-pence", pricing.DefaultMaxPence, "highest price to suggest")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log lookup details to stderr")

	return cmd
}
