package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	domain "github.com/donaldgifford/fliplens-comps/pkg/types"
)

func attributeFlags(cmd *cobra.Command, attrs *domain.Attributes) {
	cmd.Flags().StringVar(&attrs.Brand, "brand", "", "item brand")
	cmd.Flags().StringVar(&attrs.ItemType, "item-type", "", "item type, e.g. hoodie")
	cmd.Flags().StringVar(&attrs.Size, "size", "", "item size")
	cmd.Flags().StringVar(&attrs.Colour, "colour", "", "item colour")
}

func priceCmd() *cobra.Command {
	var attrs domain.Attributes

	cmd := &cobra.Command{
		Use:   "price",
		Short: "Look up price comparables for an item",
		Long: "Asks the server for comparable listings and prints the median and\n" +
			"interquartile range in GBP. An item with no comparables is not an error.",
		Example: `  comps price --brand Nike --item-type hoodie --size M
  comps price --brand Zara --item-type dress --output json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := newClient().Price(cmd.Context(), attrs)
			if err != nil {
				return fmt.Errorf("getting comparables: %w", err)
			}
			if jsonOutput() {
				return outputJSON(cmd.OutOrStdout(), res)
			}
			return printResult(cmd.OutOrStdout(), res)
		},
	}
	attributeFlags(cmd, &attrs)

	return cmd
}
