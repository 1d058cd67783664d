package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/donaldgifford/fliplens-comps/internal/config"
	"github.com/donaldgifford/fliplens-comps/pkg/logger"
	domain "github.com/donaldgifford/fliplens-comps/pkg/types"
)

func lookupCmd() *cobra.Command {
	var attrs domain.Attributes

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Run one comparables lookup against the marketplace and print the result",
		Long: "Builds the same engine the server uses, runs a single lookup for the\n" +
			"given attributes and prints the result as JSON. Snapshot history is not written.",
		Example: `  comps-server lookup --brand Nike --item-type hoodie --size M
  comps-server lookup --brand Levi --item-type jeans --colour blue`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLookup(cmd, attrs)
		},
	}
	cmd.Flags().StringVar(&attrs.Brand, "brand", "", "item brand")
	cmd.Flags().StringVar(&attrs.ItemType, "item-type", "", "item type, e.g. hoodie")
	cmd.Flags().StringVar(&attrs.Size, "size", "", "item size")
	cmd.Flags().StringVar(&attrs.Colour, "colour", "", "item colour")

	return cmd
}

func init() {
	rootCmd.AddCommand(lookupCmd())
}

func runLookup(cmd *cobra.Command, attrs domain.Attributes) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	c, err := buildComponents(cmd.Context(), cfg, log, false)
	if err != nil {
		return err
	}
	defer c.Close()

	res := c.engine.GetComparables(cmd.Context(), attrs)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	return nil
}
