package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/pool-route/internal/product"
)

func newProductsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Manage the product catalog",
	}
	cmd.AddCommand(newProductsListCmd(), newProductsAddCmd())
	return cmd
}

func newProductsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List products by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			products, err := a.products().List(cmd.Context())
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), products)
			}
			return printProductTable(cmd.OutOrStdout(), products)
		},
	}
}

func newProductsAddCmd() *cobra.Command {
	var isDefault bool

	cmd := &cobra.Command{
		Use:   "add <name> <unit>",
		Short: "Add a product",
		Long: `Add a product to the catalog. Products cannot be changed once added.

Examples:
  pool products add "Liquid chlorine" L
  pool products add "pH reducer" kg --default`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			p, err := a.products().Create(cmd.Context(), product.Input{
				Name:      args[0],
				Unit:      args[1],
				IsDefault: isDefault,
			})
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), p)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Product #%d added: %s (%s)\n", p.ID, p.Name, p.Unit)
			return nil
		},
	}

	cmd.Flags().BoolVar(&isDefault, "default", false, "mark as a commonly used product")
	return cmd
}
