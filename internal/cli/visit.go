package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/pool-route/internal/visit"
)

func newVisitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visit",
		Short: "Run a client visit",
		Long: `Run a client visit: start it, record readings and products, then finish it.

Examples:
  pool visit start 3
  pool visit measure 12 --ph 7.2 --chlorine 1.5
  pool visit apply 12 4 2.5
  pool visit need 12 7 1
  pool visit finish 12`,
	}

	cmd.AddCommand(
		newVisitStartCmd(),
		newVisitShowCmd(),
		newVisitMeasureCmd(),
		newVisitFinishCmd(),
		newLineItemCmd("apply", "Record a product applied during a visit"),
		newLineItemCmd("need", "Suggest a product the client should buy"),
		newVisitHistoryCmd(),
	)
	return cmd
}

func newVisitStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <client-id>",
		Short: "Start today's visit, or resume it if already started",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientID, err := parseID("client", args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			v, created, err := a.visits().OpenOrResume(cmd.Context(), clientID)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), v)
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Visit #%d started.\n", v.ID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Resuming visit #%d.\n", v.ID)
			}
			printVisit(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

func newVisitShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <client-id>",
		Short: "Show a client's visit for today",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientID, err := parseID("client", args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			d, err := a.visits().Detail(cmd.Context(), clientID)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), d)
			}
			printDetail(cmd.OutOrStdout(), d)
			return nil
		},
	}
}

func newVisitMeasureCmd() *cobra.Command {
	raw := make(map[string]*string, len(visit.ReadingFields))

	cmd := &cobra.Command{
		Use:   "measure <visit-id>",
		Short: "Record water readings",
		Long: `Record water readings for an in-progress visit. Only the readings given are
written; earlier readings are kept. A comma is accepted as decimal separator.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			visitID, err := parseID("visit", args[0])
			if err != nil {
				return err
			}

			var r visit.Readings
			for _, field := range visit.ReadingFields {
				v, err := visit.ParseReading(field, *raw[field])
				if err != nil {
					return err
				}
				if err := r.Set(field, v); err != nil {
					return err
				}
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			v, err := a.visits().RecordMeasurements(cmd.Context(), visitID, r)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), v)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Readings saved.")
			printVisit(cmd.OutOrStdout(), v)
			return nil
		},
	}

	flags := map[string]string{
		"ph":               "pH",
		"chlorine":         "free chlorine (ppm)",
		"alkalinity":       "total alkalinity (ppm)",
		"calcium_hardness": "calcium hardness (ppm)",
		"cyanuric_acid":    "cyanuric acid (ppm)",
	}
	for _, field := range visit.ReadingFields {
		raw[field] = new(string)
		cmd.Flags().StringVar(raw[field], flagName(field), "", flags[field])
	}
	return cmd
}

// flagName turns a column name into a flag name.
func flagName(field string) string {
	return strings.ReplaceAll(field, "_", "-")
}

func newVisitFinishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "finish <visit-id>",
		Short: "Finish a visit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			visitID, err := parseID("visit", args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			v, err := a.visits().Close(cmd.Context(), visitID)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), v)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Visit #%d finished.\n", v.ID)
			printVisit(cmd.OutOrStdout(), v)
			return nil
		},
	}
}

// newLineItemCmd builds "visit apply" and "visit need", which differ only
// in the list they append to.
func newLineItemCmd(use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <visit-id> <product-id> <quantity>",
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			visitID, err := parseID("visit", args[0])
			if err != nil {
				return err
			}
			productID, err := parseID("product", args[1])
			if err != nil {
				return err
			}
			qty, err := visit.ParseQuantity(args[2])
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			m := a.visits()
			out := cmd.OutOrStdout()
			if use == "apply" {
				items, err := m.AddAppliedProduct(cmd.Context(), visitID, productID, qty)
				if err != nil {
					return err
				}
				if isJSON() {
					return printJSON(out, items)
				}
				printAppliedProducts(out, items)
				return nil
			}

			items, err := m.AddSuggestedNeed(cmd.Context(), visitID, productID, qty)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(out, items)
			}
			printSuggestedNeeds(out, items)
			return nil
		},
	}
}

func newVisitHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <client-id>",
		Short: "List a client's past visits, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientID, err := parseID("client", args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			visits, err := a.visits().History(cmd.Context(), clientID)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), visits)
			}
			return printHistory(cmd.OutOrStdout(), visits)
		},
	}
}
