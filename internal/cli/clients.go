package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/pool-route/internal/client"
)

func newClientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "Manage clients",
	}

	cmd.AddCommand(
		newClientsListCmd(),
		newClientsAddCmd(),
		newClientsUpdateCmd(),
		newClientsShowCmd(),
	)
	return cmd
}

func newClientsListCmd() *cobra.Command {
	var day string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clients by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var weekday client.Weekday
			if day != "" {
				w, err := client.ParseWeekday(day)
				if err != nil {
					return err
				}
				weekday = w
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			var clients []*client.Client
			if weekday != 0 {
				clients, err = a.clients().ListByWeekday(cmd.Context(), weekday)
			} else {
				clients, err = a.clients().List(cmd.Context())
			}
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), clients)
			}
			return printClientTable(cmd.OutOrStdout(), clients)
		},
	}

	cmd.Flags().StringVarP(&day, "day", "d", "", "only clients visited on this day (1-7 or a name, e.g. tuesday)")
	return cmd
}

func newClientsAddCmd() *cobra.Command {
	var in client.Input
	var day string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a client",
		Long: `Add a client visited weekly on a fixed day.

Days are numbered 1 (Sunday) to 7 (Saturday); names are accepted too.

Examples:
  pool clients add "Ana Souza" --address "Rua A, 10" --phone 555-0101 --day tuesday`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.FullName = args[0]
			w, err := client.ParseWeekday(day)
			if err != nil {
				return err
			}
			in.VisitWeekday = w

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			c, err := a.clients().Create(cmd.Context(), in)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), c)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Client added.")
			printClient(cmd.OutOrStdout(), c)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Address, "address", "", "street address (required)")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "phone number (required)")
	cmd.Flags().StringVarP(&day, "day", "d", "", "visit day (required)")
	cmd.Flags().StringVarP(&in.Notes, "notes", "n", "", "optional notes")
	_ = cmd.MarkFlagRequired("day")

	return cmd
}

func newClientsUpdateCmd() *cobra.Command {
	var name, address, phone, day, notes string

	cmd := &cobra.Command{
		Use:   "update <client-id>",
		Short: "Change a client's details",
		Long: `Change a client's details. Only the flags given are changed.

Examples:
  pool clients update 3 --day friday
  pool clients update 3 --phone 555-0199 --notes "gate code 4321"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("client", args[0])
			if err != nil {
				return err
			}

			var p client.Patch
			flags := cmd.Flags()
			if flags.Changed("name") {
				p.FullName = &name
			}
			if flags.Changed("address") {
				p.Address = &address
			}
			if flags.Changed("phone") {
				p.Phone = &phone
			}
			if flags.Changed("notes") {
				p.Notes = &notes
			}
			if flags.Changed("day") {
				w, err := client.ParseWeekday(day)
				if err != nil {
					return err
				}
				p.VisitWeekday = &w
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			c, err := a.clients().Update(cmd.Context(), id, p)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), c)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Client updated.")
			printClient(cmd.OutOrStdout(), c)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&address, "address", "", "street address")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVarP(&day, "day", "d", "", "visit day")
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "notes (empty to clear)")

	return cmd
}

func newClientsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <client-id>",
		Short: "Show a client's details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("client", args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			c, err := a.clients().Get(cmd.Context(), id)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), c)
			}
			printClient(cmd.OutOrStdout(), c)
			return nil
		},
	}
}
