package cli

import (
	"github.com/spf13/cobra"
)

func newTodayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "List the clients due today",
		Long: `List the clients whose visit day is today, with the status of today's visit.

Clients without a visit yet are shown as Pending. Start one with:
  pool visit start <client-id>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			r := a.resolver()
			now := r.Now()
			due, err := r.DueToday(cmd.Context())
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), due)
			}
			return printDueTable(cmd.OutOrStdout(), now, due)
		},
	}
}
