package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/pool-route/internal/web"
)

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate an API key for 'pool serve'",
		Long: `Prints a random API key. Start the server with it:
  POOL_API_KEY=<key> pool serve
and give it to other machines with 'pool login'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := web.GenerateAPIKey()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), key)
			return err
		},
	}
}
