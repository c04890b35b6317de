package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/pool-route/internal/rest"
)

func newLoginCmd() *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a REST backend URL and API key",
		Long: `Reads an API key from stdin, checks it against the server, and saves both
to ~/.config/pool/config.yaml. Later commands then use the REST backend.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), server)
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "server URL (default: from config or POOL_SERVER_URL)")

	return cmd
}

func runLogin(ctx context.Context, in io.Reader, out io.Writer, serverFlag string) error {
	// Saving over an unreadable config would discard it.
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	serverURL := serverFlag
	if serverURL == "" {
		if serverURL, err = getServerURL(); err != nil {
			return err
		}
	}
	if serverURL == "" {
		return fmt.Errorf("no server URL (use --server)")
	}

	fmt.Fprint(out, "Paste your API key: ")
	reader := bufio.NewReader(in)
	key, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("reading input: %w", err)
	}

	key = strings.TrimSpace(key)
	if err := validateAPIKey(key); err != nil {
		return err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := rest.New(serverURL, key).Ping(pingCtx); err != nil {
		return fmt.Errorf("checking API key: %w", err)
	}

	cfg.APIKey = key
	cfg.ServerURL = serverURL

	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Fprintln(out, "\n✓ API key saved. You're logged in!")
	return nil
}

// validateAPIKey checks that the key is non-empty and has no whitespace.
func validateAPIKey(key string) error {
	if key == "" {
		return fmt.Errorf("no API key provided")
	}
	if strings.ContainsAny(key, " \t") {
		return fmt.Errorf("invalid API key format (contains whitespace)")
	}
	return nil
}
